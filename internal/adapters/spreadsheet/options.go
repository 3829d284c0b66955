package spreadsheet

// Option applies a configuration option to the Source.
type Option func(*Source)

// WithSheet reads the named worksheet instead of the first one.
func WithSheet(name string) Option {
	return func(s *Source) {
		s.sheet = name
	}
}
