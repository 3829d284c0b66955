package api

import "github.com/okian/exambot/pkg/logger"

// Option applies a configuration option to the Server.
type Option func(*Server)

// WithAdminToken requires token in the X-Admin-Token header for mutating
// routes. Empty disables the check.
func WithAdminToken(token string) Option {
	return func(s *Server) {
		s.adminToken = token
	}
}

// WithBoard exposes the in-memory channel board under /channels.
func WithBoard(b BoardReader) Option {
	return func(s *Server) {
		if b != nil {
			s.boardHandler = NewBoardHandler(b)
		}
	}
}

// WithRateLimit caps mutating requests per client IP per minute. Zero disables it.
func WithRateLimit(perMinute int) Option {
	return func(s *Server) {
		if perMinute >= 0 {
			s.rateLimit = perMinute
		}
	}
}

// WithLogger sets a custom logger for the server.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}
