// Package course validates and canonicalizes course identifiers.
//
// A canonical Code is four uppercase letters followed by three digits with
// no separator, e.g. "COMP102". Codes are only produced by the Normalize
// functions in this package.
package course

import (
	"strings"
)

const (
	letterCount = 4
	digitCount  = 3
	codeLength  = letterCount + digitCount
)

// Code is a canonical course code.
type Code string

// String returns the code as text.
func (c Code) String() string { return string(c) }

// Subject returns the four-letter subject prefix, e.g. "COMP".
func (c Code) Subject() string {
	if len(c) != codeLength {
		return ""
	}
	return string(c[:letterCount])
}

// Number returns the three-digit course number, e.g. "102".
func (c Code) Number() string {
	if len(c) != codeLength {
		return ""
	}
	return string(c[letterCount:])
}

// Channel returns the topic channel name for the course: "COMP102" -> "comp-102".
func (c Code) Channel() string {
	if len(c) != codeLength {
		return ""
	}
	return strings.ToLower(c.Subject()) + "-" + c.Number()
}

// RoleName returns the chat role name for the course: "COMP102" -> "COMP-102".
func (c Code) RoleName() string {
	if len(c) != codeLength {
		return ""
	}
	return c.Subject() + "-" + c.Number()
}

// NormalizeFreeText accepts "COMP102", "comp-102" or "Comp 102" (surrounding
// whitespace ignored) and returns the canonical code. Trailing text after the
// digits is tolerated so spreadsheet cells like "COMP102 (CRN 1234)" still
// resolve. Only the first three digits are read, so "COMP1023" is COMP102.
func NormalizeFreeText(input string) (Code, error) {
	s := strings.TrimSpace(input)
	if len(s) < codeLength || !letters(s[:letterCount]) {
		return "", notACourse(input)
	}
	rest := s[letterCount:]
	if rest[0] == '-' || rest[0] == ' ' {
		rest = rest[1:]
	}
	if len(rest) < digitCount || !digits(rest[:digitCount]) {
		return "", notACourse(input)
	}
	return Code(strings.ToUpper(s[:letterCount]) + rest[:digitCount]), nil
}

// NormalizeRoleName accepts exactly "LLLL-DDD" in any case.
func NormalizeRoleName(role string) (Code, error) {
	s := strings.TrimSpace(role)
	if len(s) != codeLength+1 || s[letterCount] != '-' {
		return "", notACourse(role)
	}
	if !letters(s[:letterCount]) || !digits(s[letterCount+1:]) {
		return "", notACourse(role)
	}
	return Code(strings.ToUpper(s[:letterCount]) + s[letterCount+1:]), nil
}

// Must normalizes free text and panics on failure. Intended for tests and
// constants.
func Must(input string) Code {
	c, err := NormalizeFreeText(input)
	if err != nil {
		panic(err)
	}
	return c
}

func letters(s string) bool {
	for i := 0; i < len(s); i++ {
		b := s[i]
		if (b < 'a' || b > 'z') && (b < 'A' || b > 'Z') {
			return false
		}
	}
	return true
}

func digits(s string) bool {
	for i := 0; i < len(s); i++ {
		if !isDigit(s[i]) {
			return false
		}
	}
	return true
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }
