package runner

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultMaxInputSize bounds a single string argument.
const DefaultMaxInputSize = 4096

var (
	ErrInputTooLarge = errors.New("input exceeds maximum allowed size")
	ErrInvalidUTF8   = errors.New("input contains invalid UTF-8 sequences")
)

// Sanitizer cleans caller-supplied arguments. The zero value uses
// DefaultMaxInputSize.
type Sanitizer struct {
	MaxInputSize int
}

// NewSanitizer returns a Sanitizer bounding strings to limit bytes. A
// non-positive limit selects DefaultMaxInputSize.
func NewSanitizer(limit int) Sanitizer {
	return Sanitizer{MaxInputSize: limit}
}

func (s Sanitizer) limit() int {
	if s.MaxInputSize > 0 {
		return s.MaxInputSize
	}
	return DefaultMaxInputSize
}

// SanitizeInput cleans a string with the default limits.
func SanitizeInput(input string) (string, error) {
	return Sanitizer{}.Input(input)
}

// SanitizeArgs cleans arguments with the default limits.
func SanitizeArgs(args []any) ([]any, error) {
	return Sanitizer{}.Args(args)
}

// Input cleans a caller-supplied string by enforcing size limits,
// validating UTF-8, and stripping dangerous control characters.
func (s Sanitizer) Input(input string) (string, error) {
	limit := s.limit()
	if len(input) > limit {
		// Reject rather than truncate so stored values are never silently altered.
		return "", fmt.Errorf("%w: size=%d limit=%d", ErrInputTooLarge, len(input), limit)
	}

	if !utf8.ValidString(input) {
		return "", ErrInvalidUTF8
	}

	// Newline, tab and carriage return survive. ESC, NUL, BEL and the rest
	// are removed so values cannot poison logs or terminals.

	// Fast path: if no control chars, return as is.
	clean := true
	for _, r := range input {
		if unicode.IsControl(r) && !isSafeControl(r) {
			clean = false
			break
		}
	}
	if clean {
		return input, nil
	}

	var b strings.Builder
	b.Grow(len(input))
	for _, r := range input {
		if !unicode.IsControl(r) || isSafeControl(r) {
			b.WriteRune(r)
		}
	}
	return b.String(), nil
}

// Args applies Input to every string in args, including strings nested in
// objects and arrays. Map keys are sanitized too.
func (s Sanitizer) Args(args []any) ([]any, error) {
	out := make([]any, len(args))
	for i, a := range args {
		v, err := s.value(a)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

func (s Sanitizer) value(v any) (any, error) {
	switch x := v.(type) {
	case string:
		return s.Input(x)
	case []any:
		return s.Args(x)
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, item := range x {
			key, err := s.Input(k)
			if err != nil {
				return nil, err
			}
			clean, err := s.value(item)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", key, err)
			}
			out[key] = clean
		}
		return out, nil
	}
	return v, nil
}

func isSafeControl(r rune) bool {
	return r == '\n' || r == '\t' || r == '\r'
}
