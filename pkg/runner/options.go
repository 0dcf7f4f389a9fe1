package runner

import "log/slog"

// DefaultInputBufferSize is the number of frames read ahead of dispatch.
const DefaultInputBufferSize = 64

// DefaultMaxFrameSize bounds one input line.
const DefaultMaxFrameSize = 64 << 10

// Option defines a functional option for configuring the Runner.
type Option func(*Runner)

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithMaxInputSize bounds the size of one string argument in bytes.
func WithMaxInputSize(n int) Option {
	return func(r *Runner) {
		r.sanitizer = NewSanitizer(n)
	}
}

// WithMaxFrameSize bounds the size of one input line in bytes.
func WithMaxFrameSize(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.maxFrame = n
		}
	}
}
