package runner

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/aretw0/tagbridge/internal/logging"
	"github.com/aretw0/tagbridge/pkg/domain"
	"github.com/aretw0/tagbridge/pkg/ports"
)

// Dispatcher is the part of the bridge the runner drives.
type Dispatcher interface {
	DispatchName(ctx context.Context, callbackID, name string, args []any, sink ports.ResponseSink)
}

// Runner reads frames from a stream and dispatches them.
type Runner struct {
	dispatcher Dispatcher
	out        *FrameWriter
	logger     *slog.Logger
	maxFrame   int
	sanitizer  Sanitizer
}

// New creates a Runner writing responses to w.
func New(d Dispatcher, w io.Writer, opts ...Option) *Runner {
	r := &Runner{
		dispatcher: d,
		logger:     logging.NewNop(),
		maxFrame:   DefaultMaxFrameSize,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.out = NewFrameWriter(w, r.logger)
	return r
}

// Sink returns the writer responses go to.
func (r *Runner) Sink() ports.ResponseSink {
	return r.out
}

type line struct {
	data []byte
	err  error
}

// Run dispatches frames until in is exhausted or ctx is done. Responses to
// opens still pending when Run returns are written when they complete.
func (r *Runner) Run(ctx context.Context, in io.Reader) error {
	lines := make(chan line, DefaultInputBufferSize)
	go r.read(ctx, in, lines)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case l, ok := <-lines:
			if !ok {
				return nil
			}
			if l.err != nil {
				if errors.Is(l.err, bufio.ErrTooLong) {
					r.out.Deliver("", domain.Failure(domain.InvalidArgument("frame exceeds %d bytes", r.maxFrame)))
				}
				return fmt.Errorf("read frame: %w", l.err)
			}
			r.handle(ctx, l.data)
		}
	}
}

func (r *Runner) read(ctx context.Context, in io.Reader, lines chan<- line) {
	defer close(lines)
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, min(4096, r.maxFrame)), r.maxFrame)
	for scanner.Scan() {
		data := bytes.TrimSpace(scanner.Bytes())
		if len(data) == 0 {
			continue
		}
		select {
		case lines <- line{data: bytes.Clone(data)}:
		case <-ctx.Done():
			return
		}
	}
	if err := scanner.Err(); err != nil {
		select {
		case lines <- line{err: err}:
		case <-ctx.Done():
		}
	}
}

func (r *Runner) handle(ctx context.Context, data []byte) {
	inv, err := r.sanitizer.DecodeFrame(data)
	if err != nil {
		r.logger.Warn("Rejected malformed frame", "callback_id", inv.CallbackID, "err", err)
		r.out.Deliver(inv.CallbackID, domain.Failure(err))
		return
	}
	r.logger.Debug("Frame received", "callback_id", inv.CallbackID, "command", inv.Command)
	r.dispatcher.DispatchName(ctx, inv.CallbackID, string(inv.Command), inv.Args, r.out)
}

// DecodeFrame parses and sanitizes one frame. Numbers stay json.Number so
// integers keep their precision. The callback id is returned even when the
// rest is invalid.
func (s Sanitizer) DecodeFrame(data []byte) (domain.Invocation, error) {
	var inv domain.Invocation
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&inv); err != nil {
		var head struct {
			CallbackID string `json:"callbackId"`
		}
		_ = json.Unmarshal(data, &head)
		return domain.Invocation{CallbackID: head.CallbackID}, domain.InvalidArgument("malformed frame: %v", err)
	}
	if inv.Command == "" {
		return inv, domain.InvalidArgument("frame has no command")
	}
	args, err := s.Args(inv.Args)
	if err != nil {
		return inv, domain.InvalidArgument("rejected argument: %v", err)
	}
	inv.Args = args
	return inv, nil
}
