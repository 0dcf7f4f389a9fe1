package runner

import (
	"encoding/json"
	"io"
	"log/slog"
	"sync"

	"github.com/aretw0/tagbridge/internal/logging"
	"github.com/aretw0/tagbridge/pkg/domain"
)

// FrameWriter is a ports.ResponseSink that writes one JSON line per
// response. It is safe for concurrent use, since open completions arrive
// from other goroutines.
type FrameWriter struct {
	mu     sync.Mutex
	enc    *json.Encoder
	logger *slog.Logger
}

// NewFrameWriter creates a FrameWriter on w.
func NewFrameWriter(w io.Writer, logger *slog.Logger) *FrameWriter {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &FrameWriter{enc: json.NewEncoder(w), logger: logger}
}

// Deliver writes the response tagged with callbackID.
func (w *FrameWriter) Deliver(callbackID string, resp domain.Response) {
	resp.CallbackID = callbackID

	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.enc.Encode(resp); err != nil {
		w.logger.Error("Failed to write response frame", "callback_id", callbackID, "err", err)
	}
}
