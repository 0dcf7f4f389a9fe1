package ports

import "github.com/aretw0/tagbridge/pkg/domain"

// ResponseSink receives dispatcher answers. Deliver is called exactly once
// per invocation, possibly from another goroutine for asynchronous commands.
type ResponseSink interface {
	Deliver(callbackID string, resp domain.Response)
}

// SinkFunc adapts a function to ResponseSink.
type SinkFunc func(callbackID string, resp domain.Response)

func (f SinkFunc) Deliver(callbackID string, resp domain.Response) {
	f(callbackID, resp)
}
