/*
Package dispatcher implements the tagbridge command dispatcher.

The Dispatcher receives enumerated commands with positional arguments, resolves
each to a handler against the single analytics session it owns, and answers
through a response sink. Every command answers exactly once. Most answer before
Dispatch returns. A container open answers later, once the SDK has finished.

# Lifecycle

The session moves through Closed → Opening → Open → Closed. Opening falls back
to Closed when the SDK fails or when the open is cancelled. A new open
supersedes a pending one. The pending caller receives a Cancelled error before
the new open proceeds. Close cancels any pending open and tears the session
down.

# Usage

	d := dispatcher.New(memory.NewSDK(), dispatcher.WithLogger(logger))
	defer d.Shutdown(context.Background())

	resp, err := d.Call(ctx, domain.CommandContainerOpen, "GTM-ABC123")
	if err != nil || !resp.OK() {
		// handle failure
	}
	d.Call(ctx, domain.CommandSet, "screen", "home")
*/
package dispatcher
