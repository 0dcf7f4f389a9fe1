/*
Package runner serves a dispatcher over a JSON-lines stream, typically the
process's stdin and stdout.

Each input line is one frame:

	{"callbackId":"1","command":"containerOpen","args":["GTM-XXXX"]}

Each output line is one response. Responses to container opens are written
when the open completes, so output order does not follow input order;
callers correlate by callbackId.

# Usage

	d := dispatcher.New(memory.NewSDK())
	defer d.Shutdown(context.Background())

	r := runner.New(d, os.Stdout, runner.WithLogger(logger))
	if err := r.Run(ctx, os.Stdin); err != nil {
		log.Fatal(err)
	}
*/
package runner
