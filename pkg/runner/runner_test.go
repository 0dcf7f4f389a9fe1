package runner_test

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/tagbridge/pkg/adapters/memory"
	"github.com/aretw0/tagbridge/pkg/dispatcher"
	"github.com/aretw0/tagbridge/pkg/domain"
	"github.com/aretw0/tagbridge/pkg/ports"
	"github.com/aretw0/tagbridge/pkg/runner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	callbackID string
	name       string
	args       []any
}

// recordingDispatcher answers every frame with success(nil).
type recordingDispatcher struct {
	mu    sync.Mutex
	calls []call
}

func (d *recordingDispatcher) DispatchName(_ context.Context, callbackID, name string, args []any, sink ports.ResponseSink) {
	d.mu.Lock()
	d.calls = append(d.calls, call{callbackID, name, args})
	d.mu.Unlock()
	sink.Deliver(callbackID, domain.Success(nil))
}

func decodeLines(t *testing.T, out string) []domain.Response {
	t.Helper()
	var resps []domain.Response
	for _, l := range strings.Split(strings.TrimSpace(out), "\n") {
		if l == "" {
			continue
		}
		var r domain.Response
		require.NoError(t, json.Unmarshal([]byte(l), &r), l)
		resps = append(resps, r)
	}
	return resps
}

func TestRunner_DispatchesFrames(t *testing.T) {
	d := &recordingDispatcher{}
	var out strings.Builder
	r := runner.New(d, &out)

	in := strings.Join([]string{
		`{"callbackId":"1","command":"set","args":["count",42]}`,
		``,
		`{"callbackId":"2","command":"sendAppView","args":["home\u001b"]}`,
	}, "\n")
	require.NoError(t, r.Run(context.Background(), strings.NewReader(in)))

	require.Len(t, d.calls, 2)
	assert.Equal(t, call{"1", "set", []any{"count", json.Number("42")}}, d.calls[0])
	assert.Equal(t, call{"2", "sendAppView", []any{"home"}}, d.calls[1])

	resps := decodeLines(t, out.String())
	require.Len(t, resps, 2)
	assert.Equal(t, "1", resps[0].CallbackID)
	assert.Equal(t, domain.StatusSuccess, resps[0].Status)
}

func TestRunner_RejectsMalformedFrames(t *testing.T) {
	d := &recordingDispatcher{}
	var out strings.Builder
	r := runner.New(d, &out)

	in := strings.Join([]string{
		`not json`,
		`{"callbackId":"7","args":[]}`,
		`{"callbackId":"8","command":"set","args":"oops"}`,
	}, "\n")
	require.NoError(t, r.Run(context.Background(), strings.NewReader(in)))

	assert.Empty(t, d.calls)
	resps := decodeLines(t, out.String())
	require.Len(t, resps, 3)
	for _, resp := range resps {
		assert.Equal(t, domain.KindInvalidArgument, resp.Kind)
	}
	assert.Equal(t, "7", resps[1].CallbackID)
	assert.Equal(t, "8", resps[2].CallbackID)
}

func TestRunner_FrameTooLarge(t *testing.T) {
	var out strings.Builder
	r := runner.New(&recordingDispatcher{}, &out, runner.WithMaxFrameSize(32))

	err := r.Run(context.Background(), strings.NewReader(`{"callbackId":"1","command":"`+strings.Repeat("x", 64)+`"}`))
	require.Error(t, err)
	resps := decodeLines(t, out.String())
	require.Len(t, resps, 1)
	assert.Equal(t, domain.KindInvalidArgument, resps[0].Kind)
}

func TestRunner_MaxInputSize(t *testing.T) {
	d := &recordingDispatcher{}
	var out strings.Builder
	r := runner.New(d, &out, runner.WithMaxInputSize(8))

	in := strings.Join([]string{
		`{"callbackId":"1","command":"sendAppView","args":["checkout-page"]}`,
		`{"callbackId":"2","command":"sendAppView","args":["home"]}`,
	}, "\n")
	require.NoError(t, r.Run(context.Background(), strings.NewReader(in)))

	require.Len(t, d.calls, 1)
	assert.Equal(t, "2", d.calls[0].callbackID)
	resps := decodeLines(t, out.String())
	require.Len(t, resps, 2)
	assert.Equal(t, "1", resps[0].CallbackID)
	assert.Equal(t, domain.KindInvalidArgument, resps[0].Kind)
}

func TestRunner_StopsOnContextCancel(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	r := runner.New(&recordingDispatcher{}, io.Discard)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx, pr) }()

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRunner_EndToEnd(t *testing.T) {
	d := dispatcher.New(memory.NewSDK())
	defer d.Shutdown(context.Background())

	inR, inW := io.Pipe()
	outR, outW := io.Pipe()
	r := runner.New(d, outW)

	go func() { _ = r.Run(context.Background(), inR) }()

	responses := make(chan domain.Response, 16)
	go func() {
		scanner := bufio.NewScanner(outR)
		for scanner.Scan() {
			var resp domain.Response
			if err := json.Unmarshal(scanner.Bytes(), &resp); err == nil {
				responses <- resp
			}
		}
	}()

	next := func() domain.Response {
		select {
		case resp := <-responses:
			return resp
		case <-time.After(2 * time.Second):
			t.Fatal("no response")
		}
		return domain.Response{}
	}
	send := func(frame string) {
		_, err := io.WriteString(inW, frame+"\n")
		require.NoError(t, err)
	}

	send(`{"callbackId":"open","command":"containerOpen","args":["GTM-E2E"]}`)
	resp := next()
	require.Equal(t, "open", resp.CallbackID)
	require.Equal(t, domain.StatusSuccess, resp.Status, resp.Message)

	send(`{"callbackId":"set","command":"set","args":["visits",{"type":"integer","value":3}]}`)
	assert.Equal(t, domain.StatusSuccess, next().Status)

	send(`{"callbackId":"get","command":"getContainerLong","args":["visits"]}`)
	resp = next()
	assert.Equal(t, "get", resp.CallbackID)
	assert.Equal(t, map[string]any{"type": "integer", "value": float64(3)}, resp.Value)

	send(`{"callbackId":"bad","command":"reticulate","args":[]}`)
	resp = next()
	assert.Equal(t, "bad", resp.CallbackID)
	assert.Equal(t, domain.KindUnknownCommand, resp.Kind)

	inW.Close()
	outW.Close()
}
