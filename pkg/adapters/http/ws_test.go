package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/tagbridge/pkg/domain"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dialBridge(t *testing.T, s *Server) *websocket.Conn {
	t.Helper()
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/bridge"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestServeBridge_RejectsForeignOrigin(t *testing.T) {
	s, _ := newTestServer(t)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/bridge"
	header := http.Header{"Origin": []string{"https://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Zero(t, s.Clients())

	header.Set("Origin", ts.URL)
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	conn.Close()
}

func exchange(t *testing.T, conn *websocket.Conn, frame string) domain.Response {
	t.Helper()
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(frame)))
	return readResponse(t, conn)
}

func readResponse(t *testing.T, conn *websocket.Conn) domain.Response {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var resp domain.Response
	require.NoError(t, conn.ReadJSON(&resp))
	return resp
}

func TestBridge_Roundtrip(t *testing.T) {
	s, d := newTestServer(t)
	conn := dialBridge(t, s)

	resp := exchange(t, conn, `{"callbackId":"1","command":"containerOpen","args":["GTM-WS"]}`)
	require.True(t, resp.OK(), resp.Message)
	assert.Equal(t, "1", resp.CallbackID)
	assert.Equal(t, domain.StateOpen, d.State())

	resp = exchange(t, conn, `{"callbackId":"2","command":"dataLayerPush","args":[{"event":"signup","plan":"pro"}]}`)
	assert.True(t, resp.OK())

	resp = exchange(t, conn, `{"callbackId":"3","command":"getDatalayer","args":[]}`)
	assert.Equal(t, "3", resp.CallbackID)
	assert.Equal(t, []any{map[string]any{"event": "signup", "plan": "pro"}}, resp.Value)

	resp = exchange(t, conn, `{"callbackId":"4","command":"sendEvent","args":["ui","click"]}`)
	assert.True(t, resp.OK())
}

func TestBridge_RejectsBadFrames(t *testing.T) {
	s, _ := newTestServer(t)
	conn := dialBridge(t, s)

	resp := exchange(t, conn, `{"callbackId":"x","command":`)
	assert.Equal(t, "x", resp.CallbackID)
	assert.Equal(t, domain.KindInvalidArgument, resp.Kind)

	resp = exchange(t, conn, `{"callbackId":"y","command":"fly","args":[]}`)
	assert.Equal(t, "y", resp.CallbackID)
	assert.Equal(t, domain.KindUnknownCommand, resp.Kind)

	resp = exchange(t, conn, `{"callbackId":"z","command":"get","args":["k"]}`)
	assert.Equal(t, domain.KindNoActiveSession, resp.Kind)
}

func TestBridge_SecondOpenCancelsFirstAcrossFrames(t *testing.T) {
	s, _ := newTestServer(t)
	conn := dialBridge(t, s)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"callbackId":"a","command":"containerOpen","args":["GTM-A"]}`)))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"callbackId":"b","command":"containerOpen","args":["GTM-B"]}`)))

	got := map[string]domain.Response{}
	for len(got) < 2 {
		resp := readResponse(t, conn)
		got[resp.CallbackID] = resp
	}
	// The in-process SDK may finish the first open before the second frame
	// arrives, so "a" either succeeded or was cancelled.
	if !got["a"].OK() {
		assert.Equal(t, domain.KindCancelled, got["a"].Kind)
	}
	assert.True(t, got["b"].OK())
}

func TestServer_CloseDisconnectsClients(t *testing.T) {
	s, _ := newTestServer(t)
	conn := dialBridge(t, s)

	exchange(t, conn, `{"callbackId":"1","command":"close","args":[]}`)
	assert.Equal(t, 1, s.Clients())

	s.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err := conn.ReadMessage()
	require.Error(t, err)
	assert.Eventually(t, func() bool { return s.Clients() == 0 }, 2*time.Second, 10*time.Millisecond)
}
