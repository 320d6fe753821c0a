package websocket

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"slidecraft-backend/internal/middleware"
)

func newTestServer(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()
	sessions := middleware.NewSessions("test-secret", false)
	srv := httptest.NewServer(sessions.Middleware(http.HandlerFunc(hub.HandleWebSocket)))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, header http.Header) (*gws.Conn, *http.Response) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	ws, resp, err := gws.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })
	return ws, resp
}

func TestHub_SnapshotThenBroadcast(t *testing.T) {
	var snapshotFor string
	hub := NewHub(func(sessionID string) (interface{}, bool) {
		snapshotFor = sessionID
		return map[string]string{"type": "state"}, true
	}, zaptest.NewLogger(t).Sugar())
	srv := newTestServer(t, hub)

	ws, resp := dial(t, srv, nil)
	ws.SetReadDeadline(time.Now().Add(2 * time.Second))

	_, data, err := ws.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"state"}`, string(data))
	require.NotEmpty(t, snapshotFor)

	cookies := resp.Cookies()
	require.Len(t, cookies, 1)

	require.Eventually(t, func() bool { return hub.Connections(snapshotFor) == 1 }, time.Second, 10*time.Millisecond)
	hub.SendToSession(snapshotFor, map[string]int{"slides": 22})

	_, data, err = ws.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"slides":22}`, string(data))
}

func TestHub_SessionsAreIsolated(t *testing.T) {
	hub := NewHub(nil, nil)
	srv := newTestServer(t, hub)

	ws, _ := dial(t, srv, nil)
	hub.SendToSession("someone-else", map[string]string{"leak": "yes"})

	ws.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	_, _, err := ws.ReadMessage()
	assert.Error(t, err, "no message expected for another session")
}

func TestHub_RequiresSession(t *testing.T) {
	hub := NewHub(nil, nil)
	rr := httptest.NewRecorder()
	hub.HandleWebSocket(rr, httptest.NewRequest(http.MethodGet, "/api/v1/ws", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
