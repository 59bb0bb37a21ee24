package realtime

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"leadadmin/cmd/internal/auth/guard"
	"leadadmin/cmd/internal/auth/session"

	"github.com/coder/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingGauge struct{ open atomic.Int64 }

func (g *countingGauge) WatchOpened() { g.open.Add(1) }
func (g *countingGauge) WatchClosed() { g.open.Add(-1) }

func testWatchConfig() Config {
	cfg := DefaultConfig()
	cfg.OriginRequired = false
	cfg.HeartbeatEvery = time.Hour
	return cfg
}

// newWatchServer mounts the watch behind a stand-in for the route guard.
func newWatchServer(t *testing.T, p session.Payload, cfg Config) (*httptest.Server, *SessionWatch, *countingGauge) {
	t.Helper()
	gauge := &countingGauge{}
	w := NewSessionWatch(slog.New(slog.NewTextHandler(io.Discard, nil)), nil, cfg, WithGauge(gauge))
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		w.ServeHTTP(rw, r.WithContext(guard.WithPayload(r.Context(), p)))
	}))
	t.Cleanup(srv.Close)
	return srv, w, gauge
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{Subprotocols: []string{Subprotocol}})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.CloseNow() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	var env Envelope
	require.NoError(t, json.Unmarshal(data, &env))
	return env
}

func expectClose(t *testing.T, conn *websocket.Conn, code websocket.StatusCode) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, _, err := conn.Read(ctx)
	require.Error(t, err)
	assert.Equal(t, code, websocket.CloseStatus(err))
}

func TestWatch_ActiveThenEndedOnLogout(t *testing.T) {
	p := session.NewPayload("01J0000000000000000000ADMN", "ops", "Ops", time.Now())
	srv, w, gauge := newWatchServer(t, p, testWatchConfig())
	conn := dial(t, srv)

	env := readEnvelope(t, conn)
	require.Equal(t, TypeSessionActive, env.Type)
	var active SessionActivePayload
	require.NoError(t, json.Unmarshal(env.Payload, &active))
	assert.True(t, active.ExpiresAt.Equal(p.ExpiresAt()))
	assert.Equal(t, p.SubjectID, active.SubjectID)

	require.Eventually(t, func() bool { return w.Hub().Len() == 1 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, int64(1), gauge.open.Load())
	assert.Equal(t, 1, w.Hub().EndSession(p.SubjectID))
	assert.Equal(t, 0, w.Hub().EndSession("someone-else"))

	env = readEnvelope(t, conn)
	assert.Equal(t, TypeSessionEnded, env.Type)
	expectClose(t, conn, StatusSessionEnded)

	require.Eventually(t, func() bool { return w.Hub().Len() == 0 && gauge.open.Load() == 0 }, time.Second, 10*time.Millisecond)
}

func TestWatch_ClosedClientUsesRecordedStatus(t *testing.T) {
	p := session.NewPayload("01J0000000000000000000ADMN", "ops", "Ops", time.Now())
	srv, w, _ := newWatchServer(t, p, testWatchConfig())
	conn := dial(t, srv)
	require.Equal(t, TypeSessionActive, readEnvelope(t, conn).Type)
	require.Eventually(t, func() bool { return w.Hub().Len() == 1 }, time.Second, 10*time.Millisecond)

	// Same path EndSession takes when the send queue is full.
	hub := w.Hub()
	hub.mu.RLock()
	var client *Client
	for _, c := range hub.bySubject[p.SubjectID] {
		client = c
	}
	hub.mu.RUnlock()
	require.NotNil(t, client)
	client.closeWith(StatusSessionEnded, "session ended")

	expectClose(t, conn, StatusSessionEnded)
	require.Eventually(t, func() bool { return w.Hub().Len() == 0 }, time.Second, 10*time.Millisecond)
}

func TestWatch_ExpiresAtTTL(t *testing.T) {
	issued := time.Now().Add(-session.TTL + 300*time.Millisecond)
	p := session.NewPayload("01J0000000000000000000ADMN", "ops", "Ops", issued)
	srv, _, _ := newWatchServer(t, p, testWatchConfig())
	conn := dial(t, srv)

	assert.Equal(t, TypeSessionActive, readEnvelope(t, conn).Type)
	assert.Equal(t, TypeSessionExpired, readEnvelope(t, conn).Type)
	expectClose(t, conn, StatusSessionExpired)
}

func TestWatch_SessionCheck(t *testing.T) {
	p := session.NewPayload("01J0000000000000000000ADMN", "ops", "Ops", time.Now())
	srv, _, _ := newWatchServer(t, p, testWatchConfig())
	conn := dial(t, srv)
	require.Equal(t, TypeSessionActive, readEnvelope(t, conn).Type)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	check, err := json.Marshal(Envelope{V: Version, Type: TypeSessionCheck, ID: "c1", TS: time.Now()})
	require.NoError(t, err)
	require.NoError(t, conn.Write(ctx, websocket.MessageText, check))
	assert.Equal(t, TypeSessionActive, readEnvelope(t, conn).Type)

	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte(`{"v":1,"type":"message.send"}`)))
	env := readEnvelope(t, conn)
	assert.Equal(t, TypeError, env.Type)
	assert.Contains(t, string(env.Payload), "bad_envelope")

	require.NoError(t, conn.Write(ctx, websocket.MessageText, []byte(`not json`)))
	assert.Contains(t, string(readEnvelope(t, conn).Payload), "bad_json")
}

func TestWatch_RateLimited(t *testing.T) {
	cfg := testWatchConfig()
	cfg.RateEvents = 2
	cfg.RateWindow = time.Minute
	p := session.NewPayload("01J0000000000000000000ADMN", "ops", "Ops", time.Now())
	srv, _, _ := newWatchServer(t, p, cfg)
	conn := dial(t, srv)
	require.Equal(t, TypeSessionActive, readEnvelope(t, conn).Type)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	check, _ := json.Marshal(Envelope{V: Version, Type: TypeSessionCheck, ID: "c1", TS: time.Now()})
	for i := 0; i < 3; i++ {
		_ = conn.Write(ctx, websocket.MessageText, check)
	}

	for {
		_, _, err := conn.Read(ctx)
		if err != nil {
			assert.Equal(t, websocket.StatusPolicyViolation, websocket.CloseStatus(err))
			return
		}
	}
}

func TestWatch_RejectsWithoutPayloadOrOrigin(t *testing.T) {
	w := NewSessionWatch(nil, nil, DefaultConfig())

	rec := httptest.NewRecorder()
	w.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dashboard/ws", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	p := session.NewPayload("01J0000000000000000000ADMN", "ops", "Ops", time.Now())
	r := httptest.NewRequest(http.MethodGet, "/dashboard/ws", nil)
	r.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	w.ServeHTTP(rec, r.WithContext(guard.WithPayload(r.Context(), p)))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
