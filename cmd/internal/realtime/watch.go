// Package realtime serves the dashboard's websocket session watch.
//
// A watch tells the browser when its session stops being usable: it sends
// session.active on connect, session.expired when the TTL elapses and
// session.ended when the same admin logs out elsewhere. The two terminal
// messages are followed by a close frame with status 4001 or 4002.
package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"leadadmin/cmd/identity/ids"
	"leadadmin/cmd/internal/auth/guard"
	"leadadmin/cmd/internal/auth/session"

	"github.com/coder/websocket"
)

// Gauge tracks open watches. *metrics.Metrics implements it.
type Gauge interface {
	WatchOpened()
	WatchClosed()
}

// SessionWatch is the websocket endpoint. It must be mounted behind the
// route guard, which supplies the session payload.
type SessionWatch struct {
	log   *slog.Logger
	hub   *Hub
	cfg   Config
	gauge Gauge
	now   func() time.Time

	originPatterns []string
}

// WatchOption configures a SessionWatch.
type WatchOption func(*SessionWatch)

// WithGauge reports watch open/close transitions to g.
func WithGauge(g Gauge) WatchOption {
	return func(w *SessionWatch) { w.gauge = g }
}

// WithClock replaces time.Now for expiry scheduling.
func WithClock(now func() time.Time) WatchOption {
	return func(w *SessionWatch) {
		if now != nil {
			w.now = now
		}
	}
}

func NewSessionWatch(log *slog.Logger, hub *Hub, cfg Config, opts ...WatchOption) *SessionWatch {
	if log == nil {
		log = slog.Default()
	}
	if hub == nil {
		hub = NewHub(log)
	}
	cfg = cfg.withDefaults()
	w := &SessionWatch{
		log:            log,
		hub:            hub,
		cfg:            cfg,
		now:            time.Now,
		originPatterns: originPatterns(cfg.AllowedOrigins),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}
	return w
}

// Hub returns the hub logout notifications go through.
func (g *SessionWatch) Hub() *Hub { return g.hub }

func (g *SessionWatch) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p, ok := guard.PayloadFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	if err := enforceOrigin(r, g.cfg.OriginRequired, g.cfg.AllowedOrigins); err != nil {
		g.log.Info("ws.reject.origin", "err", err, "origin", r.Header.Get("Origin"), "remote", r.RemoteAddr)
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols:       []string{Subprotocol},
		OriginPatterns:     g.originPatterns,
		InsecureSkipVerify: g.cfg.DevInsecure,
	})
	if err != nil {
		g.log.Error("ws.accept.fail", "err", err)
		return
	}
	defer func() { _ = conn.CloseNow() }()

	if sp := conn.Subprotocol(); sp != Subprotocol {
		g.log.Info("ws.reject.subprotocol", "got", sp, "want", Subprotocol)
		_ = conn.Close(websocket.StatusProtocolError, "subprotocol required")
		return
	}
	conn.SetReadLimit(maxFrameBytes)

	g.run(r.Context(), conn, p)
}

func (g *SessionWatch) run(parent context.Context, conn *websocket.Conn, p session.Payload) {
	now := g.now().UTC()
	watchID, err := ids.NewULID(now)
	if err != nil {
		_ = conn.Close(websocket.StatusInternalError, "internal error")
		return
	}
	client := NewClient(p.SubjectID, watchID, g.cfg.SendQueueSize)
	log := g.log.With("watch_id", watchID, "subject_id", p.SubjectID)

	g.hub.Add(client)
	if g.gauge != nil {
		g.gauge.WatchOpened()
	}
	log.Debug("ws.watch.open")

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	var closeOnce sync.Once
	shutdown := func(code websocket.StatusCode, reason string) {
		closeOnce.Do(func() {
			g.hub.Remove(client)
			client.Close()
			_ = conn.Close(code, reason)
			cancel()
			if g.gauge != nil {
				g.gauge.WatchClosed()
			}
			log.Debug("ws.watch.close", "status", int(code), "reason", reason)
		})
	}

	active := newEnvelope(TypeSessionActive, SessionActivePayload{SubjectID: p.SubjectID, ExpiresAt: p.ExpiresAt()}, now)
	client.offer(active)

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for {
			select {
			case <-ctx.Done():
				return
			case <-client.Done():
				if code, reason := client.closeStatus(); code != 0 {
					shutdown(websocket.StatusCode(code), reason)
					return
				}
				shutdown(websocket.StatusGoingAway, "closed")
				return
			case env := <-client.Send:
				if err := writeEnvelope(ctx, conn, env, g.cfg.WriteTimeout); err != nil {
					log.Info("ws.write.fail", "close_status", websocket.CloseStatus(err), "err", err)
					shutdown(websocket.StatusAbnormalClosure, "write failed")
					return
				}
				if code, reason, ok := env.terminal(); ok {
					shutdown(websocket.StatusCode(code), reason)
					return
				}
			}
		}
	}()

	heartbeatDone := make(chan struct{})
	go func() {
		defer close(heartbeatDone)
		g.heartbeat(ctx, conn, client, p, log, shutdown)
	}()

	g.readLoop(ctx, conn, client, p, shutdown)

	shutdown(websocket.StatusNormalClosure, "bye")
	<-writerDone
	select {
	case <-heartbeatDone:
	case <-time.After(closeGrace):
	}
}

// heartbeat pings the peer and schedules session.expired at IssuedAt+TTL.
func (g *SessionWatch) heartbeat(ctx context.Context, conn *websocket.Conn, client *Client, p session.Payload, log *slog.Logger, shutdown func(websocket.StatusCode, string)) {
	ping := time.NewTicker(g.cfg.HeartbeatEvery)
	defer ping.Stop()

	expiry := time.NewTimer(max(p.ExpiresAt().Sub(g.now()), 0))
	defer expiry.Stop()

	failures := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-client.Done():
			return
		case <-expiry.C:
			env := newEnvelope(TypeSessionExpired, SessionEndPayload{SubjectID: p.SubjectID, Reason: "ttl"}, g.now())
			if !client.offer(env) {
				shutdown(websocket.StatusCode(StatusSessionExpired), "session expired")
			}
			return
		case <-ping.C:
			hbCtx, hbCancel := context.WithTimeout(ctx, g.cfg.HeartbeatTimeout)
			err := conn.Ping(hbCtx)
			hbCancel()
			if err != nil {
				failures++
				log.Info("ws.ping.fail", "failures", failures, "err", err)
				if failures >= maxPingFailures {
					shutdown(websocket.StatusGoingAway, "heartbeat failed")
					return
				}
				continue
			}
			failures = 0
		}
	}
}

// readLoop answers session.check frames and returns when the peer goes away.
func (g *SessionWatch) readLoop(ctx context.Context, conn *websocket.Conn, client *Client, p session.Payload, shutdown func(websocket.StatusCode, string)) {
	rl := NewRateLimiter(g.cfg.RateEvents, g.cfg.RateWindow)
	for {
		mt, data, err := conn.Read(ctx)
		if err != nil {
			switch {
			case websocket.CloseStatus(err) != -1:
				shutdown(websocket.StatusNormalClosure, "peer closed")
			case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
				shutdown(websocket.StatusNormalClosure, "context done")
			case errors.Is(err, net.ErrClosed), errors.Is(err, io.EOF):
				shutdown(websocket.StatusAbnormalClosure, "conn closed")
			default:
				g.log.Info("ws.read.fail", "watch_id", client.WatchID, "err", err)
				shutdown(websocket.StatusAbnormalClosure, "read failed")
			}
			return
		}

		now := g.now().UTC()
		if !rl.Allow(now) {
			client.offer(newEnvelope(TypeError, ErrorPayload{Code: "rate_limited", Message: "too many frames"}, now))
			shutdown(websocket.StatusPolicyViolation, "rate limited")
			return
		}

		var env Envelope
		if mt != websocket.MessageText || json.Unmarshal(data, &env) != nil {
			client.offer(newEnvelope(TypeError, ErrorPayload{Code: "bad_json", Message: "invalid JSON"}, now))
			continue
		}
		if err := env.Validate(); err != nil {
			client.offer(newEnvelope(TypeError, ErrorPayload{Code: "bad_envelope", Message: err.Error()}, now))
			continue
		}

		// session.check: the payload is immutable, so only the clock matters.
		if session.IsExpired(p.IssuedAt, now, session.TTL) {
			client.offer(newEnvelope(TypeSessionExpired, SessionEndPayload{SubjectID: p.SubjectID, Reason: "ttl"}, now))
			continue
		}
		client.offer(newEnvelope(TypeSessionActive, SessionActivePayload{SubjectID: p.SubjectID, ExpiresAt: p.ExpiresAt()}, now))
	}
}

func writeEnvelope(parent context.Context, conn *websocket.Conn, env Envelope, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	b, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, b)
}
