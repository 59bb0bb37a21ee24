// Package main provides a CI-friendly smoke test for the admin session flow
// against a running server.
//
// It validates:
//   - login sets the session cookie
//   - the verification endpoint reports a valid session
//   - the dashboard watch handshake, subprotocol and session.active
//   - session.check answers with session.active
//   - logout pushes session.ended and closes the watch with 4002
//   - the dashboard redirects once the cookie is gone
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/coder/websocket"
)

const (
	subprotocol  = "leadadmin.session.v1"
	maxReadBytes = 1 << 16

	statusSessionEnded = 4002
)

type envelope struct {
	V       int             `json:"v"`
	Type    string          `json:"type"`
	ID      string          `json:"id"`
	TS      time.Time       `json:"ts"`
	Payload json.RawMessage `json:"payload"`
}

type activePayload struct {
	SubjectID string    `json:"subjectId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type watcher struct {
	conn  *websocket.Conn
	inbox chan envelope
	errCh chan error
}

func main() {
	var (
		baseURL  = flag.String("base", "http://127.0.0.1:8080", "Server base URL")
		origin   = flag.String("origin", "http://localhost", "Origin header for the watch handshake")
		username = flag.String("username", "ops", "Admin username")
		timeout  = flag.Duration("timeout", 7*time.Second, "Per-step timeout")
		verbose  = flag.Bool("v", false, "Verbose output")
	)
	flag.Parse()

	password := os.Getenv("SMOKE_PASSWORD")
	if password == "" {
		fatalf("SMOKE_PASSWORD is required")
	}
	base, err := url.Parse(strings.TrimRight(*baseURL, "/"))
	if err != nil || (base.Scheme != "http" && base.Scheme != "https") || base.Host == "" {
		fatalf("invalid -base: %q", *baseURL)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		fatalf("cookie jar: %v", err)
	}
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	root := context.Background()

	mustLogin(root, client, base, *username, password, *timeout)
	mustStatus(root, client, http.MethodGet, base.String()+"/api/auth/session", http.StatusOK, *timeout)

	w := mustWatch(root, client, base, *origin, *timeout)
	defer func() { _ = w.conn.Close(websocket.StatusNormalClosure, "bye") }()

	active := w.mustReadUntilType(root, "session.active", *timeout)
	var p activePayload
	if err := json.Unmarshal(active.Payload, &p); err != nil {
		fatalf("unmarshal session.active payload: %v", err)
	}
	if p.SubjectID == "" || p.ExpiresAt.IsZero() {
		fatalf("session.active missing fields: %+v", p)
	}
	if *verbose {
		fmt.Printf("watching subject=%s expires=%s\n", p.SubjectID, p.ExpiresAt.Format(time.RFC3339))
	}

	mustWrite(root, w.conn, envelope{V: 1, Type: "session.check", ID: "smoke-check", TS: time.Now().UTC()}, *timeout)
	w.mustReadUntilType(root, "session.active", *timeout)

	mustStatus(root, client, http.MethodPost, base.String()+"/api/auth/logout", http.StatusOK, *timeout)
	w.mustReadUntilType(root, "session.ended", *timeout)
	w.mustClosedWith(root, statusSessionEnded, *timeout)

	mustStatus(root, client, http.MethodGet, base.String()+"/dashboard", http.StatusFound, *timeout)

	fmt.Println("OK: session smoke passed")
}

func mustLogin(parent context.Context, client *http.Client, base *url.URL, username, password string, stepTimeout time.Duration) {
	ctx, cancel := context.WithTimeout(parent, stepTimeout)
	defer cancel()

	body, _ := json.Marshal(map[string]string{"username": username, "password": password})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, base.String()+"/api/auth/login", bytes.NewReader(body))
	if err != nil {
		fatalf("login request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		fatalf("login: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		fatalf("login: status=%d", resp.StatusCode)
	}
	if len(client.Jar.Cookies(base)) == 0 {
		fatalf("login: no session cookie stored")
	}
}

func mustStatus(parent context.Context, client *http.Client, method, target string, want int, stepTimeout time.Duration) {
	ctx, cancel := context.WithTimeout(parent, stepTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		fatalf("%s %s: %v", method, target, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		fatalf("%s %s: %v", method, target, err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != want {
		fatalf("%s %s: status=%d want=%d", method, target, resp.StatusCode, want)
	}
}

func mustWatch(parent context.Context, client *http.Client, base *url.URL, origin string, stepTimeout time.Duration) *watcher {
	ctx, cancel := context.WithTimeout(parent, stepTimeout)
	defer cancel()

	wsURL := *base
	wsURL.Scheme = "ws"
	if base.Scheme == "https" {
		wsURL.Scheme = "wss"
	}
	wsURL.Path = "/dashboard/ws"

	h := http.Header{}
	if strings.TrimSpace(origin) != "" {
		h.Set("Origin", origin)
	}

	conn, resp, err := websocket.Dial(ctx, wsURL.String(), &websocket.DialOptions{
		HTTPClient:   client,
		Subprotocols: []string{subprotocol},
		HTTPHeader:   h,
	})
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		fatalf("watch connect: %v", err)
	}
	if got := conn.Subprotocol(); got != subprotocol {
		fatalf("subprotocol mismatch: got=%q want=%q", got, subprotocol)
	}
	conn.SetReadLimit(maxReadBytes)

	w := &watcher{conn: conn, inbox: make(chan envelope, 16), errCh: make(chan error, 1)}
	go w.readLoop()
	return w
}

func (w *watcher) readLoop() {
	defer close(w.inbox)
	for {
		_, data, err := w.conn.Read(context.Background())
		if err != nil {
			w.errCh <- err
			return
		}
		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			w.errCh <- fmt.Errorf("bad json: %w", err)
			return
		}
		select {
		case w.inbox <- env:
		default:
			w.errCh <- errors.New("inbox overflow: consumer too slow")
			return
		}
	}
}

func (w *watcher) mustReadUntilType(parent context.Context, wantType string, stepTimeout time.Duration) envelope {
	ctx, cancel := context.WithTimeout(parent, stepTimeout)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			fatalf("timeout waiting for %q: %v", wantType, ctx.Err())
		case err := <-w.errCh:
			fatalf("connection error while waiting for %q: %v", wantType, err)
		case env, ok := <-w.inbox:
			if !ok {
				fatalf("connection closed while waiting for %q", wantType)
			}
			if env.Type == wantType {
				return env
			}
			if env.Type == "error" {
				fatalf("server error: %s", env.Payload)
			}
		}
	}
}

func (w *watcher) mustClosedWith(parent context.Context, want websocket.StatusCode, stepTimeout time.Duration) {
	ctx, cancel := context.WithTimeout(parent, stepTimeout)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			fatalf("timeout waiting for close %d", want)
		case <-w.inbox:
		case err := <-w.errCh:
			if got := websocket.CloseStatus(err); got != want {
				fatalf("close status: got=%d want=%d (%v)", got, want, err)
			}
			return
		}
	}
}

func mustWrite(parent context.Context, conn *websocket.Conn, env envelope, stepTimeout time.Duration) {
	ctx, cancel := context.WithTimeout(parent, stepTimeout)
	defer cancel()

	b, err := json.Marshal(env)
	if err != nil {
		fatalf("marshal envelope: %v", err)
	}
	if err := conn.Write(ctx, websocket.MessageText, b); err != nil {
		fatalf("write failed: %v", err)
	}
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "FAIL: "+format+"\n", args...)
	os.Exit(1)
}
