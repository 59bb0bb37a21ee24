package app

import (
	"net/http"
	"time"

	"leadadmin/cmd/internal/auth/api"
	"leadadmin/cmd/internal/auth/guard"
	"leadadmin/cmd/internal/metrics"
	"leadadmin/cmd/internal/realtime"
	"leadadmin/cmd/internal/records"

	"github.com/jackc/pgx/v5/pgxpool"
)

// routes is everything registerHTTP needs. Optional parts may be nil.
type routes struct {
	log     Logger
	cfg     Config
	dbPool  *pgxpool.Pool
	auth    *authapi.Handler
	records *records.Handler
	watch   *realtime.SessionWatch
	guard   *guard.Guard
	metrics *metrics.Metrics
}

func registerHTTP(mux *http.ServeMux, rt routes) {
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})

	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		if rt.cfg.ReadinessRequireDB && rt.dbPool == nil {
			http.Error(w, "db not configured", http.StatusServiceUnavailable)
			return
		}

		if rt.dbPool != nil {
			if err := PingDB(r.Context(), rt.dbPool, 2*time.Second); err != nil {
				http.Error(w, "db not ready", http.StatusServiceUnavailable)
				rt.log.Info("readyz.db.not_ready", "err", err)
				return
			}
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready\n"))
	})

	if rt.metrics != nil {
		mux.Handle("GET /metrics", rt.metrics.Handler())
	}
	if rt.auth != nil {
		rt.auth.Register(mux)
	}
	if rt.records != nil {
		rt.records.Register(mux)
	}
	if rt.watch != nil {
		mux.Handle("GET /dashboard/ws", rt.watch)
	}
}

// handler builds the middleware chain, outermost first: request id,
// request logging, security headers, guard, mux.
func (rt routes) handler() http.Handler {
	mux := http.NewServeMux()
	registerHTTP(mux, rt)

	var h http.Handler = mux
	if rt.guard != nil {
		h = rt.guard.Wrap(h)
	}
	h = WithSecurityHeaders(h)

	var rec HTTPRecorder
	if rt.metrics != nil {
		rec = rt.metrics
	}
	h = WithRequestLogging(h, rt.log, rec)
	return WithRequestID(h)
}
