package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

const shutdownTimeout = 5 * time.Second

// routes serves Prometheus metrics, the status snapshot and a wake trigger
func (a *Agent) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Method(http.MethodGet, "/metrics", a.recorder.Handler())
	r.Get("/status", a.handleStatus)
	r.Post("/wake", a.handleWake)
	return r
}

func (a *Agent) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, a.controller.Snapshot())
}

// handleWake resumes a suspended stack, like activity on the data path
func (a *Agent) handleWake(w http.ResponseWriter, r *http.Request) {
	woke := a.controller.Wake()
	a.logger.Info("agent.http.wake", "Wake requested over HTTP", map[string]interface{}{
		"remote": r.RemoteAddr,
		"woke":   woke,
	})
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"woke":  woke,
		"state": a.controller.State().String(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *Agent) serveMetrics(ctx context.Context) error {
	ln, err := net.Listen("tcp", a.config.Metrics.Listen)
	if err != nil {
		return fmt.Errorf("metrics listen: %w", err)
	}
	srv := &http.Server{Handler: a.routes(), ReadHeaderTimeout: 5 * time.Second}

	a.logger.Info("agent.metrics.listening", "Serving metrics", map[string]interface{}{
		"addr": ln.Addr().String(),
	})

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("metrics server: %w", err)
	}
}
