// Package httpapi is the core's single HTTP listener: the NSI inbound
// callback endpoint, the reservation command API, the per-reservation
// SSE log stream, a health check, and the Prometheus /metrics endpoint.
// Uses a ctx/cancel/ch lifecycle around one *http.Server with
// http.ServeMux routing over this module's own small route table.
package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/workfloworchestrator/nsi-aura/internal/db"
	"github.com/workfloworchestrator/nsi-aura/internal/reservation"
	"github.com/workfloworchestrator/nsi-aura/internal/reslog"
)

type ctxKey string

const keyServerAddr ctxKey = "serverAddr"

// Server owns the process's one *http.Server and its graceful lifecycle.
type Server struct {
	ctx    context.Context
	cancel context.CancelFunc
	ch     chan struct{}
	srv    *http.Server
}

// Deps are the collaborators the route handlers call into.
type Deps struct {
	Reservations  *reservation.Service
	Store         *db.Store
	Hub           *reslog.Hub
	ProviderNSAID string
	Log           *slog.Logger
}

// NewServer builds the route table and binds it to addr.
func NewServer(addr string, deps Deps) *Server {
	mux := http.NewServeMux()
	mux.Handle("/api/nsi/callback/", newCallbackHandler(deps))
	mux.Handle("/api/reservations", newReservationsHandler(deps))
	mux.Handle("/api/reservations/", newReservationActionHandler(deps))
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/api/healthcheck/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	ctx, cancel := context.WithCancel(context.Background())
	return &Server{
		ctx:    ctx,
		cancel: cancel,
		ch:     make(chan struct{}),
		srv: &http.Server{
			Addr:    addr,
			Handler: mux,
			BaseContext: func(l net.Listener) context.Context {
				return context.WithValue(ctx, keyServerAddr, l.Addr().String())
			},
		},
	}
}

// StartTLS serves TLS using the core's own certificate/key; client
// certificates are not requested or verified.
func (s *Server) StartTLS(certFile, keyFile string) error {
	err := s.srv.ListenAndServeTLS(certFile, keyFile)
	s.cancel()
	close(s.ch)
	return err
}

// Shutdown gracefully stops the server, waiting for Start(TLS) to return.
func (s *Server) Shutdown() error {
	err := s.srv.Shutdown(s.ctx)
	<-s.ch
	return err
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
