// Package opshttp serves health, status and metrics of a running worker
// and lets operators trigger a cycle by hand.
package opshttp

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v2"
	"github.com/programme-lv/judgeworker/httpjson"
	"github.com/programme-lv/judgeworker/worker"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Worker is the part of the orchestrator exposed to operators.
type Worker interface {
	Status() worker.Status
	RunCycle(ctx context.Context) (worker.CycleReport, error)
}

type OpsServer struct {
	logger  *httplog.Logger
	worker  Worker
	router  *chi.Mux
	server  *http.Server
	started time.Time
}

func NewOpsServer(w Worker, logger *httplog.Logger, allowedOrigins []string) *OpsServer {
	router := chi.NewRouter()

	// probes and scrapes would drown the request log
	router.Use(httplog.RequestLogger(logger, []string{"/healthz", "/metrics"}))

	if len(allowedOrigins) > 0 {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins: allowedOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         3000,
		}))
	}

	s := &OpsServer{
		logger: logger,
		worker: w,
		router: router,
		server: &http.Server{
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
		},
		started: time.Now(),
	}
	s.routes()
	return s
}

func (s *OpsServer) routes() {
	s.router.Get("/healthz", s.getHealth)
	s.router.Get("/status", s.getStatus)
	s.router.Post("/cycle", s.postCycle)
	s.router.Method(http.MethodGet, "/metrics", promhttp.Handler())
}

func (s *OpsServer) Handler() http.Handler {
	return s.router
}

// Start blocks serving on address until Shutdown is called.
func (s *OpsServer) Start(address string) error {
	ln, err := net.Listen("tcp", address)
	if err != nil {
		return err
	}
	s.logger.Info("starting ops server", "address", ln.Addr().String())
	err = s.server.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *OpsServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

type healthResponse struct {
	Uptime string `json:"uptime"`
}

func (s *OpsServer) getHealth(w http.ResponseWriter, r *http.Request) {
	httpjson.WriteSuccessJson(w, healthResponse{
		Uptime: time.Since(s.started).Round(time.Second).String(),
	})
}

func (s *OpsServer) getStatus(w http.ResponseWriter, r *http.Request) {
	httpjson.WriteSuccessJson(w, s.worker.Status())
}

// postCycle runs one cycle right away. A cycle already in flight is
// waited for, and a client disconnect does not abort the new one.
func (s *OpsServer) postCycle(w http.ResponseWriter, r *http.Request) {
	report, err := s.worker.RunCycle(context.WithoutCancel(r.Context()))
	if err != nil {
		httpjson.HandleError(httplog.LogEntry(r.Context()), w, err)
		return
	}
	httpjson.WriteSuccessJson(w, report)
}
