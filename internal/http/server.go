// Package http exposes the JSON API of the service.
package http

import (
	"net/http"
	"time"

	"divvy/internal/middleware/security"
	"divvy/internal/middleware/trace"
	"divvy/internal/services"
)

type Server struct {
	http.Server

	expenses *services.ExpenseService
	groups   *services.GroupService
	balances *services.BalanceService

	tracer *trace.Middleware
	ready  func() error
}

// NewServer wires the routes and returns a ready-to-run server. The ready
// func checks backing dependencies for the readiness probe; nil means
// always ready.
func NewServer(addr string, expenses *services.ExpenseService, groups *services.GroupService, balances *services.BalanceService, ready func() error) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		expenses: expenses,
		groups:   groups,
		balances: balances,
		tracer:   trace.NewMiddleware(),
		ready:    ready,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("POST /groups", s.handleCreateGroup)
	mux.HandleFunc("GET /groups/{id}", s.handleGetGroup)
	mux.HandleFunc("GET /groups", s.handleListGroups)

	mux.HandleFunc("POST /expenses", s.handleCreateExpense)
	mux.HandleFunc("GET /expenses/{id}", s.handleGetExpense)
	mux.HandleFunc("GET /expenses", s.handleListExpenses)
	mux.HandleFunc("PATCH /expenses/{id}", s.handleUpdateExpense)
	mux.HandleFunc("DELETE /expenses/{id}", s.handleDeleteExpense)
	mux.HandleFunc("POST /expenses/{id}/restore", s.handleRestoreExpense)

	mux.HandleFunc("GET /balances", s.handleGroupBalance)
	mux.HandleFunc("GET /balances/users/{id}", s.handleUserBalance)

	headers := security.Headers(security.DefaultHeadersConfig())
	s.Handler = s.tracer.Middleware(headers(mux))

	return s
}

// Metrics exposes request counters gathered by the tracing middleware.
func (s *Server) Metrics() trace.Metrics {
	return s.tracer.GetMetrics()
}
