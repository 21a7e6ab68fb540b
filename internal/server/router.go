package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// principalHeader carries the authenticated user id, set by the upstream
// auth gateway.
const principalHeader = "X-User-ID"

type contextKey struct{}

var principalKey contextKey

// Router builds the HTTP handler tree. All ledger routes sit under
// /service, matching the paths the web client calls.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/service", func(r chi.Router) {
		r.Use(s.requirePrincipal)
		r.Get("/accounts", s.getAccounts)
		r.Post("/accounts", s.replaceAccounts)
		r.Get("/transactions", s.listTransactions)
		r.Post("/transactions", s.upsertTransaction)
		r.Get("/transactions/transaction/{id}", s.getTransaction)
		r.Delete("/transactions/transaction/{id}", s.deleteTransaction)
		r.Post("/recalculate", s.recalculate)
		r.Get("/analytics/tags", s.getTags)
		r.Post("/export", s.exportSnapshot)
		r.Post("/import", s.importSnapshot)
	})

	return r
}

func (s *Server) requirePrincipal(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get(principalHeader)
		if userID == "" {
			http.Error(w, "missing principal", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), principalKey, userID)))
	})
}

func principal(r *http.Request) string {
	userID, _ := r.Context().Value(principalKey).(string)
	return userID
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("took", time.Since(start)))
	})
}
