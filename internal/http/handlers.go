package http

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"expenses/internal/core"
	"expenses/internal/log"
	"expenses/internal/report"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]string{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	}).Write(w)
}

// handleReady reports whether the store can be loaded.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := map[string]string{"store": "ok"}
	status, code := "ready", http.StatusOK
	if err := s.ledger.Ping(ctx); err != nil {
		checks["store"] = "failed: " + err.Error()
		status, code = "not_ready", http.StatusServiceUnavailable
	}
	if s.hub != nil {
		checks["subscribers"] = strconv.Itoa(s.hub.Len())
	}

	m := s.tracer.GetMetrics()
	NewJSONResponse().Status(code).Body(map[string]any{
		"status": status,
		"checks": checks,
		"requests": map[string]any{
			"total":      m.TotalRequests,
			"in_flight":  m.InFlight,
			"avg_ms":     m.AverageResponseTime.Milliseconds(),
			"rate_limit": s.limiter.GetMetrics().TotalHits,
			"suspicious": s.detector.GetMetrics().SuspiciousRequests,
		},
	}).Write(w)
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.ledger.Categories(r.Context())
	if err != nil {
		s.writeServiceError(w, r, log.OpList, err)
		return
	}
	NewJSONResponse().Body(cats).Write(w)
}

// handleCreateCategory accepts {"name": ..., "type": "income"|"expense"}.
func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError("malformed request body").Write(w)
		return
	}

	cat, err := s.ledger.AddCategory(r.Context(), p.Get("name"), p.Get("type"))
	if err != nil {
		s.writeServiceError(w, r, log.OpCreate, err)
		return
	}
	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/categories/"+url.PathEscape(cat.Name)).
		Body(cat).
		Write(w)
}

func (s *Server) handleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.DeleteCategory(r.Context(), r.PathValue("name")); err != nil {
		s.writeServiceError(w, r, log.OpDelete, err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

// handleCreateTransaction accepts {"name", "amount", "date", "id"?}. A
// repeated id answers 200 with the stored transaction instead of 201.
func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError("malformed request body").Write(w)
		return
	}

	in := core.TransactionInput{
		ID:     p.Get("id"),
		Name:   p.Get("name"),
		Amount: p.Get("amount"),
		Date:   p.Get("date"),
	}
	tx, created, err := s.ledger.AddTransaction(r.Context(), r.PathValue("name"), in)
	if err != nil {
		s.writeServiceError(w, r, log.OpCreate, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	NewJSONResponse().Status(status).Body(tx).Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := s.ledger.DeleteTransaction(r.Context(), r.PathValue("name"), r.PathValue("id")); err != nil {
		s.writeServiceError(w, r, log.OpDelete, err)
		return
	}
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

// handleDeleteTransactionByID deletes by id alone and reports the category
// the transaction belonged to.
func (s *Server) handleDeleteTransactionByID(w http.ResponseWriter, r *http.Request) {
	category, err := s.ledger.DeleteTransactionByID(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, log.OpDelete, err)
		return
	}
	NewJSONResponse().Body(map[string]string{
		"id":       r.PathValue("id"),
		"category": category,
	}).Write(w)
}

func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	limit := QueryInt(r.URL.Query(), "limit", defaultRecentLimit, maxRecentLimit)
	if limit == 0 {
		limit = defaultRecentLimit
	}
	entries, err := s.ledger.Recent(r.Context(), limit)
	if err != nil {
		s.writeServiceError(w, r, log.OpRead, err)
		return
	}
	if entries == nil {
		entries = []report.Entry{}
	}
	NewJSONResponse().Body(entries).Write(w)
}
