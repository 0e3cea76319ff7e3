package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"explog/internal/core"
	"explog/internal/export"
	"explog/internal/interaction"
	applog "explog/internal/log"
)

func (s *Server) now() time.Time {
	return s.clock().In(s.loc)
}

func (s *Server) page() pageData {
	return buildPage(s.repo.List(), s.now(), s.ctrl.UndoWindow())
}

// render executes a named template into a buffer so a failure never leaves
// a half-written response.
func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, b *HTMXResponseBuilder) {
	if s.templates == nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Templates not loaded", applog.FieldPath, r.URL.Path)
		InternalServerError("templates not loaded").Write(w)
		return
	}
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, s.page()); err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Template execution failed",
			"template", name, applog.FieldError, err.Error())
		InternalServerError("render failed").Write(w)
		return
	}
	if b == nil {
		b = NewHTMXResponse()
	}
	b.BodyHTML(buf.String()).Write(w)
}

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).String(),
	})
}

// handleReady reports whether templates are loaded and the last write
// reached storage.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]interface{})

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	if err := s.repo.PersistErr(); err != nil {
		checks["storage"] = "degraded: " + err.Error()
		status = "degraded"
	} else {
		checks["storage"] = "ok"
	}

	checks["expenses"] = s.repo.Len()
	checks["rate_limiter"] = map[string]interface{}{
		"active_clients": s.rateLimiter.ActiveClients(),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "index.html", nil)
}

func (s *Server) handleExpenseList(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "expense-list", nil)
}

func (s *Server) handleMonthTotal(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "month-total", nil)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	form, err := ParseExpenseForm(r)
	if err != nil {
		msg := "Invalid request: " + err.Error()
		switch {
		case errors.Is(err, core.ErrInvalidAmount):
			msg = "Please enter a valid amount"
		case errors.Is(err, core.ErrInvalidCategory):
			msg = "Please choose a category"
		}
		UnprocessableEntityError(msg).Write(w)
		return
	}

	out := s.ctrl.Handle(r.Context(), interaction.Submit{
		Amount:   form.Amount,
		Note:     form.Note,
		Category: form.Category,
	})
	if out.Err != nil {
		UnprocessableEntityError(out.Notice).Write(w)
		return
	}

	s.render(w, r, "expense-list", NewHTMXResponse().
		TriggerExpenseChanged().
		TriggerFormReset().
		TriggerToast(toastMessage(out), false))
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id := sanitizeInput(mux.Vars(r)["id"])
	if id == "" {
		BadRequestError("Missing expense id").Write(w)
		return
	}

	out := s.ctrl.Handle(r.Context(), interaction.DeleteRequested{ID: id})
	if errors.Is(out.Err, core.ErrNotFound) {
		NotFoundError("Expense not found").Write(w)
		return
	}
	if out.Err != nil {
		InternalServerError("Could not delete expense").Write(w)
		return
	}

	s.render(w, r, "expense-list", NewHTMXResponse().
		TriggerExpenseChanged().
		TriggerToast(toastMessage(out), true))
}

func (s *Server) handlePendingRemoval(pending bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := sanitizeInput(mux.Vars(r)["id"])
		var ev interaction.Event = interaction.RemovalCancelled{ID: id}
		if pending {
			ev = interaction.RemovalStarted{ID: id}
		}
		if out := s.ctrl.Handle(r.Context(), ev); out.Err != nil {
			NotFoundError("Expense not found").Write(w)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	out := s.ctrl.Handle(r.Context(), interaction.UndoRequested{})
	b := NewHTMXResponse()
	if out.Changed {
		b.TriggerExpenseChanged().TriggerToast(toastMessage(out), false)
	}
	s.render(w, r, "expense-list", b)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	var buf bytes.Buffer
	err := export.WriteCSV(&buf, s.repo.List(), s.loc)
	if errors.Is(err, export.ErrNothingToExport) {
		NotFoundError("No expenses to export").Write(w)
		return
	}
	if err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Export failed",
			applog.FieldOperation, applog.OpExport, applog.FieldError, err.Error())
		InternalServerError("Export failed").Write(w)
		return
	}

	NewHTMXResponse().
		Header("Content-Type", "text/csv; charset=utf-8").
		Header("Content-Disposition", `attachment; filename="`+export.Filename(now)+`"`).
		Header("Cache-Control", "no-store").
		Body(buf.Bytes()).
		Write(w)
}

func toastMessage(out interaction.Outcome) string {
	if out.Warning != "" {
		return out.Notice + ". " + out.Warning
	}
	return out.Notice
}
