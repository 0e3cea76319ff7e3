package http

import (
	"context"
	"html/template"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"

	"explog/internal/assetcache"
	"explog/internal/interaction"
	applog "explog/internal/log"
	"explog/internal/services"
	appweb "explog/web"
)

const requestIDHeader = "X-Request-ID"

// Deps are the collaborators the server renders and mutates through.
type Deps struct {
	Repo       *services.ExpenseRepository
	Controller *interaction.Controller
	Assets     *assetcache.Cache
	Location   *time.Location
	Clock      func() time.Time
	Logger     *applog.Logger
}

type Server struct {
	http.Server
	templates   *template.Template
	repo        *services.ExpenseRepository
	ctrl        *interaction.Controller
	assets      *assetcache.Cache
	loc         *time.Location
	clock       func() time.Time
	logger      *applog.Logger
	rateLimiter *rateLimiter
	metrics     *securityMetrics
	started     time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
func NewServer(addr string, d Deps) *Server {
	if d.Clock == nil {
		d.Clock = time.Now
	}
	if d.Location == nil {
		d.Location = time.Local
	}
	if d.Logger == nil {
		d.Logger = applog.Discard()
	}

	s := &Server{
		repo:        d.Repo,
		ctrl:        d.Controller,
		assets:      d.Assets,
		loc:         d.Location,
		clock:       d.Clock,
		logger:      d.Logger.WithComponent(applog.ComponentHTTP),
		rateLimiter: newRateLimiter(),
		metrics:     &securityMetrics{},
		started:     time.Now(),
	}

	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		s.logger.Warn("Failed parsing templates", applog.FieldError, err.Error())
	}
	s.templates = t

	r := mux.NewRouter()
	r.Use(s.withRequestID)
	r.Use(applog.Middleware(d.Logger, func(r *http.Request) string { return r.Header.Get(requestIDHeader) }))
	r.Use(s.withSecurity)

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/readyz", s.handleReady).Methods(http.MethodGet)

	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/ui/expenses", s.handleExpenseList).Methods(http.MethodGet)
	r.HandleFunc("/ui/month-total", s.handleMonthTotal).Methods(http.MethodGet)

	r.HandleFunc("/expenses", s.handleCreateExpense).Methods(http.MethodPost)
	r.HandleFunc("/expenses/undo", s.handleUndo).Methods(http.MethodPost)
	r.HandleFunc("/expenses/{id}", s.handleDeleteExpense).Methods(http.MethodDelete)
	r.HandleFunc("/expenses/{id}/delete", s.handleDeleteExpense).Methods(http.MethodPost)
	r.HandleFunc("/expenses/{id}/pending", s.handlePendingRemoval(true)).Methods(http.MethodPost)
	r.HandleFunc("/expenses/{id}/present", s.handlePendingRemoval(false)).Methods(http.MethodPost)

	r.HandleFunc("/export.csv", s.handleExport).Methods(http.MethodGet)

	if s.assets != nil {
		r.PathPrefix("/static/").Handler(http.StripPrefix("/static", s.assets.Handler()))
	}

	s.Server = http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// withRequestID makes sure every request carries an ID, reusing the
// caller's when present.
func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = generateRequestID()
			r.Header.Set(requestIDHeader, id)
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

// withSecurity adds security headers, rate limits mutations and logs the
// request outcome.
func (s *Server) withSecurity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := r.Context()
		clientIP := extractClientIP(r)

		if detectSuspiciousRequest(r, s.metrics) {
			applog.FromContext(ctx).WarnContext(ctx, "Suspicious request",
				applog.NewFields().
					WithHTTPRequest(r.Method, r.URL.Path, clientIP).
					ToSlice()...)
		}

		setSecurityHeaders(w.Header())

		if rateLimited(r) && !s.rateLimiter.allow(clientIP, s.metrics) {
			applog.FromContext(ctx).WarnContext(ctx, "Rate limit exceeded",
				applog.FieldClientIP, clientIP, applog.FieldMethod, r.Method, applog.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			applog.LogHTTPEnd(ctx, r, http.StatusTooManyRequests, time.Since(start).Milliseconds(), clientIP)
			return
		}

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)
		applog.LogHTTPEnd(ctx, r, rw.statusCode, time.Since(start).Milliseconds(), clientIP)
	})
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
