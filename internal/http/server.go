// Package http serves the ledger web interface.
package http

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"caja/internal/auth"
	"caja/internal/cache"
	"caja/internal/core"
	clog "caja/internal/log"
	"caja/internal/middleware/ratelimit"
	"caja/internal/middleware/security"
	"caja/internal/middleware/trace"
	"caja/internal/services"
	appweb "caja/web"
)

// LedgerReader is the read side the pages render from.
type LedgerReader interface {
	Ready() bool
	LastError() error
	Entries() []core.Entry
	Latest(n int) []core.Entry
	Totals() core.Totals
	Pivot(year string) core.Pivot
	AvailableYears() []string
	Taxonomy() core.Taxonomy
	WaitFor(ctx context.Context, cond func([]core.Entry) bool) error
}

// LedgerWriter performs entry writes on behalf of a principal.
type LedgerWriter interface {
	Submit(ctx context.Context, p auth.Principal, form services.EntryForm) (string, error)
	Delete(ctx context.Context, p auth.Principal, id, year string) error
}

// Deps are the collaborators a Server needs.
type Deps struct {
	Feed          LedgerReader
	Ledger        LedgerWriter
	Authenticator auth.Authenticator
	Sessions      *auth.Sessions
	Logger        *clog.Logger
	CookieSecure  bool
	// RequestsPerMinute bounds POST requests per client; zero uses the default.
	RequestsPerMinute int
}

const (
	latestEntries   = 50
	sessionCookie   = "caja_session"
	confirmTimeout  = 3 * time.Second
	cacheSweepEvery = 10 * time.Minute
)

type Server struct {
	http.Server
	templates *template.Template
	feed      LedgerReader
	ledger    LedgerWriter
	authn     auth.Authenticator
	sessions  *auth.Sessions
	logger    *clog.Logger
	secure    bool
	now       func() time.Time

	limiter  *ratelimit.Limiter
	detector *security.Detector
	caches   *cache.Manager

	shutdownOnce sync.Once
}

// NewServer parses the embedded templates and wires routes and middleware.
// The returned server is ready for ListenAndServe.
func NewServer(addr string, d Deps) (*Server, error) {
	if d.Logger == nil {
		d.Logger = clog.New(clog.DefaultConfig())
	}
	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	rlCfg := ratelimit.DefaultConfig()
	if d.RequestsPerMinute > 0 {
		rlCfg.RequestsPerMinute = d.RequestsPerMinute
	}

	s := &Server{
		templates: t,
		feed:      d.Feed,
		ledger:    d.Ledger,
		authn:     d.Authenticator,
		sessions:  d.Sessions,
		logger:    d.Logger.WithComponent(clog.ComponentHTTP),
		secure:    d.CookieSecure,
		now:       time.Now,
		limiter:   ratelimit.NewLimiter(rlCfg),
		detector:  security.NewDetector(),
		caches:    cache.NewManager(),
	}
	s.caches.Register(s.sessions.Cleaner())
	s.caches.StartCleanup(cacheSweepEvery)

	mux := http.NewServeMux()
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", clog.FieldError, err)
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /login", s.handleLoginPage)
	mux.HandleFunc("POST /login", s.handleLogin)
	mux.HandleFunc("POST /logout", s.handleLogout)

	mux.Handle("GET /{$}", s.requireSession(s.handleDashboard))
	mux.Handle("GET /ui/categories", s.requireSession(s.handleCategoryOptions))
	mux.Handle("GET /ui/subcategories", s.requireSession(s.handleSubcategoryOptions))
	mux.Handle("POST /entries", s.requireSession(s.handleCreateEntry))
	mux.Handle("POST /entries/{id}/delete", s.requireSession(s.handleDeleteEntry))

	mux.Handle("GET /summary", s.requireSession(s.handleSummary))
	mux.Handle("GET /export/movements", s.requireSession(s.handleExportMovements))
	mux.Handle("GET /export/summary", s.requireSession(s.handleExportSummary))

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	tracer := trace.NewMiddleware(s.logger, s.detector.ExtractClientIP, s.detector.DetectSuspiciousRequest)
	limit := s.limiter.Middleware(s.detector.ExtractClientIP, s.onRateLimit)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           tracer.Middleware(headers.Middleware(limit(sameOrigin(mux)))),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	return s, nil
}

// Shutdown stops background sweeps and the HTTP listener.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.caches.Stop()
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	clog.FromContext(r.Context()).WithComponent(clog.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
		clog.FieldClientIP, s.detector.ExtractClientIP(r),
		clog.FieldPath, r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, "Demasiadas solicitudes. Intentá de nuevo en un minuto.").Write(w)
}

// sameOrigin rejects cross-site form posts. Requests without an Origin
// header come from same-origin navigation or non-browser clients.
func sameOrigin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			if origin := r.Header.Get("Origin"); origin != "" && !originMatchesHost(origin, r.Host) {
				ErrorResponse(http.StatusForbidden, "Origen no permitido.").Write(w)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// render executes a page template, logging failures.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := s.templates.ExecuteTemplate(w, name, data); err != nil {
		clog.FromContext(r.Context()).WithComponent(clog.ComponentTemplate).ErrorContext(r.Context(), "Template execution failed",
			clog.FieldError, err,
			clog.FieldOperation, clog.OpRender,
			"template", name)
	}
}
