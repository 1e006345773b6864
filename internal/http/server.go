package http

import (
	"context"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"carddash/internal/analyzer"
	"carddash/internal/cache"
	"carddash/internal/core"
	"carddash/internal/log"
	"carddash/internal/session"
	appweb "carddash/web"
)

// AnalyzerService is the slice of the analyzer client the server uses
// directly: exports and reachability checks. Analyses go through the
// session manager instead.
type AnalyzerService interface {
	Export(ctx context.Context, files []analyzer.File, format string) (io.ReadCloser, string, error)
	Ping(ctx context.Context) error
}

// Options tunes upload limits and the derived-view caches.
type Options struct {
	MaxUploadBytes  int64
	CacheSize       int
	CacheTTL        time.Duration
	CleanupInterval time.Duration
}

func (o Options) withDefaults() Options {
	if o.MaxUploadBytes <= 0 {
		o.MaxUploadBytes = 25 << 20
	}
	if o.CacheSize <= 0 {
		o.CacheSize = 128
	}
	if o.CacheTTL <= 0 {
		o.CacheTTL = 10 * time.Minute
	}
	if o.CleanupInterval <= 0 {
		o.CleanupInterval = time.Minute
	}
	return o
}

type Server struct {
	http.Server
	templates *template.Template
	sessions  *session.Manager
	svc       AnalyzerService
	logger    *log.Logger

	uploadLimiter  *rateLimiter
	metrics        securityMetrics
	maxUploadBytes int64

	// Derived views are memoized per analysis and filter value; keys from
	// a superseded analysis never match again and simply age out.
	monthlyCache  *cache.LRUCache[[]core.MonthCategoryTotals]
	merchantCache *cache.LRUCache[[]core.MerchantTotal]
	deepDiveCache *cache.LRUCache[core.DeepDive]
	searchCache   *cache.LRUCache[[]core.Transaction]
	cacheManager  *cache.Manager

	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
func NewServer(addr string, sessions *session.Manager, svc AnalyzerService, logger *log.Logger, opts Options) *Server {
	opts = opts.withDefaults()
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		sessions:       sessions,
		svc:            svc,
		logger:         logger.WithComponent(log.ComponentHTTP),
		uploadLimiter:  newRateLimiter(10, time.Minute),
		maxUploadBytes: opts.MaxUploadBytes,
		monthlyCache:   cache.NewLRUCache[[]core.MonthCategoryTotals](opts.CacheSize, opts.CacheTTL),
		merchantCache:  cache.NewLRUCache[[]core.MerchantTotal](opts.CacheSize, opts.CacheTTL),
		deepDiveCache:  cache.NewLRUCache[core.DeepDive](opts.CacheSize, opts.CacheTTL),
		searchCache:    cache.NewLRUCache[[]core.Transaction](opts.CacheSize, opts.CacheTTL),
		cacheManager:   cache.NewManager(),
	}

	s.cacheManager.Register(s.monthlyCache)
	s.cacheManager.Register(s.merchantCache)
	s.cacheManager.Register(s.deepDiveCache)
	s.cacheManager.Register(s.searchCache)
	s.cacheManager.StartCleanup(opts.CleanupInterval)

	// Parse embedded templates at startup.
	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		s.logger.Warn("Failed parsing templates", log.FieldError, err.Error())
	}
	s.templates = t

	// Static assets (served from embedded FS)
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("/static/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Tiny cache for static assets
			w.Header().Set("Cache-Control", "public, max-age=3600, immutable")
			static.ServeHTTP(w, r)
		}))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err.Error())
	}

	mux.HandleFunc("/", s.withSecurityHeaders(s.handleIndex))
	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", s.handleReady)
	mux.HandleFunc("/metrics", s.handleMetrics)
	mux.HandleFunc("/analyze", s.withSecurityHeaders(s.handleAnalyze))
	mux.HandleFunc("/export", s.withSecurityHeaders(s.handleExport))
	// UI partials
	mux.HandleFunc("/ui/overview", s.withSecurityHeaders(s.handleOverview))
	mux.HandleFunc("/ui/monthly", s.withSecurityHeaders(s.handleMonthly))
	mux.HandleFunc("/ui/merchants", s.withSecurityHeaders(s.handleMerchants))
	mux.HandleFunc("/ui/deep-dive", s.withSecurityHeaders(s.handleDeepDive))
	mux.HandleFunc("/ui/transactions", s.withSecurityHeaders(s.handleTransactions))
	mux.HandleFunc("/api/monthly", s.withSecurityHeaders(s.handleMonthlyJSON))

	// Outermost layer: every request's context carries the server logger.
	s.Server.Handler = log.Middleware(s.logger)(mux)

	return s
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.uploadLimiter.stop()
		s.cacheManager.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

// withSecurityHeaders adds security headers, rate limiting, and request logging to responses.
func (s *Server) withSecurityHeaders(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		atomic.AddInt64(&s.metrics.requestsTotal, 1)

		clientIP := extractClientIP(r)
		requestID := generateRequestID()

		logger := log.FromContext(r.Context()).With(log.FieldRequestID, requestID)
		ctx := log.IntoContext(r.Context(), logger)
		r = r.WithContext(ctx)
		structured := log.NewStructuredLogger(logger)

		if detectSuspiciousRequest(r, &s.metrics) {
			logger.WarnContext(ctx, "Suspicious request detected",
				log.FieldClientIP, clientIP,
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path)
		}

		structured.LogHTTPStart(ctx, r, clientIP)

		// Uploads are expensive upstream; rate limit POSTs per client
		if r.Method == http.MethodPost && !s.uploadLimiter.allow(clientIP, &s.metrics) {
			logger.WarnContext(ctx, "Rate limit exceeded",
				log.FieldClientIP, clientIP,
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self' https://unpkg.com 'unsafe-eval'; style-src 'self' 'unsafe-inline'; img-src 'self' data:; connect-src 'self'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		structured.LogHTTPEnd(ctx, r, rw.statusCode, time.Since(start).Milliseconds(), clientIP)
	}
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

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReady reports readiness: templates parsed and analyzer reachable.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.templates == nil {
		http.Error(w, "templates not loaded", http.StatusServiceUnavailable)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.svc.Ping(ctx); err != nil {
		s.logger.WarnContext(r.Context(), "Analyzer not reachable", log.FieldError, err.Error())
		http.Error(w, "analyzer unreachable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// handleMetrics exposes plain-text counters.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "requests_total %d\n", atomic.LoadInt64(&s.metrics.requestsTotal))
	fmt.Fprintf(w, "rate_limit_hits %d\n", atomic.LoadInt64(&s.metrics.rateLimitHits))
	fmt.Fprintf(w, "suspicious_requests %d\n", atomic.LoadInt64(&s.metrics.suspiciousRequests))
	fmt.Fprintf(w, "analyses_total %d\n", atomic.LoadInt64(&s.metrics.analysesTotal))
	fmt.Fprintf(w, "analyses_failed %d\n", atomic.LoadInt64(&s.metrics.analysesFailed))
	fmt.Fprintf(w, "view_cache_entries %d\n",
		s.monthlyCache.Size()+s.merchantCache.Size()+s.deepDiveCache.Size()+s.searchCache.Size())
}
