// Package server provides the HTTP API for the LinkedIn profile optimizer.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/jonathan/linkedin-optimizer/internal/config"
	"github.com/jonathan/linkedin-optimizer/internal/db"
	"github.com/jonathan/linkedin-optimizer/internal/llm"
	"github.com/jonathan/linkedin-optimizer/internal/observability"
	"github.com/jonathan/linkedin-optimizer/internal/server/ratelimit"
	"github.com/jonathan/linkedin-optimizer/internal/store"
)

// ClientFactory builds the completion client for a request
type ClientFactory func(ctx context.Context, cfg *llm.Config, apiKey string) (llm.Client, error)

// Server represents the HTTP server
type Server struct {
	httpServer  *http.Server
	handler     http.Handler
	cfg         config.Config
	session     *Session
	store       *store.Store
	db          *db.DB
	metrics     *observability.Metrics
	rateLimiter *ratelimit.Limiter
	newClient   ClientFactory
	now         func() time.Time
}

// Config holds server configuration
type Config struct {
	App config.Config
	// RateLimit overrides the RATE_LIMIT_* environment configuration.
	RateLimit *ratelimit.Config
	// ClientFactory overrides llm.NewClient; used by tests.
	ClientFactory ClientFactory
	// DB is an already connected run history database. When nil and App.DatabaseURL
	// is set, New connects itself.
	DB *db.DB
}

// New creates a new server instance
func New(cfg Config) (*Server, error) {
	app := cfg.App.MergeWithDefaults(config.Defaults())
	if err := app.Validate(); err != nil {
		return nil, err
	}

	s := &Server{
		cfg:       app,
		session:   NewSession(),
		store:     store.New(app.DataDir),
		db:        cfg.DB,
		metrics:   observability.NewMetrics(),
		newClient: cfg.ClientFactory,
		now:       time.Now,
	}
	if s.newClient == nil {
		s.newClient = func(ctx context.Context, c *llm.Config, apiKey string) (llm.Client, error) {
			return llm.NewClient(ctx, c, apiKey)
		}
	}

	if s.db == nil && app.DatabaseURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		database, err := db.Connect(ctx, app.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		s.db = database
	}

	rlConfig := cfg.RateLimit
	if rlConfig == nil {
		rlConfig = ratelimit.LoadConfig()
	}
	s.rateLimiter = ratelimit.NewLimiter(rlConfig)

	// Load a previously saved profile so a restart keeps the session.
	if profile, err := s.store.LoadProfile(); err != nil {
		log.Printf("Warning: failed to load saved profile: %v", err)
	} else if profile != nil {
		s.session.SetProfile(*profile)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /models", s.handleModels)
	mux.Handle("GET /metrics", s.metrics.Handler())

	// Profile
	mux.HandleFunc("GET /profile", s.handleGetProfile)
	mux.HandleFunc("PUT /profile", s.handlePutProfile)
	mux.HandleFunc("POST /profile/import", s.handleImportJSON)
	mux.HandleFunc("POST /profile/import/html", s.handleImportHTML)
	mux.HandleFunc("POST /profile/import/pdf", s.handleImportPDF)
	mux.HandleFunc("POST /profile/save", s.handleSaveProfile)
	mux.HandleFunc("POST /profile/load", s.handleLoadProfile)

	// Model access and runs
	mux.HandleFunc("POST /connection/test", s.handleConnectionTest)
	mux.HandleFunc("POST /run", s.handleRun)
	mux.HandleFunc("POST /run/stream", s.handleRunStream)

	// Results
	mux.HandleFunc("GET /results", s.handleResults)
	mux.HandleFunc("GET /results/history", s.handleResultsHistory)
	mux.HandleFunc("GET /runs/{id}", s.handleGetRun)
	mux.HandleFunc("POST /export", s.handleExport)
	mux.HandleFunc("GET /export/download", s.handleDownload)

	s.handler = s.withRateLimit(s.withLogging(s.withMetrics(s.withCORS(mux))))
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", app.Port),
		Handler:      s.handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 300 * time.Second, // Four model calls plus pauses
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

// Handler returns the root HTTP handler with all middleware applied
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Session returns the interactive session served by this server
func (s *Server) Session() *Session {
	return s.session
}

// Start begins listening for requests and blocks until SIGINT or SIGTERM
func (s *Server) Start() error {
	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Server starting on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-stop:
	case err := <-errCh:
		s.Close()
		return fmt.Errorf("server error: %w", err)
	}
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	s.Close()
	log.Println("Server stopped")
	return nil
}

// Close releases the rate limiter and database pool
func (s *Server) Close() {
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
	if s.db != nil {
		s.db.Close()
	}
}

// withCORS adds CORS headers
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// withLogging adds request logging
func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		log.Printf("[%s] %s %s", r.Method, r.URL.Path, r.RemoteAddr)
		next.ServeHTTP(w, r)
		log.Printf("[%s] %s completed in %v", r.Method, r.URL.Path, time.Since(start))
	})
}

// withMetrics counts requests by matched route and status code
func (s *Server) withMetrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		s.metrics.ObserveRequest(route, rec.status)
	})
}

// withRateLimit adds rate limiting middleware
func (s *Server) withRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientID := s.extractClientID(r)

		allowed, info := s.rateLimiter.Allow(clientID, r.URL.Path, r.Method)
		s.setRateLimitHeaders(w, info)
		if !allowed {
			s.rateLimitResponse(w, info)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the response status while still supporting streaming.
type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(code int) {
	if !r.wroteHeader {
		r.status = code
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Error encoding JSON response: %v", err)
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}

// errResponse writes an error JSON response with the status derived from err
func (s *Server) errResponse(w http.ResponseWriter, err error) {
	body := map[string]string{"error": UserMessage(err)}
	if kind := errorKind(err); kind != "" {
		body["kind"] = string(kind)
		if kind.Transient() {
			w.Header().Set("Retry-After", strconv.Itoa(transientRetryAfter))
		}
	}
	s.jsonResponse(w, HTTPStatus(err), body)
}

// extractClientID extracts the client identifier (IP address) from the request.
func (s *Server) extractClientID(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// apiKey returns the bearer token sent with the request, falling back to the configured key.
func (s *Server) apiKey(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		if token := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer ")); token != "" {
			return token
		}
	}
	return s.cfg.APIKey
}

// setRateLimitHeaders sets standard rate limit headers on the response.
func (s *Server) setRateLimitHeaders(w http.ResponseWriter, info ratelimit.Info) {
	if info.Limit > 0 {
		w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", info.Limit))
		w.Header().Set("X-RateLimit-Remaining", fmt.Sprintf("%d", info.Remaining))
		w.Header().Set("X-RateLimit-Reset", fmt.Sprintf("%d", info.ResetTime.Unix()))
	}
}

// rateLimitResponse writes a 429 Too Many Requests response with rate limit information.
func (s *Server) rateLimitResponse(w http.ResponseWriter, info ratelimit.Info) {
	response := map[string]any{
		"error":     "rate_limit_exceeded",
		"message":   "Rate limit exceeded. Please try again later.",
		"limit":     info.Limit,
		"remaining": info.Remaining,
		"reset_at":  info.ResetTime.Format(time.RFC3339),
	}

	if info.RetryAfter > 0 {
		seconds := int(info.RetryAfter.Round(time.Second).Seconds())
		response["retry_after"] = seconds
		w.Header().Set("Retry-After", fmt.Sprintf("%d", seconds))
	}

	log.Printf("[rate-limit] Rate limit exceeded: Limit=%d Remaining=%d Reset=%s",
		info.Limit, info.Remaining, info.ResetTime.Format(time.RFC3339))

	s.jsonResponse(w, http.StatusTooManyRequests, response)
}
