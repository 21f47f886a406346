package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/incomedesk/IncomeDesk/api/internal/analyzer"
	"github.com/incomedesk/IncomeDesk/api/internal/auth"
	"github.com/incomedesk/IncomeDesk/api/internal/config"
	"github.com/incomedesk/IncomeDesk/api/internal/fpl"
	"github.com/incomedesk/IncomeDesk/api/internal/handlers"
	"github.com/incomedesk/IncomeDesk/api/internal/logging"
	"github.com/incomedesk/IncomeDesk/api/internal/metrics"
	"github.com/incomedesk/IncomeDesk/api/internal/middleware"
	"github.com/incomedesk/IncomeDesk/api/internal/ratelimit"
	"github.com/incomedesk/IncomeDesk/api/internal/session"
)

// Server owns the request-gating state and the composed HTTP handler.
// The stores are exported so main can hand them to the sweepers.
type Server struct {
	Handler         http.Handler
	Sessions        *session.Store
	AuthAttempts    *ratelimit.Store
	AnalyzeAttempts *ratelimit.Store
	GlobalAttempts  *ratelimit.Store
}

// New wires config into stores, handlers and the middleware chain.
// Control flow for /api/* is: global rate limit, then (for protected
// routes) the session gate, then the route handler.
func New(cfg *config.Config, logger *logging.Logger) (*Server, error) {
	schedule := fpl.Default()
	if cfg.FPL.ScheduleFile != "" {
		loaded, err := fpl.LoadFile(cfg.FPL.ScheduleFile)
		if err != nil {
			return nil, err
		}
		schedule = loaded
		logger.Info("Loaded FPL schedule override", map[string]interface{}{
			"file": cfg.FPL.ScheduleFile,
		})
	}

	s := &Server{
		Sessions:        session.NewStore(cfg.Session.TTL),
		AuthAttempts:    ratelimit.NewStore(ratelimit.Policy{MaxAttempts: cfg.RateLimit.Auth.MaxAttempts, Window: cfg.RateLimit.Auth.Window}),
		AnalyzeAttempts: ratelimit.NewStore(ratelimit.Policy{MaxAttempts: cfg.RateLimit.Analyze.MaxAttempts, Window: cfg.RateLimit.Analyze.Window}),
		GlobalAttempts:  ratelimit.NewStore(ratelimit.Policy{MaxAttempts: cfg.RateLimit.Global.MaxAttempts, Window: cfg.RateLimit.Global.Window}),
	}

	verifier := auth.NewVerifier(cfg.Auth.Password, cfg.Auth.PasswordBcrypt)
	aiClient := analyzer.NewClient(cfg.Analyzer.BaseURL, cfg.Analyzer.APIKey, cfg.Analyzer.Model)

	authHandlers := handlers.NewAuthHandlers(verifier, s.Sessions, s.AuthAttempts, logger)
	analyzeHandlers := handlers.NewAnalyzeHandlers(aiClient, schedule, s.AnalyzeAttempts, cfg.Analyzer.Timeout, logger)
	systemHandlers := handlers.NewSystemHandlers(logger)

	router := mux.NewRouter()
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.RequestSizeMiddleware(cfg.Server.MaxBodyBytes))

	router.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":    "ok",
			"service":   "incomedesk-api",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}).Methods("GET")

	router.Handle("/metrics", metrics.Handler()).Methods("GET")

	api := router.PathPrefix("/api").Subrouter()
	api.Use(middleware.RateLimitMiddleware(s.GlobalAttempts))

	api.HandleFunc("/auth", authHandlers.Login).Methods("POST")

	sessionGate := auth.Middleware(s.Sessions)

	analyzeRoute := api.PathPrefix("/analyze").Subrouter()
	analyzeRoute.Use(sessionGate)
	analyzeRoute.HandleFunc("", analyzeHandlers.Analyze).Methods("POST")

	systemRoute := api.PathPrefix("/system").Subrouter()
	systemRoute.Use(sessionGate)
	systemRoute.HandleFunc("", systemHandlers.GetSystemMetrics).Methods("GET")

	// Catch-all so unknown /api paths get a JSON 404 (with rate-limit
	// headers) instead of the SPA fallback.
	api.PathPrefix("/").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlers.WriteError(w, http.StatusNotFound, "Not found")
	})

	router.PathPrefix("/").Handler(handlers.NewSPAHandler(cfg.Static.Dir))

	s.Handler = corsHandler(cfg.CORS, router)
	return s, nil
}

// corsHandler wraps the router so preflight responses work even for
// method mismatches gorilla/mux would 404. Origins outside the allowlist
// get no CORS headers at all; the browser enforces the rest.
func corsHandler(cfg config.CORSConfig, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")

		if origin != "" && originAllowed(cfg.AllowedOrigins, origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Methods", strings.Join(cfg.AllowedMethods, ", "))
			w.Header().Set("Access-Control-Allow-Headers", strings.Join(cfg.AllowedHeaders, ", "))
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func originAllowed(allowlist []string, origin string) bool {
	for _, allowed := range allowlist {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	return false
}
