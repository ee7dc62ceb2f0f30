// Package web provides the chant alignment web UI and JSON API server.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"os"
	"time"

	"github.com/chantlab/neuma/core/cache"
	"github.com/chantlab/neuma/internal/chantstore"
	"github.com/chantlab/neuma/internal/logging"
	"github.com/chantlab/neuma/internal/server"
)

//go:embed templates/*.html
var templatesFS embed.FS

//go:embed static/*
var staticFS embed.FS

// Templates is the parsed template set.
var Templates *template.Template

// serverVersion is reported by the health endpoint.
const serverVersion = "0.1.0"

// Config holds server configuration.
type Config struct {
	Port      int
	DBPath    string // optional chant database for lookup and search
	Workers   int    // worker count for batch jobs; 0 uses the core count
	Auth      AuthConfig
	RateLimit RateLimiterConfig
	TLS       TLSConfig
}

// TLSConfig holds TLS/HTTPS configuration.
type TLSConfig struct {
	Enabled  bool
	CertFile string
	KeyFile  string
}

// ServerConfig is the active server configuration.
var ServerConfig Config

var (
	corpusStore    *chantstore.Store
	alignmentCache *cache.AlignmentCache
	globalJobStore = NewJobStore()
	globalHub      *Hub
	startTime      = time.Now()
)

// Start starts the web server with the given configuration.
func Start(cfg Config) error {
	ServerConfig = cfg

	// Validate TLS configuration if enabled
	if cfg.TLS.Enabled {
		if cfg.TLS.CertFile == "" || cfg.TLS.KeyFile == "" {
			return fmt.Errorf("TLS enabled but cert or key file not specified")
		}
		if _, err := os.Stat(cfg.TLS.CertFile); err != nil {
			return fmt.Errorf("TLS cert file not found: %w", err)
		}
		if _, err := os.Stat(cfg.TLS.KeyFile); err != nil {
			return fmt.Errorf("TLS key file not found: %w", err)
		}
	}

	if err := ValidateAuthConfig(cfg.Auth); err != nil {
		return err
	}

	if cfg.DBPath != "" {
		store, err := chantstore.OpenReadOnly(cfg.DBPath)
		if err != nil {
			return fmt.Errorf("opening chant database: %w", err)
		}
		corpusStore = store
	} else {
		logging.Warn("no chant database configured",
			"note", "lookup and search endpoints are disabled")
	}

	alignmentCache = cache.NewDefaultAlignmentCache()

	globalHub = NewHub()
	go globalHub.Run()

	// Parse templates with helper functions
	var err error
	Templates, err = template.New("").Funcs(templateFuncs()).ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return fmt.Errorf("failed to parse templates: %w", err)
	}

	mux := setupRoutes()

	// Log server startup with appropriate protocol
	protocol := "http"
	if cfg.TLS.Enabled {
		protocol = "https"
		logging.Info("TLS enabled", "cert_file", cfg.TLS.CertFile)
	} else {
		logging.Warn("TLS disabled - using plain HTTP",
			"recommendation", "consider using TLS or reverse proxy for production")
	}
	logging.ServerStartup("web_ui", protocol, cfg.Port,
		"db", cfg.DBPath,
		"auth", cfg.Auth.Enabled)

	// Apply middleware chain: logging -> timing -> security headers -> rate limit -> auth
	var handler http.Handler = mux
	handler = AuthMiddleware(cfg.Auth, handler)
	if cfg.RateLimit.RequestsPerMinute > 0 {
		limiter := NewRateLimiter(cfg.RateLimit)
		handler = limiter.Middleware(handler)
	}
	handler = server.SecurityHeadersWithCSP(server.WebUICSPConfig(), handler)
	handler = server.TimingMiddleware(handler)
	handler = logging.CombinedMiddleware(handler)

	addr := fmt.Sprintf(":%d", cfg.Port)
	if cfg.TLS.Enabled {
		return http.ListenAndServeTLS(addr, cfg.TLS.CertFile, cfg.TLS.KeyFile, handler)
	}
	return http.ListenAndServe(addr, handler)
}

// cachedTemplateFuncs is initialized once at package load time.
var cachedTemplateFuncs = template.FuncMap{
	"add": func(a, b int) int {
		return a + b
	},
	"truncate": func(s string, n int) string {
		if len(s) <= n {
			return s
		}
		return s[:n] + "..."
	},
	// dict creates a map from key-value pairs for passing to templates.
	// Usage: {{template "name" dict "key1" val1 "key2" val2}}
	"dict": func(values ...any) map[string]any {
		if len(values)%2 != 0 {
			return nil
		}
		m := make(map[string]any, len(values)/2)
		for i := 0; i < len(values); i += 2 {
			key, ok := values[i].(string)
			if !ok {
				continue
			}
			m[key] = values[i+1]
		}
		return m
	},
}

// templateFuncs returns the cached template helper functions.
func templateFuncs() template.FuncMap {
	return cachedTemplateFuncs
}

// setupRoutes configures all HTTP routes.
func setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// Pages
	mux.HandleFunc("/", handleIndex)
	mux.HandleFunc("/batch", handleBatchPage)
	mux.HandleFunc("/chant/", handleChantPage)
	mux.HandleFunc("/static/", handleStatic)
	mux.HandleFunc("/health", handleHealth)

	// JSON API
	mux.HandleFunc("/api/align", handleAPIAlign)
	mux.HandleFunc("/api/syllabify", handleAPISyllabify)
	mux.HandleFunc("/api/chants", handleAPIChants)
	mux.HandleFunc("/api/chants/", handleAPIChantByRef)
	mux.HandleFunc("/api/batch", handleAPIBatch)
	mux.HandleFunc("/api/jobs", handleAPIJobs)
	mux.HandleFunc("/api/jobs/", handleAPIJobByID)

	// Progress updates
	mux.HandleFunc("/ws", handleWebSocket)

	return mux
}
