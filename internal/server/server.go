// Package server implements the HTTP server, middleware, and request handlers of the lookup frontend.
package server

import (
	"html/template"
	"net/http"

	"github.com/woozymasta/laval/assets"
	"github.com/woozymasta/laval/internal/config"
	"github.com/woozymasta/laval/internal/query"
)

// New creates a Server dispatching lookups to manager. audit may be nil.
func New(manager query.NodeManager, audit Audit, cfg *config.Config) *Server {
	content, err := assets.ReadFile("index.html")
	if err != nil {
		panic(err)
	}

	historySize := cfg.Storage.HistorySize
	if historySize <= 0 {
		historySize = 50
	}

	return &Server{
		manager:        manager,
		audit:          audit,
		index:          template.Must(template.New("index").Parse(string(content))),
		authToken:      cfg.Server.AuthToken,
		managerURL:     cfg.Manager.URL,
		sessionIdle:    cfg.Server.SessionIdle,
		maxBody:        cfg.Server.MaxBodySize,
		trustProxy:     cfg.Server.TrustProxy,
		hardLimitCount: cfg.RateLimit.HardLimitCount,
		hardLimitWin:   cfg.RateLimit.HardLimitWin,
		historySize:    historySize,

		shutdown: make(chan struct{}),
	}
}

// Start launches the background session cleanup.
func (s *Server) Start() {
	s.wg.Add(1)
	go s.gcSessions()
}

// Stop signals background goroutines to exit and waits for them.
func (s *Server) Stop() {
	s.stopOnce.Do(func() { close(s.shutdown) })
	s.wg.Wait()
}

// Handler configures the HTTP routes and returns the main handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	lookup := s.RateLimitMiddleware(http.HandlerFunc(s.handleNodeConfig))
	mux.Handle("GET /api/node-config", lookup)
	mux.Handle("POST /api/node-config", lookup)
	mux.Handle("GET /api/version", http.HandlerFunc(s.handleVersion))
	mux.Handle("GET /healthz", http.HandlerFunc(s.handleHealth))

	// history is never served without a token
	if s.audit != nil && s.authToken != "" {
		mux.Handle("GET /api/lookups", AdminAuthMiddleware(s.authToken, http.HandlerFunc(s.handleLookups)))
	}

	fileServer := http.FileServer(assets.GetFileSystem())
	mux.Handle("GET /js/", fileServer)
	mux.Handle("GET /css/", fileServer)
	mux.Handle("GET /favicon.svg", fileServer)

	mux.Handle("GET /", http.HandlerFunc(s.handleIndex))

	return s.LoggingMiddleware(mux)
}
