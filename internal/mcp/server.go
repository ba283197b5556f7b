package mcp

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"github.com/takahara/redmine-issues-mcp/internal/middleware"
	"github.com/takahara/redmine-issues-mcp/internal/redmine"
)

const (
	ServerName    = "redmine-issues-mcp"
	ServerVersion = "1.0.0"
)

// Config holds MCP server configuration
type Config struct {
	RedmineURL    string
	RedmineAPIKey string
	Port          int
	SSEMode       bool
}

// Server runs the MCP tools over one of two transports: stdio with a
// process-wide API key, or SSE where every connection authenticates itself.
type Server struct {
	config Config
}

// NewServer creates a new MCP server
func NewServer(config Config) *Server {
	return &Server{config: config}
}

// Run starts the transport selected by the config and blocks until it exits.
func (s *Server) Run() error {
	if s.config.SSEMode {
		return s.runSSE()
	}
	return s.runStdio()
}

// newIssueServer assembles an MCP server with the issue tools registered
// against the given client.
func newIssueServer(client *redmine.Client) *server.MCPServer {
	srv := server.NewMCPServer(
		ServerName,
		ServerVersion,
		server.WithToolCapabilities(false),
	)
	NewToolHandlers(client).RegisterTools(srv)
	return srv
}

func (s *Server) runStdio() error {
	slog.Info("Starting MCP server in stdio mode",
		"redmine_url", s.config.RedmineURL,
	)

	client := redmine.NewClient(s.config.RedmineURL, s.config.RedmineAPIKey)
	return server.ServeStdio(newIssueServer(client))
}

func (s *Server) runSSE() error {
	addr := fmt.Sprintf(":%d", s.config.Port)

	slog.Info("Starting MCP server in SSE mode",
		"address", addr,
		"redmine_url", s.config.RedmineURL,
	)

	mux := http.NewServeMux()
	mux.Handle("/sse", &sseHandler{redmineURL: s.config.RedmineURL})
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	// Same limits as the REST surface, but per minute: SSE connections are
	// long-lived, so connection attempts arrive far less often than requests.
	rateLimiter := middleware.NewRateLimiter(100, time.Minute, 100)
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			rateLimiter.Cleanup(10 * time.Minute)
		}
	}()

	handler := middleware.SecurityHeaders(rateLimiter.Middleware(mux))
	return http.ListenAndServe(addr, handler)
}

// sseHandler authenticates each SSE connection from its own
// X-Redmine-API-Key header and serves it a dedicated MCP server, so a single
// process can host sessions for many Redmine users at once.
type sseHandler struct {
	redmineURL string
}

func (h *sseHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	apiKey := r.Header.Get("X-Redmine-API-Key")
	if apiKey == "" {
		http.Error(w, "Missing X-Redmine-API-Key header", http.StatusUnauthorized)
		return
	}

	client := redmine.NewClient(h.redmineURL, apiKey)
	sseServer := server.NewSSEServer(newIssueServer(client))
	sseServer.ServeHTTP(w, r)
}
