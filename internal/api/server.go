package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/takahara/redmine-issues-mcp/internal/middleware"
	"github.com/takahara/redmine-issues-mcp/internal/redmine"

	_ "github.com/takahara/redmine-issues-mcp/docs" // swagger docs
)

// Config holds API server configuration
type Config struct {
	RedmineURL string
	Port       int
}

// Server is the REST API server
type Server struct {
	config      Config
	router      *chi.Mux
	rateLimiter *middleware.RateLimiter
}

// NewServer creates a new API server
func NewServer(config Config) *Server {
	s := &Server{
		config:      config,
		router:      chi.NewRouter(),
		rateLimiter: middleware.NewRateLimiter(100, time.Second, 200), // 100 req/sec, burst 200
	}

	s.setupRoutes()

	// Start rate limiter cleanup goroutine
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			s.rateLimiter.Cleanup(10 * time.Minute)
		}
	}()

	return s
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	r := s.router

	// Middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(middleware.SecurityHeaders)
	r.Use(s.rateLimiter.Middleware)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	// Swagger UI - uses swaggo generated docs
	r.Get("/docs/*", httpSwagger.Handler(
		httpSwagger.URL("/docs/doc.json"),
	))

	// OpenAPI spec (static inline)
	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write([]byte(openAPISpec))
	})

	// API routes with authentication middleware
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.Get("/issues", s.handleListIssues)
		r.Get("/issues/export", s.handleExportIssues)
		r.Get("/issues/{id}", s.handleGetIssue)
		r.Post("/issues", s.handleCreateIssue)
		r.Patch("/issues/{id}", s.handleUpdateIssue)
	})
}

// authMiddleware extracts the Redmine API key and creates a client
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apiKey := r.Header.Get("X-Redmine-API-Key")
		if apiKey == "" {
			http.Error(w, `{"error": "Missing X-Redmine-API-Key header"}`, http.StatusUnauthorized)
			return
		}

		// Create client and store in context
		client := redmine.NewClient(s.config.RedmineURL, apiKey)
		ctx := withClient(r.Context(), client)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Run starts the API server
func (s *Server) Run() error {
	addr := fmt.Sprintf(":%d", s.config.Port)

	slog.Info("Starting REST API server",
		"address", addr,
		"redmine_url", s.config.RedmineURL,
		"docs", fmt.Sprintf("http://localhost:%d/docs/index.html", s.config.Port),
	)

	return http.ListenAndServe(addr, s.router)
}

const openAPISpec = `openapi: 3.0.3
info:
  title: Redmine Issues API
  description: Issue read/write gateway rendering agent-friendly XML
  version: 1.0.0
servers:
  - url: /api/v1
security:
  - ApiKeyAuth: []
components:
  securitySchemes:
    ApiKeyAuth:
      type: apiKey
      in: header
      name: X-Redmine-API-Key
  schemas:
    Error:
      type: object
      properties:
        error:
          type: string
paths:
  /issues:
    get:
      summary: List issues as XML
      tags: [Issues]
      parameters:
        - name: project_id
          in: query
          schema:
            type: string
        - name: status_id
          in: query
          schema:
            type: string
          description: Numeric ID or one of open, closed, *
        - name: assigned_to_id
          in: query
          schema:
            type: string
          description: Numeric ID or me
        - name: subject_filter
          in: query
          schema:
            type: string
          description: Free text the subject must contain
        - name: detail_level
          in: query
          schema:
            type: string
            enum: [full, brief]
        - name: brief_fields
          in: query
          schema:
            type: string
          description: JSON object selecting brief-mode field groups
        - name: limit
          in: query
          schema:
            type: integer
            default: 25
        - name: offset
          in: query
          schema:
            type: integer
      responses:
        '200':
          description: Issues rendered as XML
          content:
            application/xml: {}
    post:
      summary: Create an issue
      tags: [Issues]
      requestBody:
        content:
          application/json:
            schema:
              type: object
              required: [project_id, subject]
              properties:
                project_id:
                  type: integer
                subject:
                  type: string
                description:
                  type: string
                tracker_id:
                  type: integer
                priority_id:
                  type: integer
                assigned_to_id:
                  type: integer
                custom_fields:
                  type: object
      responses:
        '201':
          description: Created issue rendered as XML
          content:
            application/xml: {}
  /issues/{id}:
    get:
      summary: Get one issue as XML
      tags: [Issues]
      parameters:
        - name: id
          in: path
          required: true
          schema:
            type: integer
        - name: include
          in: query
          schema:
            type: string
          description: Associations to expand (default journals,relations,attachments)
        - name: detail_level
          in: query
          schema:
            type: string
            enum: [full, brief]
        - name: brief_fields
          in: query
          schema:
            type: string
      responses:
        '200':
          description: Issue rendered as XML
          content:
            application/xml: {}
    patch:
      summary: Update an issue
      tags: [Issues]
      parameters:
        - name: id
          in: path
          required: true
          schema:
            type: integer
      requestBody:
        content:
          application/json:
            schema:
              type: object
              properties:
                subject:
                  type: string
                status_id:
                  type: integer
                notes:
                  type: string
                custom_fields:
                  type: object
      responses:
        '204':
          description: Issue updated
  /issues/export:
    get:
      summary: Export issues as an XLSX workbook
      tags: [Issues]
      parameters:
        - name: project_id
          in: query
          schema:
            type: string
        - name: status_id
          in: query
          schema:
            type: string
      responses:
        '200':
          description: XLSX workbook
          content:
            application/vnd.openxmlformats-officedocument.spreadsheetml.sheet: {}
`
