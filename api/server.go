// Package api exposes the rental ledger over HTTP with gin.
//
// Every route under the base path except login requires a bearer token
// issued by POST /auth/login. Admin and staff sessions may edit; tenant
// sessions are read-only and see only their own room.
package api

import (
	"log/slog"
	"net/http"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nhatro/rentledger"
	"github.com/nhatro/rentledger/assist"
	"github.com/nhatro/rentledger/observability"
)

// Server serves the HTTP API of one Engine.
type Server struct {
	engine    *rentledger.Engine
	tokens    *Tokens
	assistant *assist.Assistant
	logger    *slog.Logger
	gatherer  prometheus.Gatherer
	metrics   *httpMetrics
	basePath  string
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithAssistant enables the /assist endpoints.
func WithAssistant(a *assist.Assistant) Option {
	return func(s *Server) { s.assistant = a }
}

// WithGatherer sets the registry served on /metrics
// (default prometheus.DefaultGatherer).
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

// WithMetricFactory records request counts and latencies.
func WithMetricFactory(f observability.MetricFactory) Option {
	return func(s *Server) { s.metrics = newHTTPMetrics(f) }
}

// WithBasePath sets the prefix of the API routes (default "/api").
func WithBasePath(p string) Option {
	return func(s *Server) { s.basePath = "/" + strings.Trim(p, "/") }
}

// New creates a Server.
func New(engine *rentledger.Engine, tokens *Tokens, opts ...Option) *Server {
	s := &Server{
		engine:    engine,
		tokens:    tokens,
		assistant: assist.New(nil),
		logger:    slog.Default(),
		gatherer:  prometheus.DefaultGatherer,
		basePath:  "/api",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var setupBinding sync.Once

// Handler builds the HTTP handler.
func (s *Server) Handler() http.Handler {
	setupBinding.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			v.RegisterTagNameFunc(jsonFieldName)
		}
	})

	r := gin.New()
	r.Use(gin.Recovery(), s.logRequests())

	r.GET("/healthz", s.health)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))

	api := r.Group(s.basePath)
	api.POST("/auth/login", s.login)

	authed := api.Group("", s.authenticate())
	authed.GET("/me", s.me)
	authed.PUT("/me", requireEditor(), s.updateMe)

	authed.GET("/rooms", s.listRooms)
	authed.GET("/invoices", s.listInvoices)

	room := authed.Group("/rooms/:id", s.roomAccess())
	room.GET("", s.getRoom)
	room.GET("/records/:recordID/invoice", s.getInvoice)
	room.GET("/export.xlsx", s.exportRoom)

	edit := authed.Group("", requireEditor())
	edit.POST("/rooms", s.createRoom)
	edit.GET("/archive", s.listArchive)
	edit.GET("/notifications", s.notifications)

	roomEdit := room.Group("", requireEditor())
	roomEdit.PATCH("", s.updateRoom)
	roomEdit.DELETE("", s.deleteRoom)
	roomEdit.POST("/pin", s.pinRoom)
	roomEdit.POST("/move", s.moveRoom)
	roomEdit.PUT("/tenants", s.replaceTenants)
	roomEdit.PATCH("/tenants/:tenantID", s.updateTenant)
	roomEdit.POST("/records", s.appendRecord)
	roomEdit.PATCH("/records/:recordID", s.editRecord)
	roomEdit.DELETE("/records/:recordID", s.deleteRecord)
	roomEdit.POST("/records/:recordID/paid", s.markPaid)
	roomEdit.POST("/checkout", s.checkout)

	edit.POST("/assist/readings/speech", s.assistSpeech)
	edit.POST("/assist/readings/photo", s.assistPhoto)
	edit.POST("/assist/id-card", s.assistIDCard)

	admin := authed.Group("/users", requireAdmin())
	admin.GET("", s.listUsers)
	admin.POST("", s.createUser)
	admin.PATCH("/:userID", s.updateUser)
	admin.DELETE("/:userID", s.deleteUser)

	return r
}

func (s *Server) health(c *gin.Context) {
	if err := s.engine.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// logRequests logs one line per request and feeds the HTTP metrics.
func (s *Server) logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		elapsed := time.Since(start)
		s.metrics.observe(status, elapsed)

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		attrs := []any{
			"method", c.Request.Method,
			"route", route,
			"status", status,
			"duration_ms", elapsed.Milliseconds(),
		}
		if err := c.Errors.Last(); err != nil {
			attrs = append(attrs, "error", err.Err)
		}
		level := slog.LevelDebug
		if status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		s.logger.Log(c.Request.Context(), level, "http request", attrs...)
	}
}

// httpMetrics are low-cardinality request metrics.
type httpMetrics struct {
	requests observability.Counter
	failures observability.Counter
	duration observability.Histogram
}

func newHTTPMetrics(f observability.MetricFactory) *httpMetrics {
	return &httpMetrics{
		requests: f.Counter("rentledger.http.requests"),
		failures: f.Counter("rentledger.http.server_errors"),
		duration: f.Histogram("rentledger.http.duration_ms"),
	}
}

func (m *httpMetrics) observe(status int, d time.Duration) {
	if m == nil {
		return
	}
	m.requests.Inc()
	if status >= http.StatusInternalServerError {
		m.failures.Inc()
	}
	m.duration.Observe(float64(d.Milliseconds()))
}

func jsonFieldName(f reflect.StructField) string {
	for _, tag := range []string{"json", "form"} {
		name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
		if name == "-" {
			return ""
		}
		if name != "" {
			return name
		}
	}
	return f.Name
}
