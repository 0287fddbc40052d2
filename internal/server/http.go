package server

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/skypro1111/feelcard-service/internal/card"
	"github.com/skypro1111/feelcard-service/internal/config"
	"github.com/skypro1111/feelcard-service/internal/export"
	"github.com/skypro1111/feelcard-service/internal/logger"
	"github.com/skypro1111/feelcard-service/internal/metrics"
	"github.com/skypro1111/feelcard-service/internal/pipeline"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Backends names the storage backends in use, for health reporting
type Backends struct {
	Artifacts  string
	Index      string
	ModelReady bool
}

// HTTPServer serves the card API, generated artifacts and monitoring endpoints
type HTTPServer struct {
	server   *http.Server
	engine   *gin.Engine
	logger   *logrus.Entry
	config   *config.Config
	pipeline *pipeline.Orchestrator
	metrics  *metrics.Metrics
	backends Backends
	addr     net.Addr

	startTime time.Time
}

// NewHTTPServer creates a new HTTP API server. gatherer backs /metrics and
// may be nil to use the default registry.
func NewHTTPServer(appConfig *config.Config, log *logrus.Logger, orch *pipeline.Orchestrator,
	m *metrics.Metrics, gatherer prometheus.Gatherer, backends Backends) *HTTPServer {

	gin.SetMode(gin.ReleaseMode)

	h := &HTTPServer{
		logger:    logger.Component(log, "http"),
		config:    appConfig,
		pipeline:  orch,
		metrics:   m,
		backends:  backends,
		startTime: time.Now(),
	}

	h.engine = gin.New()
	h.engine.Use(gin.Recovery(), h.withRequestLog(), h.withMetrics())
	h.setupRoutes(h.engine, gatherer)

	h.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", appConfig.HTTP.Address, appConfig.HTTP.Port),
		Handler:      h.engine,
		ReadTimeout:  appConfig.HTTP.GetReadTimeout(),
		WriteTimeout: appConfig.HTTP.GetWriteTimeout(),
		IdleTimeout:  60 * time.Second,
	}

	return h
}

// Handler exposes the router, for tests and embedding
func (h *HTTPServer) Handler() http.Handler {
	return h.engine
}

// setupRoutes configures HTTP API routes
func (h *HTTPServer) setupRoutes(r *gin.Engine, gatherer prometheus.Gatherer) {
	r.GET("/", h.handleRoot)
	r.GET("/health", h.handleHealth)
	r.GET("/config", h.handleConfig)
	r.GET("/stats", h.handleStats)

	api := r.Group("/api")
	{
		api.POST("/items", h.handleCreateItem)
		api.GET("/items", h.handleListItems)
		api.GET("/items/export.xlsx", h.handleExport)
	}

	// Generated artifacts when stored locally
	storage := h.config.Storage
	r.Static("/"+storage.Prefix, filepath.Join(storage.PublicDir, storage.Prefix))

	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
}

// withMetrics records request counts and latencies per route pattern
func (h *HTTPServer) withMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()

		c.Next()

		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		if endpoint == "/metrics" {
			return
		}

		h.metrics.RecordHTTPRequest(c.Request.Method, endpoint, strconv.Itoa(c.Writer.Status()), time.Since(startTime).Seconds())
	}
}

// withRequestLog tags each request with an id and logs its outcome
func (h *HTTPServer) withRequestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		reqID := logger.RequestID(c.Request)
		c.Header("X-Request-ID", reqID)

		entry := logger.WithRequest(h.logger, c.Request, reqID)
		c.Set("logger", entry)

		c.Next()

		entry = entry.WithFields(logrus.Fields{
			"status":   c.Writer.Status(),
			"duration": time.Since(startTime),
		})
		if c.Writer.Status() >= 500 {
			entry.Warn("Request failed")
			return
		}
		entry.Debug("Request served")
	}
}

func requestLogger(c *gin.Context) *logrus.Entry {
	if v, ok := c.Get("logger"); ok {
		if entry, ok := v.(*logrus.Entry); ok {
			return entry
		}
	}
	return logrus.NewEntry(logrus.StandardLogger())
}

// Start binds the listening socket and serves in the background. A bind
// failure is returned to the caller.
func (h *HTTPServer) Start() error {
	h.logger.WithField("address", h.server.Addr).Info("Starting HTTP API server")

	ln, err := net.Listen("tcp", h.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", h.server.Addr, err)
	}
	h.addr = ln.Addr()

	go func() {
		if err := h.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			h.logger.WithError(err).Error("HTTP server error")
		}
	}()

	return nil
}

// Addr is the bound address once Start succeeded
func (h *HTTPServer) Addr() net.Addr {
	return h.addr
}

// Stop gracefully stops the HTTP server
func (h *HTTPServer) Stop(ctx context.Context) error {
	h.logger.Info("Stopping HTTP API server...")

	return h.server.Shutdown(ctx)
}

// StatusFor maps a failure kind to the HTTP status reported to clients
func StatusFor(kind card.Kind) int {
	switch kind {
	case card.KindConfig:
		return http.StatusServiceUnavailable
	case card.KindTransport, card.KindContract:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (h *HTTPServer) fail(c *gin.Context, err error) {
	kind := card.KindOf(err)
	c.JSON(StatusFor(kind), gin.H{"error": err.Error(), "kind": kind})
}

// parseLimit reads the limit query parameter. Missing, non-numeric and
// non-positive values fall back to the configured default.
func (h *HTTPServer) parseLimit(c *gin.Context) int {
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil || limit <= 0 {
		return h.config.Index.DefaultLimit
	}
	return limit
}

// handleCreateItem implements POST /api/items
func (h *HTTPServer) handleCreateItem(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.config.HTTP.MaxUploadBytes)

	header, err := c.FormFile("audio")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "audio file is too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "audio file is required"})
		return
	}

	file, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "audio file is unreadable"})
		return
	}
	defer file.Close()

	captured, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "audio file is unreadable"})
		return
	}
	if len(captured) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "audio file is empty"})
		return
	}

	item, err := h.pipeline.Run(c.Request.Context(), captured)
	if err != nil {
		requestLogger(c).WithError(err).WithField("kind", card.KindOf(err)).Error("Item generation failed")
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusCreated, item)
}

// handleListItems implements GET /api/items
func (h *HTTPServer) handleListItems(c *gin.Context) {
	items, err := h.pipeline.List(c.Request.Context(), h.parseLimit(c))
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, items)
}

// handleExport implements GET /api/items/export.xlsx
func (h *HTTPServer) handleExport(c *gin.Context) {
	items, err := h.pipeline.List(c.Request.Context(), h.parseLimit(c))
	if err != nil {
		h.fail(c, err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteTimeline(&buf, items); err != nil {
		h.fail(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="timeline.xlsx"`)
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

// handleHealth implements the /health endpoint
func (h *HTTPServer) handleHealth(c *gin.Context) {
	modelStatus := "configured"
	if !h.backends.ModelReady {
		modelStatus = "missing_credential"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(h.startTime).String(),
		"service": gin.H{
			"name":    "feelcard-service",
			"version": "1.0.0",
		},
		"components": gin.H{
			"model":     gin.H{"status": modelStatus},
			"artifacts": gin.H{"backend": h.backends.Artifacts},
			"index":     gin.H{"backend": h.backends.Index},
		},
	})
}

// handleConfig implements the /config endpoint. Credentials are omitted.
func (h *HTTPServer) handleConfig(c *gin.Context) {
	cfg := h.config
	c.JSON(http.StatusOK, gin.H{
		"http": gin.H{
			"port":             cfg.HTTP.Port,
			"address":          cfg.HTTP.Address,
			"max_upload_bytes": cfg.HTTP.MaxUploadBytes,
		},
		"model": gin.H{
			"analysis_model":    cfg.Model.AnalysisModel,
			"image_model":       cfg.Model.ImageModel,
			"speech_model":      cfg.Model.SpeechModel,
			"voice":             cfg.Model.Voice,
			"capture_mime_type": cfg.Model.CaptureMIME,
		},
		"audio": gin.H{
			"sample_rate": cfg.Audio.SampleRate,
			"channels":    cfg.Audio.Channels,
			"bit_depth":   cfg.Audio.BitDepth,
		},
		"storage": gin.H{
			"backend":    h.backends.Artifacts,
			"prefix":     cfg.Storage.Prefix,
			"public_dir": cfg.Storage.PublicDir,
		},
		"index": gin.H{
			"backend":       h.backends.Index,
			"default_limit": cfg.Index.DefaultLimit,
		},
		"logging": gin.H{
			"level":  cfg.Logging.Level,
			"format": cfg.Logging.Format,
			"output": cfg.Logging.Output,
		},
	})
}

// handleStats implements the /stats endpoint
func (h *HTTPServer) handleStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"uptime":    time.Since(h.startTime).String(),
		"timestamp": time.Now().UTC(),
		"pipeline":  h.pipeline.GetStats(),
	})
}

// handleRoot implements the / endpoint with API documentation
func (h *HTTPServer) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "Feeling Card Service",
		"version": "1.0.0",
		"endpoints": gin.H{
			"GET /":                      "API documentation",
			"GET /health":                "Service health check",
			"GET /config":                "Get service configuration",
			"GET /stats":                 "Get pipeline statistics",
			"POST /api/items":            "Create a card from an uploaded utterance (multipart field: audio)",
			"GET /api/items":             "List the newest cards (?limit=20)",
			"GET /api/items/export.xlsx": "Download the timeline as a workbook (?limit=20)",
			"GET /{prefix}/{file}":       "Locally stored artifacts",
			"GET /metrics":               "Prometheus metrics",
		},
		"timestamp": time.Now().UTC(),
	})
}
