// Package server exposes the monitor's read-only HTTP surface.
package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/deusflow/sitrep/internal/alert"
	"github.com/deusflow/sitrep/internal/corpus"
	"github.com/deusflow/sitrep/internal/escalation"
	"github.com/deusflow/sitrep/internal/logger"
	"github.com/deusflow/sitrep/internal/narrative"
	"github.com/deusflow/sitrep/internal/news"
	"github.com/deusflow/sitrep/internal/strike"
)

const (
	defaultReadTimeout  = 15 * time.Second
	defaultWriteTimeout = 30 * time.Second
	defaultIdleTimeout  = 120 * time.Second

	defaultNewsLimit  = 100
	defaultBriefLimit = 5
	briefSentences    = 2
)

// Provider is the pipeline state served by the API.
type Provider interface {
	Snapshot() *corpus.Snapshot
	Escalation() escalation.Score
	Clusters() []narrative.Cluster
	Strikes() []strike.Record
	Alerts() alert.State
	Sources() []news.Source
}

// Health is the process health and metrics source.
type Health interface {
	Healthy() bool
	GetStats() map[string]interface{}
	Handler() http.Handler
}

// Server holds the gin engine.
type Server struct {
	provider Provider
	health   Health
	log      logger.Logger
	engine   *gin.Engine
}

// New builds the router.
func New(p Provider, h Health, log logger.Logger, debug bool) *Server {
	if log == nil {
		log = logger.NewNop()
	}
	if debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{provider: p, health: h, log: log, engine: gin.New()}
	s.engine.Use(gin.Recovery(), loggerMiddleware(log))
	s.routes()
	return s
}

// Handler returns the router as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// HTTPServer wraps the router in an http.Server listening on :port.
func (s *Server) HTTPServer(port string) *http.Server {
	return &http.Server{
		Addr:         ":" + port,
		Handler:      s.engine,
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
		IdleTimeout:  defaultIdleTimeout,
	}
}

func (s *Server) routes() {
	s.engine.GET("/health", s.getHealth)
	s.engine.GET("/metrics", gin.WrapH(s.health.Handler()))

	v1 := s.engine.Group("/api/v1")
	v1.GET("/news", s.getNews)
	v1.GET("/escalation", s.getEscalation)
	v1.GET("/clusters", s.getClusters)
	v1.GET("/strikes", s.getStrikes)
	v1.GET("/alerts", s.getAlerts)
	v1.GET("/sources", s.getSources)
	v1.GET("/brief", s.getBrief)
}

func (s *Server) getHealth(c *gin.Context) {
	stats := s.health.GetStats()
	code, status := http.StatusOK, "ok"
	if !s.health.Healthy() {
		code, status = http.StatusServiceUnavailable, "error"
	}
	c.JSON(code, gin.H{
		"status":     status,
		"last_run":   stats["last_run_time"],
		"last_error": stats["last_error"],
		"stats":      stats,
	})
}

func (s *Server) getNews(c *gin.Context) {
	limit, ok := queryLimit(c, defaultNewsLimit)
	if !ok {
		return
	}

	snap := s.provider.Snapshot()
	items := snap.Recent(snap.Len())
	if key := c.Query("source"); key != "" {
		if !s.knownSource(key) {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown source: " + key})
			return
		}
		items = snap.BySource(key)
	}
	total := len(items)
	if len(items) > limit {
		items = items[:limit]
	}
	if items == nil {
		items = []news.Item{}
	}

	c.JSON(http.StatusOK, gin.H{
		"cycle":        snap.Cycle,
		"completed_at": snap.CompletedAt,
		"total":        total,
		"count":        len(items),
		"items":        items,
	})
}

func (s *Server) getEscalation(c *gin.Context) {
	snap := s.provider.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"cycle":        snap.Cycle,
		"completed_at": snap.CompletedAt,
		"score":        s.provider.Escalation(),
	})
}

func (s *Server) getClusters(c *gin.Context) {
	clusters := s.provider.Clusters()
	if clusters == nil {
		clusters = []narrative.Cluster{}
	}
	c.JSON(http.StatusOK, gin.H{"clusters": clusters})
}

func (s *Server) getStrikes(c *gin.Context) {
	records := s.provider.Strikes()
	if records == nil {
		records = []strike.Record{}
	}
	c.JSON(http.StatusOK, gin.H{"count": len(records), "strikes": records})
}

func (s *Server) getAlerts(c *gin.Context) {
	st := s.provider.Alerts()
	if st.Log == nil {
		st.Log = []alert.Event{}
	}
	if st.ActivePlaces == nil {
		st.ActivePlaces = []string{}
	}
	c.JSON(http.StatusOK, st)
}

type sourceStatus struct {
	news.Source
	Accepted   int    `json:"accepted"`
	Error      string `json:"error,omitempty"`
	DurationMS int64  `json:"duration_ms"`
	Reported   bool   `json:"reported"`
}

func (s *Server) getSources(c *gin.Context) {
	reports := make(map[string]corpus.SourceReport)
	for _, r := range s.provider.Snapshot().Reports {
		reports[r.Key] = r
	}

	sources := s.provider.Sources()
	out := make([]sourceStatus, 0, len(sources))
	for _, src := range sources {
		st := sourceStatus{Source: src}
		if r, ok := reports[src.Key]; ok {
			st.Reported = true
			st.Accepted = r.Accepted
			st.Error = r.Error()
			st.DurationMS = r.Duration.Milliseconds()
		}
		out = append(out, st)
	}
	c.JSON(http.StatusOK, gin.H{"sources": out})
}

func (s *Server) getBrief(c *gin.Context) {
	limit, ok := queryLimit(c, defaultBriefLimit)
	if !ok {
		return
	}
	snap := s.provider.Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"cycle": snap.Cycle,
		"brief": news.Brief(snap.Recent(limit), limit, briefSentences),
	})
}

func (s *Server) knownSource(key string) bool {
	for _, src := range s.provider.Sources() {
		if src.Key == key {
			return true
		}
	}
	return false
}

// queryLimit reads ?limit=, writing a 400 and returning false when it is not a positive integer.
func queryLimit(c *gin.Context, def int) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
		return 0, false
	}
	return n, true
}

func loggerMiddleware(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []logger.Field{
			logger.String("method", c.Request.Method),
			logger.String("path", c.Request.URL.Path),
			logger.Int("status", c.Writer.Status()),
			logger.Duration("duration", time.Since(start)),
			logger.String("client_ip", c.ClientIP()),
		}
		if q := c.Request.URL.RawQuery; q != "" {
			fields = append(fields, logger.String("query", q))
		}
		if len(c.Errors) > 0 {
			log.Error("HTTP request with errors", append(fields, logger.String("errors", c.Errors.String()))...)
			return
		}
		log.Debug("HTTP request", fields...)
	}
}
