// Package server exposes the station over HTTP in serve mode: the last
// reading, cycle status, the monthly archive, prometheus metrics and a
// websocket feed of new readings.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Uranury/weather-metrics/report"
	"github.com/Uranury/weather-metrics/sensors"
	"github.com/Uranury/weather-metrics/station"
)

// MonthLayout is the format of the history month parameter.
const MonthLayout = "200601"

const shutdownTimeout = 5 * time.Second

// Source is the part of the station the API reads from.
type Source interface {
	Last() (sensors.Reading, bool)
	Status() station.Status
}

type Server struct {
	engine  *gin.Engine
	hub     *Hub
	source  Source
	archive *report.Archive
	logger  *zap.Logger
	now     func() time.Time
}

// New builds the router. archive may be nil, in which case history is
// reported as disabled.
func New(source Source, archive *report.Archive, logger *zap.Logger) *Server {
	s := &Server{
		engine:  gin.New(),
		hub:     NewHub(logger),
		source:  source,
		archive: archive,
		logger:  logger,
		now:     time.Now,
	}

	s.engine.Use(gin.Recovery(), s.accessLog)
	s.engine.GET("/healthz", s.healthz)
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	s.engine.GET("/ws", s.hub.handle)

	api := s.engine.Group("/api")
	api.GET("/reading", s.reading)
	api.GET("/status", s.status)
	api.GET("/history", s.history)

	return s
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// Hub returns the websocket hub so new readings can be pushed to it.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", zap.String("listen", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) accessLog(c *gin.Context) {
	start := time.Now()
	c.Next()
	s.logger.Debug("request",
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.Int("status", c.Writer.Status()),
		zap.Duration("took", time.Since(start)),
	)
}

func (s *Server) healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) reading(c *gin.Context) {
	r, ok := s.source.Last()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no valid reading yet"})
		return
	}
	c.JSON(http.StatusOK, r)
}

func (s *Server) status(c *gin.Context) {
	c.JSON(http.StatusOK, s.source.Status())
}

func (s *Server) history(c *gin.Context) {
	if s.archive == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "archive disabled"})
		return
	}

	month := s.now().UTC()
	if m := c.Query("month"); m != "" {
		t, err := time.Parse(MonthLayout, m)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "month must be YYYYMM"})
			return
		}
		month = t
	}

	readings, err := s.archive.Month(month)
	if err != nil {
		s.logger.Error("could not load archive", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load archive"})
		return
	}
	if readings == nil {
		readings = []sensors.Reading{}
	}
	c.JSON(http.StatusOK, gin.H{
		"month":    month.Format(MonthLayout),
		"readings": readings,
	})
}
