// Package server serves the answer engine over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"github.com/jjgarcianorway/anna-assistant-sub000/pkg/engine"
	"github.com/jjgarcianorway/anna-assistant-sub000/pkg/probe"
)

// Asker answers questions. *engine.AnswerEngine satisfies it.
type Asker interface {
	Process(ctx context.Context, question string) (*engine.FinalAnswer, error)
}

// AskRequest is the body of POST /v1/ask.
type AskRequest struct {
	// Question may be blank; the engine refuses it like any unsupported
	// question.
	Question string `json:"question"`
	// Debug includes the per-iteration trace when the engine captures one.
	Debug bool `json:"debug,omitempty"`
}

// ProbeInfo is one entry of GET /v1/probes.
type ProbeInfo struct {
	ID      string `json:"id"`
	Label   string `json:"label"`
	Command string `json:"command"`
	Timeout string `json:"timeout"`
}

// Server wires routes to an engine.
type Server struct {
	asker   Asker
	catalog *probe.Catalog
	logger  *zap.Logger
	router  *gin.Engine
}

// New builds the router. A nil logger discards logs.
func New(asker Asker, catalog *probe.Catalog, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{asker: asker, catalog: catalog, logger: logger}

	r := gin.New()
	r.Use(gin.Recovery(), otelgin.Middleware("annad"), s.accessLog())
	r.GET("/healthz", HealthCheck)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/v1")
	{
		v1.POST("/ask", s.HandleAsk)
		v1.GET("/probes", s.HandleProbes)
	}
	s.router = r
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("addr", addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		<-errc
		return nil
	}
}

// HealthCheck reports liveness.
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// HandleAsk answers one question. Refusals, including blank questions, are
// 200 responses; engine errors map to 504 on timeout and 502 otherwise.
func (s *Server) HandleAsk(c *gin.Context) {
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "request body must be a JSON object"})
		return
	}

	ans, err := s.asker.Process(c.Request.Context(), req.Question)
	if err != nil {
		status := http.StatusBadGateway
		switch {
		case errors.Is(err, engine.ErrTimeout):
			status = http.StatusGatewayTimeout
		case errors.Is(err, context.Canceled):
			status = 499
		}
		s.logger.Error("ask failed", zap.Error(err))
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	if !req.Debug {
		ans.Debug = nil
	}
	c.JSON(http.StatusOK, ans)
}

// HandleProbes lists the catalog.
func (s *Server) HandleProbes(c *gin.Context) {
	out := make([]ProbeInfo, 0, s.catalog.Len())
	for _, p := range s.catalog.Probes() {
		out = append(out, ProbeInfo{
			ID:      p.ID,
			Label:   p.Label,
			Command: p.CommandText(),
			Timeout: p.TimeoutDuration().String(),
		})
	}
	c.JSON(http.StatusOK, gin.H{"probes": out})
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}
