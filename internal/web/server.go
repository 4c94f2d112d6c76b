// Package web exposes the installer's status surface over HTTP: health,
// installed bundles, journaled cycles and prometheus metrics.
package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/roach88/hotswap/internal/bundle"
	"github.com/roach88/hotswap/internal/store"
)

// NewRouter builds the status routes. journal and registry may be nil;
// the corresponding routes are simply not registered.
func NewRouter(rt bundle.Runtime, journal *store.Store, registry *prometheus.Registry) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "UP"})
	})

	r.GET("/modules", func(c *gin.Context) {
		type moduleView struct {
			ID      string `json:"id"`
			State   string `json:"state"`
			Version string `json:"version"`
		}
		out := []moduleView{}
		for _, m := range rt.List() {
			out = append(out, moduleView{
				ID:      m.ID().String(),
				State:   m.State().String(),
				Version: m.Version(),
			})
		}
		c.JSON(http.StatusOK, out)
	})

	if journal != nil {
		r.GET("/cycles", func(c *gin.Context) {
			cycles, err := journal.ListCycles(c.Request.Context())
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			if cycles == nil {
				cycles = []store.CycleRecord{}
			}
			c.JSON(http.StatusOK, cycles)
		})
		r.GET("/cycles/:id/tasks", func(c *gin.Context) {
			execs, err := journal.ListExecutions(c.Request.Context(), c.Param("id"))
			if err != nil {
				c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
				return
			}
			if execs == nil {
				execs = []store.TaskExecution{}
			}
			c.JSON(http.StatusOK, execs)
		})
	}

	if registry != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	}

	return r
}

// Server runs the status surface.
type Server struct {
	srv *http.Server
	log *slog.Logger
}

// NewServer wraps the router in an HTTP server on addr.
func NewServer(addr string, handler http.Handler, log *slog.Logger) *Server {
	return &Server{
		srv: &http.Server{
			Addr:         addr,
			Handler:      handler,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		log: log,
	}
}

// Start serves in a background goroutine.
func (s *Server) Start() {
	go func() {
		s.log.Info("status server starting", "addr", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("status server error", "error", err)
		}
	}()
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("status server shutdown: %w", err)
	}
	return nil
}
