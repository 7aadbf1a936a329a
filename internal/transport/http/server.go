package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"aurum/internal/audit"
	"aurum/internal/state"
	"aurum/internal/types"
)

// 中文说明：
// 只读状态面板：健康检查、当前仓位状态、最近一次信号、最近审计行。
// 不暴露任何写操作。

type Server struct {
	addr  string
	state *state.Store
	audit *audit.Store

	mu   sync.RWMutex
	last *types.SignalContract
}

func NewServer(addr string, st *state.Store, au *audit.Store) *Server {
	return &Server{addr: addr, state: st, audit: au}
}

// SetLastSignal caches the most recent evaluation for the API.
func (s *Server) SetLastSignal(c types.SignalContract) {
	s.mu.Lock()
	s.last = &c
	s.mu.Unlock()
}

func (s *Server) router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().UTC()})
	})
	r.GET("/api/state", func(c *gin.Context) {
		st, rec := s.state.Status(0, 0, 0, 0)
		c.JSON(http.StatusOK, gin.H{"status": st, "record": rec})
	})
	r.GET("/api/last", func(c *gin.Context) {
		s.mu.RLock()
		last := s.last
		s.mu.RUnlock()
		if last == nil {
			c.JSON(http.StatusOK, gin.H{"signal": nil})
			return
		}
		c.JSON(http.StatusOK, gin.H{"signal": last})
	})
	r.GET("/api/audit/recent", func(c *gin.Context) {
		if s.audit == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "audit store disabled"})
			return
		}
		rows, err := s.audit.Recent(50)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"rows": rows})
	})
	return r
}

// Run serves until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{Addr: s.addr, Handler: s.router()}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
