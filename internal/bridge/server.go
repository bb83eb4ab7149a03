// Package bridge exposes the command executor over HTTP for hosts that
// cannot spawn a process per command.
package bridge

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/PerkLab/SlicerMatlabBridge/internal/commander"
	"github.com/PerkLab/SlicerMatlabBridge/internal/config"
	"github.com/PerkLab/SlicerMatlabBridge/internal/observability"
	"github.com/PerkLab/SlicerMatlabBridge/internal/protocol/session"
)

// Executor is the part of commander.Executor the bridge drives.
type Executor interface {
	Execute(ctx context.Context, req commander.Request) commander.Result
	RequestExit(ctx context.Context, ep session.Endpoint) error
}

type Server struct {
	name     string
	addr     string
	appeared time.Time
	router   *gin.Engine

	// mu keeps one command in flight; the server handles a single client at a time.
	mu   sync.Mutex
	exec Executor
}

func New(cfg config.BridgeConfig, exec Executor) *Server {
	observability.RegisterMetrics()
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(observability.RequestLogger(log.Logger))
	r.Use(observability.RequestMetricsMiddleware())
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(cfg.CorsOrigins),
		AllowMethods: []string{"GET", "POST"},
		AllowHeaders: []string{"Origin", "Content-Type", RequestIDHeader},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	s := &Server{
		name:     cfg.Name,
		addr:     cfg.Addr,
		appeared: time.Now(),
		router:   r,
		exec:     exec,
	}
	s.registerRoutes(RateLimit(cfg.RateLimit, cfg.RateBurst))
	return s
}

func (s *Server) HTTPRouter() *gin.Engine {
	return s.router
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.addr).Str("name", s.name).Msg("bridge: listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info().Str("addr", s.addr).Msg("bridge: stopped")
	return nil
}

func normalizeOrigins(in []string) []string {
	out := make([]string, 0, len(in))
	for _, origin := range in {
		if v := strings.TrimSpace(origin); v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return []string{"http://localhost:3000"}
	}
	return out
}
