// README: API gateway; registers HTTP routes and delegates to module services.
package http

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"dispatch/internal/config"
	"dispatch/internal/http/handlers"
	"dispatch/internal/http/middleware"
	"dispatch/internal/metrics"
	"dispatch/internal/modules/call"
)

type ServerDeps struct {
	Call   *call.Service
	Live   handlers.LivePositions
	Logger zerolog.Logger
	Config config.HTTPConfig
}

type Server struct {
	call *call.Service
	live handlers.LivePositions
	log  zerolog.Logger
	cfg  config.HTTPConfig
}

func NewServer(deps ServerDeps) *Server {
	return &Server{
		call: deps.Call,
		live: deps.Live,
		log:  deps.Logger,
		cfg:  deps.Config,
	}
}

var validatorsOnce sync.Once

func (s *Server) Routes() *gin.Engine {
	validatorsOnce.Do(registerValidators)

	r := gin.New()
	r.Use(middleware.Recovery(s.log), middleware.Logging(s.log), middleware.Metrics())

	callHandler := handlers.NewCallHandler(s.call, s.live)
	driverHandler := handlers.NewDriverHandler(s.call)
	clientHandler := handlers.NewClientHandler(s.call)

	api := r.Group("/api")
	calls := api.Group("/calls")
	calls.POST("/emergency", callHandler.Create)
	calls.GET("/pending", callHandler.ListPending)
	calls.GET("/:id", callHandler.Get)
	calls.GET("/:id/events", callHandler.Events)
	calls.GET("/:id/live-position", callHandler.LivePosition)
	calls.PUT("/:id/accept", callHandler.Accept)
	calls.PUT("/:id/status", callHandler.SetStatus)
	calls.PUT("/:id/vehicle-position", callHandler.UpdateVehiclePosition)

	api.GET("/drivers/:id/active-call", driverHandler.ActiveCall)
	api.GET("/clients/:id/calls", clientHandler.History)
	api.GET("/clients/:id/active-calls", clientHandler.ActiveCalls)

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler()))
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.Routes(),
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
		IdleTimeout:  s.cfg.IdleTimeout,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Error().Err(err).Msg("graceful shutdown failed")
		}
	}()

	s.log.Info().Str("addr", s.cfg.Addr).Msg("http server listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
