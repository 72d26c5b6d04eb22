package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"volsignal/internal/alert"
	"volsignal/internal/config"
	"volsignal/internal/engine"
)

// Server exposes health, metrics and a manual trigger over HTTP.
type Server struct {
	cfg     *config.Config
	engine  *engine.Engine
	tracker *alert.Tracker
	loc     *time.Location
	echo    *echo.Echo
	now     func() time.Time
}

func NewServer(cfg *config.Config, eng *engine.Engine, tracker *alert.Tracker, loc *time.Location) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &Server{
		cfg:     cfg,
		engine:  eng,
		tracker: tracker,
		loc:     loc,
		echo:    e,
		now:     time.Now,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.echo.GET("/healthz", s.health)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	s.echo.POST("/trigger", s.trigger)
}

// Start blocks serving HTTP until the listener fails or Shutdown runs.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.cfg.Server.Port)
	log.Info().Str("addr", addr).Msg("web server starting")
	if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
