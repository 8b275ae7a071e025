package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	apiv1 "github.com/beam-cloud/metacatalog/pkg/api/v1"
	"github.com/beam-cloud/metacatalog/pkg/common"
	"github.com/beam-cloud/metacatalog/pkg/types"
)

// Gateway serves the admin API and, when enabled, drains the indexing queue.
type Gateway struct {
	Config     types.AppConfig
	Services   *Services
	httpServer *http.Server
	echo       *echo.Echo
	ctx        context.Context
	cancelFunc context.CancelFunc
	background *errgroup.Group

	baseRouteGroup *echo.Group
	rootRouteGroup *echo.Group
}

// SetupLogging applies the logging options of config to the global logger.
func SetupLogging(config types.AppConfig) {
	level := zerolog.InfoLevel
	if config.DebugMode || config.PrettyLogs {
		level = zerolog.DebugLevel
	}
	log.Logger = log.Logger.Level(level)
	if config.PrettyLogs {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

func NewGateway() (*Gateway, error) {
	configManager, err := common.NewConfigManager[types.AppConfig]()
	if err != nil {
		return nil, err
	}
	return NewGatewayWithConfig(configManager.GetConfig())
}

func NewGatewayWithConfig(config types.AppConfig) (*Gateway, error) {
	SetupLogging(config)

	ctx, cancel := context.WithCancel(context.Background())
	services, err := NewServices(ctx, config, "MetacatalogGateway")
	if err != nil {
		cancel()
		return nil, err
	}

	return &Gateway{
		Config:     config,
		Services:   services,
		ctx:        ctx,
		cancelFunc: cancel,
	}, nil
}

func (g *Gateway) initHTTP() error {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Pre(middleware.RemoveTrailingSlash())

	if g.Config.Admin.EnablePrettyLog {
		e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
			Format: "${time_rfc3339} ${method} ${uri} ${status} ${latency_human}\n",
		}))
	}

	e.Use(middleware.Recover())

	g.echo = e
	g.httpServer = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", g.Config.Admin.Host, g.Config.Admin.Port),
		Handler: e,
	}

	g.baseRouteGroup = e.Group(apiv1.HttpServerBaseRoute)
	g.rootRouteGroup = e.Group(apiv1.HttpServerRootRoute)

	apiv1.NewHealthGroup(g.baseRouteGroup.Group("/health"), g.Services.RedisClient, g.Services.Objects)
	g.rootRouteGroup.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(g.Services.Registry, promhttp.HandlerOpts{})))

	return nil
}

func (g *Gateway) registerServices() error {
	metadataGroup := g.baseRouteGroup.Group("/metadata")
	metadataGroup.Use(apiv1.NewAdminAuthMiddleware(g.Config.Admin.AuthToken))
	apiv1.NewMetadataGroup(metadataGroup, apiv1.MetadataConfig{
		Source:  g.Services.Source,
		Objects: g.Services.Objects,
		Queue:   g.Services.Queue,
		Locker:  g.Services,
		Metrics: g.Services.Metrics,
	})
	log.Info().Msg("metadata API registered at /api/v1/metadata")

	if g.Config.Admin.AuthToken == "" {
		log.Warn().Msg("admin token not set, metadata API is unauthenticated")
	}

	return nil
}

// StartAsync starts the HTTP server and the queue processor without blocking.
func (g *Gateway) StartAsync() error {
	if err := g.initHTTP(); err != nil {
		return fmt.Errorf("failed to initialize http server: %w", err)
	}

	if err := g.registerServices(); err != nil {
		return fmt.Errorf("failed to register services: %w", err)
	}

	lis, err := net.Listen("tcp", g.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on http: %w", err)
	}

	g.background, _ = errgroup.WithContext(g.ctx)
	g.background.Go(func() error {
		if err := g.httpServer.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("http server error")
			return err
		}
		return nil
	})

	if g.Config.Queue.Process {
		runner := g.Services.Runner()
		g.background.Go(func() error {
			return runner.Run(g.ctx, g.Config.Queue.Interval, g.Config.Queue.Batch)
		})
	}

	log.Info().
		Str("host", g.Config.Admin.Host).
		Int("port", g.Config.Admin.Port).
		Bool("processor", g.Config.Queue.Process).
		Msg("gateway http server running")

	return nil
}

// Shutdown gracefully shuts down the gateway (exported for external use)
func (g *Gateway) Shutdown() {
	g.shutdown()
}

func (g *Gateway) Start() error {
	if err := g.StartAsync(); err != nil {
		return err
	}

	terminationSignal := make(chan os.Signal, 1)
	signal.Notify(terminationSignal, os.Interrupt, syscall.SIGTERM)
	<-terminationSignal

	log.Info().Msg("termination signal received. shutting down...")
	g.shutdown()

	return nil
}

func (g *Gateway) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), g.Config.Admin.ShutdownTimeout)
	defer cancel()

	if g.httpServer != nil {
		if err := g.httpServer.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("failed to shutdown http server")
		}
	}

	g.cancelFunc()

	if g.background != nil {
		if err := g.background.Wait(); err != nil {
			log.Error().Err(err).Msg("background task failed")
		}
	}

	if err := g.Services.Close(); err != nil {
		log.Error().Err(err).Msg("failed to close services")
	}

	log.Info().Msg("gateway stopped")
}

// Echo returns the HTTP router
func (g *Gateway) Echo() *echo.Echo {
	return g.echo
}
