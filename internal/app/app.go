package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.uber.org/zap"

	"github.com/Nazarious-ucu/weather-collector/internal/config"
	"github.com/Nazarious-ucu/weather-collector/internal/handlers/health"
	"github.com/Nazarious-ucu/weather-collector/internal/locations"
	"github.com/Nazarious-ucu/weather-collector/internal/metrics"
	"github.com/Nazarious-ucu/weather-collector/internal/models"
	"github.com/Nazarious-ucu/weather-collector/internal/publisher"
	"github.com/Nazarious-ucu/weather-collector/internal/repository"
	"github.com/Nazarious-ucu/weather-collector/internal/scheduler"
	"github.com/Nazarious-ucu/weather-collector/internal/services/cache"
	"github.com/Nazarious-ucu/weather-collector/internal/services/geocoding"
	"github.com/Nazarious-ucu/weather-collector/internal/services/httplog"
	"github.com/Nazarious-ucu/weather-collector/internal/services/weather"
	"github.com/Nazarious-ucu/weather-collector/pkg/logger"
)

const (
	timeoutDuration = 5 * time.Second
	breakerName     = "OpenMeteo"
)

type geocoder interface {
	Reverse(ctx context.Context, latitude, longitude float64) (models.Address, error)
}

type ServiceContainer struct {
	Registry  *locations.Registry
	Publisher *publisher.Channel
	Scheduler *scheduler.Scheduler
	Cycles    *repository.CycleRepository

	Router      *gin.Engine
	Srv         *http.Server
	Db          *sql.DB
	RedisClient *redis.Client
	fileLogger  *zap.Logger
}

type App struct {
	cfg config.Config
	l   zerolog.Logger
	m   *metrics.Metrics
}

func New(cfg config.Config, logger zerolog.Logger, m *metrics.Metrics) *App {
	return &App{cfg: cfg, l: logger, m: m}
}

// Start wires the collector and blocks until ctx is cancelled.
func (a *App) Start(ctx context.Context) error {
	srvContainer, err := a.init()
	if err != nil {
		return err
	}
	defer a.Stop(srvContainer)

	if srvContainer.Srv != nil {
		go func() {
			a.l.Info().Str("addr", a.cfg.ServerAddress()).Msg("ops HTTP server listening")
			if err := srvContainer.Srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.l.Error().Err(err).Msg("ops HTTP server error")
			}
		}()
	}

	a.l.Info().
		Str("exchange", a.cfg.RabbitMQ.Exchange).
		Str("routing_key", a.cfg.RabbitMQ.RoutingKey).
		Msg("connecting to RabbitMQ")
	if err := srvContainer.Publisher.Connect(ctx); err != nil {
		if ctx.Err() != nil {
			a.l.Info().Msg("shutdown requested before broker became available")
			return nil
		}
		return err
	}

	return srvContainer.Scheduler.Run(ctx)
}

func (a *App) init() (c ServiceContainer, err error) {
	defer func() {
		if err != nil {
			a.release(c)
		}
	}()

	fileLogger, err := logger.NewFileLogger(a.cfg.HTTPLogsPath)
	if err != nil {
		return c, fmt.Errorf("http file logger: %w", err)
	}
	c.fileLogger = fileLogger
	httpClient := &http.Client{Transport: httplog.NewRoundTripper(fileLogger)}

	registry, err := a.newRegistry()
	if err != nil {
		return c, err
	}
	c.Registry = registry

	geo, redisClient := a.newGeocoder(httpClient)
	c.RedisClient = redisClient

	openMeteo := weather.NewClientOpenMeteo(weather.OpenMeteoConfig{
		APIURL:   a.cfg.Weather.APIURL,
		Timezone: a.cfg.Weather.Timezone,
		Timeout:  time.Duration(a.cfg.Weather.Timeout) * time.Second,
	}, httpClient, geo, a.l)
	source := weather.NewBreakerSource(breakerName, weather.BreakerConfig{
		TimeInterval: time.Duration(a.cfg.Breaker.TimeInterval) * time.Second,
		TimeTimeOut:  time.Duration(a.cfg.Breaker.TimeTimeOut) * time.Second,
		RepeatNumber: a.cfg.Breaker.RepeatNumber,
	}, openMeteo)

	c.Publisher = publisher.NewChannel(
		publisher.NewRabbitDialer(a.cfg.RabbitMQ.Address(), a.cfg.RabbitMQ.Exchange, a.l),
		publisher.Options{
			Exchange:    a.cfg.RabbitMQ.Exchange,
			RoutingKey:  a.cfg.RabbitMQ.RoutingKey,
			RetryDelay:  a.cfg.RabbitMQ.ConnectRetryDelay(),
			MaxAttempts: a.cfg.RabbitMQ.MaxAttempts,
		},
		a.l,
		a.m,
	)

	c.Scheduler = scheduler.New(
		registry,
		source,
		c.Publisher,
		scheduler.NewPacer(a.cfg.Collector.Delay()),
		a.cfg.Collector.Interval(),
		a.l,
		a.m,
	)

	if a.cfg.DB.Source != "" {
		db, err := repository.Open(a.cfg.DB.Source)
		if err != nil {
			return c, fmt.Errorf("open cycle history: %w", err)
		}
		c.Db = db
		if err := repository.Migrate(db, a.cfg.DB.Dialect); err != nil {
			return c, fmt.Errorf("migrate cycle history: %w", err)
		}
		c.Cycles = repository.NewCycleRepository(db)
		c.Scheduler.WithRecorder(c.Cycles)
	}

	if a.cfg.Server.Enabled {
		c.Router, c.Srv = a.newOpsServer(c)
	}

	return c, nil
}

func (a *App) newRegistry() (*locations.Registry, error) {
	if a.cfg.Collector.MultiLocation {
		return locations.NewMulti(locations.SaoPaulo())
	}
	return locations.NewSingle(models.Location{
		Name:      a.cfg.Collector.LocationName,
		Latitude:  a.cfg.Collector.Latitude,
		Longitude: a.cfg.Collector.Longitude,
	})
}

func (a *App) newGeocoder(httpClient *http.Client) (geocoder, *redis.Client) {
	nominatim := geocoding.NewClientNominatim(geocoding.NominatimConfig{
		URL:       a.cfg.Geocoding.URL,
		Language:  a.cfg.Geocoding.Language,
		UserAgent: a.cfg.Geocoding.UserAgent,
		Timeout:   time.Duration(a.cfg.Geocoding.Timeout) * time.Second,
	}, httpClient, a.l)
	nominatim.OnLookup(func(err error) {
		a.m.GeocodeTotal.WithLabelValues(metrics.Result(err)).Inc()
	})

	if !a.cfg.Redis.Enabled {
		return nominatim, nil
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: a.cfg.RedisAddress(),
		DB:   a.cfg.Redis.DbType,
	})
	addrCache := cache.NewMetricsDecorator[models.Address](
		cache.NewRedisClient[models.Address](redisClient, a.l, time.Duration(a.cfg.Redis.LiveTime)*time.Hour),
		a.m,
	)
	a.l.Info().Str("addr", a.cfg.RedisAddress()).Msg("geocode cache enabled")

	return geocoding.NewCachedGeocoder(nominatim, addrCache, a.l), redisClient
}

func (a *App) newOpsServer(c ServiceContainer) (*gin.Engine, *http.Server) {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	h := health.NewHandler(c.Scheduler, c.Publisher, nil)
	if c.Cycles != nil {
		h.History = c.Cycles
	}

	router.GET("/health", h.Health)
	router.GET("/cycles", h.Cycles)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(a.m.Registry, promhttp.HandlerOpts{})))

	srv := &http.Server{
		Addr:        a.cfg.ServerAddress(),
		Handler:     router,
		ReadTimeout: time.Duration(a.cfg.Server.ReadTimeout) * time.Second,
	}
	return router, srv
}

// Stop releases everything Start acquired. The publisher is closed by the
// scheduler; closing it again here covers an aborted Connect.
func (a *App) Stop(c ServiceContainer) {
	a.l.Info().Msg("Stopping application")

	if err := c.Publisher.Close(); err != nil {
		a.l.Error().Err(err).Msg("publisher close error")
	}

	if c.Srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), timeoutDuration)
		defer cancel()
		if err := c.Srv.Shutdown(ctx); err != nil {
			a.l.Error().Err(err).Msg("ops HTTP shutdown error")
		} else {
			a.l.Info().Msg("ops HTTP server stopped")
		}
	}

	a.release(c)

	a.l.Info().Msg("Shutdown complete")
}

// release closes the clients init opened, whether or not init completed.
func (a *App) release(c ServiceContainer) {
	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			a.l.Error().Err(err).Msg("redis close error")
		}
	}

	if c.Db != nil {
		if err := c.Db.Close(); err != nil {
			a.l.Error().Err(err).Msg("DB close error")
		} else {
			a.l.Info().Msg("Database closed")
		}
	}

	if c.fileLogger != nil {
		_ = c.fileLogger.Sync()
	}
}
