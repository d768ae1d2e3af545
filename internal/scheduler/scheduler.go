package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/Nazarious-ucu/weather-collector/internal/metrics"
	"github.com/Nazarious-ucu/weather-collector/internal/models"
)

const (
	StateIdle         = "idle"
	StateCollecting   = "collecting"
	StateSleeping     = "sleeping"
	StateShuttingDown = "shutting_down"

	recordTimeout = 5 * time.Second
)

type locationSource interface {
	List() []models.Location
	MultiLocation() bool
}

type weatherSource interface {
	Fetch(ctx context.Context, loc models.Location) (models.Reading, error)
}

type readingPublisher interface {
	Publish(ctx context.Context, reading models.Reading) bool
	Close() error
}

type pacer interface {
	Wait(ctx context.Context) error
}

type cycleRecorder interface {
	SaveCycle(ctx context.Context, report models.CycleReport) error
}

// NewPacer spaces consecutive requests at least delay apart. A zero delay
// never blocks.
func NewPacer(delay time.Duration) *rate.Limiter {
	if delay <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(delay), 1)
}

// Scheduler runs collection cycles: one immediately, then one per interval.
type Scheduler struct {
	locations locationSource
	source    weatherSource
	publisher readingPublisher
	pacer     pacer
	interval  time.Duration
	logger    zerolog.Logger
	m         *metrics.Metrics
	recorder  cycleRecorder

	cycleMu sync.Mutex

	mu    sync.RWMutex
	state string
	last  *models.CycleReport
}

func New(
	locations locationSource,
	source weatherSource,
	publisher readingPublisher,
	p pacer,
	interval time.Duration,
	logger zerolog.Logger,
	m *metrics.Metrics,
) *Scheduler {
	return &Scheduler{
		locations: locations,
		source:    source,
		publisher: publisher,
		pacer:     p,
		interval:  interval,
		logger:    logger.With().Str("component", "Scheduler").Logger(),
		m:         m,
		state:     StateIdle,
	}
}

// WithRecorder persists every finished cycle report.
func (s *Scheduler) WithRecorder(r cycleRecorder) *Scheduler {
	s.recorder = r
	return s
}

// Run blocks until ctx is done. On return the periodic timer is stopped,
// any running cycle has finished and the publisher is closed.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info().
		Int("locations", len(s.locations.List())).
		Bool("multi_location", s.locations.MultiLocation()).
		Dur("interval", s.interval).
		Msg("weather collector scheduler started")

	defer s.shutdown()

	s.RunCycle(ctx)
	if ctx.Err() != nil {
		return nil
	}

	cl := cronLogger{logger: s.logger}
	c := cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.SkipIfStillRunning(cl)),
	)
	if _, err := c.AddFunc(fmt.Sprintf("@every %s", s.interval), func() { s.RunCycle(ctx) }); err != nil {
		s.logger.Error().Err(err).Msg("failed to schedule collection")
		return fmt.Errorf("schedule collection: %w", err)
	}
	c.Start()

	<-ctx.Done()
	s.setState(StateShuttingDown)
	s.logger.Info().Msg("shutdown requested, waiting for running cycle")

	stopCtx := c.Stop()
	<-stopCtx.Done()
	return nil
}

func (s *Scheduler) shutdown() {
	s.setState(StateShuttingDown)
	if err := s.publisher.Close(); err != nil {
		s.logger.Error().Err(err).Msg("failed to close publisher")
	}
	s.logger.Info().Msg("scheduler stopped")
}

// RunCycle fetches and publishes every location once. Individual failures
// are counted and never abort the cycle. Cancelling ctx stops the cycle at
// the next pacing point; a fetch or publish already started completes.
func (s *Scheduler) RunCycle(ctx context.Context) models.CycleReport {
	s.cycleMu.Lock()
	defer s.cycleMu.Unlock()

	s.setState(StateCollecting)
	report := models.CycleReport{StartedAt: time.Now().UTC()}
	work := context.WithoutCancel(ctx)

	locs := s.locations.List()
	multi := s.locations.MultiLocation()

	s.logger.Info().Int("locations", len(locs)).Msg("collecting weather data")

	for _, loc := range locs {
		if multi {
			if err := s.pacer.Wait(ctx); err != nil {
				s.logger.Warn().Err(err).Msg("cycle interrupted")
				break
			}
		}
		report.Attempted++
		s.collectOne(work, loc, &report)
	}

	report.Duration = time.Since(report.StartedAt)
	s.finish(work, report)
	return report
}

func (s *Scheduler) collectOne(ctx context.Context, loc models.Location, report *models.CycleReport) {
	start := time.Now()
	reading, err := s.source.Fetch(ctx, loc)
	s.m.FetchDuration.Observe(time.Since(start).Seconds())
	s.m.FetchTotal.WithLabelValues(metrics.Result(err)).Inc()

	if err != nil {
		report.FetchFailures++
		report.Failed++
		s.m.CycleLocations.WithLabelValues("fetch_failed").Inc()
		s.logger.Warn().Err(err).Str("location", loc.Label()).Msg("failed to fetch weather data")
		return
	}

	if !s.publisher.Publish(ctx, reading) {
		report.PublishFailures++
		report.Failed++
		s.m.CycleLocations.WithLabelValues("publish_failed").Inc()
		s.logger.Warn().Str("location", loc.Label()).Msg("failed to publish weather data")
		return
	}

	report.Succeeded++
	s.m.CycleLocations.WithLabelValues("published").Inc()
}

func (s *Scheduler) finish(ctx context.Context, report models.CycleReport) {
	s.m.CyclesTotal.Inc()
	s.m.CycleDuration.Observe(report.Duration.Seconds())
	s.m.LastCycleTimestamp.SetToCurrentTime()

	s.logger.Info().
		Int("attempted", report.Attempted).
		Int("succeeded", report.Succeeded).
		Int("failed", report.Failed).
		Int("fetch_failures", report.FetchFailures).
		Int("publish_failures", report.PublishFailures).
		Dur("duration", report.Duration).
		Msg("collection cycle completed")

	if s.recorder != nil {
		rctx, cancel := context.WithTimeout(ctx, recordTimeout)
		if err := s.recorder.SaveCycle(rctx, report); err != nil {
			s.logger.Error().Err(err).Msg("failed to record cycle")
		}
		cancel()
	}

	s.mu.Lock()
	s.last = &report
	if s.state != StateShuttingDown {
		s.state = StateSleeping
	}
	s.mu.Unlock()
}

func (s *Scheduler) setState(state string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateShuttingDown {
		return
	}
	s.state = state
}

// Status reports the current state and the last finished cycle.
func (s *Scheduler) Status() models.CollectorStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := models.CollectorStatus{State: s.state}
	if s.last != nil {
		last := *s.last
		status.LastCycle = &last
	}
	return status
}

func (s *Scheduler) LastReport() (models.CycleReport, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return models.CycleReport{}, false
	}
	return *s.last, true
}

type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
