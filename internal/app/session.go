package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jsamuelsen/quotebox/internal/domain"
	"github.com/jsamuelsen/quotebox/internal/platform/logging"
	"github.com/jsamuelsen/quotebox/internal/platform/telemetry"
	"github.com/jsamuelsen/quotebox/internal/ports"
)

// Session is the always-on loop: wait for the button, listen once,
// dispatch, save, repeat.
type Session struct {
	trigger ports.TriggerSource
	voice   *Voice
	router  *Router
	library *Library
	store   *domain.QuoteStore
	metrics *telemetry.Metrics
	logger  *slog.Logger
}

// SessionConfig holds the session's dependencies, resolved once at startup.
type SessionConfig struct {
	Trigger ports.TriggerSource
	Voice   *Voice
	Router  *Router
	Library *Library
	Store   *domain.QuoteStore
	Metrics *telemetry.Metrics
	Logger  *slog.Logger
}

// NewSession creates a session. Trigger, voice, router, library and store are required.
func NewSession(cfg SessionConfig) *Session {
	if cfg.Trigger == nil || cfg.Voice == nil || cfg.Router == nil || cfg.Library == nil || cfg.Store == nil {
		panic("app: session is missing a dependency")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Session{
		trigger: cfg.Trigger,
		voice:   cfg.Voice,
		router:  cfg.Router,
		library: cfg.Library,
		store:   cfg.Store,
		metrics: cfg.Metrics,
		logger:  logger.With(slog.String("component", "app.Session")),
	}
}

// Run cycles until ctx is cancelled or the trigger source fails.
// Command failures are logged and never end the loop.
func (s *Session) Run(ctx context.Context) error {
	s.logger.InfoContext(ctx, "session started", slog.Int("quotes", s.store.Len()))

	for {
		if err := s.RunOnce(ctx); err != nil {
			if ctx.Err() != nil {
				s.logger.InfoContext(ctx, "session stopped")
				return ctx.Err()
			}
			return err
		}
	}
}

// RunOnce waits for one trigger and handles one utterance.
// The only errors returned are trigger failures and context cancellation.
func (s *Session) RunOnce(ctx context.Context) error {
	ctx = logging.WithContext(ctx, s.logger)

	s.logger.DebugContext(ctx, "waiting for button press")

	if err := s.trigger.WaitForTrigger(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("waiting for trigger: %w", err)
	}

	cycleID := uuid.NewString()
	ctx = logging.WithCycleID(ctx, cycleID)

	ctx, span := telemetry.StartSpan(ctx, "session.cycle")
	defer span.End()
	span.SetAttributes(attribute.String("quotebox.cycle_id", cycleID))
	if sc := span.SpanContext(); sc.HasTraceID() {
		ctx = logging.WithTraceID(ctx, sc.TraceID().String())
	}

	logger := logging.FromContext(ctx)
	start := time.Now()

	utterance := s.voice.Listen(ctx, "")
	if err := ctx.Err(); err != nil {
		return err
	}

	dispatch, err := s.router.Route(ctx, utterance)
	span.SetAttributes(attribute.String("quotebox.command", string(dispatch.Command)))
	if err != nil {
		telemetry.RecordError(span, err)
		if !errors.Is(err, context.Canceled) {
			logger.ErrorContext(ctx, "command failed", slog.String("command", string(dispatch.Command)), slog.Any("error", err))
		}
	}

	// Saved after every dispatch, mutation or not. Use a context that
	// survives cancellation so a shutdown mid-command still persists.
	saveCtx := context.WithoutCancel(ctx)
	if err := s.library.Save(saveCtx, s.store); err != nil {
		telemetry.RecordError(span, err)
	}

	if err := s.metrics.Flush(); err != nil {
		logger.WarnContext(ctx, "flushing metrics failed", slog.Any("error", err))
	}

	logger.InfoContext(ctx, "cycle complete",
		slog.String("command", string(dispatch.Command)),
		slog.Duration("duration", time.Since(start)),
	)

	return ctx.Err()
}

// Startup holds what is prepared before the loop starts.
type Startup struct {
	Store  *domain.QuoteStore
	Health *ports.HealthResult
}

// Prepare loads the library and runs the health preflight concurrently.
// Unhealthy checks are logged, not fatal.
func Prepare(ctx context.Context, library *Library, health ports.HealthRegistry) (*Startup, error) {
	store, result, err := Parallel2(ctx,
		func(ctx context.Context) (*domain.QuoteStore, error) {
			return library.Load(ctx), nil
		},
		func(ctx context.Context) (*ports.HealthResult, error) {
			if health == nil {
				return &ports.HealthResult{Status: ports.HealthStatusHealthy, Timestamp: time.Now()}, nil
			}
			return health.CheckAll(ctx), nil
		},
	)
	if err != nil {
		return nil, err
	}

	logger := logging.FromContext(ctx)
	for _, name := range result.Failed() {
		logger.WarnContext(ctx, "preflight check failed",
			slog.String("check", name),
			slog.String("message", result.Checks[name].Message),
		)
	}

	return &Startup{Store: store, Health: result}, nil
}
