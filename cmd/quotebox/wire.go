package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/jsamuelsen/quotebox/internal/adapters/audio/device"
	"github.com/jsamuelsen/quotebox/internal/adapters/clients"
	"github.com/jsamuelsen/quotebox/internal/adapters/clients/acl"
	"github.com/jsamuelsen/quotebox/internal/adapters/console"
	"github.com/jsamuelsen/quotebox/internal/adapters/gpio"
	"github.com/jsamuelsen/quotebox/internal/adapters/speech"
	"github.com/jsamuelsen/quotebox/internal/adapters/speech/whisper"
	"github.com/jsamuelsen/quotebox/internal/adapters/storage"
	"github.com/jsamuelsen/quotebox/internal/app"
	"github.com/jsamuelsen/quotebox/internal/domain"
	"github.com/jsamuelsen/quotebox/internal/platform/config"
	"github.com/jsamuelsen/quotebox/internal/platform/telemetry"
	"github.com/jsamuelsen/quotebox/internal/ports"
)

// libraryStore is the part of app.Library the maintenance commands use.
type libraryStore interface {
	Load(ctx context.Context) *domain.QuoteStore
	Save(ctx context.Context, store *domain.QuoteStore) error
}

func openStorage(cfg *config.Config) (*storage.FileBlobStore, *storage.TOMLRepository) {
	blobs := storage.NewFileBlobStore(afero.NewOsFs(), filepath.Dir(cfg.Storage.Path))
	return blobs, storage.NewTOMLRepository(blobs, filepath.Base(cfg.Storage.Path))
}

func openLibrary(cfg *config.Config, metrics *telemetry.Metrics) *app.Library {
	_, repo := openStorage(cfg)
	return app.NewLibrary(repo, metrics)
}

// serve wires the appliance and runs the session loop, or a single cycle
// when once is set. Cancellation of ctx is a clean shutdown.
func serve(ctx context.Context, cfg *config.Config, in io.Reader, out io.Writer, once bool) error {
	logger := slog.Default()

	logger.InfoContext(ctx, "starting quotebox",
		slog.String("version", Version),
		slog.String("commit", Commit),
		slog.String("environment", cfg.App.Environment),
		slog.String("recognizer", cfg.Speech.Recognizer),
		slog.String("voice", cfg.Speech.Voice),
		slog.String("trigger", cfg.Trigger.Kind),
	)

	telProvider, err := telemetry.New(ctx, &telemetry.Config{
		Enabled:      cfg.Telemetry.Enabled,
		Endpoint:     cfg.Telemetry.Endpoint,
		ServiceName:  cfg.Telemetry.ServiceName,
		Version:      Version,
		Environment:  cfg.App.Environment,
		SamplingRate: cfg.Telemetry.SamplingRate,
	})
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}

	defer func() {
		if shutdownErr := telProvider.Shutdown(context.WithoutCancel(ctx)); shutdownErr != nil {
			logger.Error("telemetry shutdown error", slog.Any("error", shutdownErr))
		}
	}()

	metrics := telemetry.NewMetrics(cfg.Metrics.Textfile)
	health := ports.NewHealthRegistry()

	blobs, repo := openStorage(cfg)
	if err := health.Register(blobs); err != nil {
		return fmt.Errorf("registering storage health check: %w", err)
	}

	parts, err := assemble(cfg, in, out, health, logger)
	defer parts.close(logger)

	if err != nil {
		return err
	}

	library := app.NewLibrary(repo, metrics)

	startup, err := app.Prepare(ctx, library, health)
	if err != nil {
		return fmt.Errorf("preparing: %w", err)
	}

	voice := app.NewVoice(parts.speaker, parts.transcriber, metrics)
	dialog := app.NewDialog(voice, app.DialogConfig{MaxRounds: cfg.Dialog.MaxRounds}, metrics)

	router, err := app.NewRouter(app.RouterConfig{
		Store:    startup.Store,
		Voice:    voice,
		Dialog:   dialog,
		Executor: app.NewExecutor(logger),
		Metrics:  metrics,
	})
	if err != nil {
		return fmt.Errorf("creating router: %w", err)
	}

	session := app.NewSession(app.SessionConfig{
		Trigger: parts.trigger,
		Voice:   voice,
		Router:  router,
		Library: library,
		Store:   startup.Store,
		Metrics: metrics,
		Logger:  logger,
	})

	if once {
		err = session.RunOnce(ctx)
	} else {
		err = session.Run(ctx)
	}

	if errors.Is(err, context.Canceled) {
		logger.Info("shutdown complete")
		return nil
	}

	return err
}

// appliance holds the selected hardware adapters.
type appliance struct {
	trigger     ports.TriggerSource
	transcriber ports.Transcriber
	speaker     ports.Speaker
	closers     []func() error
}

// close releases adapters in reverse order of creation.
func (a *appliance) close(logger *slog.Logger) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logger.Warn("releasing adapter failed", slog.Any("error", err))
		}
	}
}

// assemble picks the trigger, recognizer and voice named in cfg. The console
// adapter is shared so one reader owns stdin. The returned appliance is never
// nil and must be closed even when an error is returned.
func assemble(cfg *config.Config, in io.Reader, out io.Writer, health ports.HealthRegistry, logger *slog.Logger) (*appliance, error) {
	a := &appliance{}

	var term *console.Terminal
	terminal := func() *console.Terminal {
		if term == nil {
			term = console.NewTerminal(in, out)
		}
		return term
	}

	tag, err := cfg.Speech.ResolveLanguage(os.Getenv)
	if err != nil {
		return a, err
	}

	logger.Info("speech language resolved", slog.String("language", tag.String()))

	var (
		recorder *device.Recorder
		player   *device.Player
	)

	if cfg.Speech.Recognizer != config.RecognizerConsole || cfg.Speech.Voice == config.VoiceSynthesizer {
		terminate, err := device.Initialize()
		if err != nil {
			return a, err
		}
		a.closers = append(a.closers, terminate)

		recorder = device.NewRecorder(device.RecorderConfig{
			SampleRate:   cfg.Speech.SampleRate,
			QuietPeriod:  cfg.Speech.QuietPeriod,
			MaxUtterance: cfg.Speech.MaxUtterance,
		})
		player = device.NewPlayer()
	}

	switch cfg.Speech.Recognizer {
	case config.RecognizerWhisper:
		t, err := whisper.Open(cfg.Speech.ModelPath, recorder, config.BaseLanguage(tag))
		if err != nil {
			return a, err
		}
		a.closers = append(a.closers, t.Close)
		a.transcriber = t

		if err := registerAll(health, recorder, t); err != nil {
			return a, err
		}

	case config.RecognizerWhisperServer:
		httpClient, err := clients.New(&clients.Config{
			BaseURL:     cfg.Speech.ServerURL,
			ServiceName: acl.WhisperServiceName,
			Timeout:     cfg.Client.Timeout,
			Retry:       cfg.Client.Retry,
			Circuit:     cfg.Client.CircuitBreaker,
			Transport:   cfg.Client.Transport,
			Logger:      logger,
		})
		if err != nil {
			return a, fmt.Errorf("creating speech server client: %w", err)
		}

		server := acl.NewWhisperClient(acl.WhisperClientConfig{Client: httpClient, Logger: logger})
		a.transcriber = speech.NewServerTranscriber(recorder, server, config.BaseLanguage(tag))

		if err := registerAll(health, recorder, server); err != nil {
			return a, err
		}

	default:
		a.transcriber = terminal()
	}

	if cfg.Speech.Voice == config.VoiceSynthesizer {
		scratch := cfg.Speech.ScratchDir
		if scratch == "" {
			scratch = os.TempDir()
		}

		synth, err := speech.NewSynthesizer(speech.SynthesizerConfig{
			Template:   cfg.Speech.Synthesizer,
			Language:   tag.String(),
			ScratchDir: scratch,
			Fs:         afero.NewOsFs(),
			Player:     player,
		})
		if err != nil {
			return a, err
		}
		a.speaker = synth

		if err := health.Register(synth); err != nil {
			return a, err
		}
	} else {
		a.speaker = terminal()
	}

	if cfg.Trigger.Kind == config.TriggerGPIO {
		button, err := gpio.OpenButton(gpio.ButtonConfig{
			Chip:     cfg.Trigger.Chip,
			Line:     cfg.Trigger.Line,
			Debounce: cfg.Trigger.Debounce,
			Logger:   logger,
		})
		if err != nil {
			return a, err
		}
		a.closers = append(a.closers, button.Close)
		a.trigger = button
	} else {
		a.trigger = terminal()
	}

	return a, nil
}

func registerAll(health ports.HealthRegistry, checkers ...ports.HealthChecker) error {
	for _, c := range checkers {
		if err := health.Register(c); err != nil {
			return fmt.Errorf("registering %s health check: %w", c.Name(), err)
		}
	}

	return nil
}
