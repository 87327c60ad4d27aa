package app

import (
	"context"
	"log/slog"

	"github.com/jsamuelsen/quotebox/internal/domain"
	"github.com/jsamuelsen/quotebox/internal/platform/logging"
	"github.com/jsamuelsen/quotebox/internal/platform/telemetry"
	"github.com/jsamuelsen/quotebox/internal/ports"
)

// Library loads and saves the quote store around a repository.
// Loading never fails: the appliance must always be able to start.
//
// Saved data that fails to load is moved aside when the repository is a
// ports.Quarantiner. If it cannot be moved, saves are refused until the next
// successful Load so the data is never overwritten.
type Library struct {
	repo      ports.QuoteRepository
	metrics   *telemetry.Metrics
	storeOpts []domain.StoreOption
	stuck     error
}

// NewLibrary creates a library backed by repo.
// storeOpts are applied to every store it creates, e.g. domain.WithRand in tests.
func NewLibrary(repo ports.QuoteRepository, metrics *telemetry.Metrics, storeOpts ...domain.StoreOption) *Library {
	if repo == nil {
		panic("app: quote repository is required")
	}

	return &Library{repo: repo, metrics: metrics, storeOpts: storeOpts}
}

// Load restores the saved store, or returns an empty one if nothing was
// saved yet or the saved data cannot be read.
func (l *Library) Load(ctx context.Context) *domain.QuoteStore {
	logger := logging.FromContext(ctx)
	logger.DebugContext(ctx, "loading quotes")

	l.stuck = nil

	snap, err := l.repo.Load(ctx)
	if domain.IsNotFound(err) {
		logger.InfoContext(ctx, "no saved quotes, starting empty")
		return l.empty()
	}

	if err != nil {
		l.metrics.PersistenceFailed("load")
		logger.WarnContext(ctx, "unable to load quotes, starting empty", slog.Any("error", err))
		l.setAside(ctx)
		return l.empty()
	}

	store, err := domain.RestoreStore(snap, l.storeOpts...)
	if err != nil {
		l.metrics.PersistenceFailed("load")
		logger.WarnContext(ctx, "saved quotes are corrupt, starting empty", slog.Any("error", err))
		l.setAside(ctx)
		return l.empty()
	}

	l.metrics.SetQuotes(store.Len())
	logger.InfoContext(ctx, "loaded quotes", slog.Int("count", store.Len()))

	return store
}

// Save persists store. Failures are logged and counted, then returned so
// the caller can decide; the session loop ignores them.
func (l *Library) Save(ctx context.Context, store *domain.QuoteStore) error {
	logger := logging.FromContext(ctx)

	l.metrics.SetQuotes(store.Len())

	if l.stuck != nil {
		l.metrics.PersistenceFailed("save")
		logger.WarnContext(ctx, "not saving over unreadable quotes", slog.Any("error", l.stuck))
		return domain.NewUnavailableError("storage", "unreadable quotes could not be moved aside")
	}

	if err := l.repo.Save(ctx, store.Snapshot()); err != nil {
		l.metrics.PersistenceFailed("save")
		logger.WarnContext(ctx, "couldn't save quotes", slog.Any("error", err))
		return err
	}

	logger.DebugContext(ctx, "saved quotes", slog.Int("count", store.Len()))

	return nil
}

func (l *Library) setAside(ctx context.Context) {
	q, ok := l.repo.(ports.Quarantiner)
	if !ok {
		return
	}

	logger := logging.FromContext(ctx)

	aside, err := q.Quarantine(ctx)
	if domain.IsNotFound(err) {
		return
	}
	if err != nil {
		l.stuck = err
		logger.ErrorContext(ctx, "couldn't move unreadable quotes aside, saving disabled", slog.Any("error", err))
		return
	}

	logger.WarnContext(ctx, "moved unreadable quotes aside", slog.String("key", aside))
}

func (l *Library) empty() *domain.QuoteStore {
	l.metrics.SetQuotes(0)
	return domain.NewQuoteStore(l.storeOpts...)
}
