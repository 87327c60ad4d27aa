package app

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quotebox/internal/domain"
	"github.com/jsamuelsen/quotebox/internal/mocks"
	"github.com/jsamuelsen/quotebox/internal/platform/telemetry"
)

func TestNewLibrary_PanicsWithoutRepository(t *testing.T) {
	assert.Panics(t, func() {
		NewLibrary(nil, nil)
	})
}

func TestLibrary_Load(t *testing.T) {
	tests := []struct {
		name      string
		setupMock func(*mocks.MockQuoteRepository)
		wantLen   int
		wantFail  float64
	}{
		{
			name: "nothing saved yet",
			setupMock: func(m *mocks.MockQuoteRepository) {
				m.EXPECT().Load(mock.Anything).Return(domain.Snapshot{}, domain.NewNotFoundError("snapshot", "quotes.toml"))
			},
			wantLen: 0,
		},
		{
			name: "unreadable storage",
			setupMock: func(m *mocks.MockQuoteRepository) {
				m.EXPECT().Load(mock.Anything).Return(domain.Snapshot{}, errors.New("permission denied"))
			},
			wantLen:  0,
			wantFail: 1,
		},
		{
			name: "corrupt snapshot",
			setupMock: func(m *mocks.MockQuoteRepository) {
				m.EXPECT().Load(mock.Anything).Return(domain.Snapshot{Quotes: []domain.SnapshotQuote{
					{ID: 1, Text: "a", Author: "b"},
					{ID: 1, Text: "c", Author: "d"},
				}}, nil)
			},
			wantLen:  0,
			wantFail: 1,
		},
		{
			name: "saved quotes",
			setupMock: func(m *mocks.MockQuoteRepository) {
				m.EXPECT().Load(mock.Anything).Return(domain.Snapshot{NextID: 5, Quotes: []domain.SnapshotQuote{
					{ID: 2, Text: "a", Author: "b"},
					{ID: 4, Text: "c", Author: "d"},
				}}, nil)
			},
			wantLen: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := mocks.NewMockQuoteRepository(t)
			tt.setupMock(repo)
			metrics := telemetry.NewMetrics("")

			store := NewLibrary(repo, metrics).Load(testCtx())

			require.NotNil(t, store)
			assert.Equal(t, tt.wantLen, store.Len())

			failures, err := testutil.GatherAndCount(metrics.Registry(), "quotebox_persistence_failures_total")
			require.NoError(t, err)
			assert.Equal(t, int(tt.wantFail), failures)
		})
	}
}

func TestLibrary_SaveError(t *testing.T) {
	repo := mocks.NewMockQuoteRepository(t)
	repo.EXPECT().Save(mock.Anything, mock.Anything).Return(errors.New("disk full"))

	err := NewLibrary(repo, nil).Save(testCtx(), domain.NewQuoteStore())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestLibrary_RoundTrip(t *testing.T) {
	repo := &memRepository{}
	lib := NewLibrary(repo, nil)

	store := lib.Load(testCtx())
	assert.Zero(t, store.Len())

	_, err := store.Add("Stay hungry", "Steve Jobs")
	require.NoError(t, err)
	_, err = store.Add("Be yourself", "Oscar Wilde")
	require.NoError(t, err)
	store.Delete(1)
	_, err = store.Add("Less is more", "Mies")
	require.NoError(t, err)

	require.NoError(t, lib.Save(testCtx(), store))

	restored := lib.Load(testCtx())
	assert.Equal(t, store.Snapshot(), restored.Snapshot())

	q, err := restored.Add("New", "Author")
	require.NoError(t, err)
	assert.Equal(t, domain.QuoteID(4), q.ID(), "deleted ids are not reissued after reload")
}

// quarantineRepository fails to load and records attempts to move the data aside.
type quarantineRepository struct {
	snap          domain.Snapshot
	loadErr       error
	quarantineErr error
	quarantined   int
	saves         int
}

func (r *quarantineRepository) Load(context.Context) (domain.Snapshot, error) {
	return r.snap, r.loadErr
}

func (r *quarantineRepository) Save(context.Context, domain.Snapshot) error {
	r.saves++
	return nil
}

func (r *quarantineRepository) Quarantine(context.Context) (string, error) {
	r.quarantined++
	if r.quarantineErr != nil {
		return "", r.quarantineErr
	}
	return "quotes.toml.corrupt-20261019T083000Z", nil
}

func TestLibrary_LoadMovesUnreadableDataAside(t *testing.T) {
	tests := []struct {
		name string
		repo *quarantineRepository
	}{
		{
			name: "undecodable file",
			repo: &quarantineRepository{loadErr: errors.New("decoding quotes.toml: bad toml")},
		},
		{
			name: "duplicate ids",
			repo: &quarantineRepository{snap: domain.Snapshot{Quotes: []domain.SnapshotQuote{
				{ID: 1, Text: "a", Author: "b"},
				{ID: 1, Text: "c", Author: "d"},
			}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lib := NewLibrary(tt.repo, nil)

			store := lib.Load(testCtx())
			assert.Zero(t, store.Len())
			assert.Equal(t, 1, tt.repo.quarantined)

			require.NoError(t, lib.Save(testCtx(), store))
			assert.Equal(t, 1, tt.repo.saves)
		})
	}
}

func TestLibrary_LoadLeavesMissingDataAlone(t *testing.T) {
	repo := &quarantineRepository{loadErr: domain.NewNotFoundError("blob", "quotes.toml")}
	lib := NewLibrary(repo, nil)

	lib.Load(testCtx())

	assert.Zero(t, repo.quarantined)
	require.NoError(t, lib.Save(testCtx(), domain.NewQuoteStore()))
}

func TestLibrary_RefusesToSaveOverDataItCouldNotMove(t *testing.T) {
	repo := &quarantineRepository{
		loadErr:       errors.New("reading /data/quotes.toml: permission denied"),
		quarantineErr: errors.New("renaming /data/quotes.toml: permission denied"),
	}
	metrics := telemetry.NewMetrics("")
	lib := NewLibrary(repo, metrics)

	store := lib.Load(testCtx())
	_, err := store.Add("Stay hungry", "Steve Jobs")
	require.NoError(t, err)

	err = lib.Save(testCtx(), store)
	require.Error(t, err)
	assert.True(t, domain.IsUnavailable(err))
	assert.Zero(t, repo.saves)

	failures, err := testutil.GatherAndCount(metrics.Registry(), "quotebox_persistence_failures_total")
	require.NoError(t, err)
	assert.Equal(t, 2, failures, "one load and one save series")

	// A later clean load lifts the block.
	repo.loadErr = nil
	repo.snap = domain.Snapshot{NextID: 1}
	store = lib.Load(testCtx())
	require.NoError(t, lib.Save(testCtx(), store))
	assert.Equal(t, 1, repo.saves)
}

func TestLibrary_QuarantineVanishedFileIsNotAnError(t *testing.T) {
	repo := &quarantineRepository{
		loadErr:       errors.New("decoding quotes.toml: bad toml"),
		quarantineErr: domain.NewNotFoundError("blob", "quotes.toml"),
	}
	lib := NewLibrary(repo, nil)

	lib.Load(testCtx())

	require.NoError(t, lib.Save(testCtx(), domain.NewQuoteStore()))
	assert.Equal(t, 1, repo.saves)
}
