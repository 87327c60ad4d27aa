package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen/quotebox/internal/domain"
	"github.com/jsamuelsen/quotebox/internal/mocks"
)

func newRepo(t *testing.T) (*TOMLRepository, afero.Fs) {
	t.Helper()

	fs := afero.NewMemMapFs()

	return NewTOMLRepository(NewFileBlobStore(fs, "/data"), "quotes.toml"), fs
}

func TestTOMLRepository_LoadMissing(t *testing.T) {
	repo, _ := newRepo(t)

	_, err := repo.Load(context.Background())

	assert.True(t, domain.IsNotFound(err))
}

func TestTOMLRepository_RoundTrip(t *testing.T) {
	repo, _ := newRepo(t)
	ctx := context.Background()

	snap := domain.Snapshot{
		NextID: 5,
		Quotes: []domain.SnapshotQuote{
			{ID: 1, Text: "stay hungry", Author: "steve jobs"},
			{ID: 4, Text: `say "cheese"`, Author: "a photographer"},
		},
	}

	require.NoError(t, repo.Save(ctx, snap))

	got, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, snap, got)
}

func TestTOMLRepository_EmptySnapshot(t *testing.T) {
	repo, _ := newRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, domain.Snapshot{NextID: 1}))

	got, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.QuoteID(1), got.NextID)
	assert.Empty(t, got.Quotes)
}

func TestTOMLRepository_FileLayout(t *testing.T) {
	repo, fs := newRepo(t)

	snap := domain.Snapshot{
		NextID: 2,
		Quotes: []domain.SnapshotQuote{{ID: 1, Text: "hello", Author: "world"}},
	}
	require.NoError(t, repo.Save(context.Background(), snap))

	data, err := afero.ReadFile(fs, "/data/quotes.toml")
	require.NoError(t, err)

	doc := string(data)
	assert.Contains(t, doc, "version = 1")
	assert.Contains(t, doc, "next_id = 2")
	assert.Contains(t, doc, "[[quote]]")
	assert.Regexp(t, `text = ['"]hello['"]`, doc)
}

func TestTOMLRepository_LoadHandWritten(t *testing.T) {
	repo, fs := newRepo(t)

	doc := `
version = 1
next_id = 3

[[quote]]
id = 2
text = "less is more"
author = "mies van der rohe"
`
	require.NoError(t, afero.WriteFile(fs, "/data/quotes.toml", []byte(doc), 0o644))

	got, err := repo.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.QuoteID(3), got.NextID)
	require.Len(t, got.Quotes, 1)
	assert.Equal(t, "mies van der rohe", got.Quotes[0].Author)
}

func TestTOMLRepository_LoadErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{name: "malformed", doc: "next_id = ["},
		{name: "future version", doc: "version = 9\nnext_id = 1\n"},
		{name: "wrong type", doc: "next_id = \"one\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, fs := newRepo(t)
			require.NoError(t, afero.WriteFile(fs, "/data/quotes.toml", []byte(tt.doc), 0o644))

			_, err := repo.Load(context.Background())

			require.Error(t, err)
			assert.False(t, domain.IsNotFound(err))
			assert.Contains(t, err.Error(), "decoding quotes.toml")
		})
	}
}

func TestTOMLRepository_SaveError(t *testing.T) {
	blobs := mocks.NewMockBlobStore(t)
	blobs.EXPECT().
		Write(mock.Anything, "quotes.toml", mock.Anything).
		Return(errors.New("disk full"))

	repo := NewTOMLRepository(blobs, "quotes.toml")

	err := repo.Save(context.Background(), domain.Snapshot{NextID: 1})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "saving quotes.toml: disk full")
}

func TestTOMLRepository_RestoresIntoStore(t *testing.T) {
	repo, _ := newRepo(t)
	ctx := context.Background()

	store := domain.NewQuoteStore()
	_, err := store.Add("first", "a")
	require.NoError(t, err)
	second, err := store.Add("second", "b")
	require.NoError(t, err)
	require.True(t, store.Delete(second.ID()))

	require.NoError(t, repo.Save(ctx, store.Snapshot()))

	snap, err := repo.Load(ctx)
	require.NoError(t, err)

	restored, err := domain.RestoreStore(snap)
	require.NoError(t, err)

	third, err := restored.Add("third", "c")
	require.NoError(t, err)
	assert.Equal(t, domain.QuoteID(3), third.ID())
}

func TestTOMLRepository_Quarantine(t *testing.T) {
	repo, fs := newRepo(t)
	repo.now = func() time.Time { return time.Date(2026, 10, 19, 8, 30, 0, 0, time.UTC) }
	ctx := context.Background()
	require.NoError(t, afero.WriteFile(fs, "/data/quotes.toml", []byte("next_id = ["), 0o644))

	_, err := repo.Load(ctx)
	require.Error(t, err)

	aside, err := repo.Quarantine(ctx)
	require.NoError(t, err)
	assert.Equal(t, "quotes.toml.corrupt-20261019T083000Z", aside)

	kept, err := afero.ReadFile(fs, "/data/"+aside)
	require.NoError(t, err)
	assert.Equal(t, "next_id = [", string(kept), "original bytes are preserved")

	require.NoError(t, repo.Save(ctx, domain.Snapshot{NextID: 1}))
	kept, err = afero.ReadFile(fs, "/data/"+aside)
	require.NoError(t, err)
	assert.Equal(t, "next_id = [", string(kept), "saving does not touch the quarantined copy")
}

func TestTOMLRepository_QuarantineMissing(t *testing.T) {
	repo, _ := newRepo(t)

	_, err := repo.Quarantine(context.Background())

	assert.True(t, domain.IsNotFound(err))
}
