package ports

import (
	"context"

	"github.com/jsamuelsen/quotebox/internal/domain"
)

// BlobStore persists opaque byte blobs under string keys.
//
// Example usage in an adapter:
//
//	data, err := blobs.Read(ctx, "quotes.toml")
//	if domain.IsNotFound(err) {
//	    // first run
//	}
type BlobStore interface {
	// Read returns the blob stored under key.
	// Returns domain.ErrNotFound if nothing has been written yet.
	Read(ctx context.Context, key string) ([]byte, error)

	// Write replaces the blob under key atomically.
	// Readers never observe a partially written blob.
	Write(ctx context.Context, key string, data []byte) error

	// Rename moves the blob under from to to, replacing any blob already there.
	// Returns domain.ErrNotFound if nothing is stored under from.
	Rename(ctx context.Context, from, to string) error
}

// QuoteRepository loads and saves whole quote store snapshots.
type QuoteRepository interface {
	// Load returns the last saved snapshot.
	// Returns domain.ErrNotFound if no snapshot exists yet.
	Load(ctx context.Context) (domain.Snapshot, error)

	// Save persists the snapshot, replacing any previous one.
	Save(ctx context.Context, snap domain.Snapshot) error
}

// Quarantiner is implemented by repositories that can move a snapshot which
// failed to load out of the way, so the next Save starts a fresh file instead
// of overwriting it. Quarantine returns the key the data now lives under.
type Quarantiner interface {
	Quarantine(ctx context.Context) (string, error)
}
