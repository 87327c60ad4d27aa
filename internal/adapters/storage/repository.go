package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/jsamuelsen/quotebox/internal/domain"
	"github.com/jsamuelsen/quotebox/internal/ports"
)

// formatVersion is written into every snapshot file.
const formatVersion = 1

// quarantineStamp suffixes the key of a snapshot moved aside by Quarantine.
const quarantineStamp = "20060102T150405Z"

// tomlSnapshot is the on-disk layout:
//
//	version = 1
//	next_id = 4
//
//	[[quote]]
//	id = 1
//	text = "stay hungry"
//	author = "steve jobs"
type tomlSnapshot struct {
	Version int         `toml:"version"`
	NextID  uint64      `toml:"next_id"`
	Quotes  []tomlQuote `toml:"quote"`
}

type tomlQuote struct {
	ID     uint64 `toml:"id"`
	Text   string `toml:"text"`
	Author string `toml:"author"`
}

// TOMLRepository stores snapshots as a TOML document in a BlobStore.
type TOMLRepository struct {
	blobs ports.BlobStore
	key   string
	now   func() time.Time
}

// NewTOMLRepository creates a repository that keeps its snapshot under key.
func NewTOMLRepository(blobs ports.BlobStore, key string) *TOMLRepository {
	return &TOMLRepository{blobs: blobs, key: key, now: time.Now}
}

// Load reads and decodes the snapshot.
// A missing blob is reported as domain.ErrNotFound.
func (r *TOMLRepository) Load(ctx context.Context) (domain.Snapshot, error) {
	data, err := r.blobs.Read(ctx, r.key)
	if err != nil {
		return domain.Snapshot{}, err
	}

	var doc tomlSnapshot
	if err := toml.Unmarshal(data, &doc); err != nil {
		return domain.Snapshot{}, fmt.Errorf("decoding %s: %w", r.key, err)
	}

	if doc.Version > formatVersion {
		return domain.Snapshot{}, fmt.Errorf("decoding %s: unsupported version %d", r.key, doc.Version)
	}

	snap := domain.Snapshot{
		NextID: domain.QuoteID(doc.NextID),
		Quotes: make([]domain.SnapshotQuote, 0, len(doc.Quotes)),
	}
	for _, q := range doc.Quotes {
		snap.Quotes = append(snap.Quotes, domain.SnapshotQuote{
			ID:     domain.QuoteID(q.ID),
			Text:   q.Text,
			Author: q.Author,
		})
	}

	return snap, nil
}

// Save encodes snap and replaces the stored blob.
func (r *TOMLRepository) Save(ctx context.Context, snap domain.Snapshot) error {
	doc := tomlSnapshot{
		Version: formatVersion,
		NextID:  uint64(snap.NextID),
		Quotes:  make([]tomlQuote, 0, len(snap.Quotes)),
	}
	for _, q := range snap.Quotes {
		doc.Quotes = append(doc.Quotes, tomlQuote{ID: uint64(q.ID), Text: q.Text, Author: q.Author})
	}

	data, err := toml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", r.key, err)
	}

	if err := r.blobs.Write(ctx, r.key, data); err != nil {
		return fmt.Errorf("saving %s: %w", r.key, err)
	}

	return nil
}

// Quarantine renames the stored snapshot to <key>.corrupt-<UTC timestamp>
// and returns the new key.
func (r *TOMLRepository) Quarantine(ctx context.Context) (string, error) {
	aside := r.key + ".corrupt-" + r.now().UTC().Format(quarantineStamp)

	if err := r.blobs.Rename(ctx, r.key, aside); err != nil {
		return "", fmt.Errorf("quarantining %s: %w", r.key, err)
	}

	return aside, nil
}
