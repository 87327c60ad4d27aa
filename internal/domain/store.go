package domain

import (
	"math/rand/v2"
	"slices"
)

// Snapshot is the persisted form of a QuoteStore.
// The last spoken quote is intentionally not part of it: a fresh process
// always starts with nothing spoken.
type Snapshot struct {
	NextID QuoteID
	Quotes []SnapshotQuote
}

// SnapshotQuote is a single stored quote inside a Snapshot.
type SnapshotQuote struct {
	ID     QuoteID
	Text   string
	Author string
}

// QuoteStore owns the collection of quotes.
// It is single-owner and not safe for concurrent use.
type QuoteStore struct {
	quotes     map[QuoteID]Quote
	order      []QuoteID
	nextID     QuoteID
	lastSpoken *QuoteID
	rng        *rand.Rand
}

// StoreOption configures a QuoteStore.
type StoreOption func(*QuoteStore)

// WithRand sets the random source used by RandomQuote.
func WithRand(rng *rand.Rand) StoreOption {
	return func(s *QuoteStore) {
		s.rng = rng
	}
}

// NewQuoteStore creates an empty store.
func NewQuoteStore(opts ...StoreOption) *QuoteStore {
	s := &QuoteStore{
		quotes: make(map[QuoteID]Quote),
		order:  make([]QuoteID, 0),
		nextID: 1,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.rng == nil {
		s.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())) //nolint:gosec // No need for crypto-grade randomness
	}

	return s
}

// RestoreStore rebuilds a store from a snapshot.
// Returns a ConflictError for duplicate ids and a ValidationError for malformed quotes.
// NextID is raised above every stored id if the snapshot carries a stale counter.
func RestoreStore(snap Snapshot, opts ...StoreOption) (*QuoteStore, error) {
	s := NewQuoteStore(opts...)

	for _, sq := range snap.Quotes {
		if _, exists := s.quotes[sq.ID]; exists {
			return nil, NewConflictError("quote", "duplicate id", sq.ID.String())
		}

		q, err := NewQuote(sq.ID, sq.Text, sq.Author)
		if err != nil {
			return nil, err
		}

		s.insert(q)

		if sq.ID >= s.nextID {
			s.nextID = sq.ID + 1
		}
	}

	if snap.NextID > s.nextID {
		s.nextID = snap.NextID
	}

	return s, nil
}

// Add creates a quote with a freshly assigned id and inserts it.
// The last spoken quote is unaffected.
func (s *QuoteStore) Add(text, author string) (Quote, error) {
	q, err := NewQuote(s.nextID, text, author)
	if err != nil {
		return Quote{}, err
	}

	s.insert(q)
	s.nextID++

	return q, nil
}

// RandomQuote selects one quote uniformly at random.
// Selection alone does not mark the quote as spoken; see MarkSpoken.
func (s *QuoteStore) RandomQuote() (Quote, error) {
	if len(s.order) == 0 {
		return Quote{}, ErrEmptyStore
	}

	id := s.order[s.rng.IntN(len(s.order))]

	return s.quotes[id], nil
}

// MarkSpoken records the quote as the last one played back to the user.
func (s *QuoteStore) MarkSpoken(id QuoteID) error {
	if _, ok := s.quotes[id]; !ok {
		return NewNotFoundError("quote", id.String())
	}

	s.lastSpoken = &id

	return nil
}

// LastSaid returns the quote last recorded as spoken.
func (s *QuoteStore) LastSaid() (Quote, error) {
	if s.lastSpoken == nil {
		return Quote{}, ErrNoQuoteSpokenYet
	}

	return s.quotes[*s.lastSpoken], nil
}

// Delete removes the quote with the given id and reports whether it existed.
// Deleting an unknown id is a no-op, which keeps voice interaction forgiving
// of misheard identifiers.
func (s *QuoteStore) Delete(id QuoteID) bool {
	if _, ok := s.quotes[id]; !ok {
		return false
	}

	delete(s.quotes, id)
	s.order = slices.DeleteFunc(s.order, func(other QuoteID) bool { return other == id })

	if s.lastSpoken != nil && *s.lastSpoken == id {
		s.lastSpoken = nil
	}

	return true
}

// Get returns the quote with the given id.
func (s *QuoteStore) Get(id QuoteID) (Quote, error) {
	q, ok := s.quotes[id]
	if !ok {
		return Quote{}, NewNotFoundError("quote", id.String())
	}

	return q, nil
}

// Quotes returns all quotes in insertion order.
func (s *QuoteStore) Quotes() []Quote {
	out := make([]Quote, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.quotes[id])
	}

	return out
}

// Len returns the number of stored quotes.
func (s *QuoteStore) Len() int {
	return len(s.order)
}

// Snapshot returns the persistable state of the store.
func (s *QuoteStore) Snapshot() Snapshot {
	snap := Snapshot{
		NextID: s.nextID,
		Quotes: make([]SnapshotQuote, 0, len(s.order)),
	}

	for _, q := range s.Quotes() {
		snap.Quotes = append(snap.Quotes, SnapshotQuote{ID: q.id, Text: q.text, Author: q.author})
	}

	return snap
}

func (s *QuoteStore) insert(q Quote) {
	s.quotes[q.id] = q
	s.order = append(s.order, q.id)
}
