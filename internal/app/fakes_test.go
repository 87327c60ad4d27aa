package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math/rand/v2"
	"sync"

	"github.com/jsamuelsen/quotebox/internal/domain"
	"github.com/jsamuelsen/quotebox/internal/platform/logging"
)

// discardLogger returns a logger that discards all output.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// scriptedTranscriber returns canned utterances in order, then silence.
type scriptedTranscriber struct {
	replies []string
	calls   int
}

func (s *scriptedTranscriber) Transcribe(context.Context, []string) (string, error) {
	s.calls++
	if len(s.replies) == 0 {
		return "", nil
	}
	next := s.replies[0]
	s.replies = s.replies[1:]
	return next, nil
}

func (s *scriptedTranscriber) push(replies ...string) {
	s.replies = append(s.replies, replies...)
}

// recordingSpeaker remembers everything said.
type recordingSpeaker struct {
	said []string
}

func (r *recordingSpeaker) Speak(_ context.Context, text string) error {
	r.said = append(r.said, text)
	return nil
}

func (r *recordingSpeaker) last() string {
	if len(r.said) == 0 {
		return ""
	}
	return r.said[len(r.said)-1]
}

func (r *recordingSpeaker) count(text string) int {
	n := 0
	for _, s := range r.said {
		if s == text {
			n++
		}
	}
	return n
}

// memRepository keeps the last saved snapshot in memory.
type memRepository struct {
	mu    sync.Mutex
	snap  *domain.Snapshot
	saves int
}

func (m *memRepository) Load(context.Context) (domain.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.snap == nil {
		return domain.Snapshot{}, domain.NewNotFoundError("snapshot", "")
	}
	return *m.snap, nil
}

func (m *memRepository) Save(_ context.Context, snap domain.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.snap = &snap
	m.saves++
	return nil
}

// pressTrigger fires a fixed number of times, then reports the button gone.
type pressTrigger struct {
	presses int
}

var errButtonGone = errors.New("button gone")

func (p *pressTrigger) WaitForTrigger(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.presses == 0 {
		return errButtonGone
	}
	p.presses--
	return nil
}

// harness wires a router over fakes.
type harness struct {
	store   *domain.QuoteStore
	speaker *recordingSpeaker
	ears    *scriptedTranscriber
	voice   *Voice
	router  *Router
}

func newHarness(store *domain.QuoteStore) *harness {
	if store == nil {
		store = domain.NewQuoteStore(domain.WithRand(rand.New(rand.NewPCG(1, 2))))
	}

	h := &harness{
		store:   store,
		speaker: &recordingSpeaker{},
		ears:    &scriptedTranscriber{},
	}
	h.voice = NewVoice(h.speaker, h.ears, nil)

	router, err := NewRouter(RouterConfig{
		Store:    store,
		Voice:    h.voice,
		Dialog:   NewDialog(h.voice, DialogConfig{}, nil),
		Executor: NewExecutor(discardLogger()),
	})
	if err != nil {
		panic(err)
	}
	h.router = router

	return h
}

// testCtx returns a context carrying a discarding logger.
func testCtx() context.Context {
	return logging.WithContext(context.Background(), discardLogger())
}
