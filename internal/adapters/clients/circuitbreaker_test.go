package clients

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is advanced by hand so cool-downs take no wall time.
type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestBreaker(cfg CircuitBreakerConfig) (*CircuitBreaker, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	cb := NewCircuitBreaker(cfg)
	cb.now = clock.now

	return cb, clock
}

func fail(cb *CircuitBreaker, n int) {
	for range n {
		cb.RecordFailure()
	}
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "half-open", StateHalfOpen.String())
	assert.Equal(t, "unknown", State(42).String())
}

func TestNewCircuitBreaker_Defaults(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{})

	assert.Equal(t, defaultMaxFailures, cb.cfg.MaxFailures)
	assert.Equal(t, defaultOpenTimeout, cb.cfg.Timeout)
	assert.Equal(t, defaultHalfOpenLimit, cb.cfg.HalfOpenLimit)
	assert.Equal(t, StateClosed, cb.State())
	assert.True(t, cb.Allow())
}

func TestCircuitBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	cb, _ := newTestBreaker(CircuitBreakerConfig{MaxFailures: 3, Timeout: time.Minute})

	fail(cb, 2)
	cb.RecordSuccess()
	fail(cb, 2)
	assert.Equal(t, StateClosed, cb.State(), "a success resets the count")

	cb.RecordFailure()
	assert.Equal(t, StateOpen, cb.State())
	assert.False(t, cb.Allow())
}

func TestCircuitBreaker_HalfOpenAfterCoolDown(t *testing.T) {
	cb, clock := newTestBreaker(CircuitBreakerConfig{MaxFailures: 1, Timeout: 30 * time.Second})
	cb.RecordFailure()

	clock.advance(29 * time.Second)
	assert.False(t, cb.Allow())

	clock.advance(time.Second)
	assert.True(t, cb.Allow(), "first call after the cool-down is the probe")
	assert.Equal(t, StateHalfOpen, cb.State())
	assert.False(t, cb.Allow(), "only one probe at a time")
}

func TestCircuitBreaker_ProbeOutcome(t *testing.T) {
	tests := []struct {
		name  string
		probe func(*CircuitBreaker)
		want  State
	}{
		{"success closes", (*CircuitBreaker).RecordSuccess, StateClosed},
		{"failure reopens", (*CircuitBreaker).RecordFailure, StateOpen},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cb, clock := newTestBreaker(CircuitBreakerConfig{MaxFailures: 1, Timeout: time.Second})
			cb.RecordFailure()
			clock.advance(time.Second)
			require.True(t, cb.Allow())

			tt.probe(cb)

			assert.Equal(t, tt.want, cb.State())
		})
	}
}

func TestCircuitBreaker_HalfOpenLimit(t *testing.T) {
	cb, clock := newTestBreaker(CircuitBreakerConfig{MaxFailures: 1, Timeout: time.Second, HalfOpenLimit: 2})
	cb.RecordFailure()
	clock.advance(time.Second)

	assert.True(t, cb.Allow())
	assert.True(t, cb.Allow())
	assert.False(t, cb.Allow())

	cb.RecordSuccess()
	assert.Equal(t, StateHalfOpen, cb.State(), "needs two successes")
	assert.True(t, cb.Allow(), "a finished probe frees a slot")

	cb.RecordSuccess()
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_RetryAfter(t *testing.T) {
	cb, clock := newTestBreaker(CircuitBreakerConfig{MaxFailures: 1, Timeout: 10 * time.Second})
	assert.Zero(t, cb.RetryAfter())

	cb.RecordFailure()
	assert.Equal(t, 10*time.Second, cb.RetryAfter())

	clock.advance(4 * time.Second)
	assert.Equal(t, 6*time.Second, cb.RetryAfter())

	clock.advance(time.Minute)
	assert.Zero(t, cb.RetryAfter())
}

func TestCircuitBreaker_OnStateChange(t *testing.T) {
	cb, clock := newTestBreaker(CircuitBreakerConfig{MaxFailures: 1, Timeout: time.Second})

	var seen []string
	cb.OnStateChange(func(from, to State) {
		// The breaker must be unlocked while the callback runs.
		_ = cb.State()
		seen = append(seen, from.String()+"->"+to.String())
	})

	cb.RecordFailure()
	clock.advance(time.Second)
	cb.Allow()
	cb.RecordSuccess()

	assert.Equal(t, []string{"closed->open", "open->half-open", "half-open->closed"}, seen)
}

func TestCircuitBreaker_ConcurrentUse(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{MaxFailures: 1000, Timeout: time.Second})

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if cb.Allow() {
				if i%2 == 0 {
					cb.RecordSuccess()
				} else {
					cb.RecordFailure()
				}
			}
			_ = cb.State()
		}()
	}
	wg.Wait()

	assert.Equal(t, StateClosed, cb.State())
}
