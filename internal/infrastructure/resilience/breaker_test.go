package resilience

import (
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// settle admits one request and reports its outcome.
func settle(t *testing.T, b *Breaker, success bool) {
	t.Helper()
	done, err := b.Allow()
	require.NoError(t, err)
	done(success)
}

func tripAfter(n uint32) func(Counts) bool {
	return func(c Counts) bool { return c.ConsecutiveFailures >= n }
}

func TestBreakerStateTransitions(t *testing.T) {
	tests := []struct {
		name     string
		outcomes []bool
		want     State
	}{
		{name: "stays closed on successes", outcomes: []bool{true, true, true}, want: StateClosed},
		{name: "opens after consecutive failures", outcomes: []bool{false, false, false}, want: StateOpen},
		{name: "success resets the streak", outcomes: []bool{false, false, true, false, false}, want: StateClosed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New("room", Settings{ReadyToTrip: tripAfter(3)})
			for _, ok := range tt.outcomes {
				settle(t, b, ok)
			}
			assert.Equal(t, tt.want, b.State())
		})
	}
}

func TestBreakerRejectsWhileOpen(t *testing.T) {
	b := New("room", Settings{Timeout: time.Hour, ReadyToTrip: tripAfter(1)})
	settle(t, b, false)

	done, err := b.Allow()
	assert.Nil(t, done)
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestBreakerHalfOpen(t *testing.T) {
	b := New("room", Settings{
		MaxRequests: 1,
		Timeout:     20 * time.Millisecond,
		ReadyToTrip: tripAfter(1),
	})
	settle(t, b, false)
	require.Equal(t, StateOpen, b.State())

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, StateHalfOpen, b.State())

	trial, err := b.Allow()
	require.NoError(t, err)

	_, err = b.Allow()
	assert.ErrorIs(t, err, ErrTooManyRequests)

	trial(true)
	assert.Equal(t, StateClosed, b.State())
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	b := New("room", Settings{Timeout: 20 * time.Millisecond, ReadyToTrip: tripAfter(1)})
	settle(t, b, false)
	time.Sleep(30 * time.Millisecond)

	settle(t, b, false)
	assert.Equal(t, StateOpen, b.State())
}

func TestBreakerIgnoresOutcomesFromEarlierState(t *testing.T) {
	b := New("room", Settings{Timeout: time.Hour, ReadyToTrip: tripAfter(1)})

	slow, err := b.Allow()
	require.NoError(t, err)
	settle(t, b, false)
	require.Equal(t, StateOpen, b.State())

	// Admitted while closed; must not count against the open breaker.
	slow(true)
	assert.Equal(t, StateOpen, b.State())
}

func TestBreakerDoneIsIdempotent(t *testing.T) {
	b := New("room", Settings{ReadyToTrip: tripAfter(2)})

	done, err := b.Allow()
	require.NoError(t, err)
	done(false)
	done(false)

	assert.Equal(t, StateClosed, b.State())
}

func TestBreakerStateChangeCallback(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []string
	)
	b := New("r1", Settings{
		Timeout:     20 * time.Millisecond,
		ReadyToTrip: tripAfter(1),
		OnStateChange: func(name string, from, to State) {
			mu.Lock()
			seen = append(seen, name+":"+from.String()+"->"+to.String())
			mu.Unlock()
		},
	})

	settle(t, b, false)
	time.Sleep(30 * time.Millisecond)
	settle(t, b, true)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{
		"r1:closed->open",
		"r1:open->half-open",
		"r1:half-open->closed",
	}, seen)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "half-open", StateHalfOpen.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "unknown", State(42).String())
}

func TestGroup(t *testing.T) {
	group := NewGroup(Settings{Timeout: time.Hour, ReadyToTrip: tripAfter(1)})

	a := group.Get("a")
	assert.Same(t, a, group.Get("a"))
	assert.NotSame(t, a, group.Get("b"))
	group.Get("c")

	assert.Empty(t, group.Open())

	settle(t, a, false)
	settle(t, group.Get("c"), false)

	open := group.Open()
	sort.Strings(open)
	assert.Equal(t, []string{"a", "c"}, open)
}
