package circuit

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// outcome is one answer from the protected provider as the gateway reports it.
type outcome int

const (
	healthy outcome = iota // accepted, rejected or pending: the provider answered
	outage                 // timeout, transport error or 5xx
)

func record(b *Breaker, outcomes ...outcome) {
	for _, o := range outcomes {
		if o == outage {
			b.RecordFailure()
			continue
		}
		b.RecordSuccess()
	}
}

func TestBreakerDefaults(t *testing.T) {
	b := New("momo")
	assert.Equal(t, "momo", b.Name())
	assert.Equal(t, StateClosed, b.State())

	record(b, outage, outage, outage, outage)
	assert.False(t, b.IsOpen(), "four outages stay under the default threshold")
	record(b, outage)
	assert.True(t, b.IsOpen())

	record(b, healthy)
	assert.False(t, b.IsOpen(), "one healthy answer closes by default")
}

func TestBreakerOutageSequences(t *testing.T) {
	tests := []struct {
		name     string
		failures int
		recovery int
		seq      []outcome
		wantOpen bool
	}{
		{
			name:     "consecutive outages trip",
			failures: 3,
			seq:      []outcome{outage, outage, outage},
			wantOpen: true,
		},
		{
			name:     "a rejected payment between outages resets the count",
			failures: 3,
			seq:      []outcome{outage, outage, healthy, outage, outage},
			wantOpen: false,
		},
		{
			name:     "recovery needs consecutive healthy answers",
			failures: 1,
			recovery: 2,
			seq:      []outcome{outage, healthy},
			wantOpen: true,
		},
		{
			name:     "recovered provider closes",
			failures: 1,
			recovery: 2,
			seq:      []outcome{outage, healthy, healthy},
			wantOpen: false,
		},
		{
			name:     "relapse during recovery starts over",
			failures: 1,
			recovery: 3,
			seq:      []outcome{outage, healthy, healthy, outage, healthy, healthy},
			wantOpen: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New("momo", WithFailureThreshold(tt.failures), WithSuccessThreshold(tt.recovery))
			record(b, tt.seq...)
			assert.Equal(t, tt.wantOpen, b.IsOpen())
		})
	}
}

func TestBreakerReportsTransitionsOnce(t *testing.T) {
	b := New("momo", WithFailureThreshold(2))

	useFallback, change := b.RecordFailure()
	assert.False(t, useFallback)
	assert.Equal(t, StateChange{}, change)

	useFallback, change = b.RecordFailure()
	assert.True(t, useFallback)
	assert.True(t, change.Opened)

	useFallback, change = b.RecordFailure()
	assert.True(t, useFallback, "still short-circuiting")
	assert.False(t, change.Opened, "already open")

	usePrimary, change := b.RecordSuccess()
	assert.True(t, usePrimary)
	assert.True(t, change.Closed)

	usePrimary, change = b.RecordSuccess()
	assert.True(t, usePrimary)
	assert.False(t, change.Closed, "already closed")
}

func TestBreakerTrialCallAfterCooldown(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	b := New("momo", WithFailureThreshold(1), WithCooldown(30*time.Second), WithClock(func() time.Time { return now }))

	require.True(t, b.Allow())
	record(b, outage)
	assert.False(t, b.Allow(), "open breaker refuses inside cooldown")

	now = now.Add(31 * time.Second)
	require.True(t, b.Allow(), "one trial call once the cooldown passes")
	assert.False(t, b.Allow(), "a second caller waits for the next window")

	// the trial call timed out again: the window restarts from now
	record(b, outage)
	now = now.Add(20 * time.Second)
	assert.False(t, b.Allow())
	now = now.Add(11 * time.Second)
	assert.True(t, b.Allow())

	record(b, healthy)
	assert.False(t, b.IsOpen())
	assert.True(t, b.Allow())
	assert.True(t, b.Allow(), "closed breaker admits everyone")
}

func TestBreakerAdmitsOneConcurrentTrialCall(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	b := New("momo", WithFailureThreshold(1), WithCooldown(time.Minute), WithClock(clock))
	record(b, outage)

	mu.Lock()
	now = now.Add(2 * time.Minute)
	mu.Unlock()

	var admitted int32
	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if b.Allow() {
				atomic.AddInt32(&admitted, 1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), admitted)
}

func TestBreakerResetClearsOutage(t *testing.T) {
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	b := New("momo", WithFailureThreshold(2), WithClock(func() time.Time { return now }))
	record(b, outage, outage)
	require.True(t, b.IsOpen())

	b.Reset()
	assert.Equal(t, StateClosed, b.State())
	assert.True(t, b.Allow())

	record(b, outage)
	assert.False(t, b.IsOpen(), "failure count restarted")
}

func TestBreakerIgnoresInvalidOptions(t *testing.T) {
	b := New("momo", WithFailureThreshold(0), WithSuccessThreshold(-1), WithCooldown(0), WithClock(nil))
	record(b, outage, outage, outage, outage)
	assert.False(t, b.IsOpen())
	record(b, outage)
	assert.True(t, b.IsOpen())
	assert.False(t, b.Allow(), "default cooldown applies")
}
