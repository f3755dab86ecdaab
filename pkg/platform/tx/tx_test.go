package tx

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromWithoutTx(t *testing.T) {
	_, ok := From(context.Background())
	assert.False(t, ok)
	assert.Equal(t, context.Background(), WithTx(context.Background(), (*sql.Tx)(nil)))
}

func TestLockRunnerSerializes(t *testing.T) {
	runner := NewLockRunner()
	var inside, peak int32
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = runner.RunInTx(context.Background(), func(context.Context) error {
				n := atomic.AddInt32(&inside, 1)
				for {
					p := atomic.LoadInt32(&peak)
					if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				atomic.AddInt32(&inside, -1)
				return nil
			})
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), peak)
}

func TestLockRunnerReturnsFnError(t *testing.T) {
	runner := NewLockRunner()
	boom := errors.New("boom")
	assert.ErrorIs(t, runner.RunInTx(context.Background(), func(context.Context) error { return boom }), boom)

	// lock released after the error
	require.NoError(t, runner.RunInTx(context.Background(), func(context.Context) error { return nil }))
}

func TestLockRunnerHonoursCancellation(t *testing.T) {
	runner := NewLockRunner()
	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_ = runner.RunInTx(context.Background(), func(context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := runner.RunInTx(ctx, func(context.Context) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
	close(release)
}
