package requestcontext

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNowPrefersInjectedTime(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	ctx := WithTime(context.Background(), fixed)
	assert.Equal(t, fixed, Now(ctx))
	assert.WithinDuration(t, time.Now(), Now(context.Background()), time.Second)
}

func TestDetachKeepsValuesDropsCancel(t *testing.T) {
	parent, cancel := context.WithCancel(WithRequestID(context.Background(), "req-1"))
	detached := Detach(parent)
	cancel()

	assert.Error(t, parent.Err())
	assert.NoError(t, detached.Err())
	assert.Equal(t, "req-1", RequestID(detached))
}

func TestClientMetadata(t *testing.T) {
	ctx := WithClientMetadata(context.Background(), "10.0.0.1", "curl/8.0")
	assert.Equal(t, "10.0.0.1", ClientIP(ctx))
	assert.Equal(t, "curl/8.0", UserAgent(ctx))
	assert.Empty(t, RequestID(ctx))
}
