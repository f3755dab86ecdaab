package gateway_test

//go:generate mockgen -source=gateway.go -destination=mocks/mocks.go -package=mocks Gateway

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"docufind/internal/payments/gateway"
	"docufind/internal/payments/gateway/mocks"
	"docufind/pkg/platform/circuit"
)

func TestGuardedOpensOnRetryableFailures(t *testing.T) {
	ctrl := gomock.NewController(t)
	next := mocks.NewMockGateway(ctrl)
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	breaker := circuit.New("momo",
		circuit.WithFailureThreshold(2),
		circuit.WithCooldown(time.Minute),
		circuit.WithClock(func() time.Time { return now }),
	)
	g := gateway.NewGuarded(next, breaker, nil)
	ctx := context.Background()

	outage := gateway.NewError(gateway.CategoryOutage, "status", "503", nil)
	next.EXPECT().Status(gomock.Any(), "ref").Return(nil, outage).Times(2)

	_, err := g.Status(ctx, "ref")
	require.ErrorIs(t, err, outage)
	_, err = g.Status(ctx, "ref")
	require.ErrorIs(t, err, outage)
	require.True(t, g.Open())

	// Short-circuited: the mock would fail the test if called.
	_, err = g.Status(ctx, "ref")
	require.Error(t, err)
	assert.Equal(t, gateway.CategoryCircuitOpen, gateway.CategoryOf(err))
	assert.True(t, gateway.IsRetryable(err))

	now = now.Add(time.Minute)
	next.EXPECT().Status(gomock.Any(), "ref").Return(&gateway.StatusResult{Status: gateway.StatusPending}, nil)
	res, err := g.Status(ctx, "ref")
	require.NoError(t, err)
	assert.Equal(t, gateway.StatusPending, res.Status)
	assert.False(t, g.Open())
}

func TestGuardedIgnoresRejections(t *testing.T) {
	ctrl := gomock.NewController(t)
	next := mocks.NewMockGateway(ctrl)
	g := gateway.NewGuarded(next, circuit.New("momo", circuit.WithFailureThreshold(1)), nil)

	rejected := gateway.NewError(gateway.CategoryRejected, "request_to_pay", "bad payer", nil)
	next.EXPECT().RequestToPay(gomock.Any(), gomock.Any()).Return(rejected).Times(3)
	for i := 0; i < 3; i++ {
		err := g.RequestToPay(context.Background(), gateway.PayRequest{ReferenceID: "r"})
		require.ErrorIs(t, err, rejected)
		assert.True(t, gateway.IsRejected(err))
	}
	assert.False(t, g.Open())
}

func TestSandbox(t *testing.T) {
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	sb := gateway.NewSandbox(
		gateway.WithApproveAfter(10*time.Second),
		gateway.WithDeclined("250700000000"),
		gateway.WithSandboxClock(func() time.Time { return now }),
	)
	ctx := context.Background()

	require.NoError(t, sb.RequestToPay(ctx, gateway.PayRequest{ReferenceID: "ok", PayerPhone: "250788000000", Amount: 500}))
	require.NoError(t, sb.RequestToPay(ctx, gateway.PayRequest{ReferenceID: "no", PayerPhone: "250700000000", Amount: 500}))

	err := sb.RequestToPay(ctx, gateway.PayRequest{ReferenceID: "ok", PayerPhone: "250788000000", Amount: 500})
	assert.True(t, gateway.IsRejected(err))

	res, err := sb.Status(ctx, "ok")
	require.NoError(t, err)
	assert.Equal(t, gateway.StatusPending, res.Status)

	now = now.Add(10 * time.Second)
	res, err = sb.Status(ctx, "ok")
	require.NoError(t, err)
	assert.Equal(t, gateway.StatusSuccessful, res.Status)

	res, err = sb.Status(ctx, "no")
	require.NoError(t, err)
	assert.Equal(t, gateway.StatusFailed, res.Status)

	_, err = sb.Status(ctx, "unknown")
	assert.Equal(t, gateway.CategoryNotFound, gateway.CategoryOf(err))
}
