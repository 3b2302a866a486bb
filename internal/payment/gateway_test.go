package payment

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopd/shopd/internal/domain"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type refuseAll struct{}

func (refuseAll) Refuse() bool { return true }

func TestSimulatedGateway_Success(t *testing.T) {
	sut := NewSimulatedGateway(nil)

	intent, err := sut.CreatePaymentIntent(context.Background(), 2000, "usd", "order-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2000), intent.Amount)
	assert.Equal(t, "usd", intent.Currency)
	assert.Contains(t, intent.ID, "pi_")
	assert.Contains(t, intent.ClientSecret, intent.ID)
}

func TestSimulatedGateway_UniqueIDs(t *testing.T) {
	sut := NewSimulatedGateway(nil)

	a, err := sut.CreatePaymentIntent(context.Background(), 100, "usd", "order-1")
	require.NoError(t, err)
	b, err := sut.CreatePaymentIntent(context.Background(), 100, "usd", "order-1")
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestSimulatedGateway_NonPositiveAmount(t *testing.T) {
	sut := NewSimulatedGateway(nil)

	_, err := sut.CreatePaymentIntent(context.Background(), 0, "usd", "order-1")
	require.ErrorIs(t, err, domain.ErrPaymentGateway)

	_, err = sut.CreatePaymentIntent(context.Background(), -50, "usd", "order-1")
	require.ErrorIs(t, err, domain.ErrPaymentGateway)
}

func TestSimulatedGateway_Refusal(t *testing.T) {
	sut := NewSimulatedGateway(refuseAll{})

	_, err := sut.CreatePaymentIntent(context.Background(), 2000, "usd", "order-1")
	require.ErrorIs(t, err, domain.ErrPaymentGateway)
}

type failingGateway struct {
	calls int
}

func (g *failingGateway) CreatePaymentIntent(context.Context, int64, string, string) (*Intent, error) {
	g.calls++
	return nil, fmt.Errorf("gateway timeout")
}

func TestBreakerGateway_OpensAfterConsecutiveFailures(t *testing.T) {
	inner := &failingGateway{}
	sut := NewBreakerGateway(inner)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := sut.CreatePaymentIntent(ctx, 100, "usd", "order-1")
		require.ErrorContains(t, err, "gateway timeout")
	}

	// Breaker is open now; the inner gateway must not be reached.
	_, err := sut.CreatePaymentIntent(ctx, 100, "usd", "order-1")
	require.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, 5, inner.calls)
}

func TestBreakerGateway_PassesThroughSuccess(t *testing.T) {
	sut := NewBreakerGateway(NewSimulatedGateway(nil))

	intent, err := sut.CreatePaymentIntent(context.Background(), 2000, "usd", "order-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2000), intent.Amount)
}
