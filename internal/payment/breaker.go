package payment

import (
	"context"
	"time"

	"github.com/sony/gobreaker/v2"
)

// BreakerGateway wraps a Gateway with a circuit breaker so a struggling
// processor sheds load fast instead of tying up checkout requests.
type BreakerGateway struct {
	next Gateway
	cb   *gobreaker.CircuitBreaker[*Intent]
}

func NewBreakerGateway(next Gateway) *BreakerGateway {
	settings := gobreaker.Settings{
		Name:    "payment-gateway",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}
	return &BreakerGateway{
		next: next,
		cb:   gobreaker.NewCircuitBreaker[*Intent](settings),
	}
}

func (g *BreakerGateway) CreatePaymentIntent(ctx context.Context, amount int64, currency, orderID string) (*Intent, error) {
	return g.cb.Execute(func() (*Intent, error) {
		return g.next.CreatePaymentIntent(ctx, amount, currency, orderID)
	})
}
