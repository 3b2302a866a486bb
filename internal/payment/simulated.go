package payment

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/shopd/shopd/internal/domain"
)

// SimulatedGateway stands in for a real processor in development and tests.
// Failure injection is pluggable so tests can force refusals.
type SimulatedGateway struct {
	decide Decider
}

// Decider reports whether the next gateway call should be refused.
type Decider interface {
	Refuse() bool
}

type alwaysAccept struct{}

func (alwaysAccept) Refuse() bool { return false }

func NewSimulatedGateway(decide Decider) *SimulatedGateway {
	if decide == nil {
		decide = alwaysAccept{}
	}
	return &SimulatedGateway{decide: decide}
}

func (g *SimulatedGateway) CreatePaymentIntent(_ context.Context, amount int64, currency, orderID string) (*Intent, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", domain.ErrPaymentGateway)
	}
	if g.decide.Refuse() {
		return nil, fmt.Errorf("%w: charge refused", domain.ErrPaymentGateway)
	}

	id := "pi_" + randomHex(12)
	return &Intent{
		ID:           id,
		ClientSecret: id + "_secret_" + randomHex(12),
		Amount:       amount,
		Currency:     currency,
	}, nil
}

func randomHex(n int) string {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		panic(err) // crypto/rand never fails on supported platforms
	}
	return hex.EncodeToString(buf)
}
