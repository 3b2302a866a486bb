package order

import (
	"context"
	"time"

	"github.com/shopd/shopd/internal/clock"
	"go.uber.org/zap"
)

// Reaper cancels card orders whose payment never arrived and returns their
// reserved stock. Without it an abandoned checkout would hold inventory
// forever.
type Reaper struct {
	repo   *PostgresRepository
	clock  clock.Clock
	logger *zap.Logger
	tick   time.Duration
	ttl    time.Duration
}

func NewReaper(repo *PostgresRepository, clk clock.Clock, logger *zap.Logger, ttl time.Duration) *Reaper {
	return &Reaper{
		repo:   repo,
		clock:  clk,
		logger: logger,
		tick:   time.Minute,
		ttl:    ttl,
	}
}

func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.tick)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			r.sweep(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (r *Reaper) sweep(ctx context.Context) {
	cancelled, err := r.repo.CancelExpired(ctx, r.clock.Now().Add(-r.ttl))
	if err != nil {
		r.logger.Error("failed to cancel expired orders", zap.Error(err))
		return
	}
	for _, id := range cancelled {
		r.logger.Info("cancelled expired order, stock released", zap.String("order_id", id.String()))
	}
}
