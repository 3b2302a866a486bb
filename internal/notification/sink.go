package notification

import "context"

// Sink delivers transactional messages to users. Implementations are
// constructed explicitly and injected; nothing in this package keeps global
// transporter state.
type Sink interface {
	SendPasswordReset(ctx context.Context, email, resetURL string) error
	SendOrderPaid(ctx context.Context, userID, orderID string) error
}
