package payment

import "context"

// Intent is the gateway's handle for an in-progress charge attempt. The
// client secret goes back to the caller so the frontend can confirm the
// charge directly with the processor.
type Intent struct {
	ID           string
	ClientSecret string
	Amount       int64 // minor currency units
	Currency     string
}

// Gateway is the narrow contract the order engine depends on. Protocol
// details of any concrete processor stay behind this interface.
type Gateway interface {
	// CreatePaymentIntent opens a charge attempt for amount minor units,
	// tagged with the order it belongs to.
	CreatePaymentIntent(ctx context.Context, amount int64, currency, orderID string) (*Intent, error)
}
