package payment

import (
	"context"
	"math"
)

// Checkout is the handoff to the external payment widget. AmountMinor is in
// minor currency units (kobo): the ×100 conversion is a hard contract with
// the widget provider.
type Checkout struct {
	Email       string
	AmountMinor int64
	Reference   string
}

// CaptureResult is how the widget resolved: a successful card capture, or a
// cancellation by the payer. Cancellation is not a failure.
type CaptureResult struct {
	Reference string
	Cancelled bool
}

// Widget is the external card-capture collaborator. Open blocks until the
// payer completes or abandons the checkout, or ctx is cancelled.
type Widget interface {
	Open(ctx context.Context, co Checkout) (CaptureResult, error)
}

// MinorUnits converts a major-unit amount to minor units for the widget.
func MinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
