// Package payment orchestrates bill purchases: client-side validation,
// customer identity checks, the wallet path, and the three-step card
// protocol of initialize, capture, and verify.
package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Pery99/billpay/backend"
	"github.com/Pery99/billpay/internal/util"
)

// Method selects how a purchase is funded.
type Method string

const (
	// MethodWallet debits the wallet in a single backend call.
	MethodWallet Method = "wallet"
	// MethodDirect runs the card-payment protocol through the widget.
	MethodDirect Method = "direct"
)

// Status is the lifecycle of one pending card payment. Transitions only
// move forward; cancelled is terminal from any non-terminal status.
type Status string

const (
	StatusInitialized Status = "initialized"
	StatusWidgetOpen  Status = "widget-open"
	StatusVerifying   Status = "verifying"
	StatusSucceeded   Status = "succeeded"
	StatusFailed      Status = "failed"
	StatusCancelled   Status = "cancelled"
)

var statusRank = map[Status]int{
	StatusInitialized: 1,
	StatusWidgetOpen:  2,
	StatusVerifying:   3,
	StatusSucceeded:   4,
	StatusFailed:      4,
	StatusCancelled:   4,
}

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed || s == StatusCancelled
}

// PendingPayment is one in-flight card-payment attempt. It lives only for
// the duration of the protocol; an interrupted payment is retried from
// scratch.
type PendingPayment struct {
	Reference string
	Amount    float64
	Service   ServiceType
	Details   ServiceDetails

	status Status
}

// Status returns the current lifecycle status.
func (p *PendingPayment) Status() Status {
	return p.status
}

func (p *PendingPayment) transition(to Status) error {
	if p.status.Terminal() {
		return fmt.Errorf("payment %s is already %s", p.Reference, p.status)
	}
	if to != StatusCancelled && p.status != "" && statusRank[to] <= statusRank[p.status] {
		return fmt.Errorf("payment %s cannot move from %s to %s", p.Reference, p.status, to)
	}
	p.status = to
	return nil
}

// Request is one purchase submission.
type Request struct {
	Amount  float64
	Details ServiceDetails
	Method  Method
}

// Receipt is the surfaced outcome of a completed protocol run.
// CustomerName is set when the service required an identity check.
type Receipt struct {
	Reference    string
	Status       Status
	Message      string
	CustomerName string
}

// ErrCustomerInvalid blocks submission when the identity check fails.
var ErrCustomerInvalid = errors.New("customer verification failed")

// Flow runs purchases against the backend and the payment widget.
type Flow struct {
	api    *backend.Client
	widget Widget
	log    zerolog.Logger
}

// NewFlow creates a payment flow. widget may be nil if only wallet
// payments are used.
func NewFlow(api *backend.Client, widget Widget, log zerolog.Logger) *Flow {
	return &Flow{api: api, widget: widget, log: log}
}

// VerifyCustomer runs the pre-submission identity check for services that
// require one. Malformed numbers are rejected locally before any request
// is made; ErrCustomerInvalid is returned when the backend flags the meter
// or smartcard as invalid.
func (f *Flow) VerifyCustomer(ctx context.Context, token string, details ServiceDetails) (*backend.Customer, error) {
	var (
		customer *backend.Customer
		err      error
	)
	switch d := details.(type) {
	case ElectricityDetails:
		if err := d.validateCustomerFields(); err != nil {
			return nil, err
		}
		customer, err = f.api.VerifyElectricity(ctx, token, d.Provider, d.Meter, d.MeterType)
	case TVDetails:
		if err := d.validateCustomerFields(); err != nil {
			return nil, err
		}
		customer, err = f.api.VerifyTVCard(ctx, token, d.Provider, d.Smartcard)
	default:
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if customer.Invalid {
		return nil, ErrCustomerInvalid
	}
	return customer, nil
}

// Pay validates and submits one purchase. Validation failures and failed
// customer checks return before any transaction is created.
func (f *Flow) Pay(ctx context.Context, token, email string, req Request) (*Receipt, error) {
	if err := ValidateAmount(req.Details.Service(), req.Amount); err != nil {
		return nil, err
	}
	if err := req.Details.Validate(); err != nil {
		return nil, err
	}
	var customerName string
	if req.Details.NeedsCustomerCheck() {
		customer, err := f.VerifyCustomer(ctx, token, req.Details)
		if err != nil {
			return nil, err
		}
		customerName = customer.Name
	}

	var (
		receipt *Receipt
		err     error
	)
	switch req.Method {
	case MethodWallet:
		receipt, err = f.payWallet(ctx, token, req)
	case MethodDirect:
		receipt, err = f.payDirect(ctx, token, email, req)
	default:
		return nil, &ValidationError{Field: "paymentMethod", Message: fmt.Sprintf("unknown payment method %q", req.Method)}
	}
	if err != nil {
		return nil, err
	}
	receipt.CustomerName = customerName
	return receipt, nil
}

// payWallet debits the wallet and finalizes in one call.
func (f *Flow) payWallet(ctx context.Context, token string, req Request) (*Receipt, error) {
	result, err := f.api.Purchase(ctx, token, string(req.Details.Service()), backend.PurchaseRequest{
		Amount:         req.Amount,
		Fields:         req.Details.Payload(),
		IdempotencyKey: uuid.NewString(),
	})
	if err != nil {
		return nil, err
	}

	receipt := &Receipt{Message: result.Message}
	if result.Succeeded() {
		receipt.Status = StatusSucceeded
	} else {
		receipt.Status = StatusFailed
	}
	return receipt, nil
}

// payDirect runs the three-step card protocol. Steps are strictly
// sequential; verify is reached only after a successful capture and is
// called at most once per reference.
func (f *Flow) payDirect(ctx context.Context, token, email string, req Request) (*Receipt, error) {
	if f.widget == nil {
		return nil, errors.New("no payment widget configured")
	}
	email = util.NormalizeEmail(email)

	// Step 1: initialize. Failure stops here; no automatic retry.
	ref, err := f.api.InitializeDirectPayment(ctx, token, backend.InitializePaymentRequest{
		Amount:         req.Amount,
		Type:           string(req.Details.Service()),
		Email:          email,
		ServiceDetails: req.Details.Payload(),
	})
	if err != nil {
		return nil, err
	}

	pending := &PendingPayment{
		Reference: ref.Reference,
		Amount:    req.Amount,
		Service:   req.Details.Service(),
		Details:   req.Details,
	}
	if err := pending.transition(StatusInitialized); err != nil {
		return nil, err
	}
	f.log.Debug().Str("reference", pending.Reference).Msg("payment initialized")

	// Step 2: capture through the external widget.
	if err := pending.transition(StatusWidgetOpen); err != nil {
		return nil, err
	}
	capture, err := f.widget.Open(ctx, Checkout{
		Email:       email,
		AmountMinor: MinorUnits(req.Amount),
		Reference:   pending.Reference,
	})
	if err != nil {
		// Widget machinery failed before the payer resolved anything.
		// The backend transaction stays pending; reconciliation is the
		// backend's concern.
		pending.transition(StatusCancelled)
		return nil, err
	}
	if capture.Cancelled {
		pending.transition(StatusCancelled)
		f.log.Info().Str("reference", pending.Reference).Msg("payment cancelled by payer")
		return &Receipt{Reference: pending.Reference, Status: StatusCancelled, Message: "Payment cancelled"}, nil
	}

	// Step 3: verify, exactly once.
	if err := pending.transition(StatusVerifying); err != nil {
		return nil, err
	}
	result, err := f.api.VerifyPayment(ctx, token, pending.Reference, string(pending.Service))
	if err != nil {
		pending.transition(StatusFailed)
		return &Receipt{Reference: pending.Reference, Status: StatusFailed, Message: err.Error()}, nil
	}
	if !result.Succeeded() {
		pending.transition(StatusFailed)
		msg := result.Message
		if msg == "" {
			msg = fmt.Sprintf("payment verification returned %q", result.Status)
		}
		return &Receipt{Reference: pending.Reference, Status: StatusFailed, Message: msg}, nil
	}

	pending.transition(StatusSucceeded)
	f.log.Info().Str("reference", pending.Reference).Msg("payment verified")
	return &Receipt{Reference: pending.Reference, Status: StatusSucceeded, Message: result.Message}, nil
}
