package payment

import (
	"context"
	"errors"
	"fmt"

	"mindwell/models"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/paymentintent"
)

// ErrNoTransactionRef is returned when a session carries no external
// transaction reference to query.
var ErrNoTransactionRef = errors.New("no transaction reference recorded")

// PaymentGateway exposes the external gateway's authoritative view of a
// transaction. The reconciliation engine depends only on this interface.
type PaymentGateway interface {
	FetchPaymentFacts(ctx context.Context, transactionRef string) (*models.ExternalPaymentFacts, error)
}

// StripeGateway implements PaymentGateway over Stripe PaymentIntents.
type StripeGateway struct{}

// NewStripeGateway creates a gateway bound to the globally configured
// Stripe key (set in main from config).
func NewStripeGateway() *StripeGateway {
	return &StripeGateway{}
}

// FetchPaymentFacts retrieves the PaymentIntent for the stored reference.
func (g *StripeGateway) FetchPaymentFacts(ctx context.Context, transactionRef string) (*models.ExternalPaymentFacts, error) {
	if transactionRef == "" {
		return nil, ErrNoTransactionRef
	}

	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := paymentintent.Get(transactionRef, params)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch payment intent %s: %w", transactionRef, err)
	}

	facts := &models.ExternalPaymentFacts{
		TransactionRef: pi.ID,
		Amount:         pi.Amount,
		Currency:       string(pi.Currency),
		Status:         mapIntentStatus(pi.Status),
		ResultCode:     string(pi.Status),
	}
	if pi.LastPaymentError != nil {
		facts.ResultCode = string(pi.LastPaymentError.Code)
		facts.ResultDesc = pi.LastPaymentError.Msg
	}
	return facts, nil
}

// mapIntentStatus folds Stripe's intent statuses into the local vocabulary.
func mapIntentStatus(status stripe.PaymentIntentStatus) models.PaymentStatus {
	switch status {
	case stripe.PaymentIntentStatusSucceeded:
		return models.PaymentPaid
	case stripe.PaymentIntentStatusProcessing:
		return models.PaymentProcessing
	case stripe.PaymentIntentStatusCanceled:
		return models.PaymentFailed
	case stripe.PaymentIntentStatusRequiresPaymentMethod,
		stripe.PaymentIntentStatusRequiresConfirmation,
		stripe.PaymentIntentStatusRequiresAction,
		stripe.PaymentIntentStatusRequiresCapture:
		return models.PaymentPending
	default:
		return models.PaymentPending
	}
}
