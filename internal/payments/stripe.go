// Package payments holds and settles card fares through Stripe PaymentIntents.
package payments

import (
	"context"
	"fmt"
	"math"

	stripe "github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/paymentintent"
)

// Gateway is the hold/capture/cancel flow used by the ride lifecycle.
type Gateway interface {
	Hold(ctx context.Context, amount float64, rideID int64) (string, error)
	Capture(ctx context.Context, paymentIntentID string) error
	Cancel(ctx context.Context, paymentIntentID string) error
}

// StripeClient is a thin wrapper around stripe-go for PaymentIntent hold/capture/cancel flows.
type StripeClient struct {
	intents  paymentintent.Client
	currency string
}

func NewStripeClient(apiKey, currency string) *StripeClient {
	if currency == "" {
		currency = string(stripe.CurrencyUSD)
	}
	return &StripeClient{
		intents:  paymentintent.Client{B: stripe.GetBackend(stripe.APIBackend), Key: apiKey},
		currency: currency,
	}
}

// Cents converts a fare to the smallest currency unit.
func Cents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// Hold creates a PaymentIntent with capture_method=manual to hold funds.
// It returns the PaymentIntent ID on success.
func (s *StripeClient) Hold(ctx context.Context, amount float64, rideID int64) (string, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(Cents(amount)),
		Currency: stripe.String(s.currency),
	}
	params.Context = ctx
	params.CaptureMethod = stripe.String(string(stripe.PaymentIntentCaptureMethodManual))
	params.AddMetadata("ride_id", fmt.Sprint(rideID))
	pi, err := s.intents.New(params)
	if err != nil {
		return "", err
	}
	return pi.ID, nil
}

// Capture finalizes a previously-held PaymentIntent.
func (s *StripeClient) Capture(ctx context.Context, paymentIntentID string) error {
	params := &stripe.PaymentIntentCaptureParams{}
	params.Context = ctx
	_, err := s.intents.Capture(paymentIntentID, params)
	return err
}

// Cancel releases the hold on a PaymentIntent.
func (s *StripeClient) Cancel(ctx context.Context, paymentIntentID string) error {
	params := &stripe.PaymentIntentCancelParams{}
	params.Context = ctx
	_, err := s.intents.Cancel(paymentIntentID, params)
	return err
}
