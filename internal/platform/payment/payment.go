// Package payment creates card payment intents with the configured processor.
package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// ErrNotConfigured is returned by the Unconfigured gateway.
var ErrNotConfigured = errors.New("payment processor is not configured")

// Gateway creates a payment intent and returns the client secret the browser
// uses to complete the charge.
type Gateway interface {
	CreateIntent(ctx context.Context, amountCents int64, currency string) (string, error)
}

type StripeGateway struct {
	api *client.API
}

func NewStripeGateway(secretKey string) *StripeGateway {
	api := &client.API{}
	api.Init(secretKey, nil)
	return &StripeGateway{api: api}
}

func (g *StripeGateway) CreateIntent(ctx context.Context, amountCents int64, currency string) (string, error) {
	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(amountCents),
		Currency:           stripe.String(currency),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
	}
	params.Context = ctx

	pi, err := g.api.PaymentIntents.New(params)
	if err != nil {
		return "", fmt.Errorf("create payment intent: %w", err)
	}
	return pi.ClientSecret, nil
}

// Unconfigured refuses every request. It stands in when no processor key is set.
type Unconfigured struct{}

func (Unconfigured) CreateIntent(context.Context, int64, string) (string, error) {
	return "", ErrNotConfigured
}
