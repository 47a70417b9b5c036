package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"

	"github.com/gerai/api/internal/services"
)

type stripeSessionAPI interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

// StripeProviderConfig configures the StripeProvider.
type StripeProviderConfig struct {
	APIKey     string
	SuccessURL string
	Logger     Logger
	Sessions   stripeSessionAPI
}

// StripeProvider creates hosted payment pages through Stripe Checkout. It is
// the card-network alternative to the Snap gateway; notification verification
// stays with Snap because the inbound webhook speaks its vocabulary.
type StripeProvider struct {
	sessions   stripeSessionAPI
	successURL string
	logger     Logger
}

var _ Provider = (*StripeProvider)(nil)

// NewStripeProvider constructs a Stripe gateway adapter.
func NewStripeProvider(cfg StripeProviderConfig) (*StripeProvider, error) {
	sessions := cfg.Sessions
	if sessions == nil {
		apiKey := strings.TrimSpace(cfg.APIKey)
		if apiKey == "" {
			return nil, errors.New("stripe: api key is required")
		}
		sc := client.New(apiKey, nil)
		sessions = sc.CheckoutSessions
	}

	logger := cfg.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &StripeProvider{
		sessions:   sessions,
		successURL: strings.TrimSpace(cfg.SuccessURL),
		logger:     logger,
	}, nil
}

// CreatePaymentLink creates a Stripe Checkout session covering the order total
// as a single line item.
func (p *StripeProvider) CreatePaymentLink(ctx context.Context, req services.PaymentLinkRequest) (services.PaymentLink, error) {
	if p == nil || p.sessions == nil {
		return services.PaymentLink{}, errors.New("stripe: provider not initialised")
	}
	orderNumber := strings.TrimSpace(req.OrderNumber)
	if orderNumber == "" {
		return services.PaymentLink{}, errors.New("stripe: order number is required")
	}
	if req.Amount <= 0 {
		return services.PaymentLink{}, fmt.Errorf("stripe: amount must be positive, got %d", req.Amount)
	}

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		ClientReferenceID: stripe.String(orderNumber),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Quantity: stripe.Int64(1),
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(string(stripe.CurrencyIDR)),
					UnitAmount: stripe.Int64(req.Amount),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String("Order " + orderNumber),
					},
				},
			},
		},
	}
	if p.successURL != "" {
		params.SuccessURL = stripe.String(p.successURL)
	}
	params.Context = ctx

	session, err := p.sessions.New(params)
	if err != nil {
		p.logger(ctx, "stripe.session_failed", map[string]any{
			"orderNumber": orderNumber,
			"error":       err.Error(),
		})
		return services.PaymentLink{}, fmt.Errorf("stripe: create checkout session: %w", err)
	}
	if session == nil || session.URL == "" {
		return services.PaymentLink{}, errors.New("stripe: session missing redirect url")
	}

	p.logger(ctx, "stripe.session_created", map[string]any{
		"orderNumber": orderNumber,
		"sessionId":   session.ID,
	})
	return services.PaymentLink{URL: session.URL, Token: session.ID}, nil
}
