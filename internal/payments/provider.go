package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gerai/api/internal/services"
)

// Logger defines the logging contract for payment provider operations.
type Logger func(ctx context.Context, event string, fields map[string]any)

// ErrUnsupportedProvider is returned when the manager cannot locate a provider.
var ErrUnsupportedProvider = errors.New("payments: unsupported provider")

// ErrNotificationsUnsupported is returned when the active provider cannot
// authenticate inbound notifications.
var ErrNotificationsUnsupported = errors.New("payments: provider does not verify notifications")

// Provider is the contract gateway adapters implement.
type Provider interface {
	CreatePaymentLink(ctx context.Context, req services.PaymentLinkRequest) (services.PaymentLink, error)
}

// Manager routes payment operations to the configured gateway adapter. It
// satisfies both services.PaymentLinkProvider and services.NotificationVerifier.
type Manager struct {
	providers map[string]Provider
	active    string
}

var (
	_ services.PaymentLinkProvider  = (*Manager)(nil)
	_ services.NotificationVerifier = (*Manager)(nil)
)

// NewManager constructs a Manager over the supplied providers with the named
// provider active.
func NewManager(providers map[string]Provider, active string) (*Manager, error) {
	if len(providers) == 0 {
		return nil, errors.New("payments: at least one provider is required")
	}
	registered := make(map[string]Provider, len(providers))
	for key, provider := range providers {
		name := strings.ToLower(strings.TrimSpace(key))
		if name == "" || provider == nil {
			return nil, fmt.Errorf("payments: invalid provider registration for key %q", key)
		}
		registered[name] = provider
	}

	active = strings.ToLower(strings.TrimSpace(active))
	if active == "" && len(registered) == 1 {
		for name := range registered {
			active = name
		}
	}
	if _, ok := registered[active]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, active)
	}

	return &Manager{providers: registered, active: active}, nil
}

// Active names the provider in use.
func (m *Manager) Active() string {
	if m == nil {
		return ""
	}
	return m.active
}

func (m *Manager) provider() (Provider, error) {
	if m == nil || len(m.providers) == 0 {
		return nil, errors.New("payments: manager not initialised")
	}
	provider, ok := m.providers[m.active]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedProvider, m.active)
	}
	return provider, nil
}

// CreatePaymentLink delegates to the active provider.
func (m *Manager) CreatePaymentLink(ctx context.Context, req services.PaymentLinkRequest) (services.PaymentLink, error) {
	provider, err := m.provider()
	if err != nil {
		return services.PaymentLink{}, err
	}
	return provider.CreatePaymentLink(ctx, req)
}

// VerifyNotification delegates to the active provider when it supports
// notification authentication.
func (m *Manager) VerifyNotification(orderNumber, statusCode, grossAmount, signatureKey string) error {
	provider, err := m.provider()
	if err != nil {
		return err
	}
	verifier, ok := provider.(services.NotificationVerifier)
	if !ok {
		return fmt.Errorf("%w: %q", ErrNotificationsUnsupported, m.active)
	}
	return verifier.VerifyNotification(orderNumber, statusCode, grossAmount, signatureKey)
}
