package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/gerai/api/internal/domain"
	"github.com/gerai/api/internal/repositories"
)

var (
	errPaymentOrdersRequired   = errors.New("payment service: order repository is required")
	errPaymentProviderRequired = errors.New("payment service: payment link provider is required")
	errPaymentVerifierRequired = errors.New("payment service: notification verifier is required")
	errPaymentClockRequired    = errors.New("payment service: clock is required")
)

// ErrPaymentInvalidInput indicates the caller supplied invalid input.
var ErrPaymentInvalidInput = errors.New("payment service: invalid input")

// ErrPaymentNotFound indicates the referenced order does not exist.
var ErrPaymentNotFound = errors.New("payment service: not found")

// ErrPaymentForbidden indicates the caller does not own the referenced order.
var ErrPaymentForbidden = errors.New("payment service: forbidden")

// ErrPaymentInvalidSignature indicates the notification signature does not match.
var ErrPaymentInvalidSignature = errors.New("payment service: invalid signature")

// ErrPaymentConflict indicates the notification maps to a transition the order cannot make.
var ErrPaymentConflict = errors.New("payment service: conflict")

// ErrPaymentUnavailable indicates the payment service cannot fulfil the request due to backend issues.
var ErrPaymentUnavailable = errors.New("payment service: unavailable")

// PaymentServiceDeps wires the order repository and gateway collaborators.
type PaymentServiceDeps struct {
	Orders   repositories.OrderRepository
	Provider PaymentLinkProvider
	Verifier NotificationVerifier
	Events   OrderEventPublisher
	Clock    func() time.Time
	Logger   func(context.Context, string, map[string]any)
}

type paymentService struct {
	orders   repositories.OrderRepository
	provider PaymentLinkProvider
	verifier NotificationVerifier
	events   OrderEventPublisher
	now      func() time.Time
	logger   func(context.Context, string, map[string]any)
}

// NewPaymentService constructs a PaymentService enforcing dependency validation.
func NewPaymentService(deps PaymentServiceDeps) (PaymentService, error) {
	if deps.Orders == nil {
		return nil, errPaymentOrdersRequired
	}
	if deps.Provider == nil {
		return nil, errPaymentProviderRequired
	}
	if deps.Verifier == nil {
		return nil, errPaymentVerifierRequired
	}
	if deps.Clock == nil {
		return nil, errPaymentClockRequired
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &paymentService{
		orders:   deps.Orders,
		provider: deps.Provider,
		verifier: deps.Verifier,
		events:   deps.Events,
		now:      func() time.Time { return deps.Clock().UTC() },
		logger:   logger,
	}, nil
}

// CreatePaymentSession asks the gateway for a hosted payment page and stores
// the URL on the order. The order status is not touched; payment initiation is
// not payment confirmation.
func (s *paymentService) CreatePaymentSession(ctx context.Context, cmd CreatePaymentSessionCommand) (Order, error) {
	if s == nil || s.orders == nil || s.provider == nil {
		return Order{}, ErrPaymentUnavailable
	}
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return Order{}, fmt.Errorf("%w: order id is required", ErrPaymentInvalidInput)
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return Order{}, s.translateRepoError(err)
	}
	if !cmd.Requester.Admin && order.UserID != cmd.Requester.UserID {
		return Order{}, fmt.Errorf("%w: order belongs to another user", ErrPaymentForbidden)
	}
	if order.Status != domain.OrderStatusPending {
		return Order{}, fmt.Errorf("%w: order %s is %s, payment sessions require PENDING", ErrPaymentInvalidInput, order.ID, order.Status)
	}

	link, err := s.provider.CreatePaymentLink(ctx, PaymentLinkRequest{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		Amount:      order.TotalAmount,
		Method:      order.PaymentMethod,
		CustomerID:  order.UserID,
	})
	if err != nil {
		s.logger(ctx, "payment.session_failed", map[string]any{
			"orderId": order.ID,
			"error":   err.Error(),
		})
		return Order{}, ErrPaymentUnavailable
	}

	updated, err := s.orders.Mutate(ctx, order.ID, func(current domain.Order) (domain.Order, error) {
		url := link.URL
		current.PaymentURL = &url
		current.UpdatedAt = s.now()
		return current, nil
	})
	if err != nil {
		return Order{}, s.translateRepoError(err)
	}

	s.logger(ctx, "payment.session_created", map[string]any{
		"orderId":     updated.ID,
		"orderNumber": updated.OrderNumber,
	})
	return updated, nil
}

// ProcessNotification authenticates and applies an inbound gateway status
// notification. Replaying the same notification is idempotent: an order that
// already carries the mapped status is returned unchanged.
func (s *paymentService) ProcessNotification(ctx context.Context, cmd PaymentNotificationCommand) (Order, error) {
	if s == nil || s.orders == nil || s.verifier == nil {
		return Order{}, ErrPaymentUnavailable
	}
	orderNumber := strings.TrimSpace(cmd.OrderNumber)
	if orderNumber == "" {
		return Order{}, fmt.Errorf("%w: order number is required", ErrPaymentInvalidInput)
	}

	if err := s.verifier.VerifyNotification(orderNumber, cmd.StatusCode, cmd.GrossAmount, cmd.SignatureKey); err != nil {
		s.logger(ctx, "payment.notification_rejected", map[string]any{
			"orderNumber": orderNumber,
			"error":       err.Error(),
		})
		return Order{}, ErrPaymentInvalidSignature
	}

	target, acknowledge, err := mapNotificationStatus(cmd.TransactionStatus, cmd.FraudStatus)
	if err != nil {
		return Order{}, err
	}

	order, err := s.orders.FindByOrderNumber(ctx, orderNumber)
	if err != nil {
		return Order{}, s.translateRepoError(err)
	}
	if acknowledge {
		// "pending" restates the current state; nothing to apply.
		return order, nil
	}
	if order.Status == target {
		return order, nil
	}

	var previous domain.OrderStatus
	updated, err := s.orders.Mutate(ctx, order.ID, func(current domain.Order) (domain.Order, error) {
		if current.Status == target {
			return current, nil
		}
		if !canTransition(current.Status, target) {
			return domain.Order{}, fmt.Errorf("%w: %s -> %s", ErrPaymentConflict, current.Status, target)
		}
		previous = current.Status
		current.Status = target
		current.UpdatedAt = s.now()
		return current, nil
	})
	if err != nil {
		if errors.Is(err, ErrPaymentConflict) {
			return Order{}, err
		}
		return Order{}, s.translateRepoError(err)
	}

	if previous != "" && previous != updated.Status {
		s.logger(ctx, "payment.notification_applied", map[string]any{
			"orderNumber": orderNumber,
			"from":        string(previous),
			"to":          string(updated.Status),
			"paymentType": cmd.PaymentType,
		})
		s.publishStatusChanged(ctx, updated, previous)
	}
	return updated, nil
}

// mapNotificationStatus translates the gateway's transaction vocabulary into
// the order lifecycle. Unknown values are rejected rather than defaulted so
// integration bugs do not masquerade as pending payments.
func mapNotificationStatus(transactionStatus, fraudStatus string) (domain.OrderStatus, bool, error) {
	switch strings.ToLower(strings.TrimSpace(transactionStatus)) {
	case "capture":
		if fraud := strings.ToLower(strings.TrimSpace(fraudStatus)); fraud != "" && fraud != "accept" {
			return "", false, fmt.Errorf("%w: capture with fraud status %q", ErrPaymentInvalidInput, fraudStatus)
		}
		return domain.OrderStatusPaid, false, nil
	case "settlement", "success":
		return domain.OrderStatusPaid, false, nil
	case "cancel", "deny", "expire":
		return domain.OrderStatusCancelled, false, nil
	case "pending":
		return "", true, nil
	default:
		return "", false, fmt.Errorf("%w: unknown transaction status %q", ErrPaymentInvalidInput, transactionStatus)
	}
}

func (s *paymentService) publishStatusChanged(ctx context.Context, order domain.Order, previous domain.OrderStatus) {
	if s.events == nil {
		return
	}
	if _, err := s.events.PublishOrderEvent(ctx, OrderEventMessage{
		EventType:      "order.status_changed",
		OrderID:        order.ID,
		OrderNumber:    order.OrderNumber,
		UserID:         order.UserID,
		PreviousStatus: string(previous),
		NewStatus:      string(order.Status),
		TotalAmount:    order.TotalAmount,
		OccurredAt:     s.now(),
	}); err != nil {
		s.logger(ctx, "payment.event_publish_failed", map[string]any{
			"orderId": order.ID,
			"error":   err.Error(),
		})
	}
}

func (s *paymentService) translateRepoError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return ErrPaymentNotFound
		case repoErr.IsConflict():
			return ErrPaymentConflict
		case repoErr.IsUnavailable():
			return ErrPaymentUnavailable
		}
		return ErrPaymentUnavailable
	}
	return ErrPaymentUnavailable
}
