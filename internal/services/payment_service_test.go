package services

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/gerai/api/internal/domain"
	"github.com/gerai/api/internal/repositories"
)

func newTestPaymentService(t *testing.T, deps PaymentServiceDeps) PaymentService {
	t.Helper()
	if deps.Clock == nil {
		deps.Clock = func() time.Time { return time.Date(2025, 5, 6, 12, 0, 0, 0, time.UTC) }
	}
	if deps.Provider == nil {
		deps.Provider = &stubPaymentLinkProvider{}
	}
	if deps.Verifier == nil {
		deps.Verifier = &stubNotificationVerifier{}
	}
	service, err := NewPaymentService(deps)
	if err != nil {
		t.Fatalf("unexpected error constructing payment service: %v", err)
	}
	return service
}

func TestPaymentServiceCreateSessionStoresURL(t *testing.T) {
	pending := domain.Order{
		ID:          "order-1",
		UserID:      "user-1",
		OrderNumber: "ORD-20250506-0001",
		Status:      domain.OrderStatusPending,
		TotalAmount: 105000,
	}
	orders := &stubOrderRepository{
		findFunc: func(ctx context.Context, orderID string) (domain.Order, error) {
			return pending, nil
		},
		mutateFunc: func(ctx context.Context, orderID string, mutate repositories.OrderMutator) (domain.Order, error) {
			return applyMutator(pending, mutate)
		},
	}
	provider := &stubPaymentLinkProvider{
		createFunc: func(ctx context.Context, req PaymentLinkRequest) (PaymentLink, error) {
			if req.OrderNumber != "ORD-20250506-0001" || req.Amount != 105000 {
				t.Fatalf("unexpected link request %+v", req)
			}
			return PaymentLink{URL: "https://pay.example/session/xyz"}, nil
		},
	}

	service := newTestPaymentService(t, PaymentServiceDeps{Orders: orders, Provider: provider})

	order, err := service.CreatePaymentSession(context.Background(), CreatePaymentSessionCommand{
		Requester: Requester{UserID: "user-1"},
		OrderID:   "order-1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order.PaymentURL == nil || *order.PaymentURL != "https://pay.example/session/xyz" {
		t.Fatalf("expected stored payment url, got %v", order.PaymentURL)
	}
	if order.Status != domain.OrderStatusPending {
		t.Fatalf("payment session must not change status, got %s", order.Status)
	}
}

func TestPaymentServiceCreateSessionForbiddenForNonOwner(t *testing.T) {
	orders := &stubOrderRepository{
		findFunc: func(ctx context.Context, orderID string) (domain.Order, error) {
			return domain.Order{ID: orderID, UserID: "someone-else", Status: domain.OrderStatusPending}, nil
		},
	}
	service := newTestPaymentService(t, PaymentServiceDeps{Orders: orders})

	_, err := service.CreatePaymentSession(context.Background(), CreatePaymentSessionCommand{
		Requester: Requester{UserID: "user-1"},
		OrderID:   "order-1",
	})
	if !errors.Is(err, ErrPaymentForbidden) {
		t.Fatalf("expected ErrPaymentForbidden, got %v", err)
	}
}

func TestPaymentServiceCreateSessionRequiresPendingOrder(t *testing.T) {
	orders := &stubOrderRepository{
		findFunc: func(ctx context.Context, orderID string) (domain.Order, error) {
			return domain.Order{ID: orderID, UserID: "user-1", Status: domain.OrderStatusPaid}, nil
		},
	}
	service := newTestPaymentService(t, PaymentServiceDeps{Orders: orders})

	_, err := service.CreatePaymentSession(context.Background(), CreatePaymentSessionCommand{
		Requester: Requester{UserID: "user-1"},
		OrderID:   "order-1",
	})
	if !errors.Is(err, ErrPaymentInvalidInput) {
		t.Fatalf("expected ErrPaymentInvalidInput, got %v", err)
	}
}

func TestPaymentServiceNotificationSettlementMarksPaid(t *testing.T) {
	pending := domain.Order{
		ID:          "order-1",
		UserID:      "user-1",
		OrderNumber: "ORD-20250506-0001",
		Status:      domain.OrderStatusPending,
		TotalAmount: 105000,
	}
	events := &stubEventPublisher{}
	orders := &stubOrderRepository{
		findNumberFunc: func(ctx context.Context, orderNumber string) (domain.Order, error) {
			return pending, nil
		},
		mutateFunc: func(ctx context.Context, orderID string, mutate repositories.OrderMutator) (domain.Order, error) {
			return applyMutator(pending, mutate)
		},
	}
	service := newTestPaymentService(t, PaymentServiceDeps{Orders: orders, Events: events})

	order, err := service.ProcessNotification(context.Background(), PaymentNotificationCommand{
		OrderNumber:       "ORD-20250506-0001",
		TransactionStatus: "settlement",
		StatusCode:        "200",
		GrossAmount:       "105000.00",
		SignatureKey:      "sig",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order.Status != domain.OrderStatusPaid {
		t.Fatalf("expected PAID, got %s", order.Status)
	}
	if len(events.published) != 1 || events.published[0].NewStatus != string(domain.OrderStatusPaid) {
		t.Fatalf("expected status change event to PAID, got %+v", events.published)
	}
}

func TestPaymentServiceNotificationReplayIsIdempotent(t *testing.T) {
	paid := domain.Order{
		ID:          "order-1",
		OrderNumber: "ORD-20250506-0001",
		Status:      domain.OrderStatusPaid,
	}
	events := &stubEventPublisher{}
	orders := &stubOrderRepository{
		findNumberFunc: func(ctx context.Context, orderNumber string) (domain.Order, error) {
			return paid, nil
		},
		mutateFunc: func(ctx context.Context, orderID string, mutate repositories.OrderMutator) (domain.Order, error) {
			t.Fatalf("replay must not reach the mutator")
			return domain.Order{}, nil
		},
	}
	service := newTestPaymentService(t, PaymentServiceDeps{Orders: orders, Events: events})

	order, err := service.ProcessNotification(context.Background(), PaymentNotificationCommand{
		OrderNumber:       "ORD-20250506-0001",
		TransactionStatus: "settlement",
		StatusCode:        "200",
		GrossAmount:       "105000.00",
		SignatureKey:      "sig",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order.Status != domain.OrderStatusPaid {
		t.Fatalf("expected PAID, got %s", order.Status)
	}
	if len(events.published) != 0 {
		t.Fatalf("replay must not publish events, got %+v", events.published)
	}
}

func TestPaymentServiceNotificationExpireCancels(t *testing.T) {
	pending := domain.Order{
		ID:          "order-1",
		OrderNumber: "ORD-20250506-0001",
		Status:      domain.OrderStatusPending,
	}
	orders := &stubOrderRepository{
		findNumberFunc: func(ctx context.Context, orderNumber string) (domain.Order, error) {
			return pending, nil
		},
		mutateFunc: func(ctx context.Context, orderID string, mutate repositories.OrderMutator) (domain.Order, error) {
			return applyMutator(pending, mutate)
		},
	}
	service := newTestPaymentService(t, PaymentServiceDeps{Orders: orders})

	order, err := service.ProcessNotification(context.Background(), PaymentNotificationCommand{
		OrderNumber:       "ORD-20250506-0001",
		TransactionStatus: "expire",
		StatusCode:        "407",
		GrossAmount:       "105000.00",
		SignatureKey:      "sig",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order.Status != domain.OrderStatusCancelled {
		t.Fatalf("expected CANCELLED, got %s", order.Status)
	}
}

func TestPaymentServiceNotificationPendingIsAcknowledged(t *testing.T) {
	pending := domain.Order{ID: "order-1", OrderNumber: "ORD-20250506-0001", Status: domain.OrderStatusPending}
	orders := &stubOrderRepository{
		findNumberFunc: func(ctx context.Context, orderNumber string) (domain.Order, error) {
			return pending, nil
		},
	}
	service := newTestPaymentService(t, PaymentServiceDeps{Orders: orders})

	order, err := service.ProcessNotification(context.Background(), PaymentNotificationCommand{
		OrderNumber:       "ORD-20250506-0001",
		TransactionStatus: "pending",
		StatusCode:        "201",
		GrossAmount:       "105000.00",
		SignatureKey:      "sig",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order.Status != domain.OrderStatusPending {
		t.Fatalf("expected order unchanged, got %s", order.Status)
	}
}

func TestPaymentServiceNotificationUnknownStatusRejected(t *testing.T) {
	service := newTestPaymentService(t, PaymentServiceDeps{Orders: &stubOrderRepository{}})

	_, err := service.ProcessNotification(context.Background(), PaymentNotificationCommand{
		OrderNumber:       "ORD-20250506-0001",
		TransactionStatus: "refund_requested",
		StatusCode:        "200",
		GrossAmount:       "105000.00",
		SignatureKey:      "sig",
	})
	if !errors.Is(err, ErrPaymentInvalidInput) {
		t.Fatalf("expected ErrPaymentInvalidInput, got %v", err)
	}
}

func TestPaymentServiceNotificationBadSignatureRejected(t *testing.T) {
	service := newTestPaymentService(t, PaymentServiceDeps{
		Orders:   &stubOrderRepository{},
		Verifier: &stubNotificationVerifier{err: errors.New("signature mismatch")},
	})

	_, err := service.ProcessNotification(context.Background(), PaymentNotificationCommand{
		OrderNumber:       "ORD-20250506-0001",
		TransactionStatus: "settlement",
		StatusCode:        "200",
		GrossAmount:       "105000.00",
		SignatureKey:      "bad",
	})
	if !errors.Is(err, ErrPaymentInvalidSignature) {
		t.Fatalf("expected ErrPaymentInvalidSignature, got %v", err)
	}
}

func TestPaymentServiceNotificationSettlementOnCancelledConflicts(t *testing.T) {
	cancelled := domain.Order{ID: "order-1", OrderNumber: "ORD-20250506-0001", Status: domain.OrderStatusCancelled}
	orders := &stubOrderRepository{
		findNumberFunc: func(ctx context.Context, orderNumber string) (domain.Order, error) {
			return cancelled, nil
		},
		mutateFunc: func(ctx context.Context, orderID string, mutate repositories.OrderMutator) (domain.Order, error) {
			return applyMutator(cancelled, mutate)
		},
	}
	service := newTestPaymentService(t, PaymentServiceDeps{Orders: orders})

	_, err := service.ProcessNotification(context.Background(), PaymentNotificationCommand{
		OrderNumber:       "ORD-20250506-0001",
		TransactionStatus: "settlement",
		StatusCode:        "200",
		GrossAmount:       "105000.00",
		SignatureKey:      "sig",
	})
	if !errors.Is(err, ErrPaymentConflict) {
		t.Fatalf("expected ErrPaymentConflict, got %v", err)
	}
}
