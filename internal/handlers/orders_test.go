package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/gerai/api/internal/domain"
	"github.com/gerai/api/internal/platform/auth"
	"github.com/gerai/api/internal/services"
)

func newOrderRouter(checkout services.CheckoutService, orders services.OrderService, payments services.PaymentService) chi.Router {
	r := chi.NewRouter()
	NewOrderHandlers(nil, checkout, orders, payments, nil).Routes(r)
	return r
}

func sampleOrder(status domain.OrderStatus) domain.Order {
	now := time.Date(2025, 5, 6, 12, 0, 0, 0, time.UTC)
	return domain.Order{
		ID:          "order-1",
		UserID:      "user-1",
		OrderNumber: "ORD-20250506-0001",
		Status:      status,
		Items: []domain.OrderItem{
			{ProductID: "prod-1", ProductName: "Kopi Gayo", Quantity: 2, UnitPrice: 45000},
		},
		Subtotal:      90000,
		DeliveryFee:   domain.DeliveryFee,
		TotalAmount:   90000 + domain.DeliveryFee,
		PaymentMethod: domain.PaymentMethodBankTransfer,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func TestCheckoutPlacesOrder(t *testing.T) {
	checkout := &stubCheckoutService{
		checkoutFunc: func(ctx context.Context, cmd services.CheckoutCommand) (domain.Order, error) {
			if cmd.UserID != "user-1" {
				t.Fatalf("unexpected user %q", cmd.UserID)
			}
			if cmd.PaymentMethod != domain.PaymentMethodBankTransfer {
				t.Fatalf("unexpected method %q", cmd.PaymentMethod)
			}
			if cmd.Shipping.City != "Jakarta" {
				t.Fatalf("unexpected shipping %+v", cmd.Shipping)
			}
			want := []services.CheckoutItem{
				{ProductID: "prod-1", Quantity: 2},
				{ProductID: "prod-2", Quantity: 1},
			}
			if len(cmd.Items) != len(want) {
				t.Fatalf("expected %d items, got %+v", len(want), cmd.Items)
			}
			for i, item := range want {
				if cmd.Items[i] != item {
					t.Fatalf("item %d: expected %+v, got %+v", i, item, cmd.Items[i])
				}
			}
			return sampleOrder(domain.OrderStatusPending), nil
		},
	}

	body := `{
		"items": [
			{"productId": "prod-1", "quantity": 2},
			{"productId": "prod-2", "quantity": 1}
		],
		"shippingAddress": "Jl. Sudirman No. 10, Blok C",
		"shippingCity": "Jakarta",
		"shippingPostalCode": "12190",
		"shippingPhone": "081234567890",
		"paymentMethod": "bank_transfer"
	}`
	req := httptest.NewRequest(http.MethodPost, "/checkout", strings.NewReader(body))
	req = withTestIdentity(req, "user-1", auth.RoleUser)
	rec := doRequest(newOrderRouter(checkout, &stubOrderService{}, &stubPaymentService{}), req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var envelope struct {
		Data    orderPayload `json:"data"`
		Message string       `json:"message"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Status != "PENDING" {
		t.Fatalf("expected PENDING, got %q", envelope.Data.Status)
	}
	if !strings.Contains(envelope.Message, "ORD-20250506-0001") {
		t.Fatalf("expected order number in message, got %q", envelope.Message)
	}
}

func TestCheckoutWithoutItems(t *testing.T) {
	checkout := &stubCheckoutService{
		checkoutFunc: func(ctx context.Context, cmd services.CheckoutCommand) (domain.Order, error) {
			return domain.Order{}, services.ErrCheckoutNoItems
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/checkout", strings.NewReader(`{"paymentMethod":"qris"}`))
	req = withTestIdentity(req, "user-1", auth.RoleUser)
	rec := doRequest(newOrderRouter(checkout, &stubOrderService{}, &stubPaymentService{}), req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "no_items") {
		t.Fatalf("expected no_items code, got %s", rec.Body.String())
	}
}

func TestListOrdersPassesStatusFilter(t *testing.T) {
	orders := &stubOrderService{
		listFunc: func(ctx context.Context, query services.ListOrdersQuery) (domain.Page[domain.Order], error) {
			if query.Status == nil || *query.Status != domain.OrderStatusPaid {
				t.Fatalf("expected PAID filter, got %v", query.Status)
			}
			return domain.Page[domain.Order]{Page: 1, Limit: 20, TotalPages: 1}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/?status=paid", nil)
	req = withTestIdentity(req, "user-1", auth.RoleUser)
	rec := doRequest(newOrderRouter(&stubCheckoutService{}, orders, &stubPaymentService{}), req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestCancelOrderForbidden(t *testing.T) {
	orders := &stubOrderService{
		cancelFunc: func(ctx context.Context, cmd services.CancelOrderCommand) (domain.Order, error) {
			return domain.Order{}, services.ErrOrderForbidden
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/order-1/cancel", nil)
	req = withTestIdentity(req, "user-1", auth.RoleUser)
	rec := doRequest(newOrderRouter(&stubCheckoutService{}, orders, &stubPaymentService{}), req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestCreatePaymentSession(t *testing.T) {
	url := "https://pay.example/session/abc"
	payments := &stubPaymentService{
		sessionFunc: func(ctx context.Context, cmd services.CreatePaymentSessionCommand) (domain.Order, error) {
			if cmd.OrderID != "order-1" {
				t.Fatalf("unexpected order id %q", cmd.OrderID)
			}
			order := sampleOrder(domain.OrderStatusPending)
			order.PaymentURL = &url
			return order, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/order-1/payment", nil)
	req = withTestIdentity(req, "user-1", auth.RoleUser)
	rec := doRequest(newOrderRouter(&stubCheckoutService{}, &stubOrderService{}, payments), req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), url) {
		t.Fatalf("expected payment url in response, got %s", rec.Body.String())
	}
}

func TestCreatePaymentSessionNotPending(t *testing.T) {
	payments := &stubPaymentService{
		sessionFunc: func(ctx context.Context, cmd services.CreatePaymentSessionCommand) (domain.Order, error) {
			return domain.Order{}, services.ErrPaymentInvalidInput
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/order-1/payment", nil)
	req = withTestIdentity(req, "user-1", auth.RoleUser)
	rec := doRequest(newOrderRouter(&stubCheckoutService{}, &stubOrderService{}, payments), req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}
