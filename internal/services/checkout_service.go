package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/gerai/api/internal/domain"
	"github.com/gerai/api/internal/repositories"
)

var (
	errCheckoutRepositoryRequired = errors.New("checkout service: checkout repository is required")
	errCheckoutOrdersRequired     = errors.New("checkout service: order repository is required")
	errCheckoutClockRequired      = errors.New("checkout service: clock is required")
)

const (
	minShippingAddressLength = 10
	maxShippingAddressLength = 500
	minShippingCityLength    = 2
	minShippingPostalLength  = 3
	minShippingPhoneLength   = 8
)

// ErrCheckoutInvalidInput indicates the caller supplied invalid checkout input.
var ErrCheckoutInvalidInput = errors.New("checkout service: invalid input")

// ErrCheckoutNoItems indicates the checkout request carried no items.
var ErrCheckoutNoItems = errors.New("checkout service: no items requested")

// ErrCheckoutProductUnavailable indicates a cart line references a missing or inactive product.
var ErrCheckoutProductUnavailable = errors.New("checkout service: product unavailable")

// ErrCheckoutInsufficientStock indicates a cart line exceeds the live stock at commit time.
var ErrCheckoutInsufficientStock = errors.New("checkout service: insufficient stock")

// ErrCheckoutConflict indicates the checkout lost a storage-level race and may be retried.
var ErrCheckoutConflict = errors.New("checkout service: conflict")

// ErrCheckoutUnavailable indicates the checkout service cannot fulfil the request due to backend issues.
var ErrCheckoutUnavailable = errors.New("checkout service: unavailable")

// CheckoutServiceDeps wires the repositories and collaborators for checkout.
type CheckoutServiceDeps struct {
	Checkout    repositories.CheckoutRepository
	Orders      repositories.OrderRepository
	Payments    PaymentLinkProvider
	Events      OrderEventPublisher
	Clock       func() time.Time
	Logger      func(context.Context, string, map[string]any)
	IDGenerator func() string
}

type checkoutService struct {
	checkout repositories.CheckoutRepository
	orders   repositories.OrderRepository
	payments PaymentLinkProvider
	events   OrderEventPublisher
	newID    func() string
	now      func() time.Time
	logger   func(context.Context, string, map[string]any)
}

// NewCheckoutService constructs a CheckoutService enforcing dependency validation.
func NewCheckoutService(deps CheckoutServiceDeps) (CheckoutService, error) {
	if deps.Checkout == nil {
		return nil, errCheckoutRepositoryRequired
	}
	if deps.Orders == nil {
		return nil, errCheckoutOrdersRequired
	}
	if deps.Clock == nil {
		return nil, errCheckoutClockRequired
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}

	return &checkoutService{
		checkout: deps.Checkout,
		orders:   deps.Orders,
		payments: deps.Payments,
		events:   deps.Events,
		newID:    idGen,
		now:      func() time.Time { return deps.Clock().UTC() },
		logger:   logger,
	}, nil
}

// Checkout places a PENDING order for the requested items. Stock and price
// are revalidated against the live product documents inside the storage
// transaction; whatever the cart snapshotted earlier is never trusted. On any
// validation failure the cart and stock are left untouched.
func (s *checkoutService) Checkout(ctx context.Context, cmd CheckoutCommand) (Order, error) {
	if s == nil || s.checkout == nil || s.orders == nil {
		return Order{}, ErrCheckoutUnavailable
	}
	userID := strings.TrimSpace(cmd.UserID)
	if userID == "" {
		return Order{}, fmt.Errorf("%w: user id is required", ErrCheckoutInvalidInput)
	}
	requested, err := normalizeCheckoutItems(cmd.Items)
	if err != nil {
		return Order{}, err
	}
	if err := validateShipping(cmd.Shipping); err != nil {
		return Order{}, err
	}
	if !domain.IsValidPaymentMethod(cmd.PaymentMethod) {
		return Order{}, fmt.Errorf("%w: unsupported payment method %q", ErrCheckoutInvalidInput, cmd.PaymentMethod)
	}

	productIDs := make([]string, 0, len(requested))
	for _, item := range requested {
		productIDs = append(productIDs, item.ProductID)
	}

	now := s.now()
	order, err := s.checkout.PlaceOrder(ctx, userID, productIDs, now, func(products map[string]domain.Product, seq int64) (domain.Order, error) {
		return s.assembleOrder(userID, requested, products, seq, cmd, now)
	})
	if err != nil {
		return Order{}, s.translateCheckoutError(err)
	}

	s.logger(ctx, "checkout.order_placed", map[string]any{
		"userId":      userID,
		"orderId":     order.ID,
		"orderNumber": order.OrderNumber,
		"totalAmount": order.TotalAmount,
	})

	order = s.attachPaymentLink(ctx, order)
	s.publishCreated(ctx, order)
	return order, nil
}

// normalizeCheckoutItems validates the requested lines and merges duplicate
// product references so each product is decremented exactly once.
func normalizeCheckoutItems(items []CheckoutItem) ([]CheckoutItem, error) {
	if len(items) == 0 {
		return nil, ErrCheckoutNoItems
	}

	merged := make([]CheckoutItem, 0, len(items))
	index := make(map[string]int, len(items))
	for i, item := range items {
		productID := strings.TrimSpace(item.ProductID)
		if productID == "" {
			return nil, fmt.Errorf("%w: item %d is missing a product id", ErrCheckoutInvalidInput, i)
		}
		if item.Quantity < 1 {
			return nil, fmt.Errorf("%w: product %s has quantity %d", ErrCheckoutInvalidInput, productID, item.Quantity)
		}
		if at, seen := index[productID]; seen {
			merged[at].Quantity += item.Quantity
			continue
		}
		index[productID] = len(merged)
		merged = append(merged, CheckoutItem{ProductID: productID, Quantity: item.Quantity})
	}
	return merged, nil
}

func (s *checkoutService) assembleOrder(userID string, requested []CheckoutItem, products map[string]domain.Product, seq int64, cmd CheckoutCommand, now time.Time) (domain.Order, error) {
	items := make([]domain.OrderItem, 0, len(requested))
	for _, line := range requested {
		product, ok := products[line.ProductID]
		if !ok || !product.Active {
			return domain.Order{}, fmt.Errorf("%w: product %s", ErrCheckoutProductUnavailable, line.ProductID)
		}
		if line.Quantity > product.Stock {
			return domain.Order{}, fmt.Errorf("%w: product %s has %d in stock, %d requested", ErrCheckoutInsufficientStock, product.ID, product.Stock, line.Quantity)
		}
		// Orders are priced at the live product price, not the cart snapshot.
		items = append(items, domain.OrderItem{
			ProductID:   product.ID,
			ProductName: product.Name,
			Quantity:    line.Quantity,
			UnitPrice:   product.Price,
		})
	}

	subtotal, fee, total := domain.OrderTotal(items)
	return domain.Order{
		ID:            s.newID(),
		UserID:        userID,
		OrderNumber:   formatOrderNumber(now, seq),
		Status:        domain.OrderStatusPending,
		Items:         items,
		Subtotal:      subtotal,
		DeliveryFee:   fee,
		TotalAmount:   total,
		Shipping:      normalizeShipping(cmd.Shipping),
		PaymentMethod: cmd.PaymentMethod,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// attachPaymentLink asks the gateway for a hosted payment page and persists the
// URL on the order. Failures are logged and the order is returned without a
// URL; the caller can retry through the payment session endpoint.
func (s *checkoutService) attachPaymentLink(ctx context.Context, order domain.Order) domain.Order {
	if s.payments == nil {
		return order
	}

	link, err := s.payments.CreatePaymentLink(ctx, PaymentLinkRequest{
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		Amount:      order.TotalAmount,
		Method:      order.PaymentMethod,
		CustomerID:  order.UserID,
	})
	if err != nil {
		s.logger(ctx, "checkout.payment_link_failed", map[string]any{
			"orderId": order.ID,
			"error":   err.Error(),
		})
		return order
	}

	updated, err := s.orders.Mutate(ctx, order.ID, func(current domain.Order) (domain.Order, error) {
		url := link.URL
		current.PaymentURL = &url
		current.UpdatedAt = s.now()
		return current, nil
	})
	if err != nil {
		s.logger(ctx, "checkout.payment_link_store_failed", map[string]any{
			"orderId": order.ID,
			"error":   err.Error(),
		})
		return order
	}
	return updated
}

func (s *checkoutService) publishCreated(ctx context.Context, order domain.Order) {
	if s.events == nil {
		return
	}
	if _, err := s.events.PublishOrderEvent(ctx, OrderEventMessage{
		EventType:   "order.created",
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		UserID:      order.UserID,
		NewStatus:   string(order.Status),
		TotalAmount: order.TotalAmount,
		OccurredAt:  s.now(),
	}); err != nil {
		s.logger(ctx, "checkout.event_publish_failed", map[string]any{
			"orderId": order.ID,
			"error":   err.Error(),
		})
	}
}

func (s *checkoutService) translateCheckoutError(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrCheckoutNoItems),
		errors.Is(err, ErrCheckoutInvalidInput),
		errors.Is(err, ErrCheckoutProductUnavailable),
		errors.Is(err, ErrCheckoutInsufficientStock):
		return err
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		if repoErr.IsConflict() {
			return ErrCheckoutConflict
		}
		return ErrCheckoutUnavailable
	}
	return ErrCheckoutUnavailable
}

func validateShipping(info domain.ShippingInfo) error {
	address := strings.TrimSpace(info.Address)
	if len(address) < minShippingAddressLength || len(address) > maxShippingAddressLength {
		return fmt.Errorf("%w: shipping address must be between %d and %d characters", ErrCheckoutInvalidInput, minShippingAddressLength, maxShippingAddressLength)
	}
	if len(strings.TrimSpace(info.City)) < minShippingCityLength {
		return fmt.Errorf("%w: shipping city is required", ErrCheckoutInvalidInput)
	}
	if len(strings.TrimSpace(info.PostalCode)) < minShippingPostalLength {
		return fmt.Errorf("%w: shipping postal code is required", ErrCheckoutInvalidInput)
	}
	if len(strings.TrimSpace(info.Phone)) < minShippingPhoneLength {
		return fmt.Errorf("%w: shipping phone is required", ErrCheckoutInvalidInput)
	}
	return nil
}

func normalizeShipping(info domain.ShippingInfo) domain.ShippingInfo {
	return domain.ShippingInfo{
		Address:    strings.TrimSpace(info.Address),
		City:       strings.TrimSpace(info.City),
		PostalCode: strings.TrimSpace(info.PostalCode),
		Phone:      strings.TrimSpace(info.Phone),
	}
}

func formatOrderNumber(now time.Time, seq int64) string {
	return fmt.Sprintf("ORD-%s-%04d", now.UTC().Format("20060102"), seq)
}
