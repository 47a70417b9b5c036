package domain

import (
	"time"
)

// PageQuery defines standard page/limit paging inputs for list operations.
type PageQuery struct {
	Page  int
	Limit int
}

// Page bundles one page of results together with the totals callers need to
// render stable pagination.
type Page[T any] struct {
	Items      []T
	Total      int64
	Page       int
	Limit      int
	TotalPages int
}

// Product captures the catalog snapshot consulted by cart and checkout flows:
// current price, availability flag, and the live stock counter.
type Product struct {
	ID        string
	Name      string
	Price     int64
	Stock     int
	Active    bool
	ImageURL  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CartItem is a single product entry in a user's cart. PriceSnapshot is the
// unit price captured when the item was added or last revalidated; it is never
// re-derived from the live catalog on reads.
type CartItem struct {
	ID            string
	ProductID     string
	ProductName   string
	Quantity      int
	PriceSnapshot int64
	AddedAt       time.Time
	UpdatedAt     *time.Time
}

// LineTotal returns the derived price of the cart line.
func (i CartItem) LineTotal() int64 {
	if i.Quantity <= 0 {
		return 0
	}
	return i.PriceSnapshot * int64(i.Quantity)
}

// Cart is the mutable per-user cart. The document id equals the owning user id
// so each user has exactly one cart, created lazily on first access.
type Cart struct {
	ID        string
	UserID    string
	Items     []CartItem
	CreatedAt time.Time
	UpdatedAt time.Time
}

// OrderStatus enumerates the order lifecycle states.
type OrderStatus string

const (
	// OrderStatusPending marks a freshly checked-out order awaiting handling or payment.
	OrderStatusPending OrderStatus = "PENDING"
	// OrderStatusProcessing marks an order picked up by fulfilment before payment settles.
	OrderStatusProcessing OrderStatus = "PROCESSING"
	// OrderStatusPaid marks an order whose payment has settled.
	OrderStatusPaid OrderStatus = "PAID"
	// OrderStatusShipped marks an order handed to the carrier.
	OrderStatusShipped OrderStatus = "SHIPPED"
	// OrderStatusDelivered marks an order received by the customer. Terminal.
	OrderStatusDelivered OrderStatus = "DELIVERED"
	// OrderStatusCancelled marks an abandoned or rejected order. Terminal.
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// OrderStatuses lists every lifecycle state in forward order.
var OrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusProcessing,
	OrderStatusPaid,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

// IsValidOrderStatus reports whether the value is one of the six states.
func IsValidOrderStatus(status OrderStatus) bool {
	for _, s := range OrderStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no transition may leave the status.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// PaymentMethod enumerates the accepted payment instruments.
type PaymentMethod string

const (
	// PaymentMethodCreditCard routes through the card PSP.
	PaymentMethodCreditCard PaymentMethod = "credit_card"
	// PaymentMethodQRIS routes through the snap PSP as a QR payment.
	PaymentMethodQRIS PaymentMethod = "qris"
	// PaymentMethodBankTransfer routes through the snap PSP as a virtual account.
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
)

// PaymentMethods lists the accepted payment instruments.
var PaymentMethods = []PaymentMethod{
	PaymentMethodCreditCard,
	PaymentMethodQRIS,
	PaymentMethodBankTransfer,
}

// IsValidPaymentMethod reports whether the value is an accepted instrument.
func IsValidPaymentMethod(method PaymentMethod) bool {
	for _, m := range PaymentMethods {
		if m == method {
			return true
		}
	}
	return false
}

// OrderItem is an immutable order line frozen at checkout time, including the
// product display name at that instant.
type OrderItem struct {
	ProductID   string
	ProductName string
	Quantity    int
	UnitPrice   int64
}

// LineTotal returns the frozen price of the order line.
func (i OrderItem) LineTotal() int64 {
	return i.UnitPrice * int64(i.Quantity)
}

// ShippingInfo carries the delivery destination captured at checkout.
type ShippingInfo struct {
	Address    string
	City       string
	PostalCode string
	Phone      string
}

// Order is the immutable result of a checkout. Items, Subtotal, DeliveryFee
// and TotalAmount never change after creation; only Status, PaymentURL and
// UpdatedAt mutate, and only through the lifecycle state machine.
type Order struct {
	ID            string
	UserID        string
	OrderNumber   string
	Status        OrderStatus
	Items         []OrderItem
	Subtotal      int64
	DeliveryFee   int64
	TotalAmount   int64
	Shipping      ShippingInfo
	PaymentMethod PaymentMethod
	PaymentURL    *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
