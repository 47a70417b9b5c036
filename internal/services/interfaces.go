package services

import (
	"context"
	"time"

	domain "github.com/gerai/api/internal/domain"
)

// Type aliases expose domain models to the services package without reversing dependency direction.
type (
	PageQuery          = domain.PageQuery
	Product            = domain.Product
	Cart               = domain.Cart
	CartItem           = domain.CartItem
	CartSummary        = domain.CartSummary
	Order              = domain.Order
	OrderItem          = domain.OrderItem
	OrderStatus        = domain.OrderStatus
	PaymentMethod      = domain.PaymentMethod
	ShippingInfo       = domain.ShippingInfo
	SystemHealthReport = domain.SystemHealthReport
)

// Requester identifies the authenticated caller for operations that enforce
// ownership or role checks.
type Requester struct {
	UserID string
	Admin  bool
}

// ListProductsQuery narrows and pages public or administrative catalog listings.
type ListProductsQuery struct {
	Page       PageQuery
	Search     string
	IncludeAll bool
}

// CreateProductCommand carries the fields of a new catalog product.
type CreateProductCommand struct {
	Name     string
	Price    int64
	Stock    int
	ImageURL string
}

// UpdateProductCommand replaces the mutable fields of an existing product.
type UpdateProductCommand struct {
	ProductID string
	Name      string
	Price     int64
	Stock     int
	Active    bool
	ImageURL  string
}

// ProductImageUploadCommand requests a pre-authorised upload slot for a
// product image.
type ProductImageUploadCommand struct {
	ProductID   string
	ContentType string
}

// ProductImageUpload describes a signed upload URL and the public URL the
// object will be served from.
type ProductImageUpload struct {
	UploadURL  string
	PublicURL  string
	ObjectName string
	ExpiresAt  time.Time
}

// ProductImageStore signs direct-to-bucket upload URLs for product media.
type ProductImageStore interface {
	SignImageUpload(ctx context.Context, objectName, contentType string) (ProductImageUpload, error)
}

// CatalogService manages the product catalog.
type CatalogService interface {
	ListProducts(ctx context.Context, query ListProductsQuery) (domain.Page[Product], error)
	GetProduct(ctx context.Context, productID string) (Product, error)
	CreateProduct(ctx context.Context, cmd CreateProductCommand) (Product, error)
	UpdateProduct(ctx context.Context, cmd UpdateProductCommand) (Product, error)
	DeleteProduct(ctx context.Context, productID string) error
	CreateProductImageUpload(ctx context.Context, cmd ProductImageUploadCommand) (ProductImageUpload, error)
}

// CartView pairs the stored cart with its derived pricing summary.
type CartView struct {
	Cart    Cart
	Summary CartSummary
}

// UpsertCartItemCommand adds a product to the cart or tops up an existing line.
type UpsertCartItemCommand struct {
	UserID    string
	ProductID string
	Quantity  int
}

// UpdateCartItemCommand sets an absolute quantity on an existing cart line.
// Quantity zero removes the line.
type UpdateCartItemCommand struct {
	UserID   string
	ItemID   string
	Quantity int
}

// CartService manages the per-user shopping cart.
type CartService interface {
	GetCart(ctx context.Context, userID string) (CartView, error)
	UpsertItem(ctx context.Context, cmd UpsertCartItemCommand) (CartView, error)
	UpdateItemQuantity(ctx context.Context, cmd UpdateCartItemCommand) (CartView, error)
	RemoveItem(ctx context.Context, userID, itemID string) (CartView, error)
	ClearCart(ctx context.Context, userID string) error
}

// CheckoutItem is one line of a checkout request: the product the caller
// wants to order and how many units.
type CheckoutItem struct {
	ProductID string
	Quantity  int
}

// CheckoutCommand captures the fields required to place an order. Items are
// the caller's requested lines; they are revalidated against the live catalog
// inside the checkout transaction.
type CheckoutCommand struct {
	UserID        string
	Items         []CheckoutItem
	PaymentMethod PaymentMethod
	Shipping      ShippingInfo
}

// CheckoutService converts carts into orders atomically.
type CheckoutService interface {
	Checkout(ctx context.Context, cmd CheckoutCommand) (Order, error)
}

// ListOrdersQuery narrows and pages order listings for the given requester.
type ListOrdersQuery struct {
	Requester Requester
	Page      PageQuery
	Status    *OrderStatus
}

// UpdateOrderStatusCommand requests a lifecycle transition on an order.
type UpdateOrderStatusCommand struct {
	Requester Requester
	OrderID   string
	NewStatus OrderStatus
}

// CancelOrderCommand requests cancellation of an order by its owner or an administrator.
type CancelOrderCommand struct {
	Requester Requester
	OrderID   string
}

// OrderService reads orders and drives their lifecycle.
type OrderService interface {
	ListOrders(ctx context.Context, query ListOrdersQuery) (domain.Page[Order], error)
	GetOrder(ctx context.Context, requester Requester, orderID string) (Order, error)
	UpdateStatus(ctx context.Context, cmd UpdateOrderStatusCommand) (Order, error)
	CancelOrder(ctx context.Context, cmd CancelOrderCommand) (Order, error)
}

// CreatePaymentSessionCommand asks the payment gateway for a hosted payment page.
type CreatePaymentSessionCommand struct {
	Requester Requester
	OrderID   string
}

// PaymentNotificationCommand carries the fields of an inbound gateway
// status notification.
type PaymentNotificationCommand struct {
	OrderNumber       string
	TransactionStatus string
	FraudStatus       string
	StatusCode        string
	GrossAmount       string
	SignatureKey      string
	PaymentType       string
}

// PaymentService bridges orders to the external payment gateway.
type PaymentService interface {
	CreatePaymentSession(ctx context.Context, cmd CreatePaymentSessionCommand) (Order, error)
	ProcessNotification(ctx context.Context, cmd PaymentNotificationCommand) (Order, error)
}

// SystemService reports operational health for readiness probes.
type SystemService interface {
	Health(ctx context.Context) (SystemHealthReport, error)
}

// PaymentLinkRequest describes the order a hosted payment page is needed for.
type PaymentLinkRequest struct {
	OrderID     string
	OrderNumber string
	Amount      int64
	Method      PaymentMethod
	CustomerID  string
}

// PaymentLink is the gateway's hosted payment page for one order.
type PaymentLink struct {
	URL   string
	Token string
}

// PaymentLinkProvider creates hosted payment pages with the configured gateway.
type PaymentLinkProvider interface {
	CreatePaymentLink(ctx context.Context, req PaymentLinkRequest) (PaymentLink, error)
}

// NotificationVerifier authenticates inbound gateway notifications.
type NotificationVerifier interface {
	VerifyNotification(orderNumber, statusCode, grossAmount, signatureKey string) error
}

// OrderEventMessage is the payload published when an order is created or
// changes status.
type OrderEventMessage struct {
	EventType      string    `json:"eventType"`
	OrderID        string    `json:"orderId"`
	OrderNumber    string    `json:"orderNumber"`
	UserID         string    `json:"userId"`
	PreviousStatus string    `json:"previousStatus,omitempty"`
	NewStatus      string    `json:"newStatus"`
	TotalAmount    int64     `json:"totalAmount"`
	OccurredAt     time.Time `json:"occurredAt"`
}

// OrderEventPublisher emits order lifecycle events to interested consumers.
// Implementations return the broker-assigned message ID.
type OrderEventPublisher interface {
	PublishOrderEvent(ctx context.Context, msg OrderEventMessage) (string, error)
}
