package repositories

import (
	"context"
	"time"

	domain "github.com/gerai/api/internal/domain"
)

// Registry exposes typed repository accessors and lifecycle hooks for dependency injection.
type Registry interface {
	Close(ctx context.Context) error

	Carts() CartRepository
	Products() ProductRepository
	Orders() OrderRepository
	Checkout() CheckoutRepository
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// CartRepository owns per-user cart persistence. The cart document ID equals
// the owning user ID; carts are created lazily on first write.
type CartRepository interface {
	GetCart(ctx context.Context, userID string) (domain.Cart, error)
	SaveCart(ctx context.Context, cart domain.Cart) (domain.Cart, error)
	ClearCart(ctx context.Context, userID string, now time.Time) error
}

// ProductListQuery narrows and pages catalog listings.
type ProductListQuery struct {
	Page       domain.PageQuery
	ActiveOnly bool
	NamePrefix string
}

// ProductRepository persists catalog products.
type ProductRepository interface {
	Insert(ctx context.Context, product domain.Product) (domain.Product, error)
	Update(ctx context.Context, product domain.Product) (domain.Product, error)
	Deactivate(ctx context.Context, productID string, now time.Time) error
	FindByID(ctx context.Context, productID string) (domain.Product, error)
	List(ctx context.Context, query ProductListQuery) (domain.Page[domain.Product], error)
}

// OrderListQuery narrows and pages order listings. UserID empty means all users.
type OrderListQuery struct {
	Page   domain.PageQuery
	UserID string
	Status *domain.OrderStatus
}

// OrderMutator transforms the current persisted order into its next state.
// Returning an error aborts the surrounding transaction and surfaces the error
// to the caller unchanged.
type OrderMutator func(order domain.Order) (domain.Order, error)

// OrderRepository reads orders and applies transactional mutations to them.
type OrderRepository interface {
	FindByID(ctx context.Context, orderID string) (domain.Order, error)
	FindByOrderNumber(ctx context.Context, orderNumber string) (domain.Order, error)
	List(ctx context.Context, query OrderListQuery) (domain.Page[domain.Order], error)
	Mutate(ctx context.Context, orderID string, mutate OrderMutator) (domain.Order, error)
}

// CheckoutAssembler builds the order from the transactionally read product
// documents and the next order sequence number for the day. Products that do
// not exist are absent from the map. Validation failures returned here abort
// the checkout without writing anything.
type CheckoutAssembler func(products map[string]domain.Product, seq int64) (domain.Order, error)

// CheckoutRepository places an order atomically: stock decrements, order
// creation, and cart clearing either all commit or none do. productIDs names
// the products the assembler needs read inside the transaction.
type CheckoutRepository interface {
	PlaceOrder(ctx context.Context, userID string, productIDs []string, now time.Time, assemble CheckoutAssembler) (domain.Order, error)
}

// HealthRepository aggregates dependency probes for readiness reporting.
type HealthRepository interface {
	Collect(ctx context.Context) (domain.SystemHealthReport, error)
}
