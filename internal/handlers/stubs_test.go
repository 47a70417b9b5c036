package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"

	domain "github.com/gerai/api/internal/domain"
	"github.com/gerai/api/internal/platform/auth"
	"github.com/gerai/api/internal/services"
)

type stubCatalogService struct {
	listFunc   func(ctx context.Context, query services.ListProductsQuery) (domain.Page[domain.Product], error)
	getFunc    func(ctx context.Context, productID string) (domain.Product, error)
	createFunc func(ctx context.Context, cmd services.CreateProductCommand) (domain.Product, error)
	updateFunc func(ctx context.Context, cmd services.UpdateProductCommand) (domain.Product, error)
	deleteFunc func(ctx context.Context, productID string) error
	uploadFunc func(ctx context.Context, cmd services.ProductImageUploadCommand) (services.ProductImageUpload, error)
}

func (s *stubCatalogService) ListProducts(ctx context.Context, query services.ListProductsQuery) (domain.Page[domain.Product], error) {
	if s.listFunc == nil {
		return domain.Page[domain.Product]{}, errors.New("listFunc not configured")
	}
	return s.listFunc(ctx, query)
}

func (s *stubCatalogService) GetProduct(ctx context.Context, productID string) (domain.Product, error) {
	if s.getFunc == nil {
		return domain.Product{}, errors.New("getFunc not configured")
	}
	return s.getFunc(ctx, productID)
}

func (s *stubCatalogService) CreateProduct(ctx context.Context, cmd services.CreateProductCommand) (domain.Product, error) {
	if s.createFunc == nil {
		return domain.Product{}, errors.New("createFunc not configured")
	}
	return s.createFunc(ctx, cmd)
}

func (s *stubCatalogService) UpdateProduct(ctx context.Context, cmd services.UpdateProductCommand) (domain.Product, error) {
	if s.updateFunc == nil {
		return domain.Product{}, errors.New("updateFunc not configured")
	}
	return s.updateFunc(ctx, cmd)
}

func (s *stubCatalogService) DeleteProduct(ctx context.Context, productID string) error {
	if s.deleteFunc == nil {
		return errors.New("deleteFunc not configured")
	}
	return s.deleteFunc(ctx, productID)
}

func (s *stubCatalogService) CreateProductImageUpload(ctx context.Context, cmd services.ProductImageUploadCommand) (services.ProductImageUpload, error) {
	if s.uploadFunc == nil {
		return services.ProductImageUpload{}, errors.New("uploadFunc not configured")
	}
	return s.uploadFunc(ctx, cmd)
}

type stubCartService struct {
	getFunc    func(ctx context.Context, userID string) (services.CartView, error)
	upsertFunc func(ctx context.Context, cmd services.UpsertCartItemCommand) (services.CartView, error)
	updateFunc func(ctx context.Context, cmd services.UpdateCartItemCommand) (services.CartView, error)
	removeFunc func(ctx context.Context, userID, itemID string) (services.CartView, error)
	clearFunc  func(ctx context.Context, userID string) error
}

func (s *stubCartService) GetCart(ctx context.Context, userID string) (services.CartView, error) {
	if s.getFunc == nil {
		return services.CartView{}, errors.New("getFunc not configured")
	}
	return s.getFunc(ctx, userID)
}

func (s *stubCartService) UpsertItem(ctx context.Context, cmd services.UpsertCartItemCommand) (services.CartView, error) {
	if s.upsertFunc == nil {
		return services.CartView{}, errors.New("upsertFunc not configured")
	}
	return s.upsertFunc(ctx, cmd)
}

func (s *stubCartService) UpdateItemQuantity(ctx context.Context, cmd services.UpdateCartItemCommand) (services.CartView, error) {
	if s.updateFunc == nil {
		return services.CartView{}, errors.New("updateFunc not configured")
	}
	return s.updateFunc(ctx, cmd)
}

func (s *stubCartService) RemoveItem(ctx context.Context, userID, itemID string) (services.CartView, error) {
	if s.removeFunc == nil {
		return services.CartView{}, errors.New("removeFunc not configured")
	}
	return s.removeFunc(ctx, userID, itemID)
}

func (s *stubCartService) ClearCart(ctx context.Context, userID string) error {
	if s.clearFunc == nil {
		return errors.New("clearFunc not configured")
	}
	return s.clearFunc(ctx, userID)
}

type stubCheckoutService struct {
	checkoutFunc func(ctx context.Context, cmd services.CheckoutCommand) (domain.Order, error)
}

func (s *stubCheckoutService) Checkout(ctx context.Context, cmd services.CheckoutCommand) (domain.Order, error) {
	if s.checkoutFunc == nil {
		return domain.Order{}, errors.New("checkoutFunc not configured")
	}
	return s.checkoutFunc(ctx, cmd)
}

type stubOrderService struct {
	listFunc   func(ctx context.Context, query services.ListOrdersQuery) (domain.Page[domain.Order], error)
	getFunc    func(ctx context.Context, requester services.Requester, orderID string) (domain.Order, error)
	updateFunc func(ctx context.Context, cmd services.UpdateOrderStatusCommand) (domain.Order, error)
	cancelFunc func(ctx context.Context, cmd services.CancelOrderCommand) (domain.Order, error)
}

func (s *stubOrderService) ListOrders(ctx context.Context, query services.ListOrdersQuery) (domain.Page[domain.Order], error) {
	if s.listFunc == nil {
		return domain.Page[domain.Order]{}, errors.New("listFunc not configured")
	}
	return s.listFunc(ctx, query)
}

func (s *stubOrderService) GetOrder(ctx context.Context, requester services.Requester, orderID string) (domain.Order, error) {
	if s.getFunc == nil {
		return domain.Order{}, errors.New("getFunc not configured")
	}
	return s.getFunc(ctx, requester, orderID)
}

func (s *stubOrderService) UpdateStatus(ctx context.Context, cmd services.UpdateOrderStatusCommand) (domain.Order, error) {
	if s.updateFunc == nil {
		return domain.Order{}, errors.New("updateFunc not configured")
	}
	return s.updateFunc(ctx, cmd)
}

func (s *stubOrderService) CancelOrder(ctx context.Context, cmd services.CancelOrderCommand) (domain.Order, error) {
	if s.cancelFunc == nil {
		return domain.Order{}, errors.New("cancelFunc not configured")
	}
	return s.cancelFunc(ctx, cmd)
}

type stubPaymentService struct {
	sessionFunc func(ctx context.Context, cmd services.CreatePaymentSessionCommand) (domain.Order, error)
	notifyFunc  func(ctx context.Context, cmd services.PaymentNotificationCommand) (domain.Order, error)
}

func (s *stubPaymentService) CreatePaymentSession(ctx context.Context, cmd services.CreatePaymentSessionCommand) (domain.Order, error) {
	if s.sessionFunc == nil {
		return domain.Order{}, errors.New("sessionFunc not configured")
	}
	return s.sessionFunc(ctx, cmd)
}

func (s *stubPaymentService) ProcessNotification(ctx context.Context, cmd services.PaymentNotificationCommand) (domain.Order, error) {
	if s.notifyFunc == nil {
		return domain.Order{}, errors.New("notifyFunc not configured")
	}
	return s.notifyFunc(ctx, cmd)
}

type stubSystemService struct {
	healthFunc func(ctx context.Context) (domain.SystemHealthReport, error)
}

func (s *stubSystemService) Health(ctx context.Context) (domain.SystemHealthReport, error) {
	if s.healthFunc == nil {
		return domain.SystemHealthReport{}, errors.New("healthFunc not configured")
	}
	return s.healthFunc(ctx)
}

// withTestIdentity injects an authenticated identity the way the auth
// middleware would.
func withTestIdentity(r *http.Request, uid string, roles ...string) *http.Request {
	identity := &auth.Identity{UID: uid, Roles: roles}
	return r.WithContext(auth.WithIdentity(r.Context(), identity))
}

func doRequest(handler http.Handler, r *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, r)
	return rec
}
