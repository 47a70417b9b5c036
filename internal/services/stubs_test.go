package services

import (
	"context"
	"errors"
	"time"

	domain "github.com/gerai/api/internal/domain"
	"github.com/gerai/api/internal/repositories"
)

type repositoryErrorStub struct {
	notFound    bool
	conflict    bool
	unavailable bool
}

func (e *repositoryErrorStub) Error() string { return "repository error stub" }

func (e *repositoryErrorStub) IsNotFound() bool { return e.notFound }

func (e *repositoryErrorStub) IsConflict() bool { return e.conflict }

func (e *repositoryErrorStub) IsUnavailable() bool { return e.unavailable }

type stubCartRepository struct {
	getFunc   func(ctx context.Context, userID string) (domain.Cart, error)
	saveFunc  func(ctx context.Context, cart domain.Cart) (domain.Cart, error)
	clearFunc func(ctx context.Context, userID string, now time.Time) error
}

func (s *stubCartRepository) GetCart(ctx context.Context, userID string) (domain.Cart, error) {
	if s.getFunc == nil {
		return domain.Cart{}, errors.New("getFunc not configured")
	}
	return s.getFunc(ctx, userID)
}

func (s *stubCartRepository) SaveCart(ctx context.Context, cart domain.Cart) (domain.Cart, error) {
	if s.saveFunc == nil {
		return domain.Cart{}, errors.New("saveFunc not configured")
	}
	return s.saveFunc(ctx, cart)
}

func (s *stubCartRepository) ClearCart(ctx context.Context, userID string, now time.Time) error {
	if s.clearFunc == nil {
		return errors.New("clearFunc not configured")
	}
	return s.clearFunc(ctx, userID, now)
}

type stubProductRepository struct {
	insertFunc     func(ctx context.Context, product domain.Product) (domain.Product, error)
	updateFunc     func(ctx context.Context, product domain.Product) (domain.Product, error)
	deactivateFunc func(ctx context.Context, productID string, now time.Time) error
	findFunc       func(ctx context.Context, productID string) (domain.Product, error)
	listFunc       func(ctx context.Context, query repositories.ProductListQuery) (domain.Page[domain.Product], error)
}

func (s *stubProductRepository) Insert(ctx context.Context, product domain.Product) (domain.Product, error) {
	if s.insertFunc == nil {
		return domain.Product{}, errors.New("insertFunc not configured")
	}
	return s.insertFunc(ctx, product)
}

func (s *stubProductRepository) Update(ctx context.Context, product domain.Product) (domain.Product, error) {
	if s.updateFunc == nil {
		return domain.Product{}, errors.New("updateFunc not configured")
	}
	return s.updateFunc(ctx, product)
}

func (s *stubProductRepository) Deactivate(ctx context.Context, productID string, now time.Time) error {
	if s.deactivateFunc == nil {
		return errors.New("deactivateFunc not configured")
	}
	return s.deactivateFunc(ctx, productID, now)
}

func (s *stubProductRepository) FindByID(ctx context.Context, productID string) (domain.Product, error) {
	if s.findFunc == nil {
		return domain.Product{}, errors.New("findFunc not configured")
	}
	return s.findFunc(ctx, productID)
}

func (s *stubProductRepository) List(ctx context.Context, query repositories.ProductListQuery) (domain.Page[domain.Product], error) {
	if s.listFunc == nil {
		return domain.Page[domain.Product]{}, errors.New("listFunc not configured")
	}
	return s.listFunc(ctx, query)
}

type stubOrderRepository struct {
	findFunc       func(ctx context.Context, orderID string) (domain.Order, error)
	findNumberFunc func(ctx context.Context, orderNumber string) (domain.Order, error)
	listFunc       func(ctx context.Context, query repositories.OrderListQuery) (domain.Page[domain.Order], error)
	mutateFunc     func(ctx context.Context, orderID string, mutate repositories.OrderMutator) (domain.Order, error)
}

func (s *stubOrderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	if s.findFunc == nil {
		return domain.Order{}, errors.New("findFunc not configured")
	}
	return s.findFunc(ctx, orderID)
}

func (s *stubOrderRepository) FindByOrderNumber(ctx context.Context, orderNumber string) (domain.Order, error) {
	if s.findNumberFunc == nil {
		return domain.Order{}, errors.New("findNumberFunc not configured")
	}
	return s.findNumberFunc(ctx, orderNumber)
}

func (s *stubOrderRepository) List(ctx context.Context, query repositories.OrderListQuery) (domain.Page[domain.Order], error) {
	if s.listFunc == nil {
		return domain.Page[domain.Order]{}, errors.New("listFunc not configured")
	}
	return s.listFunc(ctx, query)
}

func (s *stubOrderRepository) Mutate(ctx context.Context, orderID string, mutate repositories.OrderMutator) (domain.Order, error) {
	if s.mutateFunc == nil {
		return domain.Order{}, errors.New("mutateFunc not configured")
	}
	return s.mutateFunc(ctx, orderID, mutate)
}

// applyMutator runs the mutator against the given order the way the real
// repository would inside its transaction.
func applyMutator(order domain.Order, mutate repositories.OrderMutator) (domain.Order, error) {
	next, err := mutate(order)
	if err != nil {
		return domain.Order{}, err
	}
	return next, nil
}

type stubCheckoutRepository struct {
	placeFunc func(ctx context.Context, userID string, productIDs []string, now time.Time, assemble repositories.CheckoutAssembler) (domain.Order, error)
}

func (s *stubCheckoutRepository) PlaceOrder(ctx context.Context, userID string, productIDs []string, now time.Time, assemble repositories.CheckoutAssembler) (domain.Order, error) {
	if s.placeFunc == nil {
		return domain.Order{}, errors.New("placeFunc not configured")
	}
	return s.placeFunc(ctx, userID, productIDs, now, assemble)
}

type stubEventPublisher struct {
	published []OrderEventMessage
	err       error
}

func (s *stubEventPublisher) PublishOrderEvent(_ context.Context, msg OrderEventMessage) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.published = append(s.published, msg)
	return "msg-1", nil
}

type stubPaymentLinkProvider struct {
	createFunc func(ctx context.Context, req PaymentLinkRequest) (PaymentLink, error)
}

func (s *stubPaymentLinkProvider) CreatePaymentLink(ctx context.Context, req PaymentLinkRequest) (PaymentLink, error) {
	if s.createFunc == nil {
		return PaymentLink{}, errors.New("createFunc not configured")
	}
	return s.createFunc(ctx, req)
}

type stubNotificationVerifier struct {
	err error
}

func (s *stubNotificationVerifier) VerifyNotification(orderNumber, statusCode, grossAmount, signatureKey string) error {
	return s.err
}

type stubImageStore struct {
	signFunc func(ctx context.Context, objectName, contentType string) (ProductImageUpload, error)
}

func (s *stubImageStore) SignImageUpload(ctx context.Context, objectName, contentType string) (ProductImageUpload, error) {
	if s.signFunc == nil {
		return ProductImageUpload{}, errors.New("signFunc not configured")
	}
	return s.signFunc(ctx, objectName, contentType)
}

type stubHealthRepository struct {
	collectFunc func(ctx context.Context) (domain.SystemHealthReport, error)
}

func (s *stubHealthRepository) Collect(ctx context.Context) (domain.SystemHealthReport, error) {
	if s.collectFunc == nil {
		return domain.SystemHealthReport{}, errors.New("collectFunc not configured")
	}
	return s.collectFunc(ctx)
}
