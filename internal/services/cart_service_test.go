package services

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/gerai/api/internal/domain"
)

func newTestCartService(t *testing.T, repo *stubCartRepository, products *stubProductRepository, now time.Time) CartService {
	t.Helper()
	service, err := NewCartService(CartServiceDeps{
		Repository: repo,
		Products:   products,
		Clock:      func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("unexpected error constructing cart service: %v", err)
	}
	return service
}

func TestCartServiceGetCartReturnsEmptyViewWhenMissing(t *testing.T) {
	now := time.Date(2025, 5, 6, 12, 0, 0, 0, time.UTC)
	repo := &stubCartRepository{
		getFunc: func(ctx context.Context, userID string) (domain.Cart, error) {
			return domain.Cart{}, &repositoryErrorStub{notFound: true}
		},
	}
	service := newTestCartService(t, repo, &stubProductRepository{}, now)

	view, err := service.GetCart(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if view.Cart.UserID != "user-1" {
		t.Fatalf("expected cart owner user-1, got %q", view.Cart.UserID)
	}
	if len(view.Cart.Items) != 0 {
		t.Fatalf("expected empty cart, got %d items", len(view.Cart.Items))
	}
	if view.Summary.Total != 0 {
		t.Fatalf("expected zero total for empty cart, got %d", view.Summary.Total)
	}
}

func TestCartServiceUpsertItemMergesAndRefreshesSnapshot(t *testing.T) {
	now := time.Date(2025, 5, 6, 12, 0, 0, 0, time.UTC)
	var saved domain.Cart

	repo := &stubCartRepository{
		getFunc: func(ctx context.Context, userID string) (domain.Cart, error) {
			return domain.Cart{
				UserID: "user-1",
				Items: []domain.CartItem{
					{ID: "item-1", ProductID: "prod-1", ProductName: "Kopi Gayo", Quantity: 3, PriceSnapshot: 50000, AddedAt: now.Add(-time.Hour)},
				},
			}, nil
		},
		saveFunc: func(ctx context.Context, cart domain.Cart) (domain.Cart, error) {
			saved = cart
			return cart, nil
		},
	}
	products := &stubProductRepository{
		findFunc: func(ctx context.Context, productID string) (domain.Product, error) {
			return domain.Product{ID: "prod-1", Name: "Kopi Gayo", Price: 55000, Stock: 10, Active: true}, nil
		},
	}
	service := newTestCartService(t, repo, products, now)

	view, err := service.UpsertItem(context.Background(), UpsertCartItemCommand{
		UserID:    "user-1",
		ProductID: "prod-1",
		Quantity:  2,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(saved.Items) != 1 {
		t.Fatalf("expected a single merged line, got %d", len(saved.Items))
	}
	if saved.Items[0].Quantity != 5 {
		t.Fatalf("expected merged quantity 5, got %d", saved.Items[0].Quantity)
	}
	if saved.Items[0].PriceSnapshot != 55000 {
		t.Fatalf("expected snapshot refreshed to 55000, got %d", saved.Items[0].PriceSnapshot)
	}
	if view.Summary.Subtotal != 5*55000 {
		t.Fatalf("expected subtotal %d, got %d", 5*55000, view.Summary.Subtotal)
	}
}

func TestCartServiceUpsertItemRejectsInsufficientStock(t *testing.T) {
	now := time.Date(2025, 5, 6, 12, 0, 0, 0, time.UTC)
	repo := &stubCartRepository{
		getFunc: func(ctx context.Context, userID string) (domain.Cart, error) {
			return domain.Cart{
				UserID: "user-1",
				Items: []domain.CartItem{
					{ID: "item-1", ProductID: "prod-1", Quantity: 4, PriceSnapshot: 50000, AddedAt: now},
				},
			}, nil
		},
	}
	products := &stubProductRepository{
		findFunc: func(ctx context.Context, productID string) (domain.Product, error) {
			return domain.Product{ID: "prod-1", Name: "Kopi Gayo", Price: 50000, Stock: 5, Active: true}, nil
		},
	}
	service := newTestCartService(t, repo, products, now)

	_, err := service.UpsertItem(context.Background(), UpsertCartItemCommand{
		UserID:    "user-1",
		ProductID: "prod-1",
		Quantity:  2,
	})
	if !errors.Is(err, ErrCartInsufficientStock) {
		t.Fatalf("expected ErrCartInsufficientStock, got %v", err)
	}
}

func TestCartServiceUpsertItemRejectsInactiveProduct(t *testing.T) {
	now := time.Date(2025, 5, 6, 12, 0, 0, 0, time.UTC)
	products := &stubProductRepository{
		findFunc: func(ctx context.Context, productID string) (domain.Product, error) {
			return domain.Product{ID: "prod-1", Name: "Kopi Gayo", Price: 50000, Stock: 5, Active: false}, nil
		},
	}
	service := newTestCartService(t, &stubCartRepository{}, products, now)

	_, err := service.UpsertItem(context.Background(), UpsertCartItemCommand{
		UserID:    "user-1",
		ProductID: "prod-1",
		Quantity:  1,
	})
	if !errors.Is(err, ErrCartInvalidInput) {
		t.Fatalf("expected ErrCartInvalidInput, got %v", err)
	}
}

func TestCartServiceUpsertItemUnknownProduct(t *testing.T) {
	now := time.Date(2025, 5, 6, 12, 0, 0, 0, time.UTC)
	products := &stubProductRepository{
		findFunc: func(ctx context.Context, productID string) (domain.Product, error) {
			return domain.Product{}, &repositoryErrorStub{notFound: true}
		},
	}
	service := newTestCartService(t, &stubCartRepository{}, products, now)

	_, err := service.UpsertItem(context.Background(), UpsertCartItemCommand{
		UserID:    "user-1",
		ProductID: "prod-404",
		Quantity:  1,
	})
	if !errors.Is(err, ErrCartNotFound) {
		t.Fatalf("expected ErrCartNotFound, got %v", err)
	}
}

func TestCartServiceUpdateItemQuantityZeroRemovesLine(t *testing.T) {
	now := time.Date(2025, 5, 6, 12, 0, 0, 0, time.UTC)
	var saved domain.Cart

	repo := &stubCartRepository{
		getFunc: func(ctx context.Context, userID string) (domain.Cart, error) {
			return domain.Cart{
				UserID: "user-1",
				Items: []domain.CartItem{
					{ID: "item-1", ProductID: "prod-1", Quantity: 2, PriceSnapshot: 50000, AddedAt: now},
					{ID: "item-2", ProductID: "prod-2", Quantity: 1, PriceSnapshot: 30000, AddedAt: now},
				},
			}, nil
		},
		saveFunc: func(ctx context.Context, cart domain.Cart) (domain.Cart, error) {
			saved = cart
			return cart, nil
		},
	}
	service := newTestCartService(t, repo, &stubProductRepository{}, now)

	view, err := service.UpdateItemQuantity(context.Background(), UpdateCartItemCommand{
		UserID:   "user-1",
		ItemID:   "item-1",
		Quantity: 0,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(saved.Items) != 1 || saved.Items[0].ID != "item-2" {
		t.Fatalf("expected only item-2 to remain, got %+v", saved.Items)
	}
	if view.Summary.Subtotal != 30000 {
		t.Fatalf("expected subtotal 30000, got %d", view.Summary.Subtotal)
	}
}

func TestCartServiceUpdateItemQuantityUnknownLine(t *testing.T) {
	now := time.Date(2025, 5, 6, 12, 0, 0, 0, time.UTC)
	repo := &stubCartRepository{
		getFunc: func(ctx context.Context, userID string) (domain.Cart, error) {
			return domain.Cart{UserID: "user-1"}, nil
		},
	}
	service := newTestCartService(t, repo, &stubProductRepository{}, now)

	_, err := service.UpdateItemQuantity(context.Background(), UpdateCartItemCommand{
		UserID:   "user-1",
		ItemID:   "item-404",
		Quantity: 1,
	})
	if !errors.Is(err, ErrCartNotFound) {
		t.Fatalf("expected ErrCartNotFound, got %v", err)
	}
}

func TestCartServiceUpdateItemQuantityRejectsNegative(t *testing.T) {
	now := time.Date(2025, 5, 6, 12, 0, 0, 0, time.UTC)
	service := newTestCartService(t, &stubCartRepository{}, &stubProductRepository{}, now)

	_, err := service.UpdateItemQuantity(context.Background(), UpdateCartItemCommand{
		UserID:   "user-1",
		ItemID:   "item-1",
		Quantity: -1,
	})
	if !errors.Is(err, ErrCartInvalidInput) {
		t.Fatalf("expected ErrCartInvalidInput, got %v", err)
	}
}

func TestCartServiceClearCartDelegates(t *testing.T) {
	now := time.Date(2025, 5, 6, 12, 0, 0, 0, time.UTC)
	cleared := false
	repo := &stubCartRepository{
		getFunc: func(ctx context.Context, userID string) (domain.Cart, error) {
			return domain.Cart{
				UserID: userID,
				Items: []domain.CartItem{
					{ID: "item-1", ProductID: "prod-1", Quantity: 1, PriceSnapshot: 40000, AddedAt: now},
				},
			}, nil
		},
		clearFunc: func(ctx context.Context, userID string, at time.Time) error {
			cleared = true
			if userID != "user-1" {
				t.Fatalf("unexpected user id %q", userID)
			}
			if !at.Equal(now) {
				t.Fatalf("expected clock time, got %v", at)
			}
			return nil
		},
	}
	service := newTestCartService(t, repo, &stubProductRepository{}, now)

	if err := service.ClearCart(context.Background(), "user-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cleared {
		t.Fatalf("expected repository clear to run")
	}
}

func TestCartServiceClearCartAlreadyEmpty(t *testing.T) {
	now := time.Date(2025, 5, 6, 12, 0, 0, 0, time.UTC)
	repo := &stubCartRepository{
		getFunc: func(ctx context.Context, userID string) (domain.Cart, error) {
			return domain.Cart{UserID: userID}, nil
		},
		clearFunc: func(ctx context.Context, userID string, at time.Time) error {
			t.Fatalf("clear must not run for an empty cart")
			return nil
		},
	}
	service := newTestCartService(t, repo, &stubProductRepository{}, now)

	err := service.ClearCart(context.Background(), "user-1")
	if !errors.Is(err, ErrCartInvalidInput) {
		t.Fatalf("expected ErrCartInvalidInput, got %v", err)
	}
}

func TestCartServiceClearCartNeverCreated(t *testing.T) {
	now := time.Date(2025, 5, 6, 12, 0, 0, 0, time.UTC)
	repo := &stubCartRepository{
		getFunc: func(ctx context.Context, userID string) (domain.Cart, error) {
			return domain.Cart{}, &repositoryErrorStub{notFound: true}
		},
	}
	service := newTestCartService(t, repo, &stubProductRepository{}, now)

	err := service.ClearCart(context.Background(), "user-1")
	if !errors.Is(err, ErrCartInvalidInput) {
		t.Fatalf("expected ErrCartInvalidInput, got %v", err)
	}
}
