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
	errCartRepositoryRequired = errors.New("cart service: repository is required")
	errCartProductsRequired   = errors.New("cart service: product repository is required")
	errCartClockRequired      = errors.New("cart service: clock is required")
)

// ErrCartInvalidInput indicates the caller supplied invalid input.
var ErrCartInvalidInput = errors.New("cart service: invalid input")

// ErrCartNotFound indicates the requested cart line or product does not exist.
var ErrCartNotFound = errors.New("cart service: not found")

// ErrCartInsufficientStock indicates the requested quantity exceeds the live stock.
var ErrCartInsufficientStock = errors.New("cart service: insufficient stock")

// ErrCartConflict indicates the cart could not be updated due to concurrent modifications.
var ErrCartConflict = errors.New("cart service: conflict")

// ErrCartUnavailable indicates the cart service cannot fulfil the request due to backend issues.
var ErrCartUnavailable = errors.New("cart service: unavailable")

// CartServiceDeps wires the repositories for cart operations.
type CartServiceDeps struct {
	Repository  repositories.CartRepository
	Products    repositories.ProductRepository
	Clock       func() time.Time
	Logger      func(context.Context, string, map[string]any)
	IDGenerator func() string
}

type cartService struct {
	repo     repositories.CartRepository
	products repositories.ProductRepository
	newID    func() string
	now      func() time.Time
	logger   func(context.Context, string, map[string]any)
}

// NewCartService constructs a CartService enforcing dependency validation.
func NewCartService(deps CartServiceDeps) (CartService, error) {
	if deps.Repository == nil {
		return nil, errCartRepositoryRequired
	}
	if deps.Products == nil {
		return nil, errCartProductsRequired
	}
	if deps.Clock == nil {
		return nil, errCartClockRequired
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}

	return &cartService{
		repo:     deps.Repository,
		products: deps.Products,
		newID:    idGen,
		now:      func() time.Time { return deps.Clock().UTC() },
		logger:   logger,
	}, nil
}

// GetCart loads the user's cart. A cart that was never written reads as empty;
// carts are created lazily on the first write.
func (s *cartService) GetCart(ctx context.Context, userID string) (CartView, error) {
	if s == nil || s.repo == nil {
		return CartView{}, ErrCartUnavailable
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return CartView{}, fmt.Errorf("%w: user id is required", ErrCartInvalidInput)
	}

	cart, err := s.repo.GetCart(ctx, userID)
	if err != nil {
		translated := s.translateRepoError(err)
		if errors.Is(translated, ErrCartNotFound) {
			return newCartView(domain.Cart{UserID: userID}), nil
		}
		return CartView{}, translated
	}
	return newCartView(cart), nil
}

// UpsertItem adds a product to the cart, merging with an existing line for the
// same product by summing quantities. The line's price snapshot is refreshed to
// the product's current price on every upsert.
func (s *cartService) UpsertItem(ctx context.Context, cmd UpsertCartItemCommand) (CartView, error) {
	if s == nil || s.repo == nil || s.products == nil {
		return CartView{}, ErrCartUnavailable
	}
	userID := strings.TrimSpace(cmd.UserID)
	if userID == "" {
		return CartView{}, fmt.Errorf("%w: user id is required", ErrCartInvalidInput)
	}
	productID := strings.TrimSpace(cmd.ProductID)
	if productID == "" {
		return CartView{}, fmt.Errorf("%w: product id is required", ErrCartInvalidInput)
	}
	if cmd.Quantity < 1 {
		return CartView{}, fmt.Errorf("%w: quantity must be at least 1", ErrCartInvalidInput)
	}

	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return CartView{}, s.translateRepoError(err)
	}
	if !product.Active {
		return CartView{}, fmt.Errorf("%w: product %s is no longer available", ErrCartInvalidInput, productID)
	}

	cart, err := s.loadOrEmptyCart(ctx, userID)
	if err != nil {
		return CartView{}, err
	}

	now := s.now()
	merged := false
	for i := range cart.Items {
		if cart.Items[i].ProductID != productID {
			continue
		}
		requested := cart.Items[i].Quantity + cmd.Quantity
		if requested > product.Stock {
			return CartView{}, fmt.Errorf("%w: product %s has %d in stock, %d requested", ErrCartInsufficientStock, productID, product.Stock, requested)
		}
		cart.Items[i].Quantity = requested
		cart.Items[i].ProductName = product.Name
		cart.Items[i].PriceSnapshot = product.Price
		cart.Items[i].UpdatedAt = &now
		merged = true
		break
	}
	if !merged {
		if cmd.Quantity > product.Stock {
			return CartView{}, fmt.Errorf("%w: product %s has %d in stock, %d requested", ErrCartInsufficientStock, productID, product.Stock, cmd.Quantity)
		}
		cart.Items = append(cart.Items, domain.CartItem{
			ID:            s.newID(),
			ProductID:     productID,
			ProductName:   product.Name,
			Quantity:      cmd.Quantity,
			PriceSnapshot: product.Price,
			AddedAt:       now,
		})
	}

	cart.UserID = userID
	cart.UpdatedAt = now
	saved, err := s.repo.SaveCart(ctx, cart)
	if err != nil {
		return CartView{}, s.translateRepoError(err)
	}

	s.logger(ctx, "cart.item_upserted", map[string]any{
		"userId":    userID,
		"productId": productID,
		"quantity":  cmd.Quantity,
		"merged":    merged,
	})
	return newCartView(saved), nil
}

// UpdateItemQuantity sets an absolute quantity on a cart line. Quantity zero
// removes the line.
func (s *cartService) UpdateItemQuantity(ctx context.Context, cmd UpdateCartItemCommand) (CartView, error) {
	if s == nil || s.repo == nil || s.products == nil {
		return CartView{}, ErrCartUnavailable
	}
	userID := strings.TrimSpace(cmd.UserID)
	if userID == "" {
		return CartView{}, fmt.Errorf("%w: user id is required", ErrCartInvalidInput)
	}
	itemID := strings.TrimSpace(cmd.ItemID)
	if itemID == "" {
		return CartView{}, fmt.Errorf("%w: item id is required", ErrCartInvalidInput)
	}
	if cmd.Quantity < 0 {
		return CartView{}, fmt.Errorf("%w: quantity must not be negative", ErrCartInvalidInput)
	}

	cart, err := s.repo.GetCart(ctx, userID)
	if err != nil {
		return CartView{}, s.translateRepoError(err)
	}

	index := -1
	for i := range cart.Items {
		if cart.Items[i].ID == itemID {
			index = i
			break
		}
	}
	if index < 0 {
		return CartView{}, fmt.Errorf("%w: cart item %s", ErrCartNotFound, itemID)
	}

	now := s.now()
	if cmd.Quantity == 0 {
		cart.Items = append(cart.Items[:index], cart.Items[index+1:]...)
	} else {
		product, err := s.products.FindByID(ctx, cart.Items[index].ProductID)
		if err != nil {
			return CartView{}, s.translateRepoError(err)
		}
		if cmd.Quantity > product.Stock {
			return CartView{}, fmt.Errorf("%w: product %s has %d in stock, %d requested", ErrCartInsufficientStock, product.ID, product.Stock, cmd.Quantity)
		}
		cart.Items[index].Quantity = cmd.Quantity
		cart.Items[index].UpdatedAt = &now
	}

	cart.UpdatedAt = now
	saved, err := s.repo.SaveCart(ctx, cart)
	if err != nil {
		return CartView{}, s.translateRepoError(err)
	}

	s.logger(ctx, "cart.item_quantity_updated", map[string]any{
		"userId":   userID,
		"itemId":   itemID,
		"quantity": cmd.Quantity,
	})
	return newCartView(saved), nil
}

// RemoveItem deletes one line from the cart.
func (s *cartService) RemoveItem(ctx context.Context, userID, itemID string) (CartView, error) {
	return s.UpdateItemQuantity(ctx, UpdateCartItemCommand{UserID: userID, ItemID: itemID, Quantity: 0})
}

// ClearCart removes every item. Clearing a cart that is already empty, or one
// that was never created, is reported back to the caller as invalid input.
func (s *cartService) ClearCart(ctx context.Context, userID string) error {
	if s == nil || s.repo == nil {
		return ErrCartUnavailable
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return fmt.Errorf("%w: user id is required", ErrCartInvalidInput)
	}

	cart, err := s.loadOrEmptyCart(ctx, userID)
	if err != nil {
		return err
	}
	if len(cart.Items) == 0 {
		return fmt.Errorf("%w: cart is already empty", ErrCartInvalidInput)
	}

	if err := s.repo.ClearCart(ctx, userID, s.now()); err != nil {
		return s.translateRepoError(err)
	}
	s.logger(ctx, "cart.cleared", map[string]any{"userId": userID})
	return nil
}

func (s *cartService) loadOrEmptyCart(ctx context.Context, userID string) (domain.Cart, error) {
	cart, err := s.repo.GetCart(ctx, userID)
	if err != nil {
		translated := s.translateRepoError(err)
		if errors.Is(translated, ErrCartNotFound) {
			return domain.Cart{UserID: userID, CreatedAt: s.now()}, nil
		}
		return domain.Cart{}, translated
	}
	return cart, nil
}

func newCartView(cart domain.Cart) CartView {
	return CartView{Cart: cart, Summary: domain.Summarize(cart.Items)}
}

func (s *cartService) translateRepoError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return ErrCartNotFound
		case repoErr.IsConflict():
			return ErrCartConflict
		case repoErr.IsUnavailable():
			return ErrCartUnavailable
		}
		return ErrCartUnavailable
	}
	return ErrCartUnavailable
}
