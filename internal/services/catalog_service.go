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
	errCatalogRepositoryRequired = errors.New("catalog service: repository is required")
	errCatalogClockRequired      = errors.New("catalog service: clock is required")
)

const maxProductNameLength = 200

// ErrCatalogInvalidInput indicates the caller supplied invalid input.
var ErrCatalogInvalidInput = errors.New("catalog service: invalid input")

// ErrCatalogNotFound indicates the requested product does not exist.
var ErrCatalogNotFound = errors.New("catalog service: not found")

// ErrCatalogConflict indicates the product could not be updated due to concurrent modifications.
var ErrCatalogConflict = errors.New("catalog service: conflict")

// ErrCatalogUnavailable indicates the catalog service cannot fulfil the request due to backend issues.
var ErrCatalogUnavailable = errors.New("catalog service: unavailable")

// ErrCatalogUploadsDisabled indicates no image store is configured for this deployment.
var ErrCatalogUploadsDisabled = errors.New("catalog service: image uploads disabled")

// CatalogServiceDeps wires the product repository for catalog operations.
// Media is optional; leaving it nil disables image upload slots.
type CatalogServiceDeps struct {
	Repository  repositories.ProductRepository
	Media       ProductImageStore
	Clock       func() time.Time
	Logger      func(context.Context, string, map[string]any)
	IDGenerator func() string
}

type catalogService struct {
	repo   repositories.ProductRepository
	media  ProductImageStore
	newID  func() string
	now    func() time.Time
	logger func(context.Context, string, map[string]any)
}

// NewCatalogService constructs a CatalogService enforcing dependency validation.
func NewCatalogService(deps CatalogServiceDeps) (CatalogService, error) {
	if deps.Repository == nil {
		return nil, errCatalogRepositoryRequired
	}
	if deps.Clock == nil {
		return nil, errCatalogClockRequired
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}

	return &catalogService{
		repo:   deps.Repository,
		media:  deps.Media,
		newID:  idGen,
		now:    func() time.Time { return deps.Clock().UTC() },
		logger: logger,
	}, nil
}

// ListProducts pages the catalog. Public callers see active products only;
// IncludeAll is reserved for administrative listings.
func (s *catalogService) ListProducts(ctx context.Context, query ListProductsQuery) (domain.Page[Product], error) {
	if s == nil || s.repo == nil {
		return domain.Page[Product]{}, ErrCatalogUnavailable
	}

	page, err := s.repo.List(ctx, repositories.ProductListQuery{
		Page:       query.Page,
		ActiveOnly: !query.IncludeAll,
		NamePrefix: strings.TrimSpace(query.Search),
	})
	if err != nil {
		return domain.Page[Product]{}, s.translateRepoError(err)
	}
	return page, nil
}

// GetProduct fetches a single product by ID.
func (s *catalogService) GetProduct(ctx context.Context, productID string) (Product, error) {
	if s == nil || s.repo == nil {
		return Product{}, ErrCatalogUnavailable
	}
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return Product{}, fmt.Errorf("%w: product id is required", ErrCatalogInvalidInput)
	}

	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		return Product{}, s.translateRepoError(err)
	}
	return product, nil
}

// CreateProduct stores a new active product.
func (s *catalogService) CreateProduct(ctx context.Context, cmd CreateProductCommand) (Product, error) {
	if s == nil || s.repo == nil {
		return Product{}, ErrCatalogUnavailable
	}
	if err := validateProductFields(cmd.Name, cmd.Price, cmd.Stock); err != nil {
		return Product{}, err
	}

	now := s.now()
	product, err := s.repo.Insert(ctx, domain.Product{
		ID:        s.newID(),
		Name:      strings.TrimSpace(cmd.Name),
		Price:     cmd.Price,
		Stock:     cmd.Stock,
		Active:    true,
		ImageURL:  strings.TrimSpace(cmd.ImageURL),
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return Product{}, s.translateRepoError(err)
	}

	s.logger(ctx, "catalog.product_created", map[string]any{
		"productId": product.ID,
		"name":      product.Name,
	})
	return product, nil
}

// UpdateProduct replaces the mutable fields of an existing product.
func (s *catalogService) UpdateProduct(ctx context.Context, cmd UpdateProductCommand) (Product, error) {
	if s == nil || s.repo == nil {
		return Product{}, ErrCatalogUnavailable
	}
	productID := strings.TrimSpace(cmd.ProductID)
	if productID == "" {
		return Product{}, fmt.Errorf("%w: product id is required", ErrCatalogInvalidInput)
	}
	if err := validateProductFields(cmd.Name, cmd.Price, cmd.Stock); err != nil {
		return Product{}, err
	}

	current, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		return Product{}, s.translateRepoError(err)
	}

	current.Name = strings.TrimSpace(cmd.Name)
	current.Price = cmd.Price
	current.Stock = cmd.Stock
	current.Active = cmd.Active
	current.ImageURL = strings.TrimSpace(cmd.ImageURL)
	current.UpdatedAt = s.now()

	updated, err := s.repo.Update(ctx, current)
	if err != nil {
		return Product{}, s.translateRepoError(err)
	}

	s.logger(ctx, "catalog.product_updated", map[string]any{"productId": updated.ID})
	return updated, nil
}

// DeleteProduct soft-deletes by flagging the product inactive so existing
// order history keeps resolving.
func (s *catalogService) DeleteProduct(ctx context.Context, productID string) error {
	if s == nil || s.repo == nil {
		return ErrCatalogUnavailable
	}
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return fmt.Errorf("%w: product id is required", ErrCatalogInvalidInput)
	}

	if err := s.repo.Deactivate(ctx, productID, s.now()); err != nil {
		return s.translateRepoError(err)
	}
	s.logger(ctx, "catalog.product_deactivated", map[string]any{"productId": productID})
	return nil
}

// imageExtensions limits uploads to the formats the storefront renders.
var imageExtensions = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
}

// CreateProductImageUpload issues a signed upload slot for a product image.
// The object path embeds the product ID so images stay traceable to their
// product even after replacement.
func (s *catalogService) CreateProductImageUpload(ctx context.Context, cmd ProductImageUploadCommand) (ProductImageUpload, error) {
	if s == nil || s.repo == nil {
		return ProductImageUpload{}, ErrCatalogUnavailable
	}
	if s.media == nil {
		return ProductImageUpload{}, ErrCatalogUploadsDisabled
	}

	productID := strings.TrimSpace(cmd.ProductID)
	if productID == "" {
		return ProductImageUpload{}, fmt.Errorf("%w: product id is required", ErrCatalogInvalidInput)
	}
	ext, ok := imageExtensions[strings.ToLower(strings.TrimSpace(cmd.ContentType))]
	if !ok {
		return ProductImageUpload{}, fmt.Errorf("%w: unsupported content type %q", ErrCatalogInvalidInput, cmd.ContentType)
	}

	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		return ProductImageUpload{}, s.translateRepoError(err)
	}

	objectName := fmt.Sprintf("products/%s/%s.%s", product.ID, strings.ToLower(s.newID()), ext)
	upload, err := s.media.SignImageUpload(ctx, objectName, strings.ToLower(strings.TrimSpace(cmd.ContentType)))
	if err != nil {
		s.logger(ctx, "catalog.image_upload_failed", map[string]any{
			"productId": product.ID,
			"error":     err.Error(),
		})
		return ProductImageUpload{}, ErrCatalogUnavailable
	}

	s.logger(ctx, "catalog.image_upload_issued", map[string]any{
		"productId": product.ID,
		"object":    upload.ObjectName,
	})
	return upload, nil
}

func validateProductFields(name string, price int64, stock int) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: product name is required", ErrCatalogInvalidInput)
	}
	if len(name) > maxProductNameLength {
		return fmt.Errorf("%w: product name must not exceed %d characters", ErrCatalogInvalidInput, maxProductNameLength)
	}
	if price <= 0 {
		return fmt.Errorf("%w: price must be positive", ErrCatalogInvalidInput)
	}
	if stock < 0 {
		return fmt.Errorf("%w: stock must not be negative", ErrCatalogInvalidInput)
	}
	return nil
}

func (s *catalogService) translateRepoError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return ErrCatalogNotFound
		case repoErr.IsConflict():
			return ErrCatalogConflict
		case repoErr.IsUnavailable():
			return ErrCatalogUnavailable
		}
		return ErrCatalogUnavailable
	}
	return ErrCatalogUnavailable
}
