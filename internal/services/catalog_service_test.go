package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	domain "github.com/gerai/api/internal/domain"
	"github.com/gerai/api/internal/repositories"
)

func newTestCatalogService(t *testing.T, repo *stubProductRepository, now time.Time) CatalogService {
	t.Helper()
	service, err := NewCatalogService(CatalogServiceDeps{
		Repository:  repo,
		Clock:       func() time.Time { return now },
		IDGenerator: func() string { return "prod-new" },
	})
	if err != nil {
		t.Fatalf("unexpected error constructing catalog service: %v", err)
	}
	return service
}

func TestCatalogServiceListDefaultsToActiveOnly(t *testing.T) {
	now := time.Date(2025, 5, 6, 12, 0, 0, 0, time.UTC)
	repo := &stubProductRepository{
		listFunc: func(ctx context.Context, query repositories.ProductListQuery) (domain.Page[domain.Product], error) {
			if !query.ActiveOnly {
				t.Fatalf("public listing must filter to active products")
			}
			if query.NamePrefix != "kopi" {
				t.Fatalf("expected search prefix kopi, got %q", query.NamePrefix)
			}
			return domain.Page[domain.Product]{Page: 1, Limit: 20, TotalPages: 1}, nil
		},
	}
	service := newTestCatalogService(t, repo, now)

	if _, err := service.ListProducts(context.Background(), ListProductsQuery{Search: " kopi "}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCatalogServiceCreateProduct(t *testing.T) {
	now := time.Date(2025, 5, 6, 12, 0, 0, 0, time.UTC)
	repo := &stubProductRepository{
		insertFunc: func(ctx context.Context, product domain.Product) (domain.Product, error) {
			if product.ID != "prod-new" {
				t.Fatalf("expected generated id, got %q", product.ID)
			}
			if !product.Active {
				t.Fatalf("new products must start active")
			}
			if !product.CreatedAt.Equal(now) {
				t.Fatalf("expected clock timestamp, got %v", product.CreatedAt)
			}
			return product, nil
		},
	}
	service := newTestCatalogService(t, repo, now)

	product, err := service.CreateProduct(context.Background(), CreateProductCommand{
		Name:  " Kopi Gayo ",
		Price: 50000,
		Stock: 10,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if product.Name != "Kopi Gayo" {
		t.Fatalf("expected trimmed name, got %q", product.Name)
	}
}

func TestCatalogServiceCreateProductValidation(t *testing.T) {
	now := time.Date(2025, 5, 6, 12, 0, 0, 0, time.UTC)
	service := newTestCatalogService(t, &stubProductRepository{}, now)

	cases := []CreateProductCommand{
		{Name: "", Price: 100, Stock: 1},
		{Name: strings.Repeat("n", 201), Price: 100, Stock: 1},
		{Name: "Kopi", Price: 0, Stock: 1},
		{Name: "Kopi", Price: -5, Stock: 1},
		{Name: "Kopi", Price: 100, Stock: -1},
	}
	for i, cmd := range cases {
		if _, err := service.CreateProduct(context.Background(), cmd); !errors.Is(err, ErrCatalogInvalidInput) {
			t.Fatalf("case %d: expected ErrCatalogInvalidInput, got %v", i, err)
		}
	}
}

func TestCatalogServiceUpdateUnknownProduct(t *testing.T) {
	now := time.Date(2025, 5, 6, 12, 0, 0, 0, time.UTC)
	repo := &stubProductRepository{
		findFunc: func(ctx context.Context, productID string) (domain.Product, error) {
			return domain.Product{}, &repositoryErrorStub{notFound: true}
		},
	}
	service := newTestCatalogService(t, repo, now)

	_, err := service.UpdateProduct(context.Background(), UpdateProductCommand{
		ProductID: "prod-404",
		Name:      "Kopi",
		Price:     100,
		Stock:     1,
	})
	if !errors.Is(err, ErrCatalogNotFound) {
		t.Fatalf("expected ErrCatalogNotFound, got %v", err)
	}
}

func TestCatalogServiceDeleteDeactivates(t *testing.T) {
	now := time.Date(2025, 5, 6, 12, 0, 0, 0, time.UTC)
	deactivated := ""
	repo := &stubProductRepository{
		deactivateFunc: func(ctx context.Context, productID string, at time.Time) error {
			deactivated = productID
			return nil
		},
	}
	service := newTestCatalogService(t, repo, now)

	if err := service.DeleteProduct(context.Background(), "prod-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if deactivated != "prod-1" {
		t.Fatalf("expected deactivation of prod-1, got %q", deactivated)
	}
}

func TestCatalogServiceCreateImageUpload(t *testing.T) {
	now := time.Date(2025, 5, 6, 12, 0, 0, 0, time.UTC)
	repo := &stubProductRepository{
		findFunc: func(ctx context.Context, productID string) (domain.Product, error) {
			return domain.Product{ID: productID, Name: "Kopi Gayo", Active: true}, nil
		},
	}
	media := &stubImageStore{
		signFunc: func(ctx context.Context, objectName, contentType string) (ProductImageUpload, error) {
			if !strings.HasPrefix(objectName, "products/prod-1/") || !strings.HasSuffix(objectName, ".png") {
				t.Fatalf("unexpected object name %q", objectName)
			}
			if contentType != "image/png" {
				t.Fatalf("unexpected content type %q", contentType)
			}
			return ProductImageUpload{
				UploadURL:  "https://signed.example/" + objectName,
				PublicURL:  "https://cdn.example/" + objectName,
				ObjectName: objectName,
				ExpiresAt:  now.Add(15 * time.Minute),
			}, nil
		},
	}
	service, err := NewCatalogService(CatalogServiceDeps{
		Repository:  repo,
		Media:       media,
		Clock:       func() time.Time { return now },
		IDGenerator: func() string { return "01ABC" },
	})
	if err != nil {
		t.Fatalf("unexpected error constructing catalog service: %v", err)
	}

	upload, err := service.CreateProductImageUpload(context.Background(), ProductImageUploadCommand{
		ProductID:   "prod-1",
		ContentType: "image/png",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if upload.ObjectName != "products/prod-1/01abc.png" {
		t.Fatalf("unexpected object name %q", upload.ObjectName)
	}
}

func TestCatalogServiceCreateImageUploadUnsupportedType(t *testing.T) {
	now := time.Date(2025, 5, 6, 12, 0, 0, 0, time.UTC)
	service, err := NewCatalogService(CatalogServiceDeps{
		Repository: &stubProductRepository{},
		Media:      &stubImageStore{},
		Clock:      func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("unexpected error constructing catalog service: %v", err)
	}

	_, err = service.CreateProductImageUpload(context.Background(), ProductImageUploadCommand{
		ProductID:   "prod-1",
		ContentType: "application/pdf",
	})
	if !errors.Is(err, ErrCatalogInvalidInput) {
		t.Fatalf("expected ErrCatalogInvalidInput, got %v", err)
	}
}

func TestCatalogServiceCreateImageUploadDisabled(t *testing.T) {
	now := time.Date(2025, 5, 6, 12, 0, 0, 0, time.UTC)
	service := newTestCatalogService(t, &stubProductRepository{}, now)

	_, err := service.CreateProductImageUpload(context.Background(), ProductImageUploadCommand{
		ProductID:   "prod-1",
		ContentType: "image/png",
	})
	if !errors.Is(err, ErrCatalogUploadsDisabled) {
		t.Fatalf("expected ErrCatalogUploadsDisabled, got %v", err)
	}
}
