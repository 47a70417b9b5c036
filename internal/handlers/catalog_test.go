package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/gerai/api/internal/domain"
	"github.com/gerai/api/internal/services"
)

func newCatalogRouter(catalog services.CatalogService) chi.Router {
	r := chi.NewRouter()
	NewCatalogHandlers(catalog).Routes(r)
	return r
}

func TestCatalogListProducts(t *testing.T) {
	now := time.Date(2025, 5, 6, 12, 0, 0, 0, time.UTC)
	catalog := &stubCatalogService{
		listFunc: func(ctx context.Context, query services.ListProductsQuery) (domain.Page[domain.Product], error) {
			if query.IncludeAll {
				t.Fatalf("public listing must not include inactive products")
			}
			if query.Page.Page != 2 || query.Page.Limit != 5 {
				t.Fatalf("unexpected page query %+v", query.Page)
			}
			return domain.Page[domain.Product]{
				Items: []domain.Product{
					{ID: "prod-1", Name: "Kopi Gayo", Price: 50000, Stock: 10, Active: true, CreatedAt: now},
				},
				Total:      11,
				Page:       2,
				Limit:      5,
				TotalPages: 3,
			}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/?page=2&limit=5", nil)
	rec := doRequest(newCatalogRouter(catalog), req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var envelope struct {
		Data pagePayload[productPayload] `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.Total != 11 || envelope.Data.TotalPages != 3 {
		t.Fatalf("unexpected page meta %+v", envelope.Data)
	}
	if len(envelope.Data.Items) != 1 || envelope.Data.Items[0].Name != "Kopi Gayo" {
		t.Fatalf("unexpected items %+v", envelope.Data.Items)
	}
}

func TestCatalogGetProductNotFound(t *testing.T) {
	catalog := &stubCatalogService{
		getFunc: func(ctx context.Context, productID string) (domain.Product, error) {
			return domain.Product{}, services.ErrCatalogNotFound
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/prod-404", nil)
	rec := doRequest(newCatalogRouter(catalog), req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestCatalogListRejectsBadPagination(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?page=zero", nil)
	rec := doRequest(newCatalogRouter(&stubCatalogService{}), req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}
