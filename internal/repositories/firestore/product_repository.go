package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/gerai/api/internal/domain"
	pfirestore "github.com/gerai/api/internal/platform/firestore"
	"github.com/gerai/api/internal/repositories"
)

// ProductRepository persists catalog products within Firestore.
type ProductRepository struct {
	base *pfirestore.BaseRepository[productDocument]
}

var _ repositories.ProductRepository = (*ProductRepository)(nil)

// NewProductRepository constructs a Firestore-backed product repository.
func NewProductRepository(provider *pfirestore.Provider) (*ProductRepository, error) {
	if provider == nil {
		return nil, errors.New("product repository requires firestore provider")
	}
	return &ProductRepository{
		base: pfirestore.NewBaseRepository[productDocument](provider, productCollection, nil, nil),
	}, nil
}

// Insert stores a new product under its pre-assigned ID.
func (r *ProductRepository) Insert(ctx context.Context, product domain.Product) (domain.Product, error) {
	if r == nil || r.base == nil {
		return domain.Product{}, errors.New("product repository not initialised")
	}
	productID := strings.TrimSpace(product.ID)
	if productID == "" {
		return domain.Product{}, errors.New("product repository: product id is required")
	}

	doc := productToDocument(product)
	if _, err := r.base.Set(ctx, productID, doc); err != nil {
		return domain.Product{}, err
	}
	return doc.toDomain(productID), nil
}

// Update replaces the stored product document.
func (r *ProductRepository) Update(ctx context.Context, product domain.Product) (domain.Product, error) {
	if r == nil || r.base == nil {
		return domain.Product{}, errors.New("product repository not initialised")
	}
	productID := strings.TrimSpace(product.ID)
	if productID == "" {
		return domain.Product{}, errors.New("product repository: product id is required")
	}

	// Existence check so updates of unknown products surface as not found
	// instead of silently creating documents.
	if _, err := r.base.Get(ctx, productID); err != nil {
		return domain.Product{}, err
	}

	doc := productToDocument(product)
	if _, err := r.base.Set(ctx, productID, doc); err != nil {
		return domain.Product{}, err
	}
	return doc.toDomain(productID), nil
}

// Deactivate soft-deletes the product by flagging it inactive. Existing order
// and cart snapshots keep referencing it.
func (r *ProductRepository) Deactivate(ctx context.Context, productID string, now time.Time) error {
	if r == nil || r.base == nil {
		return errors.New("product repository not initialised")
	}
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return errors.New("product repository: product id is required")
	}

	_, err := r.base.Update(ctx, productID, []firestore.Update{
		{Path: "active", Value: false},
		{Path: "updatedAt", Value: now.UTC()},
	})
	return err
}

// FindByID fetches a single product.
func (r *ProductRepository) FindByID(ctx context.Context, productID string) (domain.Product, error) {
	if r == nil || r.base == nil {
		return domain.Product{}, errors.New("product repository not initialised")
	}

	doc, err := r.base.Get(ctx, productID)
	if err != nil {
		return domain.Product{}, err
	}
	return doc.Data.toDomain(doc.ID), nil
}

// List returns one page of products together with the total match count.
func (r *ProductRepository) List(ctx context.Context, query repositories.ProductListQuery) (domain.Page[domain.Product], error) {
	if r == nil || r.base == nil {
		return domain.Page[domain.Product]{}, errors.New("product repository not initialised")
	}

	page := normalisePage(query.Page)

	filter := func(q firestore.Query) firestore.Query {
		if query.ActiveOnly {
			q = q.Where("active", "==", true)
		}
		if prefix := strings.TrimSpace(query.NamePrefix); prefix != "" {
			q = q.Where("name", ">=", prefix).Where("name", "<", prefix+"\uf8ff")
		}
		return q
	}

	total, err := r.base.Count(ctx, filter)
	if err != nil {
		return domain.Page[domain.Product]{}, err
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		q = filter(q)
		if strings.TrimSpace(query.NamePrefix) != "" {
			q = q.OrderBy("name", firestore.Asc)
		} else {
			q = q.OrderBy("createdAt", firestore.Desc)
		}
		return q.Offset(pageOffset(page)).Limit(page.Limit)
	})
	if err != nil {
		return domain.Page[domain.Product]{}, err
	}

	items := make([]domain.Product, 0, len(docs))
	for _, doc := range docs {
		items = append(items, doc.Data.toDomain(doc.ID))
	}

	return newPage(items, total, page), nil
}

func normalisePage(page domain.PageQuery) domain.PageQuery {
	if page.Page <= 0 {
		page.Page = 1
	}
	if page.Limit <= 0 {
		page.Limit = 20
	}
	return page
}

func pageOffset(page domain.PageQuery) int {
	return (page.Page - 1) * page.Limit
}

func newPage[T any](items []T, total int64, page domain.PageQuery) domain.Page[T] {
	totalPages := int((total + int64(page.Limit) - 1) / int64(page.Limit))
	if totalPages < 1 {
		totalPages = 1
	}
	return domain.Page[T]{
		Items:      items,
		Total:      total,
		Page:       page.Page,
		Limit:      page.Limit,
		TotalPages: totalPages,
	}
}
