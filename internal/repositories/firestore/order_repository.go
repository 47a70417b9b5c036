package firestore

import (
	"context"
	"errors"
	"strings"

	"cloud.google.com/go/firestore"

	domain "github.com/gerai/api/internal/domain"
	pfirestore "github.com/gerai/api/internal/platform/firestore"
	"github.com/gerai/api/internal/repositories"
)

// OrderRepository reads and transactionally mutates orders within Firestore.
type OrderRepository struct {
	base     *pfirestore.BaseRepository[orderDocument]
	provider *pfirestore.Provider
}

var _ repositories.OrderRepository = (*OrderRepository)(nil)

// NewOrderRepository constructs a Firestore-backed order repository.
func NewOrderRepository(provider *pfirestore.Provider) (*OrderRepository, error) {
	if provider == nil {
		return nil, errors.New("order repository requires firestore provider")
	}
	return &OrderRepository{
		base:     pfirestore.NewBaseRepository[orderDocument](provider, orderCollection, nil, nil),
		provider: provider,
	}, nil
}

// FindByID fetches a single order.
func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	if r == nil || r.base == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}

	doc, err := r.base.Get(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	return doc.Data.toDomain(doc.ID), nil
}

// FindByOrderNumber resolves an order via its human-readable number, as used
// by payment gateway notifications.
func (r *OrderRepository) FindByOrderNumber(ctx context.Context, orderNumber string) (domain.Order, error) {
	if r == nil || r.base == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}
	orderNumber = strings.TrimSpace(orderNumber)
	if orderNumber == "" {
		return domain.Order{}, errors.New("order repository: order number is required")
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("orderNumber", "==", orderNumber).Limit(1)
	})
	if err != nil {
		return domain.Order{}, err
	}
	if len(docs) == 0 {
		return domain.Order{}, notFoundError("orders.find_by_number", "order not found")
	}
	return docs[0].Data.toDomain(docs[0].ID), nil
}

// List returns one page of orders together with the total match count,
// newest first.
func (r *OrderRepository) List(ctx context.Context, query repositories.OrderListQuery) (domain.Page[domain.Order], error) {
	if r == nil || r.base == nil {
		return domain.Page[domain.Order]{}, errors.New("order repository not initialised")
	}

	page := normalisePage(query.Page)

	filter := func(q firestore.Query) firestore.Query {
		if userID := strings.TrimSpace(query.UserID); userID != "" {
			q = q.Where("userId", "==", userID)
		}
		if query.Status != nil {
			q = q.Where("status", "==", string(*query.Status))
		}
		return q
	}

	total, err := r.base.Count(ctx, filter)
	if err != nil {
		return domain.Page[domain.Order]{}, err
	}

	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return filter(q).
			OrderBy("createdAt", firestore.Desc).
			Offset(pageOffset(page)).
			Limit(page.Limit)
	})
	if err != nil {
		return domain.Page[domain.Order]{}, err
	}

	items := make([]domain.Order, 0, len(docs))
	for _, doc := range docs {
		items = append(items, doc.Data.toDomain(doc.ID))
	}

	return newPage(items, total, page), nil
}

// Mutate applies the mutator to the order inside a transaction, so concurrent
// status updates serialise instead of clobbering each other. Mutator errors
// abort the transaction and are returned unchanged.
func (r *OrderRepository) Mutate(ctx context.Context, orderID string, mutate repositories.OrderMutator) (domain.Order, error) {
	if r == nil || r.base == nil || r.provider == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}
	if mutate == nil {
		return domain.Order{}, errors.New("order repository: mutator is required")
	}

	client, err := r.provider.Client(ctx)
	if err != nil {
		return domain.Order{}, err
	}
	ref, err := r.base.DocumentRef(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}

	var (
		mutated   domain.Order
		mutateErr error
	)
	err = pfirestore.RunTransaction(ctx, client, func(_ context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}

		var doc orderDocument
		if err := snap.DataTo(&doc); err != nil {
			return err
		}

		next, err := mutate(doc.toDomain(snap.Ref.ID))
		if err != nil {
			mutateErr = err
			return err
		}

		mutated = next
		return tx.Set(ref, orderToDocument(next))
	})
	if mutateErr != nil {
		return domain.Order{}, mutateErr
	}
	if err != nil {
		return domain.Order{}, err
	}
	return mutated, nil
}
