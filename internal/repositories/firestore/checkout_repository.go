package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	domain "github.com/gerai/api/internal/domain"
	pfirestore "github.com/gerai/api/internal/platform/firestore"
	"github.com/gerai/api/internal/repositories"
)

// CheckoutRepository places an order in one Firestore transaction. The
// transaction reads the requested products, the daily order counter, and the
// user's cart, then writes the stock decrements, the order document, the
// counter, and the emptied cart. Contention on any of those documents retries
// the whole transaction, which is what makes concurrent checkouts of the last
// unit safe.
type CheckoutRepository struct {
	provider *pfirestore.Provider
}

var _ repositories.CheckoutRepository = (*CheckoutRepository)(nil)

// NewCheckoutRepository constructs a Firestore-backed checkout repository.
func NewCheckoutRepository(provider *pfirestore.Provider) (*CheckoutRepository, error) {
	if provider == nil {
		return nil, errors.New("checkout repository requires firestore provider")
	}
	return &CheckoutRepository{provider: provider}, nil
}

// PlaceOrder implements repositories.CheckoutRepository.
func (r *CheckoutRepository) PlaceOrder(ctx context.Context, userID string, productIDs []string, now time.Time, assemble repositories.CheckoutAssembler) (domain.Order, error) {
	if r == nil || r.provider == nil {
		return domain.Order{}, errors.New("checkout repository not initialised")
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.Order{}, errors.New("checkout repository: user id is required")
	}
	if assemble == nil {
		return domain.Order{}, errors.New("checkout repository: assembler is required")
	}

	client, err := r.provider.Client(ctx)
	if err != nil {
		return domain.Order{}, err
	}

	now = now.UTC()
	cartRef := client.Collection(cartCollection).Doc(userID)
	counterRef := client.Collection(counterCollection).Doc(orderCounterID(now))

	var (
		placed      domain.Order
		assembleErr error
	)
	err = pfirestore.RunTransaction(ctx, client, func(_ context.Context, tx *firestore.Transaction) error {
		// All reads must happen before the first write.
		clearCart := true
		if _, err := tx.Get(cartRef); err != nil {
			if status.Code(err) != codes.NotFound {
				return err
			}
			// Nothing to clear for a user who never touched their cart.
			clearCart = false
		}

		type productState struct {
			ref *firestore.DocumentRef
			doc productDocument
		}
		states := make(map[string]productState, len(productIDs))
		products := make(map[string]domain.Product, len(productIDs))
		for _, productID := range productIDs {
			productID = strings.TrimSpace(productID)
			if productID == "" {
				continue
			}
			if _, seen := states[productID]; seen {
				continue
			}
			ref := client.Collection(productCollection).Doc(productID)
			snap, err := tx.Get(ref)
			if err != nil {
				if status.Code(err) == codes.NotFound {
					// Missing products are reported by the assembler.
					continue
				}
				return err
			}
			var doc productDocument
			if err := snap.DataTo(&doc); err != nil {
				return err
			}
			states[productID] = productState{ref: ref, doc: doc}
			products[productID] = doc.toDomain(productID)
		}

		seq := int64(1)
		counterSnap, err := tx.Get(counterRef)
		switch {
		case err == nil:
			var counter counterDocument
			if err := counterSnap.DataTo(&counter); err != nil {
				return err
			}
			seq = counter.Value + 1
		case status.Code(err) == codes.NotFound:
			// First order of the day.
		default:
			return err
		}

		order, err := assemble(products, seq)
		if err != nil {
			assembleErr = err
			return err
		}

		for _, item := range order.Items {
			state, ok := states[item.ProductID]
			if !ok {
				assembleErr = fmt.Errorf("checkout repository: assembled item references unread product %s", item.ProductID)
				return assembleErr
			}
			if err := tx.Update(state.ref, []firestore.Update{
				{Path: "stock", Value: state.doc.Stock - item.Quantity},
				{Path: "updatedAt", Value: now},
			}); err != nil {
				return err
			}
		}

		if err := tx.Set(counterRef, counterDocument{Value: seq, UpdatedAt: now}); err != nil {
			return err
		}

		orderRef := client.Collection(orderCollection).Doc(order.ID)
		if err := tx.Set(orderRef, orderToDocument(order)); err != nil {
			return err
		}

		if clearCart {
			if err := tx.Update(cartRef, []firestore.Update{
				{Path: "items", Value: []cartItemDocument{}},
				{Path: "updatedAt", Value: now},
			}); err != nil {
				return err
			}
		}

		placed = order
		return nil
	})
	if assembleErr != nil {
		return domain.Order{}, assembleErr
	}
	if err != nil {
		return domain.Order{}, err
	}
	return placed, nil
}

func orderCounterID(now time.Time) string {
	return "order-numbers-" + now.UTC().Format("20060102")
}
