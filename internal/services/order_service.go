package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	domain "github.com/gerai/api/internal/domain"
	"github.com/gerai/api/internal/repositories"
)

var (
	errOrderRepositoryRequired = errors.New("order service: repository is required")
	errOrderClockRequired      = errors.New("order service: clock is required")
)

// ErrOrderInvalidInput indicates the caller supplied invalid input.
var ErrOrderInvalidInput = errors.New("order service: invalid input")

// ErrOrderNotFound indicates the requested order does not exist.
var ErrOrderNotFound = errors.New("order service: not found")

// ErrOrderForbidden indicates the caller lacks the role or ownership the operation requires.
var ErrOrderForbidden = errors.New("order service: forbidden")

// ErrOrderInvalidTransition indicates the requested status is unreachable from the current one.
var ErrOrderInvalidTransition = errors.New("order service: invalid status transition")

// ErrOrderConflict indicates the order could not be updated due to concurrent modifications.
var ErrOrderConflict = errors.New("order service: conflict")

// ErrOrderUnavailable indicates the order service cannot fulfil the request due to backend issues.
var ErrOrderUnavailable = errors.New("order service: unavailable")

const (
	defaultUserOrderPageLimit  = 20
	defaultAdminOrderPageLimit = 100
	maxOrderPageLimit          = 100
)

// orderStateTransitions is the reachability map of the order lifecycle.
// DELIVERED and CANCELLED are terminal.
var orderStateTransitions = map[domain.OrderStatus][]domain.OrderStatus{
	domain.OrderStatusPending:    {domain.OrderStatusProcessing, domain.OrderStatusPaid, domain.OrderStatusCancelled},
	domain.OrderStatusProcessing: {domain.OrderStatusPaid, domain.OrderStatusCancelled},
	domain.OrderStatusPaid:       {domain.OrderStatusShipped},
	domain.OrderStatusShipped:    {domain.OrderStatusDelivered},
}

func canTransition(from, to domain.OrderStatus) bool {
	for _, next := range orderStateTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ownerMayCancel limits self-service cancellation to states where no payment
// has been captured.
func ownerMayCancel(from domain.OrderStatus) bool {
	return from == domain.OrderStatusPending || from == domain.OrderStatusProcessing
}

// OrderServiceDeps wires the repository and event publisher for order operations.
type OrderServiceDeps struct {
	Repository repositories.OrderRepository
	Events     OrderEventPublisher
	Clock      func() time.Time
	Logger     func(context.Context, string, map[string]any)
}

type orderService struct {
	repo   repositories.OrderRepository
	events OrderEventPublisher
	now    func() time.Time
	logger func(context.Context, string, map[string]any)
}

// NewOrderService constructs an OrderService enforcing dependency validation.
func NewOrderService(deps OrderServiceDeps) (OrderService, error) {
	if deps.Repository == nil {
		return nil, errOrderRepositoryRequired
	}
	if deps.Clock == nil {
		return nil, errOrderClockRequired
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &orderService{
		repo:   deps.Repository,
		events: deps.Events,
		now:    func() time.Time { return deps.Clock().UTC() },
		logger: logger,
	}, nil
}

// ListOrders pages orders newest first. Non-administrators see only their own
// orders; administrators see all orders and may filter by user and status.
func (s *orderService) ListOrders(ctx context.Context, query ListOrdersQuery) (domain.Page[Order], error) {
	if s == nil || s.repo == nil {
		return domain.Page[Order]{}, ErrOrderUnavailable
	}

	scope := strings.TrimSpace(query.Requester.UserID)
	if query.Requester.Admin {
		scope = ""
	} else if scope == "" {
		return domain.Page[Order]{}, fmt.Errorf("%w: requester is required", ErrOrderInvalidInput)
	}

	if query.Status != nil && !domain.IsValidOrderStatus(*query.Status) {
		return domain.Page[Order]{}, fmt.Errorf("%w: unknown status %q", ErrOrderInvalidInput, *query.Status)
	}

	page := query.Page
	if page.Page <= 0 {
		page.Page = 1
	}
	if page.Limit <= 0 {
		if query.Requester.Admin {
			page.Limit = defaultAdminOrderPageLimit
		} else {
			page.Limit = defaultUserOrderPageLimit
		}
	}
	if page.Limit > maxOrderPageLimit {
		page.Limit = maxOrderPageLimit
	}

	result, err := s.repo.List(ctx, repositories.OrderListQuery{
		Page:   page,
		UserID: scope,
		Status: query.Status,
	})
	if err != nil {
		return domain.Page[Order]{}, s.translateRepoError(err)
	}
	return result, nil
}

// GetOrder fetches one order, hiding other users' orders from
// non-administrators as not found.
func (s *orderService) GetOrder(ctx context.Context, requester Requester, orderID string) (Order, error) {
	if s == nil || s.repo == nil {
		return Order{}, ErrOrderUnavailable
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}

	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return Order{}, s.translateRepoError(err)
	}
	if !requester.Admin && order.UserID != requester.UserID {
		// Existence of other users' orders is not disclosed.
		return Order{}, ErrOrderNotFound
	}
	return order, nil
}

// UpdateStatus applies an administrative lifecycle transition.
func (s *orderService) UpdateStatus(ctx context.Context, cmd UpdateOrderStatusCommand) (Order, error) {
	if s == nil || s.repo == nil {
		return Order{}, ErrOrderUnavailable
	}
	if !cmd.Requester.Admin {
		return Order{}, fmt.Errorf("%w: status updates require an administrative role", ErrOrderForbidden)
	}
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	if !domain.IsValidOrderStatus(cmd.NewStatus) {
		return Order{}, fmt.Errorf("%w: unknown status %q", ErrOrderInvalidInput, cmd.NewStatus)
	}

	var previous domain.OrderStatus
	updated, err := s.repo.Mutate(ctx, orderID, func(order domain.Order) (domain.Order, error) {
		previous = order.Status
		if !canTransition(order.Status, cmd.NewStatus) {
			return domain.Order{}, fmt.Errorf("%w: %s -> %s", ErrOrderInvalidTransition, order.Status, cmd.NewStatus)
		}
		order.Status = cmd.NewStatus
		order.UpdatedAt = s.now()
		return order, nil
	})
	if err != nil {
		if errors.Is(err, ErrOrderInvalidTransition) {
			return Order{}, err
		}
		return Order{}, s.translateRepoError(err)
	}

	s.logger(ctx, "order.status_updated", map[string]any{
		"orderId": updated.ID,
		"from":    string(previous),
		"to":      string(updated.Status),
	})
	s.publishStatusChanged(ctx, updated, previous)
	return updated, nil
}

// CancelOrder cancels an order. Owners may cancel only while the order is
// still PENDING or PROCESSING; administrators may cancel any non-terminal
// order.
func (s *orderService) CancelOrder(ctx context.Context, cmd CancelOrderCommand) (Order, error) {
	if s == nil || s.repo == nil {
		return Order{}, ErrOrderUnavailable
	}
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	if !cmd.Requester.Admin && strings.TrimSpace(cmd.Requester.UserID) == "" {
		return Order{}, fmt.Errorf("%w: requester is required", ErrOrderInvalidInput)
	}

	var previous domain.OrderStatus
	updated, err := s.repo.Mutate(ctx, orderID, func(order domain.Order) (domain.Order, error) {
		if !cmd.Requester.Admin {
			// Reads mask foreign orders as 404; mutations name the refusal.
			if order.UserID != cmd.Requester.UserID {
				return domain.Order{}, fmt.Errorf("%w: only the order owner may cancel it", ErrOrderForbidden)
			}
			if !ownerMayCancel(order.Status) {
				return domain.Order{}, fmt.Errorf("%w: orders in status %s can no longer be cancelled by their owner", ErrOrderForbidden, order.Status)
			}
		}
		if !canTransition(order.Status, domain.OrderStatusCancelled) {
			return domain.Order{}, fmt.Errorf("%w: %s -> %s", ErrOrderInvalidTransition, order.Status, domain.OrderStatusCancelled)
		}
		previous = order.Status
		order.Status = domain.OrderStatusCancelled
		order.UpdatedAt = s.now()
		return order, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrOrderNotFound),
			errors.Is(err, ErrOrderForbidden),
			errors.Is(err, ErrOrderInvalidTransition):
			return Order{}, err
		}
		return Order{}, s.translateRepoError(err)
	}

	s.logger(ctx, "order.cancelled", map[string]any{
		"orderId": updated.ID,
		"from":    string(previous),
		"byAdmin": cmd.Requester.Admin,
	})
	s.publishStatusChanged(ctx, updated, previous)
	return updated, nil
}

func (s *orderService) publishStatusChanged(ctx context.Context, order domain.Order, previous domain.OrderStatus) {
	if s.events == nil {
		return
	}
	if _, err := s.events.PublishOrderEvent(ctx, OrderEventMessage{
		EventType:      "order.status_changed",
		OrderID:        order.ID,
		OrderNumber:    order.OrderNumber,
		UserID:         order.UserID,
		PreviousStatus: string(previous),
		NewStatus:      string(order.Status),
		TotalAmount:    order.TotalAmount,
		OccurredAt:     s.now(),
	}); err != nil {
		s.logger(ctx, "order.event_publish_failed", map[string]any{
			"orderId": order.ID,
			"error":   err.Error(),
		})
	}
}

func (s *orderService) translateRepoError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return ErrOrderNotFound
		case repoErr.IsConflict():
			return ErrOrderConflict
		case repoErr.IsUnavailable():
			return ErrOrderUnavailable
		}
		return ErrOrderUnavailable
	}
	return ErrOrderUnavailable
}
