package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/kvstore"
	"storefront/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const ordersKey = "orders"

// OrderService is the order ledger. Orders are appended at checkout and
// never rewritten except for their status.
type OrderService struct {
	store  *kvstore.Store
	logger zerolog.Logger
	now    func() time.Time
}

func NewOrderService(store *kvstore.Store, logger zerolog.Logger) *OrderService {
	return &OrderService{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

func orderIndex(orders []models.Order, orderID string) int {
	for i := range orders {
		if orders[i].ID == orderID {
			return i
		}
	}
	return -1
}

// Submit records a snapshot of the given cart as a Pending order. The cart
// itself is left alone.
func (s *OrderService) Submit(ctx context.Context, req *models.SubmitOrderRequest) (*models.Order, error) {
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("%w: cart is empty", ErrInvalidOrder)
	}
	for _, item := range req.Items {
		if item.ID == "" || item.Quantity < 1 {
			return nil, fmt.Errorf("%w: line items need an id and a quantity of at least 1", ErrInvalidOrder)
		}
	}

	total := models.CartTotal(req.Items)
	if !req.Total.IsZero() && !req.Total.Equal(total) {
		return nil, fmt.Errorf("%w: total %s does not match items (%s)", ErrInvalidOrder, req.Total, total)
	}

	userID := req.UserID
	if userID == "" {
		userID = models.GuestUserID
	}

	items := make([]models.CartLineItem, len(req.Items))
	copy(items, req.Items)

	var gift *models.GiftOptions
	if req.Gift != nil {
		g := *req.Gift
		gift = &g
	}

	order := models.Order{
		ID:        uuid.NewString(),
		UserID:    userID,
		Shipping:  req.Shipping,
		Items:     items,
		Total:     total,
		Gift:      gift,
		Status:    string(models.OrderStatusPending),
		CreatedAt: s.now(),
	}

	_, err := kvstore.Mutate(ctx, s.store, ordersKey, func(orders []models.Order) ([]models.Order, error) {
		return append(orders, order), nil
	})
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("Error submitting order")
		return nil, fmt.Errorf("failed to submit order: %w", err)
	}

	s.logger.Info().
		Str("order_id", order.ID).
		Str("user_id", userID).
		Str("total", total.String()).
		Int("lines", len(items)).
		Msg("Order submitted")

	return &order, nil
}

func (s *OrderService) ListAll(ctx context.Context) ([]models.Order, error) {
	orders, err := kvstore.Get[[]models.Order](ctx, s.store, ordersKey)
	if err != nil {
		s.logger.Error().Err(err).Msg("Error fetching orders")
		return nil, fmt.Errorf("failed to load orders: %w", err)
	}
	if orders == nil {
		orders = []models.Order{}
	}
	return orders, nil
}

func (s *OrderService) ListForIdentity(ctx context.Context, userID string) ([]models.Order, error) {
	orders, err := s.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]models.Order, 0)
	for _, o := range orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (s *OrderService) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	orders, err := s.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	i := orderIndex(orders, orderID)
	if i == -1 {
		return nil, ErrOrderNotFound
	}
	return &orders[i], nil
}

// SetStatus overwrites the status of an order. Any status may follow any
// other, including moving out of Completed or Cancelled.
func (s *OrderService) SetStatus(ctx context.Context, orderID string, status models.OrderStatus) (*models.Order, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	var updated models.Order
	var previous string
	_, err := kvstore.Mutate(ctx, s.store, ordersKey, func(orders []models.Order) ([]models.Order, error) {
		i := orderIndex(orders, orderID)
		if i == -1 {
			return nil, ErrOrderNotFound
		}
		previous = orders[i].Status
		orders[i].Status = string(status)
		updated = orders[i]
		return orders, nil
	})
	if errors.Is(err, ErrOrderNotFound) {
		s.logger.Warn().Str("order_id", orderID).Msg("Status update for unknown order")
		return nil, err
	}
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", orderID).Str("new_status", string(status)).Msg("Error updating order status")
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}

	s.logger.Info().
		Str("order_id", orderID).
		Str("old_status", previous).
		Str("new_status", string(status)).
		Msg("Order status updated")

	return &updated, nil
}

// Stats summarises the ledger for the admin dashboard.
func (s *OrderService) Stats(ctx context.Context) (*models.OrderStats, error) {
	orders, err := s.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	stats := &models.OrderStats{Revenue: decimal.Zero}
	for _, o := range orders {
		stats.Orders++
		stats.Revenue = stats.Revenue.Add(o.Total)
		if o.Status == string(models.OrderStatusPending) {
			stats.Pending++
		}
	}
	return stats, nil
}

// withdraw drops an order that was submitted by a checkout that then failed
// to complete.
func (s *OrderService) withdraw(ctx context.Context, orderID string) error {
	_, err := kvstore.Mutate(ctx, s.store, ordersKey, func(orders []models.Order) ([]models.Order, error) {
		i := orderIndex(orders, orderID)
		if i == -1 {
			return nil, ErrOrderNotFound
		}
		return append(orders[:i], orders[i+1:]...), nil
	})
	if err != nil {
		return fmt.Errorf("failed to withdraw order %s: %w", orderID, err)
	}

	s.logger.Warn().Str("order_id", orderID).Msg("Order withdrawn")
	return nil
}
