package services

import (
	"context"
	"fmt"

	"storefront/internal/kvstore"
	"storefront/internal/models"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

func cartKey(owner string) string {
	if owner == "" {
		return "cart"
	}
	return "cart_" + owner
}

// ReduceCart applies action to state and returns the new cart. state is not
// modified. Unknown actions return a copy of state.
func ReduceCart(state []models.CartLineItem, action models.CartAction) []models.CartLineItem {
	next := make([]models.CartLineItem, 0, len(state)+1)

	switch action.Type {
	case models.CartActionSet:
		return append(next, action.Items...)

	case models.CartActionAdd:
		found := false
		for _, item := range state {
			if item.ID == action.Product.ID {
				item.Quantity++
				found = true
			}
			next = append(next, item)
		}
		if !found {
			next = append(next, models.CartLineItem{Product: action.Product, Quantity: 1})
		}
		return next

	case models.CartActionIncrease:
		for _, item := range state {
			if item.ID == action.ProductID {
				item.Quantity++
			}
			next = append(next, item)
		}
		return next

	case models.CartActionDecrease:
		for _, item := range state {
			if item.ID == action.ProductID {
				item.Quantity--
			}
			if item.Quantity > 0 {
				next = append(next, item)
			}
		}
		return next

	case models.CartActionRemove:
		for _, item := range state {
			if item.ID != action.ProductID {
				next = append(next, item)
			}
		}
		return next

	case models.CartActionClear:
		return next

	default:
		return append(next, state...)
	}
}

func validateCartAction(action models.CartAction) error {
	switch action.Type {
	case models.CartActionAdd:
		if action.Product.ID == "" {
			return fmt.Errorf("%w: product id is required", ErrInvalidInput)
		}
	case models.CartActionIncrease, models.CartActionDecrease, models.CartActionRemove:
		if action.ProductID == "" {
			return fmt.Errorf("%w: product id is required", ErrInvalidInput)
		}
	case models.CartActionSet:
		seen := make(map[string]bool, len(action.Items))
		for _, item := range action.Items {
			if item.ID == "" || item.Quantity < 1 {
				return fmt.Errorf("%w: cart items need an id and a quantity of at least 1", ErrInvalidInput)
			}
			if seen[item.ID] {
				return fmt.Errorf("%w: duplicate cart item %s", ErrInvalidInput, item.ID)
			}
			seen[item.ID] = true
		}
	case models.CartActionClear:
	default:
		return fmt.Errorf("%w: unknown cart action %q", ErrInvalidInput, action.Type)
	}
	return nil
}

// CartService persists one cart per owner; the empty owner is the anonymous
// cart. Every dispatched action rewrites the whole cart.
type CartService struct {
	store  *kvstore.Store
	logger zerolog.Logger
}

func NewCartService(store *kvstore.Store, logger zerolog.Logger) *CartService {
	return &CartService{
		store:  store,
		logger: logger,
	}
}

func (s *CartService) Dispatch(ctx context.Context, owner string, action models.CartAction) ([]models.CartLineItem, error) {
	if err := validateCartAction(action); err != nil {
		return nil, err
	}

	items, err := kvstore.Mutate(ctx, s.store, cartKey(owner), func(items []models.CartLineItem) ([]models.CartLineItem, error) {
		return ReduceCart(items, action), nil
	})
	if err != nil {
		s.logger.Error().Err(err).Str("owner", owner).Str("action", string(action.Type)).Msg("Error updating cart")
		return nil, fmt.Errorf("failed to update cart: %w", err)
	}

	s.logger.Debug().Str("owner", owner).Str("action", string(action.Type)).Int("lines", len(items)).Msg("Cart updated")
	return items, nil
}

func (s *CartService) Items(ctx context.Context, owner string) ([]models.CartLineItem, error) {
	items, err := kvstore.Get[[]models.CartLineItem](ctx, s.store, cartKey(owner))
	if err != nil {
		return nil, fmt.Errorf("failed to load cart: %w", err)
	}
	if items == nil {
		items = []models.CartLineItem{}
	}
	return items, nil
}

func (s *CartService) Set(ctx context.Context, owner string, items []models.CartLineItem) ([]models.CartLineItem, error) {
	return s.Dispatch(ctx, owner, models.SetCart(items))
}

func (s *CartService) Add(ctx context.Context, owner string, product models.Product) ([]models.CartLineItem, error) {
	return s.Dispatch(ctx, owner, models.AddToCart(product))
}

func (s *CartService) Increase(ctx context.Context, owner, productID string) ([]models.CartLineItem, error) {
	return s.Dispatch(ctx, owner, models.IncreaseQty(productID))
}

func (s *CartService) Decrease(ctx context.Context, owner, productID string) ([]models.CartLineItem, error) {
	return s.Dispatch(ctx, owner, models.DecreaseQty(productID))
}

func (s *CartService) Remove(ctx context.Context, owner, productID string) ([]models.CartLineItem, error) {
	return s.Dispatch(ctx, owner, models.RemoveFromCart(productID))
}

func (s *CartService) Clear(ctx context.Context, owner string) ([]models.CartLineItem, error) {
	return s.Dispatch(ctx, owner, models.ClearCart())
}

func (s *CartService) Total(ctx context.Context, owner string) (decimal.Decimal, error) {
	items, err := s.Items(ctx, owner)
	if err != nil {
		return decimal.Zero, err
	}
	return models.CartTotal(items), nil
}

// Count is the number of units in the cart, not the number of lines.
func (s *CartService) Count(ctx context.Context, owner string) (int, error) {
	items, err := s.Items(ctx, owner)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, item := range items {
		n += item.Quantity
	}
	return n, nil
}
