package services

import (
	"context"
	"fmt"

	"storefront/internal/kvstore"
	"storefront/internal/models"

	"github.com/rs/zerolog"
)

func wishlistKey(owner string) string {
	if owner == "" {
		return "wishlist"
	}
	return "wishlist_" + owner
}

func wishlistIndex(items []models.Product, productID string) int {
	for i := range items {
		if items[i].ID == productID {
			return i
		}
	}
	return -1
}

// WishlistService keeps a per-owner set of products keyed by product id,
// namespaced like the cart.
type WishlistService struct {
	store  *kvstore.Store
	logger zerolog.Logger
}

func NewWishlistService(store *kvstore.Store, logger zerolog.Logger) *WishlistService {
	return &WishlistService{
		store:  store,
		logger: logger,
	}
}

func (s *WishlistService) mutate(ctx context.Context, owner string, fn func([]models.Product) []models.Product) ([]models.Product, error) {
	items, err := kvstore.Mutate(ctx, s.store, wishlistKey(owner), func(items []models.Product) ([]models.Product, error) {
		out := fn(items)
		if out == nil {
			out = []models.Product{}
		}
		return out, nil
	})
	if err != nil {
		s.logger.Error().Err(err).Str("owner", owner).Msg("Error updating wishlist")
		return nil, fmt.Errorf("failed to update wishlist: %w", err)
	}
	return items, nil
}

func (s *WishlistService) Add(ctx context.Context, owner string, product models.Product) ([]models.Product, error) {
	if product.ID == "" {
		return nil, fmt.Errorf("%w: product id is required", ErrInvalidInput)
	}
	return s.mutate(ctx, owner, func(items []models.Product) []models.Product {
		if wishlistIndex(items, product.ID) != -1 {
			return items
		}
		return append(items, product)
	})
}

func (s *WishlistService) Remove(ctx context.Context, owner, productID string) ([]models.Product, error) {
	return s.mutate(ctx, owner, func(items []models.Product) []models.Product {
		if i := wishlistIndex(items, productID); i != -1 {
			return append(items[:i], items[i+1:]...)
		}
		return items
	})
}

// Toggle removes the product if present and adds it otherwise. It reports
// whether the product is in the wishlist afterwards.
func (s *WishlistService) Toggle(ctx context.Context, owner string, product models.Product) (bool, error) {
	if product.ID == "" {
		return false, fmt.Errorf("%w: product id is required", ErrInvalidInput)
	}

	present := false
	_, err := s.mutate(ctx, owner, func(items []models.Product) []models.Product {
		if i := wishlistIndex(items, product.ID); i != -1 {
			return append(items[:i], items[i+1:]...)
		}
		present = true
		return append(items, product)
	})
	if err != nil {
		return false, err
	}
	return present, nil
}

func (s *WishlistService) Contains(ctx context.Context, owner, productID string) (bool, error) {
	items, err := s.Items(ctx, owner)
	if err != nil {
		return false, err
	}
	return wishlistIndex(items, productID) != -1, nil
}

func (s *WishlistService) Items(ctx context.Context, owner string) ([]models.Product, error) {
	items, err := kvstore.Get[[]models.Product](ctx, s.store, wishlistKey(owner))
	if err != nil {
		return nil, fmt.Errorf("failed to load wishlist: %w", err)
	}
	if items == nil {
		items = []models.Product{}
	}
	return items, nil
}
