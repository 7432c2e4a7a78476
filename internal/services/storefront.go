package services

import (
	"context"
	"fmt"

	"storefront/internal/kvstore"
	"storefront/internal/models"

	"github.com/rs/zerolog"
)

// Storefront binds the cart, wishlist and ledger to whichever identity the
// session currently points at. It is the surface UI collaborators call.
type Storefront struct {
	Users    *UserService
	Auth     *AuthService
	Cart     *CartService
	Wishlist *WishlistService
	Orders   *OrderService
	logger   zerolog.Logger
}

func NewStorefront(store *kvstore.Store, opts AuthOptions, logger zerolog.Logger) (*Storefront, error) {
	users := NewUserService(store, logger, opts.BcryptCost)
	auth, err := NewAuthService(store, users, opts, logger)
	if err != nil {
		return nil, err
	}

	return &Storefront{
		Users:    users,
		Auth:     auth,
		Cart:     NewCartService(store, logger),
		Wishlist: NewWishlistService(store, logger),
		Orders:   NewOrderService(store, logger),
		logger:   logger,
	}, nil
}

// Namespace is the current user's id, or "" for the anonymous bucket.
func (f *Storefront) Namespace(ctx context.Context) (string, error) {
	user, err := f.Auth.CurrentUser(ctx)
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", nil
	}
	return user.ID, nil
}

func (f *Storefront) DispatchCart(ctx context.Context, action models.CartAction) ([]models.CartLineItem, error) {
	owner, err := f.Namespace(ctx)
	if err != nil {
		return nil, err
	}
	return f.Cart.Dispatch(ctx, owner, action)
}

func (f *Storefront) CartItems(ctx context.Context) ([]models.CartLineItem, error) {
	owner, err := f.Namespace(ctx)
	if err != nil {
		return nil, err
	}
	return f.Cart.Items(ctx, owner)
}

func (f *Storefront) ToggleWishlist(ctx context.Context, product models.Product) (bool, error) {
	owner, err := f.Namespace(ctx)
	if err != nil {
		return false, err
	}
	return f.Wishlist.Toggle(ctx, owner, product)
}

func (f *Storefront) WishlistItems(ctx context.Context) ([]models.Product, error) {
	owner, err := f.Namespace(ctx)
	if err != nil {
		return nil, err
	}
	return f.Wishlist.Items(ctx, owner)
}

// Checkout submits the active cart as an order and then clears the cart.
// If the cart cannot be cleared the order is withdrawn again, so a failed
// checkout leaves neither an order nor an emptied cart behind.
func (f *Storefront) Checkout(ctx context.Context, shipping models.ShippingAddress, gift *models.GiftOptions) (*models.Order, error) {
	user, err := f.Auth.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}

	owner, userID := "", models.GuestUserID
	if user != nil {
		owner, userID = user.ID, user.ID
	}

	items, err := f.Cart.Items(ctx, owner)
	if err != nil {
		return nil, err
	}

	order, err := f.Orders.Submit(ctx, &models.SubmitOrderRequest{
		UserID:   userID,
		Shipping: shipping,
		Items:    items,
		Total:    models.CartTotal(items),
		Gift:     gift,
	})
	if err != nil {
		return nil, err
	}

	if _, err := f.Cart.Clear(ctx, owner); err != nil {
		if werr := f.Orders.withdraw(ctx, order.ID); werr != nil {
			f.logger.Error().Err(werr).Str("order_id", order.ID).Msg("Checkout left a submitted order with an uncleared cart")
		}
		return nil, fmt.Errorf("checkout aborted: %w", err)
	}

	return order, nil
}

func (f *Storefront) MyOrders(ctx context.Context) ([]models.Order, error) {
	user, err := f.Auth.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrNotAuthenticated
	}
	return f.Orders.ListForIdentity(ctx, user.ID)
}

func (f *Storefront) requireAdmin(ctx context.Context) error {
	user, err := f.Auth.CurrentUser(ctx)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrNotAuthenticated
	}
	if !user.IsAdmin() {
		return ErrForbidden
	}
	return nil
}

func (f *Storefront) AdminListOrders(ctx context.Context) ([]models.Order, error) {
	if err := f.requireAdmin(ctx); err != nil {
		return nil, err
	}
	return f.Orders.ListAll(ctx)
}

func (f *Storefront) AdminSetOrderStatus(ctx context.Context, orderID string, status models.OrderStatus) (*models.Order, error) {
	if err := f.requireAdmin(ctx); err != nil {
		return nil, err
	}
	return f.Orders.SetStatus(ctx, orderID, status)
}

func (f *Storefront) AdminStats(ctx context.Context) (*models.OrderStats, error) {
	if err := f.requireAdmin(ctx); err != nil {
		return nil, err
	}
	return f.Orders.Stats(ctx)
}
