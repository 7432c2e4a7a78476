package models

import "github.com/shopspring/decimal"

// Product is a snapshot of catalog data captured when it enters a cart,
// wishlist or order.
type Product struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Image    string          `json:"image,omitempty"`
	Category string          `json:"category,omitempty"`
}

type CartLineItem struct {
	Product
	Quantity int `json:"qty"`
}

func (i CartLineItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type CartActionType string

const (
	CartActionSet      CartActionType = "SET_CART"
	CartActionAdd      CartActionType = "ADD_TO_CART"
	CartActionIncrease CartActionType = "INCREASE_QTY"
	CartActionDecrease CartActionType = "DECREASE_QTY"
	CartActionRemove   CartActionType = "REMOVE"
	CartActionClear    CartActionType = "CLEAR_CART"
)

type CartAction struct {
	Type      CartActionType `json:"type"`
	Product   Product        `json:"product"`
	ProductID string         `json:"product_id,omitempty"`
	Items     []CartLineItem `json:"items,omitempty"`
}

func SetCart(items []CartLineItem) CartAction {
	return CartAction{Type: CartActionSet, Items: items}
}

func AddToCart(p Product) CartAction {
	return CartAction{Type: CartActionAdd, Product: p}
}

func IncreaseQty(productID string) CartAction {
	return CartAction{Type: CartActionIncrease, ProductID: productID}
}

func DecreaseQty(productID string) CartAction {
	return CartAction{Type: CartActionDecrease, ProductID: productID}
}

func RemoveFromCart(productID string) CartAction {
	return CartAction{Type: CartActionRemove, ProductID: productID}
}

func ClearCart() CartAction {
	return CartAction{Type: CartActionClear}
}

func CartTotal(items []CartLineItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal())
	}
	return total
}
