package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// GuestUserID owns orders placed without an active session.
const GuestUserID = "guest"

type Order struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Shipping  ShippingAddress `json:"shipping"`
	Items     []CartLineItem  `json:"items"`
	Total     decimal.Decimal `json:"total"`
	Gift      *GiftOptions    `json:"gift,omitempty"`
	Status    string          `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
}

type ShippingAddress struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Pincode string `json:"pincode"`
	City    string `json:"city"`
	State   string `json:"state"`
	Country string `json:"country"`
	Address string `json:"address"`
}

type GiftOptions struct {
	Wrap      bool   `json:"wrap"`
	Recipient string `json:"recipient,omitempty"`
	Message   string `json:"message,omitempty"`
}

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "Pending"
	OrderStatusProcessing OrderStatus = "Processing"
	OrderStatusShipped    OrderStatus = "Shipped"
	OrderStatusCompleted  OrderStatus = "Completed"
	OrderStatusCancelled  OrderStatus = "Cancelled"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped, OrderStatusCompleted, OrderStatusCancelled:
		return true
	}
	return false
}

type SubmitOrderRequest struct {
	UserID   string          `json:"user_id"`
	Shipping ShippingAddress `json:"shipping"`
	Items    []CartLineItem  `json:"items"`
	Total    decimal.Decimal `json:"total"`
	Gift     *GiftOptions    `json:"gift,omitempty"`
}

type OrderStats struct {
	Orders  int             `json:"orders"`
	Revenue decimal.Decimal `json:"revenue"`
	Pending int             `json:"pending"`
}
