package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderPending     OrderStatus = "pending"
	OrderInitialized OrderStatus = "initialized"
	OrderPaid        OrderStatus = "paid"
	OrderFailed      OrderStatus = "failed"
)

func (s OrderStatus) String() string {
	return string(s)
}

type LineItem struct {
	ProductRef string `json:"product_ref"`
	Quantity   int    `json:"quantity"`
}

type Order struct {
	OrderReference string          `json:"order_reference"`
	ChargeID       string          `json:"charge_id,omitempty"`
	UserID         string          `json:"user_id,omitempty"`
	Status         OrderStatus     `json:"status"`
	Amount         decimal.Decimal `json:"amount"`
	Currency       string          `json:"currency"`
	Email          string          `json:"email,omitempty"`
	CustomerName   string          `json:"customer_name,omitempty"`
	Mobile         string          `json:"mobile,omitempty"`
	OperatorName   string          `json:"operator_name,omitempty"`
	PaidAt         *time.Time      `json:"paid_at,omitempty"`
	StockApplied   bool            `json:"-"`
	LineItems      []LineItem      `json:"line_items,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// PaidPatch carries the provider-confirmed values merged into an order on the
// paid transition. Email and CustomerName only fill empty columns so
// user-entered values are never overwritten by gateway-derived ones.
type PaidPatch struct {
	ChargeID     string
	Amount       decimal.Decimal
	Currency     string
	Mobile       string
	OperatorName string
	Email        string
	CustomerName string
	PaidAt       time.Time
}
