package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type TxStatus string

const (
	TxSuccess TxStatus = "success"
	TxPending TxStatus = "pending"
	TxFailed  TxStatus = "failed"
)

func (s TxStatus) String() string {
	return string(s)
}

// Operator is one mobile-money network entry from the provider's list.
type Operator struct {
	ID        int64  `json:"id"`
	ShortCode string `json:"short_code"`
	RefID     string `json:"ref_id"`
	Name      string `json:"name"`
}

type ChargeRequest struct {
	Mobile        string
	OperatorRefID string
	Amount        decimal.Decimal
	Currency      string
	Email         string
	FirstName     string
	LastName      string
	TxRef         string
}

type ChargeResult struct {
	ChargeID string
	Raw      json.RawMessage
}

// VerifiedTransaction is the strict internal form of a provider verify
// response. Raw provider JSON never crosses the provider package boundary.
type VerifiedTransaction struct {
	Status             TxStatus
	ChargeID           string
	TxRef              string
	RefID              string
	Amount             decimal.Decimal
	Currency           string
	Mobile             string
	OperatorName       string
	PayerName          string
	Email              string
	TransactionCharges decimal.Decimal
	CompletedAt        *time.Time
	LineItems          []LineItem
	Raw                json.RawMessage
}
