package provider

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/tumbiko/Pluto-shopping-store/models"
)

// The gateway is loose about payload shapes: the charge id arrives as "id" or
// "charge_id", the reference as "tx_ref" or "reference", line items under
// data.items, data.products or metadata.items. Everything is flattened into a
// strict VerifiedTransaction here and nothing past this file sees raw
// provider JSON.

type verifyEnvelope struct {
	Status  string        `json:"status"`
	Message string        `json:"message"`
	Data    verifyPayload `json:"data"`
}

type verifyPayload struct {
	ID                 string          `json:"id"`
	ChargeID           string          `json:"charge_id"`
	TxRef              string          `json:"tx_ref"`
	Reference          string          `json:"reference"`
	RefID              string          `json:"ref_id"`
	Status             string          `json:"status"`
	Amount             decimal.Decimal `json:"amount"`
	Currency           string          `json:"currency"`
	Mobile             string          `json:"mobile"`
	FirstName          string          `json:"first_name"`
	LastName           string          `json:"last_name"`
	Email              string          `json:"email"`
	CompletedAt        string          `json:"completed_at"`
	TransactionCharges decimal.Decimal `json:"transaction_charges"`
	MobileMoney        struct {
		Name string `json:"name"`
	} `json:"mobile_money"`
	Items    []rawLineItem `json:"items"`
	Products []rawLineItem `json:"products"`
	Metadata struct {
		Items []rawLineItem `json:"items"`
	} `json:"metadata"`
}

type rawLineItem struct {
	ProductID  string `json:"product_id"`
	ProductID2 string `json:"productId"`
	ProductRef string `json:"productRef"`
	SKU        string `json:"sku"`
	ID         string `json:"id"`
	Quantity   int    `json:"quantity"`
	Qty        int    `json:"qty"`
	Count      int    `json:"count"`
}

func (it rawLineItem) productRef() string {
	for _, v := range []string{it.ProductID, it.ProductID2, it.ProductRef, it.SKU, it.ID} {
		if v != "" {
			return v
		}
	}
	return ""
}

func (it rawLineItem) quantity() int {
	for _, v := range []int{it.Quantity, it.Qty, it.Count} {
		if v > 0 {
			return v
		}
	}
	return 0
}

// normalizeStatus treats any status containing "success" as success
// ("success" and "successful" are both seen in the wild), an explicit
// failure code as failed, and everything else as pending.
func normalizeStatus(statuses ...string) models.TxStatus {
	for _, s := range statuses {
		ls := strings.ToLower(s)
		if strings.Contains(ls, "success") {
			return models.TxSuccess
		}
		if strings.Contains(ls, "fail") {
			return models.TxFailed
		}
	}
	return models.TxPending
}

func normalizeVerify(envelope verifyEnvelope, raw []byte) models.VerifiedTransaction {
	data := envelope.Data

	chargeID := data.ChargeID
	if chargeID == "" {
		chargeID = data.ID
	}
	txRef := data.TxRef
	if txRef == "" {
		txRef = data.Reference
	}

	var completedAt *time.Time
	if data.CompletedAt != "" {
		if ts, err := time.Parse(time.RFC3339, data.CompletedAt); err == nil {
			completedAt = &ts
		}
	}

	payerName := strings.TrimSpace(data.FirstName + " " + data.LastName)

	return models.VerifiedTransaction{
		Status:             normalizeStatus(data.Status, envelope.Status),
		ChargeID:           chargeID,
		TxRef:              txRef,
		RefID:              data.RefID,
		Amount:             data.Amount,
		Currency:           data.Currency,
		Mobile:             data.Mobile,
		OperatorName:       data.MobileMoney.Name,
		PayerName:          payerName,
		Email:              data.Email,
		TransactionCharges: data.TransactionCharges,
		CompletedAt:        completedAt,
		LineItems:          normalizeItems(data),
		Raw:                json.RawMessage(raw),
	}
}

func normalizeItems(data verifyPayload) []models.LineItem {
	var candidates []rawLineItem
	switch {
	case len(data.Items) > 0:
		candidates = data.Items
	case len(data.Products) > 0:
		candidates = data.Products
	case len(data.Metadata.Items) > 0:
		candidates = data.Metadata.Items
	}

	var items []models.LineItem
	for _, it := range candidates {
		ref := it.productRef()
		qty := it.quantity()
		if ref == "" || qty <= 0 {
			continue
		}
		items = append(items, models.LineItem{ProductRef: ref, Quantity: qty})
	}
	return items
}
