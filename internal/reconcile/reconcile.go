package reconcile

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tumbiko/Pluto-shopping-store/internal/db"
	"github.com/tumbiko/Pluto-shopping-store/models"
	"go.uber.org/zap"
)

// ErrMissingReference means the verified payload carries neither a tx
// reference nor a charge id, so there is no identity to reconcile against.
var ErrMissingReference = errors.New("verified payload has no transaction reference or charge id")

type Result struct {
	OrderReference string `json:"order_reference"`
	Created        bool   `json:"created"`
}

// Manager brings local order and stock state into agreement with a verified
// provider transaction. It is the only component that mutates orders or
// stock, and every ingress path (webhook or client poll) converges here
// after a provider verify call.
type Manager struct {
	Database db.Database
	Logger   *zap.SugaredLogger
}

func NewManager(database db.Database, logger *zap.SugaredLogger) *Manager {
	return &Manager{
		Database: database,
		Logger:   logger,
	}
}

// Reconcile upserts the order for a verified transaction and applies stock
// exactly once. Safe to call any number of times for the same transaction:
// the paid patch is idempotent, paid_at is first-write-wins and the stock
// claim flips at most once.
func (m *Manager) Reconcile(tx models.VerifiedTransaction) (Result, error) {
	reference := tx.TxRef
	if reference == "" {
		reference = tx.ChargeID
	}
	if reference == "" {
		return Result{}, ErrMissingReference
	}

	order, err := m.lookupOrder(reference, tx.ChargeID)
	if err != nil {
		return Result{}, err
	}

	switch tx.Status {
	case models.TxFailed:
		if order == nil {
			m.Logger.Infow("failed transaction for unknown order, nothing to do", "reference", reference)
			return Result{OrderReference: reference}, nil
		}
		if err = m.Database.MarkOrderFailed(order.OrderReference); err != nil {
			return Result{}, err
		}
		return Result{OrderReference: order.OrderReference}, nil
	case models.TxPending:
		orderReference := reference
		if order != nil {
			orderReference = order.OrderReference
		}
		return Result{OrderReference: orderReference}, nil
	}

	paidAt := time.Now()
	if tx.CompletedAt != nil {
		paidAt = *tx.CompletedAt
	}

	patch := models.PaidPatch{
		ChargeID:     tx.ChargeID,
		Amount:       tx.Amount,
		Currency:     tx.Currency,
		Mobile:       tx.Mobile,
		OperatorName: tx.OperatorName,
		Email:        tx.Email,
		CustomerName: tx.PayerName,
		PaidAt:       paidAt,
	}

	created := false
	if order != nil {
		if err = m.Database.MarkOrderPaid(order.OrderReference, patch); err != nil {
			return Result{}, err
		}
		reference = order.OrderReference
	} else {
		// Recovery path: the initiating flow never persisted an order, so a
		// minimal one is synthesized from whatever the verified payload
		// carries. Empty line items are allowed; a paid order with no stock
		// to move beats losing the payment record.
		m.Logger.Infow("no order found for verified transaction, creating one", "reference", reference)
		order = &models.Order{
			OrderReference: reference,
			ChargeID:       tx.ChargeID,
			Status:         models.OrderPaid,
			Amount:         tx.Amount,
			Currency:       tx.Currency,
			Email:          tx.Email,
			CustomerName:   tx.PayerName,
			Mobile:         tx.Mobile,
			OperatorName:   tx.OperatorName,
			PaidAt:         &paidAt,
			LineItems:      tx.LineItems,
		}
		if err = m.Database.CreateOrder(*order); err != nil {
			if !strings.Contains(err.Error(), "duplicate key value violates unique constraint") {
				return Result{}, fmt.Errorf("failed to create order for verified transaction: %w", err)
			}
			// Lost a create race against a concurrent reconcile for the same
			// transaction. The row exists now, so fall through to the patch.
			if err = m.Database.MarkOrderPaid(reference, patch); err != nil {
				return Result{}, err
			}
		} else {
			created = true
		}
	}

	if err = m.applyStock(order); err != nil {
		return Result{}, err
	}

	return Result{OrderReference: reference, Created: created}, nil
}

func (m *Manager) lookupOrder(reference, chargeID string) (*models.Order, error) {
	order, err := m.Database.GetOrderByReference(reference)
	if err != nil {
		return nil, err
	}
	if order == nil && chargeID != "" {
		order, err = m.Database.GetOrderByChargeID(chargeID)
		if err != nil {
			return nil, err
		}
	}
	return order, nil
}

// applyStock decrements stock for each line item at most once per order.
// Individual product failures are logged and skipped: inventory accuracy is
// best effort relative to payment correctness.
func (m *Manager) applyStock(order *models.Order) error {
	claimed, err := m.Database.ClaimStockApplication(order.OrderReference)
	if err != nil {
		return err
	}
	if !claimed {
		m.Logger.Infow("stock already applied for order, skipping", "reference", order.OrderReference)
		return nil
	}

	for _, item := range order.LineItems {
		if item.Quantity <= 0 {
			m.Logger.Warnw("non-positive quantity on line item, skipping",
				"reference", order.OrderReference, "product", item.ProductRef, "quantity", item.Quantity)
			continue
		}
		if err := m.Database.AdjustProductStock(item.ProductRef, item.Quantity); err != nil {
			m.Logger.Warnw("failed to adjust product stock",
				"reference", order.OrderReference, "product", item.ProductRef, "error", err)
		}
	}

	return nil
}
