package db

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/tumbiko/Pluto-shopping-store/models"
)

func newMockManager(t *testing.T) (*Manager, sqlmock.Sqlmock, func()) {
	mockdb, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	return &Manager{Db: mockdb}, mock, func() { mockdb.Close() }
}

func TestAdjustProductStock(t *testing.T) {
	t.Run("ClampsAtZeroInSQL", func(t *testing.T) {
		manager, mock, closeDB := newMockManager(t)
		defer closeDB()

		// the floor lives in the statement itself, so any quantity larger
		// than the remaining stock still results in zero, never negative
		mock.ExpectExec(`UPDATE products SET stock = GREATEST\(stock - \$2, 0\)`).
			WithArgs("prod_1", 100).
			WillReturnResult(sqlmock.NewResult(0, 1))

		if err := manager.AdjustProductStock("prod_1", 100); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Fatalf("not all mock expectations were met: %v", err)
		}
	})

	t.Run("MissingProduct", func(t *testing.T) {
		manager, mock, closeDB := newMockManager(t)
		defer closeDB()

		mock.ExpectExec(`UPDATE products SET stock = GREATEST`).
			WithArgs("prod_gone", 1).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := manager.AdjustProductStock("prod_gone", 1)
		assert.ErrorIs(t, err, ErrProductNotFound)
	})
}

func TestClaimStockApplication(t *testing.T) {
	manager, mock, closeDB := newMockManager(t)
	defer closeDB()

	mock.ExpectExec(`UPDATE orders SET stock_applied = TRUE`).
		WithArgs("txn_1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE orders SET stock_applied = TRUE`).
		WithArgs("txn_1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	claimed, err := manager.ClaimStockApplication("txn_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assert.True(t, claimed, "first claim should win")

	claimed, err = manager.ClaimStockApplication("txn_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assert.False(t, claimed, "second claim should be rejected")
}

func TestMarkOrderPaidIsConditional(t *testing.T) {
	manager, mock, closeDB := newMockManager(t)
	defer closeDB()

	// paid_at uses COALESCE so the first write wins, and the identity
	// columns only fill empty values
	mock.ExpectExec(`paid_at = COALESCE\(paid_at, \$10\)`).
		WithArgs("txn_1", "paid", "chg_1", sqlmock.AnyArg(), "MWK",
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := manager.MarkOrderPaid("txn_1", models.PaidPatch{
		ChargeID: "chg_1",
		Amount:   decimal.NewFromInt(5000),
		Currency: "MWK",
		PaidAt:   time.Now(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err = mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("not all mock expectations were met: %v", err)
	}
}

func TestUnsetOtherDefaults(t *testing.T) {
	manager, mock, closeDB := newMockManager(t)
	defer closeDB()

	mock.ExpectExec(`UPDATE addresses SET is_default = FALSE`).
		WithArgs("user_1", "addr_keep").
		WillReturnResult(sqlmock.NewResult(0, 2))

	if err := manager.UnsetOtherDefaults("user_1", "addr_keep"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("not all mock expectations were met: %v", err)
	}
}
