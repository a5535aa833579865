package db

import (
	"database/sql"
	"errors"
	"fmt"
	"log"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/tumbiko/Pluto-shopping-store/config"
	_ "github.com/tumbiko/Pluto-shopping-store/internal/db/migrations"
	"github.com/tumbiko/Pluto-shopping-store/models"
)

var ErrProductNotFound = errors.New("product not found")

type Manager struct {
	Db *sql.DB
}

func NewManager(cfg *config.Config) (*Manager, error) {
	db, err := sql.Open("pgx", cfg.DatabaseURI)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	manager := &Manager{
		Db: db,
	}

	if err = goose.Up(db, "./internal/db/migrations"); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	return manager, nil
}

func (m *Manager) CreateOrder(order models.Order) error {
	tx, err := m.Db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
        INSERT INTO orders (order_reference, charge_id, user_id, status, amount, currency, email, customer_name, mobile, operator_name, paid_at, stock_applied)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
    `, order.OrderReference, order.ChargeID, order.UserID, order.Status.String(), order.Amount, order.Currency,
		order.Email, order.CustomerName, order.Mobile, order.OperatorName, order.PaidAt, order.StockApplied)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	for _, item := range order.LineItems {
		_, err = tx.Exec(`
            INSERT INTO order_items (order_reference, product_ref, quantity)
            VALUES ($1, $2, $3)
        `, order.OrderReference, item.ProductRef, item.Quantity)
		if err != nil {
			return fmt.Errorf("failed to insert order item: %w", err)
		}
	}

	return tx.Commit()
}

func (m *Manager) GetOrderByReference(reference string) (*models.Order, error) {
	return m.getOrder(`WHERE order_reference = $1`, reference)
}

func (m *Manager) GetOrderByChargeID(chargeID string) (*models.Order, error) {
	return m.getOrder(`WHERE charge_id = $1`, chargeID)
}

func (m *Manager) getOrder(where string, arg string) (*models.Order, error) {
	var order models.Order
	var paidAt sql.NullTime

	err := m.Db.QueryRow(`
		SELECT order_reference, charge_id, user_id, status, amount, currency, email, customer_name, mobile, operator_name, paid_at, stock_applied, created_at
		FROM orders `+where, arg).Scan(
		&order.OrderReference, &order.ChargeID, &order.UserID, &order.Status, &order.Amount, &order.Currency,
		&order.Email, &order.CustomerName, &order.Mobile, &order.OperatorName, &paidAt, &order.StockApplied, &order.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if paidAt.Valid {
		order.PaidAt = &paidAt.Time
	}

	items, err := m.GetOrderItems(order.OrderReference)
	if err != nil {
		return nil, err
	}
	order.LineItems = items

	return &order, nil
}

func (m *Manager) SetOrderInitialized(reference string, chargeID string) error {
	_, err := m.Db.Exec(`
        UPDATE orders SET status = $2, charge_id = $3
        WHERE order_reference = $1
    `, reference, models.OrderInitialized.String(), chargeID)
	if err != nil {
		return fmt.Errorf("failed to set order initialized: %w", err)
	}
	return nil
}

// MarkOrderPaid applies the paid transition idempotently: paid_at is
// first-write-wins and email/customer name only fill empty columns.
func (m *Manager) MarkOrderPaid(reference string, patch models.PaidPatch) error {
	_, err := m.Db.Exec(`
        UPDATE orders SET
            status = $2,
            charge_id = COALESCE(NULLIF(charge_id, ''), $3),
            amount = $4,
            currency = $5,
            mobile = COALESCE(NULLIF(mobile, ''), $6),
            operator_name = COALESCE(NULLIF(operator_name, ''), $7),
            email = COALESCE(NULLIF(email, ''), $8),
            customer_name = COALESCE(NULLIF(customer_name, ''), $9),
            paid_at = COALESCE(paid_at, $10)
        WHERE order_reference = $1
    `, reference, models.OrderPaid.String(), patch.ChargeID, patch.Amount, patch.Currency,
		patch.Mobile, patch.OperatorName, patch.Email, patch.CustomerName, patch.PaidAt)
	if err != nil {
		return fmt.Errorf("failed to mark order paid: %w", err)
	}
	return nil
}

func (m *Manager) MarkOrderFailed(reference string) error {
	_, err := m.Db.Exec(`
        UPDATE orders SET status = $2
        WHERE order_reference = $1 AND status <> $3
    `, reference, models.OrderFailed.String(), models.OrderPaid.String())
	if err != nil {
		return fmt.Errorf("failed to mark order failed: %w", err)
	}
	return nil
}

// ClaimStockApplication flips stock_applied exactly once per order. The row
// level atomicity of the UPDATE is what makes concurrent webhook and poll
// reconciliation decrement stock a single time.
func (m *Manager) ClaimStockApplication(reference string) (bool, error) {
	res, err := m.Db.Exec(`
        UPDATE orders SET stock_applied = TRUE
        WHERE order_reference = $1 AND stock_applied = FALSE
    `, reference)
	if err != nil {
		return false, fmt.Errorf("failed to claim stock application: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return affected == 1, nil
}

func (m *Manager) GetOrderItems(reference string) ([]models.LineItem, error) {
	rows, err := m.Db.Query(`
		SELECT product_ref, quantity FROM order_items
		WHERE order_reference = $1
	`, reference)
	if err != nil {
		return nil, fmt.Errorf("failed to get order items: %w", err)
	}
	defer rows.Close()

	var items []models.LineItem
	for rows.Next() {
		var item models.LineItem
		if err = rows.Scan(&item.ProductRef, &item.Quantity); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, item)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate order items: %w", err)
	}

	return items, nil
}

// AdjustProductStock decrements stock with a floor at zero.
func (m *Manager) AdjustProductStock(productRef string, quantity int) error {
	res, err := m.Db.Exec(`
        UPDATE products SET stock = GREATEST(stock - $2, 0)
        WHERE ref = $1
    `, productRef, quantity)
	if err != nil {
		return fmt.Errorf("failed to adjust product stock: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrProductNotFound, productRef)
	}
	return nil
}

func (m *Manager) CreateAddress(address models.Address) error {
	_, err := m.Db.Exec(`
        INSERT INTO addresses (id, user_id, first_name, last_name, email, phone, operator, operator_ref_id, address, city, state, zip, is_default)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
    `, address.ID, address.UserID, address.FirstName, address.LastName, address.Email, address.Phone,
		address.Operator, address.OperatorRefID, address.AddressLine, address.City, address.State, address.Zip, address.IsDefault)
	if err != nil {
		return fmt.Errorf("failed to insert address: %w", err)
	}
	return nil
}

func (m *Manager) GetAddresses(userID string) ([]*models.Address, error) {
	rows, err := m.Db.Query(`
		SELECT id, user_id, first_name, last_name, email, phone, operator, operator_ref_id, address, city, state, zip, is_default, created_at
		FROM addresses
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get addresses: %w", err)
	}
	defer rows.Close()

	var addresses []*models.Address
	for rows.Next() {
		var a models.Address
		err = rows.Scan(&a.ID, &a.UserID, &a.FirstName, &a.LastName, &a.Email, &a.Phone,
			&a.Operator, &a.OperatorRefID, &a.AddressLine, &a.City, &a.State, &a.Zip, &a.IsDefault, &a.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan address: %w", err)
		}
		addresses = append(addresses, &a)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate addresses: %w", err)
	}

	return addresses, nil
}

func (m *Manager) GetAddressByID(id string) (*models.Address, error) {
	var a models.Address
	err := m.Db.QueryRow(`
		SELECT id, user_id, first_name, last_name, email, phone, operator, operator_ref_id, address, city, state, zip, is_default, created_at
		FROM addresses
		WHERE id = $1
	`, id).Scan(&a.ID, &a.UserID, &a.FirstName, &a.LastName, &a.Email, &a.Phone,
		&a.Operator, &a.OperatorRefID, &a.AddressLine, &a.City, &a.State, &a.Zip, &a.IsDefault, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get address: %w", err)
	}
	return &a, nil
}

func (m *Manager) UpdateAddress(address models.Address) error {
	_, err := m.Db.Exec(`
        UPDATE addresses SET
            first_name = $2, last_name = $3, email = $4, phone = $5,
            operator = $6, operator_ref_id = $7, address = $8,
            city = $9, state = $10, zip = $11, is_default = $12
        WHERE id = $1
    `, address.ID, address.FirstName, address.LastName, address.Email, address.Phone,
		address.Operator, address.OperatorRefID, address.AddressLine, address.City, address.State, address.Zip, address.IsDefault)
	if err != nil {
		return fmt.Errorf("failed to update address: %w", err)
	}
	return nil
}

func (m *Manager) DeleteAddress(id string) error {
	_, err := m.Db.Exec(`DELETE FROM addresses WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete address: %w", err)
	}
	return nil
}

func (m *Manager) UnsetOtherDefaults(userID string, keepID string) error {
	_, err := m.Db.Exec(`
        UPDATE addresses SET is_default = FALSE
        WHERE user_id = $1 AND is_default = TRUE AND id <> $2
    `, userID, keepID)
	if err != nil {
		return fmt.Errorf("failed to unset other defaults: %w", err)
	}
	return nil
}

func (m *Manager) Close() error {
	return m.Db.Close()
}
