package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(UpOrdersTable, DownOrdersTable)
}

func UpOrdersTable(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `CREATE TABLE orders
(
    order_reference VARCHAR(255) PRIMARY KEY,
    charge_id VARCHAR(255) DEFAULT '',
    user_id VARCHAR(255) DEFAULT '',
    status VARCHAR(32) NOT NULL,
    amount NUMERIC(20, 2) DEFAULT 0,
    currency VARCHAR(8) DEFAULT '',
    email VARCHAR(255) DEFAULT '',
    customer_name VARCHAR(255) DEFAULT '',
    mobile VARCHAR(32) DEFAULT '',
    operator_name VARCHAR(255) DEFAULT '',
    paid_at TIMESTAMP,
    stock_applied BOOLEAN DEFAULT FALSE NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP NOT NULL
);
CREATE UNIQUE INDEX orders_charge_id_idx ON orders (charge_id) WHERE charge_id <> '';`)
	return err
}

func DownOrdersTable(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, "DROP TABLE orders;")
	return err
}
