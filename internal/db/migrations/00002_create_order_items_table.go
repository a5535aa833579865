package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(UpOrderItemsTable, DownOrderItemsTable)
}

func UpOrderItemsTable(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `CREATE TABLE order_items
(
    id SERIAL PRIMARY KEY,
    order_reference VARCHAR(255) NOT NULL REFERENCES orders (order_reference),
    product_ref VARCHAR(255) NOT NULL,
    quantity INT NOT NULL CHECK (quantity > 0)
);
CREATE INDEX order_items_order_reference_idx ON order_items (order_reference);`)
	return err
}

func DownOrderItemsTable(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, "DROP TABLE order_items;")
	return err
}
