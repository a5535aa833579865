package migrations

import (
	"context"
	"database/sql"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(UpProductsTable, DownProductsTable)
}

func UpProductsTable(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `CREATE TABLE products
(
    ref VARCHAR(255) PRIMARY KEY,
    name VARCHAR(255) DEFAULT '',
    stock INT DEFAULT 0 NOT NULL CHECK (stock >= 0)
);`)
	return err
}

func DownProductsTable(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, "DROP TABLE products;")
	return err
}
