package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema creates the pantry tables when missing.  Item names use a
// binary collation so "Rice" and "RICE" are different items.
// transaction_items.item_name is not a foreign key.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS items (
		id           BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		name         VARCHAR(255) CHARACTER SET utf8mb4 COLLATE utf8mb4_bin NOT NULL,
		stock        INT UNSIGNED NOT NULL DEFAULT 0,
		max_checkout INT UNSIGNED NOT NULL,
		UNIQUE KEY uq_items_name (name)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS transactions (
		id          BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		action      ENUM('checkout','restock') NOT NULL,
		created_at  DATETIME NOT NULL,
		day_of_week VARCHAR(9) NOT NULL,
		student_id  VARCHAR(64) NULL,
		KEY idx_transactions_day (day_of_week),
		KEY idx_transactions_student (student_id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS transaction_items (
		id             BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
		transaction_id BIGINT UNSIGNED NOT NULL,
		item_name      VARCHAR(255) CHARACTER SET utf8mb4 COLLATE utf8mb4_bin NOT NULL,
		item_quantity  INT UNSIGNED NOT NULL,
		KEY idx_transaction_items_name (item_name),
		CONSTRAINT fk_transaction_items_tx FOREIGN KEY (transaction_id)
			REFERENCES transactions (id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate applies the schema.  Every statement is idempotent.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i, err)
		}
	}
	return nil
}
