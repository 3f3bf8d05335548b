// Package repository implements inventory.Store on MySQL using
// database/sql.  Repositories expose plain methods for reads and *Tx
// variants that participate in a caller-supplied transaction; Store
// ties them together behind the inventory.Store interface.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// mysqlDuplicateEntry is ER_DUP_ENTRY.
const mysqlDuplicateEntry = 1062

// ErrNegativeStock is returned when a stock update would take an item
// below zero.  The validator rejects such batches first, so seeing it
// means another writer bypassed the row locks.
var ErrNegativeStock = errors.New("stock would become negative")

func isDuplicateKey(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDuplicateEntry
}
