package memstore

import "errors"

// errNegativeStock mirrors the unsigned stock column of the SQL schema.
var errNegativeStock = errors.New("stock would become negative")
