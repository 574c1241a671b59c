package store

import (
	"database/sql/driver"
	"fmt"

	"github.com/franz/bachpedia/internal/catalog"
	"modernc.org/sqlite"
)

func init() {
	// fold(text) lowercases and strips diacritics, for accent-insensitive LIKE
	sqlite.MustRegisterDeterministicScalarFunction("fold", 1, foldFunc)
}

func foldFunc(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case nil:
		return nil, nil
	case string:
		return catalog.Fold(v), nil
	case []byte:
		return catalog.Fold(string(v)), nil
	default:
		return catalog.Fold(fmt.Sprint(v)), nil
	}
}
