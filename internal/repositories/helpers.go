package repositories

import (
	"database/sql/driver"
	"strings"

	"github.com/lib/pq"
)

// int64Array adapts a slice of ids to a Postgres array parameter for
// `= ANY($1)` clauses.
func int64Array(ids []int64) driver.Valuer {
	return pq.Array(ids)
}

// prefixedProductColumns returns the product column list qualified with a
// table alias, for queries that join products against other tables.
func prefixedProductColumns(alias string) string {
	cols := strings.Split(productColumns, ",")
	for i, col := range cols {
		cols[i] = alias + "." + strings.TrimSpace(col)
	}
	return strings.Join(cols, ", ")
}
