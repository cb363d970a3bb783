package option

import (
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type row struct {
	ID    int64
	Year  int
	Month int
}

func dryRun(t *testing.T, opts ...QueryOption) string {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{DryRun: true})
	require.NoError(t, err)
	stmt := db.Model(&row{})
	for _, opt := range opts {
		stmt = opt.Apply(stmt)
	}
	var out []row
	return stmt.Find(&out).Statement.SQL.String()
}

func TestWithSortByDirection(t *testing.T) {
	sql := dryRun(t,
		WithSortBy(SortBy{Column: "year", Desc: true}),
		WithSortBy(SortBy{Column: "month"}),
		WithSortBy(SortBy{}),
	)
	assert.Contains(t, sql, "ORDER BY year DESC,month ASC")
}

func TestOrderByAndWhere(t *testing.T) {
	sql := dryRun(t, WithWhere("year = ?", 2024), OrderBy("year", "id"))
	assert.Contains(t, sql, "WHERE year = ?")
	assert.Contains(t, sql, "ORDER BY year ASC,id ASC")
}
