package option

import (
	"gorm.io/gorm"
)

// QueryOption mutates a gorm statement before execution.
type QueryOption interface {
	Apply(*gorm.DB) *gorm.DB
}

type queryOptionFunc func(*gorm.DB) *gorm.DB

func (f queryOptionFunc) Apply(db *gorm.DB) *gorm.DB { return f(db) }

// SortBy describes one ORDER BY column.
type SortBy struct {
	Column string
	Desc   bool
}

// WithSortBy orders the statement. Columns are trusted identifiers.
func WithSortBy(sort SortBy) QueryOption {
	return queryOptionFunc(func(db *gorm.DB) *gorm.DB {
		if sort.Column == "" {
			return db
		}
		if sort.Desc {
			return db.Order(sort.Column + " DESC")
		}
		return db.Order(sort.Column + " ASC")
	})
}

// OrderBy applies several ascending sort columns in turn.
func OrderBy(columns ...string) QueryOption {
	return queryOptionFunc(func(db *gorm.DB) *gorm.DB {
		for _, column := range columns {
			db = WithSortBy(SortBy{Column: column}).Apply(db)
		}
		return db
	})
}

// WithWhere adds a raw condition with bound arguments.
func WithWhere(query string, args ...any) QueryOption {
	return queryOptionFunc(func(db *gorm.DB) *gorm.DB {
		return db.Where(query, args...)
	})
}
