package repository

import (
	"context"

	"github.com/smallbiznis/partnerpayout/pkg/db/option"
	"gorm.io/gorm"
)

// Repository is a thin generic gorm store shared by the aggregate repositories.
// A nil filter matches every row; options narrow and order the statement.
type Repository[T any] interface {
	WithTrx(tx *gorm.DB) Repository[T]
	Find(ctx context.Context, filter *T, opts ...option.QueryOption) ([]T, error)
	FindOne(ctx context.Context, filter *T, opts ...option.QueryOption) (*T, error)
	Create(ctx context.Context, resource *T) error
	DeleteWhere(ctx context.Context, opts ...option.QueryOption) error
}
