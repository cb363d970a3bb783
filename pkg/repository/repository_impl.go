package repository

import (
	"context"
	"errors"

	"github.com/smallbiznis/partnerpayout/pkg/db/option"
	"gorm.io/gorm"
)

// ErrUnboundedDelete guards DeleteWhere against wiping a table.
var ErrUnboundedDelete = errors.New("unbounded_delete")

type store[T any] struct {
	db *gorm.DB
}

func ProvideStore[T any](db *gorm.DB) Repository[T] {
	return &store[T]{db: db}
}

func (s *store[T]) WithTrx(tx *gorm.DB) Repository[T] {
	if tx == nil {
		return s
	}
	return &store[T]{db: tx}
}

func (s *store[T]) Find(ctx context.Context, filter *T, opts ...option.QueryOption) ([]T, error) {
	var items []T
	if err := s.query(ctx, filter, opts).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// FindOne returns nil without error when nothing matches.
func (s *store[T]) FindOne(ctx context.Context, filter *T, opts ...option.QueryOption) (*T, error) {
	var item T
	err := s.query(ctx, filter, opts).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *store[T]) Create(ctx context.Context, resource *T) error {
	return s.db.WithContext(ctx).Create(resource).Error
}

func (s *store[T]) DeleteWhere(ctx context.Context, opts ...option.QueryOption) error {
	if len(opts) == 0 {
		return ErrUnboundedDelete
	}
	return s.query(ctx, nil, opts).Delete(new(T)).Error
}

func (s *store[T]) query(ctx context.Context, filter *T, opts []option.QueryOption) *gorm.DB {
	stmt := s.db.WithContext(ctx).Model(new(T))
	if filter != nil {
		stmt = stmt.Where(filter)
	}
	for _, opt := range opts {
		stmt = opt.Apply(stmt)
	}
	return stmt
}

// InChunks calls fn with consecutive slices of at most size values so IN
// lists stay under driver parameter limits.
func InChunks[V any](values []V, size int, fn func(part []V) error) error {
	if size <= 0 {
		size = len(values)
	}
	for start := 0; start < len(values); start += size {
		end := min(start+size, len(values))
		if err := fn(values[start:end]); err != nil {
			return err
		}
	}
	return nil
}
