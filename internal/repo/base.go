package repo

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNilEntity guards write operations against a missing argument.
var ErrNilEntity = errors.New("entity is required")

// Scope narrows or decorates a query, e.g. a role filter or eager loading.
type Scope func(*gorm.DB) *gorm.DB

// Base provides a shared foundation for domain repositories.
type Base struct {
	db *gorm.DB
}

// NewBase constructs a Base repository backed by the provided GORM connection.
func NewBase(db *gorm.DB) Base {
	return Base{db: db}
}

// DB returns the GORM connection bound to the supplied context (if any).
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}

// Generic implements the CRUD surface shared by every entity keyed by an
// "id" column. filter applies to every statement and preload to reads only.
type Generic[T any] struct {
	Base
	filter  Scope
	preload Scope
}

// Option configures a Generic repository.
type Option func(*genericOptions)

type genericOptions struct {
	filter  Scope
	preload Scope
}

// WithFilter restricts every read and write to rows matching scope.
func WithFilter(scope Scope) Option {
	return func(o *genericOptions) { o.filter = scope }
}

// WithPreload eager-loads associations on reads.
func WithPreload(scope Scope) Option {
	return func(o *genericOptions) { o.preload = scope }
}

func NewGeneric[T any](db *gorm.DB, opts ...Option) *Generic[T] {
	var o genericOptions
	for _, opt := range opts {
		opt(&o)
	}
	return &Generic[T]{Base: NewBase(db), filter: o.filter, preload: o.preload}
}

// WithTx returns a copy bound to tx with the same scopes.
func (g *Generic[T]) WithTx(tx *gorm.DB) *Generic[T] {
	return &Generic[T]{Base: NewBase(tx), filter: g.filter, preload: g.preload}
}

func (g *Generic[T]) writeQuery(ctx context.Context) *gorm.DB {
	q := g.DB(ctx)
	if g.filter != nil {
		q = q.Scopes(g.filter)
	}
	return q
}

// Query returns a read statement with the repository's filter and preloads.
func (g *Generic[T]) Query(ctx context.Context) *gorm.DB {
	q := g.writeQuery(ctx)
	if g.preload != nil {
		q = q.Scopes(g.preload)
	}
	return q
}

func (g *Generic[T]) GetAll(ctx context.Context) ([]T, error) {
	var out []T
	if err := g.Query(ctx).Order("created_at ASC").Order("id ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// GetByID returns nil without error when no row matches.
func (g *Generic[T]) GetByID(ctx context.Context, id uuid.UUID) (*T, error) {
	var out T
	err := g.Query(ctx).Where("id = ?", id).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Where runs an equality lookup with the repository scopes applied.
func (g *Generic[T]) Where(ctx context.Context, query string, args ...any) ([]T, error) {
	var out []T
	if err := g.Query(ctx).Where(query, args...).Order("created_at ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// FirstWhere is Where limited to one row; nil without error on miss.
func (g *Generic[T]) FirstWhere(ctx context.Context, query string, args ...any) (*T, error) {
	var out T
	err := g.Query(ctx).Where(query, args...).First(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (g *Generic[T]) Add(ctx context.Context, entity *T) error {
	if entity == nil {
		return ErrNilEntity
	}
	return g.DB(ctx).Omit(clause.Associations).Create(entity).Error
}

// Update overwrites every column of an existing row. A missing row yields
// gorm.ErrRecordNotFound.
func (g *Generic[T]) Update(ctx context.Context, entity *T) error {
	changed, err := g.SaveChanges(ctx, entity)
	if err != nil {
		return err
	}
	if !changed {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete removes the row with id and reports whether anything was deleted.
func (g *Generic[T]) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	res := g.writeQuery(ctx).Where("id = ?", id).Delete(new(T))
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// SaveChanges flushes the in-memory state of a loaded entity and reports
// whether at least one row was written.
func (g *Generic[T]) SaveChanges(ctx context.Context, entity *T) (bool, error) {
	if entity == nil {
		return false, ErrNilEntity
	}
	res := g.writeQuery(ctx).Model(entity).Select("*").Omit(clause.Associations).Updates(entity)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
