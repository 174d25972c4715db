package products

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/mercerie-backend/internal/notifications"
	"github.com/angelmondragon/mercerie-backend/pkg/db"
	"github.com/angelmondragon/mercerie-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/mercerie-backend/pkg/errors"
	"github.com/angelmondragon/mercerie-backend/pkg/lock"
	"github.com/angelmondragon/mercerie-backend/pkg/logger"
)

// StockLockKey names the lock that serializes stock writes of one product.
func StockLockKey(id uuid.UUID) string {
	return "products:stock:" + id.String()
}

// Service exposes catalog operations. Every successful mutation is announced
// on the notification hub after it has been persisted.
type Service interface {
	CreateProduct(ctx context.Context, input Input) (*models.Product, error)
	UpdateProduct(ctx context.Context, id uuid.UUID, input Input) (*models.Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) (bool, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	ListProducts(ctx context.Context) ([]models.Product, error)
	SearchProducts(ctx context.Context, filters SearchFilters) ([]models.Product, error)
	// OverwriteStock sets absolute stock values. Every product must exist and
	// every value must be >= 0, otherwise nothing is written.
	OverwriteStock(ctx context.Context, quantities map[uuid.UUID]decimal.Decimal) ([]models.Product, error)
}

// ServiceParams wires the service dependencies. LockTTL and LockWait bound
// the per-product stock lock.
type ServiceParams struct {
	Repo      *Repository
	Publisher notifications.Publisher
	Locker    lock.Locker
	LockTTL   time.Duration
	LockWait  time.Duration
	Logger    *logger.Logger
}

type service struct {
	repo      *Repository
	publisher notifications.Publisher
	locker    lock.Locker
	lockTTL   time.Duration
	lockWait  time.Duration
	logg      *logger.Logger
}

// NewService constructs the products service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("products repository required")
	}
	if params.Publisher == nil {
		return nil, fmt.Errorf("notification publisher required")
	}
	if params.Locker == nil {
		return nil, fmt.Errorf("locker required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:      params.Repo,
		publisher: params.Publisher,
		locker:    params.Locker,
		lockTTL:   params.LockTTL,
		lockWait:  params.LockWait,
		logg:      params.Logger,
	}, nil
}

func (s *service) CreateProduct(ctx context.Context, input Input) (*models.Product, error) {
	input.Name = strings.TrimSpace(input.Name)
	if err := validateInput(input); err != nil {
		return nil, err
	}

	product := &models.Product{
		Name:     input.Name,
		Category: input.Category,
		Price:    input.Price,
		Stock:    input.Stock,
	}
	if err := s.repo.Add(ctx, product); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
	}

	s.logg.Info(s.logg.WithField(ctx, "product_id", product.ID.String()), "product created")
	s.publisher.PublishCatalogChanged(ctx)
	return product, nil
}

func (s *service) UpdateProduct(ctx context.Context, id uuid.UUID, input Input) (*models.Product, error) {
	input.Name = strings.TrimSpace(input.Name)
	if err := validateInput(input); err != nil {
		return nil, err
	}

	var (
		product      *models.Product
		stockChanged bool
	)
	err := s.withStockLock(ctx, id, func(ctx context.Context) error {
		current, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
		}
		if current == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}

		stockChanged = !current.Stock.Equal(input.Stock)
		current.Name = input.Name
		current.Category = input.Category
		current.Price = input.Price
		current.Stock = input.Stock
		if err := s.repo.Update(ctx, current); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product")
		}
		product = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publisher.PublishCatalogChanged(ctx)
	if stockChanged {
		s.publisher.PublishProductQuantityChanged(ctx, notifications.ProductQuantityChanged{
			ProductID:   product.ID,
			NewQuantity: product.Stock,
		})
	}
	return product, nil
}

func (s *service) DeleteProduct(ctx context.Context, id uuid.UUID) (bool, error) {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		if db.IsForeignKeyViolation(err) {
			return false, pkgerrors.New(pkgerrors.CodeConflict, "product is referenced by orders")
		}
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete product")
	}
	if deleted {
		s.logg.Info(s.logg.WithField(ctx, "product_id", id.String()), "product deleted")
		s.publisher.PublishCatalogChanged(ctx)
	}
	return deleted, nil
}

func (s *service) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if product == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return product, nil
}

func (s *service) ListProducts(ctx context.Context) ([]models.Product, error) {
	list, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	return list, nil
}

func (s *service) SearchProducts(ctx context.Context, filters SearchFilters) ([]models.Product, error) {
	filters.Name = strings.TrimSpace(filters.Name)
	if filters.Category != "" && !filters.Category.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid category").
			WithDetails(map[string]string{"category": "invalid"})
	}

	var (
		list []models.Product
		err  error
	)
	switch {
	case filters.Name != "":
		list, err = s.repo.FindByName(ctx, filters.Name)
	case filters.Category != "":
		list, err = s.repo.FindByCategory(ctx, filters.Category)
	default:
		list, err = s.repo.GetAll(ctx)
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "search products")
	}
	if filters.Name != "" && filters.Category != "" {
		list = lo.Filter(list, func(p models.Product, _ int) bool { return p.Category == filters.Category })
	}
	return list, nil
}

func (s *service) OverwriteStock(ctx context.Context, quantities map[uuid.UUID]decimal.Decimal) ([]models.Product, error) {
	if len(quantities) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one product quantity is required")
	}
	details := map[string]string{}
	for id, qty := range quantities {
		if qty.IsNegative() {
			details[id.String()] = "must be >= 0"
		}
	}
	if len(details) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid stock quantity").WithDetails(details)
	}

	ids := sortedIDs(quantities)
	found, err := s.repo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
	}
	if missing := lo.Filter(ids, func(id uuid.UUID, _ int) bool { _, ok := found[id]; return !ok }); len(missing) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
			WithDetails(map[string]any{"missing_product_ids": missing})
	}

	updated := make([]models.Product, 0, len(ids))
	for _, id := range ids {
		qty := quantities[id]
		err := s.withStockLock(ctx, id, func(ctx context.Context) error {
			ok, err := s.repo.UpdateStock(ctx, id, qty)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update stock")
			}
			if !ok {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return nil
		})
		if err != nil {
			return updated, err
		}

		product := found[id]
		product.Stock = qty
		updated = append(updated, product)
		s.publisher.PublishProductQuantityChanged(ctx, notifications.ProductQuantityChanged{
			ProductID:   id,
			NewQuantity: qty,
		})
	}
	return updated, nil
}

func (s *service) withStockLock(ctx context.Context, id uuid.UUID, fn func(ctx context.Context) error) error {
	err := lock.Do(ctx, s.locker, StockLockKey(id), s.lockTTL, s.lockWait, fn)
	if err != nil && pkgerrors.As(err) == nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire stock lock")
	}
	return err
}

// sortedIDs fixes the write order so concurrent bulk writers take locks in
// the same sequence.
func sortedIDs(m map[uuid.UUID]decimal.Decimal) []uuid.UUID {
	ids := lo.Keys(m)
	slices.SortFunc(ids, func(a, b uuid.UUID) int { return strings.Compare(a.String(), b.String()) })
	return ids
}

func validateInput(in Input) error {
	details := map[string]string{}
	if in.Name == "" {
		details["name"] = "required"
	}
	if !in.Category.IsValid() {
		details["category"] = "invalid"
	}
	if in.Price.IsNegative() {
		details["price"] = "must be >= 0"
	}
	if in.Stock.IsNegative() {
		details["stock"] = "must be >= 0"
	}
	if len(details) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid product input").WithDetails(details)
	}
	return nil
}
