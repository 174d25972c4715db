package products

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/mercerie-backend/internal/repo"
	"github.com/angelmondragon/mercerie-backend/pkg/db/models"
	"github.com/angelmondragon/mercerie-backend/pkg/enums"
)

// Repository provides catalog persistence.
type Repository struct {
	*repo.Generic[models.Product]
}

// NewRepository constructs a products repo bound to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Generic: repo.NewGeneric[models.Product](db)}
}

// WithTx returns a repository that runs on tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{Generic: r.Generic.WithTx(tx)}
}

func (r *Repository) FindByName(ctx context.Context, name string) ([]models.Product, error) {
	return r.Where(ctx, "name = ?", name)
}

func (r *Repository) FindByCategory(ctx context.Context, category enums.ProductCategory) ([]models.Product, error) {
	return r.Where(ctx, "category = ?", category)
}

func (r *Repository) FindByPrice(ctx context.Context, price decimal.Decimal) ([]models.Product, error) {
	return r.Where(ctx, "price = ?", price)
}

func (r *Repository) FindByStock(ctx context.Context, stock decimal.Decimal) ([]models.Product, error) {
	return r.Where(ctx, "stock = ?", stock)
}

// FindStockAtOrBelow lists products whose stock is at most threshold, lowest first.
func (r *Repository) FindStockAtOrBelow(ctx context.Context, threshold decimal.Decimal) ([]models.Product, error) {
	var out []models.Product
	err := r.Query(ctx).
		Where("stock <= ?", threshold).
		Order("stock ASC").
		Order("name ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// FindByIDs returns the products found among ids keyed by id.
func (r *Repository) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error) {
	out := make(map[uuid.UUID]models.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	list, err := r.Where(ctx, "id IN ?", ids)
	if err != nil {
		return nil, err
	}
	for _, p := range list {
		out[p.ID] = p
	}
	return out, nil
}

// UpdateStock overwrites the stock column and reports whether the product exists.
func (r *Repository) UpdateStock(ctx context.Context, id uuid.UUID, stock decimal.Decimal) (bool, error) {
	res := r.DB(ctx).Model(&models.Product{}).Where("id = ?", id).Update("stock", stock)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
