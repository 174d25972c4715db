package orders

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/mercerie-backend/internal/repo"
	"github.com/angelmondragon/mercerie-backend/pkg/db/models"
	"github.com/angelmondragon/mercerie-backend/pkg/enums"
	"github.com/angelmondragon/mercerie-backend/pkg/pagination"
)

type repository struct {
	orders *repo.Generic[models.Order]
}

func preloadOrder(q *gorm.DB) *gorm.DB {
	return q.
		Preload("Client").
		Preload("Employee").
		Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("order_lines.product_id ASC") }).
		Preload("Lines.Product")
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{orders: repo.NewGeneric[models.Order](db, repo.WithPreload(preloadOrder))}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{orders: r.orders.WithTx(tx)}
}

// FindByID returns nil without error when the order does not exist.
func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return r.orders.GetByID(ctx, id)
}

func (r *repository) ListAll(ctx context.Context) ([]models.Order, error) {
	return r.list(ctx, "")
}

func (r *repository) ListByClient(ctx context.Context, clientID uuid.UUID) ([]models.Order, error) {
	return r.list(ctx, "orders.client_id = ?", clientID)
}

func (r *repository) ListByEmployee(ctx context.Context, employeeID uuid.UUID) ([]models.Order, error) {
	return r.list(ctx, "orders.employee_id = ?", employeeID)
}

func (r *repository) ListByStatus(ctx context.Context, status enums.OrderStatus) ([]models.Order, error) {
	return r.list(ctx, "orders.status = ?", status)
}

// list returns newest orders first.
func (r *repository) list(ctx context.Context, query string, args ...any) ([]models.Order, error) {
	q := r.orders.Query(ctx)
	if query != "" {
		q = q.Where(query, args...)
	}
	var out []models.Order
	if err := q.Order("orders.created_at DESC").Order("orders.id ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *repository) ListByEmployeePage(ctx context.Context, employeeID uuid.UUID, params pagination.Params) ([]models.Order, int64, error) {
	params = params.Normalize()

	var total int64
	if err := r.orders.DB(ctx).Model(&models.Order{}).Where("employee_id = ?", employeeID).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []models.Order{}, 0, nil
	}

	var out []models.Order
	err := r.orders.Query(ctx).
		Where("orders.employee_id = ?", employeeID).
		Order("orders.created_at DESC").
		Order("orders.id ASC").
		Offset(params.Offset()).
		Limit(params.Limit()).
		Find(&out).Error
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (r *repository) CountActiveByEmployee(ctx context.Context, employeeID uuid.UUID) (int64, error) {
	var count int64
	err := r.orders.DB(ctx).
		Model(&models.Order{}).
		Where("employee_id = ? AND status <> ?", employeeID, enums.OrderStatusCompleted).
		Count(&count).Error
	return count, err
}

// CountActiveByEmployees returns non-completed order counts; employees with
// no active orders are absent from the map.
func (r *repository) CountActiveByEmployees(ctx context.Context, employeeIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	out := make(map[uuid.UUID]int64, len(employeeIDs))
	if len(employeeIDs) == 0 {
		return out, nil
	}

	var rows []struct {
		EmployeeID uuid.UUID
		Active     int64
	}
	err := r.orders.DB(ctx).
		Model(&models.Order{}).
		Select("employee_id, COUNT(*) AS active").
		Where("employee_id IN ? AND status <> ?", employeeIDs, enums.OrderStatusCompleted).
		Group("employee_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.EmployeeID] = row.Active
	}
	return out, nil
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.OrderStatus) (bool, error) {
	res := r.orders.DB(ctx).Model(&models.Order{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) DeleteLine(ctx context.Context, orderID, productID uuid.UUID) (bool, error) {
	res := r.orders.DB(ctx).
		Where("order_id = ? AND product_id = ?", orderID, productID).
		Delete(&models.OrderLine{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// CreateWithLines inserts order and one line per product in a single
// transaction. Each line snapshots the product price current at insert time.
// A missing product aborts the whole order with gorm.ErrRecordNotFound in the
// returned chain.
func (r *repository) CreateWithLines(ctx context.Context, order *models.Order, quantities map[uuid.UUID]decimal.Decimal) error {
	if order == nil {
		return repo.ErrNilEntity
	}

	ids := make([]uuid.UUID, 0, len(quantities))
	for id := range quantities {
		ids = append(ids, id)
	}
	slices.SortFunc(ids, func(a, b uuid.UUID) int { return strings.Compare(a.String(), b.String()) })

	err := r.orders.DB(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(order).Error; err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		var products []models.Product
		if err := tx.Where("id IN ?", ids).Find(&products).Error; err != nil {
			return fmt.Errorf("load products: %w", err)
		}
		prices := make(map[uuid.UUID]decimal.Decimal, len(products))
		for _, p := range products {
			prices[p.ID] = p.Price
		}

		lines := make([]models.OrderLine, 0, len(ids))
		for _, id := range ids {
			price, ok := prices[id]
			if !ok {
				return fmt.Errorf("product %s: %w", id, gorm.ErrRecordNotFound)
			}
			lines = append(lines, models.OrderLine{
				OrderID:   order.ID,
				ProductID: id,
				Quantity:  quantities[id],
				UnitPrice: price,
			})
		}
		if len(lines) > 0 {
			if err := tx.Omit(clause.Associations).Create(&lines).Error; err != nil {
				return fmt.Errorf("insert order lines: %w", err)
			}
		}
		order.Lines = lines
		return nil
	})
	if err != nil {
		return fmt.Errorf("create order: %w", err)
	}
	return nil
}
