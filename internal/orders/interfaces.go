package orders

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/mercerie-backend/pkg/db/models"
	"github.com/angelmondragon/mercerie-backend/pkg/enums"
	"github.com/angelmondragon/mercerie-backend/pkg/pagination"
)

// Repository defines persistence operations for orders and their lines.
// Every read eager-loads the client, the employee and the lines with their
// products.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListAll(ctx context.Context) ([]models.Order, error)
	ListByClient(ctx context.Context, clientID uuid.UUID) ([]models.Order, error)
	ListByEmployee(ctx context.Context, employeeID uuid.UUID) ([]models.Order, error)
	ListByStatus(ctx context.Context, status enums.OrderStatus) ([]models.Order, error)
	ListByEmployeePage(ctx context.Context, employeeID uuid.UUID, params pagination.Params) ([]models.Order, int64, error)
	CountActiveByEmployee(ctx context.Context, employeeID uuid.UUID) (int64, error)
	CountActiveByEmployees(ctx context.Context, employeeIDs []uuid.UUID) (map[uuid.UUID]int64, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.OrderStatus) (bool, error)
	DeleteLine(ctx context.Context, orderID, productID uuid.UUID) (bool, error)
	CreateWithLines(ctx context.Context, order *models.Order, quantities map[uuid.UUID]decimal.Decimal) error
}

type userLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// employeeDirectory lists the employees eligible for assignment in a stable order.
type employeeDirectory interface {
	userLookup
	ListByRole(ctx context.Context) ([]models.User, error)
}

type productReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]models.Product, error)
}

// stockWriter overwrites absolute stock values and announces them.
type stockWriter interface {
	OverwriteStock(ctx context.Context, quantities map[uuid.UUID]decimal.Decimal) ([]models.Product, error)
}
