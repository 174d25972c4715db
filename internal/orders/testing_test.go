package orders

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/mercerie-backend/internal/notifications"
	"github.com/angelmondragon/mercerie-backend/internal/products"
	"github.com/angelmondragon/mercerie-backend/internal/users"
	"github.com/angelmondragon/mercerie-backend/pkg/db/dbtest"
	"github.com/angelmondragon/mercerie-backend/pkg/db/models"
	"github.com/angelmondragon/mercerie-backend/pkg/enums"
	"github.com/angelmondragon/mercerie-backend/pkg/lock"
	"github.com/angelmondragon/mercerie-backend/pkg/logger"
)

type recordingPublisher struct {
	mu         sync.Mutex
	quantities []notifications.ProductQuantityChanged
	statuses   []notifications.OrderStatusChanged
}

func (p *recordingPublisher) PublishProductQuantityChanged(_ context.Context, e notifications.ProductQuantityChanged) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.quantities = append(p.quantities, e)
}

func (p *recordingPublisher) PublishCatalogChanged(context.Context) {}

func (p *recordingPublisher) PublishOrderStatusChanged(_ context.Context, e notifications.OrderStatusChanged) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.statuses = append(p.statuses, e)
}

func (p *recordingPublisher) PublishEmployeeStatusChanged(context.Context, notifications.EmployeeStatusChanged) {
}

type fixture struct {
	db        *gorm.DB
	svc       Service
	repo      Repository
	pub       *recordingPublisher
	clients   *users.Repository
	employees *users.Repository
	patrons   *users.Repository
	products  *products.Repository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn := dbtest.Open(t)
	pub := &recordingPublisher{}
	locker := lock.NewLocal()
	productRepo := products.NewRepository(conn)

	productSvc, err := products.NewService(products.ServiceParams{
		Repo:      productRepo,
		Publisher: pub,
		Locker:    locker,
		Logger:    logger.Nop(),
	})
	require.NoError(t, err)

	f := &fixture{
		db:        conn,
		repo:      NewRepository(conn),
		pub:       pub,
		clients:   users.NewClientRepository(conn),
		employees: users.NewEmployeeRepository(conn),
		patrons:   users.NewPatronRepository(conn),
		products:  productRepo,
	}
	f.svc, err = NewService(ServiceParams{
		Repo:      f.repo,
		Clients:   f.clients,
		Employees: f.employees,
		Patrons:   f.patrons,
		Products:  productRepo,
		Stock:     productSvc,
		Publisher: pub,
		Locker:    locker,
		Logger:    logger.Nop(),
	})
	require.NoError(t, err)
	return f
}

func (f *fixture) addUser(t *testing.T, r *users.Repository, name string) *models.User {
	t.Helper()
	u := &models.User{Name: name, Email: name + "@x.ro", Username: name, PasswordHash: "x"}
	require.NoError(t, r.Add(context.Background(), u))
	return u
}

func (f *fixture) addProduct(t *testing.T, name string, price, stock string) *models.Product {
	t.Helper()
	p := &models.Product{
		Name:     name,
		Category: enums.ProductCategoryYarn,
		Price:    decimal.RequireFromString(price),
		Stock:    decimal.RequireFromString(stock),
	}
	require.NoError(t, f.products.Add(context.Background(), p))
	return p
}

func (f *fixture) countOrders(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&models.Order{}).Count(&n).Error)
	return n
}
