// Package app assembles the repositories and services shared by the binaries.
package app

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/angelmondragon/mercerie-backend/internal/auth"
	"github.com/angelmondragon/mercerie-backend/internal/cart"
	"github.com/angelmondragon/mercerie-backend/internal/notifications"
	"github.com/angelmondragon/mercerie-backend/internal/orders"
	"github.com/angelmondragon/mercerie-backend/internal/products"
	"github.com/angelmondragon/mercerie-backend/internal/session"
	"github.com/angelmondragon/mercerie-backend/internal/users"
	"github.com/angelmondragon/mercerie-backend/pkg/config"
	"github.com/angelmondragon/mercerie-backend/pkg/lock"
	"github.com/angelmondragon/mercerie-backend/pkg/logger"
	"github.com/angelmondragon/mercerie-backend/pkg/metrics"
)

type Params struct {
	DB      *gorm.DB
	Config  *config.Config
	Locker  lock.Locker
	Metrics *metrics.ShopMetrics
	Logger  *logger.Logger
}

// App holds every wired component. The hub and tracker are process-local.
type App struct {
	Hub     *notifications.Hub
	Tracker *session.Tracker

	Clients     *users.Repository
	Employees   *users.Repository
	Patrons     *users.Repository
	ProductRepo *products.Repository
	OrderRepo   orders.Repository

	Users    users.Service
	Products products.Service
	Orders   orders.Service
	Cart     cart.Service
	Auth     auth.Service
}

func New(p Params) (*App, error) {
	if p.DB == nil {
		return nil, fmt.Errorf("database required")
	}
	if p.Config == nil {
		return nil, fmt.Errorf("config required")
	}
	if p.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	locker := p.Locker
	if locker == nil {
		locker = lock.NewLocal()
	}

	a := &App{
		Hub:         notifications.NewHub(p.Logger, p.Metrics),
		Clients:     users.NewClientRepository(p.DB),
		Employees:   users.NewEmployeeRepository(p.DB),
		Patrons:     users.NewPatronRepository(p.DB),
		ProductRepo: products.NewRepository(p.DB),
		OrderRepo:   orders.NewRepository(p.DB),
	}
	a.Tracker = session.NewTracker(p.Logger, a.Hub)

	var err error
	a.Users, err = users.NewService(users.ServiceParams{
		Clients:   a.Clients,
		Employees: a.Employees,
		Patrons:   a.Patrons,
		Password:  p.Config.Password,
		Logger:    p.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("users service: %w", err)
	}

	a.Products, err = products.NewService(products.ServiceParams{
		Repo:      a.ProductRepo,
		Publisher: a.Hub,
		Locker:    locker,
		LockTTL:   p.Config.Assignment.LockTTL,
		LockWait:  p.Config.Assignment.LockWait,
		Logger:    p.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("products service: %w", err)
	}

	a.Orders, err = orders.NewService(orders.ServiceParams{
		Repo:      a.OrderRepo,
		Clients:   a.Clients,
		Employees: a.Employees,
		Patrons:   a.Patrons,
		Products:  a.ProductRepo,
		Stock:     a.Products,
		Publisher: a.Hub,
		Locker:    locker,
		LockTTL:   p.Config.Assignment.LockTTL,
		LockWait:  p.Config.Assignment.LockWait,
		Metrics:   p.Metrics,
		Logger:    p.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("orders service: %w", err)
	}

	a.Cart, err = cart.NewService(a.Products, a.Orders, p.Logger)
	if err != nil {
		return nil, fmt.Errorf("cart service: %w", err)
	}

	a.Auth, err = auth.NewService(auth.ServiceParams{
		Clients:   a.Clients,
		Employees: a.Employees,
		Patrons:   a.Patrons,
		Accounts:  a.Users,
		Tracker:   a.Tracker,
		JWTConfig: p.Config.JWT,
		Logger:    p.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("auth service: %w", err)
	}
	return a, nil
}

// SeedPatron creates the configured patron account when none exists.
func (a *App) SeedPatron(ctx context.Context, cfg config.PatronConfig, logg *logger.Logger) error {
	if !cfg.Enabled() {
		return nil
	}
	patron, created, err := a.Users.EnsurePatron(ctx, users.Input{
		Name:     cfg.Name,
		Email:    cfg.Email,
		Username: cfg.Username,
		Password: cfg.Password,
	})
	if err != nil {
		return fmt.Errorf("seed patron: %w", err)
	}
	if created {
		logg.Info(logg.WithField(ctx, "user_id", patron.ID.String()), "patron account created")
	}
	return nil
}
