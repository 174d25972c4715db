package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/mercerie-backend/internal/notifications"
	"github.com/angelmondragon/mercerie-backend/pkg/db/models"
	"github.com/angelmondragon/mercerie-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/mercerie-backend/pkg/errors"
	"github.com/angelmondragon/mercerie-backend/pkg/lock"
	"github.com/angelmondragon/mercerie-backend/pkg/logger"
	"github.com/angelmondragon/mercerie-backend/pkg/metrics"
	"github.com/angelmondragon/mercerie-backend/pkg/pagination"
	"github.com/angelmondragon/mercerie-backend/pkg/types"
)

const (
	assignmentExplicit = "explicit"
	assignmentAuto     = "auto"
)

// Service coordinates order placement, fulfillment and employee assignment.
type Service interface {
	PlaceOrder(ctx context.Context, clientID, employeeID uuid.UUID, quantities map[uuid.UUID]decimal.Decimal, status enums.OrderStatus) (*models.Order, error)
	PlaceOrderAutoAssign(ctx context.Context, clientID uuid.UUID, quantities map[uuid.UUID]decimal.Decimal, status enums.OrderStatus) (*models.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus) (*models.Order, error)
	UpdateOrderLineQuantities(ctx context.Context, orderID uuid.UUID, quantities map[uuid.UUID]decimal.Decimal) ([]models.Product, error)
	ReturnProduct(ctx context.Context, clientID, employeeID, orderID, productID uuid.UUID) (*models.Order, error)

	GetOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	ListOrders(ctx context.Context) ([]models.Order, error)
	ListClientOrders(ctx context.Context, clientID uuid.UUID) ([]models.Order, error)
	ListEmployeeOrders(ctx context.Context, employeeID uuid.UUID) ([]models.Order, error)
	ListEmployeeOrdersPage(ctx context.Context, employeeID uuid.UUID, params pagination.Params) (*types.Page[models.Order], error)
	ListOrdersByStatus(ctx context.Context, status enums.OrderStatus) ([]models.Order, error)

	EmployeeWithLeastOrders(ctx context.Context) (*models.User, error)
	EmployeeWorkloads(ctx context.Context) ([]Workload, error)
}

// ServiceParams wires the service dependencies. Patrons may be nil, in which
// case only regular employees can be named on an order.
type ServiceParams struct {
	Repo      Repository
	Clients   userLookup
	Employees employeeDirectory
	Patrons   userLookup
	Products  productReader
	Stock     stockWriter
	Publisher notifications.Publisher
	Locker    lock.Locker
	LockTTL   time.Duration
	LockWait  time.Duration
	Metrics   *metrics.ShopMetrics
	Logger    *logger.Logger
}

type service struct {
	repo      Repository
	clients   userLookup
	employees employeeDirectory
	patrons   userLookup
	products  productReader
	stock     stockWriter
	publisher notifications.Publisher
	locker    lock.Locker
	lockTTL   time.Duration
	lockWait  time.Duration
	metrics   *metrics.ShopMetrics
	logg      *logger.Logger
}

// NewService builds an order service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Clients == nil {
		return nil, fmt.Errorf("client lookup required")
	}
	if params.Employees == nil {
		return nil, fmt.Errorf("employee directory required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("product reader required")
	}
	if params.Stock == nil {
		return nil, fmt.Errorf("stock writer required")
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
		clients:   params.Clients,
		employees: params.Employees,
		patrons:   params.Patrons,
		products:  params.Products,
		stock:     params.Stock,
		publisher: params.Publisher,
		locker:    params.Locker,
		lockTTL:   params.LockTTL,
		lockWait:  params.LockWait,
		metrics:   params.Metrics,
		logg:      params.Logger,
	}, nil
}

func (s *service) PlaceOrder(ctx context.Context, clientID, employeeID uuid.UUID, quantities map[uuid.UUID]decimal.Decimal, status enums.OrderStatus) (*models.Order, error) {
	order, err := s.createOrder(ctx, clientID, employeeID, quantities, status)
	if err != nil {
		return nil, err
	}
	s.metrics.IncOrderPlaced(assignmentExplicit)
	s.announceStock(ctx, order)
	return order, nil
}

// PlaceOrderAutoAssign picks the least loaded employee and creates the order
// while holding the assignment lock, so concurrent placements observe each
// other's orders.
func (s *service) PlaceOrderAutoAssign(ctx context.Context, clientID uuid.UUID, quantities map[uuid.UUID]decimal.Decimal, status enums.OrderStatus) (*models.Order, error) {
	if err := validateQuantities(quantities); err != nil {
		return nil, err
	}

	var order *models.Order
	err := lock.Do(ctx, s.locker, AssignmentLockKey, s.lockTTL, s.lockWait, func(ctx context.Context) error {
		employee, err := s.EmployeeWithLeastOrders(ctx)
		if err != nil {
			return err
		}
		order, err = s.createOrder(ctx, clientID, employee.ID, quantities, status)
		return err
	})
	if err != nil {
		if pkgerrors.As(err) == nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire assignment lock")
		}
		return nil, err
	}

	s.metrics.IncOrderPlaced(assignmentAuto)
	s.announceStock(ctx, order)
	return order, nil
}

func (s *service) createOrder(ctx context.Context, clientID, employeeID uuid.UUID, quantities map[uuid.UUID]decimal.Decimal, status enums.OrderStatus) (*models.Order, error) {
	if status == "" {
		status = enums.OrderStatusTaken
	}
	if !status.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid order status %q", status)
	}
	if err := validateQuantities(quantities); err != nil {
		return nil, err
	}

	client, err := s.clients.GetByID(ctx, clientID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load client")
	}
	if client == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "client not found")
	}
	employee, err := s.resolveStaff(ctx, employeeID)
	if err != nil {
		return nil, err
	}

	order := &models.Order{
		ClientID:   client.ID,
		EmployeeID: employee.ID,
		Status:     status,
	}
	if err := s.repo.CreateWithLines(ctx, order, quantities); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "product not found")
		}
		s.logg.Error(s.logg.WithField(ctx, "client_id", clientID.String()), "order creation failed", err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
	}

	reloaded, err := s.repo.FindByID(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
	}
	if reloaded == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "order vanished after creation")
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"order_id":    reloaded.ID.String(),
		"client_id":   client.ID.String(),
		"employee_id": employee.ID.String(),
		"lines":       len(reloaded.Lines),
	}), "order placed")
	return reloaded, nil
}

// resolveStaff accepts a regular employee or the patron.
func (s *service) resolveStaff(ctx context.Context, id uuid.UUID) (*models.User, error) {
	employee, err := s.employees.GetByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load employee")
	}
	if employee == nil && s.patrons != nil {
		employee, err = s.patrons.GetByID(ctx, id)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load employee")
		}
	}
	if employee == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "employee not found")
	}
	return employee, nil
}

// announceStock re-reads the stock of every ordered product and publishes it.
// Placing an order does not change stock; listeners use this to refresh.
func (s *service) announceStock(ctx context.Context, order *models.Order) {
	ids := lo.Map(order.Lines, func(l models.OrderLine, _ int) uuid.UUID { return l.ProductID })
	current, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		s.logg.Error(s.logg.WithField(ctx, "order_id", order.ID.String()), "reload product stock", err)
		return
	}
	for _, id := range ids {
		product, ok := current[id]
		if !ok {
			continue
		}
		s.publisher.PublishProductQuantityChanged(ctx, notifications.ProductQuantityChanged{
			ProductID:   id,
			NewQuantity: product.Stock,
		})
	}
}

func (s *service) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus) (*models.Order, error) {
	if !status.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid order status %q", status)
	}

	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	ok, err := s.repo.UpdateStatus(ctx, orderID, status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	order.Status = status

	clientName := ""
	if order.Client != nil {
		clientName = order.Client.Name
	}
	s.metrics.IncStatusUpdate(status.String())
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{"order_id": orderID.String(), "status": status.String()}), "order status updated")
	s.publisher.PublishOrderStatusChanged(ctx, notifications.OrderStatusChanged{
		OrderID:    order.ID,
		ClientID:   order.ClientID,
		NewStatus:  status,
		ClientName: clientName,
	})
	return order, nil
}

// UpdateOrderLineQuantities overwrites the stock of each listed product with
// the given absolute value. The order id only gives the edit its context.
func (s *service) UpdateOrderLineQuantities(ctx context.Context, orderID uuid.UUID, quantities map[uuid.UUID]decimal.Decimal) ([]models.Product, error) {
	ctx = s.logg.WithField(ctx, "order_id", orderID.String())
	updated, err := s.stock.OverwriteStock(ctx, quantities)
	if err != nil {
		return nil, err
	}
	s.logg.Info(s.logg.WithField(ctx, "products", len(updated)), "stock quantities overwritten")
	return updated, nil
}

// ReturnProduct removes one line from an order owned by clientID. Stock is
// left untouched. employeeID is checked only when set.
func (s *service) ReturnProduct(ctx context.Context, clientID, employeeID, orderID, productID uuid.UUID) (*models.Order, error) {
	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.ClientID != clientID || (employeeID != uuid.Nil && order.EmployeeID != employeeID) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}

	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if product == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}

	removed, err := s.repo.DeleteLine(ctx, orderID, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove order line")
	}
	if !removed {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not on order")
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{"order_id": orderID.String(), "product_id": productID.String()}), "product returned")
	return s.GetOrder(ctx, orderID)
}

func (s *service) GetOrder(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

func (s *service) ListOrders(ctx context.Context) ([]models.Order, error) {
	return wrapList(s.repo.ListAll(ctx))
}

func (s *service) ListClientOrders(ctx context.Context, clientID uuid.UUID) ([]models.Order, error) {
	return wrapList(s.repo.ListByClient(ctx, clientID))
}

func (s *service) ListEmployeeOrders(ctx context.Context, employeeID uuid.UUID) ([]models.Order, error) {
	return wrapList(s.repo.ListByEmployee(ctx, employeeID))
}

func (s *service) ListOrdersByStatus(ctx context.Context, status enums.OrderStatus) ([]models.Order, error) {
	if !status.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid order status %q", status)
	}
	return wrapList(s.repo.ListByStatus(ctx, status))
}

func (s *service) ListEmployeeOrdersPage(ctx context.Context, employeeID uuid.UUID, params pagination.Params) (*types.Page[models.Order], error) {
	params = params.Normalize()
	items, total, err := s.repo.ListByEmployeePage(ctx, employeeID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list employee orders")
	}
	return &types.Page[models.Order]{
		Items:      items,
		Page:       params.Page,
		PageSize:   params.PageSize,
		Total:      total,
		TotalPages: pagination.TotalPages(total, params.PageSize),
	}, nil
}

func wrapList(list []models.Order, err error) ([]models.Order, error) {
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return list, nil
}

func validateQuantities(quantities map[uuid.UUID]decimal.Decimal) error {
	if len(quantities) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "order must contain at least one product")
	}
	details := map[string]string{}
	for id, qty := range quantities {
		if !qty.IsPositive() {
			details[id.String()] = "must be > 0"
		}
	}
	if len(details) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid product quantity").WithDetails(details)
	}
	return nil
}
