package orders

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/mercerie-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/mercerie-backend/pkg/errors"
	"github.com/angelmondragon/mercerie-backend/pkg/pagination"
)

func qty(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(ServiceParams{})
	require.Error(t, err)
}

func TestPlaceOrderLinesMatchInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	client := f.addUser(t, f.clients, "ana")
	emp := f.addUser(t, f.employees, "dan")
	yarn := f.addProduct(t, "Red Yarn", "5.00", "10")
	hook := f.addProduct(t, "Hook", "12.50", "4")

	order, err := f.svc.PlaceOrder(ctx, client.ID, emp.ID, map[uuid.UUID]decimal.Decimal{
		yarn.ID: qty(3),
		hook.ID: decimal.RequireFromString("1.5"),
	}, enums.OrderStatusTaken)
	require.NoError(t, err)
	require.NotNil(t, order)

	assert.Equal(t, enums.OrderStatusTaken, order.Status)
	require.NotNil(t, order.Client)
	require.NotNil(t, order.Employee)
	assert.Equal(t, "ana", order.Client.Name)
	assert.Equal(t, "dan", order.Employee.Name)
	require.Len(t, order.Lines, 2)

	byProduct := map[uuid.UUID]decimal.Decimal{}
	for _, line := range order.Lines {
		require.NotNil(t, line.Product)
		byProduct[line.ProductID] = line.Quantity
		switch line.ProductID {
		case yarn.ID:
			assert.True(t, line.UnitPrice.Equal(decimal.RequireFromString("5.00")))
		case hook.ID:
			assert.True(t, line.UnitPrice.Equal(decimal.RequireFromString("12.50")))
		}
	}
	assert.True(t, byProduct[yarn.ID].Equal(qty(3)))
	assert.True(t, byProduct[hook.ID].Equal(decimal.RequireFromString("1.5")))
	assert.True(t, order.Total().Equal(decimal.RequireFromString("33.75")), "total %s", order.Total())
}

func TestPlaceOrderPriceSnapshotSurvivesPriceChange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	client := f.addUser(t, f.clients, "ana")
	emp := f.addUser(t, f.employees, "dan")
	yarn := f.addProduct(t, "Red Yarn", "5.00", "10")

	order, err := f.svc.PlaceOrder(ctx, client.ID, emp.ID, map[uuid.UUID]decimal.Decimal{yarn.ID: qty(1)}, enums.OrderStatusTaken)
	require.NoError(t, err)

	yarn.Price = decimal.NewFromInt(9)
	require.NoError(t, f.products.Update(ctx, yarn))

	reloaded, err := f.svc.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, reloaded.Lines, 1)
	assert.True(t, reloaded.Lines[0].UnitPrice.Equal(decimal.NewFromInt(5)))
}

func TestPlaceOrderUnknownPartiesPersistNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	client := f.addUser(t, f.clients, "ana")
	emp := f.addUser(t, f.employees, "dan")
	yarn := f.addProduct(t, "Red Yarn", "5.00", "10")
	items := map[uuid.UUID]decimal.Decimal{yarn.ID: qty(1)}

	_, err := f.svc.PlaceOrder(ctx, uuid.New(), emp.ID, items, enums.OrderStatusTaken)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = f.svc.PlaceOrder(ctx, client.ID, uuid.New(), items, enums.OrderStatusTaken)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = f.svc.PlaceOrder(ctx, emp.ID, emp.ID, items, enums.OrderStatusTaken)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound), "an employee is not a client")

	assert.Zero(t, f.countOrders(t))
	assert.Empty(t, f.pub.quantities)
}

func TestPlaceOrderMissingProductRollsBack(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	client := f.addUser(t, f.clients, "ana")
	emp := f.addUser(t, f.employees, "dan")
	yarn := f.addProduct(t, "Red Yarn", "5.00", "10")

	_, err := f.svc.PlaceOrder(ctx, client.ID, emp.ID, map[uuid.UUID]decimal.Decimal{
		yarn.ID:    qty(1),
		uuid.New(): qty(1),
	}, enums.OrderStatusTaken)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	assert.Zero(t, f.countOrders(t))
}

func TestPlaceOrderValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	client := f.addUser(t, f.clients, "ana")
	emp := f.addUser(t, f.employees, "dan")
	yarn := f.addProduct(t, "Red Yarn", "5.00", "10")

	_, err := f.svc.PlaceOrder(ctx, client.ID, emp.ID, nil, enums.OrderStatusTaken)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.PlaceOrder(ctx, client.ID, emp.ID, map[uuid.UUID]decimal.Decimal{yarn.ID: qty(0)}, enums.OrderStatusTaken)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.PlaceOrder(ctx, client.ID, emp.ID, map[uuid.UUID]decimal.Decimal{yarn.ID: qty(1)}, "shipped")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestPlaceOrderAcceptsPatron(t *testing.T) {
	f := newFixture(t)
	client := f.addUser(t, f.clients, "ana")
	patron := f.addUser(t, f.patrons, "boss")
	yarn := f.addProduct(t, "Red Yarn", "5.00", "10")

	order, err := f.svc.PlaceOrder(context.Background(), client.ID, patron.ID, map[uuid.UUID]decimal.Decimal{yarn.ID: qty(1)}, "")
	require.NoError(t, err)
	assert.Equal(t, patron.ID, order.EmployeeID)
	assert.Equal(t, enums.OrderStatusTaken, order.Status)
}

func TestPlaceOrderLeavesStockAndAnnouncesIt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	client := f.addUser(t, f.clients, "ana")
	emp := f.addUser(t, f.employees, "dan")
	yarn := f.addProduct(t, "Red Yarn", "5.00", "10")

	_, err := f.svc.PlaceOrder(ctx, client.ID, emp.ID, map[uuid.UUID]decimal.Decimal{yarn.ID: qty(3)}, enums.OrderStatusTaken)
	require.NoError(t, err)

	stored, err := f.products.GetByID(ctx, yarn.ID)
	require.NoError(t, err)
	assert.True(t, stored.Stock.Equal(qty(10)), "stock %s", stored.Stock)

	require.Len(t, f.pub.quantities, 1)
	assert.Equal(t, yarn.ID, f.pub.quantities[0].ProductID)
	assert.True(t, f.pub.quantities[0].NewQuantity.Equal(qty(10)))
}

func TestUpdateOrderStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	client := f.addUser(t, f.clients, "ana")
	emp := f.addUser(t, f.employees, "dan")
	yarn := f.addProduct(t, "Red Yarn", "5.00", "10")

	_, err := f.svc.UpdateOrderStatus(ctx, uuid.New(), enums.OrderStatusProcessing)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	assert.Empty(t, f.pub.statuses)

	order, err := f.svc.PlaceOrder(ctx, client.ID, emp.ID, map[uuid.UUID]decimal.Decimal{yarn.ID: qty(1)}, enums.OrderStatusCompleted)
	require.NoError(t, err)

	updated, err := f.svc.UpdateOrderStatus(ctx, order.ID, enums.OrderStatusTaken)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusTaken, updated.Status)

	stored, err := f.svc.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusTaken, stored.Status)

	require.Len(t, f.pub.statuses, 1)
	event := f.pub.statuses[0]
	assert.Equal(t, order.ID, event.OrderID)
	assert.Equal(t, client.ID, event.ClientID)
	assert.Equal(t, "ana", event.ClientName)
	assert.Equal(t, enums.OrderStatusTaken, event.NewStatus)

	_, err = f.svc.UpdateOrderStatus(ctx, order.ID, "lost")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.Len(t, f.pub.statuses, 1)
}

func TestUpdateOrderLineQuantitiesLastWriteWins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	yarn := f.addProduct(t, "Red Yarn", "5.00", "10")
	orderID := uuid.New()

	_, err := f.svc.UpdateOrderLineQuantities(ctx, orderID, map[uuid.UUID]decimal.Decimal{yarn.ID: qty(8)})
	require.NoError(t, err)
	updated, err := f.svc.UpdateOrderLineQuantities(ctx, orderID, map[uuid.UUID]decimal.Decimal{yarn.ID: qty(5)})
	require.NoError(t, err)
	require.Len(t, updated, 1)

	stored, err := f.products.GetByID(ctx, yarn.ID)
	require.NoError(t, err)
	assert.True(t, stored.Stock.Equal(qty(5)), "stock %s", stored.Stock)
	assert.Len(t, f.pub.quantities, 2)
}

func TestReturnProduct(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	client := f.addUser(t, f.clients, "ana")
	other := f.addUser(t, f.clients, "ion")
	emp := f.addUser(t, f.employees, "dan")
	yarn := f.addProduct(t, "Red Yarn", "5.00", "10")
	hook := f.addProduct(t, "Hook", "12.50", "4")

	order, err := f.svc.PlaceOrder(ctx, client.ID, emp.ID, map[uuid.UUID]decimal.Decimal{yarn.ID: qty(2), hook.ID: qty(1)}, enums.OrderStatusTaken)
	require.NoError(t, err)

	_, err = f.svc.ReturnProduct(ctx, client.ID, emp.ID, uuid.New(), yarn.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = f.svc.ReturnProduct(ctx, client.ID, emp.ID, order.ID, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = f.svc.ReturnProduct(ctx, other.ID, uuid.Nil, order.ID, yarn.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	returned, err := f.svc.ReturnProduct(ctx, client.ID, emp.ID, order.ID, yarn.ID)
	require.NoError(t, err)
	require.Len(t, returned.Lines, 1)
	assert.Equal(t, hook.ID, returned.Lines[0].ProductID)

	stored, err := f.products.GetByID(ctx, yarn.ID)
	require.NoError(t, err)
	assert.True(t, stored.Stock.Equal(qty(10)))

	_, err = f.svc.ReturnProduct(ctx, client.ID, uuid.Nil, order.ID, yarn.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestListings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ana := f.addUser(t, f.clients, "ana")
	ion := f.addUser(t, f.clients, "ion")
	dan := f.addUser(t, f.employees, "dan")
	yarn := f.addProduct(t, "Red Yarn", "5.00", "10")
	items := map[uuid.UUID]decimal.Decimal{yarn.ID: qty(1)}

	for i := 0; i < 3; i++ {
		_, err := f.svc.PlaceOrder(ctx, ana.ID, dan.ID, items, enums.OrderStatusTaken)
		require.NoError(t, err)
	}
	_, err := f.svc.PlaceOrder(ctx, ion.ID, dan.ID, items, enums.OrderStatusCompleted)
	require.NoError(t, err)

	all, err := f.svc.ListOrders(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	mine, err := f.svc.ListClientOrders(ctx, ana.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 3)

	assigned, err := f.svc.ListEmployeeOrders(ctx, dan.ID)
	require.NoError(t, err)
	assert.Len(t, assigned, 4)

	done, err := f.svc.ListOrdersByStatus(ctx, enums.OrderStatusCompleted)
	require.NoError(t, err)
	require.Len(t, done, 1)
	assert.Equal(t, ion.ID, done[0].ClientID)

	page, err := f.svc.ListEmployeeOrdersPage(ctx, dan.ID, pagination.Params{Page: 2, PageSize: 3})
	require.NoError(t, err)
	assert.Len(t, page.Items, 1)
	assert.Equal(t, int64(4), page.Total)
	assert.Equal(t, 2, page.TotalPages)
	assert.Equal(t, 2, page.Page)

	empty, err := f.svc.ListEmployeeOrdersPage(ctx, uuid.New(), pagination.Params{})
	require.NoError(t, err)
	assert.Empty(t, empty.Items)
	assert.Equal(t, pagination.DefaultPageSize, empty.PageSize)
}
