package cart

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/mercerie-backend/pkg/db/models"
	"github.com/angelmondragon/mercerie-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/mercerie-backend/pkg/errors"
	"github.com/angelmondragon/mercerie-backend/pkg/logger"
)

type stubProducts map[uuid.UUID]*models.Product

func (s stubProducts) GetProduct(_ context.Context, id uuid.UUID) (*models.Product, error) {
	if p, ok := s[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
}

type stubOrders struct {
	err        error
	clientID   uuid.UUID
	quantities map[uuid.UUID]decimal.Decimal
	status     enums.OrderStatus
}

func (s *stubOrders) PlaceOrderAutoAssign(_ context.Context, clientID uuid.UUID, q map[uuid.UUID]decimal.Decimal, status enums.OrderStatus) (*models.Order, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.clientID, s.quantities, s.status = clientID, q, status
	return &models.Order{ID: uuid.New(), ClientID: clientID, Status: status}, nil
}

func d(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func setup(t *testing.T) (Service, *stubOrders, *models.Product, *models.Product) {
	t.Helper()
	yarn := &models.Product{ID: uuid.New(), Name: "Red Yarn", Price: d("5.00"), Stock: d("10")}
	hook := &models.Product{ID: uuid.New(), Name: "Hook", Price: d("12.50"), Stock: d("2")}
	orders := &stubOrders{}
	svc, err := NewService(stubProducts{yarn.ID: yarn, hook.ID: hook}, orders, logger.Nop())
	require.NoError(t, err)
	return svc, orders, yarn, hook
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(nil, nil, nil)
	require.Error(t, err)
}

func TestAddAccumulatesAndTotals(t *testing.T) {
	svc, _, yarn, hook := setup(t)
	ctx := context.Background()
	client := uuid.New()

	_, err := svc.Add(ctx, client, yarn.ID, d("2"))
	require.NoError(t, err)
	_, err = svc.Add(ctx, client, yarn.ID, d("3"))
	require.NoError(t, err)
	c, err := svc.Add(ctx, client, hook.ID, d("1"))
	require.NoError(t, err)

	require.Len(t, c.Items, 2)
	assert.Equal(t, yarn.ID, c.Items[0].ProductID)
	assert.True(t, c.Items[0].Quantity.Equal(d("5")))
	assert.True(t, c.TotalItems.Equal(d("6")))
	assert.True(t, c.TotalPrice.Equal(d("37.50")), "total %s", c.TotalPrice)
}

func TestAddCappedByStock(t *testing.T) {
	svc, _, _, hook := setup(t)
	ctx := context.Background()
	client := uuid.New()

	_, err := svc.Add(ctx, client, hook.ID, d("2"))
	require.NoError(t, err)
	_, err = svc.Add(ctx, client, hook.ID, d("1"))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	c := svc.Get(ctx, client)
	assert.True(t, c.Items[0].Quantity.Equal(d("2")))
}

func TestAddRejectsBadInput(t *testing.T) {
	svc, _, yarn, _ := setup(t)
	ctx := context.Background()

	_, err := svc.Add(ctx, uuid.New(), yarn.ID, d("0"))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.Add(ctx, uuid.New(), uuid.New(), d("1"))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestUpdateQuantity(t *testing.T) {
	svc, _, yarn, _ := setup(t)
	ctx := context.Background()
	client := uuid.New()

	_, err := svc.Add(ctx, client, yarn.ID, d("1"))
	require.NoError(t, err)

	c, err := svc.UpdateQuantity(ctx, client, yarn.ID, d("7"))
	require.NoError(t, err)
	assert.True(t, c.Items[0].Quantity.Equal(d("7")))

	_, err = svc.UpdateQuantity(ctx, client, yarn.ID, d("11"))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	c, err = svc.UpdateQuantity(ctx, client, yarn.ID, d("0"))
	require.NoError(t, err)
	assert.Empty(t, c.Items)

	_, err = svc.UpdateQuantity(ctx, client, yarn.ID, d("1"))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestRemoveAndClear(t *testing.T) {
	svc, _, yarn, hook := setup(t)
	ctx := context.Background()
	client := uuid.New()

	_, err := svc.Add(ctx, client, yarn.ID, d("1"))
	require.NoError(t, err)
	_, err = svc.Add(ctx, client, hook.ID, d("1"))
	require.NoError(t, err)

	c, err := svc.Remove(ctx, client, yarn.ID)
	require.NoError(t, err)
	require.Len(t, c.Items, 1)

	_, err = svc.Remove(ctx, client, yarn.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	svc.Clear(ctx, client)
	assert.Empty(t, svc.Get(ctx, client).Items)
	assert.True(t, svc.Get(ctx, client).TotalPrice.IsZero())
}

func TestCartsAreIsolatedPerClient(t *testing.T) {
	svc, _, yarn, _ := setup(t)
	ctx := context.Background()

	_, err := svc.Add(ctx, uuid.New(), yarn.ID, d("1"))
	require.NoError(t, err)
	assert.Empty(t, svc.Get(ctx, uuid.New()).Items)
}

func TestCheckout(t *testing.T) {
	svc, orders, yarn, hook := setup(t)
	ctx := context.Background()
	client := uuid.New()

	_, err := svc.Checkout(ctx, client)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = svc.Add(ctx, client, yarn.ID, d("3"))
	require.NoError(t, err)
	_, err = svc.Add(ctx, client, hook.ID, d("1"))
	require.NoError(t, err)

	order, err := svc.Checkout(ctx, client)
	require.NoError(t, err)
	assert.Equal(t, client, order.ClientID)
	assert.Equal(t, enums.OrderStatusTaken, orders.status)
	require.Len(t, orders.quantities, 2)
	assert.True(t, orders.quantities[yarn.ID].Equal(d("3")))
	assert.Empty(t, svc.Get(ctx, client).Items)
}

func TestCheckoutFailureKeepsCart(t *testing.T) {
	svc, orders, yarn, _ := setup(t)
	ctx := context.Background()
	client := uuid.New()
	orders.err = pkgerrors.New(pkgerrors.CodeNotFound, "no employee available")

	_, err := svc.Add(ctx, client, yarn.ID, d("1"))
	require.NoError(t, err)

	_, err = svc.Checkout(ctx, client)
	require.Error(t, err)
	assert.True(t, errors.Is(err, orders.err))
	assert.Len(t, svc.Get(ctx, client).Items, 1)
}
