// Package cart keeps each client's pending selection in memory until checkout.
package cart

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/mercerie-backend/pkg/db/models"
	"github.com/angelmondragon/mercerie-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/mercerie-backend/pkg/errors"
	"github.com/angelmondragon/mercerie-backend/pkg/logger"
)

// Item is one product line in a cart. UnitPrice reflects the catalog when the
// item was last touched; the order snapshots its own price at checkout.
type Item struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  decimal.Decimal `json:"quantity"`
}

func (i Item) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(i.Quantity)
}

// Cart is a read-only view of a client's cart.
type Cart struct {
	ClientID   uuid.UUID       `json:"client_id"`
	Items      []Item          `json:"items"`
	TotalItems decimal.Decimal `json:"total_items"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

// Service manages carts. State is process-local and lost on restart.
type Service interface {
	Add(ctx context.Context, clientID, productID uuid.UUID, quantity decimal.Decimal) (*Cart, error)
	UpdateQuantity(ctx context.Context, clientID, productID uuid.UUID, quantity decimal.Decimal) (*Cart, error)
	Remove(ctx context.Context, clientID, productID uuid.UUID) (*Cart, error)
	Clear(ctx context.Context, clientID uuid.UUID)
	Get(ctx context.Context, clientID uuid.UUID) *Cart
	Checkout(ctx context.Context, clientID uuid.UUID) (*models.Order, error)
}

type productLookup interface {
	GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

type orderPlacer interface {
	PlaceOrderAutoAssign(ctx context.Context, clientID uuid.UUID, quantities map[uuid.UUID]decimal.Decimal, status enums.OrderStatus) (*models.Order, error)
}

type service struct {
	products productLookup
	orders   orderPlacer
	logg     *logger.Logger

	mu    sync.Mutex
	carts map[uuid.UUID][]Item
}

// NewService constructs the cart service.
func NewService(products productLookup, orders orderPlacer, logg *logger.Logger) (Service, error) {
	if products == nil {
		return nil, fmt.Errorf("product lookup required")
	}
	if orders == nil {
		return nil, fmt.Errorf("order placer required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		products: products,
		orders:   orders,
		logg:     logg,
		carts:    make(map[uuid.UUID][]Item),
	}, nil
}

// Add increases the quantity of productID. The cumulative quantity may not
// exceed the product stock.
func (s *service) Add(ctx context.Context, clientID, productID uuid.UUID, quantity decimal.Decimal) (*Cart, error) {
	if !quantity.IsPositive() {
		return nil, quantityError("must be > 0")
	}
	product, err := s.products.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.carts[clientID]
	_, idx, found := lo.FindIndexOf(items, func(i Item) bool { return i.ProductID == productID })
	wanted := quantity
	if found {
		wanted = items[idx].Quantity.Add(quantity)
	}
	if wanted.GreaterThan(product.Stock) {
		return nil, stockError(product)
	}

	item := Item{ProductID: product.ID, Name: product.Name, UnitPrice: product.Price, Quantity: wanted}
	if found {
		items[idx] = item
	} else {
		items = append(items, item)
	}
	s.carts[clientID] = items
	return s.view(clientID), nil
}

// UpdateQuantity sets the quantity of an item already in the cart. A value
// of zero or less removes the item.
func (s *service) UpdateQuantity(ctx context.Context, clientID, productID uuid.UUID, quantity decimal.Decimal) (*Cart, error) {
	if !quantity.IsPositive() {
		return s.Remove(ctx, clientID, productID)
	}
	product, err := s.products.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	if quantity.GreaterThan(product.Stock) {
		return nil, stockError(product)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.carts[clientID]
	_, idx, found := lo.FindIndexOf(items, func(i Item) bool { return i.ProductID == productID })
	if !found {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not in cart")
	}
	items[idx] = Item{ProductID: product.ID, Name: product.Name, UnitPrice: product.Price, Quantity: quantity}
	return s.view(clientID), nil
}

func (s *service) Remove(_ context.Context, clientID, productID uuid.UUID) (*Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := s.carts[clientID]
	kept := lo.Reject(items, func(i Item, _ int) bool { return i.ProductID == productID })
	if len(kept) == len(items) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not in cart")
	}
	if len(kept) == 0 {
		delete(s.carts, clientID)
	} else {
		s.carts[clientID] = kept
	}
	return s.view(clientID), nil
}

func (s *service) Clear(_ context.Context, clientID uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, clientID)
}

func (s *service) Get(_ context.Context, clientID uuid.UUID) *Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view(clientID)
}

// Checkout places the cart as one auto-assigned order in status preluat and
// empties the cart once the order exists.
func (s *service) Checkout(ctx context.Context, clientID uuid.UUID) (*models.Order, error) {
	s.mu.Lock()
	items := append([]Item(nil), s.carts[clientID]...)
	s.mu.Unlock()

	if len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	quantities := lo.SliceToMap(items, func(i Item) (uuid.UUID, decimal.Decimal) { return i.ProductID, i.Quantity })
	order, err := s.orders.PlaceOrderAutoAssign(ctx, clientID, quantities, enums.OrderStatusTaken)
	if err != nil {
		return nil, err
	}

	s.Clear(ctx, clientID)
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{"client_id": clientID.String(), "order_id": order.ID.String()}), "cart checked out")
	return order, nil
}

// view must be called with mu held.
func (s *service) view(clientID uuid.UUID) *Cart {
	items := append([]Item{}, s.carts[clientID]...)
	return &Cart{
		ClientID:   clientID,
		Items:      items,
		TotalItems: lo.Reduce(items, func(acc decimal.Decimal, i Item, _ int) decimal.Decimal { return acc.Add(i.Quantity) }, decimal.Zero),
		TotalPrice: lo.Reduce(items, func(acc decimal.Decimal, i Item, _ int) decimal.Decimal { return acc.Add(i.Subtotal()) }, decimal.Zero),
	}
}

func quantityError(reason string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, "invalid quantity").
		WithDetails(map[string]string{"quantity": reason})
}

func stockError(p *models.Product) error {
	return pkgerrors.Newf(pkgerrors.CodeValidation, "only %s of %s in stock", p.Stock.String(), p.Name).
		WithDetails(map[string]string{"quantity": "exceeds stock"})
}
