package notifications

import (
	"context"
	"fmt"
	"sync"

	"github.com/angelmondragon/mercerie-backend/pkg/logger"
	"github.com/angelmondragon/mercerie-backend/pkg/metrics"
)

const (
	outcomeDelivered     = "delivered"
	outcomeNoSubscribers = "no_subscribers"
	outcomeHandlerPanic  = "handler_panic"
)

// Publisher is the write side of the hub used by services.
type Publisher interface {
	PublishProductQuantityChanged(ctx context.Context, event ProductQuantityChanged)
	PublishCatalogChanged(ctx context.Context)
	PublishOrderStatusChanged(ctx context.Context, event OrderStatusChanged)
	PublishEmployeeStatusChanged(ctx context.Context, event EmployeeStatusChanged)
}

// Hub fans events out to in-process subscribers. Delivery is synchronous,
// in registration order and best effort: nothing is persisted or replayed.
type Hub struct {
	logg    *logger.Logger
	metrics *metrics.ShopMetrics

	productQuantity *channel[ProductQuantityChanged]
	catalog         *channel[CatalogChanged]
	orderStatus     *channel[OrderStatusChanged]
	employeeStatus  *channel[EmployeeStatusChanged]
}

// NewHub constructs an empty hub. Both arguments may be nil.
func NewHub(logg *logger.Logger, m *metrics.ShopMetrics) *Hub {
	if logg == nil {
		logg = logger.Nop()
	}
	return &Hub{
		logg:            logg,
		metrics:         m,
		productQuantity: &channel[ProductQuantityChanged]{name: ChannelProductQuantityChanged},
		catalog:         &channel[CatalogChanged]{name: ChannelCatalogChanged},
		orderStatus:     &channel[OrderStatusChanged]{name: ChannelOrderStatusChanged},
		employeeStatus:  &channel[EmployeeStatusChanged]{name: ChannelEmployeeStatusChanged},
	}
}

func (h *Hub) SubscribeProductQuantityChanged(handler func(ProductQuantityChanged)) (unsubscribe func()) {
	return h.productQuantity.subscribe(handler)
}

func (h *Hub) SubscribeCatalogChanged(handler func(CatalogChanged)) (unsubscribe func()) {
	return h.catalog.subscribe(handler)
}

func (h *Hub) SubscribeOrderStatusChanged(handler func(OrderStatusChanged)) (unsubscribe func()) {
	return h.orderStatus.subscribe(handler)
}

func (h *Hub) SubscribeEmployeeStatusChanged(handler func(EmployeeStatusChanged)) (unsubscribe func()) {
	return h.employeeStatus.subscribe(handler)
}

func (h *Hub) PublishProductQuantityChanged(ctx context.Context, event ProductQuantityChanged) {
	publish(ctx, h, h.productQuantity, event)
}

func (h *Hub) PublishCatalogChanged(ctx context.Context) {
	publish(ctx, h, h.catalog, CatalogChanged{})
}

func (h *Hub) PublishOrderStatusChanged(ctx context.Context, event OrderStatusChanged) {
	publish(ctx, h, h.orderStatus, event)
}

func (h *Hub) PublishEmployeeStatusChanged(ctx context.Context, event EmployeeStatusChanged) {
	publish(ctx, h, h.employeeStatus, event)
}

// SubscriberCount reports how many handlers are registered on the named channel.
func (h *Hub) SubscriberCount(name string) int {
	switch name {
	case ChannelProductQuantityChanged:
		return h.productQuantity.count()
	case ChannelCatalogChanged:
		return h.catalog.count()
	case ChannelOrderStatusChanged:
		return h.orderStatus.count()
	case ChannelEmployeeStatusChanged:
		return h.employeeStatus.count()
	default:
		return 0
	}
}

type subscription[T any] struct {
	id      uint64
	handler func(T)
}

type channel[T any] struct {
	name   string
	mu     sync.Mutex
	nextID uint64
	subs   []subscription[T]
}

func (c *channel[T]) subscribe(handler func(T)) func() {
	if handler == nil {
		return func() {}
	}
	c.mu.Lock()
	c.nextID++
	id := c.nextID
	c.subs = append(c.subs, subscription[T]{id: id, handler: handler})
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { c.remove(id) })
	}
}

func (c *channel[T]) remove(id uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, sub := range c.subs {
		if sub.id == id {
			c.subs = append(c.subs[:i:i], c.subs[i+1:]...)
			return
		}
	}
}

func (c *channel[T]) snapshot() []subscription[T] {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]subscription[T], len(c.subs))
	copy(out, c.subs)
	return out
}

func (c *channel[T]) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subs)
}

func publish[T any](ctx context.Context, h *Hub, c *channel[T], event T) {
	subs := c.snapshot()
	if len(subs) == 0 {
		h.logg.Warn(h.logg.WithField(ctx, "channel", c.name), "notification published without subscribers")
		h.metrics.IncNotification(c.name, outcomeNoSubscribers)
		return
	}
	for _, sub := range subs {
		if deliver(ctx, h, c.name, sub.handler, event) {
			h.metrics.IncNotification(c.name, outcomeDelivered)
		} else {
			h.metrics.IncNotification(c.name, outcomeHandlerPanic)
		}
	}
}

func deliver[T any](ctx context.Context, h *Hub, name string, handler func(T), event T) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			h.logg.Error(h.logg.WithField(ctx, "channel", name), "notification handler panicked", fmt.Errorf("%v", r))
		}
	}()
	handler(event)
	return true
}
