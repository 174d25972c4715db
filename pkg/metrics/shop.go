package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// ShopMetrics tracks order flow, notification fan-out and inventory health.
type ShopMetrics struct {
	ordersPlaced        *prometheus.CounterVec
	statusUpdates       *prometheus.CounterVec
	notifications       *prometheus.CounterVec
	employeeActiveOrder *prometheus.GaugeVec
	lowStockProducts    prometheus.Gauge
}

func NewShopMetrics(reg prometheus.Registerer) *ShopMetrics {
	if reg == nil {
		return &ShopMetrics{}
	}
	m := &ShopMetrics{
		ordersPlaced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mercerie_orders_placed_total",
			Help: "Orders persisted, by assignment mode.",
		}, []string{"assignment"}),
		statusUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mercerie_order_status_updates_total",
			Help: "Order status overwrites, by new status.",
		}, []string{"status"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mercerie_notifications_published_total",
			Help: "Hub publications, by channel and outcome.",
		}, []string{"channel", "outcome"}),
		employeeActiveOrder: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "mercerie_employee_active_orders",
			Help: "Orders not yet completed, per employee.",
		}, []string{"employee"}),
		lowStockProducts: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mercerie_low_stock_products",
			Help: "Products at or below the low stock threshold.",
		}),
	}
	reg.MustRegister(m.ordersPlaced, m.statusUpdates, m.notifications, m.employeeActiveOrder, m.lowStockProducts)
	return m
}

func (m *ShopMetrics) IncOrderPlaced(assignment string) {
	if m == nil || m.ordersPlaced == nil {
		return
	}
	m.ordersPlaced.WithLabelValues(jobLabel(assignment)).Inc()
}

func (m *ShopMetrics) IncStatusUpdate(status string) {
	if m == nil || m.statusUpdates == nil {
		return
	}
	m.statusUpdates.WithLabelValues(jobLabel(status)).Inc()
}

// IncNotification records one publish; outcome is "delivered", "no_subscribers" or "handler_panic".
func (m *ShopMetrics) IncNotification(channel, outcome string) {
	if m == nil || m.notifications == nil {
		return
	}
	m.notifications.WithLabelValues(jobLabel(channel), jobLabel(outcome)).Inc()
}

func (m *ShopMetrics) SetEmployeeActiveOrders(employee string, count int64) {
	if m == nil || m.employeeActiveOrder == nil {
		return
	}
	m.employeeActiveOrder.WithLabelValues(jobLabel(employee)).Set(float64(count))
}

func (m *ShopMetrics) SetLowStockProducts(count int) {
	if m == nil || m.lowStockProducts == nil {
		return
	}
	m.lowStockProducts.Set(float64(count))
}
