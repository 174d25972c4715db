package notifications

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/mercerie-backend/pkg/enums"
)

// Channel names used for logs, metrics and the event stream.
const (
	ChannelProductQuantityChanged = "product_quantity_changed"
	ChannelCatalogChanged         = "catalog_changed"
	ChannelOrderStatusChanged     = "order_status_changed"
	ChannelEmployeeStatusChanged  = "employee_status_changed"
)

// ProductQuantityChanged carries the stock a product has after a write.
type ProductQuantityChanged struct {
	ProductID   uuid.UUID       `json:"product_id"`
	NewQuantity decimal.Decimal `json:"new_quantity"`
}

// CatalogChanged has no payload; consumers reload the product list.
type CatalogChanged struct{}

type OrderStatusChanged struct {
	OrderID    uuid.UUID         `json:"order_id"`
	ClientID   uuid.UUID         `json:"client_id"`
	NewStatus  enums.OrderStatus `json:"new_status"`
	ClientName string            `json:"client_name"`
}

type EmployeeStatusChanged struct {
	EmployeeID   uuid.UUID `json:"employee_id"`
	EmployeeName string    `json:"employee_name"`
	Online       bool      `json:"online"`
}
