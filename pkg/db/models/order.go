package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/mercerie-backend/pkg/enums"
)

// Order is placed by a client and handled by exactly one employee.
type Order struct {
	ID         uuid.UUID         `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	ClientID   uuid.UUID         `gorm:"column:client_id;type:uuid;not null;index" json:"client_id"`
	EmployeeID uuid.UUID         `gorm:"column:employee_id;type:uuid;not null;index" json:"employee_id"`
	Status     enums.OrderStatus `gorm:"column:status;type:text;not null;index" json:"status"`
	Client     *User             `gorm:"foreignKey:ClientID;constraint:OnDelete:RESTRICT" json:"client,omitempty"`
	Employee   *User             `gorm:"foreignKey:EmployeeID;constraint:OnDelete:RESTRICT" json:"employee,omitempty"`
	Lines      []OrderLine       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"lines"`
	CreatedAt  time.Time         `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time         `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Order) TableName() string { return "orders" }

func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// Total sums quantity times the snapshotted unit price of every line.
func (o *Order) Total() decimal.Decimal {
	total := decimal.Zero
	if o == nil {
		return total
	}
	for _, line := range o.Lines {
		total = total.Add(line.Subtotal())
	}
	return total
}

// OrderLine links an order to a product. UnitPrice is the product price at
// the moment the order was placed and is never updated afterwards.
type OrderLine struct {
	OrderID   uuid.UUID       `gorm:"column:order_id;type:uuid;primaryKey" json:"order_id"`
	ProductID uuid.UUID       `gorm:"column:product_id;type:uuid;primaryKey" json:"product_id"`
	Quantity  decimal.Decimal `gorm:"column:quantity;type:numeric(12,3);not null" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null" json:"unit_price"`
	Product   *Product        `gorm:"foreignKey:ProductID;constraint:OnDelete:RESTRICT" json:"product,omitempty"`
}

func (OrderLine) TableName() string { return "order_lines" }

func (l OrderLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(l.Quantity)
}
