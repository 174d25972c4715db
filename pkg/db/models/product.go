package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/mercerie-backend/pkg/enums"
)

// Product is a catalog entry. Stock may be fractional (yarn sold by weight).
type Product struct {
	ID        uuid.UUID             `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Name      string                `gorm:"column:name;not null;index" json:"name"`
	Category  enums.ProductCategory `gorm:"column:category;type:text;not null;index" json:"category"`
	Price     decimal.Decimal       `gorm:"column:price;type:numeric(12,2);not null" json:"price"`
	Stock     decimal.Decimal       `gorm:"column:stock;type:numeric(12,3);not null" json:"stock"`
	CreatedAt time.Time             `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time             `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (Product) TableName() string { return "products" }

func (p *Product) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
