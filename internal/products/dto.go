package products

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/mercerie-backend/pkg/enums"
)

// Input carries every editable product field.
type Input struct {
	Name     string
	Category enums.ProductCategory
	Price    decimal.Decimal
	Stock    decimal.Decimal
}

// SearchFilters narrows ListProducts by exact match; empty fields are ignored.
type SearchFilters struct {
	Name     string
	Category enums.ProductCategory
}
