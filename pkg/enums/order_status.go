package enums

import (
	"fmt"
	"strings"
)

// OrderStatus tracks fulfillment. Transitions are caller-directed.
type OrderStatus string

const (
	OrderStatusTaken      OrderStatus = "preluat"
	OrderStatusProcessing OrderStatus = "procesat"
	OrderStatusCompleted  OrderStatus = "finalizat"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusTaken,
	OrderStatusProcessing,
	OrderStatusCompleted,
}

// String implements fmt.Stringer.
func (s OrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OrderStatus.
func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsActive reports whether the order still counts toward an employee's workload.
func (s OrderStatus) IsActive() bool {
	return s != OrderStatusCompleted
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validOrderStatuses {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
