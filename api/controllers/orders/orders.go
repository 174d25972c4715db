package orders

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/mercerie-backend/api/middleware"
	"github.com/angelmondragon/mercerie-backend/api/responses"
	"github.com/angelmondragon/mercerie-backend/api/validators"
	"github.com/angelmondragon/mercerie-backend/internal/orders"
	"github.com/angelmondragon/mercerie-backend/pkg/db/models"
	"github.com/angelmondragon/mercerie-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/mercerie-backend/pkg/errors"
	"github.com/angelmondragon/mercerie-backend/pkg/logger"
	"github.com/angelmondragon/mercerie-backend/pkg/pagination"
)

type lineRequest struct {
	ProductID uuid.UUID       `json:"product_id" validate:"required"`
	Quantity  decimal.Decimal `json:"quantity"`
}

type placeOrderRequest struct {
	// EmployeeID is optional; when omitted the least loaded employee is assigned.
	EmployeeID *uuid.UUID    `json:"employee_id,omitempty"`
	Status     string        `json:"status,omitempty"`
	Lines      []lineRequest `json:"lines" validate:"required,min=1,dive"`
}

type statusRequest struct {
	Status string `json:"status" validate:"required"`
}

type quantitiesRequest struct {
	Lines []lineRequest `json:"lines" validate:"required,min=1,dive"`
}

type returnRequest struct {
	ProductID  uuid.UUID  `json:"product_id" validate:"required"`
	EmployeeID *uuid.UUID `json:"employee_id,omitempty"`
}

// quantityMap folds the request lines into product quantities. A product
// listed twice is rejected rather than summed.
func quantityMap(lines []lineRequest) (map[uuid.UUID]decimal.Decimal, error) {
	dupes := lo.FindDuplicatesBy(lines, func(l lineRequest) uuid.UUID { return l.ProductID })
	if len(dupes) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "duplicate product in lines").
			WithDetails(map[string]any{"product_id": dupes[0].ProductID.String()})
	}
	return lo.SliceToMap(lines, func(l lineRequest) (uuid.UUID, decimal.Decimal) {
		return l.ProductID, l.Quantity
	}), nil
}

func parseStatus(raw string) (enums.OrderStatus, error) {
	if strings.TrimSpace(raw) == "" {
		return "", nil
	}
	status, err := enums.ParseOrderStatus(raw)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status")
	}
	return status, nil
}

// Place creates an order for the calling client, either for the requested
// employee or auto-assigned to the least loaded one.
func Place(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clientID := middleware.UserUUIDFromContext(r.Context())
		if clientID == uuid.Nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
			return
		}

		var body placeOrderRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		quantities, err := quantityMap(body.Lines)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := parseStatus(body.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var order *models.Order
		if body.EmployeeID != nil && *body.EmployeeID != uuid.Nil {
			order, err = svc.PlaceOrder(r.Context(), clientID, *body.EmployeeID, quantities, status)
		} else {
			order, err = svc.PlaceOrderAutoAssign(r.Context(), clientID, quantities, status)
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

// Return removes one product line from the caller's order.
func Return(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		clientID := middleware.UserUUIDFromContext(r.Context())
		orderID, err := validators.PathUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body returnRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		employeeID := uuid.Nil
		if body.EmployeeID != nil {
			employeeID = *body.EmployeeID
		}
		order, err := svc.ReturnProduct(r.Context(), clientID, employeeID, orderID, body.ProductID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// UpdateStatus overwrites an order's status and notifies its client.
func UpdateStatus(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.PathUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body statusRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := parseStatus(body.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.UpdateOrderStatus(r.Context(), orderID, status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// UpdateQuantities overwrites product stock with the submitted values.
func UpdateQuantities(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.PathUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body quantitiesRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		quantities, err := quantityMap(body.Lines)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		products, err := svc.UpdateOrderLineQuantities(r.Context(), orderID, quantities)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, products)
	}
}

// List returns every order, or only those with ?status=.
func List(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, err := parseStatus(r.URL.Query().Get("status"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var list []models.Order
		if status != "" {
			list, err = svc.ListOrdersByStatus(r.Context(), status)
		} else {
			list, err = svc.ListOrders(r.Context())
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// Detail returns one order. Clients only see their own orders.
func Detail(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID, err := validators.PathUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.GetOrder(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if middleware.RoleFromContext(r.Context()) == enums.UserRoleClient &&
			order.ClientID != middleware.UserUUIDFromContext(r.Context()) {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "order not found"))
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// MyOrders lists the calling client's orders.
func MyOrders(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := svc.ListClientOrders(r.Context(), middleware.UserUUIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// AssignedOrders pages through the orders assigned to the calling staff member.
func AssignedOrders(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := validators.ParseQueryInt(r, "page", 1, 1, 1_000_000)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		size, err := validators.ParseQueryInt(r, "page_size", pagination.DefaultPageSize, 1, pagination.MaxPageSize)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.ListEmployeeOrdersPage(r.Context(), middleware.UserUUIDFromContext(r.Context()), pagination.Params{Page: page, PageSize: size})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
