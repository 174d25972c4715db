package controllers

import (
	"net/http"

	"github.com/samber/lo"

	"github.com/angelmondragon/mercerie-backend/api/responses"
	"github.com/angelmondragon/mercerie-backend/internal/orders"
	"github.com/angelmondragon/mercerie-backend/internal/session"
	"github.com/angelmondragon/mercerie-backend/internal/users"
	"github.com/angelmondragon/mercerie-backend/pkg/db/models"
	"github.com/angelmondragon/mercerie-backend/pkg/logger"
)

type workloadResponse struct {
	Employee     *users.UserDTO `json:"employee"`
	ActiveOrders int64          `json:"active_orders"`
	Online       bool           `json:"online"`
}

// EmployeesOnline lists staff with a tracked employee window.
func EmployeesOnline(tracker *session.Tracker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		online := lo.Map(tracker.LoggedInEmployees(), func(u *models.User, _ int) *users.UserDTO {
			return users.FromModel(u)
		})
		responses.WriteSuccess(w, online)
	}
}

// EmployeeLeastLoaded returns the employee the next auto-assigned order goes to.
func EmployeeLeastLoaded(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		employee, err := svc.EmployeeWithLeastOrders(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, users.FromModel(employee))
	}
}

// EmployeeWorkloads reports the active order count of every employee.
func EmployeeWorkloads(svc orders.Service, tracker *session.Tracker, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		workloads, err := svc.EmployeeWorkloads(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out := lo.Map(workloads, func(wl orders.Workload, _ int) workloadResponse {
			return workloadResponse{
				Employee:     users.FromModel(&wl.Employee),
				ActiveOrders: wl.ActiveOrders,
				Online:       tracker.IsEmployeeOnline(wl.Employee.ID),
			}
		})
		responses.WriteSuccess(w, out)
	}
}
