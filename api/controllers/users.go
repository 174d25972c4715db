package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/mercerie-backend/api/responses"
	"github.com/angelmondragon/mercerie-backend/api/validators"
	"github.com/angelmondragon/mercerie-backend/internal/users"
	"github.com/angelmondragon/mercerie-backend/pkg/db/models"
	"github.com/angelmondragon/mercerie-backend/pkg/logger"
)

// userRequest is shared by client and employee endpoints. Salary is ignored
// for clients and password may be empty on update.
type userRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Username string `json:"username" validate:"required"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
	Salary   int    `json:"salary" validate:"gte=0"`
}

func (r userRequest) toInput() users.Input {
	return users.Input{
		Name:     r.Name,
		Email:    r.Email,
		Username: r.Username,
		Password: r.Password,
		Phone:    r.Phone,
		Salary:   r.Salary,
	}
}

type (
	listUsersFunc  func(ctx context.Context) ([]models.User, error)
	addUserFunc    func(ctx context.Context, input users.Input) (*models.User, error)
	updateUserFunc func(ctx context.Context, id uuid.UUID, input users.Input) (*models.User, error)
	deleteUserFunc func(ctx context.Context, id uuid.UUID) (bool, error)
)

func EmployeeList(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return listUsers(svc.ListEmployees, logg)
}

func EmployeeCreate(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return addUser(svc.AddEmployee, logg)
}

func EmployeeUpdate(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return updateUser(svc.UpdateEmployee, "employeeId", logg)
}

func EmployeeDelete(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return deleteUser(svc.DeleteEmployee, "employeeId", logg)
}

func ClientList(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return listUsers(svc.ListClients, logg)
}

func ClientCreate(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return addUser(svc.AddClient, logg)
}

func ClientUpdate(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return updateUser(svc.UpdateClient, "clientId", logg)
}

func ClientDelete(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return deleteUser(svc.DeleteClient, "clientId", logg)
}

func listUsers(fn listUsersFunc, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := fn(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, users.FromModels(list))
	}
}

func addUser(fn addUserFunc, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body userRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		user, err := fn(r.Context(), body.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, users.FromModel(user))
	}
}

func updateUser(fn updateUserFunc, param string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.PathUUID(r, param)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body userRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		user, err := fn(r.Context(), id, body.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, users.FromModel(user))
	}
}

func deleteUser(fn deleteUserFunc, param string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.PathUUID(r, param)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		deleted, err := fn(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"deleted": deleted})
	}
}
