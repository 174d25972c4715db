package orders

import (
	"context"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/angelmondragon/mercerie-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/mercerie-backend/pkg/errors"
)

// AssignmentLockKey serializes the read-least-loaded then create-order sequence.
const AssignmentLockKey = "orders:assignment"

// Workload is the number of orders an employee has not completed yet.
type Workload struct {
	Employee     models.User `json:"employee"`
	ActiveOrders int64       `json:"active_orders"`
}

// EmployeeWorkloads lists every regular employee, patron excluded, with its
// active order count, in the directory order.
func (s *service) EmployeeWorkloads(ctx context.Context) ([]Workload, error) {
	employees, err := s.employees.ListByRole(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list employees")
	}
	employees = lo.Filter(employees, func(u models.User, _ int) bool { return !u.IsPatron() })
	if len(employees) == 0 {
		return []Workload{}, nil
	}

	ids := lo.Map(employees, func(u models.User, _ int) uuid.UUID { return u.ID })
	counts, err := s.repo.CountActiveByEmployees(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count active orders")
	}

	out := make([]Workload, 0, len(employees))
	for _, e := range employees {
		out = append(out, Workload{Employee: e, ActiveOrders: counts[e.ID]})
		s.metrics.SetEmployeeActiveOrders(e.Username, counts[e.ID])
	}
	return out, nil
}

// EmployeeWithLeastOrders returns the first employee holding the fewest
// active orders. Ties go to the earliest registered employee.
func (s *service) EmployeeWithLeastOrders(ctx context.Context) (*models.User, error) {
	workloads, err := s.EmployeeWorkloads(ctx)
	if err != nil {
		return nil, err
	}
	if len(workloads) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no employee available")
	}

	best := workloads[0]
	for _, w := range workloads[1:] {
		if w.ActiveOrders < best.ActiveOrders {
			best = w
		}
	}
	employee := best.Employee
	return &employee, nil
}
