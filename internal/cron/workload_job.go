package cron

import (
	"context"
	"fmt"

	"github.com/angelmondragon/mercerie-backend/internal/orders"
	"github.com/angelmondragon/mercerie-backend/pkg/logger"
)

const workloadSnapshotJobName = "workload-snapshot"

type workloadSource interface {
	EmployeeWorkloads(ctx context.Context) ([]orders.Workload, error)
}

// WorkloadSnapshotJob logs the active order count of every employee. The
// per-employee gauge is refreshed as a side effect of reading the workloads.
type WorkloadSnapshotJob struct {
	logg   *logger.Logger
	source workloadSource
}

func NewWorkloadSnapshotJob(logg *logger.Logger, source workloadSource) (*WorkloadSnapshotJob, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if source == nil {
		return nil, fmt.Errorf("workload source required")
	}
	return &WorkloadSnapshotJob{logg: logg, source: source}, nil
}

func (j *WorkloadSnapshotJob) Name() string { return workloadSnapshotJobName }

func (j *WorkloadSnapshotJob) Run(ctx context.Context) error {
	workloads, err := j.source.EmployeeWorkloads(ctx)
	if err != nil {
		return fmt.Errorf("load workloads: %w", err)
	}
	var total int64
	for _, w := range workloads {
		total += w.ActiveOrders
		j.logg.Info(j.logg.WithFields(ctx, map[string]any{
			"employee_id":   w.Employee.ID.String(),
			"employee":      w.Employee.Username,
			"active_orders": w.ActiveOrders,
		}), "employee workload")
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{"employees": len(workloads), "active_orders": total}), "workload snapshot")
	return nil
}
