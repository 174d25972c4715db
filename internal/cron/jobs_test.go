package cron

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/mercerie-backend/internal/orders"
	"github.com/angelmondragon/mercerie-backend/pkg/db/models"
	"github.com/angelmondragon/mercerie-backend/pkg/logger"
	"github.com/angelmondragon/mercerie-backend/pkg/metrics"
)

type stubWorkloads struct {
	list []orders.Workload
	err  error
}

func (s stubWorkloads) EmployeeWorkloads(context.Context) ([]orders.Workload, error) {
	return s.list, s.err
}

type stubLowStock struct {
	threshold decimal.Decimal
	list      []models.Product
	err       error
}

func (s *stubLowStock) FindStockAtOrBelow(_ context.Context, threshold decimal.Decimal) ([]models.Product, error) {
	s.threshold = threshold
	return s.list, s.err
}

func TestWorkloadSnapshotJob(t *testing.T) {
	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "cron-test", Level: zerolog.InfoLevel, Output: &buf})
	job, err := NewWorkloadSnapshotJob(logg, stubWorkloads{list: []orders.Workload{
		{Employee: models.User{ID: uuid.New(), Username: "dan"}, ActiveOrders: 2},
		{Employee: models.User{ID: uuid.New(), Username: "ion"}, ActiveOrders: 1},
	}})
	require.NoError(t, err)
	assert.Equal(t, "workload-snapshot", job.Name())

	require.NoError(t, job.Run(context.Background()))
	assert.Contains(t, buf.String(), "workload snapshot")
	assert.Contains(t, buf.String(), "dan")
}

func TestWorkloadSnapshotJobPropagatesError(t *testing.T) {
	boom := errors.New("boom")
	job, err := NewWorkloadSnapshotJob(logger.Nop(), stubWorkloads{err: boom})
	require.NoError(t, err)
	assert.ErrorIs(t, job.Run(context.Background()), boom)
}

func TestLowStockReportJob(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewShopMetrics(reg)
	source := &stubLowStock{list: []models.Product{
		{ID: uuid.New(), Name: "Red Yarn", Stock: decimal.NewFromInt(1)},
		{ID: uuid.New(), Name: "Hook", Stock: decimal.Zero},
	}}
	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "cron-test", Level: zerolog.WarnLevel, Output: &buf})

	job, err := NewLowStockReportJob(logg, source, m, "2.5")
	require.NoError(t, err)
	require.NoError(t, job.Run(context.Background()))

	assert.True(t, source.threshold.Equal(decimal.RequireFromString("2.5")))
	assert.Equal(t, float64(2), gaugeValue(t, reg, "mercerie_low_stock_products"))
	assert.Contains(t, buf.String(), "Red Yarn")
}

func TestLowStockReportJobRejectsBadThreshold(t *testing.T) {
	_, err := NewLowStockReportJob(logger.Nop(), &stubLowStock{}, nil, "many")
	require.Error(t, err)
	_, err = NewLowStockReportJob(logger.Nop(), &stubLowStock{}, nil, "-1")
	require.Error(t, err)
}

func gaugeValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() == name {
			return f.GetMetric()[0].GetGauge().GetValue()
		}
	}
	t.Fatalf("metric %s not registered", name)
	return 0
}
