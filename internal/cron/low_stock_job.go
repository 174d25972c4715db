package cron

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/mercerie-backend/pkg/db/models"
	"github.com/angelmondragon/mercerie-backend/pkg/logger"
	"github.com/angelmondragon/mercerie-backend/pkg/metrics"
)

const lowStockReportJobName = "low-stock-report"

type lowStockSource interface {
	FindStockAtOrBelow(ctx context.Context, threshold decimal.Decimal) ([]models.Product, error)
}

// LowStockReportJob warns about every product at or below the threshold.
type LowStockReportJob struct {
	logg      *logger.Logger
	source    lowStockSource
	metrics   *metrics.ShopMetrics
	threshold decimal.Decimal
}

// NewLowStockReportJob parses threshold as a decimal; it must not be negative.
func NewLowStockReportJob(logg *logger.Logger, source lowStockSource, m *metrics.ShopMetrics, threshold string) (*LowStockReportJob, error) {
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	if source == nil {
		return nil, fmt.Errorf("product source required")
	}
	value, err := decimal.NewFromString(threshold)
	if err != nil {
		return nil, fmt.Errorf("parse low stock threshold %q: %w", threshold, err)
	}
	if value.IsNegative() {
		return nil, fmt.Errorf("low stock threshold must be >= 0")
	}
	return &LowStockReportJob{logg: logg, source: source, metrics: m, threshold: value}, nil
}

func (j *LowStockReportJob) Name() string { return lowStockReportJobName }

func (j *LowStockReportJob) Run(ctx context.Context) error {
	products, err := j.source.FindStockAtOrBelow(ctx, j.threshold)
	if err != nil {
		return fmt.Errorf("load low stock products: %w", err)
	}
	j.metrics.SetLowStockProducts(len(products))
	for _, p := range products {
		j.logg.Warn(j.logg.WithFields(ctx, map[string]any{
			"product_id": p.ID.String(),
			"product":    p.Name,
			"stock":      p.Stock.String(),
			"threshold":  j.threshold.String(),
		}), "product low on stock")
	}
	return nil
}
