package metrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func TestCronJobMetricsRecordsResults(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewCronJobMetrics(reg)
	job := "workload-snapshot"
	metrics.Record(job, 250*time.Millisecond, nil)
	metrics.Record(job, 100*time.Millisecond, nil)
	metrics.Record(job, 50*time.Millisecond, errors.New("db down"))
	metrics.Record("", time.Millisecond, nil)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	checks := []struct {
		job, result string
		want        float64
	}{
		{job, "success", 2},
		{job, "failure", 1},
		{"unknown", "success", 1},
	}
	for _, c := range checks {
		got, err := fetchRunCount(mfs, c.job, c.result)
		if err != nil {
			t.Fatalf("fetch %s/%s: %v", c.job, c.result, err)
		}
		if got != c.want {
			t.Fatalf("expected %s/%s=%v, got %v", c.job, c.result, c.want, got)
		}
	}

	if got, err := fetchHistogramSum(mfs, "mercerie_cron_job_duration_seconds", "job", job); err != nil {
		t.Fatalf("fetch duration: %v", err)
	} else if got < 0.39 {
		t.Fatalf("expected duration sum of about 0.4s, got %f", got)
	}
}

func TestCronJobMetricsNilRegisterer(t *testing.T) {
	NewCronJobMetrics(nil).Record("sweep", time.Second, nil)
	var m *CronJobMetrics
	m.Record("sweep", time.Second, errors.New("boom"))
}

func fetchRunCount(mfs []*dto.MetricFamily, job, result string) (float64, error) {
	mf := findMetricFamily(mfs, "mercerie_cron_job_runs_total")
	if mf == nil {
		return 0, fmt.Errorf("runs counter not found")
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), "job", job) && matchesLabel(metric.GetLabel(), "result", result) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("no runs for job=%s result=%s", job, result)
}

func fetchCounterValue(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetCounter().GetValue(), nil
		}
	}
	return 0, fmt.Errorf("metric %q missing label %s=%s", name, label, value)
}

func fetchHistogramSum(mfs []*dto.MetricFamily, name, label, value string) (float64, error) {
	mf := findMetricFamily(mfs, name)
	if mf == nil {
		return 0, fmt.Errorf("metric %q not found", name)
	}
	for _, metric := range mf.GetMetric() {
		if matchesLabel(metric.GetLabel(), label, value) {
			return metric.GetHistogram().GetSampleSum(), nil
		}
	}
	return 0, fmt.Errorf("histogram %q missing label %s=%s", name, label, value)
}

func findMetricFamily(mfs []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func matchesLabel(labels []*dto.LabelPair, name, value string) bool {
	for _, label := range labels {
		if label.GetName() == name && label.GetValue() == value {
			return true
		}
	}
	return false
}
