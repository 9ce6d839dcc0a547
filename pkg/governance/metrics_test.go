package governance_test

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/basket/go-warden/pkg/governance"
)

func TestMetricsRecordTransitionActivity(t *testing.T) {
	reader := metric.NewManualReader()
	provider := metric.NewMeterProvider(metric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	metrics, err := governance.NewMetrics(provider.Meter("warden-test"))
	if err != nil {
		t.Fatalf("NewMetrics() error = %v", err)
	}

	store := linearWorkflow()
	reg := governance.NewRegistry(governance.NewCatalog(store), store, metrics)
	ctx := context.Background()

	if _, err := reg.ValidateTransition(ctx, "To Do", "In Progress"); err != nil {
		t.Fatalf("ValidateTransition() error = %v", err)
	}
	if _, err := reg.ValidateTransition(ctx, "Done", "To Do"); err != nil {
		t.Fatalf("ValidateTransition() error = %v", err)
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(ctx, &rm); err != nil {
		t.Fatalf("Collect() error = %v", err)
	}

	sums := map[string]int64{}
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			var total int64
			for _, dp := range sum.DataPoints {
				total += dp.Value
			}
			sums[m.Name] = total
		}
	}

	if got := sums["warden.transition.checks"]; got != 2 {
		t.Fatalf("warden.transition.checks = %d, want 2", got)
	}
	if got := sums["warden.transition.rejects"]; got != 1 {
		t.Fatalf("warden.transition.rejects = %d, want 1", got)
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	store := codingAgentRules()
	ev := governance.NewEvaluator(store, nil)
	syn := governance.NewSynthesizer(store, nil)
	ctx := context.Background()

	if _, err := ev.EvaluateCompletion(ctx, "coding_agent", governance.TaskData{"tests_passed": true, "coverage": 90}); err != nil {
		t.Fatalf("EvaluateCompletion() with nil metrics error = %v", err)
	}
	if _, err := syn.Synthesize(ctx, "coding_agent"); err != nil {
		t.Fatalf("Synthesize() with nil metrics error = %v", err)
	}
}
