package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("failed to read counter: %v", err)
	}
	return m.GetCounter().GetValue()
}

func TestCollectorsRegistered(t *testing.T) {
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	if len(families) == 0 {
		t.Fatal("expected registered metrics, got none")
	}
}

func TestCounterVecsIncrement(t *testing.T) {
	before := counterValue(t, QuoteResolutions.WithLabelValues("reference"))
	QuoteResolutions.WithLabelValues("reference").Inc()
	if got := counterValue(t, QuoteResolutions.WithLabelValues("reference")); got != before+1 {
		t.Errorf("expected %v, got %v", before+1, got)
	}

	DistributionOutcomes.WithLabelValues("synced").Add(3)
	if got := counterValue(t, DistributionOutcomes.WithLabelValues("synced")); got < 3 {
		t.Errorf("expected at least 3 synced, got %v", got)
	}
}
