package metrics

import (
	"errors"
	"testing"
	"time"

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

func TestObserveComputation(t *testing.T) {
	ok := counterValue(t, computationTotalMetrics.WithLabelValues("ema", StatusOK))
	failed := counterValue(t, computationTotalMetrics.WithLabelValues("ema", StatusFailed))
	bars := counterValue(t, computationBarsMetrics.WithLabelValues("ema"))

	ObserveComputation("ema", 100, time.Millisecond, nil)
	ObserveComputation("ema", 3, 0, errors.New("insufficient data"))

	if got := counterValue(t, computationTotalMetrics.WithLabelValues("ema", StatusOK)); got != ok+1 {
		t.Errorf("expected %v successful computations, got %v", ok+1, got)
	}
	if got := counterValue(t, computationTotalMetrics.WithLabelValues("ema", StatusFailed)); got != failed+1 {
		t.Errorf("expected %v failed computations, got %v", failed+1, got)
	}
	if got := counterValue(t, computationBarsMetrics.WithLabelValues("ema")); got != bars+100 {
		t.Errorf("expected %v bars, got %v", bars+100, got)
	}
}

func TestObserveImport(t *testing.T) {
	before := counterValue(t, datasetImportMetrics.WithLabelValues("bybit", "false"))
	ObserveImport("bybit", errors.New("timeout"))
	if got := counterValue(t, datasetImportMetrics.WithLabelValues("bybit", "false")); got != before+1 {
		t.Errorf("expected %v failed imports, got %v", before+1, got)
	}
}

func TestObserveRequest(t *testing.T) {
	before := counterValue(t, httpRequestMetrics.WithLabelValues("GET", "/api/v1/health", "200"))
	ObserveRequest("GET", "/api/v1/health", 200)
	if got := counterValue(t, httpRequestMetrics.WithLabelValues("GET", "/api/v1/health", "200")); got != before+1 {
		t.Errorf("expected %v requests, got %v", before+1, got)
	}
}

func TestObserveScript(t *testing.T) {
	before := counterValue(t, scriptRunMetrics.WithLabelValues("true"))
	ObserveScript(nil)
	if got := counterValue(t, scriptRunMetrics.WithLabelValues("true")); got != before+1 {
		t.Errorf("expected %v script runs, got %v", before+1, got)
	}
}
