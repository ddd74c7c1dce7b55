package metrics

import (
	"testing"

	dto "github.com/prometheus/client_model/go"
)

func TestRecordChunkProcessed(t *testing.T) {
	ChunksProcessedTotal.Reset()

	RecordChunkProcessed("asr", true)
	RecordChunkProcessed("asr", true)
	RecordChunkProcessed("diarize", false)

	metric := &dto.Metric{}
	if err := ChunksProcessedTotal.WithLabelValues("asr", "success").Write(metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	if metric.Counter.GetValue() != 2 {
		t.Errorf("Expected counter value 2, got %f", metric.Counter.GetValue())
	}

	metric = &dto.Metric{}
	if err := ChunksProcessedTotal.WithLabelValues("diarize", "error").Write(metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	if metric.Counter.GetValue() != 1 {
		t.Errorf("Expected counter value 1, got %f", metric.Counter.GetValue())
	}
}

func TestRecordProviderError(t *testing.T) {
	ProviderErrorsTotal.Reset()

	RecordProviderError("asr", "502")

	metric := &dto.Metric{}
	if err := ProviderErrorsTotal.WithLabelValues("asr", "502").Write(metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	if metric.Counter.GetValue() != 1 {
		t.Errorf("Expected counter value 1, got %f", metric.Counter.GetValue())
	}
}

func TestRecordDurations(t *testing.T) {
	// Histograms are verified by recording without panic; bucket contents are
	// not inspected here.
	RecordChunkDuration("asr", 2.4)
	RecordChunkDuration("diarize", 0.7)
	RecordJobDuration("blocking", true, 12.0)
	RecordJobDuration("streaming", false, 3.1)
}

func TestJobsInFlightGauge(t *testing.T) {
	JobsInFlight.Set(0)
	JobsInFlight.Inc()
	JobsInFlight.Inc()
	JobsInFlight.Dec()

	metric := &dto.Metric{}
	if err := JobsInFlight.Write(metric); err != nil {
		t.Fatalf("Failed to write metric: %v", err)
	}
	if metric.Gauge.GetValue() != 1 {
		t.Errorf("Expected gauge value 1, got %f", metric.Gauge.GetValue())
	}
}
