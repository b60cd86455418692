package metrics

import "testing"

func TestMetricName(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "adds prefix", input: "requests_total", expected: "specmatch_requests_total"},
		{name: "keeps prefixed", input: "specmatch_custom_metric", expected: "specmatch_custom_metric"},
		{name: "blank returns prefix", input: "", expected: "specmatch_"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := MetricName(tt.input); got != tt.expected {
				t.Fatalf("MetricName(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestMetricNameWithSubsystem(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name       string
		subsystem  string
		metricName string
		expected   string
	}{
		{name: "subsystem and name", subsystem: "library", metricName: "chunks_total", expected: "specmatch_library_chunks_total"},
		{name: "subsystem trims underscore", subsystem: "_scorer_", metricName: "latency_seconds", expected: "specmatch_scorer_latency_seconds"},
		{name: "empty name", subsystem: "embedder", metricName: "", expected: "specmatch_embedder"},
		{name: "already prefixed", subsystem: "", metricName: "specmatch_existing", expected: "specmatch_existing"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := MetricNameWithSubsystem(tt.subsystem, tt.metricName); got != tt.expected {
				t.Fatalf("MetricNameWithSubsystem(%q, %q) = %q, want %q", tt.subsystem, tt.metricName, got, tt.expected)
			}
		})
	}
}
