package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestForConfig_SharesRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()

	first, err := ForConfig(Config{Enabled: true, Registry: reg})
	if err != nil {
		t.Fatalf("ForConfig() error = %v", err)
	}
	second, err := ForConfig(Config{Enabled: true, Registry: reg})
	if err != nil {
		t.Fatalf("ForConfig() error = %v", err)
	}
	if first != second {
		t.Error("expected the same registry for the same registerer")
	}

	other, err := ForConfig(Config{Enabled: true, Registry: reg, Namespace: "other"})
	if err != nil {
		t.Fatalf("ForConfig() error = %v", err)
	}
	if other == first {
		t.Error("expected a separate registry for a different namespace")
	}
}

func TestForConfig_Default(t *testing.T) {
	r, err := ForConfig(Config{Enabled: true})
	if err != nil {
		t.Fatalf("ForConfig() error = %v", err)
	}
	if r != DefaultRegistry {
		t.Error("expected DefaultRegistry for the default registerer and namespace")
	}
}

func TestForConfig_Conflict(t *testing.T) {
	reg := prometheus.NewRegistry()
	// Registered outside ForConfig, so the cache does not know about it.
	NewRegistryWithConfig(Config{Registry: reg, Namespace: "conflict"})

	if _, err := ForConfig(Config{Registry: reg, Namespace: "conflict"}); err == nil {
		t.Error("expected an error for conflicting collectors")
	}
}

func TestRegistry_Labels(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewRegistryWithConfig(Config{
		Registry: reg,
		Labels:   prometheus.Labels{"service": "test"},
	})

	r.WorkerPoolQueued.WithLabelValues("p").Set(3)
	if got := testutil.ToFloat64(r.WorkerPoolQueued.WithLabelValues("p")); got != 3 {
		t.Errorf("queued = %v, want 3", got)
	}

	n, err := testutil.GatherAndCount(reg, "taskexec_workerpool_queued_tasks")
	if err != nil {
		t.Fatalf("GatherAndCount() error = %v", err)
	}
	if n != 1 {
		t.Errorf("series = %d, want 1", n)
	}
}
