package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hospitalcore/internal/core"
)

var _ core.MetricsRecorder = (*Metrics)(nil)

func TestObserveCountsByResult(t *testing.T) {
	m := New(prometheus.NewRegistry())
	ctx := context.Background()

	m.Observe(ctx, core.OpAddPatient, true, time.Millisecond)
	m.Observe(ctx, core.OpAddPatient, true, time.Millisecond)
	m.Observe(ctx, core.OpAddPatient, false, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Operations.WithLabelValues(core.OpAddPatient, "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Operations.WithLabelValues(core.OpAddPatient, "error")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.OperationDuration))
}

func TestObserveSnapshot(t *testing.T) {
	m := New(prometheus.NewRegistry())
	ctx := context.Background()

	m.ObserveSnapshot(ctx, core.SnapshotSave, true, 2*time.Millisecond)
	m.ObserveSnapshot(ctx, core.SnapshotSave, false, time.Millisecond)
	m.ObserveSnapshot(ctx, core.SnapshotLoad, true, time.Millisecond)
	m.ObserveSnapshot(ctx, "other", true, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.SnapshotSaves.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SnapshotSaves.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SnapshotLoads.WithLabelValues("success")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.SnapshotLoads.WithLabelValues("error")))
}

func TestSetComponentSize(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.SetComponentSize("records", 4)
	m.SetComponentSize("records", 3)
	assert.Equal(t, 3.0, testutil.ToFloat64(m.ComponentSize.WithLabelValues("records")))
}

func TestNewRegistersOnProvidedRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.Observe(context.Background(), core.OpSave, true, time.Millisecond)
	m.ObserveSnapshot(context.Background(), core.SnapshotSave, true, time.Millisecond)
	m.SetComponentSize("queue", 1)

	families, err := reg.Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{
		"hospitalcore_operations_total",
		"hospitalcore_operation_duration_seconds",
		"hospitalcore_snapshot_saves_total",
		"hospitalcore_snapshot_save_duration_seconds",
		"hospitalcore_component_size",
	} {
		assert.True(t, names[want], want)
	}
	assert.Panics(t, func() { New(reg) }, "duplicate registration must panic")
}
