package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestNopMetrics(t *testing.T) {
	m := NewNop()

	require.NotPanics(t, func() {
		m.RecordPreview(3, 1, time.Millisecond)
		m.RecordCommit(KindBulk, ResultOK, time.Second)
		m.RecordSeatsWritten(KindBulk, -1)
		m.RecordLockWait(0, false)
	})
}

func TestNewPrometheus_Defaults(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewPrometheus(reg, "")

	require.Equal(t, defaultNamespace, p.namespace)

	p.RecordCommit(KindSingle, ResultOK, 10*time.Millisecond)
	families, err := reg.Gather()
	require.NoError(t, err)

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	require.True(t, names["seatplan_allocation_commits_total"])
	require.True(t, names["seatplan_allocation_commit_duration_seconds"])
}

func TestPrometheus_RecordCommit(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewPrometheus(reg, "test")

	p.RecordCommit(KindBulk, ResultOK, time.Millisecond)
	p.RecordCommit(KindBulk, ResultOK, time.Millisecond)
	p.RecordCommit(KindBulk, ResultConflict, time.Millisecond)

	require.InDelta(t, 2, testutil.ToFloat64(p.commits.WithLabelValues(KindBulk, ResultOK)), 0)
	require.InDelta(t, 1, testutil.ToFloat64(p.commits.WithLabelValues(KindBulk, ResultConflict)), 0)
	require.Equal(t, 1, testutil.CollectAndCount(p.commitDuration))
}

func TestPrometheus_RecordPreview(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewPrometheus(reg, "test")

	p.RecordPreview(4, 2, 5*time.Millisecond)
	p.RecordPreview(1, 0, 5*time.Millisecond)

	require.InDelta(t, 2, testutil.ToFloat64(p.previews), 0)
	require.InDelta(t, 5, testutil.ToFloat64(p.previewPlaced), 0)
	require.InDelta(t, 2, testutil.ToFloat64(p.previewUnplaced), 0)
}

func TestPrometheus_RecordSeatsWritten_IgnoresNonPositive(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewPrometheus(reg, "test")

	p.RecordSeatsWritten(KindManual, 0)
	p.RecordSeatsWritten(KindManual, 3)

	require.InDelta(t, 3, testutil.ToFloat64(p.seatsWritten.WithLabelValues(KindManual)), 0)
}

func TestPrometheus_RecordLockWait(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewPrometheus(reg, "test")

	p.RecordLockWait(20*time.Millisecond, true)
	p.RecordLockWait(time.Second, false)

	require.Equal(t, 2, testutil.CollectAndCount(p.lockWait))
}

func TestPrometheus_SeparateRegistries(t *testing.T) {
	require.NotPanics(t, func() {
		NewPrometheus(prometheus.NewRegistry(), "a")
		NewPrometheus(prometheus.NewRegistry(), "a")
	})
}
