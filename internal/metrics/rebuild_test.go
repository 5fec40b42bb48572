package metrics

import (
	"testing"
	"time"

	"github.com/annel0/voxel-editor/internal/blocks"
	"github.com/annel0/voxel-editor/internal/editor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRebuildMetrics_AsHook(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewRebuildMetrics(reg)

	e := editor.New(
		editor.WithGenerator(blocks.NewBevelGenerator(1)),
		editor.WithRebuildHook(m.Observe),
	)
	require.NoError(t, e.Catalog().Update(0, editor.FieldHasAlpha, true))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.rebuilds))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.generation))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.slots.WithLabelValues("alpha")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.slots.WithLabelValues("opaque")))
	assert.Equal(t, 162.0, testutil.ToFloat64(m.width.WithLabelValues("blending")))

	count, err := testutil.GatherAndCount(reg, "editor_atlas_rebuild_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	m.Observe(e.Atlas(), time.Millisecond)
	assert.Equal(t, 3.0, testutil.ToFloat64(m.rebuilds))
}
