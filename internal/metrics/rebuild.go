// Package metrics содержит Prometheus-коллекторы редактора.
package metrics

import (
	"time"

	"github.com/annel0/voxel-editor/internal/blocks"
	"github.com/annel0/voxel-editor/internal/blocks/atlas"
	"github.com/prometheus/client_golang/prometheus"
)

// RebuildMetrics считает пересборки атласов.
//
// Метрики:
// * editor_atlas_rebuilds_total: counter
// * editor_atlas_rebuild_duration_seconds: histogram
// * editor_atlas_slots{material}: gauge, занятые слоты
// * editor_atlas_width_pixels{material}: gauge
// * editor_atlas_generation: gauge
type RebuildMetrics struct {
	rebuilds   prometheus.Counter
	duration   prometheus.Histogram
	slots      *prometheus.GaugeVec
	width      *prometheus.GaugeVec
	generation prometheus.Gauge
}

// NewRebuildMetrics создаёт коллекторы и регистрирует их в reg
func NewRebuildMetrics(reg prometheus.Registerer) *RebuildMetrics {
	m := &RebuildMetrics{
		rebuilds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "editor",
			Name:      "atlas_rebuilds_total",
			Help:      "Число пересборок атласов.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "editor",
			Name:      "atlas_rebuild_duration_seconds",
			Help:      "Длительность пересборки всех трёх атласов.",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}),
		slots: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "editor",
			Name:      "atlas_slots",
			Help:      "Занятые слоты атласа.",
		}, []string{"material"}),
		width: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "editor",
			Name:      "atlas_width_pixels",
			Help:      "Ширина атласа в пикселях.",
		}, []string{"material"}),
		generation: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "editor",
			Name:      "atlas_generation",
			Help:      "Номер последней пересборки.",
		}),
	}

	reg.MustRegister(m.rebuilds, m.duration, m.slots, m.width, m.generation)
	return m
}

// Observe подходит как editor.RebuildHook
func (m *RebuildMetrics) Observe(set atlas.Set, took time.Duration) {
	m.rebuilds.Inc()
	m.duration.Observe(took.Seconds())
	m.generation.Set(float64(set.Generation))
	for _, mat := range blocks.Materials {
		a := set.Get(mat)
		m.slots.WithLabelValues(mat.String()).Set(float64(a.Packed))
		m.width.WithLabelValues(mat.String()).Set(float64(a.Width))
	}
}
