package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ImportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fireweather_imports_total",
			Help: "Total weather file imports by format and outcome",
		},
		[]string{"format", "status"},
	)

	RowsImported = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fireweather_rows_imported_total",
			Help: "Total weather rows committed to a stream",
		},
		[]string{"format"},
	)

	RowsCorrected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fireweather_rows_corrected_total",
			Help: "Total imported rows with out-of-range values clamped or flagged",
		},
	)

	HoursInterpolated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fireweather_hours_interpolated_total",
			Help: "Total missing hours filled by spline interpolation on import",
		},
	)

	FetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fireweather_fetches_total",
			Help: "Total remote weather file fetches by scheme and outcome",
		},
		[]string{"scheme", "status"},
	)
)
