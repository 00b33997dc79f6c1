package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method", "status"},
	)

	AttendanceRowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attendance_rows_evaluated_total",
			Help: "Attendance rows evaluated, by derived status",
		},
		[]string{"status"},
	)

	ImportRowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "student_import_rows_total",
			Help: "Student import rows processed, by source and outcome",
		},
		[]string{"source", "outcome"},
	)

	ImportRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "student_import_rejected_total",
			Help: "Whole imports rejected before any write, by reason",
		},
		[]string{"reason"},
	)

	ExportRowsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "student_export_rows_total",
			Help: "Student rows written to spreadsheet exports",
		},
	)

	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "Parent notifications handled by the worker, by result",
		},
		[]string{"result"},
	)
)
