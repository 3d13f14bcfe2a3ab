package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kirillkom/slidedeck-ingest/internal/core/domain"
)

type UploadMetrics struct {
	service string

	uploadTotal    *prometheus.CounterVec
	uploadDuration *prometheus.HistogramVec
	uploadInFlight prometheus.Gauge
	failureTotal   *prometheus.CounterVec
	slidesPerDeck  prometheus.Histogram
}

func NewUploadMetrics(service string, registry *prometheus.Registry) *UploadMetrics {
	uploadTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "slidedeck",
			Subsystem: "upload",
			Name:      "total",
			Help:      "Total uploads by status.",
		},
		[]string{"service", "status"},
	)
	uploadDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "slidedeck",
			Subsystem: "upload",
			Name:      "duration_seconds",
			Help:      "End-to-end upload duration in seconds by status.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120, 300},
		},
		[]string{"service", "status"},
	)
	uploadInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "slidedeck",
			Subsystem: "upload",
			Name:      "in_flight",
			Help:      "Number of uploads being processed.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	failureTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "slidedeck",
			Subsystem: "upload",
			Name:      "failures_total",
			Help:      "Failed uploads by error kind.",
		},
		[]string{"service", "kind"},
	)
	slidesPerDeck := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace:   "slidedeck",
			Subsystem:   "upload",
			Name:        "slides",
			Help:        "Slides persisted per successful upload.",
			Buckets:     []float64{0, 1, 5, 10, 20, 40, 80, 160},
			ConstLabels: prometheus.Labels{"service": service},
		},
	)

	registry.MustRegister(uploadTotal, uploadDuration, uploadInFlight, failureTotal, slidesPerDeck)

	return &UploadMetrics{
		service:        service,
		uploadTotal:    uploadTotal,
		uploadDuration: uploadDuration,
		uploadInFlight: uploadInFlight,
		failureTotal:   failureTotal,
		slidesPerDeck:  slidesPerDeck,
	}
}

func (m *UploadMetrics) StartUpload() {
	m.uploadInFlight.Inc()
}

func (m *UploadMetrics) FinishUpload(duration time.Duration, slides int, err error) {
	m.uploadInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
		m.failureTotal.WithLabelValues(m.service, FailureKind(err)).Inc()
	} else {
		m.slidesPerDeck.Observe(float64(slides))
	}

	m.uploadTotal.WithLabelValues(m.service, status).Inc()
	m.uploadDuration.WithLabelValues(m.service, status).Observe(duration.Seconds())
}

var failureKinds = []struct {
	kind  error
	label string
}{
	{domain.ErrCountMismatch, "count_mismatch"},
	{domain.ErrRenderTimeout, "render_timeout"},
	{domain.ErrRender, "render"},
	{domain.ErrParse, "parse"},
	{domain.ErrStaging, "staging"},
	{domain.ErrStorage, "storage"},
	{domain.ErrDB, "db"},
	{domain.ErrTemporary, "temporary"},
	{domain.ErrInvalidInput, "invalid_input"},
}

// FailureKind maps an upload error to a bounded metric label.
func FailureKind(err error) string {
	for _, fk := range failureKinds {
		if errors.Is(err, fk.kind) {
			return fk.label
		}
	}
	return "other"
}
