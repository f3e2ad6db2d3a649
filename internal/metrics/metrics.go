package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusObserver records pipeline progress as Prometheus metrics.
type PrometheusObserver struct {
	items           *prometheus.CounterVec
	stageDuration   *prometheus.HistogramVec
	opDuration      *prometheus.HistogramVec
	operationErrors *prometheus.CounterVec
	uploadBytes     prometheus.Counter
}

// NewPrometheusObserver registers the pipeline metrics on reg.
func NewPrometheusObserver(namespace string, reg prometheus.Registerer) (*PrometheusObserver, error) {
	if namespace == "" {
		namespace = "digital_products"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	o := &PrometheusObserver{
		items: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_total",
			Help:      "Items processed per stage by outcome.",
		}, []string{"stage", "outcome"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Wall time of each pipeline stage.",
			Buckets:   []float64{1, 5, 15, 60, 300, 900, 3600},
		}, []string{"stage"}),
		opDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Latency of remote operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		operationErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operation_errors_total",
			Help:      "Failed remote operations.",
		}, []string{"operation"}),
		uploadBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploaded_bytes_total",
			Help:      "Bytes successfully uploaded to cloud storage.",
		}),
	}

	var err error
	if o.items, err = register(reg, o.items); err != nil {
		return nil, err
	}
	if o.stageDuration, err = register(reg, o.stageDuration); err != nil {
		return nil, err
	}
	if o.opDuration, err = register(reg, o.opDuration); err != nil {
		return nil, err
	}
	if o.operationErrors, err = register(reg, o.operationErrors); err != nil {
		return nil, err
	}
	if o.uploadBytes, err = register(reg, o.uploadBytes); err != nil {
		return nil, err
	}
	return o, nil
}

// register adds c to reg, reusing an identical collector registered earlier.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return c, fmt.Errorf("register pipeline metric: %w", err)
	}
	return c, nil
}

// RecordItem counts one item leaving a stage with the given outcome.
func (o *PrometheusObserver) RecordItem(stage, outcome string) {
	if o == nil {
		return
	}
	o.items.WithLabelValues(stage, outcome).Inc()
}

// RecordStage tracks a completed stage.
func (o *PrometheusObserver) RecordStage(stage string, duration time.Duration) {
	if o == nil {
		return
	}
	o.stageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// RecordOperation tracks one remote call.
func (o *PrometheusObserver) RecordOperation(op string, duration time.Duration, err error) {
	if o == nil {
		return
	}
	o.opDuration.WithLabelValues(op).Observe(duration.Seconds())
	if err != nil {
		o.operationErrors.WithLabelValues(op).Inc()
	}
}

// RecordUpload tracks upload size on success.
func (o *PrometheusObserver) RecordUpload(sizeBytes int64) {
	if o == nil || sizeBytes <= 0 {
		return
	}
	o.uploadBytes.Add(float64(sizeBytes))
}

// WriteTextfile dumps everything in g to path in the text exposition format, for the
// node_exporter textfile collector.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
