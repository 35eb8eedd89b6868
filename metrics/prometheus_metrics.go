package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusMetrics implements Metrics against the default Prometheus
// registerer. Each metric name lives in exactly one of the six maps below
// depending on its type and whether it carries labels; Register decides
// which map a name goes in and Record/RecordWithLabels look it up there.
type PrometheusMetrics struct {
	counters      map[string]prometheus.Counter
	counterVecs   map[string]*prometheus.CounterVec
	gauges        map[string]prometheus.Gauge
	gaugeVecs     map[string]*prometheus.GaugeVec
	histograms    map[string]prometheus.Histogram
	histogramVecs map[string]*prometheus.HistogramVec
	customBuckets map[string][]float64
}

func NewPrometheusMetrics() *PrometheusMetrics {
	return &PrometheusMetrics{
		counters:      make(map[string]prometheus.Counter),
		counterVecs:   make(map[string]*prometheus.CounterVec),
		gauges:        make(map[string]prometheus.Gauge),
		gaugeVecs:     make(map[string]*prometheus.GaugeVec),
		histograms:    make(map[string]prometheus.Histogram),
		histogramVecs: make(map[string]*prometheus.HistogramVec),
		customBuckets: make(map[string][]float64),
	}
}

// SetCustomBuckets overrides the default bucket boundaries for a
// histogram; must be called before Register for that name, since Register
// reads customBuckets at registration time.
func (p *PrometheusMetrics) SetCustomBuckets(name string, buckets []float64) {
	p.customBuckets[name] = buckets
}

func (p *PrometheusMetrics) Register(name, metricType, help string) {
	switch metricType {
	case "Counter":
		counter := prometheus.NewCounter(prometheus.CounterOpts{Name: name, Help: help})
		prometheus.MustRegister(counter)
		p.counters[name] = counter

	case "Gauge":
		gauge := prometheus.NewGauge(prometheus.GaugeOpts{Name: name, Help: help})
		prometheus.MustRegister(gauge)
		p.gauges[name] = gauge

	case "Histogram":
		histogram := prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    name,
			Help:    help,
			Buckets: p.bucketsFor(name),
		})
		prometheus.MustRegister(histogram)
		p.histograms[name] = histogram

	default:
		panic(fmt.Sprintf("metrics: unknown metric type %q for %q", metricType, name))
	}
}

func (p *PrometheusMetrics) bucketsFor(name string) []float64 {
	if buckets, ok := p.customBuckets[name]; ok {
		return buckets
	}
	return prometheus.DefBuckets
}

func (p *PrometheusMetrics) Record(name string, value float64) {
	if counter, ok := p.counters[name]; ok {
		counter.Add(value)
		return
	}
	if gauge, ok := p.gauges[name]; ok {
		gauge.Set(value)
		return
	}
	if histogram, ok := p.histograms[name]; ok {
		histogram.Observe(value)
	}
}

func (p *PrometheusMetrics) RegisterWithLabels(name, metricType, help string, labels []string) {
	switch metricType {
	case "Counter":
		counterVec := prometheus.NewCounterVec(prometheus.CounterOpts{Name: name, Help: help}, labels)
		prometheus.MustRegister(counterVec)
		p.counterVecs[name] = counterVec

	case "Gauge":
		gaugeVec := prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: name, Help: help}, labels)
		prometheus.MustRegister(gaugeVec)
		p.gaugeVecs[name] = gaugeVec

	case "Histogram":
		histogramVec := prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    name,
			Help:    help,
			Buckets: p.bucketsFor(name),
		}, labels)
		prometheus.MustRegister(histogramVec)
		p.histogramVecs[name] = histogramVec
	}
}

func (p *PrometheusMetrics) RecordWithLabels(name string, value float64, labelValues ...string) {
	if counterVec, ok := p.counterVecs[name]; ok {
		counterVec.WithLabelValues(labelValues...).Add(value)
		return
	}
	if gaugeVec, ok := p.gaugeVecs[name]; ok {
		gaugeVec.WithLabelValues(labelValues...).Set(value)
		return
	}
	if histogramVec, ok := p.histogramVecs[name]; ok {
		histogramVec.WithLabelValues(labelValues...).Observe(value)
	}
}

// StartMetricsServer serves /metrics on port until ctx is cancelled, then
// shuts the listener down gracefully. Both pdoflow-workerd's supervisor
// and its leaf workers run this in a goroutine off their own signal-derived
// context, so a SIGTERM closes the metrics endpoint along with everything
// else rather than leaving it listening after the process is otherwise
// winding down.
func (p *PrometheusMetrics) StartMetricsServer(ctx context.Context, port string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: ":" + port, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		return srv.Shutdown(context.Background())
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
