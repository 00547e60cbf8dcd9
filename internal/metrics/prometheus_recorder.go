package metrics

import (
	"net/http"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	promhttp "github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "openapi_docs_gen"

// PrometheusRecorder implements Recorder with Prometheus collectors.
type PrometheusRecorder struct {
	pagesProcessed    prom.Counter
	pagesWritten      prom.Counter
	pagesUnchanged    prom.Counter
	endpointsRendered prom.Counter
	endpointErrors    *prom.CounterVec
	specLoads         *prom.CounterVec
	buildDuration     prom.Histogram
}

// NewPrometheusRecorder creates the collectors and registers them on reg.
// A nil reg gets a fresh private registry.
func NewPrometheusRecorder(reg prom.Registerer) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{
		pagesProcessed: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "pages_processed_total",
			Help:      "Markdown pages run through the plugin pipeline",
		}),
		pagesWritten: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "pages_written_total",
			Help:      "Pages whose output changed and was written",
		}),
		pagesUnchanged: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "pages_unchanged_total",
			Help:      "Pages whose output fingerprint matched the existing file",
		}),
		endpointsRendered: prom.NewCounter(prom.CounterOpts{
			Namespace: namespace,
			Name:      "endpoints_rendered_total",
			Help:      "docs.endpoint directives rendered successfully",
		}),
		endpointErrors: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "endpoint_errors_total",
			Help:      "docs.endpoint directives replaced by an error message",
		}, []string{"kind"}),
		specLoads: prom.NewCounterVec(prom.CounterOpts{
			Namespace: namespace,
			Name:      "spec_loads_total",
			Help:      "OpenAPI document loads by result",
		}, []string{"result"}),
		buildDuration: prom.NewHistogram(prom.HistogramOpts{
			Namespace: namespace,
			Name:      "build_duration_seconds",
			Help:      "Total site build duration",
			Buckets:   prom.DefBuckets,
		}),
	}
	reg.MustRegister(pr.pagesProcessed, pr.pagesWritten, pr.pagesUnchanged,
		pr.endpointsRendered, pr.endpointErrors, pr.specLoads, pr.buildDuration)
	return pr
}

func (p *PrometheusRecorder) IncPagesProcessed() {
	if p == nil {
		return
	}
	p.pagesProcessed.Inc()
}

func (p *PrometheusRecorder) IncPagesWritten() {
	if p == nil {
		return
	}
	p.pagesWritten.Inc()
}

func (p *PrometheusRecorder) IncPagesUnchanged() {
	if p == nil {
		return
	}
	p.pagesUnchanged.Inc()
}

func (p *PrometheusRecorder) AddEndpointsRendered(n int) {
	if p == nil || n <= 0 {
		return
	}
	p.endpointsRendered.Add(float64(n))
}

func (p *PrometheusRecorder) IncEndpointError(kind string) {
	if p == nil {
		return
	}
	p.endpointErrors.WithLabelValues(kind).Inc()
}

func (p *PrometheusRecorder) IncSpecLoad(result ResultLabel) {
	if p == nil {
		return
	}
	p.specLoads.WithLabelValues(string(result)).Inc()
}

func (p *PrometheusRecorder) ObserveBuildDuration(d time.Duration) {
	if p == nil {
		return
	}
	p.buildDuration.Observe(d.Seconds())
}

// HTTPHandler serves the metrics gathered by g.
func HTTPHandler(g prom.Gatherer) http.Handler {
	if g == nil {
		g = prom.DefaultGatherer
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{EnableOpenMetrics: true})
}
