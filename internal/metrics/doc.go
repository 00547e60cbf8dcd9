// Package metrics records build and rendering counters.
//
// Components depend on the Recorder interface and default to NoopRecorder,
// so metrics stay optional:
//
//	reg := prometheus.NewRegistry()
//	rec := metrics.NewPrometheusRecorder(reg)
//	builder := site.NewBuilder(cfg, site.WithRecorder(rec))
//	http.Handle("/metrics", metrics.HTTPHandler(reg))
package metrics
