package commands

import (
	"context"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/openapi-docs-gen/internal/logfields"
	"git.home.luguber.info/inful/openapi-docs-gen/internal/metrics"
	"git.home.luguber.info/inful/openapi-docs-gen/internal/server"
	"git.home.luguber.info/inful/openapi-docs-gen/internal/site"
	"git.home.luguber.info/inful/openapi-docs-gen/internal/watch"
)

// ServeCmd builds the site, serves it and rebuilds on changes.
type ServeCmd struct {
	Addr    string `short:"a" help:"Listen address (overrides serve.addr)"`
	NoWatch bool   `name:"no-watch" help:"Serve the initial build without watching for changes"`
}

func (s *ServeCmd) Run(g *Global, root *CLI) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	return s.run(ctx, g, root)
}

func (s *ServeCmd) run(ctx context.Context, g *Global, root *CLI) error {
	log := g.logger()
	reg := prom.NewRegistry()
	rec := metrics.NewPrometheusRecorder(reg)

	builder, err := configuredBuilder(ctx, g, root, rec)
	if err != nil {
		return err
	}
	defer func() { _ = builder.Close() }()
	cfg := builder.Config()

	status := &server.BuildStatus{}
	rebuild := newRebuilder(builder, status)
	if err := rebuild.build(ctx); err != nil {
		log.Error("initial build failed", logfields.Error(err))
	}

	addr := cfg.Serve.Addr
	if s.Addr != "" {
		addr = s.Addr
	}
	srv := server.New(addr, cfg.SitePath(), status,
		server.WithLogger(log),
		server.WithMetrics(cfg.Serve.MetricsPath, metrics.HTTPHandler(reg)))

	var wg sync.WaitGroup
	defer wg.Wait()
	ctx, stop := context.WithCancel(ctx)
	defer stop()

	if !s.NoWatch {
		w, err := watch.NewWatcher(builder.WatchPaths(), cfg.Watch.Debounce, rebuild.onChange, log)
		if err != nil {
			return err
		}
		defer func() { _ = w.Close() }()
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = w.Run(ctx)
		}()
	}

	if cfg.Watch.SpecRefreshInterval > 0 {
		r, err := watch.NewRefresher(cfg.Watch.SpecRefreshInterval, rebuild.refresh, log)
		if err != nil {
			return err
		}
		if err := r.Start(ctx); err != nil {
			return err
		}
		defer func() { _ = r.Stop() }()
	}

	return srv.Run(ctx)
}

// rebuilder connects change notifications to builder runs and records each
// outcome for /healthz.
type rebuilder struct {
	builder *site.Builder
	status  *server.BuildStatus
	// specPaths are the absolute plugin-contributed watch paths. A change to
	// one of them reloads the OpenAPI documents before rebuilding.
	specPaths []string
}

func newRebuilder(b *site.Builder, status *server.BuildStatus) *rebuilder {
	watched := b.WatchPaths()
	specs := make([]string, 0, len(watched))
	for _, p := range watched[1:] {
		if abs, err := filepath.Abs(p); err == nil {
			p = abs
		}
		specs = append(specs, filepath.Clean(p))
	}
	return &rebuilder{builder: b, status: status, specPaths: specs}
}

func (r *rebuilder) build(ctx context.Context) error {
	report, err := r.builder.Build(ctx)
	r.status.Record(report, err)
	return err
}

// onChange reloads OpenAPI documents when a changed path is one of the
// plugin-contributed watch paths (or lies below one), then rebuilds.
func (r *rebuilder) onChange(ctx context.Context, changed []string) error {
	if r.touchesSpecs(changed) {
		if err := r.builder.ReloadSpecs(ctx); err != nil {
			r.status.Record(nil, err)
			return err
		}
	}
	return r.build(ctx)
}

func (r *rebuilder) refresh(ctx context.Context) error {
	if err := r.builder.ReloadSpecs(ctx); err != nil {
		return err
	}
	return r.build(ctx)
}

func (r *rebuilder) touchesSpecs(changed []string) bool {
	for _, p := range changed {
		p = filepath.Clean(p)
		for _, spec := range r.specPaths {
			if p == spec || strings.HasPrefix(p, spec+string(filepath.Separator)) {
				return true
			}
		}
	}
	return false
}
