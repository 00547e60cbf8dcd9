package plugin

import (
	"log/slog"
	"slices"
	"sync"

	"git.home.luguber.info/inful/openapi-docs-gen/internal/config"
	"git.home.luguber.info/inful/openapi-docs-gen/internal/metrics"
)

// PluginContext gives a plugin access to builder services during OnConfig.
type PluginContext struct {
	// Logger is scoped to the plugin.
	Logger *slog.Logger

	// Config is the loaded site configuration.
	Config *config.Config

	// Metrics is never nil.
	Metrics metrics.Recorder

	mu    sync.Mutex
	watch []string
}

// NewPluginContext creates a context. A nil logger uses slog.Default and a
// nil recorder discards metrics.
func NewPluginContext(logger *slog.Logger, cfg *config.Config, rec metrics.Recorder) *PluginContext {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg == nil {
		cfg = &config.Config{}
	}
	return &PluginContext{
		Logger:  logger,
		Config:  cfg,
		Metrics: metrics.OrNoop(rec),
	}
}

// AddWatch appends path to the builder's watch list. Duplicates are ignored.
func (pc *PluginContext) AddWatch(path string) {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	if !slices.Contains(pc.watch, path) {
		pc.watch = append(pc.watch, path)
	}
}

// WatchPaths returns the paths added with AddWatch, in order.
func (pc *PluginContext) WatchPaths() []string {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	return slices.Clone(pc.watch)
}
