// Package site is the documentation host: it configures plugins, runs every
// Markdown page of the docs directory through them and writes the result to
// the site directory.
package site

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/openapi-docs-gen/internal/config"
	derrors "git.home.luguber.info/inful/openapi-docs-gen/internal/foundation/errors"
	"git.home.luguber.info/inful/openapi-docs-gen/internal/logfields"
	"git.home.luguber.info/inful/openapi-docs-gen/internal/metrics"
	"git.home.luguber.info/inful/openapi-docs-gen/internal/plugin"
)

// Reloader is implemented by plugins whose external inputs can be refreshed
// without reconfiguring the builder.
type Reloader interface {
	ReloadSpec(ctx context.Context) error
}

type configured struct {
	name   string
	plugin plugin.Plugin
	pctx   *plugin.PluginContext
}

// Builder builds a site from a configuration.
type Builder struct {
	cfg      *config.Config
	registry *plugin.Registry
	logger   *slog.Logger
	rec      metrics.Recorder

	mu         sync.Mutex // serializes Build and plugin state changes
	plugins    []configured
	configured bool
}

// Option configures a Builder.
type Option func(*Builder)

// WithRegistry sets the registry plugins are instantiated from.
func WithRegistry(r *plugin.Registry) Option {
	return func(b *Builder) { b.registry = r }
}

// WithLogger sets the builder's logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Builder) { b.logger = l }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(b *Builder) { b.rec = metrics.OrNoop(r) }
}

// NewBuilder creates a builder for cfg using the default plugin registry.
func NewBuilder(cfg *config.Config, opts ...Option) *Builder {
	b := &Builder{
		cfg:      cfg,
		registry: plugin.DefaultRegistry(),
		logger:   slog.Default(),
		rec:      metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Config returns the builder's configuration.
func (b *Builder) Config() *config.Config {
	return b.cfg
}

// Configure instantiates every configured plugin, validates its settings
// and runs its Init and OnConfig hooks in configuration order.
func (b *Builder) Configure(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.configured {
		return nil
	}

	for _, pc := range b.cfg.Plugins {
		p, err := b.registry.New(pc.Name)
		if err != nil {
			return err
		}
		if err := p.Validate(pc.Settings); err != nil {
			return err
		}
		if lc, ok := p.(plugin.PluginLifecycle); ok {
			if err := lc.Init(); err != nil {
				return derrors.WrapError(err, derrors.CategoryPlugin, "plugin init failed").
					WithContext("plugin", pc.Name).
					Build()
			}
		}

		pctx := plugin.NewPluginContext(b.logger.With(logfields.Plugin(pc.Name)), b.cfg, b.rec)
		if err := p.OnConfig(ctx, pctx); err != nil {
			return err
		}
		b.plugins = append(b.plugins, configured{name: pc.Name, plugin: p, pctx: pctx})
		b.logger.Debug("Plugin configured", logfields.Plugin(p.Metadata().String()))
	}

	b.configured = true
	return nil
}

// Plugin returns the configured instance of the named plugin.
func (b *Builder) Plugin(name string) (plugin.Plugin, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, c := range b.plugins {
		if c.name == name {
			return c.plugin, true
		}
	}
	return nil, false
}

// RenderPage runs markdown through every plugin's OnPageMarkdown hook.
// relPath identifies the page relative to docs_dir. It must not be called
// concurrently with Configure or Close.
func (b *Builder) RenderPage(ctx context.Context, relPath string, markdown []byte) (*plugin.Page, error) {
	if !b.configured {
		return nil, derrors.InternalError("builder used before Configure").Build()
	}
	pg := &plugin.Page{RelPath: filepath.ToSlash(relPath), Markdown: markdown}
	if err := b.runPlugins(ctx, pg); err != nil {
		return nil, err
	}
	return pg, nil
}

func (b *Builder) runPlugins(ctx context.Context, pg *plugin.Page) error {
	for _, c := range b.plugins {
		if err := c.plugin.OnPageMarkdown(ctx, pg); err != nil {
			return err
		}
	}
	b.rec.IncPagesProcessed()
	return nil
}

// WatchPaths returns the docs directory followed by every path plugins
// asked to be watched.
func (b *Builder) WatchPaths() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	paths := []string{b.cfg.DocsPath()}
	for _, c := range b.plugins {
		for _, p := range c.pctx.WatchPaths() {
			if !slices.Contains(paths, p) {
				paths = append(paths, p)
			}
		}
	}
	return paths
}

// ReloadSpecs reloads every plugin implementing Reloader. All plugins are
// attempted; the errors are joined.
func (b *Builder) ReloadSpecs(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var errs []error
	for _, c := range b.plugins {
		if r, ok := c.plugin.(Reloader); ok {
			if err := r.ReloadSpec(ctx); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", c.name, err))
			}
		}
	}
	return errors.Join(errs...)
}

// Close runs every plugin's Cleanup hook.
func (b *Builder) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var errs []error
	for _, c := range b.plugins {
		if lc, ok := c.plugin.(plugin.PluginLifecycle); ok {
			if err := lc.Cleanup(); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", c.name, err))
			}
		}
	}
	b.plugins = nil
	b.configured = false
	return errors.Join(errs...)
}

// Build processes the docs directory into the site directory. Outputs whose
// content is unchanged are left untouched. The first page error aborts the
// build; the partial report is returned with it.
func (b *Builder) Build(ctx context.Context) (*Report, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.configured {
		return nil, derrors.InternalError("builder used before Configure").Build()
	}

	start := time.Now()
	report := &Report{BuildID: uuid.NewString()}
	log := b.logger.With(logfields.BuildID(report.BuildID))

	docsDir := b.cfg.DocsPath()
	siteDir := b.cfg.SitePath()
	if st, err := os.Stat(docsDir); err != nil || !st.IsDir() {
		return nil, derrors.NotFoundError(fmt.Sprintf("docs_dir not found or not a directory: %s", docsDir)).
			WithContext("docs_dir", docsDir).
			Build()
	}
	if err := os.MkdirAll(siteDir, 0o750); err != nil {
		return nil, derrors.WrapError(err, derrors.CategoryFileSystem, "failed to create site_dir").
			WithContext("site_dir", siteDir).
			Build()
	}

	log.Info("Building site", logfields.Path(docsDir), slog.String("site_dir", siteDir))

	err := filepath.WalkDir(docsDir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if path != docsDir && isHidden(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(docsDir, path)
		if err != nil {
			return err
		}
		dest := filepath.Join(siteDir, rel)

		if isMarkdown(path) {
			return b.buildPage(ctx, log, report, path, rel, dest)
		}
		return b.copyAsset(report, path, dest)
	})

	report.Duration = time.Since(start)
	b.rec.ObserveBuildDuration(report.Duration)

	if err != nil {
		log.Error("Build failed", logfields.Error(err), logfields.DurationMS(report.Duration))
		if _, ok := derrors.AsClassified(err); ok || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return report, err
		}
		return report, derrors.WrapError(err, derrors.CategoryFileSystem, "build failed").Build()
	}

	log.Info("Build complete",
		slog.Int("pages", report.Pages),
		slog.Int("written", report.Written),
		slog.Int("unchanged", report.Unchanged),
		slog.Int("assets", report.Assets),
		slog.Int("rendered", report.Rendered),
		slog.Int("failed", report.Failed),
		logfields.DurationMS(report.Duration))
	return report, nil
}

func (b *Builder) buildPage(ctx context.Context, log *slog.Logger, report *Report, src, rel, dest string) error {
	content, err := os.ReadFile(src)
	if err != nil {
		return derrors.WrapError(err, derrors.CategoryFileSystem, "failed to read page").
			WithContext("page", rel).
			Build()
	}

	pg := &plugin.Page{RelPath: filepath.ToSlash(rel), SourcePath: src, Markdown: content}
	if err := b.runPlugins(ctx, pg); err != nil {
		return err
	}

	report.Pages++
	report.Rendered += pg.Rendered
	report.Failed += pg.Failed

	changed, err := writeIfChanged(dest, pg.Markdown, pageFingerprint)
	if err != nil {
		return derrors.WrapError(err, derrors.CategoryFileSystem, "failed to write page").
			WithContext("page", rel).
			Build()
	}
	if changed {
		report.Written++
		b.rec.IncPagesWritten()
		log.Debug("Page written", logfields.Page(pg.RelPath), logfields.Count(pg.Rendered))
	} else {
		report.Unchanged++
		b.rec.IncPagesUnchanged()
	}
	return nil
}

func (b *Builder) copyAsset(report *Report, src, dest string) error {
	content, err := os.ReadFile(src)
	if err != nil {
		return derrors.WrapError(err, derrors.CategoryFileSystem, "failed to read asset").
			WithContext("file", src).
			Build()
	}
	changed, err := writeIfChanged(dest, content, assetFingerprint)
	if err != nil {
		return derrors.WrapError(err, derrors.CategoryFileSystem, "failed to copy asset").
			WithContext("file", src).
			Build()
	}
	if changed {
		report.Assets++
	}
	return nil
}

func isMarkdown(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return true
	default:
		return false
	}
}

func isHidden(name string) bool {
	return strings.HasPrefix(name, ".")
}
