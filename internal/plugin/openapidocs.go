package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"git.home.luguber.info/inful/openapi-docs-gen/internal/config"
	derrors "git.home.luguber.info/inful/openapi-docs-gen/internal/foundation/errors"
	"git.home.luguber.info/inful/openapi-docs-gen/internal/logfields"
	"git.home.luguber.info/inful/openapi-docs-gen/internal/metrics"
	"git.home.luguber.info/inful/openapi-docs-gen/internal/openapispec"
	"git.home.luguber.info/inful/openapi-docs-gen/internal/page"
	"git.home.luguber.info/inful/openapi-docs-gen/internal/render"
	"git.home.luguber.info/inful/openapi-docs-gen/internal/retry"
)

// OpenAPIDocsGenName is the entry-point name of OpenAPIDocsGenPlugin.
const OpenAPIDocsGenName = "openapi-docs-gen"

// OpenAPIDocsGenVersion is the version OpenAPIDocsGenPlugin registers with.
const OpenAPIDocsGenVersion = "v0.1.0"

func init() {
	DefaultRegistry().MustRegister(func() Plugin { return NewOpenAPIDocsGenPlugin() })
}

// OpenAPIDocsGenSettings is the plugin's config scheme.
type OpenAPIDocsGenSettings struct {
	// OpenAPIFile is a path relative to the config file, or a URL.
	OpenAPIFile string `yaml:"openapi_file"`

	// Strict fails the page instead of rendering errors inline.
	Strict bool `yaml:"strict"`

	Sections render.Options `yaml:"sections"`

	// Retry applies to documents fetched from a URL.
	Retry RetrySettings `yaml:"retry"`
}

// RetrySettings configures retries of remote document fetches.
type RetrySettings struct {
	MaxRetries int           `yaml:"max_retries"`
	Backoff    string        `yaml:"backoff"`
	Initial    time.Duration `yaml:"initial"`
	Max        time.Duration `yaml:"max"`
}

// Validate rejects unknown backoff modes and negative values.
func (r RetrySettings) Validate() error {
	return retry.Policy{Mode: retry.Backoff(r.Backoff), Initial: r.Initial, Max: r.Max, MaxRetries: r.MaxRetries}.Validate()
}

// Policy converts the settings into a retry policy.
func (r RetrySettings) Policy() retry.Policy {
	return retry.NewPolicy(retry.Backoff(r.Backoff), r.Initial, r.Max, r.MaxRetries)
}

func defaultSettings() OpenAPIDocsGenSettings {
	d := retry.DefaultPolicy()
	return OpenAPIDocsGenSettings{
		Sections: render.DefaultOptions(),
		Retry: RetrySettings{
			MaxRetries: d.MaxRetries,
			Backoff:    string(d.Mode),
			Initial:    d.Initial,
			Max:        d.Max,
		},
	}
}

// OpenAPIDocsGenPlugin expands `::: docs.endpoint` blocks into endpoint
// documentation generated from an OpenAPI document.
type OpenAPIDocsGenPlugin struct {
	BasePlugin

	settings  OpenAPIDocsGenSettings
	source    string
	logger    *slog.Logger
	rec       metrics.Recorder
	processor *page.Processor

	doc      atomic.Pointer[openapispec.Document]
	reloadMu sync.Mutex
}

// NewOpenAPIDocsGenPlugin creates an unconfigured plugin.
func NewOpenAPIDocsGenPlugin() *OpenAPIDocsGenPlugin {
	return &OpenAPIDocsGenPlugin{
		settings: defaultSettings(),
		logger:   slog.Default(),
		rec:      metrics.NoopRecorder{},
	}
}

func (p *OpenAPIDocsGenPlugin) Metadata() PluginMetadata {
	return PluginMetadata{
		Name:         OpenAPIDocsGenName,
		Version:      OpenAPIDocsGenVersion,
		Type:         PluginTypeContent,
		Description:  "Generates endpoint documentation from an OpenAPI document",
		Capabilities: []string{"watch", "reload"},
	}
}

// Validate decodes settings. openapi_file is required.
func (p *OpenAPIDocsGenPlugin) Validate(settings map[string]any) error {
	s := defaultSettings()
	if err := config.DecodeSettings(settings, &s); err != nil {
		return derrors.WrapError(err, derrors.CategoryConfig, "invalid openapi-docs-gen settings").
			WithContext("plugin", OpenAPIDocsGenName).
			Build()
	}
	s.OpenAPIFile = strings.TrimSpace(s.OpenAPIFile)
	if s.OpenAPIFile == "" {
		return derrors.ConfigError("openapi-docs-gen: openapi_file is required").
			WithContext("plugin", OpenAPIDocsGenName).
			Build()
	}
	if err := s.Retry.Validate(); err != nil {
		return derrors.WrapError(err, derrors.CategoryConfig, "openapi-docs-gen: invalid retry settings").
			WithContext("plugin", OpenAPIDocsGenName).
			Build()
	}
	p.settings = s
	return nil
}

// Settings returns the decoded settings.
func (p *OpenAPIDocsGenPlugin) Settings() OpenAPIDocsGenSettings {
	return p.settings
}

// OnConfig loads the OpenAPI document, logs a summary of it and adds the
// document to the watch list.
func (p *OpenAPIDocsGenPlugin) OnConfig(ctx context.Context, pctx *PluginContext) error {
	if p.settings.OpenAPIFile == "" {
		return derrors.ConfigError("openapi-docs-gen: openapi_file is required").
			WithContext("plugin", OpenAPIDocsGenName).
			Build()
	}

	p.logger = pctx.Logger.With(logfields.Plugin(OpenAPIDocsGenName))
	p.rec = pctx.Metrics
	p.source = pctx.Config.ResolvePath(p.settings.OpenAPIFile)
	p.processor = page.NewProcessor(
		render.NewEndpointRenderer(p, p.settings.Sections),
		page.WithStrict(p.settings.Strict),
		page.WithLogger(p.logger),
	)

	doc, err := p.load(ctx)
	if err != nil {
		return err
	}
	p.doc.Store(doc)

	info := doc.Info()
	p.logger.Info("Loaded OpenAPI document", logfields.Spec(p.source))
	p.logger.Info("API Title: "+info.Title, logfields.Spec(p.source))
	p.logger.Info("API Version: "+info.Version, logfields.Spec(p.source))
	p.logger.Info("Available Paths: "+strings.Join(doc.PathNames(), ", "),
		logfields.Spec(p.source), logfields.Count(len(doc.PathNames())))

	if !openapispec.IsRemote(p.source) {
		pctx.AddWatch(p.source)
	}
	return nil
}

// ReloadSpec reloads the OpenAPI document. On failure the previous document
// stays in use.
func (p *OpenAPIDocsGenPlugin) ReloadSpec(ctx context.Context) error {
	if p.source == "" {
		return derrors.PluginError("openapi-docs-gen: ReloadSpec called before OnConfig").Build()
	}

	p.reloadMu.Lock()
	defer p.reloadMu.Unlock()

	doc, err := p.load(ctx)
	if err != nil {
		p.logger.Warn("OpenAPI reload failed; keeping previous document",
			logfields.Spec(p.source), logfields.Error(err))
		return err
	}
	p.doc.Store(doc)
	p.logger.Info("Reloaded OpenAPI document",
		logfields.Spec(p.source), logfields.Count(len(doc.PathNames())))
	return nil
}

func (p *OpenAPIDocsGenPlugin) load(ctx context.Context) (*openapispec.Document, error) {
	doc, err := openapispec.Load(ctx, p.source, openapispec.WithRetry(p.settings.Retry.Policy()))
	if err != nil {
		p.rec.IncSpecLoad(metrics.ResultFailed)
		return nil, err
	}
	p.rec.IncSpecLoad(metrics.ResultSuccess)
	return doc, nil
}

// Document returns the current OpenAPI document, or nil before OnConfig.
func (p *OpenAPIDocsGenPlugin) Document() *openapispec.Document {
	return p.doc.Load()
}

// Lookup finds an operation in the current document.
func (p *OpenAPIDocsGenPlugin) Lookup(path, method string) (*openapispec.Operation, error) {
	doc := p.doc.Load()
	if doc == nil {
		return nil, derrors.PluginError("OpenAPI document is not loaded").
			WithContext("plugin", OpenAPIDocsGenName).
			Build()
	}
	return doc.Lookup(path, method)
}

// OnPageMarkdown replaces docs.endpoint blocks in pg.
func (p *OpenAPIDocsGenPlugin) OnPageMarkdown(ctx context.Context, pg *Page) error {
	if p.processor == nil {
		return derrors.PluginError("openapi-docs-gen: page processed before OnConfig").
			WithContext("page", pg.RelPath).
			Build()
	}

	res, err := p.processor.Process(ctx, pg.RelPath, pg.Markdown)
	if err != nil {
		return fmt.Errorf("%s: %w", pg.RelPath, err)
	}

	pg.Markdown = res.Markdown
	pg.Rendered += res.Rendered
	pg.Failed += res.Failed()
	p.rec.AddEndpointsRendered(res.Rendered)
	for _, e := range res.Errors {
		p.rec.IncEndpointError(e.Kind)
	}
	return nil
}
