// Package commands implements the openapi-docs-gen subcommands.
package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/openapi-docs-gen/internal/config"
	"git.home.luguber.info/inful/openapi-docs-gen/internal/metrics"
	"git.home.luguber.info/inful/openapi-docs-gen/internal/openapispec"
	"git.home.luguber.info/inful/openapi-docs-gen/internal/plugin"
	"git.home.luguber.info/inful/openapi-docs-gen/internal/site"
)

// Global is bound into every command's Run method.
type Global struct {
	Logger *slog.Logger
	// Out receives command output meant for the user (reports, rendered pages).
	Out io.Writer
}

func (g *Global) out() io.Writer {
	if g == nil || g.Out == nil {
		return os.Stdout
	}
	return g.Out
}

func (g *Global) logger() *slog.Logger {
	if g == nil || g.Logger == nil {
		return slog.Default()
	}
	return g.Logger
}

// CLI is the root command line.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"openapi-docs-gen.yaml" type:"path"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build     BuildCmd     `cmd:"" help:"Build the site from docs_dir into site_dir"`
	Render    RenderCmd    `cmd:"" help:"Render a single Markdown page to stdout"`
	Validate  ValidateCmd  `cmd:"" help:"Load and validate the configured OpenAPI document"`
	Endpoints EndpointsCmd `cmd:"" help:"List the operations in the OpenAPI document"`
	Serve     ServeCmd     `cmd:"" help:"Build, serve and rebuild the site on changes"`
	Init      InitCmd      `cmd:"" help:"Write an example configuration file"`
}

// AfterApply runs after flag parsing; setup logging once.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return nil
}

// configuredBuilder loads the configuration and configures a builder.
// Callers must Close the builder.
func configuredBuilder(ctx context.Context, g *Global, root *CLI, rec metrics.Recorder) (*site.Builder, error) {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return nil, err
	}
	b := site.NewBuilder(cfg, site.WithLogger(g.logger()), site.WithRecorder(rec))
	if err := b.Configure(ctx); err != nil {
		_ = b.Close()
		return nil, err
	}
	return b, nil
}

// resolveSpec returns the OpenAPI source to use: the explicit argument when
// given, otherwise the openapi-docs-gen plugin's openapi_file from the
// configuration, resolved against the config file directory.
func resolveSpec(explicit string, root *CLI) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	cfg, err := config.Load(root.Config)
	if err != nil {
		return "", err
	}
	pc, ok := cfg.Plugin(plugin.OpenAPIDocsGenName)
	if !ok {
		return "", fmt.Errorf("plugin %s is not configured in %s; pass the OpenAPI file explicitly", plugin.OpenAPIDocsGenName, cfg.Path())
	}
	p := plugin.NewOpenAPIDocsGenPlugin()
	if err := p.Validate(pc.Settings); err != nil {
		return "", err
	}
	return cfg.ResolvePath(p.Settings().OpenAPIFile), nil
}

func loadSpec(ctx context.Context, explicit string, root *CLI) (*openapispec.Document, error) {
	source, err := resolveSpec(explicit, root)
	if err != nil {
		return nil, err
	}
	return openapispec.Load(ctx, source)
}
