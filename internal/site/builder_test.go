package site

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/openapi-docs-gen/internal/config"
	derrors "git.home.luguber.info/inful/openapi-docs-gen/internal/foundation/errors"
	"git.home.luguber.info/inful/openapi-docs-gen/internal/plugin"
)

const petsPage = `---
title: Pets
---
# Pets

::: docs.endpoint
path: /pets/{petId}
http_method: get
endpoint_title: Get a pet
:::
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

// newProject lays out a project directory and returns its loaded config.
func newProject(t *testing.T, pluginYAML string) *config.Config {
	t.Helper()
	root := t.TempDir()

	spec, err := os.ReadFile(filepath.Join("..", "openapispec", "testdata", "petstore.yaml"))
	require.NoError(t, err)
	writeFile(t, filepath.Join(root, "openapi.yaml"), string(spec))

	writeFile(t, filepath.Join(root, "docs", "index.md"), "# Home\n\nNo endpoints here.\n")
	writeFile(t, filepath.Join(root, "docs", "api", "pets.md"), petsPage)
	writeFile(t, filepath.Join(root, "docs", "img", "logo.svg"), "<svg/>")
	writeFile(t, filepath.Join(root, "docs", ".drafts", "secret.md"), "# Draft\n")

	cfgPath := filepath.Join(root, config.DefaultFile)
	writeFile(t, cfgPath, "site_name: Test\nplugins:\n"+pluginYAML)
	cfg, err := config.Load(cfgPath)
	require.NoError(t, err)
	return cfg
}

const defaultPluginYAML = "  - openapi-docs-gen:\n      openapi_file: openapi.yaml\n"

func configuredBuilder(t *testing.T, cfg *config.Config, opts ...Option) *Builder {
	t.Helper()
	b := NewBuilder(cfg, opts...)
	require.NoError(t, b.Configure(context.Background()))
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestBuild_WritesPagesAndAssets(t *testing.T) {
	cfg := newProject(t, defaultPluginYAML)
	b := configuredBuilder(t, cfg)

	report, err := b.Build(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, report.BuildID)
	require.Equal(t, 2, report.Pages)
	require.Equal(t, 2, report.Written)
	require.Equal(t, 0, report.Unchanged)
	require.Equal(t, 1, report.Assets)
	require.Equal(t, 1, report.Rendered)
	require.Equal(t, 0, report.Failed)
	require.Contains(t, report.String(), "2 pages (2 written, 0 unchanged)")

	out, err := os.ReadFile(filepath.Join(cfg.SitePath(), "api", "pets.md"))
	require.NoError(t, err)
	require.Contains(t, string(out), "---\ntitle: Pets\n---\n# Pets\n\n## <icon class=\"\" />&nbsp; Get a pet")
	require.Contains(t, string(out), "` /pets/{petId}` -- Info for a specific pet")
	require.NotContains(t, string(out), "::: docs.endpoint")

	logo, err := os.ReadFile(filepath.Join(cfg.SitePath(), "img", "logo.svg"))
	require.NoError(t, err)
	require.Equal(t, "<svg/>", string(logo))

	require.NoFileExists(t, filepath.Join(cfg.SitePath(), ".drafts", "secret.md"))
}

func TestBuild_SkipsUnchangedOutputs(t *testing.T) {
	cfg := newProject(t, defaultPluginYAML)
	b := configuredBuilder(t, cfg)

	first, err := b.Build(context.Background())
	require.NoError(t, err)

	second, err := b.Build(context.Background())
	require.NoError(t, err)
	require.NotEqual(t, first.BuildID, second.BuildID)
	require.Equal(t, 0, second.Written)
	require.Equal(t, 2, second.Unchanged)
	require.Equal(t, 0, second.Assets)

	writeFile(t, filepath.Join(cfg.DocsPath(), "index.md"), "# Home\n\nChanged.\n")
	third, err := b.Build(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, third.Written)
	require.Equal(t, 1, third.Unchanged)
}

func TestBuild_InlineErrorsAreCounted(t *testing.T) {
	cfg := newProject(t, defaultPluginYAML)
	writeFile(t, filepath.Join(cfg.DocsPath(), "broken.md"), "::: docs.endpoint\npath: /missing\n:::\n")
	b := configuredBuilder(t, cfg)

	report, err := b.Build(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, report.Failed)

	out, err := os.ReadFile(filepath.Join(cfg.SitePath(), "broken.md"))
	require.NoError(t, err)
	require.Contains(t, string(out), "**Error rendering docs.endpoint**")
}

func TestBuild_PagesOpeningWithRuleAreCopied(t *testing.T) {
	cfg := newProject(t, defaultPluginYAML)
	rule := "---\n\nIntro paragraph after a horizontal rule.\n"
	onlyMeta := "---\ntitle: Meta only\n---"
	writeFile(t, filepath.Join(cfg.DocsPath(), "rule.md"), rule)
	writeFile(t, filepath.Join(cfg.DocsPath(), "meta.md"), onlyMeta)
	b := configuredBuilder(t, cfg)

	report, err := b.Build(context.Background())
	require.NoError(t, err)
	require.Equal(t, 4, report.Pages)
	require.Equal(t, 0, report.Failed)

	out, err := os.ReadFile(filepath.Join(cfg.SitePath(), "rule.md"))
	require.NoError(t, err)
	require.Equal(t, rule, string(out))

	out, err = os.ReadFile(filepath.Join(cfg.SitePath(), "meta.md"))
	require.NoError(t, err)
	require.Equal(t, onlyMeta, string(out))
}

func TestBuild_StrictFailsBuild(t *testing.T) {
	cfg := newProject(t, "  - openapi-docs-gen:\n      openapi_file: openapi.yaml\n      strict: true\n")
	writeFile(t, filepath.Join(cfg.DocsPath(), "broken.md"), "::: docs.endpoint\nendpoint_title: No path\n:::\n")
	b := configuredBuilder(t, cfg)

	report, err := b.Build(context.Background())
	require.Error(t, err)
	require.NotNil(t, report)
	require.True(t, derrors.HasCategory(err, derrors.CategoryRender))
}

func TestBuild_MissingDocsDir(t *testing.T) {
	cfg := newProject(t, defaultPluginYAML)
	require.NoError(t, os.RemoveAll(cfg.DocsPath()))
	b := configuredBuilder(t, cfg)

	_, err := b.Build(context.Background())
	require.True(t, derrors.HasCategory(err, derrors.CategoryNotFound))
}

func TestBuild_BeforeConfigure(t *testing.T) {
	b := NewBuilder(newProject(t, defaultPluginYAML))

	_, err := b.Build(context.Background())
	require.Error(t, err)
	_, err = b.RenderPage(context.Background(), "a.md", nil)
	require.Error(t, err)
}

func TestConfigure_Errors(t *testing.T) {
	cfg := newProject(t, "  - does-not-exist\n")
	err := NewBuilder(cfg).Configure(context.Background())
	require.True(t, derrors.HasCategory(err, derrors.CategoryNotFound))

	cfg = newProject(t, "  - openapi-docs-gen\n")
	err = NewBuilder(cfg).Configure(context.Background())
	require.True(t, derrors.HasCategory(err, derrors.CategoryConfig))
	require.ErrorContains(t, err, "openapi_file is required")

	cfg = newProject(t, "  - openapi-docs-gen:\n      openapi_file: missing.yaml\n")
	err = NewBuilder(cfg).Configure(context.Background())
	require.ErrorContains(t, err, "does not exist")
}

func TestRenderPageAndWatchPaths(t *testing.T) {
	cfg := newProject(t, defaultPluginYAML)
	b := configuredBuilder(t, cfg)

	pg, err := b.RenderPage(context.Background(), "inline.md", []byte("::: docs.endpoint\npath: /health\n:::\n"))
	require.NoError(t, err)
	require.Equal(t, 1, pg.Rendered)
	require.Contains(t, string(pg.Markdown), "` /health` -- Health probe")

	require.Equal(t, []string{cfg.DocsPath(), filepath.Join(cfg.Dir(), "openapi.yaml")}, b.WatchPaths())

	p, ok := b.Plugin(plugin.OpenAPIDocsGenName)
	require.True(t, ok)
	require.IsType(t, &plugin.OpenAPIDocsGenPlugin{}, p)
	require.NoError(t, b.ReloadSpecs(context.Background()))
}

type lifecyclePlugin struct {
	plugin.BasePlugin
	inits, cleanups *int
}

func (l *lifecyclePlugin) Metadata() plugin.PluginMetadata {
	return plugin.PluginMetadata{Name: "lifecycle", Version: "v1", Type: plugin.PluginTypeContent}
}

func (l *lifecyclePlugin) Init() error    { *l.inits++; return nil }
func (l *lifecyclePlugin) Cleanup() error { *l.cleanups++; return nil }

func (l *lifecyclePlugin) OnPageMarkdown(_ context.Context, pg *plugin.Page) error {
	pg.Markdown = append(pg.Markdown, []byte("\n<!-- built -->\n")...)
	return nil
}

func TestBuilder_LifecycleHooksAndPluginOrder(t *testing.T) {
	var inits, cleanups int
	reg := plugin.NewRegistry()
	require.NoError(t, reg.Register(func() plugin.Plugin { return plugin.NewOpenAPIDocsGenPlugin() }))
	require.NoError(t, reg.Register(func() plugin.Plugin {
		return &lifecyclePlugin{inits: &inits, cleanups: &cleanups}
	}))

	cfg := newProject(t, defaultPluginYAML+"  - lifecycle\n")
	b := NewBuilder(cfg, WithRegistry(reg))
	require.NoError(t, b.Configure(context.Background()))
	require.Equal(t, 1, inits)

	pg, err := b.RenderPage(context.Background(), "x.md", []byte("::: docs.endpoint\npath: /health\n:::\n"))
	require.NoError(t, err)
	require.Contains(t, string(pg.Markdown), "Liveness information.")
	require.Contains(t, string(pg.Markdown), "<!-- built -->")

	require.NoError(t, b.Close())
	require.Equal(t, 1, cleanups)
	_, err = b.Build(context.Background())
	require.Error(t, err)
}
