package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/openapi-docs-gen/internal/config"
	derrors "git.home.luguber.info/inful/openapi-docs-gen/internal/foundation/errors"
	"git.home.luguber.info/inful/openapi-docs-gen/internal/metrics"
	"git.home.luguber.info/inful/openapi-docs-gen/internal/server"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

// newProject creates a project with a petstore document and returns the
// config file path.
func newProject(t *testing.T, pluginYAML string) string {
	t.Helper()
	root := t.TempDir()

	spec, err := os.ReadFile(filepath.Join("..", "..", "..", "internal", "openapispec", "testdata", "petstore.yaml"))
	require.NoError(t, err)
	writeFile(t, filepath.Join(root, "openapi.yaml"), string(spec))
	writeFile(t, filepath.Join(root, "docs", "index.md"), "# API\n\n::: docs.endpoint\npath: /health\n:::\n")
	writeFile(t, filepath.Join(root, "docs", "about.md"), "# About\n")

	cfgPath := filepath.Join(root, config.DefaultFile)
	writeFile(t, cfgPath, "plugins:\n"+pluginYAML+"serve:\n  addr: 127.0.0.1:0\n")
	return cfgPath
}

const pluginYAML = "  - openapi-docs-gen:\n      openapi_file: openapi.yaml\n"

// run parses args and runs the selected command, returning its output.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var cli CLI
	parser, err := kong.New(&cli, kong.Name("openapi-docs-gen"), kong.Vars{"version": "test"},
		kong.Exit(func(int) { t.Fatal("unexpected exit") }))
	require.NoError(t, err)

	kctx, err := parser.Parse(args)
	require.NoError(t, err)

	var out bytes.Buffer
	err = kctx.Run(&Global{Out: &out}, &cli)
	return out.String(), err
}

func TestBuildCommand(t *testing.T) {
	cfgPath := newProject(t, pluginYAML)

	out, err := run(t, "-c", cfgPath, "build")
	require.NoError(t, err)
	require.Contains(t, out, "2 pages (2 written, 0 unchanged)")
	require.Contains(t, out, "1 endpoints rendered, 0 failed")

	page, err := os.ReadFile(filepath.Join(filepath.Dir(cfgPath), "site", "index.md"))
	require.NoError(t, err)
	require.Contains(t, string(page), "` /health` -- Health probe")
}

func TestBuildCommand_FailOnError(t *testing.T) {
	cfgPath := newProject(t, pluginYAML)
	writeFile(t, filepath.Join(filepath.Dir(cfgPath), "docs", "bad.md"), "::: docs.endpoint\npath: /nope\n:::\n")

	_, err := run(t, "-c", cfgPath, "build")
	require.NoError(t, err)

	_, err = run(t, "-c", cfgPath, "build", "--fail-on-error")
	require.True(t, derrors.HasCategory(err, derrors.CategoryRender))
	require.Equal(t, 11, derrors.NewCLIErrorAdapter(false, nil).ExitCodeFor(err))
}

func TestBuildCommand_MissingConfig(t *testing.T) {
	_, err := run(t, "-c", filepath.Join(t.TempDir(), "missing.yaml"), "build")
	require.True(t, derrors.HasCategory(err, derrors.CategoryConfig))
}

func TestRenderCommand(t *testing.T) {
	cfgPath := newProject(t, pluginYAML)
	page := filepath.Join(t.TempDir(), "pets.md")
	writeFile(t, page, "::: docs.endpoint\npath: /pets\nhttp_method: post\ntips:\n    Send JSON\n:::\n")

	out, err := run(t, "-c", cfgPath, "render", page)
	require.NoError(t, err)
	require.Contains(t, out, "### <span class=\"http-post\">POST</span>` /pets` -- Create a pet")
	require.Contains(t, out, "!!! tip \"Method Tips\"\n    Send JSON\n")

	dest := filepath.Join(t.TempDir(), "out.md")
	out, err = run(t, "-c", cfgPath, "render", page, "-o", dest)
	require.NoError(t, err)
	require.Empty(t, out)
	written, err := os.ReadFile(dest)
	require.NoError(t, err)
	require.Contains(t, string(written), "Create a pet")
}

func TestValidateCommand(t *testing.T) {
	cfgPath := newProject(t, pluginYAML)

	out, err := run(t, "-c", cfgPath, "validate")
	require.NoError(t, err)
	require.Equal(t, "OK: Swagger Petstore 1.0.0 (OpenAPI 3.0.3, 3 paths, 5 operations)\n", out)

	invalid, err := filepath.Abs(filepath.Join("..", "..", "..", "internal", "openapispec", "testdata", "invalid.yaml"))
	require.NoError(t, err)
	_, err = run(t, "-c", cfgPath, "validate", invalid)
	require.True(t, derrors.HasCategory(err, derrors.CategorySpec))
}

func TestValidateCommand_PluginNotConfigured(t *testing.T) {
	cfgPath := newProject(t, "  - search\n")
	_, err := run(t, "-c", cfgPath, "validate")
	require.ErrorContains(t, err, "pass the OpenAPI file explicitly")
}

func TestEndpointsCommand(t *testing.T) {
	cfgPath := newProject(t, pluginYAML)

	out, err := run(t, "-c", cfgPath, "endpoints")
	require.NoError(t, err)
	require.Regexp(t, `METHOD\s+PATH\s+SUMMARY`, out)
	require.Regexp(t, `GET\s+/health\s+Health probe`, out)
	require.Regexp(t, `DELETE\s+/pets/\{petId\}\s+Delete a pet \(deprecated\)`, out)

	out, err = run(t, "-c", cfgPath, "endpoints", "--snippets")
	require.NoError(t, err)
	require.Contains(t, out, "::: docs.endpoint\npath: /pets\nhttp_method: post\n:::\n")
}

func TestInitCommand(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), config.DefaultFile)

	out, err := run(t, "-c", cfgPath, "init")
	require.NoError(t, err)
	require.Equal(t, "Wrote "+cfgPath+"\n", out)
	require.FileExists(t, cfgPath)

	_, err = run(t, "-c", cfgPath, "init")
	require.True(t, derrors.HasCategory(err, derrors.CategoryConfig))

	_, err = run(t, "-c", cfgPath, "init", "--force")
	require.NoError(t, err)
}

func TestServeCommand_BuildsAndStops(t *testing.T) {
	cfgPath := newProject(t, pluginYAML)
	var cli CLI
	cli.Config = cfgPath

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- (&ServeCmd{NoWatch: true}).run(ctx, &Global{}, &cli)
	}()

	require.Eventually(t, func() bool {
		_, err := os.Stat(filepath.Join(filepath.Dir(cfgPath), "site", "index.md"))
		return err == nil
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("serve did not stop")
	}
}

func TestRebuilder_TouchesSpecs(t *testing.T) {
	root := filepath.Join(string(filepath.Separator), "project")
	spec := filepath.Join(root, "docs", "openapi.yaml")
	r := &rebuilder{specPaths: []string{spec}}

	require.False(t, r.touchesSpecs([]string{filepath.Join(root, "docs", "index.md")}))
	require.False(t, r.touchesSpecs([]string{filepath.Join(root, "other.yaml")}))
	require.True(t, r.touchesSpecs([]string{filepath.Join(root, "docs", "a.md"), spec}))
}

func TestRebuilder_ReloadsSpecInsideDocsDir(t *testing.T) {
	cfgPath := newProject(t, "  - openapi-docs-gen:\n      openapi_file: docs/openapi.yaml\n")
	root := filepath.Dir(cfgPath)
	spec := filepath.Join(root, "docs", "openapi.yaml")
	require.NoError(t, os.Rename(filepath.Join(root, "openapi.yaml"), spec))

	ctx := context.Background()
	var cli CLI
	cli.Config = cfgPath
	b, err := configuredBuilder(ctx, &Global{}, &cli, metrics.NoopRecorder{})
	require.NoError(t, err)
	defer func() { _ = b.Close() }()

	r := newRebuilder(b, &server.BuildStatus{})
	require.NoError(t, r.build(ctx))

	raw, err := os.ReadFile(spec)
	require.NoError(t, err)
	writeFile(t, spec, strings.Replace(string(raw), "summary: Health probe", "summary: Health CHANGED", 1))

	require.NoError(t, r.onChange(ctx, []string{spec}))

	page, err := os.ReadFile(filepath.Join(root, "site", "index.md"))
	require.NoError(t, err)
	require.Contains(t, string(page), "Health CHANGED")
}
