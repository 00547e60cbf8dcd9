package plugin

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	derrors "git.home.luguber.info/inful/openapi-docs-gen/internal/foundation/errors"
)

type stubPlugin struct {
	BasePlugin
	md PluginMetadata
}

func (s *stubPlugin) Metadata() PluginMetadata { return s.md }

func stubFactory(name, version string) Factory {
	return func() Plugin {
		return &stubPlugin{md: PluginMetadata{Name: name, Version: version, Type: PluginTypeContent}}
	}
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()

	require.NoError(t, r.Register(stubFactory("stub", "v1.0.0")))
	require.True(t, r.Has("stub"))
	require.False(t, r.Has("other"))

	err := r.Register(stubFactory("stub", "v1.0.0"))
	require.ErrorContains(t, err, "already registered")

	require.Error(t, r.Register(nil))
	require.Error(t, r.Register(func() Plugin { return nil }))
	require.ErrorContains(t, r.Register(stubFactory("", "v1")), "name is required")
	require.ErrorContains(t, r.Register(stubFactory("x", "")), "version is required")
}

func TestRegistry_NewReturnsFreshLatestInstance(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(stubFactory("stub", "v1.0.0")))
	require.NoError(t, r.Register(stubFactory("stub", "v1.1.0")))

	a, err := r.New("stub")
	require.NoError(t, err)
	b, err := r.New("stub")
	require.NoError(t, err)

	require.Equal(t, "v1.1.0", a.Metadata().Version)
	require.NotSame(t, a, b)

	old, err := r.Get("stub", "v1.0.0")
	require.NoError(t, err)
	require.Equal(t, "v1.0.0", old.Metadata().Version)
}

func TestRegistry_NotFound(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(stubFactory("stub", "v1.0.0")))

	_, err := r.New("missing")
	require.True(t, derrors.HasCategory(err, derrors.CategoryNotFound))
	require.ErrorContains(t, err, `plugin "missing" is not installed`)

	_, err = r.Get("stub", "v9")
	require.True(t, derrors.HasCategory(err, derrors.CategoryNotFound))
}

func TestRegistry_ListAndNames(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(stubFactory("zeta", "v1")))
	require.NoError(t, r.Register(stubFactory("alpha", "v2")))
	require.NoError(t, r.Register(stubFactory("alpha", "v1")))

	require.Equal(t, []string{"alpha", "zeta"}, r.Names())

	list := r.List()
	require.Len(t, list, 3)
	require.Equal(t, "alpha@v1 (content)", list[0].String())
	require.Equal(t, "alpha@v2 (content)", list[1].String())
	require.Equal(t, "zeta", list[2].Name)
}

func TestRegistry_Unregister(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(stubFactory("stub", "v1")))
	require.NoError(t, r.Register(stubFactory("stub", "v2")))

	require.NoError(t, r.Unregister("stub", "v2"))
	p, err := r.New("stub")
	require.NoError(t, err)
	require.Equal(t, "v1", p.Metadata().Version)

	require.Error(t, r.Unregister("stub", "v2"))
	require.NoError(t, r.Unregister("stub", "v1"))
	require.False(t, r.Has("stub"))
	require.Error(t, r.Unregister("stub", "v1"))
}

func TestDefaultRegistry_HasOpenAPIDocsGen(t *testing.T) {
	p, err := DefaultRegistry().New(OpenAPIDocsGenName)
	require.NoError(t, err)
	require.IsType(t, &OpenAPIDocsGenPlugin{}, p)
	require.True(t, p.Metadata().HasCapability("reload"))
}

func TestBasePlugin_NoOps(t *testing.T) {
	var b BasePlugin
	require.NoError(t, b.Init())
	require.NoError(t, b.Cleanup())
	require.NoError(t, b.Validate(map[string]any{"anything": 1}))
	require.NoError(t, b.OnConfig(context.Background(), NewPluginContext(nil, nil, nil)))
	require.NoError(t, b.OnPageMarkdown(context.Background(), &Page{}))
}

func TestPluginContext_AddWatch(t *testing.T) {
	pc := NewPluginContext(nil, nil, nil)
	pc.AddWatch("a.yaml")
	pc.AddWatch("b.yaml")
	pc.AddWatch("a.yaml")

	require.Equal(t, []string{"a.yaml", "b.yaml"}, pc.WatchPaths())
	require.NotNil(t, pc.Metrics)
	require.NotNil(t, pc.Config)
}
