// Package plugin defines the contract between the site builder and the
// plugins that transform pages, plus the entry-point registry plugins are
// discovered through.
package plugin

import (
	"context"
	"fmt"
)

// Plugin is a build extension. The builder calls Validate with the plugin's
// configured settings, then OnConfig once, then OnPageMarkdown for every page.
type Plugin interface {
	// Metadata returns the plugin's identity.
	Metadata() PluginMetadata

	// Validate decodes and checks the plugin's settings from the config file.
	Validate(settings map[string]any) error

	// OnConfig runs after the configuration is loaded and before any page is
	// processed. Plugins load their resources here.
	OnConfig(ctx context.Context, pctx *PluginContext) error

	// OnPageMarkdown may rewrite page.Markdown.
	OnPageMarkdown(ctx context.Context, page *Page) error
}

// PluginLifecycle extends Plugin with optional setup and teardown hooks.
type PluginLifecycle interface {
	Plugin

	// Init is called once after Validate.
	Init() error

	// Cleanup is called when the builder is closed.
	Cleanup() error
}

// PluginType identifies the category of plugin.
type PluginType string

const (
	// PluginTypeContent rewrites page Markdown.
	PluginTypeContent PluginType = "content"

	// PluginTypeAsset contributes or transforms non-Markdown files.
	PluginTypeAsset PluginType = "asset"
)

// IsValid reports whether t is a known plugin type.
func (t PluginType) IsValid() bool {
	switch t {
	case PluginTypeContent, PluginTypeAsset:
		return true
	default:
		return false
	}
}

// PluginMetadata describes a plugin.
type PluginMetadata struct {
	// Name is the entry-point name used in the config file's plugins list.
	Name string

	Version     string
	Type        PluginType
	Description string

	// Capabilities lists optional features, e.g. "watch".
	Capabilities []string
}

func (m PluginMetadata) String() string {
	return fmt.Sprintf("%s@%s (%s)", m.Name, m.Version, m.Type)
}

// Validate checks that the metadata identifies a plugin.
func (m PluginMetadata) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("plugin name is required")
	}
	if m.Version == "" {
		return fmt.Errorf("plugin version is required")
	}
	if !m.Type.IsValid() {
		return fmt.Errorf("invalid plugin type: %q", m.Type)
	}
	return nil
}

// HasCapability reports whether the plugin declares capability c.
func (m PluginMetadata) HasCapability(c string) bool {
	for _, have := range m.Capabilities {
		if have == c {
			return true
		}
	}
	return false
}

// BasePlugin provides no-op hooks. Plugins embed it and override what they need.
type BasePlugin struct{}

func (BasePlugin) Init() error { return nil }

func (BasePlugin) Cleanup() error { return nil }

func (BasePlugin) Validate(map[string]any) error { return nil }

func (BasePlugin) OnConfig(context.Context, *PluginContext) error { return nil }

func (BasePlugin) OnPageMarkdown(context.Context, *Page) error { return nil }
