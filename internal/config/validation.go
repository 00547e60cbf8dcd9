package config

import (
	"fmt"
	"path/filepath"
	"strings"

	derrors "git.home.luguber.info/inful/openapi-docs-gen/internal/foundation/errors"
)

// Validate checks the configuration for structural problems.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.DocsDir) == "" {
		return derrors.ConfigError("docs_dir must not be empty").Build()
	}
	if strings.TrimSpace(c.SiteDir) == "" {
		return derrors.ConfigError("site_dir must not be empty").Build()
	}

	docs, err := filepath.Abs(c.DocsPath())
	if err != nil {
		return derrors.WrapError(err, derrors.CategoryConfig, "resolve docs_dir").Build()
	}
	site, err := filepath.Abs(c.SitePath())
	if err != nil {
		return derrors.WrapError(err, derrors.CategoryConfig, "resolve site_dir").Build()
	}
	if docs == site {
		return derrors.ConfigError("site_dir must differ from docs_dir").Build()
	}
	if rel, err := filepath.Rel(docs, site); err == nil && !strings.HasPrefix(rel, "..") {
		return derrors.ConfigError(fmt.Sprintf("site_dir %q must not be inside docs_dir %q", c.SiteDir, c.DocsDir)).Build()
	}

	seen := make(map[string]bool, len(c.Plugins))
	for i, p := range c.Plugins {
		if strings.TrimSpace(p.Name) == "" {
			return derrors.ConfigError(fmt.Sprintf("plugins[%d]: name must not be empty", i)).Build()
		}
		if seen[p.Name] {
			return derrors.ConfigError(fmt.Sprintf("plugin %s is configured more than once", p.Name)).Build()
		}
		seen[p.Name] = true
	}

	if c.Watch.Debounce < 0 {
		return derrors.ConfigError("watch.debounce must not be negative").Build()
	}
	if c.Watch.SpecRefreshInterval < 0 {
		return derrors.ConfigError("watch.spec_refresh_interval must not be negative").Build()
	}
	if !strings.HasPrefix(c.Serve.MetricsPath, "/") {
		return derrors.ConfigError("serve.metrics_path must start with '/'").Build()
	}
	return nil
}
