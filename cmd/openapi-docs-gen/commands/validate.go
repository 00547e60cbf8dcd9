package commands

import (
	"context"
	"fmt"
)

// ValidateCmd implements the 'validate' command.
type ValidateCmd struct {
	Spec string `arg:"" optional:"" help:"OpenAPI file or URL (defaults to the plugin's openapi_file)"`
}

func (v *ValidateCmd) Run(g *Global, root *CLI) error {
	doc, err := loadSpec(context.Background(), v.Spec, root)
	if err != nil {
		return err
	}
	info := doc.Info()
	_, _ = fmt.Fprintf(g.out(), "OK: %s %s (OpenAPI %s, %d paths, %d operations)\n",
		info.Title, info.Version, doc.OpenAPIVersion(), len(doc.PathNames()), len(doc.Operations()))
	return nil
}
