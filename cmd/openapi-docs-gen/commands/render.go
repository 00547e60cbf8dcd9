package commands

import (
	"context"
	"io"
	"os"
	"path/filepath"

	derrors "git.home.luguber.info/inful/openapi-docs-gen/internal/foundation/errors"
)

// RenderCmd implements the 'render' command.
type RenderCmd struct {
	File   string `arg:"" help:"Markdown page to render, or - for stdin"`
	Output string `short:"o" help:"Write the result to this file instead of stdout" type:"path"`
}

func (r *RenderCmd) Run(g *Global, root *CLI) error {
	content, name, err := r.read()
	if err != nil {
		return err
	}

	ctx := context.Background()
	builder, err := configuredBuilder(ctx, g, root, nil)
	if err != nil {
		return err
	}
	defer func() { _ = builder.Close() }()

	pg, err := builder.RenderPage(ctx, name, content)
	if err != nil {
		return err
	}

	if r.Output == "" {
		_, err = g.out().Write(pg.Markdown)
		return err
	}
	if err := os.WriteFile(r.Output, pg.Markdown, 0o644); err != nil {
		return derrors.WrapError(err, derrors.CategoryFileSystem, "failed to write output").
			WithContext("file", r.Output).
			Build()
	}
	return nil
}

func (r *RenderCmd) read() ([]byte, string, error) {
	if r.File == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, "", derrors.WrapError(err, derrors.CategoryFileSystem, "failed to read stdin").Build()
		}
		return data, "stdin.md", nil
	}
	data, err := os.ReadFile(r.File)
	if err != nil {
		return nil, "", derrors.WrapError(err, derrors.CategoryFileSystem, "failed to read page").
			WithContext("file", r.File).
			Build()
	}
	return data, filepath.Base(r.File), nil
}
