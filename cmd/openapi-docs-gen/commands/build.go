package commands

import (
	"context"
	"fmt"

	derrors "git.home.luguber.info/inful/openapi-docs-gen/internal/foundation/errors"
)

// BuildCmd implements the 'build' command.
type BuildCmd struct {
	FailOnError bool `name:"fail-on-error" help:"Exit non-zero when any docs.endpoint directive could not be rendered"`
}

func (b *BuildCmd) Run(g *Global, root *CLI) error {
	ctx := context.Background()
	builder, err := configuredBuilder(ctx, g, root, nil)
	if err != nil {
		return err
	}
	defer func() { _ = builder.Close() }()

	report, err := builder.Build(ctx)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(g.out(), report.String())

	if b.FailOnError && report.Failed > 0 {
		return derrors.RenderError(fmt.Sprintf("%d docs.endpoint directive(s) failed", report.Failed)).
			WithContext("build_id", report.BuildID).
			Build()
	}
	return nil
}
