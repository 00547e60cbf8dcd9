package main

import (
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/openapi-docs-gen/cmd/openapi-docs-gen/commands"
	derrors "git.home.luguber.info/inful/openapi-docs-gen/internal/foundation/errors"
	"git.home.luguber.info/inful/openapi-docs-gen/internal/version"
)

func main() {
	cli := &commands.CLI{}
	parser := kong.Parse(cli,
		kong.Name("openapi-docs-gen"),
		kong.Description("Generate endpoint documentation pages from an OpenAPI document."),
		kong.UsageOnError(),
		kong.Vars{"version": version.String()},
	)

	global := &commands.Global{Logger: slog.Default(), Out: os.Stdout}
	if err := parser.Run(global, cli); err != nil {
		derrors.NewCLIErrorAdapter(cli.Verbose, slog.Default()).HandleError(err)
	}
}
