package commands

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
)

// EndpointsCmd implements the 'endpoints' command.
type EndpointsCmd struct {
	Spec     string `arg:"" optional:"" help:"OpenAPI file or URL (defaults to the plugin's openapi_file)"`
	Snippets bool   `help:"Print a docs.endpoint block for every operation"`
}

func (e *EndpointsCmd) Run(g *Global, root *CLI) error {
	doc, err := loadSpec(context.Background(), e.Spec, root)
	if err != nil {
		return err
	}

	if e.Snippets {
		for _, op := range doc.Operations() {
			_, _ = fmt.Fprintf(g.out(), "::: docs.endpoint\npath: %s\nhttp_method: %s\n:::\n\n",
				op.Path, strings.ToLower(op.Method))
		}
		return nil
	}

	tw := tabwriter.NewWriter(g.out(), 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "METHOD\tPATH\tSUMMARY")
	for _, op := range doc.Operations() {
		summary := op.Summary
		if op.Deprecated {
			summary += " (deprecated)"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\n", op.Method, op.Path, summary)
	}
	return tw.Flush()
}
