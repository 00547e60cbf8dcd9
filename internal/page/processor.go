// Package page replaces docs.endpoint directives in a single Markdown page.
package page

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"git.home.luguber.info/inful/openapi-docs-gen/internal/directive"
	derrors "git.home.luguber.info/inful/openapi-docs-gen/internal/foundation/errors"
	"git.home.luguber.info/inful/openapi-docs-gen/internal/frontmatter"
	"git.home.luguber.info/inful/openapi-docs-gen/internal/logfields"
	"git.home.luguber.info/inful/openapi-docs-gen/internal/markdown"
)

// Renderer renders one directive's arguments into Markdown.
type Renderer interface {
	Render(args directive.EndpointArguments) (string, error)
}

// Failure kinds reported in BlockError.Kind.
const (
	KindArguments = "arguments"
	KindRender    = "render"
)

// BlockError describes a directive that could not be rendered.
type BlockError struct {
	Kind   string
	Offset int
	Err    error
}

func (e BlockError) Error() string {
	return fmt.Sprintf("docs.endpoint at byte %d: %v", e.Offset, e.Err)
}

// Result is the outcome of processing one page.
type Result struct {
	Markdown []byte
	Rendered int
	Skipped  int
	Errors   []BlockError
}

// Failed returns the number of directives that were replaced by an error message.
func (r Result) Failed() int {
	return len(r.Errors)
}

// Processor replaces directives in page content.
type Processor struct {
	renderer Renderer
	strict   bool
	logger   *slog.Logger
}

// Option configures a Processor.
type Option func(*Processor)

// WithStrict makes Process fail when any directive cannot be rendered.
func WithStrict(strict bool) Option {
	return func(p *Processor) { p.strict = strict }
}

// WithLogger sets the logger used for per-directive diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Processor) { p.logger = logger }
}

// NewProcessor creates a processor that renders directives with renderer.
func NewProcessor(renderer Renderer, opts ...Option) *Processor {
	p := &Processor{renderer: renderer, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Process renders every directive in content. name identifies the page in
// logs and errors. Frontmatter and all text outside directives is kept
// byte-for-byte; directives inside code blocks are left alone.
func (p *Processor) Process(ctx context.Context, name string, content []byte) (Result, error) {
	doc := frontmatter.Split(content)

	blocks := directive.Find(doc.Body)
	if len(blocks) == 0 {
		return Result{Markdown: content}, nil
	}

	code := markdown.CodeRanges(doc.Body)
	res := Result{}
	edits := make([]markdown.Edit, 0, len(blocks))

	for _, block := range blocks {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		if markdown.InCode(code, block.Start) {
			res.Skipped++
			continue
		}

		replacement, blockErr := p.renderBlock(block)
		if blockErr != nil {
			res.Errors = append(res.Errors, *blockErr)
			p.logger.Warn("docs.endpoint could not be rendered",
				logfields.Page(name),
				slog.String("kind", blockErr.Kind),
				logfields.Error(blockErr.Err))
		} else {
			res.Rendered++
		}
		edits = append(edits, markdown.Edit{Start: block.Start, End: block.End, Replacement: []byte(replacement)})
	}

	if p.strict && len(res.Errors) > 0 {
		return Result{}, derrors.RenderError(fmt.Sprintf("%d docs.endpoint directive(s) failed", len(res.Errors))).
			WithContext("page", name).
			WithCause(errors.Join(blockErrs(res.Errors)...)).
			Build()
	}

	body, err := markdown.ApplyEdits(doc.Body, edits)
	if err != nil {
		return Result{}, derrors.WrapError(err, derrors.CategoryInternal, "apply directive edits").
			WithContext("page", name).
			Build()
	}
	res.Markdown = doc.Join(body)
	return res, nil
}

func (p *Processor) renderBlock(block directive.Block) (string, *BlockError) {
	args, err := directive.ParseArguments(block.Content)
	if err != nil {
		return fmt.Sprintf("**Error parsing docs.endpoint**: %v", err),
			&BlockError{Kind: KindArguments, Offset: block.Start, Err: err}
	}
	if len(args.Unknown) > 0 {
		p.logger.Debug("Ignoring unknown docs.endpoint keys",
			logfields.APIPath(args.Path),
			slog.Any("keys", args.Unknown))
	}

	out, err := p.renderer.Render(args)
	if err != nil {
		msg := err.Error()
		if c, ok := derrors.AsClassified(err); ok {
			msg = c.Message()
		}
		return fmt.Sprintf("**Error rendering docs.endpoint**: %s", msg),
			&BlockError{Kind: KindRender, Offset: block.Start, Err: err}
	}
	return out, nil
}

func blockErrs(in []BlockError) []error {
	out := make([]error, 0, len(in))
	for _, e := range in {
		out = append(out, e)
	}
	return out
}
