package site

import (
	"fmt"
	"time"
)

// Report summarizes one build.
type Report struct {
	BuildID string

	// Pages is the number of Markdown pages processed.
	Pages int
	// Written and Unchanged split Pages by whether the output file changed.
	Written   int
	Unchanged int
	// Assets is the number of non-Markdown files copied because they changed.
	Assets int

	// Rendered and Failed count docs.endpoint directives across all pages.
	Rendered int
	Failed   int

	Duration time.Duration
}

func (r *Report) String() string {
	return fmt.Sprintf("build %s: %d pages (%d written, %d unchanged), %d assets, %d endpoints rendered, %d failed in %s",
		r.BuildID, r.Pages, r.Written, r.Unchanged, r.Assets, r.Rendered, r.Failed, r.Duration.Round(time.Millisecond))
}
