package plugin

// Page is one Markdown source file moving through the plugin pipeline.
type Page struct {
	// RelPath is the path relative to docs_dir, using forward slashes.
	RelPath string

	// SourcePath is the file on disk, empty for pages rendered from memory.
	SourcePath string

	// Markdown is the current page content. Plugins replace it.
	Markdown []byte

	// Rendered and Failed count the directives plugins expanded or replaced
	// with an error message.
	Rendered int
	Failed   int
}
