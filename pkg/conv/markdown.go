package conv

import (
	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/inbucket/html2text"
	"github.com/microcosm-cc/bluemonday"
)

var (
	extensions = parser.CommonExtensions | parser.NoEmptyLineBeforeBlock
	htmlFlags  = html.CommonFlags
	textPolicy = bluemonday.NewPolicy()
)

func init() {
	// Structural tags only. Inline emphasis (b/strong/i/em) is stripped
	// here, otherwise html2text would re-emit it as *...* markers.
	textPolicy.AllowElements(
		"p", "br", "h1", "h2", "h3", "h4", "h5", "h6",
		"ul", "ol", "li",
		"code", "pre", "blockquote", "hr",
	)
	textPolicy.AllowAttrs("href").OnElements("a")
}

// MarkdownToPlain renders markdown to plain text via a sanitized HTML
// intermediate.
func MarkdownToPlain(md []byte) (string, error) {
	// 1. Render HTML
	p := parser.NewWithExtensions(extensions)
	renderer := html.NewRenderer(html.RendererOptions{Flags: htmlFlags})
	unsafeHTML := markdown.Render(p.Parse(md), renderer)

	// 2. Sanitize tags
	sanitized := textPolicy.SanitizeBytes(unsafeHTML)

	// 3. Flatten to text
	return html2text.FromString(string(sanitized), html2text.Options{
		OmitLinks:    true,
		PrettyTables: false,
	})
}
