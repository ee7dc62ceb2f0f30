// Package render builds HTML previews of aligned chants. The melody of each
// syllable pair is set in the Volpiano webfont with its text underneath, the
// layout chant databases use for side-by-side display. Output is either a
// bare chant fragment for embedding or a standalone page linking the
// stylesheet that declares the Volpiano font face.
package render

import (
	"fmt"
	"strings"

	"github.com/chantlab/neuma/core/align"
	"github.com/chantlab/neuma/core/encoding"
)

// DefaultStylesheet is the stylesheet linked from standalone pages. The
// referenced file must declare the volpiano @font-face.
const DefaultStylesheet = "static/volpiano.css"

// Options controls how an alignment is rendered.
type Options struct {
	// Title is shown as a heading beside the chant block.
	Title string
	// Standalone wraps the chant block in a complete HTML page with the
	// stylesheet link. When false only the fragment is returned.
	Standalone bool
	// Stylesheet overrides DefaultStylesheet in standalone pages.
	Stylesheet string
}

// Alignment renders aligned syllable pairs as an HTML chant block.
func Alignment(pairs []align.Pair, opts Options) string {
	fragment := chantBlock(opts.Title, pairs)
	if !opts.Standalone {
		return fragment
	}
	var b strings.Builder
	writeHead(&b, opts.Stylesheet)
	b.WriteString(fragment)
	b.WriteString("</body>\n")
	return b.String()
}

// Entry is one aligned chant in a multi-chant page.
type Entry struct {
	Title string
	Pairs []align.Pair
}

// Document accumulates aligned chants and renders them as one HTML page.
type Document struct {
	Stylesheet string
	Entries    []Entry
}

// NewDocument creates an empty page with the default stylesheet.
func NewDocument() *Document {
	return &Document{Stylesheet: DefaultStylesheet}
}

// SetStylesheet overrides the stylesheet href linked from the page head.
func (d *Document) SetStylesheet(href string) {
	d.Stylesheet = href
}

// AddChant appends an aligned chant under the given heading.
func (d *Document) AddChant(title string, pairs []align.Pair) {
	d.Entries = append(d.Entries, Entry{Title: title, Pairs: pairs})
}

// Build renders the accumulated chants as a complete HTML page.
func (d *Document) Build() string {
	var b strings.Builder
	writeHead(&b, d.Stylesheet)
	for _, entry := range d.Entries {
		b.WriteString(chantBlock(entry.Title, entry.Pairs))
	}
	b.WriteString("</body>\n")
	return b.String()
}

func writeHead(b *strings.Builder, stylesheet string) {
	if stylesheet == "" {
		stylesheet = DefaultStylesheet
	}
	b.WriteString(fmt.Sprintf(`<head>
<link href="%s" rel="stylesheet" media="screen">
</head>
<body>
`, encoding.EscapeXMLAttr(stylesheet)))
}

// chantBlock lays the pairs out in one flex row. Each pair stacks the melody
// over its text so syllable widths stay in step across the row.
func chantBlock(title string, pairs []align.Pair) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf(`<div style="display:flex"><h4>%s</h4>
`, encoding.EscapeHTML(title)))
	for _, pair := range pairs {
		b.WriteString(fmt.Sprintf(`<span style="float: left"><div style="font-family: volpiano; font-size: 36px; white-space: nowrap">%s</div><div class="mt-2" style="font-size: 12px"><pre>%s</pre></div></span>
`, encoding.EscapeHTML(pair.Volpiano), encoding.EscapeHTML(pair.Text)))
	}
	b.WriteString("</div>\n")
	return b.String()
}
