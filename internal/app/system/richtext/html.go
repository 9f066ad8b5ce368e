package richtext

import (
	"html"
	"strings"

	xhtml "golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ToHTML serializes the document.
//
// Text outside any range is emitted as-is, each range is wrapped in its tag
// (strong, em, u, or mark with an inline background color), and newlines
// become <br>. Text and colors are HTML-escaped. Output depends only on the
// document, so equal documents always render identically.
func ToHTML(d Document) string {
	runes := []rune(d.Text)
	if len(d.Formats) == 0 {
		return escapeText(string(runes))
	}

	formats := make([]FormatRange, len(d.Formats))
	copy(formats, d.Formats)
	sortFormats(formats)

	var b strings.Builder
	last := 0
	for _, f := range formats {
		start, end := clamp(f.Start, last, len(runes)), clamp(f.End, 0, len(runes))
		if end <= start {
			continue
		}
		b.WriteString(escapeText(string(runes[last:start])))

		inner := escapeText(string(runes[start:end]))
		switch f.Type {
		case Bold:
			b.WriteString("<strong>" + inner + "</strong>")
		case Italic:
			b.WriteString("<em>" + inner + "</em>")
		case Underline:
			b.WriteString("<u>" + inner + "</u>")
		case Highlight:
			color := f.Color
			if color == "" {
				color = DefaultHighlightColor
			}
			b.WriteString(`<mark style="background-color: ` + html.EscapeString(color) + `">` + inner + "</mark>")
		default:
			b.WriteString(inner)
		}
		last = end
	}
	b.WriteString(escapeText(string(runes[last:])))
	return b.String()
}

// FromHTML parses HTML back into a document.
//
// Text nodes append to the text. strong/b, em/i, u and mark record a range
// over the text their children contributed; mark takes its color from the
// inline background-color style. br appends a newline. Any other element
// contributes only its text.
func FromHTML(s string) (Document, error) {
	body := &xhtml.Node{Type: xhtml.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := xhtml.ParseFragment(strings.NewReader(s), body)
	if err != nil {
		return Document{}, err
	}

	p := &htmlParser{formats: []FormatRange{}}
	for _, n := range nodes {
		p.walk(n)
	}
	sortFormats(p.formats)
	return Document{Text: p.text.String(), Formats: p.formats}.Normalized(), nil
}

type htmlParser struct {
	text    strings.Builder
	offset  int
	formats []FormatRange
}

func (p *htmlParser) walk(n *xhtml.Node) {
	switch n.Type {
	case xhtml.TextNode:
		p.text.WriteString(n.Data)
		p.offset += len([]rune(n.Data))
		return
	case xhtml.ElementNode:
		if n.DataAtom == atom.Br {
			p.text.WriteByte('\n')
			p.offset++
			return
		}
	case xhtml.DocumentNode:
	default:
		return
	}

	start := p.offset
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		p.walk(c)
	}
	end := p.offset
	if end <= start || n.Type != xhtml.ElementNode {
		return
	}

	switch n.DataAtom {
	case atom.Strong, atom.B:
		p.formats = append(p.formats, FormatRange{Type: Bold, Start: start, End: end})
	case atom.Em, atom.I:
		p.formats = append(p.formats, FormatRange{Type: Italic, Start: start, End: end})
	case atom.U:
		p.formats = append(p.formats, FormatRange{Type: Underline, Start: start, End: end})
	case atom.Mark:
		color := backgroundColor(attr(n, "style"))
		if color == "" {
			color = DefaultHighlightColor
		}
		p.formats = append(p.formats, FormatRange{Type: Highlight, Start: start, End: end, Color: color})
	}
}

func attr(n *xhtml.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// backgroundColor extracts the background-color value from an inline style.
func backgroundColor(style string) string {
	for _, decl := range strings.Split(style, ";") {
		name, value, ok := strings.Cut(decl, ":")
		if !ok {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(name), "background-color") {
			return strings.TrimSpace(value)
		}
	}
	return ""
}

func escapeText(s string) string {
	return strings.ReplaceAll(html.EscapeString(s), "\n", "<br>")
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
