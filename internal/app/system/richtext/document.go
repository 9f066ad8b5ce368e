// Package richtext models editor content as plain text plus formatting
// ranges, and converts that model to and from HTML.
//
// Offsets are half-open [Start, End) and count Unicode code points, not bytes.
package richtext

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"
)

// FormatType is the kind of formatting a range applies.
type FormatType string

// Format types
const (
	Bold      FormatType = "bold"
	Italic    FormatType = "italic"
	Underline FormatType = "underline"
	Highlight FormatType = "highlight"
)

// DefaultHighlightColor is used when a highlight is applied without a color.
const DefaultHighlightColor = "#ffff00"

// Bullet is the prefix inserted by InsertBullet.
const Bullet = "• "

var (
	// ErrEmptySelection is returned when a format is applied to a zero-length span.
	ErrEmptySelection = errors.New("richtext: empty selection")
	// ErrUnknownFormat is returned for a format type other than bold, italic, underline or highlight.
	ErrUnknownFormat = errors.New("richtext: unknown format type")
	// ErrOutOfRange is returned when an offset falls outside the text.
	ErrOutOfRange = errors.New("richtext: offset out of range")
)

// IsValidFormatType reports whether t is a known format type.
func IsValidFormatType(t FormatType) bool {
	switch t {
	case Bold, Italic, Underline, Highlight:
		return true
	}
	return false
}

// FormatRange applies one format to the text in [Start, End).
// Color is only set for highlights.
type FormatRange struct {
	Type  FormatType `json:"type"`
	Start int        `json:"start"`
	End   int        `json:"end"`
	Color string     `json:"color,omitempty"`
}

// Document is editor content: the text the user types and the ranges
// formatting it. Formats are kept sorted by Start.
//
// Document values are treated as immutable; every edit returns a new
// Document and leaves the receiver untouched.
type Document struct {
	Text    string        `json:"text"`
	Formats []FormatRange `json:"formats"`
}

// NewDocument returns a document with the given text and no formatting.
// Line endings are folded to "\n" and NUL is dropped.
func NewDocument(text string) Document {
	text, _ = normalizeText(text)
	return Document{Text: text, Formats: []FormatRange{}}
}

// Len returns the length of the text in code points.
func (d Document) Len() int {
	return utf8.RuneCountInString(d.Text)
}

// Clone returns a copy of d that shares no memory with it.
func (d Document) Clone() Document {
	formats := make([]FormatRange, len(d.Formats))
	copy(formats, d.Formats)
	return Document{Text: d.Text, Formats: formats}
}

// Equal reports whether two documents have the same text and ranges.
func (d Document) Equal(o Document) bool {
	if d.Text != o.Text || len(d.Formats) != len(o.Formats) {
		return false
	}
	for i := range d.Formats {
		if d.Formats[i] != o.Formats[i] {
			return false
		}
	}
	return true
}

// ApplyFormat applies a format to [start, end).
//
// If a range with the same type and bounds already exists it is removed
// (toggle off). Otherwise every range overlapping [start, end), of any type,
// is dropped whole and the new range is inserted. Overlapping ranges are not
// clipped to their non-overlapping remainder.
func (d Document) ApplyFormat(t FormatType, start, end int, color string) (Document, error) {
	if !IsValidFormatType(t) {
		return d, fmt.Errorf("%w: %q", ErrUnknownFormat, t)
	}
	if start == end {
		return d, ErrEmptySelection
	}
	if start < 0 || start > end || end > d.Len() {
		return d, fmt.Errorf("%w: [%d, %d) in text of length %d", ErrOutOfRange, start, end, d.Len())
	}

	out := Document{Text: d.Text, Formats: make([]FormatRange, 0, len(d.Formats)+1)}

	for i, f := range d.Formats {
		if f.Type == t && f.Start == start && f.End == end {
			out.Formats = append(out.Formats, d.Formats[:i]...)
			out.Formats = append(out.Formats, d.Formats[i+1:]...)
			return out, nil
		}
	}

	for _, f := range d.Formats {
		if f.Start < end && f.End > start {
			continue
		}
		out.Formats = append(out.Formats, f)
	}

	nf := FormatRange{Type: t, Start: start, End: end}
	if t == Highlight {
		nf.Color = color
		if nf.Color == "" {
			nf.Color = DefaultHighlightColor
		}
	}
	out.Formats = append(out.Formats, nf)
	sortFormats(out.Formats)
	return out, nil
}

// InsertText splices text into the document at offset at. "\r\n" and a
// lone "\r" are inserted as "\n"; NUL is dropped.
//
// Ranges starting after at are shifted right by the inserted length. A range
// that starts at or before at keeps its bounds, so text typed inside or right
// after a formatted span is not pulled into the format.
func (d Document) InsertText(text string, at int) (Document, error) {
	runes := []rune(d.Text)
	if at < 0 || at > len(runes) {
		return d, fmt.Errorf("%w: %d in text of length %d", ErrOutOfRange, at, len(runes))
	}
	if text == "" {
		return d.Clone(), nil
	}

	text, _ = normalizeText(text)
	if text == "" {
		return d.Clone(), nil
	}
	ins := []rune(text)
	buf := make([]rune, 0, len(runes)+len(ins))
	buf = append(buf, runes[:at]...)
	buf = append(buf, ins...)
	buf = append(buf, runes[at:]...)

	out := Document{Text: string(buf), Formats: make([]FormatRange, len(d.Formats))}
	for i, f := range d.Formats {
		if f.Start > at {
			f.Start += len(ins)
			f.End += len(ins)
		}
		out.Formats[i] = f
	}
	return out, nil
}

// InsertLineBreak inserts a newline at offset at.
func (d Document) InsertLineBreak(at int) (Document, error) {
	return d.InsertText("\n", at)
}

// InsertBullet inserts a bullet prefix at offset at.
func (d Document) InsertBullet(at int) (Document, error) {
	return d.InsertText(Bullet, at)
}

// Validate checks that every range is well formed and lies within the text.
func (d Document) Validate() error {
	n := d.Len()
	for _, f := range d.Formats {
		if !IsValidFormatType(f.Type) {
			return fmt.Errorf("%w: %q", ErrUnknownFormat, f.Type)
		}
		if f.Start < 0 || f.Start > f.End || f.End > n {
			return fmt.Errorf("%w: %s [%d, %d) in text of length %d", ErrOutOfRange, f.Type, f.Start, f.End, n)
		}
	}
	return nil
}

// Normalized folds "\r\n" and lone "\r" to "\n" and drops NUL, none of
// which survive HTML, moving every range with the text it covers. Ranges
// left empty are dropped. d must be valid.
func (d Document) Normalized() Document {
	text, pos := normalizeText(d.Text)
	if pos == nil {
		return d.Clone()
	}
	out := Document{Text: text, Formats: make([]FormatRange, 0, len(d.Formats))}
	last := len(pos) - 1
	for _, f := range d.Formats {
		f.Start = pos[clamp(f.Start, 0, last)]
		f.End = pos[clamp(f.End, 0, last)]
		if f.End > f.Start {
			out.Formats = append(out.Formats, f)
		}
	}
	return out
}

// normalizeText returns s with line endings folded and NUL removed. When
// anything changed, pos maps each old code-point offset, 0 through the old
// length, to its new offset; otherwise pos is nil.
func normalizeText(s string) (string, []int) {
	if !strings.ContainsAny(s, "\r\x00") {
		return s, nil
	}
	runes := []rune(s)
	out := make([]rune, 0, len(runes))
	pos := make([]int, len(runes)+1)
	for i, r := range runes {
		pos[i] = len(out)
		switch {
		case r == 0:
		case r == '\r' && i+1 < len(runes) && runes[i+1] == '\n':
		case r == '\r':
			out = append(out, '\n')
		default:
			out = append(out, r)
		}
	}
	pos[len(runes)] = len(out)
	return string(out), pos
}

func sortFormats(formats []FormatRange) {
	sort.SliceStable(formats, func(i, j int) bool {
		return formats[i].Start < formats[j].Start
	})
}
