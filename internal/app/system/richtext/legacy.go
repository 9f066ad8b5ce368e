package richtext

import (
	"encoding/json"
	"strings"
)

// Kind is the shape a stored rich-text value was recognized as.
type Kind string

// Stored content kinds
const (
	KindEmpty      Kind = "empty"
	KindHTML       Kind = "html"
	KindLegacyJSON Kind = "legacy_json"
	KindPlain      Kind = "plain"
)

type legacyDocument struct {
	Text    string          `json:"text"`
	Formats json.RawMessage `json:"formats"`
}

// DetectKind decides how a stored value should be read.
//
// The checks run in a fixed order: anything containing both '<' and '>' is
// HTML; otherwise a JSON object with a non-empty "text" string and a
// "formats" array is the legacy editor shape; anything else is plain text.
func DetectKind(stored string) Kind {
	if stored == "" {
		return KindEmpty
	}
	if strings.Contains(stored, "<") && strings.Contains(stored, ">") {
		return KindHTML
	}
	if _, ok := parseLegacy(stored); ok {
		return KindLegacyJSON
	}
	return KindPlain
}

// Decode reads a stored value of any supported kind into a document.
func Decode(stored string) (Document, Kind, error) {
	kind := DetectKind(stored)
	switch kind {
	case KindEmpty:
		return NewDocument(""), kind, nil
	case KindHTML:
		doc, err := FromHTML(stored)
		return doc, kind, err
	case KindLegacyJSON:
		doc, _ := parseLegacy(stored)
		return doc, kind, nil
	default:
		return NewDocument(stored), kind, nil
	}
}

// Normalize converts a stored value of any kind to editor HTML.
// HTML input is returned unchanged; callers sanitize it separately.
func Normalize(stored string) (string, Kind, error) {
	kind := DetectKind(stored)
	switch kind {
	case KindEmpty:
		return "", kind, nil
	case KindHTML:
		return stored, kind, nil
	}
	doc, _, err := Decode(stored)
	if err != nil {
		return "", kind, err
	}
	return ToHTML(doc), kind, nil
}

func parseLegacy(stored string) (Document, bool) {
	trimmed := strings.TrimSpace(stored)
	if !strings.HasPrefix(trimmed, "{") {
		return Document{}, false
	}
	var ld legacyDocument
	if err := json.Unmarshal([]byte(trimmed), &ld); err != nil {
		return Document{}, false
	}
	if ld.Text == "" || len(ld.Formats) == 0 || ld.Formats[0] != '[' {
		return Document{}, false
	}

	var raw []FormatRange
	if err := json.Unmarshal(ld.Formats, &raw); err != nil {
		return Document{}, false
	}

	doc := Document{Text: ld.Text, Formats: make([]FormatRange, 0, len(raw))}
	n := doc.Len()
	for _, f := range raw {
		if !IsValidFormatType(f.Type) || f.Start < 0 || f.Start >= f.End || f.End > n {
			continue
		}
		if f.Type == Highlight && f.Color == "" {
			f.Color = DefaultHighlightColor
		}
		if f.Type != Highlight {
			f.Color = ""
		}
		doc.Formats = append(doc.Formats, f)
	}
	sortFormats(doc.Formats)
	return doc.Normalized(), true
}
