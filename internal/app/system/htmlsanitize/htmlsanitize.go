// Package htmlsanitize cleans blog body HTML before it is stored or served.
// It uses bluemonday to strip dangerous markup while keeping editor formatting.
package htmlsanitize

import (
	"sync"

	"github.com/microcosm-cc/bluemonday"
	"github.com/vicarhk/vicarapi/internal/app/system/richtext"
)

var (
	policy     *bluemonday.Policy
	policyOnce sync.Once
)

func getPolicy() *bluemonday.Policy {
	policyOnce.Do(func() {
		policy = bluemonday.UGCPolicy()

		// Editor formatting
		policy.AllowElements("u", "s", "sub", "sup", "mark")
		policy.AllowStyles("background-color").OnElements("mark")

		// Bodies pasted from older console versions
		policy.AllowElements("table", "thead", "tbody", "tfoot", "tr", "th", "td")
		policy.AllowAttrs("colspan", "rowspan").OnElements("th", "td")
	})
	return policy
}

// Sanitize removes dangerous elements and attributes from html.
func Sanitize(html string) string {
	if html == "" {
		return ""
	}
	return getPolicy().Sanitize(html)
}

// PrepareBody converts a stored or submitted body of any kind (HTML, legacy
// editor JSON, plain text) to sanitized HTML, and reports which kind it was.
func PrepareBody(content string) (string, richtext.Kind, error) {
	html, kind, err := richtext.Normalize(content)
	if err != nil {
		return "", kind, err
	}
	return Sanitize(html), kind, nil
}
