package normalize

import "testing"

func TestNormalizers(t *testing.T) {
	tests := []struct {
		name  string
		fn    func(string) string
		input string
		want  string
	}{
		{"email lowercases", Email, "  User@Example.COM ", "user@example.com"},
		{"email empty", Email, "   ", ""},
		{"name trims", Name, "\tJohn Doe\n", "John Doe"},
		{"name keeps case", Name, "JOHN", "JOHN"},
		{"username trims", Username, "  Admin ", "Admin"},
		{"role lowercases", Role, " ADMIN ", "admin"},
		{"query param trims", QueryParam, " 3 ", "3"},
		{"search collapses spaces", SearchQuery, "  electric   car\tnews ", "electric car news"},
		{"search keeps cjk", SearchQuery, " 電動 車 ", "電動 車"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.fn(tt.input); got != tt.want {
				t.Errorf("%s(%q) = %q, want %q", tt.name, tt.input, got, tt.want)
			}
		})
	}
}
