package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  plain text  ", "plain text"},
		{"<script>alert(1)</script>Rent arrears", "Rent arrears"},
		{"<b>Bold</b> and <a href=\"x\">link</a>", "Bold and link"},
		{"St Anne's & Co", "St Anne's & Co"},
		{"<p></p>", ""},
		{"&lt;script&gt;alert(1)&lt;/script&gt;Shelter", "Shelter"},
		{"&amp;lt;b&amp;gt;Hostel", "Hostel"},
		{"a &lt; b", "a < b"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, SanitizeText(tt.in), "input %q", tt.in)
	}
}

func TestSanitizeTextNeverReturnsMarkup(t *testing.T) {
	for _, in := range []string{
		"&lt;script&gt;alert(1)&lt;/script&gt;",
		"&lt;img src=x onerror=alert(1)&gt;",
		"<<b>script>alert(1)</b>",
		"&#60;iframe src=x&#62;",
	} {
		out := SanitizeText(in)
		assert.NotContains(t, out, "<script", "input %q", in)
		assert.NotContains(t, out, "<img", "input %q", in)
		assert.NotContains(t, out, "<iframe", "input %q", in)
	}
}

func TestSanitizeValues(t *testing.T) {
	got := SanitizeValues([]string{" meals", "showers", "meals ", "", "<i></i>", "<b>laundry</b>"})
	assert.Equal(t, []string{"meals", "showers", "laundry"}, got)

	assert.Empty(t, SanitizeValues(nil))
}
