package sanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripTags(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain text untouched", "123 Main St", "123 Main St"},
		{"script removed", `<script>alert(1)</script>Main St`, "alert(1)Main St"},
		{"nested markup", `<b><i>bold</i></b> city`, "bold city"},
		{"comment removed", "before<!-- hidden -->after", "beforeafter"},
		{"unterminated tag dropped", "Main St <script", "Main St"},
		{"unterminated comment dropped", "Main St <!-- oops", "Main St"},
		{"attributes with gt", `<a href="x">link</a>`, "link"},
		{"whitespace trimmed", "  <p>ok</p>  ", "ok"},
		{"empty", "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, StripTags(tc.in))
		})
	}
}
