package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlainText(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{name: "empty", html: "", want: ""},
		{name: "whitespace", html: "  \n ", want: ""},
		{name: "inline markup", html: "<p>Hello <strong>world</strong></p>", want: "Hello world"},
		{name: "adjacent blocks", html: "<h2>Setup</h2><p>Install it.</p>", want: "Setup Install it."},
		{name: "list", html: "<ul><li>one</li><li>two</li></ul>", want: "one two"},
		{name: "script dropped", html: "<p>a</p><script>alert(1)</script><p>b</p>", want: "a b"},
		{name: "entities", html: "<p>Fish &amp; chips</p>", want: "Fish & chips"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PlainText(tt.html))
		})
	}
}
