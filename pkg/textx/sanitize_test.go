// Package textx contains tests for the text utilities.
package textx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizeText(t *testing.T) {
	in := "he\x00llo\nwo\x7frld\t!"
	got := SanitizeText(in)
	if got != "hello\nworld\t!" {
		t.Fatalf("unexpected: %q", got)
	}
}

func TestCleanCompletion(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"plain", "Hello world", "Hello world"},
		{"tags", "<p>Hello <b>world</b></p>", "Hello world"},
		{"entities", "Fish &amp; chips&nbsp;&#39;&#x27;", "Fish chips"},
		{"escaped angles", `\u003cdiv\u003eHi`, "divHi"},
		{"whitespace per line", "  a \t  b  \n\n   c   d ", "a b\n\nc d"},
		{"keeps markdown", "# Title\n- **bold** item\n1. `code`", "# Title\n- **bold** item\n1. `code`"},
		{"crlf", "one  two\r\nthree", "one two\nthree"},
		{"nested entity", "&am&amp;p;x", "x"},
		{"escape forms entity", `&am\u003cp;y`, "y"},
		{"multiline tag", "a<span\nclass=\"x\">b", "ab"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanCompletion(tt.in))
		})
	}
}

func TestCleanCompletion_Idempotent(t *testing.T) {
	inputs := []string{
		"<p>Hello</p> &amp; world",
		"&am&amp;p;&lt;b&gt;x",
		"<<b>>text<</b>>",
		`\u003c<script>\u003e alert(1)`,
		"  spaced\t\tout  \n  lines  ",
		"a <b>bold</b> &nbsp; move\n\n## heading",
	}
	for _, in := range inputs {
		once := CleanCompletion(in)
		assert.Equal(t, once, CleanCompletion(once), "input %q", in)
	}
}
