// Package render converts the small markdown subset produced by the chat models into
// Tailwind-styled HTML for the result panel.
//
// Supported: h1-h3 headings, "-" and "•" bullets, numbered items, fenced code blocks,
// inline code, bold, italic and links. Every piece of source text is HTML-escaped before
// markup is added, so model output can never inject tags.
package render

import (
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"
)

type palette struct {
	h1         string
	h2         string
	h3         string
	bullet     string
	number     string
	bulletText string
	numberText string
	paragraph  string
	preBg      string
	codeText   string
	inlineCode string
}

var (
	light = palette{
		h1:         "text-blue-700",
		h2:         "text-purple-700",
		h3:         "text-pink-700",
		bullet:     "text-blue-600",
		number:     "text-purple-600",
		bulletText: "text-gray-900",
		numberText: "text-gray-900",
		paragraph:  "text-gray-900",
		preBg:      "bg-gray-100",
		codeText:   "text-gray-900",
		inlineCode: "bg-gray-200 text-gray-900",
	}
	dark = palette{
		h1:         "text-blue-400",
		h2:         "text-purple-400",
		h3:         "text-pink-400",
		bullet:     "text-blue-400",
		number:     "text-purple-400",
		bulletText: "text-gray-100",
		numberText: "text-gray-300",
		paragraph:  "text-gray-300",
		preBg:      "bg-gray-800",
		codeText:   "text-gray-200",
		inlineCode: "bg-gray-700 text-gray-100",
	}
)

var (
	headingRe = regexp.MustCompile(`^(#{1,3})\s+(.*)$`)
	bulletRe  = regexp.MustCompile(`^(\s*)[-•]\s+(.*)$`)
	orderedRe = regexp.MustCompile(`^(\s*)(\d+)\.\s+(.*)$`)

	inlineCodeRe = regexp.MustCompile("`([^`]+)`")
	boldStarRe   = regexp.MustCompile(`\*\*(.+?)\*\*`)
	boldUnderRe  = regexp.MustCompile(`__(.+?)__`)
	italicStarRe = regexp.MustCompile(`\*([^*]+)\*`)

	// underscores inside words (snake_case) are left alone
	italicUnderRe = regexp.MustCompile(`(^|[^\w])_([^_]+)_([^\w]|$)`)
	linkRe        = regexp.MustCompile(`\[([^\]]+)\]\(([^)\s]+)\)`)
	placeholderRe = regexp.MustCompile("\x00(\\d+)\x00")
)

// Markdown renders src to HTML using the light or dark palette.
func Markdown(src string, darkMode bool) string {
	if src == "" {
		return ""
	}
	p := light
	if darkMode {
		p = dark
	}
	src = strings.ReplaceAll(src, "\x00", "")
	lines := strings.Split(strings.ReplaceAll(src, "\r\n", "\n"), "\n")

	var b strings.Builder
	for i := 0; i < len(lines); i++ {
		line := lines[i]

		if strings.HasPrefix(line, "```") {
			var code []string
			for i++; i < len(lines) && !strings.HasPrefix(lines[i], "```"); i++ {
				code = append(code, lines[i])
			}
			fmt.Fprintf(&b, `<pre class="%s p-4 rounded-lg mb-4 overflow-x-auto"><code class="%s">%s</code></pre>`,
				p.preBg, p.codeText, html.EscapeString(strings.Join(code, "\n")))
			continue
		}

		if m := headingRe.FindStringSubmatch(line); m != nil {
			level := len(m[1])
			size, color, margin := "text-xl", p.h3, "mt-4 mb-2"
			switch level {
			case 1:
				size, color, margin = "text-3xl", p.h1, "mt-6 mb-3"
			case 2:
				size, color = "text-2xl", p.h2
			}
			fmt.Fprintf(&b, `<h%d class="font-bold %s %s %s">%s</h%d>`,
				level, size, color, margin, inline(strings.TrimSpace(m[2]), p), level)
			continue
		}

		if m := bulletRe.FindStringSubmatch(line); m != nil {
			fmt.Fprintf(&b, `<div class="flex items-start mb-2 %s"><span class="%s mr-3 font-bold">•</span><span class="%s">%s</span></div>`,
				indentClass(m[1]), p.bullet, p.bulletText, inline(strings.TrimSpace(m[2]), p))
			continue
		}

		if m := orderedRe.FindStringSubmatch(line); m != nil {
			fmt.Fprintf(&b, `<div class="flex items-start mb-2 %s"><span class="%s mr-3 font-bold">%s.</span><span class="%s">%s</span></div>`,
				indentClass(m[1]), p.number, m[2], p.numberText, inline(strings.TrimSpace(m[3]), p))
			continue
		}

		if strings.TrimSpace(line) == "" {
			b.WriteString(`<div class="mb-2"></div>`)
			continue
		}
		fmt.Fprintf(&b, `<p class="mb-4 leading-relaxed %s">%s</p>`, p.paragraph, inline(line, p))
	}
	return b.String()
}

// indentClass maps two spaces of leading indentation to one nesting level.
func indentClass(lead string) string {
	width := len(strings.ReplaceAll(lead, "\t", "  "))
	level := width / 2
	if level == 0 {
		return "ml-0"
	}
	return "ml-" + strconv.Itoa(level*4)
}

// inline escapes text and applies code, bold, italic and link markup. Code spans are
// swapped out first so their contents are never formatted.
func inline(text string, p palette) string {
	var spans []string
	text = inlineCodeRe.ReplaceAllStringFunc(text, func(s string) string {
		spans = append(spans, s[1:len(s)-1])
		return "\x00" + strconv.Itoa(len(spans)-1) + "\x00"
	})

	out := html.EscapeString(text)
	out = boldStarRe.ReplaceAllString(out, `<strong class="font-bold">$1</strong>`)
	out = boldUnderRe.ReplaceAllString(out, `<strong class="font-bold">$1</strong>`)
	out = italicStarRe.ReplaceAllString(out, `<em class="italic">$1</em>`)
	out = italicUnderRe.ReplaceAllString(out, `$1<em class="italic">$2</em>$3`)
	out = linkRe.ReplaceAllStringFunc(out, func(s string) string {
		m := linkRe.FindStringSubmatch(s)
		// a code span inside the target is left as literal text
		if strings.Contains(m[2], "\x00") {
			return s
		}
		if !safeHref(html.UnescapeString(m[2])) {
			return m[1]
		}
		return fmt.Sprintf(`<a href="%s" class="text-blue-500 hover:underline" target="_blank" rel="noopener noreferrer">%s</a>`, m[2], m[1])
	})

	return placeholderRe.ReplaceAllStringFunc(out, func(s string) string {
		idx, err := strconv.Atoi(strings.Trim(s, "\x00"))
		if err != nil || idx >= len(spans) {
			return ""
		}
		return fmt.Sprintf(`<code class="%s px-2 py-1 rounded text-sm font-mono">%s</code>`, p.inlineCode, html.EscapeString(spans[idx]))
	})
}

func safeHref(href string) bool {
	h := strings.ToLower(strings.TrimSpace(href))
	switch {
	case strings.HasPrefix(h, "http://"), strings.HasPrefix(h, "https://"), strings.HasPrefix(h, "mailto:"):
		return true
	case strings.HasPrefix(h, "/"), strings.HasPrefix(h, "#"):
		return true
	}
	return !strings.Contains(h, ":")
}
