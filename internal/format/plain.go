package format

import (
	"strings"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// LineRenderer turns an HTML output fragment into terminal lines.
type LineRenderer interface {
	Lines(fragment string) ([]string, error)
}

// PlainRenderer renders fragments as unstyled text, one line per block.
type PlainRenderer struct {
	width int
}

// NewPlainRenderer returns a plain-text renderer wrapping at width cells
// (no wrapping when width <= 0).
func NewPlainRenderer(width int) *PlainRenderer {
	return &PlainRenderer{width: width}
}

// Lines implements LineRenderer.
func (p *PlainRenderer) Lines(fragment string) ([]string, error) {
	if strings.TrimSpace(fragment) == "" {
		return nil, nil
	}
	z := html.NewTokenizer(strings.NewReader(fragment))
	var lines []string
	var cur strings.Builder
	skip := 0
	flush := func() {
		text := strings.Join(strings.Fields(cur.String()), " ")
		cur.Reset()
		if text != "" {
			lines = append(lines, text)
		}
	}
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			flush()
			return p.wrap(lines), nil
		case html.TextToken:
			if skip == 0 {
				cur.Write(z.Text())
			}
		case html.StartTagToken, html.SelfClosingTagToken, html.EndTagToken:
			name, hasAttr := z.TagName()
			a := atom.Lookup(name)
			switch a {
			case atom.Script, atom.Style:
				if tt == html.StartTagToken {
					skip++
				} else if tt == html.EndTagToken && skip > 0 {
					skip--
				}
				continue
			case atom.Hr:
				flush()
				lines = append(lines, "---")
				continue
			case atom.Br:
				flush()
				continue
			case atom.Img:
				if skip == 0 && hasAttr {
					cur.WriteString(" " + imageLabel(z) + " ")
				}
				continue
			}
			if !blockTag(a) {
				continue
			}
			flush()
			if a == atom.Li && tt != html.EndTagToken {
				cur.WriteString("- ")
			}
		}
	}
}

func (p *PlainRenderer) wrap(lines []string) []string {
	if p.width <= 0 {
		return lines
	}
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		out = append(out, WrapWords(line, p.width)...)
	}
	return out
}

func imageLabel(z *html.Tokenizer) string {
	alt := ""
	for {
		key, val, more := z.TagAttr()
		if string(key) == "alt" {
			alt = string(val)
		}
		if !more {
			break
		}
	}
	if alt == "" {
		alt = "image"
	}
	return "[" + alt + "]"
}

func blockTag(a atom.Atom) bool {
	switch a {
	case atom.P, atom.Div, atom.Section, atom.Article, atom.Header, atom.Footer,
		atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6,
		atom.Ul, atom.Ol, atom.Li, atom.Pre, atom.Blockquote,
		atom.Figure, atom.Figcaption, atom.Table, atom.Tr, atom.Dt, atom.Dd:
		return true
	}
	return false
}

// WrapWords breaks text on spaces so no line exceeds width cells. Words wider
// than width are split by cell.
func WrapWords(text string, width int) []string {
	if width <= 0 || runewidth.StringWidth(text) <= width {
		return []string{text}
	}
	var lines []string
	var cur strings.Builder
	curWidth := 0
	for _, word := range strings.Fields(text) {
		w := runewidth.StringWidth(word)
		for w > width {
			if curWidth > 0 {
				lines = append(lines, cur.String())
				cur.Reset()
				curWidth = 0
			}
			head := runewidth.Truncate(word, width, "")
			if head == "" {
				_, size := utf8.DecodeRuneInString(word)
				head = word[:size]
			}
			lines = append(lines, head)
			word = word[len(head):]
			w = runewidth.StringWidth(word)
		}
		if word == "" {
			continue
		}
		if curWidth > 0 && curWidth+1+w > width {
			lines = append(lines, cur.String())
			cur.Reset()
			curWidth = 0
		}
		if curWidth > 0 {
			cur.WriteByte(' ')
			curWidth++
		}
		cur.WriteString(word)
		curWidth += w
	}
	if curWidth > 0 {
		lines = append(lines, cur.String())
	}
	return lines
}
