package markdown

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// FromHTML converts an output fragment into CommonMark so terminal surfaces can
// render it. Unknown elements contribute their children; script and style
// content is dropped.
func FromHTML(fragment string) (string, error) {
	if strings.TrimSpace(fragment) == "" {
		return "", nil
	}
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), body)
	if err != nil {
		return "", fmt.Errorf("parse html fragment: %w", err)
	}
	return strings.Join(blocks(nodes), "\n\n"), nil
}

// blocks renders sibling nodes as markdown blocks. Runs of inline siblings are
// gathered into a single paragraph.
func blocks(nodes []*html.Node) []string {
	var out []string
	var para strings.Builder
	flush := func() {
		text := strings.TrimSpace(para.String())
		para.Reset()
		if text != "" {
			out = append(out, text)
		}
	}
	for _, n := range nodes {
		if n.Type == html.ElementNode && isBlock(n.DataAtom) {
			flush()
			out = append(out, block(n)...)
			continue
		}
		para.WriteString(inline(n))
	}
	flush()
	return out
}

func block(n *html.Node) []string {
	switch n.DataAtom {
	case atom.P:
		text := strings.TrimSpace(inlineChildren(n))
		if text == "" {
			return nil
		}
		if hasClass(n, "terminal-heading") {
			return []string{"### " + text}
		}
		return []string{text}
	case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		text := strings.TrimSpace(inlineChildren(n))
		if text == "" {
			return nil
		}
		level := int(n.Data[1] - '0')
		return []string{strings.Repeat("#", level) + " " + text}
	case atom.Hr:
		return []string{"---"}
	case atom.Ul, atom.Ol:
		return []string{list(n)}
	case atom.Pre:
		return []string{"```\n" + strings.TrimRight(textContent(n), "\n") + "\n```"}
	case atom.Blockquote:
		inner := strings.Join(blocks(children(n)), "\n\n")
		if inner == "" {
			return nil
		}
		return []string{prefixLines(inner, "> ", "> ")}
	case atom.Script, atom.Style, atom.Template:
		return nil
	default:
		return blocks(children(n))
	}
}

func list(n *html.Node) string {
	ordered := n.DataAtom == atom.Ol
	var items []string
	index := 1
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || c.DataAtom != atom.Li {
			continue
		}
		marker := "- "
		if ordered {
			marker = fmt.Sprintf("%d. ", index)
		}
		index++
		body := strings.Join(blocks(children(c)), "\n")
		indent := strings.Repeat(" ", len(marker))
		items = append(items, prefixLines(body, marker, indent))
	}
	return strings.Join(items, "\n")
}

func inline(n *html.Node) string {
	switch n.Type {
	case html.TextNode:
		return escape(collapse(n.Data))
	case html.ElementNode:
	default:
		return ""
	}
	switch n.DataAtom {
	case atom.Strong, atom.B:
		return wrap(inlineChildren(n), "**")
	case atom.Em, atom.I:
		return wrap(inlineChildren(n), "*")
	case atom.Code, atom.Kbd, atom.Samp, atom.Tt:
		text := collapse(textContent(n))
		if strings.TrimSpace(text) == "" {
			return text
		}
		return "`" + text + "`"
	case atom.A:
		text := strings.TrimSpace(inlineChildren(n))
		href := attr(n, "href")
		if href == "" || text == "" {
			return text
		}
		return "[" + text + "](" + href + ")"
	case atom.Img:
		src := attr(n, "src")
		if src == "" {
			return ""
		}
		return "![" + escape(attr(n, "alt")) + "](" + src + ")"
	case atom.Br:
		return "  \n"
	case atom.Script, atom.Style, atom.Template:
		return ""
	default:
		return inlineChildren(n)
	}
}

func inlineChildren(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && isBlock(c.DataAtom) {
			b.WriteString(" ")
			b.WriteString(strings.Join(block(c), " "))
			b.WriteString(" ")
			continue
		}
		b.WriteString(inline(c))
	}
	return b.String()
}

func textContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(textContent(c))
	}
	return b.String()
}

func children(n *html.Node) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, c)
	}
	return out
}

func isBlock(a atom.Atom) bool {
	switch a {
	case atom.P, atom.Div, atom.Section, atom.Article, atom.Header, atom.Footer, atom.Main, atom.Nav,
		atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6,
		atom.Ul, atom.Ol, atom.Li, atom.Hr, atom.Pre, atom.Blockquote,
		atom.Figure, atom.Figcaption, atom.Table, atom.Tr, atom.Dl, atom.Dt, atom.Dd:
		return true
	}
	return false
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func wrap(text, marker string) string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return text
	}
	lead := text[:len(text)-len(strings.TrimLeft(text, " "))]
	tail := text[len(strings.TrimRight(text, " ")):]
	return lead + marker + trimmed + marker + tail
}

func collapse(text string) string {
	if text == "" {
		return ""
	}
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return " "
	}
	out := strings.Join(fields, " ")
	if isSpace(text[0]) {
		out = " " + out
	}
	if isSpace(text[len(text)-1]) {
		out += " "
	}
	return out
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\f'
}

var escaper = strings.NewReplacer(
	`\`, `\\`,
	"*", `\*`,
	"_", `\_`,
	"`", "\\`",
	"[", `\[`,
	"]", `\]`,
	"<", `\<`,
)

func escape(text string) string {
	return escaper.Replace(text)
}

func prefixLines(text, first, rest string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if line == "" {
			continue
		}
		if i == 0 {
			lines[i] = first + line
			continue
		}
		lines[i] = rest + line
	}
	return strings.Join(lines, "\n")
}
