// Package htmltext extracts the visible text of an HTML document, keeping
// one line per block element so line-oriented rules still apply.
package htmltext

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Extract parses r and returns its visible text
func Extract(r io.Reader) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	return Text(doc), nil
}

// ExtractString is Extract over a string
func ExtractString(s string) (string, error) {
	return Extract(strings.NewReader(s))
}

// Text returns the visible text under n. Block elements and <br> end a line;
// runs of whitespace inside a line collapse to one space.
func Text(n *html.Node) string {
	w := &writer{}
	w.walk(n)
	return w.String()
}

type writer struct {
	lines []string
	cur   strings.Builder
}

func (w *writer) walk(n *html.Node) {
	if n.Type == html.ElementNode {
		switch n.DataAtom {
		case atom.Script, atom.Style, atom.Noscript, atom.Iframe, atom.Template, atom.Head:
			return
		case atom.Br:
			w.newline()
			return
		case atom.Td, atom.Th:
			if w.cur.Len() > 0 {
				w.space()
			}
		}
	}

	if n.Type == html.TextNode {
		w.write(n.Data)
	}

	block := n.Type == html.ElementNode && isBlock(n.DataAtom)
	if block {
		w.newline()
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.walk(c)
	}
	if block {
		w.newline()
	}
}

func (w *writer) write(s string) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		if s != "" && w.cur.Len() > 0 {
			w.space()
		}
		return
	}
	if startsWithSpace(s) && w.cur.Len() > 0 {
		w.space()
	}
	w.cur.WriteString(strings.Join(fields, " "))
	if endsWithSpace(s) {
		w.space()
	}
}

func (w *writer) space() {
	if !strings.HasSuffix(w.cur.String(), " ") {
		w.cur.WriteByte(' ')
	}
}

func (w *writer) newline() {
	line := strings.TrimSpace(w.cur.String())
	w.cur.Reset()
	if line != "" {
		w.lines = append(w.lines, line)
	}
}

func (w *writer) String() string {
	w.newline()
	return strings.Join(w.lines, "\n")
}

func startsWithSpace(s string) bool {
	return s != "" && strings.TrimLeft(s, " \t\r\n\f") != s
}

func endsWithSpace(s string) bool {
	return s != "" && strings.TrimRight(s, " \t\r\n\f") != s
}

func isBlock(a atom.Atom) bool {
	switch a {
	case atom.Address, atom.Article, atom.Aside, atom.Blockquote, atom.Dd, atom.Div,
		atom.Dl, atom.Dt, atom.Fieldset, atom.Figcaption, atom.Figure, atom.Footer,
		atom.Form, atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6, atom.Header,
		atom.Hr, atom.Li, atom.Main, atom.Nav, atom.Ol, atom.P, atom.Pre, atom.Section,
		atom.Table, atom.Tr, atom.Ul, atom.Caption, atom.Title, atom.Body:
		return true
	}
	return false
}
