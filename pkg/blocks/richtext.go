package blocks

import (
	"fmt"
	"net/url"
	"slices"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// RichTextTags are the elements the editor may produce.
var RichTextTags = map[atom.Atom]bool{
	atom.P:          true,
	atom.Br:         true,
	atom.H2:         true,
	atom.H3:         true,
	atom.H4:         true,
	atom.B:          true,
	atom.Strong:     true,
	atom.I:          true,
	atom.Em:         true,
	atom.Ol:         true,
	atom.Ul:         true,
	atom.Li:         true,
	atom.Hr:         true,
	atom.A:          true,
	atom.Blockquote: true,
	atom.Code:       true,
}

// richTextAttrs lists the attributes each element may carry. Elements not
// listed carry none.
var richTextAttrs = map[atom.Atom][]string{
	atom.A: {"href", "title", "rel", "target"},
}

// linkSchemes are the schemes an href may use. Relative links have none.
var linkSchemes = map[string]bool{"": true, "http": true, "https": true, "mailto": true, "tel": true}

var bodyContext = &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}

// ParseRichText parses a rich text fragment into its top level nodes.
func ParseRichText(s string) ([]*html.Node, error) {
	return html.ParseFragment(strings.NewReader(s), bodyContext)
}

func checkRichText(s string) error {
	nodes, err := ParseRichText(s)
	if err != nil {
		return err
	}
	for _, n := range nodes {
		if err := checkRichNode(n); err != nil {
			return err
		}
	}
	return nil
}

func checkRichNode(n *html.Node) error {
	switch n.Type {
	case html.ElementNode:
		if !RichTextTags[n.DataAtom] {
			return fmt.Errorf("tag <%s> is not allowed", n.Data)
		}
		for _, a := range n.Attr {
			if a.Namespace != "" || !slices.Contains(richTextAttrs[n.DataAtom], strings.ToLower(a.Key)) {
				return fmt.Errorf("attribute %q is not allowed on <%s>", a.Key, n.Data)
			}
			if strings.EqualFold(a.Key, "href") && !safeHref(a.Val) {
				return fmt.Errorf("link target %q is not allowed", a.Val)
			}
		}
	case html.CommentNode, html.TextNode:
	default:
		return fmt.Errorf("unexpected markup")
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := checkRichNode(c); err != nil {
			return err
		}
	}
	return nil
}

// safeHref reports whether a link uses an allowed scheme. Browsers drop
// ASCII whitespace and control characters inside URLs, so they are removed
// before the scheme is read.
func safeHref(href string) bool {
	cleaned := strings.Map(func(r rune) rune {
		if r <= ' ' || r == 0x7f {
			return -1
		}
		return r
	}, href)
	u, err := url.Parse(cleaned)
	if err != nil {
		return false
	}
	return linkSchemes[strings.ToLower(u.Scheme)]
}

// PlainText strips the markup from a rich text fragment.
func PlainText(s string) string {
	nodes, err := ParseRichText(s)
	if err != nil {
		return s
	}
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range nodes {
		walk(n)
	}
	return strings.TrimSpace(b.String())
}
