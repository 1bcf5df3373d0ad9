package extractor

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// parseFragment parses a response innerHTML fragment in body context and
// returns a synthetic container holding the top-level nodes.
func parseFragment(fragment string) (*html.Node, error) {
	ctx := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(fragment), ctx)
	if err != nil {
		return nil, err
	}
	root := &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
	for _, n := range nodes {
		n.Parent = nil
		n.PrevSibling = nil
		n.NextSibling = nil
		root.AppendChild(n)
	}
	return root, nil
}

// walk visits n and its descendants in document order. The visitor returns
// false to skip a node's subtree.
func walk(n *html.Node, visit func(*html.Node) bool) {
	if !visit(n) {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, visit)
	}
}

// firstMatch returns the first descendant (excluding root) satisfying pred.
func firstMatch(root *html.Node, pred func(*html.Node) bool) *html.Node {
	var found *html.Node
	walk(root, func(n *html.Node) bool {
		if found != nil {
			return false
		}
		if n != root && pred(n) {
			found = n
			return false
		}
		return true
	})
	return found
}

// nodeText concatenates the text nodes under root, skipping any subtree for
// which skip returns true.
func nodeText(root *html.Node, skip func(*html.Node) bool) string {
	var b strings.Builder
	walk(root, func(n *html.Node) bool {
		if skip != nil && n != root && skip(n) {
			return false
		}
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		return true
	})
	return b.String()
}

// textRuns returns every text node under root, in document order.
func textRuns(root *html.Node) []string {
	var out []string
	walk(root, func(n *html.Node) bool {
		if n.Type == html.TextNode {
			out = append(out, n.Data)
		}
		return true
	})
	return out
}

// summaryHeading returns the collapsed text of a details element's own
// summary, without descending into nested collapsibles.
func summaryHeading(details *html.Node) string {
	for c := details.FirstChild; c != nil; c = c.NextSibling {
		if c.DataAtom == atom.Summary {
			return collapseSpace(nodeText(c, func(n *html.Node) bool {
				return n.DataAtom == atom.Details
			}))
		}
	}
	return ""
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func render(n *html.Node) string {
	var b strings.Builder
	if err := html.Render(&b, n); err != nil {
		return ""
	}
	return b.String()
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
