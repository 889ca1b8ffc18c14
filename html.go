package indieauth

import (
	"io"
	"strings"

	"github.com/tomnomnom/linkheader"
	"golang.org/x/net/html"
)

// parseHTMLLinks returns a link for every rel of every <link> element in the
// document, or nothing if the document can't be parsed.
func parseHTMLLinks(r io.Reader) linkheader.Links {
	root, err := html.Parse(r)
	if err != nil {
		return nil
	}

	var links linkheader.Links
	for _, node := range collect(root, isLink) {
		href, ok := attr(node, "href")
		if !ok {
			continue
		}

		for _, rel := range strings.Fields(strings.ToLower(attrValue(node, "rel"))) {
			links = append(links, linkheader.Link{Rel: rel, URL: href})
		}
	}

	return links
}

// collect walks the tree depth first, returning matching nodes without
// descending into them.
func collect(node *html.Node, match func(*html.Node) bool) []*html.Node {
	if match(node) {
		return []*html.Node{node}
	}

	var found []*html.Node
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		found = append(found, collect(child, match)...)
	}

	return found
}

func isLink(node *html.Node) bool {
	return node.Type == html.ElementNode && node.Data == "link"
}

func attr(node *html.Node, key string) (string, bool) {
	for _, a := range node.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}

	return "", false
}

func attrValue(node *html.Node, key string) string {
	v, _ := attr(node, key)
	return v
}
