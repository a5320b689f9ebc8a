package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/quarrydata/quarry/pkg/errors"
)

// DefaultMarkerClass distinguishes data tables from layout tables in the
// source documents.
const DefaultMarkerClass = "wikitable"

// Locator selects one table element out of a parsed document. Real pages
// contain several superficially similar tables, so selection is by rule,
// never by table index.
type Locator interface {
	Locate(doc *goquery.Document) (*goquery.Selection, error)
}

// HeadingRule finds the heading element carrying AnchorID, then the nearest
// following table in document order that carries the marker class.
type HeadingRule struct {
	AnchorID    string
	MarkerClass string
}

// Locate implements Locator.
func (r HeadingRule) Locate(doc *goquery.Document) (*goquery.Selection, error) {
	anchor := doc.Find("#" + r.AnchorID).First()
	if anchor.Length() == 0 {
		return nil, errors.Newf(errors.ErrorTypeNotFound, "heading %q not found", r.AnchorID)
	}

	node := nextTableAfter(doc.Get(0), anchor.Nodes[0], markerOrDefault(r.MarkerClass))
	if node == nil {
		return nil, errors.Newf(errors.ErrorTypeNotFound,
			"no %q table follows heading %q", markerOrDefault(r.MarkerClass), r.AnchorID)
	}
	return doc.FindNodes(node), nil
}

// CaptionRule scans marked tables in document order and picks the first
// whose caption text contains Substring. The match is case-sensitive.
type CaptionRule struct {
	Substring   string
	MarkerClass string
}

// Locate implements Locator.
func (r CaptionRule) Locate(doc *goquery.Document) (*goquery.Selection, error) {
	var found *goquery.Selection
	doc.Find("table." + markerOrDefault(r.MarkerClass)).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		caption := sel.Find("caption").First()
		if caption.Length() > 0 && strings.Contains(caption.Text(), r.Substring) {
			found = sel
			return false
		}
		return true
	})

	if found == nil {
		return nil, errors.Newf(errors.ErrorTypeNotFound,
			"no table caption contains %q", r.Substring)
	}
	return found, nil
}

func markerOrDefault(marker string) string {
	if marker == "" {
		return DefaultMarkerClass
	}
	return marker
}

// nextTableAfter walks the tree in document order and returns the first
// marked table element strictly after the anchor node.
func nextTableAfter(root, anchor *html.Node, marker string) *html.Node {
	var (
		out  *html.Node
		seen bool
	)

	var walk func(n *html.Node) bool
	walk = func(n *html.Node) bool {
		if n == anchor {
			seen = true
		} else if seen && n.Type == html.ElementNode && n.Data == "table" && hasClass(n, marker) {
			out = n
			return false
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if !walk(c) {
				return false
			}
		}
		return true
	}
	walk(root)

	return out
}

func hasClass(n *html.Node, class string) bool {
	for _, attr := range n.Attr {
		if attr.Key != "class" {
			continue
		}
		for _, c := range strings.Fields(attr.Val) {
			if c == class {
				return true
			}
		}
	}
	return false
}
