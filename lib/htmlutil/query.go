package htmlutil

import (
	"bytes"
	"io"

	"github.com/PuerkitoBio/goquery"
)

// Node is a single element returned by a query.
type Node interface {
	// Text is the concatenated text content of the element, <br> becomes a newline.
	Text() string
	Attr(name string) (string, bool)
	// Parent returns nil for the document root.
	Parent() Node
	Find(selector string) []Node
}

// Document is the query surface the registrar code parses pages through.
type Document interface {
	Find(selector string) []Node
}

type goqueryNode struct {
	sel *goquery.Selection
}

func (n goqueryNode) Text() string {
	var buffer bytes.Buffer
	for _, node := range n.sel.Nodes {
		getTextRecursive(node, &buffer)
	}
	return buffer.String()
}

func (n goqueryNode) Attr(name string) (string, bool) {
	return n.sel.Attr(name)
}

func (n goqueryNode) Parent() Node {
	parent := n.sel.Parent()
	if parent.Length() == 0 {
		return nil
	}
	return goqueryNode{sel: parent}
}

func (n goqueryNode) Find(selector string) []Node {
	return collect(n.sel.Find(selector))
}

func collect(sel *goquery.Selection) []Node {
	nodes := make([]Node, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		nodes = append(nodes, goqueryNode{sel: s})
	})
	return nodes
}

type goqueryDocument struct {
	doc *goquery.Document
}

func (d goqueryDocument) Find(selector string) []Node {
	return collect(d.doc.Find(selector))
}

func ParseDocument(r io.Reader) (Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}
	return goqueryDocument{doc: doc}, nil
}

func ParseBytes(body []byte) (Document, error) {
	return ParseDocument(bytes.NewReader(body))
}

// First returns the first node matched by selector, or nil.
func First(doc Document, selector string) Node {
	nodes := doc.Find(selector)
	if len(nodes) == 0 {
		return nil
	}
	return nodes[0]
}
