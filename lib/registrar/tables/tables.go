package tables

import (
	"strings"
	"utregister/lib/htmlutil"
)

type Cell struct {
	Label string
	Text  string
}

// Row keeps its cells in page order.
type Row []Cell

func (r Row) Get(label string) (string, bool) {
	for _, c := range r {
		if c.Label == label {
			return c.Text, true
		}
	}
	return "", false
}

func (r Row) Labels() []string {
	labels := make([]string, len(r))
	for i, c := range r {
		labels[i] = c.Label
	}
	return labels
}

func rows(table htmlutil.Node) []htmlutil.Node {
	return table.Find("tr")
}

func cellText(n htmlutil.Node) string {
	return htmlutil.CleanText(n.Text())
}

func label(n htmlutil.Node) string {
	return htmlutil.CleanInline(n.Text())
}

// FindTable returns the first table that has a header cell carrying an id.
func FindTable(doc htmlutil.Document, selector string) htmlutil.Node {
	for _, table := range doc.Find(selector) {
		if len(table.Find("th[id]")) > 0 {
			return table
		}
	}
	return nil
}

func headerIds(n htmlutil.Node) []string {
	attr, ok := n.Attr("headers")
	if !ok {
		return nil
	}
	return strings.Fields(attr)
}
