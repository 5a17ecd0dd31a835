package ris

import (
	"strings"
	"utregister/lib/htmlutil"
	"utregister/lib/registrar/tables"
)

const (
	timesSelector = "table#ris_times tr"
	barsSelector  = "table#ris_bars"
)

// Access is one labelled row of the registration times table, e.g.
// "Registration" or "Waitlist", with its raw spans.
type Access struct {
	Label string
	Spans []string
}

// ParseTimes reads the registration times table. The label sits in the
// first cell and every line of the last cell is one span.
func ParseTimes(doc htmlutil.Document) []Access {
	var out []Access
	for _, tr := range doc.Find(timesSelector) {
		cells := tr.Find("td")
		if len(cells) < 2 {
			continue
		}
		label := htmlutil.CleanInline(cells[0].Text())
		text := htmlutil.CleanText(cells[len(cells)-1].Text())
		if text == "" {
			continue
		}
		out = append(out, Access{
			Label: strings.TrimSuffix(label, ":"),
			Spans: strings.Split(text, "\n"),
		})
	}
	return out
}

// Spans flattens the spans of every access row in page order.
func Spans(access []Access) []string {
	var spans []string
	for _, a := range access {
		spans = append(spans, a.Spans...)
	}
	return spans
}

// ParseBars reads the registration bars table, e.g. advising or
// financial holds that block registration.
func ParseBars(doc htmlutil.Document) []tables.Row {
	return tables.ParseListing(htmlutil.First(doc, barsSelector))
}
