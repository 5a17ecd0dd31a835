package tables

import "utregister/lib/htmlutil"

// ParseListing reads a plain table positionally: the first row's cell
// texts become the labels of every following row. Cells past the last
// label are dropped.
func ParseListing(table htmlutil.Node) []Row {
	if table == nil {
		return nil
	}
	allRows := rows(table)
	if len(allRows) == 0 {
		return nil
	}

	var labels []string
	for _, th := range allRows[0].Find("th, td") {
		labels = append(labels, label(th))
	}

	var out []Row
	for _, tr := range allRows[1:] {
		cells := tr.Find("td, th")
		if len(cells) == 0 {
			continue
		}
		if len(cells) > len(labels) {
			cells = cells[:len(labels)]
		}
		row := make(Row, len(cells))
		for i, td := range cells {
			row[i] = Cell{Label: labels[i], Text: cellText(td)}
		}
		out = append(out, row)
	}
	return out
}
