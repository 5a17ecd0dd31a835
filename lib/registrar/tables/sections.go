package tables

import "utregister/lib/htmlutil"

const UniqueColumn = "Unique"

// Sections is a section search result grouped by unique number. A
// section row is followed by its secondary rows (additional meeting
// times, notes) which belong to the same group.
type Sections struct {
	// Keys lists the unique numbers in page order.
	Keys   []string
	Groups map[string][]Row
	// Ungrouped holds the rows that precede the first unique number.
	Ungrouped []Row
}

func (s Sections) Get(unique string) []Row {
	return s.Groups[unique]
}

// ParseSections reads a table whose header cells carry an id and whose
// body cells point at them through the headers attribute. Cells are
// matched to columns by id, never by position, since secondary rows skip
// columns.
func ParseSections(table htmlutil.Node) Sections {
	result := Sections{Groups: map[string][]Row{}}
	if table == nil {
		return result
	}

	allRows := rows(table)
	if len(allRows) == 0 {
		return result
	}

	labels := map[string]string{}
	for _, th := range allRows[0].Find("th[id], td[id]") {
		id, _ := th.Attr("id")
		labels[id] = label(th)
	}

	current := ""
	grouped := false
	for _, tr := range allRows[1:] {
		var row Row
		for _, td := range tr.Find("td[headers], th[headers]") {
			for _, id := range headerIds(td) {
				columnLabel, ok := labels[id]
				if !ok {
					continue
				}
				row = append(row, Cell{Label: columnLabel, Text: cellText(td)})
				break
			}
		}
		if len(row) == 0 {
			continue
		}

		unique, ok := row.Get(UniqueColumn)
		if ok && unique != "" {
			current = unique
			grouped = true
			if _, seen := result.Groups[current]; !seen {
				result.Keys = append(result.Keys, current)
			}
		}
		if !grouped {
			result.Ungrouped = append(result.Ungrouped, row)
			continue
		}
		result.Groups[current] = append(result.Groups[current], row)
	}

	return result
}
