package tables

import (
	"sort"
	"strings"

	"github.com/antzucaro/matchr"
)

type Match struct {
	Row        Row
	Similarity float64
}

// Search ranks rows by how closely any of their cells resembles query
// and keeps those at or above threshold, most similar first. Cells
// containing query verbatim always match.
func Search(rows []Row, query string, threshold float64) []Match {
	query = strings.ToLower(strings.Trim(query, " \t\n"))
	if query == "" {
		return nil
	}

	var matches []Match
	for _, row := range rows {
		best := 0.0
		for _, cell := range row {
			text := strings.ToLower(cell.Text)
			if strings.Contains(text, query) {
				best = 1
				break
			}
			similarity := matchr.JaroWinkler(text, query, false)
			if similarity > best {
				best = similarity
			}
		}
		if best >= threshold {
			matches = append(matches, Match{Row: row, Similarity: best})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})
	return matches
}
