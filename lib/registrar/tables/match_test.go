package tables

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSearch(t *testing.T) {
	rows := []Row{
		{{Label: "Unique", Text: "11111"}, {Label: "Title", Text: "DATA STRUCTURES"}},
		{{Label: "Unique", Text: "22222"}, {Label: "Title", Text: "DATA STRUCTRES"}},
		{{Label: "Unique", Text: "33333"}, {Label: "Title", Text: "ORGANIC CHEMISTRY"}},
	}

	matches := Search(rows, "data structures", 0.9)
	require.Len(t, matches, 2)
	require.Equal(t, 1.0, matches[0].Similarity)
	unique, _ := matches[0].Row.Get("Unique")
	require.Equal(t, "11111", unique)
	unique, _ = matches[1].Row.Get("Unique")
	require.Equal(t, "22222", unique)
	require.Less(t, matches[1].Similarity, 1.0)

	require.Len(t, Search(rows, "333", 0.99), 1)
	require.Empty(t, Search(rows, "  ", 0))
}
