package registrar

import (
	"testing"
	"utregister/lib/htmlutil"
)

func mustParse(t *testing.T, page string) htmlutil.Document {
	doc, err := htmlutil.ParseBytes([]byte(page))
	if err != nil {
		t.Fatal(err)
	}
	return doc
}
