package htmlutil

import (
	"bytes"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/net/html"
)

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	if node.Type == html.ElementNode && node.Data == "br" {
		buffer.WriteByte('\n')
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

var innerWhitespace = regexp.MustCompile(` +`)

func removeNonPrintable(s string) string {
	newStr := strings.Builder{}
	for _, c := range s {
		switch {
		case c == '\n' || unicode.IsPrint(c):
			newStr.WriteRune(c)
		case unicode.IsSpace(c):
			newStr.WriteRune(' ')
		}
	}
	return newStr.String()
}

// CleanText drops non-printable characters, collapses runs of inline
// whitespace into a single space and trims every line. Line breaks
// survive so that <br> separated content can still be split.
func CleanText(text string) string {
	text = removeNonPrintable(text)
	lines := strings.Split(text, "\n")
	out := lines[:0]
	for _, line := range lines {
		line = innerWhitespace.ReplaceAllString(line, " ")
		line = strings.Trim(line, " ")
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

// CleanInline is CleanText with every line joined by a single space.
func CleanInline(text string) string {
	return strings.ReplaceAll(CleanText(text), "\n", " ")
}
