// Package textnorm reconstructs plain text from HTML email bodies.
// This is part of the platform layer and contains no business logic.
package textnorm

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// blockAtoms are elements whose boundaries must survive as whitespace so that
// labeled lines ("Navn: ...", "Adresse: ...") do not fuse together when a
// message only has an HTML part.
var blockAtoms = map[atom.Atom]bool{
	atom.P:     true,
	atom.Div:   true,
	atom.Br:    true,
	atom.Tr:    true,
	atom.Td:    true,
	atom.Th:    true,
	atom.Li:    true,
	atom.Ul:    true,
	atom.Ol:    true,
	atom.Table: true,
	atom.H1:    true,
	atom.H2:    true,
	atom.H3:    true,
	atom.H4:    true,
	atom.H5:    true,
	atom.H6:    true,
}

// FromHTML converts an HTML document fragment to plain text. Script and style
// content is dropped, entities are decoded, block element boundaries become
// newlines and all other whitespace runs collapse to a single space.
func FromHTML(input string) string {
	tokenizer := html.NewTokenizer(strings.NewReader(input))

	var sb strings.Builder
	skipDepth := 0

	for {
		tokenType := tokenizer.Next()
		switch tokenType {
		case html.ErrorToken:
			return Collapse(sb.String())
		case html.StartTagToken, html.SelfClosingTagToken:
			token := tokenizer.Token()
			if token.DataAtom == atom.Script || token.DataAtom == atom.Style {
				if tokenType == html.StartTagToken {
					skipDepth++
				}
				continue
			}
			if blockAtoms[token.DataAtom] {
				sb.WriteString("\n")
			}
		case html.EndTagToken:
			token := tokenizer.Token()
			if token.DataAtom == atom.Script || token.DataAtom == atom.Style {
				if skipDepth > 0 {
					skipDepth--
				}
				continue
			}
			if blockAtoms[token.DataAtom] {
				sb.WriteString("\n")
			}
		case html.TextToken:
			if skipDepth > 0 {
				continue
			}
			sb.WriteString(tokenizer.Token().Data)
		}
	}
}

// Collapse normalizes whitespace: horizontal runs become one space, blank-ish
// lines are dropped, and the result is trimmed. Line structure is preserved
// because the extractors match per line.
func Collapse(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		cleaned := strings.Join(strings.Fields(line), " ")
		if cleaned != "" {
			out = append(out, cleaned)
		}
	}
	return strings.Join(out, "\n")
}
