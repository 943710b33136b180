// Package tokenizer splits raw documents into paragraphs and paragraphs into
// their distinct lowercase words. It is pure: any input string is accepted
// and the output is fully determined by it.
package tokenizer

import "strings"

// paragraphSeparator is the fixed paragraph boundary: a blank line.
const paragraphSeparator = "\n\n"

// ParagraphUnit is one paragraph of a document together with the set of
// distinct lowercase words it contains. Words preserves first-seen order so
// downstream index writes are deterministic.
type ParagraphUnit struct {
	Text  string
	Words []string
}

// Split breaks raw text into paragraph units on blank-line boundaries.
//
// An empty input yields a single unit with empty text and no words; this
// falls out of the separator-split semantics and callers rely on it, so it
// must not be special-cased to zero units.
func Split(raw string) []ParagraphUnit {
	blocks := strings.Split(raw, paragraphSeparator)
	units := make([]ParagraphUnit, 0, len(blocks))
	for _, block := range blocks {
		units = append(units, ParagraphUnit{
			Text:  block,
			Words: distinctWords(block),
		})
	}
	return units
}

// distinctWords lowercases text, splits it on whitespace runs, and collapses
// duplicates, keeping first-seen order. Blank text produces no words.
func distinctWords(text string) []string {
	fields := strings.Fields(strings.ToLower(text))
	if len(fields) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(fields))
	words := make([]string, 0, len(fields))
	for _, w := range fields {
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		words = append(words, w)
	}
	return words
}
