// Package normalize holds the pure string functions shared by ingestion, search and scanning:
// search keys for display fields and the reduction of overlapping folder selections.
package normalize

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

const (
	accents = "ÀÁÂÃÄÅàáâãäåÒÓÔÕÖØòóôõöøÈÉÊËèéêëðÇçÐÌÍÎÏìíîïÙÚÛÜùúûüÑñŠšŸÿýŽž"
	fixes   = "AAAAAAaaaaaaOOOOOOooooooEEEEeeeeeCcDIIIIiiiiUUUUuuuuNnSsYyyZz"
)

var accentTable = buildAccentTable()

func buildAccentTable() map[rune]rune {
	from := []rune(accents)
	to := []rune(fixes)
	if len(from) != len(to) {
		panic("normalize: accent table is unbalanced")
	}
	table := make(map[rune]rune, len(from))
	for i, r := range from {
		table[r] = to[i]
	}
	return table
}

// StripAccents replaces every accented letter of the table with its base letter.
// Characters outside the table pass through unchanged.
func StripAccents(s string) string {
	out, _, err := transform.String(runes.Map(stripRune), s)
	if err != nil {
		return s
	}
	return out
}

func stripRune(r rune) rune {
	if base, ok := accentTable[r]; ok {
		return base
	}
	return r
}

// SearchKey returns the accent-stripped, case-folded form of s used for search and sorting.
//
// Accents are stripped before folding, and once more after it because folding can produce
// table characters (the angstrom sign folds to å). The result is a fixed point:
// SearchKey(SearchKey(s)) == SearchKey(s).
func SearchKey(s string) string {
	// transformers carry state, so the chain is built per call
	chain := transform.Chain(runes.Map(stripRune), cases.Fold(), runes.Map(stripRune))
	out, _, err := transform.String(chain, s)
	if err != nil {
		return s
	}
	return out
}
