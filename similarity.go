/*
Copyright © 2025 Pawbag123 <pawbag123@proton.me>
*/

package main

import (
	"strings"
	"unicode"
)

// Tolerances for fuzzy matching. These are tuning constants, not protocol
// parameters; clients never negotiate them.
const (
	maxGuessDistance      = 2
	maxDerivativeDistance = 1
	minFuzzyGuessLen      = 4
)

// Suffixes and prefixes recognized as morphological derivatives of the
// secret word. A describer saying "applesauce" or "preheat" gives the
// word away just as surely as saying it outright.
var (
	derivativeSuffixes = []string{
		"s", "es", "ed", "ing", "er", "ers", "est", "ly",
		"y", "ish", "ful", "less", "ness", "tion", "sauce",
	}
	derivativePrefixes = []string{
		"un", "re", "pre", "dis", "mis", "non", "over", "under",
	}
)

// normalizeWord lowercases s, trims surrounding space, and strips
// punctuation and symbols, leaving letters, digits and internal spaces.
func normalizeWord(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// levenshtein returns the classic edit distance between a and b:
// insertions, deletions and substitutions, each at cost one.
func levenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}

	return prev[len(rb)]
}

// damerauLevenshtein is the transposition-aware variant used for guesses,
// since guess typos more often involve swapped adjacent letters
// ("bananna", "teh") than outright substitutions.
func damerauLevenshtein(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 {
		return len(rb)
	}
	if len(rb) == 0 {
		return len(ra)
	}

	rows := make([][]int, len(ra)+1)
	for i := range rows {
		rows[i] = make([]int, len(rb)+1)
		rows[i][0] = i
	}
	for j := 0; j <= len(rb); j++ {
		rows[0][j] = j
	}

	for i := 1; i <= len(ra); i++ {
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			d := min(rows[i-1][j]+1, rows[i][j-1]+1, rows[i-1][j-1]+cost)
			if i > 1 && j > 1 && ra[i-1] == rb[j-2] && ra[i-2] == rb[j-1] {
				d = min(d, rows[i-2][j-2]+1)
			}
			rows[i][j] = d
		}
	}

	return rows[len(ra)][len(rb)]
}

// isDerivative reports whether token gives away word: an exact match, a
// recognized suffix/prefix formation on the word's stem, or a spelling
// within the (strict) describer tolerance of the word itself.
func isDerivative(token, word string) bool {
	if token == "" || word == "" {
		return false
	}
	if token == word {
		return true
	}

	if strings.HasPrefix(token, word) {
		rest := token[len(word):]
		for _, suffix := range derivativeSuffixes {
			if rest == suffix {
				return true
			}
		}
	}

	if strings.HasSuffix(token, word) {
		rest := token[:len(token)-len(word)]
		for _, prefix := range derivativePrefixes {
			if rest == prefix {
				return true
			}
		}
	}

	return levenshtein(token, word) <= maxDerivativeDistance
}

// containsDerivative tokenizes a normalized message on whitespace and
// reports the first token that matches or derives from the secret word.
func containsDerivative(message, word string) (string, bool) {
	word = normalizeWord(word)
	for _, token := range strings.Fields(normalizeWord(message)) {
		if isDerivative(token, word) {
			return token, true
		}
	}
	return "", false
}
