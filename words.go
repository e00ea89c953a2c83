/*
Copyright © 2025 Pawbag123 <pawbag123@proton.me>
*/

package main

import (
	_ "embed"
	"errors"
	"math/rand"
	"strings"
)

//go:embed words.txt
var rawWords string

var errLexiconExhausted = errors.New("word pool exhausted")

// Lexicon is the static word pool used for all sessions. It is immutable
// after construction and safe for concurrent use without locking.
type Lexicon struct {
	words []string
}

func newLexicon() *Lexicon {
	lines := strings.Split(strings.TrimSpace(rawWords), "\n")
	words := make([]string, 0, len(lines))
	for _, line := range lines {
		word := strings.ToLower(strings.TrimSpace(line))
		if word == "" {
			continue
		}
		words = append(words, word)
	}
	return &Lexicon{words: words}
}

func newLexiconFromWords(words []string) *Lexicon {
	copied := make([]string, len(words))
	copy(copied, words)
	return &Lexicon{words: copied}
}

func (l *Lexicon) size() int {
	return len(l.words)
}

// pick draws a pseudo-random word not present in used, by rejection
// sampling against the already-played words of a session. Returns
// errLexiconExhausted once every word in the pool has been used.
func (l *Lexicon) pick(used map[string]struct{}) (string, error) {
	if len(used) >= len(l.words) {
		return "", errLexiconExhausted
	}

	for {
		word := l.words[rand.Intn(len(l.words))]
		if _, played := used[word]; !played {
			return word, nil
		}
	}
}
