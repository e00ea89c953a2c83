package main

import (
	"errors"
	"strings"
	"testing"
)

func TestLexiconPickNeverRepeats(t *testing.T) {
	lexicon := newLexiconFromWords([]string{"apple", "banana", "castle"})
	used := make(map[string]struct{})

	for i := 0; i < lexicon.size(); i++ {
		word, err := lexicon.pick(used)
		if err != nil {
			t.Fatalf("pick %d: unexpected error: %v", i, err)
		}
		if _, seen := used[word]; seen {
			t.Fatalf("pick %d: word %q drawn twice", i, word)
		}
		used[word] = struct{}{}
	}

	if _, err := lexicon.pick(used); !errors.Is(err, errLexiconExhausted) {
		t.Fatalf("exhausted pool: got %v, want errLexiconExhausted", err)
	}
}

func TestNewLexiconParsesEmbeddedPool(t *testing.T) {
	lexicon := newLexicon()
	if lexicon.size() == 0 {
		t.Fatal("embedded word pool is empty")
	}

	seen := make(map[string]struct{}, lexicon.size())
	for _, word := range lexicon.words {
		if word == "" {
			t.Fatal("empty word in pool")
		}
		if word != strings.ToLower(strings.TrimSpace(word)) {
			t.Fatalf("word %q is not normalized", word)
		}
		if _, dup := seen[word]; dup {
			t.Fatalf("duplicate word %q in pool", word)
		}
		seen[word] = struct{}{}
	}
}
