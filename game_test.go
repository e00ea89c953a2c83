package main

import (
	"testing"
	"time"
)

// testConfig returns a Config suitable for engine tests: grace periods
// long enough to never fire mid-test and the turn clock disabled. Tests
// exercising timers build their own.
func testConfig() *Config {
	return &Config{
		createGrace:    time.Hour,
		joinGrace:      time.Hour,
		maxPlayers:     10,
		minPlayers:     2,
		sessionTimeout: time.Hour,
		turnLength:     0,
	}
}

func testGame(cfg *Config, words ...string) (*Game, *memoryRecorder) {
	if cfg == nil {
		cfg = testConfig()
	}
	if len(words) == 0 {
		words = []string{"apple", "banana", "castle", "dragon", "engine", "feather"}
	}
	recorder := newMemoryRecorder()
	return newGame(cfg, newRegistry(), newLexiconFromWords(words), recorder), recorder
}

// seatSession creates a session hosted by "host"/Alice and admits the
// requested extra players as u2/Bob, u3, u4, ... The default team balance
// seats them red, blue, red, blue in join order.
func seatSession(t *testing.T, g *Game, extras int) *Session {
	t.Helper()

	s, err := g.CreateSession("fruit-bowl", "host", "Alice", 8)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	names := []string{"Bob", "Cleo", "Dana", "Evan", "Faye"}
	for i := 0; i < extras; i++ {
		id := "u" + string(rune('2'+i))
		if err := g.JoinSession(s.ID, id, names[i]); err != nil {
			t.Fatalf("JoinSession %s: %v", id, err)
		}
	}

	return s
}

func setWord(s *Session, word string) {
	s.mu.Lock()
	s.Word = word
	s.mu.Unlock()
}

// forceTurn puts a session into a known started state so rotation tests do
// not depend on the random opening describer.
func forceTurn(s *Session, team Team, describerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Started = true
	var name string
	if p := s.participantLocked(describerID); p != nil {
		name = p.Name
	}
	s.Turn = &Turn{
		Team:             team,
		DescriberID:      describerID,
		DescriberName:    name,
		AlreadyDescribed: make(map[string]struct{}),
	}
}

func currentTurn(s *Session) (Team, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Turn == nil {
		return "", ""
	}
	return s.Turn.Team, s.Turn.DescriberID
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within %v", timeout)
}

func wantKind(t *testing.T, err error, kind ErrorKind) {
	t.Helper()

	if err == nil {
		t.Fatalf("expected %s error, got nil", kind)
	}
	if got := errKind(err); got != kind {
		t.Fatalf("error kind = %s, want %s (err: %v)", got, kind, err)
	}
}
