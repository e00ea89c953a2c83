package main

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func shortGraceConfig() *Config {
	cfg := testConfig()
	cfg.createGrace = 30 * time.Millisecond
	cfg.joinGrace = 30 * time.Millisecond
	return cfg
}

func TestCreateGraceEvictsAbsentHost(t *testing.T) {
	g, _ := testGame(shortGraceConfig())

	s, err := g.CreateSession("ghost", "host", "Alice", 4)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	waitFor(t, time.Second, func() bool {
		return !g.registry.SessionExists(s.ID)
	})
}

func TestAttachCancelsCreateGrace(t *testing.T) {
	g, _ := testGame(shortGraceConfig())

	s, err := g.CreateSession("sticky", "host", "Alice", 4)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if err := g.AttachConnection(s.ID, "host"); err != nil {
		t.Fatalf("AttachConnection: %v", err)
	}

	time.Sleep(120 * time.Millisecond)

	if !g.registry.SessionExists(s.ID) {
		t.Fatal("session torn down despite the host being connected")
	}
}

func TestJoinGraceEvictsAbsentJoiner(t *testing.T) {
	g, _ := testGame(shortGraceConfig())

	var lobbyUpdates atomic.Int32
	g.lobbyChanged = func() { lobbyUpdates.Add(1) }

	s, err := g.CreateSession("room", "host", "Alice", 4)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if err := g.AttachConnection(s.ID, "host"); err != nil {
		t.Fatalf("AttachConnection: %v", err)
	}
	if err := g.JoinSession(s.ID, "u2", "Bob"); err != nil {
		t.Fatalf("JoinSession: %v", err)
	}

	waitFor(t, time.Second, func() bool {
		return !g.registry.IsParticipantAdmitted(s.ID, "u2")
	})

	if !g.registry.SessionExists(s.ID) {
		t.Fatal("session torn down although the host stayed")
	}
	if !g.IsAllowed(s.ID, "host") {
		t.Fatal("host lost their roster seat")
	}

	// Create, join, and exactly one eviction update.
	time.Sleep(60 * time.Millisecond)
	if got := lobbyUpdates.Load(); got != 3 {
		t.Fatalf("lobby updates = %d, want 3", got)
	}
}

func TestAttachCancelsJoinGrace(t *testing.T) {
	g, _ := testGame(shortGraceConfig())

	s, err := g.CreateSession("room", "host", "Alice", 4)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if err := g.AttachConnection(s.ID, "host"); err != nil {
		t.Fatalf("AttachConnection: %v", err)
	}
	if err := g.JoinSession(s.ID, "u2", "Bob"); err != nil {
		t.Fatalf("JoinSession: %v", err)
	}
	if err := g.AttachConnection(s.ID, "u2"); err != nil {
		t.Fatalf("AttachConnection: %v", err)
	}

	time.Sleep(120 * time.Millisecond)

	if !g.registry.IsParticipantAdmitted(s.ID, "u2") {
		t.Fatal("connected joiner was evicted by the grace timer")
	}
}

func TestAttachFailureRearmsGrace(t *testing.T) {
	g, _ := testGame(shortGraceConfig())

	s, err := g.CreateSession("room", "host", "Alice", 4)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if err := g.AttachConnection(s.ID, "host"); err != nil {
		t.Fatalf("AttachConnection: %v", err)
	}
	if err := g.JoinSession(s.ID, "u2", "Bob"); err != nil {
		t.Fatalf("JoinSession: %v", err)
	}
	if err := g.AttachConnection(s.ID, "u2"); err != nil {
		t.Fatalf("AttachConnection: %v", err)
	}

	// The transport failed to finish the upgrade after Attach cleared the
	// join grace timer.
	g.HandleAttachFailure(s.ID, "u2")

	if g.registry.isConnected("u2") {
		t.Fatal("participant still marked connected after a failed attach")
	}

	waitFor(t, time.Second, func() bool {
		return !g.registry.IsParticipantAdmitted(s.ID, "u2")
	})
	if !g.registry.SessionExists(s.ID) {
		t.Fatal("session torn down although the host stayed")
	}
}

func TestDisconnectBeforeStartEvicts(t *testing.T) {
	g, _ := testGame(nil)
	s := seatSession(t, g, 1)

	if err := g.AttachConnection(s.ID, "u2"); err != nil {
		t.Fatalf("AttachConnection: %v", err)
	}

	g.HandleDisconnect(s.ID, "u2")

	if g.registry.IsParticipantAdmitted(s.ID, "u2") {
		t.Fatal("pre-start disconnect must forfeit the seat")
	}
}

func TestDisconnectAfterStartKeepsAdmission(t *testing.T) {
	g, _ := testGame(nil)
	s := seatSession(t, g, 1)

	if err := g.AttachConnection(s.ID, "u2"); err != nil {
		t.Fatalf("AttachConnection: %v", err)
	}
	if err := g.StartMatch(s.ID); err != nil {
		t.Fatalf("StartMatch: %v", err)
	}

	g.HandleDisconnect(s.ID, "u2")

	if !g.registry.IsParticipantAdmitted(s.ID, "u2") {
		t.Fatal("mid-match disconnect must keep the admission")
	}
	if g.registry.isConnected("u2") {
		t.Fatal("participant still marked connected")
	}
	if err := g.AttachConnection(s.ID, "u2"); err != nil {
		t.Fatalf("reattach after disconnect: %v", err)
	}
	wantKind(t, g.AttachConnection(s.ID, "u2"), KindConflict)
}

func TestTurnTimerRotates(t *testing.T) {
	cfg := testConfig()
	cfg.turnLength = 30 * time.Millisecond
	g, _ := testGame(cfg)

	var rotations atomic.Int32
	g.turnRotated = func(string) { rotations.Add(1) }

	s := seatSession(t, g, 3)
	if err := g.StartMatch(s.ID); err != nil {
		t.Fatalf("StartMatch: %v", err)
	}
	_, first := currentTurn(s)

	waitFor(t, time.Second, func() bool {
		_, current := currentTurn(s)
		return current != first && rotations.Load() >= 1
	})
}

func TestTeardownRecordsStartedMatch(t *testing.T) {
	g, recorder := testGame(nil)
	s, _, guesser, _ := startedMatch(t, g)
	setWord(s, "apple")

	verdict, err := g.HandleChat(s.ID, guesser, "apple")
	if err != nil {
		t.Fatalf("HandleChat: %v", err)
	}
	if verdict != VerdictCorrect {
		t.Fatalf("verdict = %s, want correct", verdict)
	}

	for _, id := range []string{"u2", "u3", "u4", "host"} {
		if err := g.Evict(s.ID, id); err != nil {
			t.Fatalf("Evict %s: %v", id, err)
		}
	}

	waitFor(t, time.Second, func() bool {
		recorder.mu.Lock()
		defer recorder.mu.Unlock()
		return len(recorder.records) == 1
	})

	recorder.mu.Lock()
	record := recorder.records[0]
	recorder.mu.Unlock()

	if record.SessionID != s.ID || !record.Started {
		t.Fatalf("record = %+v, want started session %s", record, s.ID)
	}
	if record.Score[TeamRed]+record.Score[TeamBlue] != 1 {
		t.Fatalf("recorded score = %v, want one point total", record.Score)
	}
	if len(record.WordsUsed) == 0 || record.WordsUsed[0] != "apple" {
		t.Fatalf("recorded words = %v, want apple first", record.WordsUsed)
	}
	if record.EndedAt.IsZero() {
		t.Fatal("record has no end timestamp")
	}

	// Departed players keep their counters in the recorded roster.
	if len(record.Roster) != 4 {
		t.Fatalf("recorded roster = %d entries, want 4", len(record.Roster))
	}
	guessed, described := 0, 0
	for _, p := range record.Roster {
		guessed += p.WordsGuessed
		described += p.WellDescribed
	}
	if guessed != 1 || described != 1 {
		t.Fatalf("recorded counters = %d guessed / %d described, want 1 / 1", guessed, described)
	}
}

func TestReapLoopRemovesIdleSessions(t *testing.T) {
	g, _ := testGame(nil)
	s := seatSession(t, g, 1)

	s.mu.Lock()
	s.lastActive = time.Now().Add(-time.Hour)
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go g.reapLoop(ctx, 40*time.Millisecond)

	waitFor(t, time.Second, func() bool {
		return !g.registry.SessionExists(s.ID)
	})
}
