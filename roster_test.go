package main

import (
	"testing"
	"time"
)

func TestAdmitBalancesTeams(t *testing.T) {
	g, _ := testGame(nil)
	s := seatSession(t, g, 3)

	// Host seeds red; each joiner lands on the smaller team, ties to red.
	want := map[string]Team{
		"host": TeamRed,
		"u2":   TeamBlue,
		"u3":   TeamRed,
		"u4":   TeamBlue,
	}
	for id, team := range want {
		p, err := g.registry.Participant(s.ID, id)
		if err != nil {
			t.Fatalf("Participant %s: %v", id, err)
		}
		if p.Team != team {
			t.Errorf("%s on team %s, want %s", id, p.Team, team)
		}
	}
}

func TestAdmitDuplicate(t *testing.T) {
	g, _ := testGame(nil)
	s := seatSession(t, g, 1)

	wantKind(t, g.Admit(s.ID, "u2", "Bob"), KindConflict)
}

func TestAdmitFullSession(t *testing.T) {
	g, _ := testGame(nil)

	s, err := g.CreateSession("tiny", "host", "Alice", 2)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if err := g.JoinSession(s.ID, "u2", "Bob"); err != nil {
		t.Fatalf("JoinSession: %v", err)
	}

	wantKind(t, g.Admit(s.ID, "u3", "Cleo"), KindRuleViolation)
	if !g.registry.IsSessionFull(s.ID) {
		t.Fatal("IsSessionFull = false for a full session")
	}
}

func TestAdmitAfterStart(t *testing.T) {
	g, _ := testGame(nil)
	s := seatSession(t, g, 1)

	if err := g.StartMatch(s.ID); err != nil {
		t.Fatalf("StartMatch: %v", err)
	}

	wantKind(t, g.Admit(s.ID, "u3", "Cleo"), KindRuleViolation)
}

func TestSwitchTeam(t *testing.T) {
	g, _ := testGame(nil)
	s := seatSession(t, g, 1)

	if err := g.SwitchTeam(s.ID, "u2", TeamRed); err != nil {
		t.Fatalf("SwitchTeam: %v", err)
	}
	p, err := g.registry.Participant(s.ID, "u2")
	if err != nil {
		t.Fatalf("Participant: %v", err)
	}
	if p.Team != TeamRed {
		t.Fatalf("team = %s, want red", p.Team)
	}

	// Unknown participants are ignored rather than rejected.
	if err := g.SwitchTeam(s.ID, "stranger", TeamBlue); err != nil {
		t.Fatalf("SwitchTeam for unknown participant: %v", err)
	}

	if err := g.StartMatch(s.ID); err != nil {
		t.Fatalf("StartMatch: %v", err)
	}
	wantKind(t, g.SwitchTeam(s.ID, "u2", TeamBlue), KindRuleViolation)
}

func TestEvictHandsOffHost(t *testing.T) {
	g, _ := testGame(nil)
	s := seatSession(t, g, 1)

	if err := g.Evict(s.ID, "host"); err != nil {
		t.Fatalf("Evict: %v", err)
	}

	s.mu.Lock()
	hostID := s.HostID
	rosterLen := len(s.Roster)
	s.mu.Unlock()

	if hostID != "u2" {
		t.Fatalf("host = %q, want u2", hostID)
	}
	if rosterLen != 1 {
		t.Fatalf("roster size = %d, want 1", rosterLen)
	}
	if g.registry.IsParticipantAdmitted(s.ID, "host") {
		t.Fatal("evicted host still tracked as admitted")
	}
}

func TestEvictLastParticipantTearsDown(t *testing.T) {
	g, recorder := testGame(nil)

	s, err := g.CreateSession("solo", "host", "Alice", 4)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}

	if err := g.Evict(s.ID, "host"); err != nil {
		t.Fatalf("Evict: %v", err)
	}

	if g.registry.SessionExists(s.ID) {
		t.Fatal("emptied session still registered")
	}

	// The match never started, so nothing is recorded.
	recorder.mu.Lock()
	records := len(recorder.records)
	recorder.mu.Unlock()
	if records != 0 {
		t.Fatalf("recorded %d matches for an unstarted session, want 0", records)
	}
}

func TestEvictUnknownParticipant(t *testing.T) {
	g, _ := testGame(nil)
	s := seatSession(t, g, 1)

	wantKind(t, g.Evict(s.ID, "stranger"), KindNotFound)
	wantKind(t, g.Evict("missing", "host"), KindNotFound)
}

func TestEvictDepartingDescriberAdvancesTurn(t *testing.T) {
	g, _ := testGame(nil)
	s := seatSession(t, g, 3)

	forceTurn(s, TeamRed, "host")

	if err := g.Evict(s.ID, "host"); err != nil {
		t.Fatalf("Evict: %v", err)
	}

	team, describer := currentTurn(s)
	if team != TeamBlue {
		t.Fatalf("turn team = %s, want blue", team)
	}
	if describer == "host" || describer == "" {
		t.Fatalf("describer = %q, want a remaining blue player", describer)
	}
}

func TestEvictDescriberRestartsTurnClock(t *testing.T) {
	cfg := testConfig()
	cfg.turnLength = time.Hour
	g, _ := testGame(cfg)
	s := seatSession(t, g, 3)

	if err := g.StartMatch(s.ID); err != nil {
		t.Fatalf("StartMatch: %v", err)
	}
	_, describer := currentTurn(s)

	g.timerMu.Lock()
	before := g.turnTimers[s.ID]
	g.timerMu.Unlock()
	if before == nil {
		t.Fatal("no turn clock armed at start")
	}

	if err := g.Evict(s.ID, describer); err != nil {
		t.Fatalf("Evict: %v", err)
	}

	g.timerMu.Lock()
	after := g.turnTimers[s.ID]
	g.timerMu.Unlock()
	if after == before {
		t.Fatal("replacement describer inherited the departed player's clock")
	}
}

func TestIsAllowed(t *testing.T) {
	g, _ := testGame(nil)
	s := seatSession(t, g, 1)

	if !g.IsAllowed(s.ID, "u2") {
		t.Fatal("rostered participant reported as not allowed")
	}
	if g.IsAllowed(s.ID, "stranger") {
		t.Fatal("stranger reported as allowed")
	}
	if g.IsAllowed("missing", "u2") {
		t.Fatal("unknown session reported as allowed")
	}
}
