/*
Copyright © 2025 Pawbag123 <pawbag123@proton.me>
*/

package main

import (
	"context"
	"sync"
	"time"
)

// Game wires the session engine together: the registry it mutates, the
// lexicon it draws words from, and the recorder that receives finished
// match results. One Game serves the whole process; the transport layer
// dispatches events into it and broadcasts the views it returns.
type Game struct {
	cfg      *Config
	registry *Registry
	lexicon  *Lexicon
	recorder MatchRecorder

	timerMu    sync.Mutex
	turnTimers map[string]*time.Timer

	// lobbyChanged fires after any mutation that alters the lobby listing.
	// turnRotated fires when a session's turn advances on the clock.
	lobbyChanged func()
	turnRotated  func(sessionID string)
}

func newGame(cfg *Config, registry *Registry, lexicon *Lexicon, recorder MatchRecorder) *Game {
	return &Game{
		cfg:          cfg,
		registry:     registry,
		lexicon:      lexicon,
		recorder:     recorder,
		turnTimers:   make(map[string]*time.Timer),
		lobbyChanged: func() {},
		turnRotated:  func(string) {},
	}
}

// teardown finalizes a session that has emptied out or been reaped. If the
// match had started, its result is committed fire-and-forget: a failure to
// persist is logged and never resurrects the in-memory session.
func (g *Game) teardown(s *Session) {
	g.stopTurnTimer(s.ID)

	s.mu.Lock()
	record := MatchRecord{
		SessionID: s.ID,
		HostID:    s.HostID,
		Started:   s.Started,
		Score:     map[Team]int{TeamRed: s.Score[TeamRed], TeamBlue: s.Score[TeamBlue]},
		WordsUsed: append([]string(nil), s.WordsUsed...),
		EndedAt:   time.Now(),
	}
	record.Roster = append(record.Roster, s.departed...)
	for _, p := range s.Roster {
		record.Roster = append(record.Roster, *p)
	}
	name := s.Name
	s.mu.Unlock()

	g.registry.Remove(s.ID)
	logf(g.cfg, "GAMES: Session %q (%s) torn down", name, record.SessionID)

	if !record.Started {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := g.recorder.RecordMatchResult(ctx, record); err != nil {
			logf(g.cfg, "STATS: Failed to record match %q: %v", record.SessionID, err)
		}
	}()
}
