/*
Copyright © 2025 Pawbag123 <pawbag123@proton.me>
*/

package main

import (
	"math/rand"
)

// maxSkipsPerTurn bounds how many words a describer may discard before the
// turn rotates. The counter resets on every advance.
const maxSkipsPerTurn = 3

// StartMatch transitions a session from the lobby-room phase into play:
// a uniformly random roster member opens as describer for their team, and
// the first secret word is drawn.
func (g *Game) StartMatch(sessionID string) error {
	s, err := g.registry.Session(sessionID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Started {
		return ruleViolation("session %q has already started", s.Name)
	}
	if len(s.Roster) < g.cfg.minPlayers {
		return ruleViolation("need at least %d players to start", g.cfg.minPlayers)
	}

	first := s.Roster[rand.Intn(len(s.Roster))]
	if err := g.nextWordLocked(s); err != nil {
		return err
	}
	s.Turn = &Turn{
		Team:             first.Team,
		DescriberID:      first.ID,
		DescriberName:    first.Name,
		AlreadyDescribed: make(map[string]struct{}),
	}
	s.Started = true
	s.SkipsUsed = 0

	s.touchLocked()
	g.registry.releaseName(s.Name, s.ID)
	g.armTurnTimer(sessionID)
	logf(g.cfg, "GAMES: Session %q started, %q describes for team %s", s.Name, first.Name, first.Team)

	return nil
}

// AdvanceTurn rotates play to the opposing team.
func (g *Game) AdvanceTurn(sessionID string) error {
	s, err := g.registry.Session(sessionID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Started || s.Turn == nil {
		return ruleViolation("session %q has no active turn", s.Name)
	}

	g.advanceTurnLocked(s)
	s.touchLocked()
	g.armTurnTimer(sessionID)

	return nil
}

// advanceTurnLocked flips the active team and picks the first member of
// the new team (stable roster order) who has not described since the last
// full cycle. Once a whole team has cycled, only the opposing team's ids
// are retained in AlreadyDescribed so the new team becomes eligible again.
// If no candidate exists even then, the describer fields are cleared and
// callers must treat the turn defensively.
func (g *Game) advanceTurnLocked(s *Session) {
	turn := s.Turn
	if turn.DescriberID != "" {
		turn.AlreadyDescribed[turn.DescriberID] = struct{}{}
	}

	next := opposingTeam(turn.Team)
	turn.Team = next
	s.SkipsUsed = 0

	pick := s.firstFreshDescriberLocked(next)
	if pick == nil {
		// Full cycle: release the new team's members, keep the other side's.
		retained := make(map[string]struct{})
		for id := range turn.AlreadyDescribed {
			if p := s.participantLocked(id); p != nil && p.Team != next {
				retained[id] = struct{}{}
			}
		}
		turn.AlreadyDescribed = retained
		pick = s.firstFreshDescriberLocked(next)
	}

	if pick == nil {
		turn.DescriberID = ""
		turn.DescriberName = ""
		return
	}

	turn.DescriberID = pick.ID
	turn.DescriberName = pick.Name
}

func (s *Session) firstFreshDescriberLocked(team Team) *Participant {
	for _, p := range s.Roster {
		if p.Team != team {
			continue
		}
		if _, described := s.Turn.AlreadyDescribed[p.ID]; !described {
			return p
		}
	}
	return nil
}

// SkipWord lets the current describer discard the active word, bounded by
// the per-turn skip allowance.
func (g *Game) SkipWord(sessionID, userID string) error {
	s, err := g.registry.Session(sessionID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Started || s.Turn == nil {
		return ruleViolation("session %q has no active turn", s.Name)
	}
	if s.Turn.DescriberID != userID {
		return ruleViolation("only the describer may skip the word")
	}
	if s.SkipsUsed >= maxSkipsPerTurn {
		return ruleViolation("no skips left this turn")
	}

	if err := g.nextWordLocked(s); err != nil {
		return err
	}
	s.SkipsUsed++
	s.touchLocked()

	return nil
}

// nextWordLocked retires the active word into WordsUsed and draws a fresh
// one, guaranteed never to repeat within the session. The session is only
// mutated once the draw has succeeded, so an exhausted pool leaves the
// current word in play.
func (g *Game) nextWordLocked(s *Session) error {
	used := make(map[string]struct{}, len(s.WordsUsed)+1)
	for _, w := range s.WordsUsed {
		used[w] = struct{}{}
	}
	if s.Word != "" {
		used[s.Word] = struct{}{}
	}

	word, err := g.lexicon.pick(used)
	if err != nil {
		return ruleViolation("no words left to play in session %q", s.Name)
	}

	if s.Word != "" {
		s.WordsUsed = append(s.WordsUsed, s.Word)
	}
	s.Word = word

	return nil
}

// correctGuessLocked applies a successful guess: a fresh word first (the
// only step that can fail), then the guesser's and the describer's
// personal counters and the active team's score.
func (g *Game) correctGuessLocked(s *Session, guesser *Participant) error {
	if err := g.nextWordLocked(s); err != nil {
		return err
	}

	guesser.WordsGuessed++
	if describer := s.participantLocked(s.Turn.DescriberID); describer != nil {
		describer.WellDescribed++
	}
	s.Score[s.Turn.Team]++

	return nil
}
