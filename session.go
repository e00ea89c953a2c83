/*
Copyright © 2025 Pawbag123 <pawbag123@proton.me>
*/

package main

import (
	"sync"
	"time"
)

type Team string

const (
	TeamRed  Team = "red"
	TeamBlue Team = "blue"
)

func opposingTeam(t Team) Team {
	if t == TeamRed {
		return TeamBlue
	}
	return TeamRed
}

func parseTeam(s string) (Team, bool) {
	switch Team(s) {
	case TeamRed:
		return TeamRed, true
	case TeamBlue:
		return TeamBlue, true
	default:
		return "", false
	}
}

// Participant is one roster entry of a session. The per-session counters
// start at zero and only ever increase for the session's lifetime.
type Participant struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Team          Team   `json:"team"`
	WordsGuessed  int    `json:"words_guessed"`
	WellDescribed int    `json:"well_described"`
}

// Turn records whose team is up and which individual is describing.
// alreadyDescribed holds the describer ids rotated through since the last
// full cycle of the currently active team.
type Turn struct {
	Team             Team
	DescriberID      string
	DescriberName    string
	AlreadyDescribed map[string]struct{}
}

// Session is one match/lobby-room instance. All of its fields are read and
// written only while mu is held, so interleaved events from concurrent
// connections observe a single consistent sequence of transitions. The
// Registry holds the only authoritative reference.
type Session struct {
	mu sync.Mutex

	ID       string
	Name     string
	HostID   string
	Capacity int
	Started  bool

	Roster []*Participant
	Turn   *Turn

	// departed keeps the final counters of participants who left after
	// the match started, so the recorded result still credits them.
	departed []Participant

	Word      string
	WordsUsed []string

	Score     map[Team]int
	SkipsUsed int

	lastActive time.Time
}

func newSession(id, name, hostID string, capacity int) *Session {
	return &Session{
		ID:         id,
		Name:       name,
		HostID:     hostID,
		Capacity:   capacity,
		Score:      map[Team]int{TeamRed: 0, TeamBlue: 0},
		lastActive: time.Now(),
	}
}

// participantLocked returns the roster entry for id, or nil.
func (s *Session) participantLocked(id string) *Participant {
	for _, p := range s.Roster {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (s *Session) teamSizeLocked(team Team) int {
	n := 0
	for _, p := range s.Roster {
		if p.Team == team {
			n++
		}
	}
	return n
}

// leastPopulatedTeamLocked picks the team a new participant joins: the
// team with fewer members, ties going to red.
func (s *Session) leastPopulatedTeamLocked() Team {
	if s.teamSizeLocked(TeamBlue) < s.teamSizeLocked(TeamRed) {
		return TeamBlue
	}
	return TeamRed
}

func (s *Session) removeFromRosterLocked(id string) bool {
	for i, p := range s.Roster {
		if p.ID == id {
			if s.Started {
				s.departed = append(s.departed, *p)
			}
			s.Roster = append(s.Roster[:i], s.Roster[i+1:]...)
			return true
		}
	}
	return false
}

func (s *Session) touchLocked() {
	s.lastActive = time.Now()
}

// LobbySummary is the read-only projection broadcast to lobby clients.
type LobbySummary struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Players  int    `json:"players"`
	Capacity int    `json:"capacity"`
	Started  bool   `json:"started"`
}

// RoomView is the pre-start projection of a session: host plus team
// rosters by display name.
type RoomView struct {
	SessionID string   `json:"session_id"`
	Name      string   `json:"name"`
	Host      string   `json:"host"`
	Red       []string `json:"red"`
	Blue      []string `json:"blue"`
}

// MatchPlayer is one roster entry in the live-match projection, with its
// live-connection flag.
type MatchPlayer struct {
	Name          string `json:"name"`
	Connected     bool   `json:"connected"`
	WordsGuessed  int    `json:"words_guessed"`
	WellDescribed int    `json:"well_described"`
}

type TurnView struct {
	Team      Team   `json:"team"`
	Describer string `json:"describer"`
}

// MatchView is the live-match projection. Word is populated only in the
// copy sent to the current describer.
type MatchView struct {
	SessionID string        `json:"session_id"`
	Red       []MatchPlayer `json:"red"`
	Blue      []MatchPlayer `json:"blue"`
	Turn      *TurnView     `json:"turn,omitempty"`
	Score     map[Team]int  `json:"score"`
	SkipsUsed int           `json:"skips_used"`
	Word      string        `json:"word,omitempty"`
}
