/*
Copyright © 2025 Pawbag123 <pawbag123@proton.me>
*/

package main

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// activeConn tracks a participant who has been admitted to a session but
// may or may not hold a live websocket. The grace timer is armed between
// admission and the first attach, and fires eviction if it lapses.
type activeConn struct {
	sessionID string
	connected bool
	grace     *time.Timer
}

// Registry is the authoritative in-memory store of sessions and of
// admitted participants. It is constructed once at the composition point
// and injected everywhere; there is no package-level instance.
//
// Locking: mu guards map membership of sessions and conns. Each session's
// own mutex serializes the session's state, so unrelated sessions never
// queue behind one another. When both are needed, the session lock is
// taken first.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	conns    map[string]*activeConn
	names    map[string]string // display name -> session id, unstarted sessions only
}

func newRegistry() *Registry {
	return &Registry{
		sessions: make(map[string]*Session),
		conns:    make(map[string]*activeConn),
		names:    make(map[string]string),
	}
}

// CreateSession creates a session with the given display name and admits
// the host as its first roster entry. Display names must be unique among
// sessions that have not started yet.
func (r *Registry) CreateSession(name, hostID, hostName string, capacity int) (*Session, error) {
	if name == "" {
		return nil, invalidInput("session name must not be empty")
	}
	if capacity < 2 {
		return nil, invalidInput("session capacity must be at least 2")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, taken := r.names[name]; taken {
		return nil, conflict("session name %q is already in use", name)
	}

	s := newSession(uuid.NewString(), name, hostID, capacity)
	s.Roster = append(s.Roster, &Participant{
		ID:   hostID,
		Name: hostName,
		Team: TeamRed,
	})

	r.sessions[s.ID] = s
	r.conns[hostID] = &activeConn{sessionID: s.ID}
	r.names[name] = s.ID

	return s, nil
}

// releaseName frees a display name for reuse once its session starts;
// uniqueness is only enforced among unstarted sessions.
func (r *Registry) releaseName(name, sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.names[name] == sessionID {
		delete(r.names, name)
	}
}

// Session looks up a session by id.
func (r *Registry) Session(id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[id]
	if !ok {
		return nil, notFound("unknown session %q", id)
	}
	return s, nil
}

// Participant looks up one roster entry of a session, returned by value so
// callers never hold a reference outside the session lock.
func (r *Registry) Participant(sessionID, userID string) (Participant, error) {
	s, err := r.Session(sessionID)
	if err != nil {
		return Participant{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.participantLocked(userID)
	if p == nil {
		return Participant{}, notFound("unknown participant %q in session %q", userID, sessionID)
	}
	return *p, nil
}

// Sessions returns all active sessions, ordered by display name.
func (r *Registry) Sessions() []*Session {
	r.mu.RLock()
	out := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Remove tears a session out of the registry, purging every admitted
// participant tracked for it and stopping their grace timers.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, id)
	for name, owner := range r.names {
		if owner == id {
			delete(r.names, name)
		}
	}
	for userID, conn := range r.conns {
		if conn.sessionID != id {
			continue
		}
		if conn.grace != nil {
			conn.grace.Stop()
		}
		delete(r.conns, userID)
	}
}

// track records a participant's admission to a session.
func (r *Registry) track(userID, sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.conns[userID]; ok && old.grace != nil {
		old.grace.Stop()
	}
	r.conns[userID] = &activeConn{sessionID: sessionID}
}

// setGrace arms the admission grace timer for a participant. Any previous
// timer is stopped first.
func (r *Registry) setGrace(userID string, t *time.Timer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.conns[userID]
	if !ok {
		t.Stop()
		return
	}
	if conn.grace != nil {
		conn.grace.Stop()
	}
	conn.grace = t
}

// clearGrace cancels a pending grace timer, if any.
func (r *Registry) clearGrace(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if conn, ok := r.conns[userID]; ok && conn.grace != nil {
		conn.grace.Stop()
		conn.grace = nil
	}
}

// drop removes a participant from active-connection tracking entirely.
func (r *Registry) drop(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if conn, ok := r.conns[userID]; ok {
		if conn.grace != nil {
			conn.grace.Stop()
		}
		delete(r.conns, userID)
	}
}

// Attach marks a participant's live connection as present and clears any
// pending grace timer. It enforces the single-connection-per-participant
// invariant and rejects users not admitted to the session.
func (r *Registry) Attach(sessionID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.conns[userID]
	if !ok || conn.sessionID != sessionID {
		return notFound("user %q is not admitted to session %q", userID, sessionID)
	}
	if conn.connected {
		return conflict("user %q already has a live connection", userID)
	}

	if conn.grace != nil {
		conn.grace.Stop()
		conn.grace = nil
	}
	conn.connected = true
	return nil
}

// Detach marks a participant's live connection as gone while keeping the
// admission, so a started session can be rejoined.
func (r *Registry) Detach(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if conn, ok := r.conns[userID]; ok {
		conn.connected = false
	}
}

func (r *Registry) isConnected(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.conns[userID]
	return ok && conn.connected
}

// sessionOf returns the session id a user is admitted to, if any.
func (r *Registry) sessionOf(userID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.conns[userID]
	if !ok {
		return "", false
	}
	return conn.sessionID, true
}

// Guard predicates. These are the read-only checks the transport layer
// runs before dispatching an event into a mutator; boolean queries return
// false for unknown ids rather than erroring.

func (r *Registry) SessionExists(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.sessions[id]
	return ok
}

func (r *Registry) IsParticipantAdmitted(sessionID, userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.conns[userID]
	return ok && conn.sessionID == sessionID
}

func (r *Registry) IsSessionStarted(id string) bool {
	s, err := r.Session(id)
	if err != nil {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Started
}

func (r *Registry) IsSessionFull(id string) bool {
	s, err := r.Session(id)
	if err != nil {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Roster) >= s.Capacity
}

func (r *Registry) HasSkipsRemaining(id string) bool {
	s, err := r.Session(id)
	if err != nil {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Started && s.SkipsUsed < maxSkipsPerTurn
}

func (r *Registry) IsDescriber(sessionID, userID string) bool {
	s, err := r.Session(sessionID)
	if err != nil {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Turn != nil && s.Turn.DescriberID == userID
}

// IsAllowedToGuess reports whether a user's guess could score right now:
// match started, turn active, user on the active team and not describing.
// Chat dispatch re-derives this under the session lock because off-turn
// messages pass through as plain chat instead of being rejected; the
// predicate is for transports that gate guess affordances before dispatch.
func (r *Registry) IsAllowedToGuess(sessionID, userID string) bool {
	s, err := r.Session(sessionID)
	if err != nil {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Started || s.Turn == nil || s.Turn.DescriberID == userID {
		return false
	}
	p := s.participantLocked(userID)
	return p != nil && p.Team == s.Turn.Team
}

func (r *Registry) HasTooFewPlayers(id string, minPlayers int) bool {
	s, err := r.Session(id)
	if err != nil {
		return true
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Roster) < minPlayers
}

// LobbySummaries projects every session into its lobby row.
func (r *Registry) LobbySummaries() []LobbySummary {
	sessions := r.Sessions()
	out := make([]LobbySummary, 0, len(sessions))

	for _, s := range sessions {
		s.mu.Lock()
		out = append(out, LobbySummary{
			ID:       s.ID,
			Name:     s.Name,
			Players:  len(s.Roster),
			Capacity: s.Capacity,
			Started:  s.Started,
		})
		s.mu.Unlock()
	}

	return out
}

// RoomView projects a pre-start session: host plus team rosters by name.
func (r *Registry) RoomView(id string) (RoomView, error) {
	s, err := r.Session(id)
	if err != nil {
		return RoomView{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	view := RoomView{
		SessionID: s.ID,
		Name:      s.Name,
		Red:       []string{},
		Blue:      []string{},
	}
	for _, p := range s.Roster {
		if p.ID == s.HostID {
			view.Host = p.Name
		}
		switch p.Team {
		case TeamRed:
			view.Red = append(view.Red, p.Name)
		case TeamBlue:
			view.Blue = append(view.Blue, p.Name)
		}
	}

	return view, nil
}

// MatchViewFor projects the live match for one viewer. The secret word is
// included only when the viewer is the current describer.
func (r *Registry) MatchViewFor(id, viewerID string) (MatchView, error) {
	s, err := r.Session(id)
	if err != nil {
		return MatchView{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	view := MatchView{
		SessionID: s.ID,
		Red:       []MatchPlayer{},
		Blue:      []MatchPlayer{},
		Score:     map[Team]int{TeamRed: s.Score[TeamRed], TeamBlue: s.Score[TeamBlue]},
		SkipsUsed: s.SkipsUsed,
	}

	for _, p := range s.Roster {
		mp := MatchPlayer{
			Name:          p.Name,
			Connected:     r.isConnected(p.ID),
			WordsGuessed:  p.WordsGuessed,
			WellDescribed: p.WellDescribed,
		}
		switch p.Team {
		case TeamRed:
			view.Red = append(view.Red, mp)
		case TeamBlue:
			view.Blue = append(view.Blue, mp)
		}
	}

	if s.Turn != nil {
		view.Turn = &TurnView{Team: s.Turn.Team, Describer: s.Turn.DescriberName}
		if s.Turn.DescriberID == viewerID {
			view.Word = s.Word
		}
	}

	return view, nil
}
