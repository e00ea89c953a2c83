/*
Copyright © 2025 Pawbag123 <pawbag123@proton.me>
*/

package main

// Admit adds a participant to a session's roster at join time, assigned to
// whichever team has fewer members (ties go to red). Admission fails if
// the session is unknown, full, or already started.
func (g *Game) Admit(sessionID, userID, userName string) error {
	s, err := g.registry.Session(sessionID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Started {
		return ruleViolation("session %q has already started", s.Name)
	}
	if len(s.Roster) >= s.Capacity {
		return ruleViolation("session %q is full", s.Name)
	}
	if s.participantLocked(userID) != nil {
		return conflict("user %q is already in session %q", userName, s.Name)
	}

	s.Roster = append(s.Roster, &Participant{
		ID:   userID,
		Name: userName,
		Team: s.leastPopulatedTeamLocked(),
	})
	s.touchLocked()

	g.registry.track(userID, sessionID)
	logf(g.cfg, "GAMES: %q joined session %q", userName, s.Name)

	return nil
}

// SwitchTeam reassigns a roster participant's team before the match
// starts. An unknown participant is a silent no-op; historical clients
// depend on that being a success.
func (g *Game) SwitchTeam(sessionID, userID string, team Team) error {
	s, err := g.registry.Session(sessionID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Started {
		return ruleViolation("teams are locked once the match has started")
	}

	if p := s.participantLocked(userID); p != nil {
		p.Team = team
		s.touchLocked()
	}

	return nil
}

// Evict removes a participant from the roster and from active-connection
// tracking. When the host leaves a non-empty session, the first remaining
// roster entry inherits the host role; an emptied session is torn down.
func (g *Game) Evict(sessionID, userID string) error {
	s, err := g.registry.Session(sessionID)
	if err != nil {
		return err
	}

	s.mu.Lock()

	if !s.removeFromRosterLocked(userID) {
		s.mu.Unlock()
		return notFound("user %q is not in session %q", userID, s.Name)
	}
	g.registry.drop(userID)

	if len(s.Roster) == 0 {
		s.mu.Unlock()
		g.teardown(s)
		g.lobbyChanged()
		return nil
	}

	if s.HostID == userID {
		s.HostID = s.Roster[0].ID
		logf(g.cfg, "GAMES: Host of %q handed off to %q", s.Name, s.Roster[0].Name)
	}

	// A departing describer would otherwise stall the match. The
	// replacement gets a full turn clock, not the leftover one.
	if s.Started && s.Turn != nil && s.Turn.DescriberID == userID {
		g.advanceTurnLocked(s)
		g.armTurnTimer(sessionID)
	}

	s.touchLocked()
	s.mu.Unlock()

	g.lobbyChanged()
	return nil
}

// IsAllowed reports whether a user appears in a session's roster.
// Admission is the prerequisite gate; this only confirms it held.
func (g *Game) IsAllowed(sessionID, userID string) bool {
	s, err := g.registry.Session(sessionID)
	if err != nil {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.participantLocked(userID) != nil
}
