/*
Copyright © 2025 Pawbag123 <pawbag123@proton.me>
*/

package main

import (
	"context"
	"time"
)

// CreateSession opens a new session with the creator as host and starts
// the creation grace period: if no connection attaches before it lapses,
// the creator is evicted again and an empty session disappears.
func (g *Game) CreateSession(name, hostID, hostName string, capacity int) (*Session, error) {
	if capacity <= 0 || capacity > g.cfg.maxPlayers {
		capacity = g.cfg.maxPlayers
	}

	s, err := g.registry.CreateSession(name, hostID, hostName, capacity)
	if err != nil {
		return nil, err
	}

	g.watchEviction(s.ID, hostID, g.cfg.createGrace)
	g.lobbyChanged()
	logf(g.cfg, "GAMES: Session %q created by %q", name, hostName)

	return s, nil
}

// JoinSession admits a participant and starts the join grace period.
func (g *Game) JoinSession(sessionID, userID, userName string) error {
	if err := g.Admit(sessionID, userID, userName); err != nil {
		return err
	}

	g.watchJoiner(sessionID, userID)
	g.lobbyChanged()

	return nil
}

// watchEviction arms a grace timer for a participant who must attach (or
// reattach) a connection. Expiry without one runs the full eviction path,
// hand-off and teardown included, and Evict fires the lobby-wide update
// either way.
func (g *Game) watchEviction(sessionID, userID string, grace time.Duration) {
	t := time.AfterFunc(grace, func() {
		if g.registry.isConnected(userID) {
			return
		}
		logf(g.cfg, "GAMES: %q never connected to %q, evicting", userID, sessionID)
		_ = g.Evict(sessionID, userID)
	})
	g.registry.setGrace(userID, t)
}

// watchJoiner arms the join grace timer. Expiry evicts unconditionally:
// a joiner is never host, so there is no hand-off branch to take.
func (g *Game) watchJoiner(sessionID, userID string) {
	t := time.AfterFunc(g.cfg.joinGrace, func() {
		if g.registry.isConnected(userID) {
			return
		}

		s, err := g.registry.Session(sessionID)
		if err != nil {
			return
		}

		s.mu.Lock()
		removed := s.removeFromRosterLocked(userID)
		g.registry.drop(userID)
		empty := len(s.Roster) == 0
		s.mu.Unlock()

		if !removed {
			return
		}
		logf(g.cfg, "GAMES: Joiner %q never connected to %q, evicted", userID, sessionID)

		if empty {
			g.teardown(s)
		}
		g.lobbyChanged()
	})
	g.registry.setGrace(userID, t)
}

// AttachConnection binds a live transport handle to an admitted
// participant, clearing any pending grace timer. Reattaching to a started
// session is allowed while the participant holds no other connection.
func (g *Game) AttachConnection(sessionID, userID string) error {
	return g.registry.Attach(sessionID, userID)
}

// HandleAttachFailure returns a participant to the grace-pending state
// when the transport could not complete the upgrade after Attach cleared
// their timer. The participant may be the host, so expiry takes the full
// eviction path rather than the joiner shortcut.
func (g *Game) HandleAttachFailure(sessionID, userID string) {
	g.registry.Detach(userID)
	g.watchEviction(sessionID, userID, g.cfg.joinGrace)
}

// HandleDisconnect reacts to a participant's transport going away. Before
// the match starts the participant simply leaves; once started, the
// admission is kept so they can reattach.
func (g *Game) HandleDisconnect(sessionID, userID string) {
	if g.registry.IsSessionStarted(sessionID) {
		g.registry.Detach(userID)
		return
	}
	_ = g.Evict(sessionID, userID)
}

// armTurnTimer schedules the automatic turn rotation for a session,
// replacing any previous schedule.
func (g *Game) armTurnTimer(sessionID string) {
	if g.cfg.turnLength <= 0 {
		return
	}

	g.timerMu.Lock()
	defer g.timerMu.Unlock()

	if old, ok := g.turnTimers[sessionID]; ok {
		old.Stop()
	}
	g.turnTimers[sessionID] = time.AfterFunc(g.cfg.turnLength, func() {
		if err := g.AdvanceTurn(sessionID); err != nil {
			return
		}
		g.turnRotated(sessionID)
	})
}

func (g *Game) stopTurnTimer(sessionID string) {
	g.timerMu.Lock()
	defer g.timerMu.Unlock()

	if t, ok := g.turnTimers[sessionID]; ok {
		t.Stop()
		delete(g.turnTimers, sessionID)
	}
}

// reapLoop periodically tears down sessions that have sat idle longer
// than the configured session timeout.
func (g *Game) reapLoop(ctx context.Context, idle time.Duration) {
	ticker := time.NewTicker(idle / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-idle)
			for _, s := range g.registry.Sessions() {
				s.mu.Lock()
				stale := s.lastActive.Before(cutoff)
				s.mu.Unlock()

				if stale {
					logf(g.cfg, "GAMES: Reaping idle session %q", s.ID)
					g.teardown(s)
					g.lobbyChanged()
				}
			}
		}
	}
}
