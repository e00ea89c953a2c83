// Alias game backend
//
// Players gather in a lobby, create or join named sessions, and are split
// into red and blue teams. Once a session starts, teams alternate timed
// turns: one member describes a secret word while teammates guess it in
// chat. Points are scored per correctly guessed word, the describer role
// rotates through each team, and words never repeat within a session.
//
// Features:
// - Lobby websocket at $path/ws, per-session websocket at $path/session/:sessionid/ws
// - Players identified by cookie (playerID) plus a display name query param
// - Team auto-assignment balances the rosters, with manual switching before start
// - Describer messages are screened for the secret word and its derivatives
// - Guesses are fuzzy-matched so near misses are called out as close
// - Host hand-off when the host leaves; empty sessions are torn down
// - Admitted players who never connect are evicted after a grace period
// - Sessions idle too long are reaped after a configurable timeout
// - Match results and per-player stats persisted via the stats recorder
// - In-browser QR button to share a session join link, backed by go-qrcode

package main

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

// Messages coming from clients
type ClientMessage struct {
	Type      string `json:"type"`                 // "create_session", "join_session", "join_team", "start_game", "chat", "skip_word", "leave"
	Name      string `json:"name,omitempty"`       // create_session
	SessionID string `json:"session_id,omitempty"` // join_session
	Capacity  int    `json:"capacity,omitempty"`   // create_session
	Team      string `json:"team,omitempty"`       // join_team
	Text      string `json:"text,omitempty"`       // chat
}

// LobbyStateMessage lists the joinable and running sessions.
type LobbyStateMessage struct {
	Type     string         `json:"type"` // "lobby_state"
	Sessions []LobbySummary `json:"sessions"`
}

// RoomStateMessage is the pre-start roster view of one session.
type RoomStateMessage struct {
	Type string   `json:"type"` // "room_state"
	Room RoomView `json:"room"`
}

// MatchStateMessage is the live-match view; the secret word is present
// only in the copy addressed to the current describer.
type MatchStateMessage struct {
	Type  string    `json:"type"` // "match_state"
	Match MatchView `json:"match"`
}

// ChatMessage relays a (possibly annotated) chat line to a session.
type ChatMessage struct {
	Type    string  `json:"type"` // "chat"
	From    string  `json:"from"`
	Text    string  `json:"text"`
	Verdict Verdict `json:"verdict"`
}

// SessionCreatedMessage acknowledges session creation to the creator.
type SessionCreatedMessage struct {
	Type      string `json:"type"` // "session_created"
	SessionID string `json:"session_id"`
}

// ErrorMessage is sent only to the connection whose event was rejected.
type ErrorMessage struct {
	Type    string    `json:"type"` // "error"
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

type wsClient struct {
	conn      *websocket.Conn
	send      chan any
	userID    string
	userName  string
	sessionID string // empty for lobby connections
}

// wsServer owns the transport side: which websocket belongs to the lobby
// and which to a session room. All game state lives in the Game it wraps.
type wsServer struct {
	cfg  *Config
	game *Game

	mu       sync.RWMutex
	lobby    map[*wsClient]bool
	sessions map[string]map[*wsClient]bool
}

func newWsServer(cfg *Config, game *Game) *wsServer {
	srv := &wsServer{
		cfg:      cfg,
		game:     game,
		lobby:    make(map[*wsClient]bool),
		sessions: make(map[string]map[*wsClient]bool),
	}

	game.lobbyChanged = srv.broadcastLobby
	game.turnRotated = srv.broadcastSession

	return srv
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const playerCookieName = "alias_id"

func getOrSetPlayerID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(playerCookieName); err == nil && c.Value != "" {
		return c.Value
	}

	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		log.Println("rand.Read error:", err)
		return ""
	}
	id := hex.EncodeToString(buf)

	http.SetCookie(w, &http.Cookie{
		Name:     playerCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return id
}

// ---- client pumps ----

func (c *wsClient) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

// trySend queues msg without blocking; a full buffer drops the message.
// Only the owning read loop ever closes send, so trySend stays safe from
// any goroutine while the client is registered.
func (c *wsClient) trySend(msg any) bool {
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

// ---- broadcast helpers ----

func (s *wsServer) sendError(c *wsClient, err error) {
	message := err.Error()
	if ge, ok := err.(*GameError); ok {
		message = ge.Message
	}
	c.trySend(ErrorMessage{Type: "error", Kind: errKind(err), Message: message})
}

// broadcastLobby pushes the session listing to every lobby connection.
// A slow consumer misses an update; its channel stays open until its own
// read loop tears it down.
func (s *wsServer) broadcastLobby() {
	msg := LobbyStateMessage{Type: "lobby_state", Sessions: s.game.registry.LobbySummaries()}

	s.mu.RLock()
	defer s.mu.RUnlock()

	for client := range s.lobby {
		client.trySend(msg)
	}
}

// broadcastSession pushes the appropriate view (room before start, match
// after) to every connection in a session room. Match views are built per
// recipient so only the describer receives the secret word.
func (s *wsServer) broadcastSession(sessionID string) {
	started := s.game.registry.IsSessionStarted(sessionID)

	s.mu.RLock()
	defer s.mu.RUnlock()

	room := s.sessions[sessionID]
	if room == nil {
		return
	}

	if !started {
		view, err := s.game.registry.RoomView(sessionID)
		if err != nil {
			return
		}
		msg := RoomStateMessage{Type: "room_state", Room: view}
		for client := range room {
			client.trySend(msg)
		}
		return
	}

	for client := range room {
		view, err := s.game.registry.MatchViewFor(sessionID, client.userID)
		if err != nil {
			return
		}
		client.trySend(MatchStateMessage{Type: "match_state", Match: view})
	}
}

func (s *wsServer) broadcastChat(sessionID string, msg ChatMessage) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for client := range s.sessions[sessionID] {
		client.trySend(msg)
	}
}

// ---- lobby socket ----

func (s *wsServer) serveLobbyWS() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		userID := getOrSetPlayerID(w, r)
		userName := strings.TrimSpace(r.URL.Query().Get("name"))
		if userID == "" || userName == "" {
			http.Error(w, "missing player identity", http.StatusBadRequest)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Println("upgrade error:", err)
			return
		}

		client := &wsClient{
			conn:     conn,
			send:     make(chan any, 8),
			userID:   userID,
			userName: userName,
		}

		s.mu.Lock()
		s.lobby[client] = true
		s.mu.Unlock()

		client.trySend(LobbyStateMessage{Type: "lobby_state", Sessions: s.game.registry.LobbySummaries()})

		go client.writePump()
		s.lobbyReadLoop(client)
	}
}

func (s *wsServer) lobbyReadLoop(c *wsClient) {
	defer func() {
		s.mu.Lock()
		delete(s.lobby, c)
		s.mu.Unlock()
		close(c.send)
		_ = c.conn.Close()
	}()

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		switch msg.Type {
		case "create_session":
			if sessionID, ok := s.game.registry.sessionOf(c.userID); ok {
				s.sendError(c, conflict("already admitted to session %q", sessionID))
				continue
			}
			session, err := s.game.CreateSession(msg.Name, c.userID, c.userName, msg.Capacity)
			if err != nil {
				s.sendError(c, err)
				continue
			}
			c.trySend(SessionCreatedMessage{Type: "session_created", SessionID: session.ID})

		case "join_session":
			// Guard checks run before the mutator is reached.
			switch {
			case !s.game.registry.SessionExists(msg.SessionID):
				s.sendError(c, notFound("unknown session %q", msg.SessionID))
				continue
			case s.game.registry.IsParticipantAdmitted(msg.SessionID, c.userID):
				s.sendError(c, conflict("already admitted to session %q", msg.SessionID))
				continue
			case s.game.registry.IsSessionStarted(msg.SessionID):
				s.sendError(c, ruleViolation("session has already started"))
				continue
			case s.game.registry.IsSessionFull(msg.SessionID):
				s.sendError(c, ruleViolation("session is full"))
				continue
			}
			if err := s.game.JoinSession(msg.SessionID, c.userID, c.userName); err != nil {
				s.sendError(c, err)
				continue
			}
			c.trySend(SessionCreatedMessage{Type: "session_joined", SessionID: msg.SessionID})

		default:
			// ignore unknown types
		}
	}
}

// ---- session socket ----

func (s *wsServer) serveSessionWS() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		sessionID := ps.ByName("sessionid")
		userID := getOrSetPlayerID(w, r)
		userName := strings.TrimSpace(r.URL.Query().Get("name"))
		if sessionID == "" || userID == "" {
			http.Error(w, "missing session or player id", http.StatusBadRequest)
			return
		}

		if !s.game.registry.IsParticipantAdmitted(sessionID, userID) {
			http.Error(w, "not admitted to this session", http.StatusForbidden)
			return
		}

		if err := s.game.AttachConnection(sessionID, userID); err != nil {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			s.game.HandleAttachFailure(sessionID, userID)
			log.Println("upgrade error:", err)
			return
		}

		client := &wsClient{
			conn:      conn,
			send:      make(chan any, 8),
			userID:    userID,
			userName:  userName,
			sessionID: sessionID,
		}

		s.mu.Lock()
		if s.sessions[sessionID] == nil {
			s.sessions[sessionID] = make(map[*wsClient]bool)
		}
		s.sessions[sessionID][client] = true
		s.mu.Unlock()

		go client.writePump()
		s.broadcastSession(sessionID)
		s.sessionReadLoop(client)
	}
}

func (s *wsServer) sessionReadLoop(c *wsClient) {
	defer func() {
		s.dropSessionClient(c)
		close(c.send)
		_ = c.conn.Close()
		s.game.HandleDisconnect(c.sessionID, c.userID)
		s.broadcastSession(c.sessionID)
	}()

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		switch msg.Type {
		case "join_team":
			team, ok := parseTeam(msg.Team)
			if !ok {
				s.sendError(c, invalidInput("unknown team %q", msg.Team))
				continue
			}
			if s.game.registry.IsSessionStarted(c.sessionID) {
				s.sendError(c, ruleViolation("teams are locked once the match has started"))
				continue
			}
			if err := s.game.SwitchTeam(c.sessionID, c.userID, team); err != nil {
				s.sendError(c, err)
				continue
			}
			s.broadcastSession(c.sessionID)

		case "start_game":
			session, err := s.game.registry.Session(c.sessionID)
			if err != nil {
				s.sendError(c, err)
				continue
			}
			session.mu.Lock()
			isHost := session.HostID == c.userID
			session.mu.Unlock()

			switch {
			case !isHost:
				s.sendError(c, ruleViolation("only the host may start the match"))
				continue
			case s.game.registry.IsSessionStarted(c.sessionID):
				s.sendError(c, ruleViolation("session has already started"))
				continue
			case s.game.registry.HasTooFewPlayers(c.sessionID, s.cfg.minPlayers):
				s.sendError(c, ruleViolation("need at least %d players to start", s.cfg.minPlayers))
				continue
			}
			if err := s.game.StartMatch(c.sessionID); err != nil {
				s.sendError(c, err)
				continue
			}
			s.broadcastSession(c.sessionID)
			s.broadcastLobby()

		case "chat":
			verdict, err := s.game.HandleChat(c.sessionID, c.userID, msg.Text)
			if err != nil {
				s.sendError(c, err)
				continue
			}
			s.broadcastChat(c.sessionID, ChatMessage{
				Type:    "chat",
				From:    c.userName,
				Text:    msg.Text,
				Verdict: verdict,
			})
			if verdict == VerdictCorrect {
				s.broadcastSession(c.sessionID)
			}

		case "skip_word":
			switch {
			case !s.game.registry.IsDescriber(c.sessionID, c.userID):
				s.sendError(c, ruleViolation("only the describer may skip the word"))
				continue
			case !s.game.registry.HasSkipsRemaining(c.sessionID):
				s.sendError(c, ruleViolation("no skips left this turn"))
				continue
			}
			if err := s.game.SkipWord(c.sessionID, c.userID); err != nil {
				s.sendError(c, err)
				continue
			}
			s.broadcastSession(c.sessionID)

		case "leave":
			if err := s.game.Evict(c.sessionID, c.userID); err != nil {
				s.sendError(c, err)
				continue
			}
			return

		default:
			// ignore unknown types
		}
	}
}

// dropSessionClient unregisters a client from its session room. Closing
// the send channel is left to the read loop that owns it.
func (s *wsServer) dropSessionClient(c *wsClient) {
	s.mu.Lock()
	defer s.mu.Unlock()

	room := s.sessions[c.sessionID]
	if room == nil {
		return
	}
	delete(room, c)
	if len(room) == 0 {
		delete(s.sessions, c.sessionID)
	}
}

// ---- HTTP extras ----

// qrHandler generates a PNG QR code for a session's join URL.
func qrHandler(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	// We are at .../session/:sessionid/qr; strip trailing "/qr" to get the
	// session URL.
	path := strings.TrimSuffix(r.URL.Path, "/qr")

	url := scheme + "://" + r.Host + path

	const qrSize = 320 // mobile-friendly size
	png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
	if err != nil {
		http.Error(w, "qr generation failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

// serveStats proxies a lifetime-stats lookup to the persistence layer.
func (s *wsServer) serveStats() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		name := ps.ByName("name")
		if name == "" {
			http.Error(w, "missing player name", http.StatusBadRequest)
			return
		}

		stats, err := s.game.recorder.FetchPlayerStats(r.Context(), name)
		if err != nil {
			if errKind(err) == KindNotFound {
				http.Error(w, "no stats for that player", http.StatusNotFound)
				return
			}
			http.Error(w, "stats lookup failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_ = json.NewEncoder(w).Encode(stats)
	}
}

// registerAliasGame sets up routes so that:
//   - $path/ws                      → lobby websocket
//   - $path/session/:sessionid/ws   → per-session websocket
//   - $path/session/:sessionid/qr   → PNG QR code linking to the session
//   - $path/stats/:name             → lifetime player stats (JSON)
func registerAliasGame(cfg *Config, path string, mux *httprouter.Router, srv *wsServer) {
	mux.GET(cfg.prefix+path+"/ws", srv.serveLobbyWS())
	mux.GET(cfg.prefix+path+"/session/:sessionid/ws", srv.serveSessionWS())
	mux.GET(cfg.prefix+path+"/session/:sessionid/qr", qrHandler)
	mux.GET(cfg.prefix+path+"/stats/:name", srv.serveStats())
}
