package server

import (
	"log"
	"sync"
	"time"

	"github.com/gravitas-games/logistics/internal/config"
	"github.com/gravitas-games/logistics/internal/network"
	"github.com/gravitas-games/logistics/pkg/models"
)

// Session tracks the players connected to the world
type Session struct {
	ID        string
	CreatedAt time.Time

	// Player management
	players     map[string]*models.Player // playerID -> Player
	connections map[string]*Connection    // playerID -> Connection
	mu          sync.RWMutex

	status SessionStatus
	config *config.Config
}

// SessionStatus represents the current state of the session
type SessionStatus struct {
	State       string `json:"state"` // "waiting", "running"
	PlayerCount int    `json:"player_count"`
	MaxPlayers  int    `json:"max_players"`
	ServerTick  int64  `json:"server_tick"`
	Uptime      int64  `json:"uptime"` // seconds
}

// NewSession creates a new session
func NewSession(id string, cfg *config.Config) *Session {
	log.Printf("Creating session: %s", id)
	return &Session{
		ID:          id,
		CreatedAt:   time.Now(),
		players:     make(map[string]*models.Player),
		connections: make(map[string]*Connection),
		config:      cfg,
		status: SessionStatus{
			State:      "waiting",
			MaxPlayers: cfg.Session.MaxPlayers,
		},
	}
}

// AddPlayer adds a player to the session
func (s *Session) AddPlayer(player *models.Player, conn *Connection) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.players[player.ID]; !exists && len(s.players) >= s.status.MaxPlayers {
		return ErrSessionFull
	}
	s.players[player.ID] = player
	s.connections[player.ID] = conn
	s.status.PlayerCount = len(s.players)

	log.Printf("Player %s (%s) joined session %s", player.Username, player.ID, s.ID)
	return nil
}

// RemovePlayer removes a player from the session
func (s *Session) RemovePlayer(playerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if player, exists := s.players[playerID]; exists {
		log.Printf("Player %s (%s) left session %s", player.Username, playerID, s.ID)
		delete(s.players, playerID)
		delete(s.connections, playerID)
		s.status.PlayerCount = len(s.players)
	}
}

// GetPlayer retrieves a player by ID
func (s *Session) GetPlayer(playerID string) (*models.Player, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	player, exists := s.players[playerID]
	return player, exists
}

// GetPlayers returns all players in the session
func (s *Session) GetPlayers() []*models.Player {
	s.mu.RLock()
	defer s.mu.RUnlock()

	players := make([]*models.Player, 0, len(s.players))
	for _, player := range s.players {
		players = append(players, player)
	}
	return players
}

// SendTo delivers a message to one player. It reports false when the
// player is not connected.
func (s *Session) SendTo(playerID string, msg *network.ServerMessage) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conn, ok := s.connections[playerID]
	if !ok {
		return false
	}
	conn.SendMessage(msg)
	return true
}

// BroadcastMessage sends a message to all connected players
func (s *Session) BroadcastMessage(msg *network.ServerMessage) {
	s.BroadcastExcept(nil, msg)
}

// BroadcastExcept sends a message to all players except the specified connection
func (s *Session) BroadcastExcept(exclude *Connection, msg *network.ServerMessage) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, conn := range s.connections {
		if conn != exclude {
			conn.SendMessage(msg)
		}
	}
}

// Tick advances the server tick counter
func (s *Session) Tick() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.ServerTick++
	s.status.State = "running"
	return s.status.ServerTick
}

// GetStatus returns the current session status
func (s *Session) GetStatus() SessionStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := s.status
	status.Uptime = int64(time.Since(s.CreatedAt).Seconds())
	return status
}

func (st SessionStatus) toNetwork() network.SessionStatus {
	return network.SessionStatus{
		State:       st.State,
		PlayerCount: st.PlayerCount,
		MaxPlayers:  st.MaxPlayers,
		ServerTick:  st.ServerTick,
		Uptime:      st.Uptime,
	}
}
