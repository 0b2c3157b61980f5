package server

import (
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/gravitas-games/logistics/internal/inventory"
	"github.com/gravitas-games/logistics/internal/mission"
	"github.com/gravitas-games/logistics/internal/network"
	"github.com/gravitas-games/logistics/internal/stash"
	"github.com/gravitas-games/logistics/pkg/models"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192

	// Longest mission a player may start
	maxMissionDuration = 24 * time.Hour
)

// Connection represents a WebSocket connection to a client
type Connection struct {
	ws     *websocket.Conn
	server *Server

	// Player information (set after authentication)
	player *models.Player

	// Buffered channel for outbound messages
	send      chan []byte
	sendMu    sync.Mutex
	closed    bool
	closeOnce sync.Once

	authenticated bool
}

// NewConnection creates a new connection
func NewConnection(ws *websocket.Conn, server *Server) *Connection {
	return &Connection{
		ws:     ws,
		server: server,
		send:   make(chan []byte, 256),
	}
}

// Handle manages the connection lifecycle
func (c *Connection) Handle() {
	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go c.writePump()
	c.readPump() // Blocking
}

// readPump pumps messages from the WebSocket connection to the server
func (c *Connection) readPump() {
	defer c.Close()

	for {
		_, message, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket read error: %v", err)
			}
			break
		}

		var clientMsg network.ClientMessage
		if err := json.Unmarshal(message, &clientMsg); err != nil {
			log.Printf("Failed to parse client message: %v", err)
			c.SendError("invalid_message", "Failed to parse message")
			continue
		}

		c.handleMessage(&clientMsg)
	}
}

// writePump pumps messages from the send channel to the WebSocket connection
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("WebSocket write error: %v", err)
				return
			}

		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.server.ctx.Done():
			return
		}
	}
}

// handleMessage routes messages to appropriate handlers
func (c *Connection) handleMessage(msg *network.ClientMessage) {
	switch msg.Type {
	case network.MsgTypeJoin:
		c.handleJoin()

	case network.MsgTypeLeave:
		c.handleLeave()

	case network.MsgTypePing:
		c.handlePing()

	case network.MsgTypeStartMission:
		c.handleStartMission(msg.Payload)

	case network.MsgTypeListMissions:
		c.handleListMissions()

	case network.MsgTypeCancelMission:
		c.handleCancelMission(msg.Payload)

	default:
		log.Printf("Unknown message type: %s", msg.Type)
		c.SendError("unknown_message_type", "Unknown message type")
	}
}

// handleJoin adds the player to the session and resolves its world user
func (c *Connection) handleJoin() {
	if !c.authenticated || c.player == nil {
		c.SendError("not_authenticated", "Connection not authenticated")
		return
	}

	c.player.Connected = true
	c.player.ConnectedAt = time.Now()
	c.player.SessionID = c.server.session.ID
	if u, ok := c.server.world.UserByPlatformID(c.player.PlatformID); ok {
		c.player.WorldUserID = string(u.ID)
	}

	if err := c.server.session.AddPlayer(c.player, c); err != nil {
		log.Printf("Failed to add player to session: %v", err)
		c.SendError("join_failed", "Failed to join session")
		return
	}

	c.SendMessage(&network.ServerMessage{
		Type: network.MsgTypeWelcome,
		Payload: network.WelcomePayload{
			PlayerID:      c.player.ID,
			Username:      c.player.Username,
			SessionID:     c.server.session.ID,
			SessionStatus: c.server.session.GetStatus().toNetwork(),
		},
	})

	c.server.session.BroadcastExcept(c, &network.ServerMessage{
		Type: network.MsgTypePlayerJoined,
		Payload: network.PlayerJoinedPayload{
			PlayerID: c.player.ID,
			Username: c.player.Username,
		},
	})

	log.Printf("Player %s joined session %s as %q", c.player.Username, c.server.session.ID, c.player.WorldUserID)
}

// handleLeave handles player leave requests
func (c *Connection) handleLeave() {
	if c.player == nil {
		return
	}
	if _, joined := c.server.session.GetPlayer(c.player.ID); !joined {
		return
	}
	c.server.session.RemovePlayer(c.player.ID)
	c.server.session.BroadcastMessage(&network.ServerMessage{
		Type: network.MsgTypePlayerLeft,
		Payload: network.PlayerLeftPayload{
			PlayerID: c.player.ID,
			Username: c.player.Username,
		},
	})
}

// handlePing handles ping requests
func (c *Connection) handlePing() {
	c.SendMessage(&network.ServerMessage{
		Type:    network.MsgTypePong,
		Payload: map[string]interface{}{"timestamp": time.Now().Unix()},
	})
}

// worldUser returns the world user of a joined player, or sends an error
func (c *Connection) worldUser() (stash.EntityID, bool) {
	if !c.authenticated || c.player == nil {
		c.SendError("not_authenticated", "Connection not authenticated")
		return "", false
	}
	if !c.player.InWorld() {
		c.SendError("not_in_world", "Join first; this account owns no castle")
		return "", false
	}
	return stash.EntityID(c.player.WorldUserID), true
}

// handleStartMission sends the player's servants away
func (c *Connection) handleStartMission(payload json.RawMessage) {
	owner, ok := c.worldUser()
	if !ok {
		return
	}

	var req network.StartMissionPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		c.SendError("invalid_mission", "Invalid mission request")
		return
	}
	duration := time.Duration(req.DurationSeconds) * time.Second
	if duration <= 0 || duration > maxMissionDuration || len(req.Servants) == 0 {
		c.SendError("invalid_mission", "Mission needs servants and a duration up to 24h")
		return
	}

	servants := make([]stash.EntityID, 0, len(req.Servants))
	for _, id := range req.Servants {
		sv, ok := c.server.world.Servant(stash.EntityID(id))
		if !ok || sv.Owner != owner {
			c.SendError("invalid_mission", "Unknown servant "+id)
			return
		}
		servants = append(servants, sv.ID)
	}
	loot := make([]mission.LootYield, 0, len(req.Loot))
	for _, l := range req.Loot {
		loot = append(loot, mission.LootYield{Item: inventory.ItemID(l.Item), Quantity: l.Quantity, Probability: l.Probability})
	}

	id, err := c.server.missions.StartMission(owner, servants, duration, loot)
	if err != nil {
		log.Printf("Failed to start mission for %s: %v", owner, err)
		c.SendError("invalid_mission", err.Error())
		return
	}
	m, _ := c.server.missions.GetMission(id)
	c.SendMessage(&network.ServerMessage{
		Type:    network.MsgTypeMissionStarted,
		Payload: missionPayload(m),
	})
}

// handleListMissions sends the player's running missions
func (c *Connection) handleListMissions() {
	owner, ok := c.worldUser()
	if !ok {
		return
	}
	list := network.MissionListPayload{Missions: make([]network.MissionPayload, 0)}
	for _, m := range c.server.missions.ActiveMissions(owner) {
		list.Missions = append(list.Missions, missionPayload(m))
	}
	c.SendMessage(&network.ServerMessage{Type: network.MsgTypeMissionList, Payload: list})
}

// handleCancelMission calls off one of the player's missions
func (c *Connection) handleCancelMission(payload json.RawMessage) {
	owner, ok := c.worldUser()
	if !ok {
		return
	}
	var req network.CancelMissionPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		c.SendError("invalid_mission", "Invalid cancel request")
		return
	}
	m, ok := c.server.missions.GetMission(mission.ID(req.MissionID))
	if !ok || m.Owner != owner {
		c.SendError("unknown_mission", "Unknown mission")
		return
	}
	if err := c.server.missions.CancelMission(m.ID); err != nil {
		if errors.Is(err, mission.ErrNotFound) {
			c.SendError("unknown_mission", "Mission already returned")
			return
		}
		c.SendError("cancel_failed", err.Error())
		return
	}
	c.handleListMissions()
}

func missionPayload(m mission.Mission) network.MissionPayload {
	servants := make([]string, 0, len(m.Servants))
	for _, s := range m.Servants {
		servants = append(servants, string(s))
	}
	return network.MissionPayload{
		MissionID: string(m.ID),
		Servants:  servants,
		State:     m.State.String(),
		Progress:  m.Progress,
		EndsAt:    m.EndTime.Unix(),
	}
}

// SendMessage queues a message for the client
func (c *Connection) SendMessage(msg *network.ServerMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Failed to marshal message: %v", err)
		return
	}

	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- data:
	default:
		log.Printf("Send buffer full, dropping message")
	}
}

// SendError sends an error message to the client
func (c *Connection) SendError(code, message string) {
	c.SendMessage(&network.ServerMessage{
		Type: network.MsgTypeError,
		Payload: network.ErrorPayload{
			Code:    code,
			Message: message,
		},
	})
}

// Close removes the player from the session and closes the connection.
// It is safe to call more than once.
func (c *Connection) Close() {
	c.closeOnce.Do(func() {
		if c.authenticated && c.player != nil {
			c.handleLeave()
		}
		c.sendMu.Lock()
		c.closed = true
		close(c.send)
		c.sendMu.Unlock()
		if c.ws != nil {
			c.ws.Close()
		}
	})
}
