package network

import "encoding/json"

// Message types - Client → Server
const (
	MsgTypeJoin          = "join"
	MsgTypeLeave         = "leave"
	MsgTypePing          = "ping"
	MsgTypeStartMission  = "start_mission"
	MsgTypeListMissions  = "list_missions"
	MsgTypeCancelMission = "cancel_mission"
)

// Message types - Server → Client
const (
	MsgTypeWelcome        = "welcome"
	MsgTypePlayerJoined   = "player_joined"
	MsgTypePlayerLeft     = "player_left"
	MsgTypeSessionStatus  = "session_status"
	MsgTypeError          = "error"
	MsgTypePong           = "pong"
	MsgTypeMissionStarted = "mission_started"
	MsgTypeMissionList    = "mission_list"
	MsgTypeStashReport    = "stash_report"
)

// ClientMessage represents any message from client to server
type ClientMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// ServerMessage represents any message from server to client
type ServerMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// --- Client Message Payloads ---

// StartMissionPayload sends servants of the player on a timed mission
type StartMissionPayload struct {
	Servants        []string      `json:"servants"`
	DurationSeconds int           `json:"duration_seconds"`
	Loot            []LootPayload `json:"loot"`
}

// LootPayload is one possible mission reward
type LootPayload struct {
	Item        string  `json:"item"`
	Quantity    int     `json:"quantity"`
	Probability float64 `json:"probability"`
}

// CancelMissionPayload names a running mission of the player
type CancelMissionPayload struct {
	MissionID string `json:"mission_id"`
}

// --- Server Message Payloads ---

// WelcomePayload is sent to client after successful connection
type WelcomePayload struct {
	PlayerID      string        `json:"player_id"`
	Username      string        `json:"username"`
	SessionID     string        `json:"session_id"`
	SessionStatus SessionStatus `json:"session_status"`
}

// PlayerJoinedPayload notifies clients when a player joins
type PlayerJoinedPayload struct {
	PlayerID string `json:"player_id"`
	Username string `json:"username"`
}

// PlayerLeftPayload notifies clients when a player leaves
type PlayerLeftPayload struct {
	PlayerID string `json:"player_id"`
	Username string `json:"username"`
}

// SessionStatus represents the current session state
type SessionStatus struct {
	State       string `json:"state"`
	PlayerCount int    `json:"player_count"`
	MaxPlayers  int    `json:"max_players"`
	ServerTick  int64  `json:"server_tick"`
	Uptime      int64  `json:"uptime"`
}

// MissionPayload describes one mission
type MissionPayload struct {
	MissionID string   `json:"mission_id"`
	Servants  []string `json:"servants"`
	State     string   `json:"state"`
	Progress  float64  `json:"progress"`
	EndsAt    int64    `json:"ends_at"` // Unix timestamp
}

// MissionListPayload lists the running missions of a player
type MissionListPayload struct {
	Missions []MissionPayload `json:"missions"`
}

// StashReportPayload summarises one auto-stash run for the servant's owner
type StashReportPayload struct {
	RunID       string            `json:"run_id"`
	Servant     string            `json:"servant"`
	Moved       int               `json:"moved"`
	Restored    int               `json:"restored"`
	Lost        int               `json:"lost"`
	NoInventory bool              `json:"no_inventory,omitempty"`
	Aborted     bool              `json:"aborted,omitempty"`
	Legs        []StashLegPayload `json:"legs"`
}

// StashLegPayload is one item movement of a stash run
type StashLegPayload struct {
	Item      string `json:"item"`
	ItemName  string `json:"item_name"`
	Container string `json:"container"`
	Overflow  bool   `json:"overflow,omitempty"`
	Amount    int    `json:"amount"`
	State     string `json:"state"`
}

// ErrorPayload contains error information
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
