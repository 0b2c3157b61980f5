package models

import "time"

// Player represents a connected account
type Player struct {
	// From JWT claims
	ID          string `json:"id"`          // Converted from int64 user_id
	PlatformID  uint64 `json:"platform_id"` // Same user_id, keyed for settings and world users
	Username    string `json:"username"`    // JWT claim
	Email       string `json:"email"`       // JWT claim
	Permissions int64  `json:"permissions"` // JWT claim: bitwise permission flags
	Activated   int64  `json:"activated"`   // JWT claim: activation timestamp or ban status
	AuthMethod  string `json:"auth_method"` // JWT claim: "password" or "oauth"

	// Connection state
	Connected   bool      `json:"connected"`
	ConnectedAt time.Time `json:"connected_at"`
	LastSeen    time.Time `json:"last_seen"`

	// Session state
	SessionID string `json:"session_id"`

	// WorldUserID is the world entity of this account, resolved on join
	WorldUserID string `json:"world_user_id,omitempty"`
}

// IsActive checks if the player account is activated and not banned
func (p *Player) IsActive() bool {
	// activated > 0 means activated
	// activated == 0 means not activated
	// activated == -1 means banned
	return p.Activated > 0
}

// IsBanned checks if the player is banned
func (p *Player) IsBanned() bool {
	return p.Activated == -1
}

// InWorld reports whether the account owns a world user
func (p *Player) InWorld() bool {
	return p.WorldUserID != ""
}
