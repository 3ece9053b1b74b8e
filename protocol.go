package main

import "encoding/json"

// Client -> Server message types
const (
	MsgHost           = "host"
	MsgJoinRoom       = "join_room"
	MsgQuitRoom       = "quit_room"
	MsgStartGame      = "start_game"
	MsgStartSolo      = "start_solo_game"
	MsgNameChanged    = "username_changed"
	MsgPlayerMoved    = "player_moved"
	MsgPlayerShooting = "game_player_shooting"
	MsgScreenResized  = "screen_resized"
	MsgPauseToggled   = "game_pause_toggled"
	MsgRestart        = "game_restart"
	MsgGameOver       = "game_over"
	MsgGameEnded      = "game_ended"
	MsgQuitGame       = "quit_game" // alias of game_ended
	MsgRequestLobby   = "request_lobby"
	MsgRequestRanking = "request_rankings"
)

// Server -> Client message types
const (
	MsgUpdateLobby = "update_lobby"
	MsgHosted      = "room_hosted"  // ack: room created, payload is the room id
	MsgJoined      = "room_joined"  // ack: join result
	MsgRoomQuit    = "room_quit"    // ack: left the room, empty payload
	MsgGameStarted = "game_started" // ack to the initiator, full snapshot
	MsgHostStarted = "host_started_game"
	MsgRestarted   = "game_restarted"
	MsgGameUpdate  = "game_update" // per-tick snapshot, sent as binary msgpack
	MsgPauserQuit  = "game_pauser_quit"
	MsgRanking     = "rankings"
	MsgError       = "error"
)

// Envelope wraps all outgoing JSON messages with a type field
type Envelope struct {
	T    string      `json:"t"`
	Data interface{} `json:"d,omitempty"`
}

// InEnvelope is used for incoming messages — json.RawMessage avoids double-unmarshal
type InEnvelope struct {
	T string          `json:"t"`
	D json.RawMessage `json:"d,omitempty"`
}

// HostMsg creates a room with the sender as host
type HostMsg struct {
	Name   string  `json:"name"`
	Bounds Bounds  `json:"bounds"`
	SkinID int     `json:"skin"`
	SkinW  float64 `json:"skinW"`
	SkinH  float64 `json:"skinH"`
}

// JoinMsg joins an existing room
type JoinMsg struct {
	RoomID string  `json:"rid"`
	Name   string  `json:"name"`
	Bounds Bounds  `json:"bounds"`
	SkinID int     `json:"skin"`
	SkinW  float64 `json:"skinW"`
	SkinH  float64 `json:"skinH"`
}

// QuitMsg leaves a room
type QuitMsg struct {
	RoomID string `json:"rid"`
}

// StartMsg begins the game for a lobby room
type StartMsg struct {
	RoomID   string   `json:"rid"`
	Settings Settings `json:"settings"`
	EnemyW   float64  `json:"enemyW"`
	EnemyH   float64  `json:"enemyH"`
}

// SoloMsg creates a single-player room and starts it in one step
type SoloMsg struct {
	Name     string   `json:"name"`
	Bounds   Bounds   `json:"bounds"`
	SkinID   int      `json:"skin"`
	SkinW    float64  `json:"skinW"`
	SkinH    float64  `json:"skinH"`
	Settings Settings `json:"settings"`
	EnemyW   float64  `json:"enemyW"`
	EnemyH   float64  `json:"enemyH"`
}

// NameMsg carries a display-name change
type NameMsg struct {
	Name string `json:"name"`
}

// MoveMsg carries a client-reported player position, taken verbatim
type MoveMsg struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ResizeMsg carries a member's new viewport
type ResizeMsg struct {
	RoomID string `json:"rid"`
	Bounds Bounds `json:"bounds"`
}

// HostedMsg acknowledges room creation
type HostedMsg struct {
	RoomID string `json:"rid"`
}

// JoinedMsg acknowledges a join attempt
type JoinedMsg struct {
	RoomID  string `json:"rid"`
	Success bool   `json:"success"`
}

// RoomInfo is one entry in the lobby listing
type RoomInfo struct {
	ID      string   `json:"rid"`
	Host    string   `json:"host"`
	Players []string `json:"players"`
}

// PauserQuitMsg names the player pause ownership transferred to
type PauserQuitMsg struct {
	PauserID string `json:"pauserId"`
	Name     string `json:"name"`
}

// ErrorMsg sends an error to the client
type ErrorMsg struct {
	Msg string `json:"msg"`
}

// PlayerState is one live player in a snapshot
type PlayerState struct {
	ID     string  `json:"id" msgpack:"id"`
	Name   string  `json:"name" msgpack:"name"`
	X      float64 `json:"x" msgpack:"x"`
	Y      float64 `json:"y" msgpack:"y"`
	HP     int     `json:"hp" msgpack:"hp"`
	Ammo   int     `json:"ammo" msgpack:"ammo"`
	Immune bool    `json:"immune" msgpack:"immune"`
	SkinID int     `json:"skin" msgpack:"skin"`
	SkinW  float64 `json:"skinW" msgpack:"skinW"`
	SkinH  float64 `json:"skinH" msgpack:"skinH"`
}

// EnemyState is one enemy position in a snapshot
type EnemyState struct {
	X float64 `json:"x" msgpack:"x"`
	Y float64 `json:"y" msgpack:"y"`
}

// BulletState is one bullet in a snapshot
type BulletState struct {
	X          float64 `json:"x" msgpack:"x"`
	Y          float64 `json:"y" msgpack:"y"`
	FromPlayer bool    `json:"fromPlayer" msgpack:"fromPlayer"`
}

// GameSnapshot is the full session state sent to clients. Ticker
// handles live in the manager's side-table and never appear here.
type GameSnapshot struct {
	RoomID      string        `json:"rid" msgpack:"rid"`
	Players     []PlayerState `json:"players" msgpack:"players"`
	Enemies     []EnemyState  `json:"enemies" msgpack:"enemies"`
	Bullets     []BulletState `json:"bullets" msgpack:"bullets"`
	Score       int           `json:"score" msgpack:"score"`
	SpawnChance float64       `json:"spawnChance" msgpack:"spawnChance"`
	MaxEnemies  int           `json:"maxEnemies" msgpack:"maxEnemies"`
	Paused      bool          `json:"paused" msgpack:"paused"`
	PauserID    string        `json:"pauserId,omitempty" msgpack:"pauserId"`
	Over        bool          `json:"over" msgpack:"over"`
	EnemyW      float64       `json:"enemyW" msgpack:"enemyW"`
	EnemyH      float64       `json:"enemyH" msgpack:"enemyH"`
	Settings    Settings      `json:"settings" msgpack:"settings"`
}
