package main

import (
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait         = 10 * time.Second
	pongWait          = 60 * time.Second
	pingPeriod        = (pongWait * 9) / 10
	maxMessageSize    = 4096
	sendBufSize       = 256
	maxMessagesPerSec = 120 // movement events stream at tick rate
	maxNameLen        = 16
)

// Client represents a WebSocket connection
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	send       chan []byte
	id         string // connection id, assigned at upgrade
	roomID     string // current room, "" when idle
	name       string
	remoteAddr string
	msgCount   int
	msgResetAt time.Time
}

// NewClient creates a new Client with a fresh connection id
func NewClient(hub *Hub, conn *websocket.Conn, remoteAddr string) *Client {
	return &Client{
		hub:        hub,
		conn:       conn,
		send:       make(chan []byte, sendBufSize),
		id:         uuid.NewString(),
		remoteAddr: remoteAddr,
	}
}

// ReadPump reads messages from the WebSocket connection
func (c *Client) ReadPump() {
	defer func() {
		c.hub.TrackDisconnect(c.remoteAddr)
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("ws error: %v", err)
			}
			break
		}

		// Rate limiting
		now := time.Now()
		if now.After(c.msgResetAt) {
			c.msgCount = 0
			c.msgResetAt = now.Add(time.Second)
		}
		c.msgCount++
		if c.msgCount > maxMessagesPerSec {
			log.Printf("rate limit exceeded for %s, disconnecting", c.remoteAddr)
			break
		}

		c.handleMessage(message)
	}
}

// WritePump writes messages to the WebSocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			// Binary marker (0xFF prefix from SendBinary)
			var err error
			if len(message) > 0 && message[0] == 0xFF {
				err = c.conn.WriteMessage(websocket.BinaryMessage, message[1:])
			} else {
				err = c.conn.WriteMessage(websocket.TextMessage, message)
			}
			if err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SendJSON sends a JSON message to the client
func (c *Client) SendJSON(msg interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("marshal error: %v", err)
		return
	}
	c.SendRaw(data)
}

// SendRaw sends pre-marshaled bytes as a text message to the client
func (c *Client) SendRaw(data []byte) {
	defer func() { recover() }()
	select {
	case c.send <- data:
	default:
		// Client too slow, drop message
	}
}

// SendBinary sends pre-marshaled bytes as a binary WebSocket message.
// Prefixes with 0xFF so WritePump can distinguish from text.
func (c *Client) SendBinary(data []byte) {
	defer func() { recover() }()
	msg := make([]byte, len(data)+1)
	msg[0] = 0xFF
	copy(msg[1:], data)
	select {
	case c.send <- msg:
	default:
	}
}

// handleMessage routes incoming messages (single-pass decode via InEnvelope)
func (c *Client) handleMessage(raw []byte) {
	var env InEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		log.Printf("unmarshal error: %v", err)
		return
	}

	switch env.T {
	case MsgHost:
		c.handleHost(env.D)
	case MsgJoinRoom:
		c.handleJoin(env.D)
	case MsgQuitRoom:
		c.handleQuit(env.D)
	case MsgStartGame:
		c.handleStart(env.D)
	case MsgStartSolo:
		c.handleSolo(env.D)
	case MsgNameChanged:
		c.handleNameChange(env.D)
	case MsgPlayerMoved:
		c.handleMove(env.D)
	case MsgPlayerShooting:
		c.handleShoot()
	case MsgScreenResized:
		c.handleResize(env.D)
	case MsgPauseToggled:
		c.handlePauseToggle()
	case MsgRestart:
		c.handleRestart()
	case MsgGameOver:
		c.handleGameOver()
	case MsgGameEnded, MsgQuitGame:
		c.handleGameEnded()
	case MsgRequestLobby:
		c.handleRequestLobby()
	case MsgRequestRanking:
		c.handleRequestRankings()
	}
}

func cleanName(name string) string {
	if name == "" {
		return "Player"
	}
	if len(name) > maxNameLen {
		return name[:maxNameLen]
	}
	return name
}

// handleHost creates a new room with this connection as host. A
// connection already in a room leaves it first; multi-room membership
// is not allowed.
func (c *Client) handleHost(data json.RawMessage) {
	var msg HostMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	if c.roomID != "" {
		c.hub.RemoveFromRoom(c, c.roomID)
	}
	c.name = cleanName(msg.Name)
	room := c.hub.lobby.CreateRoom(&Member{
		ConnID: c.id,
		Name:   c.name,
		Bounds: msg.Bounds,
		SkinID: msg.SkinID,
		SkinW:  msg.SkinW,
		SkinH:  msg.SkinH,
	})
	c.roomID = room.ID

	// ack before the lobby-wide broadcast
	c.SendJSON(Envelope{T: MsgHosted, Data: HostedMsg{RoomID: room.ID}})
	c.hub.BroadcastLobby()
}

func (c *Client) handleJoin(data json.RawMessage) {
	var msg JoinMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	// Re-joining the room one is already in fails with no side effect
	if c.roomID == msg.RoomID {
		c.SendJSON(Envelope{T: MsgJoined, Data: JoinedMsg{RoomID: msg.RoomID, Success: false}})
		return
	}
	if c.roomID != "" {
		c.hub.RemoveFromRoom(c, c.roomID)
	}
	c.name = cleanName(msg.Name)
	ok := c.hub.lobby.AddMember(msg.RoomID, &Member{
		ConnID: c.id,
		Name:   c.name,
		Bounds: msg.Bounds,
		SkinID: msg.SkinID,
		SkinW:  msg.SkinW,
		SkinH:  msg.SkinH,
	})
	if ok {
		c.roomID = msg.RoomID
	}
	c.SendJSON(Envelope{T: MsgJoined, Data: JoinedMsg{RoomID: msg.RoomID, Success: ok}})
	c.hub.BroadcastLobby()
}

func (c *Client) handleQuit(data json.RawMessage) {
	var msg QuitMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	c.hub.RemoveFromRoom(c, msg.RoomID)
	c.SendJSON(Envelope{T: MsgRoomQuit})
	c.hub.BroadcastLobby()
}

func (c *Client) handleStart(data json.RawMessage) {
	var msg StartMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	// atomically marks the room started and copies its roster; only
	// members may start, and joins landing after this point fail
	room, ok := c.hub.lobby.SnapshotStarted(msg.RoomID, c.id)
	if !ok {
		c.SendJSON(Envelope{T: MsgError, Data: ErrorMsg{Msg: "cannot start this room"}})
		return
	}
	clients := c.hub.RoomClients(room.Members)
	sess := c.hub.games.Start(room, msg.Settings, msg.EnemyW, msg.EnemyH, clients)

	snap := sess.Snapshot()
	// initiator gets the ack first, the rest of the room a broadcast
	c.SendJSON(Envelope{T: MsgGameStarted, Data: snap})
	for connID, b := range clients {
		if connID != c.id {
			b.SendJSON(Envelope{T: MsgHostStarted, Data: snap})
		}
	}
	c.hub.BroadcastLobby()
}

// handleSolo hosts a one-member room and starts its game in one step
func (c *Client) handleSolo(data json.RawMessage) {
	var msg SoloMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	if c.roomID != "" {
		c.hub.RemoveFromRoom(c, c.roomID)
	}
	c.name = cleanName(msg.Name)
	room := c.hub.lobby.CreateRoom(&Member{
		ConnID: c.id,
		Name:   c.name,
		Bounds: msg.Bounds,
		SkinID: msg.SkinID,
		SkinW:  msg.SkinW,
		SkinH:  msg.SkinH,
	})
	c.roomID = room.ID

	started, ok := c.hub.lobby.SnapshotStarted(room.ID, c.id)
	if !ok {
		return
	}
	sess := c.hub.games.Start(started, msg.Settings, msg.EnemyW, msg.EnemyH, c.hub.RoomClients(started.Members))
	c.SendJSON(Envelope{T: MsgGameStarted, Data: sess.Snapshot()})
	c.hub.BroadcastLobby()
}

// handleNameChange updates the member record in whatever room the
// connection occupies and tells the lobby
func (c *Client) handleNameChange(data json.RawMessage) {
	var msg NameMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	c.name = cleanName(msg.Name)
	if c.roomID != "" {
		c.hub.lobby.RenameMember(c.roomID, c.id, c.name)
	}
	c.hub.BroadcastLobby()
}

func (c *Client) handleMove(data json.RawMessage) {
	if c.roomID == "" {
		return
	}
	var msg MoveMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	sess := c.hub.games.Get(c.roomID)
	if sess == nil {
		return
	}
	sess.HandleMove(c.id, msg.X, msg.Y)
}

func (c *Client) handleShoot() {
	if c.roomID == "" {
		return
	}
	if sess := c.hub.games.Get(c.roomID); sess != nil {
		sess.HandleShoot(c.id)
	}
}

func (c *Client) handleResize(data json.RawMessage) {
	var msg ResizeMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	bounds, ok := c.hub.lobby.UpdateMemberBounds(msg.RoomID, c.id, msg.Bounds)
	if !ok {
		return
	}
	if sess := c.hub.games.Get(msg.RoomID); sess != nil {
		sess.SetBounds(bounds)
	}
}

func (c *Client) handlePauseToggle() {
	if c.roomID == "" {
		return
	}
	if sess := c.hub.games.Get(c.roomID); sess != nil {
		sess.TogglePause(c.id)
	}
}

func (c *Client) handleRestart() {
	if c.roomID == "" {
		return
	}
	c.hub.games.Restart(c.roomID)
}

func (c *Client) handleGameOver() {
	if c.roomID == "" {
		return
	}
	if sess := c.hub.games.Get(c.roomID); sess != nil {
		sess.SetOver()
	}
}

// handleGameEnded leaves the current room and tears down any session
func (c *Client) handleGameEnded() {
	if c.roomID == "" {
		return
	}
	c.hub.RemoveFromRoom(c, c.roomID)
	c.hub.BroadcastLobby()
}

func (c *Client) handleRequestLobby() {
	c.SendJSON(Envelope{T: MsgUpdateLobby, Data: c.hub.lobby.ListAvailable()})
}

func (c *Client) handleRequestRankings() {
	c.SendJSON(Envelope{T: MsgRanking, Data: RankingBoard()})
}
