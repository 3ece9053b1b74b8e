package main

import (
	"encoding/json"
	"log"
	"sync"
)

const (
	maxConnsPerIP = 5
	maxTotalConns = 1000
)

// Hub manages all connected clients, the room registry and the
// session map. Constructed once at startup and threaded through every
// handler; no package-level mutable state.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]bool
	byID    map[string]*Client // connID -> client

	register   chan *Client
	unregister chan *Client

	lobby *Lobby
	games *GameManager

	// Connection limiting (mutex-protected, accessed from HTTP handlers)
	connMu     sync.Mutex
	ipConns    map[string]int
	totalConns int
}

// NewHub creates a new Hub
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		byID:       make(map[string]*Client),
		register:   make(chan *Client, 64),
		unregister: make(chan *Client, 64),
		lobby:      NewLobby(),
		games:      NewGameManager(),
		ipConns:    make(map[string]int),
	}
}

func (h *Hub) CanAccept(ip string) bool {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	if h.totalConns >= maxTotalConns {
		return false
	}
	if h.ipConns[ip] >= maxConnsPerIP {
		return false
	}
	return true
}

func (h *Hub) TrackConnect(ip string) {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	h.ipConns[ip]++
	h.totalConns++
}

func (h *Hub) TrackDisconnect(ip string) {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	h.ipConns[ip]--
	if h.ipConns[ip] <= 0 {
		delete(h.ipConns, ip)
	}
	h.totalConns--
}

// Run processes register/unregister events
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.byID[client.id] = client
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				delete(h.byID, client.id)
				close(client.send)
			}
			h.mu.Unlock()
			// Disconnect acts like quit on whatever room the
			// connection occupies, always followed by a lobby push
			if client.roomID != "" {
				h.RemoveFromRoom(client, client.roomID)
			}
			h.BroadcastLobby()
		}
	}
}

// RemoveFromRoom takes the client out of a room and out of any live
// game in it. Game cleanup runs first so a dying session's tickers
// stop before the room entry disappears.
func (h *Hub) RemoveFromRoom(c *Client, roomID string) {
	h.games.RemovePlayer(roomID, c.id)
	if deleted := h.lobby.RemoveMember(roomID, c.id); deleted {
		// room gone entirely: drop any session still keyed to it
		h.games.Remove(roomID)
	}
	if c.roomID == roomID {
		c.roomID = ""
	}
}

// RoomClients maps a roster of members to their connected clients
func (h *Hub) RoomClients(members []Member) map[string]Broadcaster {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make(map[string]Broadcaster, len(members))
	for _, m := range members {
		if c, ok := h.byID[m.ConnID]; ok {
			out[m.ConnID] = c
		}
	}
	return out
}

// BroadcastLobby pushes the current list of non-started rooms to every
// connected client. Called on every roster change.
func (h *Hub) BroadcastLobby() {
	data, err := json.Marshal(Envelope{T: MsgUpdateLobby, Data: h.lobby.ListAvailable()})
	if err != nil {
		log.Printf("marshal lobby: %v", err)
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		client.SendRaw(data)
	}
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// TotalConns returns the tracked connection count
func (h *Hub) TotalConns() int {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	return h.totalConns
}
