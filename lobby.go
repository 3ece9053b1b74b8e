package main

import (
	"crypto/rand"
	"sync"
)

const roomIDLen = 5

// Lobby is the registry of rooms that exist before and during games
type Lobby struct {
	mu    sync.RWMutex
	rooms map[string]*Room
}

// NewLobby creates an empty room registry
func NewLobby() *Lobby {
	return &Lobby{rooms: make(map[string]*Room)}
}

// generateRoomID returns a short digit code not used by any live room.
// Caller must hold the lock. Collisions are retried, not trusted to luck.
func (l *Lobby) generateRoomID() string {
	for {
		b := make([]byte, roomIDLen)
		rand.Read(b)
		for i := range b {
			b[i] = '0' + b[i]%10
		}
		id := string(b)
		if _, taken := l.rooms[id]; !taken {
			return id
		}
	}
}

// CreateRoom allocates a room with host as its sole member
func (l *Lobby) CreateRoom(host *Member) *Room {
	l.mu.Lock()
	defer l.mu.Unlock()

	room := &Room{
		ID:      l.generateRoomID(),
		Members: []*Member{host},
		Bounds:  host.Bounds,
	}
	l.rooms[room.ID] = room
	return room
}

// Get returns a room by id, or nil
func (l *Lobby) Get(id string) *Room {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.rooms[id]
}

// FindRoom returns the room containing the connection, or nil
func (l *Lobby) FindRoom(connID string) *Room {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, room := range l.rooms {
		if room.HasMember(connID) {
			return room
		}
	}
	return nil
}

// AddMember appends a member to an existing room and reports success.
// Fails if the room is gone, already in-game, or the connection is
// already in it.
func (l *Lobby) AddMember(roomID string, m *Member) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	room, ok := l.rooms[roomID]
	if !ok || room.Started || room.HasMember(m.ConnID) {
		return false
	}
	room.Members = append(room.Members, m)
	room.recomputeBounds()
	return true
}

// RemoveMember takes the connection out of the room. A room that would
// become empty is deleted in the same operation; the return value
// reports whether that happened.
func (l *Lobby) RemoveMember(roomID, connID string) (deleted bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	room, ok := l.rooms[roomID]
	if !ok {
		return false
	}
	i := room.memberIndex(connID)
	if i < 0 {
		return false
	}
	if len(room.Members) == 1 {
		delete(l.rooms, roomID)
		return true
	}
	room.Members = append(room.Members[:i], room.Members[i+1:]...)
	room.recomputeBounds()
	return false
}

// SnapshotStarted marks the room as in-game and returns a copy of its
// state for the game engine, both under one lock acquisition so no
// join can land between the roster read and the started flag. Fails —
// leaving the room untouched — if the room does not exist or the
// caller is not one of its members.
func (l *Lobby) SnapshotStarted(roomID, connID string) (RoomSnapshot, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	room, ok := l.rooms[roomID]
	if !ok || !room.HasMember(connID) {
		return RoomSnapshot{}, false
	}
	room.Started = true
	return room.snapshot(), true
}

// RenameMember updates the member's display name in the given room
func (l *Lobby) RenameMember(roomID, connID, name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	room, ok := l.rooms[roomID]
	if !ok {
		return
	}
	if i := room.memberIndex(connID); i >= 0 {
		room.Members[i].Name = name
	}
}

// UpdateMemberBounds records a member's new viewport and returns the
// recomputed room bounds. ok is false if room or member is gone.
func (l *Lobby) UpdateMemberBounds(roomID, connID string, b Bounds) (Bounds, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	room, ok := l.rooms[roomID]
	if !ok {
		return Bounds{}, false
	}
	i := room.memberIndex(connID)
	if i < 0 {
		return Bounds{}, false
	}
	room.Members[i].Bounds = b
	room.recomputeBounds()
	return room.Bounds, true
}

// ListAvailable returns info for every room that has not started
func (l *Lobby) ListAvailable() []RoomInfo {
	l.mu.RLock()
	defer l.mu.RUnlock()

	list := make([]RoomInfo, 0, len(l.rooms))
	for _, room := range l.rooms {
		if room.Started {
			continue
		}
		names := make([]string, 0, len(room.Members))
		for _, m := range room.Members {
			names = append(names, m.Name)
		}
		list = append(list, RoomInfo{
			ID:      room.ID,
			Host:    room.Host().Name,
			Players: names,
		})
	}
	return list
}

// RoomCount returns the number of live rooms
func (l *Lobby) RoomCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.rooms)
}
