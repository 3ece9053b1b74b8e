package main

// Bounds is a client-reported viewport rectangle in world coordinates
type Bounds struct {
	Left   float64 `json:"left" msgpack:"left"`
	Top    float64 `json:"top" msgpack:"top"`
	Right  float64 `json:"right" msgpack:"right"`
	Bottom float64 `json:"bottom" msgpack:"bottom"`
}

// Union returns the componentwise union of two bounds
func (b Bounds) Union(o Bounds) Bounds {
	out := b
	if o.Left < out.Left {
		out.Left = o.Left
	}
	if o.Top < out.Top {
		out.Top = o.Top
	}
	if o.Right > out.Right {
		out.Right = o.Right
	}
	if o.Bottom > out.Bottom {
		out.Bottom = o.Bottom
	}
	return out
}

// Member is a connection's seat in a lobby room
type Member struct {
	ConnID string  `json:"id"`
	Name   string  `json:"name"`
	Bounds Bounds  `json:"bounds"`
	SkinID int     `json:"skin"`
	SkinW  float64 `json:"skinW"`
	SkinH  float64 `json:"skinH"`
}

// Room is a lobby grouping of connections before a game starts.
// Members[0] is the host; use Host() instead of indexing directly.
type Room struct {
	ID      string
	Started bool
	Members []*Member
	Bounds  Bounds // union of every member's reported viewport
}

// RoomSnapshot is a copy of a room's state taken under the registry
// lock. Safe to read after the lock is released; live room internals
// never leave the lobby.
type RoomSnapshot struct {
	ID      string
	Members []Member
	Bounds  Bounds
}

// snapshot copies the room's state. Caller holds the registry lock.
func (r *Room) snapshot() RoomSnapshot {
	members := make([]Member, len(r.Members))
	for i, m := range r.Members {
		members[i] = *m
	}
	return RoomSnapshot{ID: r.ID, Members: members, Bounds: r.Bounds}
}

// Host returns the room's host (the first member), or nil for an
// empty room. Rooms in the registry always have at least one member.
func (r *Room) Host() *Member {
	if len(r.Members) == 0 {
		return nil
	}
	return r.Members[0]
}

// HasMember reports whether the connection occupies this room
func (r *Room) HasMember(connID string) bool {
	return r.memberIndex(connID) >= 0
}

func (r *Room) memberIndex(connID string) int {
	for i, m := range r.Members {
		if m.ConnID == connID {
			return i
		}
	}
	return -1
}

// recomputeBounds rebuilds the room bounds from its members' viewports.
// Called on every membership or viewport change.
func (r *Room) recomputeBounds() {
	if len(r.Members) == 0 {
		r.Bounds = Bounds{}
		return
	}
	b := r.Members[0].Bounds
	for _, m := range r.Members[1:] {
		b = b.Union(m.Bounds)
	}
	r.Bounds = b
}
