package main

import (
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

const (
	PhysicsTickRate = 60 // physics/collision ticks per second
	SpawnTickRate   = 20 // spawn/AI ticks per second

	PhysicsTickDuration = time.Second / PhysicsTickRate
	SpawnTickDuration   = time.Second / SpawnTickRate

	BulletSize       = 10.0 // square bullet hit-box side
	BulletSpeed      = 8.0  // px per physics tick, sign follows ownership
	EnemyFallSpeed   = 2.0  // px per physics tick
	EnemyShootChance = 0.02 // per enemy per spawn tick
	KillScore        = 10
	BaseSpawnChance  = 0.3
	SpawnChanceStep  = 0.0001 // spawn chance gained per score point on a kill
	BaseEnemyCount   = 5
	ImmunityWindow   = 500 * time.Millisecond

	DefaultEnemyW = 40.0
	DefaultEnemyH = 30.0
)

// Broadcaster interface for sending messages to clients
type Broadcaster interface {
	SendJSON(msg interface{})
	SendBinary(data []byte)
}

// GamePlayer is one live player's authoritative state
type GamePlayer struct {
	ID     string
	Name   string
	Pos    Vec2
	HP     int
	Ammo   int
	Immune bool
	SkinID int
	SkinW  float64
	SkinH  float64

	cooling bool // shot cooldown in effect
}

// Hitbox returns the player's collision box
func (p *GamePlayer) Hitbox() Box {
	return NewBox(p.Pos.X, p.Pos.Y, p.SkinW, p.SkinH)
}

// Enemy is a descending hostile
type Enemy struct {
	Pos  Vec2
	dead bool
}

// Bullet travels vertically; player bullets move up, enemy bullets down
type Bullet struct {
	Pos        Vec2
	FromPlayer bool
	dead       bool
}

// Hitbox returns the bullet's collision box
func (b *Bullet) Hitbox() Box {
	return NewBox(b.Pos.X, b.Pos.Y, BulletSize, BulletSize)
}

// GameSession holds the live mutable state of one started room.
// One mutex guards everything; the two tickers, input handlers and
// deferred timers all serialize through it.
type GameSession struct {
	mu       sync.Mutex
	roomID   string
	players  []*GamePlayer
	enemies  []*Enemy
	bullets  []*Bullet
	clients  map[string]Broadcaster // connID -> client
	score    int
	spawnCh  float64
	maxEn    int
	paused   bool
	pauserID string
	over     bool
	bounds   Bounds
	enemyW   float64
	enemyH   float64
	settings Settings
}

// newGameSession builds the initial state for a room transitioning
// into "started". The roster comes as a locked-copy snapshot, so no
// live registry state is read here. Players spawn at the bottom
// center of their own reported viewport.
func newGameSession(room RoomSnapshot, settings Settings, enemyW, enemyH float64, clients map[string]Broadcaster) *GameSession {
	if enemyW <= 0 {
		enemyW = DefaultEnemyW
	}
	if enemyH <= 0 {
		enemyH = DefaultEnemyH
	}
	s := &GameSession{
		roomID:   room.ID,
		clients:  clients,
		spawnCh:  BaseSpawnChance,
		maxEn:    BaseEnemyCount,
		bounds:   room.Bounds,
		enemyW:   enemyW,
		enemyH:   enemyH,
		settings: settings,
	}
	for _, m := range room.Members {
		s.players = append(s.players, &GamePlayer{
			ID:   m.ConnID,
			Name: m.Name,
			Pos: Vec2{
				X: (m.Bounds.Left+m.Bounds.Right)/2 - m.SkinW/2,
				Y: m.Bounds.Bottom - m.SkinH - 10,
			},
			HP:     settings.PlayerHP,
			Ammo:   settings.Ammo,
			SkinID: m.SkinID,
			SkinW:  m.SkinW,
			SkinH:  m.SkinH,
		})
	}
	return s
}

// fresh returns a replacement session with the same settings, enemy
// dimensions and roster, reset to starting state.
func (s *GameSession) fresh() *GameSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := &GameSession{
		roomID:   s.roomID,
		clients:  s.clients,
		spawnCh:  BaseSpawnChance,
		maxEn:    BaseEnemyCount,
		bounds:   s.bounds,
		enemyW:   s.enemyW,
		enemyH:   s.enemyH,
		settings: s.settings,
	}
	for _, p := range s.players {
		out.players = append(out.players, &GamePlayer{
			ID:     p.ID,
			Name:   p.Name,
			Pos:    p.Pos,
			HP:     s.settings.PlayerHP,
			Ammo:   s.settings.Ammo,
			SkinID: p.SkinID,
			SkinW:  p.SkinW,
			SkinH:  p.SkinH,
		})
	}
	return out
}

func (s *GameSession) enemyBox(e *Enemy) Box {
	return NewBox(e.Pos.X, e.Pos.Y, s.enemyW, s.enemyH)
}

func (s *GameSession) player(connID string) *GamePlayer {
	for _, p := range s.players {
		if p.ID == connID {
			return p
		}
	}
	return nil
}

// PlayerCount returns the number of live player entries
func (s *GameSession) PlayerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.players)
}

// damage applies one hit and opens the immunity window. The clearing
// timer is fire-and-forget; nobody awaits it. Caller holds the lock.
func (s *GameSession) damage(p *GamePlayer) {
	p.HP--
	if p.HP < 0 {
		p.HP = 0
	}
	p.Immune = true
	time.AfterFunc(ImmunityWindow, func() {
		s.mu.Lock()
		p.Immune = false
		s.mu.Unlock()
	})
}

// rescaleDifficulty is invoked after every enemy kill. Spawn chance is
// non-decreasing in score and capped at 1; the enemy cap grows by one
// per 100 points. Caller holds the lock.
func (s *GameSession) rescaleDifficulty() {
	s.spawnCh += float64(s.score) * SpawnChanceStep
	if s.spawnCh > 1.0 {
		s.spawnCh = 1.0
	}
	s.maxEn = BaseEnemyCount + s.score/100
}

// physicsTick runs one collision/movement step. The step order is part
// of the observable contract: out-of-bounds culling happens before
// collision testing, so a bullet that left the world this tick cannot
// score.
func (s *GameSession) physicsTick() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.paused || s.over {
		return
	}

	// 1. Cull enemies past the lower world bound
	enemies := s.enemies[:0]
	for _, e := range s.enemies {
		if e.Pos.Y <= s.bounds.Bottom {
			enemies = append(enemies, e)
		}
	}
	s.enemies = enemies

	// 2. Cull bullets past the top or bottom bound
	bullets := s.bullets[:0]
	for _, b := range s.bullets {
		if b.Pos.Y+BulletSize < s.bounds.Top || b.Pos.Y > s.bounds.Bottom {
			continue
		}
		bullets = append(bullets, b)
	}
	s.bullets = bullets

	// 3. Bullet collisions, first hit wins, entities scanned in list order
	for _, b := range s.bullets {
		box := b.Hitbox()
		if b.FromPlayer {
			for _, e := range s.enemies {
				if e.dead {
					continue
				}
				if box.Overlaps(s.enemyBox(e)) {
					e.dead = true
					b.dead = true
					s.score += KillScore
					s.rescaleDifficulty()
					break
				}
			}
		} else {
			for _, p := range s.players {
				if p.HP <= 0 {
					continue
				}
				if !p.Immune && box.Overlaps(p.Hitbox()) {
					s.damage(p)
					b.dead = true
					break
				}
			}
		}
	}

	// 4. Direct contact damage, independent of bullets
	for _, e := range s.enemies {
		if e.dead {
			continue
		}
		ebox := s.enemyBox(e)
		for _, p := range s.players {
			if p.HP <= 0 || p.Immune {
				continue
			}
			if ebox.Overlaps(p.Hitbox()) {
				s.damage(p)
			}
		}
	}

	// 5. Apply pending removals in one batch, enemies then bullets
	enemies = s.enemies[:0]
	for _, e := range s.enemies {
		if !e.dead {
			enemies = append(enemies, e)
		}
	}
	s.enemies = enemies
	bullets = s.bullets[:0]
	for _, b := range s.bullets {
		if !b.dead {
			bullets = append(bullets, b)
		}
	}
	s.bullets = bullets

	// 6. Advance what remains
	for _, b := range s.bullets {
		if b.FromPlayer {
			b.Pos.Y -= BulletSpeed
		} else {
			b.Pos.Y += BulletSpeed
		}
	}
	for _, e := range s.enemies {
		e.Pos.Y += EnemyFallSpeed
	}

	// Every player down means the game is lost
	if len(s.players) > 0 {
		alive := false
		for _, p := range s.players {
			if p.HP > 0 {
				alive = true
				break
			}
		}
		if !alive {
			s.over = true
		}
	}

	// 7. Broadcast the updated state to the room
	s.broadcastSnapshotLocked()
}

// spawnTick runs one spawn/AI step
func (s *GameSession) spawnTick() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.paused || s.over {
		return
	}

	if len(s.enemies) < s.maxEn && rand.Float64() < s.spawnCh {
		span := s.bounds.Right - s.bounds.Left - s.enemyW
		if span < 0 {
			span = 0
		}
		s.enemies = append(s.enemies, &Enemy{Pos: Vec2{
			X: s.bounds.Left + rand.Float64()*span,
			Y: s.bounds.Top - s.enemyH,
		}})
	}

	for _, e := range s.enemies {
		if rand.Float64() < EnemyShootChance {
			s.bullets = append(s.bullets, &Bullet{Pos: e.Pos})
		}
	}
}

// HandleMove overwrites the player's position with the client-reported
// value. Positions are trusted verbatim.
func (s *GameSession) HandleMove(connID string, x, y float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p := s.player(connID); p != nil {
		p.Pos = Vec2{X: x, Y: y}
	}
}

// HandleShoot spawns a player bullet at the shooter's horizontal
// center, gated by the shot cooldown and the ammo pool.
func (s *GameSession) HandleShoot(connID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.paused || s.over {
		return
	}
	p := s.player(connID)
	if p == nil || p.HP <= 0 || p.cooling || p.Ammo <= 0 {
		return
	}
	p.Ammo--
	s.bullets = append(s.bullets, &Bullet{
		Pos:        Vec2{X: p.Pos.X + p.SkinW/2 - BulletSize/2, Y: p.Pos.Y},
		FromPlayer: true,
	})
	p.cooling = true
	delay := time.Duration(s.settings.ShootDelayMs) * time.Millisecond
	time.AfterFunc(delay, func() {
		s.mu.Lock()
		p.cooling = false
		s.mu.Unlock()
	})
}

// TogglePause flips the pause state, recording who paused
func (s *GameSession) TogglePause(connID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.over {
		return
	}
	s.paused = !s.paused
	if s.paused {
		s.pauserID = connID
	} else {
		s.pauserID = ""
	}
	// paused ticks no-op, so push the state change out now
	s.broadcastSnapshotLocked()
}

// SetOver marks the session finished and broadcasts the final state.
// Both tickers no-op from here until teardown or restart.
func (s *GameSession) SetOver() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.over {
		return
	}
	s.over = true
	s.broadcastSnapshotLocked()
}

// SetBounds updates the session's world bounds after a viewport change
func (s *GameSession) SetBounds(b Bounds) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bounds = b
}

// removePlayer drops a player and returns how many remain. If the
// leaving player held the pause, ownership moves to the first player
// left in list order and the room is told who holds it now.
func (s *GameSession) removePlayer(connID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, p := range s.players {
		if p.ID == connID {
			s.players = append(s.players[:i], s.players[i+1:]...)
			break
		}
	}
	delete(s.clients, connID)

	if s.paused && s.pauserID == connID && len(s.players) > 0 {
		next := s.players[0]
		s.pauserID = next.ID
		s.broadcastJSONLocked(Envelope{T: MsgPauserQuit, Data: PauserQuitMsg{
			PauserID: next.ID,
			Name:     next.Name,
		}})
	}
	return len(s.players)
}

// Snapshot builds the client-facing state
func (s *GameSession) Snapshot() GameSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *GameSession) snapshotLocked() GameSnapshot {
	snap := GameSnapshot{
		RoomID:      s.roomID,
		Players:     make([]PlayerState, 0, len(s.players)),
		Enemies:     make([]EnemyState, 0, len(s.enemies)),
		Bullets:     make([]BulletState, 0, len(s.bullets)),
		Score:       s.score,
		SpawnChance: s.spawnCh,
		MaxEnemies:  s.maxEn,
		Paused:      s.paused,
		PauserID:    s.pauserID,
		Over:        s.over,
		EnemyW:      s.enemyW,
		EnemyH:      s.enemyH,
		Settings:    s.settings,
	}
	for _, p := range s.players {
		snap.Players = append(snap.Players, PlayerState{
			ID:     p.ID,
			Name:   p.Name,
			X:      p.Pos.X,
			Y:      p.Pos.Y,
			HP:     p.HP,
			Ammo:   p.Ammo,
			Immune: p.Immune,
			SkinID: p.SkinID,
			SkinW:  p.SkinW,
			SkinH:  p.SkinH,
		})
	}
	for _, e := range s.enemies {
		snap.Enemies = append(snap.Enemies, EnemyState{X: e.Pos.X, Y: e.Pos.Y})
	}
	for _, b := range s.bullets {
		snap.Bullets = append(snap.Bullets, BulletState{X: b.Pos.X, Y: b.Pos.Y, FromPlayer: b.FromPlayer})
	}
	return snap
}

// broadcastSnapshotLocked sends the state as a binary msgpack frame to
// every client in the session. Caller holds the lock.
func (s *GameSession) broadcastSnapshotLocked() {
	data, err := msgpack.Marshal(s.snapshotLocked())
	if err != nil {
		log.Printf("msgpack marshal: %v", err)
		return
	}
	for _, client := range s.clients {
		client.SendBinary(data)
	}
}

func (s *GameSession) broadcastJSONLocked(msg Envelope) {
	for _, client := range s.clients {
		client.SendJSON(msg)
	}
}

// BroadcastJSON sends a JSON envelope to every client in the session
func (s *GameSession) BroadcastJSON(msg Envelope) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.broadcastJSONLocked(msg)
}

// sessionTickers is the side-table entry holding a session's two
// ticker handles, kept apart from anything serialized or broadcast.
type sessionTickers struct {
	physics *time.Ticker
	spawn   *time.Ticker
	stop    chan struct{}
	once    sync.Once
}

// Stop halts both tickers. Safe to call more than once.
func (t *sessionTickers) Stop() {
	t.once.Do(func() {
		t.physics.Stop()
		t.spawn.Stop()
		close(t.stop)
	})
}

// GameManager owns the session map and the ticker side-table, both
// keyed by room id. Sessions and rooms are separate collections so a
// restart can swap the session while the room survives.
type GameManager struct {
	mu       sync.RWMutex
	sessions map[string]*GameSession
	tickers  map[string]*sessionTickers
}

// NewGameManager creates an empty session registry
func NewGameManager() *GameManager {
	return &GameManager{
		sessions: make(map[string]*GameSession),
		tickers:  make(map[string]*sessionTickers),
	}
}

// Start creates a session for the room and launches its tickers. Any
// session already registered under the room id is stopped first —
// stop-before-replace is what keeps duplicate tickers from corrupting
// a reused room id.
func (gm *GameManager) Start(room RoomSnapshot, settings Settings, enemyW, enemyH float64, clients map[string]Broadcaster) *GameSession {
	sess := newGameSession(room, settings.Normalize(), enemyW, enemyH, clients)

	gm.mu.Lock()
	if t, ok := gm.tickers[room.ID]; ok {
		t.Stop()
	}
	gm.sessions[room.ID] = sess
	gm.tickers[room.ID] = gm.runTickers(room.ID, sess)
	gm.mu.Unlock()
	return sess
}

// runTickers launches the physics and spawn loops for a session. Each
// loop also self-cancels if the session is no longer the registered
// one — a safety net, not a substitute for explicit Stop on teardown.
func (gm *GameManager) runTickers(roomID string, sess *GameSession) *sessionTickers {
	t := &sessionTickers{
		physics: time.NewTicker(PhysicsTickDuration),
		spawn:   time.NewTicker(SpawnTickDuration),
		stop:    make(chan struct{}),
	}

	go func() {
		for {
			select {
			case <-t.stop:
				return
			case <-t.physics.C:
				if gm.Get(roomID) != sess {
					t.Stop()
					return
				}
				sess.physicsTick()
			}
		}
	}()

	go func() {
		for {
			select {
			case <-t.stop:
				return
			case <-t.spawn.C:
				if gm.Get(roomID) != sess {
					t.Stop()
					return
				}
				sess.spawnTick()
			}
		}
	}()

	return t
}

// Get returns the session for a room id, or nil
func (gm *GameManager) Get(roomID string) *GameSession {
	gm.mu.RLock()
	defer gm.mu.RUnlock()
	return gm.sessions[roomID]
}

// Remove stops the session's tickers and drops it from the map
func (gm *GameManager) Remove(roomID string) {
	gm.mu.Lock()
	defer gm.mu.Unlock()
	if t, ok := gm.tickers[roomID]; ok {
		t.Stop()
	}
	delete(gm.tickers, roomID)
	delete(gm.sessions, roomID)
}

// RemovePlayer drops a player from the room's session. Removing the
// last player removes the session itself, tickers included.
func (gm *GameManager) RemovePlayer(roomID, connID string) {
	sess := gm.Get(roomID)
	if sess == nil {
		return
	}
	if sess.removePlayer(connID) == 0 {
		gm.Remove(roomID)
	}
}

// Restart replaces the room's session with a fresh one reusing the
// prior settings and enemy dimensions, then announces it as a distinct
// event rather than a regular tick update.
func (gm *GameManager) Restart(roomID string) *GameSession {
	gm.mu.Lock()
	old := gm.sessions[roomID]
	if old == nil {
		gm.mu.Unlock()
		return nil
	}
	if t, ok := gm.tickers[roomID]; ok {
		t.Stop()
	}
	sess := old.fresh()
	gm.sessions[roomID] = sess
	gm.tickers[roomID] = gm.runTickers(roomID, sess)
	gm.mu.Unlock()

	sess.BroadcastJSON(Envelope{T: MsgRestarted, Data: sess.Snapshot()})
	return sess
}

// SessionCount returns the number of live sessions
func (gm *GameManager) SessionCount() int {
	gm.mu.RLock()
	defer gm.mu.RUnlock()
	return len(gm.sessions)
}
