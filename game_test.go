package main

import (
	"sync"
	"testing"
)

// mockClient captures sent messages for testing
type mockClient struct {
	mu     sync.Mutex
	json   []interface{}
	binary [][]byte
}

func (m *mockClient) SendJSON(msg interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.json = append(m.json, msg)
}

func (m *mockClient) SendBinary(data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.binary = append(m.binary, data)
}

func (m *mockClient) binaryCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.binary)
}

func (m *mockClient) findJSON(msgType string) (Envelope, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range m.json {
		if env, ok := msg.(Envelope); ok && env.T == msgType {
			return env, true
		}
	}
	return Envelope{}, false
}

func testRoomWith(members ...*Member) *Room {
	r := &Room{ID: "12345", Members: members}
	r.recomputeBounds()
	return r
}

var testSettings = Settings{Difficulty: DifficultyCustom, PlayerHP: 3, Ammo: 50, ShootDelayMs: 500}

// testSession builds a session without tickers so ticks run only when
// the test calls them.
func testSession(t *testing.T, members ...*Member) (*GameSession, *mockClient) {
	t.Helper()
	mock := &mockClient{}
	clients := make(map[string]Broadcaster)
	for _, m := range members {
		clients[m.ConnID] = mock
	}
	return newGameSession(testRoomWith(members...).snapshot(), testSettings, 20, 20, clients), mock
}

func TestNewSessionInitialState(t *testing.T) {
	s, _ := testSession(t,
		testMember("c1", "Alice", Bounds{0, 0, 800, 600}),
		testMember("c2", "Bob", Bounds{0, 0, 800, 600}),
	)
	snap := s.Snapshot()
	if len(snap.Players) != 2 {
		t.Fatalf("expected 2 players, got %d", len(snap.Players))
	}
	for _, p := range snap.Players {
		if p.HP != 3 || p.Ammo != 50 || p.Immune {
			t.Errorf("player %s = %+v", p.ID, p)
		}
	}
	if len(snap.Enemies) != 0 || len(snap.Bullets) != 0 {
		t.Error("fresh session must have no enemies or bullets")
	}
	if snap.Score != 0 || snap.Over || snap.Paused {
		t.Errorf("snapshot = %+v", snap)
	}
	if snap.SpawnChance != BaseSpawnChance || snap.MaxEnemies != BaseEnemyCount {
		t.Errorf("difficulty = %v/%v", snap.SpawnChance, snap.MaxEnemies)
	}
}

func TestSessionPlayersUnique(t *testing.T) {
	s, _ := testSession(t,
		testMember("c1", "Alice", Bounds{0, 0, 800, 600}),
		testMember("c2", "Bob", Bounds{0, 0, 800, 600}),
	)
	seen := make(map[string]bool)
	for _, p := range s.players {
		if seen[p.ID] {
			t.Fatalf("duplicate player id %s", p.ID)
		}
		seen[p.ID] = true
	}
}

func TestDifficultyScaling(t *testing.T) {
	s := &GameSession{spawnCh: BaseSpawnChance, maxEn: BaseEnemyCount}
	prev := s.spawnCh
	for score := 0; score <= 30000; score += 10 {
		s.score = score
		s.rescaleDifficulty()
		if s.spawnCh < prev {
			t.Fatalf("spawn chance decreased at score %d", score)
		}
		if s.spawnCh > 1.0 {
			t.Fatalf("spawn chance %v exceeds 1.0 at score %d", s.spawnCh, score)
		}
		if want := BaseEnemyCount + score/100; s.maxEn != want {
			t.Fatalf("maxEnemies = %d at score %d, want %d", s.maxEn, score, want)
		}
		prev = s.spawnCh
	}
	if s.spawnCh != 1.0 {
		t.Errorf("spawn chance should have reached the cap, got %v", s.spawnCh)
	}
}

func TestPhysicsTickBulletKillsEnemy(t *testing.T) {
	s, mock := testSession(t, testMember("c1", "Alice", Bounds{0, 0, 800, 600}))
	s.enemies = append(s.enemies, &Enemy{Pos: Vec2{96, 46}}) // box x:[96,116] y:[46,66]
	s.bullets = append(s.bullets, &Bullet{Pos: Vec2{100, 50}, FromPlayer: true})

	s.physicsTick()

	if s.score != KillScore {
		t.Errorf("score = %d, want %d", s.score, KillScore)
	}
	if len(s.enemies) != 0 {
		t.Errorf("enemy should be removed, %d left", len(s.enemies))
	}
	if len(s.bullets) != 0 {
		t.Errorf("bullet should be removed, %d left", len(s.bullets))
	}
	if s.spawnCh <= BaseSpawnChance {
		t.Error("kill must recompute difficulty")
	}
	if mock.binaryCount() != 1 {
		t.Errorf("expected 1 state broadcast, got %d", mock.binaryCount())
	}
}

// A bullet that exits bounds in the same tick it would have scored a
// hit does not score: culling runs before collision testing.
func TestOutOfBoundsBulletDoesNotScore(t *testing.T) {
	s, _ := testSession(t, testMember("c1", "Alice", Bounds{0, 0, 800, 600}))
	s.enemies = append(s.enemies, &Enemy{Pos: Vec2{100, -15}})
	// past the near-top bound: bottom of the bullet box is above y=0
	s.bullets = append(s.bullets, &Bullet{Pos: Vec2{100, -11}, FromPlayer: true})

	s.physicsTick()

	if s.score != 0 {
		t.Errorf("score = %d, want 0", s.score)
	}
	if len(s.enemies) != 1 {
		t.Errorf("enemy count = %d, want 1", len(s.enemies))
	}
	if len(s.bullets) != 0 {
		t.Error("out-of-bounds bullet must be culled")
	}
}

func TestEnemyCulledPastLowerBound(t *testing.T) {
	s, _ := testSession(t, testMember("c1", "Alice", Bounds{0, 0, 800, 600}))
	s.enemies = append(s.enemies, &Enemy{Pos: Vec2{100, 601}})
	s.physicsTick()
	if len(s.enemies) != 0 {
		t.Error("enemy past the lower world bound must be removed")
	}
}

func TestEnemyBulletHitSetsImmunity(t *testing.T) {
	s, _ := testSession(t, testMember("c1", "Alice", Bounds{0, 0, 800, 600}))
	p := s.players[0]
	p.Pos = Vec2{100, 100}
	s.bullets = append(s.bullets, &Bullet{Pos: Vec2{105, 105}})

	s.physicsTick()

	if p.HP != 2 {
		t.Fatalf("hp = %d, want 2", p.HP)
	}
	if !p.Immune {
		t.Fatal("hit must open the immunity window")
	}
	if len(s.bullets) != 0 {
		t.Error("bullet should be removed on hit")
	}

	// a second hit inside the immunity window is ignored
	s.bullets = append(s.bullets, &Bullet{Pos: Vec2{105, 105}})
	s.physicsTick()
	if p.HP != 2 {
		t.Errorf("immune player took damage, hp = %d", p.HP)
	}
}

func TestLastHPHitEndsGame(t *testing.T) {
	s, _ := testSession(t, testMember("c1", "Alice", Bounds{0, 0, 800, 600}))
	p := s.players[0]
	p.HP = 1
	p.Pos = Vec2{100, 100}
	s.bullets = append(s.bullets, &Bullet{Pos: Vec2{105, 105}})

	s.physicsTick()

	if p.HP != 0 || !p.Immune {
		t.Errorf("hp = %d immune = %v", p.HP, p.Immune)
	}
	if !s.over {
		t.Error("all players down must end the game")
	}
}

func TestEnemyContactDamage(t *testing.T) {
	s, _ := testSession(t, testMember("c1", "Alice", Bounds{0, 0, 800, 600}))
	p := s.players[0]
	p.Pos = Vec2{110, 110}
	s.enemies = append(s.enemies, &Enemy{Pos: Vec2{100, 100}})

	s.physicsTick()

	if p.HP != 2 || !p.Immune {
		t.Errorf("hp = %d immune = %v", p.HP, p.Immune)
	}
	if len(s.enemies) != 1 {
		t.Error("contact damage must not remove the enemy")
	}
}

func TestHandleMove(t *testing.T) {
	s, _ := testSession(t, testMember("c1", "Alice", Bounds{0, 0, 800, 600}))
	s.HandleMove("c1", 123, 456)
	if s.players[0].Pos != (Vec2{123, 456}) {
		t.Errorf("pos = %v", s.players[0].Pos)
	}
	// unknown shooter is a silent no-op
	s.HandleMove("ghost", 1, 1)
}

func TestHandleShoot(t *testing.T) {
	s, _ := testSession(t, testMember("c1", "Alice", Bounds{0, 0, 800, 600}))
	p := s.players[0]
	p.Pos = Vec2{100, 500}

	s.HandleShoot("c1")
	if len(s.bullets) != 1 {
		t.Fatalf("expected 1 bullet, got %d", len(s.bullets))
	}
	b := s.bullets[0]
	if !b.FromPlayer {
		t.Error("bullet must be player-owned")
	}
	// horizontal center of the shooter minus half a bullet
	if b.Pos.X != 105 || b.Pos.Y != 500 {
		t.Errorf("bullet pos = %v", b.Pos)
	}
	if p.Ammo != 49 {
		t.Errorf("ammo = %d", p.Ammo)
	}

	// second shot inside the cooldown window is absorbed
	s.HandleShoot("c1")
	if len(s.bullets) != 1 || p.Ammo != 49 {
		t.Error("cooldown must gate fire rate")
	}
}

func TestHandleShootEmptyPool(t *testing.T) {
	s, _ := testSession(t, testMember("c1", "Alice", Bounds{0, 0, 800, 600}))
	s.players[0].Ammo = 0
	s.HandleShoot("c1")
	if len(s.bullets) != 0 {
		t.Error("empty ammo pool must absorb the shot")
	}
}

func TestTogglePause(t *testing.T) {
	s, mock := testSession(t, testMember("c1", "Alice", Bounds{0, 0, 800, 600}))

	s.TogglePause("c1")
	if !s.paused || s.pauserID != "c1" {
		t.Errorf("paused = %v pauser = %q", s.paused, s.pauserID)
	}
	sent := mock.binaryCount()
	if sent == 0 {
		t.Error("pause must push a state update")
	}

	// paused ticks are no-ops: no mutation, no broadcast
	s.enemies = append(s.enemies, &Enemy{Pos: Vec2{100, 100}})
	s.physicsTick()
	s.spawnTick()
	if len(s.enemies) != 1 || s.enemies[0].Pos.Y != 100 {
		t.Error("paused tick mutated state")
	}
	if mock.binaryCount() != sent {
		t.Error("paused tick broadcast state")
	}

	s.TogglePause("c1")
	if s.paused || s.pauserID != "" {
		t.Error("resume must clear the pauser")
	}
}

func TestSetOverStopsSimulation(t *testing.T) {
	s, mock := testSession(t, testMember("c1", "Alice", Bounds{0, 0, 800, 600}))
	s.SetOver()
	if !s.over {
		t.Fatal("SetOver must mark the session over")
	}
	sent := mock.binaryCount()
	if sent == 0 {
		t.Error("final state must be broadcast")
	}
	s.physicsTick()
	s.spawnTick()
	if mock.binaryCount() != sent {
		t.Error("ticks after game over must no-op")
	}
}

func TestPauseOwnershipTransfer(t *testing.T) {
	host := testMember("c1", "Alice", Bounds{0, 0, 800, 600})
	second := testMember("c2", "Bob", Bounds{0, 0, 800, 600})
	third := testMember("c3", "Eve", Bounds{0, 0, 800, 600})

	remaining := &mockClient{}
	clients := map[string]Broadcaster{
		"c1": &mockClient{},
		"c2": remaining,
		"c3": remaining,
	}
	s := newGameSession(testRoomWith(host, second, third).snapshot(), testSettings, 20, 20, clients)

	s.TogglePause("c1")
	left := s.removePlayer("c1")

	if left != 2 {
		t.Fatalf("players left = %d", left)
	}
	if s.pauserID != "c2" {
		t.Errorf("pause ownership should pass to the first remaining player, got %q", s.pauserID)
	}
	env, ok := remaining.findJSON(MsgPauserQuit)
	if !ok {
		t.Fatal("remaining players must be notified of the transfer")
	}
	notice := env.Data.(PauserQuitMsg)
	if notice.PauserID != "c2" || notice.Name != "Bob" {
		t.Errorf("notice = %+v", notice)
	}
}

func TestSpawnTick(t *testing.T) {
	s, _ := testSession(t, testMember("c1", "Alice", Bounds{0, 0, 800, 600}))
	s.spawnCh = 1.0 // certain spawn
	s.maxEn = 1

	s.spawnTick()
	if len(s.enemies) != 1 {
		t.Fatalf("expected 1 enemy, got %d", len(s.enemies))
	}
	e := s.enemies[0]
	if e.Pos.X < 0 || e.Pos.X > 780 {
		t.Errorf("spawn x = %v outside horizontal bounds", e.Pos.X)
	}
	if e.Pos.Y != -20 {
		t.Errorf("spawn y = %v, want just above the upper bound", e.Pos.Y)
	}

	// at the cap no further enemies spawn
	s.spawnTick()
	if len(s.enemies) != 1 {
		t.Errorf("enemy cap exceeded: %d", len(s.enemies))
	}
}

func TestManagerStartAndTeardown(t *testing.T) {
	gm := NewGameManager()
	room := testRoomWith(testMember("c1", "Alice", Bounds{0, 0, 800, 600}))
	clients := map[string]Broadcaster{"c1": &mockClient{}}

	sess := gm.Start(room.snapshot(), testSettings, 20, 20, clients)
	if gm.Get("12345") != sess || gm.SessionCount() != 1 {
		t.Fatal("session not registered")
	}

	// removing the last player removes the session itself
	gm.RemovePlayer("12345", "c1")
	if gm.Get("12345") != nil || gm.SessionCount() != 0 {
		t.Error("empty session must be torn down")
	}
}

func TestManagerRemovePlayerKeepsOthers(t *testing.T) {
	gm := NewGameManager()
	room := testRoomWith(
		testMember("c1", "Alice", Bounds{0, 0, 800, 600}),
		testMember("c2", "Bob", Bounds{0, 0, 800, 600}),
	)
	clients := map[string]Broadcaster{"c1": &mockClient{}, "c2": &mockClient{}}
	sess := gm.Start(room.snapshot(), testSettings, 20, 20, clients)

	gm.RemovePlayer("12345", "c1")
	if gm.Get("12345") != sess {
		t.Error("session with remaining players must survive")
	}
	if sess.PlayerCount() != 1 {
		t.Errorf("players = %d", sess.PlayerCount())
	}
	gm.Remove("12345")
}

func TestManagerRestart(t *testing.T) {
	gm := NewGameManager()
	room := testRoomWith(testMember("c1", "Alice", Bounds{0, 0, 800, 600}))
	mock := &mockClient{}
	clients := map[string]Broadcaster{"c1": mock}

	first := gm.Start(room.snapshot(), testSettings, 25, 35, clients)
	first.HandleMove("c1", 1, 2)

	second := gm.Restart("12345")
	if second == nil || second == first {
		t.Fatal("restart must replace the session")
	}
	if gm.Get("12345") != second || gm.SessionCount() != 1 {
		t.Error("replacement not registered")
	}

	snap := second.Snapshot()
	if snap.Settings != testSettings {
		t.Errorf("settings not reused: %+v", snap.Settings)
	}
	if snap.EnemyW != 25 || snap.EnemyH != 35 {
		t.Errorf("enemy dims not reused: %v x %v", snap.EnemyW, snap.EnemyH)
	}
	if len(snap.Players) != 1 || snap.Players[0].HP != testSettings.PlayerHP {
		t.Errorf("roster not reset: %+v", snap.Players)
	}
	if _, ok := mock.findJSON(MsgRestarted); !ok {
		t.Error("restart must be announced as its own event")
	}
	gm.Remove("12345")
}

func TestManagerRestartMissingSession(t *testing.T) {
	gm := NewGameManager()
	if gm.Restart("00000") != nil {
		t.Error("restarting a missing session must be a no-op")
	}
}
