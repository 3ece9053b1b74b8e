package main

// Difficulty preset names
const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
	DifficultyCustom = "custom"
)

// Settings bundles the tunables a host picks before starting a game
type Settings struct {
	Difficulty   string `json:"difficulty" msgpack:"difficulty"`
	PlayerHP     int    `json:"playerHp" msgpack:"playerHp"`
	Ammo         int    `json:"ammo" msgpack:"ammo"`
	ShootDelayMs int    `json:"shootDelay" msgpack:"shootDelay"`
}

// DefaultSettings returns the preset bundle for the given difficulty.
// Unknown names fall back to medium.
func DefaultSettings(difficulty string) Settings {
	switch difficulty {
	case DifficultyEasy:
		return Settings{Difficulty: DifficultyEasy, PlayerHP: 5, Ammo: 100, ShootDelayMs: 300}
	case DifficultyHard:
		return Settings{Difficulty: DifficultyHard, PlayerHP: 1, Ammo: 30, ShootDelayMs: 700}
	default:
		return Settings{Difficulty: DifficultyMedium, PlayerHP: 3, Ammo: 50, ShootDelayMs: 500}
	}
}

// Normalize fills a client-provided settings bundle with sane values.
// Presets override the fields entirely; custom keeps the client's
// numbers clamped to workable ranges.
func (s Settings) Normalize() Settings {
	if s.Difficulty != DifficultyCustom {
		return DefaultSettings(s.Difficulty)
	}
	out := s
	if out.PlayerHP < 1 {
		out.PlayerHP = 1
	} else if out.PlayerHP > 99 {
		out.PlayerHP = 99
	}
	if out.Ammo < 1 {
		out.Ammo = 1
	} else if out.Ammo > 999 {
		out.Ammo = 999
	}
	if out.ShootDelayMs < 100 {
		out.ShootDelayMs = 100
	} else if out.ShootDelayMs > 5000 {
		out.ShootDelayMs = 5000
	}
	return out
}
