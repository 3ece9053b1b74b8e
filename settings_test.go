package main

import "testing"

func TestDefaultSettings(t *testing.T) {
	tests := []struct {
		difficulty string
		hp, ammo   int
		delay      int
	}{
		{DifficultyEasy, 5, 100, 300},
		{DifficultyMedium, 3, 50, 500},
		{DifficultyHard, 1, 30, 700},
		{"bogus", 3, 50, 500}, // unknown falls back to medium
	}
	for _, tc := range tests {
		s := DefaultSettings(tc.difficulty)
		if s.PlayerHP != tc.hp || s.Ammo != tc.ammo || s.ShootDelayMs != tc.delay {
			t.Errorf("%s: got %+v", tc.difficulty, s)
		}
	}
}

func TestNormalizePresetIgnoresClientNumbers(t *testing.T) {
	s := Settings{Difficulty: DifficultyEasy, PlayerHP: 999, Ammo: -5}.Normalize()
	if s != DefaultSettings(DifficultyEasy) {
		t.Errorf("preset must override client fields, got %+v", s)
	}
}

func TestNormalizeCustomClamps(t *testing.T) {
	s := Settings{Difficulty: DifficultyCustom, PlayerHP: 0, Ammo: 5000, ShootDelayMs: 1}.Normalize()
	if s.PlayerHP != 1 {
		t.Errorf("PlayerHP = %d", s.PlayerHP)
	}
	if s.Ammo != 999 {
		t.Errorf("Ammo = %d", s.Ammo)
	}
	if s.ShootDelayMs != 100 {
		t.Errorf("ShootDelayMs = %d", s.ShootDelayMs)
	}

	kept := Settings{Difficulty: DifficultyCustom, PlayerHP: 7, Ammo: 42, ShootDelayMs: 350}.Normalize()
	if kept.PlayerHP != 7 || kept.Ammo != 42 || kept.ShootDelayMs != 350 {
		t.Errorf("in-range custom values must pass through, got %+v", kept)
	}
}
