package model

import (
	"strings"

	"github.com/ffbot/ffbot-core/nav"
)

// Team numbers follow the game's convention; zero is unassigned/neutral.
const (
	TeamNone   = 0
	TeamBlue   = 1
	TeamRed    = 2
	TeamYellow = 3
	TeamGreen  = 4
)

// Snapshot is what the game plugin's perception step sends every tick.
type Snapshot struct {
	Tick          uint64              `json:"tick"`
	ControlPoints []ControlPointInfo  `json:"controlPoints"`
	Entities      []TrackedEntityInfo `json:"entities"`
	Bots          []BotState          `json:"bots"`
}

type ControlPointInfo struct {
	ID       int      `json:"id"`
	Name     string   `json:"name"`
	Position nav.Vec3 `json:"position"`
	Owner    int      `json:"owner"`
	Locked   bool     `json:"locked"`
	// Critical marks points whose loss ends the round or opens the next stage.
	Critical        bool    `json:"critical"`
	CaptureRadius   float64 `json:"captureRadius"`
	CaptureProgress float64 `json:"captureProgress"`
	CappingTeam     int     `json:"cappingTeam"`
}

// Contested reports an in-progress capture by a team other than the owner.
func (cp ControlPointInfo) Contested() bool {
	return cp.CappingTeam != TeamNone && cp.CappingTeam != cp.Owner && cp.CaptureProgress > 0
}

type TrackedEntityInfo struct {
	ID           uint32   `json:"id"`
	Team         int      `json:"team"`
	ClassID      int      `json:"classId"`
	Position     nav.Vec3 `json:"position"`
	Health       int      `json:"health"`
	MaxHealth    int      `json:"maxHealth"`
	Alive        bool     `json:"alive"`
	Visible      bool     `json:"visible"`
	LastSeenTick uint64   `json:"lastSeenTick"`
}

// BotState is the bot's own body as the engine reports it.
type BotState struct {
	ID        uint32   `json:"id"`
	Name      string   `json:"name,omitempty"`
	Team      int      `json:"team"`
	ClassID   int      `json:"classId"`
	Position  nav.Vec3 `json:"position"`
	Health    int      `json:"health"`
	MaxHealth int      `json:"maxHealth"`
	Armor     int      `json:"armor"`
	Alive     bool     `json:"alive"`
}

// HealthFraction is health over max health, or 0 when max is unknown.
func (b BotState) HealthFraction() float64 {
	if b.MaxHealth <= 0 {
		return 0
	}
	return float64(b.Health) / float64(b.MaxHealth)
}

// ClassConfigInfo is the read-only per-class tuning loaded from game data.
type ClassConfigInfo struct {
	ID      int      `json:"id" yaml:"id"`
	Name    string   `json:"name" yaml:"name"`
	Health  int      `json:"health" yaml:"health"`
	Armor   int      `json:"armor" yaml:"armor"`
	Speed   float64  `json:"speed" yaml:"speed"`
	Weapons []string `json:"weapons,omitempty" yaml:"weapons,omitempty"`
}

func (c ClassConfigInfo) HasWeapon(name string) bool {
	for _, w := range c.Weapons {
		if strings.EqualFold(w, name) {
			return true
		}
	}
	return false
}

// Class ids as numbered by the game.
const (
	ClassScout    = 1
	ClassSniper   = 2
	ClassSoldier  = 3
	ClassDemoman  = 4
	ClassMedic    = 5
	ClassHWGuy    = 6
	ClassPyro     = 7
	ClassSpy      = 8
	ClassEngineer = 9
	ClassCivilian = 10
)

// DefaultClassConfigs is used when no class file is configured.
func DefaultClassConfigs() []ClassConfigInfo {
	return []ClassConfigInfo{
		{ID: ClassScout, Name: "scout", Health: 75, Armor: 50, Speed: 400, Weapons: []string{"crowbar", "shotgun", "nailgun"}},
		{ID: ClassSniper, Name: "sniper", Health: 90, Armor: 50, Speed: 300, Weapons: []string{"crowbar", "sniperrifle", "autorifle"}},
		{ID: ClassSoldier, Name: "soldier", Health: 100, Armor: 200, Speed: 240, Weapons: []string{"crowbar", "shotgun", "supershotgun", "rpg"}},
		{ID: ClassDemoman, Name: "demoman", Health: 90, Armor: 120, Speed: 280, Weapons: []string{"crowbar", "shotgun", "grenadelauncher", "pipelauncher"}},
		{ID: ClassMedic, Name: "medic", Health: 90, Armor: 100, Speed: 320, Weapons: []string{"medkit", "shotgun", "supershotgun", "supernailgun"}},
		{ID: ClassHWGuy, Name: "hwguy", Health: 100, Armor: 300, Speed: 230, Weapons: []string{"crowbar", "shotgun", "supershotgun", "assaultcannon"}},
		{ID: ClassPyro, Name: "pyro", Health: 100, Armor: 150, Speed: 300, Weapons: []string{"crowbar", "shotgun", "flamethrower", "incendiarycannon"}},
		{ID: ClassSpy, Name: "spy", Health: 90, Armor: 100, Speed: 300, Weapons: []string{"knife", "tranquilizer", "supershotgun", "nailgun"}},
		{ID: ClassEngineer, Name: "engineer", Health: 80, Armor: 50, Speed: 300, Weapons: []string{"spanner", "railgun", "supershotgun"}},
		{ID: ClassCivilian, Name: "civilian", Health: 50, Armor: 0, Speed: 240, Weapons: []string{"umbrella"}},
	}
}
