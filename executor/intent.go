package executor

import (
	"github.com/ffbot/ffbot-core/nav"
)

// Intent is what a bot wants to do this tick. The game plugin turns it into
// button presses and view angles.
type Intent struct {
	BotID       uint32    `json:"botId"`
	Move        *nav.Vec3 `json:"move,omitempty"`
	Look        *nav.Vec3 `json:"look,omitempty"`
	Target      uint32    `json:"target,omitempty"`
	Fire        bool      `json:"fire,omitempty"`
	AbilitySlot int       `json:"abilitySlot,omitempty"`
	Crouch      bool      `json:"crouch,omitempty"`
	Jump        bool      `json:"jump,omitempty"`
	Task        string    `json:"task,omitempty"`
	SubTask     string    `json:"subTask,omitempty"`
}

// Idle reports whether the intent asks for nothing at all.
func (i Intent) Idle() bool {
	return i.Move == nil && i.Look == nil && i.Target == 0 && !i.Fire && i.AbilitySlot == 0 && !i.Crouch && !i.Jump
}

func vecPtr(v nav.Vec3) *nav.Vec3 { return &v }
