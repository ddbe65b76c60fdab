package executor

import (
	"github.com/ffbot/ffbot-core/model"
	"github.com/ffbot/ffbot-core/task"
)

// CombatBehavior runs the class-specific part of attack and ability steps.
// ongoing is false once there is nothing left to do, which completes the step.
type CombatBehavior interface {
	Execute(st *task.SubTask, owner *model.BotState, kb *model.KnowledgeBase) (ongoing bool, intent Intent)
}

// CombatFunc adapts a function to CombatBehavior.
type CombatFunc func(st *task.SubTask, owner *model.BotState, kb *model.KnowledgeBase) (bool, Intent)

func (f CombatFunc) Execute(st *task.SubTask, owner *model.BotState, kb *model.KnowledgeBase) (bool, Intent) {
	return f(st, owner, kb)
}

// IdleCombat aims at the step's target and never fires. Entity steps end
// when the target is dead or gone; position steps run until their time box
// expires.
type IdleCombat struct{}

func (IdleCombat) Execute(st *task.SubTask, owner *model.BotState, kb *model.KnowledgeBase) (bool, Intent) {
	var intent Intent
	if st.Target.Valid() {
		if kb == nil {
			return false, intent
		}
		e, ok := kb.Entity(st.Target)
		if !ok || !e.Alive {
			return false, intent
		}
		intent.Look = vecPtr(e.Position)
		intent.Target = e.ID
		return true, intent
	}
	intent.Look = vecPtr(st.TargetPos)
	intent.AbilitySlot = st.AbilitySlot
	return true, intent
}
