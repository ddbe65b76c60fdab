// Package task models a bot's high-level objective and the ordered subtasks
// that carry it out, plus the outcome records written when either finishes.
package task

import (
	"fmt"
	"strings"
)

// HLTType is the kind of objective a bot is pursuing.
type HLTType uint8

const (
	HLTNone HLTType = iota
	HLTCapturePoint
	HLTDefendPoint
	HLTEscortPayload
	HLTStopPayload
	HLTCaptureFlag
	HLTRetrieveFlag
	HLTDefendFlag
	HLTAttackEnemy
	HLTSeekHealth
	HLTSeekAmmo
	HLTFallbackRegroup
)

var hltNames = [...]string{
	HLTNone:            "NONE",
	HLTCapturePoint:    "CAPTURE_POINT_FF",
	HLTDefendPoint:     "DEFEND_POINT_FF",
	HLTEscortPayload:   "ESCORT_PAYLOAD",
	HLTStopPayload:     "STOP_PAYLOAD",
	HLTCaptureFlag:     "CAPTURE_FLAG",
	HLTRetrieveFlag:    "RETRIEVE_FLAG",
	HLTDefendFlag:      "DEFEND_FLAG",
	HLTAttackEnemy:     "ATTACK_ENEMY",
	HLTSeekHealth:      "SEEK_HEALTH",
	HLTSeekAmmo:        "SEEK_AMMO",
	HLTFallbackRegroup: "FALLBACK_REGROUP",
}

func (t HLTType) String() string {
	if int(t) < len(hltNames) {
		return hltNames[t]
	}
	return fmt.Sprintf("HLT(%d)", uint8(t))
}

func (t HLTType) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *HLTType) UnmarshalText(b []byte) error {
	s := strings.ToUpper(strings.TrimSpace(string(b)))
	for i, n := range hltNames {
		if n == s || strings.TrimSuffix(n, "_FF") == s {
			*t = HLTType(i)
			return nil
		}
	}
	return fmt.Errorf("unknown task type %q", s)
}

// SubTaskType is one atomic step of a plan.
type SubTaskType uint8

const (
	SubTaskNone SubTaskType = iota
	SubTaskMoveToPosition
	SubTaskMoveToEntity
	SubTaskAttackTarget
	SubTaskDefendPosition
	SubTaskSecureArea
	SubTaskUseAbilityOnTarget
	SubTaskUseAbilityAtPosition
	SubTaskCaptureObjective
	SubTaskStandOnPoint
	SubTaskHoldPosition

	// Class-flavored steps.
	SubTaskPlaceSentry
	SubTaskDeployDispenser
	SubTaskHealAlly
	SubTaskSabotage
)

var subTaskNames = [...]string{
	SubTaskNone:                 "NONE",
	SubTaskMoveToPosition:       "MOVE_TO_POSITION",
	SubTaskMoveToEntity:         "MOVE_TO_ENTITY",
	SubTaskAttackTarget:         "ATTACK_TARGET",
	SubTaskDefendPosition:       "DEFEND_POSITION",
	SubTaskSecureArea:           "SECURE_AREA",
	SubTaskUseAbilityOnTarget:   "USE_ABILITY_ON_TARGET",
	SubTaskUseAbilityAtPosition: "USE_ABILITY_AT_POSITION",
	SubTaskCaptureObjective:     "CAPTURE_OBJECTIVE",
	SubTaskStandOnPoint:         "STAND_ON_POINT",
	SubTaskHoldPosition:         "HOLD_POSITION",
	SubTaskPlaceSentry:          "PLACE_SENTRY",
	SubTaskDeployDispenser:      "DEPLOY_DISPENSER",
	SubTaskHealAlly:             "HEAL_ALLY",
	SubTaskSabotage:             "SABOTAGE",
}

func (t SubTaskType) String() string {
	if int(t) < len(subTaskNames) {
		return subTaskNames[t]
	}
	return fmt.Sprintf("SUBTASK(%d)", uint8(t))
}

func (t SubTaskType) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *SubTaskType) UnmarshalText(b []byte) error {
	s := strings.ToUpper(strings.TrimSpace(string(b)))
	for i, n := range subTaskNames {
		if n == s {
			*t = SubTaskType(i)
			return nil
		}
	}
	return fmt.Errorf("unknown subtask type %q", s)
}

// Outcome is how a task or subtask ended.
type Outcome uint8

const (
	OutcomePending Outcome = iota
	OutcomeSuccess
	OutcomePartialSuccess
	OutcomeFailure
	OutcomeAborted
)

var outcomeNames = [...]string{
	OutcomePending:        "PENDING",
	OutcomeSuccess:        "SUCCESS",
	OutcomePartialSuccess: "PARTIAL_SUCCESS",
	OutcomeFailure:        "FAILURE",
	OutcomeAborted:        "ABORTED",
}

func (o Outcome) String() string {
	if int(o) < len(outcomeNames) {
		return outcomeNames[o]
	}
	return fmt.Sprintf("OUTCOME(%d)", uint8(o))
}

func (o Outcome) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

func (o *Outcome) UnmarshalText(b []byte) error {
	s := strings.ToUpper(strings.TrimSpace(string(b)))
	for i, n := range outcomeNames {
		if n == s {
			*o = Outcome(i)
			return nil
		}
	}
	return fmt.Errorf("unknown outcome %q", s)
}

// EntityRef is a weak reference to a game entity: only its stable id. Whether
// the entity still exists is answered by the knowledge base, never by the
// holder of the reference.
type EntityRef struct {
	ID uint32 `json:"id"`
}

func (r EntityRef) Valid() bool { return r.ID != 0 }
