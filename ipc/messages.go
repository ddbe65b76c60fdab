package ipc

import (
	"github.com/ffbot/ffbot-core/executor"
	"github.com/ffbot/ffbot-core/model"
	"github.com/ffbot/ffbot-core/nav"
)

// These constants must stay in sync with the plugin's message table.
const (
	TypeHello     = "hello"
	TypeAck       = "ack"
	TypeSnapshot  = "snapshot"
	TypeIntents   = "intents"
	TypeBotKilled = "bot_killed"
)

// HelloMessage opens a session. The nav mesh and class table are optional;
// without a mesh the sidecar falls back to the configured mesh directory.
type HelloMessage struct {
	Map     string                  `json:"map"`
	Team    int                     `json:"team"`
	NavMesh *nav.MeshFile           `json:"navMesh,omitempty"`
	Classes []model.ClassConfigInfo `json:"classes,omitempty"`
	Bots    []model.BotState        `json:"bots"`
}

type AckMessage struct {
	Status  string `json:"status"`
	Session string `json:"session,omitempty"`
	Areas   int    `json:"areas,omitempty"`
	Bots    int    `json:"bots,omitempty"`
	Error   string `json:"error,omitempty"`
}

// SnapshotMessage is the per-tick perception frame.
type SnapshotMessage = model.Snapshot

// IntentsMessage answers a snapshot with one intent per bot, ordered by bot id.
type IntentsMessage struct {
	Tick    uint64            `json:"tick"`
	Intents []executor.Intent `json:"intents"`
}

type BotKilledMessage struct {
	BotID    uint32 `json:"botId"`
	KillerID uint32 `json:"killerId,omitempty"`
	Tick     uint64 `json:"tick"`
}
