// Package outcome carries finalized task logs out of the planners. Planners
// hand logs to a Store; the Router fans them out to sinks on its own
// goroutines so a slow disk or dashboard never stalls a game tick.
package outcome

import (
	"context"

	"github.com/ffbot/ffbot-core/task"
)

// Store receives finalized task logs. Implementations must not block.
type Store interface {
	StoreTaskLog(log task.TaskOutcomeLog)
}

// StoreFunc adapts a function to Store.
type StoreFunc func(log task.TaskOutcomeLog)

func (f StoreFunc) StoreTaskLog(log task.TaskOutcomeLog) {
	if f == nil {
		return
	}
	f(log)
}

type nopStore struct{}

func (nopStore) StoreTaskLog(task.TaskOutcomeLog) {}

// NopStore discards every log.
func NopStore() Store { return nopStore{} }

// Sink is a destination the Router writes to.
type Sink interface {
	Write(log task.TaskOutcomeLog) error
	Close(context.Context) error
}

type NamedSink struct {
	Name string
	Sink Sink
}
