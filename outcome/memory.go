package outcome

import (
	"context"
	"sync"

	"github.com/ffbot/ffbot-core/task"
)

// MemorySink keeps every log it is given. It is also a Store, so tests can
// hand it straight to a planner without a Router.
type MemorySink struct {
	mu   sync.RWMutex
	logs []task.TaskOutcomeLog
}

func NewMemorySink() *MemorySink {
	return &MemorySink{logs: make([]task.TaskOutcomeLog, 0)}
}

func (s *MemorySink) Write(l task.TaskOutcomeLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	l.SubTasks = append([]task.SubTaskOutcomeLog(nil), l.SubTasks...)
	s.logs = append(s.logs, l)
	return nil
}

func (s *MemorySink) StoreTaskLog(l task.TaskOutcomeLog) { _ = s.Write(l) }

func (s *MemorySink) Logs() []task.TaskOutcomeLog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	copied := make([]task.TaskOutcomeLog, len(s.logs))
	copy(copied, s.logs)
	return copied
}

func (s *MemorySink) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.logs)
}

func (s *MemorySink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = s.logs[:0]
}

func (s *MemorySink) Close(context.Context) error { return nil }
