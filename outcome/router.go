package outcome

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ffbot/ffbot-core/task"
)

const (
	defaultBufferSize   = 256
	defaultDropInterval = 5 * time.Second
)

// Router is a Store that queues logs and fans them out to its sinks. A full
// queue drops the log and counts it; nothing is retried.
type Router struct {
	queue  chan task.TaskOutcomeLog
	sinks  []*sinkWorker
	ctx    context.Context
	cancel context.CancelFunc
	closed atomic.Bool
	wg     sync.WaitGroup

	dropInterval time.Duration
	published    atomic.Uint64
	dropped      atomic.Uint64
	lastDropLog  atomic.Int64
}

type RouterStats struct {
	Published uint64
	Dropped   uint64
}

// NewRouter starts the dispatch goroutine and one worker per sink.
// bufferSize <= 0 selects the default.
func NewRouter(bufferSize int, namedSinks []NamedSink) *Router {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	ctx, cancel := context.WithCancel(context.Background())
	r := &Router{
		queue:        make(chan task.TaskOutcomeLog, bufferSize),
		ctx:          ctx,
		cancel:       cancel,
		dropInterval: defaultDropInterval,
	}
	for _, named := range namedSinks {
		if named.Sink == nil {
			continue
		}
		r.sinks = append(r.sinks, &sinkWorker{
			name: named.Name,
			sink: named.Sink,
			logs: make(chan task.TaskOutcomeLog, bufferSize),
			drop: r.handleDrop,
		})
	}
	r.start()
	return r
}

func (r *Router) start() {
	r.wg.Add(1)
	go func() {
		defer func() {
			for _, w := range r.sinks {
				close(w.logs)
			}
			r.wg.Done()
		}()
		for {
			select {
			case <-r.ctx.Done():
				r.drain()
				return
			case l := <-r.queue:
				r.forward(l)
			}
		}
	}()

	for _, w := range r.sinks {
		r.wg.Add(1)
		go func(w *sinkWorker) {
			defer r.wg.Done()
			w.run()
		}(w)
	}
}

func (r *Router) drain() {
	for {
		select {
		case l := <-r.queue:
			r.forward(l)
		default:
			return
		}
	}
}

func (r *Router) forward(l task.TaskOutcomeLog) {
	for _, w := range r.sinks {
		w.enqueue(l)
	}
}

// StoreTaskLog implements Store. It never blocks.
func (r *Router) StoreTaskLog(l task.TaskOutcomeLog) {
	if r.closed.Load() {
		return
	}
	select {
	case r.queue <- l:
		r.published.Add(1)
	default:
		r.handleDrop("router", l)
	}
}

func (r *Router) handleDrop(where string, l task.TaskOutcomeLog) {
	r.dropped.Add(1)
	now := time.Now().UnixNano()
	next := r.lastDropLog.Load()
	if next == 0 || now >= next {
		if r.lastDropLog.CompareAndSwap(next, now+r.dropInterval.Nanoseconds()) {
			slog.Warn("task log dropped", "at", where, "bot", l.BotID, "task", l.Type, "dropped", r.dropped.Load())
		}
	}
}

// Close stops accepting logs, flushes what is queued and closes every sink.
func (r *Router) Close(ctx context.Context) error {
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}
	r.cancel()
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	var firstErr error
	for _, w := range r.sinks {
		if err := w.sink.Close(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (r *Router) Stats() RouterStats {
	return RouterStats{
		Published: r.published.Load(),
		Dropped:   r.dropped.Load(),
	}
}

// Sink returns the sink registered under name, or nil.
func (r *Router) Sink(name string) Sink {
	for _, w := range r.sinks {
		if w.name == name {
			return w.sink
		}
	}
	return nil
}

type sinkWorker struct {
	name string
	sink Sink
	logs chan task.TaskOutcomeLog
	drop func(where string, l task.TaskOutcomeLog)
}

func (w *sinkWorker) enqueue(l task.TaskOutcomeLog) {
	l.SubTasks = append([]task.SubTaskOutcomeLog(nil), l.SubTasks...)
	select {
	case w.logs <- l:
	default:
		w.drop(w.name, l)
	}
}

func (w *sinkWorker) run() {
	for l := range w.logs {
		if err := w.sink.Write(l); err != nil {
			slog.Error("task log sink failed", "sink", w.name, "id", l.ID, "error", err)
		}
	}
}
