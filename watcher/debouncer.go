package watcher

import (
	"sync"
	"time"
)

// DebouncedEvent is one coalesced file system event.
type DebouncedEvent struct {
	Path string
	Op   EventOp
}

// EventOp represents the type of file system operation.
type EventOp int

const (
	OpCreate EventOp = iota
	OpWrite
	OpRemove
	OpRename
)

func (op EventOp) String() string {
	switch op {
	case OpCreate:
		return "create"
	case OpWrite:
		return "write"
	case OpRemove:
		return "remove"
	case OpRename:
		return "rename"
	default:
		return "unknown"
	}
}

// Debouncer coalesces raw file system events and emits one batch per quiet
// period. Events for the same path collapse into one carrying the latest
// operation, so a catalog written in chunks surfaces as a single event.
// Batches preserve the order in which paths first appeared.
type Debouncer struct {
	interval time.Duration

	mu      sync.Mutex
	pending map[string]int // path -> position in order
	order   []DebouncedEvent
	timer   *time.Timer

	out chan []DebouncedEvent
}

// NewDebouncer creates a debouncer with the specified quiet interval.
func NewDebouncer(interval time.Duration) *Debouncer {
	return &Debouncer{
		interval: interval,
		pending:  make(map[string]int),
		out:      make(chan []DebouncedEvent, 16),
	}
}

// Output returns the channel that receives batched events.
func (d *Debouncer) Output() <-chan []DebouncedEvent {
	return d.out
}

// Add records an event and restarts the quiet period. A path already in the
// window keeps its position but takes the newer operation.
func (d *Debouncer) Add(path string, op EventOp) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if pos, seen := d.pending[path]; seen {
		d.order[pos].Op = op
	} else {
		d.pending[path] = len(d.order)
		d.order = append(d.order, DebouncedEvent{Path: path, Op: op})
	}

	if d.timer == nil {
		d.timer = time.AfterFunc(d.interval, d.emit)
	} else {
		d.timer.Reset(d.interval)
	}
}

// emit hands the accumulated batch to the output channel. The send happens
// outside the lock so a slow consumer cannot stall Add.
func (d *Debouncer) emit() {
	d.mu.Lock()
	batch := d.order
	d.order = nil
	d.pending = make(map[string]int)
	d.mu.Unlock()

	if len(batch) > 0 {
		d.out <- batch
	}
}
