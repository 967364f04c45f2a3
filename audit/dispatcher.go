package audit

import (
	"context"
	"sync"
	"sync/atomic"
)

// Config controls dispatcher buffering behavior.
//
// With DropIfFull set, a full buffer sheds events instead of blocking the
// caller. RetainFailures exempts unsuccessful events (denials, check errors)
// from shedding: they wait for space like in blocking mode. BatchSize bounds
// how many queued events one EmitBatch call receives.
type Config struct {
	Enabled        bool
	BufferSize     int
	DropIfFull     bool
	RetainFailures bool
	BatchSize      int
}

// BatchSink is a Sink that can accept several events at once. The slice is
// reused after EmitBatch returns.
type BatchSink interface {
	Sink
	EmitBatch(ctx context.Context, events []Event)
}

// Dispatcher forwards audit events to a sink from one background goroutine.
type Dispatcher struct {
	cfg   Config
	sink  Sink
	batch BatchSink
	queue chan Event
	stop  chan struct{}
	wg    sync.WaitGroup

	closed   atomic.Bool
	stopOnce sync.Once

	shed       atomic.Uint64
	shedMu     sync.Mutex
	shedByType map[string]uint64
}

// NewDispatcher starts a dispatcher goroutine. It returns nil when cfg is not
// enabled; a nil *Dispatcher ignores every call.
func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &Dispatcher{
		cfg:        cfg,
		sink:       sink,
		queue:      make(chan Event, cfg.BufferSize),
		stop:       make(chan struct{}),
		shedByType: make(map[string]uint64),
	}
	if bs, ok := sink.(BatchSink); ok && cfg.BatchSize > 1 {
		d.batch = bs
	}

	d.wg.Add(1)
	go d.loop()
	return d
}

func (d *Dispatcher) loop() {
	defer d.wg.Done()

	pending := make([]Event, 0, d.cfg.BatchSize)
	for {
		select {
		case event := <-d.queue:
			pending = d.fill(append(pending[:0], event))
			d.deliver(pending)
		case <-d.stop:
			for {
				pending = d.fill(pending[:0])
				if len(pending) == 0 {
					return
				}
				d.deliver(pending)
			}
		}
	}
}

// fill tops pending up from the queue without waiting.
func (d *Dispatcher) fill(pending []Event) []Event {
	for len(pending) < d.cfg.BatchSize {
		select {
		case event := <-d.queue:
			pending = append(pending, event)
		default:
			return pending
		}
	}
	return pending
}

func (d *Dispatcher) deliver(events []Event) {
	ctx := context.Background()
	if d.batch != nil {
		d.batch.EmitBatch(ctx, events)
		return
	}
	for _, event := range events {
		d.sink.Emit(ctx, event)
	}
}

// Emit queues event. It never blocks for a sheddable event when DropIfFull is
// set; otherwise it waits for buffer space, ctx cancellation, or Close.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil || d.closed.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if d.sheddable(event) {
		select {
		case d.queue <- event:
		case <-d.stop:
		default:
			d.recordShed(event.EventType)
		}
		return
	}

	select {
	case d.queue <- event:
	case <-ctx.Done():
	case <-d.stop:
	}
}

func (d *Dispatcher) sheddable(event Event) bool {
	if !d.cfg.DropIfFull {
		return false
	}
	return event.Success || !d.cfg.RetainFailures
}

func (d *Dispatcher) recordShed(eventType string) {
	d.shed.Add(1)
	d.shedMu.Lock()
	d.shedByType[eventType]++
	d.shedMu.Unlock()
}

// Close stops accepting events and drains the buffer into the sink.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.stopOnce.Do(func() {
		d.closed.Store(true)
		close(d.stop)
		d.wg.Wait()
	})
}

// Dropped returns the total number of shed events.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.shed.Load()
}

// DroppedByType returns shed counts keyed by event type.
func (d *Dispatcher) DroppedByType() map[string]uint64 {
	if d == nil {
		return map[string]uint64{}
	}
	d.shedMu.Lock()
	defer d.shedMu.Unlock()
	out := make(map[string]uint64, len(d.shedByType))
	for k, v := range d.shedByType {
		out[k] = v
	}
	return out
}
