package audit

import (
	"context"
	"sync"
	"sync/atomic"
)

// Config mirrors the engine's audit section.
type Config struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// Stats is a point-in-time view of dispatcher counters.
type Stats struct {
	Delivered uint64
	Dropped   uint64
	Pending   int
}

// Dispatcher relays events to one Sink from a single goroutine, so sinks
// see events in emission order and need no locking of their own. A nil
// *Dispatcher discards everything.
type Dispatcher struct {
	sink     Sink
	drop     bool
	queue    chan Event
	stop     chan struct{}
	finished chan struct{}
	stopOnce sync.Once
	stopped  atomic.Bool

	delivered atomic.Uint64
	dropped   atomic.Uint64
}

// NewDispatcher returns nil when cfg is disabled.
func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	size := cfg.BufferSize
	if size < 1 {
		size = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}
	d := &Dispatcher{
		sink:     sink,
		drop:     cfg.DropIfFull,
		queue:    make(chan Event, size),
		stop:     make(chan struct{}),
		finished: make(chan struct{}),
	}
	go d.loop()
	return d
}

func (d *Dispatcher) loop() {
	defer close(d.finished)
	for {
		select {
		case ev := <-d.queue:
			d.forward(ev)
		case <-d.stop:
			for {
				select {
				case ev := <-d.queue:
					d.forward(ev)
				default:
					return
				}
			}
		}
	}
}

// forward hands ev to the sink. A panicking sink loses that event only.
func (d *Dispatcher) forward(ev Event) {
	defer func() {
		if recover() != nil {
			d.dropped.Add(1)
		}
	}()
	d.sink.Emit(context.Background(), ev)
	d.delivered.Add(1)
}

// Emit queues ev. In drop mode a full buffer drops the event at once;
// otherwise Emit waits for room until ctx ends or the dispatcher stops.
func (d *Dispatcher) Emit(ctx context.Context, ev Event) {
	if d == nil || d.stopped.Load() {
		return
	}
	if d.drop {
		d.offer(ev)
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	d.push(ctx, ev)
}

func (d *Dispatcher) offer(ev Event) {
	select {
	case d.queue <- ev:
	case <-d.stop:
	default:
		d.dropped.Add(1)
	}
}

func (d *Dispatcher) push(ctx context.Context, ev Event) {
	select {
	case d.queue <- ev:
	case <-d.stop:
	case <-ctx.Done():
		d.dropped.Add(1)
	}
}

// Close stops intake and waits until every queued event is delivered.
func (d *Dispatcher) Close() {
	_ = d.CloseContext(context.Background())
}

// CloseContext is Close with a bound on the drain. The dispatcher is stopped
// either way; a ctx error means some queued events may still be in flight.
func (d *Dispatcher) CloseContext(ctx context.Context) error {
	if d == nil {
		return nil
	}
	d.stopOnce.Do(func() {
		d.stopped.Store(true)
		close(d.stop)
	})
	select {
	case <-d.finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) Stats() Stats {
	if d == nil {
		return Stats{}
	}
	return Stats{
		Delivered: d.delivered.Load(),
		Dropped:   d.dropped.Load(),
		Pending:   len(d.queue),
	}
}

func (d *Dispatcher) Dropped() uint64 { return d.Stats().Dropped }

func (d *Dispatcher) Delivered() uint64 { return d.Stats().Delivered }
