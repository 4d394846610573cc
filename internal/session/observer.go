package session

import (
	"hash/fnv"
	"log/slog"
	"sync"
	"time"
)

// StatusEvent reports an applied state transition, or the removal of an
// instance when Removed is set.
type StatusEvent struct {
	InstanceID string    `json:"instanceId"`
	State      State     `json:"state"`
	Previous   State     `json:"previous"`
	Error      string    `json:"error,omitempty"`
	Removed    bool      `json:"removed,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Observer is the interface for status observers
type Observer interface {
	OnStatus(event StatusEvent)
}

// ObserverFunc is a function that implements the Observer interface
type ObserverFunc func(event StatusEvent)

func (f ObserverFunc) OnStatus(event StatusEvent) {
	f(event)
}

// InstanceObserver only forwards events of one instance.
type InstanceObserver struct {
	InstanceID string
	Observer   Observer
}

func (f InstanceObserver) OnStatus(event StatusEvent) {
	if event.InstanceID == f.InstanceID {
		f.Observer.OnStatus(event)
	}
}

// Dispatcher fans status events out to observers on a fixed worker pool.
// Events of the same instance always land on the same worker, so observers
// see each instance's transitions in order.
type Dispatcher struct {
	obsMu     sync.RWMutex
	observers map[int]Observer
	nextID    int

	// mu guards closed; senders hold it shared while enqueueing.
	mu     sync.RWMutex
	closed bool

	queues []chan StatusEvent
	wg     sync.WaitGroup
	logger *slog.Logger
}

func NewDispatcher(workers, queueSize int, logger *slog.Logger) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 256
	}
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dispatcher{
		observers: make(map[int]Observer),
		queues:    make([]chan StatusEvent, workers),
		logger:    logger.With("component", "dispatcher"),
	}
	for i := range d.queues {
		d.queues[i] = make(chan StatusEvent, queueSize)
		d.wg.Add(1)
		go d.worker(d.queues[i])
	}
	return d
}

// Register adds an observer and returns a func that removes it.
func (d *Dispatcher) Register(o Observer) (unregister func()) {
	d.obsMu.Lock()
	defer d.obsMu.Unlock()
	id := d.nextID
	d.nextID++
	d.observers[id] = o
	return func() {
		d.obsMu.Lock()
		defer d.obsMu.Unlock()
		delete(d.observers, id)
	}
}

// Dispatch queues event for delivery. Events dispatched after Close are
// dropped.
func (d *Dispatcher) Dispatch(event StatusEvent) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}
	h := fnv.New32a()
	h.Write([]byte(event.InstanceID))
	d.queues[h.Sum32()%uint32(len(d.queues))] <- event
}

func (d *Dispatcher) worker(queue <-chan StatusEvent) {
	defer d.wg.Done()
	for event := range queue {
		d.obsMu.RLock()
		observers := make([]Observer, 0, len(d.observers))
		for _, o := range d.observers {
			observers = append(observers, o)
		}
		d.obsMu.RUnlock()

		for _, o := range observers {
			d.notify(o, event)
		}
	}
}

func (d *Dispatcher) notify(o Observer, event StatusEvent) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("observer panicked", "instance", event.InstanceID, "panic", r)
		}
	}()
	o.OnStatus(event)
}

// Close stops accepting events and waits for queued ones to be delivered.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	for _, q := range d.queues {
		close(q)
	}
	d.mu.Unlock()
	d.wg.Wait()
}

// LogObserver writes every status event to logger.
func LogObserver(logger *slog.Logger) Observer {
	return ObserverFunc(func(e StatusEvent) {
		attrs := []any{"instance", e.InstanceID, "state", e.State.String(), "previous", e.Previous.String()}
		switch {
		case e.Removed:
			logger.Info("session removed", "instance", e.InstanceID)
		case e.Error != "":
			logger.Warn("session state changed", append(attrs, "error", e.Error)...)
		default:
			logger.Info("session state changed", attrs...)
		}
	})
}
