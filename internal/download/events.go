package download

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/ytget/ytdlp-mobile/internal/model"
)

// eventDispatcher queues task events and delivers them to the callback from
// a single goroutine. Publishing never blocks, so a slow host cannot stall a
// download. Progress events are rate limited per task; state events and
// forced progress events always go through.
type eventDispatcher struct {
	mu       sync.Mutex
	queue    []model.Event
	closed   bool
	wake     chan struct{}
	done     chan struct{}
	interval time.Duration
	limiters map[string]*rate.Limiter

	sinkMu sync.RWMutex
	sink   func(model.Event)
}

func newEventDispatcher(interval time.Duration) *eventDispatcher {
	d := &eventDispatcher{
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
		interval: interval,
		limiters: make(map[string]*rate.Limiter),
	}
	go d.loop()
	return d
}

func (d *eventDispatcher) setSink(sink func(model.Event)) {
	d.sinkMu.Lock()
	d.sink = sink
	d.sinkMu.Unlock()
}

// publish queues an event unconditionally
func (d *eventDispatcher) publish(ev model.Event) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.queue = append(d.queue, ev)
	d.mu.Unlock()
	d.signal()
}

// publishProgress queues a progress event unless the task's limiter rejects it
func (d *eventDispatcher) publishProgress(ev model.Event, force bool) {
	if !force && d.interval > 0 && !d.limiter(ev.TaskID).Allow() {
		return
	}
	d.publish(ev)
}

// forget drops the limiter of a finished task
func (d *eventDispatcher) forget(taskID string) {
	d.mu.Lock()
	delete(d.limiters, taskID)
	d.mu.Unlock()
}

func (d *eventDispatcher) limiter(taskID string) *rate.Limiter {
	d.mu.Lock()
	defer d.mu.Unlock()
	l, ok := d.limiters[taskID]
	if !ok {
		l = rate.NewLimiter(rate.Every(d.interval), 1)
		d.limiters[taskID] = l
	}
	return l
}

func (d *eventDispatcher) signal() {
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

func (d *eventDispatcher) loop() {
	defer close(d.done)
	for {
		d.mu.Lock()
		for len(d.queue) == 0 && !d.closed {
			d.mu.Unlock()
			<-d.wake
			d.mu.Lock()
		}
		batch := d.queue
		d.queue = nil
		closed := d.closed
		d.mu.Unlock()

		for _, ev := range batch {
			d.deliver(ev)
		}
		if closed && len(batch) == 0 {
			return
		}
	}
}

func (d *eventDispatcher) deliver(ev model.Event) {
	d.sinkMu.RLock()
	sink := d.sink
	d.sinkMu.RUnlock()
	if sink != nil {
		sink(ev)
	}
}

// close stops accepting events and waits until the queue is drained
func (d *eventDispatcher) close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		<-d.done
		return
	}
	d.closed = true
	d.mu.Unlock()
	d.signal()
	<-d.done
}
