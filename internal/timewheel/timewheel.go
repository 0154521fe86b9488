// Package timewheel delivers the harness's wall-clock Timeout events,
// narrowed from the teacher's simulator/scheduler.Scheduler (a
// multi-device recurring job wheel: N buckets advanced once per
// resolution tick, a worker pool draining a shared work queue) down to
// one device's single outstanding delay at a time. The bucket/tick
// shape survives; the teacher's automatic re-scheduling of a job after
// it runs does not, since an engine Timeout fires once per
// TimeoutRequest and is never recurring.
package timewheel

import (
	"log/slog"
	"sync"
	"time"
)

// job is one pending callback, identified so Cancel can find and
// remove it before its bucket fires.
type job struct {
	id      uint64
	execute func()
}

type bucket struct {
	mu   sync.Mutex
	jobs []*job
}

// Wheel is a single-device delay scheduler: Schedule places a callback
// ticks buckets ahead of the current one, and a ticking goroutine
// advances the wheel, handing due callbacks to a small worker pool.
type Wheel struct {
	wheel      []*bucket
	resolution time.Duration
	numBuckets int
	workQueue  chan *job
	stopCh     chan struct{}
	wg         sync.WaitGroup

	mu      sync.Mutex
	current int
	nextID  uint64
}

// New builds a Wheel ticking every resolution, wrapping after
// numBuckets ticks; workerCount goroutines drain work of size
// queueSize. The teacher's forwarder-shard and uplink-buffer knobs
// have no equivalent here since there is only one device's timeouts
// to deliver.
func New(resolution time.Duration, numBuckets, workerCount, queueSize int) *Wheel {
	w := &Wheel{
		wheel:      make([]*bucket, numBuckets),
		resolution: resolution,
		numBuckets: numBuckets,
		workQueue:  make(chan *job, queueSize),
		stopCh:     make(chan struct{}),
	}
	for i := range w.wheel {
		w.wheel[i] = &bucket{}
	}
	for i := 0; i < workerCount; i++ {
		w.wg.Add(1)
		go w.worker()
	}
	w.wg.Add(1)
	go w.tick()
	return w
}

// Schedule arms execute to run after delay elapses (rounded up to the
// nearest resolution tick), returning a cancel function. A delay
// shorter than one tick still takes at least one tick to fire; a delay
// of numBuckets ticks or more is clamped to numBuckets-1 ticks.
func (w *Wheel) Schedule(delay time.Duration, execute func()) (cancel func()) {
	ticks := int((delay + w.resolution - 1) / w.resolution)
	if ticks <= 0 {
		ticks = 1
	}
	if ticks >= w.numBuckets {
		ticks = w.numBuckets - 1
	}

	w.mu.Lock()
	id := w.nextID
	w.nextID++
	idx := (w.current + ticks) % w.numBuckets
	w.mu.Unlock()

	j := &job{id: id, execute: execute}
	b := w.wheel[idx]
	b.mu.Lock()
	b.jobs = append(b.jobs, j)
	b.mu.Unlock()

	return func() { w.remove(id) }
}

func (w *Wheel) remove(id uint64) {
	for _, b := range w.wheel {
		b.mu.Lock()
		for i, j := range b.jobs {
			if j.id == id {
				b.jobs = append(b.jobs[:i], b.jobs[i+1:]...)
				b.mu.Unlock()
				return
			}
		}
		b.mu.Unlock()
	}
}

// Stop halts the ticking and worker goroutines.
func (w *Wheel) Stop() {
	close(w.stopCh)
	w.wg.Wait()
}

func (w *Wheel) tick() {
	defer w.wg.Done()
	ticker := time.NewTicker(w.resolution)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.mu.Lock()
			w.current = (w.current + 1) % w.numBuckets
			idx := w.current
			w.mu.Unlock()

			b := w.wheel[idx]
			b.mu.Lock()
			due := b.jobs
			b.jobs = nil
			b.mu.Unlock()

			for _, j := range due {
				select {
				case w.workQueue <- j:
				default:
					slog.Warn("timewheel work queue full, dropping timeout", "component", "timewheel", "job_id", j.id)
				}
			}
		case <-w.stopCh:
			return
		}
	}
}

func (w *Wheel) worker() {
	defer w.wg.Done()
	for {
		select {
		case j := <-w.workQueue:
			j.execute()
		case <-w.stopCh:
			return
		}
	}
}
