// Package deviceevents adapts the teacher's multi-topic event broker
// (per-device/per-gateway/system topics) down to the single topic this
// engine needs: one device's stream of EngineEvent, each wrapping a
// response.Response as it comes out of device.Device.HandleEvent.
package deviceevents

import (
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/r3dpanda-labs/lorawan-device/response"
)

var eventCounter uint64

func nextID() string {
	n := atomic.AddUint64(&eventCounter, 1)
	return time.Now().Format("20060102150405") + "-" + strconv.FormatUint(n, 10)
}

// EngineEvent is one published point in the device's response stream.
type EngineEvent struct {
	ID       string             `json:"id"`
	Time     time.Time          `json:"time"`
	Response response.Response  `json:"response"`
}

// RingBuffer is a fixed-capacity history buffer, identical in shape to
// the teacher's events.RingBuffer.
type RingBuffer struct {
	items []EngineEvent
	head  int
	count int
	cap   int
	mu    sync.RWMutex
}

// NewRingBuffer constructs a buffer holding at most capacity events.
func NewRingBuffer(capacity int) *RingBuffer {
	return &RingBuffer{items: make([]EngineEvent, capacity), cap: capacity}
}

func (rb *RingBuffer) push(item EngineEvent) {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	idx := (rb.head + rb.count) % rb.cap
	rb.items[idx] = item
	if rb.count == rb.cap {
		rb.head = (rb.head + 1) % rb.cap
	} else {
		rb.count++
	}
}

// All returns every retained event, oldest first.
func (rb *RingBuffer) All() []EngineEvent {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	result := make([]EngineEvent, rb.count)
	for i := 0; i < rb.count; i++ {
		result[i] = rb.items[(rb.head+i)%rb.cap]
	}
	return result
}

type subscriber struct {
	ch chan EngineEvent
}

// Broker fans a single device's EngineEvent stream out to any number
// of subscribers (the harness's eventsocket clients), retaining a
// bounded history new subscribers replay on connect.
type Broker struct {
	history     *RingBuffer
	subscribers []*subscriber
	mu          sync.RWMutex
}

// NewBroker constructs a Broker retaining historyLimit past events.
func NewBroker(historyLimit int) *Broker {
	if historyLimit <= 0 {
		historyLimit = 1
	}
	return &Broker{history: NewRingBuffer(historyLimit)}
}

// Subscribe returns a channel fed with every future event plus the
// retained history, and an unsubscribe function to tear it down.
func (b *Broker) Subscribe() (ch <-chan EngineEvent, history []EngineEvent, unsubscribe func()) {
	sub := &subscriber{ch: make(chan EngineEvent, 256)}

	b.mu.Lock()
	b.subscribers = append(b.subscribers, sub)
	b.mu.Unlock()

	history = b.history.All()

	unsubscribe = func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, s := range b.subscribers {
			if s == sub {
				b.subscribers = append(b.subscribers[:i], b.subscribers[i+1:]...)
				close(sub.ch)
				break
			}
		}
	}

	return sub.ch, history, unsubscribe
}

// Publish records resp as a fresh EngineEvent and fans it out to every
// current subscriber, dropping it for a subscriber whose buffer is
// full rather than blocking the engine.
func (b *Broker) Publish(resp response.Response) {
	event := EngineEvent{ID: nextID(), Time: time.Now(), Response: resp}
	b.history.push(event)

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subscribers {
		select {
		case sub.ch <- event:
		default:
		}
	}
}
