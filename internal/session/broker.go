package session

import (
	"sync"

	"scribe/pkg/progress"
)

const subscriberBuffer = 64

// broker fans progress events out to websocket subscribers. The latest
// event is replayed to late subscribers.
type broker struct {
	mu     sync.Mutex
	next   int
	subs   map[int]chan progress.Event
	last   *progress.Event
	closed bool
}

func newBroker() *broker {
	return &broker{subs: make(map[int]chan progress.Event)}
}

func (b *broker) publish(e progress.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.last = &e
	for _, ch := range b.subs {
		send(ch, e)
	}
}

// send never blocks: a slow subscriber loses its oldest event instead.
func send(ch chan progress.Event, e progress.Event) {
	for {
		select {
		case ch <- e:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

func (b *broker) subscribe() (<-chan progress.Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	ch := make(chan progress.Event, subscriberBuffer)
	if b.last != nil {
		ch <- *b.last
	}
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if c, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(c)
			}
		})
	}
}

func (b *broker) reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.last = nil
}

func (b *broker) closeAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
