package engine

import (
	"sync"

	"github.com/zrcswap/zrcswap/pkg/types"
)

// eventBus fans settlement events out to subscribers. Delivery is
// best-effort: a subscriber that cannot keep up drops events rather than
// stalling the settlement path, mirroring how on-chain observers tail a log
// they can always re-read from the journal.
type eventBus struct {
	mu   sync.RWMutex
	subs []chan types.Event
}

func newEventBus() *eventBus {
	return &eventBus{}
}

// Subscribe returns a buffered channel of future events.
func (b *eventBus) Subscribe() <-chan types.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan types.Event, 256)
	b.subs = append(b.subs, ch)
	return ch
}

func (b *eventBus) publish(ev types.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}
