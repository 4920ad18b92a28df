package engine

import (
	"strings"
	"sync"

	"github.com/act-mass/pendo/internal/protocol"
)

// eventBus fans turn events out to per-conversation subscribers. Publishing
// never blocks: a subscriber that falls behind loses events.
type eventBus struct {
	mu          sync.Mutex
	subscribers map[string]map[int]chan protocol.TurnEvent
	nextSubID   int
}

func newEventBus() *eventBus {
	return &eventBus{subscribers: make(map[string]map[int]chan protocol.TurnEvent)}
}

// Subscribe returns a channel of events for one conversation and a cancel
// function. Subscribing to an empty id yields a closed channel.
func (b *eventBus) Subscribe(conversationID string) (<-chan protocol.TurnEvent, func()) {
	conversationID = strings.TrimSpace(conversationID)
	if conversationID == "" {
		ch := make(chan protocol.TurnEvent)
		close(ch)
		return ch, func() {}
	}

	ch := make(chan protocol.TurnEvent, 64)
	b.mu.Lock()
	b.nextSubID++
	id := b.nextSubID
	if _, ok := b.subscribers[conversationID]; !ok {
		b.subscribers[conversationID] = make(map[int]chan protocol.TurnEvent)
	}
	b.subscribers[conversationID][id] = ch
	b.mu.Unlock()

	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.subscribers[conversationID]
		if subs == nil {
			return
		}
		if c, ok := subs[id]; ok {
			delete(subs, id)
			close(c)
		}
		if len(subs) == 0 {
			delete(b.subscribers, conversationID)
		}
	}
}

func (b *eventBus) Publish(ev protocol.TurnEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subscribers[ev.ConversationID] {
		select {
		case ch <- ev:
		default:
		}
	}
}
