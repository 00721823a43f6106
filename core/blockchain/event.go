package blockchain

import (
	"fmt"
	"sync"
)

type BlockMinedEvent struct {
	Height       int
	Hash         string
	Transactions int
	Reward       Address
}

type TxEvent struct {
	TxID     string
	Sender   Sender
	Amount   int64
	Accepted bool
	Reason   string
}

type EventFeed[T any] struct {
	subs map[string]chan<- T
	mu   sync.Mutex
}

type EventBus struct {
	BlockFeed *EventFeed[BlockMinedEvent]
	TxFeed    *EventFeed[TxEvent]
}

func NewEventFeed[T any]() *EventFeed[T] {
	return &EventFeed[T]{
		subs: make(map[string]chan<- T),
	}
}

func (ef *EventFeed[T]) Subscribe(id string, ch chan<- T) error {
	ef.mu.Lock()
	defer ef.mu.Unlock()
	if _, exists := ef.subs[id]; exists {
		return fmt.Errorf("subscriber with the id %s already present", id)
	}
	ef.subs[id] = ch
	return nil
}

func (ef *EventFeed[T]) UnSubscribe(id string) {
	ef.mu.Lock()
	defer ef.mu.Unlock()
	delete(ef.subs, id)
}

// Send delivers event to every subscriber without blocking. Subscribers whose
// channel is full miss the event; the number of deliveries is returned.
func (ef *EventFeed[T]) Send(event T) int {
	ef.mu.Lock()
	defer ef.mu.Unlock()

	delivered := 0
	for _, ch := range ef.subs {
		select {
		case ch <- event:
			delivered++
		default:
		}
	}
	return delivered
}

func NewEventBus() *EventBus {
	return &EventBus{
		BlockFeed: NewEventFeed[BlockMinedEvent](),
		TxFeed:    NewEventFeed[TxEvent](),
	}
}
