package rfid

import (
	"sync"

	"github.com/Riboost-Studio/perfect-scale-station/internal/model"
)

// CardQueue is an unbounded FIFO of card ids shared by the input loop
// and whoever consumes scans. Pop never blocks.
type CardQueue struct {
	mu    sync.Mutex
	items []model.CardID
	ready chan struct{}
}

func NewCardQueue() *CardQueue {
	return &CardQueue{ready: make(chan struct{}, 1)}
}

// Push appends card and wakes a consumer waiting on Ready.
func (q *CardQueue) Push(card model.CardID) {
	q.mu.Lock()
	q.items = append(q.items, card)
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// TryPop removes the oldest card. The bool is false when the queue is
// empty.
func (q *CardQueue) TryPop() (model.CardID, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return "", false
	}
	card := q.items[0]
	q.items[0] = ""
	q.items = q.items[1:]
	return card, true
}

// Ready receives a value after one or more pushes. Consumers drain
// with TryPop until it reports empty, then wait on Ready again.
func (q *CardQueue) Ready() <-chan struct{} { return q.ready }

func (q *CardQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
