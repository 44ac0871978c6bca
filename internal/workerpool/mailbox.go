package workerpool

import (
	"sync"

	"github.com/lus-lang/lus/internal/arena"
)

// Message is a serialized value owning its own standalone arena, so it
// can cross a goroutine boundary without touching the producer's
// allocator. Once enqueued, the producer no longer touches the arena;
// the consumer releases it after deserialization.
type Message struct {
	a    *arena.Standalone
	data []byte
}

func newMessage(v Value) (*Message, error) {
	encoded, err := Serialize(v)
	if err != nil {
		return nil, err
	}
	a := arena.NewStandalone(0)
	buf := a.Alloc(len(encoded))
	copy(buf, encoded)
	return &Message{a: a, data: buf}, nil
}

// Value deserializes the message's payload.
func (m *Message) Value() (Value, error) {
	return Deserialize(m.data)
}

// Release frees the message's arena. Safe to call once per message.
func (m *Message) Release() {
	m.a.Close()
}

// mailbox is a FIFO queue of messages guarded by its own mutex and
// condition variable, matching the original's per-direction
// MessageQueue plus inbox/outbox condition pair.
type mailbox struct {
	mu    sync.Mutex
	cond  *sync.Cond
	queue []*Message
}

func newMailbox() *mailbox {
	mb := &mailbox{}
	mb.cond = sync.NewCond(&mb.mu)
	return mb
}

func (mb *mailbox) push(msg *Message) {
	mb.mu.Lock()
	mb.queue = append(mb.queue, msg)
	mb.mu.Unlock()
	mb.cond.Signal()
}

// popBlocking blocks until a message is available, then removes and
// returns the oldest one, preserving producer order.
func (mb *mailbox) popBlocking() *Message {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	for len(mb.queue) == 0 {
		mb.cond.Wait()
	}
	msg := mb.queue[0]
	mb.queue = mb.queue[1:]
	return msg
}

// tryPop removes and returns the oldest message without blocking.
func (mb *mailbox) tryPop() (*Message, bool) {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	if len(mb.queue) == 0 {
		return nil, false
	}
	msg := mb.queue[0]
	mb.queue = mb.queue[1:]
	return msg, true
}

func (mb *mailbox) len() int {
	mb.mu.Lock()
	defer mb.mu.Unlock()
	return len(mb.queue)
}

// drain releases every remaining message's arena, used when a worker's
// refcount reaches zero.
func (mb *mailbox) drain() {
	mb.mu.Lock()
	remaining := mb.queue
	mb.queue = nil
	mb.mu.Unlock()
	for _, msg := range remaining {
		msg.Release()
	}
}
