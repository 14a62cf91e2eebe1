package peripherals

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

var (
	ErrQueueFull      = errors.New("message queue is full")
	ErrUnknownMessage = errors.New("unknown message")
)

// DefaultQueueSize bounds the messages waiting for the run's goroutine.
const DefaultQueueSize = 64

type HandlerFunc func(sender string, in Inbound)

type queued struct {
	sender string
	in     Inbound
}

// MessageReceiver decodes client messages on any goroutine and holds them
// until Step hands them to the handler on the run's goroutine.
type MessageReceiver struct {
	mu     sync.Mutex
	queue  []queued
	max    int
	handle HandlerFunc
}

func NewMessageReceiver(max int, handle HandlerFunc) *MessageReceiver {
	if max <= 0 {
		max = DefaultQueueSize
	}
	return &MessageReceiver{max: max, handle: handle}
}

// PushMessage decodes data and queues it. Malformed and unknown messages
// are rejected, as is anything beyond the queue bound.
func (m *MessageReceiver) PushMessage(sender string, data []byte) error {
	var in Inbound
	if err := json.Unmarshal(data, &in); err != nil {
		return fmt.Errorf("decode message: %w", err)
	}
	if !inboundKinds[in.Message] {
		return fmt.Errorf("%w %q", ErrUnknownMessage, in.Message)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.queue) >= m.max {
		return ErrQueueFull
	}
	m.queue = append(m.queue, queued{sender: sender, in: in})
	return nil
}

func (m *MessageReceiver) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

// Step hands every queued message to the handler, in arrival order, and
// returns how many there were.
func (m *MessageReceiver) Step() int {
	m.mu.Lock()
	batch := m.queue
	m.queue = nil
	m.mu.Unlock()

	for _, q := range batch {
		if m.handle != nil {
			m.handle(q.sender, q.in)
		}
	}
	return len(batch)
}
