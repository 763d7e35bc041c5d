// mock_queue.go - In-memory queue sender for testing
package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/taxi-insights/backend/internal/queue"
)

// MockQueue implements queue.Sender and records every accepted message.
type MockQueue struct {
	messages []queue.Message
	mu       sync.Mutex

	// SendErr, when set, is returned by Send and nothing is recorded.
	SendErr error
	// OnSend runs before each Send; tests use it to observe ordering.
	OnSend func(queue.Message)
}

// NewMockQueue creates an empty mock queue.
func NewMockQueue() *MockQueue {
	return &MockQueue{}
}

func (m *MockQueue) Send(_ context.Context, msg queue.Message) (string, error) {
	if m.OnSend != nil {
		m.OnSend(msg)
	}
	if m.SendErr != nil {
		return "", m.SendErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, msg)
	return fmt.Sprintf("msg-%d-%s", len(m.messages), generateTestID()), nil
}

func (m *MockQueue) Backend() string { return "mock" }

var _ queue.Sender = (*MockQueue)(nil)

// Messages returns a copy of the accepted messages.
func (m *MockQueue) Messages() []queue.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]queue.Message(nil), m.messages...)
}

var (
	testIDCounter int
	testIDMutex   sync.Mutex
)

// generateTestID generates a simple test ID
func generateTestID() string {
	testIDMutex.Lock()
	defer testIDMutex.Unlock()
	testIDCounter++
	return fmt.Sprintf("test-id-%d", testIDCounter)
}
