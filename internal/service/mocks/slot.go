package mocks

import (
	"context"
	"sync"

	"github.com/SergeiKhy/shortlink/internal/repository"
)

// MockSlot implements repository.Slot in memory for testing.
// LoadErr and SaveErr inject storage faults.
type MockSlot struct {
	mu      sync.RWMutex
	data    []byte
	written bool
	saves   int

	LoadErr error
	SaveErr error
}

func NewMockSlot() *MockSlot {
	return &MockSlot{}
}

// NewMockSlotWith returns a slot pre-filled with raw content.
func NewMockSlotWith(data string) *MockSlot {
	return &MockSlot{data: []byte(data), written: true}
}

func (m *MockSlot) Load(ctx context.Context) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.LoadErr != nil {
		return nil, m.LoadErr
	}
	if !m.written {
		return nil, repository.ErrSlotEmpty
	}
	out := make([]byte, len(m.data))
	copy(out, m.data)
	return out, nil
}

func (m *MockSlot) Save(ctx context.Context, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.data = append([]byte(nil), data...)
	m.written = true
	m.saves++
	return nil
}

func (m *MockSlot) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = nil
	m.written = false
	return nil
}

func (m *MockSlot) Name() string {
	return "mock"
}

// Contents returns the last successfully saved payload.
func (m *MockSlot) Contents() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return string(m.data)
}

// Saves returns how many writes succeeded.
func (m *MockSlot) Saves() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saves
}

func (m *MockSlot) SetSaveErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SaveErr = err
}
