package mocks

import (
	"context"
	"sync"

	"github.com/V4T54L/tabletop/internal/domain"
)

// MockAuditBuffer is a mock implementation of domain.AuditBuffer for testing.
type MockAuditBuffer struct {
	mu              sync.Mutex
	BufferedEvents  []domain.AuditEvent
	AckedMessageIDs []string
	DLQEvents       []domain.AuditEvent
	ReadBatchResult []domain.AuditEvent
	BufferErr       error
	ReadErr         error
	AckErr          error
	DLQErr          error
}

func (m *MockAuditBuffer) BufferEvent(ctx context.Context, event domain.AuditEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.BufferErr != nil {
		return m.BufferErr
	}
	m.BufferedEvents = append(m.BufferedEvents, event)
	return nil
}

func (m *MockAuditBuffer) ReadBatch(ctx context.Context, group, consumer string, count int) ([]domain.AuditEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ReadErr != nil {
		return nil, m.ReadErr
	}
	return m.ReadBatchResult, nil
}

func (m *MockAuditBuffer) Acknowledge(ctx context.Context, group string, messageIDs ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.AckErr != nil {
		return m.AckErr
	}
	m.AckedMessageIDs = append(m.AckedMessageIDs, messageIDs...)
	return nil
}

func (m *MockAuditBuffer) MoveToDLQ(ctx context.Context, events []domain.AuditEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DLQErr != nil {
		return m.DLQErr
	}
	m.DLQEvents = append(m.DLQEvents, events...)
	return nil
}

// Events returns a snapshot of the buffered events.
func (m *MockAuditBuffer) Events() []domain.AuditEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.AuditEvent, len(m.BufferedEvents))
	copy(out, m.BufferedEvents)
	return out
}

// MockAuditSink is a mock implementation of domain.AuditSink for testing.
type MockAuditSink struct {
	mu            sync.Mutex
	WrittenEvents []domain.AuditEvent
	WriteErr      error
	Calls         int
}

func (m *MockAuditSink) WriteBatch(ctx context.Context, events []domain.AuditEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	if m.WriteErr != nil {
		return m.WriteErr
	}
	m.WrittenEvents = append(m.WrittenEvents, events...)
	return nil
}

// MockAuditStreamAdmin is a mock implementation of domain.AuditStreamAdmin.
type MockAuditStreamAdmin struct {
	StatsResult *domain.AuditStreamStats
	Trimmed     int64
	Err         error
	LastMaxLen  int64
}

func (m *MockAuditStreamAdmin) Stats(ctx context.Context, group string) (*domain.AuditStreamStats, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.StatsResult, nil
}

func (m *MockAuditStreamAdmin) Trim(ctx context.Context, maxLen int64) (int64, error) {
	m.LastMaxLen = maxLen
	if m.Err != nil {
		return 0, m.Err
	}
	return m.Trimmed, nil
}
