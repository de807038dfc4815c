package wal

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/V4T54L/tabletop/internal/domain"
)

func setupTestWAL(t *testing.T, maxSegmentSize, maxTotalSize int64) *WALRepository {
	t.Helper()
	wal, err := NewWALRepository(t.TempDir(), maxSegmentSize, maxTotalSize, zap.NewNop())
	if err != nil {
		t.Fatalf("failed to create WALRepository: %v", err)
	}
	t.Cleanup(func() { wal.Close() })
	return wal
}

func newEvent(action string) domain.AuditEvent {
	return domain.AuditEvent{ID: uuid.NewString(), APIKey: "acme_1234", Action: action}
}

func TestWAL_WriteAndReplay(t *testing.T) {
	wal := setupTestWAL(t, 1024, 10*1024)

	events := []domain.AuditEvent{
		newEvent(domain.ActionMenuCreated),
		newEvent(domain.ActionMenuUpdated),
		newEvent(domain.ActionMenuDeleted),
	}
	for _, event := range events {
		if err := wal.Write(context.Background(), event); err != nil {
			t.Fatalf("failed to write event: %v", err)
		}
	}
	wal.Close()

	// Re-open the WAL to simulate a restart
	reopened, err := NewWALRepository(wal.dir, 1024, 10*1024, zap.NewNop())
	if err != nil {
		t.Fatalf("failed to re-open WAL: %v", err)
	}
	defer reopened.Close()
	if reopened.totalSize == 0 {
		t.Error("expected existing segments to count towards the total size")
	}

	var replayed []domain.AuditEvent
	if err := reopened.Replay(context.Background(), func(event domain.AuditEvent) error {
		replayed = append(replayed, event)
		return nil
	}); err != nil {
		t.Fatalf("failed to replay events: %v", err)
	}

	if len(replayed) != len(events) {
		t.Fatalf("expected %d replayed events, got %d", len(events), len(replayed))
	}
	for i, event := range events {
		if replayed[i].ID != event.ID || replayed[i].Action != event.Action {
			t.Errorf("replayed event mismatch at index %d: got %+v, want %+v", i, replayed[i], event)
		}
	}
}

func TestWAL_ReplayStopsOnHandlerError(t *testing.T) {
	wal := setupTestWAL(t, 1024, 10*1024)
	for i := 0; i < 3; i++ {
		if err := wal.Write(context.Background(), newEvent(domain.ActionUserCreated)); err != nil {
			t.Fatalf("failed to write event: %v", err)
		}
	}

	calls := 0
	err := wal.Replay(context.Background(), func(domain.AuditEvent) error {
		calls++
		return errors.New("redis down")
	})
	if err == nil {
		t.Fatal("expected replay to fail")
	}
	if calls != 1 {
		t.Errorf("expected replay to stop after the first failure, got %d calls", calls)
	}
}

func TestWAL_SegmentRotation(t *testing.T) {
	// Set a very small segment size to force rotation
	wal := setupTestWAL(t, 100, 4096)

	event := newEvent("a.long.enough.action.name.to.cause.rotation")
	eventBytes, _ := json.Marshal(event)

	numWrites := (100 / len(eventBytes)) + 2
	for i := 0; i < numWrites; i++ {
		if err := wal.Write(context.Background(), event); err != nil {
			t.Fatalf("failed to write event: %v", err)
		}
	}

	segments, err := wal.segments()
	if err != nil {
		t.Fatalf("failed to get segments: %v", err)
	}
	if len(segments) < 2 {
		t.Errorf("expected at least 2 segments, got %d", len(segments))
	}
}

func TestWAL_Truncate(t *testing.T) {
	wal := setupTestWAL(t, 1024, 1024)

	if err := wal.Write(context.Background(), newEvent(domain.ActionSettingsUpdated)); err != nil {
		t.Fatalf("failed to write event: %v", err)
	}
	if err := wal.Truncate(context.Background()); err != nil {
		t.Fatalf("failed to truncate WAL: %v", err)
	}

	segments, _ := wal.segments()
	if len(segments) != 1 { // Truncate starts a new empty segment
		t.Fatalf("expected 1 segment after truncate, got %d", len(segments))
	}
	info, _ := os.Stat(segments[0])
	if info.Size() != 0 {
		t.Errorf("expected new segment to be empty, size is %d", info.Size())
	}
	if wal.totalSize != 0 {
		t.Errorf("expected total size to reset, got %d", wal.totalSize)
	}
}

func TestWAL_MaxTotalSize(t *testing.T) {
	wal := setupTestWAL(t, 100, 150)

	var err error
	for i := 0; i < 5; i++ {
		if err = wal.Write(context.Background(), newEvent(domain.ActionUserUpdated)); err != nil {
			break
		}
	}
	if err == nil {
		t.Fatal("expected an error when writing beyond max total size, but got nil")
	}
}
