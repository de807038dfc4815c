package wal

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/V4T54L/tabletop/internal/domain"
)

const (
	segmentPrefix  = "audit-"
	segmentSuffix  = ".wal"
	filePerm       = 0644
	maxRecordBytes = 1 << 20
)

// WALRepository is a segmented, append-only file log of audit events.
type WALRepository struct {
	dir            string
	maxSegmentSize int64
	maxTotalSize   int64
	logger         *zap.Logger

	mu             sync.Mutex
	currentSegment *os.File
	currentSize    int64
	totalSize      int64
}

// NewWALRepository opens (or creates) the WAL in dir.
func NewWALRepository(dir string, maxSegmentSize, maxTotalSize int64, logger *zap.Logger) (*WALRepository, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create WAL directory %s: %w", dir, err)
	}

	w := &WALRepository{
		dir:            dir,
		maxSegmentSize: maxSegmentSize,
		maxTotalSize:   maxTotalSize,
		logger:         logger.With(zap.String("component", "wal")),
	}

	total, err := w.diskUsage()
	if err != nil {
		return nil, err
	}
	w.totalSize = total

	if err := w.openLatestSegment(); err != nil {
		return nil, err
	}
	return w, nil
}

// Write appends an event to the current segment.
func (w *WALRepository) Write(ctx context.Context, event domain.AuditEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal audit event for WAL: %w", err)
	}
	data = append(data, '\n')

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.totalSize+int64(len(data)) > w.maxTotalSize {
		return fmt.Errorf("WAL max total size exceeded (%d > %d)", w.totalSize+int64(len(data)), w.maxTotalSize)
	}
	if w.currentSegment == nil {
		if err := w.rotate(); err != nil {
			return err
		}
	}

	n, err := w.currentSegment.Write(data)
	w.currentSize += int64(n)
	w.totalSize += int64(n)
	if err != nil {
		return fmt.Errorf("failed to write to WAL segment: %w", err)
	}

	if w.currentSize >= w.maxSegmentSize {
		if err := w.rotate(); err != nil {
			w.logger.Error("failed to rotate WAL segment", zap.Error(err))
		}
	}
	return nil
}

// Replay feeds every stored event, oldest first, to handler. It stops at the
// first handler error so nothing is lost before Truncate.
func (w *WALRepository) Replay(ctx context.Context, handler func(event domain.AuditEvent) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.closeSegment()

	segments, err := w.segments()
	if err != nil {
		return err
	}
	if len(segments) == 0 {
		return nil
	}
	w.logger.Info("starting WAL replay", zap.Int("segment_count", len(segments)))

	replayed := 0
	for _, path := range segments {
		n, err := w.replaySegment(ctx, path, handler)
		replayed += n
		if err != nil {
			return err
		}
	}

	w.logger.Info("WAL replay completed", zap.Int("events", replayed))
	return nil
}

func (w *WALRepository) replaySegment(ctx context.Context, path string, handler func(event domain.AuditEvent) error) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open segment %s for replay: %w", path, err)
	}
	defer file.Close()

	replayed := 0
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), maxRecordBytes)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return replayed, err
		}
		var event domain.AuditEvent
		if err := json.Unmarshal(scanner.Bytes(), &event); err != nil {
			w.logger.Warn("skipping corrupt WAL record", zap.String("segment", filepath.Base(path)), zap.Error(err))
			continue
		}
		if err := handler(event); err != nil {
			return replayed, fmt.Errorf("replay handler failed: %w", err)
		}
		replayed++
	}
	if err := scanner.Err(); err != nil {
		return replayed, fmt.Errorf("error scanning segment %s: %w", path, err)
	}
	return replayed, nil
}

// Truncate removes every segment and starts a fresh one.
func (w *WALRepository) Truncate(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.closeSegment()

	segments, err := w.segments()
	if err != nil {
		return err
	}
	for _, path := range segments {
		if err := os.Remove(path); err != nil {
			w.logger.Error("failed to remove WAL segment", zap.String("path", path), zap.Error(err))
		}
	}

	if w.totalSize, err = w.diskUsage(); err != nil {
		return err
	}
	w.logger.Info("WAL truncated")
	return w.rotate()
}

// Close closes the current segment.
func (w *WALRepository) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.currentSegment == nil {
		return nil
	}
	err := w.currentSegment.Close()
	w.currentSegment = nil
	return err
}

func (w *WALRepository) closeSegment() {
	if w.currentSegment == nil {
		return
	}
	if err := w.currentSegment.Sync(); err != nil {
		w.logger.Error("failed to sync WAL segment", zap.Error(err))
	}
	if err := w.currentSegment.Close(); err != nil {
		w.logger.Error("failed to close WAL segment", zap.Error(err))
	}
	w.currentSegment = nil
}

func (w *WALRepository) rotate() error {
	w.closeSegment()

	// Zero padded so lexical order is creation order.
	path := filepath.Join(w.dir, fmt.Sprintf("%s%020d%s", segmentPrefix, time.Now().UnixNano(), segmentSuffix))
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, filePerm)
	if err != nil {
		return fmt.Errorf("failed to create new WAL segment %s: %w", path, err)
	}

	w.currentSegment = f
	w.currentSize = 0
	w.logger.Debug("rotated to new WAL segment", zap.String("path", path))
	return nil
}

func (w *WALRepository) openLatestSegment() error {
	segments, err := w.segments()
	if err != nil {
		return err
	}
	if len(segments) == 0 {
		return w.rotate()
	}

	latest := segments[len(segments)-1]
	stat, err := os.Stat(latest)
	if err != nil {
		return fmt.Errorf("failed to stat latest segment %s: %w", latest, err)
	}
	if stat.Size() >= w.maxSegmentSize {
		return w.rotate()
	}

	f, err := os.OpenFile(latest, os.O_APPEND|os.O_WRONLY, filePerm)
	if err != nil {
		return fmt.Errorf("failed to open latest segment %s: %w", latest, err)
	}
	w.currentSegment = f
	w.currentSize = stat.Size()
	w.logger.Info("opened existing WAL segment", zap.String("path", latest), zap.Int64("size", w.currentSize))
	return nil
}

func (w *WALRepository) segments() ([]string, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read WAL directory: %w", err)
	}

	var segments []string
	for _, entry := range entries {
		if isSegment(entry) {
			segments = append(segments, filepath.Join(w.dir, entry.Name()))
		}
	}
	sort.Strings(segments)
	return segments, nil
}

func (w *WALRepository) diskUsage() (int64, error) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read WAL directory: %w", err)
	}
	var total int64
	for _, entry := range entries {
		if !isSegment(entry) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return 0, err
		}
		total += info.Size()
	}
	return total, nil
}

func isSegment(entry os.DirEntry) bool {
	name := entry.Name()
	return !entry.IsDir() && strings.HasPrefix(name, segmentPrefix) && strings.HasSuffix(name, segmentSuffix)
}
