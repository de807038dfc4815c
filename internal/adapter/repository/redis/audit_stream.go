package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/V4T54L/tabletop/internal/adapter/metrics"
	"github.com/V4T54L/tabletop/internal/domain"
)

const (
	AuditStreamKey    = "tabletop:audit"
	AuditDLQStreamKey = "tabletop:audit:dlq"
)

// AuditStream implements domain.AuditBuffer on a Redis Stream. Writes fall
// back to the WAL while Redis is unreachable.
type AuditStream struct {
	client       *redis.Client
	logger       *zap.Logger
	wal          domain.WALRepository
	metrics      *metrics.APIMetrics
	dlqStreamKey string
	isAvailable  atomic.Bool
}

// NewAuditStream creates a Redis-backed audit buffer. The WAL is optional;
// pass nil for read-only users such as the relay.
func NewAuditStream(client *redis.Client, logger *zap.Logger, group string, wal domain.WALRepository, m *metrics.APIMetrics) *AuditStream {
	s := &AuditStream{
		client:       client,
		logger:       logger.With(zap.String("component", "audit_stream")),
		wal:          wal,
		metrics:      m,
		dlqStreamKey: AuditDLQStreamKey,
	}
	s.setAvailable(true)

	if err := s.setupConsumerGroup(context.Background(), group); err != nil {
		s.setAvailable(false)
		s.logger.Error("failed to setup consumer group, redis may be unavailable on startup", zap.Error(err))
	}
	return s
}

// StartHealthCheck monitors Redis connectivity and replays the WAL once it
// comes back.
func (s *AuditStream) StartHealthCheck(ctx context.Context, interval time.Duration) {
	if s.wal == nil {
		s.logger.Info("WAL is not configured, skipping health check")
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("stopping redis health check")
			return
		case <-ticker.C:
			if err := s.client.Ping(ctx).Err(); err != nil {
				if s.isAvailable.CompareAndSwap(true, false) {
					s.setAvailable(false)
					s.logger.Error("redis connection lost", zap.Error(err))
				}
				continue
			}
			if s.isAvailable.CompareAndSwap(false, true) {
				s.logger.Info("redis connection recovered")
				if err := s.ReplayWAL(ctx); err != nil {
					s.logger.Error("failed to replay WAL after redis recovery", zap.Error(err))
					s.setAvailable(false)
					continue
				}
				s.setAvailable(true)
			}
		}
	}
}

// ReplayWAL re-buffers events from the WAL and truncates it on success.
func (s *AuditStream) ReplayWAL(ctx context.Context) error {
	s.logger.Info("replaying WAL to redis")
	if err := s.wal.Replay(ctx, func(event domain.AuditEvent) error {
		return s.add(ctx, event)
	}); err != nil {
		return fmt.Errorf("WAL replay failed: %w", err)
	}
	if err := s.wal.Truncate(ctx); err != nil {
		return fmt.Errorf("failed to truncate WAL after successful replay: %w", err)
	}
	s.logger.Info("WAL replay to redis completed")
	return nil
}

func (s *AuditStream) setupConsumerGroup(ctx context.Context, group string) error {
	err := s.client.XGroupCreateMkStream(ctx, AuditStreamKey, group, "0").Err()
	if err != nil && !isBusyGroupError(err) {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}
	return nil
}

// BufferEvent adds an event to the stream, falling back to the WAL.
func (s *AuditStream) BufferEvent(ctx context.Context, event domain.AuditEvent) error {
	if !s.isAvailable.Load() {
		if s.wal == nil {
			return errors.New("redis is unavailable and WAL is not configured")
		}
		s.logger.Warn("redis is unavailable, writing to WAL", zap.String("event_id", event.ID))
		return s.wal.Write(ctx, event)
	}

	err := s.add(ctx, event)
	if err == nil || !isNetworkError(err) {
		return err
	}
	if s.isAvailable.CompareAndSwap(true, false) {
		s.setAvailable(false)
		s.logger.Error("redis connection lost during write", zap.Error(err))
	}
	if s.wal == nil {
		return fmt.Errorf("redis became unavailable and WAL is not configured: %w", err)
	}
	s.logger.Warn("redis became unavailable, writing to WAL", zap.String("event_id", event.ID))
	return s.wal.Write(ctx, event)
}

func (s *AuditStream) add(ctx context.Context, event domain.AuditEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal audit event: %w", err)
	}
	err = s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: AuditStreamKey,
		Values: map[string]interface{}{"payload": payload},
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to XADD to redis stream: %w", err)
	}
	return nil
}

// ReadBatch reads new events for a consumer of the group.
func (s *AuditStream) ReadBatch(ctx context.Context, group, consumer string, count int) ([]domain.AuditEvent, error) {
	streams, err := s.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    group,
		Consumer: consumer,
		Streams:  []string{AuditStreamKey, ">"},
		Count:    int64(count),
		Block:    2 * time.Second,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to XREADGROUP from redis: %w", err)
	}
	if len(streams) == 0 {
		return nil, nil
	}
	return s.decode(streams[0].Messages), nil
}

func (s *AuditStream) decode(messages []redis.XMessage) []domain.AuditEvent {
	events := make([]domain.AuditEvent, 0, len(messages))
	for _, msg := range messages {
		payload, ok := msg.Values["payload"].(string)
		if !ok {
			s.logger.Warn("invalid message format in stream, skipping", zap.String("message_id", msg.ID))
			continue
		}
		var event domain.AuditEvent
		if err := json.Unmarshal([]byte(payload), &event); err != nil {
			s.logger.Warn("failed to unmarshal audit event from stream, skipping", zap.String("message_id", msg.ID), zap.Error(err))
			continue
		}
		event.StreamMessageID = msg.ID
		events = append(events, event)
	}
	return events
}

// Acknowledge marks messages of the group as processed.
func (s *AuditStream) Acknowledge(ctx context.Context, group string, messageIDs ...string) error {
	if len(messageIDs) == 0 {
		return nil
	}
	if err := s.client.XAck(ctx, AuditStreamKey, group, messageIDs...).Err(); err != nil {
		return fmt.Errorf("failed to XACK messages in redis: %w", err)
	}
	return nil
}

// MoveToDLQ copies events to the dead letter stream.
func (s *AuditStream) MoveToDLQ(ctx context.Context, events []domain.AuditEvent) error {
	if len(events) == 0 {
		return nil
	}

	pipe := s.client.Pipeline()
	for _, event := range events {
		payload, err := json.Marshal(event)
		if err != nil {
			s.logger.Error("failed to marshal event for DLQ", zap.String("event_id", event.ID), zap.Error(err))
			continue
		}
		pipe.XAdd(ctx, &redis.XAddArgs{
			Stream: s.dlqStreamKey,
			Values: map[string]interface{}{
				"payload":         payload,
				"original_stream": AuditStreamKey,
				"original_msg_id": event.StreamMessageID,
				"failed_at":       time.Now().UTC().Format(time.RFC3339),
			},
		})
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to execute DLQ pipeline: %w", err)
	}
	s.logger.Warn("moved events to DLQ", zap.Int("count", len(events)))
	return nil
}

// Stats reports the stream length and the pending entries of group.
func (s *AuditStream) Stats(ctx context.Context, group string) (*domain.AuditStreamStats, error) {
	length, err := s.client.XLen(ctx, AuditStreamKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to XLEN audit stream: %w", err)
	}
	pending, err := s.client.XPending(ctx, AuditStreamKey, group).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get pending summary for group %s: %w", group, err)
	}
	return &domain.AuditStreamStats{
		Length:         length,
		Pending:        pending.Count,
		FirstPendingID: pending.Lower,
		LastPendingID:  pending.Higher,
		ConsumerTotals: pending.Consumers,
	}, nil
}

// Trim caps the stream length.
func (s *AuditStream) Trim(ctx context.Context, maxLen int64) (int64, error) {
	return s.client.XTrimMaxLen(ctx, AuditStreamKey, maxLen).Result()
}

func (s *AuditStream) setAvailable(ok bool) {
	s.isAvailable.Store(ok)
	if s.metrics == nil {
		return
	}
	if ok {
		s.metrics.WALActive.Set(0)
	} else {
		s.metrics.WALActive.Set(1)
	}
}

func isBusyGroupError(err error) bool {
	return err != nil && err.Error() == "BUSYGROUP Consumer Group name already exists"
}

func isNetworkError(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) || errors.Is(err, redis.ErrClosed) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
