package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/V4T54L/tabletop/internal/adapter/metrics"
	"github.com/V4T54L/tabletop/internal/domain"
)

const defaultBatchSize = 500

// AuditRelayUseCase moves audit events from the buffer to the sink.
type AuditRelayUseCase struct {
	buffer       domain.AuditBuffer
	sink         domain.AuditSink
	logger       *zap.Logger
	metrics      *metrics.APIMetrics
	group        string
	consumer     string
	retryCount   int
	retryBackoff time.Duration
}

// NewAuditRelayUseCase creates a new relay.
func NewAuditRelayUseCase(buffer domain.AuditBuffer, sink domain.AuditSink, logger *zap.Logger, m *metrics.APIMetrics, group, consumer string, retryCount int, retryBackoff time.Duration) *AuditRelayUseCase {
	if retryCount < 1 {
		retryCount = 1
	}
	return &AuditRelayUseCase{
		buffer:       buffer,
		sink:         sink,
		logger:       logger.With(zap.String("component", "audit-relay")),
		metrics:      m,
		group:        group,
		consumer:     consumer,
		retryCount:   retryCount,
		retryBackoff: retryBackoff,
	}
}

// ProcessBatch reads a batch of events, writes them to the sink and
// acknowledges them. Events the sink keeps rejecting are parked in the DLQ
// and acknowledged too, so one bad batch cannot stall the stream.
func (uc *AuditRelayUseCase) ProcessBatch(ctx context.Context) (int, error) {
	events, err := uc.buffer.ReadBatch(ctx, uc.group, uc.consumer, defaultBatchSize)
	if err != nil {
		uc.logger.Error("failed to read audit batch from buffer", zap.Error(err))
		return 0, err
	}
	if len(events) == 0 {
		return 0, nil
	}

	uc.logger.Debug("read batch of events from buffer", zap.Int("count", len(events)))

	writeErr := uc.writeWithRetry(ctx, events)
	if writeErr != nil {
		uc.logger.Error("failed to write audit batch to sink after retries, moving to DLQ", zap.Error(writeErr))
		if err := uc.buffer.MoveToDLQ(ctx, events); err != nil {
			uc.logger.Error("failed to move audit batch to DLQ", zap.Error(err))
			return 0, err
		}
		uc.observe("dlq", len(events))
	}

	messageIDs := make([]string, len(events))
	for i, event := range events {
		messageIDs[i] = event.StreamMessageID
	}
	if err := uc.buffer.Acknowledge(ctx, uc.group, messageIDs...); err != nil {
		// Unacked events are redelivered; the sink is keyed by event id.
		uc.logger.Error("failed to acknowledge audit events", zap.Error(err))
		return 0, err
	}

	if writeErr != nil {
		return 0, writeErr
	}
	uc.observe("delivered", len(events))
	uc.logger.Info("relayed audit batch", zap.Int("count", len(events)))
	return len(events), nil
}

// Run calls ProcessBatch on every tick until ctx is done.
func (uc *AuditRelayUseCase) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Drain while full batches keep coming.
			for {
				n, err := uc.ProcessBatch(ctx)
				if err != nil || n < defaultBatchSize {
					break
				}
			}
		}
	}
}

func (uc *AuditRelayUseCase) writeWithRetry(ctx context.Context, events []domain.AuditEvent) error {
	var lastErr error
	for i := 0; i < uc.retryCount; i++ {
		err := uc.sink.WriteBatch(ctx, events)
		if err == nil {
			return nil
		}
		lastErr = err
		uc.logger.Warn("failed to write batch to sink, retrying", zap.Int("attempt", i+1), zap.Error(err))
		select {
		case <-time.After(uc.retryBackoff):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}

func (uc *AuditRelayUseCase) observe(status string, n int) {
	if uc.metrics != nil {
		uc.metrics.AuditRelayedTotal.WithLabelValues(status).Add(float64(n))
	}
}
