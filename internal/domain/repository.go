package domain

import "context"

// Store bundles the repositories of one storage backend together with the
// schema operations used by provisioning and startup.
type Store interface {
	Tenants() TenantRepository
	Directory() DirectoryRepository
	Users() UserRepository
	Menu() MenuRepository
	Counters() CounterRepository
	Settings() SettingsRepository

	// EnsureDataset makes sure the backing storage for a tenant dataset exists.
	EnsureDataset(ctx context.Context, apiKey, dataset string) error
	// Migrate creates shared tables, collections and indexes.
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// AuditBuffer defines buffering of audit events between the API and the relay.
type AuditBuffer interface {
	// BufferEvent adds a single event to the durable buffer.
	BufferEvent(ctx context.Context, event AuditEvent) error

	// ReadBatch reads a batch of events for a specific consumer.
	ReadBatch(ctx context.Context, group, consumer string, count int) ([]AuditEvent, error)

	// Acknowledge marks events as processed in the buffer.
	Acknowledge(ctx context.Context, group string, messageIDs ...string) error

	// MoveToDLQ parks events the relay could not deliver.
	MoveToDLQ(ctx context.Context, events []AuditEvent) error
}

// AuditSink is the final destination of relayed audit events.
type AuditSink interface {
	WriteBatch(ctx context.Context, events []AuditEvent) error
}

// WALRepository defines the local write-ahead log used while the buffer is down.
type WALRepository interface {
	// Write appends an event to the local WAL file.
	Write(ctx context.Context, event AuditEvent) error

	// Replay reads events from the WAL and sends them to a handler function.
	// The handler is responsible for re-buffering the event.
	Replay(ctx context.Context, handler func(event AuditEvent) error) error

	// Truncate removes WAL segments that have been successfully replayed.
	Truncate(ctx context.Context) error
}

// AuditStreamAdmin exposes maintenance operations on the audit buffer.
type AuditStreamAdmin interface {
	Stats(ctx context.Context, group string) (*AuditStreamStats, error)
	// Trim caps the stream at maxLen entries and returns how many were removed.
	Trim(ctx context.Context, maxLen int64) (int64, error)
}
