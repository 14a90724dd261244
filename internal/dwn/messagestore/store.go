// Package messagestore persists the messages, record data and sealed agent keys of
// the embedded DWN node, partitioned by tenant DID.
package messagestore

import (
	"context"
	"errors"

	"vctodwn/internal/dwn/models"
)

// ErrNotFound is returned by lookups that match nothing.
var ErrNotFound = errors.New("messagestore: not found")

// Store is implemented by the in-memory and SQLite backends.
type Store interface {
	// PutProtocol stores a ProtocolsConfigure, replacing any configuration of the
	// same protocol URI for the tenant.
	PutProtocol(ctx context.Context, tenant string, msg models.ProtocolsConfigureMessage) error
	// FindProtocols returns the tenant's configurations; an empty protocol returns all.
	FindProtocols(ctx context.Context, tenant, protocol string) ([]models.ProtocolsConfigureMessage, error)
	// PutRecord stores a record. Writing the same record id twice keeps the newer message.
	PutRecord(ctx context.Context, tenant string, entry models.RecordEntry) error
	// FindRecords returns records matching filter in creation order.
	FindRecords(ctx context.Context, tenant string, filter models.RecordsFilter) ([]models.RecordEntry, error)
	PutKey(ctx context.Context, key models.SealedKey) error
	FindKey(ctx context.Context, did string) (models.SealedKey, error)
	Ping(ctx context.Context) error
	Close() error
}
