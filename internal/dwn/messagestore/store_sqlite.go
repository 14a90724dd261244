package messagestore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"vctodwn/internal/dwn/models"
)

// SQLiteStore persists node state in SQLite. The schema lives in ./migrations and
// is applied by database.Open.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore wraps an opened, migrated database.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) PutProtocol(ctx context.Context, tenant string, msg models.ProtocolsConfigureMessage) error {
	raw, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode protocol message: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO protocols (tenant, protocol, message, message_timestamp)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (tenant, protocol) DO UPDATE SET
			message = excluded.message,
			message_timestamp = excluded.message_timestamp`,
		tenant, msg.Descriptor.Definition.Protocol, string(raw), msg.Descriptor.MessageTimestamp,
	)
	if err != nil {
		return fmt.Errorf("put protocol: %w", err)
	}
	return nil
}

func (s *SQLiteStore) FindProtocols(ctx context.Context, tenant, protocol string) ([]models.ProtocolsConfigureMessage, error) {
	query := `SELECT message FROM protocols WHERE tenant = ?`
	args := []any{tenant}
	if protocol != "" {
		query += ` AND protocol = ?`
		args = append(args, protocol)
	}
	query += ` ORDER BY protocol`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find protocols: %w", err)
	}
	defer rows.Close()

	var out []models.ProtocolsConfigureMessage
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan protocol: %w", err)
		}
		var msg models.ProtocolsConfigureMessage
		if err := json.Unmarshal([]byte(raw), &msg); err != nil {
			return nil, fmt.Errorf("decode protocol message: %w", err)
		}
		out = append(out, msg)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) PutRecord(ctx context.Context, tenant string, entry models.RecordEntry) error {
	raw, err := json.Marshal(entry.Message)
	if err != nil {
		return fmt.Errorf("encode record message: %w", err)
	}
	d := entry.Message.Descriptor
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO records (tenant, record_id, protocol, protocol_path, recipient, schema_uri,
			data_format, author, message, message_timestamp, data)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (tenant, record_id) DO UPDATE SET
			protocol = excluded.protocol,
			protocol_path = excluded.protocol_path,
			recipient = excluded.recipient,
			schema_uri = excluded.schema_uri,
			data_format = excluded.data_format,
			message = excluded.message,
			message_timestamp = excluded.message_timestamp,
			data = excluded.data
		WHERE excluded.message_timestamp >= records.message_timestamp`,
		tenant, entry.Message.RecordID, d.Protocol, d.ProtocolPath, d.Recipient, d.Schema,
		d.DataFormat, entry.Author, string(raw), d.MessageTimestamp, entry.Data,
	)
	if err != nil {
		return fmt.Errorf("put record: %w", err)
	}
	return nil
}

func (s *SQLiteStore) FindRecords(ctx context.Context, tenant string, filter models.RecordsFilter) ([]models.RecordEntry, error) {
	var (
		clauses = []string{"tenant = ?"}
		args    = []any{tenant}
	)
	for _, c := range []struct {
		column, value string
	}{
		{"protocol", filter.Protocol},
		{"protocol_path", filter.ProtocolPath},
		{"recipient", filter.Recipient},
		{"schema_uri", filter.Schema},
		{"data_format", filter.DataFormat},
	} {
		if c.value != "" {
			clauses = append(clauses, c.column+" = ?")
			args = append(args, c.value)
		}
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT message, author, data FROM records WHERE `+strings.Join(clauses, " AND ")+` ORDER BY seq`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("find records: %w", err)
	}
	defer rows.Close()

	var out []models.RecordEntry
	for rows.Next() {
		var (
			raw   string
			entry models.RecordEntry
		)
		if err := rows.Scan(&raw, &entry.Author, &entry.Data); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		if err := json.Unmarshal([]byte(raw), &entry.Message); err != nil {
			return nil, fmt.Errorf("decode record message: %w", err)
		}
		out = append(out, entry)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) PutKey(ctx context.Context, key models.SealedKey) error {
	createdAt := key.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO agent_keys (did, salt, nonce, ciphertext, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (did) DO UPDATE SET
			salt = excluded.salt,
			nonce = excluded.nonce,
			ciphertext = excluded.ciphertext`,
		key.DID, key.Salt, key.Nonce, key.Ciphertext, createdAt.UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("put key: %w", err)
	}
	return nil
}

func (s *SQLiteStore) FindKey(ctx context.Context, did string) (models.SealedKey, error) {
	var (
		key       = models.SealedKey{DID: did}
		createdAt int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT salt, nonce, ciphertext, created_at FROM agent_keys WHERE did = ?`, did,
	).Scan(&key.Salt, &key.Nonce, &key.Ciphertext, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.SealedKey{}, ErrNotFound
	}
	if err != nil {
		return models.SealedKey{}, fmt.Errorf("find key: %w", err)
	}
	key.CreatedAt = time.UnixMilli(createdAt).UTC()
	return key, nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close is a no-op; the owning database.Pool closes the handle.
func (s *SQLiteStore) Close() error { return nil }

var _ Store = (*SQLiteStore)(nil)
