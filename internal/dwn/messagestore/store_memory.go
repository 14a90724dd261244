package messagestore

import (
	"context"
	"slices"
	"sync"

	"vctodwn/internal/dwn/models"
)

// InMemoryStore is an in-memory implementation of Store for tests or local use.
// It is safe for concurrent access but does not persist across process restarts.
type InMemoryStore struct {
	mu        sync.RWMutex
	protocols map[string]map[string]models.ProtocolsConfigureMessage // tenant -> protocol uri
	records   map[string][]models.RecordEntry                         // tenant -> records in write order
	keys      map[string]models.SealedKey
}

// NewInMemoryStore constructs an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		protocols: make(map[string]map[string]models.ProtocolsConfigureMessage),
		records:   make(map[string][]models.RecordEntry),
		keys:      make(map[string]models.SealedKey),
	}
}

func (s *InMemoryStore) PutProtocol(_ context.Context, tenant string, msg models.ProtocolsConfigureMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	byURI, ok := s.protocols[tenant]
	if !ok {
		byURI = make(map[string]models.ProtocolsConfigureMessage)
		s.protocols[tenant] = byURI
	}
	byURI[msg.Descriptor.Definition.Protocol] = msg
	return nil
}

func (s *InMemoryStore) FindProtocols(_ context.Context, tenant, protocol string) ([]models.ProtocolsConfigureMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	byURI := s.protocols[tenant]
	if protocol != "" {
		if msg, ok := byURI[protocol]; ok {
			return []models.ProtocolsConfigureMessage{msg}, nil
		}
		return nil, nil
	}
	out := make([]models.ProtocolsConfigureMessage, 0, len(byURI))
	for _, msg := range byURI {
		out = append(out, msg)
	}
	slices.SortFunc(out, func(a, b models.ProtocolsConfigureMessage) int {
		switch {
		case a.Descriptor.Definition.Protocol < b.Descriptor.Definition.Protocol:
			return -1
		case a.Descriptor.Definition.Protocol > b.Descriptor.Definition.Protocol:
			return 1
		}
		return 0
	})
	return out, nil
}

func (s *InMemoryStore) PutRecord(_ context.Context, tenant string, entry models.RecordEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry.Data = slices.Clone(entry.Data)
	list := s.records[tenant]
	for i, existing := range list {
		if existing.Message.RecordID == entry.Message.RecordID {
			if entry.Message.Descriptor.MessageTimestamp >= existing.Message.Descriptor.MessageTimestamp {
				list[i] = entry
			}
			return nil
		}
	}
	s.records[tenant] = append(list, entry)
	return nil
}

func (s *InMemoryStore) FindRecords(_ context.Context, tenant string, filter models.RecordsFilter) ([]models.RecordEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.RecordEntry
	for _, entry := range s.records[tenant] {
		if filter.Matches(entry.Message.Descriptor) {
			out = append(out, entry)
		}
	}
	return out, nil
}

func (s *InMemoryStore) PutKey(_ context.Context, key models.SealedKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[key.DID] = key
	return nil
}

func (s *InMemoryStore) FindKey(_ context.Context, did string) (models.SealedKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	key, ok := s.keys[did]
	if !ok {
		return models.SealedKey{}, ErrNotFound
	}
	return key, nil
}

func (s *InMemoryStore) Ping(context.Context) error { return nil }

func (s *InMemoryStore) Close() error { return nil }

var _ Store = (*InMemoryStore)(nil)
