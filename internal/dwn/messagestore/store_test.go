package messagestore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"vctodwn/internal/dwn/messagestore/migrations"
	"vctodwn/internal/dwn/models"
	"vctodwn/internal/platform/database"
)

const (
	tenant   = "did:key:z6MkCustomer"
	protoURI = "https://vc-to-dwn.tbddev.org/vc-protocol"
)

// StoreSuite runs the same contract against every backend.
type StoreSuite struct {
	suite.Suite
	newStore func(t *testing.T) Store
	store    Store
	ctx      context.Context
}

func (s *StoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = s.newStore(s.T())
}

func TestInMemoryStore(t *testing.T) {
	suite.Run(t, &StoreSuite{newStore: func(*testing.T) Store { return NewInMemoryStore() }})
}

func TestSQLiteStore(t *testing.T) {
	suite.Run(t, &StoreSuite{newStore: func(t *testing.T) Store {
		pool, err := database.Open(context.Background(),
			database.DefaultConfig(filepath.Join(t.TempDir(), "dwn.db")), migrations.FS)
		require.NoError(t, err)
		t.Cleanup(func() { _ = pool.Close() })
		return NewSQLiteStore(pool.DB())
	}})
}

func protocolMessage(uri, ts string) models.ProtocolsConfigureMessage {
	return models.ProtocolsConfigureMessage{
		Descriptor: models.ProtocolsConfigureDescriptor{
			Interface:        models.InterfaceProtocols,
			Method:           models.MethodConfigure,
			MessageTimestamp: ts,
			Definition:       models.ProtocolDefinition{Protocol: uri, Published: true},
		},
		Authorization: models.Authorization{Signature: "sig"},
	}
}

func recordEntry(id, recipient, path, ts string) models.RecordEntry {
	return models.RecordEntry{
		Author: tenant,
		Data:   []byte("payload-" + id),
		Message: models.RecordsWriteMessage{
			RecordID: id,
			Descriptor: models.RecordsWriteDescriptor{
				Interface:        models.InterfaceRecords,
				Method:           models.MethodWrite,
				Protocol:         protoURI,
				ProtocolPath:     path,
				Recipient:        recipient,
				DataFormat:       "text/plain",
				MessageTimestamp: ts,
			},
		},
	}
}

func (s *StoreSuite) TestProtocols_OnePerURI() {
	s.Require().NoError(s.store.PutProtocol(s.ctx, tenant, protocolMessage(protoURI, "2026-01-01T00:00:00.000000Z")))
	s.Require().NoError(s.store.PutProtocol(s.ctx, tenant, protocolMessage(protoURI, "2026-01-02T00:00:00.000000Z")))
	s.Require().NoError(s.store.PutProtocol(s.ctx, tenant, protocolMessage("https://example.com/other", "2026-01-01T00:00:00.000000Z")))

	found, err := s.store.FindProtocols(s.ctx, tenant, protoURI)
	s.Require().NoError(err)
	s.Require().Len(found, 1)
	s.Equal("2026-01-02T00:00:00.000000Z", found[0].Descriptor.MessageTimestamp)
	s.True(found[0].Descriptor.Definition.Published)

	all, err := s.store.FindProtocols(s.ctx, tenant, "")
	s.Require().NoError(err)
	s.Len(all, 2)
	s.Equal("https://example.com/other", all[0].Descriptor.Definition.Protocol)
}

func (s *StoreSuite) TestProtocols_TenantIsolation() {
	s.Require().NoError(s.store.PutProtocol(s.ctx, tenant, protocolMessage(protoURI, "2026-01-01T00:00:00.000000Z")))

	found, err := s.store.FindProtocols(s.ctx, "did:key:z6MkSomeoneElse", protoURI)
	s.Require().NoError(err)
	s.Empty(found)
}

func (s *StoreSuite) TestRecords_FilterAndOrder() {
	s.Require().NoError(s.store.PutRecord(s.ctx, tenant, recordEntry("r1", "did:key:z6MkIssuerA", "issuer", "2026-01-01T00:00:00.000000Z")))
	s.Require().NoError(s.store.PutRecord(s.ctx, tenant, recordEntry("r2", "did:key:z6MkIssuerB", "issuer", "2026-01-01T00:00:01.000000Z")))
	s.Require().NoError(s.store.PutRecord(s.ctx, tenant, recordEntry("r3", "did:key:z6MkIssuerA", "credential", "2026-01-01T00:00:02.000000Z")))

	byRecipient, err := s.store.FindRecords(s.ctx, tenant, models.RecordsFilter{Recipient: "did:key:z6MkIssuerA"})
	s.Require().NoError(err)
	s.Require().Len(byRecipient, 2)
	s.Equal("r1", byRecipient[0].Message.RecordID)
	s.Equal("r3", byRecipient[1].Message.RecordID)
	s.Equal([]byte("payload-r1"), byRecipient[0].Data)
	s.Equal(tenant, byRecipient[0].Author)

	scoped, err := s.store.FindRecords(s.ctx, tenant, models.RecordsFilter{
		Recipient: "did:key:z6MkIssuerA", Protocol: protoURI, ProtocolPath: "issuer",
	})
	s.Require().NoError(err)
	s.Require().Len(scoped, 1)
	s.Equal("r1", scoped[0].Message.RecordID)

	all, err := s.store.FindRecords(s.ctx, tenant, models.RecordsFilter{})
	s.Require().NoError(err)
	s.Len(all, 3)

	none, err := s.store.FindRecords(s.ctx, "did:key:z6MkSomeoneElse", models.RecordsFilter{})
	s.Require().NoError(err)
	s.Empty(none)
}

func (s *StoreSuite) TestRecords_SameIDKeepsNewest() {
	s.Require().NoError(s.store.PutRecord(s.ctx, tenant, recordEntry("r1", "did:key:z6MkA", "issuer", "2026-01-02T00:00:00.000000Z")))
	s.Require().NoError(s.store.PutRecord(s.ctx, tenant, recordEntry("r1", "did:key:z6MkB", "issuer", "2026-01-01T00:00:00.000000Z")))

	all, err := s.store.FindRecords(s.ctx, tenant, models.RecordsFilter{})
	s.Require().NoError(err)
	s.Require().Len(all, 1)
	s.Equal("did:key:z6MkA", all[0].Message.Descriptor.Recipient)
}

func (s *StoreSuite) TestKeys() {
	_, err := s.store.FindKey(s.ctx, tenant)
	s.ErrorIs(err, ErrNotFound)

	key := models.SealedKey{
		DID:        tenant,
		Salt:       []byte("salt"),
		Nonce:      []byte("nonce"),
		Ciphertext: []byte("ciphertext"),
		CreatedAt:  time.UnixMilli(1700000000000).UTC(),
	}
	s.Require().NoError(s.store.PutKey(s.ctx, key))

	got, err := s.store.FindKey(s.ctx, tenant)
	s.Require().NoError(err)
	s.Equal(key.Ciphertext, got.Ciphertext)
	s.Equal(key.Salt, got.Salt)
	s.Equal(key.Nonce, got.Nonce)
	s.NoError(s.store.Ping(s.ctx))
}
