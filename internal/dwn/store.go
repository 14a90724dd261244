// Package dwn defines the contract between this service and a decentralized web node.
//
// The service only ever talks to a node through Store and the handles it returns.
// Whether a Store is backed by an embedded node, a remote endpoint or a test double
// is decided once at startup by the Connector.
package dwn

//go:generate mockgen -source=store.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"vctodwn/internal/dwn/models"
)

// ProtocolsQuery selects protocol configurations. An empty From queries the
// local node; a DID queries that tenant's remote node.
type ProtocolsQuery struct {
	From   string
	Filter models.ProtocolsFilter
}

// RecordsQuery selects records on the local node.
type RecordsQuery struct {
	Filter models.RecordsFilter
}

// RecordCreate describes a record to write under a protocol.
type RecordCreate struct {
	Protocol     string
	ProtocolPath string
	Schema       string
	DataFormat   string
	Recipient    string
	Data         []byte
}

// Store is the store handle shared by the whole process.
type Store interface {
	QueryProtocols(ctx context.Context, query ProtocolsQuery) ([]ProtocolHandle, models.Status, error)
	ConfigureProtocol(ctx context.Context, definition models.ProtocolDefinition) (ProtocolHandle, models.Status, error)
	QueryRecords(ctx context.Context, query RecordsQuery) ([]RecordHandle, models.Status, error)
	CreateRecord(ctx context.Context, create RecordCreate) (RecordHandle, models.Status, error)
}

// ProtocolHandle is a configured protocol that can be replicated to another tenant.
type ProtocolHandle interface {
	Definition() models.ProtocolDefinition
	Send(ctx context.Context, target string) (models.Status, error)
}

// RecordHandle is a written record that can be replicated to another tenant.
type RecordHandle interface {
	ID() string
	Recipient() string
	Send(ctx context.Context, target string) (models.Status, error)
}

// RegistrationHooks report the outcome of tenant registration with each endpoint.
type RegistrationHooks struct {
	OnSuccess func(endpoint string)
	OnFailure func(endpoint string, err error)
}

// ConnectOptions configure a connection. An empty ConnectedDID creates a new identity.
type ConnectOptions struct {
	ConnectedDID string
	Password     string
	DWNEndpoints []string
	Registration RegistrationHooks
}

// Connector opens a Store for an identity.
type Connector interface {
	Connect(ctx context.Context, opts ConnectOptions) (Store, string, error)
}
