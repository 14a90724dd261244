// Package identity loads the customer identity or creates it on first run.
package identity

import (
	"context"
	"log/slog"

	"vctodwn/internal/dwn"
	dErrors "vctodwn/pkg/domain-errors"
)

// Persister reads and writes the persisted identifier.
type Persister interface {
	Load() (string, error)
	Save(did string) error
}

// Service produces the process identity.
type Service struct {
	persister Persister
	connector dwn.Connector
	password  string
	endpoints []string
	logger    *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// NewService creates the identity service. password unlocks the agent vault;
// endpoints are the DWNs the identity is registered with.
func NewService(persister Persister, connector dwn.Connector, password string, endpoints []string, opts ...Option) *Service {
	s := &Service{
		persister: persister,
		connector: connector,
		password:  password,
		endpoints: endpoints,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LoadOrCreate reconnects with the persisted identifier, or creates and persists
// a new one when none is usable. Connection failures are fatal to the caller;
// there is no offline mode.
func (s *Service) LoadOrCreate(ctx context.Context) (*Identity, error) {
	existing, err := s.persister.Load()
	if err != nil {
		s.logger.InfoContext(ctx, "no usable persisted identity, creating one", "reason", err.Error())
		existing = ""
	}

	store, id, err := s.connector.Connect(ctx, dwn.ConnectOptions{
		ConnectedDID: existing,
		Password:     s.password,
		DWNEndpoints: s.endpoints,
		Registration: dwn.RegistrationHooks{
			OnSuccess: func(endpoint string) {
				s.logger.InfoContext(ctx, "dwn registration succeeded", "endpoint", endpoint)
			},
			OnFailure: func(endpoint string, err error) {
				s.logger.WarnContext(ctx, "dwn registration failed", "endpoint", endpoint, "error", err)
			},
		},
	})
	if err != nil {
		return nil, dErrors.WrapAs(err, dErrors.CodeIdentityConnection, "failed to connect identity to store")
	}

	if existing != "" {
		s.logger.InfoContext(ctx, "loaded identity", "did", id)
		return &Identity{DID: id, Store: store}, nil
	}

	if err := s.persister.Save(id); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist new identity")
	}
	s.logger.InfoContext(ctx, "created identity", "did", id)
	return &Identity{DID: id, Store: store, Created: true}, nil
}
