// Package agent connects an identity to the embedded DWN node: it creates or
// unlocks the identity's signing key and registers the tenant with its remote
// endpoints.
package agent

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"vctodwn/internal/dwn"
	"vctodwn/internal/dwn/did"
	"vctodwn/internal/dwn/messagestore"
	"vctodwn/internal/dwn/node"
	"vctodwn/internal/platform/tracer"
)

// Remote is the remote DWN client used for replication and tenant registration.
type Remote interface {
	node.Remote
	Register(ctx context.Context, endpoint, tenant string) error
}

// Agent implements dwn.Connector over a message store.
type Agent struct {
	store    messagestore.Store
	remote   Remote
	resolver *node.StaticResolver
	logger   *slog.Logger
	tracer   tracer.Tracer
	now      func() time.Time
}

// Option configures an Agent.
type Option func(*Agent)

func WithLogger(logger *slog.Logger) Option {
	return func(a *Agent) { a.logger = logger }
}

func WithTracer(t tracer.Tracer) Option {
	return func(a *Agent) { a.tracer = t }
}

func WithClock(now func() time.Time) Option {
	return func(a *Agent) { a.now = now }
}

// New creates an agent. remote may be nil, in which case nothing is replicated.
func New(store messagestore.Store, remote Remote, opts ...Option) *Agent {
	a := &Agent{
		store:    store,
		remote:   remote,
		resolver: node.NewStaticResolver(),
		logger:   slog.Default(),
		tracer:   tracer.NewNoop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Connect unlocks opts.ConnectedDID from the vault, or creates and seals a new
// identity when it is empty, then registers the tenant with every endpoint.
// Registration failures are reported to the hooks and do not fail the connection.
func (a *Agent) Connect(ctx context.Context, opts dwn.ConnectOptions) (dwn.Store, string, error) {
	key, err := a.loadOrCreateKey(ctx, opts)
	if err != nil {
		return nil, "", err
	}

	a.resolver.Set(key.DID, opts.DWNEndpoints)
	a.register(ctx, key.DID, opts)

	nodeOpts := []node.Option{
		node.WithLogger(a.logger),
		node.WithTracer(a.tracer),
		node.WithClock(a.now),
	}
	if a.remote != nil {
		nodeOpts = append(nodeOpts, node.WithRemote(a.remote, a.resolver))
	}
	return node.New(key, a.store, nodeOpts...), key.DID, nil
}

func (a *Agent) loadOrCreateKey(ctx context.Context, opts dwn.ConnectOptions) (did.Key, error) {
	if opts.ConnectedDID == "" {
		key, err := did.Generate()
		if err != nil {
			return did.Key{}, dwn.NewStoreError(dwn.ErrorInternal, "connect", "failed to generate identity", err)
		}
		sealed, err := seal(opts.Password, key, a.now())
		if err != nil {
			return did.Key{}, dwn.NewStoreError(dwn.ErrorInternal, "connect", "failed to seal identity key", err)
		}
		if err := a.store.PutKey(ctx, sealed); err != nil {
			return did.Key{}, dwn.NewStoreError(dwn.ErrorInternal, "connect", "failed to store identity key", err)
		}
		a.logger.InfoContext(ctx, "created agent identity", "did", key.DID)
		return key, nil
	}

	sealed, err := a.store.FindKey(ctx, opts.ConnectedDID)
	if errors.Is(err, messagestore.ErrNotFound) {
		return did.Key{}, dwn.NewStoreError(dwn.ErrorNotFound, "connect", "agent holds no key for "+opts.ConnectedDID, err)
	}
	if err != nil {
		return did.Key{}, dwn.NewStoreError(dwn.ErrorInternal, "connect", "failed to read identity key", err)
	}
	key, err := open(opts.Password, sealed)
	if err != nil {
		return did.Key{}, dwn.NewStoreError(dwn.ErrorUnauthorized, "connect", "failed to unlock identity key", err)
	}
	return key, nil
}

func (a *Agent) register(ctx context.Context, tenant string, opts dwn.ConnectOptions) {
	if a.remote == nil {
		return
	}
	for _, endpoint := range opts.DWNEndpoints {
		if err := a.remote.Register(ctx, endpoint, tenant); err != nil {
			if opts.Registration.OnFailure != nil {
				opts.Registration.OnFailure(endpoint, err)
			}
			continue
		}
		if opts.Registration.OnSuccess != nil {
			opts.Registration.OnSuccess(endpoint)
		}
	}
}

var _ dwn.Connector = (*Agent)(nil)
