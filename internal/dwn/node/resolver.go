package node

import (
	"context"
	"slices"
	"sync"

	"vctodwn/internal/dwn"
)

// Resolver finds the DWN endpoints serving a DID.
type Resolver interface {
	Endpoints(ctx context.Context, did string) ([]string, error)
}

// StaticResolver serves endpoints registered in process. The agent registers its
// own DID with the configured endpoints; nothing else is resolvable.
type StaticResolver struct {
	mu        sync.RWMutex
	endpoints map[string][]string
}

func NewStaticResolver() *StaticResolver {
	return &StaticResolver{endpoints: make(map[string][]string)}
}

// Set replaces the endpoints for did.
func (r *StaticResolver) Set(did string, endpoints []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.endpoints[did] = slices.Clone(endpoints)
}

func (r *StaticResolver) Endpoints(_ context.Context, did string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	endpoints, ok := r.endpoints[did]
	if !ok || len(endpoints) == 0 {
		return nil, dwn.NewStoreError(dwn.ErrorNotFound, "resolve", "no dwn endpoints for "+did, nil)
	}
	return slices.Clone(endpoints), nil
}

var _ Resolver = (*StaticResolver)(nil)
