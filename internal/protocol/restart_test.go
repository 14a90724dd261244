package protocol

import (
	"context"
	"net/http"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vctodwn/internal/dwn/did"
	"vctodwn/internal/dwn/messagestore"
	"vctodwn/internal/dwn/models"
	"vctodwn/internal/dwn/node"
	dErrors "vctodwn/pkg/domain-errors"
)

// conflictOnceRemote rejects the first message with 409 and accepts the rest.
type conflictOnceRemote struct {
	calls atomic.Int32
}

func (r *conflictOnceRemote) ProcessMessage(context.Context, string, string, any, []byte) (models.Reply, error) {
	if r.calls.Add(1) == 1 {
		return models.Reply{Status: models.StatusOf(http.StatusConflict)}, nil
	}
	return models.Reply{Status: models.StatusAccepted}, nil
}

func TestEnsureInstalled_RejectedSendIsRepairedAfterRestart(t *testing.T) {
	ctx := context.Background()
	key, err := did.Generate()
	require.NoError(t, err)
	def, err := DefaultDefinition()
	require.NoError(t, err)

	remote := &conflictOnceRemote{}
	resolver := node.NewStaticResolver()
	resolver.Set(key.DID, []string{"https://dwn.example"})
	messages := messagestore.NewInMemoryStore()
	start := func() (Outcome, error) {
		n := node.New(key, messages, node.WithRemote(remote, resolver))
		return NewReconciler(n, key.DID, def, http.StatusOK, WithRemoteCheck(true)).EnsureInstalled(ctx)
	}

	_, err = start()
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeProtocolInstall))

	outcome, err := start()
	require.NoError(t, err)
	assert.Equal(t, OutcomeRemoteRepaired, outcome)
	assert.Equal(t, int32(3), remote.calls.Load())
}
