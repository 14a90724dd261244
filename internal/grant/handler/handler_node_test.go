package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vctodwn/internal/dwn/did"
	"vctodwn/internal/dwn/messagestore"
	"vctodwn/internal/dwn/models"
	"vctodwn/internal/dwn/node"
	"vctodwn/internal/grant"
	"vctodwn/internal/protocol"
)

type acceptingRemote struct{}

func (acceptingRemote) ProcessMessage(context.Context, string, string, any, []byte) (models.Reply, error) {
	return models.Reply{Status: models.StatusAccepted}, nil
}

func TestHandleAuthorize_ResponseBodiesAgainstEmbeddedNode(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	key, err := did.Generate()
	require.NoError(t, err)
	def, err := protocol.DefaultDefinition()
	require.NoError(t, err)

	resolver := node.NewStaticResolver()
	resolver.Set(key.DID, []string{"https://dwn.example"})
	store := node.New(key, messagestore.NewInMemoryStore(), node.WithRemote(acceptingRemote{}, resolver))

	outcome, err := protocol.NewReconciler(store, key.DID, def, http.StatusOK,
		protocol.WithLogger(logger),
		protocol.WithRemoteCheck(false),
	).EnsureInstalled(ctx)
	require.NoError(t, err)
	require.Equal(t, protocol.OutcomeInstalled, outcome)

	grants, err := grant.NewService(store, key.DID, def, grant.WithLogger(logger))
	require.NoError(t, err)
	router := chi.NewRouter()
	New(grants, logger).Register(router)

	get := func() *httptest.ResponseRecorder {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/authorize?issuerDid=did:web:x", nil))
		return rr
	}

	first := get()
	assert.Equal(t, http.StatusOK, first.Code)
	assert.JSONEq(t, `{
		"message": "You've been granted authorization to store a credential in the Customer's DWN",
		"status": 202,
		"customer": {"code": 202, "detail": "Accepted"}
	}`, first.Body.String())

	second := get()
	assert.Equal(t, http.StatusOK, second.Code)
	assert.JSONEq(t, `{
		"message": "You already have authorization to store a credential in the Customer's DWN",
		"status": 200
	}`, second.Body.String())
}
