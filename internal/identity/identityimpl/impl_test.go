package identityimpl

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gfw-api/story-api/internal/identity"
	"github.com/gfw-api/story-api/pkg/config"
	pkgerrors "github.com/gfw-api/story-api/pkg/errors"
	"github.com/gfw-api/story-api/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *IdentityImpl {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := &config.Config{}
	cfg.Gateway.Url = server.URL

	return New(Opts{
		Config: cfg,
		Logger: logger.New(logger.Opts{}),
	})
}

func TestGetUserByID(t *testing.T) {
	var gotPath string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`{"data":{"id":"1a10d7c6e0a37126611fd7a7","attributes":` +
			`{"name":"Jane","email":"jane@example.com","role":"USER","language":"pt_BR"}}}`))
	})

	user, err := client.GetUserByID(context.Background(), "1a10d7c6e0a37126611fd7a7")
	require.NoError(t, err)

	assert.Equal(t, "/auth/user/1a10d7c6e0a37126611fd7a7", gotPath)
	assert.Equal(t, "1a10d7c6e0a37126611fd7a7", user.ID)
	assert.Equal(t, "jane@example.com", user.Email)
	assert.Equal(t, "pt_BR", user.Language)
}

func TestGetUserByIDNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := client.GetUserByID(context.Background(), "ghost")
	assert.ErrorIs(t, err, identity.ErrUserNotFound)
}

func TestGetUserByIDEmptyDocumentIsNotFound(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{}}`))
	})

	_, err := client.GetUserByID(context.Background(), "ghost")
	assert.ErrorIs(t, err, identity.ErrUserNotFound)
}

func TestGetUserByIDUpstreamFailure(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.GetUserByID(context.Background(), "user-1")
	assert.ErrorIs(t, err, pkgerrors.ErrUpstream)
}
