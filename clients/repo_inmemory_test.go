package clients_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/feedback-mcp-gateway/clients"
	"github.com/jrsteele09/feedback-mcp-gateway/internal/errors"
	"github.com/stretchr/testify/require"
)

func TestInMemoryRepo(t *testing.T) {
	repo := clients.NewInMemoryRepo()

	t.Run("get unknown", func(t *testing.T) {
		_, err := repo.Get("nope")
		require.ErrorIs(t, err, errors.ErrNotFound)
	})

	t.Run("upsert requires id", func(t *testing.T) {
		require.Error(t, repo.Upsert(&clients.Client{}))
	})

	t.Run("stored copy is isolated", func(t *testing.T) {
		c := &clients.Client{ID: "c1", RedirectURIs: []string{"https://a.example/cb"}, CreatedAt: time.Now()}
		require.NoError(t, repo.Upsert(c))
		c.RedirectURIs[0] = "https://evil.example/cb"

		got, err := repo.Get("c1")
		require.NoError(t, err)
		require.Equal(t, []string{"https://a.example/cb"}, got.RedirectURIs)

		got.RedirectURIs[0] = "https://evil.example/cb"
		again, err := repo.Get("c1")
		require.NoError(t, err)
		require.True(t, again.HasRedirectURI("https://a.example/cb"))
	})

	t.Run("list ordered by creation", func(t *testing.T) {
		require.NoError(t, repo.Upsert(&clients.Client{ID: "c0", CreatedAt: time.Now().Add(-time.Hour)}))
		list, err := repo.List()
		require.NoError(t, err)
		require.Len(t, list, 2)
		require.Equal(t, "c0", list[0].ID)
	})
}

func TestClientSecret(t *testing.T) {
	c := &clients.Client{ID: "c"}
	require.True(t, c.IsPublic())
	require.False(t, c.CheckSecret(""))

	require.NoError(t, c.SetSecret("s3cret"))
	require.False(t, c.IsPublic())
	require.True(t, c.CheckSecret("s3cret"))
	require.False(t, c.CheckSecret("wrong"))
}
