package authcodes_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jrsteele09/feedback-mcp-gateway/authcodes"
	"github.com/jrsteele09/feedback-mcp-gateway/internal/errors"
	"github.com/stretchr/testify/require"
)

func TestInMemoryRepo(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

	t.Run("consume is single use", func(t *testing.T) {
		repo := authcodes.NewInMemoryRepo()
		require.NoError(t, repo.Upsert(&authcodes.Code{Code: "abc", ClientID: "c", ExpiresAt: now.Add(time.Minute)}))

		c, err := repo.Consume("abc")
		require.NoError(t, err)
		require.Equal(t, "c", c.ClientID)

		_, err = repo.Consume("abc")
		require.ErrorIs(t, err, errors.ErrNotFound)
		_, err = repo.Get("abc")
		require.ErrorIs(t, err, errors.ErrNotFound)
	})

	t.Run("concurrent consume has one winner", func(t *testing.T) {
		repo := authcodes.NewInMemoryRepo()
		require.NoError(t, repo.Upsert(&authcodes.Code{Code: "race", ExpiresAt: now.Add(time.Minute)}))

		var wins atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := repo.Consume("race"); err == nil {
					wins.Add(1)
				}
			}()
		}
		wg.Wait()
		require.Equal(t, int32(1), wins.Load())
	})

	t.Run("delete expired", func(t *testing.T) {
		repo := authcodes.NewInMemoryRepo()
		require.NoError(t, repo.Upsert(&authcodes.Code{Code: "old", ExpiresAt: now.Add(-time.Second)}))
		require.NoError(t, repo.Upsert(&authcodes.Code{Code: "edge", ExpiresAt: now}))
		require.NoError(t, repo.Upsert(&authcodes.Code{Code: "new", ExpiresAt: now.Add(time.Second)}))

		require.Equal(t, 2, repo.DeleteExpired(now))
		require.Equal(t, 1, repo.Len())
		_, err := repo.Get("new")
		require.NoError(t, err)
	})

	t.Run("delete unknown", func(t *testing.T) {
		repo := authcodes.NewInMemoryRepo()
		require.ErrorIs(t, repo.Delete("x"), errors.ErrNotFound)
	})
}
