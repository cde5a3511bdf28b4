package resettokens

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dmitrijs2005/authkeeper/internal/common"
	"github.com/dmitrijs2005/authkeeper/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRepository_MarkUsed(t *testing.T) {
	r := NewMemoryRepository()
	ctx := context.Background()
	exp := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, r.Create(ctx, &models.PasswordResetToken{UserID: "u1", Token: "t1", ExpiresAt: exp}))
	require.NoError(t, r.Create(ctx, &models.PasswordResetToken{UserID: "u1", Token: "t2", ExpiresAt: exp}))

	_, err := r.MarkUsed(ctx, "t2", exp.Add(time.Millisecond))
	assert.ErrorIs(t, err, common.ErrorNotFound, "expired")

	userID, err := r.MarkUsed(ctx, "t1", exp)
	require.NoError(t, err, "valid at exactly expiresAt")
	assert.Equal(t, "u1", userID)

	_, err = r.MarkUsed(ctx, "t1", exp.Add(-time.Hour))
	assert.ErrorIs(t, err, common.ErrorNotFound, "already used")

	_, err = r.MarkUsed(ctx, "absent", exp)
	assert.ErrorIs(t, err, common.ErrorNotFound)

	got, err := r.Find(ctx, "t1")
	require.NoError(t, err)
	assert.True(t, got.IsUsed)
}

func TestMemoryRepository_MarkUsedConcurrently(t *testing.T) {
	r := NewMemoryRepository()
	ctx := context.Background()
	require.NoError(t, r.Create(ctx, &models.PasswordResetToken{UserID: "u1", Token: "t", ExpiresAt: time.Now().Add(time.Hour)}))

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := r.MarkUsed(ctx, "t", time.Now()); err == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, wins.Load())
}

func TestMemoryRepository_DeleteExpired(t *testing.T) {
	r := NewMemoryRepository()
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, r.Create(ctx, &models.PasswordResetToken{UserID: "u1", Token: "old", ExpiresAt: now.Add(-time.Second)}))
	require.NoError(t, r.Create(ctx, &models.PasswordResetToken{UserID: "u1", Token: "new", ExpiresAt: now.Add(time.Hour)}))

	n, err := r.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, err = r.Find(ctx, "old")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}
