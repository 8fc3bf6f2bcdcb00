package store_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hugh/prompthub/internal/database/models"
	"github.com/hugh/prompthub/internal/store"
	"github.com/hugh/prompthub/internal/testutil"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newAccount(email string, state models.ActivationState) *models.Account {
	return &models.Account{Email: email, PasswordHash: "hash", ActivationState: state}
}

func TestIsDuplicate(t *testing.T) {
	assert.True(t, store.IsDuplicate(gorm.ErrDuplicatedKey))
	assert.True(t, store.IsDuplicate(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})))
	assert.False(t, store.IsDuplicate(&pgconn.PgError{Code: "23503"}))
	assert.False(t, store.IsDuplicate(errors.New("boom")))
}

func TestAccountStore(t *testing.T) {
	st := store.New(testutil.SetupTestDB(t))
	ctx := context.Background()

	pending := newAccount("pending@example.com", models.ActivationPending)
	require.NoError(t, st.Accounts.Create(ctx, pending))

	t.Run("duplicate email", func(t *testing.T) {
		err := st.Accounts.Create(ctx, newAccount("pending@example.com", models.ActivationPending))
		assert.ErrorIs(t, err, store.ErrDuplicate)
	})

	t.Run("find by email filters on state", func(t *testing.T) {
		found, err := st.Accounts.FindByEmail(ctx, "pending@example.com", "")
		require.NoError(t, err)
		assert.Equal(t, pending.ID, found.ID)

		_, err = st.Accounts.FindByEmail(ctx, "pending@example.com", models.ActivationActive)
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("activate flips exactly once", func(t *testing.T) {
		at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

		ok, err := st.Accounts.Activate(ctx, pending.ID, at)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = st.Accounts.Activate(ctx, pending.ID, at.Add(time.Hour))
		require.NoError(t, err)
		assert.False(t, ok)

		found, err := st.Accounts.FindByID(ctx, pending.ID)
		require.NoError(t, err)
		assert.Equal(t, models.ActivationActive, found.ActivationState)
		require.NotNil(t, found.ActivatedAt)
		assert.True(t, found.ActivatedAt.Equal(at))
	})

	t.Run("updates on missing rows", func(t *testing.T) {
		missing := uuid.New()

		assert.ErrorIs(t, st.Accounts.UpdatePasswordHash(ctx, missing, "x"), store.ErrNotFound)
		assert.ErrorIs(t, st.Accounts.UpdateProfile(ctx, missing, "n", ""), store.ErrNotFound)
	})
}

func TestTransaction_RollsBack(t *testing.T) {
	st := store.New(testutil.SetupTestDB(t))
	ctx := context.Background()
	boom := errors.New("boom")

	err := st.Transaction(ctx, func(tx *store.Store) error {
		if err := tx.Accounts.Create(ctx, newAccount("rollback@example.com", models.ActivationPending)); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = st.Accounts.FindByEmail(ctx, "rollback@example.com", "")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestPermissionStore(t *testing.T) {
	st := store.New(testutil.SetupTestDB(t))
	ctx := context.Background()

	require.NoError(t, st.Permissions.EnsureResources(ctx, []string{"user", "admin"}))
	require.NoError(t, st.Permissions.EnsureResources(ctx, []string{"user", "read_prompt"}))

	resources, err := st.Permissions.ResourcesByName(ctx, []string{"user", "read_prompt", "bogus"})
	require.NoError(t, err)
	require.Len(t, resources, 2)

	account := newAccount("perm@example.com", models.ActivationActive)
	require.NoError(t, st.Accounts.Create(ctx, account))

	ids := []uint{resources[0].ID, resources[1].ID}
	require.NoError(t, st.Permissions.Insert(ctx, account.ID, ids))
	require.NoError(t, st.Permissions.Insert(ctx, account.ID, ids))

	names, err := st.Permissions.GrantedNames(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"read_prompt", "user"}, names)

	ok, err := st.Permissions.Has(ctx, account.ID, "user")
	require.NoError(t, err)
	assert.True(t, ok)

	removed, err := st.Permissions.Delete(ctx, account.ID, ids[:1])
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	names, err = st.Permissions.GrantedNames(ctx, account.ID)
	require.NoError(t, err)
	assert.Len(t, names, 1)
}
