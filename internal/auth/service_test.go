package auth_test

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hugh/prompthub/internal/apperr"
	"github.com/hugh/prompthub/internal/auth"
	"github.com/hugh/prompthub/internal/contract"
	"github.com/hugh/prompthub/internal/credential"
	"github.com/hugh/prompthub/internal/database/models"
	"github.com/hugh/prompthub/internal/permission"
	"github.com/hugh/prompthub/internal/store"
	"github.com/hugh/prompthub/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func activationToken(t *testing.T, env *testutil.Env) string {
	t.Helper()
	link, err := url.Parse(env.Mailer.Last(t).ActivationURL)
	require.NoError(t, err)
	token := link.Query().Get("token")
	require.NotEmpty(t, token)
	return token
}

func TestService_SignupActivateLogin(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	start := env.Clock.Now()

	result, err := env.Auth.Signup(ctx, auth.SignupInput{Email: "alice@example.com", Password: "P@ssw0rd1"})
	require.NoError(t, err)
	assert.Equal(t, models.ActivationPending, result.Account.ActivationState)
	assert.Equal(t, start.Add(time.Hour), result.ActivationExpiresAt)

	msg := env.Mailer.Last(t)
	assert.Equal(t, "alice@example.com", msg.To)
	assert.Equal(t, "1 hour", msg.Lifetime)
	assert.Equal(t, start.Add(time.Hour), msg.ExpiresAt)

	token := activationToken(t, env)
	claims, err := env.Tokens.Verify(token, "")
	require.NoError(t, err)
	assert.Equal(t, auth.TokenTypeActivation, claims.Type)
	assert.Equal(t, start.Add(time.Hour).Unix(), claims.ExpiresAt.Unix())

	activated, err := env.Auth.Activate(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, models.ActivationActive, activated.ActivationState)
	require.NotNil(t, activated.ActivatedAt)
	assert.True(t, activated.ActivatedAt.Equal(start))

	session, err := env.Auth.Login(ctx, "alice@example.com", "P@ssw0rd1")
	require.NoError(t, err)
	assert.Equal(t, result.Account.ID, session.AccountID)
	assert.Equal(t, start.Add(14*24*time.Hour), session.ExpiresAt)
	assert.Equal(t, "2 weeks", session.Lifetime)

	resolved, err := env.Authenticator.ResolveActiveAccount(ctx, session.Token)
	require.NoError(t, err)
	assert.Equal(t, result.Account.ID, resolved.ID)
}

func TestService_Signup(t *testing.T) {
	ctx := context.Background()

	t.Run("normalizes email and grants user role", func(t *testing.T) {
		env := testutil.NewEnv(t)

		result, err := env.Auth.Signup(ctx, auth.SignupInput{Email: "  Bob@Example.COM ", Password: testutil.TestPassword})
		require.NoError(t, err)
		assert.Equal(t, "bob@example.com", result.Account.Email)
		assert.Nil(t, result.Contract)

		roles, err := env.Permissions.Show(ctx, result.Account.ID, result.Account.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{permission.RoleUser}, roles)
	})

	t.Run("stores a hash, never the password", func(t *testing.T) {
		env := testutil.NewEnv(t)

		result, err := env.Auth.Signup(ctx, auth.SignupInput{Email: "hash@example.com", Password: testutil.TestPassword})
		require.NoError(t, err)

		stored, err := env.Store.Accounts.FindByID(ctx, result.Account.ID)
		require.NoError(t, err)
		assert.NotEqual(t, testutil.TestPassword, stored.PasswordHash)
		assert.True(t, auth.CheckPassword(testutil.TestPassword, stored.PasswordHash))
	})

	t.Run("duplicate email", func(t *testing.T) {
		env := testutil.NewEnv(t)

		_, err := env.Auth.Signup(ctx, auth.SignupInput{Email: "dup@example.com", Password: testutil.TestPassword})
		require.NoError(t, err)

		_, err = env.Auth.Signup(ctx, auth.SignupInput{Email: "DUP@example.com", Password: testutil.TestPassword})
		assert.ErrorIs(t, err, auth.ErrDuplicateEmail)
		assert.Equal(t, apperr.KindDuplicate, apperr.KindOf(err))
		assert.Len(t, env.Mailer.Messages(), 1)
	})

	t.Run("invalid credentials", func(t *testing.T) {
		env := testutil.NewEnv(t)

		_, err := env.Auth.Signup(ctx, auth.SignupInput{Email: "not-an-email", Password: testutil.TestPassword})
		assert.ErrorIs(t, err, credential.ErrEmailInvalidFormat)

		_, err = env.Auth.Signup(ctx, auth.SignupInput{Email: "", Password: testutil.TestPassword})
		assert.Equal(t, apperr.KindBadArgument, apperr.KindOf(err))

		_, err = env.Auth.Signup(ctx, auth.SignupInput{Email: "weak@example.com", Password: "password"})
		assert.ErrorIs(t, err, credential.ErrPasswordInvalidFormat)

		_, err = env.Auth.Signup(ctx, auth.SignupInput{Email: "phone@example.com", Password: testutil.TestPassword, Phone: "12"})
		assert.ErrorIs(t, err, credential.ErrPhoneInvalidFormat)

		assert.Empty(t, env.Mailer.Messages())
	})

	t.Run("admin signup creates contract", func(t *testing.T) {
		env := testutil.NewEnv(t)

		result, err := env.Auth.Signup(ctx, auth.SignupInput{
			Email:          "owner@example.com",
			Password:       testutil.TestPassword,
			CreateContract: true,
		})
		require.NoError(t, err)
		require.NotNil(t, result.Contract)
		assert.Equal(t, result.Account.ID, result.Contract.OwnerID)
		assert.Equal(t, models.DefaultMaxMemberCount, result.Contract.MaxMemberCount)

		roles, err := env.Permissions.Show(ctx, result.Account.ID, result.Account.ID)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{permission.RoleUser, permission.RoleContract}, roles)
		assert.NotContains(t, roles, permission.RolePermission)
	})

	t.Run("member signup joins contract", func(t *testing.T) {
		env := testutil.NewEnv(t)
		owner := env.ActiveAccount(t)
		c := env.CreateContract(t, owner, 2)

		result, err := env.Auth.Signup(ctx, auth.SignupInput{
			Email:      "member@example.com",
			Password:   testutil.TestPassword,
			ContractID: &c.ID,
			InvitedBy:  &owner.ID,
		})
		require.NoError(t, err)

		member, err := env.Contracts.ShowMember(ctx, c.ID, result.Account.ID)
		require.NoError(t, err)
		assert.Equal(t, "member@example.com", member.Email)
	})

	t.Run("member signup over capacity rolls back the account", func(t *testing.T) {
		env := testutil.NewEnv(t)
		owner := env.ActiveAccount(t)
		c := env.CreateContract(t, owner, 1)
		env.AddMember(t, c, env.ActiveAccount(t))

		_, err := env.Auth.Signup(ctx, auth.SignupInput{
			Email:      "late@example.com",
			Password:   testutil.TestPassword,
			ContractID: &c.ID,
			InvitedBy:  &owner.ID,
		})
		assert.ErrorIs(t, err, contract.ErrCapacityExceeded)

		_, err = env.Store.Accounts.FindByEmail(ctx, "late@example.com", "")
		assert.ErrorIs(t, err, store.ErrNotFound)
		assert.Empty(t, env.Mailer.Messages())
	})

	t.Run("member signup into unknown contract rolls back", func(t *testing.T) {
		env := testutil.NewEnv(t)
		admin := env.ActiveAccount(t, permission.RoleAdmin)
		missing := uuid.New()

		_, err := env.Auth.Signup(ctx, auth.SignupInput{
			Email:      "ghost@example.com",
			Password:   testutil.TestPassword,
			ContractID: &missing,
			InvitedBy:  &admin.ID,
		})
		assert.ErrorIs(t, err, contract.ErrContractNotFound)

		_, err = env.Store.Accounts.FindByEmail(ctx, "ghost@example.com", "")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("member signup without an inviter is forbidden", func(t *testing.T) {
		env := testutil.NewEnv(t)
		c := env.CreateContract(t, env.ActiveAccount(t), 2)

		_, err := env.Auth.Signup(ctx, auth.SignupInput{
			Email:      "stranger@example.com",
			Password:   testutil.TestPassword,
			ContractID: &c.ID,
		})
		assert.ErrorIs(t, err, auth.ErrInviterRequired)
		assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

		_, err = env.Store.Accounts.FindByEmail(ctx, "stranger@example.com", "")
		assert.ErrorIs(t, err, store.ErrNotFound)
		members, err := env.Contracts.ListMembers(ctx, c.ID)
		require.NoError(t, err)
		assert.Empty(t, members)
	})

	t.Run("member signup by another tenant's owner is forbidden", func(t *testing.T) {
		env := testutil.NewEnv(t)
		c := env.CreateContract(t, env.ActiveAccount(t), 2)
		other := env.ActiveAccount(t, permission.RoleContract)
		env.CreateContract(t, other, 2)

		_, err := env.Auth.Signup(ctx, auth.SignupInput{
			Email:      "intruder@example.com",
			Password:   testutil.TestPassword,
			ContractID: &c.ID,
			InvitedBy:  &other.ID,
		})
		assert.ErrorIs(t, err, contract.ErrNotContractOwner)

		_, err = env.Store.Accounts.FindByEmail(ctx, "intruder@example.com", "")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("admin may sign members up into any contract", func(t *testing.T) {
		env := testutil.NewEnv(t)
		c := env.CreateContract(t, env.ActiveAccount(t), 2)
		admin := env.ActiveAccount(t, permission.RoleAdmin)

		result, err := env.Auth.Signup(ctx, auth.SignupInput{
			Email:      "placed@example.com",
			Password:   testutil.TestPassword,
			ContractID: &c.ID,
			InvitedBy:  &admin.ID,
		})
		require.NoError(t, err)

		_, err = env.Contracts.ShowMember(ctx, c.ID, result.Account.ID)
		assert.NoError(t, err)
	})

	t.Run("contract id and create contract conflict", func(t *testing.T) {
		env := testutil.NewEnv(t)
		id := uuid.New()

		_, err := env.Auth.Signup(ctx, auth.SignupInput{
			Email:          "both@example.com",
			Password:       testutil.TestPassword,
			ContractID:     &id,
			CreateContract: true,
		})
		assert.ErrorIs(t, err, auth.ErrConflictingSignup)
	})

	t.Run("mail failure keeps the account", func(t *testing.T) {
		env := testutil.NewEnv(t)
		env.Mailer.Err = errors.New("queue unavailable")

		result, err := env.Auth.Signup(ctx, auth.SignupInput{Email: "nomail@example.com", Password: testutil.TestPassword})
		require.NoError(t, err)

		stored, err := env.Store.Accounts.FindByID(ctx, result.Account.ID)
		require.NoError(t, err)
		assert.Equal(t, models.ActivationPending, stored.ActivationState)
	})
}

func TestService_Activate(t *testing.T) {
	ctx := context.Background()

	t.Run("second activation fails and changes nothing", func(t *testing.T) {
		env := testutil.NewEnv(t)
		_, err := env.Auth.Signup(ctx, auth.SignupInput{Email: "twice@example.com", Password: testutil.TestPassword})
		require.NoError(t, err)
		token := activationToken(t, env)

		first, err := env.Auth.Activate(ctx, token)
		require.NoError(t, err)

		env.Clock.Advance(10 * time.Minute)
		_, err = env.Auth.Activate(ctx, token)
		assert.ErrorIs(t, err, auth.ErrAlreadyActive)
		assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

		stored, err := env.Store.Accounts.FindByID(ctx, first.ID)
		require.NoError(t, err)
		assert.Equal(t, models.ActivationActive, stored.ActivationState)
		require.NotNil(t, stored.ActivatedAt)
		assert.True(t, stored.ActivatedAt.Equal(*first.ActivatedAt))
		assert.Len(t, env.Mailer.Messages(), 1)
	})

	t.Run("expired token", func(t *testing.T) {
		env := testutil.NewEnv(t)
		result, err := env.Auth.Signup(ctx, auth.SignupInput{Email: "slow@example.com", Password: testutil.TestPassword})
		require.NoError(t, err)
		token := activationToken(t, env)

		env.Clock.Advance(time.Hour)
		_, err = env.Auth.Activate(ctx, token)
		assert.ErrorIs(t, err, auth.ErrTokenExpired)

		stored, err := env.Store.Accounts.FindByID(ctx, result.Account.ID)
		require.NoError(t, err)
		assert.Equal(t, models.ActivationPending, stored.ActivationState)
	})

	t.Run("api token cannot activate", func(t *testing.T) {
		env := testutil.NewEnv(t)
		pending := env.CreateAccount(t, models.ActivationPending)

		_, err := env.Auth.Activate(ctx, env.APIToken(t, pending))
		assert.ErrorIs(t, err, auth.ErrUnauthenticated)
	})

	t.Run("garbage token", func(t *testing.T) {
		env := testutil.NewEnv(t)

		_, err := env.Auth.Activate(ctx, "garbage")
		assert.ErrorIs(t, err, auth.ErrUnauthenticated)
	})
}

func TestService_Login(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()

	active := env.ActiveAccount(t)
	pending := env.CreateAccount(t, models.ActivationPending)

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"wrong password", active.Email, "Wr0ng!pass"},
		{"unknown email", "nobody@example.com", testutil.TestPassword},
		{"pending account", pending.Email, testutil.TestPassword},
		{"malformed email", "nobody", testutil.TestPassword},
		{"empty password", active.Email, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session, err := env.Auth.Login(ctx, tt.email, tt.password)
			assert.Nil(t, session)
			assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
		})
	}

	t.Run("success", func(t *testing.T) {
		session, err := env.Auth.Login(ctx, active.Email, testutil.TestPassword)
		require.NoError(t, err)
		assert.Equal(t, active.ID, session.AccountID)
		assert.NotEmpty(t, session.Token)
	})
}

func TestService_ChangePassword(t *testing.T) {
	ctx := context.Background()
	const newPassword = "N3w!Passw0rd"

	t.Run("wrong current password writes nothing", func(t *testing.T) {
		env := testutil.NewEnv(t)
		account := env.ActiveAccount(t)

		err := env.Auth.ChangePassword(ctx, account.ID, "Wr0ng!pass", newPassword)
		assert.ErrorIs(t, err, auth.ErrIncorrectPassword)
		assert.Equal(t, apperr.KindUnauthenticated, apperr.KindOf(err))

		_, err = env.Auth.Login(ctx, account.Email, testutil.TestPassword)
		assert.NoError(t, err)
	})

	t.Run("weak new password", func(t *testing.T) {
		env := testutil.NewEnv(t)
		account := env.ActiveAccount(t)

		err := env.Auth.ChangePassword(ctx, account.ID, testutil.TestPassword, "weak")
		assert.ErrorIs(t, err, credential.ErrPasswordInvalidFormat)
	})

	t.Run("missing current password", func(t *testing.T) {
		env := testutil.NewEnv(t)
		account := env.ActiveAccount(t)

		err := env.Auth.ChangePassword(ctx, account.ID, "", newPassword)
		assert.ErrorIs(t, err, credential.ErrPasswordMissing)
	})

	t.Run("success", func(t *testing.T) {
		env := testutil.NewEnv(t)
		account := env.ActiveAccount(t)

		require.NoError(t, env.Auth.ChangePassword(ctx, account.ID, testutil.TestPassword, newPassword))

		_, err := env.Auth.Login(ctx, account.Email, testutil.TestPassword)
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
		_, err = env.Auth.Login(ctx, account.Email, newPassword)
		assert.NoError(t, err)
	})

	t.Run("unknown account", func(t *testing.T) {
		env := testutil.NewEnv(t)

		err := env.Auth.ChangePassword(ctx, uuid.New(), testutil.TestPassword, newPassword)
		assert.ErrorIs(t, err, auth.ErrAccountNotFound)
	})
}

func TestService_UpdateProfile(t *testing.T) {
	env := testutil.NewEnv(t)
	ctx := context.Background()
	account := env.ActiveAccount(t)

	updated, err := env.Auth.UpdateProfile(ctx, account.ID, "Alice", "+1 650-253-0000")
	require.NoError(t, err)
	assert.Equal(t, "Alice", updated.Name)
	assert.Equal(t, "+16502530000", updated.Phone)

	_, err = env.Auth.UpdateProfile(ctx, account.ID, "Alice", "not a phone")
	assert.ErrorIs(t, err, credential.ErrPhoneInvalidFormat)

	_, err = env.Auth.UpdateProfile(ctx, uuid.New(), "Ghost", "")
	assert.ErrorIs(t, err, auth.ErrAccountNotFound)
}
