package auth

import (
	"context"

	"github.com/google/uuid"
	"github.com/hugh/prompthub/internal/database/models"
	"github.com/hugh/prompthub/internal/mail"
	"github.com/hugh/prompthub/internal/store"
)

// AccountFinder looks accounts up by id. Satisfied by *store.AccountStore.
type AccountFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
}

// Mailer delivers account emails. Implementations must bound their own
// latency; a failure never undoes a committed signup.
type Mailer interface {
	Send(ctx context.Context, msg mail.Message) error
}

// RoleGranter grants roles inside a signup transaction without a caller
// check. Satisfied by *permission.Engine.
type RoleGranter interface {
	GrantTx(ctx context.Context, tx *store.Store, accountID uuid.UUID, roles ...string) error
}

// MembershipWriter creates contracts and memberships inside a signup
// transaction. Satisfied by *contract.Service.
type MembershipWriter interface {
	Authorize(ctx context.Context, callerID, contractID uuid.UUID) (*models.Contract, error)
	CreateContractTx(ctx context.Context, tx *store.Store, ownerID uuid.UUID) (*models.Contract, error)
	AddMemberTx(ctx context.Context, tx *store.Store, contractID, accountID uuid.UUID) (*models.ContractMembership, error)
}

var _ AccountFinder = (*store.AccountStore)(nil)
