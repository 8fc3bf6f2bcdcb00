// Package contract manages tenants and their member lists. Role gates
// (contract, user or admin) are applied by callers; this package enforces
// ownership, tenant isolation and the member cap.
package contract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hugh/prompthub/internal/apperr"
	"github.com/hugh/prompthub/internal/database/models"
	"github.com/hugh/prompthub/internal/permission"
	"github.com/hugh/prompthub/internal/store"
)

var (
	ErrContractNotFound   = apperr.NotFound("contract")
	ErrMembershipNotFound = apperr.NotFound("membership")
	ErrAccountNotFound    = apperr.NotFound("account")
	ErrContractExists     = apperr.Duplicate("contract").WithDetails(map[string]string{"field": "owner_id"})
	ErrAlreadyMember      = apperr.Duplicate("membership")
	ErrCapacityExceeded   = apperr.New(apperr.KindCapacityExceeded, "CAPACITY_EXCEEDED", "contract member limit reached")
	ErrInvalidMaxMembers  = apperr.BadArgument("INVALID_MAX_MEMBERS", "max_member_count must be at least 1")
	ErrBelowMemberCount   = apperr.New(apperr.KindConflict, "BELOW_MEMBER_COUNT", "max_member_count is below the current member count")
	ErrNoOwnedContract    = apperr.Forbidden("NO_CONTRACT", "caller does not own a contract")
	ErrOutsideContract    = apperr.Forbidden("OUTSIDE_CONTRACT", "account belongs to a different contract")
	ErrNotContractOwner   = apperr.Forbidden("NOT_CONTRACT_OWNER", "caller does not own this contract")
)

// RoleChecker is the slice of the permission engine this package uses.
type RoleChecker interface {
	HasAnyRole(ctx context.Context, accountID uuid.UUID, roles ...string) (bool, error)
}

var _ RoleChecker = (*permission.Engine)(nil)

type Service struct {
	store      *store.Store
	roles      RoleChecker
	defaultMax int
	logger     *slog.Logger
}

func NewService(st *store.Store, roles RoleChecker, defaultMaxMembers int, logger *slog.Logger) *Service {
	if defaultMaxMembers < 1 {
		defaultMaxMembers = models.DefaultMaxMemberCount
	}
	return &Service{
		store:      st,
		roles:      roles,
		defaultMax: defaultMaxMembers,
		logger:     logger,
	}
}

// CreateContract makes ownerID the owner of a new contract. A zero
// maxMembers uses the configured default.
func (s *Service) CreateContract(ctx context.Context, ownerID uuid.UUID, maxMembers int) (*models.Contract, error) {
	var contract *models.Contract
	err := s.store.Transaction(ctx, func(tx *store.Store) error {
		c, err := s.createContract(ctx, tx, ownerID, maxMembers)
		contract = c
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("contract created", "contract_id", contract.ID, "owner_id", ownerID)
	return contract, nil
}

// CreateContractTx creates a contract with the default cap inside tx.
func (s *Service) CreateContractTx(ctx context.Context, tx *store.Store, ownerID uuid.UUID) (*models.Contract, error) {
	return s.createContract(ctx, tx, ownerID, 0)
}

func (s *Service) createContract(ctx context.Context, tx *store.Store, ownerID uuid.UUID, maxMembers int) (*models.Contract, error) {
	if maxMembers == 0 {
		maxMembers = s.defaultMax
	}
	if maxMembers < 1 {
		return nil, ErrInvalidMaxMembers
	}

	if _, err := tx.Accounts.FindByID(ctx, ownerID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("finding owner: %w", err)
	}
	if _, err := tx.Contracts.FindByOwner(ctx, ownerID); err == nil {
		return nil, ErrContractExists
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("checking existing contract: %w", err)
	}

	contract := &models.Contract{OwnerID: ownerID, MaxMemberCount: maxMembers}
	if err := tx.Contracts.Create(ctx, contract); err != nil {
		if store.IsDuplicate(err) {
			return nil, ErrContractExists
		}
		return nil, fmt.Errorf("creating contract: %w", err)
	}
	return contract, nil
}

// AddMember links accountID to the contract, failing with
// ErrCapacityExceeded once the cap is reached.
func (s *Service) AddMember(ctx context.Context, contractID, accountID uuid.UUID) (*models.ContractMembership, error) {
	var membership *models.ContractMembership
	err := s.store.Transaction(ctx, func(tx *store.Store) error {
		m, err := s.AddMemberTx(ctx, tx, contractID, accountID)
		membership = m
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("member added", "contract_id", contractID, "account_id", accountID)
	return membership, nil
}

// AddMemberTx is AddMember inside an existing transaction. The contract row
// is locked first so concurrent adds cannot both pass the capacity check.
func (s *Service) AddMemberTx(ctx context.Context, tx *store.Store, contractID, accountID uuid.UUID) (*models.ContractMembership, error) {
	contract, err := tx.Contracts.Lock(ctx, contractID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrContractNotFound
		}
		return nil, fmt.Errorf("locking contract: %w", err)
	}

	if _, err := tx.Accounts.FindByID(ctx, accountID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("finding account: %w", err)
	}

	if _, err := tx.Contracts.FindMembership(ctx, contractID, accountID); err == nil {
		return nil, ErrAlreadyMember
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("checking membership: %w", err)
	}

	count, err := tx.Contracts.CountMembers(ctx, contractID)
	if err != nil {
		return nil, fmt.Errorf("counting members: %w", err)
	}
	if count >= int64(contract.MaxMemberCount) {
		return nil, ErrCapacityExceeded.WithDetails(map[string]int{
			"max_member_count": contract.MaxMemberCount,
		})
	}

	membership, err := tx.Contracts.AddMember(ctx, contractID, accountID)
	if err != nil {
		if store.IsDuplicate(err) {
			return nil, ErrAlreadyMember
		}
		return nil, fmt.Errorf("adding member: %w", err)
	}
	return membership, nil
}

// RemoveMember deletes the membership. The account itself is kept.
func (s *Service) RemoveMember(ctx context.Context, contractID, accountID uuid.UUID) error {
	if err := s.store.Contracts.RemoveMember(ctx, contractID, accountID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrMembershipNotFound
		}
		return fmt.Errorf("removing member: %w", err)
	}

	s.logger.Info("member removed", "contract_id", contractID, "account_id", accountID)
	return nil
}

func (s *Service) ListMembers(ctx context.Context, contractID uuid.UUID) ([]models.Account, error) {
	if _, err := s.GetContract(ctx, contractID); err != nil {
		return nil, err
	}
	members, err := s.store.Contracts.ListMembers(ctx, contractID)
	if err != nil {
		return nil, fmt.Errorf("listing members: %w", err)
	}
	return members, nil
}

func (s *Service) ShowMember(ctx context.Context, contractID, accountID uuid.UUID) (*models.Account, error) {
	membership, err := s.store.Contracts.FindMembership(ctx, contractID, accountID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrMembershipNotFound
		}
		return nil, fmt.Errorf("finding membership: %w", err)
	}
	if membership.Account == nil {
		return nil, ErrMembershipNotFound
	}
	return membership.Account, nil
}

func (s *Service) GetContract(ctx context.Context, contractID uuid.UUID) (*models.Contract, error) {
	contract, err := s.store.Contracts.FindByID(ctx, contractID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrContractNotFound
		}
		return nil, fmt.Errorf("finding contract: %w", err)
	}
	return contract, nil
}

// ContractOf returns the contract ownerID owns, or ErrNoOwnedContract.
func (s *Service) ContractOf(ctx context.Context, ownerID uuid.UUID) (*models.Contract, error) {
	contract, err := s.store.Contracts.FindByOwner(ctx, ownerID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrNoOwnedContract
		}
		return nil, fmt.Errorf("finding contract: %w", err)
	}
	return contract, nil
}

// Authorize loads the contract and checks that callerID may manage it:
// admins manage every contract, everyone else only the one they own.
func (s *Service) Authorize(ctx context.Context, callerID, contractID uuid.UUID) (*models.Contract, error) {
	contract, err := s.GetContract(ctx, contractID)
	if err != nil {
		return nil, err
	}
	if contract.OwnerID == callerID {
		return contract, nil
	}

	isAdmin, err := s.roles.HasAnyRole(ctx, callerID, permission.RoleAdmin)
	if err != nil {
		return nil, err
	}
	if !isAdmin {
		return nil, ErrNotContractOwner
	}
	return contract, nil
}

// UpdateMaxMemberCount changes the cap. The new cap may not drop below the
// current member count.
func (s *Service) UpdateMaxMemberCount(ctx context.Context, callerID, contractID uuid.UUID, maxMembers int) (*models.Contract, error) {
	if maxMembers < 1 {
		return nil, ErrInvalidMaxMembers
	}
	if _, err := s.Authorize(ctx, callerID, contractID); err != nil {
		return nil, err
	}

	var updated *models.Contract
	err := s.store.Transaction(ctx, func(tx *store.Store) error {
		contract, err := tx.Contracts.Lock(ctx, contractID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrContractNotFound
			}
			return fmt.Errorf("locking contract: %w", err)
		}

		count, err := tx.Contracts.CountMembers(ctx, contractID)
		if err != nil {
			return fmt.Errorf("counting members: %w", err)
		}
		if int64(maxMembers) < count {
			return ErrBelowMemberCount.WithDetails(map[string]int64{"member_count": count})
		}

		if err := tx.Contracts.UpdateMaxMemberCount(ctx, contractID, maxMembers); err != nil {
			return fmt.Errorf("updating contract: %w", err)
		}
		contract.MaxMemberCount = maxMembers
		updated = contract
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("contract cap updated", "contract_id", contractID, "caller_id", callerID, "max_member_count", maxMembers)
	return updated, nil
}

// DestroyContract deletes the contract and its memberships. The owner and
// member accounts are kept.
func (s *Service) DestroyContract(ctx context.Context, callerID, contractID uuid.UUID) error {
	if _, err := s.Authorize(ctx, callerID, contractID); err != nil {
		return err
	}

	err := s.store.Transaction(ctx, func(tx *store.Store) error {
		if err := tx.Contracts.Delete(ctx, contractID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrContractNotFound
			}
			return fmt.Errorf("deleting contract: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("contract destroyed", "contract_id", contractID, "caller_id", callerID)
	return nil
}
