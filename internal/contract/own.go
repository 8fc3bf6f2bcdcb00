package contract

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/hugh/prompthub/internal/database/models"
	"github.com/hugh/prompthub/internal/store"
)

// The Own* operations act on the contract the caller owns. They are the
// tenant isolation boundary: a caller without a contract, or a target that
// belongs to another tenant, gets a Forbidden error.

func (s *Service) ListOwnMembers(ctx context.Context, callerID uuid.UUID) ([]models.Account, error) {
	contract, err := s.ContractOf(ctx, callerID)
	if err != nil {
		return nil, err
	}
	return s.ListMembers(ctx, contract.ID)
}

func (s *Service) ShowOwnMember(ctx context.Context, callerID, targetID uuid.UUID) (*models.Account, error) {
	contract, err := s.scopeToOwnContract(ctx, callerID, targetID)
	if err != nil {
		return nil, err
	}
	return s.ShowMember(ctx, contract.ID, targetID)
}

func (s *Service) RemoveOwnMember(ctx context.Context, callerID, targetID uuid.UUID) error {
	contract, err := s.scopeToOwnContract(ctx, callerID, targetID)
	if err != nil {
		return err
	}
	return s.RemoveMember(ctx, contract.ID, targetID)
}

// scopeToOwnContract resolves the caller's contract and checks that target
// is a member of it.
func (s *Service) scopeToOwnContract(ctx context.Context, callerID, targetID uuid.UUID) (*models.Contract, error) {
	contract, err := s.ContractOf(ctx, callerID)
	if err != nil {
		return nil, err
	}

	memberships, err := s.store.Contracts.MembershipsOf(ctx, targetID)
	if err != nil {
		return nil, fmt.Errorf("loading memberships: %w", err)
	}
	if len(memberships) == 0 {
		if _, err := s.store.Accounts.FindByID(ctx, targetID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, ErrAccountNotFound
			}
			return nil, fmt.Errorf("finding account: %w", err)
		}
		return nil, ErrMembershipNotFound
	}
	for _, m := range memberships {
		if m.ContractID == contract.ID {
			return contract, nil
		}
	}
	return nil, ErrOutsideContract
}
