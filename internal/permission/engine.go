// Package permission decides who may do what. Roles are resource names
// granted per account; every gate in the system is HasRole against one of
// the constants in roles.go.
package permission

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hugh/prompthub/internal/apperr"
	"github.com/hugh/prompthub/internal/database/models"
	"github.com/hugh/prompthub/internal/store"
)

var (
	ErrForbidden       = apperr.Forbidden("FORBIDDEN", "missing required permission")
	ErrAccountNotFound = apperr.NotFound("account")
)

type Engine struct {
	store  *store.Store
	logger *slog.Logger
}

func NewEngine(st *store.Store, logger *slog.Logger) *Engine {
	return &Engine{store: st, logger: logger}
}

// HasRole reports whether the account holds the named role.
func (e *Engine) HasRole(ctx context.Context, accountID uuid.UUID, role string) (bool, error) {
	ok, err := e.store.Permissions.Has(ctx, accountID, role)
	if err != nil {
		return false, fmt.Errorf("checking role %s: %w", role, err)
	}
	return ok, nil
}

// HasAnyRole reports whether the account holds at least one of roles.
func (e *Engine) HasAnyRole(ctx context.Context, accountID uuid.UUID, roles ...string) (bool, error) {
	granted, err := e.store.Permissions.GrantedNames(ctx, accountID)
	if err != nil {
		return false, fmt.Errorf("loading roles: %w", err)
	}
	for _, have := range granted {
		for _, want := range roles {
			if have == want {
				return true, nil
			}
		}
	}
	return false, nil
}

// Require fails with ErrForbidden unless the account holds one of roles.
func (e *Engine) Require(ctx context.Context, accountID uuid.UUID, roles ...string) error {
	ok, err := e.HasAnyRole(ctx, accountID, roles...)
	if err != nil {
		return err
	}
	if !ok {
		return ErrForbidden
	}
	return nil
}

// Grant adds roles to target. The caller must hold the permission role.
// Unknown role names are ignored. Returns target's resulting role set.
func (e *Engine) Grant(ctx context.Context, callerID, targetID uuid.UUID, roles []string) ([]string, error) {
	if err := e.Require(ctx, callerID, RolePermission); err != nil {
		return nil, err
	}

	var granted []string
	err := e.store.Transaction(ctx, func(tx *store.Store) error {
		if err := lockTarget(ctx, tx, targetID); err != nil {
			return err
		}
		if err := e.grant(ctx, tx, targetID, roles); err != nil {
			return err
		}
		names, err := tx.Permissions.GrantedNames(ctx, targetID)
		granted = names
		return err
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("roles granted", "caller_id", callerID, "account_id", targetID, "roles", normalize(roles))
	return granted, nil
}

// ReplaceRoleSet makes target's role set equal to desired, ignoring unknown
// names. Roles already held and still desired are left untouched. Additions
// and removals commit together. The caller must hold the permission role.
func (e *Engine) ReplaceRoleSet(ctx context.Context, callerID, targetID uuid.UUID, desired []string) ([]string, error) {
	if err := e.Require(ctx, callerID, RolePermission); err != nil {
		return nil, err
	}

	var (
		granted        []string
		added, removed int
	)
	err := e.store.Transaction(ctx, func(tx *store.Store) error {
		if err := lockTarget(ctx, tx, targetID); err != nil {
			return err
		}

		resources, err := tx.Permissions.ResourcesByName(ctx, normalize(desired))
		if err != nil {
			return fmt.Errorf("resolving roles: %w", err)
		}
		current, err := tx.Permissions.ListForAccount(ctx, targetID)
		if err != nil {
			return fmt.Errorf("loading current roles: %w", err)
		}

		toAdd, toRemove := diff(resources, current)
		if err := tx.Permissions.Insert(ctx, targetID, toAdd); err != nil {
			return fmt.Errorf("granting roles: %w", err)
		}
		if _, err := tx.Permissions.Delete(ctx, targetID, toRemove); err != nil {
			return fmt.Errorf("revoking roles: %w", err)
		}
		added, removed = len(toAdd), len(toRemove)

		granted, err = tx.Permissions.GrantedNames(ctx, targetID)
		return err
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("role set replaced",
		"caller_id", callerID,
		"account_id", targetID,
		"added", added,
		"removed", removed,
	)
	return granted, nil
}

// diff returns the resource ids in desired but not current, and those in
// current but not desired.
func diff(desired []models.Resource, current []models.Permission) (toAdd, toRemove []uint) {
	want := make(map[uint]struct{}, len(desired))
	for _, r := range desired {
		want[r.ID] = struct{}{}
	}
	have := make(map[uint]struct{}, len(current))
	for _, p := range current {
		have[p.ResourceID] = struct{}{}
		if _, ok := want[p.ResourceID]; !ok {
			toRemove = append(toRemove, p.ResourceID)
		}
	}
	for _, r := range desired {
		if _, ok := have[r.ID]; !ok {
			toAdd = append(toAdd, r.ID)
		}
	}
	return toAdd, toRemove
}

// Revoke removes roles from target. The caller must hold the permission
// role. Names target does not hold are ignored.
func (e *Engine) Revoke(ctx context.Context, callerID, targetID uuid.UUID, roles []string) ([]string, error) {
	if err := e.Require(ctx, callerID, RolePermission); err != nil {
		return nil, err
	}

	var granted []string
	err := e.store.Transaction(ctx, func(tx *store.Store) error {
		if err := lockTarget(ctx, tx, targetID); err != nil {
			return err
		}
		resources, err := tx.Permissions.ResourcesByName(ctx, normalize(roles))
		if err != nil {
			return fmt.Errorf("resolving roles: %w", err)
		}
		ids := make([]uint, 0, len(resources))
		for _, r := range resources {
			ids = append(ids, r.ID)
		}
		if _, err := tx.Permissions.Delete(ctx, targetID, ids); err != nil {
			return fmt.Errorf("revoking roles: %w", err)
		}
		granted, err = tx.Permissions.GrantedNames(ctx, targetID)
		return err
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("roles revoked", "caller_id", callerID, "account_id", targetID, "roles", normalize(roles))
	return granted, nil
}

// Show lists target's roles. Accounts may always inspect themselves; anyone
// else needs the permission role.
func (e *Engine) Show(ctx context.Context, callerID, targetID uuid.UUID) ([]string, error) {
	if callerID != targetID {
		if err := e.Require(ctx, callerID, RolePermission); err != nil {
			return nil, err
		}
	}

	if _, err := e.store.Accounts.FindByID(ctx, targetID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("finding account: %w", err)
	}

	names, err := e.store.Permissions.GrantedNames(ctx, targetID)
	if err != nil {
		return nil, fmt.Errorf("loading roles: %w", err)
	}
	return names, nil
}

// GrantTx grants roles inside an existing transaction without checking a
// caller. Used by signup.
func (e *Engine) GrantTx(ctx context.Context, tx *store.Store, accountID uuid.UUID, roles ...string) error {
	return e.grant(ctx, tx, accountID, roles)
}

// Bootstrap grants roles with no caller check. Only the seed script calls
// it, to create the first holder of the permission role.
func (e *Engine) Bootstrap(ctx context.Context, accountID uuid.UUID, roles ...string) error {
	return e.store.Transaction(ctx, func(tx *store.Store) error {
		if err := lockTarget(ctx, tx, accountID); err != nil {
			return err
		}
		return e.grant(ctx, tx, accountID, roles)
	})
}

// SeedResources makes sure every role in AllRoles exists as a resource.
func (e *Engine) SeedResources(ctx context.Context) error {
	if err := e.store.Permissions.EnsureResources(ctx, AllRoles); err != nil {
		return fmt.Errorf("seeding resources: %w", err)
	}
	return nil
}

func (e *Engine) grant(ctx context.Context, tx *store.Store, accountID uuid.UUID, roles []string) error {
	resources, err := tx.Permissions.ResourcesByName(ctx, normalize(roles))
	if err != nil {
		return fmt.Errorf("resolving roles: %w", err)
	}
	ids := make([]uint, 0, len(resources))
	for _, r := range resources {
		ids = append(ids, r.ID)
	}
	if err := tx.Permissions.Insert(ctx, accountID, ids); err != nil {
		return fmt.Errorf("granting roles: %w", err)
	}
	return nil
}

func lockTarget(ctx context.Context, tx *store.Store, accountID uuid.UUID) error {
	if _, err := tx.Accounts.Lock(ctx, accountID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrAccountNotFound
		}
		return fmt.Errorf("locking account: %w", err)
	}
	return nil
}
