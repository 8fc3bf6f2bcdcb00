package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/hugh/prompthub/internal/database/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PermissionStore struct {
	db *gorm.DB
}

func NewPermissionStore(db *gorm.DB) *PermissionStore {
	return &PermissionStore{db: db}
}

func (r *PermissionStore) WithTx(tx *gorm.DB) *PermissionStore {
	return &PermissionStore{db: tx}
}

// EnsureResources inserts any missing resource names and leaves existing
// rows untouched.
func (r *PermissionStore) EnsureResources(ctx context.Context, names []string) error {
	if len(names) == 0 {
		return nil
	}
	resources := make([]models.Resource, 0, len(names))
	for _, name := range names {
		resources = append(resources, models.Resource{Name: name})
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).
		Create(&resources).Error
	return translate(err)
}

// ResourcesByName resolves names to resources. Unknown names are absent from
// the result.
func (r *PermissionStore) ResourcesByName(ctx context.Context, names []string) ([]models.Resource, error) {
	var resources []models.Resource
	if len(names) == 0 {
		return resources, nil
	}
	if err := r.db.WithContext(ctx).Where("name IN ?", names).Find(&resources).Error; err != nil {
		return nil, translate(err)
	}
	return resources, nil
}

// ListForAccount returns the account's grants with their resources loaded.
func (r *PermissionStore) ListForAccount(ctx context.Context, accountID uuid.UUID) ([]models.Permission, error) {
	var permissions []models.Permission
	err := r.db.WithContext(ctx).
		Preload("Resource").
		Where("account_id = ?", accountID).
		Order("resource_id ASC").
		Find(&permissions).Error
	if err != nil {
		return nil, translate(err)
	}
	return permissions, nil
}

// GrantedNames lists the resource names granted to an account, sorted.
func (r *PermissionStore) GrantedNames(ctx context.Context, accountID uuid.UUID) ([]string, error) {
	names := []string{}
	err := r.db.WithContext(ctx).
		Model(&models.Permission{}).
		Joins("JOIN resources ON resources.id = permissions.resource_id").
		Where("permissions.account_id = ?", accountID).
		Order("resources.name ASC").
		Pluck("resources.name", &names).Error
	if err != nil {
		return nil, translate(err)
	}
	return names, nil
}

// Has reports whether the account holds the named resource.
func (r *PermissionStore) Has(ctx context.Context, accountID uuid.UUID, name string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Permission{}).
		Joins("JOIN resources ON resources.id = permissions.resource_id").
		Where("permissions.account_id = ? AND resources.name = ?", accountID, name).
		Count(&count).Error
	if err != nil {
		return false, translate(err)
	}
	return count > 0, nil
}

// Insert grants resourceIDs to the account. Pairs that already exist are
// skipped, so the call is idempotent.
func (r *PermissionStore) Insert(ctx context.Context, accountID uuid.UUID, resourceIDs []uint) error {
	if len(resourceIDs) == 0 {
		return nil
	}
	rows := make([]models.Permission, 0, len(resourceIDs))
	for _, id := range resourceIDs {
		rows = append(rows, models.Permission{AccountID: accountID, ResourceID: id})
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rows).Error
	return translate(err)
}

// Delete revokes resourceIDs from the account and returns how many grants
// were removed.
func (r *PermissionStore) Delete(ctx context.Context, accountID uuid.UUID, resourceIDs []uint) (int64, error) {
	if len(resourceIDs) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Where("account_id = ? AND resource_id IN ?", accountID, resourceIDs).
		Delete(&models.Permission{})
	return result.RowsAffected, translate(result.Error)
}
