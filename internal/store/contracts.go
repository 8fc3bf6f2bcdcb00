package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/hugh/prompthub/internal/database/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ContractStore struct {
	db *gorm.DB
}

func NewContractStore(db *gorm.DB) *ContractStore {
	return &ContractStore{db: db}
}

func (r *ContractStore) WithTx(tx *gorm.DB) *ContractStore {
	return &ContractStore{db: tx}
}

func (r *ContractStore) Create(ctx context.Context, contract *models.Contract) error {
	return translate(r.db.WithContext(ctx).Create(contract).Error)
}

func (r *ContractStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Contract, error) {
	var contract models.Contract
	if err := r.db.WithContext(ctx).First(&contract, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &contract, nil
}

func (r *ContractStore) FindByOwner(ctx context.Context, ownerID uuid.UUID) (*models.Contract, error) {
	var contract models.Contract
	if err := r.db.WithContext(ctx).First(&contract, "owner_id = ?", ownerID).Error; err != nil {
		return nil, translate(err)
	}
	return &contract, nil
}

// Lock reads the contract with a row lock held until the transaction ends.
// Membership writes take this lock first so capacity checks serialize.
func (r *ContractStore) Lock(ctx context.Context, id uuid.UUID) (*models.Contract, error) {
	var contract models.Contract
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&contract, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &contract, nil
}

func (r *ContractStore) UpdateMaxMemberCount(ctx context.Context, id uuid.UUID, maxMembers int) error {
	result := r.db.WithContext(ctx).Model(&models.Contract{}).
		Where("id = ?", id).
		Update("max_member_count", maxMembers)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the contract and its memberships. Member accounts are kept.
func (r *ContractStore) Delete(ctx context.Context, id uuid.UUID) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("contract_id = ?", id).Delete(&models.ContractMembership{}).Error; err != nil {
		return translate(err)
	}
	result := db.Unscoped().Delete(&models.Contract{}, "id = ?", id)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ContractStore) CountMembers(ctx context.Context, contractID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ContractMembership{}).
		Where("contract_id = ?", contractID).
		Count(&count).Error
	return count, translate(err)
}

func (r *ContractStore) AddMember(ctx context.Context, contractID, accountID uuid.UUID) (*models.ContractMembership, error) {
	membership := &models.ContractMembership{ContractID: contractID, AccountID: accountID}
	if err := r.db.WithContext(ctx).Create(membership).Error; err != nil {
		return nil, translate(err)
	}
	return membership, nil
}

// RemoveMember deletes one membership row. It returns ErrNotFound when the
// pair does not exist.
func (r *ContractStore) RemoveMember(ctx context.Context, contractID, accountID uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Where("contract_id = ? AND account_id = ?", contractID, accountID).
		Delete(&models.ContractMembership{})
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ContractStore) FindMembership(ctx context.Context, contractID, accountID uuid.UUID) (*models.ContractMembership, error) {
	var membership models.ContractMembership
	err := r.db.WithContext(ctx).
		Preload("Account").
		Where("contract_id = ? AND account_id = ?", contractID, accountID).
		First(&membership).Error
	if err != nil {
		return nil, translate(err)
	}
	return &membership, nil
}

// MembershipsOf lists every contract membership held by an account.
func (r *ContractStore) MembershipsOf(ctx context.Context, accountID uuid.UUID) ([]models.ContractMembership, error) {
	var memberships []models.ContractMembership
	err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("created_at ASC").
		Find(&memberships).Error
	if err != nil {
		return nil, translate(err)
	}
	return memberships, nil
}

// ListMembers returns the accounts that belong to a contract, ordered by email.
func (r *ContractStore) ListMembers(ctx context.Context, contractID uuid.UUID) ([]models.Account, error) {
	var accounts []models.Account
	err := r.db.WithContext(ctx).
		Joins("JOIN contract_memberships ON contract_memberships.account_id = accounts.id").
		Where("contract_memberships.contract_id = ?", contractID).
		Order("accounts.email ASC").
		Find(&accounts).Error
	if err != nil {
		return nil, translate(err)
	}
	return accounts, nil
}
