package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/hugh/prompthub/internal/database/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AccountStore struct {
	db *gorm.DB
}

func NewAccountStore(db *gorm.DB) *AccountStore {
	return &AccountStore{db: db}
}

func (r *AccountStore) WithTx(tx *gorm.DB) *AccountStore {
	return &AccountStore{db: tx}
}

func (r *AccountStore) Create(ctx context.Context, account *models.Account) error {
	return translate(r.db.WithContext(ctx).Create(account).Error)
}

func (r *AccountStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	var account models.Account
	if err := r.db.WithContext(ctx).First(&account, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &account, nil
}

// FindByEmail looks an account up by its normalized email. An empty state
// matches any activation state.
func (r *AccountStore) FindByEmail(ctx context.Context, email string, state models.ActivationState) (*models.Account, error) {
	query := r.db.WithContext(ctx).Where("email = ?", email)
	if state != "" {
		query = query.Where("activation_state = ?", state)
	}

	var account models.Account
	if err := query.First(&account).Error; err != nil {
		return nil, translate(err)
	}
	return &account, nil
}

// FindByIDs returns the accounts that exist among ids, ordered by email.
func (r *AccountStore) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Account, error) {
	var accounts []models.Account
	if len(ids) == 0 {
		return accounts, nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("email ASC").Find(&accounts).Error; err != nil {
		return nil, translate(err)
	}
	return accounts, nil
}

// Lock reads the account with a row lock held until the transaction ends.
func (r *AccountStore) Lock(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	var account models.Account
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&account, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &account, nil
}

func (r *AccountStore) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	result := r.db.WithContext(ctx).Model(&models.Account{}).
		Where("id = ?", id).
		Update("password_hash", hash)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *AccountStore) UpdateProfile(ctx context.Context, id uuid.UUID, name, phone string) error {
	result := r.db.WithContext(ctx).Model(&models.Account{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"name": name, "phone": phone})
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Activate flips a pending account to active. It reports false when the
// account was not pending, so the transition happens at most once even under
// concurrent calls.
func (r *AccountStore) Activate(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.Account{}).
		Where("id = ? AND activation_state = ?", id, models.ActivationPending).
		Updates(map[string]interface{}{
			"activation_state": models.ActivationActive,
			"activated_at":     at,
		})
	if result.Error != nil {
		return false, translate(result.Error)
	}
	return result.RowsAffected == 1, nil
}
