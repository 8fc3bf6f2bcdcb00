// Package store holds the gorm repositories behind the auth core. Every
// repository can be rebound to a transaction with WithTx, and Store.Transaction
// hands a fully rebound Store to the callback.
package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

// uniqueViolation is the PostgreSQL SQLSTATE for unique_violation.
const uniqueViolation = "23505"

type Store struct {
	db          *gorm.DB
	Accounts    *AccountStore
	Permissions *PermissionStore
	Contracts   *ContractStore
}

func New(db *gorm.DB) *Store {
	return &Store{
		db:          db,
		Accounts:    NewAccountStore(db),
		Permissions: NewPermissionStore(db),
		Contracts:   NewContractStore(db),
	}
}

// DB returns the underlying handle, the transaction when inside one.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Transaction runs fn inside a database transaction. fn must only use the
// Store it is given.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(New(tx))
	})
}

// translate maps driver errors onto the package sentinels.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if IsDuplicate(err) {
		return ErrDuplicate
	}
	return err
}

// IsDuplicate reports whether err is a uniqueness violation, either already
// translated by gorm or still carrying the raw PostgreSQL error.
func IsDuplicate(err error) bool {
	if errors.Is(err, ErrDuplicate) || errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
