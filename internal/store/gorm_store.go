package store

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// GormStore implements Store on top of gorm.
type GormStore struct {
	db *gorm.DB
}

// New constructs a GormStore.
func New(db *gorm.DB) (*GormStore, error) {
	if db == nil {
		return nil, errors.New("store: db is required")
	}
	return &GormStore{db: db}, nil
}

// Accounts returns the account repository bound to this store's connection.
func (s *GormStore) Accounts() AccountStore {
	return &accountStore{db: s.db}
}

// ResetCodes returns the reset code repository bound to this store's connection.
func (s *GormStore) ResetCodes() ResetCodeStore {
	return &resetCodeStore{db: s.db}
}

// WithinTx runs fn inside a database transaction.
func (s *GormStore) WithinTx(ctx context.Context, fn func(Store) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
}
