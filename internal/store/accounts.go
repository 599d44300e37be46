package store

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tramdoc/tramdoc/internal/models"
)

type accountStore struct {
	db *gorm.DB
}

func (s *accountStore) FindByID(ctx context.Context, id uint64) (*models.Account, error) {
	var account models.Account
	if err := s.db.WithContext(ctx).First(&account, "id = ?", id).Error; err != nil {
		return nil, translate("find account by id", err)
	}
	return &account, nil
}

func (s *accountStore) LockByID(ctx context.Context, id uint64) (*models.Account, error) {
	var account models.Account
	err := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&account, "id = ?", id).Error
	if err != nil {
		return nil, translate("lock account", err)
	}
	return &account, nil
}

func (s *accountStore) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	email = models.NormalizeEmail(email)
	if email == "" {
		return nil, ErrNotFound
	}

	var account models.Account
	if err := s.db.WithContext(ctx).First(&account, "email = ?", email).Error; err != nil {
		return nil, translate("find account by email", err)
	}
	return &account, nil
}

func (s *accountStore) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	email = models.NormalizeEmail(email)
	if email == "" {
		return false, nil
	}

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Account{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return false, translate("count accounts by email", err)
	}
	return count > 0, nil
}

func (s *accountStore) FindByProviderIdentity(ctx context.Context, provider models.AuthProvider, subjectID string) (*models.Account, error) {
	subjectID = strings.TrimSpace(subjectID)
	if !provider.IsExternal() || subjectID == "" {
		return nil, ErrNotFound
	}

	var account models.Account
	err := s.db.WithContext(ctx).
		First(&account, "auth_provider = ? AND provider_id = ?", provider, subjectID).Error
	if err != nil {
		return nil, translate("find account by provider identity", err)
	}
	return &account, nil
}

func (s *accountStore) Save(ctx context.Context, account *models.Account) error {
	db := s.db.WithContext(ctx)
	if account.ID == 0 {
		return translate("create account", db.Create(account).Error)
	}
	return translate("save account", db.Save(account).Error)
}

func (s *accountStore) UpdatePassword(ctx context.Context, id uint64, previousHash, newHash string) error {
	if previousHash == "" || newHash == "" {
		return ErrStaleWrite
	}

	result := s.db.WithContext(ctx).
		Model(&models.Account{}).
		Where("id = ? AND password = ?", id, previousHash).
		UpdateColumns(map[string]any{
			"password":   newHash,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return translate("update password", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrStaleWrite
	}
	return nil
}

func (s *accountStore) LinkProvider(ctx context.Context, id uint64, provider models.AuthProvider, subjectID string) error {
	if !provider.IsExternal() || strings.TrimSpace(subjectID) == "" {
		return ErrStaleWrite
	}

	result := s.db.WithContext(ctx).
		Model(&models.Account{}).
		Where("id = ? AND auth_provider IN ?", id, []models.AuthProvider{models.AuthProviderLocal, provider}).
		UpdateColumns(map[string]any{
			"auth_provider": provider,
			"provider_id":   strings.TrimSpace(subjectID),
			"updated_at":    time.Now(),
		})
	if result.Error != nil {
		return translate("link provider", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrStaleWrite
	}
	return nil
}

func (s *accountStore) UpdateAvatar(ctx context.Context, id uint64, avatarURL string) error {
	result := s.db.WithContext(ctx).
		Model(&models.Account{}).
		Where("id = ?", id).
		UpdateColumns(map[string]any{
			"avatar_url": models.StringPtr(strings.TrimSpace(avatarURL)),
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return translate("update avatar", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
