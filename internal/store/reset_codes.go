package store

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tramdoc/tramdoc/internal/models"
)

type resetCodeStore struct {
	db *gorm.DB
}

func (s *resetCodeStore) FindUnusedCode(ctx context.Context, accountID uint64, code string) (*models.PasswordResetOTP, error) {
	var otp models.PasswordResetOTP
	err := s.db.WithContext(ctx).
		Where("account_id = ? AND otp = ? AND used = ?", accountID, code, false).
		Order("created_at DESC").Order("id DESC").
		First(&otp).Error
	if err != nil {
		return nil, translate("find unused reset code", err)
	}
	return &otp, nil
}

func (s *resetCodeStore) FindLatestCode(ctx context.Context, accountID uint64, code string) (*models.PasswordResetOTP, error) {
	var otp models.PasswordResetOTP
	err := s.db.WithContext(ctx).
		Where("account_id = ? AND otp = ?", accountID, code).
		Order("created_at DESC").Order("id DESC").
		First(&otp).Error
	if err != nil {
		return nil, translate("find reset code", err)
	}
	return &otp, nil
}

func (s *resetCodeStore) FindLatestUnused(ctx context.Context, accountID uint64) (*models.PasswordResetOTP, error) {
	var otp models.PasswordResetOTP
	err := s.db.WithContext(ctx).
		Where("account_id = ? AND used = ?", accountID, false).
		Order("created_at DESC").Order("id DESC").
		First(&otp).Error
	if err != nil {
		return nil, translate("find latest reset code", err)
	}
	return &otp, nil
}

func (s *resetCodeStore) InvalidateAll(ctx context.Context, accountID uint64) (int64, error) {
	result := s.db.WithContext(ctx).
		Model(&models.PasswordResetOTP{}).
		Where("account_id = ? AND used = ?", accountID, false).
		UpdateColumns(map[string]any{
			"used":       true,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return 0, translate("invalidate reset codes", result.Error)
	}
	return result.RowsAffected, nil
}

func (s *resetCodeStore) MarkUsed(ctx context.Context, id uint64) error {
	result := s.db.WithContext(ctx).
		Model(&models.PasswordResetOTP{}).
		Where("id = ? AND used = ?", id, false).
		UpdateColumns(map[string]any{
			"used":       true,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return translate("mark reset code used", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrCodeAlreadyUsed
	}
	return nil
}

func (s *resetCodeStore) Save(ctx context.Context, code *models.PasswordResetOTP) error {
	db := s.db.WithContext(ctx)
	if code.ID == 0 {
		return translate("create reset code", db.Create(code).Error)
	}
	return translate("save reset code", db.Save(code).Error)
}

func (s *resetCodeStore) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("expires_at <= ?", now.UTC()).
		Delete(&models.PasswordResetOTP{})
	if result.Error != nil {
		return 0, translate("purge expired reset codes", result.Error)
	}
	return result.RowsAffected, nil
}
