package models

import "time"

// PasswordResetOTP is a single-use numeric code proving control of an account's email address.
type PasswordResetOTP struct {
	BaseModel

	AccountID uint64    `gorm:"not null;index" json:"account_id"`
	Account   *Account  `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Code      string    `gorm:"column:otp;size:6;not null;index" json:"-"`
	ExpiresAt time.Time `gorm:"not null;index" json:"expires_at"`
	Used      bool      `gorm:"not null;default:false" json:"used"`
}

// TableName pins the table name used for reset codes.
func (PasswordResetOTP) TableName() string {
	return "password_reset_otps"
}

// IsExpired reports whether the code is at or past its expiry.
func (o *PasswordResetOTP) IsExpired(now time.Time) bool {
	return !now.Before(o.ExpiresAt)
}

// IsValid reports whether the code can still be redeemed.
func (o *PasswordResetOTP) IsValid(now time.Time) bool {
	return !o.Used && !o.IsExpired(now)
}
