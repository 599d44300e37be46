package models

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// ErrLocalAccountWithoutPassword guards the invariant that only provider accounts may lack a password.
var ErrLocalAccountWithoutPassword = errors.New("account: local accounts require a password hash")

// Account is the identity record for a reader. Provider-only accounts carry no password hash.
type Account struct {
	BaseModel

	Email    string  `gorm:"uniqueIndex;not null;size:255" json:"email"`
	Password *string `gorm:"column:password" json:"-"`
	FullName string  `gorm:"column:full_name;not null;size:255" json:"full_name"`
	Avatar   *string `gorm:"column:avatar_url;size:1024" json:"avatar_url"`
	Bio      *string `gorm:"type:text" json:"bio"`

	AuthProvider AuthProvider `gorm:"column:auth_provider;size:20;not null;uniqueIndex:idx_accounts_provider_identity" json:"auth_provider"`
	ProviderID   *string      `gorm:"column:provider_id;size:255;uniqueIndex:idx_accounts_provider_identity" json:"-"`

	IsActive bool `gorm:"column:is_active;not null;default:true" json:"is_active"`
}

// TableName pins the table name used for accounts.
func (Account) TableName() string {
	return "accounts"
}

// HasPassword reports whether the account can authenticate with a local password.
func (a *Account) HasPassword() bool {
	return a.Password != nil && *a.Password != ""
}

// PasswordHash returns the stored hash or an empty string for provider-only accounts.
func (a *Account) PasswordHash() string {
	if a.Password == nil {
		return ""
	}
	return *a.Password
}

// AvatarURL returns the avatar or an empty string.
func (a *Account) AvatarURL() string {
	if a.Avatar == nil {
		return ""
	}
	return *a.Avatar
}

// SubjectID returns the provider subject id or an empty string.
func (a *Account) SubjectID() string {
	if a.ProviderID == nil {
		return ""
	}
	return *a.ProviderID
}

// BeforeSave normalises the email and enforces the password/origin invariant.
func (a *Account) BeforeSave(tx *gorm.DB) error {
	a.Email = NormalizeEmail(a.Email)
	if a.AuthProvider == "" {
		a.AuthProvider = AuthProviderLocal
	}
	if !a.HasPassword() && a.AuthProvider == AuthProviderLocal {
		return ErrLocalAccountWithoutPassword
	}
	if a.AuthProvider == AuthProviderLocal {
		a.ProviderID = nil
	}
	return nil
}

// NormalizeEmail trims and lower-cases an address so uniqueness is case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// EmailLocalPart returns the portion of the address before the '@'.
func EmailLocalPart(email string) string {
	if idx := strings.Index(email, "@"); idx > 0 {
		return email[:idx]
	}
	return email
}

// StringPtr returns a pointer to s or nil when s is empty.
func StringPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
