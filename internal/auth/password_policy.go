package auth

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// MinPasswordLength is the shortest password accepted by the policy, counted in characters.
const MinPasswordLength = 6

// PasswordSpecialChars lists the characters that satisfy the special-character rule.
const PasswordSpecialChars = "!@#$%^&*()_+-=[]{}|;':\",./<>?~`"

// PasswordRule identifies which policy rule a candidate failed.
type PasswordRule string

const (
	RuleMinLength        PasswordRule = "min_length"
	RuleLeadingUppercase PasswordRule = "leading_uppercase"
	RuleDigit            PasswordRule = "digit"
	RuleSpecialChar      PasswordRule = "special"
)

// PolicyViolation describes the first password rule a candidate failed.
type PolicyViolation struct {
	Rule   PasswordRule
	Reason string
}

func (v *PolicyViolation) Error() string {
	return v.Reason
}

// ValidatePassword checks candidate against the password policy. Rules are evaluated in a
// fixed order and the first failure is returned. An empty candidate is not a violation;
// presence is enforced by the caller's required-field check.
func ValidatePassword(candidate string) error {
	if candidate == "" {
		return nil
	}

	if utf8.RuneCountInString(candidate) < MinPasswordLength {
		return &PolicyViolation{Rule: RuleMinLength, Reason: "Password must be at least 6 characters long"}
	}

	first, _ := utf8.DecodeRuneInString(candidate)
	if !unicode.IsUpper(first) {
		return &PolicyViolation{Rule: RuleLeadingUppercase, Reason: "Password must start with an uppercase letter"}
	}

	if !strings.ContainsFunc(candidate, isDecimalDigit) {
		return &PolicyViolation{Rule: RuleDigit, Reason: "Password must contain at least one digit"}
	}

	if !strings.ContainsAny(candidate, PasswordSpecialChars) {
		return &PolicyViolation{Rule: RuleSpecialChar, Reason: "Password must contain at least one special character (!@#$%^&*...)"}
	}

	return nil
}

func isDecimalDigit(r rune) bool {
	return unicode.IsDigit(r)
}
