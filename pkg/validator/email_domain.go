package validator

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

// allowedEmailDomains lists consumer mail providers accepted verbatim.
var allowedEmailDomains = map[string]struct{}{
	"gmail.com":      {},
	"googlemail.com": {},
	"outlook.com":    {},
	"outlook.vn":     {},
	"hotmail.com":    {},
	"hotmail.vn":     {},
	"live.com":       {},
	"msn.com":        {},
	"yahoo.com":      {},
	"yahoo.com.vn":   {},
	"yahoo.vn":       {},
	"ymail.com":      {},
	"icloud.com":     {},
	"me.com":         {},
	"mac.com":        {},
	"protonmail.com": {},
	"proton.me":      {},
	"pm.me":          {},
	"aol.com":        {},
	"zoho.com":       {},
	"mail.com":       {},
	"gmx.com":        {},
	"gmx.net":        {},
	"yandex.com":     {},
	"yandex.ru":      {},
	"fpt.vn":         {},
	"vnn.vn":         {},
	"hcm.vnn.vn":     {},
	"hn.vnn.vn":      {},
	"viettel.vn":     {},
	"vnpt.vn":        {},
}

var (
	educationalSuffixes = []string{".edu", ".edu.vn"}
	corporateSuffixes   = []string{".com.vn", ".vn", ".com", ".org", ".net", ".io"}
)

// IsAllowedEmailDomain reports whether the address belongs to an accepted mail domain.
// Blank input is accepted so presence stays the job of the required rule.
func IsAllowedEmailDomain(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return true
	}

	at := strings.LastIndex(email, "@")
	if at < 0 {
		return false
	}
	domain := email[at+1:]

	if _, ok := allowedEmailDomains[domain]; ok {
		return true
	}

	for _, suffix := range educationalSuffixes {
		if strings.HasSuffix(domain, suffix) {
			return true
		}
	}

	for _, suffix := range corporateSuffixes {
		if strings.HasSuffix(domain, suffix) {
			return strings.Contains(domain, ".")
		}
	}

	return false
}

func validateEmailDomain(fl validator.FieldLevel) bool {
	return IsAllowedEmailDomain(fl.Field().String())
}
