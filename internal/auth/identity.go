package auth

import "errors"

// ErrNoIdentity is returned when an operation requiring an authenticated caller receives none.
var ErrNoIdentity = errors.New("auth: authenticated identity required")

// Identity is the authenticated caller derived from a validated access token. It is passed
// explicitly into every operation that acts on the caller's own account.
type Identity struct {
	AccountID uint64
	Email     string
}

// IdentityFromClaims builds an Identity from validated access token claims.
func IdentityFromClaims(claims *Claims) (Identity, error) {
	id, err := SubjectID(claims)
	if err != nil {
		return Identity{}, err
	}
	return Identity{AccountID: id, Email: claims.Email}, nil
}

// Valid reports whether the identity names an account.
func (i Identity) Valid() bool {
	return i.AccountID != 0
}
