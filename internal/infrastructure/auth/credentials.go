package auth

import (
	"crypto/subtle"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/solarops/backend/internal/infrastructure/config"
)

// ErrBadCredentials is returned for any failed login attempt. The caller
// never learns whether the username or the password was wrong.
var ErrBadCredentials = errors.New("invalid username or password")

// CredentialChecker verifies the dashboard operator's login against the
// configured username and bcrypt password hash.
type CredentialChecker struct {
	username     string
	passwordHash []byte
}

// NewCredentialChecker creates a credential checker
func NewCredentialChecker(cfg config.AdminConfig) *CredentialChecker {
	return &CredentialChecker{
		username:     cfg.Username,
		passwordHash: []byte(cfg.PasswordHash),
	}
}

// Check verifies one login attempt. Both the username comparison and the
// bcrypt comparison run regardless of which one fails.
func (c *CredentialChecker) Check(username, password string) error {
	userOK := subtle.ConstantTimeCompare([]byte(c.username), []byte(username)) == 1
	passErr := bcrypt.CompareHashAndPassword(c.passwordHash, []byte(password))
	if !userOK || passErr != nil {
		return ErrBadCredentials
	}
	return nil
}
