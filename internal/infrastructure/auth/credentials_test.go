package auth

import (
	"testing"

	"github.com/solarops/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestCredentialChecker_Check(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	require.NoError(t, err)

	checker := NewCredentialChecker(config.AdminConfig{
		Username:     "admin",
		PasswordHash: string(hash),
	})

	t.Run("valid credentials pass", func(t *testing.T) {
		assert.NoError(t, checker.Check("admin", "correct horse"))
	})

	t.Run("wrong password fails", func(t *testing.T) {
		assert.ErrorIs(t, checker.Check("admin", "battery staple"), ErrBadCredentials)
	})

	t.Run("wrong username fails", func(t *testing.T) {
		assert.ErrorIs(t, checker.Check("root", "correct horse"), ErrBadCredentials)
	})

	t.Run("empty credentials fail", func(t *testing.T) {
		assert.ErrorIs(t, checker.Check("", ""), ErrBadCredentials)
	})
}
