package services

import (
	"crypto/subtle"

	"flipball-backend/internal/models"
)

type CredentialVerifier interface {
	Verify(acc *models.Account, password string) bool
}

// PlaintextVerifier compares the stored password byte for byte.
type PlaintextVerifier struct{}

func (PlaintextVerifier) Verify(acc *models.Account, password string) bool {
	return subtle.ConstantTimeCompare([]byte(acc.Password), []byte(password)) == 1
}
