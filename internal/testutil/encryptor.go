package testutil

import (
	"ilmhub/internal/encryption"
	"ilmhub/internal/ilm"
)

// NewTestEncryptor returns the deterministic fixture encryptor.
func NewTestEncryptor() ilm.Encryptor {
	return encryption.NewFixtureEncryptor()
}
