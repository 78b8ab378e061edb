package crypto

import (
	"golang.org/x/crypto/argon2"

	"github.com/mdreader/mdreaderd/domain/port/outbound"
)

// tokenSecretSalt is a fixed application salt; uniqueness per machine comes
// from the machine ID input, not the salt.
var tokenSecretSalt = []byte("mdreaderd.token.v1")

type argonSecretService struct{}

func NewSecretService() outbound.SecretService {
	return &argonSecretService{}
}

// DeriveTokenSecret stretches the machine identifier into signing material
// with argon2id, so the secret never appears on disk.
func (s *argonSecretService) DeriveTokenSecret(machineID string) []byte {
	return argon2.IDKey([]byte(machineID), tokenSecretSalt, 1, 64*1024, 4, 32)
}
