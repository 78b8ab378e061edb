package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeriveTokenSecret(t *testing.T) {
	svc := NewSecretService()

	t.Run("deterministic for the same machine", func(t *testing.T) {
		a := svc.DeriveTokenSecret("machine-a")
		b := svc.DeriveTokenSecret("machine-a")
		assert.Equal(t, a, b)
		assert.Len(t, a, 32)
	})

	t.Run("differs across machines", func(t *testing.T) {
		a := svc.DeriveTokenSecret("machine-a")
		b := svc.DeriveTokenSecret("machine-b")
		assert.NotEqual(t, a, b)
	})

	t.Run("secret is not the raw machine id", func(t *testing.T) {
		secret := svc.DeriveTokenSecret("machine-a")
		assert.NotContains(t, string(secret), "machine-a")
	})
}
