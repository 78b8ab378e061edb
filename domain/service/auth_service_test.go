package service

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/mdreader/mdreaderd/domain/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockMachineIDService struct {
	id  string
	err error
}

func (m *mockMachineIDService) GetMachineID() (string, error) {
	return m.id, m.err
}

type mockSecretService struct{}

func (m *mockSecretService) DeriveTokenSecret(machineID string) []byte {
	return []byte("derived-" + machineID)
}

func newTestAuthService(t *testing.T, configuredSecret string) *authService {
	t.Helper()
	svc, err := NewAuthService(
		&mockMachineIDService{id: "machine-a"},
		&mockSecretService{},
		&mockLogger{},
		configuredSecret,
		60,
	)
	require.NoError(t, err)
	return svc.(*authService)
}

func TestIssueAndValidateToken(t *testing.T) {
	t.Run("round trips the client name", func(t *testing.T) {
		svc := newTestAuthService(t, "test-secret")

		token, err := svc.IssueToken("mdreader-ui")
		require.NoError(t, err)
		require.NotEmpty(t, token)

		client, err := svc.ValidateToken(token)
		require.NoError(t, err)
		assert.Equal(t, "mdreader-ui", client)
	})

	t.Run("rejects a garbled token", func(t *testing.T) {
		svc := newTestAuthService(t, "test-secret")

		_, err := svc.ValidateToken("not.a.token")
		assert.ErrorIs(t, err, model.ErrInvalidToken)
	})

	t.Run("rejects a token signed with another secret", func(t *testing.T) {
		issuer := newTestAuthService(t, "secret-one")
		validator := newTestAuthService(t, "secret-two")

		token, err := issuer.IssueToken("mdreader-ui")
		require.NoError(t, err)

		_, err = validator.ValidateToken(token)
		assert.ErrorIs(t, err, model.ErrInvalidToken)
	})

	t.Run("rejects an expired token", func(t *testing.T) {
		svc := newTestAuthService(t, "test-secret")
		svc.expiry = -time.Minute

		token, err := svc.IssueToken("mdreader-ui")
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		assert.ErrorIs(t, err, model.ErrInvalidToken)
	})

	t.Run("rejects the none algorithm", func(t *testing.T) {
		svc := newTestAuthService(t, "test-secret")

		unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "mdreader-ui"})
		token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		assert.ErrorIs(t, err, model.ErrInvalidToken)
	})
}

func TestMachineDerivedSecret(t *testing.T) {
	t.Run("empty configured secret falls back to machine derivation", func(t *testing.T) {
		svc := newTestAuthService(t, "")
		assert.Equal(t, []byte("derived-machine-a"), svc.secret)
	})

	t.Run("tokens are machine bound when derived", func(t *testing.T) {
		svcA, err := NewAuthService(&mockMachineIDService{id: "machine-a"}, &mockSecretService{}, &mockLogger{}, "", 60)
		require.NoError(t, err)
		svcB, err := NewAuthService(&mockMachineIDService{id: "machine-b"}, &mockSecretService{}, &mockLogger{}, "", 60)
		require.NoError(t, err)

		token, err := svcA.IssueToken("mdreader-ui")
		require.NoError(t, err)

		_, err = svcB.ValidateToken(token)
		assert.ErrorIs(t, err, model.ErrInvalidToken)
	})

	t.Run("fails when machine id is unavailable and no secret configured", func(t *testing.T) {
		_, err := NewAuthService(&mockMachineIDService{err: assert.AnError}, &mockSecretService{}, &mockLogger{}, "", 60)
		assert.Error(t, err)
	})
}
