package inbound

// AuthService issues and validates session tokens for the local API.
type AuthService interface {
	// IssueToken creates a signed session token for the UI client
	IssueToken(clientName string) (string, error)

	// ValidateToken verifies a token and returns the client name it was
	// issued to, or model.ErrInvalidToken
	ValidateToken(token string) (string, error)
}
