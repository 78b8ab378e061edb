package service

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/mdreader/mdreaderd/domain/model"
	"github.com/mdreader/mdreaderd/domain/port/inbound"
	"github.com/mdreader/mdreaderd/domain/port/outbound"
)

type authService struct {
	machineID outbound.MachineIDService
	secrets   outbound.SecretService
	logger    outbound.Logger
	secret    []byte
	expiry    time.Duration
}

// NewAuthService creates the local API token service. When no secret is
// configured the signing key is derived from the hardware machine ID, so
// tokens issued on one machine never validate on another.
func NewAuthService(
	machineIDSvc outbound.MachineIDService,
	secrets outbound.SecretService,
	logger outbound.Logger,
	configuredSecret string,
	expiryMinutes int,
) (inbound.AuthService, error) {
	secret := []byte(configuredSecret)
	if len(secret) == 0 {
		id, err := machineIDSvc.GetMachineID()
		if err != nil {
			return nil, fmt.Errorf("cannot derive token secret: %w", err)
		}
		secret = secrets.DeriveTokenSecret(id)
	}

	return &authService{
		machineID: machineIDSvc,
		secrets:   secrets,
		logger:    logger,
		secret:    secret,
		expiry:    time.Duration(expiryMinutes) * time.Minute,
	}, nil
}

func (s *authService) IssueToken(clientName string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": clientName,
		"jti": uuid.New().String(),
		"iat": now.Unix(),
		"exp": now.Add(s.expiry).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("cannot sign token: %w", err)
	}

	s.logger.Info("issued session token", "client", clientName, "expiresInMinutes", s.expiry.Minutes())
	return signed, nil
}

func (s *authService) ValidateToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return "", model.ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", model.ErrInvalidToken
	}

	clientName, ok := claims["sub"].(string)
	if !ok || clientName == "" {
		return "", model.ErrInvalidToken
	}

	return clientName, nil
}
