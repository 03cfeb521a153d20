// Package jwttoken verifies the identity provider's HS256 access tokens and
// hands the subject to the auth middleware.
package jwttoken

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	dErrors "fintrust/pkg/domain-errors"
	authmw "fintrust/pkg/platform/middleware/auth"
)

type Claims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

type JWTService struct {
	key    []byte
	issuer string
	parser *jwt.Parser
}

func NewJWTService(signingKey, issuer string) *JWTService {
	return &JWTService{
		key:    []byte(signingKey),
		issuer: issuer,
		parser: jwt.NewParser(
			jwt.WithIssuer(issuer),
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
		),
	}
}

// IssueToken mints a token for local runs and tests.
func (s *JWTService) IssueToken(subjectID, email string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Subject:   subjectID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
}

func (s *JWTService) ParseToken(raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := s.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) { return s.key, nil })
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
	case err != nil:
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	case claims.Subject == "":
		return nil, dErrors.New(dErrors.CodeUnauthorized, "token has no subject")
	}
	return claims, nil
}

// ValidateToken implements authmw.TokenValidator.
func (s *JWTService) ValidateToken(raw string) (*authmw.Claims, error) {
	claims, err := s.ParseToken(raw)
	if err != nil {
		return nil, err
	}
	return &authmw.Claims{SubjectID: claims.Subject, Email: claims.Email}, nil
}
