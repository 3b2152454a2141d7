// Package jwttoken issues and verifies the bearer tokens carried by staff devices and
// the administration console.
package jwttoken

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	dErrors "cashless/pkg/domain-errors"
	"cashless/pkg/requestcontext"
)

const (
	roleStaff = "staff"
	roleAdmin = "admin"
)

// Claims are the member claims of an access token. EventID is empty for tokens not
// scoped to an event.
type Claims struct {
	Company    string `json:"company"`
	MemberID   string `json:"member_id"`
	MemberName string `json:"member_name"`
	EventID    string `json:"event_id,omitempty"`
	Role       string `json:"role"`
	jwt.RegisteredClaims
}

// Member converts the claims into the request actor.
func (c *Claims) Member() requestcontext.Member {
	m := requestcontext.Member{
		Company:    c.Company,
		MemberID:   c.MemberID,
		MemberName: c.MemberName,
		EventID:    c.EventID,
		Role:       requestcontext.RoleStaff,
	}
	if c.Role == roleAdmin {
		m.Role = requestcontext.RoleAdmin
	}
	return m
}

// JWTService handles token creation and validation.
type JWTService struct {
	signingKey []byte
	issuer     string
}

func NewJWTService(signingKey string, issuer string) *JWTService {
	return &JWTService{
		signingKey: []byte(signingKey),
		issuer:     issuer,
	}
}

// GenerateAccessToken signs a token for m valid for expiresIn.
func (s *JWTService) GenerateAccessToken(m requestcontext.Member, expiresIn time.Duration) (string, error) {
	role := roleStaff
	if m.IsAdmin() {
		role = roleAdmin
	}
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Company:    m.Company,
		MemberID:   m.MemberID,
		MemberName: m.MemberName,
		EventID:    m.EventID,
		Role:       role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			Subject:   m.MemberID,
			ID:        uuid.NewString(),
		},
	})
	return token.SignedString(s.signingKey)
}

// ValidateToken verifies the signature, expiry and issuer of tokenString.
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(*jwt.Token) (any, error) {
		return s.signingKey, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	if claims.Company == "" || claims.MemberID == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "token carries no member")
	}
	return claims, nil
}

// Authenticate validates tokenString and returns its member.
func (s *JWTService) Authenticate(tokenString string) (requestcontext.Member, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return requestcontext.Member{}, err
	}
	return claims.Member(), nil
}
