package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

// Claims carries the member identity inside a signed bearer token.
// FamilyID is zero for members who have not joined a family yet.
type Claims struct {
	FamilyID int64  `json:"fam,omitempty"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies the HS256 bearer tokens used by the API.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), ttl: ttl}
}

func (ti *TokenIssuer) Issue(memberID, familyID int64, role string) (string, error) {
	now := time.Now()
	claims := Claims{
		FamilyID: familyID,
		Role:     role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("%d", memberID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ti.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(ti.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses a signed token and returns the auth context it encodes.
func (ti *TokenIssuer) Verify(tokenString string) (AuthContext, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %q", t.Method.Alg())
		}
		return ti.secret, nil
	})
	if err != nil || !token.Valid {
		return AuthContext{}, ErrInvalidToken
	}

	var memberID int64
	if _, err := fmt.Sscanf(claims.Subject, "%d", &memberID); err != nil || memberID <= 0 {
		return AuthContext{}, ErrInvalidToken
	}

	return AuthContext{
		MemberID: memberID,
		FamilyID: claims.FamilyID,
		Role:     claims.Role,
	}, nil
}
