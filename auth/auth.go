package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// Settings describes the tokens this API accepts.
type Settings struct {
	Secret   string
	Issuer   string
	Audience string
}

// Claims are the claims of an access token. Email is carried by the identity
// provider alongside the registered claims.
type Claims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// CreateToken signs an HS256 access token for subject that expires after ttl.
func CreateToken(s Settings, subject, email string, ttl time.Duration) (string, error) {
	if s.Secret == "" {
		return "", errors.New("auth: JWT secret not set")
	}
	if subject == "" {
		return "", errors.New("auth: subject is required")
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    s.Issuer,
			Audience:  jwt.ClaimStrings{s.Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})

	tokenString, err := token.SignedString([]byte(s.Secret))
	if err != nil {
		return "", errors.Wrap(err, "auth: failed to sign token")
	}
	return tokenString, nil
}

// VerifyToken parses tokenString and checks its signature, issuer, audience and
// expiry.
func VerifyToken(s Settings, tokenString string) (*Claims, error) {
	if s.Secret == "" {
		return nil, errors.New("auth: JWT secret not set")
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return []byte(s.Secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.Issuer),
		jwt.WithAudience(s.Audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, errors.Wrap(err, "auth: invalid token")
	}
	if !token.Valid {
		return nil, errors.New("auth: invalid token")
	}
	return claims, nil
}
