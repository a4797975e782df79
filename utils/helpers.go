package utils

import (
	"net/http"
	"strings"
	"unicode/utf8"

	jwtmiddleware "github.com/auth0/go-jwt-middleware/v2"
	"github.com/auth0/go-jwt-middleware/v2/validator"
)

// GetClaims returns the validated token claims of r.
func GetClaims(r *http.Request) (*validator.ValidatedClaims, bool) {
	claims, ok := r.Context().Value(jwtmiddleware.ContextKey{}).(*validator.ValidatedClaims)
	return claims, ok && claims != nil
}

// GetAuthID returns the identity provider subject of r.
func GetAuthID(r *http.Request) (string, bool) {
	claims, ok := GetClaims(r)
	if !ok {
		return "", false
	}
	return claims.RegisteredClaims.Subject, claims.RegisteredClaims.Subject != ""
}

// Excerpt shortens s to at most n runes, collapsing whitespace.
func Excerpt(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:n])) + "…"
}
