package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	jwtmiddleware "github.com/auth0/go-jwt-middleware/v2"
	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/pkg/errors"

	"github.com/andrewpaige1/prepass-api/auth"
)

// CustomClaims carries the claims we read beyond the registered ones.
type CustomClaims struct {
	Email string `json:"email"`
}

// Validate does nothing for now, but we need it to satisfy validator.CustomClaims interface.
func (c CustomClaims) Validate(ctx context.Context) error {
	return nil
}

// EnsureValidToken is a middleware that will check the validity of our JWT.
// Tokens are read from the Authorization header, or the auth_token cookie for
// browser sessions.
func EnsureValidToken(s auth.Settings, logger *slog.Logger) (func(http.Handler) http.Handler, error) {
	keyFunc := func(ctx context.Context) (interface{}, error) {
		return []byte(s.Secret), nil
	}

	jwtValidator, err := validator.New(
		keyFunc,
		validator.HS256,
		s.Issuer,
		[]string{s.Audience},
		validator.WithCustomClaims(
			func() validator.CustomClaims {
				return &CustomClaims{}
			},
		),
		validator.WithAllowedClockSkew(time.Minute),
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to set up the jwt validator")
	}

	errorHandler := func(w http.ResponseWriter, r *http.Request, err error) {
		logger.Debug("encountered error while validating JWT", "path", r.URL.Path, "error", err)
		msg := "Failed to validate JWT."
		if errors.Is(err, jwtmiddleware.ErrJWTMissing) {
			msg = "Missing bearer token."
		}
		writeJSONError(w, http.StatusUnauthorized, msg)
	}

	mw := jwtmiddleware.New(
		jwtValidator.ValidateToken,
		jwtmiddleware.WithErrorHandler(errorHandler),
		jwtmiddleware.WithTokenExtractor(jwtmiddleware.MultiTokenExtractor(
			jwtmiddleware.AuthHeaderTokenExtractor,
			jwtmiddleware.CookieTokenExtractor("auth_token"),
		)),
	)

	return func(next http.Handler) http.Handler {
		return mw.CheckJWT(next)
	}, nil
}
