// Package middleware provides authentication and authorization middleware for the application.
package middleware

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"

	"skillswap/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// Principal is the identity the external provider vouches for.
type Principal struct {
	ID    string
	Email string
	Name  string
}

// PrincipalSyncer resolves a verified principal to the local user record, creating it on first sight.
type PrincipalSyncer interface {
	SyncPrincipal(ctx context.Context, p Principal) (*models.User, error)
}

// TokenVerifier checks identity-provider tokens.
type TokenVerifier struct {
	Secret   []byte
	Issuer   string
	Audience string
}

var (
	errInvalidToken   = errors.New("invalid token")
	errMissingSubject = errors.New("token has no subject")
)

// Verify validates signature, expiry and (when configured) issuer and audience, then
// extracts the principal from the sub, email and name claims.
func (v TokenVerifier) Verify(tokenString string) (Principal, error) {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"})}
	if v.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.Issuer))
	}
	if v.Audience != "" {
		opts = append(opts, jwt.WithAudience(v.Audience))
	}

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return v.Secret, nil
	}, opts...)
	if err != nil {
		return Principal{}, err
	}
	if !token.Valid {
		return Principal{}, errInvalidToken
	}

	sub, err := claims.GetSubject()
	if err != nil || strings.TrimSpace(sub) == "" {
		return Principal{}, errMissingSubject
	}

	p := Principal{ID: sub}
	if email, ok := claims["email"].(string); ok {
		p.Email = strings.ToLower(strings.TrimSpace(email))
	}
	if name, ok := claims["name"].(string); ok {
		p.Name = strings.TrimSpace(name)
	}
	return p, nil
}

func bearerToken(c *fiber.Ctx) string {
	parts := strings.SplitN(c.Get("Authorization"), " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// AuthRequired verifies the bearer token, syncs the principal into the users table and
// stores userID and email in locals. The websocket route may pass the token as ?token=.
func AuthRequired(verifier TokenVerifier, syncer PrincipalSyncer) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString := bearerToken(c)
		if tokenString == "" && strings.HasPrefix(c.Path(), "/api/ws") {
			tokenString = c.Query("token")
		}
		if tokenString == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthenticatedError("Authorization required"))
		}

		principal, err := verifier.Verify(tokenString)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthenticatedError("Invalid or expired token"))
		}
		if principal.Email == "" {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthenticatedError("Token has no email claim"))
		}

		user, err := syncer.SyncPrincipal(c.UserContext(), principal)
		if err != nil {
			Logger.ErrorContext(c.UserContext(), "failed to sync principal", "error", err)
			return models.RespondWithAppError(c, err)
		}

		c.Locals("userID", user.ID)
		c.Locals("email", user.Email)
		c.SetUserContext(WithUserID(c.UserContext(), user.ID))

		return c.Next()
	}
}

// CronSecretRequired guards scheduler endpoints with "Authorization: Bearer <secret>".
// An empty secret rejects every call.
func CronSecretRequired(secret string) fiber.Handler {
	expected := []byte("Bearer " + secret)
	return func(c *fiber.Ctx) error {
		got := []byte(c.Get("Authorization"))
		if secret == "" || subtle.ConstantTimeCompare(got, expected) != 1 {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthenticatedError("Unauthorized"))
		}
		return c.Next()
	}
}

// UserID returns the authenticated user's ID from locals, or "".
func UserID(c *fiber.Ctx) string {
	uid, _ := c.Locals("userID").(string)
	return uid
}
