// Package auth consumes bearer tokens issued by the external identity
// service. Credential flows (registration, login, reset) live there,
// not here.
package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

const (
	RoleEditor = "editor"
	RoleAdmin  = "admin"
)

type Claims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

var parseClaimsFn = jwt.ParseWithClaims

// JWTMiddleware validates bearer tokens and stores user_id and role in locals.
func JWTMiddleware(secret string) fiber.Handler {
	secretBytes := []byte(secret)
	return func(c *fiber.Ctx) error {
		token := bearerFromHeader(c.Get("Authorization"))
		if token == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing bearer token")
		}

		claims, err := validate(token, secretBytes)
		if err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, err.Error())
		}

		c.Locals("user_id", claims.UserID)
		c.Locals("role", claims.Role)
		return c.Next()
	}
}

// OptionalJWT stores the user identity when a valid token is present and
// lets anonymous requests through. Used by read endpoints that join
// per-user progress only for authenticated callers.
func OptionalJWT(secret string) fiber.Handler {
	secretBytes := []byte(secret)
	return func(c *fiber.Ctx) error {
		token := bearerFromHeader(c.Get("Authorization"))
		if token != "" {
			if claims, err := validate(token, secretBytes); err == nil {
				c.Locals("user_id", claims.UserID)
				c.Locals("role", claims.Role)
			}
		}
		return c.Next()
	}
}

// RequireRole gates editor operations. Admins pass every role check.
func RequireRole(role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		current, _ := c.Locals("role").(string)
		if current != role && current != RoleAdmin {
			return fiber.NewError(fiber.StatusForbidden, "insufficient role")
		}
		return c.Next()
	}
}

// UserID returns the authenticated user id stored by the middleware.
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals("user_id").(string)
	return id
}

func validate(token string, secret []byte) (*Claims, error) {
	parsed, err := parseClaimsFn(token, &Claims{}, func(_ *jwt.Token) (interface{}, error) {
		return secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

func bearerFromHeader(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}
