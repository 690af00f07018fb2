// Package middleware authenticates chat requests.
package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/xiaot623/gogo/assistant/internal/domain"
)

const identityKey = "identity"

// Claims are the access-token claims issued by the account backend.
type Claims struct {
	Email    string `json:"email"`
	Role     string `json:"role"`
	FullName string `json:"fullName"`
	jwt.RegisteredClaims
}

// Verifier validates HS256 bearer tokens.
type Verifier struct {
	secret []byte
}

// NewVerifier creates a verifier for tokens signed with secret.
func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify parses token and returns the identity it carries.
func (v *Verifier) Verify(token string) (domain.Identity, error) {
	if len(v.secret) == 0 {
		return domain.Identity{}, errors.New("JWT secret not configured")
	}
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return domain.Identity{}, err
	}
	if claims.Subject == "" {
		return domain.Identity{}, errors.New("token has no subject")
	}
	return domain.Identity{
		AccountID: claims.Subject,
		Email:     claims.Email,
		Role:      domain.AccountRole(strings.ToUpper(claims.Role)),
		FullName:  claims.FullName,
	}, nil
}

// Sign issues a token for identity. Used by tests and local tooling.
func (v *Verifier) Sign(identity domain.Identity, claims jwt.RegisteredClaims) (string, error) {
	claims.Subject = identity.AccountID
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Email:            identity.Email,
		Role:             string(identity.Role),
		FullName:         identity.FullName,
		RegisteredClaims: claims,
	})
	return token.SignedString(v.secret)
}

// RequireIdentity rejects requests without a valid bearer token.
func RequireIdentity(v *Verifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Token requerido"})
			}
			identity, err := v.Verify(strings.TrimSpace(token))
			if err != nil {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Token invalido o expirado"})
			}
			SetIdentity(c, identity)
			return next(c)
		}
	}
}

// SetIdentity attaches identity to the request context.
func SetIdentity(c echo.Context, identity domain.Identity) {
	c.Set(identityKey, identity)
}

// IdentityFrom returns the authenticated identity, if any.
func IdentityFrom(c echo.Context) (domain.Identity, bool) {
	identity, ok := c.Get(identityKey).(domain.Identity)
	if !ok || identity.AccountID == "" {
		return domain.Identity{}, false
	}
	return identity, true
}
