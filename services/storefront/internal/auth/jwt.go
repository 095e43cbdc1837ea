package auth

import (
	"github.com/golang-jwt/jwt/v5"

	"github.com/utafrali/storefront/pkg/middleware"
)

// identityClaims is the payload the identity service signs. Older tokens
// carry the user only in "sub".
type identityClaims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

var hmacMethods = []string{
	jwt.SigningMethodHS256.Alg(),
	jwt.SigningMethodHS384.Alg(),
	jwt.SigningMethodHS512.Alg(),
}

// NewJWTValidator returns a validator for HMAC-signed tokens issued by the
// identity service.
func NewJWTValidator(secret string) middleware.TokenValidator {
	key := []byte(secret)
	parser := jwt.NewParser(jwt.WithValidMethods(hmacMethods))

	return func(tokenString string) (*middleware.Claims, error) {
		var c identityClaims
		if _, err := parser.ParseWithClaims(tokenString, &c, func(*jwt.Token) (any, error) {
			return key, nil
		}); err != nil {
			return nil, err
		}

		userID := c.UserID
		if userID == "" {
			userID = c.Subject
		}
		return &middleware.Claims{UserID: userID, Email: c.Email, Role: c.Role}, nil
	}
}
