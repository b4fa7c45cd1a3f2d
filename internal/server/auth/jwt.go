// Package auth issues and checks the bearer tokens of the admin service.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophstream/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

const issuer = "gophstream"

// Claims carries the registered claims only; the operator name is the
// subject.
type Claims struct {
	jwt.RegisteredClaims
}

func GenerateToken(subject string, secretKey []byte, validityDuration time.Duration) (string, error) {
	if subject == "" {
		return "", fmt.Errorf("%w: empty subject", common.ErrBadRequest)
	}
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
		},
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// GetSubjectFromToken validates tokenString and returns its subject.
// Expired tokens yield common.ErrTokenExpired, anything else unusable
// common.ErrInvalidToken.
func GetSubjectFromToken(tokenString string, secretKey []byte) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", common.ErrTokenExpired
		}
		return "", fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}

	if !token.Valid || claims.Subject == "" {
		return "", common.ErrInvalidToken
	}

	return claims.Subject, nil
}
