// Package auth signs and verifies the short-lived callback tokens embedded
// in shortened gate links, so only links we produced can hit the callback
// endpoint.
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/contentgate/contentgate/internal/common"
)

// Claims carries the access token being walked through the shortener and
// the deep link to redirect to afterwards.
type Claims struct {
	jwt.RegisteredClaims
	AccessToken string `json:"tok"`
	Redirect    string `json:"red"`
}

// GenerateCallbackToken signs a callback token for the given access token
// and redirect target.
func GenerateCallbackToken(accessToken, redirect string, secretKey []byte, validityDuration time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validityDuration)),
		},
		AccessToken: accessToken,
		Redirect:    redirect,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// ParseCallbackToken verifies the signature and expiry and returns the
// embedded access token and redirect target.
func ParseCallbackToken(tokenString string, secretKey []byte) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	})
	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, common.ErrorUnauthorized
	}

	return claims, nil
}
