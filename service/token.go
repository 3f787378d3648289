package service

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v4"
)

// TokenService inspects bearer tokens issued by the remote backend. The
// signing key lives on the backend, so claims are read without verification;
// the token is only inspected locally to know when a session has expired
// and a fresh login is needed. The backend remains the authority and will
// 401 a token it does not accept.
type TokenService struct{}

// ExtractToken pulls the bearer token out of the Authorization header.
func (t *TokenService) ExtractToken(r *http.Request) string {
	bearToken := r.Header.Get("Authorization")
	strArr := strings.Split(bearToken, " ")
	if len(strArr) == 2 {
		return strArr[1]
	}
	return ""
}

// Claims reads the claims of a backend-issued token without verifying the
// signature.
func (t *TokenService) Claims(tokenStr string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(tokenStr, claims); err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	return claims, nil
}

// Expired reports whether the token carries an exp claim in the past. A
// token without an exp claim, or one that cannot be parsed at all, counts
// as expired.
func (t *TokenService) Expired(tokenStr string) bool {
	claims, err := t.Claims(tokenStr)
	if err != nil {
		return true
	}
	exp, ok := claims["exp"].(float64)
	if !ok {
		return true
	}
	return time.Now().After(time.Unix(int64(exp), 0))
}
