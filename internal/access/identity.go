package access

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNoIdentity is returned when a token carries none of the identity claims.
var ErrNoIdentity = errors.New("token has no identity claim")

// identityClaims are consulted in order; the first usable one wins.
var identityClaims = []string{"user_id", "id", "sub"}

// IdentityFromToken extracts the caller's user ID from an access token
// without verifying its signature. Verification is the server's job; the
// client only needs to know who it is.
func IdentityFromToken(token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrNoIdentity
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return "", fmt.Errorf("decode token: %w", err)
	}

	for _, name := range identityClaims {
		if id, ok := claimString(claims[name]); ok {
			return id, nil
		}
	}
	return "", ErrNoIdentity
}

func claimString(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		x = strings.TrimSpace(x)
		return x, x != ""
	case float64:
		if x == math.Trunc(x) {
			return strconv.FormatInt(int64(x), 10), true
		}
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case int:
		return strconv.Itoa(x), true
	default:
		return "", false
	}
}
