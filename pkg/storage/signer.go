package storage

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid or expired download token")

// URLSigner issues HS256 tokens that grant read access to one stored path
// until they expire.
type URLSigner struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

type downloadClaims struct {
	Path string `json:"path"`
	jwt.RegisteredClaims
}

func NewURLSigner(key string, ttl time.Duration) *URLSigner {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &URLSigner{key: []byte(key), ttl: ttl, now: time.Now}
}

func (s *URLSigner) TTL() time.Duration {
	return s.ttl
}

// Sign returns a token for path and the instant it stops working.
func (s *URLSigner) Sign(path string) (string, time.Time, error) {
	now := s.now()
	expires := now.Add(s.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, downloadClaims{
		Path: path,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	})
	signed, err := token.SignedString(s.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign download token: %w", err)
	}
	return signed, expires, nil
}

// Verify returns the path a token grants access to.
func (s *URLSigner) Verify(tokenString string) (string, error) {
	claims := &downloadClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.key, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil || !token.Valid || claims.Path == "" {
		return "", ErrInvalidToken
	}
	return claims.Path, nil
}
