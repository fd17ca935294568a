package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token verification failures. Clients only ever see a single 401; the
// split exists for server-side logging.
var (
	ErrTokenMalformed        = errors.New("token malformed")
	ErrTokenSignatureInvalid = errors.New("token signature invalid")
	ErrTokenExpired          = errors.New("token expired")
)

// Claims is the payload embedded in issued tokens.
type Claims struct {
	UserID int64 `json:"user_id"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies HMAC-signed identity tokens. The
// signing secret is fixed at construction and read-only afterwards.
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenService creates a token service. The secret must be non-empty;
// config validation guarantees that before the process starts serving.
func NewTokenService(secret string, ttl time.Duration) *TokenService {
	return &TokenService{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue signs a token for userID valid for the configured TTL.
func (s *TokenService) Issue(userID int64) (string, error) {
	now := s.now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses and validates a raw token string and returns the embedded
// user id. Failures map to ErrTokenMalformed, ErrTokenSignatureInvalid or
// ErrTokenExpired.
func (s *TokenService) Verify(raw string) (int64, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}), jwt.WithTimeFunc(s.now))
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return 0, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return 0, ErrTokenSignatureInvalid
		default:
			return 0, fmt.Errorf("%w: %v", ErrTokenMalformed, err)
		}
	}

	if !token.Valid || claims.UserID == 0 {
		return 0, ErrTokenMalformed
	}
	return claims.UserID, nil
}
