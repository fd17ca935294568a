package auth

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/semaphore"
)

// ErrInvalidCredentials is returned for any login failure. Unknown email
// and wrong password are deliberately indistinguishable.
var ErrInvalidCredentials = errors.New("invalid credentials")

// PasswordHasher wraps bcrypt behind a weighted semaphore so that a burst
// of registrations or logins cannot pin every scheduler thread on hashing
// and starve unrelated requests.
type PasswordHasher struct {
	cost int
	sem  *semaphore.Weighted
}

// NewPasswordHasher returns a hasher with the given bcrypt cost. A cost
// below bcrypt.MinCost falls back to bcrypt.DefaultCost.
func NewPasswordHasher(cost int) *PasswordHasher {
	if cost < bcrypt.MinCost {
		cost = bcrypt.DefaultCost
	}
	return &PasswordHasher{
		cost: cost,
		sem:  semaphore.NewWeighted(int64(runtime.GOMAXPROCS(0))),
	}
}

// Hash derives a salted digest of password. It waits for a hashing slot
// and respects ctx cancellation while waiting.
func (h *PasswordHasher) Hash(ctx context.Context, password string) (string, error) {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer h.sem.Release(1)

	digest, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(digest), nil
}

// Verify compares password against a stored digest. A mismatch is
// ErrInvalidCredentials; any other failure is passed through.
func (h *PasswordHasher) Verify(ctx context.Context, password, digest string) error {
	if err := h.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer h.sem.Release(1)

	if err := bcrypt.CompareHashAndPassword([]byte(digest), []byte(password)); err != nil {
		return ErrInvalidCredentials
	}
	return nil
}
