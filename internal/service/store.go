package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/personality-predictor/backend/internal/constants"
	"github.com/personality-predictor/backend/internal/model"
)

// UserStore is the persistence the auth services need. Implemented by
// repository.UserRepository.
type UserStore interface {
	GetByID(ctx context.Context, id uint) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	FindByEmailOrProvider(ctx context.Context, email, provider, providerID string) (*model.User, error)
	Create(ctx context.Context, user *model.User) error
	LinkProvider(ctx context.Context, id uint, provider, providerID, picture string) error
	UpdateLastLogin(ctx context.Context, id uint) error
	SetVerificationToken(ctx context.Context, id uint, tokenHash string, expiresAt time.Time) error
	SetResetToken(ctx context.Context, id uint, tokenHash string, expiresAt time.Time) error
	ConsumeVerificationToken(ctx context.Context, email, tokenHash string, now time.Time) error
	ConsumeResetToken(ctx context.Context, tokenHash, passwordHash string, now time.Time) (uint, error)
}

type ContactStore interface {
	Create(ctx context.Context, contact *model.Contact) error
}

// AccountMailer sends the account emails. Implemented by mailer.Mailer.
type AccountMailer interface {
	SendPasswordReset(ctx context.Context, to, rawToken string, ttl time.Duration) error
	SendVerification(ctx context.Context, to, name, rawToken string) error
}

// newSingleUseToken returns a random hex token for the email link and the
// sha256 hex digest that is stored in its place.
func newSingleUseToken() (raw, hash string, err error) {
	buf := make([]byte, constants.TokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("generate token: %w", err)
	}
	raw = hex.EncodeToString(buf)
	return raw, hashToken(raw), nil
}

func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
