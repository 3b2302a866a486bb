package password

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/shopd/shopd/internal/clock"
	"github.com/shopd/shopd/internal/domain"
	"github.com/shopd/shopd/internal/notification"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const resetTokenTTL = time.Hour

// User is the slice of the account record this flow touches.
type User struct {
	ID               string    `bson:"_id,omitempty"`
	Name             string    `bson:"name"`
	Email            string    `bson:"email"`
	PasswordHash     string    `bson:"password_hash"`
	ResetTokenDigest string    `bson:"reset_token_digest,omitempty"`
	ResetTokenExpiry time.Time `bson:"reset_token_expiry,omitempty"`
}

// UserStore is the account lookup boundary; the rest of user management
// lives outside this service.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByResetDigest(ctx context.Context, digest string, now time.Time) (*User, error)
	SetResetToken(ctx context.Context, userID, digest string, expiry time.Time) error
	// UpdatePassword stores the new hash and clears any reset token.
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
}

// Service issues and redeems password-reset tokens. The notification sink is
// an injected dependency, never ambient transporter state.
type Service struct {
	users       UserStore
	sink        notification.Sink
	clock       clock.Clock
	logger      *zap.Logger
	frontendURL string
}

func NewService(users UserStore, sink notification.Sink, clk clock.Clock, logger *zap.Logger, frontendURL string) *Service {
	return &Service{
		users:       users,
		sink:        sink,
		clock:       clk,
		logger:      logger,
		frontendURL: frontendURL,
	}
}

// Forgot issues a reset token for the account behind email. Only the SHA-256
// digest is stored; the raw token travels in the emailed link and nowhere
// else.
func (s *Service) Forgot(ctx context.Context, email string) error {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return err
	}

	raw := make([]byte, 20)
	if _, err := rand.Read(raw); err != nil {
		return fmt.Errorf("generate reset token: %w", err)
	}
	token := hex.EncodeToString(raw)

	expiry := s.clock.Now().Add(resetTokenTTL)
	if err := s.users.SetResetToken(ctx, user.ID, digest(token), expiry); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}

	resetURL := fmt.Sprintf("%s/reset-password/%s", s.frontendURL, token)
	if err := s.sink.SendPasswordReset(ctx, user.Email, resetURL); err != nil {
		return fmt.Errorf("send reset notification: %w", err)
	}

	s.logger.Info("password reset issued", zap.String("user_id", user.ID))
	return nil
}

// Reset redeems a token and sets the new password. Expired or unknown tokens
// fail with domain.ErrInvalidResetToken.
func (s *Service) Reset(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < 8 {
		return fmt.Errorf("%w: password must be at least 8 characters", domain.ErrInvalidResetToken)
	}

	user, err := s.users.FindByResetDigest(ctx, digest(token), s.clock.Now())
	if err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.users.UpdatePassword(ctx, user.ID, string(hash)); err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	s.logger.Info("password reset completed", zap.String("user_id", user.ID))
	return nil
}

func digest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
