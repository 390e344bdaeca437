package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/arzan03/shopfront/internal/apperr"
	"github.com/arzan03/shopfront/internal/auth"
	"github.com/arzan03/shopfront/internal/logger"
	"github.com/arzan03/shopfront/internal/models"
	"github.com/arzan03/shopfront/internal/notify"
	"github.com/arzan03/shopfront/internal/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type PasswordConfig struct {
	TokenTTL time.Duration
	ResetURL string
	// ExposeToken returns the raw token from ForgotPassword. Only for local development.
	ExposeToken bool
	BcryptCost  int
}

type PasswordService struct {
	users    repository.UserRepository
	tokens   repository.ResetTokenStore
	notifier Notifier
	cfg      PasswordConfig
	log      logger.Logger
}

func NewPasswordService(users repository.UserRepository, tokens repository.ResetTokenStore, notifier Notifier, cfg PasswordConfig, log logger.Logger) *PasswordService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &PasswordService{users: users, tokens: tokens, notifier: notifier, cfg: cfg, log: log}
}

func generateSecureToken() (string, error) {
	token := make([]byte, 32)
	if _, err := rand.Read(token); err != nil {
		return "", fmt.Errorf("failed to generate secure token: %w", err)
	}
	return hex.EncodeToString(token), nil
}

// ForgotPassword stores a single-use reset token and emails the reset link.
// The returned token is empty unless ExposeToken is set.
func (s *PasswordService) ForgotPassword(ctx context.Context, email string) (string, error) {
	email = models.NormalizeEmail(email)
	s.log.Infof("PasswordService: ForgotPassword called for %s", email)

	if email == "" {
		return "", apperr.Validation("email is required")
	}
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return "", storeErr(err, "user")
	}

	token, err := generateSecureToken()
	if err != nil {
		return "", apperr.Unavailable(err, "failed to generate token")
	}
	if err := s.tokens.Save(ctx, token, user.ID.Hex(), s.cfg.TokenTTL); err != nil {
		s.log.Errorf("PasswordService: failed to store reset token for %s: %v", user.ID.Hex(), err)
		return "", apperr.Unavailable(err, "token store unavailable")
	}

	s.notifier.Dispatch(user.Email, notify.KindPasswordReset, notify.Data{
		Name:      user.Name,
		Email:     user.Email,
		ResetLink: s.cfg.ResetURL + "?token=" + url.QueryEscape(token),
		ResetTTL:  s.cfg.TokenTTL.String(),
	})

	if s.cfg.ExposeToken {
		return token, nil
	}
	return "", nil
}

func (s *PasswordService) ResetPassword(ctx context.Context, token, newPassword string) error {
	s.log.Infof("PasswordService: ResetPassword called")

	if token == "" || newPassword == "" {
		return apperr.Validation("token and new password required")
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	userID, err := s.tokens.Consume(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.Validation("invalid or expired token")
		}
		s.log.Errorf("PasswordService: failed to consume reset token: %v", err)
		return apperr.Unavailable(err, "token store unavailable")
	}

	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return apperr.Validation("invalid or expired token")
	}
	user, err := s.users.FindByID(ctx, oid)
	if err != nil {
		return storeErr(err, "user")
	}

	hash, err := auth.HashPassword(newPassword, s.cfg.BcryptCost)
	if err != nil {
		return apperr.Unavailable(err, "failed to hash password")
	}
	user.Password = hash
	user.UpdatedAt = time.Now().UTC()
	if err := s.users.Update(ctx, user); err != nil {
		s.log.Errorf("PasswordService: failed to store new password for %s: %v", userID, err)
		return storeErr(err, "user")
	}

	s.notifier.Dispatch(user.Email, notify.KindPasswordChanged, notify.Data{Name: user.Name, Email: user.Email})
	return nil
}
