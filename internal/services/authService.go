package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/arzan03/shopfront/internal/apperr"
	"github.com/arzan03/shopfront/internal/auth"
	"github.com/arzan03/shopfront/internal/logger"
	"github.com/arzan03/shopfront/internal/models"
	"github.com/arzan03/shopfront/internal/notify"
	"github.com/arzan03/shopfront/internal/repository"
)

const minPasswordLength = 6

type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Role     string
}

type AuthResult struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

type AuthService struct {
	users      repository.UserRepository
	issuer     *auth.TokenIssuer
	notifier   Notifier
	bcryptCost int
	log        logger.Logger
}

func NewAuthService(users repository.UserRepository, issuer *auth.TokenIssuer, notifier Notifier, bcryptCost int, log logger.Logger) *AuthService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &AuthService{users: users, issuer: issuer, notifier: notifier, bcryptCost: bcryptCost, log: log}
}

func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return apperr.Validation("password must be at least %d characters", minPasswordLength)
	}
	return nil
}

// buildUser validates in and returns a user with a hashed password. Role defaults to customer.
func buildUser(in RegisterInput, cost int) (*models.User, error) {
	name := strings.TrimSpace(in.Name)
	email := models.NormalizeEmail(in.Email)
	if name == "" || email == "" || in.Password == "" {
		return nil, apperr.Validation("name, email and password are required")
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}
	role := in.Role
	if role == "" {
		role = models.RoleCustomer
	}
	if !models.ValidRole(role) {
		return nil, apperr.Validation("invalid role %q", role)
	}

	hash, err := auth.HashPassword(in.Password, cost)
	if err != nil {
		return nil, apperr.Unavailable(err, "failed to hash password")
	}
	now := time.Now().UTC()
	return &models.User{
		Name:      name,
		Email:     email,
		Password:  hash,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Register creates a customer or vendor account and signs the caller in.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	s.log.Infof("AuthService: Register called for email %s", models.NormalizeEmail(in.Email))

	if in.Role == models.RoleAdmin {
		return nil, apperr.Validation("role must be customer or vendor")
	}
	user, err := buildUser(in, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			s.log.Warnf("AuthService: email %s already registered", user.Email)
			return nil, apperr.Conflict("email already in use")
		}
		s.log.Errorf("AuthService: failed to create user %s: %v", user.Email, err)
		return nil, storeErr(err, "user")
	}

	token, err := s.issuer.Issue(user.ID.Hex(), user.Role)
	if err != nil {
		s.log.Errorf("AuthService: failed to issue token for %s: %v", user.ID.Hex(), err)
		return nil, apperr.Unavailable(err, "failed to issue token")
	}

	s.notifier.Dispatch(user.Email, notify.KindWelcome, notify.Data{Name: user.Name, Email: user.Email})
	s.log.Infof("AuthService: user %s registered with role %s", user.ID.Hex(), user.Role)
	return &AuthResult{User: user, Token: token}, nil
}

// Login authenticates a user and returns a JWT with role info
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = models.NormalizeEmail(email)
	s.log.Infof("AuthService: Login called for email %s", email)

	if email == "" || password == "" {
		return nil, apperr.Validation("email and password are required")
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.Unauthorized("invalid email or password")
		}
		s.log.Errorf("AuthService: failed to look up %s: %v", email, err)
		return nil, storeErr(err, "user")
	}
	if !auth.VerifyPassword(password, user.Password) {
		s.log.Warnf("AuthService: wrong password for %s", email)
		return nil, apperr.Unauthorized("invalid email or password")
	}

	token, err := s.issuer.Issue(user.ID.Hex(), user.Role)
	if err != nil {
		s.log.Errorf("AuthService: failed to issue token for %s: %v", user.ID.Hex(), err)
		return nil, apperr.Unavailable(err, "failed to issue token")
	}
	return &AuthResult{User: user, Token: token}, nil
}
