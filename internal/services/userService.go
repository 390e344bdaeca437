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

// UserPatch holds the fields an admin may change. Nil fields are left untouched.
type UserPatch struct {
	Name     *string
	Email    *string
	Role     *string
	Password *string
}

type UserService struct {
	users      repository.UserRepository
	images     ImageStore
	notifier   Notifier
	bcryptCost int
	log        logger.Logger
}

func NewUserService(users repository.UserRepository, images ImageStore, notifier Notifier, bcryptCost int, log logger.Logger) *UserService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &UserService{users: users, images: images, notifier: notifier, bcryptCost: bcryptCost, log: log}
}

func (s *UserService) ListUsers(ctx context.Context) ([]models.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		s.log.Errorf("UserService: failed to list users: %v", err)
		return nil, storeErr(err, "user")
	}
	return users, nil
}

func (s *UserService) GetUser(ctx context.Context, id string) (*models.User, error) {
	oid, err := parseID(id, "user")
	if err != nil {
		return nil, err
	}
	user, err := s.users.FindByID(ctx, oid)
	if err != nil {
		return nil, storeErr(err, "user")
	}
	return user, nil
}

// CreateUser is the admin path and may assign any role, admin included.
func (s *UserService) CreateUser(ctx context.Context, in RegisterInput) (*models.User, error) {
	s.log.Infof("UserService: CreateUser called for email %s, role %s", models.NormalizeEmail(in.Email), in.Role)

	user, err := buildUser(in, s.bcryptCost)
	if err != nil {
		return nil, err
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.Conflict("email already in use")
		}
		s.log.Errorf("UserService: failed to create user %s: %v", user.Email, err)
		return nil, storeErr(err, "user")
	}
	return user, nil
}

func (s *UserService) UpdateUser(ctx context.Context, id string, patch UserPatch) (*models.User, error) {
	s.log.Infof("UserService: UpdateUser called for %s", id)

	user, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, apperr.Validation("name cannot be empty")
		}
		user.Name = name
	}
	if patch.Email != nil {
		email := models.NormalizeEmail(*patch.Email)
		if email == "" {
			return nil, apperr.Validation("email cannot be empty")
		}
		user.Email = email
	}
	if patch.Role != nil {
		if !models.ValidRole(*patch.Role) {
			return nil, apperr.Validation("invalid role %q", *patch.Role)
		}
		user.Role = *patch.Role
	}
	if patch.Password != nil {
		if err := validatePassword(*patch.Password); err != nil {
			return nil, err
		}
		hash, err := auth.HashPassword(*patch.Password, s.bcryptCost)
		if err != nil {
			return nil, apperr.Unavailable(err, "failed to hash password")
		}
		user.Password = hash
	}
	user.UpdatedAt = time.Now().UTC()

	if err := s.users.Update(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperr.Conflict("email already in use")
		}
		s.log.Errorf("UserService: failed to update user %s: %v", id, err)
		return nil, storeErr(err, "user")
	}
	return user, nil
}

func (s *UserService) DeleteUser(ctx context.Context, id string) error {
	s.log.Infof("UserService: DeleteUser called for %s", id)

	oid, err := parseID(id, "user")
	if err != nil {
		return err
	}
	if err := s.users.Delete(ctx, oid); err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.log.Errorf("UserService: failed to delete user %s: %v", id, err)
		}
		return storeErr(err, "user")
	}
	return nil
}

func (s *UserService) GetProfile(ctx context.Context, actor Actor) (*models.User, error) {
	return s.GetUser(ctx, actor.UserID)
}

func (s *UserService) ChangePassword(ctx context.Context, actor Actor, oldPassword, newPassword string) error {
	s.log.Infof("UserService: ChangePassword called for %s", actor.UserID)

	if oldPassword == "" || newPassword == "" {
		return apperr.Validation("old and new password are required")
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}
	user, err := s.GetUser(ctx, actor.UserID)
	if err != nil {
		return err
	}
	if !auth.VerifyPassword(oldPassword, user.Password) {
		s.log.Warnf("UserService: wrong current password for %s", actor.UserID)
		return apperr.Unauthorized("current password is incorrect")
	}

	hash, err := auth.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return apperr.Unavailable(err, "failed to hash password")
	}
	user.Password = hash
	user.UpdatedAt = time.Now().UTC()
	if err := s.users.Update(ctx, user); err != nil {
		s.log.Errorf("UserService: failed to store new password for %s: %v", actor.UserID, err)
		return storeErr(err, "user")
	}

	s.notifier.Dispatch(user.Email, notify.KindPasswordChanged, notify.Data{Name: user.Name, Email: user.Email})
	return nil
}

// UploadProfileImage replaces the caller's profile image. The previous object is removed best-effort.
func (s *UserService) UploadProfileImage(ctx context.Context, actor Actor, img Image) (*models.User, error) {
	s.log.Infof("UserService: UploadProfileImage called for %s", actor.UserID)

	if err := img.validate(); err != nil {
		return nil, err
	}
	user, err := s.GetUser(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}

	url, err := s.images.Upload(ctx, "profiles", img.Filename, img.ContentType, img.Data)
	if err != nil {
		s.log.Errorf("UserService: failed to upload profile image for %s: %v", actor.UserID, err)
		return nil, apperr.Unavailable(err, "failed to upload image")
	}

	previous := user.ProfileImage
	user.ProfileImage = url
	user.UpdatedAt = time.Now().UTC()
	if err := s.users.Update(ctx, user); err != nil {
		s.log.Errorf("UserService: failed to save profile image for %s: %v", actor.UserID, err)
		_ = s.images.Remove(ctx, url)
		return nil, storeErr(err, "user")
	}

	if previous != "" {
		if err := s.images.Remove(ctx, previous); err != nil {
			s.log.Warnf("UserService: failed to remove old profile image %s: %v", previous, err)
		}
	}
	return user, nil
}
