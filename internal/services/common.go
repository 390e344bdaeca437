package services

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	"github.com/arzan03/shopfront/internal/apperr"
	"github.com/arzan03/shopfront/internal/models"
	"github.com/arzan03/shopfront/internal/notify"
	"github.com/arzan03/shopfront/internal/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const maxImageSize = 1 << 20

var imageExtensions = map[string]bool{".jpeg": true, ".jpg": true, ".png": true, ".gif": true, ".webp": true}

// Actor is the verified caller as presented by the auth middleware.
type Actor struct {
	UserID string
	Role   string
}

func (a Actor) IsAdmin() bool { return a.Role == models.RoleAdmin }

// Notifier queues an email without waiting for it. DispatchFunc defers the recipient
// lookup to the background worker.
type Notifier interface {
	Dispatch(email string, kind notify.Kind, data notify.Data)
	DispatchFunc(kind notify.Kind, resolve notify.Resolver)
}

type ImageStore interface {
	Upload(ctx context.Context, prefix, filename, contentType string, data []byte) (string, error)
	Remove(ctx context.Context, url string) error
}

// Image is an uploaded file as received by the handlers.
type Image struct {
	Filename    string
	ContentType string
	Data        []byte
}

func (img Image) validate() error {
	if len(img.Data) == 0 {
		return apperr.Validation("image file is required")
	}
	if len(img.Data) > maxImageSize {
		return apperr.Validation("image must be at most 1MB")
	}
	ext := strings.ToLower(filepath.Ext(img.Filename))
	if !imageExtensions[ext] || !strings.HasPrefix(img.ContentType, "image/") {
		return apperr.Validation("only image files (JPEG, PNG, GIF, WebP) are allowed")
	}
	return nil
}

func parseID(id, what string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, apperr.Validation("invalid %s id", what)
	}
	return oid, nil
}

// storeErr classifies a repository failure. what names the entity for NotFound messages.
func storeErr(err error, what string) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperr.NotFound("%s not found", what)
	case errors.Is(err, repository.ErrDuplicate):
		return apperr.Conflict("%s already exists", what)
	case errors.Is(err, repository.ErrConflict):
		return apperr.Conflict("%s was modified concurrently, retry", what)
	case errors.Is(err, repository.ErrInvalidQuantity):
		return apperr.Validation("quantity must be greater than 0")
	}
	if _, ok := apperr.As(err); ok {
		return err
	}
	return apperr.Unavailable(err, "%s store unavailable", what)
}

type nopNotifier struct{}

func (nopNotifier) Dispatch(string, notify.Kind, notify.Data) {}

func (nopNotifier) DispatchFunc(notify.Kind, notify.Resolver) {}
