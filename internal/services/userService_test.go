package services

import (
	"context"
	"testing"

	"github.com/arzan03/shopfront/internal/apperr"
	"github.com/arzan03/shopfront/internal/auth"
	"github.com/arzan03/shopfront/internal/models"
	"github.com/arzan03/shopfront/internal/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func strPtr(s string) *string { return &s }

func TestUserService_CreateUserAllowsAdmin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	u, err := env.user.CreateUser(ctx, RegisterInput{Name: "Root", Email: "root@example.com", Password: "secret1", Role: models.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, u.Role)

	_, err = env.user.CreateUser(ctx, RegisterInput{Name: "Root", Email: "ROOT@example.com", Password: "secret1"})
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))
}

func TestUserService_UpdateUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u, _ := env.newUser(t, models.RoleCustomer)
	other, _ := env.newUser(t, models.RoleCustomer)

	updated, err := env.user.UpdateUser(ctx, u.ID.Hex(), UserPatch{
		Name:     strPtr("Renamed"),
		Role:     strPtr(models.RoleVendor),
		Password: strPtr("changed1"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Name)
	assert.Equal(t, models.RoleVendor, updated.Role)
	assert.True(t, auth.VerifyPassword("changed1", updated.Password))

	_, err = env.user.UpdateUser(ctx, u.ID.Hex(), UserPatch{Role: strPtr("root")})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = env.user.UpdateUser(ctx, u.ID.Hex(), UserPatch{Email: strPtr(other.Email)})
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	_, err = env.user.UpdateUser(ctx, primitive.NewObjectID().Hex(), UserPatch{Name: strPtr("x")})
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}

func TestUserService_DeleteUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u, _ := env.newUser(t, models.RoleCustomer)

	require.NoError(t, env.user.DeleteUser(ctx, u.ID.Hex()))
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(env.user.DeleteUser(ctx, u.ID.Hex())))
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(env.user.DeleteUser(ctx, "nope")))

	users, err := env.user.ListUsers(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)
}

func TestUserService_ChangePassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u, actor := env.newUser(t, models.RoleCustomer)
	env.notifier.On("Dispatch", u.Email, notify.KindPasswordChanged, mock.Anything).Once()

	err := env.user.ChangePassword(ctx, actor, "wrong-one", "newpass1")
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(err))

	err = env.user.ChangePassword(ctx, actor, "password123", "123")
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	require.NoError(t, env.user.ChangePassword(ctx, actor, "password123", "newpass1"))
	_, err = env.auth.Login(ctx, u.Email, "newpass1")
	require.NoError(t, err)

	env.notifier.AssertExpectations(t)
}

func TestUserService_UploadProfileImage(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, actor := env.newUser(t, models.RoleCustomer)
	img := Image{Filename: "me.png", ContentType: "image/png", Data: []byte("png-bytes")}

	first, err := env.user.UploadProfileImage(ctx, actor, img)
	require.NoError(t, err)
	require.NotEmpty(t, first.ProfileImage)
	firstURL := first.ProfileImage

	second, err := env.user.UploadProfileImage(ctx, actor, img)
	require.NoError(t, err)
	assert.NotEqual(t, firstURL, second.ProfileImage)
	assert.Contains(t, env.images.removed, firstURL)
	assert.Contains(t, env.images.objects, second.ProfileImage)

	profile, err := env.user.GetProfile(ctx, actor)
	require.NoError(t, err)
	assert.Equal(t, second.ProfileImage, profile.ProfileImage)
}

func TestUserService_UploadProfileImageValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, actor := env.newUser(t, models.RoleCustomer)

	tests := []struct {
		name string
		img  Image
	}{
		{"empty", Image{Filename: "a.png", ContentType: "image/png"}},
		{"wrong extension", Image{Filename: "a.exe", ContentType: "image/png", Data: []byte("x")}},
		{"wrong content type", Image{Filename: "a.png", ContentType: "application/pdf", Data: []byte("x")}},
		{"too large", Image{Filename: "a.jpg", ContentType: "image/jpeg", Data: make([]byte, maxImageSize+1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.user.UploadProfileImage(ctx, actor, tt.img)
			assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
		})
	}
	assert.Empty(t, env.images.objects)
}
