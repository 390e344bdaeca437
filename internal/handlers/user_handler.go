package handlers

import (
	"github.com/arzan03/shopfront/internal/middleware"
	"github.com/arzan03/shopfront/internal/services"
	"github.com/gofiber/fiber/v2"
)

// UserHandler serves the caller's own profile.
type UserHandler struct {
	users *services.UserService
}

func NewUserHandler(users *services.UserService) *UserHandler {
	return &UserHandler{users: users}
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=6"`
}

func (h *UserHandler) Me(c *fiber.Ctx) error {
	user, err := h.users.GetProfile(c.UserContext(), middleware.ActorFrom(c))
	if err != nil {
		return err
	}
	return c.JSON(user)
}

func (h *UserHandler) ChangePassword(c *fiber.Ctx) error {
	var req changePasswordRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	if err := h.users.ChangePassword(c.UserContext(), middleware.ActorFrom(c), req.OldPassword, req.NewPassword); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Password updated successfully"})
}

// UploadProfileImage expects a multipart "image" field.
func (h *UserHandler) UploadProfileImage(c *fiber.Ctx) error {
	img, err := formImage(c, "image")
	if err != nil {
		return err
	}

	user, err := h.users.UploadProfileImage(c.UserContext(), middleware.ActorFrom(c), img)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Profile image uploaded successfully", "user": user})
}
