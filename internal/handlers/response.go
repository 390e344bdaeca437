package handlers

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/arzan03/shopfront/internal/apperr"
	"github.com/arzan03/shopfront/internal/logger"
	"github.com/arzan03/shopfront/internal/services"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

func statusOf(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation, apperr.KindInvalidTransition:
		return fiber.StatusBadRequest
	case apperr.KindUnauthorized:
		return fiber.StatusUnauthorized
	case apperr.KindForbidden:
		return fiber.StatusForbidden
	case apperr.KindNotFound:
		return fiber.StatusNotFound
	case apperr.KindConflict:
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

// ErrorHandler renders every error as {"error", "code"}. Faults are logged and never shown to the client.
func ErrorHandler(log logger.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			code := strings.ToLower(strings.ReplaceAll(utils.StatusMessage(fe.Code), " ", "_"))
			return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message, "code": code})
		}

		e, ok := apperr.As(err)
		if !ok || statusOf(e.Kind) == fiber.StatusInternalServerError {
			log.Errorf("Request %s %s failed: %v", c.Method(), c.Path(), err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error", "code": "internal"})
		}
		return c.Status(statusOf(e.Kind)).JSON(fiber.Map{"error": e.Message, "code": e.Code})
	}
}

// bind parses the JSON body into dst and runs its validate tags.
func bind(c *fiber.Ctx, dst interface{}) error {
	if err := c.BodyParser(dst); err != nil {
		return apperr.Validation("invalid request body")
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return apperr.Validation("%s", fieldMessage(verrs[0]))
		}
		return apperr.Validation("invalid request body")
	}
	return nil
}

func fieldMessage(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field())
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "email":
		return field + " must be a valid email"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	}
	return field + " is invalid"
}

// formImage reads a multipart image field into a services.Image.
func formImage(c *fiber.Ctx, field string) (services.Image, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return services.Image{}, apperr.Validation("%s file is required", field)
	}
	f, err := fh.Open()
	if err != nil {
		return services.Image{}, apperr.Validation("cannot read uploaded file")
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return services.Image{}, apperr.Validation("cannot read uploaded file")
	}
	return services.Image{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get(fiber.HeaderContentType),
		Data:        data,
	}, nil
}
