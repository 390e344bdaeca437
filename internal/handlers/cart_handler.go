package handlers

import (
	"github.com/arzan03/shopfront/internal/middleware"
	"github.com/arzan03/shopfront/internal/services"
	"github.com/gofiber/fiber/v2"
)

type CartHandler struct {
	carts *services.CartService
}

func NewCartHandler(carts *services.CartService) *CartHandler {
	return &CartHandler{carts: carts}
}

type addItemRequest struct {
	ProductID string `json:"productId" validate:"required"`
	Quantity  int    `json:"quantity" validate:"gt=0,lte=999"`
}

type updateItemRequest struct {
	Quantity int `json:"quantity" validate:"gt=0,lte=999"`
}

func (h *CartHandler) GetCart(c *fiber.Ctx) error {
	cart, err := h.carts.GetCart(c.UserContext(), middleware.ActorFrom(c), c.Params("userId"))
	if err != nil {
		return err
	}
	return c.JSON(cart)
}

func (h *CartHandler) CreateCart(c *fiber.Ctx) error {
	cart, err := h.carts.EnsureCart(c.UserContext(), middleware.ActorFrom(c), c.Params("userId"))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(cart)
}

func (h *CartHandler) AddItem(c *fiber.Ctx) error {
	var req addItemRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	cart, err := h.carts.AddItem(c.UserContext(), middleware.ActorFrom(c), c.Params("userId"), req.ProductID, req.Quantity)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(cart)
}

func (h *CartHandler) UpdateItem(c *fiber.Ctx) error {
	var req updateItemRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	cart, err := h.carts.UpdateItemQuantity(c.UserContext(), middleware.ActorFrom(c), c.Params("userId"), c.Params("itemId"), req.Quantity)
	if err != nil {
		return err
	}
	return c.JSON(cart)
}

func (h *CartHandler) RemoveItem(c *fiber.Ctx) error {
	cart, err := h.carts.RemoveItem(c.UserContext(), middleware.ActorFrom(c), c.Params("userId"), c.Params("itemId"))
	if err != nil {
		return err
	}
	return c.JSON(cart)
}
