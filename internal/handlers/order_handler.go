package handlers

import (
	"github.com/arzan03/shopfront/internal/middleware"
	"github.com/arzan03/shopfront/internal/services"
	"github.com/gofiber/fiber/v2"
)

type OrderHandler struct {
	orders *services.OrderService
}

func NewOrderHandler(orders *services.OrderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

type updateStatusRequest struct {
	Status         string `json:"status" validate:"required"`
	TrackingNumber string `json:"trackingNumber"`
}

// CreateOrder checks out the caller's cart.
func (h *OrderHandler) CreateOrder(c *fiber.Ctx) error {
	order, err := h.orders.CreateOrderFromCart(c.UserContext(), middleware.ActorFrom(c))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(order)
}

func (h *OrderHandler) GetMyOrders(c *fiber.Ctx) error {
	orders, err := h.orders.GetMyOrders(c.UserContext(), middleware.ActorFrom(c))
	if err != nil {
		return err
	}
	return c.JSON(orders)
}

func (h *OrderHandler) GetOrder(c *fiber.Ctx) error {
	order, err := h.orders.GetOrderById(c.UserContext(), middleware.ActorFrom(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(order)
}

func (h *OrderHandler) CancelOrder(c *fiber.Ctx) error {
	order, err := h.orders.CancelOrder(c.UserContext(), middleware.ActorFrom(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(order)
}

func (h *OrderHandler) ListAllOrders(c *fiber.Ctx) error {
	orders, err := h.orders.AdminListAllOrders(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(orders)
}

func (h *OrderHandler) UpdateStatus(c *fiber.Ctx) error {
	var req updateStatusRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	order, err := h.orders.AdminUpdateStatus(c.UserContext(), c.Params("id"), req.Status, req.TrackingNumber)
	if err != nil {
		return err
	}
	return c.JSON(order)
}
