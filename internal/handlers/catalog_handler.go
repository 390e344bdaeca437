package handlers

import (
	"github.com/arzan03/shopfront/internal/services"
	"github.com/gofiber/fiber/v2"
)

type CatalogHandler struct {
	catalog *services.CatalogService
}

func NewCatalogHandler(catalog *services.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

type categoryRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
}

type categoryPatchRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1"`
	Description *string `json:"description"`
}

type productRequest struct {
	Name        string  `json:"name" validate:"required"`
	Price       float64 `json:"price" validate:"gt=0"`
	Description string  `json:"description"`
	CategoryID  string  `json:"category" validate:"required"`
	Quantity    int     `json:"quantity" validate:"gte=0"`
	InStock     *bool   `json:"inStock"`
}

type productPatchRequest struct {
	Name        *string  `json:"name" validate:"omitempty,min=1"`
	Price       *float64 `json:"price" validate:"omitempty,gt=0"`
	Description *string  `json:"description"`
	CategoryID  *string  `json:"category"`
	Quantity    *int     `json:"quantity" validate:"omitempty,gte=0"`
	InStock     *bool    `json:"inStock"`
}

type removeImageRequest struct {
	URL string `json:"url" validate:"required"`
}

func (h *CatalogHandler) ListCategories(c *fiber.Ctx) error {
	categories, err := h.catalog.ListCategories(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(categories)
}

func (h *CatalogHandler) GetCategory(c *fiber.Ctx) error {
	category, err := h.catalog.GetCategory(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(category)
}

func (h *CatalogHandler) CreateCategory(c *fiber.Ctx) error {
	var req categoryRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	category, err := h.catalog.CreateCategory(c.UserContext(), services.CategoryInput{Name: req.Name, Description: req.Description})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(category)
}

func (h *CatalogHandler) UpdateCategory(c *fiber.Ctx) error {
	var req categoryPatchRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	category, err := h.catalog.UpdateCategory(c.UserContext(), c.Params("id"), services.CategoryPatch{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		return err
	}
	return c.JSON(category)
}

func (h *CatalogHandler) DeleteCategory(c *fiber.Ctx) error {
	if err := h.catalog.DeleteCategory(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Category deleted successfully"})
}

// ListProducts accepts an optional ?category= filter.
func (h *CatalogHandler) ListProducts(c *fiber.Ctx) error {
	products, err := h.catalog.ListProducts(c.UserContext(), c.Query("category"))
	if err != nil {
		return err
	}
	return c.JSON(products)
}

func (h *CatalogHandler) GetProduct(c *fiber.Ctx) error {
	product, err := h.catalog.GetProduct(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(product)
}

func (h *CatalogHandler) CreateProduct(c *fiber.Ctx) error {
	var req productRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	product, err := h.catalog.CreateProduct(c.UserContext(), services.ProductInput{
		Name:        req.Name,
		Price:       req.Price,
		Description: req.Description,
		CategoryID:  req.CategoryID,
		Quantity:    req.Quantity,
		InStock:     req.InStock,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(product)
}

func (h *CatalogHandler) UpdateProduct(c *fiber.Ctx) error {
	var req productPatchRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	product, err := h.catalog.UpdateProduct(c.UserContext(), c.Params("id"), services.ProductPatch{
		Name:        req.Name,
		Price:       req.Price,
		Description: req.Description,
		CategoryID:  req.CategoryID,
		Quantity:    req.Quantity,
		InStock:     req.InStock,
	})
	if err != nil {
		return err
	}
	return c.JSON(product)
}

func (h *CatalogHandler) DeleteProduct(c *fiber.Ctx) error {
	if err := h.catalog.DeleteProduct(c.UserContext(), c.Params("id")); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "Product deleted successfully"})
}

// AddProductImage expects a multipart "image" field.
func (h *CatalogHandler) AddProductImage(c *fiber.Ctx) error {
	img, err := formImage(c, "image")
	if err != nil {
		return err
	}

	product, err := h.catalog.AddProductImage(c.UserContext(), c.Params("id"), img)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(product)
}

func (h *CatalogHandler) RemoveProductImage(c *fiber.Ctx) error {
	var req removeImageRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	product, err := h.catalog.RemoveProductImage(c.UserContext(), c.Params("id"), req.URL)
	if err != nil {
		return err
	}
	return c.JSON(product)
}
