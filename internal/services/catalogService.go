package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/arzan03/shopfront/internal/apperr"
	"github.com/arzan03/shopfront/internal/logger"
	"github.com/arzan03/shopfront/internal/models"
	"github.com/arzan03/shopfront/internal/repository"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type CategoryInput struct {
	Name        string
	Description string
}

type CategoryPatch struct {
	Name        *string
	Description *string
}

type ProductInput struct {
	Name        string
	Price       float64
	Description string
	CategoryID  string
	Quantity    int
	// InStock defaults to Quantity > 0 when nil.
	InStock *bool
}

type ProductPatch struct {
	Name        *string
	Price       *float64
	Description *string
	CategoryID  *string
	Quantity    *int
	InStock     *bool
}

// CatalogService owns categories and products. FindProduct is the read path the cart and order engines use.
type CatalogService struct {
	categories repository.CategoryRepository
	products   repository.ProductRepository
	cache      repository.ProductCache
	images     ImageStore
	log        logger.Logger
}

// NewCatalogService accepts a nil cache, in which case every read goes to the store.
func NewCatalogService(categories repository.CategoryRepository, products repository.ProductRepository, cache repository.ProductCache, images ImageStore, log logger.Logger) *CatalogService {
	return &CatalogService{categories: categories, products: products, cache: cache, images: images, log: log}
}

func (s *CatalogService) CreateCategory(ctx context.Context, in CategoryInput) (*models.Category, error) {
	s.log.Infof("CatalogService: CreateCategory called with name %q", in.Name)

	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperr.Validation("category name is required")
	}
	now := time.Now().UTC()
	c := &models.Category{Name: name, Description: in.Description, CreatedAt: now, UpdatedAt: now}
	if err := s.categories.Create(ctx, c); err != nil {
		s.log.Errorf("CatalogService: failed to create category: %v", err)
		return nil, storeErr(err, "category")
	}
	return c, nil
}

func (s *CatalogService) ListCategories(ctx context.Context) ([]models.Category, error) {
	categories, err := s.categories.List(ctx)
	if err != nil {
		s.log.Errorf("CatalogService: failed to list categories: %v", err)
		return nil, storeErr(err, "category")
	}
	return categories, nil
}

func (s *CatalogService) GetCategory(ctx context.Context, id string) (*models.Category, error) {
	oid, err := parseID(id, "category")
	if err != nil {
		return nil, err
	}
	c, err := s.categories.FindByID(ctx, oid)
	if err != nil {
		return nil, storeErr(err, "category")
	}
	return c, nil
}

func (s *CatalogService) UpdateCategory(ctx context.Context, id string, patch CategoryPatch) (*models.Category, error) {
	s.log.Infof("CatalogService: UpdateCategory called for %s", id)

	c, err := s.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, apperr.Validation("category name is required")
		}
		c.Name = name
	}
	if patch.Description != nil {
		c.Description = *patch.Description
	}
	c.UpdatedAt = time.Now().UTC()
	if err := s.categories.Update(ctx, c); err != nil {
		s.log.Errorf("CatalogService: failed to update category %s: %v", id, err)
		return nil, storeErr(err, "category")
	}
	return c, nil
}

// DeleteCategory does not cascade. Products keep their category_id.
func (s *CatalogService) DeleteCategory(ctx context.Context, id string) error {
	s.log.Infof("CatalogService: DeleteCategory called for %s", id)

	oid, err := parseID(id, "category")
	if err != nil {
		return err
	}
	if err := s.categories.Delete(ctx, oid); err != nil {
		return storeErr(err, "category")
	}
	return nil
}

func (s *CatalogService) requireCategory(ctx context.Context, id string) (primitive.ObjectID, error) {
	c, err := s.GetCategory(ctx, id)
	if err != nil {
		return primitive.NilObjectID, err
	}
	return c.ID, nil
}

func (s *CatalogService) CreateProduct(ctx context.Context, in ProductInput) (*models.Product, error) {
	s.log.Infof("CatalogService: CreateProduct called with name %q", in.Name)

	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperr.Validation("product name is required")
	}
	if in.Price <= 0 {
		return nil, apperr.Validation("price must be greater than 0")
	}
	if in.Quantity < 0 {
		return nil, apperr.Validation("quantity cannot be negative")
	}
	categoryID, err := s.requireCategory(ctx, in.CategoryID)
	if err != nil {
		return nil, err
	}

	inStock := in.Quantity > 0
	if in.InStock != nil {
		inStock = *in.InStock
	}
	now := time.Now().UTC()
	p := &models.Product{
		Name:        name,
		Price:       in.Price,
		Description: in.Description,
		CategoryID:  categoryID,
		InStock:     inStock,
		Quantity:    in.Quantity,
		Images:      []string{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.products.Create(ctx, p); err != nil {
		s.log.Errorf("CatalogService: failed to create product: %v", err)
		return nil, storeErr(err, "product")
	}
	return p, nil
}

// ListProducts filters by category when categoryID is non-empty.
func (s *CatalogService) ListProducts(ctx context.Context, categoryID string) ([]models.Product, error) {
	var filter repository.ProductFilter
	if categoryID != "" {
		oid, err := parseID(categoryID, "category")
		if err != nil {
			return nil, err
		}
		filter.CategoryID = &oid
	}
	products, err := s.products.List(ctx, filter)
	if err != nil {
		s.log.Errorf("CatalogService: failed to list products: %v", err)
		return nil, storeErr(err, "product")
	}
	return products, nil
}

func (s *CatalogService) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	oid, err := parseID(id, "product")
	if err != nil {
		return nil, err
	}
	return s.FindProduct(ctx, oid)
}

// FindProduct is a cache-aside read. Cache failures degrade to a store read.
func (s *CatalogService) FindProduct(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	if s.cache != nil {
		p, err := s.cache.Get(ctx, id.Hex())
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			s.log.Warnf("CatalogService: product cache read failed for %s: %v", id.Hex(), err)
		}
	}

	p, err := s.products.FindByID(ctx, id)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.log.Errorf("CatalogService: failed to find product %s: %v", id.Hex(), err)
		}
		return nil, storeErr(err, "product")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, p); err != nil {
			s.log.Warnf("CatalogService: failed to cache product %s: %v", id.Hex(), err)
		}
	}
	return p, nil
}

// Invalidate drops the cached copy of a product after any write to it.
func (s *CatalogService) Invalidate(ctx context.Context, id primitive.ObjectID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, id.Hex()); err != nil {
		s.log.Warnf("CatalogService: failed to invalidate product %s: %v", id.Hex(), err)
	}
}

func (s *CatalogService) loadProduct(ctx context.Context, id string) (*models.Product, error) {
	oid, err := parseID(id, "product")
	if err != nil {
		return nil, err
	}
	p, err := s.products.FindByID(ctx, oid)
	if err != nil {
		return nil, storeErr(err, "product")
	}
	return p, nil
}

func (s *CatalogService) UpdateProduct(ctx context.Context, id string, patch ProductPatch) (*models.Product, error) {
	s.log.Infof("CatalogService: UpdateProduct called for %s", id)

	p, err := s.loadProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, apperr.Validation("product name is required")
		}
		p.Name = name
	}
	if patch.Price != nil {
		if *patch.Price <= 0 {
			return nil, apperr.Validation("price must be greater than 0")
		}
		p.Price = *patch.Price
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.CategoryID != nil {
		categoryID, err := s.requireCategory(ctx, *patch.CategoryID)
		if err != nil {
			return nil, err
		}
		p.CategoryID = categoryID
	}
	if patch.Quantity != nil {
		if *patch.Quantity < 0 {
			return nil, apperr.Validation("quantity cannot be negative")
		}
		p.Quantity = *patch.Quantity
		p.InStock = p.Quantity > 0
	}
	if patch.InStock != nil {
		p.InStock = *patch.InStock
	}
	p.UpdatedAt = time.Now().UTC()

	if err := s.products.Update(ctx, p); err != nil {
		s.log.Errorf("CatalogService: failed to update product %s: %v", id, err)
		return nil, storeErr(err, "product")
	}
	s.Invalidate(ctx, p.ID)
	return p, nil
}

func (s *CatalogService) DeleteProduct(ctx context.Context, id string) error {
	s.log.Infof("CatalogService: DeleteProduct called for %s", id)

	oid, err := parseID(id, "product")
	if err != nil {
		return err
	}
	if err := s.products.Delete(ctx, oid); err != nil {
		return storeErr(err, "product")
	}
	s.Invalidate(ctx, oid)
	return nil
}

func (s *CatalogService) AddProductImage(ctx context.Context, id string, img Image) (*models.Product, error) {
	s.log.Infof("CatalogService: AddProductImage called for %s", id)

	if err := img.validate(); err != nil {
		return nil, err
	}
	p, err := s.loadProduct(ctx, id)
	if err != nil {
		return nil, err
	}

	url, err := s.images.Upload(ctx, "products/"+p.ID.Hex(), img.Filename, img.ContentType, img.Data)
	if err != nil {
		s.log.Errorf("CatalogService: failed to upload image for product %s: %v", id, err)
		return nil, apperr.Unavailable(err, "failed to upload image")
	}
	if err := s.products.AddImage(ctx, p.ID, url); err != nil {
		s.log.Errorf("CatalogService: failed to attach image to product %s: %v", id, err)
		_ = s.images.Remove(ctx, url)
		return nil, storeErr(err, "product")
	}
	s.Invalidate(ctx, p.ID)

	p.Images = append(p.Images, url)
	return p, nil
}

// RemoveProductImage detaches url from the product and deletes the object best-effort.
func (s *CatalogService) RemoveProductImage(ctx context.Context, id, url string) (*models.Product, error) {
	s.log.Infof("CatalogService: RemoveProductImage called for %s", id)

	if url == "" {
		return nil, apperr.Validation("image url is required")
	}
	p, err := s.loadProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.HasImage(url) {
		return nil, apperr.NotFound("image not found on product")
	}
	if err := s.products.RemoveImage(ctx, p.ID, url); err != nil {
		s.log.Errorf("CatalogService: failed to detach image from product %s: %v", id, err)
		return nil, storeErr(err, "product")
	}
	s.Invalidate(ctx, p.ID)

	if err := s.images.Remove(ctx, url); err != nil {
		s.log.Warnf("CatalogService: failed to remove image object %s: %v", url, err)
	}

	kept := make([]string, 0, len(p.Images))
	for _, img := range p.Images {
		if img != url {
			kept = append(kept, img)
		}
	}
	p.Images = kept
	return p, nil
}
