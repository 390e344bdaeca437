package db

import (
	"context"
	"fmt"
	"time"

	"github.com/arzan03/shopfront/internal/models"
	"github.com/arzan03/shopfront/internal/repository"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var byCreatedAt = options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})

type categoryRepository struct {
	collection *mongo.Collection
}

func NewCategoryRepository(db *mongo.Database) repository.CategoryRepository {
	return &categoryRepository{collection: db.Collection(categoriesCollection)}
}

func (r *categoryRepository) Create(ctx context.Context, c *models.Category) error {
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	if _, err := r.collection.InsertOne(ctx, c); err != nil {
		return fmt.Errorf("failed to insert category: %w", err)
	}
	return nil
}

func (r *categoryRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Category, error) {
	var c models.Category
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&c); err != nil {
		if err = translate(err); err == repository.ErrNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("failed to find category %s: %w", id.Hex(), err)
	}
	return &c, nil
}

func (r *categoryRepository) List(ctx context.Context) ([]models.Category, error) {
	cursor, err := r.collection.Find(ctx, bson.M{}, byCreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	defer cursor.Close(ctx)

	categories := make([]models.Category, 0)
	if err := cursor.All(ctx, &categories); err != nil {
		return nil, fmt.Errorf("failed to decode categories: %w", err)
	}
	return categories, nil
}

func (r *categoryRepository) Update(ctx context.Context, c *models.Category) error {
	res, err := r.collection.ReplaceOne(ctx, bson.M{"_id": c.ID}, c)
	if err != nil {
		return fmt.Errorf("failed to update category %s: %w", c.ID.Hex(), err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *categoryRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete category %s: %w", id.Hex(), err)
	}
	if res.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

type productRepository struct {
	collection *mongo.Collection
}

func NewProductRepository(db *mongo.Database) repository.ProductRepository {
	return &productRepository{collection: db.Collection(productsCollection)}
}

func (r *productRepository) Create(ctx context.Context, p *models.Product) error {
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	if p.Images == nil {
		p.Images = []string{}
	}
	if _, err := r.collection.InsertOne(ctx, p); err != nil {
		return fmt.Errorf("failed to insert product: %w", err)
	}
	return nil
}

func (r *productRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	var p models.Product
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		if err = translate(err); err == repository.ErrNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("failed to find product %s: %w", id.Hex(), err)
	}
	return &p, nil
}

func (r *productRepository) List(ctx context.Context, filter repository.ProductFilter) ([]models.Product, error) {
	query := bson.M{}
	if filter.CategoryID != nil {
		query["category_id"] = *filter.CategoryID
	}
	cursor, err := r.collection.Find(ctx, query, byCreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer cursor.Close(ctx)

	products := make([]models.Product, 0)
	if err := cursor.All(ctx, &products); err != nil {
		return nil, fmt.Errorf("failed to decode products: %w", err)
	}
	return products, nil
}

func (r *productRepository) Update(ctx context.Context, p *models.Product) error {
	res, err := r.collection.ReplaceOne(ctx, bson.M{"_id": p.ID}, p)
	if err != nil {
		return fmt.Errorf("failed to update product %s: %w", p.ID.Hex(), err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *productRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete product %s: %w", id.Hex(), err)
	}
	if res.DeletedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *productRepository) updateByID(ctx context.Context, id primitive.ObjectID, update interface{}) error {
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to update product %s: %w", id.Hex(), err)
	}
	if res.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *productRepository) AddImage(ctx context.Context, id primitive.ObjectID, url string) error {
	return r.updateByID(ctx, id, bson.M{
		"$push": bson.M{"images": url},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	})
}

func (r *productRepository) RemoveImage(ctx context.Context, id primitive.ObjectID, url string) error {
	return r.updateByID(ctx, id, bson.M{
		"$pull": bson.M{"images": url},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	})
}

// ReserveStock applies a conditional decrement, then recomputes in_stock with a pipeline update.
func (r *productRepository) ReserveStock(ctx context.Context, id primitive.ObjectID, n int) error {
	if n <= 0 {
		return repository.ErrInvalidQuantity
	}
	filter := bson.M{"_id": id, "quantity": bson.M{"$gte": n}}
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"quantity":   bson.M{"$subtract": bson.A{"$quantity", n}},
			"updated_at": time.Now().UTC(),
		}}},
		{{Key: "$set", Value: bson.M{"in_stock": bson.M{"$gt": bson.A{"$quantity", 0}}}}},
	}
	res, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to reserve stock for product %s: %w", id.Hex(), err)
	}
	if res.MatchedCount == 0 {
		count, err := r.collection.CountDocuments(ctx, bson.M{"_id": id})
		if err != nil {
			return fmt.Errorf("failed to check product %s: %w", id.Hex(), err)
		}
		if count == 0 {
			return repository.ErrNotFound
		}
		return repository.ErrConflict
	}
	return nil
}

func (r *productRepository) ReleaseStock(ctx context.Context, id primitive.ObjectID, n int) error {
	if n <= 0 {
		return repository.ErrInvalidQuantity
	}
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"quantity":   bson.M{"$add": bson.A{"$quantity", n}},
			"updated_at": time.Now().UTC(),
		}}},
		{{Key: "$set", Value: bson.M{"in_stock": bson.M{"$gt": bson.A{"$quantity", 0}}}}},
	}
	return r.updateByID(ctx, id, update)
}
