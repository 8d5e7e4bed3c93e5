package database

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/threadkart/threadkart-backend-go/models"
)

// ProductStore wraps the Products collection.
type ProductStore struct {
	col *mongo.Collection
}

func NewProductStore(db *mongo.Database) *ProductStore {
	return &ProductStore{col: db.Collection("Products")}
}

// FindAll returns every product in store order; no sort is applied.
func (s *ProductStore) FindAll(ctx context.Context) ([]models.Product, error) {
	cursor, err := s.col.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var products []models.Product
	if err := cursor.All(ctx, &products); err != nil {
		return nil, err
	}
	return products, nil
}

// FindByID returns mongo.ErrNoDocuments when no product matches.
func (s *ProductStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	var product models.Product
	if err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&product); err != nil {
		return nil, err
	}
	return &product, nil
}

// Insert stores a new product and fills in its assigned id.
func (s *ProductStore) Insert(ctx context.Context, product *models.Product) error {
	result, err := s.col.InsertOne(ctx, product)
	if err != nil {
		return err
	}
	product.ID = result.InsertedID.(primitive.ObjectID)
	return nil
}

func (s *ProductStore) Update(ctx context.Context, product *models.Product) error {
	_, err := s.col.ReplaceOne(ctx, bson.M{"_id": product.ID}, product)
	return err
}

func (s *ProductStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.col.DeleteOne(ctx, bson.M{"_id": id})
	return err
}
