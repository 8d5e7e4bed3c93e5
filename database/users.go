package database

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/threadkart/threadkart-backend-go/models"
)

// UserStore wraps the Users collection. Email is the natural key.
type UserStore struct {
	col *mongo.Collection
}

func NewUserStore(db *mongo.Database) *UserStore {
	return &UserStore{col: db.Collection("Users")}
}

// FindByEmail returns mongo.ErrNoDocuments when no user matches.
func (s *UserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.col.FindOne(ctx, bson.M{"email": email}).Decode(&user); err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByID returns mongo.ErrNoDocuments when no user matches.
func (s *UserStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	var user models.User
	if err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Insert stores a new user and fills in its assigned id.
func (s *UserStore) Insert(ctx context.Context, user *models.User) error {
	result, err := s.col.InsertOne(ctx, user)
	if err != nil {
		return err
	}
	user.ID = result.InsertedID.(primitive.ObjectID)
	return nil
}

// Update replaces the stored document so cleared OTP fields persist as null.
func (s *UserStore) Update(ctx context.Context, user *models.User) error {
	_, err := s.col.ReplaceOne(ctx, bson.M{"_id": user.ID}, user)
	return err
}
