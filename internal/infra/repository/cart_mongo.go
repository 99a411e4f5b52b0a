package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pharmacy/internal/domain/model"
	repo "pharmacy/internal/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// カートはMongoの1ドキュメント。更新はversion一致時のみ書き込む。
type CartMongoRepository struct {
	collection *mongo.Collection
}

func NewCartMongoRepository(db *mongo.Database) *CartMongoRepository {
	return &CartMongoRepository{collection: db.Collection("carts")}
}

func (m *CartMongoRepository) FindByID(ctx context.Context, id string) (model.Cart, error) {
	var cart model.Cart

	err := m.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&cart)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return model.Cart{}, repo.ErrNotFound
		}
		return model.Cart{}, fmt.Errorf("failed to get cart: %w", err)
	}

	return cart, nil
}

func (m *CartMongoRepository) Create(ctx context.Context, cart model.Cart) (model.Cart, error) {
	now := time.Now()
	cart.ID = primitive.NewObjectID().Hex()
	cart.Version = 1
	cart.CreatedAt = now
	cart.UpdatedAt = now

	if _, err := m.collection.InsertOne(ctx, cart); err != nil {
		return model.Cart{}, fmt.Errorf("failed to create cart: %w", err)
	}

	return cart, nil
}

// compare-and-swap更新。_idとversionの両方が一致した場合だけ置き換える。
// 一致しなければ他の更新が先に入っているのでErrVersionConflict。
func (m *CartMongoRepository) UpdateCAS(ctx context.Context, cart model.Cart) (model.Cart, error) {
	filter := bson.M{"_id": cart.ID, "version": cart.Version}

	next := cart
	next.Version = cart.Version + 1
	next.UpdatedAt = time.Now()

	update := bson.M{"$set": bson.M{
		"customer_id":  next.CustomerID,
		"products":     next.Products,
		"total_amount": next.TotalAmount,
		"version":      next.Version,
		"updated_at":   next.UpdatedAt,
	}}

	res, err := m.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return model.Cart{}, fmt.Errorf("failed to update cart: %w", err)
	}

	if res.MatchedCount == 0 {
		// versionずれかドキュメント消失かを切り分ける
		count, cerr := m.collection.CountDocuments(ctx, bson.M{"_id": cart.ID})
		if cerr != nil {
			return model.Cart{}, fmt.Errorf("failed to check cart: %w", cerr)
		}
		if count == 0 {
			return model.Cart{}, repo.ErrNotFound
		}
		return model.Cart{}, repo.ErrVersionConflict
	}

	return next, nil
}

func (m *CartMongoRepository) Delete(ctx context.Context, id string) error {
	res, err := m.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}
	if res.DeletedCount == 0 {
		return repo.ErrNotFound
	}
	return nil
}
