package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes creates the indexes the negotiation core relies on.
// The partial unique index on offers backs the one-live-offer-per-party rule at the
// storage level; the application-level check surfaces the friendly Conflict error,
// the index closes the insert race window.
func EnsureIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	offerIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "requirement_id", Value: 1}, {Key: "offer_user_id", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{
					"deleted":      false,
					"offer_status": bson.M{"$in": bson.A{"PENDING", "COUNTERED"}},
				}),
		},
		{Keys: bson.D{{Key: "offer_status", Value: 1}, {Key: "expires_at", Value: 1}}},
		{Keys: bson.D{{Key: "requirement_id", Value: 1}, {Key: "created_at", Value: -1}}},
	}
	if _, err := db.Collection("offers").Indexes().CreateMany(ctx, offerIndexes); err != nil {
		return fmt.Errorf("failed to create offer indexes: %w", err)
	}

	counterIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "offer_id", Value: 1}, {Key: "number", Value: 1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "expires_at", Value: 1}}},
	}
	if _, err := db.Collection("counter_offers").Indexes().CreateMany(ctx, counterIndexes); err != nil {
		return fmt.Errorf("failed to create counter-offer indexes: %w", err)
	}

	bidIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "requirement_id", Value: 1}, {Key: "status", Value: 1}}},
	}
	if _, err := db.Collection("bids").Indexes().CreateMany(ctx, bidIndexes); err != nil {
		return fmt.Errorf("failed to create bid indexes: %w", err)
	}

	historyIndexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "entity_id", Value: 1}, {Key: "created_at", Value: 1}}},
	}
	if _, err := db.Collection("negotiation_history").Indexes().CreateMany(ctx, historyIndexes); err != nil {
		return fmt.Errorf("failed to create history indexes: %w", err)
	}

	return nil
}
