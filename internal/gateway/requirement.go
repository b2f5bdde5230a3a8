package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/aquarioustechnology-alt/nexgpetrolube-backend-sub000/internal/models"
)

// Sentinel errors surfaced by the gateway.
var (
	ErrRequirementNotFound  = errors.New("requirement not found")
	ErrInsufficientQuantity = errors.New("requested quantity exceeds available quantity")
)

// IRequirementGateway is the negotiation core's view of the Requirement subsystem.
// Reads return the current document; the two mutators are the only requirement
// writes the core is allowed to request, and both accept a session context so they
// join the caller's transaction.
type IRequirementGateway interface {
	FindByID(ctx context.Context, requirementID string) (*models.Requirement, error)
	DecrementAvailableQuantity(ctx context.Context, requirementID string, quantity float64) error
	Close(ctx context.Context, requirementID string) error
}

const requirementsCollection = "requirements"

type requirementGateway struct {
	db *mongo.Database
}

// NewRequirementGateway creates a Mongo-backed requirement accessor.
func NewRequirementGateway(db *mongo.Database) IRequirementGateway {
	return &requirementGateway{db: db}
}

// FindByID returns a non-deleted requirement by its ID.
func (g *requirementGateway) FindByID(ctx context.Context, requirementID string) (*models.Requirement, error) {
	var requirement models.Requirement
	filter := bson.M{"_id": requirementID, "deleted": false}
	err := g.db.Collection(requirementsCollection).FindOne(ctx, filter).Decode(&requirement)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrRequirementNotFound
		}
		return nil, fmt.Errorf("error finding requirement %s: %w", requirementID, err)
	}
	return &requirement, nil
}

// DecrementAvailableQuantity atomically subtracts quantity from the requirement's
// available quantity. The filter requires at least that much to still be available,
// so the value can never go negative; losing the race surfaces as
// ErrInsufficientQuantity.
func (g *requirementGateway) DecrementAvailableQuantity(ctx context.Context, requirementID string, quantity float64) error {
	if quantity <= 0 {
		return fmt.Errorf("decrement quantity must be positive, got %v", quantity)
	}
	filter := bson.M{
		"_id":                requirementID,
		"deleted":            false,
		"available_quantity": bson.M{"$gte": quantity},
	}
	update := bson.M{
		"$inc": bson.M{"available_quantity": -quantity},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	}
	result, err := g.db.Collection(requirementsCollection).UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("db error decrementing quantity on requirement %s: %w", requirementID, err)
	}
	if result.MatchedCount == 0 {
		// Distinguish a missing requirement from one without enough quantity left.
		var requirement models.Requirement
		checkErr := g.db.Collection(requirementsCollection).
			FindOne(ctx, bson.M{"_id": requirementID, "deleted": false}).Decode(&requirement)
		if errors.Is(checkErr, mongo.ErrNoDocuments) {
			return ErrRequirementNotFound
		}
		return fmt.Errorf("%w: requirement %s has %v available, requested %v",
			ErrInsufficientQuantity, requirementID, requirement.AvailableQuantity, quantity)
	}
	return nil
}

// Close marks the requirement CLOSED.
func (g *requirementGateway) Close(ctx context.Context, requirementID string) error {
	filter := bson.M{"_id": requirementID, "deleted": false}
	update := bson.M{"$set": bson.M{
		"status":     models.RequirementClosed,
		"updated_at": time.Now().UTC(),
	}}
	result, err := g.db.Collection(requirementsCollection).UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("db error closing requirement %s: %w", requirementID, err)
	}
	if result.MatchedCount == 0 {
		return ErrRequirementNotFound
	}
	return nil
}
