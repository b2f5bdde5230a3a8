package services

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/aquarioustechnology-alt/nexgpetrolube-backend-sub000/internal/models"
)

// IHistoryService is the append-only event log for negotiation transitions. Entries
// are only ever inserted; there is deliberately no update or delete operation.
type IHistoryService interface {
	Record(ctx context.Context, entry models.HistoryEntry) error
	FindByEntity(ctx context.Context, entityID string) ([]models.HistoryEntry, error)
}

const historyCollection = "negotiation_history"

type historyService struct {
	db *mongo.Database
}

// NewHistoryService creates a new HistoryService.
func NewHistoryService(db *mongo.Database) IHistoryService {
	return &historyService{db: db}
}

// Record appends a history entry.
func (s *historyService) Record(ctx context.Context, entry models.HistoryEntry) error {
	if _, err := s.db.Collection(historyCollection).InsertOne(ctx, entry); err != nil {
		return fmt.Errorf("failed to record history for %s/%s: %w", entry.EntityType, entry.EntityID, err)
	}
	return nil
}

// FindByEntity returns all history entries for an entity, oldest first.
func (s *historyService) FindByEntity(ctx context.Context, entityID string) ([]models.HistoryEntry, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := s.db.Collection(historyCollection).Find(ctx, bson.M{"entity_id": entityID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query history for %s: %w", entityID, err)
	}
	defer cursor.Close(ctx)

	var entries []models.HistoryEntry
	if err = cursor.All(ctx, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode history for %s: %w", entityID, err)
	}
	return entries, nil
}
