package notify

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/aquarioustechnology-alt/nexgpetrolube-backend-sub000/internal/models"
)

const notificationsCollection = "notifications"

// MongoNotifier implements Notifier by persisting the notification so the web app's
// in-product notification feed can show it.
type MongoNotifier struct {
	db *mongo.Database
}

// NewMongoNotifier creates a new MongoNotifier.
func NewMongoNotifier(db *mongo.Database) Notifier {
	return &MongoNotifier{db: db}
}

// Notify stores the notification document.
func (s *MongoNotifier) Notify(ctx context.Context, n models.Notification) error {
	if _, err := s.db.Collection(notificationsCollection).InsertOne(ctx, n); err != nil {
		return fmt.Errorf("failed to persist notification %s: %w", n.ID, err)
	}
	return nil
}
