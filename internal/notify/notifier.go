package notify

import (
	"context"
	"log"

	"github.com/aquarioustechnology-alt/nexgpetrolube-backend-sub000/internal/models"
)

// Notifier delivers a notification to its recipient. Delivery is fire-and-forget
// from the negotiation core's point of view: callers log failures and move on, they
// never roll back state because a notification could not be delivered.
type Notifier interface {
	Notify(ctx context.Context, n models.Notification) error
}

// LoggingNotifier is a Notifier that just logs notification details.
// Useful for development and tests, or when no delivery backend is configured.
type LoggingNotifier struct{}

// NewLoggingNotifier creates a LoggingNotifier.
func NewLoggingNotifier() Notifier {
	return &LoggingNotifier{}
}

// Notify logs the notification instead of delivering it.
func (s *LoggingNotifier) Notify(ctx context.Context, n models.Notification) error {
	log.Printf("--- Notification (Logged) --- To: %s, Type: %s, Title: %q, Related: %s", n.UserID, n.Type, n.Title, n.RelatedID)
	return nil
}
