package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/aquarioustechnology-alt/nexgpetrolube-backend-sub000/internal/config"
	"github.com/aquarioustechnology-alt/nexgpetrolube-backend-sub000/internal/models"
)

// RedisNotifier implements Notifier by pushing the notification onto a Redis list
// that the platform's delivery workers consume from.
type RedisNotifier struct {
	client *redis.Client
	cfg    *config.Config
}

// NewRedisNotifier creates a new RedisNotifier.
func NewRedisNotifier(client *redis.Client, cfg *config.Config) Notifier {
	return &RedisNotifier{
		client: client,
		cfg:    cfg,
	}
}

// Notify enqueues the notification for delivery.
func (s *RedisNotifier) Notify(ctx context.Context, n models.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal notification %s: %w", n.ID, err)
	}
	if err := s.client.LPush(ctx, s.cfg.NotificationQueueKey, payload).Err(); err != nil {
		return fmt.Errorf("failed to enqueue notification %s on '%s': %w", n.ID, s.cfg.NotificationQueueKey, err)
	}
	return nil
}
