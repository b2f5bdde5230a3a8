package notify

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/aquarioustechnology-alt/nexgpetrolube-backend-sub000/internal/models"
)

// CompositeNotifier fans a notification out to several Notifiers (persist to Mongo,
// enqueue for delivery, log). One backend failing does not stop the others.
type CompositeNotifier struct {
	notifiers []Notifier
}

// NewCompositeNotifier creates a CompositeNotifier with the given initial notifiers.
func NewCompositeNotifier(notifiers ...Notifier) *CompositeNotifier {
	return &CompositeNotifier{notifiers: notifiers}
}

// AddNotifier appends another backend to the fan-out list.
func (c *CompositeNotifier) AddNotifier(n Notifier) {
	c.notifiers = append(c.notifiers, n)
}

// Notify delivers through every backend, collecting failures. An error is returned
// only if every backend failed.
func (c *CompositeNotifier) Notify(ctx context.Context, n models.Notification) error {
	if len(c.notifiers) == 0 {
		return fmt.Errorf("composite notifier has no backends")
	}

	var failures []string
	for _, notifier := range c.notifiers {
		if err := notifier.Notify(ctx, n); err != nil {
			log.Printf("Notification backend %T failed for %s: %v", notifier, n.ID, err)
			failures = append(failures, err.Error())
		}
	}
	if len(failures) == len(c.notifiers) {
		return fmt.Errorf("all notification backends failed: %s", strings.Join(failures, "; "))
	}
	return nil
}
