package models

import (
	"time"

	"github.com/google/uuid"
)

// NotificationType tells the delivery subsystem which template to use.
type NotificationType string

const (
	NotifyNewOffer          NotificationType = "NEW_OFFER"
	NotifyOfferAccepted     NotificationType = "OFFER_ACCEPTED"
	NotifyOfferRejected     NotificationType = "OFFER_REJECTED"
	NotifyOfferWithdrawn    NotificationType = "OFFER_WITHDRAWN"
	NotifyCounterOffer      NotificationType = "COUNTER_OFFER"
	NotifyCounterAccepted   NotificationType = "COUNTER_ACCEPTED"
	NotifyCounterRejected   NotificationType = "COUNTER_REJECTED"
	NotifyBidPlaced         NotificationType = "BID_PLACED"
	NotifyBidWon            NotificationType = "BID_WON"
	NotifyBidLost           NotificationType = "BID_LOST"
	NotifyRequirementClosed NotificationType = "REQUIREMENT_CLOSED"
)

// Notification is a fire-and-forget message to a user, consumed by the platform's
// delivery workers. The negotiation core only produces these.
type Notification struct {
	ID        string           `bson:"_id" json:"id"`
	UserID    string           `bson:"user_id" json:"user_id"`
	Type      NotificationType `bson:"type" json:"type"`
	Title     string           `bson:"title" json:"title"`
	Message   string           `bson:"message" json:"message"`
	RelatedID string           `bson:"related_id,omitempty" json:"related_id,omitempty"`
	IsRead    bool             `bson:"is_read" json:"is_read"`
	CreatedAt time.Time        `bson:"created_at" json:"created_at"`
}

// NewNotification builds a notification with a fresh ID and timestamp.
func NewNotification(userID string, ntype NotificationType, title, message, relatedID string) Notification {
	return Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Type:      ntype,
		Title:     title,
		Message:   message,
		RelatedID: relatedID,
		IsRead:    false,
		CreatedAt: time.Now().UTC(),
	}
}
