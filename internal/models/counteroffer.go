package models

import (
	"time"
)

// CounterOffer is an amendment issued against a pending Offer. Counter-offers in one
// negotiation thread are numbered 1..cap and all share the root offer's expiry date
// verbatim, so the whole thread terminates within one negotiation window.
type CounterOffer struct {
	ID            string      `bson:"_id" json:"id"`
	OfferID       string      `bson:"offer_id" json:"offer_id"` // Root offer of the thread
	RequirementID string      `bson:"requirement_id" json:"requirement_id"`
	AuthorID      string      `bson:"author_id" json:"author_id"` // Party who issued this counter-offer
	Number        int         `bson:"number" json:"number"`       // 1-based position in the thread
	Price         float64     `bson:"price" json:"price"`
	Quantity      float64     `bson:"quantity" json:"quantity"`
	Status        OfferStatus `bson:"status" json:"status"`
	Negotiable    bool        `bson:"negotiable" json:"negotiable"`
	ExpiresAt     *time.Time  `bson:"expires_at,omitempty" json:"expires_at,omitempty"` // Copied from the root offer
	Reason        string      `bson:"reason,omitempty" json:"reason,omitempty"`         // Rejection reason, if any
	CreatedAt     time.Time   `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time   `bson:"updated_at" json:"updated_at"`
	Deleted       bool        `bson:"deleted" json:"-"`
	DeletedAt     *time.Time  `bson:"deleted_at,omitempty" json:"-"`
}

// IsExpiredAt reports whether the counter-offer's inherited window has passed.
func (c *CounterOffer) IsExpiredAt(now time.Time) bool {
	return c.Negotiable && c.ExpiresAt != nil && now.After(*c.ExpiresAt)
}
