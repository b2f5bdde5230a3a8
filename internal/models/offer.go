package models

import (
	"time"
)

// OfferStatus is the state of an Offer in the negotiation state machine.
// PENDING is the only initial state; all other states are terminal.
type OfferStatus string

const (
	OfferPending   OfferStatus = "PENDING"
	OfferAccepted  OfferStatus = "ACCEPTED"
	OfferRejected  OfferStatus = "REJECTED"
	OfferExpired   OfferStatus = "EXPIRED"
	OfferWithdrawn OfferStatus = "WITHDRAWN"
	OfferCountered OfferStatus = "COUNTERED"
)

// OfferAction is a requested transition on an Offer.
type OfferAction string

const (
	ActionAccept   OfferAction = "ACCEPT"
	ActionReject   OfferAction = "REJECT"
	ActionExpire   OfferAction = "EXPIRE"
	ActionWithdraw OfferAction = "WITHDRAW"
	ActionCounter  OfferAction = "COUNTER"
)

// Offer is a seller's proposal against a Requirement.
//
// OriginalPrice/OriginalQuantity are populated the first time the live price or
// quantity is overwritten (counter-offer acceptance), never after.
type Offer struct {
	ID                 string      `bson:"_id" json:"id"`
	RequirementID      string      `bson:"requirement_id" json:"requirement_id"`
	RequirementOwnerID string      `bson:"requirement_owner_id" json:"requirement_owner_id"`
	OfferUserID        string      `bson:"offer_user_id" json:"offer_user_id"`
	Price              float64     `bson:"price" json:"price"`
	Quantity           float64     `bson:"quantity" json:"quantity"`
	OriginalPrice      *float64    `bson:"original_price,omitempty" json:"original_price,omitempty"`
	OriginalQuantity   *float64    `bson:"original_quantity,omitempty" json:"original_quantity,omitempty"`
	Negotiable         bool        `bson:"negotiable" json:"negotiable"` // Inherited from the Requirement
	ParentOfferID      *string     `bson:"parent_offer_id,omitempty" json:"parent_offer_id,omitempty"`
	CounterOfferCount  int         `bson:"counter_offer_count" json:"counter_offer_count"`
	Status             OfferStatus `bson:"offer_status" json:"offer_status"`
	ExpiresAt          *time.Time  `bson:"expires_at,omitempty" json:"expires_at,omitempty"` // Set once when negotiable; inherited by the whole thread
	RespondedAt        *time.Time  `bson:"responded_at,omitempty" json:"responded_at,omitempty"`
	CreatedAt          time.Time   `bson:"created_at" json:"created_at"`
	UpdatedAt          time.Time   `bson:"updated_at" json:"updated_at"`
	Deleted            bool        `bson:"deleted" json:"-"` // Soft delete flag, orthogonal to Status
	DeletedAt          *time.Time  `bson:"deleted_at,omitempty" json:"-"`
}

// IsTerminal reports whether the status permits no further transitions.
func (s OfferStatus) IsTerminal() bool {
	return s != OfferPending
}

// IsParty reports whether userID is one of the two negotiating parties.
func (o *Offer) IsParty(userID string) bool {
	return userID == o.RequirementOwnerID || userID == o.OfferUserID
}

// IsExpiredAt reports whether the offer's negotiation window has passed at the given
// instant. Non-negotiable offers never expire.
func (o *Offer) IsExpiredAt(now time.Time) bool {
	return o.Negotiable && o.ExpiresAt != nil && now.After(*o.ExpiresAt)
}
