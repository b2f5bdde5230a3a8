package models

import (
	"time"
)

// RequirementStatus is the lifecycle status of a Requirement.
type RequirementStatus string

const (
	RequirementOpen   RequirementStatus = "OPEN"
	RequirementClosed RequirementStatus = "CLOSED"
)

// Requirement is a buyer's trade request that offers and bids are placed against.
// The negotiation core only reads it and requests mutation of available quantity and
// status through the Requirement Gateway; everything else is owned by the catalog
// subsystem.
type Requirement struct {
	ID                     string            `bson:"_id" json:"id"`
	UserID                 string            `bson:"user_id" json:"user_id"`
	Title                  string            `bson:"title" json:"title"`
	Status                 RequirementStatus `bson:"status" json:"status"`
	Negotiable             bool              `bson:"negotiable" json:"negotiable"`
	NegotiationWindowHours int               `bson:"negotiation_window_hours" json:"negotiation_window_hours"`
	Quantity               float64           `bson:"quantity" json:"quantity"`                     // Quantity originally requested
	AvailableQuantity      float64           `bson:"available_quantity" json:"available_quantity"` // Remaining unallocated quantity
	CreatedAt              time.Time         `bson:"created_at" json:"created_at"`
	UpdatedAt              time.Time         `bson:"updated_at" json:"updated_at"`
	Deleted                bool              `bson:"deleted" json:"-"` // Soft delete flag
}
