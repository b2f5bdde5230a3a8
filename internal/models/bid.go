package models

import (
	"time"
)

// BidStatus is the state of a Bid in the bidding variant of a Requirement.
type BidStatus string

const (
	BidActive BidStatus = "ACTIVE"
	BidWon    BidStatus = "WON"
	BidLost   BidStatus = "LOST"
	BidOutbid BidStatus = "OUTBID"
)

// Bid is an independent proposal against a Requirement, resolved by the allocation
// engine rather than the one-winner accept path. Partial allocation rewrites the live
// Quantity with the allocated amount after snapshotting the original; the price is
// never rewritten.
type Bid struct {
	ID               string     `bson:"_id" json:"id"`
	RequirementID    string     `bson:"requirement_id" json:"requirement_id"`
	BidderID         string     `bson:"bidder_id" json:"bidder_id"`
	Price            float64    `bson:"price" json:"price"`
	Quantity         float64    `bson:"quantity" json:"quantity"`
	OriginalPrice    *float64   `bson:"original_price,omitempty" json:"original_price,omitempty"`
	OriginalQuantity *float64   `bson:"original_quantity,omitempty" json:"original_quantity,omitempty"`
	Status           BidStatus  `bson:"status" json:"status"`
	AllocationPct    *float64   `bson:"allocation_pct,omitempty" json:"allocation_pct,omitempty"`
	ResolvedAt       *time.Time `bson:"resolved_at,omitempty" json:"resolved_at,omitempty"`
	CreatedAt        time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt        time.Time  `bson:"updated_at" json:"updated_at"`
	Deleted          bool       `bson:"deleted" json:"-"`
}
