package models

import (
	"time"

	"github.com/google/uuid"
)

// HistoryAction names what happened to a negotiation entity.
type HistoryAction string

const (
	HistoryCreated   HistoryAction = "CREATED"
	HistoryAccepted  HistoryAction = "ACCEPTED"
	HistoryRejected  HistoryAction = "REJECTED"
	HistoryCountered HistoryAction = "COUNTERED"
	HistoryExpired   HistoryAction = "EXPIRED"
	HistoryWithdrawn HistoryAction = "WITHDRAWN"
	HistoryUpdated   HistoryAction = "UPDATED"
	HistoryWon       HistoryAction = "WON"
	HistoryLost      HistoryAction = "LOST"
	HistoryAllocated HistoryAction = "ALLOCATED"
)

// Entity type discriminators for history entries.
const (
	EntityOffer        = "offer"
	EntityCounterOffer = "counter_offer"
	EntityBid          = "bid"
	EntityRequirement  = "requirement"
)

// HistoryEntry is an append-only record of a successful transition. Entries are never
// mutated or deleted.
type HistoryEntry struct {
	ID          string        `bson:"_id" json:"id"`
	EntityID    string        `bson:"entity_id" json:"entity_id"`
	EntityType  string        `bson:"entity_type" json:"entity_type"`
	Action      HistoryAction `bson:"action" json:"action"`
	PerformedBy string        `bson:"performed_by" json:"performed_by"` // Actor user ID, or "system" for sweeps
	Notes       string        `bson:"notes,omitempty" json:"notes,omitempty"`
	CreatedAt   time.Time     `bson:"created_at" json:"created_at"`
}

// SystemActor is recorded as the performer of transitions no user requested.
const SystemActor = "system"

// NewHistoryEntry builds a history entry with a fresh ID and timestamp.
func NewHistoryEntry(entityID, entityType string, action HistoryAction, performedBy, notes string) HistoryEntry {
	return HistoryEntry{
		ID:          uuid.NewString(),
		EntityID:    entityID,
		EntityType:  entityType,
		Action:      action,
		PerformedBy: performedBy,
		Notes:       notes,
		CreatedAt:   time.Now().UTC(),
	}
}
