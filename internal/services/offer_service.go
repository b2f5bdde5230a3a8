package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/aquarioustechnology-alt/nexgpetrolube-backend-sub000/internal/config"
	"github.com/aquarioustechnology-alt/nexgpetrolube-backend-sub000/internal/db"
	"github.com/aquarioustechnology-alt/nexgpetrolube-backend-sub000/internal/gateway"
	"github.com/aquarioustechnology-alt/nexgpetrolube-backend-sub000/internal/models"
	"github.com/aquarioustechnology-alt/nexgpetrolube-backend-sub000/internal/notify"
)

// IOfferService is the negotiation state machine for single offers.
type IOfferService interface {
	CreateOffer(ctx context.Context, requirementID, proposerID string, price, quantity float64) (*models.Offer, error)
	TransitionOffer(ctx context.Context, offerID, actorID string, action models.OfferAction, notes string) (*models.Offer, error)
	DeleteOffer(ctx context.Context, offerID, actorID string) error
	FindOfferByID(ctx context.Context, offerID string) (*models.Offer, error)
	FindOffersByRequirement(ctx context.Context, requirementID string) ([]models.Offer, error)
	FindOffersByUser(ctx context.Context, userID string) ([]models.Offer, error)
	SweepExpired(ctx context.Context) (int64, error)
}

const offersCollection = "offers"

// offerTransitions is the single source of truth for which action is reachable from
// which status. PENDING is the only state with outgoing edges.
var offerTransitions = map[models.OfferStatus]map[models.OfferAction]models.OfferStatus{
	models.OfferPending: {
		models.ActionAccept:   models.OfferAccepted,
		models.ActionReject:   models.OfferRejected,
		models.ActionExpire:   models.OfferExpired,
		models.ActionWithdraw: models.OfferWithdrawn,
		models.ActionCounter:  models.OfferCountered,
	},
}

type offerService struct {
	db       *mongo.Database
	cfg      *config.Config
	gateway  gateway.IRequirementGateway
	history  IHistoryService
	notifier notify.Notifier
}

// NewOfferService creates a new OfferService.
func NewOfferService(database *mongo.Database, cfg *config.Config, gw gateway.IRequirementGateway, history IHistoryService, notifier notify.Notifier) IOfferService {
	return &offerService{
		db:       database,
		cfg:      cfg,
		gateway:  gw,
		history:  history,
		notifier: notifier,
	}
}

// CreateOffer validates and creates a PENDING offer against an open requirement.
// On negotiable requirements the offer expiry is computed once here; counter-offers
// in the same thread inherit it unchanged.
func (s *offerService) CreateOffer(ctx context.Context, requirementID, proposerID string, price, quantity float64) (*models.Offer, error) {
	requirement, err := s.gateway.FindByID(ctx, requirementID)
	if err != nil {
		return nil, err
	}
	if requirement.Status != models.RequirementOpen {
		return nil, fmt.Errorf("%w: requirement %s is %s", ErrInvalidState, requirementID, requirement.Status)
	}
	if requirement.UserID == proposerID {
		return nil, fmt.Errorf("%w: cannot offer on own requirement", ErrForbidden)
	}
	if quantity <= 0 || quantity > requirement.AvailableQuantity {
		return nil, fmt.Errorf("%w: quantity %v not within (0, %v]", ErrInvalidArgument, quantity, requirement.AvailableQuantity)
	}
	if requirement.Negotiable && price < s.cfg.MinNegotiablePrice {
		return nil, fmt.Errorf("%w: price %v below minimum %v", ErrInvalidArgument, price, s.cfg.MinNegotiablePrice)
	}

	collection := s.db.Collection(offersCollection)

	// One live (non-terminal, non-deleted) offer per (requirement, proposer).
	liveFilter := bson.M{
		"requirement_id": requirementID,
		"offer_user_id":  proposerID,
		"deleted":        false,
		"offer_status":   bson.M{"$in": bson.A{models.OfferPending, models.OfferCountered}},
	}
	liveCount, err := collection.CountDocuments(ctx, liveFilter)
	if err != nil {
		return nil, fmt.Errorf("failed to check for live offers on requirement %s: %w", requirementID, err)
	}
	if liveCount > 0 {
		return nil, fmt.Errorf("%w: user %s already has a live offer on requirement %s", ErrConflict, proposerID, requirementID)
	}

	now := time.Now().UTC()
	var expiresAt *time.Time
	if requirement.Negotiable {
		expiry := now.Add(time.Duration(requirement.NegotiationWindowHours) * time.Hour)
		expiresAt = &expiry
	}

	var newOffer *models.Offer
	operation := func() error {
		newOffer = &models.Offer{
			ID:                 uuid.NewString(),
			RequirementID:      requirementID,
			RequirementOwnerID: requirement.UserID,
			OfferUserID:        proposerID,
			Price:              price,
			Quantity:           quantity,
			Negotiable:         requirement.Negotiable,
			CounterOfferCount:  0,
			Status:             models.OfferPending,
			ExpiresAt:          expiresAt,
			CreatedAt:          now,
			UpdatedAt:          now,
			Deleted:            false,
		}
		_, insertErr := collection.InsertOne(ctx, newOffer)
		return insertErr
	}
	if err := db.Try(operation); err != nil {
		if db.IsMongoDuplicateKeyError(err) {
			// The partial unique index caught a concurrent duplicate insert.
			return nil, fmt.Errorf("%w: user %s already has a live offer on requirement %s", ErrConflict, proposerID, requirementID)
		}
		return nil, fmt.Errorf("failed to insert offer for requirement %s: %w", requirementID, err)
	}

	s.recordHistory(ctx, models.NewHistoryEntry(newOffer.ID, models.EntityOffer, models.HistoryCreated, proposerID, ""))
	s.sendNotification(ctx, models.NewNotification(
		requirement.UserID, models.NotifyNewOffer, "New offer received",
		fmt.Sprintf("You received an offer of %v per unit for %v units on %q.", price, quantity, requirement.Title),
		newOffer.ID,
	))

	return newOffer, nil
}

// TransitionOffer applies an accept, reject, or withdraw action to a pending offer.
// Counter and expire transitions go through the counter-offer manager and the sweep
// respectively, never through this entry point.
//
// The expiry check runs first: a late-arriving action against an expired offer is
// converted into an ErrExpired failure plus a forced EXPIRED status.
func (s *offerService) TransitionOffer(ctx context.Context, offerID, actorID string, action models.OfferAction, notes string) (*models.Offer, error) {
	if action == models.ActionExpire || action == models.ActionCounter {
		return nil, fmt.Errorf("%w: action %s cannot be requested directly", ErrInvalidArgument, action)
	}

	offer, err := s.FindOfferByID(ctx, offerID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if offer.IsExpiredAt(now) {
		s.forceExpireOffer(ctx, offer, actorID)
		return nil, fmt.Errorf("%w: offer %s expired at %s", ErrExpired, offerID, offer.ExpiresAt.Format(time.RFC3339))
	}

	if !offer.IsParty(actorID) {
		return nil, fmt.Errorf("%w: user %s is not a party to offer %s", ErrForbidden, actorID, offerID)
	}
	// Accept/reject belong to the requirement owner, withdrawal to the proposer.
	switch action {
	case models.ActionAccept, models.ActionReject:
		if actorID != offer.RequirementOwnerID {
			return nil, fmt.Errorf("%w: only the requirement owner may %s an offer", ErrForbidden, action)
		}
	case models.ActionWithdraw:
		if actorID != offer.OfferUserID {
			return nil, fmt.Errorf("%w: only the proposer may withdraw an offer", ErrForbidden)
		}
	}

	nextStatus, reachable := offerTransitions[offer.Status][action]
	if !reachable {
		return nil, fmt.Errorf("%w: %s is not reachable from %s", ErrInvalidState, action, offer.Status)
	}

	err = db.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		if err := s.applyStatus(txCtx, offerID, models.OfferPending, nextStatus, now); err != nil {
			return err
		}
		if action == models.ActionAccept {
			// Quantity may have shrunk since the offer was created; the guarded
			// decrement re-validates and applies it in the same transaction.
			if err := s.gateway.DecrementAvailableQuantity(txCtx, offer.RequirementID, offer.Quantity); err != nil {
				if errors.Is(err, gateway.ErrInsufficientQuantity) {
					return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
				}
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	offer.Status = nextStatus
	offer.RespondedAt = &now
	offer.UpdatedAt = now

	s.recordHistory(ctx, models.NewHistoryEntry(offerID, models.EntityOffer, historyActionFor(nextStatus), actorID, notes))
	s.notifyTransition(ctx, offer, nextStatus)

	return offer, nil
}

// DeleteOffer soft-deletes an offer. Only the proposer may withdraw this way; the
// status is left untouched and a WITHDRAWN history entry records the act. Deleted
// offers are excluded from every uniqueness and availability check.
func (s *offerService) DeleteOffer(ctx context.Context, offerID, actorID string) error {
	collection := s.db.Collection(offersCollection)
	now := time.Now().UTC()

	filter := bson.M{
		"_id":           offerID,
		"offer_user_id": actorID,
		"deleted":       false,
	}
	update := bson.M{"$set": bson.M{
		"deleted":    true,
		"deleted_at": now,
		"updated_at": now,
	}}
	result, err := collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("db error deleting offer %s: %w", offerID, err)
	}
	if result.MatchedCount == 0 {
		var offer models.Offer
		checkErr := collection.FindOne(ctx, bson.M{"_id": offerID, "deleted": false}).Decode(&offer)
		if errors.Is(checkErr, mongo.ErrNoDocuments) {
			return fmt.Errorf("%w: offer %s", ErrOfferNotFound, offerID)
		}
		if offer.OfferUserID != actorID {
			return fmt.Errorf("%w: only the proposer may delete offer %s", ErrForbidden, offerID)
		}
		return fmt.Errorf("failed to delete offer %s", offerID)
	}

	s.recordHistory(ctx, models.NewHistoryEntry(offerID, models.EntityOffer, models.HistoryWithdrawn, actorID, "offer withdrawn by proposer"))
	return nil
}

// FindOfferByID finds a non-deleted offer by its ID.
func (s *offerService) FindOfferByID(ctx context.Context, offerID string) (*models.Offer, error) {
	var offer models.Offer
	filter := bson.M{"_id": offerID, "deleted": false}
	err := s.db.Collection(offersCollection).FindOne(ctx, filter).Decode(&offer)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: offer %s", ErrOfferNotFound, offerID)
		}
		return nil, fmt.Errorf("error finding offer %s: %w", offerID, err)
	}
	return &offer, nil
}

// FindOffersByRequirement lists non-deleted offers for a requirement, newest first.
func (s *offerService) FindOffersByRequirement(ctx context.Context, requirementID string) ([]models.Offer, error) {
	return s.findOffers(ctx, bson.M{"requirement_id": requirementID, "deleted": false})
}

// FindOffersByUser lists non-deleted offers proposed by a user, newest first.
func (s *offerService) FindOffersByUser(ctx context.Context, userID string) ([]models.Offer, error) {
	return s.findOffers(ctx, bson.M{"offer_user_id": userID, "deleted": false})
}

func (s *offerService) findOffers(ctx context.Context, filter bson.M) ([]models.Offer, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := s.db.Collection(offersCollection).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query offers: %w", err)
	}
	defer cursor.Close(ctx)

	var offers []models.Offer
	if err = cursor.All(ctx, &offers); err != nil {
		return nil, fmt.Errorf("failed to decode offers: %w", err)
	}
	return offers, nil
}

// SweepExpired bulk-moves every pending, negotiable offer whose deadline has passed
// into EXPIRED. No per-item history or notifications are emitted for bulk sweeps.
// Re-running with nothing newly expired is a no-op.
func (s *offerService) SweepExpired(ctx context.Context) (int64, error) {
	now := time.Now().UTC()
	filter := bson.M{
		"offer_status": models.OfferPending,
		"negotiable":   true,
		"deleted":      false,
		"expires_at":   bson.M{"$lte": now},
	}
	update := bson.M{"$set": bson.M{
		"offer_status": models.OfferExpired,
		"updated_at":   now,
	}}
	result, err := s.db.Collection(offersCollection).UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep expired offers: %w", err)
	}
	return result.ModifiedCount, nil
}

// applyStatus performs the optimistic check-then-write: the filter pins the expected
// current status, so of two concurrent transitions exactly one matches and the other
// surfaces ErrInvalidState.
func (s *offerService) applyStatus(ctx context.Context, offerID string, from, to models.OfferStatus, now time.Time) error {
	collection := s.db.Collection(offersCollection)
	filter := bson.M{
		"_id":          offerID,
		"offer_status": from,
		"deleted":      false,
	}
	update := bson.M{"$set": bson.M{
		"offer_status": to,
		"responded_at": now,
		"updated_at":   now,
	}}
	result, err := collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("db error transitioning offer %s to %s: %w", offerID, to, err)
	}
	if result.MatchedCount == 0 {
		var offer models.Offer
		checkErr := collection.FindOne(ctx, bson.M{"_id": offerID, "deleted": false}).Decode(&offer)
		if errors.Is(checkErr, mongo.ErrNoDocuments) {
			return fmt.Errorf("%w: offer %s", ErrOfferNotFound, offerID)
		}
		return fmt.Errorf("%w: offer %s is %s, expected %s", ErrInvalidState, offerID, offer.Status, from)
	}
	return nil
}

// forceExpireOffer flips a touched, overdue offer to EXPIRED. Losing the race to the
// sweep is fine; the outcome is the same either way.
func (s *offerService) forceExpireOffer(ctx context.Context, offer *models.Offer, touchedBy string) {
	now := time.Now().UTC()
	if err := s.applyStatus(ctx, offer.ID, models.OfferPending, models.OfferExpired, now); err != nil {
		if !errors.Is(err, ErrInvalidState) {
			log.Printf("Warning: failed to force-expire offer %s: %v", offer.ID, err)
		}
		return
	}
	s.recordHistory(ctx, models.NewHistoryEntry(offer.ID, models.EntityOffer, models.HistoryExpired, models.SystemActor,
		fmt.Sprintf("expired on touch by %s", touchedBy)))
}

func (s *offerService) notifyTransition(ctx context.Context, offer *models.Offer, status models.OfferStatus) {
	switch status {
	case models.OfferAccepted:
		s.sendNotification(ctx, models.NewNotification(
			offer.OfferUserID, models.NotifyOfferAccepted, "Offer accepted",
			fmt.Sprintf("Your offer of %v per unit for %v units was accepted.", offer.Price, offer.Quantity),
			offer.ID,
		))
	case models.OfferRejected:
		s.sendNotification(ctx, models.NewNotification(
			offer.OfferUserID, models.NotifyOfferRejected, "Offer rejected",
			"Your offer was rejected by the requirement owner.",
			offer.ID,
		))
	case models.OfferWithdrawn:
		s.sendNotification(ctx, models.NewNotification(
			offer.RequirementOwnerID, models.NotifyOfferWithdrawn, "Offer withdrawn",
			"An offer on your requirement was withdrawn by its proposer.",
			offer.ID,
		))
	}
}

// recordHistory appends a history entry best-effort: a history failure is logged,
// never allowed to fail or roll back the transition that produced it.
func (s *offerService) recordHistory(ctx context.Context, entry models.HistoryEntry) {
	if err := s.history.Record(ctx, entry); err != nil {
		log.Printf("Warning: failed to record %s history for %s: %v", entry.Action, entry.EntityID, err)
	}
}

// sendNotification delivers best-effort, same policy as recordHistory.
func (s *offerService) sendNotification(ctx context.Context, n models.Notification) {
	if err := s.notifier.Notify(ctx, n); err != nil {
		log.Printf("Warning: failed to deliver %s notification to user %s: %v", n.Type, n.UserID, err)
	}
}

// historyActionFor maps a terminal status onto its history action.
func historyActionFor(status models.OfferStatus) models.HistoryAction {
	switch status {
	case models.OfferAccepted:
		return models.HistoryAccepted
	case models.OfferRejected:
		return models.HistoryRejected
	case models.OfferExpired:
		return models.HistoryExpired
	case models.OfferWithdrawn:
		return models.HistoryWithdrawn
	case models.OfferCountered:
		return models.HistoryCountered
	default:
		return models.HistoryUpdated
	}
}
