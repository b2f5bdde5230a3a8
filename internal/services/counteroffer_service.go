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

// ICounterOfferService manages the bounded chain of counter-offers on an offer:
// creation against a pending offer, amendment and withdrawal by the author, and the
// terminal resolution where one acceptance or rejection settles the whole thread.
type ICounterOfferService interface {
	CreateCounterOffer(ctx context.Context, offerID, actorID string, price, quantity float64) (*models.CounterOffer, error)
	AcceptCounterOffer(ctx context.Context, counterOfferID, actorID string) (*models.Offer, error)
	RejectCounterOffer(ctx context.Context, counterOfferID, actorID, reason string) error
	UpdateCounterOffer(ctx context.Context, counterOfferID, actorID string, price, quantity float64) (*models.CounterOffer, error)
	DeleteCounterOffer(ctx context.Context, counterOfferID, actorID string) error
	FindCounterOffersByOffer(ctx context.Context, offerID string) ([]models.CounterOffer, error)
	SweepExpired(ctx context.Context) (int64, error)
}

const counterOffersCollection = "counter_offers"

type counterOfferService struct {
	db       *mongo.Database
	cfg      *config.Config
	gateway  gateway.IRequirementGateway
	history  IHistoryService
	notifier notify.Notifier
}

// NewCounterOfferService creates a new CounterOfferService.
func NewCounterOfferService(database *mongo.Database, cfg *config.Config, gw gateway.IRequirementGateway, history IHistoryService, notifier notify.Notifier) ICounterOfferService {
	return &counterOfferService{
		db:       database,
		cfg:      cfg,
		gateway:  gw,
		history:  history,
		notifier: notifier,
	}
}

// CreateCounterOffer issues counter terms against a pending offer. Only the
// requirement owner may counter. The new record inherits the parent's expiry date
// verbatim rather than recomputing a fresh window, so the whole thread terminates
// within the original negotiation window.
func (s *counterOfferService) CreateCounterOffer(ctx context.Context, offerID, actorID string, price, quantity float64) (*models.CounterOffer, error) {
	offer, err := s.findOffer(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if actorID != offer.RequirementOwnerID {
		return nil, fmt.Errorf("%w: only the requirement owner may counter offer %s", ErrForbidden, offerID)
	}
	if offer.Status != models.OfferPending {
		return nil, fmt.Errorf("%w: offer %s is %s", ErrInvalidState, offerID, offer.Status)
	}

	now := time.Now().UTC()
	if offer.IsExpiredAt(now) {
		s.expireOfferOnTouch(ctx, offer.ID, actorID)
		return nil, fmt.Errorf("%w: offer %s expired at %s", ErrExpired, offerID, offer.ExpiresAt.Format(time.RFC3339))
	}

	if offer.CounterOfferCount >= s.cfg.CounterOfferCap {
		return nil, fmt.Errorf("%w: offer %s already has %d counter-offers", ErrCounterOfferLimit, offerID, offer.CounterOfferCount)
	}

	requirement, err := s.gateway.FindByID(ctx, offer.RequirementID)
	if err != nil {
		return nil, err
	}
	if quantity <= 0 || quantity > requirement.Quantity {
		return nil, fmt.Errorf("%w: quantity %v not within (0, %v]", ErrInvalidArgument, quantity, requirement.Quantity)
	}
	if offer.Negotiable && price < s.cfg.MinNegotiablePrice {
		return nil, fmt.Errorf("%w: price %v below minimum %v", ErrInvalidArgument, price, s.cfg.MinNegotiablePrice)
	}

	counter := &models.CounterOffer{
		ID:            uuid.NewString(),
		OfferID:       offer.ID,
		RequirementID: offer.RequirementID,
		AuthorID:      actorID,
		Number:        offer.CounterOfferCount + 1,
		Price:         price,
		Quantity:      quantity,
		Status:        models.OfferPending,
		Negotiable:    offer.Negotiable,
		ExpiresAt:     offer.ExpiresAt, // Inherited, never recomputed
		CreatedAt:     now,
		UpdatedAt:     now,
		Deleted:       false,
	}

	err = db.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		// Pinning PENDING here makes concurrent counters race safely: one wins,
		// the other sees the parent already COUNTERED.
		parentFilter := bson.M{
			"_id":                offer.ID,
			"offer_status":       models.OfferPending,
			"deleted":            false,
			"counter_offer_count": bson.M{"$lt": s.cfg.CounterOfferCap},
		}
		parentUpdate := bson.M{
			"$set": bson.M{"offer_status": models.OfferCountered, "updated_at": now},
			"$inc": bson.M{"counter_offer_count": 1},
		}
		result, updateErr := s.db.Collection(offersCollection).UpdateOne(txCtx, parentFilter, parentUpdate)
		if updateErr != nil {
			return fmt.Errorf("db error countering offer %s: %w", offer.ID, updateErr)
		}
		if result.MatchedCount == 0 {
			return fmt.Errorf("%w: offer %s was modified concurrently", ErrConflict, offer.ID)
		}
		if _, insertErr := s.db.Collection(counterOffersCollection).InsertOne(txCtx, counter); insertErr != nil {
			return fmt.Errorf("failed to insert counter-offer for offer %s: %w", offer.ID, insertErr)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordHistory(ctx, models.NewHistoryEntry(offer.ID, models.EntityOffer, models.HistoryCountered, actorID,
		fmt.Sprintf("counter-offer #%d issued", counter.Number)))
	s.recordHistory(ctx, models.NewHistoryEntry(counter.ID, models.EntityCounterOffer, models.HistoryCreated, actorID, ""))
	s.sendNotification(ctx, models.NewNotification(
		offer.OfferUserID, models.NotifyCounterOffer, "Counter-offer received",
		fmt.Sprintf("The requirement owner countered with %v per unit for %v units.", price, quantity),
		counter.ID,
	))

	return counter, nil
}

// AcceptCounterOffer resolves the whole negotiation thread in the counter-offer's
// favor: the counter-offer becomes ACCEPTED, the root offer's original price and
// quantity are snapshotted once and overwritten with the counter terms, the root
// goes ACCEPTED with the requirement's available quantity decremented, and every
// other still-pending counter-offer in the thread is rejected. One transaction.
func (s *counterOfferService) AcceptCounterOffer(ctx context.Context, counterOfferID, actorID string) (*models.Offer, error) {
	counter, offer, err := s.loadThread(ctx, counterOfferID)
	if err != nil {
		return nil, err
	}
	if err := s.validateResponder(counter, offer, actorID); err != nil {
		return nil, err
	}
	if counter.Status != models.OfferPending {
		return nil, fmt.Errorf("%w: counter-offer %s is %s", ErrInvalidState, counterOfferID, counter.Status)
	}

	now := time.Now().UTC()
	if counter.IsExpiredAt(now) {
		s.expireCounterOnTouch(ctx, counter.ID, actorID)
		return nil, fmt.Errorf("%w: counter-offer %s expired at %s", ErrExpired, counterOfferID, counter.ExpiresAt.Format(time.RFC3339))
	}

	err = db.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		if err := s.applyCounterStatus(txCtx, counter.ID, models.OfferPending, models.OfferAccepted, "", now); err != nil {
			return err
		}

		rootSet := bson.M{
			"price":        counter.Price,
			"quantity":     counter.Quantity,
			"offer_status": models.OfferAccepted,
			"responded_at": now,
			"updated_at":   now,
		}
		if offer.OriginalPrice == nil {
			rootSet["original_price"] = offer.Price
			rootSet["original_quantity"] = offer.Quantity
		}
		rootFilter := bson.M{
			"_id":          offer.ID,
			"deleted":      false,
			"offer_status": bson.M{"$in": bson.A{models.OfferPending, models.OfferCountered}},
		}
		result, updateErr := s.db.Collection(offersCollection).UpdateOne(txCtx, rootFilter, bson.M{"$set": rootSet})
		if updateErr != nil {
			return fmt.Errorf("db error resolving offer %s: %w", offer.ID, updateErr)
		}
		if result.MatchedCount == 0 {
			return fmt.Errorf("%w: offer %s already resolved", ErrInvalidState, offer.ID)
		}

		if err := s.gateway.DecrementAvailableQuantity(txCtx, offer.RequirementID, counter.Quantity); err != nil {
			if errors.Is(err, gateway.ErrInsufficientQuantity) {
				return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
			}
			return err
		}

		// Every sibling still pending loses.
		siblingFilter := bson.M{
			"offer_id": offer.ID,
			"_id":      bson.M{"$ne": counter.ID},
			"status":   models.OfferPending,
			"deleted":  false,
		}
		siblingUpdate := bson.M{"$set": bson.M{
			"status":     models.OfferRejected,
			"reason":     "superseded by accepted counter-offer",
			"updated_at": now,
		}}
		if _, err := s.db.Collection(counterOffersCollection).UpdateMany(txCtx, siblingFilter, siblingUpdate); err != nil {
			return fmt.Errorf("failed to reject sibling counter-offers of %s: %w", counter.ID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordHistory(ctx, models.NewHistoryEntry(counter.ID, models.EntityCounterOffer, models.HistoryAccepted, actorID, ""))
	s.recordHistory(ctx, models.NewHistoryEntry(offer.ID, models.EntityOffer, models.HistoryAccepted, actorID,
		fmt.Sprintf("resolved by counter-offer #%d", counter.Number)))
	s.sendNotification(ctx, models.NewNotification(
		counter.AuthorID, models.NotifyCounterAccepted, "Counter-offer accepted",
		fmt.Sprintf("Your counter-offer of %v per unit for %v units was accepted.", counter.Price, counter.Quantity),
		counter.ID,
	))

	resolved, err := s.findOffer(ctx, offer.ID)
	if err != nil {
		return nil, err
	}
	return resolved, nil
}

// RejectCounterOffer marks the counter-offer REJECTED and terminates the whole
// thread by rejecting the root offer. There is no re-countering after a rejection.
func (s *counterOfferService) RejectCounterOffer(ctx context.Context, counterOfferID, actorID, reason string) error {
	counter, offer, err := s.loadThread(ctx, counterOfferID)
	if err != nil {
		return err
	}
	if err := s.validateResponder(counter, offer, actorID); err != nil {
		return err
	}
	if counter.Status != models.OfferPending {
		return fmt.Errorf("%w: counter-offer %s is %s", ErrInvalidState, counterOfferID, counter.Status)
	}

	now := time.Now().UTC()
	if counter.IsExpiredAt(now) {
		s.expireCounterOnTouch(ctx, counter.ID, actorID)
		return fmt.Errorf("%w: counter-offer %s expired at %s", ErrExpired, counterOfferID, counter.ExpiresAt.Format(time.RFC3339))
	}

	err = db.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		if err := s.applyCounterStatus(txCtx, counter.ID, models.OfferPending, models.OfferRejected, reason, now); err != nil {
			return err
		}
		rootFilter := bson.M{
			"_id":          offer.ID,
			"deleted":      false,
			"offer_status": bson.M{"$in": bson.A{models.OfferPending, models.OfferCountered}},
		}
		rootUpdate := bson.M{"$set": bson.M{
			"offer_status": models.OfferRejected,
			"responded_at": now,
			"updated_at":   now,
		}}
		result, updateErr := s.db.Collection(offersCollection).UpdateOne(txCtx, rootFilter, rootUpdate)
		if updateErr != nil {
			return fmt.Errorf("db error rejecting offer %s: %w", offer.ID, updateErr)
		}
		if result.MatchedCount == 0 {
			return fmt.Errorf("%w: offer %s already resolved", ErrInvalidState, offer.ID)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.recordHistory(ctx, models.NewHistoryEntry(counter.ID, models.EntityCounterOffer, models.HistoryRejected, actorID, reason))
	s.recordHistory(ctx, models.NewHistoryEntry(offer.ID, models.EntityOffer, models.HistoryRejected, actorID,
		fmt.Sprintf("thread terminated by rejection of counter-offer #%d", counter.Number)))
	s.sendNotification(ctx, models.NewNotification(
		counter.AuthorID, models.NotifyCounterRejected, "Counter-offer rejected",
		"Your counter-offer was rejected; the negotiation is closed.",
		counter.ID,
	))
	return nil
}

// UpdateCounterOffer lets the author amend a pending, unexpired counter-offer's
// price and quantity.
func (s *counterOfferService) UpdateCounterOffer(ctx context.Context, counterOfferID, actorID string, price, quantity float64) (*models.CounterOffer, error) {
	counter, offer, err := s.loadThread(ctx, counterOfferID)
	if err != nil {
		return nil, err
	}
	if actorID != counter.AuthorID {
		return nil, fmt.Errorf("%w: only the author may amend counter-offer %s", ErrForbidden, counterOfferID)
	}

	now := time.Now().UTC()
	if counter.IsExpiredAt(now) {
		s.expireCounterOnTouch(ctx, counter.ID, actorID)
		return nil, fmt.Errorf("%w: counter-offer %s expired at %s", ErrExpired, counterOfferID, counter.ExpiresAt.Format(time.RFC3339))
	}

	requirement, err := s.gateway.FindByID(ctx, offer.RequirementID)
	if err != nil {
		return nil, err
	}
	if quantity <= 0 || quantity > requirement.Quantity {
		return nil, fmt.Errorf("%w: quantity %v not within (0, %v]", ErrInvalidArgument, quantity, requirement.Quantity)
	}
	if counter.Negotiable && price < s.cfg.MinNegotiablePrice {
		return nil, fmt.Errorf("%w: price %v below minimum %v", ErrInvalidArgument, price, s.cfg.MinNegotiablePrice)
	}

	filter := bson.M{
		"_id":     counter.ID,
		"status":  models.OfferPending,
		"deleted": false,
	}
	update := bson.M{"$set": bson.M{
		"price":      price,
		"quantity":   quantity,
		"updated_at": now,
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var updated models.CounterOffer
	err = s.db.Collection(counterOffersCollection).FindOneAndUpdate(ctx, filter, update, opts).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: counter-offer %s is no longer pending", ErrInvalidState, counterOfferID)
		}
		return nil, fmt.Errorf("failed to update counter-offer %s: %w", counterOfferID, err)
	}

	s.recordHistory(ctx, models.NewHistoryEntry(counter.ID, models.EntityCounterOffer, models.HistoryUpdated, actorID,
		fmt.Sprintf("amended to %v per unit for %v units", price, quantity)))
	return &updated, nil
}

// DeleteCounterOffer withdraws a pending, unexpired counter-offer. The parent's
// counter count is decremented; if no pending counter-offers remain the parent goes
// back to PENDING so the negotiation can continue.
func (s *counterOfferService) DeleteCounterOffer(ctx context.Context, counterOfferID, actorID string) error {
	counter, offer, err := s.loadThread(ctx, counterOfferID)
	if err != nil {
		return err
	}
	if actorID != counter.AuthorID {
		return fmt.Errorf("%w: only the author may withdraw counter-offer %s", ErrForbidden, counterOfferID)
	}
	if counter.Status != models.OfferPending {
		return fmt.Errorf("%w: counter-offer %s is %s", ErrInvalidState, counterOfferID, counter.Status)
	}

	now := time.Now().UTC()
	if counter.IsExpiredAt(now) {
		s.expireCounterOnTouch(ctx, counter.ID, actorID)
		return fmt.Errorf("%w: counter-offer %s expired at %s", ErrExpired, counterOfferID, counter.ExpiresAt.Format(time.RFC3339))
	}

	err = db.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		filter := bson.M{
			"_id":     counter.ID,
			"status":  models.OfferPending,
			"deleted": false,
		}
		update := bson.M{"$set": bson.M{
			"deleted":    true,
			"deleted_at": now,
			"updated_at": now,
		}}
		result, deleteErr := s.db.Collection(counterOffersCollection).UpdateOne(txCtx, filter, update)
		if deleteErr != nil {
			return fmt.Errorf("db error withdrawing counter-offer %s: %w", counter.ID, deleteErr)
		}
		if result.MatchedCount == 0 {
			return fmt.Errorf("%w: counter-offer %s was modified concurrently", ErrConflict, counter.ID)
		}

		if _, err := s.db.Collection(offersCollection).UpdateOne(txCtx,
			bson.M{"_id": offer.ID, "deleted": false},
			bson.M{"$inc": bson.M{"counter_offer_count": -1}, "$set": bson.M{"updated_at": now}},
		); err != nil {
			return fmt.Errorf("failed to decrement counter count on offer %s: %w", offer.ID, err)
		}

		remaining, countErr := s.db.Collection(counterOffersCollection).CountDocuments(txCtx, bson.M{
			"offer_id": offer.ID,
			"status":   models.OfferPending,
			"deleted":  false,
		})
		if countErr != nil {
			return fmt.Errorf("failed to count remaining counter-offers on offer %s: %w", offer.ID, countErr)
		}
		if remaining == 0 {
			// Reopen the parent so the proposer's original terms are live again.
			if _, err := s.db.Collection(offersCollection).UpdateOne(txCtx,
				bson.M{"_id": offer.ID, "offer_status": models.OfferCountered, "deleted": false},
				bson.M{"$set": bson.M{"offer_status": models.OfferPending, "updated_at": now}},
			); err != nil {
				return fmt.Errorf("failed to reopen offer %s: %w", offer.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.recordHistory(ctx, models.NewHistoryEntry(counter.ID, models.EntityCounterOffer, models.HistoryWithdrawn, actorID, ""))
	return nil
}

// FindCounterOffersByOffer lists the non-deleted counter-offers of a thread in
// issue order.
func (s *counterOfferService) FindCounterOffersByOffer(ctx context.Context, offerID string) ([]models.CounterOffer, error) {
	opts := options.Find().SetSort(bson.D{{Key: "number", Value: 1}})
	cursor, err := s.db.Collection(counterOffersCollection).Find(ctx, bson.M{"offer_id": offerID, "deleted": false}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query counter-offers for offer %s: %w", offerID, err)
	}
	defer cursor.Close(ctx)

	var counters []models.CounterOffer
	if err = cursor.All(ctx, &counters); err != nil {
		return nil, fmt.Errorf("failed to decode counter-offers for offer %s: %w", offerID, err)
	}
	return counters, nil
}

// SweepExpired bulk-moves overdue pending counter-offers to EXPIRED, same policy as
// the offer sweep.
func (s *counterOfferService) SweepExpired(ctx context.Context) (int64, error) {
	now := time.Now().UTC()
	filter := bson.M{
		"status":     models.OfferPending,
		"negotiable": true,
		"deleted":    false,
		"expires_at": bson.M{"$lte": now},
	}
	update := bson.M{"$set": bson.M{
		"status":     models.OfferExpired,
		"updated_at": now,
	}}
	result, err := s.db.Collection(counterOffersCollection).UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep expired counter-offers: %w", err)
	}
	return result.ModifiedCount, nil
}

// loadThread resolves a counter-offer together with its root offer.
func (s *counterOfferService) loadThread(ctx context.Context, counterOfferID string) (*models.CounterOffer, *models.Offer, error) {
	var counter models.CounterOffer
	err := s.db.Collection(counterOffersCollection).
		FindOne(ctx, bson.M{"_id": counterOfferID, "deleted": false}).Decode(&counter)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil, fmt.Errorf("%w: counter-offer %s", ErrCounterOfferNotFound, counterOfferID)
		}
		return nil, nil, fmt.Errorf("error finding counter-offer %s: %w", counterOfferID, err)
	}
	offer, err := s.findOffer(ctx, counter.OfferID)
	if err != nil {
		return nil, nil, err
	}
	return &counter, offer, nil
}

// validateResponder enforces the two-party rule and forbids self-acceptance: the
// author of a counter-offer can never be the one who settles it.
func (s *counterOfferService) validateResponder(counter *models.CounterOffer, offer *models.Offer, actorID string) error {
	if !offer.IsParty(actorID) {
		return fmt.Errorf("%w: user %s is not a party to offer %s", ErrForbidden, actorID, offer.ID)
	}
	if actorID == counter.AuthorID {
		return fmt.Errorf("%w: the author may not respond to their own counter-offer", ErrForbidden)
	}
	return nil
}

func (s *counterOfferService) findOffer(ctx context.Context, offerID string) (*models.Offer, error) {
	var offer models.Offer
	err := s.db.Collection(offersCollection).FindOne(ctx, bson.M{"_id": offerID, "deleted": false}).Decode(&offer)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: offer %s", ErrOfferNotFound, offerID)
		}
		return nil, fmt.Errorf("error finding offer %s: %w", offerID, err)
	}
	return &offer, nil
}

// applyCounterStatus is the counter-offer flavor of the optimistic check-then-write.
func (s *counterOfferService) applyCounterStatus(ctx context.Context, counterOfferID string, from, to models.OfferStatus, reason string, now time.Time) error {
	set := bson.M{
		"status":     to,
		"updated_at": now,
	}
	if reason != "" {
		set["reason"] = reason
	}
	filter := bson.M{
		"_id":     counterOfferID,
		"status":  from,
		"deleted": false,
	}
	result, err := s.db.Collection(counterOffersCollection).UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("db error transitioning counter-offer %s to %s: %w", counterOfferID, to, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: counter-offer %s was modified concurrently", ErrInvalidState, counterOfferID)
	}
	return nil
}

// expireOfferOnTouch flips an overdue parent offer to EXPIRED, lazy-expiry style.
func (s *counterOfferService) expireOfferOnTouch(ctx context.Context, offerID, touchedBy string) {
	now := time.Now().UTC()
	filter := bson.M{"_id": offerID, "offer_status": models.OfferPending, "deleted": false}
	update := bson.M{"$set": bson.M{"offer_status": models.OfferExpired, "responded_at": now, "updated_at": now}}
	result, err := s.db.Collection(offersCollection).UpdateOne(ctx, filter, update)
	if err != nil {
		log.Printf("Warning: failed to force-expire offer %s: %v", offerID, err)
		return
	}
	if result.ModifiedCount > 0 {
		s.recordHistory(ctx, models.NewHistoryEntry(offerID, models.EntityOffer, models.HistoryExpired, models.SystemActor,
			fmt.Sprintf("expired on touch by %s", touchedBy)))
	}
}

// expireCounterOnTouch is the counter-offer twin of expireOfferOnTouch.
func (s *counterOfferService) expireCounterOnTouch(ctx context.Context, counterOfferID, touchedBy string) {
	now := time.Now().UTC()
	filter := bson.M{"_id": counterOfferID, "status": models.OfferPending, "deleted": false}
	update := bson.M{"$set": bson.M{"status": models.OfferExpired, "updated_at": now}}
	result, err := s.db.Collection(counterOffersCollection).UpdateOne(ctx, filter, update)
	if err != nil {
		log.Printf("Warning: failed to force-expire counter-offer %s: %v", counterOfferID, err)
		return
	}
	if result.ModifiedCount > 0 {
		s.recordHistory(ctx, models.NewHistoryEntry(counterOfferID, models.EntityCounterOffer, models.HistoryExpired, models.SystemActor,
			fmt.Sprintf("expired on touch by %s", touchedBy)))
	}
}

func (s *counterOfferService) recordHistory(ctx context.Context, entry models.HistoryEntry) {
	if err := s.history.Record(ctx, entry); err != nil {
		log.Printf("Warning: failed to record %s history for %s: %v", entry.Action, entry.EntityID, err)
	}
}

func (s *counterOfferService) sendNotification(ctx context.Context, n models.Notification) {
	if err := s.notifier.Notify(ctx, n); err != nil {
		log.Printf("Warning: failed to deliver %s notification to user %s: %v", n.Type, n.UserID, err)
	}
}
