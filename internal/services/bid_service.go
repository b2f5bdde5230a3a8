package services

import (
	"context"
	"fmt"
	"log"
	"math"
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

// IBidService covers the bidding variant of a requirement: independent bids resolved
// together by a percentage-based allocation plan instead of a single accept.
type IBidService interface {
	PlaceBid(ctx context.Context, requirementID, bidderID string, price, quantity float64) (*models.Bid, error)
	AllocateBids(ctx context.Context, requirementID, actorID string, allocations map[string]float64, quantityOverrides map[string]float64) ([]models.Bid, error)
	FindBidsByRequirement(ctx context.Context, requirementID string) ([]models.Bid, error)
}

const bidsCollection = "bids"

type bidService struct {
	db       *mongo.Database
	cfg      *config.Config
	gateway  gateway.IRequirementGateway
	history  IHistoryService
	notifier notify.Notifier
}

// NewBidService creates a new BidService.
func NewBidService(database *mongo.Database, cfg *config.Config, gw gateway.IRequirementGateway, history IHistoryService, notifier notify.Notifier) IBidService {
	return &bidService{
		db:       database,
		cfg:      cfg,
		gateway:  gw,
		history:  history,
		notifier: notifier,
	}
}

// PlaceBid creates an ACTIVE bid on an open requirement. Once any bid for the
// requirement has been WON, bidding is closed for good.
func (s *bidService) PlaceBid(ctx context.Context, requirementID, bidderID string, price, quantity float64) (*models.Bid, error) {
	requirement, err := s.gateway.FindByID(ctx, requirementID)
	if err != nil {
		return nil, err
	}
	if requirement.Status != models.RequirementOpen {
		return nil, fmt.Errorf("%w: requirement %s is %s", ErrInvalidState, requirementID, requirement.Status)
	}
	if requirement.UserID == bidderID {
		return nil, fmt.Errorf("%w: cannot bid on own requirement", ErrForbidden)
	}
	if quantity <= 0 || quantity > requirement.AvailableQuantity {
		return nil, fmt.Errorf("%w: quantity %v not within (0, %v]", ErrInvalidArgument, quantity, requirement.AvailableQuantity)
	}
	if price <= 0 {
		return nil, fmt.Errorf("%w: price must be positive", ErrInvalidArgument)
	}

	collection := s.db.Collection(bidsCollection)

	wonCount, err := collection.CountDocuments(ctx, bson.M{
		"requirement_id": requirementID,
		"status":         models.BidWon,
		"deleted":        false,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to check won bids on requirement %s: %w", requirementID, err)
	}
	if wonCount > 0 {
		return nil, fmt.Errorf("%w: requirement %s already has winning bids", ErrInvalidState, requirementID)
	}

	activeCount, err := collection.CountDocuments(ctx, bson.M{
		"requirement_id": requirementID,
		"bidder_id":      bidderID,
		"status":         models.BidActive,
		"deleted":        false,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to check active bids on requirement %s: %w", requirementID, err)
	}
	if activeCount > 0 {
		return nil, fmt.Errorf("%w: user %s already has an active bid on requirement %s", ErrConflict, bidderID, requirementID)
	}

	now := time.Now().UTC()
	var newBid *models.Bid
	operation := func() error {
		newBid = &models.Bid{
			ID:            uuid.NewString(),
			RequirementID: requirementID,
			BidderID:      bidderID,
			Price:         price,
			Quantity:      quantity,
			Status:        models.BidActive,
			CreatedAt:     now,
			UpdatedAt:     now,
			Deleted:       false,
		}
		_, insertErr := collection.InsertOne(ctx, newBid)
		return insertErr
	}
	if err := db.Try(operation); err != nil {
		return nil, fmt.Errorf("failed to insert bid for requirement %s: %w", requirementID, err)
	}

	s.recordHistory(ctx, models.NewHistoryEntry(newBid.ID, models.EntityBid, models.HistoryCreated, bidderID, ""))
	s.sendNotification(ctx, models.NewNotification(
		requirement.UserID, models.NotifyBidPlaced, "New bid received",
		fmt.Sprintf("A bid of %v per unit for %v units was placed on %q.", price, quantity, requirement.Title),
		newBid.ID,
	))

	return newBid, nil
}

// AllocateBids validates and applies a percentage-based multi-winner allocation
// plan, then closes the requirement. All bid updates and the close commit as one
// transaction. Bids with a positive percentage win the allocated quantity (explicit
// override, else round(requirementQuantity x pct / 100)); every other active bid is
// marked LOST. The allocated quantity overwrites the bid's live quantity after its
// original is snapshotted; the price is never touched.
func (s *bidService) AllocateBids(ctx context.Context, requirementID, actorID string, allocations map[string]float64, quantityOverrides map[string]float64) ([]models.Bid, error) {
	requirement, err := s.gateway.FindByID(ctx, requirementID)
	if err != nil {
		return nil, err
	}
	if requirement.UserID != actorID {
		return nil, fmt.Errorf("%w: only the requirement owner may allocate", ErrForbidden)
	}
	if requirement.Status != models.RequirementOpen {
		return nil, fmt.Errorf("%w: requirement %s is %s", ErrInvalidState, requirementID, requirement.Status)
	}
	if len(allocations) == 0 {
		return nil, fmt.Errorf("%w: allocation map is empty", ErrInvalidArgument)
	}

	var pctSum float64
	for bidID, pct := range allocations {
		if pct < 0 {
			return nil, fmt.Errorf("%w: negative percentage for bid %s", ErrInvalidArgument, bidID)
		}
		pctSum += pct
	}
	if math.Abs(pctSum-100) > s.cfg.AllocationTolerance {
		return nil, fmt.Errorf("%w: allocation percentages sum to %v, expected 100", ErrInvalidArgument, pctSum)
	}

	bids, err := s.FindBidsByRequirement(ctx, requirementID)
	if err != nil {
		return nil, err
	}
	bidsByID := make(map[string]*models.Bid, len(bids))
	for i := range bids {
		bidsByID[bids[i].ID] = &bids[i]
	}
	for bidID := range allocations {
		bid, known := bidsByID[bidID]
		if !known {
			return nil, fmt.Errorf("%w: bid %s on requirement %s", ErrBidNotFound, bidID, requirementID)
		}
		if bid.Status != models.BidActive {
			return nil, fmt.Errorf("%w: bid %s is %s", ErrInvalidState, bidID, bid.Status)
		}
	}

	// Resolve quantities up front so the plan can be rejected whole before any write.
	allocatedQty := make(map[string]float64, len(allocations))
	var totalAllocated float64
	for bidID, pct := range allocations {
		if pct == 0 {
			continue
		}
		qty, overridden := quantityOverrides[bidID]
		if !overridden {
			qty = math.Round(requirement.Quantity * pct / 100)
		}
		if qty <= 0 {
			return nil, fmt.Errorf("%w: allocation for bid %s resolves to %v units", ErrInvalidArgument, bidID, qty)
		}
		allocatedQty[bidID] = qty
		totalAllocated += qty
	}
	if totalAllocated > requirement.Quantity {
		return nil, fmt.Errorf("%w: allocated total %v exceeds requirement quantity %v", ErrInvalidArgument, totalAllocated, requirement.Quantity)
	}

	now := time.Now().UTC()
	collection := s.db.Collection(bidsCollection)

	err = db.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		for bidID, pct := range allocations {
			bid := bidsByID[bidID]
			set := bson.M{
				"resolved_at": now,
				"updated_at":  now,
			}
			if pct > 0 {
				set["status"] = models.BidWon
				set["quantity"] = allocatedQty[bidID]
				set["allocation_pct"] = pct
				if bid.OriginalPrice == nil {
					set["original_price"] = bid.Price
					set["original_quantity"] = bid.Quantity
				}
			} else {
				set["status"] = models.BidLost
			}
			// Pinning ACTIVE makes a concurrent allocation lose cleanly.
			result, updateErr := collection.UpdateOne(txCtx,
				bson.M{"_id": bidID, "status": models.BidActive, "deleted": false},
				bson.M{"$set": set})
			if updateErr != nil {
				return fmt.Errorf("db error allocating bid %s: %w", bidID, updateErr)
			}
			if result.MatchedCount == 0 {
				return fmt.Errorf("%w: bid %s was modified concurrently", ErrConflict, bidID)
			}
		}

		// Active bids the plan never mentioned lose as well; the requirement closes.
		unmentioned := bson.M{
			"requirement_id": requirementID,
			"status":         models.BidActive,
			"deleted":        false,
		}
		if _, err := collection.UpdateMany(txCtx, unmentioned, bson.M{"$set": bson.M{
			"status":      models.BidLost,
			"resolved_at": now,
			"updated_at":  now,
		}}); err != nil {
			return fmt.Errorf("failed to mark unallocated bids lost on requirement %s: %w", requirementID, err)
		}

		return s.gateway.Close(txCtx, requirementID)
	})
	if err != nil {
		return nil, err
	}

	s.recordHistory(ctx, models.NewHistoryEntry(requirementID, models.EntityRequirement, models.HistoryAllocated, actorID,
		fmt.Sprintf("%d bids allocated, %v units total", len(allocatedQty), totalAllocated)))
	for _, bid := range bids {
		pct, mentioned := allocations[bid.ID]
		switch {
		case mentioned && pct > 0:
			s.recordHistory(ctx, models.NewHistoryEntry(bid.ID, models.EntityBid, models.HistoryWon, actorID,
				fmt.Sprintf("allocated %v units (%v%%)", allocatedQty[bid.ID], pct)))
			s.sendNotification(ctx, models.NewNotification(
				bid.BidderID, models.NotifyBidWon, "Bid won",
				fmt.Sprintf("Your bid won an allocation of %v units on %q.", allocatedQty[bid.ID], requirement.Title),
				bid.ID,
			))
		case bid.Status == models.BidActive:
			s.recordHistory(ctx, models.NewHistoryEntry(bid.ID, models.EntityBid, models.HistoryLost, actorID, ""))
			s.sendNotification(ctx, models.NewNotification(
				bid.BidderID, models.NotifyBidLost, "Bid lost",
				fmt.Sprintf("Your bid on %q was not selected.", requirement.Title),
				bid.ID,
			))
		}
	}
	s.sendNotification(ctx, models.NewNotification(
		requirement.UserID, models.NotifyRequirementClosed, "Requirement closed",
		fmt.Sprintf("Requirement %q was closed after bid allocation.", requirement.Title),
		requirementID,
	))

	return s.FindBidsByRequirement(ctx, requirementID)
}

// FindBidsByRequirement lists non-deleted bids for a requirement, newest first.
func (s *bidService) FindBidsByRequirement(ctx context.Context, requirementID string) ([]models.Bid, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := s.db.Collection(bidsCollection).Find(ctx, bson.M{"requirement_id": requirementID, "deleted": false}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query bids for requirement %s: %w", requirementID, err)
	}
	defer cursor.Close(ctx)

	var bids []models.Bid
	if err = cursor.All(ctx, &bids); err != nil {
		return nil, fmt.Errorf("failed to decode bids for requirement %s: %w", requirementID, err)
	}
	return bids, nil
}

func (s *bidService) recordHistory(ctx context.Context, entry models.HistoryEntry) {
	if err := s.history.Record(ctx, entry); err != nil {
		log.Printf("Warning: failed to record %s history for %s: %v", entry.Action, entry.EntityID, err)
	}
}

func (s *bidService) sendNotification(ctx context.Context, n models.Notification) {
	if err := s.notifier.Notify(ctx, n); err != nil {
		log.Printf("Warning: failed to deliver %s notification to user %s: %v", n.Type, n.UserID, err)
	}
}
