package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/aquarioustechnology-alt/nexgpetrolube-backend-sub000/internal/config"
	"github.com/aquarioustechnology-alt/nexgpetrolube-backend-sub000/internal/gateway"
	"github.com/aquarioustechnology-alt/nexgpetrolube-backend-sub000/internal/models"
	"github.com/aquarioustechnology-alt/nexgpetrolube-backend-sub000/internal/notify"
	"github.com/aquarioustechnology-alt/nexgpetrolube-backend-sub000/internal/utils"
)

func setupTestDBNegotiation(t *testing.T, dbName string) *mongo.Database {
	return utils.SetupTestDB(t, dbName,
		"requirements", "offers", "counter_offers", "bids", "negotiation_history", "notifications")
}

func newTestOfferService(db *mongo.Database, cfg *config.Config) (IOfferService, gateway.IRequirementGateway, IHistoryService) {
	gw := gateway.NewRequirementGateway(db)
	history := NewHistoryService(db)
	svc := NewOfferService(db, cfg, gw, history, notify.NewLoggingNotifier())
	return svc, gw, history
}

func createTestRequirement(db *mongo.Database, ownerID string, negotiable bool, windowHours int, quantity float64) (*models.Requirement, error) {
	now := time.Now().UTC()
	requirement := &models.Requirement{
		ID:                     uuid.NewString(),
		UserID:                 ownerID,
		Title:                  "Hydraulic oil ISO VG 46",
		Status:                 models.RequirementOpen,
		Negotiable:             negotiable,
		NegotiationWindowHours: windowHours,
		Quantity:               quantity,
		AvailableQuantity:      quantity,
		CreatedAt:              now,
		UpdatedAt:              now,
		Deleted:                false,
	}
	_, err := db.Collection("requirements").InsertOne(context.Background(), requirement)
	return requirement, err
}

// backdateOfferExpiry rewrites an offer's expiry so tests can simulate an offer
// whose negotiation window has already closed.
func backdateOfferExpiry(db *mongo.Database, offerID string, expiresAt time.Time) error {
	_, err := db.Collection("offers").UpdateOne(context.Background(),
		bson.M{"_id": offerID},
		bson.M{"$set": bson.M{"expires_at": expiresAt}})
	return err
}

func TestOfferService_CreateOffer(t *testing.T) {
	db := setupTestDBNegotiation(t, "testdb_offer_create")
	cfg := config.Defaults()
	svc, _, _ := newTestOfferService(db, cfg)
	ctx := context.Background()

	requirement, err := createTestRequirement(db, "owner-1", true, 24, 1000)
	assert.NoError(t, err)

	offer, err := svc.CreateOffer(ctx, requirement.ID, "seller-1", 100, 200)
	assert.NoError(t, err)
	assert.NotNil(t, offer)
	assert.Equal(t, models.OfferPending, offer.Status)
	assert.Equal(t, "owner-1", offer.RequirementOwnerID)
	assert.Equal(t, 0, offer.CounterOfferCount)

	// Negotiable requirement: expiry is creation time plus the window
	assert.NotNil(t, offer.ExpiresAt)
	expectedExpiry := offer.CreatedAt.Add(24 * time.Hour)
	assert.WithinDuration(t, expectedExpiry, *offer.ExpiresAt, time.Second)

	// Second live offer by the same proposer is a conflict
	_, err = svc.CreateOffer(ctx, requirement.ID, "seller-1", 95, 100)
	assert.ErrorIs(t, err, ErrConflict)

	// A different proposer is fine
	_, err = svc.CreateOffer(ctx, requirement.ID, "seller-2", 98, 300)
	assert.NoError(t, err)

	// Owner cannot offer on their own requirement
	_, err = svc.CreateOffer(ctx, requirement.ID, "owner-1", 100, 100)
	assert.ErrorIs(t, err, ErrForbidden)

	// Quantity must stay within what is available
	_, err = svc.CreateOffer(ctx, requirement.ID, "seller-3", 100, 1001)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = svc.CreateOffer(ctx, requirement.ID, "seller-3", 100, 0)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	// Unknown requirement
	_, err = svc.CreateOffer(ctx, uuid.NewString(), "seller-3", 100, 10)
	assert.ErrorIs(t, err, gateway.ErrRequirementNotFound)
}

func TestOfferService_CreateOffer_NonNegotiableHasNoExpiry(t *testing.T) {
	db := setupTestDBNegotiation(t, "testdb_offer_create_nonneg")
	svc, _, _ := newTestOfferService(db, config.Defaults())
	ctx := context.Background()

	requirement, err := createTestRequirement(db, "owner-1", false, 0, 500)
	assert.NoError(t, err)

	offer, err := svc.CreateOffer(ctx, requirement.ID, "seller-1", 80, 100)
	assert.NoError(t, err)
	assert.Nil(t, offer.ExpiresAt)
	assert.False(t, offer.IsExpiredAt(time.Now().UTC().Add(10_000*time.Hour)))
}

func TestOfferService_CreateOffer_ClosedRequirement(t *testing.T) {
	db := setupTestDBNegotiation(t, "testdb_offer_create_closed")
	svc, gw, _ := newTestOfferService(db, config.Defaults())
	ctx := context.Background()

	requirement, err := createTestRequirement(db, "owner-1", true, 24, 500)
	assert.NoError(t, err)
	assert.NoError(t, gw.Close(ctx, requirement.ID))

	_, err = svc.CreateOffer(ctx, requirement.ID, "seller-1", 100, 100)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestOfferService_AcceptDecrementsAvailability(t *testing.T) {
	db := setupTestDBNegotiation(t, "testdb_offer_accept")
	svc, gw, history := newTestOfferService(db, config.Defaults())
	ctx := context.Background()

	requirement, err := createTestRequirement(db, "owner-1", true, 24, 1000)
	assert.NoError(t, err)
	offer, err := svc.CreateOffer(ctx, requirement.ID, "seller-1", 100, 200)
	assert.NoError(t, err)

	accepted, err := svc.TransitionOffer(ctx, offer.ID, "owner-1", models.ActionAccept, "")
	assert.NoError(t, err)
	assert.Equal(t, models.OfferAccepted, accepted.Status)
	assert.NotNil(t, accepted.RespondedAt)

	found, err := gw.FindByID(ctx, requirement.ID)
	assert.NoError(t, err)
	assert.Equal(t, float64(800), found.AvailableQuantity)

	// Terminal state: no further transitions
	_, err = svc.TransitionOffer(ctx, offer.ID, "owner-1", models.ActionReject, "")
	assert.ErrorIs(t, err, ErrInvalidState)
	_, err = svc.TransitionOffer(ctx, offer.ID, "seller-1", models.ActionWithdraw, "")
	assert.ErrorIs(t, err, ErrInvalidState)

	entries, err := history.FindByEntity(ctx, offer.ID)
	assert.NoError(t, err)
	assert.Len(t, entries, 2) // CREATED, ACCEPTED
	assert.Equal(t, models.HistoryCreated, entries[0].Action)
	assert.Equal(t, models.HistoryAccepted, entries[1].Action)
}

func TestOfferService_AcceptFailsWhenQuantityShrank(t *testing.T) {
	db := setupTestDBNegotiation(t, "testdb_offer_accept_shrunk")
	svc, gw, _ := newTestOfferService(db, config.Defaults())
	ctx := context.Background()

	requirement, err := createTestRequirement(db, "owner-1", true, 24, 1000)
	assert.NoError(t, err)
	offer, err := svc.CreateOffer(ctx, requirement.ID, "seller-1", 100, 600)
	assert.NoError(t, err)

	// Another negotiation consumed most of the quantity in the meantime
	assert.NoError(t, gw.DecrementAvailableQuantity(ctx, requirement.ID, 500))

	_, err = svc.TransitionOffer(ctx, offer.ID, "owner-1", models.ActionAccept, "")
	assert.ErrorIs(t, err, ErrInvalidArgument)

	found, err := gw.FindByID(ctx, requirement.ID)
	assert.NoError(t, err)
	assert.Equal(t, float64(500), found.AvailableQuantity)
}

func TestOfferService_TransitionRoles(t *testing.T) {
	db := setupTestDBNegotiation(t, "testdb_offer_roles")
	svc, _, _ := newTestOfferService(db, config.Defaults())
	ctx := context.Background()

	requirement, err := createTestRequirement(db, "owner-1", true, 24, 1000)
	assert.NoError(t, err)
	offer, err := svc.CreateOffer(ctx, requirement.ID, "seller-1", 100, 200)
	assert.NoError(t, err)

	// A stranger is not a party at all
	_, err = svc.TransitionOffer(ctx, offer.ID, "stranger", models.ActionAccept, "")
	assert.ErrorIs(t, err, ErrForbidden)

	// The proposer cannot accept or reject their own offer
	_, err = svc.TransitionOffer(ctx, offer.ID, "seller-1", models.ActionAccept, "")
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = svc.TransitionOffer(ctx, offer.ID, "seller-1", models.ActionReject, "")
	assert.ErrorIs(t, err, ErrForbidden)

	// The owner cannot withdraw the proposer's offer
	_, err = svc.TransitionOffer(ctx, offer.ID, "owner-1", models.ActionWithdraw, "")
	assert.ErrorIs(t, err, ErrForbidden)

	// Expire and counter are never requestable directly
	_, err = svc.TransitionOffer(ctx, offer.ID, "owner-1", models.ActionExpire, "")
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = svc.TransitionOffer(ctx, offer.ID, "owner-1", models.ActionCounter, "")
	assert.ErrorIs(t, err, ErrInvalidArgument)

	// Withdraw by the proposer works
	withdrawn, err := svc.TransitionOffer(ctx, offer.ID, "seller-1", models.ActionWithdraw, "changed my mind")
	assert.NoError(t, err)
	assert.Equal(t, models.OfferWithdrawn, withdrawn.Status)
}

func TestOfferService_ExpiryOnTouch(t *testing.T) {
	db := setupTestDBNegotiation(t, "testdb_offer_expiry_touch")
	svc, gw, _ := newTestOfferService(db, config.Defaults())
	ctx := context.Background()

	requirement, err := createTestRequirement(db, "owner-1", true, 24, 1000)
	assert.NoError(t, err)
	offer, err := svc.CreateOffer(ctx, requirement.ID, "seller-1", 100, 200)
	assert.NoError(t, err)

	// Window has passed; the next touch must fail Expired and force the status
	assert.NoError(t, backdateOfferExpiry(db, offer.ID, time.Now().UTC().Add(-time.Hour)))

	_, err = svc.TransitionOffer(ctx, offer.ID, "owner-1", models.ActionAccept, "")
	assert.ErrorIs(t, err, ErrExpired)

	found, err := svc.FindOfferByID(ctx, offer.ID)
	assert.NoError(t, err)
	assert.Equal(t, models.OfferExpired, found.Status)

	// No decrement happened
	req, err := gw.FindByID(ctx, requirement.ID)
	assert.NoError(t, err)
	assert.Equal(t, float64(1000), req.AvailableQuantity)
}

func TestOfferService_ConcurrentAcceptSingleWinner(t *testing.T) {
	db := setupTestDBNegotiation(t, "testdb_offer_concurrent_accept")
	svc, gw, _ := newTestOfferService(db, config.Defaults())
	ctx := context.Background()

	requirement, err := createTestRequirement(db, "owner-1", true, 24, 1000)
	assert.NoError(t, err)
	offer, err := svc.CreateOffer(ctx, requirement.ID, "seller-1", 100, 200)
	assert.NoError(t, err)

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.TransitionOffer(ctx, offer.ID, "owner-1", models.ActionAccept, "")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var successes, invalidState int
	for err := range results {
		if err == nil {
			successes++
		} else {
			assert.ErrorIs(t, err, ErrInvalidState)
			invalidState++
		}
	}
	assert.Equal(t, 1, successes, "exactly one concurrent accept must win")
	assert.Equal(t, 1, invalidState)

	// The quantity was decremented exactly once
	found, err := gw.FindByID(ctx, requirement.ID)
	assert.NoError(t, err)
	assert.Equal(t, float64(800), found.AvailableQuantity)
}

func TestOfferService_DeleteOffer(t *testing.T) {
	db := setupTestDBNegotiation(t, "testdb_offer_delete")
	svc, _, _ := newTestOfferService(db, config.Defaults())
	ctx := context.Background()

	requirement, err := createTestRequirement(db, "owner-1", true, 24, 1000)
	assert.NoError(t, err)
	offer, err := svc.CreateOffer(ctx, requirement.ID, "seller-1", 100, 200)
	assert.NoError(t, err)

	// Only the proposer may delete
	err = svc.DeleteOffer(ctx, offer.ID, "owner-1")
	assert.ErrorIs(t, err, ErrForbidden)

	err = svc.DeleteOffer(ctx, offer.ID, "seller-1")
	assert.NoError(t, err)

	// Deleted offers are invisible
	_, err = svc.FindOfferByID(ctx, offer.ID)
	assert.ErrorIs(t, err, ErrOfferNotFound)
	err = svc.DeleteOffer(ctx, offer.ID, "seller-1")
	assert.ErrorIs(t, err, ErrOfferNotFound)

	// And excluded from the one-live-offer uniqueness check
	replacement, err := svc.CreateOffer(ctx, requirement.ID, "seller-1", 90, 200)
	assert.NoError(t, err)
	assert.NotEqual(t, offer.ID, replacement.ID)
}

func TestOfferService_FindOffers(t *testing.T) {
	db := setupTestDBNegotiation(t, "testdb_offer_find")
	svc, _, _ := newTestOfferService(db, config.Defaults())
	ctx := context.Background()

	reqA, err := createTestRequirement(db, "owner-1", false, 0, 1000)
	assert.NoError(t, err)
	reqB, err := createTestRequirement(db, "owner-2", false, 0, 1000)
	assert.NoError(t, err)

	_, err = svc.CreateOffer(ctx, reqA.ID, "seller-1", 100, 100)
	assert.NoError(t, err)
	_, err = svc.CreateOffer(ctx, reqA.ID, "seller-2", 95, 100)
	assert.NoError(t, err)
	_, err = svc.CreateOffer(ctx, reqB.ID, "seller-1", 90, 100)
	assert.NoError(t, err)

	byRequirement, err := svc.FindOffersByRequirement(ctx, reqA.ID)
	assert.NoError(t, err)
	assert.Len(t, byRequirement, 2)

	byUser, err := svc.FindOffersByUser(ctx, "seller-1")
	assert.NoError(t, err)
	assert.Len(t, byUser, 2)
}

func TestOfferService_SweepExpired(t *testing.T) {
	db := setupTestDBNegotiation(t, "testdb_offer_sweep")
	svc, _, _ := newTestOfferService(db, config.Defaults())
	ctx := context.Background()

	negotiable, err := createTestRequirement(db, "owner-1", true, 24, 10000)
	assert.NoError(t, err)
	fixed, err := createTestRequirement(db, "owner-2", false, 0, 10000)
	assert.NoError(t, err)

	overdueA, err := svc.CreateOffer(ctx, negotiable.ID, "seller-1", 100, 100)
	assert.NoError(t, err)
	overdueB, err := svc.CreateOffer(ctx, negotiable.ID, "seller-2", 100, 100)
	assert.NoError(t, err)
	future, err := svc.CreateOffer(ctx, negotiable.ID, "seller-3", 100, 100)
	assert.NoError(t, err)
	nonNegotiable, err := svc.CreateOffer(ctx, fixed.ID, "seller-4", 100, 100)
	assert.NoError(t, err)

	past := time.Now().UTC().Add(-time.Minute)
	assert.NoError(t, backdateOfferExpiry(db, overdueA.ID, past))
	assert.NoError(t, backdateOfferExpiry(db, overdueB.ID, past))

	swept, err := svc.SweepExpired(ctx)
	assert.NoError(t, err)
	assert.Equal(t, int64(2), swept)

	for _, id := range []string{overdueA.ID, overdueB.ID} {
		found, err := svc.FindOfferByID(ctx, id)
		assert.NoError(t, err)
		assert.Equal(t, models.OfferExpired, found.Status)
	}
	for _, id := range []string{future.ID, nonNegotiable.ID} {
		found, err := svc.FindOfferByID(ctx, id)
		assert.NoError(t, err)
		assert.Equal(t, models.OfferPending, found.Status)
	}

	// Idempotent: nothing newly expired, nothing modified
	swept, err = svc.SweepExpired(ctx)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), swept)
}
