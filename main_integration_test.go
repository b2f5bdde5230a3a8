package main_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/exec"
	"syscall"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aquarioustechnology-alt/nexgpetrolube-backend-sub000/internal/auth"
	"github.com/aquarioustechnology-alt/nexgpetrolube-backend-sub000/internal/models"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	testAppBinary  = "./negotiation_test_app" // Name for the test binary
	testAppPort    = "8089"                   // Port for the test server
	testAppURL     = "http://localhost:" + testAppPort
	testDbName     = "negotiation_integration_test"
	testJwtSecret  = "integration-test-secret"
	startupTimeout = 15 * time.Second
	pingEndpoint   = testAppURL + "/v1/ping"
)

var (
	testDB *mongo.Database

	ownerID    = "owner-integration"
	sellerID   = "seller-integration"
	bidderAID  = "bidder-a-integration"
	bidderBID  = "bidder-b-integration"
	strangerID = "stranger-integration"
)

// TestMain manages the setup and teardown of the integration test environment.
func TestMain(m *testing.M) {
	defer func() {
		log.Println("Integration Test Teardown: Cleaning up test binary...")
		_ = os.Remove(testAppBinary)
	}()

	log.Println("Integration Test Setup: Building application...")
	godotenv.Load()
	buildCmd := exec.Command("go", "build", "-o", testAppBinary, ".")
	buildOutput, err := buildCmd.CombinedOutput()
	if err != nil {
		log.Printf("Failed to build application: %v\nOutput:\n%s", err, string(buildOutput))
		os.Exit(1)
	}
	log.Printf("Integration Test Setup: Build successful: %s", testAppBinary)

	if err := setupTestDatabase(); err != nil {
		log.Printf("Failed to set up test database: %v", err)
		os.Exit(1)
	}

	// --- Start API Process ---
	apiCmd := exec.Command(testAppBinary, "-m", "api")
	apiCmd.Env = append(os.Environ(),
		"API_PORT="+testAppPort,
		"MONGO_DB_NAME="+testDbName,
		"JWT_SECRET="+testJwtSecret,
		"GIN_MODE=release",
		"RATE_LIMIT_BUCKET_SIZE=1000",
		"RATE_LIMIT_REFILL_RATE=1000",
	)
	apiCmd.Stderr = os.Stderr
	apiCmd.Stdout = os.Stdout

	log.Println("Integration Test Setup: Starting API process...")
	if err := apiCmd.Start(); err != nil {
		log.Printf("Failed to start API process: %v", err)
		os.Exit(1)
	}
	log.Printf("Integration Test Setup: API process started (PID: %d)...", apiCmd.Process.Pid)

	if err := waitForServer(pingEndpoint, startupTimeout); err != nil {
		log.Printf("API process did not become ready: %v", err)
		_ = apiCmd.Process.Kill()
		os.Exit(1)
	}

	code := m.Run()

	log.Println("Integration Test Teardown: Stopping API process...")
	_ = apiCmd.Process.Signal(syscall.SIGTERM)
	_, _ = apiCmd.Process.Wait()

	os.Exit(code)
}

func setupTestDatabase() error {
	mongoURI := os.Getenv("MONGO_URI")
	if mongoURI == "" {
		return fmt.Errorf("MONGO_URI environment variable is required for integration tests")
	}
	client, err := mongo.Connect(context.Background(), options.Client().ApplyURI(mongoURI))
	if err != nil {
		return fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	testDB = client.Database(testDbName)
	for _, collection := range []string{"requirements", "offers", "counter_offers", "bids", "negotiation_history", "notifications"} {
		_ = testDB.Collection(collection).Drop(context.Background())
	}
	return nil
}

func waitForServer(url string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := http.Get(url)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(250 * time.Millisecond)
	}
	return fmt.Errorf("server at %s not ready within %s", url, timeout)
}

// seedRequirement inserts a requirement directly; the catalog subsystem that
// normally owns requirements is outside this service.
func seedRequirement(t *testing.T, negotiable bool, windowHours int, quantity float64) *models.Requirement {
	t.Helper()
	now := time.Now().UTC()
	requirement := &models.Requirement{
		ID:                     uuid.NewString(),
		UserID:                 ownerID,
		Title:                  "Transformer oil, bulk",
		Status:                 models.RequirementOpen,
		Negotiable:             negotiable,
		NegotiationWindowHours: windowHours,
		Quantity:               quantity,
		AvailableQuantity:      quantity,
		CreatedAt:              now,
		UpdatedAt:              now,
	}
	_, err := testDB.Collection("requirements").InsertOne(context.Background(), requirement)
	require.NoError(t, err)
	return requirement
}

func tokenFor(t *testing.T, userID string) string {
	t.Helper()
	token, err := auth.GenerateJWT(userID, "trader", testJwtSecret, time.Hour)
	require.NoError(t, err)
	return token
}

// doJSON performs an authenticated JSON request and returns the status and body.
func doJSON(t *testing.T, method, url, token string, payload interface{}) (int, []byte) {
	t.Helper()
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, url, body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, raw
}

func TestIntegration_Ping(t *testing.T) {
	resp, err := http.Get(pingEndpoint)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestIntegration_AuthRequired(t *testing.T) {
	status, _ := doJSON(t, http.MethodGet, testAppURL+"/v1/offer/"+uuid.NewString(), "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = doJSON(t, http.MethodGet, testAppURL+"/v1/offer/"+uuid.NewString(), "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestIntegration_OfferAcceptFlow(t *testing.T) {
	requirement := seedRequirement(t, true, 24, 1000)
	sellerToken := tokenFor(t, sellerID)
	ownerToken := tokenFor(t, ownerID)

	// Seller proposes terms
	status, body := doJSON(t, http.MethodPost, testAppURL+"/v1/requirement/"+requirement.ID+"/offer", sellerToken,
		map[string]interface{}{"price": 100.0, "quantity": 200.0})
	require.Equal(t, http.StatusCreated, status, string(body))

	var offer models.Offer
	require.NoError(t, json.Unmarshal(body, &offer))
	assert.Equal(t, models.OfferPending, offer.Status)
	require.NotNil(t, offer.ExpiresAt)

	// A stranger cannot act on it
	status, _ = doJSON(t, http.MethodPost, testAppURL+"/v1/offer/"+offer.ID+"/transition", tokenFor(t, strangerID),
		map[string]interface{}{"action": "ACCEPT"})
	assert.Equal(t, http.StatusForbidden, status)

	// Owner accepts
	status, body = doJSON(t, http.MethodPost, testAppURL+"/v1/offer/"+offer.ID+"/transition", ownerToken,
		map[string]interface{}{"action": "ACCEPT"})
	require.Equal(t, http.StatusOK, status, string(body))

	var accepted models.Offer
	require.NoError(t, json.Unmarshal(body, &accepted))
	assert.Equal(t, models.OfferAccepted, accepted.Status)

	// Accepting again hits the terminal state
	status, _ = doJSON(t, http.MethodPost, testAppURL+"/v1/offer/"+offer.ID+"/transition", ownerToken,
		map[string]interface{}{"action": "ACCEPT"})
	assert.Equal(t, http.StatusConflict, status)

	// The accept decremented the requirement's available quantity
	var req models.Requirement
	err := testDB.Collection("requirements").
		FindOne(context.Background(), map[string]interface{}{"_id": requirement.ID}).Decode(&req)
	require.NoError(t, err)
	assert.Equal(t, float64(800), req.AvailableQuantity)

	// History recorded the lifecycle
	status, body = doJSON(t, http.MethodGet, testAppURL+"/v1/history/"+offer.ID, ownerToken, nil)
	require.Equal(t, http.StatusOK, status)
	var historyResp struct {
		History []models.HistoryEntry `json:"history"`
	}
	require.NoError(t, json.Unmarshal(body, &historyResp))
	assert.Len(t, historyResp.History, 2)
}

func TestIntegration_CounterOfferFlow(t *testing.T) {
	requirement := seedRequirement(t, true, 24, 1000)
	sellerToken := tokenFor(t, sellerID)
	ownerToken := tokenFor(t, ownerID)

	status, body := doJSON(t, http.MethodPost, testAppURL+"/v1/requirement/"+requirement.ID+"/offer", sellerToken,
		map[string]interface{}{"price": 100.0, "quantity": 200.0})
	require.Equal(t, http.StatusCreated, status, string(body))
	var offer models.Offer
	require.NoError(t, json.Unmarshal(body, &offer))

	// Owner counters at a lower price
	status, body = doJSON(t, http.MethodPost, testAppURL+"/v1/offer/"+offer.ID+"/counter", ownerToken,
		map[string]interface{}{"price": 90.0, "quantity": 200.0})
	require.Equal(t, http.StatusCreated, status, string(body))
	var counter models.CounterOffer
	require.NoError(t, json.Unmarshal(body, &counter))
	assert.Equal(t, 1, counter.Number)
	require.NotNil(t, counter.ExpiresAt)
	assert.Equal(t, offer.ExpiresAt.Unix(), counter.ExpiresAt.Unix())

	// The author cannot accept their own counter-offer
	status, _ = doJSON(t, http.MethodPost, testAppURL+"/v1/counteroffer/"+counter.ID+"/accept", ownerToken, nil)
	assert.Equal(t, http.StatusForbidden, status)

	// Seller accepts; the root offer carries the counter terms
	status, body = doJSON(t, http.MethodPost, testAppURL+"/v1/counteroffer/"+counter.ID+"/accept", sellerToken, nil)
	require.Equal(t, http.StatusOK, status, string(body))
	var resolved models.Offer
	require.NoError(t, json.Unmarshal(body, &resolved))
	assert.Equal(t, models.OfferAccepted, resolved.Status)
	assert.Equal(t, float64(90), resolved.Price)
	require.NotNil(t, resolved.OriginalPrice)
	assert.Equal(t, float64(100), *resolved.OriginalPrice)
}

func TestIntegration_BidAllocationFlow(t *testing.T) {
	requirement := seedRequirement(t, false, 0, 1000)
	ownerToken := tokenFor(t, ownerID)

	status, body := doJSON(t, http.MethodPost, testAppURL+"/v1/requirement/"+requirement.ID+"/bid", tokenFor(t, bidderAID),
		map[string]interface{}{"price": 100.0, "quantity": 1000.0})
	require.Equal(t, http.StatusCreated, status, string(body))
	var bidA models.Bid
	require.NoError(t, json.Unmarshal(body, &bidA))

	status, body = doJSON(t, http.MethodPost, testAppURL+"/v1/requirement/"+requirement.ID+"/bid", tokenFor(t, bidderBID),
		map[string]interface{}{"price": 95.0, "quantity": 800.0})
	require.Equal(t, http.StatusCreated, status, string(body))
	var bidB models.Bid
	require.NoError(t, json.Unmarshal(body, &bidB))

	// A plan that does not sum to 100 is rejected whole
	status, _ = doJSON(t, http.MethodPost, testAppURL+"/v1/requirement/"+requirement.ID+"/allocate", ownerToken,
		map[string]interface{}{"allocations": map[string]float64{bidA.ID: 60, bidB.ID: 39}})
	assert.Equal(t, http.StatusBadRequest, status)

	status, body = doJSON(t, http.MethodPost, testAppURL+"/v1/requirement/"+requirement.ID+"/allocate", ownerToken,
		map[string]interface{}{"allocations": map[string]float64{bidA.ID: 60, bidB.ID: 40}})
	require.Equal(t, http.StatusOK, status, string(body))

	var allocResp struct {
		Bids []models.Bid `json:"bids"`
	}
	require.NoError(t, json.Unmarshal(body, &allocResp))
	require.Len(t, allocResp.Bids, 2)
	totals := map[string]float64{}
	for _, b := range allocResp.Bids {
		assert.Equal(t, models.BidWon, b.Status)
		totals[b.ID] = b.Quantity
	}
	assert.Equal(t, float64(600), totals[bidA.ID])
	assert.Equal(t, float64(400), totals[bidB.ID])

	// The requirement closed; late bids are turned away
	status, _ = doJSON(t, http.MethodPost, testAppURL+"/v1/requirement/"+requirement.ID+"/bid", tokenFor(t, strangerID),
		map[string]interface{}{"price": 110.0, "quantity": 100.0})
	assert.Equal(t, http.StatusConflict, status)
}
