package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/aquarioustechnology-alt/nexgpetrolube-backend-sub000/internal/api/handlers"
	"github.com/aquarioustechnology-alt/nexgpetrolube-backend-sub000/internal/api/middleware"
	"github.com/aquarioustechnology-alt/nexgpetrolube-backend-sub000/internal/config"
	"github.com/aquarioustechnology-alt/nexgpetrolube-backend-sub000/internal/gateway"
	"github.com/aquarioustechnology-alt/nexgpetrolube-backend-sub000/internal/notify"
	"github.com/aquarioustechnology-alt/nexgpetrolube-backend-sub000/internal/services"
)

// SetupRouter configures and returns the main Gin engine with the negotiation
// service graph wired in.
func SetupRouter(cfg *config.Config, db *mongo.Database, rdb *redis.Client) *gin.Engine {
	requirementGateway := gateway.NewRequirementGateway(db)
	historyService := services.NewHistoryService(db)

	// Notifications persist for the in-product feed and enqueue for delivery.
	notifier := notify.NewCompositeNotifier(
		notify.NewMongoNotifier(db),
		notify.NewRedisNotifier(rdb, cfg),
	)

	offerService := services.NewOfferService(db, cfg, requirementGateway, historyService, notifier)
	counterOfferService := services.NewCounterOfferService(db, cfg, requirementGateway, historyService, notifier)
	bidService := services.NewBidService(db, cfg, requirementGateway, historyService, notifier)

	r := gin.Default()

	rateLimiter := middleware.NewRateLimiterMiddleware(cfg)

	// Apply global middleware first (order matters)
	r.Use(middleware.CORSMiddleware())
	r.Use(rateLimiter.Limit())

	negotiationHandler := handlers.NewNegotiationHandler(offerService, counterOfferService, bidService, historyService)

	v1 := r.Group("/v1")
	{
		v1.GET("/ping", func(c *gin.Context) {
			c.String(http.StatusOK, "pong")
		})

		// Every negotiation operation requires an authenticated actor.
		authRequired := v1.Group("/")
		authRequired.Use(middleware.AuthMiddleware(cfg.JwtSecret))
		{
			authRequired.POST("/requirement/:id/offer", negotiationHandler.CreateOffer)
			authRequired.GET("/requirement/:id/offer", negotiationHandler.ListOffers)
			authRequired.POST("/requirement/:id/bid", negotiationHandler.PlaceBid)
			authRequired.GET("/requirement/:id/bid", negotiationHandler.ListBids)
			authRequired.POST("/requirement/:id/allocate", negotiationHandler.AllocateBids)

			authRequired.GET("/offer/:id", negotiationHandler.GetOffer)
			authRequired.POST("/offer/:id/transition", negotiationHandler.TransitionOffer)
			authRequired.DELETE("/offer/:id", negotiationHandler.DeleteOffer)
			authRequired.POST("/offer/:id/counter", negotiationHandler.CreateCounterOffer)
			authRequired.GET("/offer/:id/counter", negotiationHandler.ListCounterOffers)

			authRequired.POST("/counteroffer/:id/accept", negotiationHandler.AcceptCounterOffer)
			authRequired.POST("/counteroffer/:id/reject", negotiationHandler.RejectCounterOffer)
			authRequired.PATCH("/counteroffer/:id", negotiationHandler.UpdateCounterOffer)
			authRequired.DELETE("/counteroffer/:id", negotiationHandler.DeleteCounterOffer)

			authRequired.GET("/history/:entity_id", negotiationHandler.GetHistory)
		}
	}

	return r
}
