package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aquarioustechnology-alt/nexgpetrolube-backend-sub000/internal/api/middleware"
	"github.com/aquarioustechnology-alt/nexgpetrolube-backend-sub000/internal/gateway"
	"github.com/aquarioustechnology-alt/nexgpetrolube-backend-sub000/internal/models"
	"github.com/aquarioustechnology-alt/nexgpetrolube-backend-sub000/internal/services"
)

// NegotiationHandler exposes the negotiation core's entry points to HTTP callers.
// All authorization beyond "is a valid actor" lives in the services; the handler
// only extracts the actor, binds inputs, and maps error kinds to status codes.
type NegotiationHandler struct {
	offerService        services.IOfferService
	counterOfferService services.ICounterOfferService
	bidService          services.IBidService
	historyService      services.IHistoryService
}

// NewNegotiationHandler creates a new NegotiationHandler.
func NewNegotiationHandler(
	offerService services.IOfferService,
	counterOfferService services.ICounterOfferService,
	bidService services.IBidService,
	historyService services.IHistoryService,
) *NegotiationHandler {
	return &NegotiationHandler{
		offerService:        offerService,
		counterOfferService: counterOfferService,
		bidService:          bidService,
		historyService:      historyService,
	}
}

type termsRequest struct {
	Price    float64 `json:"price" binding:"required"`
	Quantity float64 `json:"quantity" binding:"required"`
}

type transitionRequest struct {
	Action string `json:"action" binding:"required"`
	Notes  string `json:"notes"`
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

type allocationRequest struct {
	Allocations       map[string]float64 `json:"allocations" binding:"required"`
	QuantityOverrides map[string]float64 `json:"quantity_overrides"`
}

// CreateOffer handles POST /v1/requirement/:id/offer
func (h *NegotiationHandler) CreateOffer(c *gin.Context) {
	var req termsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	offer, err := h.offerService.CreateOffer(c.Request.Context(), c.Param("id"), middleware.ActorID(c), req.Price, req.Quantity)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, offer)
}

// ListOffers handles GET /v1/requirement/:id/offer
func (h *NegotiationHandler) ListOffers(c *gin.Context) {
	offers, err := h.offerService.FindOffersByRequirement(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"offers": offers})
}

// GetOffer handles GET /v1/offer/:id
func (h *NegotiationHandler) GetOffer(c *gin.Context) {
	offer, err := h.offerService.FindOfferByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, offer)
}

// TransitionOffer handles POST /v1/offer/:id/transition
func (h *NegotiationHandler) TransitionOffer(c *gin.Context) {
	var req transitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	offer, err := h.offerService.TransitionOffer(c.Request.Context(), c.Param("id"), middleware.ActorID(c), models.OfferAction(req.Action), req.Notes)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, offer)
}

// DeleteOffer handles DELETE /v1/offer/:id
func (h *NegotiationHandler) DeleteOffer(c *gin.Context) {
	if err := h.offerService.DeleteOffer(c.Request.Context(), c.Param("id"), middleware.ActorID(c)); err != nil {
		writeServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// CreateCounterOffer handles POST /v1/offer/:id/counter
func (h *NegotiationHandler) CreateCounterOffer(c *gin.Context) {
	var req termsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	counter, err := h.counterOfferService.CreateCounterOffer(c.Request.Context(), c.Param("id"), middleware.ActorID(c), req.Price, req.Quantity)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, counter)
}

// ListCounterOffers handles GET /v1/offer/:id/counter
func (h *NegotiationHandler) ListCounterOffers(c *gin.Context) {
	counters, err := h.counterOfferService.FindCounterOffersByOffer(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"counter_offers": counters})
}

// AcceptCounterOffer handles POST /v1/counteroffer/:id/accept
func (h *NegotiationHandler) AcceptCounterOffer(c *gin.Context) {
	offer, err := h.counterOfferService.AcceptCounterOffer(c.Request.Context(), c.Param("id"), middleware.ActorID(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, offer)
}

// RejectCounterOffer handles POST /v1/counteroffer/:id/reject
func (h *NegotiationHandler) RejectCounterOffer(c *gin.Context) {
	var req rejectRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	if err := h.counterOfferService.RejectCounterOffer(c.Request.Context(), c.Param("id"), middleware.ActorID(c), req.Reason); err != nil {
		writeServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// UpdateCounterOffer handles PATCH /v1/counteroffer/:id
func (h *NegotiationHandler) UpdateCounterOffer(c *gin.Context) {
	var req termsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	counter, err := h.counterOfferService.UpdateCounterOffer(c.Request.Context(), c.Param("id"), middleware.ActorID(c), req.Price, req.Quantity)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, counter)
}

// DeleteCounterOffer handles DELETE /v1/counteroffer/:id
func (h *NegotiationHandler) DeleteCounterOffer(c *gin.Context) {
	if err := h.counterOfferService.DeleteCounterOffer(c.Request.Context(), c.Param("id"), middleware.ActorID(c)); err != nil {
		writeServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// PlaceBid handles POST /v1/requirement/:id/bid
func (h *NegotiationHandler) PlaceBid(c *gin.Context) {
	var req termsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	bid, err := h.bidService.PlaceBid(c.Request.Context(), c.Param("id"), middleware.ActorID(c), req.Price, req.Quantity)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, bid)
}

// ListBids handles GET /v1/requirement/:id/bid
func (h *NegotiationHandler) ListBids(c *gin.Context) {
	bids, err := h.bidService.FindBidsByRequirement(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bids": bids})
}

// AllocateBids handles POST /v1/requirement/:id/allocate
func (h *NegotiationHandler) AllocateBids(c *gin.Context) {
	var req allocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	bids, err := h.bidService.AllocateBids(c.Request.Context(), c.Param("id"), middleware.ActorID(c), req.Allocations, req.QuantityOverrides)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bids": bids})
}

// GetHistory handles GET /v1/history/:entity_id
func (h *NegotiationHandler) GetHistory(c *gin.Context) {
	entries, err := h.historyService.FindByEntity(c.Request.Context(), c.Param("entity_id"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": entries})
}

// writeServiceError maps the negotiation core's error kinds to HTTP status codes.
func writeServiceError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrOfferNotFound),
		errors.Is(err, services.ErrCounterOfferNotFound),
		errors.Is(err, services.ErrBidNotFound),
		errors.Is(err, gateway.ErrRequirementNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, services.ErrInvalidArgument),
		errors.Is(err, gateway.ErrInsufficientQuantity):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrExpired):
		status = http.StatusGone
	case errors.Is(err, services.ErrInvalidState),
		errors.Is(err, services.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, services.ErrCounterOfferLimit):
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
