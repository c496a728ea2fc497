package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"ani-canvas-backend/internal/gallery"
	"ani-canvas-backend/internal/middleware"
	"ani-canvas-backend/internal/models"
	"ani-canvas-backend/internal/realtime"
)

// WebhooksHandler manages a gallery's chat-webhook destinations. All routes
// operate on the authenticated owner's gallery.
type WebhooksHandler struct {
	galleryService *gallery.Service
	hub            *realtime.Hub
}

func NewWebhooksHandler(galleryService *gallery.Service, hub *realtime.Hub) *WebhooksHandler {
	return &WebhooksHandler{galleryService: galleryService, hub: hub}
}

func (h *WebhooksHandler) List(c *gin.Context) {
	galleryID := c.GetString(middleware.UserIDKey)

	destinations, err := h.galleryService.ListDestinations(galleryID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to list webhook destinations", Message: err.Error()})
		return
	}

	current, err := h.galleryService.CurrentDestination(galleryID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to load current destination", Message: err.Error()})
		return
	}

	c.JSON(http.StatusOK, models.WebhookDestinationsResponse{
		Destinations: destinations,
		Current:      current,
	})
}

func (h *WebhooksHandler) Add(c *gin.Context) {
	galleryID := c.GetString(middleware.UserIDKey)

	var req models.WebhookDestinationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid request", Message: err.Error()})
		return
	}

	destination := models.WebhookDestination{
		Channel: req.Channel,
		Token:   req.Token,
		Name:    req.Name,
	}
	if err := h.galleryService.AddDestination(galleryID, destination); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to add webhook destination", Message: err.Error()})
		return
	}

	c.JSON(http.StatusOK, destination)
}

// Events streams destination list changes over a websocket.
func (h *WebhooksHandler) Events(c *gin.Context) {
	galleryID := c.GetString(middleware.UserIDKey)

	events, cancel := h.galleryService.SubscribeDestinations(galleryID)
	h.hub.StreamWS(c.Writer, c.Request, nil, events, cancel)
}

// CurrentEvents streams changes to the selected destination.
func (h *WebhooksHandler) CurrentEvents(c *gin.Context) {
	galleryID := c.GetString(middleware.UserIDKey)

	events, cancel := h.galleryService.SubscribeCurrent(galleryID)
	h.hub.StreamWS(c.Writer, c.Request, nil, events, cancel)
}

func (h *WebhooksHandler) Remove(c *gin.Context) {
	galleryID := c.GetString(middleware.UserIDKey)
	channel := c.Param("channel")

	if err := h.galleryService.RemoveDestination(galleryID, channel); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to remove webhook destination", Message: err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "removed"})
}

func (h *WebhooksHandler) SetCurrent(c *gin.Context) {
	galleryID := c.GetString(middleware.UserIDKey)

	var req models.WebhookDestinationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, models.ErrorResponse{Error: "invalid request", Message: err.Error()})
		return
	}

	destination := models.WebhookDestination{
		Channel: req.Channel,
		Token:   req.Token,
		Name:    req.Name,
	}
	if err := h.galleryService.SetCurrentDestination(galleryID, destination); err != nil {
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{Error: "failed to set current destination", Message: err.Error()})
		return
	}

	c.JSON(http.StatusOK, destination)
}
