package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/smartride/safety-alerts/internal/dispatch"
	"github.com/smartride/safety-alerts/internal/models"
	"github.com/smartride/safety-alerts/internal/notify"
	"github.com/smartride/safety-alerts/internal/repository"
)

type Handler struct {
	dispatcher *dispatch.Dispatcher
	contacts   repository.ContactRepository
	riders     repository.RiderRepository
}

func NewHandler(dispatcher *dispatch.Dispatcher, contacts repository.ContactRepository, riders repository.RiderRepository) *Handler {
	return &Handler{
		dispatcher: dispatcher,
		contacts:   contacts,
		riders:     riders,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine, auth *Auth) {
	r.GET("/health", h.health)

	// Fetched by the call provider when a voice call connects; must stay
	// publicly reachable.
	r.GET("/api/emergency/twiml", h.voicePrompt)

	rider := r.Group("/api/emergency", auth.RequireUser())
	rider.POST("/sos", h.triggerSOS)
	rider.POST("/contacts", h.addContact)
	rider.GET("/contacts", h.listContacts)
	rider.PUT("/contacts/:contactId", h.updateContact)
	rider.DELETE("/contacts/:contactId", h.deleteContact)

	admin := r.Group("/api/emergency/alerts", auth.RequireRole(RoleAdmin))
	admin.GET("/active", h.activeAlerts)
	admin.GET("/recent", h.recentAlerts)
	admin.POST("/:alertId/resolve", h.resolveAlert)
}

type sosRequest struct {
	RideID    *string  `json:"rideId"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Message   string   `json:"message"`
	AlertType *string  `json:"alertType"`
}

func (h *Handler) triggerSOS(c *gin.Context) {
	var req sosRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failJSON(c, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if req.Latitude == nil || req.Longitude == nil {
		failJSON(c, http.StatusBadRequest, "latitude and longitude are required", nil)
		return
	}

	result, err := h.dispatcher.Trigger(c.Request.Context(), callerID(c), dispatch.TriggerRequest{
		RideID:    req.RideID,
		Latitude:  *req.Latitude,
		Longitude: *req.Longitude,
		Message:   req.Message,
		AlertType: req.AlertType,
	})
	if err != nil {
		switch {
		case errors.Is(err, dispatch.ErrInvalidArgument):
			failJSON(c, http.StatusBadRequest, "failed to trigger emergency alert", err)
		case errors.Is(err, repository.ErrNotFound):
			failJSON(c, http.StatusNotFound, "failed to trigger emergency alert", err)
		default:
			failJSON(c, http.StatusInternalServerError, "failed to trigger emergency alert", err)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"alertId":        result.AlertID,
		"status":         "ALERT_TRIGGERED",
		"message":        "Emergency alert sent successfully",
		"trackingLink":   result.TrackingLink,
		"trackingExpiry": result.TrackingExpiry,
		"emailSent":      result.Outcome.EmailSent,
		"smsSent":        result.Outcome.SMSSent,
		"callInitiated":  result.Outcome.CallInitiated,
	})
}

func (h *Handler) activeAlerts(c *gin.Context) {
	alerts, err := h.dispatcher.ActiveAlerts(c.Request.Context())
	if err != nil {
		failJSON(c, http.StatusInternalServerError, "failed to list active alerts", err)
		return
	}
	c.JSON(http.StatusOK, toAlertResponses(alerts))
}

func (h *Handler) recentAlerts(c *gin.Context) {
	hours := 24
	if v := c.Query("hours"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			failJSON(c, http.StatusBadRequest, "hours must be a positive integer", err)
			return
		}
		hours = n
	}

	alerts, err := h.dispatcher.RecentAlerts(c.Request.Context(), hours)
	if err != nil {
		failJSON(c, http.StatusInternalServerError, "failed to list recent alerts", err)
		return
	}
	c.JSON(http.StatusOK, toAlertResponses(alerts))
}

func (h *Handler) resolveAlert(c *gin.Context) {
	err := h.dispatcher.Resolve(c.Request.Context(), c.Param("alertId"), callerID(c))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			failJSON(c, http.StatusNotFound, "alert not found", err)
			return
		}
		failJSON(c, http.StatusInternalServerError, "failed to resolve alert", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Alert resolved successfully"})
}

func (h *Handler) voicePrompt(c *gin.Context) {
	twiml := notify.VoicePrompt(c.Query("userName"), c.Query("location"))
	c.Data(http.StatusOK, "application/xml", []byte(twiml))
}

type contactRequest struct {
	Name         string `json:"name" binding:"required"`
	Phone        string `json:"phone" binding:"required"`
	Email        string `json:"email"`
	Relationship string `json:"relationship"`
	IsPrimary    bool   `json:"isPrimary"`
}

func (h *Handler) addContact(c *gin.Context) {
	var req contactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failJSON(c, http.StatusBadRequest, "invalid contact", err)
		return
	}

	riderID := callerID(c)
	if _, err := h.riders.FindRider(c.Request.Context(), riderID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			failJSON(c, http.StatusNotFound, "rider not found", err)
			return
		}
		failJSON(c, http.StatusInternalServerError, "failed to add contact", err)
		return
	}

	now := time.Now().UTC()
	contact := &models.EmergencyContact{
		ID:           uuid.NewString(),
		RiderID:      riderID,
		Name:         req.Name,
		Phone:        req.Phone,
		Email:        req.Email,
		Relationship: req.Relationship,
		IsPrimary:    req.IsPrimary,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := h.contacts.AddContact(c.Request.Context(), contact); err != nil {
		failJSON(c, http.StatusInternalServerError, "failed to add contact", err)
		return
	}
	c.JSON(http.StatusOK, toContactResponse(*contact))
}

func (h *Handler) listContacts(c *gin.Context) {
	contacts, err := h.contacts.ListContactsForRider(c.Request.Context(), callerID(c))
	if err != nil {
		failJSON(c, http.StatusInternalServerError, "failed to list contacts", err)
		return
	}

	out := make([]contactResponse, 0, len(contacts))
	for _, contact := range contacts {
		out = append(out, toContactResponse(contact))
	}
	c.JSON(http.StatusOK, out)
}

func (h *Handler) updateContact(c *gin.Context) {
	var req contactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		failJSON(c, http.StatusBadRequest, "invalid contact", err)
		return
	}

	contact, ok := h.ownedContact(c)
	if !ok {
		return
	}

	contact.Name = req.Name
	contact.Phone = req.Phone
	contact.Email = req.Email
	contact.Relationship = req.Relationship
	contact.IsPrimary = req.IsPrimary
	contact.UpdatedAt = time.Now().UTC()

	if err := h.contacts.UpdateContact(c.Request.Context(), contact); err != nil {
		failJSON(c, http.StatusInternalServerError, "failed to update contact", err)
		return
	}
	c.JSON(http.StatusOK, toContactResponse(*contact))
}

func (h *Handler) deleteContact(c *gin.Context) {
	contact, ok := h.ownedContact(c)
	if !ok {
		return
	}

	if err := h.contacts.DeleteContact(c.Request.Context(), contact.ID); err != nil {
		failJSON(c, http.StatusInternalServerError, "failed to delete contact", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Emergency contact deleted successfully"})
}

// ownedContact loads the contact from the path and verifies the caller owns
// it. On failure it writes the error response and reports false.
func (h *Handler) ownedContact(c *gin.Context) (*models.EmergencyContact, bool) {
	contact, err := h.contacts.GetContactByID(c.Request.Context(), c.Param("contactId"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			failJSON(c, http.StatusNotFound, "contact not found", err)
			return nil, false
		}
		failJSON(c, http.StatusInternalServerError, "failed to load contact", err)
		return nil, false
	}
	if contact.RiderID != callerID(c) {
		failJSON(c, http.StatusForbidden, "contact belongs to another rider", nil)
		return nil, false
	}
	return contact, true
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type alertResponse struct {
	ID             string     `json:"id"`
	RiderID        string     `json:"riderId"`
	RideID         *string    `json:"rideId,omitempty"`
	Latitude       float64    `json:"latitude"`
	Longitude      float64    `json:"longitude"`
	LocationLink   string     `json:"locationLink"`
	TrackingLink   string     `json:"trackingLink"`
	TrackingExpiry time.Time  `json:"trackingExpiry"`
	AlertType      string     `json:"alertType"`
	Status         string     `json:"status"`
	Message        string     `json:"message,omitempty"`
	ResolvedAt     *time.Time `json:"resolvedAt,omitempty"`
	ResolvedBy     *string    `json:"resolvedBy,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
}

func toAlertResponses(alerts []models.EmergencyAlert) []alertResponse {
	out := make([]alertResponse, 0, len(alerts))
	for _, a := range alerts {
		out = append(out, alertResponse{
			ID:             a.ID,
			RiderID:        a.RiderID,
			RideID:         a.RideID,
			Latitude:       a.Latitude,
			Longitude:      a.Longitude,
			LocationLink:   a.LocationLink,
			TrackingLink:   a.TrackingLink,
			TrackingExpiry: a.TrackingExpiry,
			AlertType:      string(a.AlertType),
			Status:         string(a.Status),
			Message:        a.Message,
			ResolvedAt:     a.ResolvedAt,
			ResolvedBy:     a.ResolvedBy,
			CreatedAt:      a.CreatedAt,
		})
	}
	return out
}

type contactResponse struct {
	ID           string `json:"id"`
	RiderID      string `json:"riderId"`
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	Email        string `json:"email,omitempty"`
	Relationship string `json:"relationship,omitempty"`
	IsPrimary    bool   `json:"isPrimary"`
}

func toContactResponse(c models.EmergencyContact) contactResponse {
	return contactResponse{
		ID:           c.ID,
		RiderID:      c.RiderID,
		Name:         c.Name,
		Phone:        c.Phone,
		Email:        c.Email,
		Relationship: c.Relationship,
		IsPrimary:    c.IsPrimary,
	}
}

func failJSON(c *gin.Context, status int, message string, err error) {
	errText := message
	if err != nil {
		errText = err.Error()
	}
	c.JSON(status, gin.H{
		"error":   errText,
		"message": message,
		"status":  "FAILED",
	})
}
