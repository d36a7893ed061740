package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/azamatb/parcelhub/internal/domain"
	"github.com/azamatb/parcelhub/internal/log"
	"github.com/azamatb/parcelhub/internal/metrics"
)

type createPickupReq struct {
	LabelIDs []string              `json:"label_ids" binding:"required,min=1"`
	Contact  domain.ContactDetails `json:"contact_details" binding:"required"`
	Notes    string                `json:"pickup_notes"`
	Window   domain.PickupWindow   `json:"pickup_window" binding:"required"`
	Address  domain.PickupAddress  `json:"pickup_address" binding:"required"`
}

// CreatePickup godoc
// @Summary Schedule a new pickup
// @Tags pickups
// @Accept json
// @Produce json
// @Param payload body createPickupReq true "pickup"
// @Success 201 {object} domain.Pickup
// @Failure 400 {object} map[string]string
// @Router /pickups [post]
func (h *Handler) CreatePickup(c *gin.Context) {
	var in createPickupReq
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload: " + err.Error()})
		return
	}

	// The id is generated up front so the notification job can reference it
	// before the insert lands. A scheduling failure is logged, not fatal:
	// the pickup is still created, just without a job handle.
	pickupID := domain.NewPickupID()
	jobID, err := h.Scheduler.ScheduleNotification(c.Request.Context(), pickupID, in.Window.StartAt.UTC())
	if err != nil {
		log.S().Errorw("notification scheduling failed", "pickup_id", pickupID, "error", err)
		jobID = ""
	}

	p := &domain.Pickup{
		PickupID:          pickupID,
		LabelIDs:          in.LabelIDs,
		Contact:           in.Contact,
		Notes:             in.Notes,
		Window:            in.Window,
		Address:           in.Address,
		NotificationJobID: jobID,
	}
	if err := h.Store.CreatePickup(c.Request.Context(), p); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save failed"})
		return
	}
	metrics.PickupsScheduled.Inc()

	c.JSON(http.StatusCreated, p)
}

// ListPickups godoc
// @Summary List pickups with pagination
// @Tags pickups
// @Produce json
// @Param page query int false "page (1-indexed)"
// @Param items_per_page query int false "page size"
// @Success 200 {object} map[string]any
// @Router /pickups [get]
func (h *Handler) ListPickups(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("items_per_page", "10"))
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 10
	}

	pickups, total, err := h.Store.ListPickups(c.Request.Context(), page, perPage)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	if pickups == nil {
		pickups = []domain.Pickup{}
	}
	c.JSON(http.StatusOK, gin.H{
		"data":           pickups,
		"total_count":    total,
		"page":           page,
		"items_per_page": perPage,
		"has_more":       int64((page-1)*perPage+len(pickups)) < total,
	})
}

// GetPickup godoc
// @Summary Get a pickup by id
// @Tags pickups
// @Produce json
// @Param id path string true "pickup id"
// @Success 200 {object} domain.Pickup
// @Failure 404 {object} map[string]string
// @Router /pickups/{id} [get]
func (h *Handler) GetPickup(c *gin.Context) {
	p, err := h.Store.FindPickup(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "lookup failed"})
		return
	}
	if p == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "pickup not found"})
		return
	}
	c.JSON(http.StatusOK, p)
}

// DeletePickup godoc
// @Summary Cancel a scheduled pickup
// @Tags pickups
// @Produce json
// @Param id path string true "pickup id"
// @Success 200 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /pickups/{id} [delete]
func (h *Handler) DeletePickup(c *gin.Context) {
	p, err := h.Store.CancelPickup(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "cancel failed"})
		return
	}
	if p == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "pickup not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "pickup cancelled"})
}
