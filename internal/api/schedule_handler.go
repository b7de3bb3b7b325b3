package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cindy0891101/nordictrip.fi.sw/internal/core"
	"github.com/cindy0891101/nordictrip.fi.sw/internal/models"
)

// ScheduleHandler handles API endpoints related to the day-by-day schedule.
type ScheduleHandler struct {
	scheduleService core.ScheduleService
	logger          *zap.Logger
	now             func() time.Time
}

// NewScheduleHandler creates a new ScheduleHandler.
func NewScheduleHandler(ss core.ScheduleService, logger *zap.Logger) *ScheduleHandler {
	return &ScheduleHandler{scheduleService: ss, logger: logger, now: time.Now}
}

// GetSchedule handles GET /trip/schedule
func (h *ScheduleHandler) GetSchedule(c *gin.Context) {
	schedule, err := h.scheduleService.Get(c.Request.Context())
	if err != nil {
		mapTripErrorToStatus(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, ScheduleResponse{
		Schedule:  schedule,
		Dates:     schedule.Dates(),
		Countdown: schedule.CountdownFrom(h.now()),
	})
}

// AddDate handles POST /trip/schedule/dates
func (h *ScheduleHandler) AddDate(c *gin.Context) {
	var req models.AddDateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request payload", Details: err.Error()})
		return
	}
	if err := h.scheduleService.AddDate(c.Request.Context(), req.Date); err != nil {
		mapTripErrorToStatus(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, SuccessResponse{Message: "Date added", Data: gin.H{"date": req.Date}})
}

// RenameDate handles PUT /trip/schedule/dates/:date
func (h *ScheduleHandler) RenameDate(c *gin.Context) {
	var req models.RenameDateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request payload", Details: err.Error()})
		return
	}
	if err := h.scheduleService.RenameDate(c.Request.Context(), c.Param("date"), req.Date); err != nil {
		mapTripErrorToStatus(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "Date renamed", Data: gin.H{"date": req.Date}})
}

// DeleteDate handles DELETE /trip/schedule/dates/:date
func (h *ScheduleHandler) DeleteDate(c *gin.Context) {
	if err := h.scheduleService.DeleteDate(c.Request.Context(), c.Param("date")); err != nil {
		mapTripErrorToStatus(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// UpdateMetadata handles PUT /trip/schedule/dates/:date/metadata
func (h *ScheduleHandler) UpdateMetadata(c *gin.Context) {
	var req models.DayMetadata
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request payload", Details: err.Error()})
		return
	}
	if err := h.scheduleService.UpdateMetadata(c.Request.Context(), c.Param("date"), req); err != nil {
		mapTripErrorToStatus(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "Metadata updated"})
}

// UpsertItem handles PUT /trip/schedule/dates/:date/items[/:itemId]. Without an id a new
// item is created.
func (h *ScheduleHandler) UpsertItem(c *gin.Context) {
	var req models.ScheduleItem
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request payload", Details: err.Error()})
		return
	}
	if itemID := c.Param("itemId"); itemID != "" {
		req.ID = itemID
	}
	item, err := h.scheduleService.UpsertItem(c.Request.Context(), c.Param("date"), req)
	if err != nil {
		mapTripErrorToStatus(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, item)
}

// DeleteItem handles DELETE /trip/schedule/dates/:date/items/:itemId
func (h *ScheduleHandler) DeleteItem(c *gin.Context) {
	if err := h.scheduleService.DeleteItem(c.Request.Context(), c.Param("date"), c.Param("itemId")); err != nil {
		mapTripErrorToStatus(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ShiftTimes handles POST /trip/schedule/dates/:date/shift
func (h *ScheduleHandler) ShiftTimes(c *gin.Context) {
	var req models.ShiftTimesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request payload", Details: err.Error()})
		return
	}
	day, err := h.scheduleService.ShiftTimes(c.Request.Context(), c.Param("date"), req.Minutes)
	if err != nil {
		mapTripErrorToStatus(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, day)
}
