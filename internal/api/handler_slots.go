package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"laundry-aura-backend/internal/schedule"
)

type scheduleSlotRequest struct {
	identity
	MachineID int       `json:"machineId" binding:"required"`
	StartTime time.Time `json:"startTime" binding:"required"`
	EndTime   time.Time `json:"endTime" binding:"required"`
}

// ScheduleSlot handles POST /api/slots. The scheduler itself does not
// self-validate overlaps, so the availability check happens here first.
func (h *Handler) ScheduleSlot(c *gin.Context) {
	var req scheduleSlotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user, ok := h.resolveUser(c, req.identity)
	if !ok {
		return
	}
	machine, err := h.registry.Machine(user.Residence, req.MachineID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if !req.EndTime.After(req.StartTime) {
		c.JSON(http.StatusBadRequest, gin.H{"error": schedule.ErrInvalidInterval.Error()})
		return
	}

	ctx := c.Request.Context()
	available, err := h.scheduler.IsAvailable(ctx, user.Residence, req.MachineID, req.StartTime, req.EndTime)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if !available {
		c.JSON(http.StatusConflict, gin.H{"error": "slot conflicts with an existing reservation"})
		return
	}

	slot, err := h.scheduler.Schedule(ctx, schedule.Request{
		MachineID:   req.MachineID,
		MachineType: string(machine.Type),
		Residence:   user.Residence,
		UserID:      user.Name,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
	}, time.Now().UTC())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, slot)
}

// CancelSlot handles DELETE /api/slots/:slot_id.
func (h *Handler) CancelSlot(c *gin.Context) {
	var req identity
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user, ok := h.resolveUser(c, req)
	if !ok {
		return
	}

	err := h.scheduler.Cancel(c.Request.Context(), c.Param("slot_id"), user.Name)
	switch {
	case err == nil:
		c.Status(http.StatusNoContent)
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "slot not found"})
	case errors.Is(err, schedule.ErrNotSlotOwner):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// GetSlots handles GET /api/slots?user=X or ?residence=X&machine_id=N.
func (h *Handler) GetSlots(c *gin.Context) {
	ctx := c.Request.Context()
	if user := c.Query("user"); user != "" {
		slots, err := h.store.SlotsForUser(ctx, user)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, slots)
		return
	}

	residence := c.Query("residence")
	machineID, err := strconv.Atoi(c.Query("machine_id"))
	if residence == "" || err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user or residence+machine_id is required"})
		return
	}
	slots, err := h.store.SlotsForMachine(ctx, residence, machineID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, slots)
}

// GetSlotAvailability handles
// GET /api/slots/availability?residence=X&machine_id=N&start=...&end=...
// with RFC3339 timestamps. Conflicts are an availability answer here, not
// an error.
func (h *Handler) GetSlotAvailability(c *gin.Context) {
	residence := c.Query("residence")
	machineID, err := strconv.Atoi(c.Query("machine_id"))
	if residence == "" || err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "residence and machine_id are required"})
		return
	}
	start, err := time.Parse(time.RFC3339, c.Query("start"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid 'start' timestamp format. Use RFC3339."})
		return
	}
	end, err := time.Parse(time.RFC3339, c.Query("end"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid 'end' timestamp format. Use RFC3339."})
		return
	}
	if _, err := h.registry.Machine(residence, machineID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	available, err := h.scheduler.IsAvailable(c.Request.Context(), residence, machineID, start, end)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"available": available})
}
