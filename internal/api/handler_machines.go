package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"laundry-aura-backend/internal/gamify"
	"laundry-aura-backend/internal/laundry"
	"laundry-aura-backend/internal/model"
)

// GetMachines handles GET /api/machines?residence=X.
func (h *Handler) GetMachines(c *gin.Context) {
	residence := c.Query("residence")
	machines, err := h.registry.Snapshot(residence)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "unknown residence"})
		return
	}
	c.JSON(http.StatusOK, machines)
}

func machineParam(c *gin.Context) (int, bool) {
	id, err := strconv.Atoi(c.Param("machine_id"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid machine ID"})
		return 0, false
	}
	return id, true
}

type startCycleRequest struct {
	identity
	DurationMinutes int `json:"durationMinutes" binding:"required"`
}

// StartCycle handles POST /api/machines/:machine_id/start.
//
// The delay prediction is obtained before touching the registry and
// outside any lock; if it fails internally the client degrades to its
// heuristic, so machine start never blocks on the AI collaborator.
func (h *Handler) StartCycle(c *gin.Context) {
	machineID, ok := machineParam(c)
	if !ok {
		return
	}
	var req startCycleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user, ok := h.resolveUser(c, req.identity)
	if !ok {
		return
	}

	pred := h.ai.PredictDelay(c.Request.Context(), user.DelayHistory, req.DurationMinutes)

	occupant := laundry.UserRef{Name: user.Name, Residence: user.Residence}
	err := h.registry.StartCycle(user.Residence, machineID, occupant,
		user.Role == gamify.RoleAdmin, req.DurationMinutes, pred.DelayMinutes, time.Now().UTC())
	switch {
	case err == nil:
	case errors.Is(err, laundry.ErrAdminCannotStart),
		errors.Is(err, laundry.ErrInvalidDuration):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case errors.Is(err, laundry.ErrMachineNotFree):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	default:
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	// Starting a cycle consumes the user's queue turn, if they had one.
	h.queues.Leave(user.Residence, machineID, user.Name)

	machine, _ := h.registry.Machine(user.Residence, machineID)
	h.notifier.Notify(user.Name, model.TypeCycleAlert, "Cycle Started",
		pred.Message, model.PriorityLow)

	c.JSON(http.StatusOK, gin.H{
		"machine":               machine,
		"predictedDelayMinutes": pred.DelayMinutes,
		"reminderMessage":       pred.Message,
	})
}

// CollectLaundry handles POST /api/machines/:machine_id/collect.
func (h *Handler) CollectLaundry(c *gin.Context) {
	machineID, ok := machineParam(c)
	if !ok {
		return
	}
	var req identity
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user, ok := h.resolveUser(c, req)
	if !ok {
		return
	}

	caller := laundry.UserRef{Name: user.Name, Residence: user.Residence}
	delay, err := h.registry.Collect(user.Residence, machineID, caller, time.Now().UTC())
	switch {
	case err == nil:
	case errors.Is(err, laundry.ErrMachineNotIdle), errors.Is(err, laundry.ErrNotOccupant):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	default:
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	result, err := h.ledger.RecordCollection(user.Name, delay)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	for _, b := range result.NewBadges {
		h.notifier.Notify(user.Name, model.TypeCycleAlert, "New Badge Earned",
			fmt.Sprintf("%s %s — %s", b.Icon, b.Name, b.Description), model.PriorityLow)
	}

	// The machine is free again; tell the queue head.
	h.queues.NotifyNext(user.Residence, machineID)

	updated, _ := h.ledger.User(user.Name)
	c.JSON(http.StatusOK, gin.H{
		"result": result,
		"user":   updated,
	})
}

type forgottenRequest struct {
	identity
	ForgottenUser string `json:"forgottenUser" binding:"required"`
}

// ReportForgotten handles POST /api/machines/:machine_id/forgotten: a
// high-priority nudge to the forgetful occupant, plus a heads-up to the
// queue head if anyone is waiting.
func (h *Handler) ReportForgotten(c *gin.Context) {
	machineID, ok := machineParam(c)
	if !ok {
		return
	}
	var req forgottenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user, ok := h.resolveUser(c, req.identity)
	if !ok {
		return
	}

	h.notifier.Notify(req.ForgottenUser, model.TypeForgottenLaundry, "Laundry Forgotten!",
		fmt.Sprintf("You forgot to collect your laundry from machine %d. Please collect it soon!", machineID),
		model.PriorityHigh)

	if head, found := h.queues.Head(user.Residence, machineID); found {
		h.notifier.Notify(head.UserID, model.TypeForgottenLaundry, "Machine Delayed",
			fmt.Sprintf("Machine %d is delayed due to forgotten laundry. We'll notify you when it's available.", machineID),
			model.PriorityMedium)
	}

	c.JSON(http.StatusOK, gin.H{"notified": req.ForgottenUser})
}

// JoinQueue handles POST /api/machines/:machine_id/queue.
func (h *Handler) JoinQueue(c *gin.Context) {
	machineID, ok := machineParam(c)
	if !ok {
		return
	}
	var req identity
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user, ok := h.resolveUser(c, req)
	if !ok {
		return
	}
	if _, err := h.registry.Machine(user.Residence, machineID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	entry := h.queues.Join(user.Residence, machineID, laundry.UserRef{Name: user.Name, Residence: user.Residence})
	c.JSON(http.StatusOK, entry)
}

// LeaveQueue handles DELETE /api/machines/:machine_id/queue.
func (h *Handler) LeaveQueue(c *gin.Context) {
	machineID, ok := machineParam(c)
	if !ok {
		return
	}
	var req identity
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user, ok := h.resolveUser(c, req)
	if !ok {
		return
	}

	h.queues.Leave(user.Residence, machineID, user.Name)
	c.Status(http.StatusNoContent)
}

// GetQueue handles GET /api/machines/:machine_id/queue?residence=X.
func (h *Handler) GetQueue(c *gin.Context) {
	machineID, ok := machineParam(c)
	if !ok {
		return
	}
	residence := c.Query("residence")
	if _, err := h.registry.Snapshot(residence); err != nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "unknown residence"})
		return
	}
	c.JSON(http.StatusOK, h.queues.Queue(residence, machineID))
}
