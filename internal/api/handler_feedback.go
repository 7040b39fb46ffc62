package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"laundry-aura-backend/internal/gamify"
	"laundry-aura-backend/internal/model"
)

type submitFeedbackRequest struct {
	identity
	MachineID int      `json:"machineId" binding:"required"`
	Rating    int      `json:"rating" binding:"required"`
	Condition string   `json:"condition" binding:"required"`
	Issues    []string `json:"issues"`
	Comments  string   `json:"comments"`
}

func validCondition(c string) bool {
	switch c {
	case model.ConditionExcellent, model.ConditionGood, model.ConditionFair,
		model.ConditionPoor, model.ConditionBroken:
		return true
	}
	return false
}

// SubmitFeedback handles POST /api/feedback. Low ratings and broken
// machines escalate straight to the admin inbox.
func (h *Handler) SubmitFeedback(c *gin.Context) {
	var req submitFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user, ok := h.resolveUser(c, req.identity)
	if !ok {
		return
	}
	if req.Rating < 1 || req.Rating > 5 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "rating must be between 1 and 5"})
		return
	}
	if !validCondition(req.Condition) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown machine condition"})
		return
	}
	if _, err := h.registry.Machine(user.Residence, req.MachineID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	fb := model.MachineFeedback{
		ID:        uuid.NewString(),
		MachineID: req.MachineID,
		Residence: user.Residence,
		UserID:    user.Name,
		Rating:    req.Rating,
		Condition: req.Condition,
		Issues:    req.Issues,
		Comments:  req.Comments,
		Timestamp: time.Now().UTC(),
	}
	if err := h.store.CreateFeedback(c.Request.Context(), &fb); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if fb.Rating <= 2 || fb.Condition == model.ConditionBroken {
		h.notifier.Notify(gamify.RoleAdmin, model.TypeFeedbackRequest, "Machine Needs Attention",
			fmt.Sprintf("Machine %d in %s was reported %s (%d stars) by %s.",
				fb.MachineID, fb.Residence, fb.Condition, fb.Rating, fb.UserID),
			model.PriorityHigh)
	}
	h.notifier.Notify(user.Name, model.TypeFeedbackRequest, "Thanks for the Feedback",
		fmt.Sprintf("Your report for machine %d was recorded.", fb.MachineID),
		model.PriorityLow)

	c.JSON(http.StatusCreated, fb)
}

// GetFeedback handles GET /api/feedback?residence=X.
func (h *Handler) GetFeedback(c *gin.Context) {
	residence := c.Query("residence")
	if residence == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "residence is required"})
		return
	}
	reports, err := h.store.Feedback(c.Request.Context(), residence)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, reports)
}

// ResolveFeedback handles POST /api/feedback/:feedback_id/resolve.
// Admin only.
func (h *Handler) ResolveFeedback(c *gin.Context) {
	var req identity
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user, ok := h.resolveUser(c, req)
	if !ok {
		return
	}
	if user.Role != gamify.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "only the admin can resolve feedback"})
		return
	}

	err := h.store.ResolveFeedback(c.Request.Context(), c.Param("feedback_id"))
	switch {
	case err == nil:
		c.Status(http.StatusNoContent)
	case errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "feedback not found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
