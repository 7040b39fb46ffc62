package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"laundry-aura-backend/internal/gamify"
)

type loginRequest struct {
	Name      string `json:"name" binding:"required"`
	Residence string `json:"residence"`
}

// Login creates the profile on first sight and returns it with the current
// leaderboard. Students must name a residence; the "admin" name carries the
// admin role instead.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !strings.EqualFold(req.Name, gamify.RoleAdmin) {
		if req.Residence == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "residence is required"})
			return
		}
		if _, err := h.registry.Snapshot(req.Residence); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown residence"})
			return
		}
	}

	user := h.ledger.Login(req.Name, req.Residence)

	c.JSON(http.StatusOK, gin.H{
		"user":        user,
		"leaderboard": h.ledger.Leaderboard(),
	})
}

// GetResidences lists the residence groups.
func (h *Handler) GetResidences(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"residences": h.registry.Residences()})
}

// GetLeaderboard returns all users sorted by points.
func (h *Handler) GetLeaderboard(c *gin.Context) {
	c.JSON(http.StatusOK, h.ledger.Leaderboard())
}

// GetResidenceStats aggregates one residence's users.
func (h *Handler) GetResidenceStats(c *gin.Context) {
	name := c.Param("name")
	if _, err := h.registry.Snapshot(name); err != nil {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "unknown residence"})
		return
	}
	c.JSON(http.StatusOK, h.ledger.Stats(name))
}
