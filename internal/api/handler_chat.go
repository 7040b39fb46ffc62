package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

type chatRequest struct {
	identity
	Question string `json:"question" binding:"required"`
}

// Chat handles POST /api/chat. The assistant answers against a snapshot
// of the caller's residence so the reply cannot race a concurrent tick.
func (h *Handler) Chat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	user, ok := h.resolveUser(c, req.identity)
	if !ok {
		return
	}
	if strings.TrimSpace(req.Question) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "question must not be empty"})
		return
	}

	machines, err := h.registry.Snapshot(user.Residence)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	reply := h.ai.ChatReply(c.Request.Context(), req.Question, machines)
	c.JSON(http.StatusOK, gin.H{"reply": reply})
}
