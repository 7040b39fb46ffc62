package api

import (
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"

	"laundry-aura-backend/internal/aiclient"
	"laundry-aura-backend/internal/gamify"
	"laundry-aura-backend/internal/laundry"
	"laundry-aura-backend/internal/notify"
	"laundry-aura-backend/internal/queue"
	"laundry-aura-backend/internal/schedule"
	"laundry-aura-backend/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	registry  *laundry.Registry
	ledger    *gamify.Ledger
	queues    *queue.Manager
	scheduler *schedule.Scheduler
	notifier  *notify.Service
	ai        *aiclient.Client
	store     store.Store
	webpush   *webpush.Options
}

// NewHandler creates a new API handler.
func NewHandler(registry *laundry.Registry, ledger *gamify.Ledger, queues *queue.Manager,
	scheduler *schedule.Scheduler, notifier *notify.Service, ai *aiclient.Client,
	st store.Store, webpushOptions *webpush.Options) *Handler {
	return &Handler{
		registry:  registry,
		ledger:    ledger,
		queues:    queues,
		scheduler: scheduler,
		notifier:  notifier,
		ai:        ai,
		store:     st,
		webpush:   webpushOptions,
	}
}

// identity is the caller's self-declared identity; the system has no auth
// model beyond the name-based role flag.
type identity struct {
	Name      string `json:"name" binding:"required"`
	Residence string `json:"residence"`
}

// resolveUser looks the identity up in the ledger and resolves the
// effective residence (the profile's, unless the caller is an admin
// operating on an explicit one).
func (h *Handler) resolveUser(c *gin.Context, id identity) (gamify.User, bool) {
	u, ok := h.ledger.User(id.Name)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unknown user; log in first"})
		return gamify.User{}, false
	}
	return u, true
}
