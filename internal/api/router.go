package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"laundry-aura-backend/config"
	"laundry-aura-backend/internal/mw"
)

// NewRouter creates and configures a new Gin router around the handler.
func NewRouter(h *Handler, cfg *config.ServerConfig) *gin.Engine {
	r := gin.Default()

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst)

	cacheTTL := time.Duration(cfg.CacheTTLSeconds) * time.Second
	cacheStore := cache.New(cacheTTL, 2*cacheTTL)
	caching := mw.Cache(cacheStore, cacheTTL)

	api := r.Group("/api")
	api.Use(rateLimiter)
	{
		api.POST("/login", h.Login)
		api.GET("/residences", caching, h.GetResidences)
		api.GET("/residences/:name/stats", h.GetResidenceStats)
		api.GET("/leaderboard", h.GetLeaderboard)

		api.GET("/machines", h.GetMachines)
		api.POST("/machines/:machine_id/start", h.StartCycle)
		api.POST("/machines/:machine_id/collect", h.CollectLaundry)
		api.POST("/machines/:machine_id/forgotten", h.ReportForgotten)

		api.GET("/machines/:machine_id/queue", h.GetQueue)
		api.POST("/machines/:machine_id/queue", h.JoinQueue)
		api.DELETE("/machines/:machine_id/queue", h.LeaveQueue)

		api.GET("/slots", h.GetSlots)
		api.POST("/slots", h.ScheduleSlot)
		api.DELETE("/slots/:slot_id", h.CancelSlot)
		api.GET("/slots/availability", h.GetSlotAvailability)

		api.POST("/feedback", h.SubmitFeedback)
		api.GET("/feedback", h.GetFeedback)
		api.POST("/feedback/:feedback_id/resolve", h.ResolveFeedback)

		api.GET("/notifications", h.GetNotifications)
		api.POST("/notifications/:notification_id/read", h.MarkNotificationRead)

		api.POST("/chat", h.Chat)

		api.GET("/subscriptions", h.GetSubscription)
		api.PUT("/subscriptions", h.PutSubscription)
		api.DELETE("/subscriptions", h.DeleteSubscription)
		api.GET("/vapid_public_key", h.GetVAPIDPublicKey)
	}

	return r
}
