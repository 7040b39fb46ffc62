package notify

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"laundry-aura-backend/internal/model"
	"laundry-aura-backend/internal/store"
)

// Service appends user-directed notifications to the store and hands
// high-priority ones to the push worker pool. Single instance per process,
// explicitly constructed and passed by reference.
type Service struct {
	store store.Store
	pool  *WorkerPool
	now   func() time.Time
}

// NewService creates a notifier. The pool may be nil when push delivery is
// not configured.
func NewService(st store.Store, pool *WorkerPool) *Service {
	return &Service{store: st, pool: pool, now: time.Now}
}

// Notify records a notification for the user. Failures are logged, never
// propagated: a lost notification must not fail the action that caused it.
func (s *Service) Notify(userID, ntype, title, message, priority string) {
	n := model.UserNotification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Type:      ntype,
		Title:     title,
		Message:   message,
		Priority:  priority,
		Timestamp: s.now(),
	}
	if err := s.store.CreateNotification(context.Background(), &n); err != nil {
		log.Printf("failed to record notification for %s: %v", userID, err)
		return
	}
	if priority == model.PriorityHigh && s.pool != nil {
		s.pool.Dispatch(n.ID)
	}
}

// Notifications returns the user's notifications, newest first.
func (s *Service) Notifications(ctx context.Context, userID string) ([]model.UserNotification, error) {
	return s.store.NotificationsForUser(ctx, userID)
}

// MarkRead toggles a notification's read flag.
func (s *Service) MarkRead(ctx context.Context, id string) error {
	return s.store.MarkNotificationRead(ctx, id)
}
