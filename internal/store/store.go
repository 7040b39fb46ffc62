package store

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"laundry-aura-backend/internal/model"
)

// Store defines the interface for all database operations.
type Store interface {
	DB() *gorm.DB

	CreateSlot(ctx context.Context, slot *model.LaundrySlot) error
	SlotByID(ctx context.Context, id string) (model.LaundrySlot, error)
	SlotsForMachine(ctx context.Context, residence string, machineID int, statuses ...string) ([]model.LaundrySlot, error)
	SlotsForUser(ctx context.Context, userID string) ([]model.LaundrySlot, error)
	UpdateSlotStatus(ctx context.Context, id, status string) error
	CompletePastSlots(ctx context.Context, now time.Time) (int64, error)

	CreateFeedback(ctx context.Context, fb *model.MachineFeedback) error
	Feedback(ctx context.Context, residence string) ([]model.MachineFeedback, error)
	ResolveFeedback(ctx context.Context, id string) error

	CreateNotification(ctx context.Context, n *model.UserNotification) error
	NotificationByID(ctx context.Context, id string) (model.UserNotification, error)
	NotificationsForUser(ctx context.Context, userID string) ([]model.UserNotification, error)
	MarkNotificationRead(ctx context.Context, id string) error

	UpsertSubscription(ctx context.Context, sub *model.PushSubscription) error
	DeleteSubscription(ctx context.Context, endpoint string) error
	SubscriptionByEndpoint(ctx context.Context, endpoint string) (model.PushSubscription, error)
	SubscriptionsForUser(ctx context.Context, userID string) ([]model.PushSubscription, error)

	PurgeExpired(ctx context.Context, cutoff time.Time) error
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db *gorm.DB
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db}
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

// --- Slots ---

func (s *gormStore) CreateSlot(ctx context.Context, slot *model.LaundrySlot) error {
	if err := s.db.WithContext(ctx).Create(slot).Error; err != nil {
		return fmt.Errorf("failed to create slot for machine %d: %w", slot.MachineID, err)
	}
	return nil
}

func (s *gormStore) SlotByID(ctx context.Context, id string) (model.LaundrySlot, error) {
	var slot model.LaundrySlot
	err := s.db.WithContext(ctx).First(&slot, "id = ?", id).Error
	return slot, err
}

func (s *gormStore) SlotsForMachine(ctx context.Context, residence string, machineID int, statuses ...string) ([]model.LaundrySlot, error) {
	var slots []model.LaundrySlot
	q := s.db.WithContext(ctx).Where("residence = ? AND machine_id = ?", residence, machineID)
	if len(statuses) > 0 {
		q = q.Where("status IN ?", statuses)
	}
	err := q.Order("start_time").Find(&slots).Error
	return slots, err
}

func (s *gormStore) SlotsForUser(ctx context.Context, userID string) ([]model.LaundrySlot, error) {
	var slots []model.LaundrySlot
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("start_time").Find(&slots).Error
	return slots, err
}

func (s *gormStore) UpdateSlotStatus(ctx context.Context, id, status string) error {
	res := s.db.WithContext(ctx).Model(&model.LaundrySlot{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return fmt.Errorf("failed to update slot %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CompletePastSlots promotes scheduled slots whose end time has passed.
func (s *gormStore) CompletePastSlots(ctx context.Context, now time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Model(&model.LaundrySlot{}).
		Where("status = ? AND end_time <= ?", model.SlotScheduled, now).
		Update("status", model.SlotCompleted)
	return res.RowsAffected, res.Error
}

// --- Feedback ---

func (s *gormStore) CreateFeedback(ctx context.Context, fb *model.MachineFeedback) error {
	if err := s.db.WithContext(ctx).Create(fb).Error; err != nil {
		return fmt.Errorf("failed to create feedback for machine %d: %w", fb.MachineID, err)
	}
	return nil
}

func (s *gormStore) Feedback(ctx context.Context, residence string) ([]model.MachineFeedback, error) {
	var fbs []model.MachineFeedback
	q := s.db.WithContext(ctx)
	if residence != "" {
		q = q.Where("residence = ?", residence)
	}
	err := q.Order("timestamp DESC").Find(&fbs).Error
	return fbs, err
}

func (s *gormStore) ResolveFeedback(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Model(&model.MachineFeedback{}).Where("id = ?", id).Update("resolved", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// --- Notifications ---

func (s *gormStore) CreateNotification(ctx context.Context, n *model.UserNotification) error {
	if err := s.db.WithContext(ctx).Create(n).Error; err != nil {
		return fmt.Errorf("failed to create notification for user %s: %w", n.UserID, err)
	}
	return nil
}

func (s *gormStore) NotificationByID(ctx context.Context, id string) (model.UserNotification, error) {
	var n model.UserNotification
	err := s.db.WithContext(ctx).First(&n, "id = ?", id).Error
	return n, err
}

func (s *gormStore) NotificationsForUser(ctx context.Context, userID string) ([]model.UserNotification, error) {
	var ns []model.UserNotification
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("timestamp DESC").Find(&ns).Error
	return ns, err
}

func (s *gormStore) MarkNotificationRead(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Model(&model.UserNotification{}).Where("id = ?", id).Update("read", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// --- Push subscriptions ---

func (s *gormStore) UpsertSubscription(ctx context.Context, sub *model.PushSubscription) error {
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"user_id", "p256dh", "auth"}),
	}).Create(sub).Error
}

func (s *gormStore) DeleteSubscription(ctx context.Context, endpoint string) error {
	return s.db.WithContext(ctx).Delete(&model.PushSubscription{Endpoint: endpoint}).Error
}

func (s *gormStore) SubscriptionByEndpoint(ctx context.Context, endpoint string) (model.PushSubscription, error) {
	var sub model.PushSubscription
	err := s.db.WithContext(ctx).First(&sub, "endpoint = ?", endpoint).Error
	return sub, err
}

func (s *gormStore) SubscriptionsForUser(ctx context.Context, userID string) ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Find(&subs).Error
	return subs, err
}

// --- Retention ---

// PurgeExpired deletes notifications and feedback older than the cutoff,
// and prunes cancelled or completed slots that ended before it.
func (s *gormStore) PurgeExpired(ctx context.Context, cutoff time.Time) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("timestamp < ?", cutoff).Delete(&model.UserNotification{}).Error; err != nil {
			return fmt.Errorf("failed to purge notifications: %w", err)
		}
		if err := tx.Where("timestamp < ?", cutoff).Delete(&model.MachineFeedback{}).Error; err != nil {
			return fmt.Errorf("failed to purge feedback: %w", err)
		}
		if err := tx.Where("status IN ? AND end_time < ?",
			[]string{model.SlotCancelled, model.SlotCompleted}, cutoff).
			Delete(&model.LaundrySlot{}).Error; err != nil {
			return fmt.Errorf("failed to purge slots: %w", err)
		}
		return nil
	})
}
