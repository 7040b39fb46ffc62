package engine

import (
	"context"
	"log"
	"time"

	"laundry-aura-backend/config"
	"laundry-aura-backend/internal/laundry"
	"laundry-aura-backend/internal/model"
	"laundry-aura-backend/internal/notify"
	"laundry-aura-backend/internal/schedule"
	"laundry-aura-backend/internal/store"
)

// Engine is the tick driver: it advances every machine against its
// deadlines, fans the resulting events out to their occupants, fires due
// slot reminders, and periodically applies retention. It carries no
// business logic of its own.
type Engine struct {
	cfg       config.EngineConfig
	registry  *laundry.Registry
	scheduler *schedule.Scheduler
	notifier  *notify.Service
	store     store.Store
}

// New creates an engine over the given collaborators.
func New(cfg config.EngineConfig, registry *laundry.Registry, scheduler *schedule.Scheduler, notifier *notify.Service, st store.Store) *Engine {
	return &Engine{
		cfg:       cfg,
		registry:  registry,
		scheduler: scheduler,
		notifier:  notifier,
		store:     st,
	}
}

// Run ticks until the context is cancelled.
func (e *Engine) Run(ctx context.Context) {
	log.Println("Starting tick engine...")

	ticker := time.NewTicker(e.cfg.Tick)
	defer ticker.Stop()
	cleanup := time.NewTicker(time.Duration(e.cfg.CleanupMinutes) * time.Minute)
	defer cleanup.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Tick engine shutting down.")
			return
		case <-ticker.C:
			e.Step(ctx, time.Now().UTC())
		case <-cleanup.C:
			e.Cleanup(ctx, time.Now().UTC())
		}
	}
}

// Step performs one logical tick. The registry transition runs once per
// machine; delivery happens afterwards, outside the registry lock, and only
// to the occupant the event names.
func (e *Engine) Step(ctx context.Context, now time.Time) {
	for _, ev := range e.registry.Tick(now) {
		e.notifier.Notify(ev.Occupant.Name, model.TypeCycleAlert,
			alertTitle(ev.Level), ev.Message, alertPriority(ev.Level))
	}
	e.scheduler.FireDue(ctx, now)
}

// Cleanup applies the retention policy and promotes finished slots.
func (e *Engine) Cleanup(ctx context.Context, now time.Time) {
	cutoff := now.AddDate(0, 0, -e.cfg.RetentionDays)
	if err := e.store.PurgeExpired(ctx, cutoff); err != nil {
		log.Printf("retention cleanup failed: %v", err)
	}
	if n, err := e.store.CompletePastSlots(ctx, now); err != nil {
		log.Printf("failed to complete past slots: %v", err)
	} else if n > 0 {
		log.Printf("marked %d past slots completed", n)
	}
}

func alertTitle(level laundry.Level) string {
	switch level {
	case laundry.LevelFinal:
		return "Cycle Finished"
	case laundry.LevelUrgent:
		return "Collect Your Laundry"
	default:
		return "Almost Done"
	}
}

func alertPriority(level laundry.Level) string {
	switch level {
	case laundry.LevelFinal:
		return model.PriorityHigh
	case laundry.LevelUrgent:
		return model.PriorityMedium
	default:
		return model.PriorityLow
	}
}
