package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"laundry-aura-backend/config"
	"laundry-aura-backend/internal/aiclient"
	"laundry-aura-backend/internal/gamify"
	"laundry-aura-backend/internal/laundry"
	"laundry-aura-backend/internal/model"
	"laundry-aura-backend/internal/notify"
	"laundry-aura-backend/internal/queue"
	"laundry-aura-backend/internal/schedule"
	"laundry-aura-backend/internal/store"
)

type testApp struct {
	router   *gin.Engine
	registry *laundry.Registry
	ledger   *gamify.Ledger
	store    store.Store
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&model.LaundrySlot{},
		&model.MachineFeedback{},
		&model.UserNotification{},
		&model.PushSubscription{},
	))

	appStore := store.NewGormStore(db)
	notifier := notify.NewService(appStore, nil)
	registry := laundry.NewRegistry([]string{"Irene", "Metanoia"}, 2, 1)
	ledger := gamify.NewLedger()
	queues := queue.NewManager(notifier)
	scheduler := schedule.NewScheduler(appStore, notifier)
	ai := aiclient.NewClient(config.AIConfig{
		CacheTTLSeconds:          60,
		MinRequestIntervalMillis: 1,
		TimeoutSeconds:           1,
	})

	h := NewHandler(registry, ledger, queues, scheduler, notifier, ai, appStore,
		&webpush.Options{VAPIDPublicKey: "test-public-key", VAPIDPrivateKey: "test-private-key"})
	router := NewRouter(h, &config.ServerConfig{
		RateLimitPerSec: 10000,
		RateLimitBurst:  10000,
		CacheTTLSeconds: 1,
	})

	return &testApp{router: router, registry: registry, ledger: ledger, store: appStore}
}

func (a *testApp) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *testApp) login(t *testing.T, name, residence string) {
	t.Helper()
	w := a.do(t, http.MethodPost, "/api/login", gin.H{"name": name, "residence": residence})
	require.Equal(t, http.StatusOK, w.Code)
}

func decode(t *testing.T, w *httptest.ResponseRecorder, into interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), into))
}

func TestLoginEndpoint(t *testing.T) {
	app := newTestApp(t)

	t.Run("student login", func(t *testing.T) {
		w := app.do(t, http.MethodPost, "/api/login", gin.H{"name": "alice", "residence": "Irene"})
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			User        gamify.User               `json:"user"`
			Leaderboard []gamify.LeaderboardEntry `json:"leaderboard"`
		}
		decode(t, w, &resp)
		assert.Equal(t, gamify.RoleStudent, resp.User.Role)
		assert.Equal(t, "Irene", resp.User.Residence)
		assert.Len(t, resp.Leaderboard, 1)
	})

	t.Run("admin login needs no residence", func(t *testing.T) {
		w := app.do(t, http.MethodPost, "/api/login", gin.H{"name": "Admin"})
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			User gamify.User `json:"user"`
		}
		decode(t, w, &resp)
		assert.Equal(t, gamify.RoleAdmin, resp.User.Role)
	})

	t.Run("student without residence", func(t *testing.T) {
		w := app.do(t, http.MethodPost, "/api/login", gin.H{"name": "bob"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown residence", func(t *testing.T) {
		w := app.do(t, http.MethodPost, "/api/login", gin.H{"name": "bob", "residence": "Atlantis"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestResidencesEndpoint(t *testing.T) {
	app := newTestApp(t)

	w := app.do(t, http.MethodGet, "/api/residences", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Residences []string `json:"residences"`
	}
	decode(t, w, &resp)
	assert.Equal(t, []string{"Irene", "Metanoia"}, resp.Residences)
}

func TestMachinesEndpoint(t *testing.T) {
	app := newTestApp(t)

	w := app.do(t, http.MethodGet, "/api/machines?residence=Irene", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var machines []laundry.Machine
	decode(t, w, &machines)
	assert.Len(t, machines, 3)

	w = app.do(t, http.MethodGet, "/api/machines?residence=Atlantis", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestStartCycleEndpoint(t *testing.T) {
	app := newTestApp(t)
	app.login(t, "alice", "Irene")

	t.Run("unknown user is rejected", func(t *testing.T) {
		w := app.do(t, http.MethodPost, "/api/machines/1/start",
			gin.H{"name": "ghost", "durationMinutes": 45})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("invalid duration", func(t *testing.T) {
		w := app.do(t, http.MethodPost, "/api/machines/1/start",
			gin.H{"name": "alice", "durationMinutes": 50})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("successful start returns the prediction", func(t *testing.T) {
		w := app.do(t, http.MethodPost, "/api/machines/1/start",
			gin.H{"name": "alice", "durationMinutes": 45})
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Machine               laundry.Machine `json:"machine"`
			PredictedDelayMinutes int             `json:"predictedDelayMinutes"`
			ReminderMessage       string          `json:"reminderMessage"`
		}
		decode(t, w, &resp)
		assert.Equal(t, laundry.StatusBusy, resp.Machine.Status)
		// No history yet, so the local heuristic answers.
		assert.Equal(t, 4, resp.PredictedDelayMinutes)
		assert.NotEmpty(t, resp.ReminderMessage)
	})

	t.Run("busy machine conflicts", func(t *testing.T) {
		app.login(t, "bob", "Irene")
		w := app.do(t, http.MethodPost, "/api/machines/1/start",
			gin.H{"name": "bob", "durationMinutes": 45})
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("admin cannot start", func(t *testing.T) {
		app.login(t, "admin", "")
		w := app.do(t, http.MethodPost, "/api/machines/2/start",
			gin.H{"name": "admin", "durationMinutes": 45})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestCollectEndpoint(t *testing.T) {
	app := newTestApp(t)
	app.login(t, "alice", "Irene")
	app.login(t, "bob", "Irene")

	w := app.do(t, http.MethodPost, "/api/machines/1/start",
		gin.H{"name": "alice", "durationMinutes": 30})
	require.Equal(t, http.StatusOK, w.Code)

	t.Run("busy machine cannot be collected", func(t *testing.T) {
		w := app.do(t, http.MethodPost, "/api/machines/1/collect", gin.H{"name": "alice"})
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	// Simulate the cycle finishing.
	app.registry.Tick(time.Now().UTC().Add(31 * time.Minute))

	t.Run("someone else cannot collect", func(t *testing.T) {
		w := app.do(t, http.MethodPost, "/api/machines/1/collect", gin.H{"name": "bob"})
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("occupant collects and earns points", func(t *testing.T) {
		w := app.do(t, http.MethodPost, "/api/machines/1/collect", gin.H{"name": "alice"})
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Result gamify.CollectionResult `json:"result"`
			User   gamify.User             `json:"user"`
		}
		decode(t, w, &resp)
		assert.True(t, resp.Result.OnTime)
		assert.Positive(t, resp.Result.PointsAwarded)
		assert.Equal(t, 1, resp.User.TotalCycles)
		assert.Equal(t, 1, resp.User.Streak)

		m, err := app.registry.Machine("Irene", 1)
		require.NoError(t, err)
		assert.Equal(t, laundry.StatusFree, m.Status)
	})
}

func TestQueueEndpoints(t *testing.T) {
	app := newTestApp(t)
	app.login(t, "alice", "Irene")
	app.login(t, "bob", "Irene")

	w := app.do(t, http.MethodPost, "/api/machines/1/queue", gin.H{"name": "alice"})
	require.Equal(t, http.StatusOK, w.Code)
	var entry queue.Entry
	decode(t, w, &entry)
	assert.Equal(t, 1, entry.Position)
	assert.Equal(t, 60, entry.EstimatedWaitMinutes)

	w = app.do(t, http.MethodPost, "/api/machines/1/queue", gin.H{"name": "bob"})
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &entry)
	assert.Equal(t, 2, entry.Position)

	w = app.do(t, http.MethodGet, "/api/machines/1/queue?residence=Irene", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var q []queue.Entry
	decode(t, w, &q)
	require.Len(t, q, 2)
	assert.Equal(t, "alice", q[0].UserID)

	w = app.do(t, http.MethodDelete, "/api/machines/1/queue", gin.H{"name": "alice"})
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = app.do(t, http.MethodGet, "/api/machines/1/queue?residence=Irene", nil)
	decode(t, w, &q)
	require.Len(t, q, 1)
	assert.Equal(t, "bob", q[0].UserID)
	assert.Equal(t, 1, q[0].Position)

	t.Run("queueing needs a real machine", func(t *testing.T) {
		w := app.do(t, http.MethodPost, "/api/machines/99/queue", gin.H{"name": "alice"})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestSlotEndpoints(t *testing.T) {
	app := newTestApp(t)
	app.login(t, "alice", "Irene")
	app.login(t, "bob", "Irene")

	start := time.Now().UTC().Add(48 * time.Hour).Truncate(time.Second)
	end := start.Add(time.Hour)

	w := app.do(t, http.MethodPost, "/api/slots", gin.H{
		"name": "alice", "machineId": 1,
		"startTime": start, "endTime": end,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var slot model.LaundrySlot
	decode(t, w, &slot)
	assert.Equal(t, model.SlotScheduled, slot.Status)
	assert.Equal(t, "alice", slot.UserID)

	t.Run("overlap conflicts", func(t *testing.T) {
		w := app.do(t, http.MethodPost, "/api/slots", gin.H{
			"name": "bob", "machineId": 1,
			"startTime": start.Add(30 * time.Minute), "endTime": end.Add(30 * time.Minute),
		})
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("touching slots are fine", func(t *testing.T) {
		w := app.do(t, http.MethodPost, "/api/slots", gin.H{
			"name": "bob", "machineId": 1,
			"startTime": end, "endTime": end.Add(time.Hour),
		})
		assert.Equal(t, http.StatusCreated, w.Code)
	})

	t.Run("inverted interval", func(t *testing.T) {
		w := app.do(t, http.MethodPost, "/api/slots", gin.H{
			"name": "alice", "machineId": 2,
			"startTime": end, "endTime": start,
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("availability probe", func(t *testing.T) {
		path := fmt.Sprintf("/api/slots/availability?residence=Irene&machine_id=1&start=%s&end=%s",
			start.Format(time.RFC3339), end.Format(time.RFC3339))
		w := app.do(t, http.MethodGet, path, nil)
		require.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			Available bool `json:"available"`
		}
		decode(t, w, &resp)
		assert.False(t, resp.Available)

		path = fmt.Sprintf("/api/slots/availability?residence=Irene&machine_id=2&start=%s&end=%s",
			start.Format(time.RFC3339), end.Format(time.RFC3339))
		w = app.do(t, http.MethodGet, path, nil)
		require.Equal(t, http.StatusOK, w.Code)
		decode(t, w, &resp)
		assert.True(t, resp.Available)
	})

	t.Run("slots by user", func(t *testing.T) {
		w := app.do(t, http.MethodGet, "/api/slots?user=alice", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var slots []model.LaundrySlot
		decode(t, w, &slots)
		assert.Len(t, slots, 1)
	})

	t.Run("cancel is owner-only", func(t *testing.T) {
		w := app.do(t, http.MethodDelete, "/api/slots/"+slot.ID, gin.H{"name": "bob"})
		assert.Equal(t, http.StatusForbidden, w.Code)

		w = app.do(t, http.MethodDelete, "/api/slots/"+slot.ID, gin.H{"name": "alice"})
		assert.Equal(t, http.StatusNoContent, w.Code)

		w = app.do(t, http.MethodDelete, "/api/slots/missing", gin.H{"name": "alice"})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestFeedbackEndpoints(t *testing.T) {
	app := newTestApp(t)
	app.login(t, "alice", "Irene")
	app.login(t, "admin", "")

	w := app.do(t, http.MethodPost, "/api/feedback", gin.H{
		"name": "alice", "machineId": 1, "rating": 1,
		"condition": "broken", "issues": []string{"no spin"},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var fb model.MachineFeedback
	decode(t, w, &fb)
	assert.Equal(t, 1, fb.Rating)

	t.Run("bad ratings reach the admin", func(t *testing.T) {
		w := app.do(t, http.MethodGet, "/api/notifications?user=admin", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var ns []model.UserNotification
		decode(t, w, &ns)
		require.NotEmpty(t, ns)
		assert.Equal(t, model.TypeFeedbackRequest, ns[0].Type)
		assert.Equal(t, model.PriorityHigh, ns[0].Priority)
	})

	t.Run("listing by residence", func(t *testing.T) {
		w := app.do(t, http.MethodGet, "/api/feedback?residence=Irene", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var reports []model.MachineFeedback
		decode(t, w, &reports)
		require.Len(t, reports, 1)
		assert.Equal(t, []string{"no spin"}, reports[0].Issues)
	})

	t.Run("only the admin resolves", func(t *testing.T) {
		w := app.do(t, http.MethodPost, "/api/feedback/"+fb.ID+"/resolve", gin.H{"name": "alice"})
		assert.Equal(t, http.StatusForbidden, w.Code)

		w = app.do(t, http.MethodPost, "/api/feedback/"+fb.ID+"/resolve", gin.H{"name": "admin"})
		assert.Equal(t, http.StatusNoContent, w.Code)

		w = app.do(t, http.MethodPost, "/api/feedback/missing/resolve", gin.H{"name": "admin"})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("validation", func(t *testing.T) {
		w := app.do(t, http.MethodPost, "/api/feedback", gin.H{
			"name": "alice", "machineId": 1, "rating": 9, "condition": "good",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)

		w = app.do(t, http.MethodPost, "/api/feedback", gin.H{
			"name": "alice", "machineId": 1, "rating": 3, "condition": "rusty",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestNotificationEndpoints(t *testing.T) {
	app := newTestApp(t)
	app.login(t, "alice", "Irene")
	app.login(t, "bob", "Irene")

	// Joining a queue produces a notification.
	w := app.do(t, http.MethodPost, "/api/machines/1/queue", gin.H{"name": "alice"})
	require.Equal(t, http.StatusOK, w.Code)

	w = app.do(t, http.MethodGet, "/api/notifications?user=alice", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var ns []model.UserNotification
	decode(t, w, &ns)
	require.Len(t, ns, 1)
	assert.False(t, ns[0].Read)

	w = app.do(t, http.MethodPost, "/api/notifications/"+ns[0].ID+"/read", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = app.do(t, http.MethodGet, "/api/notifications?user=alice", nil)
	decode(t, w, &ns)
	assert.True(t, ns[0].Read)

	w = app.do(t, http.MethodPost, "/api/notifications/missing/read", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = app.do(t, http.MethodGet, "/api/notifications", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChatEndpoint(t *testing.T) {
	app := newTestApp(t)
	app.login(t, "alice", "Irene")

	w := app.do(t, http.MethodPost, "/api/chat", gin.H{"name": "alice", "question": "Is a washer free?"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Reply string `json:"reply"`
	}
	decode(t, w, &resp)
	// Everything is free, so the canned availability answer names machines.
	assert.Contains(t, resp.Reply, "Washer 1")

	w = app.do(t, http.MethodPost, "/api/chat", gin.H{"name": "alice", "question": "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSubscriptionEndpoints(t *testing.T) {
	app := newTestApp(t)

	w := app.do(t, http.MethodPut, "/api/subscriptions", gin.H{
		"userId": "alice", "endpoint": "https://push.example.com/abc",
		"p256dh": "key", "auth": "secret",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = app.do(t, http.MethodGet, "/api/subscriptions?endpoint=https://push.example.com/abc", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		UserID string `json:"userId"`
	}
	decode(t, w, &resp)
	assert.Equal(t, "alice", resp.UserID)

	w = app.do(t, http.MethodDelete, "/api/subscriptions", gin.H{"endpoint": "https://push.example.com/abc"})
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = app.do(t, http.MethodGet, "/api/subscriptions?endpoint=https://push.example.com/abc", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestVAPIDKeyEndpoint(t *testing.T) {
	app := newTestApp(t)

	w := app.do(t, http.MethodGet, "/api/vapid_public_key", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		PublicKey string `json:"public_key"`
	}
	decode(t, w, &resp)
	assert.Equal(t, "test-public-key", resp.PublicKey)
}

func TestVAPIDKeyEndpointUnconfigured(t *testing.T) {
	gin.SetMode(gin.TestMode)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	h := &Handler{}
	h.GetVAPIDPublicKey(c)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "push delivery is not configured")
}
