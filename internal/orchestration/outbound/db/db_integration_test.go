//go:build integration

package db

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shandysiswandi/notifyflow/internal/orchestration/entity"
	"github.com/shandysiswandi/notifyflow/internal/pkg/goerror"
	"github.com/shandysiswandi/notifyflow/internal/pkg/instrument"
	"github.com/shandysiswandi/notifyflow/internal/pkg/valueobject"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

const seedDirectory = `
INSERT INTO users (id, email, phone, full_name) VALUES
    ('u1', 'u1@example.com', '+33611111111', 'User One'),
    ('u2', NULL, NULL, NULL);
INSERT INTO dossiers (id, user_id, name) VALUES ('d-1', 'u1', 'SARL Dupont');
INSERT INTO agent_users (agent_id, user_id) VALUES ('agent-1', 'u2'), ('agent-1', 'u1');
`

func newTestDB(t *testing.T) (*DB, *pgxpool.Pool) {
	t.Helper()
	ctx := context.Background()

	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("notifyflow"),
		postgres.WithUsername("notifyflow"),
		postgres.WithPassword("notifyflow"),
		postgres.WithInitScripts(filepath.Join("..", "..", "..", "..", "migrations", "000001_orchestration.up.sql")),
		postgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	_, err = pool.Exec(ctx, seedDirectory)
	require.NoError(t, err)

	return NewDB(pool, instrument.NewNoop()), pool
}

func TestDB_Integration(t *testing.T) {
	db, _ := newTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	require.NoError(t, db.CreateEvent(ctx, entity.CreateEvent{
		ID:         1,
		EntityType: "dossier",
		EntityID:   "d-1",
		EventType:  entity.EventTypeStepCompleted,
		ActorType:  entity.ActorTypeAdmin,
		Payload:    valueobject.JSONMap{"dossier_id": "d-1", "step_label": "KYC"},
		CreatedAt:  now.Add(-time.Minute),
	}))
	require.NoError(t, db.CreateEvent(ctx, entity.CreateEvent{
		ID:         2,
		EntityType: "user",
		EntityID:   "u1",
		EventType:  entity.EventTypeWelcome,
		ActorType:  entity.ActorTypeSystem,
		CreatedAt:  now.Add(-time.Hour),
	}))

	t.Run("events", func(t *testing.T) {
		ev, err := db.GetEvent(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, "KYC", ev.Payload.GetString("step_label"))
		assert.Nil(t, ev.ActorID)

		_, err = db.GetEvent(ctx, 404)
		assert.ErrorIs(t, err, goerror.ErrNotFound)

		err = db.CreateEvent(ctx, entity.CreateEvent{ID: 1, EntityType: "x", EntityID: "x", EventType: entity.EventTypeWelcome, ActorType: entity.ActorTypeSystem, CreatedAt: now})
		assert.ErrorIs(t, err, goerror.ErrConflict)

		events, err := db.ListUnprocessedEvents(ctx, entity.ScanEvents{Since: now.Add(-5 * time.Minute), Limit: 10})
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, int64(1), events[0].ID)
	})

	t.Run("rules", func(t *testing.T) {
		require.NoError(t, db.CreateRule(ctx, entity.Rule{
			ID:           10,
			EventType:    entity.EventTypeStepCompleted,
			TemplateCode: "STEP_COMPLETED",
			Channels:     []entity.Channel{entity.ChannelInApp, entity.ChannelEmail},
			IsActive:     true,
			Priority:     1,
			Conditions:   json.RawMessage(`{"op":"exists","field":"dossier_id"}`),
			Description:  "step",
			CreatedAt:    now,
			UpdatedAt:    now,
		}))
		require.NoError(t, db.CreateRule(ctx, entity.Rule{
			ID:           11,
			EventType:    entity.EventTypeStepCompleted,
			TemplateCode: "STEP_COMPLETED",
			Channels:     []entity.Channel{entity.ChannelWhatsApp},
			IsActive:     false,
			Priority:     5,
			Description:  "whatsapp",
			CreatedAt:    now,
			UpdatedAt:    now,
		}))

		rules, err := db.ListRulesByEventType(ctx, entity.EventTypeStepCompleted)
		require.NoError(t, err)
		require.Len(t, rules, 2)
		assert.Equal(t, int64(11), rules[0].ID)
		assert.Nil(t, rules[0].Conditions)
		assert.JSONEq(t, `{"op":"exists","field":"dossier_id"}`, string(rules[1].Conditions))

		active := true
		rules, err = db.ListRules(ctx, entity.RuleFilter{IsActive: &active, Channel: entity.ChannelEmail})
		require.NoError(t, err)
		require.Len(t, rules, 1)
		assert.Equal(t, []entity.Channel{entity.ChannelInApp, entity.ChannelEmail}, rules[0].Channels)

		require.NoError(t, db.UpdateRule(ctx, entity.UpdateRule{
			ID:           11,
			EventType:    entity.EventTypeStepCompleted,
			TemplateCode: "STEP_COMPLETED",
			Channels:     []entity.Channel{entity.ChannelSMS},
			IsActive:     true,
			Priority:     5,
			Description:  "sms",
			UpdatedAt:    now.Add(time.Second),
		}))
		r, err := db.GetRule(ctx, 11)
		require.NoError(t, err)
		assert.Equal(t, "sms", r.Description)
		assert.True(t, r.IsActive)

		assert.ErrorIs(t, db.UpdateRule(ctx, entity.UpdateRule{ID: 404, Channels: []entity.Channel{entity.ChannelSMS}}), goerror.ErrNotFound)

		require.NoError(t, db.DeleteRule(ctx, 11))
		assert.ErrorIs(t, db.DeleteRule(ctx, 11), goerror.ErrNotFound)
	})

	t.Run("claim is exclusive under contention", func(t *testing.T) {
		var (
			wg  sync.WaitGroup
			won atomic.Int32
			ids atomic.Int64
		)
		ids.Store(100)

		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, ok, err := db.ClaimExecution(ctx, entity.ClaimExecution{ID: ids.Add(1), RuleID: 10, EventID: 1, ExecutedAt: now})
				assert.NoError(t, err)
				if ok {
					won.Add(1)
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, int32(1), won.Load())

		events, err := db.ListUnprocessedEvents(ctx, entity.ScanEvents{Since: now.Add(-5 * time.Minute), Limit: 10})
		require.NoError(t, err)
		assert.Empty(t, events)
	})

	t.Run("complete and retry", func(t *testing.T) {
		exec, ok, err := db.ClaimExecution(ctx, entity.ClaimExecution{ID: 200, RuleID: 10, EventID: 2, ExecutedAt: now.Add(-time.Hour)})
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, entity.ExecutionStatusPending, exec.Status)
		assert.Empty(t, exec.Outcomes)

		msg := "EMAIL(u1): smtp down"
		require.NoError(t, db.CompleteExecution(ctx, entity.CompleteExecution{
			ID:           200,
			ErrorMessage: &msg,
			Outcomes: entity.Outcomes{
				{Channel: entity.ChannelEmail, UserID: "u1", Status: entity.OutcomeStatusFailed, Error: "smtp down", Attempts: 3, At: now},
			},
			UpdatedAt: now,
		}))

		candidates, err := db.ListRetryCandidates(ctx, entity.RetryCandidates{MaxRetryCount: 3, StaleBefore: now.Add(-10 * time.Minute), Limit: 10})
		require.NoError(t, err)
		require.Len(t, candidates, 1)
		got := candidates[0]
		assert.Equal(t, entity.ExecutionStatusFailed, got.Status)
		require.Len(t, got.Outcomes, 1)
		assert.Equal(t, entity.OutcomeStatusFailed, got.Outcomes[0].Status)

		ok, err = db.RetryExecution(ctx, entity.RetryExecution{ID: 200, ExpectedRetryCount: 0, ClaimedAt: now})
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = db.RetryExecution(ctx, entity.RetryExecution{ID: 200, ExpectedRetryCount: 0, ClaimedAt: now})
		require.NoError(t, err)
		assert.False(t, ok)

		pending, err := db.ListExecutions(ctx, entity.ExecutionFilter{Status: entity.ExecutionStatusPending, EventID: 2, Limit: 10})
		require.NoError(t, err)
		require.Len(t, pending, 1)
		assert.Equal(t, int32(1), pending[0].RetryCount)

		candidates, err = db.ListRetryCandidates(ctx, entity.RetryCandidates{MaxRetryCount: 3, StaleBefore: now.Add(-10 * time.Minute), Limit: 10})
		require.NoError(t, err)
		assert.Empty(t, candidates)

		require.NoError(t, db.CompleteExecution(ctx, entity.CompleteExecution{ID: 200, Success: true, Outcomes: entity.Outcomes{}, UpdatedAt: now}))

		execs, err := db.ListExecutions(ctx, entity.ExecutionFilter{Status: entity.ExecutionStatusSucceeded, Limit: 10})
		require.NoError(t, err)
		require.Len(t, execs, 1)
		assert.Equal(t, int32(1), execs[0].RetryCount)
		assert.Nil(t, execs[0].ErrorMessage)
	})

	t.Run("notifications", func(t *testing.T) {
		dossier := "d-1"
		require.NoError(t, db.CreateNotification(ctx, entity.Notification{ID: 1, UserID: "u1", Type: "STEP_COMPLETED", Title: "t", Message: "m", DossierID: &dossier, CreatedAt: now}))
		require.NoError(t, db.CreateNotification(ctx, entity.Notification{ID: 2, UserID: "u1", Type: "WELCOME", Title: "t", Message: "m", CreatedAt: now.Add(time.Second)}))

		items, err := db.ListNotifications(ctx, entity.InboxFilter{UserID: "u1", Limit: 10})
		require.NoError(t, err)
		require.Len(t, items, 2)
		assert.Equal(t, int64(2), items[0].ID)

		ok, err := db.MarkNotificationRead(ctx, "u1", 1, now)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = db.MarkNotificationRead(ctx, "u2", 2, now)
		require.NoError(t, err)
		assert.False(t, ok)

		items, err = db.ListNotifications(ctx, entity.InboxFilter{UserID: "u1", Status: entity.NotificationStatusUnread, Limit: 10})
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, int64(2), items[0].ID)
	})

	t.Run("directory", func(t *testing.T) {
		owner, err := db.FindDossierOwner(ctx, "d-1")
		require.NoError(t, err)
		assert.Equal(t, "u1", owner)

		_, err = db.FindDossierOwner(ctx, "d-404")
		assert.ErrorIs(t, err, goerror.ErrNotFound)

		users, err := db.ListAgentUsers(ctx, "agent-1")
		require.NoError(t, err)
		assert.Equal(t, []string{"u1", "u2"}, users)

		recipients, err := db.ListRecipients(ctx, []string{"u1", "u2", "ghost"})
		require.NoError(t, err)
		assert.ElementsMatch(t, []entity.Recipient{
			{UserID: "u1", Email: "u1@example.com", Phone: "+33611111111", FullName: "User One"},
			{UserID: "u2"},
		}, recipients)
	})

	t.Run("stats", func(t *testing.T) {
		c, err := db.CountStats(ctx, now.Add(-24*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, int64(1), c.ActiveRules)
		assert.Equal(t, int64(2), c.Events)
		assert.Equal(t, int64(2), c.Executions)
		assert.Equal(t, int64(2), c.NotificationsCreated)
	})
}
