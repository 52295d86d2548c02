package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/shandysiswandi/notifyflow/internal/orchestration/entity"
	"github.com/shandysiswandi/notifyflow/internal/pkg/goerror"
	"github.com/shandysiswandi/notifyflow/internal/pkg/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func authed(userID string) context.Context {
	return jwt.SetAuth(context.Background(), jwt.Claims{UserID: userID})
}

func TestInbox(t *testing.T) {
	f := newFixture(t)
	read := testNow.Add(-time.Hour)
	f.repo.notifications = []entity.Notification{
		{ID: 1, UserID: "u1", Title: "a"},
		{ID: 2, UserID: "u1", Title: "b", ReadAt: &read},
		{ID: 3, UserID: "u2", Title: "c"},
	}

	_, err := f.uc.ListInbox(context.Background(), ListInboxInput{})
	assertCode(t, err, goerror.CodeUnauthorized)

	items, err := f.uc.ListInbox(authed("u1"), ListInboxInput{})
	require.NoError(t, err)
	assert.Len(t, items, 2)

	items, err = f.uc.ListInbox(authed("u1"), ListInboxInput{Status: "unread"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, int64(1), items[0].ID)

	_, err = f.uc.ListInbox(authed("u1"), ListInboxInput{Status: "archived"})
	assertCode(t, err, goerror.CodeInvalidInput)

	require.NoError(t, f.uc.MarkInboxRead(authed("u1"), MarkInboxReadInput{ID: 1}))
	require.NotNil(t, f.repo.notifications[0].ReadAt)
	assert.Equal(t, testNow, *f.repo.notifications[0].ReadAt)

	err = f.uc.MarkInboxRead(authed("u1"), MarkInboxReadInput{ID: 3})
	assertCode(t, err, goerror.CodeNotFound)

	err = f.uc.MarkInboxRead(context.Background(), MarkInboxReadInput{ID: 1})
	assertCode(t, err, goerror.CodeUnauthorized)
}

func TestStreamNotifications(t *testing.T) {
	f := newFixture(t)
	f.repo.addEvent(entity.Event{ID: 1, EventType: entity.EventTypeWelcome, Payload: payload("user_id", "u1", "full_name", "Léa")})
	f.repo.addRule(entity.Rule{
		ID:           10,
		EventType:    entity.EventTypeWelcome,
		TemplateCode: "WELCOME",
		Channels:     []entity.Channel{entity.ChannelInApp},
		IsActive:     true,
	})

	ctx, cancel := context.WithCancel(context.Background())
	mine := f.uc.StreamNotifications(ctx, "u1")
	other := f.uc.StreamNotifications(ctx, "u2")

	_, err := f.uc.ProcessEvents(context.Background(), ProcessEventsInput{Secret: testSecret})
	require.NoError(t, err)

	select {
	case evt := <-mine:
		assert.Equal(t, "u1", evt.UserID)
		assert.Equal(t, "Bienvenue", evt.Title)
		assert.Equal(t, "Bienvenue Léa ! Votre espace est prêt.", evt.Message)
	case <-time.After(time.Second):
		t.Fatal("no stream event received")
	}

	select {
	case evt := <-other:
		t.Fatalf("unexpected event for u2: %+v", evt)
	default:
	}

	cancel()
	require.Eventually(t, func() bool {
		select {
		case _, open := <-mine:
			return !open
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)

	f.uc.streamMu.RLock()
	defer f.uc.streamMu.RUnlock()
	assert.Empty(t, f.uc.streams["u1"])
}

func TestStatsAndExecutions(t *testing.T) {
	f := newFixture(t)
	f.email.SendFunc = func(_ context.Context, d entity.Delivery) error {
		if d.Recipient.UserID == "u2" {
			return entity.ErrChannelNotConfigured
		}
		return nil
	}

	f.repo.addRule(entity.Rule{
		ID:           10,
		EventType:    entity.EventTypeWelcome,
		TemplateCode: "WELCOME",
		Channels:     []entity.Channel{entity.ChannelEmail},
		IsActive:     true,
	})
	f.repo.addRule(entity.Rule{ID: 11, EventType: entity.EventTypeWelcome, IsActive: false})
	f.repo.addEvent(entity.Event{ID: 1, EventType: entity.EventTypeWelcome, Payload: payload("user_id", "u1")})
	f.repo.addEvent(entity.Event{ID: 2, EventType: entity.EventTypeWelcome, Payload: payload("user_id", "u2")})

	_, err := f.uc.ProcessEvents(context.Background(), ProcessEventsInput{Secret: testSecret})
	require.NoError(t, err)

	stats, err := f.uc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.ActiveRules)
	assert.Equal(t, int64(2), stats.EventsLast24h)
	assert.Equal(t, int64(2), stats.ExecutionsLast24h)
	assert.InDelta(t, 0.5, stats.SuccessRate, 0.0001)
	assert.Len(t, stats.RecentExecutions, 2)
	require.Len(t, stats.FailedExecutions, 1)
	assert.Equal(t, int64(2), stats.FailedExecutions[0].EventID)
	assert.Equal(t, testNow.Add(-24*time.Hour), stats.Since)

	execs, err := f.uc.ListExecutions(context.Background(), ListExecutionsInput{Status: "succeeded"})
	require.NoError(t, err)
	require.Len(t, execs, 1)
	assert.Equal(t, int64(1), execs[0].EventID)

	_, err = f.uc.ListExecutions(context.Background(), ListExecutionsInput{Status: "done"})
	assertCode(t, err, goerror.CodeInvalidInput)
}
