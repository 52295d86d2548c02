package usecase

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/shandysiswandi/notifyflow/internal/orchestration/entity"
	"github.com/shandysiswandi/notifyflow/internal/pkg/goerror"
	"github.com/shandysiswandi/notifyflow/internal/pkg/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateRule(t *testing.T) {
	t.Run("normalises and defaults", func(t *testing.T) {
		f := newFixture(t)

		rule, err := f.uc.CreateRule(context.Background(), CreateRuleInput{
			EventType:    " step_completed ",
			TemplateCode: "step_completed",
			Channels:     []string{"in_app", "EMAIL", "IN_APP"},
			Conditions:   json.RawMessage(`null`),
			Description:  "  notify on step  ",
		})
		require.NoError(t, err)
		assert.Equal(t, entity.EventTypeStepCompleted, rule.EventType)
		assert.Equal(t, "STEP_COMPLETED", rule.TemplateCode)
		assert.Equal(t, []entity.Channel{entity.ChannelInApp, entity.ChannelEmail}, rule.Channels)
		assert.True(t, rule.IsActive)
		assert.Zero(t, rule.Priority)
		assert.Nil(t, rule.Conditions)
		assert.Equal(t, "notify on step", rule.Description)
		assert.Equal(t, testNow, rule.CreatedAt)

		stored, err := f.repo.GetRule(context.Background(), rule.ID)
		require.NoError(t, err)
		assert.Equal(t, *rule, *stored)
	})

	t.Run("empty channels rejected", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.uc.CreateRule(context.Background(), CreateRuleInput{
			EventType:    "WELCOME",
			TemplateCode: "WELCOME",
			Channels:     []string{},
			Description:  "welcome",
		})
		assertCode(t, err, goerror.CodeInvalidInput)

		var verr validator.V10ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Contains(t, verr.Values(), "channels")
	})

	t.Run("unknown channel lists valid ones", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.uc.CreateRule(context.Background(), CreateRuleInput{
			EventType:    "WELCOME",
			TemplateCode: "WELCOME",
			Channels:     []string{"CARRIER_PIGEON"},
			Description:  "welcome",
		})
		assertCode(t, err, goerror.CodeInvalidInput)

		var verr validator.V10ValidationError
		require.ErrorAs(t, err, &verr)
		for _, ch := range entity.Channels {
			assert.Contains(t, verr.Values()["channels[0]"], ch.String())
		}
	})

	t.Run("invalid condition", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.uc.CreateRule(context.Background(), CreateRuleInput{
			EventType:    "WELCOME",
			TemplateCode: "WELCOME",
			Channels:     []string{"EMAIL"},
			Conditions:   json.RawMessage(`{"op":"in","field":"x","value":"not-a-list"}`),
			Description:  "welcome",
		})
		assertCode(t, err, goerror.CodeInvalidInput)

		var gerr *goerror.Error
		require.ErrorAs(t, err, &gerr)
		assert.Contains(t, gerr.Fields(), "conditions")
	})

	t.Run("negative priority", func(t *testing.T) {
		f := newFixture(t)

		_, err := f.uc.CreateRule(context.Background(), CreateRuleInput{
			EventType:    "WELCOME",
			TemplateCode: "WELCOME",
			Channels:     []string{"EMAIL"},
			Priority:     lo.ToPtr[int32](-1),
			Description:  "welcome",
		})
		assertCode(t, err, goerror.CodeInvalidInput)
	})
}

func TestUpdateRule(t *testing.T) {
	f := newFixture(t)
	f.repo.addRule(entity.Rule{
		ID:           10,
		EventType:    entity.EventTypeWelcome,
		TemplateCode: "WELCOME",
		Channels:     []entity.Channel{entity.ChannelEmail},
		IsActive:     true,
		Priority:     3,
		Description:  "welcome",
		CreatedAt:    testNow.Add(-24 * time.Hour),
	})

	t.Run("partial update keeps other fields", func(t *testing.T) {
		rule, err := f.uc.UpdateRule(context.Background(), UpdateRuleInput{
			ID:       10,
			IsActive: lo.ToPtr(false),
			Channels: []string{"whatsapp", "in_app"},
		})
		require.NoError(t, err)
		assert.False(t, rule.IsActive)
		assert.Equal(t, int32(3), rule.Priority)
		assert.Equal(t, []entity.Channel{entity.ChannelWhatsApp, entity.ChannelInApp}, rule.Channels)
		assert.Equal(t, testNow.Add(-24*time.Hour), rule.CreatedAt)
		assert.Equal(t, testNow, rule.UpdatedAt)
	})

	t.Run("merged rule is revalidated", func(t *testing.T) {
		_, err := f.uc.UpdateRule(context.Background(), UpdateRuleInput{ID: 10, Channels: []string{}})
		assertCode(t, err, goerror.CodeInvalidInput)
	})

	t.Run("missing rule", func(t *testing.T) {
		_, err := f.uc.UpdateRule(context.Background(), UpdateRuleInput{ID: 99, IsActive: lo.ToPtr(true)})
		assertCode(t, err, goerror.CodeNotFound)
	})

	t.Run("invalid id", func(t *testing.T) {
		_, err := f.uc.UpdateRule(context.Background(), UpdateRuleInput{})
		assertCode(t, err, goerror.CodeInvalidInput)
	})
}

func TestGetDeleteListRules(t *testing.T) {
	f := newFixture(t)
	f.repo.addRule(entity.Rule{ID: 1, EventType: entity.EventTypeWelcome, Channels: []entity.Channel{entity.ChannelEmail}, IsActive: true, Priority: 1})
	f.repo.addRule(entity.Rule{ID: 2, EventType: entity.EventTypeWelcome, Channels: []entity.Channel{entity.ChannelInApp}, IsActive: false, Priority: 9})
	f.repo.addRule(entity.Rule{ID: 3, EventType: entity.EventTypePaymentFailed, Channels: []entity.Channel{entity.ChannelEmail}, IsActive: true})

	rules, err := f.uc.ListRules(context.Background(), ListRulesInput{EventType: "welcome"})
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 1}, lo.Map(rules, func(r entity.Rule, _ int) int64 { return r.ID }))

	rules, err = f.uc.ListRules(context.Background(), ListRulesInput{IsActive: lo.ToPtr(true), Channel: "email"})
	require.NoError(t, err)
	assert.Len(t, rules, 2)

	_, err = f.uc.ListRules(context.Background(), ListRulesInput{Channel: "FAX"})
	assertCode(t, err, goerror.CodeInvalidInput)

	rule, err := f.uc.GetRule(context.Background(), GetRuleInput{ID: 3})
	require.NoError(t, err)
	assert.Equal(t, entity.EventTypePaymentFailed, rule.EventType)

	require.NoError(t, f.uc.DeleteRule(context.Background(), DeleteRuleInput{ID: 3}))

	_, err = f.uc.GetRule(context.Background(), GetRuleInput{ID: 3})
	assertCode(t, err, goerror.CodeNotFound)

	err = f.uc.DeleteRule(context.Background(), DeleteRuleInput{ID: 3})
	assertCode(t, err, goerror.CodeNotFound)

	err = f.uc.DeleteRule(context.Background(), DeleteRuleInput{})
	assertCode(t, err, goerror.CodeInvalidInput)
}

func TestTestRule(t *testing.T) {
	f := newFixture(t, func(d *Dependency) {
		d.Senders[entity.ChannelEmail] = previewSender{&mockSender{
			PreviewFunc: func(d entity.Delivery) (entity.Preview, error) {
				return entity.Preview{Subject: d.Content.Title, HTML: "<p>" + d.Content.Message + "</p>", To: d.Recipient.Email}, nil
			},
		}}
	})
	f.repo.addRule(entity.Rule{
		ID:           10,
		EventType:    entity.EventTypeDocumentRejected,
		TemplateCode: "DOCUMENT_REJECTED",
		Channels:     []entity.Channel{entity.ChannelEmail, entity.ChannelInApp},
		IsActive:     true,
		Conditions:   json.RawMessage(`{"op":"eq","field":"document.type","value":"passport"}`),
	})
	f.repo.addRule(entity.Rule{
		ID:           11,
		EventType:    entity.EventTypeWelcome,
		TemplateCode: "WELCOME",
		Channels:     []entity.Channel{entity.ChannelInApp},
		IsActive:     false,
	})

	t.Run("match with previews", func(t *testing.T) {
		res, err := f.uc.TestRule(context.Background(), TestRuleInput{
			RuleID:  10,
			Payload: payload("document", map[string]any{"type": "passport"}, "email", "a@example.com", "reason", "flou"),
		})
		require.NoError(t, err)
		assert.True(t, res.Matched)
		assert.True(t, res.WouldFire)
		assert.Equal(t, "rule matches and would fire", res.Reason)

		require.Len(t, res.Previews, 2)
		assert.Equal(t, entity.ChannelEmail, res.Previews[0].Channel)
		assert.Equal(t, "Document refusé", res.Previews[0].Subject)
		assert.Equal(t, "a@example.com", res.Previews[0].To)
		assert.Contains(t, res.Previews[0].HTML, "Motif : flou")
		assert.Equal(t, entity.ChannelInApp, res.Previews[1].Channel)
		assert.Empty(t, res.Previews[1].HTML)

		assert.Empty(t, f.email.calls())
		assert.Zero(t, f.repo.notificationCount())
		assert.Empty(t, f.repo.executionsFor(0))
	})

	t.Run("condition mismatch", func(t *testing.T) {
		res, err := f.uc.TestRule(context.Background(), TestRuleInput{RuleID: 10, Payload: payload("document", map[string]any{"type": "rib"})})
		require.NoError(t, err)
		assert.False(t, res.Matched)
		assert.False(t, res.WouldFire)
		assert.Equal(t, "conditions do not match the sample payload", res.Reason)
	})

	t.Run("event type mismatch", func(t *testing.T) {
		res, err := f.uc.TestRule(context.Background(), TestRuleInput{RuleID: 10, EventType: "welcome"})
		require.NoError(t, err)
		assert.False(t, res.EventTypeMatches)
		assert.False(t, res.Matched)
	})

	t.Run("inactive rule matches but does not fire", func(t *testing.T) {
		res, err := f.uc.TestRule(context.Background(), TestRuleInput{RuleID: 11})
		require.NoError(t, err)
		assert.True(t, res.Matched)
		assert.False(t, res.WouldFire)
		assert.Equal(t, "rule matches but is inactive", res.Reason)
	})

	t.Run("missing rule", func(t *testing.T) {
		_, err := f.uc.TestRule(context.Background(), TestRuleInput{RuleID: 404})
		assertCode(t, err, goerror.CodeNotFound)
	})
}
