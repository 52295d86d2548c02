package usecase

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shandysiswandi/notifyflow/internal/orchestration/entity"
	"github.com/shandysiswandi/notifyflow/internal/pkg/goerror"
	"github.com/shandysiswandi/notifyflow/internal/pkg/hash"
	"github.com/shandysiswandi/notifyflow/internal/pkg/instrument"
	"github.com/shandysiswandi/notifyflow/internal/pkg/validator"
	"github.com/shandysiswandi/notifyflow/internal/pkg/valueobject"
	"github.com/stretchr/testify/require"
)

const testSecret = "cron-secret"

var testNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

type fixedClock struct{ now time.Time }

func (c *fixedClock) Now() time.Time { return c.now }

type seqID struct{ n atomic.Int64 }

func (s *seqID) Generate() int64 { return 1000 + s.n.Add(1) }

// memRepo is an in-memory repoDB. ClaimExecution honours the (event, rule)
// uniqueness the real table enforces.
type memRepo struct {
	mu sync.Mutex

	events        []entity.Event
	rules         map[int64]entity.Rule
	executions    []*entity.Execution
	notifications []entity.Notification
	owners        map[string]string
	agentUsers    map[string][]string
	users         map[string]entity.Recipient

	ListUnprocessedEventsErr error
	ListRulesErr             error
	CreateNotificationErr    error
	CreateEventErr           error
}

func newMemRepo() *memRepo {
	return &memRepo{
		rules:      make(map[int64]entity.Rule),
		owners:     make(map[string]string),
		agentUsers: make(map[string][]string),
		users:      make(map[string]entity.Recipient),
	}
}

func (m *memRepo) addEvent(ev entity.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = testNow.Add(-time.Minute)
	}
	if ev.ActorType == "" {
		ev.ActorType = entity.ActorTypeSystem
	}
	m.events = append(m.events, ev)
}

func (m *memRepo) addRule(r entity.Rule) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.Description == "" {
		r.Description = "test rule"
	}
	m.rules[r.ID] = r
}

func (m *memRepo) addUser(r entity.Recipient) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[r.UserID] = r
}

func (m *memRepo) executionsFor(eventID int64) []entity.Execution {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []entity.Execution
	for _, e := range m.executions {
		if e.EventID == eventID {
			out = append(out, *e)
		}
	}
	return out
}

func (m *memRepo) notificationCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.notifications)
}

func (m *memRepo) CreateEvent(_ context.Context, data entity.CreateEvent) error {
	if m.CreateEventErr != nil {
		return m.CreateEventErr
	}
	m.addEvent(entity.Event(data))
	return nil
}

func (m *memRepo) GetEvent(_ context.Context, id int64) (*entity.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ev := range m.events {
		if ev.ID == id {
			return &ev, nil
		}
	}
	return nil, goerror.ErrNotFound
}

func (m *memRepo) ListUnprocessedEvents(_ context.Context, in entity.ScanEvents) ([]entity.Event, error) {
	if m.ListUnprocessedEventsErr != nil {
		return nil, m.ListUnprocessedEventsErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	seen := make(map[int64]bool)
	for _, e := range m.executions {
		seen[e.EventID] = true
	}

	var out []entity.Event
	for _, ev := range m.events {
		if ev.CreatedAt.Before(in.Since) || seen[ev.ID] {
			continue
		}
		out = append(out, ev)
	}
	slices.SortFunc(out, func(a, b entity.Event) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	if len(out) > int(in.Limit) {
		out = out[:in.Limit]
	}
	return out, nil
}

func (m *memRepo) ListRulesByEventType(_ context.Context, et entity.EventType) ([]entity.Rule, error) {
	if m.ListRulesErr != nil {
		return nil, m.ListRulesErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	var out []entity.Rule
	for _, r := range m.rules {
		if r.EventType == et {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memRepo) ListRules(_ context.Context, f entity.RuleFilter) ([]entity.Rule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []entity.Rule
	for _, r := range m.rules {
		if f.EventType != "" && r.EventType != f.EventType {
			continue
		}
		if f.IsActive != nil && r.IsActive != *f.IsActive {
			continue
		}
		if f.Channel != "" && !r.HasChannel(f.Channel) {
			continue
		}
		out = append(out, r)
	}
	entity.SortRules(out)
	return out, nil
}

func (m *memRepo) GetRule(_ context.Context, id int64) (*entity.Rule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rules[id]
	if !ok {
		return nil, goerror.ErrNotFound
	}
	return &r, nil
}

func (m *memRepo) CreateRule(_ context.Context, r entity.Rule) error {
	m.addRule(r)
	return nil
}

func (m *memRepo) UpdateRule(_ context.Context, u entity.UpdateRule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rules[u.ID]
	if !ok {
		return goerror.ErrNotFound
	}
	r.EventType, r.TemplateCode, r.Channels = u.EventType, u.TemplateCode, u.Channels
	r.IsActive, r.Priority, r.Conditions = u.IsActive, u.Priority, u.Conditions
	r.Description, r.UpdatedAt = u.Description, u.UpdatedAt
	m.rules[u.ID] = r
	return nil
}

func (m *memRepo) DeleteRule(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rules[id]; !ok {
		return goerror.ErrNotFound
	}
	delete(m.rules, id)
	return nil
}

func (m *memRepo) ClaimExecution(_ context.Context, in entity.ClaimExecution) (*entity.Execution, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.executions {
		if e.EventID == in.EventID && e.RuleID == in.RuleID {
			return nil, false, nil
		}
	}
	e := &entity.Execution{
		ID:         in.ID,
		RuleID:     in.RuleID,
		EventID:    in.EventID,
		Status:     entity.ExecutionStatusPending,
		ExecutedAt: in.ExecutedAt,
		UpdatedAt:  in.ExecutedAt,
	}
	m.executions = append(m.executions, e)
	cp := *e
	return &cp, true, nil
}

func (m *memRepo) CompleteExecution(_ context.Context, in entity.CompleteExecution) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.executions {
		if e.ID == in.ID {
			e.Success = in.Success
			e.ErrorMessage = in.ErrorMessage
			e.Outcomes = in.Outcomes
			e.UpdatedAt = in.UpdatedAt
			e.Status = entity.ExecutionStatusFailed
			if in.Success {
				e.Status = entity.ExecutionStatusSucceeded
			}
			return nil
		}
	}
	return goerror.ErrNotFound
}

func (m *memRepo) ListRetryCandidates(_ context.Context, in entity.RetryCandidates) ([]entity.Execution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []entity.Execution
	for _, e := range m.executions {
		if e.RetryCount >= in.MaxRetryCount {
			continue
		}
		failed := e.Status == entity.ExecutionStatusFailed
		stale := e.Status == entity.ExecutionStatusPending && e.UpdatedAt.Before(in.StaleBefore)
		if failed || stale {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (m *memRepo) RetryExecution(_ context.Context, in entity.RetryExecution) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.executions {
		if e.ID != in.ID {
			continue
		}
		if e.RetryCount != in.ExpectedRetryCount || e.Status == entity.ExecutionStatusSucceeded {
			return false, nil
		}
		e.RetryCount++
		e.Status = entity.ExecutionStatusPending
		e.UpdatedAt = in.ClaimedAt
		return true, nil
	}
	return false, nil
}

func (m *memRepo) ListExecutions(_ context.Context, f entity.ExecutionFilter) ([]entity.Execution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []entity.Execution
	for i := len(m.executions) - 1; i >= 0; i-- {
		e := m.executions[i]
		if f.Status != "" && e.Status != f.Status {
			continue
		}
		if f.RuleID != 0 && e.RuleID != f.RuleID {
			continue
		}
		if f.EventID != 0 && e.EventID != f.EventID {
			continue
		}
		out = append(out, *e)
	}
	if f.Limit > 0 && len(out) > int(f.Limit) {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *memRepo) CountStats(_ context.Context, since time.Time) (entity.StatsCounts, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var c entity.StatsCounts
	for _, r := range m.rules {
		if r.IsActive {
			c.ActiveRules++
		}
	}
	for _, ev := range m.events {
		if !ev.CreatedAt.Before(since) {
			c.Events++
		}
	}
	for _, e := range m.executions {
		if e.ExecutedAt.Before(since) {
			continue
		}
		c.Executions++
		if e.Status != entity.ExecutionStatusPending {
			c.CompletedExecutions++
		}
		if e.Status == entity.ExecutionStatusSucceeded {
			c.SucceededExecutions++
		}
	}
	for _, n := range m.notifications {
		if !n.CreatedAt.Before(since) {
			c.NotificationsCreated++
		}
	}
	return c, nil
}

func (m *memRepo) CreateNotification(_ context.Context, n entity.Notification) error {
	if m.CreateNotificationErr != nil {
		return m.CreateNotificationErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifications = append(m.notifications, n)
	return nil
}

func (m *memRepo) ListNotifications(_ context.Context, f entity.InboxFilter) ([]entity.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []entity.Notification
	for _, n := range m.notifications {
		if n.UserID != f.UserID {
			continue
		}
		if f.Status == entity.NotificationStatusRead && n.ReadAt == nil {
			continue
		}
		if f.Status == entity.NotificationStatusUnread && n.ReadAt != nil {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

func (m *memRepo) MarkNotificationRead(_ context.Context, userID string, id int64, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.notifications {
		if m.notifications[i].ID == id && m.notifications[i].UserID == userID {
			m.notifications[i].ReadAt = &at
			return true, nil
		}
	}
	return false, nil
}

func (m *memRepo) FindDossierOwner(_ context.Context, dossierID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	owner, ok := m.owners[dossierID]
	if !ok {
		return "", goerror.ErrNotFound
	}
	return owner, nil
}

func (m *memRepo) ListAgentUsers(_ context.Context, agentID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.agentUsers[agentID], nil
}

func (m *memRepo) ListRecipients(_ context.Context, userIDs []string) ([]entity.Recipient, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []entity.Recipient
	for _, id := range userIDs {
		if r, ok := m.users[id]; ok {
			out = append(out, r)
		}
	}
	return out, nil
}

// mockSender records deliveries and delegates to SendFunc when set.
type mockSender struct {
	mu         sync.Mutex
	deliveries []entity.Delivery

	SendFunc    func(ctx context.Context, d entity.Delivery) error
	PreviewFunc func(d entity.Delivery) (entity.Preview, error)
}

func (m *mockSender) Send(ctx context.Context, d entity.Delivery) error {
	m.mu.Lock()
	m.deliveries = append(m.deliveries, d)
	m.mu.Unlock()

	if m.SendFunc != nil {
		return m.SendFunc(ctx, d)
	}
	return nil
}

func (m *mockSender) calls() []entity.Delivery {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.deliveries)
}

type previewSender struct {
	*mockSender
}

func (p previewSender) Preview(d entity.Delivery) (entity.Preview, error) {
	return p.PreviewFunc(d)
}

type fixture struct {
	uc    *Usecase
	repo  *memRepo
	email *mockSender
	wa    *mockSender
	clock *fixedClock
}

func newFixture(t *testing.T, mutate ...func(*Dependency)) *fixture {
	t.Helper()

	v, err := validator.NewV10Validator()
	require.NoError(t, err)

	f := &fixture{
		repo:  newMemRepo(),
		email: &mockSender{},
		wa:    &mockSender{},
		clock: &fixedClock{now: testNow},
	}

	dep := Dependency{
		RepoDB: f.repo,
		Config: Config{
			CronSecret:         testSecret,
			AppBaseURL:         "https://app.example.com",
			DispatchMaxRetries: 2,
			DispatchBackoff:    time.Millisecond,
			DispatchTimeout:    time.Second,
		},
		Hash: hash.NewHMACSHA256("test-hmac-key"),
		Senders: map[entity.Channel]ChannelSender{
			entity.ChannelEmail:    f.email,
			entity.ChannelWhatsApp: f.wa,
		},
		UID:        &seqID{},
		Clock:      f.clock,
		Validator:  v,
		Instrument: instrument.NewNoop(),
	}
	for _, fn := range mutate {
		fn(&dep)
	}

	f.uc = NewOrchestration(dep)
	return f
}

func payload(kv ...any) valueobject.JSONMap {
	m := valueobject.JSONMap{}
	for i := 0; i+1 < len(kv); i += 2 {
		m[kv[i].(string)] = kv[i+1]
	}
	return m
}
