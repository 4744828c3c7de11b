package ticket

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/kvstore"
	"github.com/spec-kit/support-desk/pkg/apperrors"
)

var (
	customer = domain.Actor{ID: "cust-1", Role: "customer", Kind: domain.ActorKindCustomer}
	agent    = domain.Actor{ID: "emp-1", Role: "support-agent", Kind: domain.ActorKindStaff}
)

func newTestStore(t *testing.T) (*Store, *kvstore.Memory) {
	t.Helper()
	kv := kvstore.NewMemory()
	store, err := NewStore(context.Background(), kv, "test:tickets", nil, zap.NewNop())
	require.NoError(t, err)
	return store, kv
}

// stepClock makes every call to now() strictly later than the last so
// ordering assertions are deterministic.
func stepClock(s *Store) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		base = base.Add(time.Second)
		return base
	}
}

func mustCreate(t *testing.T, s *Store, actorID string, in CreateInput) *domain.Ticket {
	t.Helper()
	created, err := s.Create(context.Background(), actorID, in)
	require.NoError(t, err)
	require.NotNil(t, created)
	return created
}

func strPtr(v string) *string { return &v }

func statusPtr(v domain.TicketStatus) *domain.TicketStatus { return &v }

func priorityPtr(v domain.TicketPriority) *domain.TicketPriority { return &v }

func TestCreateDefaults(t *testing.T) {
	store, _ := newTestStore(t)

	created := mustCreate(t, store, customer.ID, CreateInput{
		Title:       "Printer on fire",
		Description: "The office printer caught fire again.",
	})

	assert.Equal(t, "TCK-000001", created.ID)
	assert.Equal(t, domain.TicketStatusOpen, created.Status)
	assert.Equal(t, domain.TicketPriorityMedium, created.Priority)
	assert.Equal(t, domain.CategoryGeneral, created.Category)
	assert.Equal(t, customer.ID, created.CreatedBy)
	assert.Nil(t, created.AssignedTo)
	assert.Nil(t, created.ClosedAt)

	second := mustCreate(t, store, customer.ID, CreateInput{Title: "Another", Description: "issue"})
	assert.Equal(t, "TCK-000002", second.ID)
}

func TestCreateValidation(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	t.Run("blank title", func(t *testing.T) {
		_, err := store.Create(ctx, customer.ID, CreateInput{Title: "   ", Description: "body"})
		require.Error(t, err)
		assert.True(t, apperrors.IsValidation(err))
	})

	t.Run("blank description", func(t *testing.T) {
		_, err := store.Create(ctx, customer.ID, CreateInput{Title: "title", Description: ""})
		require.Error(t, err)
		assert.True(t, apperrors.IsValidation(err))
	})

	t.Run("unknown category", func(t *testing.T) {
		_, err := store.Create(ctx, customer.ID, CreateInput{Title: "t", Description: "d", Category: "plumbing"})
		require.Error(t, err)
		assert.True(t, apperrors.IsValidation(err))
	})

	t.Run("unknown priority", func(t *testing.T) {
		_, err := store.Create(ctx, customer.ID, CreateInput{Title: "t", Description: "d", Priority: "ASAP"})
		require.Error(t, err)
		assert.True(t, apperrors.IsValidation(err))
	})
}

func TestCreateCanonicalizesLegacyCategories(t *testing.T) {
	store, _ := newTestStore(t)

	upper := mustCreate(t, store, customer.ID, CreateInput{Title: "t", Description: "d", Category: "TECHNICAL"})
	assert.Equal(t, domain.CategoryTechnical, upper.Category)

	underscore := mustCreate(t, store, customer.ID, CreateInput{Title: "t", Description: "d", Category: "feature_request"})
	assert.Equal(t, domain.CategoryFeatureRequest, underscore.Category)
}

func TestUpdateUnknownTicketIsNotFound(t *testing.T) {
	store, _ := newTestStore(t)

	updated, err := store.Update(context.Background(), agent, "TCK-999999", UpdateInput{
		Status: statusPtr(domain.TicketStatusClosed),
	})
	require.NoError(t, err)
	assert.Nil(t, updated)
}

func TestStaffUpdateEmitsAuditComments(t *testing.T) {
	store, _ := newTestStore(t)
	stepClock(store)
	ctx := context.Background()
	created := mustCreate(t, store, customer.ID, CreateInput{Title: "t", Description: "d"})

	updated, err := store.Update(ctx, agent, created.ID, UpdateInput{
		Status:     statusPtr(domain.TicketStatusInProgress),
		Priority:   priorityPtr(domain.TicketPriorityHigh),
		AssignedTo: strPtr("emp-1"),
	})
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, domain.TicketStatusInProgress, updated.Status)
	assert.Equal(t, domain.TicketPriorityHigh, updated.Priority)
	require.NotNil(t, updated.AssignedTo)
	assert.Equal(t, "emp-1", *updated.AssignedTo)
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))
	assert.False(t, updated.UpdatedAt.Before(updated.CreatedAt))

	thread := store.GetComments(ctx, created.ID, true)
	require.Len(t, thread, 3)
	bodies := make([]string, 0, len(thread))
	for _, comment := range thread {
		assert.Equal(t, domain.CommentKindAudit, comment.Kind)
		assert.True(t, comment.IsInternal)
		assert.Equal(t, agent.ID, comment.CreatedBy)
		assert.False(t, comment.CreatedAt.Before(created.UpdatedAt))
		bodies = append(bodies, comment.Body)
	}
	assert.Contains(t, bodies, "status changed from OPEN to IN_PROGRESS")
	assert.Contains(t, bodies, "priority changed from MEDIUM to HIGH")
	assert.Contains(t, bodies, "assignee changed from unassigned to emp-1")

	// customers never see audit entries
	assert.Empty(t, store.GetComments(ctx, created.ID, false))
}

func TestUpdateNoopFieldsSkipAudit(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	created := mustCreate(t, store, customer.ID, CreateInput{Title: "t", Description: "d"})

	updated, err := store.Update(ctx, agent, created.ID, UpdateInput{
		Status:   statusPtr(domain.TicketStatusOpen),
		Priority: priorityPtr(domain.TicketPriorityMedium),
	})
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Empty(t, store.GetComments(ctx, created.ID, true))
}

func TestCustomerUpdateHasNoAuditTrail(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	created := mustCreate(t, store, customer.ID, CreateInput{Title: "t", Description: "d"})

	updated, err := store.Update(ctx, customer, created.ID, UpdateInput{
		Priority: priorityPtr(domain.TicketPriorityUrgent),
	})
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, domain.TicketPriorityUrgent, updated.Priority)
	assert.Empty(t, store.GetComments(ctx, created.ID, true))
}

func TestClosedAtTracksClosedStatus(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	created := mustCreate(t, store, customer.ID, CreateInput{Title: "t", Description: "d"})

	closed, err := store.Update(ctx, agent, created.ID, UpdateInput{Status: statusPtr(domain.TicketStatusClosed)})
	require.NoError(t, err)
	require.NotNil(t, closed)
	require.NotNil(t, closed.ClosedAt)

	reopened, err := store.Update(ctx, agent, created.ID, UpdateInput{Status: statusPtr(domain.TicketStatusInProgress)})
	require.NoError(t, err)
	require.NotNil(t, reopened)
	assert.Nil(t, reopened.ClosedAt)
}

func TestUpdateClearsAssignment(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	created := mustCreate(t, store, customer.ID, CreateInput{Title: "t", Description: "d"})

	_, err := store.Update(ctx, agent, created.ID, UpdateInput{AssignedTo: strPtr("emp-1")})
	require.NoError(t, err)

	cleared, err := store.Update(ctx, agent, created.ID, UpdateInput{AssignedTo: strPtr("")})
	require.NoError(t, err)
	require.NotNil(t, cleared)
	assert.Nil(t, cleared.AssignedTo)

	thread := store.GetComments(ctx, created.ID, true)
	require.Len(t, thread, 2)
	assert.Equal(t, "assignee changed from emp-1 to unassigned", thread[1].Body)
}

func TestCommentFlipsStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("customer reply reopens waiting ticket", func(t *testing.T) {
		store, _ := newTestStore(t)
		created := mustCreate(t, store, customer.ID, CreateInput{Title: "t", Description: "d"})
		_, err := store.Update(ctx, agent, created.ID, UpdateInput{Status: statusPtr(domain.TicketStatusWaitingCustomer)})
		require.NoError(t, err)

		comment, err := store.AddComment(ctx, customer, created.ID, "still broken", false, nil)
		require.NoError(t, err)
		require.NotNil(t, comment)

		assert.Equal(t, domain.TicketStatusOpen, store.Get(ctx, created.ID).Status)
		// the implicit flip leaves no audit entry, only the earlier
		// explicit status change does
		thread := store.GetComments(ctx, created.ID, true)
		audits := 0
		for _, c := range thread {
			if c.Kind == domain.CommentKindAudit {
				audits++
			}
		}
		assert.Equal(t, 1, audits)
	})

	t.Run("customer reply on open ticket is a no-op", func(t *testing.T) {
		store, _ := newTestStore(t)
		created := mustCreate(t, store, customer.ID, CreateInput{Title: "t", Description: "d"})

		_, err := store.AddComment(ctx, customer, created.ID, "any update?", false, nil)
		require.NoError(t, err)
		assert.Equal(t, domain.TicketStatusOpen, store.Get(ctx, created.ID).Status)
	})

	t.Run("staff reply parks open ticket on customer", func(t *testing.T) {
		store, _ := newTestStore(t)
		created := mustCreate(t, store, customer.ID, CreateInput{Title: "t", Description: "d"})

		_, err := store.AddComment(ctx, agent, created.ID, "please try rebooting", false, nil)
		require.NoError(t, err)
		assert.Equal(t, domain.TicketStatusWaitingCustomer, store.Get(ctx, created.ID).Status)

		// a conversational flip is not an administrative action
		for _, c := range store.GetComments(ctx, created.ID, true) {
			assert.NotEqual(t, domain.CommentKindAudit, c.Kind)
		}
	})

	t.Run("internal note never flips", func(t *testing.T) {
		store, _ := newTestStore(t)
		created := mustCreate(t, store, customer.ID, CreateInput{Title: "t", Description: "d"})

		_, err := store.AddComment(ctx, agent, created.ID, "looks like the usual driver issue", true, nil)
		require.NoError(t, err)
		assert.Equal(t, domain.TicketStatusOpen, store.Get(ctx, created.ID).Status)
	})

	t.Run("staff reply on in-progress ticket does not flip", func(t *testing.T) {
		store, _ := newTestStore(t)
		created := mustCreate(t, store, customer.ID, CreateInput{Title: "t", Description: "d"})
		_, err := store.Update(ctx, agent, created.ID, UpdateInput{Status: statusPtr(domain.TicketStatusInProgress)})
		require.NoError(t, err)

		_, err = store.AddComment(ctx, agent, created.ID, "working on it", false, nil)
		require.NoError(t, err)
		assert.Equal(t, domain.TicketStatusInProgress, store.Get(ctx, created.ID).Status)
	})
}

func TestCustomerCannotPostInternalComment(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	created := mustCreate(t, store, customer.ID, CreateInput{Title: "t", Description: "d"})

	comment, err := store.AddComment(ctx, customer, created.ID, "secret?", true, nil)
	require.NoError(t, err)
	require.NotNil(t, comment)
	assert.False(t, comment.IsInternal)
}

func TestAddCommentEdgeCases(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	t.Run("unknown ticket", func(t *testing.T) {
		comment, err := store.AddComment(ctx, agent, "TCK-424242", "hello", false, nil)
		require.NoError(t, err)
		assert.Nil(t, comment)
	})

	t.Run("blank body", func(t *testing.T) {
		created := mustCreate(t, store, customer.ID, CreateInput{Title: "t", Description: "d"})
		_, err := store.AddComment(ctx, agent, created.ID, "   ", false, nil)
		require.Error(t, err)
		assert.True(t, apperrors.IsValidation(err))
	})
}

func TestGetCommentsVisibility(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	created := mustCreate(t, store, customer.ID, CreateInput{Title: "t", Description: "d"})

	_, err := store.AddComment(ctx, customer, created.ID, "it is broken", false, nil)
	require.NoError(t, err)
	_, err = store.AddComment(ctx, agent, created.ID, "escalating internally", true, nil)
	require.NoError(t, err)
	_, err = store.AddComment(ctx, agent, created.ID, "we are on it", false, nil)
	require.NoError(t, err)

	public := store.GetComments(ctx, created.ID, false)
	require.Len(t, public, 2)
	for _, comment := range public {
		assert.False(t, comment.IsInternal)
	}

	full := store.GetComments(ctx, created.ID, true)
	assert.Len(t, full, 3)
}

func TestListOrderingAndOwnership(t *testing.T) {
	store, _ := newTestStore(t)
	stepClock(store)
	ctx := context.Background()

	first := mustCreate(t, store, "cust-1", CreateInput{Title: "first", Description: "d"})
	second := mustCreate(t, store, "cust-2", CreateInput{Title: "second", Description: "d"})
	third := mustCreate(t, store, "cust-1", CreateInput{Title: "third", Description: "d"})

	// touching the oldest ticket bumps it to the front
	_, err := store.AddComment(ctx, agent, first.ID, "ping", true, nil)
	require.NoError(t, err)

	all := store.List(ctx)
	require.Len(t, all, 3)
	assert.Equal(t, first.ID, all[0].ID)
	assert.Equal(t, third.ID, all[1].ID)
	assert.Equal(t, second.ID, all[2].ID)

	mine := store.ListForActor(ctx, "cust-1")
	require.Len(t, mine, 2)
	for _, ticket := range mine {
		assert.Equal(t, "cust-1", ticket.CreatedBy)
	}
}

func TestFilterSemantics(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	vpn := mustCreate(t, store, "cust-1", CreateInput{
		Title: "VPN drops hourly", Description: "tunnel resets", Category: "technical", Priority: domain.TicketPriorityHigh,
	})
	invoice := mustCreate(t, store, "cust-2", CreateInput{
		Title: "Wrong invoice total", Description: "overcharged", Category: "billing",
	})
	mustCreate(t, store, "cust-2", CreateInput{Title: "Rename account", Description: "typo", Category: "account"})

	_, err := store.Update(ctx, agent, vpn.ID, UpdateInput{
		Status:     statusPtr(domain.TicketStatusInProgress),
		AssignedTo: strPtr("emp-1"),
	})
	require.NoError(t, err)

	t.Run("status and priority conjunction", func(t *testing.T) {
		got := store.Filter(ctx, FilterParams{
			Statuses:   []domain.TicketStatus{domain.TicketStatusInProgress},
			Priorities: []domain.TicketPriority{domain.TicketPriorityHigh},
		})
		require.Len(t, got, 1)
		assert.Equal(t, vpn.ID, got[0].ID)
	})

	t.Run("mismatched conjunction is empty", func(t *testing.T) {
		got := store.Filter(ctx, FilterParams{
			Statuses:   []domain.TicketStatus{domain.TicketStatusInProgress},
			Categories: []domain.TicketCategory{domain.CategoryBilling},
		})
		assert.Empty(t, got)
	})

	t.Run("unassigned", func(t *testing.T) {
		got := store.Filter(ctx, FilterParams{Unassigned: true})
		assert.Len(t, got, 2)
	})

	t.Run("assignee", func(t *testing.T) {
		got := store.Filter(ctx, FilterParams{AssignedTo: strPtr("emp-1")})
		require.Len(t, got, 1)
		assert.Equal(t, vpn.ID, got[0].ID)
	})

	t.Run("case-insensitive search over title and description", func(t *testing.T) {
		got := store.Filter(ctx, FilterParams{Search: "INVOICE"})
		require.Len(t, got, 1)
		assert.Equal(t, invoice.ID, got[0].ID)

		got = store.Filter(ctx, FilterParams{Search: "overcharged"})
		require.Len(t, got, 1)
		assert.Equal(t, invoice.ID, got[0].ID)
	})

	t.Run("no filters returns everything", func(t *testing.T) {
		assert.Len(t, store.Filter(ctx, FilterParams{}), 3)
	})
}

func TestSnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewMemory()

	store, err := NewStore(ctx, kv, "test:tickets", nil, zap.NewNop())
	require.NoError(t, err)
	created := mustCreate(t, store, customer.ID, CreateInput{Title: "persisted", Description: "d", Category: "billing"})
	_, err = store.Update(ctx, agent, created.ID, UpdateInput{Status: statusPtr(domain.TicketStatusInProgress)})
	require.NoError(t, err)
	_, err = store.AddComment(ctx, agent, created.ID, "note to self", true, nil)
	require.NoError(t, err)

	reloaded, err := NewStore(ctx, kv, "test:tickets", nil, zap.NewNop())
	require.NoError(t, err)

	got := reloaded.Get(ctx, created.ID)
	require.NotNil(t, got)
	assert.Equal(t, domain.TicketStatusInProgress, got.Status)
	assert.Equal(t, domain.CategoryBilling, got.Category)

	thread := reloaded.GetComments(ctx, created.ID, true)
	assert.Len(t, thread, 2)

	// the id sequence survives the reload
	next := mustCreate(t, reloaded, customer.ID, CreateInput{Title: "after reload", Description: "d"})
	assert.Equal(t, "TCK-000002", next.ID)
}

func TestClearAllKeepsSequence(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	created := mustCreate(t, store, customer.ID, CreateInput{Title: "t", Description: "d"})
	_, err := store.AddComment(ctx, customer, created.ID, "hello", false, nil)
	require.NoError(t, err)

	require.NoError(t, store.ClearAll(ctx, agent))
	assert.Empty(t, store.List(ctx))
	assert.Nil(t, store.Get(ctx, created.ID))
	assert.Empty(t, store.GetComments(ctx, created.ID, true))

	// ids are never reused
	next := mustCreate(t, store, customer.ID, CreateInput{Title: "fresh", Description: "d"})
	assert.Equal(t, "TCK-000002", next.ID)
}

// flakyKV wraps a backing store and fails Save on demand.
type flakyKV struct {
	kvstore.Store
	failSave bool
}

func (f *flakyKV) Save(ctx context.Context, key string, value []byte) error {
	if f.failSave {
		return errors.New("backend down")
	}
	return f.Store.Save(ctx, key, value)
}

func TestPersistFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	kv := &flakyKV{Store: kvstore.NewMemory()}
	store, err := NewStore(ctx, kv, "test:tickets", nil, zap.NewNop())
	require.NoError(t, err)
	created := mustCreate(t, store, customer.ID, CreateInput{Title: "t", Description: "d"})

	kv.failSave = true

	t.Run("update restores ticket and audit trail", func(t *testing.T) {
		_, err := store.Update(ctx, agent, created.ID, UpdateInput{Status: statusPtr(domain.TicketStatusClosed)})
		require.Error(t, err)

		got := store.Get(ctx, created.ID)
		require.NotNil(t, got)
		assert.Equal(t, domain.TicketStatusOpen, got.Status)
		assert.Nil(t, got.ClosedAt)
		assert.Equal(t, created.UpdatedAt, got.UpdatedAt)
		assert.Empty(t, store.GetComments(ctx, created.ID, true))
	})

	t.Run("comment restores status flip", func(t *testing.T) {
		_, err := store.AddComment(ctx, agent, created.ID, "please retry", false, nil)
		require.Error(t, err)

		assert.Equal(t, domain.TicketStatusOpen, store.Get(ctx, created.ID).Status)
		assert.Empty(t, store.GetComments(ctx, created.ID, true))
	})

	t.Run("create restores the id sequence", func(t *testing.T) {
		_, err := store.Create(ctx, customer.ID, CreateInput{Title: "lost", Description: "d"})
		require.Error(t, err)
		assert.Len(t, store.List(ctx), 1)
	})

	t.Run("clear restores the whole store", func(t *testing.T) {
		require.Error(t, store.ClearAll(ctx, agent))
		require.NotNil(t, store.Get(ctx, created.ID))
	})

	// once the backend recovers the failed create's id is reissued
	kv.failSave = false
	next := mustCreate(t, store, customer.ID, CreateInput{Title: "retry", Description: "d"})
	assert.Equal(t, "TCK-000002", next.ID)
}

func TestReturnedTicketsAreCopies(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	created := mustCreate(t, store, customer.ID, CreateInput{Title: "t", Description: "d"})

	created.Title = "mutated by caller"
	got := store.Get(ctx, created.ID)
	require.NotNil(t, got)
	assert.Equal(t, "t", got.Title)
}
