package ticket

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/events"
	"github.com/spec-kit/support-desk/internal/kvstore"
	"github.com/spec-kit/support-desk/internal/observability"
	"github.com/spec-kit/support-desk/pkg/apperrors"
)

// Store owns ticket records and their comment threads. A single mutex
// keeps each mutation and its audit-comment emission atomic: no reader
// can observe a status change without the matching audit entry. A
// failed persist restores the prior in-memory state, so memory never
// diverges from the stored snapshot.
type Store struct {
	mu         sync.Mutex
	kv         kvstore.Store
	key        string
	dispatcher events.Dispatcher
	logger     *zap.Logger
	now        func() time.Time

	seq      uint64
	tickets  map[string]*domain.Ticket
	comments map[string][]domain.TicketComment
}

// snapshot is the persisted document shape. Comments are flattened in
// thread order; each carries its owning ticket id.
type snapshot struct {
	Seq      uint64                 `json:"seq"`
	Tickets  []domain.Ticket        `json:"tickets"`
	Comments []domain.TicketComment `json:"comments"`
}

// CreateInput describes ticket creation payload. Category accepts
// legacy aliases; they are canonicalized before storage.
type CreateInput struct {
	Title       string
	Description string
	Category    string
	Priority    domain.TicketPriority
	Attachments []string
	Metadata    map[string]string
}

// UpdateInput applies only the fields that are set. An empty
// AssignedTo string clears the assignment.
type UpdateInput struct {
	Title       *string
	Description *string
	Category    *string
	Priority    *domain.TicketPriority
	Status      *domain.TicketStatus
	AssignedTo  *string
}

// FilterParams compose with AND semantics; an absent filter matches
// everything. Unassigned selects tickets with no assignee explicitly.
type FilterParams struct {
	Statuses   []domain.TicketStatus
	Priorities []domain.TicketPriority
	Categories []domain.TicketCategory
	AssignedTo *string
	Unassigned bool
	Search     string
}

// NewStore loads the persisted snapshot and returns a ready store.
func NewStore(ctx context.Context, kv kvstore.Store, key string, dispatcher events.Dispatcher, logger *zap.Logger) (*Store, error) {
	s := &Store{
		kv:         kv,
		key:        key,
		dispatcher: dispatcher,
		logger:     logger,
		now:        time.Now,
		tickets:    make(map[string]*domain.Ticket),
		comments:   make(map[string][]domain.TicketComment),
	}

	raw, found, err := kv.Load(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load ticket snapshot: %w", err)
	}
	if found {
		var snap snapshot
		if err := json.Unmarshal(raw, &snap); err != nil {
			return nil, fmt.Errorf("decode ticket snapshot: %w", err)
		}
		s.seq = snap.Seq
		for i := range snap.Tickets {
			t := snap.Tickets[i]
			s.tickets[t.ID] = &t
		}
		for _, c := range snap.Comments {
			s.comments[c.TicketID] = append(s.comments[c.TicketID], c)
		}
		logger.Info("ticket snapshot loaded", zap.Int("tickets", len(snap.Tickets)))
	}
	return s, nil
}

// Create files a new ticket with status OPEN and no assignee.
func (s *Store) Create(ctx context.Context, actorID string, in CreateInput) (*domain.Ticket, error) {
	title := strings.TrimSpace(in.Title)
	description := strings.TrimSpace(in.Description)
	if title == "" || description == "" {
		return nil, apperrors.NewValidationError("title and description are required", nil)
	}

	category := domain.CategoryGeneral
	if in.Category != "" {
		canonical, ok := domain.CanonicalCategory(in.Category)
		if !ok {
			return nil, apperrors.NewValidationError("unknown category", map[string]any{"category": in.Category})
		}
		category = canonical
	}

	priority := in.Priority
	if priority == "" {
		priority = domain.TicketPriorityMedium
	}
	if !priority.Valid() {
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": priority})
	}

	s.mu.Lock()
	s.seq++
	now := s.now()
	ticket := &domain.Ticket{
		ID:          fmt.Sprintf("TCK-%06d", s.seq),
		Title:       title,
		Description: description,
		Category:    category,
		Priority:    priority,
		Status:      domain.TicketStatusOpen,
		CreatedBy:   actorID,
		Attachments: in.Attachments,
		Metadata:    in.Metadata,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.tickets[ticket.ID] = ticket
	if err := s.persistLocked(ctx); err != nil {
		delete(s.tickets, ticket.ID)
		s.seq--
		s.mu.Unlock()
		return nil, err
	}
	result := cloneTicket(ticket)
	s.mu.Unlock()

	observability.TicketsCreatedTotal.WithLabelValues(string(category)).Inc()
	s.publish(ctx, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: result.ID,
		Actor:    domain.Actor{ID: actorID, Kind: domain.ActorKindCustomer},
		Payload: events.TicketCreatedPayload{
			Category: result.Category,
			Priority: result.Priority,
			Title:    result.Title,
			Source:   in.Metadata["source"],
		},
	})
	return result, nil
}

// Get returns the ticket or nil when the id is unknown.
func (s *Store) Get(ctx context.Context, id string) *domain.Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	ticket, ok := s.tickets[id]
	if !ok {
		return nil
	}
	return cloneTicket(ticket)
}

// List returns every ticket, most recently updated first.
func (s *Store) List(ctx context.Context) []domain.Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.collectLocked(func(*domain.Ticket) bool { return true })
}

// ListForActor restricts to tickets created by the actor.
func (s *Store) ListForActor(ctx context.Context, actorID string) []domain.Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.collectLocked(func(t *domain.Ticket) bool { return t.CreatedBy == actorID })
}

// Update applies the provided fields. It returns (nil, nil) when the
// id is unknown; callers treat nil as not found. Staff-invoked changes
// to status, priority, or assignment each append one internal audit
// comment before the updated ticket is returned.
func (s *Store) Update(ctx context.Context, actor domain.Actor, id string, in UpdateInput) (*domain.Ticket, error) {
	if in.Status != nil && !in.Status.Valid() {
		return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": *in.Status})
	}
	if in.Priority != nil && !in.Priority.Valid() {
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": *in.Priority})
	}
	var category *domain.TicketCategory
	if in.Category != nil {
		canonical, ok := domain.CanonicalCategory(*in.Category)
		if !ok {
			return nil, apperrors.NewValidationError("unknown category", map[string]any{"category": *in.Category})
		}
		category = &canonical
	}

	s.mu.Lock()
	ticket, ok := s.tickets[id]
	if !ok {
		s.mu.Unlock()
		return nil, nil
	}

	now := s.now()
	prev := *cloneTicket(ticket)
	prevComments := s.comments[id]
	var pending []events.Event
	var auditBodies []string

	if in.Title != nil && strings.TrimSpace(*in.Title) != "" {
		ticket.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil && strings.TrimSpace(*in.Description) != "" {
		ticket.Description = strings.TrimSpace(*in.Description)
	}
	if category != nil {
		ticket.Category = *category
	}

	if in.Status != nil && *in.Status != ticket.Status {
		oldStatus := ticket.Status
		ticket.Status = *in.Status
		if ticket.Status == domain.TicketStatusClosed {
			closedAt := now
			ticket.ClosedAt = &closedAt
		} else if oldStatus == domain.TicketStatusClosed {
			ticket.ClosedAt = nil
		}
		auditBodies = append(auditBodies, fmt.Sprintf("status changed from %s to %s", oldStatus, ticket.Status))
		observability.TicketStatusChangesTotal.WithLabelValues("update", string(ticket.Status)).Inc()
		observability.AuditCommentsTotal.WithLabelValues("status").Inc()
		pending = append(pending, events.Event{
			Type:     events.EventTicketStatusChanged,
			TicketID: ticket.ID,
			Actor:    actor,
			Payload: events.TicketStatusChangedPayload{
				OldStatus: oldStatus,
				NewStatus: ticket.Status,
				Trigger:   "update",
			},
		})
	}

	if in.Priority != nil && *in.Priority != ticket.Priority {
		oldPriority := ticket.Priority
		ticket.Priority = *in.Priority
		auditBodies = append(auditBodies, fmt.Sprintf("priority changed from %s to %s", oldPriority, ticket.Priority))
		observability.AuditCommentsTotal.WithLabelValues("priority").Inc()
		pending = append(pending, events.Event{
			Type:     events.EventTicketPriorityChanged,
			TicketID: ticket.ID,
			Actor:    actor,
			Payload: events.TicketPriorityChangedPayload{
				OldPriority: oldPriority,
				NewPriority: ticket.Priority,
			},
		})
	}

	if in.AssignedTo != nil {
		oldAssignee := ticket.AssignedTo
		if *in.AssignedTo == "" {
			ticket.AssignedTo = nil
		} else {
			assignee := *in.AssignedTo
			ticket.AssignedTo = &assignee
		}
		if !assigneeEqual(oldAssignee, ticket.AssignedTo) {
			auditBodies = append(auditBodies, fmt.Sprintf("assignee changed from %s to %s",
				assigneeLabel(oldAssignee), assigneeLabel(ticket.AssignedTo)))
			observability.AuditCommentsTotal.WithLabelValues("assignee").Inc()
			pending = append(pending, events.Event{
				Type:     events.EventTicketAssigned,
				TicketID: ticket.ID,
				Actor:    actor,
				Payload: events.TicketAssignedPayload{
					OldAssignee: oldAssignee,
					NewAssignee: ticket.AssignedTo,
				},
			})
		}
	}

	ticket.UpdatedAt = now

	if actor.IsStaff() {
		for _, body := range auditBodies {
			s.comments[ticket.ID] = append(s.comments[ticket.ID], domain.TicketComment{
				ID:         uuid.NewString(),
				TicketID:   ticket.ID,
				Kind:       domain.CommentKindAudit,
				Body:       body,
				CreatedBy:  actor.ID,
				IsInternal: true,
				CreatedAt:  now,
			})
		}
	}

	if err := s.persistLocked(ctx); err != nil {
		*ticket = prev
		s.comments[id] = prevComments
		s.mu.Unlock()
		return nil, err
	}
	result := cloneTicket(ticket)
	s.mu.Unlock()

	for _, event := range pending {
		s.publish(ctx, event)
	}
	return result, nil
}

// AddComment appends a conversational comment. Whoever last replied is
// not the one expected to act next: a customer reply on
// WAITING_CUSTOMER reopens the ticket, a staff reply on OPEN moves it
// to WAITING_CUSTOMER. Internal notes never trigger the flip and the
// flip never produces an audit comment.
func (s *Store) AddComment(ctx context.Context, actor domain.Actor, ticketID, body string, isInternal bool, attachments []string) (*domain.TicketComment, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, apperrors.NewValidationError("comment body is required", nil)
	}
	if !actor.IsStaff() {
		isInternal = false
	}

	s.mu.Lock()
	ticket, ok := s.tickets[ticketID]
	if !ok {
		s.mu.Unlock()
		return nil, nil
	}

	now := s.now()
	prev := *cloneTicket(ticket)
	prevComments := s.comments[ticketID]
	comment := domain.TicketComment{
		ID:          uuid.NewString(),
		TicketID:    ticketID,
		Kind:        domain.CommentKindReply,
		Body:        body,
		CreatedBy:   actor.ID,
		IsInternal:  isInternal,
		Attachments: attachments,
		CreatedAt:   now,
	}
	s.comments[ticketID] = append(s.comments[ticketID], comment)

	var pending []events.Event
	if !isInternal {
		var flipped domain.TicketStatus
		switch {
		case !actor.IsStaff() && ticket.Status == domain.TicketStatusWaitingCustomer:
			flipped = domain.TicketStatusOpen
		case actor.IsStaff() && ticket.Status == domain.TicketStatusOpen:
			flipped = domain.TicketStatusWaitingCustomer
		}
		if flipped != "" {
			oldStatus := ticket.Status
			ticket.Status = flipped
			observability.TicketStatusChangesTotal.WithLabelValues("comment", string(flipped)).Inc()
			pending = append(pending, events.Event{
				Type:     events.EventTicketStatusChanged,
				TicketID: ticketID,
				Actor:    actor,
				Payload: events.TicketStatusChangedPayload{
					OldStatus: oldStatus,
					NewStatus: flipped,
					Trigger:   "comment",
				},
			})
		}
	}
	ticket.UpdatedAt = now

	if err := s.persistLocked(ctx); err != nil {
		*ticket = prev
		s.comments[ticketID] = prevComments
		s.mu.Unlock()
		return nil, err
	}
	result := comment
	s.mu.Unlock()

	pending = append(pending, events.Event{
		Type:     events.EventTicketCommentAdded,
		TicketID: ticketID,
		Actor:    actor,
		Payload: events.TicketCommentAddedPayload{
			CommentID:   result.ID,
			Kind:        result.Kind,
			IsInternal:  result.IsInternal,
			BodyPreview: bodyPreview(result.Body, 120),
		},
	})
	for _, event := range pending {
		s.publish(ctx, event)
	}
	return &result, nil
}

// GetComments returns the thread in chronological order. Internal
// entries are stripped unless the caller has been resolved as staff.
func (s *Store) GetComments(ctx context.Context, ticketID string, includeInternal bool) []domain.TicketComment {
	s.mu.Lock()
	defer s.mu.Unlock()
	thread := s.comments[ticketID]
	out := make([]domain.TicketComment, 0, len(thread))
	for _, comment := range thread {
		if comment.IsInternal && !includeInternal {
			continue
		}
		out = append(out, comment)
	}
	return out
}

// Filter applies conjunctive filtering over the whole store.
func (s *Store) Filter(ctx context.Context, params FilterParams) []domain.Ticket {
	search := strings.ToLower(strings.TrimSpace(params.Search))
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.collectLocked(func(t *domain.Ticket) bool {
		if len(params.Statuses) > 0 && !containsStatus(params.Statuses, t.Status) {
			return false
		}
		if len(params.Priorities) > 0 && !containsPriority(params.Priorities, t.Priority) {
			return false
		}
		if len(params.Categories) > 0 && !containsCategory(params.Categories, t.Category) {
			return false
		}
		if params.Unassigned {
			if t.AssignedTo != nil {
				return false
			}
		} else if params.AssignedTo != nil {
			if t.AssignedTo == nil || *t.AssignedTo != *params.AssignedTo {
				return false
			}
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(t.Title), search) &&
			!strings.Contains(strings.ToLower(t.Description), search) {
			return false
		}
		return true
	})
}

// ClearAll irreversibly empties tickets and comments. The monotonic
// id sequence keeps running so ids are never reused within a store
// instance.
func (s *Store) ClearAll(ctx context.Context, actor domain.Actor) error {
	s.mu.Lock()
	count := len(s.tickets)
	prevTickets, prevComments := s.tickets, s.comments
	s.tickets = make(map[string]*domain.Ticket)
	s.comments = make(map[string][]domain.TicketComment)
	if err := s.persistLocked(ctx); err != nil {
		s.tickets, s.comments = prevTickets, prevComments
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	s.logger.Warn("ticket store cleared", zap.Int("removed", count), zap.String("actor", actor.ID))
	s.publish(ctx, events.Event{
		Type:  events.EventTicketsCleared,
		Actor: actor,
	})
	return nil
}

func (s *Store) collectLocked(match func(*domain.Ticket) bool) []domain.Ticket {
	out := make([]domain.Ticket, 0, len(s.tickets))
	for _, ticket := range s.tickets {
		if match(ticket) {
			out = append(out, *cloneTicket(ticket))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (s *Store) persistLocked(ctx context.Context) error {
	snap := snapshot{Seq: s.seq, Tickets: make([]domain.Ticket, 0, len(s.tickets))}
	ids := make([]string, 0, len(s.tickets))
	for id := range s.tickets {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		snap.Tickets = append(snap.Tickets, *s.tickets[id])
		snap.Comments = append(snap.Comments, s.comments[id]...)
	}

	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode ticket snapshot: %w", err)
	}
	if err := s.kv.Save(ctx, s.key, raw); err != nil {
		return fmt.Errorf("save ticket snapshot: %w", err)
	}
	return nil
}

func (s *Store) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func cloneTicket(t *domain.Ticket) *domain.Ticket {
	clone := *t
	if t.AssignedTo != nil {
		assignee := *t.AssignedTo
		clone.AssignedTo = &assignee
	}
	if t.ClosedAt != nil {
		closedAt := *t.ClosedAt
		clone.ClosedAt = &closedAt
	}
	if t.Attachments != nil {
		clone.Attachments = append([]string(nil), t.Attachments...)
	}
	if t.Metadata != nil {
		clone.Metadata = make(map[string]string, len(t.Metadata))
		for k, v := range t.Metadata {
			clone.Metadata[k] = v
		}
	}
	return &clone
}

func assigneeEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func assigneeLabel(assignee *string) string {
	if assignee == nil {
		return "unassigned"
	}
	return *assignee
}

func containsStatus(set []domain.TicketStatus, status domain.TicketStatus) bool {
	for _, candidate := range set {
		if candidate == status {
			return true
		}
	}
	return false
}

func containsPriority(set []domain.TicketPriority, priority domain.TicketPriority) bool {
	for _, candidate := range set {
		if candidate == priority {
			return true
		}
	}
	return false
}

func containsCategory(set []domain.TicketCategory, category domain.TicketCategory) bool {
	for _, candidate := range set {
		if candidate == category {
			return true
		}
	}
	return false
}

func bodyPreview(body string, max int) string {
	if len(body) <= max {
		return body
	}
	if max <= 3 {
		return body[:max]
	}
	return body[:max-3] + "..."
}
