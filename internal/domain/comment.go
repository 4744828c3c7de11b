package domain

import "time"

// CommentKind discriminates conversational replies from audit entries
// so a single ordered thread serves both purposes.
type CommentKind string

const (
	CommentKindReply CommentKind = "REPLY"
	CommentKindAudit CommentKind = "AUDIT"
)

// TicketComment is one entry in a ticket's append-only thread. Audit
// entries are always internal.
type TicketComment struct {
	ID          string      `json:"id"`
	TicketID    string      `json:"ticket_id"`
	Kind        CommentKind `json:"kind"`
	Body        string      `json:"body"`
	CreatedBy   string      `json:"created_by"`
	IsInternal  bool        `json:"is_internal"`
	Attachments []string    `json:"attachments,omitempty"`
	EmailSent   bool        `json:"is_email_sent,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}
