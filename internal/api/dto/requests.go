package dto

// LoginRequest payload.
type LoginRequest struct {
	Identifier string `json:"identifier" validate:"required"`
	Secret     string `json:"secret" validate:"required"`
}

// CreateTicketRequest payload. Source marks tickets filed by the
// e-mail ingestion collaborator.
type CreateTicketRequest struct {
	Title       string   `json:"title" validate:"required"`
	Description string   `json:"description" validate:"required"`
	Category    string   `json:"category"`
	Priority    string   `json:"priority" validate:"omitempty,oneof=LOW MEDIUM HIGH URGENT"`
	Attachments []string `json:"attachments"`
	Source      string   `json:"source"`
}

// UpdateTicketRequest applies only the fields present in the payload.
// An empty assigned_to string clears the assignment.
type UpdateTicketRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Category    *string `json:"category"`
	Priority    *string `json:"priority" validate:"omitempty,oneof=LOW MEDIUM HIGH URGENT"`
	Status      *string `json:"status" validate:"omitempty,oneof=OPEN IN_PROGRESS WAITING_CUSTOMER RESOLVED CLOSED"`
	AssignedTo  *string `json:"assigned_to"`
}

// CreateCommentRequest payload. Only staff may set is_internal.
type CreateCommentRequest struct {
	Body        string   `json:"body" validate:"required"`
	IsInternal  bool     `json:"is_internal"`
	Attachments []string `json:"attachments"`
}

// RoleRequest carries role form data for create and update.
type RoleRequest struct {
	Name        string   `json:"name" validate:"required"`
	Description string   `json:"description"`
	Permissions []string `json:"permissions"`
}
