package domain

import "time"

// Todo is the domain entity. It does not depend on gin, Postgres, DynamoDB or Redis.
type Todo struct {
	ID          string     `json:"id"`
	OwnerID     string     `json:"owner_id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      Status     `json:"status"`
	Priority    Priority   `json:"priority"`
	DueDate     *time.Time `json:"due_date,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// OwnedBy reports whether userID owns the todo.
func (t Todo) OwnedBy(userID string) bool {
	return t.OwnerID == userID
}

// CreateInput carries the caller-supplied fields of a new todo.
// Status is deliberately absent: new todos always start active.
type CreateInput struct {
	Title       string
	Description *string
	Priority    Priority
	DueDate     *time.Time
}

// TodoPatch is a partial update. Nil fields are left unchanged.
type TodoPatch struct {
	Title       *string
	Description *string
	Status      *Status
	Priority    *Priority
	DueDate     *time.Time
}

// IsEmpty reports whether the patch changes no field.
func (p TodoPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Status == nil && p.Priority == nil && p.DueDate == nil
}

// Apply returns t with the supplied fields of p and UpdatedAt set to at.
func (p TodoPatch) Apply(t Todo, at time.Time) Todo {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Description != nil {
		t.Description = *p.Description
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.Priority != nil {
		t.Priority = *p.Priority
	}
	if p.DueDate != nil {
		d := *p.DueDate
		t.DueDate = &d
	}
	t.UpdatedAt = at
	return t
}

// Identity is the resolved caller of a domain operation.
type Identity struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

// Stats is derived from the owner's todos on every call; nothing here is stored.
type Stats struct {
	Total      int            `json:"total"`
	Active     int            `json:"active"`
	Completed  int            `json:"completed"`
	Archived   int            `json:"archived"`
	ByPriority PriorityCounts `json:"by_priority"`
}

// PriorityCounts counts active todos per priority level.
type PriorityCounts struct {
	High   int `json:"high"`
	Medium int `json:"medium"`
	Low    int `json:"low"`
}

// ComputeStats counts todos by status, and active todos by priority.
func ComputeStats(todos []Todo) Stats {
	var s Stats
	s.Total = len(todos)
	for _, t := range todos {
		switch t.Status {
		case StatusActive:
			s.Active++
		case StatusCompleted:
			s.Completed++
		case StatusArchived:
			s.Archived++
		}
		if t.Status != StatusActive {
			continue
		}
		switch t.Priority {
		case PriorityHigh:
			s.ByPriority.High++
		case PriorityMedium:
			s.ByPriority.Medium++
		case PriorityLow:
			s.ByPriority.Low++
		}
	}
	return s
}
