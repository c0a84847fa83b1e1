package dto

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	dom "TodoApp/internal/domain"
)

// DueDate parses due_date from JSON as either date-only ("2006-01-02") or RFC3339.
// Date-only is stored as start of that day in UTC.
type DueDate struct{ t *time.Time }

func (d *DueDate) UnmarshalJSON(data []byte) error {
	var raw *string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil || strings.TrimSpace(*raw) == "" {
		d.t = nil
		return nil
	}
	s := strings.TrimSpace(*raw)
	layouts := []string{
		"2006-01-02",
		time.RFC3339,
		time.RFC3339Nano,
		"2006-01-02T15:04:05",
	}
	for _, layout := range layouts {
		parsed, err := time.Parse(layout, s)
		if err == nil {
			parsed = parsed.UTC()
			d.t = &parsed
			return nil
		}
	}
	return fmt.Errorf("due_date: use date (YYYY-MM-DD) or RFC3339 datetime")
}

// Ptr returns *time.Time for use in service/domain.
func (d *DueDate) Ptr() *time.Time {
	if d == nil {
		return nil
	}
	return d.t
}

type CreateTodoRequest struct {
	Title       string  `json:"title" example:"Buy milk"`
	Description *string `json:"description"`
	Priority    string  `json:"priority" example:"medium"` // defaults to medium
	DueDate     DueDate `json:"due_date" swaggertype:"string" example:"2026-12-31"`
}

// Input converts the request into domain input.
func (r CreateTodoRequest) Input() dom.CreateInput {
	p := dom.Priority(strings.TrimSpace(r.Priority))
	if p == "" {
		p = dom.PriorityMedium
	}
	return dom.CreateInput{
		Title:       r.Title,
		Description: r.Description,
		Priority:    p,
		DueDate:     r.DueDate.Ptr(),
	}
}

// UpdateTodoRequest is a partial update; omitted or null fields are left unchanged.
type UpdateTodoRequest struct {
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	Status      *string  `json:"status" example:"completed"`
	Priority    *string  `json:"priority"`
	DueDate     *DueDate `json:"due_date" swaggertype:"string"`
}

// Patch converts the request into a domain patch.
func (r UpdateTodoRequest) Patch() dom.TodoPatch {
	p := dom.TodoPatch{
		Title:       r.Title,
		Description: r.Description,
		DueDate:     r.DueDate.Ptr(),
	}
	if r.Status != nil {
		s := dom.Status(*r.Status)
		p.Status = &s
	}
	if r.Priority != nil {
		pr := dom.Priority(*r.Priority)
		p.Priority = &pr
	}
	return p
}

type TodoResponse struct {
	ID          string     `json:"id"`
	OwnerID     string     `json:"owner_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	Priority    string     `json:"priority"`
	DueDate     *time.Time `json:"due_date"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func NewTodoResponse(t dom.Todo) TodoResponse {
	return TodoResponse{
		ID:          t.ID,
		OwnerID:     t.OwnerID,
		Title:       t.Title,
		Description: t.Description,
		Status:      string(t.Status),
		Priority:    string(t.Priority),
		DueDate:     t.DueDate,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

type ListTodosResponse struct {
	Items []TodoResponse `json:"items"`
}

func NewListTodosResponse(list []dom.Todo) ListTodosResponse {
	out := make([]TodoResponse, len(list))
	for i := range list {
		out[i] = NewTodoResponse(list[i])
	}
	return ListTodosResponse{Items: out}
}

type StatsResponse struct {
	Total      int            `json:"total"`
	Active     int            `json:"active"`
	Completed  int            `json:"completed"`
	Archived   int            `json:"archived"`
	ByPriority map[string]int `json:"by_priority"`
}

func NewStatsResponse(s dom.Stats) StatsResponse {
	return StatsResponse{
		Total:     s.Total,
		Active:    s.Active,
		Completed: s.Completed,
		Archived:  s.Archived,
		ByPriority: map[string]int{
			string(dom.PriorityHigh):   s.ByPriority.High,
			string(dom.PriorityMedium): s.ByPriority.Medium,
			string(dom.PriorityLow):    s.ByPriority.Low,
		},
	}
}

// ErrorResponse is the body of every failed request. Kind is stable for
// clients to switch on; the other fields are set per kind.
type ErrorResponse struct {
	Error        string `json:"error"`
	Kind         string `json:"kind,omitempty"`
	Field        string `json:"field,omitempty"`
	Reason       string `json:"reason,omitempty"`
	From         string `json:"from,omitempty"`
	To           string `json:"to,omitempty"`
	RetryAfterMs int64  `json:"retry_after_ms,omitempty"`
}
