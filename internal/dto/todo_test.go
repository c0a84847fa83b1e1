package dto

import (
	"encoding/json"
	"testing"
	"time"

	dom "TodoApp/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDueDate_Layouts(t *testing.T) {
	tests := []struct {
		in   string
		want *time.Time
		err  bool
	}{
		{`{"due_date":"2026-12-31"}`, ptrTime(time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)), false},
		{`{"due_date":"2026-12-31T10:30:00+02:00"}`, ptrTime(time.Date(2026, 12, 31, 8, 30, 0, 0, time.UTC)), false},
		{`{"due_date":"2026-12-31T10:30:00"}`, ptrTime(time.Date(2026, 12, 31, 10, 30, 0, 0, time.UTC)), false},
		{`{"due_date":""}`, nil, false},
		{`{"due_date":null}`, nil, false},
		{`{}`, nil, false},
		{`{"due_date":"tomorrow"}`, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var req CreateTodoRequest
			err := json.Unmarshal([]byte(tt.in), &req)
			if tt.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, req.DueDate.Ptr())
		})
	}
}

func TestCreateTodoRequest_DefaultsPriority(t *testing.T) {
	in := CreateTodoRequest{Title: "a"}.Input()
	assert.Equal(t, dom.PriorityMedium, in.Priority)

	in = CreateTodoRequest{Title: "a", Priority: "high"}.Input()
	assert.Equal(t, dom.PriorityHigh, in.Priority)
}

func TestUpdateTodoRequest_OnlySuppliedFields(t *testing.T) {
	var req UpdateTodoRequest
	require.NoError(t, json.Unmarshal([]byte(`{"status":"archived","title":null}`), &req))
	p := req.Patch()
	require.NotNil(t, p.Status)
	assert.Equal(t, dom.StatusArchived, *p.Status)
	assert.Nil(t, p.Title)
	assert.Nil(t, p.Priority)
	assert.Nil(t, p.DueDate)

	assert.True(t, UpdateTodoRequest{}.Patch().IsEmpty())
}

func ptrTime(t time.Time) *time.Time { return &t }
