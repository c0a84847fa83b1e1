package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestComputeStats(t *testing.T) {
	todos := []Todo{
		{Status: StatusActive, Priority: PriorityHigh},
		{Status: StatusActive, Priority: PriorityHigh},
		{Status: StatusActive, Priority: PriorityLow},
		{Status: StatusCompleted, Priority: PriorityHigh},
		{Status: StatusArchived, Priority: PriorityMedium},
	}

	got := ComputeStats(todos)
	assert.Equal(t, Stats{
		Total:      5,
		Active:     3,
		Completed:  1,
		Archived:   1,
		ByPriority: PriorityCounts{High: 2, Medium: 0, Low: 1},
	}, got)
	assert.Equal(t, Stats{}, ComputeStats(nil))
}

func TestTodoPatch_Apply(t *testing.T) {
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	base := Todo{ID: "1", OwnerID: "u1", Title: "old", Status: StatusActive, Priority: PriorityLow, CreatedAt: created, UpdatedAt: created}

	title := "new"
	status := StatusCompleted
	later := created.Add(time.Hour)
	out := TodoPatch{Title: &title, Status: &status}.Apply(base, later)

	assert.Equal(t, "new", out.Title)
	assert.Equal(t, StatusCompleted, out.Status)
	assert.Equal(t, PriorityLow, out.Priority)
	assert.Equal(t, "u1", out.OwnerID)
	assert.Equal(t, created, out.CreatedAt)
	assert.Equal(t, later, out.UpdatedAt)
	assert.True(t, TodoPatch{}.IsEmpty())
	assert.False(t, TodoPatch{Title: &title}.IsEmpty())
}
