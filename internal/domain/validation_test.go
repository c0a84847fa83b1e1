package domain

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestValidateTitle(t *testing.T) {
	tests := []struct {
		name    string
		title   string
		wantErr bool
	}{
		{"valid short", "Buy milk", false},
		{"exactly max", strings.Repeat("a", MaxTitleLength), false},
		{"max with multibyte", strings.Repeat("a", MaxTitleLength-1) + "é", false},
		{"empty", "", true},
		{"whitespace only", "   \t", true},
		{"one over max", strings.Repeat("a", MaxTitleLength+1), true},
		{"padded over max", " " + strings.Repeat("a", MaxTitleLength), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTitle(tt.title)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrValidation))
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, "title", ve.Field)
			assert.Equal(t, ReasonTitle, ve.Reason)
		})
	}
}

func TestValidateDescription(t *testing.T) {
	assert.NoError(t, ValidateDescription(nil))
	assert.NoError(t, ValidateDescription(strPtr("")))
	assert.NoError(t, ValidateDescription(strPtr(strings.Repeat("d", MaxDescriptionLength))))
	assert.ErrorIs(t, ValidateDescription(strPtr(strings.Repeat("d", MaxDescriptionLength+1))), ErrValidation)
}

func TestValidateDueDate(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Second)
	future := now.Add(time.Nanosecond)

	assert.NoError(t, ValidateDueDate(nil, now))
	assert.NoError(t, ValidateDueDate(&future, now))
	assert.ErrorIs(t, ValidateDueDate(&now, now), ErrValidation, "due date equal to now must fail")
	assert.ErrorIs(t, ValidateDueDate(&past, now), ErrValidation)
}

func TestValidateCreate_FirstFailureWins(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)

	tests := []struct {
		name      string
		in        CreateInput
		wantField string
	}{
		{"valid", CreateInput{Title: "t", Priority: PriorityLow}, ""},
		{"title before everything", CreateInput{Title: "", Description: strPtr(strings.Repeat("x", 3000)), DueDate: &past, Priority: "urgent"}, "title"},
		{"description before due date", CreateInput{Title: "t", Description: strPtr(strings.Repeat("x", 3000)), DueDate: &past, Priority: "urgent"}, "description"},
		{"due date before priority", CreateInput{Title: "t", DueDate: &past, Priority: "urgent"}, "due_date"},
		{"priority", CreateInput{Title: "t", Priority: "urgent"}, "priority"},
		{"priority required", CreateInput{Title: "t"}, "priority"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCreate(tt.in, now)
			if tt.wantField == "" {
				assert.NoError(t, err)
				return
			}
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.wantField, ve.Field)
		})
	}
}

func TestValidatePatch_OnlySuppliedFields(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	bad := Status("done")
	past := now.Add(-time.Minute)
	prio := Priority("urgent")

	assert.NoError(t, ValidatePatch(TodoPatch{}, now))
	assert.NoError(t, ValidatePatch(TodoPatch{Description: strPtr("")}, now))

	var ve *ValidationError
	require.ErrorAs(t, ValidatePatch(TodoPatch{Status: &bad, DueDate: &past}, now), &ve)
	assert.Equal(t, "status", ve.Field)

	require.ErrorAs(t, ValidatePatch(TodoPatch{DueDate: &past, Priority: &prio}, now), &ve)
	assert.Equal(t, "due_date", ve.Field)

	require.ErrorAs(t, ValidatePatch(TodoPatch{Title: strPtr(" "), Status: &bad}, now), &ve)
	assert.Equal(t, "title", ve.Field)
}
