package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

const (
	MaxTitleLength       = 200
	MaxDescriptionLength = 2000
)

// Reasons reported by the validator.
const (
	ReasonTitle       = "Title must be between 1 and 200 characters"
	ReasonDescription = "Description must be under 2000 characters"
	ReasonDueDate     = "Due date must be in the future"
	ReasonStatus      = "Status must be active, completed, or archived"
	ReasonPriority    = "Priority must be low, medium, or high"
)

// ValidateTitle checks that the title is not blank and at most MaxTitleLength characters.
func ValidateTitle(title string) error {
	if strings.TrimSpace(title) == "" || utf8.RuneCountInString(title) > MaxTitleLength {
		return &ValidationError{Field: "title", Reason: ReasonTitle}
	}
	return nil
}

// ValidateDescription accepts a nil description.
func ValidateDescription(desc *string) error {
	if desc != nil && utf8.RuneCountInString(*desc) > MaxDescriptionLength {
		return &ValidationError{Field: "description", Reason: ReasonDescription}
	}
	return nil
}

// ValidateDueDate requires a present due date to be strictly after now.
func ValidateDueDate(due *time.Time, now time.Time) error {
	if due != nil && !due.After(now) {
		return &ValidationError{Field: "due_date", Reason: ReasonDueDate}
	}
	return nil
}

func ValidateStatus(s Status) error {
	if !s.IsValid() {
		return &ValidationError{Field: "status", Reason: ReasonStatus}
	}
	return nil
}

func ValidatePriority(p Priority) error {
	if !p.IsValid() {
		return &ValidationError{Field: "priority", Reason: ReasonPriority}
	}
	return nil
}

// ValidateCreate checks a new todo. The first failing rule wins, in the order
// title, description, due date, priority.
func ValidateCreate(in CreateInput, now time.Time) error {
	if err := ValidateTitle(in.Title); err != nil {
		return err
	}
	if err := ValidateDescription(in.Description); err != nil {
		return err
	}
	if err := ValidateDueDate(in.DueDate, now); err != nil {
		return err
	}
	return ValidatePriority(in.Priority)
}

// ValidatePatch checks only the fields present in p, in the order title,
// description, status, due date, priority.
func ValidatePatch(p TodoPatch, now time.Time) error {
	if p.Title != nil {
		if err := ValidateTitle(*p.Title); err != nil {
			return err
		}
	}
	if err := ValidateDescription(p.Description); err != nil {
		return err
	}
	if p.Status != nil {
		if err := ValidateStatus(*p.Status); err != nil {
			return err
		}
	}
	if err := ValidateDueDate(p.DueDate, now); err != nil {
		return err
	}
	if p.Priority != nil {
		return ValidatePriority(*p.Priority)
	}
	return nil
}
