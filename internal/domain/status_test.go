package domain

import (
	"errors"
	"testing"
)

func TestCanTransition_AllPairs(t *testing.T) {
	allowed := map[[2]Status]bool{
		{StatusActive, StatusCompleted}:   true,
		{StatusActive, StatusArchived}:    true,
		{StatusCompleted, StatusActive}:   true,
		{StatusCompleted, StatusArchived}: true,
		{StatusArchived, StatusActive}:    true,
	}

	for _, from := range ValidStatuses() {
		for _, to := range ValidStatuses() {
			want := allowed[[2]Status{from, to}]
			if got := CanTransition(from, to); got != want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", from, to, got, want)
			}

			err := CheckTransition(from, to)
			if want {
				if err != nil {
					t.Errorf("CheckTransition(%s, %s) unexpected error: %v", from, to, err)
				}
				continue
			}
			var te *TransitionError
			if !errors.As(err, &te) {
				t.Fatalf("CheckTransition(%s, %s) = %v, want *TransitionError", from, to, err)
			}
			if te.From != from || te.To != to {
				t.Errorf("TransitionError = %s -> %s, want %s -> %s", te.From, te.To, from, to)
			}
			if !errors.Is(err, ErrIllegalTransition) {
				t.Errorf("expected %v to match ErrIllegalTransition", err)
			}
		}
	}
}

func TestCanTransition_UnknownStatus(t *testing.T) {
	if CanTransition("paused", StatusActive) {
		t.Fatalf("unknown source status must not transition")
	}
}

func TestStatusAndPriority_IsValid(t *testing.T) {
	for _, s := range ValidStatuses() {
		if !s.IsValid() {
			t.Errorf("%q should be valid", s)
		}
	}
	for _, p := range ValidPriorities() {
		if !p.IsValid() {
			t.Errorf("%q should be valid", p)
		}
	}
	if Status("done").IsValid() || Priority("urgent").IsValid() || Status("").IsValid() {
		t.Errorf("unexpected valid enum value")
	}
}
