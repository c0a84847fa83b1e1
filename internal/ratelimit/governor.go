package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// Operation classes.
const (
	ClassCreateTodo = "create-todo"
	ClassUpdateTodo = "update-todo"
	ClassDeleteTodo = "delete-todo"
)

// Governor decides whether an operation may run now.
type Governor interface {
	Admit(ctx context.Context, class, key string) (Decision, error)
}

// Decision is the outcome of an admission check.
type Decision struct {
	Allowed bool
	// RetryAfter is the wait before the next token is available. Zero when allowed.
	RetryAfter time.Duration
}

// Policy describes one token bucket.
type Policy struct {
	Rate     float64       `yaml:"rate"`
	Period   time.Duration `yaml:"period"`
	Capacity int           `yaml:"capacity"`
}

// PerSecond is the refill rate in tokens per second.
func (p Policy) PerSecond() float64 {
	if p.Period <= 0 {
		return 0
	}
	return p.Rate / p.Period.Seconds()
}

// Validate rejects buckets that could never admit anything.
func (p Policy) Validate() error {
	if p.Rate <= 0 {
		return fmt.Errorf("rate must be > 0, got %v", p.Rate)
	}
	if p.Period <= 0 {
		return fmt.Errorf("period must be > 0, got %s", p.Period)
	}
	if p.Capacity <= 0 {
		return fmt.Errorf("capacity must be > 0, got %d", p.Capacity)
	}
	return nil
}

// Policies maps an operation class to its bucket.
type Policies map[string]Policy

// DefaultPolicies: creates allow a small burst, updates and deletes a steadier rate.
func DefaultPolicies() Policies {
	return Policies{
		ClassCreateTodo: {Rate: 10, Period: time.Minute, Capacity: 3},
		ClassUpdateTodo: {Rate: 30, Period: time.Minute, Capacity: 30},
		ClassDeleteTodo: {Rate: 20, Period: time.Minute, Capacity: 20},
	}
}

// Merge returns a copy of p with every entry of other replacing p's.
func (p Policies) Merge(other Policies) Policies {
	out := make(Policies, len(p)+len(other))
	for k, v := range p {
		out[k] = v
	}
	for k, v := range other {
		out[k] = v
	}
	return out
}

// Validate checks every policy.
func (p Policies) Validate() error {
	for class, pol := range p {
		if err := pol.Validate(); err != nil {
			return fmt.Errorf("policy %s: %w", class, err)
		}
	}
	return nil
}

func bucketKey(class, key string) string {
	return class + ":" + key
}
