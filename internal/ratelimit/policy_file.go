package ratelimit

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// LoadPolicyFile reads class policies from a YAML document such as
//
//	create-todo:
//	  rate: 10
//	  period: 1m
//	  capacity: 3
func LoadPolicyFile(path string) (Policies, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy file: %w", err)
	}
	return ParsePolicies(b)
}

func ParsePolicies(b []byte) (Policies, error) {
	var p Policies
	if err := yaml.Unmarshal(b, &p); err != nil {
		return nil, fmt.Errorf("parse policies: %w", err)
	}
	for class, pol := range p {
		// Capacity defaults to the per-period rate.
		if pol.Capacity == 0 {
			pol.Capacity = int(pol.Rate)
			p[class] = pol
		}
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}
