package domain

import (
	"errors"
	"strings"
	"time"
)

// Service is an entry of the service catalog.
type Service struct {
	ID          string
	Name        string
	Description string
	Category    string
	// PriceCents is the price in the smallest currency unit; never negative.
	PriceCents int64
	Active     bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Validate checks the invariants of a service record.
func (s *Service) Validate() error {
	s.Name = strings.TrimSpace(s.Name)
	if s.Name == "" {
		return errors.New("name is required")
	}
	if s.PriceCents < 0 {
		return errors.New("price must not be negative")
	}
	return nil
}

// Patch is a partial service update. Nil fields are left unchanged.
type Patch struct {
	Name        *string
	Description *string
	Category    *string
	PriceCents  *int64
	Active      *bool
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Name == nil && p.Description == nil && p.Category == nil && p.PriceCents == nil && p.Active == nil
}

// Apply copies the set fields onto s and validates the result.
func (p Patch) Apply(s *Service) error {
	if p.Name != nil {
		s.Name = *p.Name
	}
	if p.Description != nil {
		s.Description = *p.Description
	}
	if p.Category != nil {
		s.Category = *p.Category
	}
	if p.PriceCents != nil {
		s.PriceCents = *p.PriceCents
	}
	if p.Active != nil {
		s.Active = *p.Active
	}
	return s.Validate()
}
