package domain

import (
	"errors"
	"strings"
	"time"
)

// BirthDateLayout is the wire and storage format of birth dates.
const BirthDateLayout = "2006-01-02"

// Profile is the application-side record of a person, keyed by the id of the identity it
// belongs to. A profile never exists without its identity.
type Profile struct {
	IdentityID  string
	DisplayName string
	Surname1    string
	// Surname2 is optional; nil when absent.
	Surname2  *string
	BirthDate time.Time
	// Email is copied from the identity at registration.
	Email     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate returns an error describing the first missing field.
func (p *Profile) Validate() error {
	switch {
	case p.IdentityID == "":
		return errors.New("identity id is required")
	case strings.TrimSpace(p.DisplayName) == "":
		return errors.New("display name is required")
	case strings.TrimSpace(p.Surname1) == "":
		return errors.New("surname1 is required")
	case p.BirthDate.IsZero():
		return errors.New("birth date is required")
	case p.Email == "":
		return errors.New("email is required")
	}
	return nil
}

// FullName is the display name followed by the first surname, as stored in identity metadata.
func (p *Profile) FullName() string {
	return p.DisplayName + " " + p.Surname1
}

// Patch is a partial profile update. Nil fields are left unchanged. An empty Surname2
// clears it.
type Patch struct {
	DisplayName *string
	Surname1    *string
	Surname2    *string
	BirthDate   *time.Time
}

// Empty reports whether the patch changes nothing.
func (u Patch) Empty() bool {
	return u.DisplayName == nil && u.Surname1 == nil && u.Surname2 == nil && u.BirthDate == nil
}

// Apply copies the set fields onto p and validates the result.
func (u Patch) Apply(p *Profile) error {
	if u.DisplayName != nil {
		p.DisplayName = strings.TrimSpace(*u.DisplayName)
	}
	if u.Surname1 != nil {
		p.Surname1 = strings.TrimSpace(*u.Surname1)
	}
	if u.Surname2 != nil {
		s := strings.TrimSpace(*u.Surname2)
		if s == "" {
			p.Surname2 = nil
		} else {
			p.Surname2 = &s
		}
	}
	if u.BirthDate != nil {
		p.BirthDate = *u.BirthDate
	}
	return p.Validate()
}

// ParseBirthDate parses s as YYYY-MM-DD. Dates in the future are rejected.
func ParseBirthDate(s string, now time.Time) (time.Time, error) {
	d, err := time.Parse(BirthDateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, errors.New("birth date must be YYYY-MM-DD")
	}
	if d.After(now) {
		return time.Time{}, errors.New("birth date is in the future")
	}
	return d, nil
}
