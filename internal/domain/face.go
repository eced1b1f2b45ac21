package domain

import (
	"strings"
)

// Category is the watch-list class an enrolled identity belongs to.
type Category string

const (
	CategoryCitizen  Category = "citizen"
	CategoryOfficial Category = "official"
	CategoryCriminal Category = "criminal"
	CategoryUnknown  Category = "unknown"
)

// UnknownLabel is reported as the matched identity when no enrolled face is close enough.
const UnknownLabel = "unknown"

// EnrollCategories lists the categories an identity may be enrolled under, in
// precedence order.
var EnrollCategories = []Category{CategoryOfficial, CategoryCitizen, CategoryCriminal}

// IsEnrollable reports whether c names a gallery category directory.
func (c Category) IsEnrollable() bool {
	switch c {
	case CategoryCitizen, CategoryOfficial, CategoryCriminal:
		return true
	}
	return false
}

// ParseCategory normalizes user input. Anything unrecognized falls back to citizen.
func ParseCategory(s string) Category {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if c.IsEnrollable() {
		return c
	}
	return CategoryCitizen
}

// Identity is one enrolled person and the crops on disk that belong to them.
type Identity struct {
	ID        string   `json:"id"`
	Category  Category `json:"category"`
	CropPaths []string `json:"-"`
}

// ValidateIdentityID checks that id can be used as a single directory name.
func ValidateIdentityID(id string) error {
	if id == "" || id == "." || id == ".." {
		return ErrInvalidIdentity
	}
	if strings.TrimSpace(id) != id {
		return ErrInvalidIdentity
	}
	if strings.ContainsAny(id, `/\:*?"<>|`) {
		return ErrInvalidIdentity
	}
	for _, r := range id {
		if r < 0x20 || r == 0x7f {
			return ErrInvalidIdentity
		}
	}
	return nil
}
