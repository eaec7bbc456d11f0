// Package tenant defines the people who occupy rooms.
//
// A Tenant belongs to exactly one room while resident. Usage records copy
// the room's tenant list at creation time, so editing a tenant never rewrites
// billing history.
package tenant

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ttacon/libphonenumber"

	"github.com/nhatro/rentledger/id"
)

// DefaultRegion is the phone-number region used when a number carries no
// international prefix.
const DefaultRegion = "VN"

// Tenant is a resident of a room. Identity fields beyond Name are optional
// and usually come from an ID card.
type Tenant struct {
	ID         id.TenantID `json:"id"`
	Name       string      `json:"name"`
	Phone      string      `json:"phone,omitempty"`
	MoveInDate time.Time   `json:"move_in_date"`

	// ID-document fields.
	IDNumber    string `json:"id_number,omitempty"`
	BirthDate   string `json:"birth_date,omitempty"`
	Sex         string `json:"sex,omitempty"`
	Nationality string `json:"nationality,omitempty"`
	Origin      string `json:"origin,omitempty"`
	Residence   string `json:"residence,omitempty"`
	Occupation  string `json:"occupation,omitempty"`

	// PhotoURL references an uploaded portrait or ID-card image.
	PhotoURL string `json:"photo_url,omitempty"`
}

// ErrInvalidPhone is returned by NormalizePhone for numbers that do not
// parse or are not dialable.
var ErrInvalidPhone = errors.New("tenant: invalid phone number")

// NormalizePhone parses a phone number in the default region and returns it
// in national format ("098 765 43 21" style grouping as libphonenumber
// renders it). An empty input is returned unchanged.
func NormalizePhone(phone string) (string, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return "", nil
	}

	num, err := libphonenumber.Parse(phone, DefaultRegion)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidPhone, err)
	}
	if !libphonenumber.IsValidNumber(num) {
		return "", ErrInvalidPhone
	}
	return libphonenumber.Format(num, libphonenumber.NATIONAL), nil
}

// Clone returns a copy of the tenant list. Tenant holds only value fields, so
// a shallow copy of each element is a full copy.
func Clone(list []Tenant) []Tenant {
	if list == nil {
		return nil
	}
	out := make([]Tenant, len(list))
	copy(out, list)
	return out
}

// Names joins tenant names with ", " for display on invoices and exports.
func Names(list []Tenant) string {
	names := make([]string, 0, len(list))
	for _, t := range list {
		names = append(names, t.Name)
	}
	return strings.Join(names, ", ")
}

// Find returns the index of the tenant with the given ID, or -1.
func Find(list []Tenant, tenantID id.TenantID) int {
	for i := range list {
		if list[i].ID == tenantID {
			return i
		}
	}
	return -1
}
