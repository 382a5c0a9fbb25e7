// Package identity collects who is calling before a chat may start.
package identity

import (
	"errors"
	"strings"
)

// GuestName is the display name given to callers who skip the form.
const GuestName = "Guest"

var ErrNameRequired = errors.New("display name is required")

// Profile identifies the caller for the lifetime of one chat. It is passed
// by value and never changed after the gate produces it.
type Profile struct {
	DisplayName string `json:"displayName"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
	IsGuest     bool   `json:"isGuest"`
}

// Submit validates the identification form. Contact details are kept only
// for registered callers.
func Submit(displayName, email, phone string, asGuest bool) (Profile, error) {
	name := strings.TrimSpace(displayName)
	if name == "" {
		return Profile{}, ErrNameRequired
	}
	p := Profile{DisplayName: name, IsGuest: asGuest}
	if !asGuest {
		p.Email = strings.TrimSpace(email)
		p.Phone = strings.TrimSpace(phone)
	}
	return p, nil
}

// ContinueAsGuest skips the form entirely.
func ContinueAsGuest() Profile {
	return Profile{DisplayName: GuestName, IsGuest: true}
}
