// internal/models/contact.go
package models

import "strings"

const (
	ContactTypeStartup = "startup"
	ContactTypeFounder = "founder"
)

// Contact is an addressable person or channel of a startup. Older records
// carry the singular Email/Phone fields instead of the lists.
type Contact struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Email  string   `json:"email,omitempty"`
	Emails []string `json:"emails,omitempty"`
	Phone  string   `json:"phone,omitempty"`
	Phones []string `json:"phones,omitempty"`
	Role   string   `json:"role,omitempty"`
	Type   string   `json:"type"`
}

// EmailAddresses returns the non-empty addresses of the contact.
func (c Contact) EmailAddresses() []string {
	return mergeNonEmpty(c.Emails, c.Email)
}

// PhoneNumbers returns the non-empty phone numbers of the contact.
func (c Contact) PhoneNumbers() []string {
	return mergeNonEmpty(c.Phones, c.Phone)
}

func mergeNonEmpty(list []string, single string) []string {
	out := make([]string, 0, len(list)+1)
	seenSingle := false
	for _, v := range list {
		if strings.TrimSpace(v) == "" {
			continue
		}
		if v == single {
			seenSingle = true
		}
		out = append(out, v)
	}
	if strings.TrimSpace(single) != "" && !seenSingle {
		out = append(out, single)
	}
	return out
}
