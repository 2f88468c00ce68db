// Package contacts builds and manages the addressable contacts of a tracked
// startup.
package contacts

import (
	"innovation-crm/internal/models"
)

const (
	PrimaryContactID = "primary"
	DefaultContactID = "default"
)

type socialNetwork struct {
	key   string
	label string
	url   func(models.SocialLinks) string
}

var socialNetworks = []socialNetwork{
	{"linkedin", "LinkedIn", func(l models.SocialLinks) string { return l.LinkedIn }},
	{"facebook", "Facebook", func(l models.SocialLinks) string { return l.Facebook }},
	{"twitter", "Twitter", func(l models.SocialLinks) string { return l.Twitter }},
	{"instagram", "Instagram", func(l models.SocialLinks) string { return l.Instagram }},
}

// Aggregate lists every contact a stage notification goes to: the primary
// startup contact, one pseudo-contact per social profile, then the contacts
// added by the user. Duplicate addresses are kept.
func Aggregate(startup *models.SavedStartup) []models.Contact {
	data := startup.StartupData
	out := make([]models.Contact, 0, 1+len(socialNetworks)+len(data.Contacts))

	name := data.Name
	if name == "" {
		name = startup.StartupName
	}

	if data.Email != "" {
		out = append(out, models.Contact{
			ID:     PrimaryContactID,
			Name:   name,
			Emails: []string{data.Email},
			Type:   models.ContactTypeStartup,
		})
	}

	for _, network := range socialNetworks {
		if network.url(data.SocialLinks) == "" {
			continue
		}
		c := models.Contact{
			ID:   "social-" + network.key,
			Name: name,
			Role: network.label,
			Type: models.ContactTypeStartup,
		}
		if data.Email != "" {
			c.Emails = []string{data.Email}
		}
		out = append(out, c)
	}

	return append(out, data.Contacts...)
}
