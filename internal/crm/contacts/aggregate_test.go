package contacts

import (
	"testing"

	"innovation-crm/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregate(t *testing.T) {
	startup := &models.SavedStartup{
		ID:          "s-1",
		StartupName: "Acme",
		StartupData: models.StartupData{
			Name:  "Acme Labs",
			Email: "hello@acme.io",
			SocialLinks: models.SocialLinks{
				LinkedIn:  "https://linkedin.com/company/acme",
				Instagram: "https://instagram.com/acme",
			},
			Contacts: []models.Contact{
				{ID: "c-1", Name: "Jane", Emails: []string{"hello@acme.io"}, Type: models.ContactTypeFounder},
			},
		},
	}

	got := Aggregate(startup)
	require.Len(t, got, 4)

	assert.Equal(t, PrimaryContactID, got[0].ID)
	assert.Equal(t, "Acme Labs", got[0].Name)
	assert.Equal(t, []string{"hello@acme.io"}, got[0].Emails)
	assert.Equal(t, models.ContactTypeStartup, got[0].Type)

	assert.Equal(t, "social-linkedin", got[1].ID)
	assert.Equal(t, "LinkedIn", got[1].Role)
	assert.Equal(t, []string{"hello@acme.io"}, got[1].Emails)
	assert.Equal(t, "social-instagram", got[2].ID)

	// the same address shows up again through the user-added contact
	assert.Equal(t, "c-1", got[3].ID)
	assert.Equal(t, []string{"hello@acme.io"}, got[3].EmailAddresses())
}

func TestAggregate_NoPrimaryEmail(t *testing.T) {
	startup := &models.SavedStartup{
		StartupName: "Acme",
		StartupData: models.StartupData{
			SocialLinks: models.SocialLinks{Twitter: "https://x.com/acme"},
			Contacts:    []models.Contact{{ID: "c-1", Name: "Jane", Phones: []string{"11987654321"}}},
		},
	}

	got := Aggregate(startup)
	require.Len(t, got, 2)
	assert.Equal(t, "social-twitter", got[0].ID)
	assert.Equal(t, "Acme", got[0].Name)
	assert.Empty(t, got[0].EmailAddresses())
	assert.Equal(t, "c-1", got[1].ID)
}

func TestAggregate_Empty(t *testing.T) {
	assert.Empty(t, Aggregate(&models.SavedStartup{StartupName: "Ghost"}))
}
