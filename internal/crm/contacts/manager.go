package contacts

import (
	"context"
	"strings"

	apperrors "innovation-crm/internal/common/errors"
	"innovation-crm/internal/common/logger"
	"innovation-crm/internal/common/validation"
	"innovation-crm/internal/crm/phone"
	"innovation-crm/internal/crm/startups"
	"innovation-crm/internal/models"

	"github.com/google/uuid"
)

// Manager edits the user-added contacts stored on a tracked startup.
type Manager struct {
	startups *startups.Repository
	logger   logger.Logger
}

func NewManager(repo *startups.Repository, log logger.Logger) *Manager {
	return &Manager{startups: repo, logger: log}
}

// List returns the default startup contact followed by the stored contacts.
func (m *Manager) List(ctx context.Context, userID, startupID string) ([]models.Contact, error) {
	startup, err := m.startups.Get(ctx, userID, startupID)
	if err != nil {
		return nil, err
	}
	return append([]models.Contact{defaultContact(startup)}, startup.StartupData.Contacts...), nil
}

// Find returns one contact by id, including the default contact.
func (m *Manager) Find(ctx context.Context, userID, startupID, contactID string) (*models.SavedStartup, *models.Contact, error) {
	startup, err := m.startups.Get(ctx, userID, startupID)
	if err != nil {
		return nil, nil, err
	}
	if contactID == "" || contactID == DefaultContactID {
		c := defaultContact(startup)
		return startup, &c, nil
	}
	for i := range startup.StartupData.Contacts {
		if startup.StartupData.Contacts[i].ID == contactID {
			return startup, &startup.StartupData.Contacts[i], nil
		}
	}
	return nil, nil, apperrors.NewContactNotFoundError(contactID)
}

func (m *Manager) Add(ctx context.Context, userID, startupID string, contact models.Contact) (*models.Contact, error) {
	if err := validateContact(contact); err != nil {
		return nil, err
	}
	startup, err := m.startups.Get(ctx, userID, startupID)
	if err != nil {
		return nil, err
	}

	contact.ID = uuid.NewString()
	normalizeContact(&contact)

	updated := append(append([]models.Contact(nil), startup.StartupData.Contacts...), contact)
	if err := m.startups.SetContacts(ctx, startupID, updated); err != nil {
		return nil, err
	}

	m.logger.Info("Contact added", map[string]interface{}{
		"startupId": startupID,
		"contactId": contact.ID,
		"type":      contact.Type,
	})
	return &contact, nil
}

func (m *Manager) Update(ctx context.Context, userID, startupID string, contact models.Contact) (*models.Contact, error) {
	if contact.ID == DefaultContactID {
		return nil, apperrors.NewDefaultContactImmutableError()
	}
	if err := validateContact(contact); err != nil {
		return nil, err
	}
	startup, err := m.startups.Get(ctx, userID, startupID)
	if err != nil {
		return nil, err
	}

	normalizeContact(&contact)

	found := false
	updated := make([]models.Contact, len(startup.StartupData.Contacts))
	for i, c := range startup.StartupData.Contacts {
		if c.ID == contact.ID {
			updated[i] = contact
			found = true
			continue
		}
		updated[i] = c
	}
	if !found {
		return nil, apperrors.NewContactNotFoundError(contact.ID)
	}

	if err := m.startups.SetContacts(ctx, startupID, updated); err != nil {
		return nil, err
	}
	return &contact, nil
}

func (m *Manager) Delete(ctx context.Context, userID, startupID, contactID string) error {
	if contactID == DefaultContactID {
		return apperrors.NewDefaultContactImmutableError()
	}
	startup, err := m.startups.Get(ctx, userID, startupID)
	if err != nil {
		return err
	}

	kept := make([]models.Contact, 0, len(startup.StartupData.Contacts))
	for _, c := range startup.StartupData.Contacts {
		if c.ID != contactID {
			kept = append(kept, c)
		}
	}
	if len(kept) == len(startup.StartupData.Contacts) {
		return apperrors.NewContactNotFoundError(contactID)
	}

	if err := m.startups.SetContacts(ctx, startupID, kept); err != nil {
		return err
	}

	m.logger.Info("Contact removed", map[string]interface{}{
		"startupId": startupID,
		"contactId": contactID,
	})
	return nil
}

func defaultContact(startup *models.SavedStartup) models.Contact {
	name := startup.StartupData.Name
	if name == "" {
		name = startup.StartupName
	}
	return models.Contact{
		ID:    DefaultContactID,
		Name:  name,
		Email: startup.StartupData.Email,
		Type:  models.ContactTypeStartup,
	}
}

func validateContact(c models.Contact) error {
	if strings.TrimSpace(c.Name) == "" {
		return apperrors.NewValidationFailedError("contact name is required")
	}
	if c.Type != "" && c.Type != models.ContactTypeStartup && c.Type != models.ContactTypeFounder {
		return apperrors.NewValidationFailedError("contact type must be startup or founder")
	}
	for _, addr := range append([]string{c.Email}, c.Emails...) {
		if addr != "" && !validation.ValidateEmail(addr) {
			return apperrors.NewValidationFailedError("invalid email address: " + addr)
		}
	}
	return nil
}

func normalizeContact(c *models.Contact) {
	if c.Type == "" {
		c.Type = models.ContactTypeStartup
	}
	if c.Phone != "" {
		c.Phone = phone.FormatBrazil(c.Phone)
	}
	for i, p := range c.Phones {
		c.Phones[i] = phone.FormatBrazil(p)
	}
}
