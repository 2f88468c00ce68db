package contacts

import (
	"context"
	"testing"

	"innovation-crm/internal/common/docstore"
	apperrors "innovation-crm/internal/common/errors"
	"innovation-crm/internal/common/logger"
	"innovation-crm/internal/crm/startups"
	"innovation-crm/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func createTestManager(t *testing.T) (*Manager, string) {
	repo := startups.NewRepository(docstore.NewMemoryStore())
	s := &models.SavedStartup{
		UserID: "u-1",
		Stage:  "mapeada",
		StartupData: models.StartupData{
			Name:  "Acme",
			Email: "hello@acme.io",
		},
	}
	require.NoError(t, repo.Create(context.Background(), s))
	return NewManager(repo, logger.NewTestLogger(t)), s.ID
}

// ==========================
// Core Functionality Tests
// ==========================

func TestManager_ListStartsWithDefault(t *testing.T) {
	m, id := createTestManager(t)

	got, err := m.List(context.Background(), "u-1", id)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, DefaultContactID, got[0].ID)
	assert.Equal(t, "Acme", got[0].Name)
	assert.Equal(t, "hello@acme.io", got[0].Email)
}

func TestManager_AddUpdateDelete(t *testing.T) {
	ctx := context.Background()
	m, id := createTestManager(t)

	added, err := m.Add(ctx, "u-1", id, models.Contact{Name: "Jane", Phone: "(11) 98765-4321"})
	require.NoError(t, err)
	assert.NotEmpty(t, added.ID)
	assert.Equal(t, "5511987654321", added.Phone)
	assert.Equal(t, models.ContactTypeStartup, added.Type)

	added.Role = "CEO"
	added.Type = models.ContactTypeFounder
	_, err = m.Update(ctx, "u-1", id, *added)
	require.NoError(t, err)

	_, found, err := m.Find(ctx, "u-1", id, added.ID)
	require.NoError(t, err)
	assert.Equal(t, "CEO", found.Role)
	assert.Equal(t, models.ContactTypeFounder, found.Type)

	require.NoError(t, m.Delete(ctx, "u-1", id, added.ID))
	all, err := m.List(ctx, "u-1", id)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestManager_Errors(t *testing.T) {
	ctx := context.Background()
	m, id := createTestManager(t)

	tests := []struct {
		name string
		run  func() error
		code apperrors.ErrorCode
	}{
		{
			name: "missing name",
			run: func() error {
				_, err := m.Add(ctx, "u-1", id, models.Contact{Email: "x@y.z"})
				return err
			},
			code: apperrors.ErrCodeValidationFailed,
		},
		{
			name: "bad type",
			run: func() error {
				_, err := m.Add(ctx, "u-1", id, models.Contact{Name: "X", Type: "investor"})
				return err
			},
			code: apperrors.ErrCodeValidationFailed,
		},
		{
			name: "bad email",
			run: func() error {
				_, err := m.Add(ctx, "u-1", id, models.Contact{Name: "X", Emails: []string{"x@acme.io", "nope"}})
				return err
			},
			code: apperrors.ErrCodeValidationFailed,
		},
		{
			name: "edit default",
			run: func() error {
				_, err := m.Update(ctx, "u-1", id, models.Contact{ID: DefaultContactID, Name: "X"})
				return err
			},
			code: apperrors.ErrCodeDefaultContactImmutable,
		},
		{
			name: "delete default",
			run:  func() error { return m.Delete(ctx, "u-1", id, DefaultContactID) },
			code: apperrors.ErrCodeDefaultContactImmutable,
		},
		{
			name: "delete unknown",
			run:  func() error { return m.Delete(ctx, "u-1", id, "ghost") },
			code: apperrors.ErrCodeContactNotFound,
		},
		{
			name: "update unknown",
			run: func() error {
				_, err := m.Update(ctx, "u-1", id, models.Contact{ID: "ghost", Name: "X"})
				return err
			},
			code: apperrors.ErrCodeContactNotFound,
		},
		{
			name: "foreign startup",
			run: func() error {
				_, err := m.List(ctx, "u-2", id)
				return err
			},
			code: apperrors.ErrCodeStartupNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			require.Error(t, err)
			assert.True(t, apperrors.HasCode(err, tt.code), err.Error())
		})
	}
}
