package challenges

import (
	"context"
	"testing"

	"innovation-crm/internal/common/docstore"
	apperrors "innovation-crm/internal/common/errors"
	"innovation-crm/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestApplication() models.StartupApplication {
	return models.StartupApplication{
		Name:        "Rastreia",
		Website:     "https://rastreia.io",
		FounderName: "Bruno Lima",
		Email:       "  Bruno@Rastreia.IO ",
		WhatsApp:    "+55 11 98888-7777",
	}
}

func publishTestChallenge(t *testing.T, ts *testService) *models.Challenge {
	t.Helper()
	ctx := context.Background()
	created, err := ts.service.Create(ctx, "u-1", "", createTestChallenge())
	require.NoError(t, err)
	ch, err := ts.service.Publish(ctx, "u-1", created.Challenge.ID, Publication{CompanyName: "Globex S.A.", Deadline: "2026-06-30"})
	require.NoError(t, err)
	return ch
}

// ==========================
// Slug
// ==========================

func TestSlug(t *testing.T) {
	tests := []struct {
		name  string
		title string
		id    string
		want  string
	}{
		{name: "accents folded", title: "Reduzir perdas na logística", id: "AbCdEf123", want: "reduzir-perdas-na-logistica-abcdef"},
		{name: "punctuation collapsed", title: "  IA & Visão: 2026!  ", id: "x1", want: "ia-visao-2026-x1"},
		{name: "only symbols", title: "!!!", id: "abc", want: "abc"},
		{name: "no id", title: "Ação", id: "", want: "acao"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Slug(tt.title, tt.id))
		})
	}
}

// ==========================
// Publish / GetPublic
// ==========================

func TestService_Publish(t *testing.T) {
	ts := createTestService(t)
	ctx := context.Background()

	ch := publishTestChallenge(t, ts)
	assert.True(t, ch.IsPublic)
	assert.Equal(t, models.ChallengeStatusActive, ch.Status)
	assert.Equal(t, "Globex S.A.", ch.CompanyName)
	assert.Contains(t, ch.Slug, "reduzir-perdas-na-logistica-")

	again, err := ts.service.Publish(ctx, "u-1", ch.ID, Publication{})
	require.NoError(t, err)
	assert.Equal(t, ch.Slug, again.Slug)
	assert.Equal(t, "Globex", again.CompanyName)

	_, err = ts.service.Publish(ctx, "u-2", ch.ID, Publication{})
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeChallengeNotFound))

	pub, err := ts.service.GetPublic(ctx, ch.Slug)
	require.NoError(t, err)
	assert.Equal(t, ch.ID, pub.ID)
	assert.Equal(t, "Reduzir perdas na logística", pub.Title)
	assert.Equal(t, "Logística", pub.BusinessArea)
}

func TestService_GetPublic_OnlyActivePublished(t *testing.T) {
	ts := createTestService(t)
	ctx := context.Background()

	created, err := ts.service.Create(ctx, "u-1", "", createTestChallenge())
	require.NoError(t, err)
	require.NoError(t, ts.docs.Update(ctx, docstore.CollectionChallenges, created.Challenge.ID, map[string]interface{}{
		"slug": "rascunho",
	}))
	_, err = ts.service.GetPublic(ctx, "rascunho")
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeChallengeNotFound))

	ch := publishTestChallenge(t, ts)
	require.NoError(t, ts.docs.Update(ctx, docstore.CollectionChallenges, ch.ID, map[string]interface{}{
		"status": "closed",
	}))
	_, err = ts.service.GetPublic(ctx, ch.Slug)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeChallengeNotFound))
}

// ==========================
// Apply
// ==========================

func TestService_Apply(t *testing.T) {
	ts := createTestService(t)
	ctx := context.Background()
	ch := publishTestChallenge(t, ts)

	app, err := ts.service.Apply(ctx, ch.Slug, createTestApplication())
	require.NoError(t, err)
	assert.NotEmpty(t, app.ID)
	assert.Equal(t, "bruno@rastreia.io", app.Email)
	assert.Equal(t, models.ApplicationStatusApplied, app.Status)
	assert.Equal(t, ch.ID, app.ChallengeID)
	assert.Equal(t, ch.Title, app.ChallengeTitle)
	assert.Equal(t, "Globex S.A.", app.CompanyName)
	assert.Equal(t, "2026-03-02T12:00:00.000Z", app.CreatedAt)

	doc, err := ts.docs.Get(ctx, docstore.CollectionStartups, app.ID)
	require.NoError(t, err)
	assert.Equal(t, ch.ID, doc.Data["desafioId"])
	assert.Equal(t, "inscrita", doc.Data["status"])
	assert.Equal(t, "2026-03-02T12:00:00.000Z", doc.Data["inscritaEm"])
}

func TestService_Apply_SameNameUpdatesExisting(t *testing.T) {
	ts := createTestService(t)
	ctx := context.Background()
	ch := publishTestChallenge(t, ts)

	first, err := ts.service.Apply(ctx, ch.Slug, createTestApplication())
	require.NoError(t, err)

	retry := createTestApplication()
	retry.PitchURL = "https://rastreia.io/pitch.pdf"
	second, err := ts.service.Apply(ctx, ch.Slug, retry)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)

	all, err := ts.docs.Query(ctx, docstore.Query{Collection: docstore.CollectionStartups})
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "https://rastreia.io/pitch.pdf", all[0].Data["pitchUrl"])
}

func TestService_Apply_Rejected(t *testing.T) {
	tests := []struct {
		name   string
		slug   string
		mutate func(a *models.StartupApplication)
		code   apperrors.ErrorCode
	}{
		{name: "missing founder", mutate: func(a *models.StartupApplication) { a.FounderName = "" }, code: apperrors.ErrCodeValidationFailed},
		{name: "missing whatsapp", mutate: func(a *models.StartupApplication) { a.WhatsApp = " " }, code: apperrors.ErrCodeValidationFailed},
		{name: "bad email", mutate: func(a *models.StartupApplication) { a.Email = "bruno@rastreia" }, code: apperrors.ErrCodeValidationFailed},
		{name: "unknown slug", slug: "nao-existe", mutate: func(a *models.StartupApplication) {}, code: apperrors.ErrCodeChallengeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := createTestService(t)
			ctx := context.Background()
			ch := publishTestChallenge(t, ts)

			slug := ch.Slug
			if tt.slug != "" {
				slug = tt.slug
			}
			app := createTestApplication()
			tt.mutate(&app)

			_, err := ts.service.Apply(ctx, slug, app)
			assert.True(t, apperrors.HasCode(err, tt.code))

			all, err := ts.docs.Query(ctx, docstore.Query{Collection: docstore.CollectionStartups})
			require.NoError(t, err)
			assert.Empty(t, all)
		})
	}
}
