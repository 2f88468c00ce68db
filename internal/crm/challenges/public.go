package challenges

import (
	"context"
	"regexp"
	"strings"
	"unicode"

	"innovation-crm/internal/common/docstore"
	apperrors "innovation-crm/internal/common/errors"
	"innovation-crm/internal/models"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	slugSplit    = regexp.MustCompile(`[^a-z0-9]+`)
)

// Publication is the company facing data shown on the public page.
type Publication struct {
	CompanyName string `json:"companyName"`
	LogoURL     string `json:"logoUrl"`
	Deadline    string `json:"deadline"`
}

// Publish makes a challenge reachable by slug and open to startup sign-ups.
// Publishing again keeps the slug.
func (s *Service) Publish(ctx context.Context, userID, challengeID string, pub Publication) (*models.Challenge, error) {
	ch, err := s.Get(ctx, userID, challengeID)
	if err != nil {
		return nil, err
	}

	if ch.Slug == "" {
		ch.Slug = Slug(ch.Title, ch.ID)
	}
	ch.IsPublic = true
	ch.Status = models.ChallengeStatusActive
	ch.CompanyName = strings.TrimSpace(pub.CompanyName)
	if ch.CompanyName == "" {
		ch.CompanyName = ch.Company
	}
	ch.LogoURL = strings.TrimSpace(pub.LogoURL)
	ch.Deadline = strings.TrimSpace(pub.Deadline)

	if err := s.docs.Update(ctx, docstore.CollectionChallenges, ch.ID, map[string]interface{}{
		"slug":        ch.Slug,
		"isPublic":    ch.IsPublic,
		"status":      ch.Status,
		"companyName": ch.CompanyName,
		"logoUrl":     ch.LogoURL,
		"deadline":    ch.Deadline,
	}); err != nil {
		return nil, err
	}

	s.logger.Info("Challenge published", map[string]interface{}{
		"challengeId": ch.ID,
		"slug":        ch.Slug,
	})
	return ch, nil
}

// Slug turns a title into a lowercase ASCII path segment, suffixed with the
// start of id so equal titles stay distinct.
func Slug(title, id string) string {
	folded, _, err := transform.String(
		transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC),
		strings.ToLower(title))
	if err != nil {
		folded = strings.ToLower(title)
	}
	base := strings.Trim(slugSplit.ReplaceAllString(folded, "-"), "-")
	if len(base) > 60 {
		base = strings.TrimRight(base[:60], "-")
	}

	suffix := strings.ToLower(id)
	if len(suffix) > 6 {
		suffix = suffix[:6]
	}
	switch {
	case base == "":
		return suffix
	case suffix == "":
		return base
	}
	return base + "-" + suffix
}

func (s *Service) findPublic(ctx context.Context, slug string) (*models.Challenge, error) {
	docs, err := s.docs.Query(ctx, docstore.Query{
		Collection: docstore.CollectionChallenges,
		Limit:      1,
	}.Where("slug", slug).Where("isPublic", true).Where("status", models.ChallengeStatusActive))
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, apperrors.NewChallengeNotFoundError(slug)
	}
	var ch models.Challenge
	if err := docs[0].DataTo(&ch); err != nil {
		return nil, apperrors.NewDocumentStoreError("decode_challenge", err)
	}
	ch.ID = docs[0].ID
	return &ch, nil
}

// GetPublic returns the public view of an active published challenge.
func (s *Service) GetPublic(ctx context.Context, slug string) (*models.PublicChallenge, error) {
	ch, err := s.findPublic(ctx, slug)
	if err != nil {
		return nil, err
	}
	return &models.PublicChallenge{
		ID:           ch.ID,
		Title:        ch.Title,
		Description:  ch.Description,
		CompanyName:  ch.CompanyName,
		LogoURL:      ch.LogoURL,
		Deadline:     ch.Deadline,
		BusinessArea: ch.BusinessArea,
		CreatedAt:    ch.CreatedAt,
		Status:       ch.Status,
	}, nil
}

// Apply signs a startup up to a published challenge. A startup already
// registered under the same name is updated in place.
func (s *Service) Apply(ctx context.Context, slug string, app models.StartupApplication) (*models.StartupApplication, error) {
	app.Name = strings.TrimSpace(app.Name)
	app.Website = strings.TrimSpace(app.Website)
	app.PitchURL = strings.TrimSpace(app.PitchURL)
	app.FounderName = strings.TrimSpace(app.FounderName)
	app.Email = strings.ToLower(strings.TrimSpace(app.Email))
	app.WhatsApp = strings.TrimSpace(app.WhatsApp)

	if app.Name == "" || app.Website == "" || app.FounderName == "" || app.Email == "" || app.WhatsApp == "" {
		return nil, apperrors.NewValidationFailedError("name, website, founderName, email and whatsapp are required")
	}
	if !emailPattern.MatchString(app.Email) {
		return nil, apperrors.NewValidationFailedError("invalid email: " + app.Email)
	}

	ch, err := s.findPublic(ctx, slug)
	if err != nil {
		return nil, err
	}

	now := s.stamp()
	app.ID = ""
	app.Status = models.ApplicationStatusApplied
	app.ChallengeID = ch.ID
	app.ChallengeTitle = ch.Title
	app.CompanyName = ch.CompanyName
	app.AppliedAt = now
	app.UpdatedAt = now

	existing, err := s.docs.Query(ctx, docstore.Query{
		Collection: docstore.CollectionStartups,
		Limit:      1,
	}.Where("name", app.Name))
	if err != nil {
		return nil, err
	}

	if len(existing) > 0 {
		app.CreatedAt = ""
		fields, err := docstore.ToMap(app)
		if err != nil {
			return nil, apperrors.NewDocumentStoreError("encode_application", err)
		}
		delete(fields, "id")
		if err := s.docs.Update(ctx, docstore.CollectionStartups, existing[0].ID, fields); err != nil {
			return nil, err
		}
		if created, ok := existing[0].Data["createdAt"].(string); ok {
			app.CreatedAt = created
		}
		app.ID = existing[0].ID
	} else {
		app.CreatedAt = now
		data, err := docstore.ToMap(app)
		if err != nil {
			return nil, apperrors.NewDocumentStoreError("encode_application", err)
		}
		delete(data, "id")
		if app.ID, err = s.docs.Add(ctx, docstore.CollectionStartups, data); err != nil {
			return nil, err
		}
	}

	s.logger.Info("Startup applied to challenge", map[string]interface{}{
		"challengeId": ch.ID,
		"startupId":   app.ID,
	})
	return &app, nil
}
