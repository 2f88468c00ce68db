// Package emailrelay delivers queued email documents through Amazon SES.
package emailrelay

import (
	"context"
	"net/mail"
	"time"

	"innovation-crm/internal/common/docstore"
	apperrors "innovation-crm/internal/common/errors"
	"innovation-crm/internal/common/logger"
	"innovation-crm/internal/common/metrics"
	"innovation-crm/internal/models"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// Stats summarizes one relay pass.
type Stats struct {
	Picked    int
	Delivered int
	Failed    int
}

type Service struct {
	config *Config
	docs   docstore.Store
	ses    SESService
	logger logger.Logger
	now    func() time.Time
}

func NewService(cfg *Config, docs docstore.Store, sesClient SESService, log logger.Logger) *Service {
	return &Service{
		config: cfg,
		docs:   docs,
		ses:    sesClient,
		logger: log.WithFields(map[string]interface{}{"worker": WorkerName}),
		now:    time.Now,
	}
}

// Run polls for pending emails until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	s.logger.Info("Mail relay started", map[string]interface{}{
		"pollInterval": s.config.PollInterval.String(),
		"batchSize":    s.config.BatchSize,
	})

	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()

	for {
		if _, err := s.RunOnce(ctx); err != nil && ctx.Err() == nil {
			s.logger.Error("Mail relay pass failed", map[string]interface{}{"error": err})
		}

		select {
		case <-ctx.Done():
			s.logger.Info("Mail relay stopped", nil)
			return nil
		case <-ticker.C:
		}
	}
}

// RunOnce delivers up to one batch of pending emails. A failed delivery is
// marked on its document and does not stop the batch. Each document is
// claimed as PROCESSING before SES is called, so an email whose final mark
// fails is never sent twice.
func (s *Service) RunOnce(ctx context.Context) (Stats, error) {
	var stats Stats

	pending, err := s.docs.Query(ctx, docstore.Query{
		Collection: docstore.CollectionEmails,
		Limit:      s.config.BatchSize,
	}.Where("delivery.state", models.DeliveryPending))
	if err != nil {
		return stats, err
	}
	stats.Picked = len(pending)

	for _, doc := range pending {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		var payload models.EmailPayload
		if err := doc.DataTo(&payload); err != nil {
			s.logger.Error("Undecodable email document", map[string]interface{}{
				"emailId": doc.ID,
				"error":   err,
			})
			stats.Failed++
			s.mark(ctx, doc.ID, models.Delivery{State: models.DeliveryError, Attempts: 1, Error: err.Error()})
			continue
		}

		attempts := 1
		if payload.Delivery != nil {
			attempts = payload.Delivery.Attempts + 1
		}

		if err := s.claim(ctx, doc.ID, attempts); err != nil {
			s.logger.Warn("Could not claim email, leaving it pending", map[string]interface{}{
				"emailId": doc.ID,
				"error":   err,
			})
			continue
		}

		delivery := models.Delivery{State: models.DeliverySuccess, Attempts: attempts}
		messageID, sendErr := s.deliver(ctx, &payload)
		if sendErr != nil {
			delivery.State = models.DeliveryError
			delivery.Error = sendErr.Error()
			stats.Failed++
			s.logger.Error("Email delivery failed", map[string]interface{}{
				"emailId": doc.ID,
				"to":      recipient(&payload),
				"error":   sendErr,
			})
		} else {
			delivery.MessageID = messageID
			stats.Delivered++
		}
		metrics.RelayDeliveries.WithLabelValues(delivery.State).Inc()
		if err := s.mark(ctx, doc.ID, delivery); err != nil && delivery.State == models.DeliverySuccess {
			s.logger.Error("Email sent but left PROCESSING, needs manual reconciliation", map[string]interface{}{
				"emailId":   doc.ID,
				"messageId": delivery.MessageID,
				"error":     err,
			})
		}
	}

	if stats.Picked > 0 {
		s.logger.Info("Mail relay pass finished", map[string]interface{}{
			"picked":    stats.Picked,
			"delivered": stats.Delivered,
			"failed":    stats.Failed,
		})
	}
	return stats, nil
}

func (s *Service) deliver(ctx context.Context, p *models.EmailPayload) (string, error) {
	if len(p.To) == 0 || p.To[0].Email == "" {
		return "", apperrors.NewValidationFailedError("email has no recipient")
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	out, err := s.ses.SendEmail(ctx, buildInput(p, s.config.ConfigurationSet))
	if err != nil {
		return "", apperrors.NewEmailDeliveryFailedError(err)
	}
	return aws.ToString(out.MessageId), nil
}

func (s *Service) claim(ctx context.Context, id string, attempts int) error {
	return s.writeDelivery(ctx, id, models.Delivery{State: models.DeliverySending, Attempts: attempts})
}

func (s *Service) mark(ctx context.Context, id string, d models.Delivery) error {
	d.EndTime = s.now().UTC().Format(models.TimestampLayout)
	err := s.writeDelivery(ctx, id, d)
	if err != nil {
		s.logger.Error("Failed to mark email delivery", map[string]interface{}{
			"emailId": id,
			"state":   d.State,
			"error":   err,
		})
	}
	return err
}

func (s *Service) writeDelivery(ctx context.Context, id string, d models.Delivery) error {
	fields, err := docstore.ToMap(d)
	if err != nil {
		return err
	}
	return s.docs.Update(ctx, docstore.CollectionEmails, id, map[string]interface{}{"delivery": fields})
}

func buildInput(p *models.EmailPayload, configurationSet string) *ses.SendEmailInput {
	to := make([]string, 0, len(p.To))
	for _, addr := range p.To {
		to = append(to, formatAddress(addr))
	}

	body := &types.Body{}
	if p.HTML != "" {
		body.Html = &types.Content{Data: aws.String(p.HTML), Charset: aws.String("UTF-8")}
	}
	if p.Text != "" {
		body.Text = &types.Content{Data: aws.String(p.Text), Charset: aws.String("UTF-8")}
	}

	input := &ses.SendEmailInput{
		Destination: &types.Destination{ToAddresses: to},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(p.Subject), Charset: aws.String("UTF-8")},
			Body:    body,
		},
		Source: aws.String(formatAddress(p.From)),
	}
	if p.ReplyTo.Email != "" {
		input.ReplyToAddresses = []string{formatAddress(p.ReplyTo)}
	}
	if configurationSet != "" {
		input.ConfigurationSetName = aws.String(configurationSet)
	}
	return input
}

func recipient(p *models.EmailPayload) string {
	if len(p.To) == 0 {
		return ""
	}
	return p.To[0].Email
}

// formatAddress renders a header address; non-ASCII or special display names
// are RFC 2047 encoded as SES requires.
func formatAddress(a models.EmailAddress) string {
	if a.Name == "" {
		return a.Email
	}
	return (&mail.Address{Name: a.Name, Address: a.Email}).String()
}
