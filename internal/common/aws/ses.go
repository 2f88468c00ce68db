// internal/common/aws/ses.go
package aws

import (
	"context"
	"fmt"

	appconfig "innovation-crm/internal/common/config"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
)

// SESClient sends relay emails and reports account quota.
type SESClient struct {
	client *ses.Client
}

// NewSESClient resolves credentials through the default AWS chain.
func NewSESClient(ctx context.Context, cfg appconfig.AWSConfig) (*SESClient, error) {
	if cfg.Region == "" {
		return nil, fmt.Errorf("aws region is required for SES")
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &SESClient{client: ses.NewFromConfig(awsCfg)}, nil
}

func (s *SESClient) SendEmail(ctx context.Context, input *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error) {
	return s.client.SendEmail(ctx, input, optFns...)
}

// HealthCheck fails when the account is out of daily sending quota.
func (s *SESClient) HealthCheck(ctx context.Context) error {
	quota, err := s.client.GetSendQuota(ctx, &ses.GetSendQuotaInput{})
	if err != nil {
		return fmt.Errorf("ses quota: %w", err)
	}
	if quota.Max24HourSend > 0 && quota.SentLast24Hours >= quota.Max24HourSend {
		return fmt.Errorf("ses daily quota exhausted (%.0f/%.0f)", quota.SentLast24Hours, quota.Max24HourSend)
	}
	return nil
}
