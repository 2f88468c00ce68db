// Package outbox queues outbound email for the mail relay.
package outbox

import (
	"bytes"
	"context"
	"html/template"

	"innovation-crm/internal/common/config"
	"innovation-crm/internal/common/docstore"
	apperrors "innovation-crm/internal/common/errors"
	"innovation-crm/internal/models"
)

// Outbox writes EmailPayload documents into the emails collection.
type Outbox struct {
	docs    docstore.Store
	from    models.EmailAddress
	replyTo models.EmailAddress
}

func New(docs docstore.Store, cfg config.EmailConfig) *Outbox {
	return &Outbox{
		docs:    docs,
		from:    models.EmailAddress{Email: cfg.FromEmail, Name: cfg.FromName},
		replyTo: models.EmailAddress{Email: cfg.ReplyToEmail, Name: cfg.ReplyToName},
	}
}

// Enqueue stores the payload as pending and returns its id. Sender and
// reply-to default to the configured identities.
func (o *Outbox) Enqueue(ctx context.Context, p *models.EmailPayload) (string, error) {
	if len(p.To) == 0 || p.To[0].Email == "" {
		return "", apperrors.NewValidationFailedError("email payload has no recipient")
	}
	if p.From.Email == "" {
		p.From = o.from
	}
	if p.ReplyTo.Email == "" {
		p.ReplyTo = o.replyTo
	}
	p.Delivery = &models.Delivery{State: models.DeliveryPending}

	data, err := docstore.ToMap(p)
	if err != nil {
		return "", apperrors.NewEmailEnqueueFailedError(err)
	}
	id, err := o.docs.Add(ctx, docstore.CollectionEmails, data)
	if err != nil {
		return "", apperrors.NewEmailEnqueueFailedError(err)
	}
	return id, nil
}

var emailTemplate = template.Must(template.New("email").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>Mensagem da Gen.OI</title>
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
  <div style="background: linear-gradient(135deg, #667eea 0%, #764ba2 100%); padding: 30px; text-align: center; border-radius: 10px 10px 0 0;">
    <img src="https://genoi.net/wp-content/uploads/2024/12/Logo-gen.OI-Novo-1-2048x1035.png" alt="Gen.OI" style="height: 60px; margin-bottom: 20px;">
    <h1 style="color: white; margin: 0; font-size: 24px;">Gen.OI - Inovação Aberta</h1>
  </div>
  <div style="background: #f8f9fa; padding: 30px; border-radius: 0 0 10px 10px;">
    <div style="background: white; padding: 25px; border-radius: 8px; box-shadow: 0 2px 10px rgba(0,0,0,0.1);">
      <div style="white-space: pre-wrap; margin-bottom: 25px; font-size: 16px;">{{.Message}}</div>
      <hr style="border: none; border-top: 1px solid #eee; margin: 25px 0;">
      <div style="font-size: 14px; color: #666;">
        <p><strong>Atenciosamente,</strong><br>
        {{.SenderName}}, {{.SenderCompany}}</p>
        <p style="margin-top: 20px;">
          <strong>Gen.OI</strong><br>
          Conectando empresas às melhores startups do mundo<br>
          🌐 <a href="https://genoi.net" style="color: #667eea;">genoi.net</a><br>
          📧 <a href="mailto:contact@genoi.net" style="color: #667eea;">contact@genoi.net</a>
        </p>
      </div>
    </div>
  </div>
  <div style="text-align: center; margin-top: 20px; font-size: 12px; color: #999;">
    <p>{{if .Automatic}}Esta mensagem foi enviada automaticamente através da plataforma Gen.OI de inovação aberta.{{else}}Esta mensagem foi enviada através da plataforma Gen.OI de inovação aberta.{{end}}</p>
  </div>
</body>
</html>
`))

// RenderHTML wraps a plain-text message in the branded email layout. The
// message is HTML-escaped.
func RenderHTML(message, senderName, senderCompany string, automatic bool) (string, error) {
	var buf bytes.Buffer
	err := emailTemplate.Execute(&buf, struct {
		Message       string
		SenderName    string
		SenderCompany string
		Automatic     bool
	}{message, senderName, senderCompany, automatic})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
