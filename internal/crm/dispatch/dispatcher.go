// Package dispatch renders a stage's templates for every contact of a startup
// and sends them over email and WhatsApp.
package dispatch

import (
	"context"
	"fmt"
	"time"

	"innovation-crm/internal/common/logger"
	"innovation-crm/internal/common/metrics"
	"innovation-crm/internal/crm/contacts"
	"innovation-crm/internal/crm/outbox"
	"innovation-crm/internal/crm/phone"
	"innovation-crm/internal/crm/template"
	"innovation-crm/internal/models"
)

const whatsAppFooter = "\n\nMensagem automática enviada pela genoi.net pelo cliente %s para a %s"

type EmailQueue interface {
	Enqueue(ctx context.Context, payload *models.EmailPayload) (string, error)
}

type WhatsAppSender interface {
	SendText(ctx context.Context, number, text string) error
}

type MessageLog interface {
	Record(ctx context.Context, msg *models.CrmMessage) error
}

// Result tallies one fan-out.
type Result struct {
	EmailsSent      int `json:"emailsSent"`
	EmailsFailed    int `json:"emailsFailed"`
	WhatsAppsSent   int `json:"whatsappsSent"`
	WhatsAppsFailed int `json:"whatsappsFailed"`
	TotalContacts   int `json:"totalContacts"`
}

// Attempted counts every send that was tried.
func (r Result) Attempted() int {
	return r.EmailsSent + r.EmailsFailed + r.WhatsAppsSent + r.WhatsAppsFailed
}

type Dispatcher struct {
	emails   EmailQueue
	whatsapp WhatsAppSender
	log      MessageLog
	logger   logger.Logger
	now      func() time.Time
}

func NewDispatcher(emails EmailQueue, whatsapp WhatsAppSender, log MessageLog, l logger.Logger) *Dispatcher {
	return &Dispatcher{
		emails:   emails,
		whatsapp: whatsapp,
		log:      log,
		logger:   l,
		now:      time.Now,
	}
}

// run carries the per-call values shared by every send of one Dispatch.
type run struct {
	startup     *models.SavedStartup
	stage       *models.PipelineStage
	sender      models.Sender
	startupName string
	subject     string
}

// Dispatch sends the stage's templates to every aggregated contact, one
// recipient at a time. A failed send is counted and logged and never stops
// the remaining sends. Only context cancellation ends the loop early; the
// counts gathered so far are returned with the context error.
func (d *Dispatcher) Dispatch(ctx context.Context, startup *models.SavedStartup, stage *models.PipelineStage, sender models.Sender) (Result, error) {
	start := time.Now()
	recipients := contacts.Aggregate(startup)
	result := Result{TotalContacts: len(recipients)}

	sendEmail := !template.IsBlank(stage.EmailTemplate)
	sendWhatsApp := !template.IsBlank(stage.WhatsAppTemplate)
	defer func() {
		metrics.DispatchDuration.WithLabelValues(channelsLabel(sendEmail, sendWhatsApp)).Observe(time.Since(start).Seconds())
	}()

	fields := map[string]interface{}{
		"startupId": startup.ID,
		"stageId":   stage.ID,
		"stageName": stage.Name,
	}
	if !sendEmail {
		d.logger.Info("No email template configured for stage, skipping email", fields)
	}
	if !sendWhatsApp {
		d.logger.Info("No WhatsApp template configured for stage, skipping WhatsApp", fields)
	}
	if !sendEmail && !sendWhatsApp {
		return result, nil
	}

	r := &run{
		startup:     startup,
		stage:       stage,
		sender:      sender,
		startupName: startup.StartupName,
		subject:     stage.EmailSubject,
	}
	if r.startupName == "" {
		r.startupName = startup.StartupData.Name
	}
	if template.IsBlank(r.subject) {
		r.subject = fmt.Sprintf("%s - %s", sender.Company, stage.Name)
	}

	for i := range recipients {
		contact := &recipients[i]

		if sendEmail {
			for _, addr := range contact.EmailAddresses() {
				if err := ctx.Err(); err != nil {
					return result, err
				}
				if d.sendEmail(ctx, r, contact, addr) {
					result.EmailsSent++
				} else {
					result.EmailsFailed++
				}
			}
		}

		if sendWhatsApp {
			for _, raw := range contact.PhoneNumbers() {
				number := phone.Digits(raw)
				if number == "" {
					d.logger.Info("Contact phone has no digits, skipping WhatsApp", map[string]interface{}{
						"startupId": startup.ID,
						"contactId": contact.ID,
					})
					continue
				}
				if err := ctx.Err(); err != nil {
					return result, err
				}
				if d.sendWhatsApp(ctx, r, contact, number) {
					result.WhatsAppsSent++
				} else {
					result.WhatsAppsFailed++
				}
			}
		}
	}

	d.logger.Info("Stage notifications dispatched", map[string]interface{}{
		"startupId":       startup.ID,
		"stageId":         stage.ID,
		"totalContacts":   result.TotalContacts,
		"emailsSent":      result.EmailsSent,
		"emailsFailed":    result.EmailsFailed,
		"whatsappsSent":   result.WhatsAppsSent,
		"whatsappsFailed": result.WhatsAppsFailed,
	})
	return result, nil
}

func (d *Dispatcher) vars(r *run, contact *models.Contact) template.Vars {
	return template.Vars{
		StartupName:   r.startupName,
		SenderName:    r.sender.Name,
		SenderCompany: r.sender.Company,
		RecipientName: contact.Name,
	}
}

func (d *Dispatcher) sendEmail(ctx context.Context, r *run, contact *models.Contact, addr string) bool {
	vars := d.vars(r, contact)
	body := template.Render(r.stage.EmailTemplate, vars)
	subject := template.Render(r.subject, vars)
	stamp := d.now().UTC().Format(models.TimestampLayout)

	msg := d.baseMessage(r, contact, models.ChannelEmail, body, stamp)
	msg.RecipientEmail = addr
	msg.Subject = subject

	html, err := outbox.RenderHTML(body, r.sender.Name, r.sender.Company, true)
	if err == nil {
		_, err = d.emails.Enqueue(ctx, &models.EmailPayload{
			To:      []models.EmailAddress{{Email: addr, Name: contact.Name}},
			Subject: subject,
			HTML:    html,
			Text:    body,
			Tags:    []string{"crm", "automatic-message", r.stage.ID},
			Metadata: map[string]interface{}{
				"startupId":    r.startup.ID,
				"userId":       r.startup.UserID,
				"stageId":      r.stage.ID,
				"contactId":    contact.ID,
				"automatic":    true,
				"multiContact": true,
				"timestamp":    stamp,
			},
		})
	}

	return d.finish(ctx, msg, err)
}

func (d *Dispatcher) sendWhatsApp(ctx context.Context, r *run, contact *models.Contact, number string) bool {
	body := template.Render(r.stage.WhatsAppTemplate, d.vars(r, contact))
	final := body + fmt.Sprintf(whatsAppFooter, r.sender.Company, r.startupName)
	stamp := d.now().UTC().Format(models.TimestampLayout)

	msg := d.baseMessage(r, contact, models.ChannelWhatsApp, final, stamp)
	msg.RecipientPhone = number

	err := d.whatsapp.SendText(ctx, number, final)
	return d.finish(ctx, msg, err)
}

func (d *Dispatcher) baseMessage(r *run, contact *models.Contact, channel, message, stamp string) *models.CrmMessage {
	recipientType := contact.Type
	if recipientType == "" {
		recipientType = models.ContactTypeStartup
	}
	return &models.CrmMessage{
		StartupID:     r.startup.ID,
		UserID:        r.startup.UserID,
		SenderName:    r.sender.Name,
		RecipientName: contact.Name,
		RecipientType: recipientType,
		MessageType:   channel,
		Message:       message,
		SentAt:        stamp,
		Automatic:     true,
		MultiContact:  true,
		StageID:       r.stage.ID,
		ContactID:     contact.ID,
	}
}

// finish records the attempt and reports whether it succeeded.
func (d *Dispatcher) finish(ctx context.Context, msg *models.CrmMessage, sendErr error) bool {
	msg.Status = models.MessageStatusSent
	if sendErr != nil {
		msg.Status = models.MessageStatusFailed
		msg.Error = sendErr.Error()
		d.logger.Error("Automatic message failed", map[string]interface{}{
			"startupId": msg.StartupID,
			"stageId":   msg.StageID,
			"contactId": msg.ContactID,
			"channel":   msg.MessageType,
			"error":     sendErr,
		})
	}
	metrics.NotificationsTotal.WithLabelValues(msg.MessageType, msg.Status).Inc()

	if err := d.log.Record(ctx, msg); err != nil {
		d.logger.Warn("Failed to record CRM message", map[string]interface{}{
			"startupId": msg.StartupID,
			"channel":   msg.MessageType,
			"error":     err,
		})
	}
	return sendErr == nil
}

func channelsLabel(email, whatsapp bool) string {
	switch {
	case email && whatsapp:
		return "email+whatsapp"
	case email:
		return "email"
	case whatsapp:
		return "whatsapp"
	default:
		return "none"
	}
}
