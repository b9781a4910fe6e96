package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"

	"support_directory_go/config"
	"support_directory_go/models"

	"github.com/resend/resend-go/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Email represents an email message
type Email struct {
	To       []string
	Subject  string
	HTMLBody string
	TextBody string
}

// SendEmail sends an email using Resend API
func SendEmail(cfg *config.Config, logger *zap.Logger, email *Email) error {
	// In test mode, log the email instead of sending
	if cfg.EmailTestMode {
		logger.Info("Email logged (test mode, not sent)",
			zap.Strings("to", email.To),
			zap.String("subject", email.Subject),
			zap.String("text", email.TextBody))
		return nil
	}

	if cfg.ResendAPIKey == "" {
		return fmt.Errorf("RESEND_API_KEY not configured")
	}

	client := resend.NewClient(cfg.ResendAPIKey)

	params := &resend.SendEmailRequest{
		From:    fmt.Sprintf("%s <%s>", cfg.EmailFromName, cfg.EmailFrom),
		To:      email.To,
		Subject: email.Subject,
		Html:    email.HTMLBody,
		Text:    email.TextBody,
	}
	if params.Html == "" && params.Text == "" {
		return fmt.Errorf("email must have either HTMLBody or TextBody")
	}

	sent, err := client.Emails.Send(params)
	if err != nil {
		return fmt.Errorf("failed to send email via Resend: %w", err)
	}

	logger.Info("Email sent via Resend", zap.String("id", sent.Id), zap.Strings("to", email.To))
	return nil
}

var notificationEmailTemplate = template.Must(template.New("notification").Parse(
	`<html><body><p>Hello {{.Name}},</p><h2>{{.Title}}</h2><p>{{.Message}}</p></body></html>`))

// BuildNotificationEmail renders a notification for one recipient
func BuildNotificationEmail(user models.User, n models.Notification) (*Email, error) {
	var html bytes.Buffer
	data := struct {
		Name    string
		Title   string
		Message string
	}{Name: user.Name, Title: n.Title, Message: n.Message}
	if err := notificationEmailTemplate.Execute(&html, data); err != nil {
		return nil, err
	}

	return &Email{
		To:       []string{user.Email},
		Subject:  n.Title,
		HTMLBody: html.String(),
		TextBody: fmt.Sprintf("Hello %s,\n\n%s\n\n%s\n", user.Name, n.Title, n.Message),
	}, nil
}

// EmailPublisher emails high and urgent notifications to their recipients
type EmailPublisher struct {
	db     *gorm.DB
	logger *zap.Logger
	send   func(*Email) error
}

func NewEmailPublisher(db *gorm.DB, cfg *config.Config, logger *zap.Logger) *EmailPublisher {
	return &EmailPublisher{
		db:     db,
		logger: logger,
		send:   func(e *Email) error { return SendEmail(cfg, logger, e) },
	}
}

func (p *EmailPublisher) Name() string { return "email" }

func (p *EmailPublisher) Publish(ctx context.Context, notifications []models.Notification) error {
	var urgent []models.Notification
	var recipientIDs []string
	for _, n := range notifications {
		if n.IsUrgent() {
			urgent = append(urgent, n)
			recipientIDs = append(recipientIDs, n.RecipientID)
		}
	}
	if len(urgent) == 0 {
		return nil
	}

	var users []models.User
	if err := p.db.WithContext(ctx).
		Where("id IN ? AND is_active = ?", uniqueNonEmpty(recipientIDs), true).
		Find(&users).Error; err != nil {
		return fmt.Errorf("load notification recipients: %w", err)
	}
	byID := make(map[string]models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	var errs []error
	for _, n := range urgent {
		user, ok := byID[n.RecipientID]
		if !ok || user.Email == "" {
			p.logger.Debug("Skipping email for unknown recipient", zap.String("recipient_id", n.RecipientID))
			continue
		}
		email, err := BuildNotificationEmail(user, n)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := p.send(email); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
