package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/smtp"
	"time"

	"mindwell/config"
	"mindwell/models"
	"mindwell/utils"

	"go.uber.org/zap"
)

// DefaultNotificationChannel is the production implementation. Each channel
// is independently configured; an empty transport config reports
// ErrChannelNotConfigured.
type DefaultNotificationChannel struct {
	logger *zap.Logger
	client *http.Client
}

// NewDefaultNotificationChannel builds the channel from the loaded config.
func NewDefaultNotificationChannel() *DefaultNotificationChannel {
	return &DefaultNotificationChannel{
		logger: utils.GetLogger(),
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// SendEmail delivers via the configured SMTP relay.
func (c *DefaultNotificationChannel) SendEmail(ctx context.Context, msg models.EmailMessage) error {
	cfg := config.AppConfig
	if cfg.SMTPHost == "" {
		return ErrChannelNotConfigured
	}

	addr := fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort)
	auth := smtp.PlainAuth("", cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPHost)

	body := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n\r\n%s",
		cfg.SMTPFrom, msg.To, msg.Subject, msg.HTMLBody)

	if err := smtp.SendMail(addr, auth, cfg.SMTPFrom, []string{msg.To}, []byte(body)); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", msg.To, err)
	}

	c.logger.Debug("email sent", zap.String("to", msg.To), zap.String("subject", msg.Subject))
	return nil
}

// SendSMS delivers via the configured SMS provider HTTP API.
func (c *DefaultNotificationChannel) SendSMS(ctx context.Context, msg models.SMSMessage) error {
	cfg := config.AppConfig
	if cfg.SMSAPIKey == "" {
		return ErrChannelNotConfigured
	}

	payload, err := json.Marshal(map[string]string{
		"from": cfg.SMSSender,
		"to":   msg.To,
		"body": msg.Body,
	})
	if err != nil {
		return fmt.Errorf("failed to encode sms payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://api.sms-provider.example/v1/messages", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build sms request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+cfg.SMSAPIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send sms to %s: %w", msg.To, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("sms provider rejected message to %s: status %d", msg.To, resp.StatusCode)
	}

	c.logger.Debug("sms sent", zap.String("to", msg.To))
	return nil
}
