package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/brewloop/subswap-backend/pkg/config"
	"github.com/brewloop/subswap-backend/pkg/logger"
)

const resendEndpoint = "https://api.resend.com/emails"

// Mailer sends one HTML notification.
type Mailer interface {
	Send(ctx context.Context, subject, html string) error
}

// ResendMailer delivers through the Resend transactional email API.
type ResendMailer struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string
	from       string
	to         string
}

// NewResendMailer builds the mailer from config.
func NewResendMailer(cfg config.NotifierConfig) (*ResendMailer, error) {
	if strings.TrimSpace(cfg.ResendAPIKey) == "" {
		return nil, fmt.Errorf("resend api key required")
	}
	if strings.TrimSpace(cfg.ToEmail) == "" {
		return nil, fmt.Errorf("notification recipient required")
	}
	return &ResendMailer{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		endpoint:   resendEndpoint,
		apiKey:     cfg.ResendAPIKey,
		from:       cfg.FromEmail,
		to:         cfg.ToEmail,
	}, nil
}

// LogMailer writes notifications to the log instead of sending email,
// for environments without Resend credentials.
type LogMailer struct {
	logg *logger.Logger
}

func NewLogMailer(logg *logger.Logger) *LogMailer {
	return &LogMailer{logg: logg}
}

func (m *LogMailer) Send(ctx context.Context, subject, _ string) error {
	if m.logg != nil {
		m.logg.Info(m.logg.WithField(ctx, "subject", subject), "notification logged instead of mailed")
	}
	return nil
}

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

func (m *ResendMailer) Send(ctx context.Context, subject, html string) error {
	body, err := json.Marshal(resendRequest{
		From:    m.from,
		To:      []string{m.to},
		Subject: subject,
		HTML:    html,
	})
	if err != nil {
		return fmt.Errorf("encoding email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building email request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.apiKey)

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sending email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("email provider responded %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	return nil
}
