package notify

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/citycare-hospital/patient-backend/internal/model"
)

const twilioBaseURL = "https://api.twilio.com"

type SMSConfig struct {
	AccountSID  string
	AuthToken   string
	From        string
	AdminPhones string
	BaseURL     string // overridden in tests
}

// SMSSender texts the admin list about each new request and sends one
// best-effort confirmation to the patient through the Twilio REST API.
// Missing credentials make every call a silent no-op.
type SMSSender struct {
	cfg    SMSConfig
	http   *http.Client
	logger *slog.Logger
}

func NewSMSSender(cfg SMSConfig, logger *slog.Logger) *SMSSender {
	cfg.AccountSID = strings.TrimSpace(cfg.AccountSID)
	cfg.AuthToken = strings.TrimSpace(cfg.AuthToken)
	cfg.From = strings.TrimSpace(cfg.From)
	if cfg.BaseURL == "" {
		cfg.BaseURL = twilioBaseURL
	}
	return &SMSSender{
		cfg:    cfg,
		http:   &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}
}

func (s *SMSSender) Name() string {
	return "sms"
}

func (s *SMSSender) Enabled() bool {
	return s.cfg.AccountSID != "" && s.cfg.AuthToken != "" && s.cfg.From != ""
}

func (s *SMSSender) Notify(ctx context.Context, p model.Patient) error {
	if !s.Enabled() {
		return nil
	}

	body := fmt.Sprintf("Appointment request received for %s. Phone: %s. ID: %s",
		p.Fullname, p.Phone, p.ID.Hex())
	for _, to := range SplitRecipients(s.cfg.AdminPhones) {
		if err := s.send(ctx, to, body); err != nil {
			return err
		}
	}

	// Patient confirmation is best-effort on top of best-effort: its failure
	// must not count against the admin notifications already sent.
	if p.Phone != "" {
		confirm := fmt.Sprintf("We received your request (ID:%s). We will call to confirm.", p.ID.Hex())
		if err := s.send(ctx, p.Phone, confirm); err != nil {
			s.logger.Warn("patient confirmation sms failed", "patient_id", p.ID.Hex(), "err", err)
		}
	}
	return nil
}

func (s *SMSSender) send(ctx context.Context, to, body string) error {
	form := url.Values{}
	form.Set("To", to)
	form.Set("From", s.cfg.From)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", s.cfg.BaseURL, s.cfg.AccountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.SetBasicAuth(s.cfg.AccountSID, s.cfg.AuthToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("twilio returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	return nil
}
