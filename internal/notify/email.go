package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"

	"github.com/citycare-hospital/patient-backend/internal/model"
)

type EmailConfig struct {
	Host        string
	Port        string
	User        string
	Pass        string
	From        string
	Secure      bool // implicit TLS (port 465 style); otherwise plain/STARTTLS
	AdminEmails string
}

// EmailSender mails the admin list about each new appointment request. With
// no SMTP host configured it is a silent no-op.
type EmailSender struct {
	cfg EmailConfig
}

func NewEmailSender(cfg EmailConfig) *EmailSender {
	cfg.Host = strings.TrimSpace(cfg.Host)
	if cfg.Port == "" {
		cfg.Port = "587"
	}
	if cfg.From == "" {
		cfg.From = cfg.User
	}
	return &EmailSender{cfg: cfg}
}

func (s *EmailSender) Name() string {
	return "email"
}

func (s *EmailSender) Enabled() bool {
	return s.cfg.Host != ""
}

func (s *EmailSender) Notify(ctx context.Context, p model.Patient) error {
	if !s.Enabled() {
		return nil
	}
	recipients := SplitRecipients(s.cfg.AdminEmails)
	if len(recipients) == 0 {
		return nil
	}

	subject := "New appointment: " + p.Fullname
	msg := buildMessage(s.cfg.From, recipients, subject, emailBody(p))

	addr := net.JoinHostPort(s.cfg.Host, s.cfg.Port)
	if s.cfg.Secure {
		return s.sendTLS(addr, recipients, msg)
	}
	return smtp.SendMail(addr, s.auth(), s.cfg.From, recipients, msg)
}

func (s *EmailSender) auth() smtp.Auth {
	if s.cfg.User == "" {
		return nil
	}
	return smtp.PlainAuth("", s.cfg.User, s.cfg.Pass, s.cfg.Host)
}

// sendTLS speaks SMTP over an implicit TLS connection. smtp.SendMail only
// covers the STARTTLS flavor.
func (s *EmailSender) sendTLS(addr string, recipients []string, msg []byte) error {
	conn, err := tls.Dial("tcp", addr, &tls.Config{ServerName: s.cfg.Host})
	if err != nil {
		return err
	}
	c, err := smtp.NewClient(conn, s.cfg.Host)
	if err != nil {
		conn.Close()
		return err
	}
	defer c.Close()

	if a := s.auth(); a != nil {
		if err := c.Auth(a); err != nil {
			return err
		}
	}
	if err := c.Mail(s.cfg.From); err != nil {
		return err
	}
	for _, rcpt := range recipients {
		if err := c.Rcpt(rcpt); err != nil {
			return err
		}
	}
	w, err := c.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return c.Quit()
}

func emailBody(p model.Patient) string {
	doctor := p.PreferredDoctor
	if doctor == "" {
		doctor = "Any"
	}
	date := "—"
	if p.PreferredDate != nil {
		date = p.PreferredDate.Format("02 Jan 2006 15:04")
	}
	return fmt.Sprintf(
		"<h3>New Appointment Request</h3>"+
			"<p><strong>Name:</strong> %s</p>"+
			"<p><strong>Phone:</strong> %s</p>"+
			"<p><strong>Doctor:</strong> %s</p>"+
			"<p><strong>Date:</strong> %s</p>"+
			"<p><strong>Complaint:</strong> %s</p>",
		p.Fullname, p.Phone, doctor, date, p.Complaint,
	)
}

func buildMessage(from string, to []string, subject, htmlBody string) []byte {
	return []byte(fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=utf-8\r\n\r\n%s\r\n",
		from,
		strings.Join(to, ", "),
		subject,
		htmlBody,
	))
}

// SplitRecipients turns a comma-separated recipient list into trimmed,
// non-empty entries.
func SplitRecipients(raw string) []string {
	var out []string
	for _, r := range strings.Split(raw, ",") {
		r = strings.TrimSpace(r)
		if r != "" {
			out = append(out, r)
		}
	}
	return out
}
