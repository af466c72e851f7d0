package notify

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/resend/resend-go/v2"
	"github.com/wneessen/go-mail"

	"github.com/iliyamo/league-registration/internal/config"
	"github.com/iliyamo/league-registration/internal/log"
	"github.com/iliyamo/league-registration/internal/queue"
)

// DefaultFrom is used when the configured sender cannot be parsed.
const DefaultFrom = "Registrations <no-reply@example.com>"

// Message is one outgoing email.
type Message struct {
	From    string
	To      string
	Subject string
	Text    string
	HTML    string
}

// Mailer sends a Message.
type Mailer interface {
	Send(ctx context.Context, m Message) error
}

var (
	angleAddr = regexp.MustCompile(`^([^<]+)<\s*([^>]+)\s*>$`)
	plainAddr = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	spaceAddr = regexp.MustCompile(`^(.*)\s+([^@\s]+@[^@\s]+\.[^@\s]+)$`)
)

// NormalizeFrom accepts "Name <addr>", a bare address or "Name addr" and
// returns a valid From header value.
func NormalizeFrom(raw string) string {
	s := strings.TrimSpace(raw)
	if m := angleAddr.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1]) + " <" + strings.TrimSpace(m[2]) + ">"
	}
	if plainAddr.MatchString(s) {
		return s
	}
	if m := spaceAddr.FindStringSubmatch(s); m != nil {
		return strings.TrimSpace(m[1]) + " <" + strings.TrimSpace(m[2]) + ">"
	}
	return DefaultFrom
}

// singleLine replaces control characters with spaces.
func singleLine(s string) string {
	return strings.Map(func(r rune) rune {
		if r < ' ' || r == 0x7f {
			return ' '
		}
		return r
	}, s)
}

// NewMailer picks the provider named by cfg.MailProvider. A provider
// missing its credentials falls back to logging.
func NewMailer(cfg config.NotifyConfig) Mailer {
	switch strings.ToLower(cfg.MailProvider) {
	case "resend":
		if cfg.ResendAPIKey == "" {
			log.Warn(log.CatNotify, "RESEND_API_KEY is not set; emails will only be logged")
			return LogMailer{}
		}
		m, err := NewResendMailer(cfg.ResendAPIKey, cfg.ResendURL, &http.Client{Timeout: 10 * time.Second})
		if err != nil {
			log.ErrorErr(log.CatNotify, "invalid RESEND_API_URL; emails will only be logged", err)
			return LogMailer{}
		}
		return m
	case "smtp":
		if cfg.SMTPHost == "" {
			log.Warn(log.CatNotify, "SMTP_HOST is not set; emails will only be logged")
			return LogMailer{}
		}
		return &SMTPMailer{Host: cfg.SMTPHost, Port: cfg.SMTPPort, User: cfg.SMTPUser, Pass: cfg.SMTPPass}
	default:
		return LogMailer{}
	}
}

// LogMailer writes the message to the log instead of sending it.
type LogMailer struct{}

func (LogMailer) Send(_ context.Context, m Message) error {
	log.Info(log.CatNotify, "email (log provider)", "to", m.To, "subject", m.Subject)
	return nil
}

// ResendMailer sends through the Resend API client.
type ResendMailer struct {
	client *resend.Client
}

// NewResendMailer builds a client for apiKey. baseURL overrides the API
// root when set; it must end with a slash since request paths resolve
// against it.
func NewResendMailer(apiKey, baseURL string, hc *http.Client) (*ResendMailer, error) {
	c := resend.NewCustomClient(hc, apiKey)
	if baseURL != "" {
		u, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("parse resend url: %w", err)
		}
		if !strings.HasSuffix(u.Path, "/") {
			u.Path += "/"
		}
		c.BaseURL = u
	}
	return &ResendMailer{client: c}, nil
}

func (r *ResendMailer) Send(ctx context.Context, m Message) error {
	sent, err := r.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    m.From,
		To:      []string{m.To},
		Subject: singleLine(m.Subject),
		Text:    m.Text,
		Html:    m.HTML,
	})
	if err != nil {
		return fmt.Errorf("resend: %w", err)
	}
	log.Info(log.CatNotify, "email queued", "provider", "resend", "id", sent.Id, "to", m.To)
	return nil
}

// SMTPMailer sends through an SMTP relay, upgrading to TLS when the server
// offers it and authenticating with PLAIN when a user is configured.
type SMTPMailer struct {
	Host string
	Port int
	User string
	Pass string

	send func(ctx context.Context, msg *mail.Msg) error
}

func (s *SMTPMailer) Send(ctx context.Context, m Message) error {
	msg, err := buildMsg(m)
	if err != nil {
		return err
	}
	send := s.send
	if send == nil {
		send = s.dialAndSend
	}
	return send(ctx, msg)
}

func (s *SMTPMailer) dialAndSend(ctx context.Context, msg *mail.Msg) error {
	opts := []mail.Option{
		mail.WithPort(s.Port),
		mail.WithTLSPortPolicy(mail.TLSOpportunistic),
		mail.WithTimeout(10 * time.Second),
	}
	if s.User != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.User),
			mail.WithPassword(s.Pass),
		)
	}
	c, err := mail.NewClient(s.Host, opts...)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}
	if err := c.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

// buildMsg renders a text message with an HTML alternative when present.
// go-mail RFC 2047 encodes header values, so nothing in the subject can
// reach the wire as a raw header line.
func buildMsg(m Message) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(m.From); err != nil {
		return nil, fmt.Errorf("from %q: %w", m.From, err)
	}
	if err := msg.To(m.To); err != nil {
		return nil, fmt.Errorf("to %q: %w", m.To, err)
	}
	msg.Subject(singleLine(m.Subject))
	msg.SetBodyString(mail.TypeTextPlain, m.Text)
	if m.HTML != "" {
		msg.AddAlternativeString(mail.TypeTextHTML, m.HTML)
	}
	return msg, nil
}

// MailSink emails the team when the event carries an address.
type MailSink struct {
	mailer Mailer
	from   string
}

// NewMailSink sends through mailer with a normalized sender.
func NewMailSink(mailer Mailer, from string) *MailSink {
	return &MailSink{mailer: mailer, from: NormalizeFrom(from)}
}

func (s *MailSink) Name() string { return "mail" }

func (s *MailSink) Send(ctx context.Context, ev queue.RegistrationConfirmed) error {
	if ev.Email == nil || ev.Email.To == "" {
		return nil
	}
	return s.mailer.Send(ctx, Message{
		From:    s.from,
		To:      ev.Email.To,
		Subject: ev.Email.Subject,
		Text:    ev.Email.Text,
		HTML:    ev.Email.HTML,
	})
}
