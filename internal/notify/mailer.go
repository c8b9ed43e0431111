package notify

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/payimport/internal/importer"
)

// SMTPConfig holds mail server settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SendFunc sends a raw message. It has the signature of smtp.SendMail.
type SendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Mailer sends notifications by email.
type Mailer struct {
	cfg  SMTPConfig
	tmpl *Templates
	send SendFunc
	now  func() time.Time
}

var _ importer.Notifier = (*Mailer)(nil)

// MailerOption configures a Mailer.
type MailerOption func(*Mailer)

// WithSendFunc replaces smtp.SendMail, mainly for tests.
func WithSendFunc(fn SendFunc) MailerOption {
	return func(m *Mailer) { m.send = fn }
}

// NewMailer creates a Mailer. Host and From are required.
func NewMailer(cfg SMTPConfig, tmpl *Templates, opts ...MailerOption) (*Mailer, error) {
	if cfg.Host == "" {
		return nil, errors.New("smtp host is required")
	}
	if cfg.From == "" {
		return nil, errors.New("smtp from address is required")
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}

	m := &Mailer{cfg: cfg, tmpl: tmpl, send: smtp.SendMail, now: time.Now}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// NotifyPayer implements importer.Notifier.
func (m *Mailer) NotifyPayer(ctx context.Context, p importer.Payment) error {
	msg, err := m.tmpl.Payer(p)
	if err != nil {
		return err
	}
	return m.deliver(ctx, p.Payer.Email, msg)
}

// NotifyLodger implements importer.Notifier.
func (m *Mailer) NotifyLodger(ctx context.Context, p importer.Payment, r importer.Resident) error {
	msg, err := m.tmpl.Lodger(p, r)
	if err != nil {
		return err
	}
	return m.deliver(ctx, r.Email, msg)
}

func (m *Mailer) deliver(ctx context.Context, to string, msg Message) error {
	if to == "" {
		return errors.New("recipient has no email address")
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}

	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
	if err := m.send(addr, auth, m.cfg.From, []string{to}, m.compose(to, msg)); err != nil {
		return fmt.Errorf("send mail to %s: %w", to, err)
	}
	return nil
}

// compose builds an RFC 5322 message with a UTF-8 plain text body.
func (m *Mailer) compose(to string, msg Message) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "From: %s\r\n", m.cfg.From)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	fmt.Fprintf(&b, "Date: %s\r\n", m.now().Format(time.RFC1123Z))
	fmt.Fprintf(&b, "Message-ID: <%s@payimport>\r\n", uuid.NewString())
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("Content-Transfer-Encoding: 8bit\r\n")
	b.WriteString("\r\n")
	b.Write(bytes.ReplaceAll(bytes.ReplaceAll([]byte(msg.Body), []byte("\r\n"), []byte("\n")), []byte("\n"), []byte("\r\n")))
	return b.Bytes()
}
