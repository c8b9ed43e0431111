// Package notify delivers new-payment notifications to payers and lodgers.
//
// Two implementations are provided: Logger writes each notification to the
// structured log, Mailer sends it over SMTP. Both render messages from YAML
// templates (see Templates).
package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/JonMunkholm/payimport/internal/importer"
)

// Modes accepted by New.
const (
	ModeLog  = "log"
	ModeSMTP = "smtp"
)

// Config selects and configures a notifier.
type Config struct {
	Mode          string
	TemplatesPath string
	SMTP          SMTPConfig
}

// New builds the notifier selected by cfg.Mode.
func New(cfg Config, logger *slog.Logger) (importer.Notifier, error) {
	tmpl, err := LoadTemplates(cfg.TemplatesPath)
	if err != nil {
		return nil, err
	}

	switch cfg.Mode {
	case ModeLog, "":
		return NewLogger(tmpl, logger), nil
	case ModeSMTP:
		return NewMailer(cfg.SMTP, tmpl)
	default:
		return nil, fmt.Errorf("unknown notify mode %q (expected %s or %s)", cfg.Mode, ModeLog, ModeSMTP)
	}
}

// Logger logs rendered notifications instead of sending them.
type Logger struct {
	tmpl   *Templates
	logger *slog.Logger
}

var _ importer.Notifier = (*Logger)(nil)

// NewLogger creates a Logger. A nil logger uses slog.Default().
func NewLogger(tmpl *Templates, logger *slog.Logger) *Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Logger{tmpl: tmpl, logger: logger}
}

// NotifyPayer implements importer.Notifier.
func (l *Logger) NotifyPayer(ctx context.Context, p importer.Payment) error {
	msg, err := l.tmpl.Payer(p)
	if err != nil {
		return err
	}
	l.logger.InfoContext(ctx, "notification",
		"recipient", "payer",
		"to", p.Payer.Email,
		"payment_id", p.ID,
		"subject", msg.Subject,
	)
	return nil
}

// NotifyLodger implements importer.Notifier.
func (l *Logger) NotifyLodger(ctx context.Context, p importer.Payment, r importer.Resident) error {
	msg, err := l.tmpl.Lodger(p, r)
	if err != nil {
		return err
	}
	l.logger.InfoContext(ctx, "notification",
		"recipient", "lodger",
		"to", r.Email,
		"payment_id", p.ID,
		"subject", msg.Subject,
	)
	return nil
}
