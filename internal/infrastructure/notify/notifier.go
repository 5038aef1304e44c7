package notify

import (
	"fmt"
	"net/smtp"
	"strings"

	"go.uber.org/zap"

	"github.com/markethub/backend/internal/domain/ingest"
)

// Config holds the notifier's mail settings. Empty SMTPAddr disables email
// entirely; events still reach the log.
type Config struct {
	SMTPAddr string
	From     string
	// InfoRecipients receives flagged info events
	InfoRecipients []string
	// ErrorRecipients receives error events
	ErrorRecipients []string
	// MailedInfoCodes lists the info event codes that also go to email
	MailedInfoCodes []string
	Subject         string
}

// Notifier implements ingest.Notifier: every event becomes a structured log
// line, error events (and flagged info events) also go to the operator
// distribution list. Mail failures are logged, never propagated.
type Notifier struct {
	config     Config
	logger     *zap.Logger
	mailedInfo map[string]struct{}
	// send is replaceable in tests
	send func(addr, from string, to []string, msg []byte) error
}

// Interface assertion
var _ ingest.Notifier = (*Notifier)(nil)

// New creates a notifier
func New(config Config, logger *zap.Logger) *Notifier {
	if config.Subject == "" {
		config.Subject = "Marketplace integration event"
	}
	mailedInfo := make(map[string]struct{}, len(config.MailedInfoCodes))
	for _, code := range config.MailedInfoCodes {
		mailedInfo[code] = struct{}{}
	}
	return &Notifier{
		config:     config,
		logger:     logger,
		mailedInfo: mailedInfo,
		send: func(addr, from string, to []string, msg []byte) error {
			return smtp.SendMail(addr, nil, from, to, msg)
		},
	}
}

// Notify emits one event
func (n *Notifier) Notify(code string, severity ingest.Severity, detail string) {
	switch severity {
	case ingest.SeverityError:
		n.logger.Error("integration event", zap.String("code", code), zap.String("detail", detail))
	default:
		n.logger.Info("integration event", zap.String("code", code), zap.String("detail", detail))
	}

	recipients := n.recipients(code, severity)
	if n.config.SMTPAddr == "" || len(recipients) == 0 {
		return
	}
	if err := n.sendMail(code, severity, detail, recipients); err != nil {
		n.logger.Warn("notification mail failed", zap.String("code", code), zap.Error(err))
	}
}

func (n *Notifier) recipients(code string, severity ingest.Severity) []string {
	if severity == ingest.SeverityError {
		return n.config.ErrorRecipients
	}
	if _, mailed := n.mailedInfo[code]; mailed {
		return n.config.InfoRecipients
	}
	return nil
}

func (n *Notifier) sendMail(code string, severity ingest.Severity, detail string, to []string) error {
	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", n.config.From)
	fmt.Fprintf(&msg, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&msg, "Subject: %s [%s] %s\r\n", n.config.Subject, severity, code)
	msg.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	msg.WriteString(detail)
	msg.WriteString("\r\n")
	return n.send(n.config.SMTPAddr, n.config.From, to, []byte(msg.String()))
}
