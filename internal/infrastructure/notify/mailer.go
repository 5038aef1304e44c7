package notify

import (
	"errors"
	"fmt"
	"net/smtp"
	"strings"
)

// Mailer sends one-off plain-text emails, such as the sticker sheet that
// goes to the warehouse after packing.
type Mailer struct {
	addr string
	from string
	// send is replaceable in tests
	send func(addr, from string, to []string, msg []byte) error
}

// NewMailer creates a mailer over the given SMTP relay
func NewMailer(addr, from string) *Mailer {
	return &Mailer{
		addr: addr,
		from: from,
		send: func(addr, from string, to []string, msg []byte) error {
			return smtp.SendMail(addr, nil, from, to, msg)
		},
	}
}

// Send delivers one message to a single recipient
func (m *Mailer) Send(to, subject, body string) error {
	if m.addr == "" {
		return errors.New("no SMTP relay configured")
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "From: %s\r\n", m.from)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("Content-Type: text/plain; charset=utf-8\r\n\r\n")
	msg.WriteString(body)
	msg.WriteString("\r\n")
	return m.send(m.addr, m.from, []string{to}, []byte(msg.String()))
}
