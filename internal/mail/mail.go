// Package mail delivers outbound email. Delivery is best-effort: callers
// treat a send failure as a logged upstream problem, never as state
// corruption.
package mail

import "net/smtp"

// Sender sends a single plain-text message
type Sender interface {
	Send(subject, body, from, to string) error
}

// SMTPSender delivers mail through a configured SMTP relay
type SMTPSender struct {
	Host     string // Relay host
	Port     string // Relay port
	Username string // Relay username, empty disables auth
	Password string // Relay password
}

// Send delivers one message to one recipient
func (s *SMTPSender) Send(subject, body, from, to string) error {
	var auth smtp.Auth
	if s.Username != "" {
		auth = smtp.PlainAuth("", s.Username, s.Password, s.Host)
	}
	msg := []byte("From: " + from + "\r\n" +
		"To: " + to + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"\r\n" +
		body + "\r\n")
	return smtp.SendMail(s.Host+":"+s.Port, auth, from, []string{to}, msg)
}
