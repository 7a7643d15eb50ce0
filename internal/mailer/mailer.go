// Package mailer sends HTML mail over SMTP.
package mailer

import (
	"context"
	"crypto/tls"
	"fmt"
	"html"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/huyquangvevo/chamcong-web/internal/config"
)

// Sender delivers one message.
type Sender interface {
	Send(to, cc []string, subject, htmlBody string) error
}

type Mailer struct {
	dialer *gomail.Dialer
	from   string
}

func New(cfg config.Mail) *Mailer {
	d := gomail.NewDialer(cfg.Host, cfg.Port, cfg.User, cfg.Pass)
	d.TLSConfig = &tls.Config{ServerName: cfg.Host, InsecureSkipVerify: cfg.InsecureSkipVerify}
	return &Mailer{dialer: d, from: cfg.User}
}

func (m *Mailer) Send(to, cc []string, subject, htmlBody string) error {
	if len(to) == 0 {
		return fmt.Errorf("send mail %q: no recipients", subject)
	}
	if err := m.dialer.DialAndSend(newMessage(m.from, to, cc, subject, htmlBody)); err != nil {
		return fmt.Errorf("send mail %q: %w", subject, err)
	}
	return nil
}

func newMessage(from string, to, cc []string, subject, htmlBody string) *gomail.Message {
	msg := gomail.NewMessage()
	msg.SetHeader("From", from)
	msg.SetHeader("To", to...)
	if len(cc) > 0 {
		msg.SetHeader("Cc", cc...)
	}
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)
	return msg
}

// LeaveNotifier mails HR when someone applies for leave.
type LeaveNotifier struct {
	sender Sender
	to     []string
	loc    *time.Location
}

func NewLeaveNotifier(sender Sender, to []string, loc *time.Location) *LeaveNotifier {
	if loc == nil {
		loc = time.UTC
	}
	return &LeaveNotifier{sender: sender, to: to, loc: loc}
}

func (n *LeaveNotifier) LeaveApplied(_ context.Context, email, reason string, at time.Time) error {
	subject := fmt.Sprintf("Leave application from %s", email)
	body := fmt.Sprintf("<p><b>%s</b> applied for leave starting %s.</p><p>Reason: %s</p>",
		html.EscapeString(email), at.In(n.loc).Format("2006-01-02 15:04"), html.EscapeString(reason))
	return n.sender.Send(n.to, nil, subject, body)
}
