// Package mailer delivers the dormant-account notifications over SMTP,
// with a log-only fallback for setups without a mail relay.
package mailer

import (
	"fmt"
	"net/smtp"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ae-utbm/sith-pos/internal/models"
	"github.com/ae-utbm/sith-pos/pkg/utils"
)

// SMTPMailer sends plain-text mails through an unauthenticated relay.
type SMTPMailer struct {
	addr string
	from string
}

// NewSMTPMailer creates a mailer targeting the given relay address
// ("host:port").
func NewSMTPMailer(addr, from string) *SMTPMailer {
	return &SMTPMailer{addr: addr, from: from}
}

func (m *SMTPMailer) send(user *models.User, subject, body string) error {
	if user.Email == nil || *user.Email == "" {
		return fmt.Errorf("user %d has no email address", user.ID)
	}
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s\r\n",
		m.from, *user.Email, subject, body)
	return smtp.SendMail(m.addr, nil, m.from, []string{*user.Email}, []byte(msg))
}

func (m *SMTPMailer) SendDumpWarning(user *models.User, balance decimal.Decimal, dumpDate time.Time) error {
	body := fmt.Sprintf(
		"Bonjour %s,\n\n"+
			"Votre compte AE n'a pas servi depuis longtemps. Il sera vidé de ses %s € le %s "+
			"si vous ne l'utilisez pas d'ici là.\n",
		user.DisplayName(), balance.StringFixed(2), dumpDate.Format("02/01/2006"))
	return m.send(user, "Votre compte AE va être vidé", body)
}

func (m *SMTPMailer) SendDumpNotice(user *models.User, amount decimal.Decimal) error {
	body := fmt.Sprintf(
		"Bonjour %s,\n\n"+
			"Votre compte AE inactif a été vidé de ses %s €.\n",
		user.DisplayName(), amount.StringFixed(2))
	return m.send(user, "Votre compte AE a été vidé", body)
}

// LogMailer writes the notifications to the log instead of sending them.
type LogMailer struct{}

func (LogMailer) SendDumpWarning(user *models.User, balance decimal.Decimal, dumpDate time.Time) error {
	utils.LogInfo("Dump warning mail (not sent, no SMTP relay configured)", map[string]interface{}{
		"user_id":   user.ID,
		"balance":   balance.StringFixed(2),
		"dump_date": dumpDate.Format("2006-01-02"),
	})
	return nil
}

func (LogMailer) SendDumpNotice(user *models.User, amount decimal.Decimal) error {
	utils.LogInfo("Dump notice mail (not sent, no SMTP relay configured)", map[string]interface{}{
		"user_id": user.ID,
		"amount":  amount.StringFixed(2),
	})
	return nil
}
