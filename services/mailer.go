package services

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"

	"student-records-manager/config"
)

// CredentialMail is one login-credential notification.
type CredentialMail struct {
	To        string
	Name      string
	StudentID string
	Password  string
}

type SendFailure struct {
	To     string `json:"to"`
	Reason string `json:"reason"`
}

// CredentialSender delivers generated credentials to students.
type CredentialSender interface {
	SendCredentials(mails []CredentialMail) []SendFailure
}

// Mailer sends over SMTP. Bulk sends are split into fixed-size batches with
// a fixed delay between them purely to respect the provider's rate limit.
type Mailer struct {
	dialer     *gomail.Dialer
	from       string
	batchSize  int
	batchDelay time.Duration
}

func NewMailer(cfg *config.Config) *Mailer {
	batchSize := cfg.ImportBatchSize
	if batchSize < 1 {
		batchSize = 1
	}
	return &Mailer{
		dialer:     gomail.NewDialer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password),
		from:       cfg.SMTP.From,
		batchSize:  batchSize,
		batchDelay: cfg.ImportBatchDelay,
	}
}

func (m *Mailer) SendCredentials(mails []CredentialMail) []SendFailure {
	var failures []SendFailure

	for start := 0; start < len(mails); start += m.batchSize {
		end := start + m.batchSize
		if end > len(mails) {
			end = len(mails)
		}

		for _, mail := range mails[start:end] {
			if err := m.sendCredential(mail); err != nil {
				failures = append(failures, SendFailure{To: mail.To, Reason: err.Error()})
				logrus.WithError(err).WithField("to", mail.To).Warn("failed to send credential mail")
			}
		}

		if end < len(mails) {
			time.Sleep(m.batchDelay)
		}
	}
	return failures
}

func (m *Mailer) sendCredential(mail CredentialMail) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", mail.To)
	msg.SetHeader("Subject", "Your student records portal account")
	msg.SetBody("text/plain", fmt.Sprintf(
		"Hello %s,\n\nYour student records portal account has been created.\n\n"+
			"Login ID: %s\nPassword: %s\n\n"+
			"Please change your password after your first login.\n",
		mail.Name, mail.StudentID, mail.Password,
	))
	return m.dialer.DialAndSend(msg)
}
