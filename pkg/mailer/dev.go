package mailer

import "github.com/gatewise/checkin/pkg/logger"

// DevMailer logs emails instead of sending them.
type DevMailer struct{}

func NewDevMailer() *DevMailer {
	return &DevMailer{}
}

func (m *DevMailer) Send(toEmail, toName, subject, text, html string) (string, error) {
	logger.Info("DEV EMAIL",
		"to", toEmail,
		"name", toName,
		"subject", subject,
		"text", text,
	)
	return "dev-message-id", nil
}

func (m *DevMailer) SendTermsRequest(email, name string) error {
	logger.Info("DEV EMAIL: visitor terms request", "to", email, "name", name)
	return nil
}
