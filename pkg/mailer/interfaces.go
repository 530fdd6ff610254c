package mailer

// TermsMailer is the notification sink for guests who still need to accept
// the visitor terms. Sends are fire-and-forget: failures are logged by the
// caller and never fail a check-in.
type TermsMailer interface {
	Send(toEmail, toName, subject, text, html string) (string, error)
	SendTermsRequest(email, name string) error
}
