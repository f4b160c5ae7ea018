package mailer

// Message is a plain-text email addressed to a single recipient.
type Message struct {
	To      string
	Subject string
	Body    string
}
