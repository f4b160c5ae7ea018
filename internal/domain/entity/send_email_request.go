package entity

// SendEmailRequest is the payload of a signup event.
// It lives only for the handling of one message.
type SendEmailRequest struct {
	To      string `json:"to" validate:"recipient"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}
