package mail

import (
	"bytes"
	"html/template"
	"time"
)

// Confirmation is what a registration confirmation email shows.
type Confirmation struct {
	To       Address
	Event    string
	Club     string
	StartAt  time.Time
	Venue    string
	Online   bool
	Link     string
	TicketID string
	QRCode   []byte
}

const ticketAttachment = "ticket-qr.png"

var confirmationTemplate = template.Must(template.New("confirmation").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: sans-serif;">
  <h2>You're registered for {{.Event}}</h2>
  <p>Hi {{.Name}},</p>
  <p>Your place at <strong>{{.Event}}</strong>{{if .Club}}, hosted by {{.Club}},{{end}} is confirmed.</p>
  <ul>
    <li>When: {{.When}}</li>
    {{if .Online}}<li>Where: online{{if .Link}} at <a href="{{.Link}}">{{.Link}}</a>{{end}}</li>
    {{else if .Venue}}<li>Where: {{.Venue}}</li>{{end}}
    <li>Registration ID: {{.TicketID}}</li>
  </ul>
  <p>Show the attached QR code ({{.Attachment}}) at the entrance to be checked in.</p>
</body>
</html>
`))

// ConfirmationMessage renders c into a message with the QR code attached.
func ConfirmationMessage(c Confirmation) (Message, error) {
	var html bytes.Buffer
	err := confirmationTemplate.Execute(&html, struct {
		Confirmation
		Name       string
		When       string
		Attachment string
	}{
		Confirmation: c,
		Name:         c.To.Name,
		When:         c.StartAt.UTC().Format("Mon 2 Jan 2006, 15:04 MST"),
		Attachment:   ticketAttachment,
	})
	if err != nil {
		return Message{}, err
	}
	msg := Message{
		To:      c.To,
		Subject: "Registration Confirmed - " + c.Event,
		HTML:    html.String(),
	}
	if len(c.QRCode) > 0 {
		msg.Attachments = []Attachment{{Name: ticketAttachment, Content: c.QRCode}}
	}
	return msg, nil
}
