package mail

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// InviteData feeds templates/invite.html.
type InviteData struct {
	RecipientName    string
	InviterName      string
	OrganizationName string
	Role             string
	Link             string
	ExpiresInHours   int
}

// InviteMessage renders the invitation email for to.
func InviteMessage(to string, data InviteData) (Message, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "invite.html", data); err != nil {
		return Message{}, fmt.Errorf("rendering invite email: %w", err)
	}
	return Message{
		To:      to,
		Subject: fmt.Sprintf("You're invited to join %s on Rateboard", data.OrganizationName),
		HTML:    buf.String(),
	}, nil
}
