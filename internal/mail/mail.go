// Package mail renders and delivers account emails. Delivery is behind the
// Sender interface; the API process never talks to SMTP directly, it
// enqueues through tasks.QueueMailer and the worker calls a Sender.
package mail

import (
	"bytes"
	"context"
	"fmt"
	"text/template"
	"time"
)

type TemplateKind string

const (
	TemplateActivation TemplateKind = "activation"
)

// Message is everything a template needs. ActivationURL carries a bearer
// token and must not be logged outside development.
type Message struct {
	To            string       `json:"to"`
	Template      TemplateKind `json:"template"`
	ActivationURL string       `json:"activation_url,omitempty"`
	ExpiresAt     time.Time    `json:"expires_at"`
	Lifetime      string       `json:"lifetime,omitempty"`
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

var templates = map[TemplateKind]struct {
	subject string
	body    *template.Template
}{
	TemplateActivation: {
		subject: "Activate your PromptHub account",
		body: template.Must(template.New("activation").Parse(
			`Welcome to PromptHub!

Confirm your email address by opening the link below:

{{.ActivationURL}}

The link expires in {{.Lifetime}} ({{.ExpiresAt.UTC.Format "2006-01-02 15:04 MST"}}).
If you did not sign up, you can ignore this message.
`)),
	},
}

// Render produces the subject and plain text body for msg.
func Render(msg Message) (subject, body string, err error) {
	tpl, ok := templates[msg.Template]
	if !ok {
		return "", "", fmt.Errorf("unknown mail template %q", msg.Template)
	}

	var buf bytes.Buffer
	if err := tpl.body.Execute(&buf, msg); err != nil {
		return "", "", fmt.Errorf("rendering %s mail: %w", msg.Template, err)
	}
	return tpl.subject, buf.String(), nil
}
