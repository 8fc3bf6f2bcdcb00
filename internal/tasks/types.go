package tasks

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
	"github.com/hugh/prompthub/internal/mail"
)

// Task type names
const (
	TypeSendMail = "mail:send"
)

// SendMailPayload is the queued form of a mail.Message. The activation link
// is age encrypted because it carries a bearer token.
type SendMailPayload struct {
	To                  string            `json:"to"`
	Template            mail.TemplateKind `json:"template"`
	SealedActivationURL string            `json:"sealed_activation_url,omitempty"`
	ExpiresAt           time.Time         `json:"expires_at"`
	Lifetime            string            `json:"lifetime,omitempty"`
}

func NewSendMailTask(payload SendMailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeSendMail, data, asynq.MaxRetry(5)), nil
}
