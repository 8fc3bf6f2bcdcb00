package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/hugh/prompthub/internal/mail"
	"github.com/hugh/prompthub/pkg/crypto"
)

type Handler struct {
	sender    mail.Sender
	encryptor *crypto.Encryptor
	logger    *slog.Logger
}

func NewHandler(sender mail.Sender, encryptor *crypto.Encryptor, logger *slog.Logger) *Handler {
	return &Handler{
		sender:    sender,
		encryptor: encryptor,
		logger:    logger,
	}
}

func (h *Handler) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeSendMail, h.HandleSendMail)
}

func (h *Handler) HandleSendMail(ctx context.Context, t *asynq.Task) error {
	var payload SendMailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}

	msg := mail.Message{
		To:        payload.To,
		Template:  payload.Template,
		ExpiresAt: payload.ExpiresAt,
		Lifetime:  payload.Lifetime,
	}
	if payload.SealedActivationURL != "" {
		url, err := h.encryptor.DecryptString(payload.SealedActivationURL)
		if err != nil {
			return fmt.Errorf("opening activation url: %v: %w", err, asynq.SkipRetry)
		}
		msg.ActivationURL = url
	}

	if err := h.sender.Send(ctx, msg); err != nil {
		h.logger.Error("mail delivery failed", "template", payload.Template, "error", err)
		return err
	}

	h.logger.Info("mail delivered", "template", payload.Template)
	return nil
}
