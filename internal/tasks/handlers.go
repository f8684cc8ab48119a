package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/hugh/rateboard/internal/mail"
)

// Sweeper resends undelivered invitations.
type Sweeper interface {
	SweepPending(ctx context.Context, minAge time.Duration) (int, error)
}

type Handler struct {
	sender  mail.Sender
	sweeper Sweeper
	logger  *slog.Logger
}

func NewHandler(sender mail.Sender, sweeper Sweeper, logger *slog.Logger) *Handler {
	return &Handler{
		sender:  sender,
		sweeper: sweeper,
		logger:  logger,
	}
}

func (h *Handler) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(TypeEmailSend, h.HandleEmailSend)
	mux.HandleFunc(TypeInviteSweep, h.HandleInviteSweep)
}

func (h *Handler) HandleEmailSend(ctx context.Context, t *asynq.Task) error {
	var payload EmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.Message.To == "" {
		return fmt.Errorf("email task without recipient: %w", asynq.SkipRetry)
	}

	if err := h.sender.Send(ctx, payload.Message); err != nil {
		h.logger.Error("email delivery failed",
			"to", payload.Message.To,
			"subject", payload.Message.Subject,
			"error", err,
		)
		return err
	}

	h.logger.Info("email delivered", "to", payload.Message.To, "subject", payload.Message.Subject)
	return nil
}

func (h *Handler) HandleInviteSweep(ctx context.Context, _ *asynq.Task) error {
	sent, err := h.sweeper.SweepPending(ctx, InviteSweepMinAge)
	if err != nil {
		h.logger.Error("invite sweep failed", "error", err)
		return err
	}
	h.logger.Debug("invite sweep done", "sent", sent)
	return nil
}
