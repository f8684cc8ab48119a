package tasks

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
	"github.com/hugh/rateboard/internal/mail"
)

// Task type names
const (
	TypeEmailSend   = "email:send"
	TypeInviteSweep = "invite:sweep"
)

// InviteSweepMinAge is how long an undelivered invitation waits before the
// sweep retries it.
const InviteSweepMinAge = 5 * time.Minute

// EmailPayload is a fully rendered message.
type EmailPayload struct {
	Message mail.Message `json:"message"`
}

func NewEmailTask(msg mail.Message) (*asynq.Task, error) {
	data, err := json.Marshal(EmailPayload{Message: msg})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeEmailSend, data, asynq.MaxRetry(5), asynq.Timeout(time.Minute)), nil
}

// InviteSweepPayload is empty; the sweep scans every organization.
type InviteSweepPayload struct{}

func NewInviteSweepTask() *asynq.Task {
	return asynq.NewTask(TypeInviteSweep, nil, asynq.MaxRetry(0), asynq.Unique(time.Minute))
}
