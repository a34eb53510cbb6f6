package tasks

import (
	"context"
	"time"

	"github.com/chatarr/chatarr/internal/conversation"
	"github.com/chatarr/chatarr/internal/scheduler"
)

const SessionPurgeTaskID = "session-purge"

// RegisterSessionPurgeTask registers the periodic removal of expired
// conversation sessions. Expiry is otherwise checked lazily on the next
// message, so abandoned conversations need the sweep to free their rows.
func RegisterSessionPurgeTask(sched *scheduler.Scheduler, sessions *conversation.Store) error {
	return sched.RegisterTask(scheduler.TaskConfig{
		ID:          SessionPurgeTaskID,
		Name:        "Session Purge",
		Description: "Deletes expired conversation sessions",
		Interval:    time.Minute,
		Func: func(ctx context.Context) error {
			_, err := sessions.PurgeExpired(ctx)
			return err
		},
	})
}
