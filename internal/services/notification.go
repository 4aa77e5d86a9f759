package services

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/huangang/taskdesk/internal/config"
	"github.com/huangang/taskdesk/pkg/logger"
)

// NotificationService tells assignees about new assignments through a chat
// webhook. Delivery is best-effort: failures are logged and never reach
// the save that triggered them.
type NotificationService struct {
	cfg    config.NotifyConfig
	client *http.Client
}

func NewNotificationService(cfg config.NotifyConfig) *NotificationService {
	return &NotificationService{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Enabled reports whether notifications will be sent at all.
func (s *NotificationService) Enabled() bool {
	return s != nil && s.cfg.Enabled && s.cfg.WebhookURL != ""
}

func buildAssignmentMessage(n *AssignmentNotificationTask) string {
	who := strings.Join(n.Assignees, ", ")
	if who == "" {
		who = fmt.Sprintf("%d member(s)", len(n.MemberIDs))
	}
	name := n.TaskName
	if name == "" {
		name = fmt.Sprintf("#%d", n.TaskID)
	}
	msg := fmt.Sprintf("%s assigned to task \"%s\"", who, name)
	if n.AssignedBy != "" {
		msg += " by " + n.AssignedBy
	}
	return msg
}

// SendAssignmentNotification is the queue processor for assignment jobs.
func (s *NotificationService) SendAssignmentNotification(ctx context.Context, n *AssignmentNotificationTask) error {
	if !s.Enabled() {
		return nil
	}
	if len(n.MemberIDs) == 0 {
		return nil
	}

	text := buildAssignmentMessage(n)
	payload := getAdapter(s.cfg.Type).Payload(n, text)
	if err := postJSONWithClient(ctx, s.client, s.cfg.WebhookURL, payload); err != nil {
		logger.Warn().Err(err).Int64("task_id", n.TaskID).Msg("[Notification] assignment notification failed")
		return err
	}

	logger.Debug().Int64("task_id", n.TaskID).Msg("[Notification] assignment notification sent")
	return nil
}
