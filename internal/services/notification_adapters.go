package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// NotificationAdapter formats an assignment notification for one kind of
// incoming webhook.
type NotificationAdapter interface {
	Payload(n *AssignmentNotificationTask, text string) interface{}
}

func getAdapter(kind string) NotificationAdapter {
	switch kind {
	case "slack":
		return &slackAdapter{}
	case "discord":
		return &discordAdapter{}
	default:
		return &genericAdapter{}
	}
}

func postJSONWithClient(ctx context.Context, client *http.Client, webhookURL string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}
	return nil
}

// slackAdapter posts Slack incoming-webhook blocks
type slackAdapter struct{}

func (a *slackAdapter) Payload(n *AssignmentNotificationTask, text string) interface{} {
	return map[string]interface{}{
		"text": text,
		"blocks": []map[string]interface{}{
			{
				"type": "section",
				"text": map[string]string{
					"type": "mrkdwn",
					"text": text,
				},
			},
		},
	}
}

type discordAdapter struct{}

func (a *discordAdapter) Payload(n *AssignmentNotificationTask, text string) interface{} {
	return map[string]interface{}{
		"content": text,
	}
}

// genericAdapter sends the raw job fields for custom receivers
type genericAdapter struct{}

func (a *genericAdapter) Payload(n *AssignmentNotificationTask, text string) interface{} {
	return map[string]interface{}{
		"event":       TaskTypeAssignmentNotify,
		"task_id":     n.TaskID,
		"task_name":   n.TaskName,
		"project_id":  n.ProjectID,
		"assigned_by": n.AssignedBy,
		"member_ids":  n.MemberIDs,
		"assignees":   n.Assignees,
		"text":        text,
	}
}
