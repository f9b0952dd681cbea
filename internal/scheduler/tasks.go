package scheduler

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const TaskNotificationOutboxDue = "notification.outbox.due"

const TaskOverdueSweep = "leads.overdue.sweep"

type NotificationOutboxDuePayload struct {
	OutboxID string `json:"outboxId"`
	LeadID   string `json:"leadId"`
}

type OverdueSweepPayload struct {
	RequestedAt time.Time `json:"requestedAt"`
}

func NewNotificationOutboxDueTask(payload NotificationOutboxDuePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskNotificationOutboxDue, data), nil
}

func ParseNotificationOutboxDuePayload(task *asynq.Task) (NotificationOutboxDuePayload, error) {
	var payload NotificationOutboxDuePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return NotificationOutboxDuePayload{}, err
	}
	return payload, nil
}

func NewOverdueSweepTask(payload OverdueSweepPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOverdueSweep, data), nil
}

func ParseOverdueSweepPayload(task *asynq.Task) (OverdueSweepPayload, error) {
	var payload OverdueSweepPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return OverdueSweepPayload{}, err
	}
	return payload, nil
}
