package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskSoftLockExpiry = "jobs.soft_lock_expiry"

const TaskPaymentDeadline = "jobs.payment_deadline"

const TaskNegotiationExpiry = "jobs.negotiation_expiry"

const TaskHoldRelease = "escrow.hold_release"

// LifecycleTimerPayload identifies a job and the soft-lock generation the
// timer was armed for. A firing that carries a stale generation resolves to
// a no-op at the conditional update.
type LifecycleTimerPayload struct {
	JobID      string `json:"jobId"`
	Generation int    `json:"generation"`
}

// HoldReleasePayload identifies the job whose warranty hold is due.
type HoldReleasePayload struct {
	JobID string `json:"jobId"`
}

func NewSoftLockExpiryTask(payload LifecycleTimerPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSoftLockExpiry, data), nil
}

func NewPaymentDeadlineTask(payload LifecycleTimerPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPaymentDeadline, data), nil
}

func NewNegotiationExpiryTask(payload LifecycleTimerPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskNegotiationExpiry, data), nil
}

func ParseLifecycleTimerPayload(task *asynq.Task) (LifecycleTimerPayload, error) {
	var payload LifecycleTimerPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return LifecycleTimerPayload{}, err
	}
	return payload, nil
}

func NewHoldReleaseTask(payload HoldReleasePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskHoldRelease, data), nil
}

func ParseHoldReleasePayload(task *asynq.Task) (HoldReleasePayload, error) {
	var payload HoldReleasePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return HoldReleasePayload{}, err
	}
	return payload, nil
}
