package handler

import (
	"time"

	"orderdoc-server/pkg/taskmanager"

	"github.com/google/uuid"
)

type createOrderRequest struct {
	PhoneNumber string `json:"phoneNumber" binding:"required"`
	Message     string `json:"message" binding:"required"`
	ClientID    string `json:"clientId"`
}

type messageRequest struct {
	Message string `json:"message" binding:"required"`
}

type messageResponse struct {
	ProjectID uuid.UUID `json:"projectId"`
	Response  string    `json:"response"`
}

type taskAcceptedResponse struct {
	TaskID uuid.UUID `json:"taskId"`
}

type taskResponse struct {
	ID        uuid.UUID   `json:"id"`
	Kind      string      `json:"kind"`
	Status    string      `json:"status"`
	Message   string      `json:"message,omitempty"`
	Result    interface{} `json:"result,omitempty"`
	Error     string      `json:"error,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

func newTaskResponse(t taskmanager.Task) taskResponse {
	return taskResponse{
		ID:        t.ID,
		Kind:      t.Kind,
		Status:    string(t.Status),
		Message:   t.Message,
		Result:    t.Result,
		Error:     t.Error,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

type clearCacheResponse struct {
	Deleted int64 `json:"deleted"`
}
