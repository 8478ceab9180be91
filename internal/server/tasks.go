package server

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mohammad-safakhou/prepagent/internal/conversation"
	"github.com/mohammad-safakhou/prepagent/internal/store"
)

// TasksHandler exposes task status, the progress audit log, and
// conversation snapshots.
type TasksHandler struct {
	Tasks *store.Store
	Conv  conversation.Store
}

func (h *TasksHandler) Register(g *echo.Group) {
	g.GET("/tasks/:task_id", h.getTask)
	g.GET("/tasks/:task_id/progress", h.listProgress)
	g.GET("/conversations/:context_id", h.getConversation)
}

type taskResponse struct {
	ID        string                 `json:"id"`
	ContextID string                 `json:"context_id"`
	Kind      string                 `json:"kind"`
	Status    string                 `json:"status"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at"`
}

type progressResponse struct {
	State     string    `json:"state"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

type conversationResponse struct {
	ContextID          string                 `json:"context_id"`
	Phase              string                 `json:"phase"`
	Inputs             conversation.Inputs    `json:"inputs"`
	History            []conversation.Message `json:"history"`
	Plan               string                 `json:"plan,omitempty"`
	PlanGenerated      bool                   `json:"plan_generated"`
	RefinementRequests []string               `json:"refinement_requests,omitempty"`
	UpdatedAt          time.Time              `json:"updated_at"`
}

func (h *TasksHandler) getTask(c echo.Context) error {
	task, found, err := h.Tasks.GetTask(c.Request().Context(), c.Param("task_id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if !found {
		return echo.NewHTTPError(http.StatusNotFound, "task not found")
	}
	return c.JSON(http.StatusOK, taskResponse{
		ID:        task.ID,
		ContextID: task.ContextID,
		Kind:      task.Kind,
		Status:    task.Status,
		Metadata:  task.Metadata,
		CreatedAt: task.CreatedAt,
		UpdatedAt: task.UpdatedAt,
	})
}

func (h *TasksHandler) listProgress(c echo.Context) error {
	taskID := c.Param("task_id")
	_, found, err := h.Tasks.GetTask(c.Request().Context(), taskID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if !found {
		return echo.NewHTTPError(http.StatusNotFound, "task not found")
	}
	entries, err := h.Tasks.ListProgress(c.Request().Context(), taskID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	out := make([]progressResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, progressResponse{State: e.State, Message: e.Message, CreatedAt: e.CreatedAt})
	}
	return c.JSON(http.StatusOK, out)
}

func (h *TasksHandler) getConversation(c echo.Context) error {
	contextID := c.Param("context_id")
	state, err := h.Conv.Get(c.Request().Context(), contextID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if state == nil {
		return echo.NewHTTPError(http.StatusNotFound, "conversation not found")
	}
	return c.JSON(http.StatusOK, conversationResponse{
		ContextID:          contextID,
		Phase:              string(state.Phase),
		Inputs:             state.Inputs,
		History:            state.History,
		Plan:               state.Plan,
		PlanGenerated:      state.PlanGenerated,
		RefinementRequests: state.RefinementRequests,
		UpdatedAt:          state.UpdatedAt,
	})
}
