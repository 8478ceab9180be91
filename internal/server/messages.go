package server

import (
	"context"
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/mohammad-safakhou/prepagent/internal/conversation"
	"github.com/mohammad-safakhou/prepagent/internal/notify"
	"github.com/mohammad-safakhou/prepagent/internal/plan"
	"github.com/mohammad-safakhou/prepagent/internal/research"
	"github.com/mohammad-safakhou/prepagent/internal/store"
	"github.com/mohammad-safakhou/prepagent/internal/worker"
)

// MessagesHandler is the orchestrator boundary: one inbound message, one
// controller turn, and either a synchronous reply or an async handoff.
type MessagesHandler struct {
	Conv       conversation.Store
	Controller *conversation.Controller
	Tasks      *store.Store
	Worker     *worker.Worker
	Research   *research.Manager
	Logger     *log.Logger
}

func (h *MessagesHandler) Register(g *echo.Group) {
	g.POST("/messages/send", h.send)
}

type messagePart struct {
	Kind string `json:"kind"`
	Text string `json:"text"`
}

type inboundMessage struct {
	ContextID string        `json:"contextId"`
	Parts     []messagePart `json:"parts"`
}

type sendRequest struct {
	Message                inboundMessage         `json:"message"`
	PushNotificationConfig *notify.CallbackConfig `json:"pushNotificationConfig,omitempty"`
	Metadata               map[string]interface{} `json:"metadata,omitempty"`
}

type sendResponse struct {
	ContextID        string `json:"context_id"`
	TaskID           string `json:"task_id,omitempty"`
	State            string `json:"state,omitempty"`
	Content          string `json:"content,omitempty"`
	Phase            string `json:"phase,omitempty"`
	RequireUserInput bool   `json:"require_user_input"`
	TaskComplete     bool   `json:"task_complete"`
}

func (h *MessagesHandler) send(c echo.Context) error {
	var req sendRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	text := joinTextParts(req.Message.Parts)
	if strings.TrimSpace(text) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "message has no text content")
	}

	contextID := req.Message.ContextID
	if contextID == "" {
		contextID = uuid.NewString()
	}

	ctx := c.Request().Context()
	state, err := h.Conv.Ensure(ctx, contextID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	turn := h.Controller.Advance(state, text)
	messagesTotal.WithLabelValues(string(turn.Phase)).Inc()

	if turn.Phase == conversation.PhaseError {
		// error turns are never persisted; the stored state stays at its
		// last good phase so the user can simply retry
		return c.JSON(http.StatusOK, sendResponse{
			ContextID:        contextID,
			Content:          turn.Content,
			Phase:            string(turn.Phase),
			RequireUserInput: turn.RequireUserInput,
		})
	}

	if !turn.TriggerAsync {
		if err := h.Conv.Save(ctx, contextID, state); err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		return c.JSON(http.StatusOK, sendResponse{
			ContextID:        contextID,
			Content:          turn.Content,
			Phase:            string(turn.Phase),
			RequireUserInput: turn.RequireUserInput,
			TaskComplete:     turn.TaskComplete,
		})
	}

	// Async handoff requires a usable callback; anything else falls back
	// to computing the plan inline.
	cb, ok := usableCallback(req.PushNotificationConfig)
	if !ok {
		return h.sendSync(c, contextID, state, turn)
	}

	acquired, err := h.Conv.TryBeginProcessing(ctx, contextID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if !acquired {
		// duplicate confirmation while a run is already in flight
		return c.JSON(http.StatusOK, sendResponse{
			ContextID: contextID,
			State:     store.TaskStateWorking,
			Content:   "I'm currently processing your request. Please wait for the results via push notification.",
			Phase:     string(state.Phase),
		})
	}

	kind := store.TaskKindInitial
	nextPhase := conversation.PhaseAsyncProcessing
	if turn.Refinement {
		kind = store.TaskKindRefinement
		nextPhase = conversation.PhaseRefinementProcessing
	}

	task, err := h.Tasks.CreateTask(ctx, contextID, kind)
	if err != nil {
		_ = h.Conv.EndProcessing(ctx, contextID)
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	state.AdvancePhase(nextPhase)
	if err := h.Conv.Save(ctx, contextID, state); err != nil {
		_ = h.Conv.EndProcessing(ctx, contextID)
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	tasksCreatedTotal.WithLabelValues(kind).Inc()

	// The worker runs detached; this request does not await any of it.
	go h.Worker.Run(context.Background(), task.ID, contextID, turn.Refinement, cb, req.Metadata)

	h.Logger.Printf("accepted %s task %s for context %s", kind, task.ID, contextID)
	return c.JSON(http.StatusAccepted, sendResponse{
		ContextID: contextID,
		TaskID:    task.ID,
		State:     store.TaskStateSubmitted,
		Content:   turn.Content,
		Phase:     string(nextPhase),
	})
}

// sendSync computes the plan inline when the caller gave no callback to
// deliver it to.
func (h *MessagesHandler) sendSync(c echo.Context, contextID string, state *conversation.State, turn conversation.Turn) error {
	ctx := c.Request().Context()
	h.Logger.Printf("no usable callback for context %s, handling synchronously", contextID)

	var rendered string
	if turn.Refinement {
		rendered = plan.RenderRefined(state.Plan, state.Inputs, state.RefinementRequests)
	} else {
		sum := h.Research.ComprehensiveResearch(ctx, state.Inputs.Domains, state.Inputs.SkillLevel, state.Inputs.Companies)
		if sum.Success {
			rendered = plan.Render(state.Inputs, sum)
		} else {
			rendered = plan.RenderFallback(state.Inputs)
		}
	}

	state.Plan = rendered
	state.PlanGenerated = true
	state.AdvancePhase(conversation.PhasePlanDelivered)
	if err := h.Conv.Save(ctx, contextID, state); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	return c.JSON(http.StatusOK, sendResponse{
		ContextID:        contextID,
		Content:          rendered + "\n\nAre you satisfied with your preparation plan, or would you like me to make any adjustments?",
		Phase:            string(conversation.PhasePlanDelivered),
		RequireUserInput: true,
	})
}

func joinTextParts(parts []messagePart) string {
	var texts []string
	for _, p := range parts {
		if (p.Kind == "" || p.Kind == "text") && p.Text != "" {
			texts = append(texts, p.Text)
		}
	}
	return strings.Join(texts, " ")
}

// usableCallback reports whether the supplied config can actually be
// delivered to. A malformed callback is treated the same as none at all.
func usableCallback(cb *notify.CallbackConfig) (notify.CallbackConfig, bool) {
	if cb == nil || strings.TrimSpace(cb.URL) == "" {
		return notify.CallbackConfig{}, false
	}
	if !strings.Contains(cb.URL, "BASE_API_URL") {
		if err := notify.ValidateCallbackURL(cb.URL); err != nil {
			return notify.CallbackConfig{}, false
		}
	}
	return *cb, true
}
