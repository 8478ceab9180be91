// Package worker runs asynchronous plan generation. Each run owns one
// task row and reports progress to the client webhook until it emits
// exactly one terminal update.
package worker

import (
	"context"
	"log"
	"time"

	"github.com/mohammad-safakhou/prepagent/config"
	"github.com/mohammad-safakhou/prepagent/internal/conversation"
	"github.com/mohammad-safakhou/prepagent/internal/notify"
	"github.com/mohammad-safakhou/prepagent/internal/plan"
	"github.com/mohammad-safakhou/prepagent/internal/research"
	"github.com/mohammad-safakhou/prepagent/internal/store"
)

// Progress step messages, delivered in order before the terminal update.
var initialSteps = []string{
	"Researching latest interview trends and resources...",
	"Analyzing preparation materials for your domains...",
	"Creating your personalized study plan...",
	"Finalizing recommendations...",
}

var refinementSteps = []string{
	"Reviewing your refinement request...",
	"Adjusting your preparation plan...",
}

const (
	planArtifactName        = "interview_preparation_plan"
	refinedPlanArtifactName = "refined_interview_preparation_plan"
)

type Worker struct {
	tasks    *store.Store
	conv     conversation.Store
	research *research.Manager
	notifier *notify.Notifier
	cfg      config.WebhookConfig
	logger   *log.Logger
}

func New(tasks *store.Store, conv conversation.Store, res *research.Manager, notifier *notify.Notifier, cfg config.WebhookConfig, logger *log.Logger) *Worker {
	if logger == nil {
		logger = log.New(log.Writer(), "[WORKER] ", log.LstdFlags)
	}
	return &Worker{tasks: tasks, conv: conv, research: res, notifier: notifier, cfg: cfg, logger: logger}
}

// Run executes one plan generation task to its terminal state. It is
// meant to be launched on its own goroutine; all failure paths are
// resolved into a terminal task update rather than returned. Caller
// metadata rides along on every task snapshot.
func (w *Worker) Run(ctx context.Context, taskID, contextID string, refinement bool, cb notify.CallbackConfig, meta map[string]interface{}) {
	terminalSent := false
	var hist []notify.Message
	defer func() {
		if r := recover(); r != nil {
			w.logger.Printf("task %s panicked: %v", taskID, r)
			if !terminalSent {
				w.fail(ctx, taskID, contextID, cb, hist, meta, "An internal error occurred while generating your plan. Please try again.")
			}
		}
		if err := w.conv.EndProcessing(ctx, contextID); err != nil {
			w.logger.Printf("releasing processing guard for %s: %v", contextID, err)
		}
	}()

	state, err := w.conv.Get(ctx, contextID)
	if err != nil || state == nil {
		w.logger.Printf("task %s: loading conversation %s: %v", taskID, contextID, err)
		w.fail(ctx, taskID, contextID, cb, nil, meta, "Your conversation could not be loaded. Please start over.")
		terminalSent = true
		return
	}

	if err := w.tasks.SetTaskStatus(ctx, taskID, store.TaskStateWorking); err != nil {
		w.logger.Printf("task %s: marking working: %v", taskID, err)
	}

	hist = snapshotHistory(taskID, contextID, state.History)

	w.sleep(ctx, w.cfg.ProcessingDelay)

	steps := initialSteps
	if refinement {
		steps = refinementSteps
	}
	for i, step := range steps {
		if i > 0 {
			w.sleep(ctx, w.cfg.ProgressInterval)
		}
		w.progress(ctx, taskID, contextID, cb, hist, step)
	}

	started := time.Now()
	var rendered string
	var summary research.Summary
	if refinement {
		summary = research.Summary{Success: true}
		rendered = plan.RenderRefined(state.Plan, state.Inputs, state.RefinementRequests)
	} else {
		summary = w.research.ComprehensiveResearch(ctx, state.Inputs.Domains, state.Inputs.SkillLevel, state.Inputs.Companies)
		if summary.Success {
			rendered = plan.Render(state.Inputs, summary)
		} else {
			w.logger.Printf("task %s: research failed entirely, using fallback plan", taskID)
			rendered = plan.RenderFallback(state.Inputs)
		}
	}

	// The plan lands in conversation state before the terminal update
	// goes out: a client reacting to the webhook immediately must find
	// the plan already there.
	state.Plan = rendered
	state.PlanGenerated = true
	state.AdvancePhase(conversation.PhasePlanDelivered)
	if err := w.conv.Save(ctx, contextID, state); err != nil {
		w.logger.Printf("task %s: saving conversation: %v", taskID, err)
		w.fail(ctx, taskID, contextID, cb, hist, meta, "Your plan could not be saved. Please try again.")
		terminalSent = true
		return
	}

	metadata := make(map[string]interface{}, len(meta)+1)
	for k, v := range meta {
		metadata[k] = v
	}
	metadata["processingSummary"] = map[string]interface{}{
		"agentType":         "interview_prep",
		"totalSteps":        len(steps),
		"researchSucceeded": summary.Success,
		"researchFailures":  len(summary.Failures),
		"durationSeconds":   int(time.Since(started).Seconds()),
		"refinement":        refinement,
	}
	if err := w.tasks.SetTaskMetadata(ctx, taskID, metadata); err != nil {
		w.logger.Printf("task %s: saving metadata: %v", taskID, err)
	}

	terminalState := store.TaskStateInputRequired
	artifactName := planArtifactName
	text := rendered + "\n\n" + "Are you satisfied with your preparation plan, or would you like me to make any adjustments?"
	if refinement {
		terminalState = store.TaskStateCompleted
		artifactName = refinedPlanArtifactName
		text = rendered + "\n\n" + "Here is your refined plan. Are you satisfied, or would you like further adjustments?"
	}

	if err := w.tasks.SetTaskStatus(ctx, taskID, terminalState); err != nil {
		w.logger.Printf("task %s: marking %s: %v", taskID, terminalState, err)
	}
	if err := w.tasks.AppendProgress(ctx, taskID, terminalState, "Plan generation finished"); err != nil {
		w.logger.Printf("task %s: recording terminal progress: %v", taskID, err)
	}

	msg := notify.NewTextMessage("agent", text, taskID, contextID)
	snapshot := notify.NewTask(taskID, contextID, terminalState, &msg)
	snapshot.Artifacts = append(snapshot.Artifacts, notify.NewTextArtifact(artifactName, rendered))
	snapshot.History = append(hist, msg)
	snapshot.Metadata = metadata
	if err := w.notifier.Send(ctx, cb, snapshot); err != nil {
		w.logger.Printf("task %s: terminal delivery failed: %v", taskID, err)
	}
	tasksFinishedTotal.WithLabelValues(terminalState).Inc()
	terminalSent = true
}

// progress records one audit entry and ships a working update.
func (w *Worker) progress(ctx context.Context, taskID, contextID string, cb notify.CallbackConfig, hist []notify.Message, message string) {
	if err := w.tasks.AppendProgress(ctx, taskID, store.TaskStateWorking, message); err != nil {
		w.logger.Printf("task %s: recording progress: %v", taskID, err)
	}
	msg := notify.NewTextMessage("agent", message, taskID, contextID)
	snapshot := notify.NewTask(taskID, contextID, store.TaskStateWorking, &msg)
	snapshot.History = append(append([]notify.Message(nil), hist...), msg)
	if err := w.notifier.Send(ctx, cb, snapshot); err != nil {
		w.logger.Printf("task %s: progress delivery failed: %v", taskID, err)
	}
}

// snapshotHistory converts stored conversation turns into snapshot
// messages so every delivery carries the dialog so far.
func snapshotHistory(taskID, contextID string, msgs []conversation.Message) []notify.Message {
	out := make([]notify.Message, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, notify.NewTextMessage(m.Role, m.Content, taskID, contextID))
	}
	return out
}

// fail emits the failed terminal update.
func (w *Worker) fail(ctx context.Context, taskID, contextID string, cb notify.CallbackConfig, hist []notify.Message, meta map[string]interface{}, reason string) {
	if err := w.tasks.SetTaskStatus(ctx, taskID, store.TaskStateFailed); err != nil {
		w.logger.Printf("task %s: marking failed: %v", taskID, err)
	}
	if err := w.tasks.AppendProgress(ctx, taskID, store.TaskStateFailed, reason); err != nil {
		w.logger.Printf("task %s: recording failure: %v", taskID, err)
	}
	metadata := make(map[string]interface{}, len(meta)+1)
	for k, v := range meta {
		metadata[k] = v
	}
	metadata["errorInfo"] = map[string]interface{}{"message": reason}
	if err := w.tasks.SetTaskMetadata(ctx, taskID, metadata); err != nil {
		w.logger.Printf("task %s: saving failure metadata: %v", taskID, err)
	}
	msg := notify.NewTextMessage("agent", reason, taskID, contextID)
	snapshot := notify.NewTask(taskID, contextID, store.TaskStateFailed, &msg)
	snapshot.History = append(append([]notify.Message(nil), hist...), msg)
	snapshot.Metadata = metadata
	if err := w.notifier.Send(ctx, cb, snapshot); err != nil {
		w.logger.Printf("task %s: failure delivery failed: %v", taskID, err)
	}
	tasksFinishedTotal.WithLabelValues(store.TaskStateFailed).Inc()
}

func (w *Worker) sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
}
