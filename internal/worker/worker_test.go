package worker

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sync"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/mohammad-safakhou/prepagent/config"
	"github.com/mohammad-safakhou/prepagent/internal/conversation"
	"github.com/mohammad-safakhou/prepagent/internal/notify"
	"github.com/mohammad-safakhou/prepagent/internal/research"
	"github.com/mohammad-safakhou/prepagent/internal/research/models"
	"github.com/mohammad-safakhou/prepagent/internal/store"
)

type okSearcher struct{}

func (okSearcher) Discover(_ context.Context, q string, _ int) ([]models.Result, error) {
	return []models.Result{{Title: "result for " + q, URL: "https://r.example"}}, nil
}

type downSearcher struct{}

func (downSearcher) Discover(context.Context, string, int) ([]models.Result, error) {
	return nil, errors.New("provider down")
}

// receiver records webhook deliveries and, at the terminal delivery,
// whether the conversation already carried the generated plan.
type receiver struct {
	mu                 sync.Mutex
	states             []string
	artifacts          []string
	terminalHistory    []notify.Message
	planBeforeTerminal bool
	conv               conversation.Store
	contextID          string
}

func (r *receiver) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		var env notify.Envelope
		if err := json.NewDecoder(req.Body).Decode(&env); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		r.mu.Lock()
		defer r.mu.Unlock()
		state := env.Params.Task.Status.State
		r.states = append(r.states, state)
		for _, a := range env.Params.Task.Artifacts {
			r.artifacts = append(r.artifacts, a.Name)
		}
		if store.IsTerminal(state) {
			r.terminalHistory = env.Params.Task.History
			if r.conv != nil {
				if st, _ := r.conv.Get(req.Context(), r.contextID); st != nil && st.PlanGenerated {
					r.planBeforeTerminal = true
				}
			}
		}
		w.WriteHeader(http.StatusOK)
	}
}

func quietLogger() *log.Logger { return log.New(io.Discard, "", 0) }

func expectStatusChange(mock sqlmock.Sqlmock, taskID, from, to string) {
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT status FROM tasks WHERE id=$1`)).
		WithArgs(taskID).
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow(from))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE tasks SET status=$2, updated_at=NOW() WHERE id=$1`)).
		WithArgs(taskID, to).
		WillReturnResult(sqlmock.NewResult(0, 1))
}

func expectProgress(mock sqlmock.Sqlmock, taskID string) {
	mock.ExpectExec(regexp.QuoteMeta(`
INSERT INTO task_progress (task_id, state, message, created_at)
VALUES ($1,$2,$3,NOW())`)).
		WithArgs(taskID, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
}

func expectMetadata(mock sqlmock.Sqlmock, taskID string) {
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE tasks SET metadata=$2, updated_at=NOW() WHERE id=$1`)).
		WithArgs(taskID, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
}

func readyState() *conversation.State {
	st := conversation.NewState()
	st.Inputs = conversation.Inputs{
		Domains:    []conversation.Domain{conversation.DomainAlgorithms},
		SkillLevel: conversation.SkillIntermediate,
		Preference: conversation.PrefBalanced,
	}
	st.Phase = conversation.PhaseAsyncProcessing
	return st
}

func TestRunHappyPath(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	const taskID = "11111111-1111-1111-1111-111111111111"
	const contextID = "ctx-1"

	conv := conversation.NewMemoryStore(0)
	seeded := readyState()
	seeded.AddMessage("user", "yes, let's start")
	if err := conv.Save(context.Background(), contextID, seeded); err != nil {
		t.Fatalf("seeding conversation: %v", err)
	}

	rec := &receiver{conv: conv, contextID: contextID}
	srv := httptest.NewServer(rec.handler())
	defer srv.Close()

	expectStatusChange(mock, taskID, store.TaskStateSubmitted, store.TaskStateWorking)
	for range initialSteps {
		expectProgress(mock, taskID)
	}
	expectMetadata(mock, taskID)
	expectStatusChange(mock, taskID, store.TaskStateWorking, store.TaskStateInputRequired)
	expectProgress(mock, taskID)

	cfg := config.WebhookConfig{Enabled: true, Timeout: 0, CredentialSecret: "secret"}
	w := New(store.New(db), conv, research.NewManager(okSearcher{}, 3, quietLogger()),
		notify.NewNotifier(cfg, quietLogger()), cfg, quietLogger())

	w.Run(context.Background(), taskID, contextID, false, notify.CallbackConfig{URL: srv.URL}, nil)

	if len(rec.states) != len(initialSteps)+1 {
		t.Fatalf("expected %d deliveries, got %v", len(initialSteps)+1, rec.states)
	}
	for i := 0; i < len(initialSteps); i++ {
		if rec.states[i] != store.TaskStateWorking {
			t.Fatalf("delivery %d should be working, got %q", i, rec.states[i])
		}
	}
	if last := rec.states[len(rec.states)-1]; last != store.TaskStateInputRequired {
		t.Fatalf("terminal delivery should be input-required, got %q", last)
	}
	if len(rec.artifacts) != 1 || rec.artifacts[0] != "interview_preparation_plan" {
		t.Fatalf("expected plan artifact on the terminal delivery only, got %v", rec.artifacts)
	}
	if !rec.planBeforeTerminal {
		t.Fatal("conversation must carry the plan before the terminal delivery goes out")
	}
	if n := len(rec.terminalHistory); n != 2 {
		t.Fatalf("terminal history should hold the prior turn plus the event message, got %d", n)
	}
	if rec.terminalHistory[0].Role != "user" || rec.terminalHistory[1].Role != "agent" {
		t.Fatalf("unexpected terminal history roles: %+v", rec.terminalHistory)
	}

	st, _ := conv.Get(context.Background(), contextID)
	if st.Phase != conversation.PhasePlanDelivered || !st.PlanGenerated {
		t.Fatalf("conversation not advanced: %+v", st.Phase)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestRunFallsBackWhenResearchFails(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	const taskID = "22222222-2222-2222-2222-222222222222"
	const contextID = "ctx-2"

	conv := conversation.NewMemoryStore(0)
	if err := conv.Save(context.Background(), contextID, readyState()); err != nil {
		t.Fatalf("seeding conversation: %v", err)
	}

	rec := &receiver{}
	srv := httptest.NewServer(rec.handler())
	defer srv.Close()

	expectStatusChange(mock, taskID, store.TaskStateSubmitted, store.TaskStateWorking)
	for range initialSteps {
		expectProgress(mock, taskID)
	}
	expectMetadata(mock, taskID)
	expectStatusChange(mock, taskID, store.TaskStateWorking, store.TaskStateInputRequired)
	expectProgress(mock, taskID)

	cfg := config.WebhookConfig{Enabled: true}
	w := New(store.New(db), conv, research.NewManager(downSearcher{}, 3, quietLogger()),
		notify.NewNotifier(cfg, quietLogger()), cfg, quietLogger())

	w.Run(context.Background(), taskID, contextID, false, notify.CallbackConfig{URL: srv.URL}, nil)

	// research failure still produces a plan, not a failed task
	if last := rec.states[len(rec.states)-1]; last != store.TaskStateInputRequired {
		t.Fatalf("expected input-required despite research failure, got %q", last)
	}
	st, _ := conv.Get(context.Background(), contextID)
	if st.Plan == "" {
		t.Fatal("fallback plan missing from conversation state")
	}
}

func TestRunMissingConversationFails(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	const taskID = "33333333-3333-3333-3333-333333333333"

	rec := &receiver{}
	srv := httptest.NewServer(rec.handler())
	defer srv.Close()

	expectStatusChange(mock, taskID, store.TaskStateSubmitted, store.TaskStateFailed)
	expectProgress(mock, taskID)
	expectMetadata(mock, taskID)

	cfg := config.WebhookConfig{Enabled: true}
	w := New(store.New(db), conversation.NewMemoryStore(0), research.NewManager(okSearcher{}, 3, quietLogger()),
		notify.NewNotifier(cfg, quietLogger()), cfg, quietLogger())

	w.Run(context.Background(), taskID, "unknown-context", false, notify.CallbackConfig{URL: srv.URL}, nil)

	if len(rec.states) != 1 || rec.states[0] != store.TaskStateFailed {
		t.Fatalf("expected exactly one failed delivery, got %v", rec.states)
	}
}

func TestRunRefinement(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	const taskID = "44444444-4444-4444-4444-444444444444"
	const contextID = "ctx-4"

	st := readyState()
	st.Plan = "# Base Plan"
	st.PlanGenerated = true
	st.RefinementRequests = []string{"more system design practice"}
	st.Phase = conversation.PhaseRefinementProcessing

	conv := conversation.NewMemoryStore(0)
	if err := conv.Save(context.Background(), contextID, st); err != nil {
		t.Fatalf("seeding conversation: %v", err)
	}

	rec := &receiver{}
	srv := httptest.NewServer(rec.handler())
	defer srv.Close()

	expectStatusChange(mock, taskID, store.TaskStateSubmitted, store.TaskStateWorking)
	for range refinementSteps {
		expectProgress(mock, taskID)
	}
	expectMetadata(mock, taskID)
	expectStatusChange(mock, taskID, store.TaskStateWorking, store.TaskStateCompleted)
	expectProgress(mock, taskID)

	cfg := config.WebhookConfig{Enabled: true}
	w := New(store.New(db), conv, research.NewManager(okSearcher{}, 3, quietLogger()),
		notify.NewNotifier(cfg, quietLogger()), cfg, quietLogger())

	w.Run(context.Background(), taskID, contextID, true, notify.CallbackConfig{URL: srv.URL}, nil)

	if last := rec.states[len(rec.states)-1]; last != store.TaskStateCompleted {
		t.Fatalf("refinement run should complete, got %q", last)
	}
	if len(rec.artifacts) != 1 || rec.artifacts[0] != "refined_interview_preparation_plan" {
		t.Fatalf("expected refined artifact, got %v", rec.artifacts)
	}
	reloaded, _ := conv.Get(context.Background(), contextID)
	if reloaded.Phase != conversation.PhasePlanDelivered {
		t.Fatalf("refined conversation should return to plan_delivered, got %q", reloaded.Phase)
	}
	if reloaded.Plan == "# Base Plan" {
		t.Fatal("plan was not refined")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
