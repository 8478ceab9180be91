package notify

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mohammad-safakhou/prepagent/config"
)

func testWebhookConfig() config.WebhookConfig {
	return config.WebhookConfig{
		Enabled:          true,
		CredentialSecret: "secret",
		CredentialTTL:    time.Hour,
		UserAgent:        "PrepAgent/1.0",
		Timeout:          5 * time.Second,
	}
}

func quietLogger() *log.Logger { return log.New(io.Discard, "", 0) }

func TestResolveCallbackURL(t *testing.T) {
	resolved, err := ResolveCallbackURL("BASE_API_URL/webhook", "https://api.example.com")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved != "https://api.example.com/webhook" {
		t.Fatalf("unexpected resolution: %q", resolved)
	}

	// idempotent: resolving again is a no-op
	again, err := ResolveCallbackURL(resolved, "https://api.example.com")
	if err != nil || again != resolved {
		t.Fatalf("second resolution changed the url: %q (%v)", again, err)
	}

	// fail closed when the placeholder cannot be substituted
	if _, err := ResolveCallbackURL("BASE_API_URL/webhook", ""); err == nil {
		t.Fatal("expected error with unresolvable placeholder")
	}
}

func TestValidateCallbackURL(t *testing.T) {
	if err := ValidateCallbackURL("https://client.example/hook"); err != nil {
		t.Fatalf("valid url rejected: %v", err)
	}
	for _, bad := range []string{"ftp://client.example/hook", "https://", "not a url at all\x7f"} {
		if err := ValidateCallbackURL(bad); err == nil {
			t.Fatalf("expected %q to be rejected", bad)
		}
	}
}

func TestSendDeliversEnvelope(t *testing.T) {
	var gotHeaders http.Header
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeaders = r.Header.Clone()
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewNotifier(testWebhookConfig(), quietLogger())
	msg := NewTextMessage("agent", "your plan is ready", "task-1", "ctx-1")
	task := NewTask("task-1", "ctx-1", "completed", &msg)
	task.Artifacts = append(task.Artifacts, NewTextArtifact("interview_preparation_plan", "# Plan"))

	cb := CallbackConfig{URL: srv.URL, Token: "cb-token"}
	if err := n.Send(context.Background(), cb, task); err != nil {
		t.Fatalf("send: %v", err)
	}

	if ct := gotHeaders.Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Fatalf("unexpected content type: %q", ct)
	}
	if ua := gotHeaders.Get("User-Agent"); ua != "PrepAgent/1.0" {
		t.Fatalf("unexpected user agent: %q", ua)
	}
	if tok := gotHeaders.Get("X-Webhook-Token"); tok != "cb-token" {
		t.Fatalf("unexpected webhook token: %q", tok)
	}
	if auth := gotHeaders.Get("Authorization"); !strings.HasPrefix(auth, "Bearer ") {
		t.Fatalf("expected bearer credential, got %q", auth)
	}

	var env Envelope
	if err := json.Unmarshal(gotBody, &env); err != nil {
		t.Fatalf("decoding envelope: %v", err)
	}
	if env.JSONRPC != "2.0" || env.Method != "pushNotifications/send" || env.ID == "" {
		t.Fatalf("malformed envelope: %+v", env)
	}
	if env.Params.Task.ID != "task-1" || env.Params.Task.Status.State != "completed" {
		t.Fatalf("unexpected task snapshot: %+v", env.Params.Task)
	}
	if len(env.Params.Task.Artifacts) != 1 || env.Params.Task.Artifacts[0].Name != "interview_preparation_plan" {
		t.Fatalf("artifact missing: %+v", env.Params.Task.Artifacts)
	}
}

func TestSendReportsServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	n := NewNotifier(testWebhookConfig(), quietLogger())
	task := NewTask("task-1", "ctx-1", "working", nil)
	if err := n.Send(context.Background(), CallbackConfig{URL: srv.URL}, task); err == nil {
		t.Fatal("expected error on 5xx response")
	}
}

func TestSendDisabled(t *testing.T) {
	cfg := testWebhookConfig()
	cfg.Enabled = false
	n := NewNotifier(cfg, quietLogger())

	// no server behind this URL; a disabled notifier must not dial at all
	task := NewTask("task-1", "ctx-1", "working", nil)
	if err := n.Send(context.Background(), CallbackConfig{URL: "http://127.0.0.1:1/unreachable"}, task); err != nil {
		t.Fatalf("disabled notifier should be a no-op, got %v", err)
	}
}

func TestSendSkipsNonBearerCredential(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth := r.Header.Get("Authorization"); auth != "" {
			t.Errorf("expected no credential for basic-only scheme, got %q", auth)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	n := NewNotifier(testWebhookConfig(), quietLogger())
	task := NewTask("task-1", "ctx-1", "working", nil)
	cb := CallbackConfig{URL: srv.URL, Schemes: []string{"basic"}}
	if err := n.Send(context.Background(), cb, task); err != nil {
		t.Fatalf("send: %v", err)
	}
}
