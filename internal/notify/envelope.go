// Package notify delivers task updates to client webhooks as JSON-RPC
// pushNotifications/send calls.
package notify

import (
	"time"

	"github.com/google/uuid"
)

const rpcMethod = "pushNotifications/send"

// Part is one content block inside a message or artifact.
type Part struct {
	Kind string `json:"kind"`
	Text string `json:"text"`
}

// Message is a single conversational message in a task snapshot.
type Message struct {
	Role      string `json:"role"`
	Parts     []Part `json:"parts"`
	MessageID string `json:"messageId"`
	TaskID    string `json:"taskId,omitempty"`
	ContextID string `json:"contextId,omitempty"`
	Kind      string `json:"kind"`
}

// Artifact is a produced output attached to a task.
type Artifact struct {
	ArtifactID string `json:"artifactId"`
	Name       string `json:"name"`
	Parts      []Part `json:"parts"`
}

// Status is the task's current state plus the message that accompanied
// the transition.
type Status struct {
	State     string   `json:"state"`
	Message   *Message `json:"message,omitempty"`
	Timestamp string   `json:"timestamp"`
}

// Task is the snapshot shipped inside a push notification.
type Task struct {
	ID        string                 `json:"id"`
	ContextID string                 `json:"contextId"`
	Status    Status                 `json:"status"`
	Artifacts []Artifact             `json:"artifacts,omitempty"`
	History   []Message              `json:"history,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Kind      string                 `json:"kind"`
}

// Envelope is the JSON-RPC 2.0 request wrapping a task snapshot.
type Envelope struct {
	JSONRPC string         `json:"jsonrpc"`
	Method  string         `json:"method"`
	Params  EnvelopeParams `json:"params"`
	ID      string         `json:"id"`
}

type EnvelopeParams struct {
	Task Task `json:"task"`
}

// NewEnvelope wraps a task snapshot in a JSON-RPC request with a fresh id.
func NewEnvelope(task Task) Envelope {
	return Envelope{JSONRPC: "2.0", Method: rpcMethod, Params: EnvelopeParams{Task: task}, ID: uuid.NewString()}
}

// NewTextMessage builds an agent message with a single text part.
func NewTextMessage(role, text, taskID, contextID string) Message {
	return Message{
		Role:      role,
		Parts:     []Part{{Kind: "text", Text: text}},
		MessageID: uuid.NewString(),
		TaskID:    taskID,
		ContextID: contextID,
		Kind:      "message",
	}
}

// NewTextArtifact builds a named artifact carrying one text part.
func NewTextArtifact(name, text string) Artifact {
	return Artifact{
		ArtifactID: uuid.NewString(),
		Name:       name,
		Parts:      []Part{{Kind: "text", Text: text}},
	}
}

// NewTask builds a snapshot positioned at the given state.
func NewTask(taskID, contextID, state string, message *Message) Task {
	return Task{
		ID:        taskID,
		ContextID: contextID,
		Status:    Status{State: state, Message: message, Timestamp: time.Now().UTC().Format(time.RFC3339)},
		Kind:      "task",
	}
}
