package config

import (
	"testing"
	"time"
)

func TestPostgresDSN(t *testing.T) {
	cfg := PostgresConfig{Host: "db", User: "app", Password: "secret", DBName: "prepagent"}
	got := cfg.DSN()
	want := "postgres://app:secret@db:5432/prepagent?sslmode=disable"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}

	cfg.URL = "postgres://override/db"
	if cfg.DSN() != "postgres://override/db" {
		t.Fatalf("expected url to take precedence, got %q", cfg.DSN())
	}
}

func TestPostgresValidate(t *testing.T) {
	if err := (PostgresConfig{URL: "postgres://x/y"}).Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
	if err := (PostgresConfig{Host: "db", Port: "5432", DBName: "prepagent"}).Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
	if err := (PostgresConfig{Host: "db"}).Validate(); err == nil {
		t.Fatalf("expected validation error for missing port")
	}
}

func TestWebhookValidate(t *testing.T) {
	cfg := WebhookConfig{Enabled: true, CredentialSecret: "s", Timeout: time.Minute}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}

	if err := (WebhookConfig{Enabled: true, Timeout: time.Minute}).Validate(); err == nil {
		t.Fatalf("expected validation error for missing credential secret")
	}
	if err := (WebhookConfig{Enabled: true, CredentialSecret: "s"}).Validate(); err == nil {
		t.Fatalf("expected validation error for zero timeout")
	}
	// disabled webhooks need no further settings
	if err := (WebhookConfig{}).Validate(); err != nil {
		t.Fatalf("unexpected validation error for disabled webhooks: %v", err)
	}
}

func TestProviderBackendValidate(t *testing.T) {
	if err := (ResearchConfig{Provider: "brave"}).Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
	if err := (ResearchConfig{Provider: "duckduckgo"}).Validate(); err == nil {
		t.Fatalf("expected validation error for unknown provider")
	}
	if err := (ConversationConfig{Backend: "redis"}).Validate(); err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
	if err := (ConversationConfig{Backend: "memcache"}).Validate(); err == nil {
		t.Fatalf("expected validation error for unknown backend")
	}
}
