package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mohammad-safakhou/prepagent/config"
	"github.com/mohammad-safakhou/prepagent/internal/runtime"
)

// baseURLPlaceholder is the literal clients may embed in their callback
// URL; it resolves against the configured base API URL.
const baseURLPlaceholder = "BASE_API_URL"

// CallbackConfig is the per-task delivery target supplied by the client.
type CallbackConfig struct {
	URL     string   `json:"url"`
	Token   string   `json:"token,omitempty"`
	Schemes []string `json:"schemes,omitempty"`
}

// ResolveCallbackURL substitutes the BASE_API_URL placeholder. Resolution
// is idempotent: a URL without the placeholder passes through untouched.
// A placeholder with no configured base URL is an error rather than a
// request to a literal "BASE_API_URL" host.
func ResolveCallbackURL(raw, baseAPIURL string) (string, error) {
	if !strings.Contains(raw, baseURLPlaceholder) {
		return raw, nil
	}
	if baseAPIURL == "" {
		return "", fmt.Errorf("callback url references %s but no base api url is configured", baseURLPlaceholder)
	}
	return strings.ReplaceAll(raw, baseURLPlaceholder, strings.TrimRight(baseAPIURL, "/")), nil
}

// ValidateCallbackURL accepts absolute http/https URLs with a host.
func ValidateCallbackURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid callback url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("callback url scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("callback url has no host")
	}
	return nil
}

// Notifier posts task snapshots to client webhooks. Deliveries are
// fire-and-forget: a failed POST is logged, never retried.
type Notifier struct {
	cfg    config.WebhookConfig
	client *http.Client
	logger *log.Logger
}

func NewNotifier(cfg config.WebhookConfig, logger *log.Logger) *Notifier {
	if logger == nil {
		logger = log.New(log.Writer(), "[WEBHOOK] ", log.LstdFlags)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = time.Minute
	}
	return &Notifier{cfg: cfg, client: &http.Client{Timeout: timeout}, logger: logger}
}

// Send delivers one task snapshot to the callback. The error reports
// delivery failure for the caller's accounting; no retry is attempted.
func (n *Notifier) Send(ctx context.Context, cb CallbackConfig, task Task) error {
	if !n.cfg.Enabled {
		return nil
	}
	target, err := ResolveCallbackURL(cb.URL, n.cfg.BaseAPIURL)
	if err != nil {
		return err
	}
	if err := ValidateCallbackURL(target); err != nil {
		return err
	}

	body, err := json.Marshal(NewEnvelope(task))
	if err != nil {
		return fmt.Errorf("encoding push notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	if n.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", n.cfg.UserAgent)
	}
	if cb.Token != "" {
		req.Header.Set("X-Webhook-Token", cb.Token)
	}
	if auth := n.authorization(cb, task.ContextID); auth != "" {
		req.Header.Set("Authorization", auth)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		n.logger.Printf("delivery to %s failed: %v", target, err)
		deliveriesTotal.WithLabelValues("failed").Inc()
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		n.logger.Printf("delivery to %s returned status %d", target, resp.StatusCode)
		deliveriesTotal.WithLabelValues("failed").Inc()
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	n.logger.Printf("delivered %s update for task %s to %s", task.Status.State, task.ID, target)
	deliveriesTotal.WithLabelValues("ok").Inc()
	return nil
}

// authorization mints the outbound credential when the callback asks for
// bearer auth and a signing secret is configured.
func (n *Notifier) authorization(cb CallbackConfig, subject string) string {
	if n.cfg.CredentialSecret == "" {
		return ""
	}
	scheme := "bearer"
	if len(cb.Schemes) > 0 {
		scheme = strings.ToLower(cb.Schemes[0])
	}
	if scheme != "bearer" {
		return ""
	}
	ttl := n.cfg.CredentialTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	signed, err := runtime.SignJWT(subject, []byte(n.cfg.CredentialSecret), ttl)
	if err != nil {
		n.logger.Printf("signing webhook credential: %v", err)
		return ""
	}
	return "Bearer " + signed
}
