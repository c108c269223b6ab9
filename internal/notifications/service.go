package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"lifeingest/internal/config"
)

const userAgent = "lifeingest/0.1.0"

// RunSummary is the notification view of a finished run.
type RunSummary struct {
	RunID          string
	Archives       int
	FailedArchives int
	Files          int
	FailedFiles    int
	Events         int
	Emails         int
	Duration       time.Duration
}

// Degraded reports whether any archive or file was skipped.
func (s RunSummary) Degraded() bool {
	return s.FailedArchives > 0 || s.FailedFiles > 0
}

// Service defines the notification surface used by the pipeline and CLI.
type Service interface {
	NotifyRunCompleted(ctx context.Context, summary RunSummary) error
	NotifyRunFailed(ctx context.Context, runID string, err error) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:      topic,
		client:        &http.Client{Timeout: timeout},
		notifySuccess: cfg.Notifications.NotifySuccess,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint      string
	client        *http.Client
	notifySuccess bool
}

func (n *ntfyService) NotifyRunCompleted(ctx context.Context, summary RunSummary) error {
	if !summary.Degraded() && !n.notifySuccess {
		return nil
	}

	duration := summary.Duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d calendar events and %d email headers from %d archives in %s",
		summary.Events, summary.Emails, summary.Archives, duration)
	data := payload{
		title: "lifeingest - Run Complete",
		tags:  []string{"lifeingest", "run", "completed"},
	}
	if summary.Degraded() {
		fmt.Fprintf(&b, "\nSkipped: %d archives, %d files", summary.FailedArchives, summary.FailedFiles)
		data.title = "lifeingest - Run Complete (with skips)"
		data.tags = []string{"lifeingest", "run", "warning"}
	}
	if id := strings.TrimSpace(summary.RunID); id != "" {
		fmt.Fprintf(&b, "\nRun: %s", id)
	}
	data.message = b.String()
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyRunFailed(ctx context.Context, runID string, err error) error {
	var b strings.Builder
	b.WriteString("Ingestion failed: ")
	if err != nil {
		b.WriteString(strings.TrimSpace(err.Error()))
	} else {
		b.WriteString("unknown")
	}
	if id := strings.TrimSpace(runID); id != "" {
		fmt.Fprintf(&b, "\nRun: %s", id)
	}

	data := payload{
		title:    "lifeingest - Run Failed",
		message:  b.String(),
		tags:     []string{"lifeingest", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "lifeingest - Test",
		message:  "Notification system test",
		tags:     []string{"lifeingest", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyRunCompleted(context.Context, RunSummary) error  { return nil }
func (noopService) NotifyRunFailed(context.Context, string, error) error { return nil }
func (noopService) TestNotification(context.Context) error               { return nil }

// Enabled reports whether svc actually delivers notifications.
func Enabled(svc Service) bool {
	_, noop := svc.(noopService)
	return svc != nil && !noop
}
