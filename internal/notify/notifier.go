// Package notify fans scan alerts out to chat channels. Telegram and Discord
// senders share one delivery path, and an event filter keeps operators from
// drowning in cycles that found nothing interesting.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Sender is one notification channel.
type Sender interface {
	Send(ctx context.Context, title, message string) error
	Name() string
}

// Notifier dispatches notifications to its senders. Only events named in the
// configured set are forwarded; an empty set forwards everything.
type Notifier struct {
	senders []Sender
	events  map[string]struct{}
	logger  *slog.Logger
}

// New creates a Notifier delivering to the given senders.
func New(logger *slog.Logger, events []string, senders ...Sender) *Notifier {
	allowed := make(map[string]struct{}, len(events))
	for _, e := range events {
		allowed[strings.TrimSpace(e)] = struct{}{}
	}
	return &Notifier{
		senders: senders,
		events:  allowed,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// Notify delivers to every sender when the event passes the filter. A sender
// failure never blocks the remaining senders; failures are joined into the
// returned error.
func (n *Notifier) Notify(ctx context.Context, event, title, message string) error {
	if len(n.events) > 0 {
		if _, ok := n.events[event]; !ok {
			n.logger.Debug("event filtered out", slog.String("event", event))
			return nil
		}
	}

	var errs []error
	for _, s := range n.senders {
		if err := s.Send(ctx, title, message); err != nil {
			n.logger.Error("sender failed",
				slog.String("sender", s.Name()),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}
		n.logger.Debug("notification sent",
			slog.String("sender", s.Name()),
			slog.String("title", title),
		)
	}
	if len(errs) > 0 {
		return fmt.Errorf("notify: %w", errors.Join(errs...))
	}
	return nil
}

// postJSON is the shared delivery path for webhook-style senders.
func postJSON(ctx context.Context, client *http.Client, url string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

func newSenderClient() *http.Client {
	return &http.Client{Timeout: 10 * time.Second}
}
