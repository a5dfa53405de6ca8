package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeSender records delivered notifications.
type fakeSender struct {
	name   string
	titles []string
	err    error
}

func (s *fakeSender) Send(ctx context.Context, title, message string) error {
	s.titles = append(s.titles, title)
	return s.err
}

func (s *fakeSender) Name() string { return s.name }

func TestNotifyFiltersEvents(t *testing.T) {
	sender := &fakeSender{name: "fake"}
	n := New(testLogger(), []string{"deals_found"}, sender)

	require.NoError(t, n.Notify(context.Background(), "cycle_failed", "nope", "body"))
	assert.Empty(t, sender.titles)

	require.NoError(t, n.Notify(context.Background(), "deals_found", "yes", "body"))
	assert.Equal(t, []string{"yes"}, sender.titles)
}

func TestNotifyEmptyEventListAllowsEverything(t *testing.T) {
	sender := &fakeSender{name: "fake"}
	n := New(testLogger(), nil, sender)

	require.NoError(t, n.Notify(context.Background(), "anything", "t", "m"))
	assert.Len(t, sender.titles, 1)
}

func TestNotifyOneFailingSenderDoesNotBlockOthers(t *testing.T) {
	bad := &fakeSender{name: "bad", err: errors.New("down")}
	good := &fakeSender{name: "good"}
	n := New(testLogger(), nil, bad, good)

	err := n.Notify(context.Background(), "e", "t", "m")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad")
	assert.Len(t, good.titles, 1)
}

func TestNotifyNoSendersIsNoop(t *testing.T) {
	n := New(testLogger(), nil)
	assert.NoError(t, n.Notify(context.Background(), "e", "t", "m"))
}

func TestDiscordSenderPostsContent(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	s := NewDiscordSender(srv.URL)
	require.NoError(t, s.Send(context.Background(), "Title", "Body"))
	assert.Equal(t, "**Title**\nBody", got["content"])
}

func TestDiscordSenderErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	s := NewDiscordSender(srv.URL)
	err := s.Send(context.Background(), "Title", "Body")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}
