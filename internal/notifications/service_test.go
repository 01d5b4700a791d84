package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fieldsync/internal/config"
	"fieldsync/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.NotifySyncStarted(context.Background(), 3); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		send           func(svc notifications.Service) error
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name: "sync started",
			send: func(svc notifications.Service) error {
				return svc.NotifySyncStarted(context.Background(), 7)
			},
			expectTitle:   "Fieldsync - Sync Started",
			expectMessage: "Uploading 7 queued items",
			expectTags:    "fieldsync,sync,started",
		},
		{
			name: "sync completed clean",
			send: func(svc notifications.Service) error {
				return svc.NotifySyncCompleted(context.Background(), 7, 0, 90*time.Second)
			},
			expectTitle:   "Fieldsync - Sync Complete",
			expectMessage: "Sync complete: 7 items uploaded in 1m30s",
			expectTags:    "fieldsync,sync,completed",
		},
		{
			name: "sync completed with failures",
			send: func(svc notifications.Service) error {
				return svc.NotifySyncCompleted(context.Background(), 5, 2, 45*time.Second)
			},
			expectTitle:   "Fieldsync - Sync Complete (with errors)",
			expectMessage: "Sync complete: 5 uploaded, 2 failed in 45s",
			expectTags:    "fieldsync,sync,completed",
		},
		{
			name: "item failed",
			send: func(svc notifications.Service) error {
				return svc.NotifyItemFailed(context.Background(), "IMG_0042.jpg", "server rejected metadata")
			},
			expectTitle:    "Fieldsync - Upload Failed",
			expectMessage:  "Could not upload IMG_0042.jpg: server rejected metadata\nManual retry required",
			expectTags:     "fieldsync,upload,failed",
			expectPriority: "high",
		},
		{
			name: "error",
			send: func(svc notifications.Service) error {
				return svc.NotifyError(context.Background(), errors.New("queue database locked"), "sync")
			},
			expectTitle:    "Fieldsync - Error",
			expectMessage:  "Error with sync: queue database locked",
			expectTags:     "fieldsync,error,alert",
			expectPriority: "high",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var captured struct {
				title    string
				tags     string
				priority string
				body     string
			}

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Fatalf("unexpected method: %s", r.Method)
				}
				captured.title = r.Header.Get("Title")
				captured.tags = r.Header.Get("Tags")
				captured.priority = r.Header.Get("Priority")
				body, err := io.ReadAll(r.Body)
				if err != nil {
					t.Fatalf("read body: %v", err)
				}
				captured.body = string(body)
				_ = r.Body.Close()
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			cfg := config.Default()
			cfg.Notifications.NtfyTopic = server.URL
			cfg.Notifications.RequestTimeout = 5

			svc := notifications.NewService(&cfg)
			if err := tc.send(svc); err != nil {
				t.Fatalf("notification returned error: %v", err)
			}

			if captured.title != tc.expectTitle {
				t.Fatalf("expected title %q, got %q", tc.expectTitle, captured.title)
			}
			if captured.body != tc.expectMessage {
				t.Fatalf("expected message %q, got %q", tc.expectMessage, captured.body)
			}
			if captured.tags != tc.expectTags {
				t.Fatalf("expected tags %q, got %q", tc.expectTags, captured.tags)
			}
			if captured.priority != tc.expectPriority {
				t.Fatalf("expected priority %q, got %q", tc.expectPriority, captured.priority)
			}
		})
	}
}

func TestNtfyServiceHonorsToggles(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("unexpected call for disabled event: %s", r.URL.String())
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.SyncStarted = false
	cfg.Notifications.SyncCompleted = false
	cfg.Notifications.ItemFailed = false
	cfg.Notifications.Errors = false

	svc := notifications.NewService(&cfg)
	ctx := context.Background()
	if err := svc.NotifySyncStarted(ctx, 1); err != nil {
		t.Fatalf("disabled event returned error: %v", err)
	}
	if err := svc.NotifySyncCompleted(ctx, 1, 0, time.Second); err != nil {
		t.Fatalf("disabled event returned error: %v", err)
	}
	if err := svc.NotifyItemFailed(ctx, "x.jpg", "reason"); err != nil {
		t.Fatalf("disabled event returned error: %v", err)
	}
	if err := svc.NotifyError(ctx, errors.New("boom"), "sync"); err != nil {
		t.Fatalf("disabled event returned error: %v", err)
	}
}

func TestNtfyServiceSurfacesHTTPErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL

	svc := notifications.NewService(&cfg)
	if err := svc.TestNotification(context.Background()); err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}
