package notifications

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tiendashop/storefront-go/internal/api"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(t *testing.T, handler http.Handler) *Service {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	logger := discardLogger()
	return NewService(api.New(server.URL, server.Client(), logger), logger)
}

func TestService_UnreadCount(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{name: "count object under data", body: `{"data":{"count":4}}`, want: 4},
		{name: "bare count object", body: `{"count":2}`, want: 2},
		{name: "bare integer", body: `7`, want: 7},
		{name: "unrecognized shape falls back to zero", body: `{"data":"what"}`, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))

			got, err := svc.UnreadCount(context.Background())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
		})
	}

	t.Run("transport errors surface", func(t *testing.T) {
		svc := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))

		if _, err := svc.UnreadCount(context.Background()); err == nil {
			t.Error("expected an error")
		}
	})
}

func TestService_List(t *testing.T) {
	svc := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"notifications":[{"id":"n1","subject":"hi"},{"id":"n2","subject":"yo"}]}`))
	}))

	list, err := svc.List(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(list) != 2 || list[0].ID != "n1" {
		t.Errorf("unexpected list %+v", list)
	}
}

func TestService_SendComplete(t *testing.T) {
	var got SendRequest
	svc := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/admin/notifications/complete" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"status":"sent"}`))
	}))

	err := svc.SendComplete(context.Background(), SendRequest{
		RecipientID: "u1",
		Subject:     "Sale",
		Body:        "Everything must go",
		Priority:    "high",
		Type:        "marketing",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.RecipientID != "u1" || got.Priority != "high" {
		t.Errorf("unexpected request %+v", got)
	}
}

func TestBadge(t *testing.T) {
	t.Run("tracks the backend count", func(t *testing.T) {
		var count atomic.Int64
		count.Store(3)
		svc := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"data":{"count":` + strconv.FormatInt(count.Load(), 10) + `}}`))
		}))

		badge := NewBadge(svc, 5*time.Millisecond, discardLogger())
		badge.Start(context.Background())
		defer badge.Stop()

		waitFor(t, func() bool { return badge.Count() == 3 })

		count.Store(5)
		waitFor(t, func() bool { return badge.Count() == 5 })
	})

	t.Run("keeps the last value across failures", func(t *testing.T) {
		var failing atomic.Bool
		svc := newTestService(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if failing.Load() {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			_, _ = w.Write([]byte(`{"data":{"count":2}}`))
		}))

		badge := NewBadge(svc, 5*time.Millisecond, discardLogger())
		badge.Start(context.Background())
		defer badge.Stop()

		waitFor(t, func() bool { return badge.Count() == 2 })

		failing.Store(true)
		time.Sleep(30 * time.Millisecond)
		if got := badge.Count(); got != 2 {
			t.Errorf("expected the last value 2, got %d", got)
		}
	})
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for !cond() {
		select {
		case <-deadline:
			t.Fatal("condition not reached in time")
		case <-time.After(time.Millisecond):
		}
	}
}
