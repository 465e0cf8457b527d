package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/closestfriend/replicate-predictions-downloader/pkg/domain"
	"github.com/go-telegram/bot"
)

func TestNotify(t *testing.T) {
	var gotChat, gotText, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parsing form: %v", err)
		}
		gotChat = r.FormValue("chat_id")
		gotText = r.FormValue("text")

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":-100123,"type":"group"}}}`))
	}))
	defer srv.Close()

	n, err := NewNotifier("123:abc", -100123, bot.WithServerURL(srv.URL))
	if err != nil {
		t.Fatalf("NewNotifier() error = %v", err)
	}

	stats := domain.NewDownloadStats()
	stats.Add("flux", 2048)
	s := &domain.Summary{BaseDir: "replicate_outputs_2024-07-04", ModelCount: 1, Downloaded: 1, Succeeded: 1, Stats: stats}

	if err := n.Notify(context.Background(), s); err != nil {
		t.Fatalf("Notify() error = %v", err)
	}

	if gotPath != "/bot123:abc/sendMessage" {
		t.Errorf("path = %q", gotPath)
	}
	if gotChat != "-100123" {
		t.Errorf("chat_id = %q", gotChat)
	}
	if !strings.Contains(gotText, "replicate_outputs_2024-07-04") || !strings.Contains(gotText, "2.0 KiB") {
		t.Errorf("text = %q", gotText)
	}
}

func TestNotifyError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`))
	}))
	defer srv.Close()

	n, err := NewNotifier("123:abc", 1, bot.WithServerURL(srv.URL))
	if err != nil {
		t.Fatalf("NewNotifier() error = %v", err)
	}
	if err := n.Notify(context.Background(), &domain.Summary{}); err == nil {
		t.Error("Notify() error = nil, want error")
	}
}

func TestNewNotifierEmptyToken(t *testing.T) {
	if _, err := NewNotifier("", 1); err == nil {
		t.Error("NewNotifier(\"\") error = nil, want error")
	}
}

func TestMessage(t *testing.T) {
	msg := Message(&domain.Summary{BaseDir: "out", Downloaded: 3, Skipped: 2, Errors: 1, Succeeded: 4, Failed: 1})
	for _, want := range []string{"Files: 3 (2 already present)", "Errors: 1", "4 succeeded, 1 failed, 0 canceled", "Size: 0 B"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}
}
