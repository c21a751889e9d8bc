package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nutify/nutify/internal/storage"
)

func TestNtfySenderDisabledSkips(t *testing.T) {
	s := NewNtfySender(storage.NtfyConfig{Enabled: false})
	ok, msg, err := s.Send(context.Background(), sampleEvent())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Error("expected ok=false for disabled config")
	}
	if msg != "ntfy config disabled" {
		t.Errorf("msg = %q", msg)
	}
}

func TestNtfySenderPostsExpectedHeaders(t *testing.T) {
	var gotTitle, gotAuth, gotPriority string
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTitle = r.Header.Get("Title")
		gotAuth = r.Header.Get("Authorization")
		gotPriority = r.Header.Get("Priority")
		buf := make([]byte, r.ContentLength)
		r.Body.Read(buf)
		gotBody = buf
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfg := storage.NtfyConfig{Enabled: true, Server: srv.URL, Topic: "ups-alerts", Token: "tok123"}
	s := NewNtfySender(cfg)

	event := sampleEvent()
	event.EventType = "LOWBATT"
	ok, msg, err := s.Send(context.Background(), event)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if !ok || msg != "sent" {
		t.Errorf("ok=%v msg=%q, want true/sent", ok, msg)
	}
	if gotAuth != "Bearer tok123" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotPriority != "5" {
		t.Errorf("Priority = %q, want 5 for LOWBATT", gotPriority)
	}
	if gotTitle == "" {
		t.Error("expected a non-empty Title header")
	}
	if len(gotBody) == 0 {
		t.Error("expected a non-empty body")
	}
}

func TestNtfySenderNonOKStatusIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := NewNtfySender(storage.NtfyConfig{Enabled: true, Server: srv.URL, Topic: "x"})
	ok, _, err := s.Send(context.Background(), sampleEvent())
	if ok || err == nil {
		t.Errorf("ok=%v err=%v, want failure", ok, err)
	}
}

func TestAsciiOnlyStripsNonASCII(t *testing.T) {
	got := asciiOnly("Battery ⚡ Low")
	if got != "Battery  Low" {
		t.Errorf("asciiOnly = %q", got)
	}
}
