package notify

import (
	"context"
	"strings"
	"testing"

	"github.com/nutify/nutify/internal/storage"
)

func TestValidateAddress(t *testing.T) {
	cases := map[string]bool{
		"ops@example.com":   true,
		"not-an-address":    false,
		"":                  false,
		"a@b.co, c@d.co":    false,
	}
	for addr, want := range cases {
		if got := ValidateAddress(addr); got != want {
			t.Errorf("ValidateAddress(%q) = %v, want %v", addr, got, want)
		}
	}
}

func TestEmailSenderDisabledSkips(t *testing.T) {
	s := NewEmailSender(storage.MailConfig{Enabled: false})
	ok, msg, err := s.Send(context.Background(), sampleEvent())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok || msg != "mail config disabled" {
		t.Errorf("ok=%v msg=%q", ok, msg)
	}
}

func TestEmailSenderSESRequiresFromAddress(t *testing.T) {
	cfg := storage.MailConfig{Enabled: true, Provider: "ses", DefaultRecipient: "ops@example.com"}
	s := NewEmailSender(cfg)
	_, _, err := s.Send(context.Background(), sampleEvent())
	if err == nil {
		t.Fatal("expected an error when SES provider has no From address")
	}
}

func TestEmailSenderNoRecipientFails(t *testing.T) {
	cfg := storage.MailConfig{Enabled: true, FromAddress: "noreply@example.com"}
	s := NewEmailSender(cfg)
	_, _, err := s.Send(context.Background(), sampleEvent())
	if err == nil {
		t.Fatal("expected an error when no recipient is configured")
	}
}

func TestBuildMIMEMessageIncludesHeaders(t *testing.T) {
	msg := buildMIMEMessage("from@example.com", "to@example.com", "Test Subject", "<p>hi</p>")
	s := string(msg)
	for _, want := range []string{"From: from@example.com", "To: to@example.com", "Subject: Test Subject", "<p>hi</p>"} {
		if !strings.Contains(s, want) {
			t.Errorf("message missing %q\nfull message:\n%s", want, s)
		}
	}
}
