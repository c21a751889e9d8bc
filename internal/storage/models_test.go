package storage

import "testing"

func TestMailConfigRequiresExplicitSender(t *testing.T) {
	cases := map[string]bool{
		"ses":       true,
		"amazon_ses": true,
		"aws_ses":   true,
		"gmail":     false,
		"":          false,
	}
	for provider, want := range cases {
		got := MailConfig{Provider: provider}.RequiresExplicitSender()
		if got != want {
			t.Errorf("RequiresExplicitSender(%q) = %v, want %v", provider, got, want)
		}
	}
}

func TestMailConfigResolveTLSModeExplicitWins(t *testing.T) {
	cfg := MailConfig{Port: 587, TLS: true}
	tls, starttls := cfg.ResolveTLSMode()
	if !tls || starttls {
		t.Errorf("ResolveTLSMode = (%v, %v), want explicit TLS to win over port default", tls, starttls)
	}
}

func TestMailConfigResolveTLSModePortDefaults(t *testing.T) {
	cases := map[int]struct{ tls, starttls bool }{
		465: {true, false},
		587: {false, true},
		25:  {false, false},
	}
	for port, want := range cases {
		tls, starttls := MailConfig{Port: port}.ResolveTLSMode()
		if tls != want.tls || starttls != want.starttls {
			t.Errorf("ResolveTLSMode(port=%d) = (%v, %v), want (%v, %v)", port, tls, starttls, want.tls, want.starttls)
		}
	}
}
