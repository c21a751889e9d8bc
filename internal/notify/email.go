package notify

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/mail"
	"net/smtp"
	"strings"
	"time"

	"github.com/nutify/nutify/internal/storage"
)

// Bodies over largeBodyThreshold (inline report charts, mostly) get
// extendedTimeout instead of the default.
const (
	largeBodyThreshold = 500 * 1024
	extendedTimeout     = 180 * time.Second
	defaultEmailTimeout = 30 * time.Second
)

// EmailSender delivers event notifications over SMTP, with implicit-TLS
// and STARTTLS transports, port-based auto-selection between them, and the
// SES-class explicit-sender check.
type EmailSender struct {
	cfg storage.MailConfig
}

// NewEmailSender returns a Sender bound to one resolved mail config; the
// dispatcher constructs a fresh one per send since the config may change
// between events.
func NewEmailSender(cfg storage.MailConfig) *EmailSender {
	return &EmailSender{cfg: cfg}
}

// Send renders the event-specific (or test) template and delivers it via
// SMTP.
func (s *EmailSender) Send(ctx context.Context, event EnrichedEvent) (bool, string, error) {
	if !s.cfg.Enabled {
		return false, "mail config disabled", nil
	}
	if s.cfg.RequiresExplicitSender() && s.cfg.FromAddress == "" {
		return false, "", fmt.Errorf("notify: email %s: %w", s.cfg.Provider, ErrSenderRequired)
	}

	to := s.cfg.DefaultRecipient
	if to == "" {
		return false, "", fmt.Errorf("notify: email: %w", ErrNoRecipients)
	}

	tmpl := templateFor(event.EventType, event.IsTest)
	if event.ServerName == "" {
		event.ServerName = defaultServerName
	}

	subject, err := renderSubject(tmpl.subject, event)
	if err != nil {
		return false, "", err
	}
	body, err := renderHTML(tmpl.htmlBody, event)
	if err != nil {
		return false, "", err
	}

	msg := buildMIMEMessage(s.cfg.FromAddress, to, subject, body)

	timeout := defaultEmailTimeout
	if len(msg) > largeBodyThreshold && timeout < extendedTimeout {
		timeout = extendedTimeout
	}
	sendCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	tlsOn, starttlsOn := s.cfg.ResolveTLSMode()
	addr := net.JoinHostPort(s.cfg.Server, fmt.Sprintf("%d", s.cfg.Port))

	var sendErr error
	if tlsOn {
		sendErr = sendImplicitTLS(sendCtx, addr, s.cfg, to, msg)
	} else {
		sendErr = sendPlainOrSTARTTLS(sendCtx, addr, s.cfg, to, msg, starttlsOn)
	}
	if sendErr != nil {
		return false, "", fmt.Errorf("%w: %s", ErrSendFailed, sendErr)
	}
	return true, "sent", nil
}

func sendPlainOrSTARTTLS(ctx context.Context, addr string, cfg storage.MailConfig, to string, msg []byte, starttls bool) error {
	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, string(cfg.Password), cfg.Server)
	}
	_ = starttls // net/smtp.SendMail negotiates STARTTLS automatically when offered
	return withDeadline(ctx, func() error {
		return smtp.SendMail(addr, auth, cfg.FromAddress, []string{to}, msg)
	})
}

func sendImplicitTLS(ctx context.Context, addr string, cfg storage.MailConfig, to string, msg []byte) error {
	return withDeadline(ctx, func() error {
		tlsCfg := &tls.Config{ServerName: cfg.Server, MinVersion: tls.VersionTLS12}
		conn, err := tls.Dial("tcp", addr, tlsCfg)
		if err != nil {
			return fmt.Errorf("tls.Dial: %w", err)
		}
		defer conn.Close()

		client, err := smtp.NewClient(conn, cfg.Server)
		if err != nil {
			return fmt.Errorf("smtp.NewClient: %w", err)
		}
		defer client.Close()

		if cfg.Username != "" {
			auth := smtp.PlainAuth("", cfg.Username, string(cfg.Password), cfg.Server)
			if err := client.Auth(auth); err != nil {
				return fmt.Errorf("smtp auth: %w", err)
			}
		}
		if err := client.Mail(cfg.FromAddress); err != nil {
			return fmt.Errorf("MAIL FROM: %w", err)
		}
		if err := client.Rcpt(to); err != nil {
			return fmt.Errorf("RCPT TO %s: %w", to, err)
		}
		w, err := client.Data()
		if err != nil {
			return fmt.Errorf("DATA: %w", err)
		}
		if _, err := w.Write(msg); err != nil {
			return fmt.Errorf("write body: %w", err)
		}
		if err := w.Close(); err != nil {
			return fmt.Errorf("close DATA: %w", err)
		}
		return client.Quit()
	})
}

// withDeadline runs fn on its own goroutine and returns ctx.Err() if it
// fires first, so no SMTP round-trip can block past its deadline.
func withDeadline(ctx context.Context, fn func() error) error {
	done := make(chan error, 1)
	go func() { done <- fn() }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// buildMIMEMessage composes an RFC-822 HTML email.
func buildMIMEMessage(from, to, subject, htmlBody string) []byte {
	var sb strings.Builder
	sb.WriteString("From: " + from + "\r\n")
	sb.WriteString("To: " + to + "\r\n")
	sb.WriteString("Subject: " + subject + "\r\n")
	sb.WriteString("Date: " + time.Now().UTC().Format(time.RFC1123Z) + "\r\n")
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	sb.WriteString("\r\n")
	sb.WriteString(htmlBody)
	return []byte(sb.String())
}

// ValidateAddress reports whether addr parses as an RFC 5322 mailbox.
func ValidateAddress(addr string) bool {
	_, err := mail.ParseAddress(addr)
	return err == nil
}

// SendRawEmail delivers a pre-rendered HTML message over cfg's SMTP
// transport, reusing the same TLS/STARTTLS/timeout logic as EmailSender.Send
// without routing through the per-event-type template map. Used by the
// report scheduler, which composes its own composite HTML document.
func SendRawEmail(ctx context.Context, cfg storage.MailConfig, to, subject, htmlBody string) error {
	if to == "" {
		return fmt.Errorf("notify: send raw email: %w", ErrNoRecipients)
	}
	msg := buildMIMEMessage(cfg.FromAddress, to, subject, htmlBody)

	timeout := defaultEmailTimeout
	if len(msg) > largeBodyThreshold && timeout < extendedTimeout {
		timeout = extendedTimeout
	}
	sendCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	tlsOn, starttlsOn := cfg.ResolveTLSMode()
	addr := net.JoinHostPort(cfg.Server, fmt.Sprintf("%d", cfg.Port))

	var err error
	if tlsOn {
		err = sendImplicitTLS(sendCtx, addr, cfg, to, msg)
	} else {
		err = sendPlainOrSTARTTLS(sendCtx, addr, cfg, to, msg, starttlsOn)
	}
	if err != nil {
		return fmt.Errorf("%w: %s", ErrSendFailed, err)
	}
	return nil
}
