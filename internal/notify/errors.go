package notify

import "errors"

// Sentinel errors returned by the notify package's senders and dispatcher.
// Callers compare with errors.Is.
var (
	// ErrSendFailed wraps any transport-level delivery failure (SMTP dial
	// error, non-2xx HTTP response, ...). Non-fatal: the caller logs and
	// moves on to the next channel.
	ErrSendFailed = errors.New("notify: send failed")

	// ErrNoRecipients is returned when an email send has no resolved
	// recipient left after validation.
	ErrNoRecipients = errors.New("notify: no valid recipients")

	// ErrPasswordUndecryptable is returned at send time when a mail
	// config's password ciphertext fails to decrypt under the current
	// process secret. The config is unusable until re-entered.
	ErrPasswordUndecryptable = errors.New("notify: password cannot be decrypted, re-enter it")

	// ErrSenderRequired is returned for SES-class providers that require
	// an explicit From address when none is configured.
	ErrSenderRequired = errors.New("notify: provider requires an explicit sender address")
)
