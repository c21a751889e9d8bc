package secret

import (
	"database/sql/driver"
	"errors"
	"fmt"
)

// EncryptedField is a string that is transparently encrypted with the
// package-level Store before being written to the database, and decrypted
// after being read.
//
// An empty EncryptedField is stored as an empty string without encryption.
type EncryptedField string

// Value implements driver.Valuer.
func (f EncryptedField) Value() (driver.Value, error) {
	if f == "" {
		return "", nil
	}
	if active == nil {
		return nil, ErrNotInitialized
	}
	return active.Encrypt([]byte(f))
}

// Scan implements sql.Scanner. A key mismatch surfaces as ErrKeyMismatch so
// callers (the drift detector, notification/report send paths) can tell it
// apart from ordinary corruption.
func (f *EncryptedField) Scan(value interface{}) error {
	if value == nil {
		*f = ""
		return nil
	}
	str, ok := value.(string)
	if !ok {
		return fmt.Errorf("secret: EncryptedField.Scan: expected string, got %T", value)
	}
	if str == "" {
		*f = ""
		return nil
	}
	if active == nil {
		return ErrNotInitialized
	}

	plaintext, err := active.Decrypt(str)
	if err != nil {
		if errors.Is(err, ErrKeyMismatch) {
			return ErrKeyMismatch
		}
		return err
	}
	*f = EncryptedField(plaintext)
	return nil
}
