package secret

import "testing"

func TestEncryptDecryptRoundTrip(t *testing.T) {
	store, err := NewStore("correct horse battery staple")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	ciphertext, err := store.Encrypt([]byte("hunter2"))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	plaintext, err := store.Decrypt(ciphertext)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if string(plaintext) != "hunter2" {
		t.Fatalf("plaintext = %q, want hunter2", plaintext)
	}
}

func TestDecryptWithWrongKeyReturnsKeyMismatch(t *testing.T) {
	store1, _ := NewStore("secret-one")
	store2, _ := NewStore("secret-two")

	ciphertext, err := store1.Encrypt([]byte("payload"))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}

	if _, err := store2.Decrypt(ciphertext); err != ErrKeyMismatch {
		t.Fatalf("Decrypt with wrong key = %v, want ErrKeyMismatch", err)
	}
}

func TestNewStoreRejectsEmptySecret(t *testing.T) {
	if _, err := NewStore(""); err == nil {
		t.Fatal("expected error for empty process secret")
	}
}

func TestEncryptedFieldRoundTripsThroughActiveStore(t *testing.T) {
	store, err := NewStore("field-test-secret")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	Init(store)
	defer Init(nil)

	field := EncryptedField("imap-password")
	value, err := field.Value()
	if err != nil {
		t.Fatalf("Value: %v", err)
	}

	var scanned EncryptedField
	if err := scanned.Scan(value); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if scanned != field {
		t.Fatalf("scanned = %q, want %q", scanned, field)
	}
}
