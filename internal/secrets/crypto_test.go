package secrets

import (
	"bytes"
	"errors"
	"testing"
)

func TestDeriveKey(t *testing.T) {
	a := DeriveKey("passphrase")
	if a != DeriveKey("passphrase") {
		t.Error("same passphrase produced different keys")
	}
	if a == DeriveKey("passphrase2") {
		t.Error("different passphrases produced the same key")
	}
}

func TestSealOpen(t *testing.T) {
	key := DeriveKey("test-key")

	tests := []struct {
		name      string
		plaintext []byte
	}{
		{"wpa2 passphrase", []byte("correct horse battery")},
		{"empty", []byte{}},
		{"binary", []byte{0x00, 0xff, 0x10}},
		{"max length passphrase", bytes.Repeat([]byte("p"), 63)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sealed, err := Seal(tt.plaintext, &key)
			if err != nil {
				t.Fatalf("Seal() error = %v", err)
			}
			if len(tt.plaintext) > 0 && bytes.Contains(sealed, tt.plaintext) {
				t.Error("sealed output contains plaintext")
			}

			got, err := Open(sealed, &key)
			if err != nil {
				t.Fatalf("Open() error = %v", err)
			}
			if !bytes.Equal(got, tt.plaintext) {
				t.Errorf("Open() = %q, want %q", got, tt.plaintext)
			}
		})
	}
}

func TestSeal_RandomNonce(t *testing.T) {
	key := DeriveKey("k")
	a, _ := Seal([]byte("same"), &key)
	b, _ := Seal([]byte("same"), &key)
	if bytes.Equal(a[:NonceSize], b[:NonceSize]) {
		t.Error("two seals reused a nonce")
	}
}

func TestOpen_Failures(t *testing.T) {
	key := DeriveKey("right")
	other := DeriveKey("wrong")
	sealed, err := Seal([]byte("secret"), &key)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := Open(sealed, &other); !errors.Is(err, ErrDecrypt) {
		t.Errorf("wrong key: err = %v, want ErrDecrypt", err)
	}

	corrupted := append([]byte(nil), sealed...)
	corrupted[len(corrupted)-1] ^= 0xff
	if _, err := Open(corrupted, &key); !errors.Is(err, ErrDecrypt) {
		t.Errorf("corrupted: err = %v, want ErrDecrypt", err)
	}

	if _, err := Open(sealed[:NonceSize], &key); err == nil {
		t.Error("short input should fail")
	}
}
