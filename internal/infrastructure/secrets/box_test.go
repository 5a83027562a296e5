package secrets

import (
	"bytes"
	"errors"
	"testing"
)

func TestBox_SealOpen(t *testing.T) {
	box, err := NewBox("unit-test-secret")
	if err != nil {
		t.Fatalf("NewBox: %v", err)
	}

	sealed, err := box.Seal([]byte("sk-live-123"))
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if bytes.Contains(sealed, []byte("sk-live-123")) {
		t.Fatal("sealed value contains the plaintext")
	}
	again, _ := box.Seal([]byte("sk-live-123"))
	if bytes.Equal(sealed, again) {
		t.Fatal("two seals of the same value should differ")
	}

	got, err := box.Open(sealed)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if string(got) != "sk-live-123" {
		t.Fatalf("Open = %q", got)
	}
}

func TestBox_OpenRejectsTamperingAndForeignKeys(t *testing.T) {
	box, _ := NewBox("one")
	other, _ := NewBox("two")
	sealed, _ := box.Seal([]byte("sk-live-123"))

	if _, err := other.Open(sealed); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("foreign key: expected ErrCorrupt, got %v", err)
	}

	tampered := append([]byte(nil), sealed...)
	tampered[len(tampered)-1] ^= 0xff
	if _, err := box.Open(tampered); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("tampered: expected ErrCorrupt, got %v", err)
	}
	if _, err := box.Open([]byte("short")); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("short: expected ErrCorrupt, got %v", err)
	}
}

func TestNewBox_EmptySecret(t *testing.T) {
	if _, err := NewBox(""); err == nil {
		t.Fatal("expected an error for an empty secret")
	}
}
