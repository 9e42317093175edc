package vaultfile

import (
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testEnvelope() *Envelope {
	return &Envelope{
		Version:    "1",
		AuthMethod: MethodPassword,
		KDF:        KDFArgon2id,
		Salt:       strings.Repeat("ab", 16),
		Data: EncryptedData{
			Nonce:      strings.Repeat("cd", 12),
			Ciphertext: strings.Repeat("ef", 48),
		},
	}
}

func TestWriteRead(t *testing.T) {
	t.Parallel()

	store := New(filepath.Join(t.TempDir(), FileName))

	if store.Exists() {
		t.Error("store should not exist yet")
	}
	if _, err := store.Read(); err != ErrNotFound {
		t.Error("expected ErrNotFound, got:", err)
	}

	want := testEnvelope()
	if err := store.Write(want); err != nil {
		t.Fatal(err)
	}
	if !store.Exists() {
		t.Error("store should exist")
	}

	got, err := store.Read()
	if err != nil {
		t.Fatal(err)
	}
	if got.AuthMethod != want.AuthMethod || got.Salt != want.Salt || got.Data.Ciphertext != want.Data.Ciphertext {
		t.Errorf("envelope did not round-trip: %+v", got)
	}
}

func TestWriteLeavesNoTemp(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store := New(filepath.Join(dir, FileName))
	if err := store.Write(testEnvelope()); err != nil {
		t.Fatal(err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != FileName {
		t.Errorf("unexpected directory contents: %v", entries)
	}
}

func TestStaleTempIgnored(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store := New(filepath.Join(dir, FileName))

	want := testEnvelope()
	if err := store.Write(want); err != nil {
		t.Fatal(err)
	}

	// Simulate a crash that left a garbage temp file behind
	if err := os.WriteFile(filepath.Join(dir, FileName+".tmp"), []byte("partial"), 0o600); err != nil {
		t.Fatal(err)
	}

	got, err := store.Read()
	if err != nil {
		t.Fatal(err)
	}
	if got.Salt != want.Salt {
		t.Error("read did not return the last renamed envelope")
	}

	// The next write replaces the stale temp file
	if err := store.Write(want); err != nil {
		t.Fatal(err)
	}
}

func TestReadCorrupt(t *testing.T) {
	t.Parallel()

	store := New(filepath.Join(t.TempDir(), FileName))
	if err := os.WriteFile(store.Path(), []byte("not json{"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := store.Read(); !errors.Is(err, ErrCorrupt) {
		t.Error("expected ErrCorrupt, got:", err)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		mutate func(*Envelope)
		want   error
	}{
		{"unknown version", func(e *Envelope) { e.Version = "2" }, ErrCorrupt},
		{"short nonce", func(e *Envelope) { e.Data.Nonce = "cdcd" }, ErrCorrupt},
		{"non-hex nonce", func(e *Envelope) { e.Data.Nonce = strings.Repeat("zz", 12) }, ErrCorrupt},
		{"non-hex ciphertext", func(e *Envelope) { e.Data.Ciphertext = "xyz" }, ErrCorrupt},
		{"short password salt", func(e *Envelope) { e.Salt = "abcd" }, ErrCorrupt},
		{"unknown method", func(e *Envelope) { e.AuthMethod = "pin" }, ErrCorrupt},
		{"kdf mismatch", func(e *Envelope) { e.KDF = KDFNone }, ErrCorrupt},
		{"legacy pbkdf2", func(e *Envelope) { e.AuthMethod = MethodOAuth; e.KDF = "oauth-pbkdf2" }, ErrLegacyKDF},
		{"biometric with salt", func(e *Envelope) {
			e.AuthMethod = MethodBiometric
			e.KDF = KDFNone
		}, ErrCorrupt},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			e := testEnvelope()
			tc.mutate(e)
			if err := validate(e); !errors.Is(err, tc.want) {
				t.Errorf("want %v, got %v", tc.want, err)
			}
		})
	}
}

func TestValidateNormalizesLegacyArgon2id(t *testing.T) {
	t.Parallel()

	e := testEnvelope()
	e.AuthMethod = MethodOAuth
	e.KDF = "oauth-argon2id"
	e.Salt = "subject-1234"

	if err := validate(e); err != nil {
		t.Fatal(err)
	}
	if e.KDF != KDFArgon2id {
		t.Error("legacy argon2id tag was not normalized, got:", e.KDF)
	}
}

func TestSaltBytes(t *testing.T) {
	t.Parallel()

	e := testEnvelope()
	salt, err := e.SaltBytes()
	if err != nil {
		t.Fatal(err)
	}
	want, _ := hex.DecodeString(e.Salt)
	if string(salt) != string(want) {
		t.Error("password salt should hex-decode")
	}

	e.AuthMethod = MethodOAuth
	e.Salt = "google-sub-123"
	salt, err = e.SaltBytes()
	if err != nil {
		t.Fatal(err)
	}
	if string(salt) != "google-sub-123" {
		t.Error("oauth salt should be raw utf-8")
	}

	e.AuthMethod = MethodBiometric
	e.Salt = ""
	salt, err = e.SaltBytes()
	if err != nil || salt != nil {
		t.Error("biometric envelopes carry no salt")
	}
}
