// Package vaultfile owns the single on-disk artifact of the vault: the
// encrypted envelope at vault.enc. All writes go through one atomic path
// (temp file, fsync, rename, directory fsync) so a crash can never leave a
// half-written vault observable.
package vaultfile

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/parthashirolkar/latch/crypt"
)

// Errors returned from reading the envelope
var (
	ErrNotFound  = errors.New("vault file not found")
	ErrCorrupt   = errors.New("vault file is corrupt")
	ErrLegacyKDF = errors.New("legacy kdf is not supported, re-key the vault")
)

// Auth method tags as persisted in the envelope.
const (
	MethodPassword  = "password"
	MethodOAuth     = "oauth"
	MethodBiometric = "biometric-keychain"
)

// KDF tags as persisted in the envelope.
const (
	KDFArgon2id = "argon2id"
	KDFNone     = "none"
)

// Version is the only envelope schema version this build reads and writes.
const Version = "1"

// Older builds wrote method-qualified kdf tags. oauth-argon2id is the same
// derivation and normalizes to the canonical tag; oauth-pbkdf2 cannot be
// verified against the fixed parameters and requires a user-initiated re-key.
const (
	legacyKDFPBKDF2   = "oauth-pbkdf2"
	legacyKDFArgon2id = "oauth-argon2id"
)

// Envelope is the on-disk form of the vault.
type Envelope struct {
	Version    string        `json:"version"`
	AuthMethod string        `json:"auth_method"`
	KDF        string        `json:"kdf"`
	Salt       string        `json:"salt"`
	Data       EncryptedData `json:"data"`
}

// EncryptedData is the AES-256-GCM payload, hex encoded.
type EncryptedData struct {
	Nonce      string `json:"nonce"`
	Ciphertext string `json:"ciphertext"`
}

// SaltBytes hex-decodes the envelope salt for the password method, or
// returns the raw UTF-8 salt for oauth. Biometric envelopes have no salt.
func (e *Envelope) SaltBytes() ([]byte, error) {
	switch e.AuthMethod {
	case MethodPassword:
		return hex.DecodeString(e.Salt)
	case MethodOAuth:
		return []byte(e.Salt), nil
	default:
		return nil, nil
	}
}

// Store reads and writes the envelope at a fixed path.
type Store struct {
	path string
}

// New returns a store over an explicit vault file path.
func New(path string) *Store {
	return &Store{path: path}
}

// Default returns a store at the OS-conventional location. The parent
// directory is not created here; Write creates it with user-only
// permissions.
func Default() (*Store, error) {
	path, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	return New(path), nil
}

// Path is the vault file location for this store.
func (s *Store) Path() string {
	return s.path
}

// Exists reports whether a vault envelope is present on disk.
func (s *Store) Exists() bool {
	fi, err := os.Stat(s.path)
	return err == nil && fi.Mode().IsRegular()
}

// Read loads and validates the envelope. A leftover .tmp from an
// interrupted write is never consulted; the last successfully renamed
// vault.enc wins.
func (s *Store) Read() (*Envelope, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read vault file: %w", err)
	}

	var e Envelope
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	if err := validate(&e); err != nil {
		return nil, err
	}

	return &e, nil
}

// Write atomically replaces the envelope on disk. The envelope is written
// to vault.enc.tmp in the same directory, fsynced, renamed over vault.enc,
// and the directory is fsynced so the rename itself is durable.
func (s *Store) Write(e *Envelope) error {
	if err := validate(e); err != nil {
		return err
	}

	raw, err := json.MarshalIndent(e, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize vault: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create vault directory: %w", err)
	}

	tmp := s.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("failed to create temp vault file: %w", err)
	}

	if _, err = f.Write(raw); err == nil {
		err = f.Sync()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to write temp vault file: %w", err)
	}

	if runtime.GOOS == "windows" {
		// rename-over-existing needs the destination out of the way there
		_ = os.Remove(s.path)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace vault file: %w", err)
	}

	return syncDir(dir)
}

func validate(e *Envelope) error {
	if e.Version != Version {
		return fmt.Errorf("%w: unknown version %q", ErrCorrupt, e.Version)
	}

	switch e.KDF {
	case legacyKDFPBKDF2:
		return ErrLegacyKDF
	case legacyKDFArgon2id:
		e.KDF = KDFArgon2id
	}

	nonce, err := hex.DecodeString(e.Data.Nonce)
	if err != nil || len(nonce) != crypt.NonceSize {
		return fmt.Errorf("%w: bad nonce", ErrCorrupt)
	}
	if _, err := hex.DecodeString(e.Data.Ciphertext); err != nil {
		return fmt.Errorf("%w: bad ciphertext encoding", ErrCorrupt)
	}

	switch e.AuthMethod {
	case MethodPassword:
		if e.KDF != KDFArgon2id {
			return fmt.Errorf("%w: kdf %q does not fit method %q", ErrCorrupt, e.KDF, e.AuthMethod)
		}
		salt, err := hex.DecodeString(e.Salt)
		if err != nil || len(salt) != crypt.SaltSize {
			return fmt.Errorf("%w: bad password salt", ErrCorrupt)
		}
	case MethodOAuth:
		if e.KDF != KDFArgon2id {
			return fmt.Errorf("%w: kdf %q does not fit method %q", ErrCorrupt, e.KDF, e.AuthMethod)
		}
		if len(e.Salt) == 0 {
			return fmt.Errorf("%w: empty oauth salt", ErrCorrupt)
		}
	case MethodBiometric:
		if e.KDF != KDFNone {
			return fmt.Errorf("%w: kdf %q does not fit method %q", ErrCorrupt, e.KDF, e.AuthMethod)
		}
		if e.Salt != "" {
			return fmt.Errorf("%w: biometric envelopes carry no salt", ErrCorrupt)
		}
	default:
		return fmt.Errorf("%w: unknown auth method %q", ErrCorrupt, e.AuthMethod)
	}

	return nil
}

func syncDir(dir string) error {
	if runtime.GOOS == "windows" {
		return nil
	}

	d, err := os.Open(dir)
	if err != nil {
		return fmt.Errorf("failed to open vault directory: %w", err)
	}
	err = d.Sync()
	if cerr := d.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("failed to sync vault directory: %w", err)
	}
	return nil
}
