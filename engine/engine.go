// Package engine is the in-memory vault: it holds decrypted entries while a
// session is active, gates every operation on the session lifecycle, and
// funnels every mutation through one re-encrypt-and-rewrite path so the
// on-disk envelope is always whole.
package engine

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/parthashirolkar/latch/auth"
	"github.com/parthashirolkar/latch/crypt"
	"github.com/parthashirolkar/latch/search"
	"github.com/parthashirolkar/latch/vaultfile"
)

// SessionTimeout is the inactivity window; any authenticated operation
// restarts it.
const SessionTimeout = 30 * time.Minute

// Engine owns the vault state. All operations serialize on one lock; the
// lock is never held across a network call.
type Engine struct {
	mu       sync.Mutex
	store    *vaultfile.Store
	verifier auth.TokenVerifier
	keychain auth.Keychain
	now      func() time.Time

	key          *crypt.KeyBuf
	entries      []Entry
	sessionStart time.Time

	// envelope identity, copied on init/unlock/re-key
	method string
	kdf    string
	salt   string
}

// Option configures an Engine.
type Option func(*Engine)

// WithVerifier installs the OAuth ID-token verifier.
func WithVerifier(v auth.TokenVerifier) Option {
	return func(e *Engine) { e.verifier = v }
}

// WithKeychain installs the OS keychain used when re-keying away from the
// biometric method.
func WithKeychain(kc auth.Keychain) Option {
	return func(e *Engine) { e.keychain = kc }
}

// WithClock substitutes the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New builds an engine over a vault store. The engine starts locked.
func New(store *vaultfile.Store, opts ...Option) *Engine {
	e := &Engine{
		store:    store,
		verifier: auth.SubjectExtractor{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Status reports vault presence and session state without touching key
// material.
func (e *Engine) Status() (hasVault, isUnlocked bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.Exists(), e.unlockedLocked()
}

// AuthMethod reads the auth method from the envelope; no session needed.
func (e *Engine) AuthMethod() (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	env, err := e.store.Read()
	if err != nil {
		return "", mapFileError(err)
	}
	return env.AuthMethod, nil
}

// AuthPreferences reports the configured method and how much session time
// remains. It is session-gated like every other authenticated read, but
// deliberately does not refresh the deadline: introspecting the session
// should not extend it, and the remaining time stays truthful.
func (e *Engine) AuthPreferences() (method string, remainingSeconds int64, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.unlockedLocked() {
		return "", 0, ErrLocked
	}
	if e.now().Sub(e.sessionStart) > SessionTimeout {
		e.lockLocked()
		return "", 0, ErrLocked
	}

	remaining := SessionTimeout - e.now().Sub(e.sessionStart)
	return e.method, int64(remaining / time.Second), nil
}

// InitPassword creates a fresh vault keyed from a master password and
// leaves the session unlocked.
func (e *Engine) InitPassword(password string) error {
	method, err := auth.NewPassword()
	if err != nil {
		return err
	}
	key := method.Key([]byte(password))
	return e.initVault(method, key)
}

// InitWithKey creates a fresh vault around an externally held 32-byte key,
// the biometric-keychain variant. kdf must be "none".
func (e *Engine) InitWithKey(keyHex, kdf string) error {
	if kdf != vaultfile.KDFNone {
		return fmt.Errorf("%w: kdf must be %q", ErrInvalid, vaultfile.KDFNone)
	}
	key, err := decodeKeyHex(keyHex)
	if err != nil {
		return err
	}
	return e.initVault(auth.Biometric{}, key)
}

// InitOAuth creates a fresh vault keyed from the application pepper and the
// token's verified subject.
func (e *Engine) InitOAuth(idToken string) error {
	method, key, err := e.oauthKey(idToken)
	if err != nil {
		return err
	}
	return e.initVault(method, key)
}

func (e *Engine) initVault(method auth.Method, key *crypt.KeyBuf) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.store.Exists() {
		key.Destroy()
		return ErrAlreadyExists
	}

	prev := e.swapIdentity(method, key, nil)
	if err := e.sealLocked(); err != nil {
		e.restoreIdentity(prev)
		key.Destroy()
		return err
	}
	e.sessionStart = e.now()
	return nil
}

// UnlockPassword opens the vault with the master password.
func (e *Engine) UnlockPassword(password string) error {
	return e.unlock(func(env *vaultfile.Envelope) (*crypt.KeyBuf, error) {
		if env.AuthMethod != vaultfile.MethodPassword {
			return nil, ErrAuthFailed
		}
		salt, err := env.SaltBytes()
		if err != nil {
			return nil, fmt.Errorf("%w: bad salt", ErrInvalid)
		}
		return auth.Password{Salt: salt}.Key([]byte(password)), nil
	})
}

// UnlockWithKey opens the vault with an externally held key.
func (e *Engine) UnlockWithKey(keyHex string) error {
	return e.unlock(func(env *vaultfile.Envelope) (*crypt.KeyBuf, error) {
		if env.AuthMethod != vaultfile.MethodBiometric {
			return nil, ErrAuthFailed
		}
		return decodeKeyHex(keyHex)
	})
}

// UnlockOAuth opens the vault with a freshly verified ID token.
func (e *Engine) UnlockOAuth(idToken string) error {
	return e.unlock(func(env *vaultfile.Envelope) (*crypt.KeyBuf, error) {
		if env.AuthMethod != vaultfile.MethodOAuth {
			return nil, ErrAuthFailed
		}
		_, key, err := e.oauthKey(idToken)
		return key, err
	})
}

func (e *Engine) unlock(keyFn func(*vaultfile.Envelope) (*crypt.KeyBuf, error)) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	env, err := e.store.Read()
	if err != nil {
		return mapFileError(err)
	}

	key, err := keyFn(env)
	if err != nil {
		return err
	}

	entries, err := openEnvelope(env, key)
	if err != nil {
		key.Destroy()
		return err
	}

	e.lockLocked()
	e.key = key
	e.entries = entries
	e.method = env.AuthMethod
	e.kdf = env.KDF
	e.salt = env.Salt
	e.sessionStart = e.now()
	return nil
}

// Lock zeroizes the vault key and drops the decrypted entries. Idempotent.
func (e *Engine) Lock() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lockLocked()
}

// AddEntry validates fields, assigns an id and timestamps, appends the
// entry and rewrites the envelope. Returns the new id.
func (e *Engine) AddEntry(f Fields) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.checkSessionLocked(); err != nil {
		return "", err
	}
	if strings.TrimSpace(f.Title) == "" {
		return "", fmt.Errorf("%w: title must not be empty", ErrInvalid)
	}

	entry := newEntry(f, e.now())
	e.entries = append(e.entries, entry)
	if err := e.sealLocked(); err != nil {
		e.entries = e.entries[:len(e.entries)-1]
		return "", err
	}
	return entry.ID, nil
}

// UpdateEntry replaces the mutable fields of an entry and bumps its
// updated_at.
func (e *Engine) UpdateEntry(id string, f Fields) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.checkSessionLocked(); err != nil {
		return err
	}
	if strings.TrimSpace(f.Title) == "" {
		return fmt.Errorf("%w: title must not be empty", ErrInvalid)
	}

	idx := e.findLocked(id)
	if idx < 0 {
		return fmt.Errorf("%w: entry", ErrNotFound)
	}

	prev := e.entries[idx]
	e.entries[idx].apply(f, e.now())
	if err := e.sealLocked(); err != nil {
		e.entries[idx] = prev
		return err
	}
	return nil
}

// DeleteEntry removes an entry and rewrites the envelope.
func (e *Engine) DeleteEntry(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.checkSessionLocked(); err != nil {
		return err
	}

	idx := e.findLocked(id)
	if idx < 0 {
		return fmt.Errorf("%w: entry", ErrNotFound)
	}

	prev := e.entries
	e.entries = append(append([]Entry{}, prev[:idx]...), prev[idx+1:]...)
	if err := e.sealLocked(); err != nil {
		e.entries = prev
		return err
	}
	return nil
}

// FullEntry returns the complete record including secrets; only for
// explicit edit flows.
func (e *Engine) FullEntry(id string) (Entry, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.checkSessionLocked(); err != nil {
		return Entry{}, err
	}

	idx := e.findLocked(id)
	if idx < 0 {
		return Entry{}, fmt.Errorf("%w: entry", ErrNotFound)
	}
	return e.entries[idx], nil
}

// Secret returns one field of one entry. Field is one of password,
// username, url, notes.
func (e *Engine) Secret(id, field string) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.checkSessionLocked(); err != nil {
		return "", err
	}

	idx := e.findLocked(id)
	if idx < 0 {
		return "", fmt.Errorf("%w: entry", ErrNotFound)
	}

	entry := &e.entries[idx]
	switch field {
	case "password":
		return entry.Password, nil
	case "username":
		return entry.Username, nil
	case "url":
		return entry.URL, nil
	case "notes":
		return entry.Notes, nil
	default:
		return "", fmt.Errorf("%w: unknown field %q", ErrInvalid, field)
	}
}

// Search ranks entries against the query and returns previews only.
func (e *Engine) Search(query string) ([]Preview, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.checkSessionLocked(); err != nil {
		return nil, err
	}

	items := make([]search.Item, len(e.entries))
	for i, entry := range e.entries {
		items[i] = search.Item{
			ID:       entry.ID,
			Title:    entry.Title,
			Username: entry.Username,
			IconURL:  entry.IconURL,
		}
	}

	ranked := search.Rank(items, query)
	out := make([]Preview, len(ranked))
	for i, it := range ranked {
		out[i] = Preview{ID: it.ID, Title: it.Title, Username: it.Username, IconURL: it.IconURL}
	}
	return out, nil
}

// internal helpers

func (e *Engine) unlockedLocked() bool {
	return e.key != nil && e.key.Alive()
}

func (e *Engine) lockLocked() {
	if e.key != nil {
		e.key.Destroy()
		e.key = nil
	}
	e.entries = nil
	e.sessionStart = time.Time{}
}

// checkSessionLocked gates every authenticated operation: expired sessions
// lock the vault, live ones refresh the deadline.
func (e *Engine) checkSessionLocked() error {
	if !e.unlockedLocked() {
		return ErrLocked
	}
	if e.now().Sub(e.sessionStart) > SessionTimeout {
		e.lockLocked()
		return ErrLocked
	}
	e.sessionStart = e.now()
	return nil
}

func (e *Engine) findLocked(id string) int {
	for i := range e.entries {
		if e.entries[i].ID == id {
			return i
		}
	}
	return -1
}

// sealLocked is the single write path: serialize the entry set, encrypt
// under the current key, write the envelope atomically.
func (e *Engine) sealLocked() error {
	plaintext, err := json.Marshal(vaultData{Entries: e.entries})
	if err != nil {
		return fmt.Errorf("failed to serialize vault data: %w", err)
	}
	defer crypt.Wipe(plaintext)

	nonce, ciphertext, err := crypt.Encrypt(e.key.Bytes(), plaintext)
	if err != nil {
		return err
	}

	return e.store.Write(&vaultfile.Envelope{
		Version:    vaultfile.Version,
		AuthMethod: e.method,
		KDF:        e.kdf,
		Salt:       e.salt,
		Data: vaultfile.EncryptedData{
			Nonce:      hex.EncodeToString(nonce),
			Ciphertext: hex.EncodeToString(ciphertext),
		},
	})
}

func openEnvelope(env *vaultfile.Envelope, key *crypt.KeyBuf) ([]Entry, error) {
	nonce, err := hex.DecodeString(env.Data.Nonce)
	if err != nil {
		return nil, fmt.Errorf("%w: bad nonce", ErrInvalid)
	}
	ciphertext, err := hex.DecodeString(env.Data.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("%w: bad ciphertext", ErrInvalid)
	}

	plaintext, err := crypt.Decrypt(key.Bytes(), nonce, ciphertext)
	if err != nil {
		return nil, ErrAuthFailed
	}
	defer crypt.Wipe(plaintext)

	var data vaultData
	if err := json.Unmarshal(plaintext, &data); err != nil {
		return nil, fmt.Errorf("%w: vault data", ErrInvalid)
	}
	return data.Entries, nil
}

func (e *Engine) oauthKey(idToken string) (auth.OAuth, *crypt.KeyBuf, error) {
	pepper, err := auth.Pepper()
	if err != nil {
		return auth.OAuth{}, nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	subject, err := e.verifier.Verify(idToken)
	if err != nil {
		crypt.Wipe(pepper)
		return auth.OAuth{}, nil, ErrAuthFailed
	}

	method := auth.OAuth{Subject: subject}
	return method, method.Key(pepper), nil
}

func decodeKeyHex(keyHex string) (*crypt.KeyBuf, error) {
	raw, err := hex.DecodeString(keyHex)
	if err != nil || len(raw) != crypt.KeySize {
		return nil, fmt.Errorf("%w: key must be %d hex-encoded bytes", ErrInvalid, crypt.KeySize)
	}
	return crypt.NewKeyBuf(raw), nil
}

// identity swap helpers for init/re-key rollback

type identity struct {
	key     *crypt.KeyBuf
	method  string
	kdf     string
	salt    string
	entries []Entry
}

func (e *Engine) swapIdentity(method auth.Method, key *crypt.KeyBuf, entries []Entry) identity {
	prev := identity{key: e.key, method: e.method, kdf: e.kdf, salt: e.salt, entries: e.entries}
	e.key = key
	e.method = method.Tag()
	e.kdf = method.KDFTag()
	e.salt = method.EnvelopeSalt()
	e.entries = entries
	return prev
}

func (e *Engine) restoreIdentity(prev identity) {
	e.key = prev.key
	e.method = prev.method
	e.kdf = prev.kdf
	e.salt = prev.salt
	e.entries = prev.entries
}

func mapFileError(err error) error {
	switch {
	case errors.Is(err, vaultfile.ErrNotFound):
		return fmt.Errorf("%w: vault", ErrNotFound)
	case errors.Is(err, vaultfile.ErrLegacyKDF):
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	default:
		return err
	}
}
