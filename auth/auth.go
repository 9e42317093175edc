// Package auth produces and recovers 32-byte vault keys. Each auth method
// is a small adapter: password (Argon2id over a random salt), oauth
// (Argon2id over the application pepper with the verified subject as salt),
// and biometric-keychain (a CSPRNG key held by the OS keychain). Adapters
// never see plaintext entries.
package auth

import (
	"encoding/hex"
	"errors"

	"github.com/parthashirolkar/latch/crypt"
	"github.com/parthashirolkar/latch/vaultfile"
)

// Errors returned from the adapters
var (
	ErrInvalidToken = errors.New("invalid id token")
	ErrKeychain     = errors.New("keychain operation failed")
)

// Method is the closed set of ways a vault key comes to exist. The on-disk
// auth_method/kdf/salt fields are its serialized form.
type Method interface {
	// Tag is the canonical envelope auth_method value.
	Tag() string
	// KDFTag is the canonical envelope kdf value.
	KDFTag() string
	// EnvelopeSalt is the salt string persisted in the envelope.
	EnvelopeSalt() string
}

// Password derives the vault key from a master password with Argon2id over
// a random 16-byte salt.
type Password struct {
	Salt []byte
}

// NewPassword draws a fresh random salt for a new or re-keyed vault.
func NewPassword() (Password, error) {
	salt, err := crypt.RandBytes(crypt.SaltSize)
	if err != nil {
		return Password{}, err
	}
	return Password{Salt: salt}, nil
}

func (Password) Tag() string    { return vaultfile.MethodPassword }
func (Password) KDFTag() string { return vaultfile.KDFArgon2id }

// EnvelopeSalt is the hex form of the random salt.
func (p Password) EnvelopeSalt() string { return hex.EncodeToString(p.Salt) }

// Key derives the vault key. The password bytes are wiped before return.
func (p Password) Key(password []byte) *crypt.KeyBuf {
	defer crypt.Wipe(password)
	return crypt.NewKeyBuf(crypt.DeriveKey(password, p.Salt, crypt.PasswordParams()))
}

// OAuth derives the vault key from the application pepper, salted with the
// externally verified OAuth subject identifier.
type OAuth struct {
	Subject string
}

func (OAuth) Tag() string    { return vaultfile.MethodOAuth }
func (OAuth) KDFTag() string { return vaultfile.KDFArgon2id }

// EnvelopeSalt is the raw subject string.
func (o OAuth) EnvelopeSalt() string { return o.Subject }

// Key derives the vault key from the pepper. The pepper is wiped before
// return.
func (o OAuth) Key(pepper []byte) *crypt.KeyBuf {
	defer crypt.Wipe(pepper)
	return crypt.NewKeyBuf(crypt.DeriveKey(pepper, []byte(o.Subject), crypt.OAuthParams()))
}

// Biometric holds the vault key in the OS keychain under a fixed
// service/account tuple; reading it triggers the OS biometric prompt
// externally. No KDF is involved.
type Biometric struct{}

func (Biometric) Tag() string          { return vaultfile.MethodBiometric }
func (Biometric) KDFTag() string       { return vaultfile.KDFNone }
func (Biometric) EnvelopeSalt() string { return "" }

// Setup generates a fresh vault key and stores it in the keychain.
func (Biometric) Setup(kc Keychain) (*crypt.KeyBuf, error) {
	key, err := crypt.RandBytes(crypt.KeySize)
	if err != nil {
		return nil, err
	}

	stored := make([]byte, len(key))
	copy(stored, key)
	if err := kc.Set(KeychainService, KeychainAccount, stored); err != nil {
		crypt.Wipe(key)
		crypt.Wipe(stored)
		return nil, errors.Join(ErrKeychain, err)
	}
	crypt.Wipe(stored)

	return crypt.NewKeyBuf(key), nil
}

// Unlock reads the vault key back from the keychain.
func (Biometric) Unlock(kc Keychain) (*crypt.KeyBuf, error) {
	key, err := kc.Get(KeychainService, KeychainAccount)
	if err != nil {
		return nil, errors.Join(ErrKeychain, err)
	}
	if len(key) != crypt.KeySize {
		crypt.Wipe(key)
		return nil, ErrKeychain
	}
	return crypt.NewKeyBuf(key), nil
}

// Forget removes the stored vault key, used after re-keying away from the
// biometric method once the new envelope is durable.
func (Biometric) Forget(kc Keychain) error {
	if err := kc.Delete(KeychainService, KeychainAccount); err != nil {
		return errors.Join(ErrKeychain, err)
	}
	return nil
}

