package engine

import (
	"encoding/hex"
	"fmt"

	"github.com/parthashirolkar/latch/auth"
	"github.com/parthashirolkar/latch/crypt"
	"github.com/parthashirolkar/latch/vaultfile"
)

// Reencrypt re-keys the vault to an externally supplied key. newKDF "none"
// with an empty salt selects the biometric-keychain method; "argon2id" with
// a 16-byte hex salt selects the password method with an externally derived
// key. The switch is all-or-nothing: any failure leaves the old envelope
// and the old key in place.
func (e *Engine) Reencrypt(newKeyHex, newKDF, newSalt string) error {
	var method auth.Method
	switch newKDF {
	case vaultfile.KDFNone:
		if newSalt != "" {
			return fmt.Errorf("%w: kdf none takes no salt", ErrInvalid)
		}
		method = auth.Biometric{}
	case vaultfile.KDFArgon2id:
		salt, err := hex.DecodeString(newSalt)
		if err != nil || len(salt) != crypt.SaltSize {
			return fmt.Errorf("%w: salt must be %d hex-encoded bytes", ErrInvalid, crypt.SaltSize)
		}
		method = auth.Password{Salt: salt}
	default:
		return fmt.Errorf("%w: unknown kdf %q", ErrInvalid, newKDF)
	}

	key, err := decodeKeyHex(newKeyHex)
	if err != nil {
		return err
	}
	return e.rekey(method, key)
}

// ReencryptOAuth re-keys the vault to the OAuth method for the token's
// verified subject.
func (e *Engine) ReencryptOAuth(idToken string) error {
	method, key, err := e.oauthKey(idToken)
	if err != nil {
		return err
	}
	return e.rekey(method, key)
}

func (e *Engine) rekey(method auth.Method, key *crypt.KeyBuf) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.checkSessionLocked(); err != nil {
		key.Destroy()
		return err
	}

	wasBiometric := e.method == vaultfile.MethodBiometric

	prev := e.swapIdentity(method, key, e.entries)
	if err := e.sealLocked(); err != nil {
		e.restoreIdentity(prev)
		key.Destroy()
		return err
	}

	// new envelope is durable; retire the old key material
	if prev.key != nil {
		prev.key.Destroy()
	}
	if wasBiometric && method.Tag() != vaultfile.MethodBiometric && e.keychain != nil {
		// best effort: a stale keychain item no longer opens anything
		_ = (auth.Biometric{}).Forget(e.keychain)
	}
	e.sessionStart = e.now()
	return nil
}
