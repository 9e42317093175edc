package engine

import (
	"fmt"
	"strings"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// totpPeriod is the standard TOTP step in seconds.
const totpPeriod = 30

// TOTPCode generates the current one-time code for an entry that carries a
// TOTP secret (raw base32 or a full otpauth:// url). Returns the code and
// how many seconds it remains valid.
func (e *Engine) TOTPCode(id string) (code string, remainingSeconds int64, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.checkSessionLocked(); err != nil {
		return "", 0, err
	}

	idx := e.findLocked(id)
	if idx < 0 {
		return "", 0, fmt.Errorf("%w: entry", ErrNotFound)
	}

	secret := e.entries[idx].TOTP
	if secret == "" {
		return "", 0, fmt.Errorf("%w: entry has no totp secret", ErrNotFound)
	}

	if strings.HasPrefix(secret, "otpauth://") {
		key, err := otp.NewKeyFromURL(secret)
		if err != nil {
			return "", 0, fmt.Errorf("%w: bad otpauth url", ErrInvalid)
		}
		secret = key.Secret()
	} else {
		secret = strings.ToUpper(strings.ReplaceAll(secret, " ", ""))
	}

	now := e.now()
	code, err = totp.GenerateCode(secret, now)
	if err != nil {
		return "", 0, fmt.Errorf("%w: bad totp secret", ErrInvalid)
	}

	remainingSeconds = totpPeriod - now.Unix()%totpPeriod
	return code, remainingSeconds, nil
}
