package auth

import (
	"errors"
	"fmt"
	"os"
)

// PepperEnv names the environment variable holding the per-deployment
// application pepper used as Argon2id input for OAuth key derivation.
const PepperEnv = "LATCH_OAUTH_SECRET"

// pepperMinLen is the minimum pepper size in bytes.
const pepperMinLen = 32

// ErrPepperMissing is returned when OAuth operations are attempted without
// a usable pepper.
var ErrPepperMissing = fmt.Errorf("%s is unset or shorter than %d bytes", PepperEnv, pepperMinLen)

// Pepper reads and checks the application pepper. OAuth operations must
// refuse to run when this fails.
func Pepper() ([]byte, error) {
	v := os.Getenv(PepperEnv)
	if len(v) < pepperMinLen {
		return nil, ErrPepperMissing
	}
	return []byte(v), nil
}

// RequirePepper is the startup check for OAuth-configured deployments.
func RequirePepper() error {
	if _, err := Pepper(); err != nil {
		return errors.Join(errors.New("oauth unlock is unavailable"), err)
	}
	return nil
}
