//go:build !darwin

package auth

import "errors"

// SystemKeychain is unavailable off macOS; the biometric method then
// requires the embedding UI to supply its own Keychain.
func SystemKeychain() (Keychain, error) {
	return nil, errors.New("no system keychain on this platform")
}
