package crypt

// Params configures an Argon2id derivation. M is in KiB.
type Params struct {
	M uint32
	T uint32
	P uint8
}

// SaltSize is the random salt length for password derivation.
const SaltSize = 16

// PasswordParams is the fixed parameter set for deriving a vault key from a
// master password: m=65536 KiB, t=3, p=4.
func PasswordParams() Params {
	return Params{M: 64 * 1024, T: 3, P: 4}
}

// OAuthParams is the fixed parameter set for deriving a vault key from the
// application pepper and an OAuth subject salt: m=32768 KiB, t=2, p=2.
func OAuthParams() Params {
	return Params{M: 32 * 1024, T: 2, P: 2}
}
