// Package crypt implements the authenticated encryption and key derivation
// primitives for the vault: AES-256-GCM with a random 96-bit nonce, Argon2id
// key derivation, and a zeroizing key buffer.
package crypt

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
)

// Errors returned from decryption and key handling
var (
	ErrTagMismatch = errors.New("message authentication failed")
	ErrInvalidKey  = errors.New("key size is wrong for aes-256-gcm")
)

const (
	// KeySize is the vault key length in bytes.
	KeySize = 32
	// NonceSize is the GCM nonce length in bytes.
	NonceSize = 12
	// TagSize is the GCM authentication tag length in bytes.
	TagSize = 16
)

// Encrypt seals plaintext under key with AES-256-GCM. The nonce is drawn
// fresh from the OS CSPRNG for every call. The returned ciphertext has the
// 16-byte tag appended per standard GCM framing.
func Encrypt(key, plaintext []byte) (nonce, ciphertext []byte, err error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, nil, err
	}

	nonce, err = RandBytes(NonceSize)
	if err != nil {
		return nil, nil, err
	}

	ciphertext = aead.Seal(nil, nonce, plaintext, nil)
	return nonce, ciphertext, nil
}

// Decrypt opens ciphertext produced by Encrypt. A wrong key and a tampered
// ciphertext are deliberately indistinguishable: both surface as
// ErrTagMismatch.
func Decrypt(key, nonce, ciphertext []byte) ([]byte, error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	if len(nonce) != NonceSize {
		return nil, ErrTagMismatch
	}

	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrTagMismatch
	}

	return plaintext, nil
}

// DeriveKey runs Argon2id over secret and salt with the given parameters,
// producing a vault key.
func DeriveKey(secret, salt []byte, p Params) []byte {
	return argon2.IDKey(secret, salt, p.T, p.M, p.P, KeySize)
}

// RandBytes returns n bytes from the OS CSPRNG.
func RandBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("failed to read randomness: %w", err)
	}
	return b, nil
}

// ConstantTimeEq compares a and b without leaking where they differ.
// Slices of unequal length compare unequal.
func ConstantTimeEq(a, b []byte) bool {
	return subtle.ConstantTimeCompare(a, b) == 1
}

func newGCM(key []byte) (cipher.AEAD, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKey
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	return cipher.NewGCM(block)
}
