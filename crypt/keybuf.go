package crypt

import (
	"errors"

	"github.com/awnumar/memguard"
)

// ErrNoSerialize is returned from any attempt to marshal a KeyBuf.
var ErrNoSerialize = errors.New("key material does not serialize")

// KeyBuf holds a vault key in a memguard locked buffer. The backing pages
// are mlocked and guarded, the contents are wiped on Destroy, and the type
// refuses JSON serialization. KeyBuf must not be copied after first use.
type KeyBuf struct {
	noCopy noCopy

	lb *memguard.LockedBuffer
}

// NewKeyBuf moves key into a locked buffer. The source slice is wiped.
func NewKeyBuf(key []byte) *KeyBuf {
	return &KeyBuf{lb: memguard.NewBufferFromBytes(key)}
}

// Bytes exposes the key for the duration of a crypto call. The slice aliases
// guarded memory and becomes invalid after Destroy; callers must not retain
// it.
func (k *KeyBuf) Bytes() []byte {
	return k.lb.Bytes()
}

// Destroy wipes and releases the buffer. Idempotent.
func (k *KeyBuf) Destroy() {
	if k == nil || k.lb == nil {
		return
	}
	k.lb.Destroy()
}

// Alive reports whether the buffer still holds key material.
func (k *KeyBuf) Alive() bool {
	return k != nil && k.lb != nil && k.lb.IsAlive()
}

// MarshalJSON always fails; key material never leaves the process.
func (k *KeyBuf) MarshalJSON() ([]byte, error) {
	return nil, ErrNoSerialize
}

// MarshalText always fails; key material never leaves the process.
func (k *KeyBuf) MarshalText() ([]byte, error) {
	return nil, ErrNoSerialize
}

// Wipe zeroes a transient secret slice in place.
func Wipe(b []byte) {
	memguard.WipeBytes(b)
}

// noCopy triggers go vet's copylocks check when a KeyBuf is copied by value.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}
