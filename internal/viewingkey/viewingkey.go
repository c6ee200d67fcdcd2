// Package viewingkey derives, hashes and checks the secret keys that gate
// private balance and history queries.
package viewingkey

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	"token-ledger/internal/domain"
)

// Prefix is prepended to every generated key.
const Prefix = "api_key_"

// HashSize is the length of a stored key hash.
const HashSize = sha256.Size

var hkdfSalt = []byte("token-ledger-viewing-key")

// Key is a caller-presented viewing key.
type Key string

// New derives a fresh key from the contract seed, caller entropy and the
// block and sender of the creating call.
func New(env domain.Env, seed, entropy []byte) (Key, error) {
	if len(seed) == 0 {
		return "", fmt.Errorf("prng seed is required")
	}

	info := make([]byte, 16, 16+len(env.Sender)+len(entropy))
	binary.BigEndian.PutUint64(info[:8], env.Block.Height)
	binary.BigEndian.PutUint64(info[8:], env.Block.Time)
	info = append(info, env.Sender...)
	info = append(info, entropy...)

	reader := hkdf.New(sha256.New, seed, hkdfSalt, info)
	okm := make([]byte, 32)
	if _, err := io.ReadFull(reader, okm); err != nil {
		return "", fmt.Errorf("derive key: %w", err)
	}

	digest := sha256.Sum256(okm)
	return Key(Prefix + base64.StdEncoding.EncodeToString(digest[:])), nil
}

// Hash returns the value persisted for the key.
func (k Key) Hash() []byte {
	digest := sha256.Sum256([]byte(k))
	return digest[:]
}

// Check compares the key against a stored hash in constant time.
func (k Key) Check(hashed []byte) bool {
	return subtle.ConstantTimeCompare(k.Hash(), hashed) == 1
}

// Dummy is compared against when an account has no key, so that a missing
// key costs the same as a wrong one.
var Dummy = make([]byte, HashSize)
