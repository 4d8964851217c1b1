// Package oracle provides the cryptographic primitives the JAM core treats
// as opaque, declared-size oracles (spec §1 Non-goals): Blake2-256,
// Keccak-256, Ed25519 verify, Bandersnatch ring-VRF verify, BLS aggregate
// verify, and erasure coding. Blake2-256 and Keccak-256 are backed by real
// library implementations since they are ordinary hash functions the trie
// and MMR need to function; Bandersnatch, BLS and erasure coding are
// declared-interface stubs, matching the spec's instruction to treat them
// as oracles rather than reimplement curve/field arithmetic.
package oracle

import (
	"crypto/ed25519"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"
)

// Hash is a 32-byte digest, used for both Blake2-256 and Keccak-256 outputs.
type Hash [32]byte

// Blake2b256 computes the Blake2-256 hash of the concatenation of data,
// mirroring pkg/crypto/keccak.go's variadic-write style.
func Blake2b256(data ...[]byte) Hash {
	h, err := blake2b.New256(nil)
	if err != nil {
		// blake2b.New256 only errors on an invalid key, and we pass nil.
		panic("oracle: blake2b.New256: " + err.Error())
	}
	for _, d := range data {
		h.Write(d)
	}
	var out Hash
	copy(out[:], h.Sum(nil))
	return out
}

// Keccak256 computes the Keccak-256 hash of the concatenation of data.
func Keccak256(data ...[]byte) Hash {
	d := sha3.NewLegacyKeccak256()
	for _, b := range data {
		d.Write(b)
	}
	var out Hash
	copy(out[:], d.Sum(nil))
	return out
}

// Ed25519PublicKey is a 32-byte Ed25519 verification key.
type Ed25519PublicKey [32]byte

// Ed25519Signature is a 64-byte Ed25519 signature.
type Ed25519Signature [64]byte

// Ed25519Verify verifies sig over msg under pub. This delegates directly to
// the standard library, which is the oracle implementation for this
// primitive (spec §1 Non-goals: Ed25519 is an opaque oracle with a declared
// interface, not a primitive to hand-roll).
func Ed25519Verify(pub Ed25519PublicKey, msg []byte, sig Ed25519Signature) bool {
	return ed25519.Verify(ed25519.PublicKey(pub[:]), msg, sig[:])
}
