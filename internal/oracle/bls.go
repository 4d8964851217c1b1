package oracle

// BLS is an opaque oracle in this spec (§1 Non-goals); JAM's current
// validator set does not require BLS for the STF paths this core covers
// (BLS public keys are carried in the validator descriptor but not
// verified by the in-scope processors), so this package only declares the
// shape a future BLS-verifying component would need, grounded on the
// teacher's build-tag-gated blst adapter (crypto/bls_blst_adapter.go):
// production code would link a real backend behind this interface rather
// than hand-roll pairing arithmetic.

// BLSPublicKey is a 144-byte (uncompressed) BLS12-381 G1 public key, the
// size JAM's validator metadata declares for the BLS key field.
type BLSPublicKey [144]byte

// BLSBackend verifies BLS signatures. The JAM core never calls this today;
// it exists so a future component (e.g. a richer dispute or audit scheme)
// has a named, sized operation to depend on instead of inventing one.
type BLSBackend interface {
	Verify(pub BLSPublicKey, msg []byte, sig []byte) bool
}
