package oracle

// Bandersnatch ring-VRF is treated as an opaque oracle (spec §1 Non-goals):
// this package declares its interface and sizes but does not implement
// curve arithmetic. A production node links a verified Bandersnatch/ring-VRF
// backend (analogous to the teacher's banderwagon.go scaffold, itself a
// placeholder for the related Banderwagon/Bandersnatch curve) behind this
// same interface.

// BandersnatchPublicKey is a 32-byte compressed Bandersnatch point.
type BandersnatchPublicKey [32]byte

// RingVRFSignature is a 96-byte Bandersnatch ring-VRF proof+output pair, as
// used for tickets (§4.6) and the block seal/entropy-source (header §3).
type RingVRFSignature [96]byte

// RingCommitment is the 32-byte (compressed) commitment to a validator
// ring used to verify ring-VRF proofs without revealing which ring member
// produced them.
type RingCommitment [32]byte

// RingVRFOracle verifies Bandersnatch ring-VRF proofs and computes the VRF
// output hash used as ticket id / entropy contribution.
type RingVRFOracle interface {
	// VerifyRing checks sig is a valid ring-VRF proof over msg for the given
	// ring commitment, returning the 32-byte VRF output on success.
	VerifyRing(commitment RingCommitment, msg []byte, sig RingVRFSignature) (Hash, bool)

	// VerifyIETF checks sig is a valid single-key (non-anonymous) VRF proof
	// by pub over msg, used for the block seal and entropy source, returning
	// the 32-byte VRF output on success.
	VerifyIETF(pub BandersnatchPublicKey, msg []byte, sig RingVRFSignature) (Hash, bool)

	// Commit computes the ring commitment for an ordered validator key set.
	Commit(keys []BandersnatchPublicKey) RingCommitment
}

// stubRingVRF is a deterministic placeholder oracle: it derives a VRF
// "output" from Blake2-256(pub/commitment || msg || sig) and accepts any
// non-zero signature. It exists so the safrole and STF orchestration logic
// have something to call during development and in test vectors that do not
// exercise real proof rejection; it is never a substitute for a verified
// Bandersnatch backend.
type stubRingVRF struct{}

// NewStubRingVRF returns the default non-cryptographic oracle implementation.
func NewStubRingVRF() RingVRFOracle { return stubRingVRF{} }

func (stubRingVRF) VerifyRing(commitment RingCommitment, msg []byte, sig RingVRFSignature) (Hash, bool) {
	if isZero96(sig) {
		return Hash{}, false
	}
	return Blake2b256(commitment[:], msg, sig[:]), true
}

func (stubRingVRF) VerifyIETF(pub BandersnatchPublicKey, msg []byte, sig RingVRFSignature) (Hash, bool) {
	if isZero96(sig) {
		return Hash{}, false
	}
	return Blake2b256(pub[:], msg, sig[:]), true
}

func (stubRingVRF) Commit(keys []BandersnatchPublicKey) RingCommitment {
	var buf []byte
	for _, k := range keys {
		buf = append(buf, k[:]...)
	}
	h := Blake2b256(buf)
	var c RingCommitment
	copy(c[:], h[:])
	return c
}

func isZero96(b [96]byte) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}
