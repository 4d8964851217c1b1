package oracle

// ErasureCoder is an opaque oracle (§1 Non-goals) for the erasure coding
// used to split work-package auditable data into per-validator segments for
// availability. The STF and PVM core never decode segment contents; they
// only carry segment-root hashes through work-reports. This interface is
// declared so a future availability/distribution component has a named
// shape to implement against.
type ErasureCoder interface {
	// Encode splits data into n shards of which any k reconstruct the
	// original (a systematic Reed-Solomon-style code).
	Encode(data []byte, n, k int) ([][]byte, error)

	// Decode reconstructs the original data from at least k of the n shards.
	// Missing shards are represented as nil entries in shards.
	Decode(shards [][]byte, n, k int, originalLen int) ([]byte, error)
}
