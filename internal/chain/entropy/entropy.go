// Package entropy mutates the four-slot rolling entropy pool η₀..η₃ (§3,
// §4.6 step 1, §4.9 Invariants): η₀ accumulates the header's VRF output
// every block; the whole pool rotates once per epoch.
//
// Grounded on pkg/consensus/epoch_transition.go's randao-mix rotation shape
// (a ring buffer of per-epoch mix values), generalized from a single mix
// value to JAM's four-deep accumulator.
package entropy

import (
	"github.com/jamnode/jamcore/internal/oracle"
)

// OnBlock folds vrfOutput into η₀ (§4.6 step "rotate entropy pool" happens
// at epoch boundary only; this runs every block).
func OnBlock(pool *[4]oracle.Hash, vrfOutput oracle.Hash) {
	pool[0] = oracle.Blake2b256(pool[0][:], vrfOutput[:])
}

// OnEpochRollover rotates the pool: η₃←η₂, η₂←η₁, η₁←η₀ (§4.6 step 1). η₀ is
// left as-is; the caller must invoke this *before* OnBlock on an epoch
// boundary, so that η₁ captures the previous epoch's final η₀ rather than
// this block's contribution (§4.12 step 6 rotates first, then folds in the
// new block's VRF output).
func OnEpochRollover(pool *[4]oracle.Hash) {
	pool[3] = pool[2]
	pool[2] = pool[1]
	pool[1] = pool[0]
}
