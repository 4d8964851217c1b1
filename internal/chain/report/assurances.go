// Package report implements the assurances and guarantees processors
// (§4.8): availability bitfield tallying and the placement of newly
// guaranteed work-reports into per-core slots.
//
// Grounded on pkg/consensus/attestation_pool.go's bitfield-aggregation
// shape (tally attester bits per committee, declare availability on
// quorum) and fork_choice_store.go's per-slot assignment bookkeeping.
package report

import (
	"errors"

	"github.com/jamnode/jamcore/internal/config"
	"github.com/jamnode/jamcore/internal/oracle"
	"github.com/jamnode/jamcore/internal/state"
)

// Errors (§4.8, §7).
var (
	ErrBadAttestationParent      = errors.New("report: assurance anchor does not match parent header hash")
	ErrBadValidatorIndex         = errors.New("report: validator index out of range")
	ErrBadSignature              = errors.New("report: signature verification failed")
	ErrNotSortedOrUniqueAssurers = errors.New("report: assurances not sorted/unique by validator index")
	ErrWrongBitfieldLength       = errors.New("report: bitfield length does not match ceil(cores/8)")
)

// AssuranceOutput is the Ok/Err union for assurance processing (§7):
// OutputDataAssurances.reported lists the cores that reached supermajority
// this block (§9 open question iii: never report a stale timeout).
type AssuranceOutput struct {
	Reported []uint16
	Err      error
}

// ProcessAssurances tallies the block's assurance bitfields per core and
// clears the availability slot of any core reaching supermajority
// (⌈⅔V+1⌉ of curr_validators), signing over attestationMsg(anchor,
// bitfield) (§4.8).
func ProcessAssurances(
	cfg *config.Config,
	availability state.Availability,
	curr state.Validators,
	parentHeaderHash oracle.Hash,
	assurances []state.Assurance,
	attestationMsg func(anchor oracle.Hash, bitfield []byte) []byte,
) AssuranceOutput {
	bitfieldLen := (int(cfg.Cores) + 7) / 8

	for i, a := range assurances {
		if i > 0 && assurances[i-1].ValidatorIndex >= a.ValidatorIndex {
			return AssuranceOutput{Err: ErrNotSortedOrUniqueAssurers}
		}
		if a.Anchor != parentHeaderHash {
			return AssuranceOutput{Err: ErrBadAttestationParent}
		}
		if len(a.Bitfield) != bitfieldLen {
			return AssuranceOutput{Err: ErrWrongBitfieldLength}
		}
		if int(a.ValidatorIndex) >= len(curr) {
			return AssuranceOutput{Err: ErrBadValidatorIndex}
		}
		if !oracle.Ed25519Verify(curr[a.ValidatorIndex].Ed25519, attestationMsg(a.Anchor, a.Bitfield), a.Signature) {
			return AssuranceOutput{Err: ErrBadSignature}
		}
	}

	counts := make([]int, cfg.Cores)
	for _, a := range assurances {
		for c := uint32(0); c < cfg.Cores; c++ {
			if bitSet(a.Bitfield, c) {
				counts[c]++
			}
		}
	}

	threshold := int(cfg.SupermajorityThreshold())
	var reported []uint16
	for c := uint32(0); c < cfg.Cores; c++ {
		if counts[c] < threshold {
			continue
		}
		// A core with no pending report reaching quorum is not itself
		// invalid input: an assurer may honestly set a bit for a core
		// whose report was already reported and cleared earlier this same
		// block, or time out and get reassigned, before this tally runs.
		// There is nothing to report either way, so this is a no-op rather
		// than a block-rejecting error (§9 open question iii).
		if availability[c].Report == nil {
			continue
		}
		reported = append(reported, uint16(c))
		availability[c] = state.CoreAssignment{}
	}
	return AssuranceOutput{Reported: reported}
}

// bitSet reports whether bit core is set, big-endian within each byte
// (bit 7 = core 0, §9).
func bitSet(bitfield []byte, core uint32) bool {
	byteIdx := core / 8
	if int(byteIdx) >= len(bitfield) {
		return false
	}
	bitIdx := 7 - core%8
	return bitfield[byteIdx]&(1<<bitIdx) != 0
}
