// Package stf is the state-transition-function orchestrator (§4.12): it
// decodes a block, threads the prior global state through the fixed
// 10-step sequence of substate processors, and returns the posterior
// state together with the union of every step's typed output.
//
// Grounded on pkg/consensus/unified_beacon_state.go and
// beacon_state_merger.go's "apply every substate transition in a fixed
// order, threading one intermediate value into the next" orchestrator
// shape, generalized from Ethereum's beacon-chain per-epoch/per-slot
// transition functions to JAM's per-block substate pipeline.
package stf

import (
	"errors"
	"fmt"

	"github.com/jamnode/jamcore/internal/chain/accumulate"
	"github.com/jamnode/jamcore/internal/chain/auth"
	"github.com/jamnode/jamcore/internal/chain/disputes"
	"github.com/jamnode/jamcore/internal/chain/entropy"
	"github.com/jamnode/jamcore/internal/chain/history"
	"github.com/jamnode/jamcore/internal/chain/preimage"
	"github.com/jamnode/jamcore/internal/chain/report"
	"github.com/jamnode/jamcore/internal/chain/safrole"
	"github.com/jamnode/jamcore/internal/chain/stats"
	"github.com/jamnode/jamcore/internal/chain/timekeeper"
	"github.com/jamnode/jamcore/internal/codec"
	"github.com/jamnode/jamcore/internal/config"
	"github.com/jamnode/jamcore/internal/log"
	"github.com/jamnode/jamcore/internal/oracle"
	"github.com/jamnode/jamcore/internal/state"
)

// Errors raised by the orchestrator itself, outside any single substate
// processor (§7: "any step's error is fatal for the block; σ is unchanged").
var (
	ErrBadParentStateRoot = errors.New("stf: header parent_state_root does not match prior state root")
	ErrBadAuthorIndex     = errors.New("stf: author index out of range")
	ErrBadSeal            = errors.New("stf: header seal failed to verify")
	ErrBadEntropySource   = errors.New("stf: header entropy source failed to verify")
)

// Output is the union of every substate processor's typed result for one
// block transition, returned alongside the posterior state so callers
// (trace replay, the fuzzer protocol, RPC) can inspect per-step outcomes
// without re-deriving them.
type Output struct {
	Disputes     disputes.Output
	Assurances   report.AssuranceOutput
	Guarantees   report.GuaranteeOutput
	Preimages    preimage.Output
	Safrole      safrole.Output
	Accumulation accumulate.Output
}

var log_ = log.Default().Module("stf")

// Apply computes σ′ from σ and B following the fixed order of §4.12. On
// any processor error, the returned state is nil and σ is never mutated —
// the caller's prior *state.State is untouched either way since Apply
// begins by cloning it.
func Apply(cfg *config.Config, prior *state.State, block *state.Block, vrf oracle.RingVRFOracle) (*state.State, Output, error) {
	var out Output

	if state.Root(prior) != block.Header.ParentStateRoot {
		return nil, out, ErrBadParentStateRoot
	}

	s := prior.Clone()
	h := &block.Header
	blog := log_.Block(h.Slot, h.Hash())

	// Step 1: verify header seal and entropy source, derive the VRF
	// output folded into entropy this block.
	if int(h.AuthorIndex) >= len(s.CurrValidators) {
		return nil, out, ErrBadAuthorIndex
	}
	author := s.CurrValidators[h.AuthorIndex]
	if _, ok := vrf.VerifyIETF(author.Bandersnatch, sealMessage(h), h.Seal); !ok {
		return nil, out, ErrBadSeal
	}
	vrfOutput, ok := vrf.VerifyIETF(author.Bandersnatch, entropyMessage(h), h.EntropySource)
	if !ok {
		return nil, out, ErrBadEntropySource
	}

	// Step 2: disputes, on the clone. Cores holding a newly-bad report
	// have their availability assignment cleared.
	newlyBad, disputesOut := disputes.Process(cfg, s.Disputes, s.CurrValidators, block.Extrinsic.Disputes, judgementMessage, offenseMessage)
	out.Disputes = disputesOut
	if disputesOut.Err != nil {
		return nil, out, disputesOut.Err
	}
	clearBadCores(s.Availability, newlyBad)

	// Step 3: assurances. Capture the pre-clear assignment so the cores
	// that just reached supermajority can be handed to accumulation as
	// newly-available reports (ProcessAssurances clears the slot in
	// place, per §9 open question iii: only report supermajority this
	// block, never a timed-out one).
	priorAvailability := s.Availability.Clone()
	assuranceOut := report.ProcessAssurances(cfg, s.Availability, s.CurrValidators, h.Parent, block.Extrinsic.Assurances, attestationMessage)
	out.Assurances = assuranceOut
	if assuranceOut.Err != nil {
		return nil, out, assuranceOut.Err
	}
	var newlyAvailable []*state.WorkReport
	for _, core := range assuranceOut.Reported {
		if int(core) < len(priorAvailability) && priorAvailability[core].Report != nil {
			newlyAvailable = append(newlyAvailable, priorAvailability[core].Report)
		}
	}

	// Refill each core's authorizer pool from its queue before guarantees
	// consume from it this block (§3 auth_pools/auth_queues).
	s.AuthPools = auth.Advance(cfg, s.AuthPools, s.AuthQueues, h.Slot)

	// Step 4: guarantees, placing newly-reported work into their cores.
	guaranteeOut := report.ProcessGuarantees(cfg, s.Availability, s.AuthPools, s.Services, s.RecentHistory, s.PrevValidators, s.CurrValidators, s.Entropy[2], block.Extrinsic.Guarantees, h.Slot, guarantorMessage)
	out.Guarantees = guaranteeOut
	if guaranteeOut.Err != nil {
		return nil, out, guaranteeOut.Err
	}

	// Step 5: preimages.
	preimageCounts, preimageSizes, preimageOut := preimage.Process(s.Services, block.Extrinsic.Preimages, h.Slot)
	out.Preimages = preimageOut
	if preimageOut.Err != nil {
		return nil, out, preimageOut.Err
	}

	// Step 6: safrole — ticket submission, entropy update, epoch rollover.
	epochChanged, err := timekeeper.Advance(cfg, s.Time, h.Slot)
	if err != nil {
		return nil, out, err
	}
	if err := safrole.ProcessTickets(cfg, s.Safrole, s.Entropy[2], s.Safrole.RingCommitment, block.Extrinsic.Tickets, cfg.SlotInEpoch(h.Slot), vrf); err != nil {
		out.Safrole = safrole.Output{Err: err}
		return nil, out, err
	}
	// Rotate before folding in this block's contribution: OnEpochRollover
	// must see the pre-block η₀ from the end of the prior epoch, not the
	// value this block is about to fold its own VRF output into.
	if epochChanged {
		entropy.OnEpochRollover((*[4]oracle.Hash)(&s.Entropy))
	}
	entropy.OnBlock((*[4]oracle.Hash)(&s.Entropy), vrfOutput)
	if epochChanged {
		safrole.RolloverEpoch(cfg, s, vrf)
		stats.RolloverEpoch(s.Statistics)
	}
	s.Time = h.Slot

	// Step 7: accumulation. The ready-queue bucket due this epoch-slot is
	// merged with this block's newly-available reports; whatever remains
	// dependency-blocked is carried back into the same bucket.
	slotIdx := cfg.SlotInEpoch(h.Slot)
	carriedIn := s.ReadyQueue[slotIdx]
	s.ReadyQueue[slotIdx] = nil
	accOut := accumulate.Process(cfg, s, newlyAvailable, carriedIn, h.Slot)
	out.Accumulation = accOut
	s.ReadyQueue[slotIdx] = accOut.Carried
	s.AccumulationHistory[slotIdx] = accOut.AccumulatedHashes
	for svc, outHash := range accOut.ServiceOutputs {
		s.RecentAccOutputs[svc] = outHash
	}

	// Step 8: statistics. Tickets and preimages carry no per-submitter
	// signature in the wire format (§4.1: a ticket proof is anonymous by
	// design; a preimage item is just service+blob) so their counts
	// accrue to the block author, mirroring how blocks/tickets/preimages
	// are the three author-attributed counters in §3's validator stats.
	act := stats.NewBlockActivity(h.AuthorIndex)
	act.TicketsBy[h.AuthorIndex] += len(block.Extrinsic.Tickets)
	var preimageTotal int
	var preimageBytesTotal uint64
	for _, n := range preimageCounts {
		preimageTotal += n
	}
	for _, n := range preimageSizes {
		preimageBytesTotal += n
	}
	act.PreimagesBy[h.AuthorIndex] += preimageTotal
	act.PreimageBytes[h.AuthorIndex] += preimageBytesTotal
	for _, g := range block.Extrinsic.Guarantees {
		for _, sig := range g.Signatures {
			act.GuaranteesBy[sig.ValidatorIndex]++
		}
	}
	for _, a := range block.Extrinsic.Assurances {
		act.AssurancesBy[a.ValidatorIndex]++
	}
	stats.Apply(s.Statistics, act)
	for svc, gas := range accOut.GasUsed {
		stats.RecordAccumulation(s.Statistics, svc, gas)
	}
	for svc, gas := range accOut.TransferGas {
		stats.RecordTransfer(s.Statistics, svc, gas)
	}

	// Step 9: recent history.
	history.Append(cfg, s.RecentHistory, h.Hash(), accOut.Root, guaranteeOut.Placed)

	// Step 10: serialize, merklize, backfill the posterior root into the
	// just-pushed history entry.
	root := state.Root(s)
	history.BackfillRoot(s.RecentHistory, root)

	blog.Debug("applied block", "root", fmt.Sprintf("%x", root))
	return s, out, nil
}

func clearBadCores(availability state.Availability, newlyBad []oracle.Hash) {
	if len(newlyBad) == 0 {
		return
	}
	bad := make(map[oracle.Hash]bool, len(newlyBad))
	for _, h := range newlyBad {
		bad[h] = true
	}
	for c, a := range availability {
		if a.Report != nil && bad[a.Report.Hash()] {
			availability[c] = state.CoreAssignment{}
		}
	}
}

// sealMessage is the canonical message the header's Bandersnatch seal
// signs over: the parent hash and slot (§3 Header).
func sealMessage(h *state.Header) []byte {
	w := codec.NewWriter(40)
	w.PutRaw(h.Parent[:])
	w.PutU32(h.Slot)
	return w.Bytes()
}

// entropyMessage is the canonical message the header's entropy-source VRF
// signs over: the parent state root and slot.
func entropyMessage(h *state.Header) []byte {
	w := codec.NewWriter(40)
	w.PutRaw(h.ParentStateRoot[:])
	w.PutU32(h.Slot)
	return w.Bytes()
}

// judgementMessage is the canonical message a dispute judgement signs
// over: the target report hash and the vote (§4.7).
func judgementMessage(target oracle.Hash, vote bool) []byte {
	w := codec.NewWriter(33)
	w.PutRaw(target[:])
	w.PutBool(vote)
	return w.Bytes()
}

// offenseMessage is the canonical message a culprit/fault signs over: the
// target report hash alone (§4.7).
func offenseMessage(target oracle.Hash) []byte {
	w := codec.NewWriter(32)
	w.PutRaw(target[:])
	return w.Bytes()
}

// attestationMessage is the canonical message an assurance signs over: the
// anchor hash and bitfield (§4.8).
func attestationMessage(anchor oracle.Hash, bitfield []byte) []byte {
	w := codec.NewWriter(32 + len(bitfield))
	w.PutRaw(anchor[:])
	w.PutRaw(bitfield)
	return w.Bytes()
}

// guarantorMessage is the canonical message a guarantor signs over: the
// work-report's own canonical encoding (§4.8).
func guarantorMessage(r *state.WorkReport) []byte {
	w := codec.NewWriter(512)
	r.Encode(w)
	return w.Bytes()
}
