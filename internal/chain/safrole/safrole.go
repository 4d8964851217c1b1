// Package safrole implements the block-author lottery (§4.6): ticket
// submission into a per-epoch accumulator, and the epoch-boundary rollover
// that commits either the accumulated tickets or a fallback key sequence
// as the next epoch's seal sequence.
//
// Grounded on pkg/consensus/epoch_transition.go + epoch_boundary.go's
// rotation-and-commit orchestration shape (rotate validator sets, recompute
// a committee seed, clear per-epoch accumulators), generalized from
// Ethereum's RANDAO/proposer-index scheme to JAM's ring-VRF ticket lottery.
package safrole

import (
	"errors"
	"sort"

	"github.com/jamnode/jamcore/internal/config"
	"github.com/jamnode/jamcore/internal/oracle"
	"github.com/jamnode/jamcore/internal/state"
)

// Errors (§4.6, §7).
var (
	ErrBadSlot         = errors.New("safrole: non-monotone slot")
	ErrUnexpectedTicket = errors.New("safrole: ticket submitted after submission window")
	ErrBadTicketOrder  = errors.New("safrole: tickets not sorted by id")
	ErrBadTicketProof  = errors.New("safrole: ring-VRF proof failed to verify")
	ErrBadTicketAttempt = errors.New("safrole: attempt number out of range")
	ErrDuplicateTicket = errors.New("safrole: duplicate ticket id")
)

// Output is the tagged Ok/Err union for ticket-extrinsic processing (§7).
type Output struct {
	OffendersMark []oracle.Ed25519PublicKey // empty unless this call also rolled an epoch
	Err           error
}

// ticketMessage builds the canonical VRF message a ticket proof is over:
// the current epoch's entropy (η₂, the entropy fixed two epochs back so it
// is unpredictable at submission time yet already settled) concatenated
// with the attempt number.
func ticketMessage(epochEntropy oracle.Hash, attempt uint8) []byte {
	return append(append([]byte{}, epochEntropy[:]...), attempt)
}

// ProcessTickets verifies and inserts the block's ticket extrinsic into the
// per-epoch accumulator (§4.6).
func ProcessTickets(
	cfg *config.Config,
	safrole *state.SafroleState,
	epochEntropy oracle.Hash,
	ringCommitment oracle.RingCommitment,
	tickets []state.Ticket,
	slotInEpoch uint32,
	vrf oracle.RingVRFOracle,
) error {
	if len(tickets) == 0 {
		return nil
	}
	if slotInEpoch >= cfg.TicketSubmissionEnds {
		return ErrUnexpectedTicket
	}

	entries := make([]state.TicketEntry, 0, len(tickets))
	for _, t := range tickets {
		if uint32(t.Attempt) >= cfg.TicketEntriesPerValidator {
			return ErrBadTicketAttempt
		}
		msg := ticketMessage(epochEntropy, t.Attempt)
		id, ok := vrf.VerifyRing(ringCommitment, msg, t.Proof)
		if !ok {
			return ErrBadTicketProof
		}
		entries = append(entries, state.TicketEntry{ID: id, Attempt: t.Attempt})
	}

	for i := 1; i < len(entries); i++ {
		if !lessHash(entries[i-1].ID, entries[i].ID) {
			return ErrBadTicketOrder
		}
	}

	merged := append(append([]state.TicketEntry(nil), safrole.TicketAccumulator...), entries...)
	sort.Slice(merged, func(i, j int) bool { return lessHash(merged[i].ID, merged[j].ID) })
	for i := 1; i < len(merged); i++ {
		if merged[i-1].ID == merged[i].ID {
			return ErrDuplicateTicket
		}
	}
	if uint32(len(merged)) > cfg.EpochLength {
		merged = merged[:cfg.EpochLength] // worst (largest id) entries dropped
	}
	safrole.TicketAccumulator = merged
	return nil
}

func lessHash(a, b oracle.Hash) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// RolloverEpoch performs the §4.6 epoch-boundary action: rotate the
// validator sets, commit the seal sequence (tickets mode if the
// accumulator filled exactly EPOCH_LENGTH, fallback mode otherwise), clear
// the accumulator, and recompute the ring commitment. It does not touch the
// entropy pool; entropy.OnEpochRollover rotates that.
func RolloverEpoch(cfg *config.Config, s *state.State, vrf oracle.RingVRFOracle) {
	s.PrevValidators = s.CurrValidators
	s.CurrValidators = zeroOffenders(s.Safrole.PendingValidators, s.Disputes.Offenders)
	s.Safrole.PendingValidators = zeroOffenders(s.NextValidators, s.Disputes.Offenders)

	if uint32(len(s.Safrole.TicketAccumulator)) == cfg.EpochLength {
		sealed := make([]state.TicketBody, len(s.Safrole.TicketAccumulator))
		for i, t := range s.Safrole.TicketAccumulator {
			sealed[i] = state.TicketBody{ID: t.ID, Attempt: t.Attempt}
		}
		s.Safrole.SealTickets = sealed
		s.Safrole.SealFallback = nil
		s.Safrole.UsesFallback = false
	} else {
		s.Safrole.SealTickets = nil
		s.Safrole.SealFallback = fallbackSequence(cfg, s.Entropy[2], s.CurrValidators)
		s.Safrole.UsesFallback = true
	}

	s.Safrole.TicketAccumulator = nil

	keys := make([]oracle.BandersnatchPublicKey, len(s.CurrValidators))
	for i, v := range s.CurrValidators {
		keys[i] = v.Bandersnatch
	}
	s.Safrole.RingCommitment = vrf.Commit(keys)
}

func zeroOffenders(vs state.Validators, offenders []oracle.Ed25519PublicKey) state.Validators {
	out := make(state.Validators, len(vs))
	for i, v := range vs {
		if v.IsOffender(offenders) {
			out[i] = state.Validator{}
		} else {
			out[i] = v
		}
	}
	return out
}

// fallbackSequence derives EPOCH_LENGTH seal-slot keys from η₂ and the new
// curr Bandersnatch keys, by hashing η₂ with the slot index and selecting a
// validator index from the hash modulo V (§4.6 step 3, §9 open question: no
// ticket accumulated a winning entry for that slot).
func fallbackSequence(cfg *config.Config, seed oracle.Hash, curr state.Validators) []oracle.BandersnatchPublicKey {
	out := make([]oracle.BandersnatchPublicKey, cfg.EpochLength)
	if len(curr) == 0 {
		return out
	}
	for slot := uint32(0); slot < cfg.EpochLength; slot++ {
		h := oracle.Blake2b256(seed[:], encodeU32(slot))
		idx := firstU32(h) % uint32(len(curr))
		out[slot] = curr[idx].Bandersnatch
	}
	return out
}

func encodeU32(v uint32) []byte {
	return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}

func firstU32(h oracle.Hash) uint32 {
	return uint32(h[0]) | uint32(h[1])<<8 | uint32(h[2])<<16 | uint32(h[3])<<24
}
