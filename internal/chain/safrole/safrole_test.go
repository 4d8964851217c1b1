package safrole

import (
	"testing"

	"github.com/jamnode/jamcore/internal/config"
	"github.com/jamnode/jamcore/internal/oracle"
	"github.com/jamnode/jamcore/internal/state"
)

func ticketWithProof(fill byte) state.Ticket {
	var t state.Ticket
	t.Attempt = 0
	for i := range t.Proof {
		t.Proof[i] = fill
	}
	return t
}

func TestProcessTicketsInsertsSortedByID(t *testing.T) {
	cfg := config.Tiny()
	vrf := oracle.NewStubRingVRF()
	safroleState := &state.SafroleState{}
	entropy := oracle.Hash{0x01}
	commitment := vrf.Commit(nil)

	a := ticketWithProof(0x11)
	b := ticketWithProof(0x22)
	idA, _ := vrf.VerifyRing(commitment, ticketMessage(entropy, a.Attempt), a.Proof)
	idB, _ := vrf.VerifyRing(commitment, ticketMessage(entropy, b.Attempt), b.Proof)
	if !lessHash(idA, idB) {
		a, b = b, a
		idA, idB = idB, idA
	}

	err := ProcessTickets(cfg, safroleState, entropy, commitment, []state.Ticket{a, b}, 0, vrf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(safroleState.TicketAccumulator) != 2 {
		t.Fatalf("accumulator = %v, want 2 entries", safroleState.TicketAccumulator)
	}
	if safroleState.TicketAccumulator[0].ID != idA || safroleState.TicketAccumulator[1].ID != idB {
		t.Fatal("accumulator not sorted by ticket id")
	}
}

func TestProcessTicketsRejectsLateSubmission(t *testing.T) {
	cfg := config.Tiny()
	vrf := oracle.NewStubRingVRF()
	safroleState := &state.SafroleState{}
	entropy := oracle.Hash{0x01}
	commitment := vrf.Commit(nil)
	a := ticketWithProof(0x11)

	err := ProcessTickets(cfg, safroleState, entropy, commitment, []state.Ticket{a}, cfg.TicketSubmissionEnds, vrf)
	if err != ErrUnexpectedTicket {
		t.Fatalf("err = %v, want ErrUnexpectedTicket", err)
	}
}

func TestProcessTicketsRejectsBadProof(t *testing.T) {
	cfg := config.Tiny()
	vrf := oracle.NewStubRingVRF()
	safroleState := &state.SafroleState{}
	entropy := oracle.Hash{0x01}
	commitment := vrf.Commit(nil)
	var zero state.Ticket // zero-valued proof is rejected by the stub oracle

	err := ProcessTickets(cfg, safroleState, entropy, commitment, []state.Ticket{zero}, 0, vrf)
	if err != ErrBadTicketProof {
		t.Fatalf("err = %v, want ErrBadTicketProof", err)
	}
}

func TestProcessTicketsRejectsDuplicateID(t *testing.T) {
	cfg := config.Tiny()
	vrf := oracle.NewStubRingVRF()
	safroleState := &state.SafroleState{}
	entropy := oracle.Hash{0x01}
	commitment := vrf.Commit(nil)
	a := ticketWithProof(0x11)

	if err := ProcessTickets(cfg, safroleState, entropy, commitment, []state.Ticket{a}, 0, vrf); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	err := ProcessTickets(cfg, safroleState, entropy, commitment, []state.Ticket{a}, 0, vrf)
	if err != ErrDuplicateTicket {
		t.Fatalf("err = %v, want ErrDuplicateTicket", err)
	}
}

func TestRolloverEpochFallbackWhenAccumulatorIncomplete(t *testing.T) {
	cfg := config.Tiny() // EpochLength = 12
	vrf := oracle.NewStubRingVRF()

	s := &state.State{}
	s.CurrValidators = make(state.Validators, cfg.Validators)
	s.NextValidators = make(state.Validators, cfg.Validators)
	s.Safrole = &state.SafroleState{
		PendingValidators: make(state.Validators, cfg.Validators),
	}
	s.Disputes = &state.DisputesRecords{}
	s.Entropy[2] = oracle.Hash{0x42}
	for i := range s.CurrValidators {
		s.CurrValidators[i].Bandersnatch[0] = byte(i + 1)
		s.NextValidators[i].Bandersnatch[0] = byte(i + 1)
	}
	// Only 5 of EPOCH_LENGTH=12 tickets accumulated (§8 scenario E).
	for i := 0; i < 5; i++ {
		s.Safrole.TicketAccumulator = append(s.Safrole.TicketAccumulator, state.TicketEntry{ID: oracle.Hash{byte(i)}})
	}

	RolloverEpoch(cfg, s, vrf)

	if !s.Safrole.UsesFallback {
		t.Fatal("expected fallback mode with an incomplete ticket accumulator")
	}
	if len(s.Safrole.SealTickets) != 0 {
		t.Fatal("SealTickets must be empty in fallback mode")
	}
	if uint32(len(s.Safrole.SealFallback)) != cfg.EpochLength {
		t.Fatalf("fallback sequence length = %d, want %d", len(s.Safrole.SealFallback), cfg.EpochLength)
	}
	if len(s.Safrole.TicketAccumulator) != 0 {
		t.Fatal("accumulator must be cleared after rollover")
	}
}

func TestRolloverEpochTicketModeWhenAccumulatorFull(t *testing.T) {
	cfg := config.Tiny()
	vrf := oracle.NewStubRingVRF()

	s := &state.State{}
	s.CurrValidators = make(state.Validators, cfg.Validators)
	s.NextValidators = make(state.Validators, cfg.Validators)
	s.Safrole = &state.SafroleState{PendingValidators: make(state.Validators, cfg.Validators)}
	s.Disputes = &state.DisputesRecords{}
	for i := uint32(0); i < cfg.EpochLength; i++ {
		s.Safrole.TicketAccumulator = append(s.Safrole.TicketAccumulator, state.TicketEntry{ID: oracle.Hash{byte(i)}, Attempt: 0})
	}

	RolloverEpoch(cfg, s, vrf)

	if s.Safrole.UsesFallback {
		t.Fatal("expected tickets mode with a full ticket accumulator")
	}
	if uint32(len(s.Safrole.SealTickets)) != cfg.EpochLength {
		t.Fatalf("SealTickets length = %d, want %d", len(s.Safrole.SealTickets), cfg.EpochLength)
	}
}
