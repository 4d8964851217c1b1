package stf

import (
	"testing"

	"github.com/jamnode/jamcore/internal/config"
	"github.com/jamnode/jamcore/internal/oracle"
	"github.com/jamnode/jamcore/internal/state"
)

func genesisState(cfg *config.Config) *state.State {
	s := state.New(cfg)
	s.CurrValidators = make(state.Validators, cfg.Validators)
	s.PrevValidators = make(state.Validators, cfg.Validators)
	s.NextValidators = make(state.Validators, cfg.Validators)
	s.Safrole.PendingValidators = make(state.Validators, cfg.Validators)
	return s
}

func nonZeroSig() oracle.RingVRFSignature {
	var sig oracle.RingVRFSignature
	sig[0] = 1
	return sig
}

func emptyBlockOn(prior *state.State, slot uint32) *state.Block {
	h := state.Header{
		Parent:          oracle.Hash{1},
		ParentStateRoot: state.Root(prior),
		Slot:            slot,
		AuthorIndex:     0,
		EntropySource:   nonZeroSig(),
		Seal:            nonZeroSig(),
	}
	return &state.Block{Header: h}
}

func TestApplyEmptyBlock(t *testing.T) {
	cfg := config.Tiny()
	prior := genesisState(cfg)
	block := emptyBlockOn(prior, 1)

	posterior, out, err := Apply(cfg, prior, block, oracle.NewStubRingVRF())
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}
	if posterior == nil {
		t.Fatal("Apply returned nil posterior state on success")
	}
	if posterior.Time != block.Header.Slot {
		t.Fatalf("posterior Time = %d, want %d", posterior.Time, block.Header.Slot)
	}
	if len(out.Assurances.Reported) != 0 {
		t.Fatalf("Assurances.Reported = %v, want empty", out.Assurances.Reported)
	}
	if len(out.Guarantees.Placed) != 0 {
		t.Fatalf("Guarantees.Placed = %v, want empty", out.Guarantees.Placed)
	}
	if len(out.Disputes.OffendersMark) != 0 {
		t.Fatalf("Disputes.OffendersMark = %v, want empty", out.Disputes.OffendersMark)
	}

	// Applying a block never mutates the prior state the caller passed in.
	if prior.Time != 0 {
		t.Fatalf("prior.Time mutated to %d, want unchanged 0", prior.Time)
	}
}

func TestApplyRejectsBadParentStateRoot(t *testing.T) {
	cfg := config.Tiny()
	prior := genesisState(cfg)
	block := emptyBlockOn(prior, 1)
	block.Header.ParentStateRoot = oracle.Hash{0xff}

	if _, _, err := Apply(cfg, prior, block, oracle.NewStubRingVRF()); err != ErrBadParentStateRoot {
		t.Fatalf("Apply error = %v, want ErrBadParentStateRoot", err)
	}
}

func TestApplyRejectsBadAuthorIndex(t *testing.T) {
	cfg := config.Tiny()
	prior := genesisState(cfg)
	block := emptyBlockOn(prior, 1)
	block.Header.AuthorIndex = state.ValidatorIndex(cfg.Validators)

	if _, _, err := Apply(cfg, prior, block, oracle.NewStubRingVRF()); err != ErrBadAuthorIndex {
		t.Fatalf("Apply error = %v, want ErrBadAuthorIndex", err)
	}
}

func TestApplyRejectsZeroSeal(t *testing.T) {
	cfg := config.Tiny()
	prior := genesisState(cfg)
	block := emptyBlockOn(prior, 1)
	block.Header.Seal = oracle.RingVRFSignature{}

	if _, _, err := Apply(cfg, prior, block, oracle.NewStubRingVRF()); err != ErrBadSeal {
		t.Fatalf("Apply error = %v, want ErrBadSeal", err)
	}
}

func TestApplyAdvancesSlotAcrossEpochBoundary(t *testing.T) {
	cfg := config.Tiny()
	prior := genesisState(cfg)
	prior.Time = cfg.EpochLength - 1

	block := emptyBlockOn(prior, cfg.EpochLength)
	posterior, _, err := Apply(cfg, prior, block, oracle.NewStubRingVRF())
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}
	if posterior.Time != cfg.EpochLength {
		t.Fatalf("posterior.Time = %d, want %d", posterior.Time, cfg.EpochLength)
	}
	// Epoch rolled over: curr validators now come from the (zero-valued)
	// pending set, and a fallback seal sequence was committed since the
	// ticket accumulator never filled.
	if len(posterior.Safrole.SealFallback) != int(cfg.EpochLength) {
		t.Fatalf("SealFallback length = %d, want %d", len(posterior.Safrole.SealFallback), cfg.EpochLength)
	}
	if !posterior.Safrole.UsesFallback {
		t.Fatal("expected UsesFallback after an epoch with no full ticket accumulator")
	}
}
