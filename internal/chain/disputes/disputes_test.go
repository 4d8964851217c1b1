package disputes

import (
	"crypto/ed25519"
	"testing"

	"github.com/jamnode/jamcore/internal/config"
	"github.com/jamnode/jamcore/internal/oracle"
	"github.com/jamnode/jamcore/internal/state"
)

func judgementMsg(target oracle.Hash, vote bool) []byte {
	msg := append([]byte("jam_judgement"), target[:]...)
	if vote {
		msg = append(msg, 1)
	} else {
		msg = append(msg, 0)
	}
	return msg
}

func offenseMsg(target oracle.Hash) []byte {
	return append([]byte("jam_offense"), target[:]...)
}

func genValidator(t *testing.T) (state.Validator, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	var v state.Validator
	copy(v.Ed25519[:], pub)
	return v, priv
}

func TestProcessBadVerdictRequiresTwoCulprits(t *testing.T) {
	cfg := config.Tiny()
	var validators state.Validators
	var keys []ed25519.PrivateKey
	for i := 0; i < int(cfg.Validators); i++ {
		v, priv := genValidator(t)
		validators = append(validators, v)
		keys = append(keys, priv)
	}
	target := oracle.Hash{0xAA}

	var judgements []state.Judgement
	for i := range validators {
		sig := ed25519.Sign(keys[i], judgementMsg(target, false))
		var s oracle.Ed25519Signature
		copy(s[:], sig)
		judgements = append(judgements, state.Judgement{ValidatorIndex: state.ValidatorIndex(i), Vote: false, Signature: s})
	}

	culpritSig0 := ed25519.Sign(keys[0], offenseMsg(target))
	culpritSig1 := ed25519.Sign(keys[1], offenseMsg(target))
	var s0, s1 oracle.Ed25519Signature
	copy(s0[:], culpritSig0)
	copy(s1[:], culpritSig1)

	ext := state.DisputesExtrinsic{
		Verdicts: []state.Verdict{{Target: target, Judgements: judgements}},
		Culprits: []state.Culprit{
			{Target: target, Key: validators[0].Ed25519, Signature: s0},
			{Target: target, Key: validators[1].Ed25519, Signature: s1},
		},
	}
	// Culprits must be ordered by key; the generated keys are random.
	if !lessBytes32(ext.Culprits[0].Key[:], ext.Culprits[1].Key[:]) {
		ext.Culprits[0], ext.Culprits[1] = ext.Culprits[1], ext.Culprits[0]
	}

	records := &state.DisputesRecords{}
	newlyBad, out := Process(cfg, records, validators, ext, judgementMsg, offenseMsg)
	if out.Err != nil {
		t.Fatalf("unexpected error: %v", out.Err)
	}
	if len(newlyBad) != 1 || newlyBad[0] != target {
		t.Fatalf("newlyBad = %v, want [%x]", newlyBad, target)
	}
	if !records.IsBad(target) {
		t.Fatal("target not recorded as bad")
	}
	if len(records.Offenders) != 2 {
		t.Fatalf("offenders = %v, want 2 entries", records.Offenders)
	}
	if len(out.OffendersMark) != 2 {
		t.Fatalf("offenders mark = %v, want 2 entries", out.OffendersMark)
	}
}

func TestProcessBadVerdictRejectsSingleCulprit(t *testing.T) {
	cfg := config.Tiny()
	var validators state.Validators
	var keys []ed25519.PrivateKey
	for i := 0; i < int(cfg.Validators); i++ {
		v, priv := genValidator(t)
		validators = append(validators, v)
		keys = append(keys, priv)
	}
	target := oracle.Hash{0xAA}

	var judgements []state.Judgement
	for i := range validators {
		sig := ed25519.Sign(keys[i], judgementMsg(target, false))
		var s oracle.Ed25519Signature
		copy(s[:], sig)
		judgements = append(judgements, state.Judgement{ValidatorIndex: state.ValidatorIndex(i), Vote: false, Signature: s})
	}

	culpritSig0 := ed25519.Sign(keys[0], offenseMsg(target))
	var s0 oracle.Ed25519Signature
	copy(s0[:], culpritSig0)

	ext := state.DisputesExtrinsic{
		Verdicts: []state.Verdict{{Target: target, Judgements: judgements}},
		Culprits: []state.Culprit{{Target: target, Key: validators[0].Ed25519, Signature: s0}},
	}

	records := &state.DisputesRecords{}
	_, out := Process(cfg, records, validators, ext, judgementMsg, offenseMsg)
	if out.Err != ErrNotEnoughCulprits {
		t.Fatalf("err = %v, want ErrNotEnoughCulprits", out.Err)
	}
}

func TestProcessRejectsBadVoteSplit(t *testing.T) {
	cfg := config.Tiny()
	var validators state.Validators
	var keys []ed25519.PrivateKey
	for i := 0; i < int(cfg.Validators); i++ {
		v, priv := genValidator(t)
		validators = append(validators, v)
		keys = append(keys, priv)
	}
	target := oracle.Hash{0xBB}

	// One positive vote: matches neither 0, wonky(2), nor supermajority(5).
	sig := ed25519.Sign(keys[0], judgementMsg(target, true))
	var s oracle.Ed25519Signature
	copy(s[:], sig)
	judgements := []state.Judgement{{ValidatorIndex: 0, Vote: true, Signature: s}}

	ext := state.DisputesExtrinsic{Verdicts: []state.Verdict{{Target: target, Judgements: judgements}}}
	records := &state.DisputesRecords{}
	_, out := Process(cfg, records, validators, ext, judgementMsg, offenseMsg)
	if out.Err != ErrBadVoteSplit {
		t.Fatalf("err = %v, want ErrBadVoteSplit", out.Err)
	}
}

func TestProcessGoodVerdictWithDissentRequiresFault(t *testing.T) {
	cfg := config.Tiny()
	var validators state.Validators
	var keys []ed25519.PrivateKey
	for i := 0; i < int(cfg.Validators); i++ {
		v, priv := genValidator(t)
		validators = append(validators, v)
		keys = append(keys, priv)
	}
	target := oracle.Hash{0xCC}

	// 5 of 6 validators vote positive (supermajority, good verdict); the
	// 6th dissents, so the good verdict needs an accompanying fault.
	var judgements []state.Judgement
	for i := range validators {
		vote := i != len(validators)-1
		sig := ed25519.Sign(keys[i], judgementMsg(target, vote))
		var s oracle.Ed25519Signature
		copy(s[:], sig)
		judgements = append(judgements, state.Judgement{ValidatorIndex: state.ValidatorIndex(i), Vote: vote, Signature: s})
	}
	ext := state.DisputesExtrinsic{Verdicts: []state.Verdict{{Target: target, Judgements: judgements}}}

	records := &state.DisputesRecords{}
	_, out := Process(cfg, records, validators, ext, judgementMsg, offenseMsg)
	if out.Err != ErrNotEnoughFaults {
		t.Fatalf("err = %v, want ErrNotEnoughFaults", out.Err)
	}

	dissenter := len(validators) - 1
	faultSig := ed25519.Sign(keys[dissenter], offenseMsg(target))
	var fs oracle.Ed25519Signature
	copy(fs[:], faultSig)
	ext.Faults = []state.Fault{{Target: target, Key: validators[dissenter].Ed25519, Signature: fs}}

	records = &state.DisputesRecords{}
	_, out = Process(cfg, records, validators, ext, judgementMsg, offenseMsg)
	if out.Err != nil {
		t.Fatalf("unexpected error with fault supplied: %v", out.Err)
	}
	if !containsHash(records.Good, target) {
		t.Fatal("target not recorded as good")
	}
	if len(records.Offenders) != 1 || records.Offenders[0] != validators[dissenter].Ed25519 {
		t.Fatalf("offenders = %v, want the dissenting validator's key", records.Offenders)
	}
}

func TestProcessRejectsUnsortedVerdicts(t *testing.T) {
	cfg := config.Tiny()
	var validators state.Validators
	for i := 0; i < int(cfg.Validators); i++ {
		v, _ := genValidator(t)
		validators = append(validators, v)
	}
	ext := state.DisputesExtrinsic{
		Verdicts: []state.Verdict{
			{Target: oracle.Hash{0x02}},
			{Target: oracle.Hash{0x01}},
		},
	}
	records := &state.DisputesRecords{}
	_, out := Process(cfg, records, validators, ext, judgementMsg, offenseMsg)
	if out.Err != ErrVerdictsNotSortedUnique {
		t.Fatalf("err = %v, want ErrVerdictsNotSortedUnique", out.Err)
	}
}
