// Package disputes processes the verdicts/culprits/faults extrinsic
// (§4.7): classifies work-report hashes as good/bad/wonky by vote count,
// validates accompanying culprit/fault evidence, and records newly
// penalized offender keys.
//
// Grounded on pkg/consensus/slashing_detector.go's equivocation-evidence
// validation shape (vote-count classification plus accompanying proof
// requirement) and finality_equivocation_detector.go's sorted-evidence
// ordering checks.
package disputes

import (
	"errors"
	"sort"

	"github.com/jamnode/jamcore/internal/config"
	"github.com/jamnode/jamcore/internal/oracle"
	"github.com/jamnode/jamcore/internal/state"
)

// Errors (§4.7, §7).
var (
	ErrAlreadyJudged          = errors.New("disputes: target already judged")
	ErrBadVoteSplit           = errors.New("disputes: positive vote count matches no valid verdict class")
	ErrVerdictsNotSortedUnique = errors.New("disputes: verdicts not sorted/unique")
	ErrJudgementsNotSortedUnique = errors.New("disputes: judgements not sorted/unique")
	ErrCulpritsNotSortedUnique = errors.New("disputes: culprits not sorted/unique")
	ErrFaultsNotSortedUnique  = errors.New("disputes: faults not sorted/unique")
	ErrNotEnoughCulprits      = errors.New("disputes: bad verdict missing required culprits")
	ErrNotEnoughFaults        = errors.New("disputes: good verdict missing required fault")
	ErrCulpritsVerdictNotBad  = errors.New("disputes: culprit targets a non-bad verdict")
	ErrFaultVerdictWrong      = errors.New("disputes: fault targets a verdict that was not good")
	ErrOffenderAlreadyReported = errors.New("disputes: offender already reported")
	ErrBadJudgementAge        = errors.New("disputes: judgement age mismatch within verdict")
	ErrBadValidatorIndex      = errors.New("disputes: validator index out of range")
	ErrBadSignature           = errors.New("disputes: signature verification failed")
)

// Output is the Ok/Err union for dispute processing (§7): on success,
// OutputDataDisputes.offenders_mark — the newly penalized keys.
type Output struct {
	OffendersMark []oracle.Ed25519PublicKey
	Err           error
}

// Process validates and applies a block's dispute extrinsic against
// records, returning the set of work-report hashes newly classified bad
// (so the caller can clear their availability assignment) and the updated
// offenders mark.
func Process(
	cfg *config.Config,
	records *state.DisputesRecords,
	validators state.Validators,
	ext state.DisputesExtrinsic,
	judgementMsg func(target oracle.Hash, vote bool) []byte,
	offenseMsg func(target oracle.Hash) []byte,
) ([]oracle.Hash, Output) {
	if err := checkSorted(ext); err != nil {
		return nil, Output{Err: err}
	}

	var newlyBad []oracle.Hash
	var goodWithDissent []oracle.Hash
	newOffenders := map[oracle.Ed25519PublicKey]bool{}

	for _, v := range ext.Verdicts {
		if isJudged(records, v.Target) {
			return nil, Output{Err: ErrAlreadyJudged}
		}
		positive := 0
		dissent := false
		for _, j := range v.Judgements {
			if int(j.ValidatorIndex) >= len(validators) {
				return nil, Output{Err: ErrBadValidatorIndex}
			}
			if !oracle.Ed25519Verify(validators[j.ValidatorIndex].Ed25519, judgementMsg(v.Target, j.Vote), j.Signature) {
				return nil, Output{Err: ErrBadSignature}
			}
			if j.Vote {
				positive++
			} else {
				dissent = true
			}
		}

		switch uint32(positive) {
		case cfg.SupermajorityThreshold():
			records.Good = insertSortedHash(records.Good, v.Target)
			if dissent {
				goodWithDissent = append(goodWithDissent, v.Target)
			}
		case 0:
			records.Bad = insertSortedHash(records.Bad, v.Target)
			newlyBad = append(newlyBad, v.Target)
		case cfg.WonkyThreshold():
			records.Wonky = insertSortedHash(records.Wonky, v.Target)
		default:
			return nil, Output{Err: ErrBadVoteSplit}
		}
	}

	culpritsByTarget := map[oracle.Hash][]state.Culprit{}
	for _, c := range ext.Culprits {
		if !records.IsBad(c.Target) {
			return nil, Output{Err: ErrCulpritsVerdictNotBad}
		}
		if !oracle.Ed25519Verify(c.Key, offenseMsg(c.Target), c.Signature) {
			return nil, Output{Err: ErrBadSignature}
		}
		culpritsByTarget[c.Target] = append(culpritsByTarget[c.Target], c)
		newOffenders[c.Key] = true
	}
	for _, target := range newlyBad {
		if len(culpritsByTarget[target]) < 2 {
			return nil, Output{Err: ErrNotEnoughCulprits}
		}
	}

	faultsByTarget := map[oracle.Hash][]state.Fault{}
	for _, f := range ext.Faults {
		if !containsHash(records.Good, f.Target) {
			return nil, Output{Err: ErrFaultVerdictWrong}
		}
		if !oracle.Ed25519Verify(f.Key, offenseMsg(f.Target), f.Signature) {
			return nil, Output{Err: ErrBadSignature}
		}
		faultsByTarget[f.Target] = append(faultsByTarget[f.Target], f)
		newOffenders[f.Key] = true
	}
	for _, target := range goodWithDissent {
		if len(faultsByTarget[target]) < 1 {
			return nil, Output{Err: ErrNotEnoughFaults}
		}
	}

	for k := range newOffenders {
		for _, existing := range records.Offenders {
			if existing == k {
				return nil, Output{Err: ErrOffenderAlreadyReported}
			}
		}
	}

	var mark []oracle.Ed25519PublicKey
	for k := range newOffenders {
		records.Offenders = insertSortedKey(records.Offenders, k)
		mark = append(mark, k)
	}
	sort.Slice(mark, func(i, j int) bool { return lessBytes32(mark[i][:], mark[j][:]) })

	return newlyBad, Output{OffendersMark: mark}
}

func checkSorted(ext state.DisputesExtrinsic) error {
	for i := 1; i < len(ext.Verdicts); i++ {
		if !lessBytes32(ext.Verdicts[i-1].Target[:], ext.Verdicts[i].Target[:]) {
			return ErrVerdictsNotSortedUnique
		}
	}
	for _, v := range ext.Verdicts {
		for i := 1; i < len(v.Judgements); i++ {
			if v.Judgements[i-1].ValidatorIndex >= v.Judgements[i].ValidatorIndex {
				return ErrJudgementsNotSortedUnique
			}
		}
	}
	for i := 1; i < len(ext.Culprits); i++ {
		if !lessBytes32(ext.Culprits[i-1].Key[:], ext.Culprits[i].Key[:]) {
			return ErrCulpritsNotSortedUnique
		}
	}
	for i := 1; i < len(ext.Faults); i++ {
		if !lessBytes32(ext.Faults[i-1].Key[:], ext.Faults[i].Key[:]) {
			return ErrFaultsNotSortedUnique
		}
	}
	return nil
}

func isJudged(r *state.DisputesRecords, h oracle.Hash) bool {
	return containsHash(r.Good, h) || containsHash(r.Bad, h) || containsHash(r.Wonky, h)
}

func containsHash(hs []oracle.Hash, h oracle.Hash) bool {
	for _, x := range hs {
		if x == h {
			return true
		}
	}
	return false
}

func insertSortedHash(hs []oracle.Hash, h oracle.Hash) []oracle.Hash {
	i := sort.Search(len(hs), func(i int) bool { return !lessBytes32(hs[i][:], h[:]) })
	out := append(hs, oracle.Hash{})
	copy(out[i+1:], out[i:])
	out[i] = h
	return out
}

func insertSortedKey(ks []oracle.Ed25519PublicKey, k oracle.Ed25519PublicKey) []oracle.Ed25519PublicKey {
	i := sort.Search(len(ks), func(i int) bool { return !lessBytes32(ks[i][:], k[:]) })
	out := append(ks, oracle.Ed25519PublicKey{})
	copy(out[i+1:], out[i:])
	out[i] = k
	return out
}

func lessBytes32(a, b []byte) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}
