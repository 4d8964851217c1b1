package report

import (
	"github.com/jamnode/jamcore/internal/config"
	"github.com/jamnode/jamcore/internal/oracle"
	"github.com/jamnode/jamcore/internal/state"
)

// RotationWindow returns the index of the ROTATION_PERIOD-sized window slot
// falls into within its epoch.
func RotationWindow(cfg *config.Config, slot uint32) uint32 {
	return cfg.SlotInEpoch(slot) / cfg.RotationPeriod
}

// shuffle returns a deterministic Fisher-Yates permutation of [0, n) seeded
// by seed and window, following the §9 open-question resolution: "expected
// guarantors per core are derived by a shuffle of the validator set seeded
// by η₂, then sliced per core and rotation window."
func shuffle(seed oracle.Hash, window uint32, n int) []int {
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	for i := n - 1; i > 0; i-- {
		h := oracle.Blake2b256(seed[:], encodeU32(window), encodeU32(uint32(i)))
		j := int(firstU32(h) % uint32(i+1))
		perm[i], perm[j] = perm[j], perm[i]
	}
	return perm
}

func encodeU32(v uint32) []byte {
	return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}

func firstU32(h oracle.Hash) uint32 {
	return uint32(h[0]) | uint32(h[1])<<8 | uint32(h[2])<<16 | uint32(h[3])<<24
}

// ExpectedGuarantors returns the validator indices assigned to guarantee
// reports for core within the rotation window slot falls in: the shuffled
// permutation sliced round-robin by core (§4.8, §9).
func ExpectedGuarantors(cfg *config.Config, seed oracle.Hash, validatorCount int, core uint16, slot uint32) []state.ValidatorIndex {
	window := RotationWindow(cfg, slot)
	perm := shuffle(seed, window, validatorCount)
	var out []state.ValidatorIndex
	for i, v := range perm {
		if uint32(i)%cfg.Cores == uint32(core) {
			out = append(out, state.ValidatorIndex(v))
		}
	}
	return out
}

// containsValidatorIndex reports whether idx is present in the expected-guarantor set.
func containsValidatorIndex(set []state.ValidatorIndex, idx state.ValidatorIndex) bool {
	for _, v := range set {
		if v == idx {
			return true
		}
	}
	return false
}
