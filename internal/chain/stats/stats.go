// Package stats tallies per-validator and per-service activity counters
// for the just-processed block (§4.12 step 8).
//
// Grounded on pkg/consensus/reward_calculator.go's per-validator counter
// accumulation shape.
package stats

import "github.com/jamnode/jamcore/internal/state"

// BlockActivity summarizes one block's per-validator contributions, tallied
// by the orchestrator while running the other substate processors.
type BlockActivity struct {
	Author        state.ValidatorIndex
	TicketsBy     map[state.ValidatorIndex]int
	PreimagesBy   map[state.ValidatorIndex]int
	PreimageBytes map[state.ValidatorIndex]uint64
	GuaranteesBy  map[state.ValidatorIndex]int
	AssurancesBy  map[state.ValidatorIndex]int
}

// NewBlockActivity returns an empty activity tally.
func NewBlockActivity(author state.ValidatorIndex) *BlockActivity {
	return &BlockActivity{
		Author:        author,
		TicketsBy:     make(map[state.ValidatorIndex]int),
		PreimagesBy:   make(map[state.ValidatorIndex]int),
		PreimageBytes: make(map[state.ValidatorIndex]uint64),
		GuaranteesBy:  make(map[state.ValidatorIndex]int),
		AssurancesBy:  make(map[state.ValidatorIndex]int),
	}
}

// Apply folds act into st.Current (§3 statistics: "current and previous
// epoch per-validator activity counters").
func Apply(st *state.Statistics, act *BlockActivity) {
	if int(act.Author) < len(st.Current) {
		st.Current[act.Author].Blocks++
	}
	for idx, n := range act.TicketsBy {
		if int(idx) < len(st.Current) {
			st.Current[idx].Tickets += uint32(n)
		}
	}
	for idx, n := range act.PreimagesBy {
		if int(idx) < len(st.Current) {
			st.Current[idx].Preimages += uint32(n)
		}
	}
	for idx, n := range act.PreimageBytes {
		if int(idx) < len(st.Current) {
			st.Current[idx].PreimagesSize += n
		}
	}
	for idx, n := range act.GuaranteesBy {
		if int(idx) < len(st.Current) {
			st.Current[idx].Guarantees += uint32(n)
		}
	}
	for idx, n := range act.AssurancesBy {
		if int(idx) < len(st.Current) {
			st.Current[idx].Assurances += uint32(n)
		}
	}
}

// RolloverEpoch moves Current into Previous and resets Current, called at
// an epoch boundary before the new epoch's activity accrues.
func RolloverEpoch(st *state.Statistics) {
	st.Previous = st.Current
	st.Current = make([]state.ValidatorStats, len(st.Current))
}

// RecordAccumulation tallies one service's accumulation gas usage.
func RecordAccumulation(st *state.Statistics, svc state.ServiceId, gasUsed uint64) {
	s := st.Services[svc]
	s.AccumulateCount++
	s.AccumulateGas += gasUsed
	st.Services[svc] = s
}

// RecordTransfer tallies one service's transfer gas usage.
func RecordTransfer(st *state.Statistics, svc state.ServiceId, gasUsed uint64) {
	s := st.Services[svc]
	s.TransferCount++
	s.TransferGas += gasUsed
	st.Services[svc] = s
}
