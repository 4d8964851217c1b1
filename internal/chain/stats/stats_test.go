package stats

import (
	"testing"

	"github.com/jamnode/jamcore/internal/state"
)

func newStats(n int) *state.Statistics {
	return &state.Statistics{
		Current:  make([]state.ValidatorStats, n),
		Previous: make([]state.ValidatorStats, n),
		Services: make(map[state.ServiceId]state.ServiceStats),
	}
}

func TestApplyTalliesCurrentEpoch(t *testing.T) {
	st := newStats(3)
	act := NewBlockActivity(1)
	act.TicketsBy[1] = 2
	act.PreimagesBy[0] = 1
	act.PreimageBytes[0] = 100
	act.GuaranteesBy[2] = 1
	act.AssurancesBy[1] = 1

	Apply(st, act)

	if st.Current[1].Blocks != 1 {
		t.Fatalf("author blocks = %d, want 1", st.Current[1].Blocks)
	}
	if st.Current[1].Tickets != 2 {
		t.Fatalf("tickets = %d, want 2", st.Current[1].Tickets)
	}
	if st.Current[0].Preimages != 1 || st.Current[0].PreimagesSize != 100 {
		t.Fatalf("preimage stats = %+v", st.Current[0])
	}
	if st.Current[2].Guarantees != 1 {
		t.Fatalf("guarantees = %d, want 1", st.Current[2].Guarantees)
	}
	if st.Current[1].Assurances != 1 {
		t.Fatalf("assurances = %d, want 1", st.Current[1].Assurances)
	}
}

func TestApplyIgnoresOutOfRangeIndex(t *testing.T) {
	st := newStats(1)
	act := NewBlockActivity(5) // out of range; must not panic or corrupt index 0
	Apply(st, act)
	if st.Current[0].Blocks != 0 {
		t.Fatalf("index 0 should be untouched, got %+v", st.Current[0])
	}
}

func TestRolloverEpochMovesCurrentToPrevious(t *testing.T) {
	st := newStats(2)
	st.Current[0].Blocks = 5
	RolloverEpoch(st)

	if st.Previous[0].Blocks != 5 {
		t.Fatalf("previous.Blocks = %d, want 5", st.Previous[0].Blocks)
	}
	if st.Current[0].Blocks != 0 {
		t.Fatalf("current.Blocks = %d, want 0 after reset", st.Current[0].Blocks)
	}
}

func TestRecordAccumulationAndTransfer(t *testing.T) {
	st := newStats(1)
	RecordAccumulation(st, 7, 100)
	RecordAccumulation(st, 7, 50)
	RecordTransfer(st, 7, 10)

	svc := st.Services[7]
	if svc.AccumulateCount != 2 || svc.AccumulateGas != 150 {
		t.Fatalf("service stats = %+v, want count=2 gas=150", svc)
	}
	if svc.TransferCount != 1 || svc.TransferGas != 10 {
		t.Fatalf("service stats = %+v, want transfer count=1 gas=10", svc)
	}
}
