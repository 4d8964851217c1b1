package accumulate

import (
	"testing"

	"github.com/jamnode/jamcore/internal/config"
	"github.com/jamnode/jamcore/internal/oracle"
	"github.com/jamnode/jamcore/internal/state"
)

// emptyProgram returns the prefix-framed encoding of a zero-instruction PVM
// program (§4.3): no jump table, no code, no bitmask bytes. Such a program
// halts immediately at pc 0 without spending any gas.
func emptyProgram() []byte {
	return []byte{0, 0, 0} // jump_table_size=0, jump_opcode_width=0, code_size=0
}

func newTestState(cfg *config.Config) *state.State {
	st := state.New(cfg)
	st.Services = map[state.ServiceId]*state.Account{}
	st.Privileges = &state.Privileges{}
	return st
}

func TestProcessInvokesServiceAndRecordsOutput(t *testing.T) {
	cfg := config.Tiny()
	st := newTestState(cfg)

	acc := state.NewAccount()
	code := emptyProgram()
	acc.CodeHash = oracle.Blake2b256(code)
	acc.Preimages[acc.CodeHash] = code
	acc.AccMinGas = 100
	st.Services[1] = acc

	report := &state.WorkReport{
		PackageHash: oracle.Hash{0x01},
		Results: []state.WorkResult{
			{ServiceId: 1, CodeHash: acc.CodeHash, Gas: 1000},
		},
	}

	out := Process(cfg, st, []*state.WorkReport{report}, nil, 7)

	if len(out.AccumulatedHashes) != 1 || out.AccumulatedHashes[0] != report.PackageHash {
		t.Fatalf("accumulated hashes = %v, want [%x]", out.AccumulatedHashes, report.PackageHash)
	}
	if out.GasUsed[1] != 0 {
		t.Fatalf("gas used = %d, want 0 for an immediately-halting program", out.GasUsed[1])
	}
	if len(out.Carried) != 0 {
		t.Fatalf("carried = %v, want none (no unresolved dependencies)", out.Carried)
	}
}

func TestProcessCarriesReportWithUnresolvedDependency(t *testing.T) {
	cfg := config.Tiny()
	st := newTestState(cfg)

	acc := state.NewAccount()
	code := emptyProgram()
	acc.CodeHash = oracle.Blake2b256(code)
	acc.Preimages[acc.CodeHash] = code
	st.Services[1] = acc

	missingDep := oracle.Hash{0xFF}
	report := &state.WorkReport{
		PackageHash: oracle.Hash{0x02},
		Context:     state.RefineContext{Prerequisites: []oracle.Hash{missingDep}},
		Results:     []state.WorkResult{{ServiceId: 1, CodeHash: acc.CodeHash, Gas: 1000}},
	}

	out := Process(cfg, st, []*state.WorkReport{report}, nil, 7)

	if len(out.AccumulatedHashes) != 0 {
		t.Fatalf("accumulated hashes = %v, want none (dependency unresolved)", out.AccumulatedHashes)
	}
	if len(out.Carried) != 1 || out.Carried[0].Report.PackageHash != report.PackageHash {
		t.Fatalf("carried = %v, want [%x] carried forward", out.Carried, report.PackageHash)
	}
	if len(out.Carried[0].Dependencies) != 1 || out.Carried[0].Dependencies[0] != missingDep {
		t.Fatalf("carried dependencies = %v, want [%x]", out.Carried[0].Dependencies, missingDep)
	}
}

func TestProcessResolvesDependencyFromAccumulationHistory(t *testing.T) {
	cfg := config.Tiny()
	st := newTestState(cfg)

	acc := state.NewAccount()
	code := emptyProgram()
	acc.CodeHash = oracle.Blake2b256(code)
	acc.Preimages[acc.CodeHash] = code
	st.Services[1] = acc

	dep := oracle.Hash{0xAB}
	st.AccumulationHistory = state.AccumulationHistory{{dep}}

	report := &state.WorkReport{
		PackageHash: oracle.Hash{0x03},
		Context:     state.RefineContext{Prerequisites: []oracle.Hash{dep}},
		Results:     []state.WorkResult{{ServiceId: 1, CodeHash: acc.CodeHash, Gas: 1000}},
	}

	out := Process(cfg, st, []*state.WorkReport{report}, nil, 7)
	if len(out.AccumulatedHashes) != 1 {
		t.Fatalf("accumulated hashes = %v, want one report (dependency already in history)", out.AccumulatedHashes)
	}
}
