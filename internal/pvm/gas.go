package pvm

// GasMeter is the PVM's signed 64-bit gas counter. Gas goes negative on
// exhaustion rather than saturating, matching §4.3's "signed 64-bit gas
// meter" wording; Step returns an OutOfGas exit, without executing the
// instruction, as soon as that instruction's debit drives the balance
// negative.
//
// Grounded on the per-opcode gas debit in the teacher's eWASM interpreter
// (pkg/core/vm/ewasm_interpreter.go useGas calls) and gas table shape
// (pkg/core/vm/gas_table.go), generalized from WASM opcodes to PVM opcodes.
type GasMeter struct {
	remaining int64
}

// NewGasMeter starts a meter with the given allowance.
func NewGasMeter(limit int64) *GasMeter { return &GasMeter{remaining: limit} }

// Remaining returns the current balance, which may be negative.
func (g *GasMeter) Remaining() int64 { return g.remaining }

// Charge debits cost, returning false if the balance is negative after the
// debit.
func (g *GasMeter) Charge(cost int64) bool {
	g.remaining -= cost
	return g.remaining >= 0
}

// baseCost is the flat per-instruction gas charge; individual instructions
// may add to this via extraCost.
const baseCost int64 = 1
