package pvm

import (
	"math/bits"

	"github.com/holiman/uint256"
)

// HostCallFunc is invoked on ECALLI; it may mutate Registers/Memory and
// returns an exit reason overriding Continue when it wants to stop the
// machine (e.g. a trap raised from inside a host call).
type HostCallFunc func(m *Machine, call uint64) *ExitReason

// Machine is one PVM instance: a program, its register file, memory image,
// gas meter, and program counter.
//
// The fetch-decode-execute loop below is grounded on the teacher's eWASM
// interpreter loop (pkg/core/vm/ewasm_interpreter.go: `for { op := fetch();
// useGas(cost); switch op { ... } }`), generalized from a WASM opcode switch
// to a jump-table-of-closures dispatch in the style of
// pkg/core/vm/jump_table.go's `[256]*operation` array.
type Machine struct {
	Program *Program
	Regs    Registers
	Mem     *Memory
	Gas     *GasMeter
	PC      uint64

	HostCall HostCallFunc
}

// NewMachine constructs a machine ready to run prog from pc 0.
func NewMachine(prog *Program, mem *Memory, gasLimit int64) *Machine {
	return &Machine{
		Program: prog,
		Mem:     mem,
		Gas:     NewGasMeter(gasLimit),
	}
}

type operation struct {
	cost    int64
	execute func(m *Machine, args []byte) *ExitReason
}

var opTable [256]*operation

func reg(op operation) *operation { return &op }

// Run steps the machine until it halts, panics, faults, exhausts gas, or
// hits a host call, returning the terminal exit reason.
func (m *Machine) Run() *ExitReason {
	for {
		if r := m.Step(); r.Kind != Continue {
			return r
		}
	}
}

// Step executes a single instruction. On Continue it has already advanced
// PC to the next instruction boundary.
func (m *Machine) Step() *ExitReason {
	if m.PC >= uint64(len(m.Program.Code)) {
		return haltExit()
	}
	opcode := m.Program.Code[m.PC]
	entry := opTable[opcode]
	if entry == nil {
		return panicExit()
	}
	if !m.Gas.Charge(entry.cost) {
		return outOfGasExit()
	}
	skip := m.Program.skipDistance(m.PC)
	args := m.Program.Code[m.PC+1 : m.PC+1+uint64(skip)]
	prePC := m.PC
	next := m.PC + 1 + uint64(skip)

	r := entry.execute(m, args)
	if r.Kind == Continue && m.PC == prePC {
		m.PC = next
	}
	return r
}

// --- operand decoding helpers ---
//
// The canonical ISA fixes only a three-register example (§8 scenario F:
// ADD_64 args = (regB<<4)|regA, regD). Every other instruction's operand
// layout below generalizes that nibble-packed register convention plus
// fixed-width little-endian immediates/offsets sized to fit the category,
// in the byte-oriented style polkavm's variable-length operand encoding
// uses.

func twoRegOneDest(args []byte) (a, b, d byte) {
	if len(args) < 2 {
		return 0, 0, 0
	}
	a = args[0] & 0x0F
	b = (args[0] >> 4) & 0x0F
	d = args[1]
	return
}

func srcDst(args []byte) (src, dst byte) {
	if len(args) < 2 {
		return 0, 0
	}
	return args[0], args[1]
}

func leI32(b []byte) int32 {
	var v uint32
	for i := 0; i < len(b) && i < 4; i++ {
		v |= uint32(b[i]) << uint(8*i)
	}
	return int32(v)
}

func leU32(b []byte) uint32 { return uint32(leI32(b)) }

func leI64(b []byte) int64 {
	var v uint64
	for i := 0; i < len(b) && i < 8; i++ {
		v |= uint64(b[i]) << uint(8*i)
	}
	return int64(v)
}

func leU64(b []byte) uint64 { return uint64(leI64(b)) }

// signExtendVar sign-extends a little-endian immediate of len(b) bytes
// (0..8) to 64 bits, per the variable immediate-width convention used
// elsewhere in the ISA (e.g. LOAD_IMM).
func signExtendVar(b []byte) int64 {
	if len(b) == 0 {
		return 0
	}
	var v uint64
	for i, c := range b {
		v |= uint64(c) << uint(8*i)
	}
	shift := uint(64 - 8*len(b))
	return int64(v<<shift) >> shift
}

func init() {
	opTable[opTrap] = reg(operation{cost: baseCost, execute: execTrap})
	opTable[opFallthrough] = reg(operation{cost: baseCost, execute: execFallthrough})
	opTable[opEcalli] = reg(operation{cost: baseCost, execute: execEcalli})

	opTable[opLoadImm64] = reg(operation{cost: baseCost, execute: execLoadImm64})

	opTable[opStoreImmU8] = reg(operation{cost: baseCost, execute: storeImmFunc(1)})
	opTable[opStoreImmU16] = reg(operation{cost: baseCost, execute: storeImmFunc(2)})
	opTable[opStoreImmU32] = reg(operation{cost: baseCost, execute: storeImmFunc(4)})
	opTable[opStoreImmU64] = reg(operation{cost: baseCost, execute: storeImmFunc(8)})

	opTable[opJump] = reg(operation{cost: baseCost, execute: execJump})
	opTable[opJumpInd] = reg(operation{cost: baseCost, execute: execJumpInd})
	opTable[opLoadImm] = reg(operation{cost: baseCost, execute: execLoadImm})

	opTable[opLoadU8] = reg(operation{cost: baseCost, execute: loadAbsFunc(1, false)})
	opTable[opLoadI8] = reg(operation{cost: baseCost, execute: loadAbsFunc(1, true)})
	opTable[opLoadU16] = reg(operation{cost: baseCost, execute: loadAbsFunc(2, false)})
	opTable[opLoadI16] = reg(operation{cost: baseCost, execute: loadAbsFunc(2, true)})
	opTable[opLoadU32] = reg(operation{cost: baseCost, execute: loadAbsFunc(4, false)})
	opTable[opLoadI32] = reg(operation{cost: baseCost, execute: loadAbsFunc(4, true)})
	opTable[opLoadU64] = reg(operation{cost: baseCost, execute: loadAbsFunc(8, false)})

	opTable[opStoreU8] = reg(operation{cost: baseCost, execute: storeAbsFunc(1)})
	opTable[opStoreU16] = reg(operation{cost: baseCost, execute: storeAbsFunc(2)})
	opTable[opStoreU32] = reg(operation{cost: baseCost, execute: storeAbsFunc(4)})
	opTable[opStoreU64] = reg(operation{cost: baseCost, execute: storeAbsFunc(8)})

	opTable[opStoreImmIndU8] = reg(operation{cost: baseCost, execute: storeImmIndFunc(1)})
	opTable[opStoreImmIndU16] = reg(operation{cost: baseCost, execute: storeImmIndFunc(2)})
	opTable[opStoreImmIndU32] = reg(operation{cost: baseCost, execute: storeImmIndFunc(4)})
	opTable[opStoreImmIndU64] = reg(operation{cost: baseCost, execute: storeImmIndFunc(8)})

	opTable[opLoadImmJump] = reg(operation{cost: baseCost, execute: execLoadImmJump})

	branchImm := map[byte]func(int64, int64) bool{
		opBranchEqImm:  func(a, b int64) bool { return a == b },
		opBranchNeImm:  func(a, b int64) bool { return a != b },
		opBranchLtUImm: func(a, b int64) bool { return uint64(a) < uint64(b) },
		opBranchLeUImm: func(a, b int64) bool { return uint64(a) <= uint64(b) },
		opBranchGeUImm: func(a, b int64) bool { return uint64(a) >= uint64(b) },
		opBranchGtUImm: func(a, b int64) bool { return uint64(a) > uint64(b) },
		opBranchLtSImm: func(a, b int64) bool { return a < b },
		opBranchLeSImm: func(a, b int64) bool { return a <= b },
		opBranchGeSImm: func(a, b int64) bool { return a >= b },
		opBranchGtSImm: func(a, b int64) bool { return a > b },
	}
	for op, cmp := range branchImm {
		opTable[op] = reg(operation{cost: baseCost, execute: branchImmFunc(cmp)})
	}

	opTable[opMoveReg] = reg(operation{cost: baseCost, execute: execMoveReg})
	opTable[opSbrk] = reg(operation{cost: baseCost, execute: execSbrk})

	opTable[opCountSetBits64] = reg(operation{cost: baseCost, execute: unaryFunc(func(v uint64) uint64 { return uint64(bits.OnesCount64(v)) })})
	opTable[opCountSetBits32] = reg(operation{cost: baseCost, execute: unaryFunc32(func(v uint32) uint32 { return uint32(bits.OnesCount32(v)) })})
	opTable[opLeadingZeroBits64] = reg(operation{cost: baseCost, execute: unaryFunc(func(v uint64) uint64 { return uint64(bits.LeadingZeros64(v)) })})
	opTable[opLeadingZeroBits32] = reg(operation{cost: baseCost, execute: unaryFunc32(func(v uint32) uint32 { return uint32(bits.LeadingZeros32(v)) })})
	opTable[opTrailingZeroBits64] = reg(operation{cost: baseCost, execute: unaryFunc(func(v uint64) uint64 { return uint64(bits.TrailingZeros64(v)) })})
	opTable[opTrailingZeroBits32] = reg(operation{cost: baseCost, execute: unaryFunc32(func(v uint32) uint32 { return uint32(bits.TrailingZeros32(v)) })})
	opTable[opSignExtend8] = reg(operation{cost: baseCost, execute: unaryFunc(func(v uint64) uint64 { return uint64(int64(int8(v))) })})
	opTable[opSignExtend16] = reg(operation{cost: baseCost, execute: unaryFunc(func(v uint64) uint64 { return uint64(int64(int16(v))) })})
	opTable[opZeroExtend16] = reg(operation{cost: baseCost, execute: unaryFunc(func(v uint64) uint64 { return uint64(uint16(v)) })})
	opTable[opReverseBytes] = reg(operation{cost: baseCost, execute: unaryFunc(func(v uint64) uint64 { return bits.ReverseBytes64(v) })})

	opTable[opStoreIndU8] = reg(operation{cost: baseCost, execute: storeIndFunc(1)})
	opTable[opStoreIndU16] = reg(operation{cost: baseCost, execute: storeIndFunc(2)})
	opTable[opStoreIndU32] = reg(operation{cost: baseCost, execute: storeIndFunc(4)})
	opTable[opStoreIndU64] = reg(operation{cost: baseCost, execute: storeIndFunc(8)})
	opTable[opLoadIndU8] = reg(operation{cost: baseCost, execute: loadIndFunc(1, false)})
	opTable[opLoadIndI8] = reg(operation{cost: baseCost, execute: loadIndFunc(1, true)})
	opTable[opLoadIndU16] = reg(operation{cost: baseCost, execute: loadIndFunc(2, false)})
	opTable[opLoadIndI16] = reg(operation{cost: baseCost, execute: loadIndFunc(2, true)})
	opTable[opLoadIndU32] = reg(operation{cost: baseCost, execute: loadIndFunc(4, false)})
	opTable[opLoadIndI32] = reg(operation{cost: baseCost, execute: loadIndFunc(4, true)})
	opTable[opLoadIndU64] = reg(operation{cost: baseCost, execute: loadIndFunc(8, false)})

	opTable[opAddImm32] = reg(operation{cost: baseCost, execute: immArith32(func(a, b int32) int32 { return a + b })})
	opTable[opAndImm] = reg(operation{cost: baseCost, execute: immArith64(func(a, b int64) int64 { return a & b })})
	opTable[opXorImm] = reg(operation{cost: baseCost, execute: immArith64(func(a, b int64) int64 { return a ^ b })})
	opTable[opOrImm] = reg(operation{cost: baseCost, execute: immArith64(func(a, b int64) int64 { return a | b })})
	opTable[opMulImm32] = reg(operation{cost: baseCost, execute: immArith32(func(a, b int32) int32 { return a * b })})
	opTable[opSetLtUImm] = reg(operation{cost: baseCost, execute: immArith64(func(a, b int64) int64 { return boolI64(uint64(a) < uint64(b)) })})
	opTable[opSetLtSImm] = reg(operation{cost: baseCost, execute: immArith64(func(a, b int64) int64 { return boolI64(a < b) })})
	opTable[opSetGtUImm] = reg(operation{cost: baseCost, execute: immArith64(func(a, b int64) int64 { return boolI64(uint64(a) > uint64(b)) })})
	opTable[opSetGtSImm] = reg(operation{cost: baseCost, execute: immArith64(func(a, b int64) int64 { return boolI64(a > b) })})
	opTable[opShloLImm32] = reg(operation{cost: baseCost, execute: immArith32(func(a, b int32) int32 { return a << uint(b&31) })})
	opTable[opShloRImm32] = reg(operation{cost: baseCost, execute: immArith32(func(a, b int32) int32 { return int32(uint32(a) >> uint(b&31)) })})
	opTable[opSharRImm32] = reg(operation{cost: baseCost, execute: immArith32(func(a, b int32) int32 { return a >> uint(b&31) })})
	opTable[opNegAddImm32] = reg(operation{cost: baseCost, execute: immArith32(func(a, b int32) int32 { return b - a })})
	opTable[opShloLImmAlt32] = reg(operation{cost: baseCost, execute: immArith32(func(a, b int32) int32 { return b << uint(a&31) })})
	opTable[opShloRImmAlt32] = reg(operation{cost: baseCost, execute: immArith32(func(a, b int32) int32 { return int32(uint32(b) >> uint(a&31)) })})
	opTable[opSharRImmAlt32] = reg(operation{cost: baseCost, execute: immArith32(func(a, b int32) int32 { return b >> uint(a&31) })})
	opTable[opCmovIzImm] = reg(operation{cost: baseCost, execute: execCmovIzImm})
	opTable[opCmovNzImm] = reg(operation{cost: baseCost, execute: execCmovNzImm})
	opTable[opAddImm64] = reg(operation{cost: baseCost, execute: immArith64(func(a, b int64) int64 { return a + b })})
	opTable[opMulImm64] = reg(operation{cost: baseCost, execute: immArith64(func(a, b int64) int64 { return a * b })})
	opTable[opShloLImm64] = reg(operation{cost: baseCost, execute: immArith64(func(a, b int64) int64 { return a << uint(b&63) })})
	opTable[opShloRImm64] = reg(operation{cost: baseCost, execute: immArith64(func(a, b int64) int64 { return int64(uint64(a) >> uint(b&63)) })})
	opTable[opSharRImm64] = reg(operation{cost: baseCost, execute: immArith64(func(a, b int64) int64 { return a >> uint(b&63) })})
	opTable[opNegAddImm64] = reg(operation{cost: baseCost, execute: immArith64(func(a, b int64) int64 { return b - a })})
	opTable[opShloLImmAlt64] = reg(operation{cost: baseCost, execute: immArith64(func(a, b int64) int64 { return b << uint(a&63) })})
	opTable[opShloRImmAlt64] = reg(operation{cost: baseCost, execute: immArith64(func(a, b int64) int64 { return int64(uint64(b) >> uint(a&63)) })})
	opTable[opSharRImmAlt64] = reg(operation{cost: baseCost, execute: immArith64(func(a, b int64) int64 { return b >> uint(a&63) })})
	opTable[opRotRImm32] = reg(operation{cost: baseCost, execute: immArith32(func(a, b int32) int32 { return int32(bits.RotateLeft32(uint32(a), -int(b&31))) })})
	opTable[opRotRImm64] = reg(operation{cost: baseCost, execute: immArith64(func(a, b int64) int64 { return int64(bits.RotateLeft64(uint64(a), -int(b&63))) })})
	opTable[opRotRImmAlt32] = reg(operation{cost: baseCost, execute: immArith32(func(a, b int32) int32 { return int32(bits.RotateLeft32(uint32(b), -int(a&31))) })})
	opTable[opRotRImmAlt64] = reg(operation{cost: baseCost, execute: immArith64(func(a, b int64) int64 { return int64(bits.RotateLeft64(uint64(b), -int(a&63))) })})

	regBranch := map[byte]func(int64, int64) bool{
		opBranchEq:  func(a, b int64) bool { return a == b },
		opBranchNe:  func(a, b int64) bool { return a != b },
		opBranchLtU: func(a, b int64) bool { return uint64(a) < uint64(b) },
		opBranchLtS: func(a, b int64) bool { return a < b },
		opBranchGeU: func(a, b int64) bool { return uint64(a) >= uint64(b) },
		opBranchGeS: func(a, b int64) bool { return a >= b },
	}
	for op, cmp := range regBranch {
		opTable[op] = reg(operation{cost: baseCost, execute: branchRegFunc(cmp)})
	}

	opTable[opLoadImmJumpInd] = reg(operation{cost: baseCost, execute: execLoadImmJumpInd})

	opTable[opAdd32] = reg(operation{cost: baseCost, execute: regArith32(func(a, b int32) int32 { return a + b })})
	opTable[opSub32] = reg(operation{cost: baseCost, execute: regArith32(func(a, b int32) int32 { return a - b })})
	opTable[opMul32] = reg(operation{cost: baseCost, execute: regArith32(func(a, b int32) int32 { return a * b })})
	opTable[opDivU32] = reg(operation{cost: baseCost, execute: regArith32(divU32)})
	opTable[opDivS32] = reg(operation{cost: baseCost, execute: regArith32(divS32)})
	opTable[opRemU32] = reg(operation{cost: baseCost, execute: regArith32(remU32)})
	opTable[opRemS32] = reg(operation{cost: baseCost, execute: regArith32(remS32)})
	opTable[opShloL32] = reg(operation{cost: baseCost, execute: regArith32(func(a, b int32) int32 { return a << uint(b&31) })})
	opTable[opShloR32] = reg(operation{cost: baseCost, execute: regArith32(func(a, b int32) int32 { return int32(uint32(a) >> uint(b&31)) })})
	opTable[opSharR32] = reg(operation{cost: baseCost, execute: regArith32(func(a, b int32) int32 { return a >> uint(b&31) })})

	opTable[opAdd64] = reg(operation{cost: baseCost, execute: regArith64(func(a, b int64) int64 { return a + b })})
	opTable[opSub64] = reg(operation{cost: baseCost, execute: regArith64(func(a, b int64) int64 { return a - b })})
	opTable[opMul64] = reg(operation{cost: baseCost, execute: regArith64(func(a, b int64) int64 { return a * b })})
	opTable[opDivU64] = reg(operation{cost: baseCost, execute: regArith64(divU64)})
	opTable[opDivS64] = reg(operation{cost: baseCost, execute: regArith64(divS64)})
	opTable[opRemU64] = reg(operation{cost: baseCost, execute: regArith64(remU64)})
	opTable[opRemS64] = reg(operation{cost: baseCost, execute: regArith64(remS64)})
	opTable[opShloL64] = reg(operation{cost: baseCost, execute: regArith64(func(a, b int64) int64 { return a << uint(b&63) })})
	opTable[opShloR64] = reg(operation{cost: baseCost, execute: regArith64(func(a, b int64) int64 { return int64(uint64(a) >> uint(b&63)) })})
	opTable[opSharR64] = reg(operation{cost: baseCost, execute: regArith64(func(a, b int64) int64 { return a >> uint(b&63) })})

	opTable[opAnd] = reg(operation{cost: baseCost, execute: regArith64(func(a, b int64) int64 { return a & b })})
	opTable[opXor] = reg(operation{cost: baseCost, execute: regArith64(func(a, b int64) int64 { return a ^ b })})
	opTable[opOr] = reg(operation{cost: baseCost, execute: regArith64(func(a, b int64) int64 { return a | b })})
	opTable[opAndInv] = reg(operation{cost: baseCost, execute: regArith64(func(a, b int64) int64 { return a &^ b })})
	opTable[opOrInv] = reg(operation{cost: baseCost, execute: regArith64(func(a, b int64) int64 { return a | ^b })})
	opTable[opXnor] = reg(operation{cost: baseCost, execute: regArith64(func(a, b int64) int64 { return ^(a ^ b) })})

	opTable[opMulUpperUU] = reg(operation{cost: baseCost, execute: execMulUpperUU})
	opTable[opMulUpperSS] = reg(operation{cost: baseCost, execute: execMulUpperSS})
	opTable[opMulUpperSU] = reg(operation{cost: baseCost, execute: execMulUpperSU})

	opTable[opSetLtU] = reg(operation{cost: baseCost, execute: regArith64(func(a, b int64) int64 { return boolI64(uint64(a) < uint64(b)) })})
	opTable[opSetLtS] = reg(operation{cost: baseCost, execute: regArith64(func(a, b int64) int64 { return boolI64(a < b) })})

	opTable[opCmovIz] = reg(operation{cost: baseCost, execute: execCmovIzReg})
	opTable[opCmovNz] = reg(operation{cost: baseCost, execute: execCmovNzReg})

	opTable[opRotL32] = reg(operation{cost: baseCost, execute: regArith32(func(a, b int32) int32 { return int32(bits.RotateLeft32(uint32(a), int(b&31))) })})
	opTable[opRotL64] = reg(operation{cost: baseCost, execute: regArith64(func(a, b int64) int64 { return int64(bits.RotateLeft64(uint64(a), int(b&63))) })})
	opTable[opRotR32] = reg(operation{cost: baseCost, execute: regArith32(func(a, b int32) int32 { return int32(bits.RotateLeft32(uint32(a), -int(b&31))) })})
	opTable[opRotR64] = reg(operation{cost: baseCost, execute: regArith64(func(a, b int64) int64 { return int64(bits.RotateLeft64(uint64(a), -int(b&63))) })})

	opTable[opMinU] = reg(operation{cost: baseCost, execute: regArith64(func(a, b int64) int64 {
		if uint64(a) < uint64(b) {
			return a
		}
		return b
	})})
	opTable[opMinS] = reg(operation{cost: baseCost, execute: regArith64(func(a, b int64) int64 {
		if a < b {
			return a
		}
		return b
	})})
	opTable[opMaxU] = reg(operation{cost: baseCost, execute: regArith64(func(a, b int64) int64 {
		if uint64(a) > uint64(b) {
			return a
		}
		return b
	})})
	opTable[opMaxS] = reg(operation{cost: baseCost, execute: regArith64(func(a, b int64) int64 {
		if a > b {
			return a
		}
		return b
	})})
}

func boolI64(v bool) int64 {
	if v {
		return 1
	}
	return 0
}

func divU32(a, b int32) int32 {
	if b == 0 {
		return -1
	}
	return int32(uint32(a) / uint32(b))
}
func remU32(a, b int32) int32 {
	if b == 0 {
		return a
	}
	return int32(uint32(a) % uint32(b))
}
func divS32(a, b int32) int32 {
	if b == 0 {
		return -1
	}
	if a == -1<<31 && b == -1 {
		return a
	}
	return a / b
}
func remS32(a, b int32) int32 {
	if b == 0 {
		return a
	}
	if a == -1<<31 && b == -1 {
		return 0
	}
	return a % b
}

func divU64(a, b int64) int64 {
	if b == 0 {
		return -1
	}
	return int64(uint64(a) / uint64(b))
}
func remU64(a, b int64) int64 {
	if b == 0 {
		return a
	}
	return int64(uint64(a) % uint64(b))
}
func divS64(a, b int64) int64 {
	if b == 0 {
		return -1
	}
	if a == -1<<63 && b == -1 {
		return a
	}
	return a / b
}
func remS64(a, b int64) int64 {
	if b == 0 {
		return a
	}
	if a == -1<<63 && b == -1 {
		return 0
	}
	return a % b
}

// --- execute functions ---

func execTrap(m *Machine, args []byte) *ExitReason { return panicExit() }

func execFallthrough(m *Machine, args []byte) *ExitReason { return &ExitReason{Kind: Continue} }

func execEcalli(m *Machine, args []byte) *ExitReason {
	call, _, err := decodeUnsignedArg(args)
	if err != nil {
		return panicExit()
	}
	if m.HostCall == nil {
		return hostCallExit(call)
	}
	if r := m.HostCall(m, call); r != nil && r.Kind != Continue {
		return r
	}
	return &ExitReason{Kind: Continue}
}

func decodeUnsignedArg(b []byte) (uint64, int, error) {
	var v uint64
	for i, c := range b {
		v |= uint64(c) << uint(8*i)
	}
	return v, len(b), nil
}

func execLoadImm64(m *Machine, args []byte) *ExitReason {
	if len(args) < 9 {
		return panicExit()
	}
	d := args[0]
	m.Regs.set(d, leU64(args[1:9]))
	return &ExitReason{Kind: Continue}
}

func storeImmFunc(width int) func(*Machine, []byte) *ExitReason {
	return func(m *Machine, args []byte) *ExitReason {
		if len(args) < 4+width {
			return panicExit()
		}
		addr := leU32(args[0:4])
		val := args[4 : 4+width]
		return storeOrContinue(m, addr, val)
	}
}

func storeOrContinue(m *Machine, addr uint32, val []byte) *ExitReason {
	if r := m.Mem.Store(addr, val); r != nil {
		return r
	}
	return &ExitReason{Kind: Continue}
}

func execJump(m *Machine, args []byte) *ExitReason {
	off := signExtendVar(args)
	target := int64(m.PC) + off
	if target < 0 || !m.Program.isInstructionStart(uint64(target)) {
		return panicExit()
	}
	m.PC = uint64(target)
	return &ExitReason{Kind: Continue}
}

func execJumpInd(m *Machine, args []byte) *ExitReason {
	if len(args) < 1 {
		return panicExit()
	}
	a := args[0] & 0x0F
	off := leI32(args[1:])
	target := int64(m.Regs.get(a)) + int64(off)
	if target < 0 || !m.Program.isInstructionStart(uint64(target)) {
		return panicExit()
	}
	m.PC = uint64(target)
	return &ExitReason{Kind: Continue}
}

func execLoadImm(m *Machine, args []byte) *ExitReason {
	if len(args) < 1 {
		return panicExit()
	}
	d := args[0]
	m.Regs.set(d, uint64(signExtendVar(args[1:])))
	return &ExitReason{Kind: Continue}
}

func loadAbsFunc(width int, signed bool) func(*Machine, []byte) *ExitReason {
	return func(m *Machine, args []byte) *ExitReason {
		if len(args) < 5 {
			return panicExit()
		}
		d := args[0]
		addr := leU32(args[1:5])
		b, r := m.Mem.Load(addr, uint32(width))
		if r != nil {
			return r
		}
		m.Regs.set(d, extend(b, signed))
		return &ExitReason{Kind: Continue}
	}
}

func storeAbsFunc(width int) func(*Machine, []byte) *ExitReason {
	return func(m *Machine, args []byte) *ExitReason {
		if len(args) < 5 {
			return panicExit()
		}
		a := args[0]
		addr := leU32(args[1:5])
		val := make([]byte, width)
		v := m.Regs.get(a)
		for i := 0; i < width; i++ {
			val[i] = byte(v >> uint(8*i))
		}
		return storeOrContinue(m, addr, val)
	}
}

func storeImmIndFunc(width int) func(*Machine, []byte) *ExitReason {
	return func(m *Machine, args []byte) *ExitReason {
		if len(args) < 5+width {
			return panicExit()
		}
		base := args[0] & 0x0F
		off := leI32(args[1:5])
		addr := uint32(int64(m.Regs.get(base)) + int64(off))
		return storeOrContinue(m, addr, args[5:5+width])
	}
}

func execLoadImmJump(m *Machine, args []byte) *ExitReason {
	if len(args) < 13 {
		return panicExit()
	}
	d := args[0]
	m.Regs.set(d, leU64(args[1:9]))
	off := leI32(args[9:13])
	target := int64(m.PC) + int64(off)
	if target < 0 || !m.Program.isInstructionStart(uint64(target)) {
		return panicExit()
	}
	m.PC = uint64(target)
	return &ExitReason{Kind: Continue}
}

func branchImmFunc(cmp func(int64, int64) bool) func(*Machine, []byte) *ExitReason {
	return func(m *Machine, args []byte) *ExitReason {
		if len(args) < 9 {
			return panicExit()
		}
		a := args[0] & 0x0F
		imm := leI32(args[1:5])
		off := leI32(args[5:9])
		if !cmp(m.Regs.getSigned(a), int64(imm)) {
			return &ExitReason{Kind: Continue}
		}
		target := int64(m.PC) + int64(off)
		if target < 0 || !m.Program.isInstructionStart(uint64(target)) {
			return panicExit()
		}
		m.PC = uint64(target)
		return &ExitReason{Kind: Continue}
	}
}

func branchRegFunc(cmp func(int64, int64) bool) func(*Machine, []byte) *ExitReason {
	return func(m *Machine, args []byte) *ExitReason {
		if len(args) < 5 {
			return panicExit()
		}
		a, b, _ := twoRegOneDest(args)
		off := leI32(args[1:5])
		if !cmp(m.Regs.getSigned(a), m.Regs.getSigned(b)) {
			return &ExitReason{Kind: Continue}
		}
		target := int64(m.PC) + int64(off)
		if target < 0 || !m.Program.isInstructionStart(uint64(target)) {
			return panicExit()
		}
		m.PC = uint64(target)
		return &ExitReason{Kind: Continue}
	}
}

func execMoveReg(m *Machine, args []byte) *ExitReason {
	src, dst := srcDst(args)
	m.Regs.set(dst, m.Regs.get(src))
	return &ExitReason{Kind: Continue}
}

func execSbrk(m *Machine, args []byte) *ExitReason {
	d, a := srcDst(args)
	n := uint32(m.Regs.get(a))
	m.Regs.set(d, uint64(m.Mem.Sbrk(n)))
	return &ExitReason{Kind: Continue}
}

func unaryFunc(f func(uint64) uint64) func(*Machine, []byte) *ExitReason {
	return func(m *Machine, args []byte) *ExitReason {
		src, dst := srcDst(args)
		m.Regs.set(dst, f(m.Regs.get(src)))
		return &ExitReason{Kind: Continue}
	}
}

func unaryFunc32(f func(uint32) uint32) func(*Machine, []byte) *ExitReason {
	return func(m *Machine, args []byte) *ExitReason {
		src, dst := srcDst(args)
		m.Regs.set(dst, uint64(f(m.Regs.get32(src))))
		return &ExitReason{Kind: Continue}
	}
}

func extend(b []byte, signed bool) uint64 {
	var v uint64
	for i, c := range b {
		v |= uint64(c) << uint(8*i)
	}
	if !signed {
		return v
	}
	shift := uint(64 - 8*len(b))
	return uint64(int64(v<<shift) >> shift)
}

func storeIndFunc(width int) func(*Machine, []byte) *ExitReason {
	return func(m *Machine, args []byte) *ExitReason {
		if len(args) < 5 {
			return panicExit()
		}
		other, base, _ := twoRegOneDest(args)
		off := leI32(args[1:5])
		addr := uint32(int64(m.Regs.get(base)) + int64(off))
		v := m.Regs.get(other)
		val := make([]byte, width)
		for i := 0; i < width; i++ {
			val[i] = byte(v >> uint(8*i))
		}
		return storeOrContinue(m, addr, val)
	}
}

func loadIndFunc(width int, signed bool) func(*Machine, []byte) *ExitReason {
	return func(m *Machine, args []byte) *ExitReason {
		if len(args) < 5 {
			return panicExit()
		}
		dst, base, _ := twoRegOneDest(args)
		off := leI32(args[1:5])
		addr := uint32(int64(m.Regs.get(base)) + int64(off))
		b, r := m.Mem.Load(addr, uint32(width))
		if r != nil {
			return r
		}
		m.Regs.set(dst, extend(b, signed))
		return &ExitReason{Kind: Continue}
	}
}

func immArith32(f func(int32, int32) int32) func(*Machine, []byte) *ExitReason {
	return func(m *Machine, args []byte) *ExitReason {
		src, dst := srcDst(args)
		imm := int32(signExtendVar(args[2:]))
		m.Regs.set(dst, uint64(uint32(f(int32(m.Regs.get32(src)), imm))))
		return &ExitReason{Kind: Continue}
	}
}

func immArith64(f func(int64, int64) int64) func(*Machine, []byte) *ExitReason {
	return func(m *Machine, args []byte) *ExitReason {
		src, dst := srcDst(args)
		imm := signExtendVar(args[2:])
		m.Regs.set(dst, uint64(f(m.Regs.getSigned(src), imm)))
		return &ExitReason{Kind: Continue}
	}
}

func execCmovIzImm(m *Machine, args []byte) *ExitReason {
	src, dst := srcDst(args)
	imm := signExtendVar(args[2:])
	if m.Regs.get(dst) == 0 {
		m.Regs.set(dst, uint64(imm))
	}
	_ = src
	return &ExitReason{Kind: Continue}
}

func execCmovNzImm(m *Machine, args []byte) *ExitReason {
	src, dst := srcDst(args)
	imm := signExtendVar(args[2:])
	if m.Regs.get(dst) != 0 {
		m.Regs.set(dst, uint64(imm))
	}
	_ = src
	return &ExitReason{Kind: Continue}
}

func execLoadImmJumpInd(m *Machine, args []byte) *ExitReason {
	if len(args) < 14 {
		return panicExit()
	}
	d := args[0]
	base := args[1] & 0x0F
	m.Regs.set(d, leU64(args[2:10]))
	off := leI32(args[10:14])
	target := int64(m.Regs.get(base)) + int64(off)
	if target < 0 || !m.Program.isInstructionStart(uint64(target)) {
		return panicExit()
	}
	m.PC = uint64(target)
	return &ExitReason{Kind: Continue}
}

func regArith32(f func(int32, int32) int32) func(*Machine, []byte) *ExitReason {
	return func(m *Machine, args []byte) *ExitReason {
		a, b, d := twoRegOneDest(args)
		m.Regs.set(d, uint64(uint32(f(m.Regs.getS32(a), m.Regs.getS32(b)))))
		return &ExitReason{Kind: Continue}
	}
}

func regArith64(f func(int64, int64) int64) func(*Machine, []byte) *ExitReason {
	return func(m *Machine, args []byte) *ExitReason {
		a, b, d := twoRegOneDest(args)
		m.Regs.set(d, uint64(f(m.Regs.getSigned(a), m.Regs.getSigned(b))))
		return &ExitReason{Kind: Continue}
	}
}

func execMulUpperUU(m *Machine, args []byte) *ExitReason {
	a, b, d := twoRegOneDest(args)
	var x, y uint256.Int
	x.SetUint64(m.Regs.get(a))
	y.SetUint64(m.Regs.get(b))
	var prod uint256.Int
	prod.Mul(&x, &y)
	m.Regs.set(d, prod[1])
	return &ExitReason{Kind: Continue}
}

func execMulUpperSS(m *Machine, args []byte) *ExitReason {
	a, b, d := twoRegOneDest(args)
	av, bv := m.Regs.getSigned(a), m.Regs.getSigned(b)
	prod := int64Mul128(av, bv)
	m.Regs.set(d, uint64(prod))
	return &ExitReason{Kind: Continue}
}

func execMulUpperSU(m *Machine, args []byte) *ExitReason {
	a, b, d := twoRegOneDest(args)
	av := m.Regs.getSigned(a)
	bv := m.Regs.get(b)
	var x uint256.Int
	if av < 0 {
		x.SetUint64(uint64(-av))
	} else {
		x.SetUint64(uint64(av))
	}
	var y uint256.Int
	y.SetUint64(bv)
	var prod uint256.Int
	prod.Mul(&x, &y)
	upper := int64(prod[1])
	if av < 0 {
		upper = ^upper
		if bv == 0 {
			upper++
		}
	}
	m.Regs.set(d, uint64(upper))
	return &ExitReason{Kind: Continue}
}

// int64Mul128 returns the high 64 bits of the signed 128-bit product a*b.
func int64Mul128(a, b int64) int64 {
	hi, lo := bits.Mul64(uint64(absI64(a)), uint64(absI64(b)))
	neg := (a < 0) != (b < 0)
	if neg {
		// Negating the 128-bit magnitude carries into the high word only
		// when the low word is zero.
		if lo == 0 {
			return -int64(hi)
		}
		return ^int64(hi)
	}
	return int64(hi)
}

func absI64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

func execCmovIzReg(m *Machine, args []byte) *ExitReason {
	a, b, d := twoRegOneDest(args)
	if m.Regs.get(b) == 0 {
		m.Regs.set(d, m.Regs.get(a))
	}
	return &ExitReason{Kind: Continue}
}

func execCmovNzReg(m *Machine, args []byte) *ExitReason {
	a, b, d := twoRegOneDest(args)
	if m.Regs.get(b) != 0 {
		m.Regs.set(d, m.Regs.get(a))
	}
	return &ExitReason{Kind: Continue}
}
