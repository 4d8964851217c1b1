package pvm

import "github.com/jamnode/jamcore/internal/codec"

// Program is a decoded PVM code blob: the instruction stream, a bitmask
// marking which byte offsets begin an instruction, and a jump table mapping
// static jump targets to basic-block offsets (§4.3).
type Program struct {
	Code      []byte
	Bitmask   []bool
	JumpTable []uint64
}

// Decode parses the prefix-framed program encoding:
//
//	jump_table_size ‖ jump_opcode_width ‖ code_size ‖ code ‖ bitmask ‖ jump_table
//
// jump_table_size and code_size are §4.1 natural numbers; jump_opcode_width
// is a single byte giving the fixed width (in bytes) of each jump-table
// entry; the bitmask is ceil(code_size/8) bytes, one bit per code byte.
func Decode(b []byte) (*Program, error) {
	r := codec.NewReader(b)

	jtSize, err := r.Unsigned()
	if err != nil {
		return nil, err
	}
	width, err := r.U8()
	if err != nil {
		return nil, err
	}
	if jtSize > 0 && (width == 0 || width > 8) {
		return nil, codec.ErrInvalidData
	}
	codeSize, err := r.Unsigned()
	if err != nil {
		return nil, err
	}
	code, err := r.RawBytes(int(codeSize))
	if err != nil {
		return nil, err
	}
	bitmaskBytes, err := r.RawBytes((int(codeSize) + 7) / 8)
	if err != nil {
		return nil, err
	}
	bitmask := make([]bool, codeSize)
	for i := range bitmask {
		bitmask[i] = bitmaskBytes[i/8]&(1<<uint(i%8)) != 0
	}

	jumpTable := make([]uint64, jtSize)
	for i := range jumpTable {
		raw, err := r.RawBytes(int(width))
		if err != nil {
			return nil, err
		}
		var v uint64
		for j := 0; j < len(raw); j++ {
			v |= uint64(raw[j]) << uint(8*j)
		}
		jumpTable[i] = v
	}

	return &Program{Code: code, Bitmask: bitmask, JumpTable: jumpTable}, nil
}

// isInstructionStart reports whether offset begins an instruction.
func (p *Program) isInstructionStart(offset uint64) bool {
	if offset >= uint64(len(p.Bitmask)) {
		return offset == uint64(len(p.Code))
	}
	return p.Bitmask[offset]
}

// skipDistance returns the number of operand bytes following the opcode at
// pc, found by scanning the bitmask for the next instruction boundary,
// capped at 24 per §4.3.
func (p *Program) skipDistance(pc uint64) int {
	n := 0
	for i := pc + 1; i < uint64(len(p.Code)) && n < 24; i++ {
		if p.Bitmask[i] {
			break
		}
		n++
	}
	return n
}

// jumpTarget resolves a static jump-table index to a code offset. Index 0
// is the reserved "invalid" entry.
func (p *Program) jumpTarget(index uint64) (uint64, bool) {
	if index == 0 || index > uint64(len(p.JumpTable)) {
		return 0, false
	}
	return p.JumpTable[index-1], true
}
