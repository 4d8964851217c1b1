package pvm

// Standard-program memory layout constants (§4.4).
const (
	Zz = 1 << 16 // low guard / base alignment
	Zi = 1 << 24 // stack/heap spacing
)

// StandardProgram is the decoded parts of a PVM service-code blob beyond the
// bare instruction stream: its read-only data, read-write data, and the
// initial heap size, laid out into a fresh memory image per §4.4.
type StandardProgram struct {
	ROData     []byte
	RWData     []byte
	StackSize  uint32
	HeapPages  uint32
	Argv       []byte
}

// BuildImage lays out a standard program's memory per §4.4: read-only data
// at a fixed low address, read-write data and heap above it, a guarded
// stack region below the top of the address space, and argv copied
// read-only just below the reserved top-of-space sentinel.
//
// Layout (ascending addresses):
//
//	Zz                      : RO data, length len(ROData), read-only
//	Zz + pad(ROData) + Zz   : RW data + initial heap, read-write
//	...
//	2^32 - Zz - Zi - stack  : stack, read-write
//	2^32 - Zz - Zi          : argv, read-only, length len(Argv)
func BuildImage(sp *StandardProgram) (*Memory, *Registers) {
	mem := NewMemory()

	roBase := uint32(Zz)
	if len(sp.ROData) > 0 {
		mem.MapRange(roBase, uint32(len(sp.ROData)), PageFlags{Read: true})
		mem.Write(roBase, sp.ROData)
		mem.MapRange(roBase, uint32(len(sp.ROData)), PageFlags{Read: true})
	}

	rwBase := alignUp(roBase+uint32(len(sp.ROData)), PageSize) + Zz
	if len(sp.RWData) > 0 {
		mem.MapRange(rwBase, uint32(len(sp.RWData)), PageFlags{Read: true, Write: true})
		mem.Write(rwBase, sp.RWData)
		mem.MapRange(rwBase, uint32(len(sp.RWData)), PageFlags{Read: true, Write: true})
	}
	heapBase := alignUp(rwBase+uint32(len(sp.RWData)), PageSize)
	mem.SetBrk(heapBase)
	if sp.HeapPages > 0 {
		mem.MapRange(heapBase, sp.HeapPages*PageSize, PageFlags{Read: true, Write: true})
		mem.Sbrk(sp.HeapPages * PageSize)
	}

	const top = uint32(1<<32-1) - Zz - Zi + 1 // 2^32 - Zz - Zi, computed without overflow
	argvBase := top
	argvLen := uint32(len(sp.Argv))
	if argvLen > 0 {
		mem.MapRange(argvBase, argvLen, PageFlags{Read: true})
		mem.Write(argvBase, sp.Argv)
		mem.MapRange(argvBase, argvLen, PageFlags{Read: true})
	}

	stackTop := argvBase
	stackBase := stackTop - alignUp(sp.StackSize, PageSize)
	if sp.StackSize > 0 {
		mem.MapRange(stackBase, stackTop-stackBase, PageFlags{Read: true, Write: true})
	}

	regs := &Registers{}
	regs.set(0, 0xFFFF_0000) // return-address sentinel
	regs.set(1, uint64(stackTop))
	regs.set(7, uint64(argvBase))
	regs.set(8, uint64(argvLen))

	return mem, regs
}

func alignUp(v, align uint32) uint32 {
	if align == 0 {
		return v
	}
	rem := v % align
	if rem == 0 {
		return v
	}
	return v + (align - rem)
}
