// Package pvm implements the polkavm-style sandboxed register machine used
// to execute service code during accumulation and transfers (§4.3-4.5).
//
// The fetch-decode-execute loop and per-instruction gas debit are grounded
// on the teacher's eWASM stack interpreter (pkg/core/vm/ewasm_interpreter.go:
// `for pc := ...; useGas(1); switch inst.Opcode { ... }`), generalized from a
// WASM stack machine to JAM's 13-register machine. The lazily-growing paged
// memory is grounded on pkg/core/vm/memory.go / memory_expansion.go.
package pvm

const (
	// PageSize is the PVM's page granularity (4 KiB, §4.3).
	PageSize = 4096

	// ReservedBelow is the address below which every page is permanently
	// inaccessible (§4.3).
	ReservedBelow = 1 << 16
)

// PageFlags tracks the access/dirty bits of one page.
type PageFlags struct {
	Read       bool
	Write      bool
	Referenced bool
	Modified   bool
}

// page holds one 4 KiB page of PVM memory plus its flags.
type page struct {
	flags PageFlags
	data  [PageSize]byte
}

// Memory is the PVM's paged 2^32-byte logical address space.
type Memory struct {
	pages map[uint32]*page // keyed by page index (addr / PageSize)
	brk   uint32           // current heap break, for sbrk
}

// NewMemory returns an empty memory image.
func NewMemory() *Memory {
	return &Memory{pages: make(map[uint32]*page)}
}

func pageIndex(addr uint32) uint32 { return addr / PageSize }

// MapPage installs a page with the given flags, zero-filled, replacing any
// existing mapping at that address. addr is rounded down to a page boundary.
func (m *Memory) MapPage(addr uint32, flags PageFlags) {
	idx := pageIndex(addr)
	m.pages[idx] = &page{flags: flags}
}

// MapRange maps every page spanning [addr, addr+length) with the given
// flags, preserving existing contents where a page is already mapped.
func (m *Memory) MapRange(addr, length uint32, flags PageFlags) {
	if length == 0 {
		return
	}
	start := pageIndex(addr)
	end := pageIndex(addr + length - 1)
	for idx := start; idx <= end; idx++ {
		if _, ok := m.pages[idx]; !ok {
			m.pages[idx] = &page{flags: flags}
		} else {
			m.pages[idx].flags = flags
		}
		if idx == end {
			break
		}
	}
}

// Write copies b into memory starting at addr, marking pages as mapped
// read+write if absent (used only by the image builder, not by guest code,
// which must go through checked Store).
func (m *Memory) Write(addr uint32, b []byte) {
	for i := 0; i < len(b); {
		idx := pageIndex(addr + uint32(i))
		p := m.pages[idx]
		if p == nil {
			p = &page{flags: PageFlags{Read: true, Write: true}}
			m.pages[idx] = p
		}
		off := int((addr + uint32(i)) % PageSize)
		n := copy(p.data[off:], b[i:])
		i += n
	}
}

// isReadable checks that every page spanning [addr, addr+length) is mapped
// and readable. Returns the first bad page's base address on failure.
func (m *Memory) isReadable(addr, length uint32) (uint32, bool) {
	if length == 0 {
		return 0, true
	}
	if uint64(addr) < ReservedBelow || uint64(addr)+uint64(length) <= uint64(addr) {
		return firstBadAddr(addr), false
	}
	start := pageIndex(addr)
	end := pageIndex(addr + length - 1)
	for idx := start; ; idx++ {
		p := m.pages[idx]
		if p == nil || !p.flags.Read {
			return idx * PageSize, false
		}
		if idx == end {
			break
		}
	}
	return 0, true
}

// isWritable checks that every page spanning [addr, addr+length) is mapped
// and writable.
func (m *Memory) isWritable(addr, length uint32) (uint32, bool) {
	if length == 0 {
		return 0, true
	}
	if uint64(addr) < ReservedBelow || uint64(addr)+uint64(length) <= uint64(addr) {
		return firstBadAddr(addr), false
	}
	start := pageIndex(addr)
	end := pageIndex(addr + length - 1)
	for idx := start; ; idx++ {
		p := m.pages[idx]
		if p == nil || !p.flags.Write {
			return idx * PageSize, false
		}
		if idx == end {
			break
		}
	}
	return 0, true
}

// firstBadAddr reports a fault address page-aligned, per the PageFault
// contract (the faulting page's base, not the raw access address).
func firstBadAddr(addr uint32) uint32 {
	return pageIndex(addr) * PageSize
}

// Load reads length bytes at addr, returning a PageFault exit if any
// spanning page is unmapped or unreadable.
func (m *Memory) Load(addr, length uint32) ([]byte, *ExitReason) {
	if bad, ok := m.isReadable(addr, length); !ok {
		return nil, PageFault(bad)
	}
	out := make([]byte, length)
	for i := uint32(0); i < length; {
		idx := pageIndex(addr + i)
		p := m.pages[idx]
		p.flags.Referenced = true
		off := (addr + i) % PageSize
		n := copy(out[i:], p.data[off:])
		i += uint32(n)
	}
	return out, nil
}

// Store writes b to addr, returning a PageFault exit if any spanning page is
// unmapped or not writable.
func (m *Memory) Store(addr uint32, b []byte) *ExitReason {
	if bad, ok := m.isWritable(addr, uint32(len(b))); !ok {
		return PageFault(bad)
	}
	for i := 0; i < len(b); {
		idx := pageIndex(addr + uint32(i))
		p := m.pages[idx]
		p.flags.Modified = true
		off := int((addr + uint32(i)) % PageSize)
		n := copy(p.data[off:], b[i:])
		i += n
	}
	return nil
}

// Sbrk extends the heap break by n bytes, lazily mapping read+write pages
// as it crosses page boundaries, and returns the break address before
// extension (§4.3).
func (m *Memory) Sbrk(n uint32) uint32 {
	before := m.brk
	if n == 0 {
		return before
	}
	after := before + n
	startPage := pageIndex(before)
	if before%PageSize != 0 {
		startPage++
	}
	endPage := pageIndex(after)
	for idx := startPage; idx <= endPage; idx++ {
		if _, ok := m.pages[idx]; !ok {
			m.pages[idx] = &page{flags: PageFlags{Read: true, Write: true}}
		}
	}
	m.brk = after
	return before
}

// SetBrk sets the initial heap break (used by the standard-program image
// builder) without mapping pages.
func (m *Memory) SetBrk(addr uint32) { m.brk = addr }
