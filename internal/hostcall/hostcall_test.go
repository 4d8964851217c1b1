package hostcall

import (
	"testing"

	"github.com/jamnode/jamcore/internal/pvm"
)

type memStore struct {
	storage map[string][]byte
	blobs   map[[32]byte][]byte
	info    map[uint64]uint64
}

func newMemStore() *memStore {
	return &memStore{
		storage: make(map[string][]byte),
		blobs:   make(map[[32]byte][]byte),
		info:    make(map[uint64]uint64),
	}
}

func (s *memStore) Read(key []byte) ([]byte, bool) {
	v, ok := s.storage[string(key)]
	return v, ok
}

func (s *memStore) Write(key, value []byte) bool {
	if len(value) == 0 {
		delete(s.storage, string(key))
		return true
	}
	s.storage[string(key)] = append([]byte(nil), value...)
	return true
}

func (s *memStore) Lookup(hash [32]byte) ([]byte, bool) {
	v, ok := s.blobs[hash]
	return v, ok
}

func (s *memStore) HistoricalLookup(service uint64, hash [32]byte) ([]byte, bool) {
	return s.Lookup(hash)
}

func (s *memStore) Info(service uint64) (uint64, bool) {
	v, ok := s.info[service]
	return v, ok
}

// guestBase is the first guest address the tests map: every address below
// 0x10000 is permanently inaccessible.
const guestBase = 0x20000

// buildEcalliProgram returns a one-instruction program that traps the host
// call with the given code via ECALLI; stepping past it halts the machine.
func buildEcalliProgram(call uint64) *pvm.Program {
	args := []byte{byte(call)}
	code := append([]byte{10}, args...) // opEcalli == 10
	bitmask := make([]bool, len(code))
	bitmask[0] = true
	return &pvm.Program{Code: code, Bitmask: bitmask}
}

func TestWriteThenReadRoundTrip(t *testing.T) {
	store := newMemStore()
	d := NewDispatcher(Accumulate, store, 7, 100)
	DefaultHandlers(d)

	mem := pvm.NewMemory()
	mem.MapRange(guestBase, pvm.PageSize, pvm.PageFlags{Read: true, Write: true})
	key := []byte("k")
	val := []byte("hello")
	mem.Store(guestBase, key)
	mem.Store(guestBase+16, val)

	prog := buildEcalliProgram(CallWrite)
	m := pvm.NewMachine(prog, mem, 1000)
	m.HostCall = d.HostCallFunc()
	m.Regs.Set(7, guestBase)
	m.Regs.Set(8, uint64(len(key)))
	m.Regs.Set(9, guestBase+16)
	m.Regs.Set(10, uint64(len(val)))

	if r := m.Step(); r.Kind != pvm.Continue && r.Kind != pvm.Halt {
		t.Fatalf("write step exited: %v", r)
	}
	if got := m.Regs.Get(7); got != OK {
		t.Fatalf("write r7 = %d, want OK", got)
	}
	if stored, ok := store.Read(key); !ok || string(stored) != "hello" {
		t.Fatalf("store.Read = %q, %v", stored, ok)
	}
}

func TestWhitelistRejectsOutOfContextCall(t *testing.T) {
	store := newMemStore()
	d := NewDispatcher(IsAuthorized, store, 1, 0)
	DefaultHandlers(d)

	mem := pvm.NewMemory()
	prog := buildEcalliProgram(CallWrite) // write is not in the IsAuthorized whitelist
	m := pvm.NewMachine(prog, mem, 1000)
	m.HostCall = d.HostCallFunc()

	m.Step()
	if got := m.Regs.Get(7); got != WHAT {
		t.Fatalf("r7 = %d, want WHAT", got)
	}
}

func TestInfoMissingServiceReturnsWho(t *testing.T) {
	store := newMemStore()
	d := NewDispatcher(Accumulate, store, 1, 0)
	DefaultHandlers(d)

	mem := pvm.NewMemory()
	mem.MapRange(0, pvm.PageSize, pvm.PageFlags{Read: true, Write: true})
	prog := buildEcalliProgram(CallInfo)
	m := pvm.NewMachine(prog, mem, 1000)
	m.HostCall = d.HostCallFunc()
	m.Regs.Set(7, 42)
	m.Regs.Set(8, 0)

	m.Step()
	if got := m.Regs.Get(7); got != WHO {
		t.Fatalf("r7 = %d, want WHO", got)
	}
}

func TestFetchCopiesIndexedBlob(t *testing.T) {
	store := newMemStore()
	d := NewDispatcher(Accumulate, store, 1, 0)
	d.FetchBlobs = [][]byte{[]byte("operands")}
	DefaultHandlers(d)

	mem := pvm.NewMemory()
	mem.MapRange(guestBase, pvm.PageSize, pvm.PageFlags{Read: true, Write: true})
	prog := buildEcalliProgram(CallFetch)
	m := pvm.NewMachine(prog, mem, 1000)
	m.HostCall = d.HostCallFunc()
	m.Regs.Set(7, 0)
	m.Regs.Set(8, guestBase+64)
	m.Regs.Set(9, 128)

	m.Step()
	if got := m.Regs.Get(7); got != 8 {
		t.Fatalf("fetch r7 = %d, want blob length 8", got)
	}
	out, r := mem.Load(guestBase+64, 8)
	if r != nil || string(out) != "operands" {
		t.Fatalf("fetched blob = %q (%v)", out, r)
	}

	// Out-of-range index answers NONE.
	m2 := pvm.NewMachine(buildEcalliProgram(CallFetch), mem, 1000)
	m2.HostCall = d.HostCallFunc()
	m2.Regs.Set(7, 5)
	m2.Step()
	if got := m2.Regs.Get(7); got != NONE {
		t.Fatalf("fetch(5) r7 = %d, want NONE", got)
	}
}

func TestExportCollectsSegments(t *testing.T) {
	store := newMemStore()
	d := NewDispatcher(Refine, store, 1, 0)
	DefaultHandlers(d)

	mem := pvm.NewMemory()
	mem.MapRange(guestBase, pvm.PageSize, pvm.PageFlags{Read: true, Write: true})
	mem.Store(guestBase, []byte("seg0"))

	m := pvm.NewMachine(buildEcalliProgram(CallExport), mem, 1000)
	m.HostCall = d.HostCallFunc()
	m.Regs.Set(7, guestBase)
	m.Regs.Set(8, 4)
	m.Step()
	if got := m.Regs.Get(7); got != 0 {
		t.Fatalf("export r7 = %d, want segment index 0", got)
	}
	if len(d.Exports) != 1 || string(d.Exports[0]) != "seg0" {
		t.Fatalf("Exports = %q", d.Exports)
	}
}

// encodeProgram frames raw code bytes into the wire format pvm.Decode
// expects: jump_table_size(0) ‖ jump_opcode_width(0) ‖ code_size ‖ code ‖
// bitmask, with every byte marked as an instruction start.
func encodeProgram(code []byte) []byte {
	out := []byte{0, 0, byte(len(code))}
	out = append(out, code...)
	bitmaskLen := (len(code) + 7) / 8
	bitmask := make([]byte, bitmaskLen)
	for i := range code {
		bitmask[i/8] |= 1 << uint(i%8)
	}
	return append(out, bitmask...)
}

func TestNestedMachineLifecycle(t *testing.T) {
	store := newMemStore()
	d := NewDispatcher(Accumulate, store, 1, 0)
	DefaultHandlers(d)

	// A nested program consisting of a single TRAP.
	innerProgram := encodeProgram([]byte{0}) // opTrap == 0
	mem := pvm.NewMemory()
	mem.MapRange(guestBase, pvm.PageSize, pvm.PageFlags{Read: true, Write: true})
	mem.Store(guestBase, innerProgram)

	prog := buildEcalliProgram(CallMachine)
	m := pvm.NewMachine(prog, mem, 1000)
	m.HostCall = d.HostCallFunc()
	m.Regs.Set(7, guestBase)
	m.Regs.Set(8, uint64(len(innerProgram)))
	m.Regs.Set(9, 0)

	m.Step()
	handle := m.Regs.Get(7)
	if len(d.machines) != 1 {
		t.Fatalf("expected one nested machine, got %d", len(d.machines))
	}

	invoke := buildEcalliProgram(CallInvoke)
	m2 := pvm.NewMachine(invoke, mem, 1000)
	m2.HostCall = d.HostCallFunc()
	m2.Regs.Set(7, handle)
	m2.Regs.Set(8, 100)
	m2.Step()
	if pvm.ExitKind(m2.Regs.Get(7)) != pvm.Panic {
		t.Fatalf("nested exit kind = %d, want Panic", m2.Regs.Get(7))
	}

	expunge := buildEcalliProgram(CallExpunge)
	m3 := pvm.NewMachine(expunge, mem, 1000)
	m3.HostCall = d.HostCallFunc()
	m3.Regs.Set(7, handle)
	m3.Step()
	if got := m3.Regs.Get(7); got != OK {
		t.Fatalf("expunge r7 = %d, want OK", got)
	}
	if len(d.machines) != 0 {
		t.Fatalf("expected nested machine removed, got %d remaining", len(d.machines))
	}
}
