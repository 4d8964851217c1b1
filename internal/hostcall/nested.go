package hostcall

import "github.com/jamnode/jamcore/internal/pvm"

// nestedMachine tracks one inner PVM instance spawned by the "machine"
// host call, keyed by an opaque handle returned in r7.
type nestedMachine struct {
	m *pvm.Machine
}

func (d *Dispatcher) nested() map[uint64]*nestedMachine {
	if d.machines == nil {
		d.machines = make(map[uint64]*nestedMachine)
	}
	return d.machines
}

// machine(code_off, code_len, pc): decodes a program from the caller's
// memory and creates a fresh nested machine with no gas allocated yet
// (invoke supplies gas per call); r7 = handle, or WHAT if the program does
// not decode.
func callMachine(d *Dispatcher, m *pvm.Machine) *pvm.ExitReason {
	code, r := readMem(m, m.Regs.Get(7), m.Regs.Get(8))
	if r != nil {
		return r
	}
	prog, err := pvm.Decode(code)
	if err != nil {
		m.Regs.Set(7, WHAT)
		return nil
	}
	nm := pvm.NewMachine(prog, pvm.NewMemory(), 0)
	nm.PC = m.Regs.Get(9)

	handle := d.nextHandle
	d.nextHandle++
	d.nested()[handle] = &nestedMachine{m: nm}
	m.Regs.Set(7, handle)
	return nil
}

// peek(handle, addr, out_off, len): copies len bytes from the nested
// machine's memory at addr into the caller's memory at out_off.
func callPeek(d *Dispatcher, m *pvm.Machine) *pvm.ExitReason {
	nm, ok := d.nested()[m.Regs.Get(7)]
	if !ok {
		m.Regs.Set(7, WHO)
		return nil
	}
	addr, outOff, length := m.Regs.Get(8), m.Regs.Get(9), m.Regs.Get(10)
	data, fault := nm.m.Mem.Load(uint32(addr), uint32(length))
	if fault != nil {
		m.Regs.Set(7, OOB)
		return nil
	}
	if r := m.Mem.Store(uint32(outOff), data); r != nil {
		return r
	}
	m.Regs.Set(7, OK)
	return nil
}

// poke(handle, src_off, addr, len): copies len bytes from the caller's
// memory at src_off into the nested machine's memory at addr.
func callPoke(d *Dispatcher, m *pvm.Machine) *pvm.ExitReason {
	nm, ok := d.nested()[m.Regs.Get(7)]
	if !ok {
		m.Regs.Set(7, WHO)
		return nil
	}
	srcOff, addr, length := m.Regs.Get(8), m.Regs.Get(9), m.Regs.Get(10)
	data, r := readMem(m, srcOff, length)
	if r != nil {
		return r
	}
	if fault := nm.m.Mem.Store(uint32(addr), data); fault != nil {
		m.Regs.Set(7, OOB)
		return nil
	}
	m.Regs.Set(7, OK)
	return nil
}

// pages(handle, addr, count, flags): maps count pages starting at addr in
// the nested machine's memory; flags bit 0 = readable, bit 1 = writable.
func callPages(d *Dispatcher, m *pvm.Machine) *pvm.ExitReason {
	nm, ok := d.nested()[m.Regs.Get(7)]
	if !ok {
		m.Regs.Set(7, WHO)
		return nil
	}
	addr, count, flags := m.Regs.Get(8), m.Regs.Get(9), m.Regs.Get(10)
	nm.m.Mem.MapRange(uint32(addr), uint32(count)*pvm.PageSize, pvm.PageFlags{
		Read:  flags&1 != 0,
		Write: flags&2 != 0,
	})
	m.Regs.Set(7, OK)
	return nil
}

// invoke(handle, gas): runs the nested machine to a terminal exit with the
// given gas allowance; r7 = the nested machine's exit kind (as its numeric
// ExitKind), r8 = gas consumed.
func callInvoke(d *Dispatcher, m *pvm.Machine) *pvm.ExitReason {
	nm, ok := d.nested()[m.Regs.Get(7)]
	if !ok {
		m.Regs.Set(7, WHO)
		return nil
	}
	nm.m.Gas = pvm.NewGasMeter(int64(m.Regs.Get(8)))
	before := nm.m.Gas.Remaining()
	exit := nm.m.Run()
	consumed := before - nm.m.Gas.Remaining()
	m.Regs.Set(7, uint64(exit.Kind))
	m.Regs.Set(8, uint64(consumed))
	return nil
}

// expunge(handle): discards the nested machine; r7 = OK, or WHO if the
// handle is unknown.
func callExpunge(d *Dispatcher, m *pvm.Machine) *pvm.ExitReason {
	if _, ok := d.nested()[m.Regs.Get(7)]; !ok {
		m.Regs.Set(7, WHO)
		return nil
	}
	delete(d.nested(), m.Regs.Get(7))
	m.Regs.Set(7, OK)
	return nil
}
