package hostcall

import (
	"github.com/jamnode/jamcore/internal/log"
	"github.com/jamnode/jamcore/internal/pvm"
)

var hostLog = log.Default().Module("hostcall")

// Argument convention: r7..r12 hold a call's arguments in the order given
// in each handler's comment; results go back into r7 as either a sentinel
// (§4.5) or, for pure reads like gas(), the value itself.

// DefaultHandlers registers the full named host-call table (§4.5) on d.
func DefaultHandlers(d *Dispatcher) {
	d.Register(CallGas, callGas)
	d.Register(CallRead, callRead)
	d.Register(CallWrite, callWrite)
	d.Register(CallLookup, callLookup)
	d.Register(CallHistoricalLookup, callHistoricalLookup)
	d.Register(CallInfo, callInfo)
	d.Register(CallLog, callLog)
	d.Register(CallFetch, callFetch)
	d.Register(CallExport, callExport)

	d.Register(CallMachine, callMachine)
	d.Register(CallPeek, callPeek)
	d.Register(CallPoke, callPoke)
	d.Register(CallPages, callPages)
	d.Register(CallInvoke, callInvoke)
	d.Register(CallExpunge, callExpunge)

	d.Register(CallBless, callUnwiredPrivileged)
	d.Register(CallAssign, callUnwiredPrivileged)
	d.Register(CallDesignate, callUnwiredPrivileged)
	d.Register(CallCheckpoint, callUnwiredPrivileged)
	d.Register(CallNew, callUnwiredPrivileged)
	d.Register(CallUpgrade, callUnwiredPrivileged)
	d.Register(CallTransfer, callUnwiredPrivileged)
	d.Register(CallEject, callUnwiredPrivileged)
	d.Register(CallQuery, callUnwiredPrivileged)
	d.Register(CallSolicit, callUnwiredPrivileged)
	d.Register(CallForget, callUnwiredPrivileged)
	d.Register(CallYield, callUnwiredPrivileged)
	d.Register(CallProvide, callUnwiredPrivileged)
}

func readMem(m *pvm.Machine, off, length uint64) ([]byte, *pvm.ExitReason) {
	return m.Mem.Load(uint32(off), uint32(length))
}

// gas(): r7 = remaining gas.
func callGas(d *Dispatcher, m *pvm.Machine) *pvm.ExitReason {
	m.Regs.Set(7, uint64(m.Gas.Remaining()))
	return nil
}

// read(k_off, k_len, out_off, out_len): r7 = previous length, or NONE if
// absent, or OOB if the value doesn't fit in [out_off, out_off+out_len).
func callRead(d *Dispatcher, m *pvm.Machine) *pvm.ExitReason {
	key, r := readMem(m, m.Regs.Get(7), m.Regs.Get(8))
	if r != nil {
		return r
	}
	val, ok := d.Store.Read(key)
	if !ok {
		m.Regs.Set(7, NONE)
		return nil
	}
	outOff, outLen := m.Regs.Get(9), m.Regs.Get(10)
	if uint64(len(val)) > outLen {
		m.Regs.Set(7, OOB)
		return nil
	}
	if r := m.Mem.Store(uint32(outOff), val); r != nil {
		return r
	}
	m.Regs.Set(7, uint64(len(val)))
	return nil
}

// write(k_off, k_len, v_off, v_len): r7 = OK, or FULL if the service's
// balance threshold would be violated.
func callWrite(d *Dispatcher, m *pvm.Machine) *pvm.ExitReason {
	key, r := readMem(m, m.Regs.Get(7), m.Regs.Get(8))
	if r != nil {
		return r
	}
	vLen := m.Regs.Get(10)
	var val []byte
	if vLen > 0 {
		val, r = readMem(m, m.Regs.Get(9), vLen)
		if r != nil {
			return r
		}
	}
	if !d.Store.Write(key, val) {
		m.Regs.Set(7, FULL)
		return nil
	}
	m.Regs.Set(7, OK)
	return nil
}

// lookup(h_off, out_off, out_len): hash is always 32 bytes. r7 mirrors
// read's result convention.
func callLookup(d *Dispatcher, m *pvm.Machine) *pvm.ExitReason {
	hb, r := readMem(m, m.Regs.Get(7), 32)
	if r != nil {
		return r
	}
	var hash [32]byte
	copy(hash[:], hb)
	val, ok := d.Store.Lookup(hash)
	if !ok {
		m.Regs.Set(7, NONE)
		return nil
	}
	outOff, outLen := m.Regs.Get(8), m.Regs.Get(9)
	if uint64(len(val)) > outLen {
		m.Regs.Set(7, OOB)
		return nil
	}
	if r := m.Mem.Store(uint32(outOff), val); r != nil {
		return r
	}
	m.Regs.Set(7, uint64(len(val)))
	return nil
}

// historical_lookup(service, h_off, out_off, out_len): as lookup, but
// against another service's preimages as of the invoking timeslot.
func callHistoricalLookup(d *Dispatcher, m *pvm.Machine) *pvm.ExitReason {
	service := m.Regs.Get(7)
	hb, r := readMem(m, m.Regs.Get(8), 32)
	if r != nil {
		return r
	}
	var hash [32]byte
	copy(hash[:], hb)
	val, ok := d.Store.HistoricalLookup(service, hash)
	if !ok {
		m.Regs.Set(7, NONE)
		return nil
	}
	outOff, outLen := m.Regs.Get(9), m.Regs.Get(10)
	if uint64(len(val)) > outLen {
		m.Regs.Set(7, OOB)
		return nil
	}
	if r := m.Mem.Store(uint32(outOff), val); r != nil {
		return r
	}
	m.Regs.Set(7, uint64(len(val)))
	return nil
}

// info(service, out_off, out_len): writes the service's balance as a
// little-endian u64; r7 = OK, or WHO if the service does not exist.
func callInfo(d *Dispatcher, m *pvm.Machine) *pvm.ExitReason {
	service := m.Regs.Get(7)
	balance, ok := d.Store.Info(service)
	if !ok {
		m.Regs.Set(7, WHO)
		return nil
	}
	buf := make([]byte, 8)
	for i := 0; i < 8; i++ {
		buf[i] = byte(balance >> uint(8*i))
	}
	if r := m.Mem.Store(uint32(m.Regs.Get(8)), buf); r != nil {
		return r
	}
	m.Regs.Set(7, OK)
	return nil
}

// log(level, msg_off, msg_len): r7 = OK. Service-emitted diagnostic line,
// not part of consensus.
func callLog(d *Dispatcher, m *pvm.Machine) *pvm.ExitReason {
	msg, r := readMem(m, m.Regs.Get(8), m.Regs.Get(9))
	if r != nil {
		return r
	}
	hostLog.Info("service log", "service", d.ServiceID, "level", m.Regs.Get(7), "msg", string(msg))
	m.Regs.Set(7, OK)
	return nil
}

// fetch(index, out_off, out_len): copies the dispatcher's indexed input
// blob into [out_off, out_off+out_len). r7 = blob length, NONE for an
// out-of-range index, OOB if the blob doesn't fit the destination.
func callFetch(d *Dispatcher, m *pvm.Machine) *pvm.ExitReason {
	idx := m.Regs.Get(7)
	if idx >= uint64(len(d.FetchBlobs)) {
		m.Regs.Set(7, NONE)
		return nil
	}
	blob := d.FetchBlobs[idx]
	outOff, outLen := m.Regs.Get(8), m.Regs.Get(9)
	if uint64(len(blob)) > outLen {
		m.Regs.Set(7, OOB)
		return nil
	}
	if r := m.Mem.Store(uint32(outOff), blob); r != nil {
		return r
	}
	m.Regs.Set(7, uint64(len(blob)))
	return nil
}

// maxExports bounds how many segments one invocation may emit before
// `export` starts answering FULL.
const maxExports = 3072

// export(off, len): appends RAM[off..off+len) to the dispatcher's export
// list. r7 = the new segment's index, or FULL past the export bound.
func callExport(d *Dispatcher, m *pvm.Machine) *pvm.ExitReason {
	if len(d.Exports) >= maxExports {
		m.Regs.Set(7, FULL)
		return nil
	}
	seg, r := readMem(m, m.Regs.Get(7), m.Regs.Get(8))
	if r != nil {
		return r
	}
	d.Exports = append(d.Exports, append([]byte(nil), seg...))
	m.Regs.Set(7, uint64(len(d.Exports)-1))
	return nil
}

func callUnwiredPrivileged(d *Dispatcher, m *pvm.Machine) *pvm.ExitReason {
	m.Regs.Set(7, HUH)
	return nil
}
