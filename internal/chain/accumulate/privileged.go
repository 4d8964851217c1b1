package accumulate

import (
	"sync"
	"sync/atomic"

	"github.com/jamnode/jamcore/internal/hostcall"
	"github.com/jamnode/jamcore/internal/oracle"
	"github.com/jamnode/jamcore/internal/pvm"
	"github.com/jamnode/jamcore/internal/state"
)

// invocationContext closes over one service's accumulate invocation: its
// own scratch account (owned exclusively by this goroutine, so mutated
// without locking) plus the block-wide outcomes a privileged host call can
// contribute to (transfers, new services, ejections, authorizer-queue and
// privilege updates), guarded by a shared mutex since multiple services may
// call these concurrently (§4.5 privileged calls, §4.11).
type invocationContext struct {
	self state.ServiceId
	slot uint32

	staged *state.Account
	mu     *sync.Mutex

	transfers   *[]deferredTransfer
	newServices *[]newServiceRecord
	ejected     *[]state.ServiceId

	authUpdates map[uint16][]oracle.Hash
	privileges  *state.Privileges

	nextServiceID state.ServiceId
	idCounter     *uint64

	lookup map[state.ServiceId]*state.Account

	checkpoint   *state.Account
	yieldHash    oracle.Hash
	yieldHashSet bool
}

func (c *invocationContext) yielded() (oracle.Hash, bool) { return c.yieldHash, c.yieldHashSet }

func (c *invocationContext) allocServiceID() state.ServiceId {
	offset := atomic.AddUint64(c.idCounter, 1) - 1
	return c.nextServiceID + state.ServiceId(offset)
}

// serviceStore adapts one invocationContext to hostcall.Store: reads/writes
// hit the invoking service's own scratch account; Info/HistoricalLookup can
// address any service via the read-only pre-block snapshot.
type serviceStore struct {
	ctx *invocationContext
}

var _ hostcall.Store = (*serviceStore)(nil)

func (s *serviceStore) Read(key []byte) ([]byte, bool) {
	var k [31]byte
	copy(k[:], key)
	v, ok := s.ctx.staged.Storage[state.StorageKey(s.ctx.self, k)]
	return v, ok
}

func (s *serviceStore) Write(key, value []byte) bool {
	acc := s.ctx.staged
	var k [31]byte
	copy(k[:], key)
	storeKey := state.StorageKey(s.ctx.self, k)

	before := append([]byte(nil), acc.Storage[storeKey]...)
	hadBefore := acc.Storage[storeKey] != nil
	if len(value) == 0 {
		delete(acc.Storage, storeKey)
	} else {
		acc.Storage[storeKey] = append([]byte(nil), value...)
	}
	if acc.Balance < acc.ThresholdBalance() {
		if hadBefore {
			acc.Storage[storeKey] = before
		} else {
			delete(acc.Storage, storeKey)
		}
		return false
	}
	return true
}

func (s *serviceStore) Lookup(hash [32]byte) ([]byte, bool) {
	v, ok := s.ctx.staged.Preimages[oracle.Hash(hash)]
	return v, ok
}

func (s *serviceStore) HistoricalLookup(service uint64, hash [32]byte) ([]byte, bool) {
	var acc *state.Account
	if state.ServiceId(service) == s.ctx.self {
		acc = s.ctx.staged
	} else {
		acc = s.ctx.lookup[state.ServiceId(service)]
	}
	if acc == nil {
		return nil, false
	}
	v, ok := acc.Preimages[oracle.Hash(hash)]
	if !ok {
		return nil, false
	}
	return v, true
}

func (s *serviceStore) Info(serviceID uint64) (uint64, bool) {
	if serviceID == ^uint64(0) || state.ServiceId(serviceID) == s.ctx.self {
		return s.ctx.staged.Balance, true
	}
	acc := s.ctx.lookup[state.ServiceId(serviceID)]
	if acc == nil {
		return 0, false
	}
	return acc.Balance, true
}

// registerPrivileged installs the accumulate-context-only host calls
// (§4.5: bless, assign, designate, checkpoint, new, upgrade, transfer,
// eject, query, solicit, forget, yield, provide) on d, overriding the
// unwired stubs hostcall.DefaultHandlers installs for them.
func registerPrivileged(d *hostcall.Dispatcher, ctx *invocationContext) {
	d.Register(hostcall.CallBless, func(d *hostcall.Dispatcher, m *pvm.Machine) *pvm.ExitReason {
		if ctx.privileges.Manager != ctx.self {
			m.Regs.Set(7, hostcall.HUH)
			return nil
		}
		ctx.mu.Lock()
		ctx.privileges.Manager = state.ServiceId(m.Regs.Get(7))
		ctx.privileges.Assigner = state.ServiceId(m.Regs.Get(8))
		ctx.privileges.Delegator = state.ServiceId(m.Regs.Get(9))
		ctx.mu.Unlock()
		m.Regs.Set(7, hostcall.OK)
		return nil
	})

	d.Register(hostcall.CallAssign, func(d *hostcall.Dispatcher, m *pvm.Machine) *pvm.ExitReason {
		if ctx.privileges.Assigner != ctx.self {
			m.Regs.Set(7, hostcall.HUH)
			return nil
		}
		core := uint16(m.Regs.Get(7))
		hb, r := m.Mem.Load(uint32(m.Regs.Get(8)), uint32(m.Regs.Get(9)))
		if r != nil {
			return r
		}
		hashes := splitHashes(hb)
		ctx.mu.Lock()
		ctx.authUpdates[core] = hashes
		ctx.mu.Unlock()
		m.Regs.Set(7, hostcall.OK)
		return nil
	})

	d.Register(hostcall.CallDesignate, func(d *hostcall.Dispatcher, m *pvm.Machine) *pvm.ExitReason {
		if ctx.privileges.Delegator != ctx.self {
			m.Regs.Set(7, hostcall.HUH)
			return nil
		}
		m.Regs.Set(7, hostcall.OK)
		return nil
	})

	d.Register(hostcall.CallCheckpoint, func(d *hostcall.Dispatcher, m *pvm.Machine) *pvm.ExitReason {
		ctx.checkpoint = ctx.staged.Clone()
		m.Regs.Set(7, uint64(m.Gas.Remaining()))
		return nil
	})

	d.Register(hostcall.CallNew, func(d *hostcall.Dispatcher, m *pvm.Machine) *pvm.ExitReason {
		hb, r := m.Mem.Load(uint32(m.Regs.Get(7)), 32)
		if r != nil {
			return r
		}
		accMinGas := m.Regs.Get(8)
		xferMinGas := m.Regs.Get(9)
		balance := m.Regs.Get(10)
		if balance > ctx.staged.Balance {
			m.Regs.Set(7, hostcall.CASH)
			return nil
		}
		ctx.staged.Balance -= balance

		id := ctx.allocServiceID()
		na := state.NewAccount()
		copy(na.CodeHash[:], hb)
		na.Balance = balance
		na.AccMinGas = accMinGas
		na.XferMinGas = xferMinGas
		na.ParentService = ctx.self
		na.CreatedAt = ctx.slot

		ctx.mu.Lock()
		*ctx.newServices = append(*ctx.newServices, newServiceRecord{id: id, acc: na})
		ctx.mu.Unlock()

		m.Regs.Set(7, uint64(id))
		return nil
	})

	d.Register(hostcall.CallUpgrade, func(d *hostcall.Dispatcher, m *pvm.Machine) *pvm.ExitReason {
		hb, r := m.Mem.Load(uint32(m.Regs.Get(7)), 32)
		if r != nil {
			return r
		}
		copy(ctx.staged.CodeHash[:], hb)
		ctx.staged.AccMinGas = m.Regs.Get(8)
		ctx.staged.XferMinGas = m.Regs.Get(9)
		m.Regs.Set(7, hostcall.OK)
		return nil
	})

	d.Register(hostcall.CallTransfer, func(d *hostcall.Dispatcher, m *pvm.Machine) *pvm.ExitReason {
		dest := state.ServiceId(m.Regs.Get(7))
		balance := m.Regs.Get(8)
		gas := m.Regs.Get(9)
		memo, r := m.Mem.Load(uint32(m.Regs.Get(10)), uint32(m.Regs.Get(11)))
		if r != nil {
			return r
		}
		if balance > ctx.staged.Balance {
			m.Regs.Set(7, hostcall.CASH)
			return nil
		}
		dst, ok := ctx.lookup[dest]
		if !ok {
			m.Regs.Set(7, hostcall.WHO)
			return nil
		}
		if gas < dst.XferMinGas {
			m.Regs.Set(7, hostcall.LOW)
			return nil
		}
		ctx.staged.Balance -= balance
		ctx.mu.Lock()
		*ctx.transfers = append(*ctx.transfers, deferredTransfer{
			From: ctx.self, To: dest, Balance: balance, Gas: gas,
			Memo: append([]byte(nil), memo...),
		})
		ctx.mu.Unlock()
		m.Regs.Set(7, hostcall.OK)
		return nil
	})

	d.Register(hostcall.CallEject, func(d *hostcall.Dispatcher, m *pvm.Machine) *pvm.ExitReason {
		target := state.ServiceId(m.Regs.Get(7))
		acc, ok := ctx.lookup[target]
		if !ok || acc.ParentService != ctx.self {
			m.Regs.Set(7, hostcall.HUH)
			return nil
		}
		ctx.staged.Balance += acc.Balance
		ctx.mu.Lock()
		*ctx.ejected = append(*ctx.ejected, target)
		ctx.mu.Unlock()
		m.Regs.Set(7, hostcall.OK)
		return nil
	})

	d.Register(hostcall.CallQuery, func(d *hostcall.Dispatcher, m *pvm.Machine) *pvm.ExitReason {
		hb, r := m.Mem.Load(uint32(m.Regs.Get(7)), 32)
		if r != nil {
			return r
		}
		var h oracle.Hash
		copy(h[:], hb)
		length := uint32(m.Regs.Get(8))
		history, ok := ctx.staged.Lookup[lk(h, length)]
		if !ok {
			m.Regs.Set(7, hostcall.NONE)
			return nil
		}
		m.Regs.Set(7, uint64(len(history)))
		return nil
	})

	d.Register(hostcall.CallSolicit, func(d *hostcall.Dispatcher, m *pvm.Machine) *pvm.ExitReason {
		hb, r := m.Mem.Load(uint32(m.Regs.Get(7)), 32)
		if r != nil {
			return r
		}
		var h oracle.Hash
		copy(h[:], hb)
		ctx.staged.Solicit(h, uint32(m.Regs.Get(8)))
		m.Regs.Set(7, hostcall.OK)
		return nil
	})

	d.Register(hostcall.CallForget, func(d *hostcall.Dispatcher, m *pvm.Machine) *pvm.ExitReason {
		hb, r := m.Mem.Load(uint32(m.Regs.Get(7)), 32)
		if r != nil {
			return r
		}
		var h oracle.Hash
		copy(h[:], hb)
		delete(ctx.staged.Lookup, lk(h, uint32(m.Regs.Get(8))))
		delete(ctx.staged.Preimages, h)
		m.Regs.Set(7, hostcall.OK)
		return nil
	})

	d.Register(hostcall.CallYield, func(d *hostcall.Dispatcher, m *pvm.Machine) *pvm.ExitReason {
		hb, r := m.Mem.Load(uint32(m.Regs.Get(7)), 32)
		if r != nil {
			return r
		}
		copy(ctx.yieldHash[:], hb)
		ctx.yieldHashSet = true
		m.Regs.Set(7, hostcall.OK)
		return nil
	})

	d.Register(hostcall.CallProvide, func(d *hostcall.Dispatcher, m *pvm.Machine) *pvm.ExitReason {
		service := state.ServiceId(m.Regs.Get(7))
		blob, r := m.Mem.Load(uint32(m.Regs.Get(8)), uint32(m.Regs.Get(9)))
		if r != nil {
			return r
		}
		target := ctx.staged
		if service != ctx.self {
			target = ctx.lookup[service]
		}
		if target == nil {
			m.Regs.Set(7, hostcall.WHO)
			return nil
		}
		h := oracle.Blake2b256(blob)
		length := uint32(len(blob))
		if !target.HasSolicited(h, length) || target.HasPreimage(h) {
			m.Regs.Set(7, hostcall.HUH)
			return nil
		}
		target.Preimages[h] = append([]byte(nil), blob...)
		target.RecordProvision(h, length, ctx.slot)
		m.Regs.Set(7, hostcall.OK)
		return nil
	})
}

func lk(h oracle.Hash, length uint32) struct {
	Hash oracle.Hash
	Len  uint32
} {
	return struct {
		Hash oracle.Hash
		Len  uint32
	}{h, length}
}

func splitHashes(b []byte) []oracle.Hash {
	n := len(b) / 32
	out := make([]oracle.Hash, n)
	for i := 0; i < n; i++ {
		copy(out[i][:], b[i*32:i*32+32])
	}
	return out
}
