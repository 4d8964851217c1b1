package hostcall

import "github.com/jamnode/jamcore/internal/pvm"

// Store is the subset of service-account state a host call can reach:
// keyed storage, preimage lookup, and cross-service historical lookup.
// Implemented by internal/state's ServiceStore and by
// internal/chain/accumulate's staged store; declared here so this package
// does not import internal/state (the dependency runs the other way:
// internal/chain/accumulate wires a Store into each Dispatcher).
type Store interface {
	// Read returns the value at key in the current service's storage.
	Read(key []byte) ([]byte, bool)
	// Write sets (or, if len(value)==0, deletes) key in the current
	// service's storage. ok is false if the service's balance would drop
	// below its storage-footprint threshold (§3).
	Write(key, value []byte) (ok bool)
	// Lookup returns a previously-solicited preimage by hash in the
	// current service.
	Lookup(hash [32]byte) ([]byte, bool)
	// HistoricalLookup returns a preimage belonging to another service,
	// valid as of the invoking block's timeslot.
	HistoricalLookup(service uint64, hash [32]byte) ([]byte, bool)
	// Info returns the balance of the given service.
	Info(service uint64) (balance uint64, ok bool)
}

// Handler implements one named host call. It reads arguments from
// m.Regs/m.Mem, performs its effect against the Dispatcher's Store, and
// writes its result (typically a sentinel) back into r7.
type Handler func(d *Dispatcher, m *pvm.Machine) *pvm.ExitReason

// Dispatcher wires a PVM machine's ECALLI traps to the named host-call
// table for one invocation context.
type Dispatcher struct {
	Context   Context
	Store     Store
	ServiceID uint64
	Slot      uint64

	// FetchBlobs is the invocation's indexed input data, read back by the
	// `fetch` host call: the caller loads slot-0 with the entry point's
	// operand tuple and any further slots with context-specific blobs
	// (extrinsic payloads, imported segments) before running the machine.
	FetchBlobs [][]byte

	// Exports collects segments emitted via the `export` host call, in
	// emission order. Consumed by the refine pipeline after the machine
	// halts.
	Exports [][]byte

	handlers   map[uint64]Handler
	machines   map[uint64]*nestedMachine
	nextHandle uint64
}

// NewDispatcher returns a dispatcher bound to ctx, ready to register
// handlers via Register or DefaultHandlers.
func NewDispatcher(ctx Context, store Store, serviceID uint64, slot uint64) *Dispatcher {
	return &Dispatcher{
		Context:   ctx,
		Store:     store,
		ServiceID: serviceID,
		Slot:      slot,
		handlers:  make(map[uint64]Handler),
	}
}

// Register installs h for call code.
func (d *Dispatcher) Register(call uint64, h Handler) { d.handlers[call] = h }

// HostCallFunc adapts Dispatch to pvm.Machine.HostCall.
func (d *Dispatcher) HostCallFunc() pvm.HostCallFunc {
	return func(m *pvm.Machine, call uint64) *pvm.ExitReason {
		return d.Dispatch(m, call)
	}
}

// Dispatch is the ECALLI entry point: validates the whitelist, debits the
// minimum cost, and runs the named handler if permitted and known.
func (d *Dispatcher) Dispatch(m *pvm.Machine, call uint64) *pvm.ExitReason {
	if !m.Gas.Charge(MinCallGas) {
		return outOfGas()
	}
	if !Permitted(d.Context, call) {
		m.Regs.Set(7, WHAT)
		return nil
	}
	h, ok := d.handlers[call]
	if !ok {
		m.Regs.Set(7, WHAT)
		return nil
	}
	return h(d, m)
}

func outOfGas() *pvm.ExitReason { return &pvm.ExitReason{Kind: pvm.OutOfGas} }
