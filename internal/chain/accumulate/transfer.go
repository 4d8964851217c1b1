package accumulate

import (
	"github.com/jamnode/jamcore/internal/codec"
	"github.com/jamnode/jamcore/internal/config"
	"github.com/jamnode/jamcore/internal/hostcall"
	"github.com/jamnode/jamcore/internal/pvm"
	"github.com/jamnode/jamcore/internal/state"
)

// applyTransfers credits each deferred transfer's balance to its destination
// service and, if the destination holds code, invokes its `transfer` entry
// point with the sender, balance, and memo (§4.5 `transfer`, §2: "deferred
// transfers are processed after every accumulation in the block has run").
//
// Grounded on pkg/core/vm/evm.go's Call-after-value-transfer sequencing
// (credit the recipient's balance, then run its code if any).
func applyTransfers(cfg *config.Config, st *state.State, transfers []deferredTransfer, slot uint32) (map[state.ServiceId]uint32, map[state.ServiceId]uint64) {
	count := map[state.ServiceId]uint32{}
	gas := map[state.ServiceId]uint64{}

	byDest := map[state.ServiceId][]deferredTransfer{}
	var order []state.ServiceId
	for _, t := range transfers {
		if _, ok := byDest[t.To]; !ok {
			order = append(order, t.To)
		}
		byDest[t.To] = append(byDest[t.To], t)
	}

	for _, dest := range order {
		acc := st.Services[dest]
		if acc == nil {
			continue
		}
		group := byDest[dest]
		var totalGas uint64
		for _, t := range group {
			acc.Balance += t.Balance
			count[dest]++
			totalGas += t.Gas
		}
		gas[dest] += totalGas

		code, ok := acc.Preimages[acc.CodeHash]
		if !ok {
			continue
		}
		prog, err := pvm.Decode(code)
		if err != nil {
			continue
		}
		argv := encodeTransferOperands(dest, slot, group)
		mem, regs := pvm.BuildImage(&pvm.StandardProgram{Argv: argv, HeapPages: 16, StackSize: pvm.PageSize * 4})

		store := &state.ServiceStore{State: st, Service: dest, Slot: slot}
		disp := hostcall.NewDispatcher(hostcall.Transfer, store, uint64(dest), uint64(slot))
		disp.FetchBlobs = [][]byte{argv}
		hostcall.DefaultHandlers(disp)

		m := pvm.NewMachine(prog, mem, int64(totalGas))
		m.Regs = *regs
		m.HostCall = disp.HostCallFunc()
		m.Run()
	}

	return count, gas
}

// encodeTransferOperands serializes the transfer entry point's argument
// tuple: slot, destination service id, transfer count, then each transfer's
// sender, balance, and memo.
func encodeTransferOperands(dest state.ServiceId, slot uint32, transfers []deferredTransfer) []byte {
	w := codec.NewWriter(64 + 64*len(transfers))
	w.PutU32(slot)
	w.PutU32(uint32(dest))
	w.PutU32(uint32(len(transfers)))
	for _, t := range transfers {
		w.PutU32(uint32(t.From))
		w.PutU64(t.Balance)
		w.PutU64(t.Gas)
		w.PutU32(uint32(len(t.Memo)))
		w.PutRaw(t.Memo)
	}
	return w.Bytes()
}
