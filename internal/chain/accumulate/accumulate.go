// Package accumulate implements the accumulation processor (§4.11): the
// stage that invokes service code in the PVM against newly-available and
// previously-queued work-reports, stages the resulting account mutations,
// collects deferred inter-service transfers, and folds the block's
// accumulation-result root into recent history.
//
// Grounded on pkg/core/state_processor.go's "apply transactions, collect
// receipts, finalize block" shape (the teacher's EVM block processor),
// generalized from one transaction per invocation to one service per
// invocation, and on pkg/core/vm/evm.go's Call/StaticCall dispatch for the
// nested transfer-then-invoke sequencing.
package accumulate

import (
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/jamnode/jamcore/internal/codec"
	"github.com/jamnode/jamcore/internal/config"
	"github.com/jamnode/jamcore/internal/hostcall"
	"github.com/jamnode/jamcore/internal/oracle"
	"github.com/jamnode/jamcore/internal/pvm"
	"github.com/jamnode/jamcore/internal/state"
)

// Output is the accumulation step's result (§4.12 step 7, §4.11):
// the root folded into recent_history, per-service output hashes recorded
// into recent_acc_outputs, gas spent per service for statistics, the
// updated ready-queue bucket for reports still missing dependencies, and
// any privilege/authorizer-queue changes issued by a privileged service.
type Output struct {
	Root              oracle.Hash
	AccumulatedHashes []oracle.Hash
	ServiceOutputs    map[state.ServiceId]oracle.Hash
	GasUsed           map[state.ServiceId]uint64
	TransferCount     map[state.ServiceId]uint32
	TransferGas       map[state.ServiceId]uint64
	Carried           []state.ReadyItem
	NewPrivileges     *state.Privileges
	AuthQueueUpdates  map[uint16][]oracle.Hash
}

// deferredTransfer is a pending balance/memo move emitted by a service's
// `transfer` host call during accumulation, applied to the destination
// service's `transfer` entry point only once every accumulation this block
// has finished (§4.11, §2: "deferred transfers").
type deferredTransfer struct {
	From, To state.ServiceId
	Balance  uint64
	Gas      uint64
	Memo     []byte
}

// newServiceRecord pairs a freshly allocated service id with its account,
// staged by the `new` host call and committed into global state once the
// parallel accumulation phase completes (§4.5 `new`).
type newServiceRecord struct {
	id  state.ServiceId
	acc *state.Account
}

// pending is one service's accumulation unit: its originating reports'
// results, concatenated in report order.
type pending struct {
	service state.ServiceId
	results []state.WorkResult
}

// Process runs the accumulation stage for one block (§4.11).
//
// newlyAvailable are the work-reports that reached availability supermajority
// this block (from the assurances step); carriedIn is the ready-queue bucket
// due this slot from a prior block. Both are merged, dependency-checked
// against st.AccumulationHistory and the reports already accumulated earlier
// in this same call, grouped per service, and invoked in ascending service-id
// order under a shared gas budget of cfg.TotalGasAllocated.
func Process(cfg *config.Config, st *state.State, newlyAvailable []*state.WorkReport, carriedIn []state.ReadyItem, slot uint32) Output {
	accumulated := make(map[oracle.Hash]bool)
	for _, bucket := range st.AccumulationHistory {
		for _, h := range bucket {
			accumulated[h] = true
		}
	}

	type candidate struct {
		report state.WorkReport
		deps   []oracle.Hash
	}
	var queue []candidate
	for _, r := range newlyAvailable {
		queue = append(queue, candidate{report: *r, deps: r.Context.Prerequisites})
	}
	for _, it := range carriedIn {
		queue = append(queue, candidate{report: it.Report, deps: it.Dependencies})
	}

	var ready []state.WorkReport
	var carried []state.ReadyItem
	progress := true
	for progress {
		progress = false
		var remaining []candidate
		for _, c := range queue {
			if depsSatisfied(c.deps, accumulated) {
				ready = append(ready, c.report)
				accumulated[c.report.PackageHash] = true
				progress = true
			} else {
				remaining = append(remaining, c)
			}
		}
		queue = remaining
	}
	for _, c := range queue {
		carried = append(carried, state.ReadyItem{Report: c.report, Dependencies: unsatisfied(c.deps, accumulated)})
	}

	byService := map[state.ServiceId]*pending{}
	var order []state.ServiceId
	for _, report := range ready {
		for _, res := range report.Results {
			p, ok := byService[res.ServiceId]
			if !ok {
				p = &pending{service: res.ServiceId}
				byService[res.ServiceId] = p
				order = append(order, res.ServiceId)
			}
			p.results = append(p.results, res)
		}
	}
	for _, svc := range st.Privileges.AlwaysAccumulate {
		if _, ok := byService[svc]; !ok {
			byService[svc] = &pending{service: svc}
			order = append(order, svc)
		}
	}
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })

	var transfers []deferredTransfer
	var newServices []newServiceRecord
	var ejected []state.ServiceId
	var mu sync.Mutex

	authUpdates := map[uint16][]oracle.Hash{}
	privileges := st.Privileges.Clone()
	serviceOutputs := map[state.ServiceId]oracle.Hash{}
	gasUsed := map[state.ServiceId]uint64{}

	nextServiceID := nextFreeServiceID(st)

	remaining := cfg.TotalGasAllocated
	type unit struct {
		svc     state.ServiceId
		acc     *state.Account
		results []state.WorkResult
		gas     uint64
	}
	var units []unit
	for _, svc := range order {
		acc := st.Services[svc]
		if acc == nil {
			continue
		}
		p := byService[svc]
		want := uint64(0)
		for _, r := range p.results {
			want += r.Gas
		}
		if want == 0 {
			want = acc.AccMinGas
		}
		if want > remaining {
			want = remaining
		}
		remaining -= want
		units = append(units, unit{svc: svc, acc: acc.Clone(), results: p.results, gas: want})
	}

	idCounter := new(uint64)
	g := new(errgroup.Group)
	results := make([]*invocationResult, len(units))
	for i, u := range units {
		i, u := i, u
		g.Go(func() error {
			ctx := &invocationContext{
				self:          u.svc,
				slot:          slot,
				staged:        u.acc,
				mu:            &mu,
				transfers:     &transfers,
				newServices:   &newServices,
				ejected:       &ejected,
				authUpdates:   authUpdates,
				privileges:    privileges,
				nextServiceID: nextServiceID,
				idCounter:     idCounter,
				lookup:        st.Services,
			}
			results[i] = invoke(ctx, u.svc, u.acc, u.results, u.gas)
			return nil
		})
	}
	_ = g.Wait()

	for i, u := range units {
		r := results[i]
		if r == nil {
			continue
		}
		st.Services[u.svc] = r.account
		gasUsed[u.svc] = r.gasUsed
		if r.output != nil {
			serviceOutputs[u.svc] = *r.output
		}
	}

	for _, rec := range newServices {
		st.Services[rec.id] = rec.acc
	}
	for _, svc := range ejected {
		delete(st.Services, svc)
	}
	st.Privileges = privileges
	for core, hashes := range authUpdates {
		if int(core) < len(st.AuthQueues) {
			st.AuthQueues[core] = hashes
		}
	}

	transferCount, transferGas := applyTransfers(cfg, st, transfers, slot)

	var accumulatedHashes []oracle.Hash
	for _, r := range ready {
		accumulatedHashes = append(accumulatedHashes, r.PackageHash)
	}
	root := accumulationRoot(accumulatedHashes, serviceOutputs)

	return Output{
		Root:              root,
		AccumulatedHashes: accumulatedHashes,
		ServiceOutputs:    serviceOutputs,
		GasUsed:           gasUsed,
		TransferCount:     transferCount,
		TransferGas:       transferGas,
		Carried:           carried,
		NewPrivileges:     privileges,
		AuthQueueUpdates:  authUpdates,
	}
}

func depsSatisfied(deps []oracle.Hash, done map[oracle.Hash]bool) bool {
	for _, d := range deps {
		if !done[d] {
			return false
		}
	}
	return true
}

func unsatisfied(deps []oracle.Hash, done map[oracle.Hash]bool) []oracle.Hash {
	var out []oracle.Hash
	for _, d := range deps {
		if !done[d] {
			out = append(out, d)
		}
	}
	return out
}

func nextFreeServiceID(st *state.State) state.ServiceId {
	var max state.ServiceId
	for id := range st.Services {
		if id > max {
			max = id
		}
	}
	return max + 1
}

// accumulationRoot folds the accumulated package hashes and per-service
// output hashes into the single root appended to the accumulation-result
// MMR (§3, §4.2 step 9). Grounded on pkg/trie/merkle.go's "hash the sorted
// leaf list" pattern, generalized to a flat Blake2 fold since the
// accumulation root itself is just one MMR leaf rather than a full trie.
func accumulationRoot(hashes []oracle.Hash, outputs map[state.ServiceId]oracle.Hash) oracle.Hash {
	w := codec.NewWriter(32 * (len(hashes) + len(outputs)))
	for _, h := range hashes {
		w.PutRaw(h[:])
	}
	ids := make([]state.ServiceId, 0, len(outputs))
	for id := range outputs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		h := outputs[id]
		w.PutU32(uint32(id))
		w.PutRaw(h[:])
	}
	return oracle.Blake2b256(w.Bytes())
}

// invocationResult is one service's post-invocation view, committed back
// into global state single-threaded once every goroutine has returned.
type invocationResult struct {
	account *state.Account
	gasUsed uint64
	output  *oracle.Hash
}

// invoke decodes svc's code (held as one of its own preimages, keyed by
// CodeHash) and runs its `accumulate` entry point against the given
// work-results, building the operand tuple into argv per the standard
// program image layout (§4.4, §4.11).
func invoke(ctx *invocationContext, svc state.ServiceId, acc *state.Account, results []state.WorkResult, gas uint64) *invocationResult {
	code, ok := acc.Preimages[acc.CodeHash]
	if !ok {
		return &invocationResult{account: acc, gasUsed: 0}
	}
	prog, err := pvm.Decode(code)
	if err != nil {
		return &invocationResult{account: acc, gasUsed: 0}
	}

	argv := encodeOperands(svc, ctx.slot, results)
	mem, regs := pvm.BuildImage(&pvm.StandardProgram{Argv: argv, HeapPages: 16, StackSize: pvm.PageSize * 4})

	disp := hostcall.NewDispatcher(hostcall.Accumulate, &serviceStore{ctx: ctx}, uint64(svc), uint64(ctx.slot))
	disp.FetchBlobs = [][]byte{argv}
	hostcall.DefaultHandlers(disp)
	registerPrivileged(disp, ctx)

	m := pvm.NewMachine(prog, mem, int64(gas))
	m.Regs = *regs
	m.HostCall = disp.HostCallFunc()

	before := m.Gas.Remaining()
	m.Run()
	used := before - m.Gas.Remaining()

	var out *oracle.Hash
	if h, ok := ctx.yielded(); ok {
		out = &h
	}
	return &invocationResult{account: ctx.staged, gasUsed: uint64(used), output: out}
}

// encodeOperands serializes the accumulate entry point's argument tuple:
// slot, service id, result count, then each result's payload hash, error
// tag, and declared gas. Grounded on the shape of pkg/core/vm/evm.go's
// calldata-as-length-prefixed tuple convention.
func encodeOperands(svc state.ServiceId, slot uint32, results []state.WorkResult) []byte {
	w := codec.NewWriter(64 + 64*len(results))
	w.PutU32(slot)
	w.PutU32(uint32(svc))
	w.PutU32(uint32(len(results)))
	for _, r := range results {
		w.PutRaw(r.PayloadHash[:])
		if r.Output.IsErr {
			w.PutU8(1)
			w.PutU8(byte(r.Output.Error))
		} else {
			w.PutU8(0)
			w.PutU32(uint32(len(r.Output.Ok)))
			w.PutRaw(r.Output.Ok)
		}
		w.PutU64(r.Gas)
	}
	return w.Bytes()
}
