package state

import "github.com/jamnode/jamcore/internal/oracle"

// EntropyPool is the four-accumulator rolling entropy buffer η₀..η₃ (§3).
// η₀ is updated every block from the header's entropy source; the whole
// pool rotates at every epoch boundary (§4.6 step 1).
type EntropyPool [4]oracle.Hash

// BlockInfo is one entry of recent_history (§3): the header hash, the
// accumulation-result root folded into it this block, the posterior state
// root, and the work-packages reported in that block.
type BlockInfo struct {
	HeaderHash  oracle.Hash
	AccResult   oracle.Hash
	StateRoot   oracle.Hash
	ReportedWP  []oracle.Hash
}

// RecentHistory is the bounded (≤8) deque of BlockInfo plus the MMR of
// accumulation roots (§3, §4.2, §4.12 step 9).
type RecentHistory struct {
	Entries []BlockInfo
	MMR     []*oracle.Hash // option-tagged peaks, mirrors trie.MMR's shape
}

// Push appends info, trimming the deque to at most max entries (§3 invariant:
// recent_history.len() ≤ 8).
func (h *RecentHistory) Push(info BlockInfo, max int) {
	h.Entries = append(h.Entries, info)
	if len(h.Entries) > max {
		h.Entries = h.Entries[len(h.Entries)-max:]
	}
}

// ReportedWorkPackages returns the set of work-package hashes visible across
// every entry, used by the accumulation processor to check a report's
// dependencies are already satisfied (§4.11 step 1).
func (h *RecentHistory) ReportedWorkPackages() map[oracle.Hash]bool {
	out := make(map[oracle.Hash]bool)
	for _, e := range h.Entries {
		for _, wp := range e.ReportedWP {
			out[wp] = true
		}
	}
	return out
}

// HasAnchor reports whether stateRoot equals the posterior state root of
// any entry still held in the deque, used by the guarantee processor's
// AnchorNotRecent check (§4.8). It checks no beefy root and no slot age.
func (h *RecentHistory) HasAnchor(stateRoot oracle.Hash) bool {
	for _, e := range h.Entries {
		if e.StateRoot == stateRoot {
			return true
		}
	}
	return false
}

// Clone deep-copies the recent history deque and MMR peaks.
func (h *RecentHistory) Clone() *RecentHistory {
	out := &RecentHistory{
		Entries: make([]BlockInfo, len(h.Entries)),
		MMR:     make([]*oracle.Hash, len(h.MMR)),
	}
	for i, e := range h.Entries {
		out.Entries[i] = BlockInfo{
			HeaderHash: e.HeaderHash,
			AccResult:  e.AccResult,
			StateRoot:  e.StateRoot,
			ReportedWP: append([]oracle.Hash(nil), e.ReportedWP...),
		}
	}
	for i, p := range h.MMR {
		if p == nil {
			continue
		}
		v := *p
		out.MMR[i] = &v
	}
	return out
}

// SafroleState is the block-author lottery state (§4.6): the pending
// validator set assembled for the next epoch, the per-epoch ticket
// accumulator, the committed seal sequence (tickets or fallback keys), and
// the Bandersnatch ring commitment over the current validator set.
type SafroleState struct {
	PendingValidators Validators
	TicketAccumulator []TicketEntry
	SealTickets       []TicketBody // committed, once the epoch rolls over
	SealFallback      []oracle.BandersnatchPublicKey
	UsesFallback      bool
	RingCommitment    oracle.RingCommitment
}

// TicketEntry is one accepted ticket held in the per-epoch accumulator,
// sorted by ID and truncated to EPOCH_LENGTH entries (§4.6).
type TicketEntry struct {
	ID      oracle.Hash
	Attempt uint8
}

// Clone returns a deep copy of the safrole state.
func (s *SafroleState) Clone() *SafroleState {
	out := &SafroleState{
		PendingValidators: s.PendingValidators.Clone(),
		TicketAccumulator: append([]TicketEntry(nil), s.TicketAccumulator...),
		SealTickets:       append([]TicketBody(nil), s.SealTickets...),
		SealFallback:      append([]oracle.BandersnatchPublicKey(nil), s.SealFallback...),
		UsesFallback:      s.UsesFallback,
		RingCommitment:    s.RingCommitment,
	}
	return out
}

// DisputesRecords holds the four key-sorted sets tracking judged
// work-report hashes and penalized keys (§3, §4.7).
type DisputesRecords struct {
	Good      []oracle.Hash
	Bad       []oracle.Hash
	Wonky     []oracle.Hash
	Offenders []oracle.Ed25519PublicKey
}

// Clone deep-copies the dispute sets.
func (d *DisputesRecords) Clone() *DisputesRecords {
	return &DisputesRecords{
		Good:      append([]oracle.Hash(nil), d.Good...),
		Bad:       append([]oracle.Hash(nil), d.Bad...),
		Wonky:     append([]oracle.Hash(nil), d.Wonky...),
		Offenders: append([]oracle.Ed25519PublicKey(nil), d.Offenders...),
	}
}

// IsBad reports whether hash has been classified bad.
func (d *DisputesRecords) IsBad(hash oracle.Hash) bool {
	for _, h := range d.Bad {
		if h == hash {
			return true
		}
	}
	return false
}

// CoreAssignment is one core's availability slot: at most one pending
// work-report awaiting assurance, plus the slot at which it was placed
// (used for the stale-replacement period, §4.8).
type CoreAssignment struct {
	Report      *WorkReport
	TimeoutSlot uint32
}

// Availability is the per-core availability-assignment array (§3).
type Availability []CoreAssignment

// Clone deep-copies the availability array.
func (a Availability) Clone() Availability {
	out := make(Availability, len(a))
	for i, c := range a {
		if c.Report != nil {
			rep := *c.Report
			c.Report = &rep
		}
		out[i] = c
	}
	return out
}

// AuthPools is the per-core bounded (≤8) queue of authorizer hashes (§3).
type AuthPools [][]oracle.Hash

// AuthQueues is the per-core fixed-length (80) queue of authorizer hashes
// (§3), the source auth_pools are refilled from.
type AuthQueues [][]oracle.Hash

func cloneHashSlices(in [][]oracle.Hash) [][]oracle.Hash {
	out := make([][]oracle.Hash, len(in))
	for i, s := range in {
		out[i] = append([]oracle.Hash(nil), s...)
	}
	return out
}

// Clone deep-copies the authorizer pool/queue arrays.
func (p AuthPools) Clone() AuthPools   { return AuthPools(cloneHashSlices(p)) }
func (q AuthQueues) Clone() AuthQueues { return AuthQueues(cloneHashSlices(q)) }

// ValidatorStats is one validator's per-epoch activity counters (§4.12 step
// 8): blocks authored, tickets submitted, preimages provided (count and
// total bytes), guarantees signed, assurances signed.
type ValidatorStats struct {
	Blocks        uint32
	Tickets       uint32
	Preimages     uint32
	PreimagesSize uint64
	Guarantees    uint32
	Assurances    uint32
}

// ServiceStats is one service's per-epoch accumulation/transfer counters.
type ServiceStats struct {
	AccumulateCount uint32
	AccumulateGas   uint64
	TransferCount   uint32
	TransferGas     uint64
}

// Statistics holds current and previous epoch per-validator counters, plus
// per-service counters (§3).
type Statistics struct {
	Current  []ValidatorStats
	Previous []ValidatorStats
	Services map[ServiceId]ServiceStats
}

// Clone deep-copies the statistics block.
func (s *Statistics) Clone() *Statistics {
	out := &Statistics{
		Current:  append([]ValidatorStats(nil), s.Current...),
		Previous: append([]ValidatorStats(nil), s.Previous...),
		Services: make(map[ServiceId]ServiceStats, len(s.Services)),
	}
	for k, v := range s.Services {
		out.Services[k] = v
	}
	return out
}

// ReadyItem is one report awaiting accumulation plus its still-unresolved
// work-package dependencies (§3, §4.11).
type ReadyItem struct {
	Report       WorkReport
	Dependencies []oracle.Hash
}

// ReadyQueue is the per-epoch-slot queue of ReadyItem awaiting
// accumulation (§3).
type ReadyQueue [][]ReadyItem

// Clone deep-copies the ready queue.
func (q ReadyQueue) Clone() ReadyQueue {
	out := make(ReadyQueue, len(q))
	for i, slot := range q {
		cp := make([]ReadyItem, len(slot))
		for j, it := range slot {
			cp[j] = ReadyItem{Report: it.Report, Dependencies: append([]oracle.Hash(nil), it.Dependencies...)}
		}
		out[i] = cp
	}
	return out
}

// AccumulationHistory is the per-epoch-slot queue of work-package hashes
// already accumulated (§3), used to resolve ready_queue dependencies
// alongside recent_history.
type AccumulationHistory [][]oracle.Hash

// Clone deep-copies the accumulation history.
func (h AccumulationHistory) Clone() AccumulationHistory {
	return AccumulationHistory(cloneHashSlices(h))
}

// Privileges names the services with elevated roles (§3): manager (bless),
// delegator (designate), assigner (assign), and the always-accumulate list
// (services accumulated every block regardless of new reports).
type Privileges struct {
	Manager         ServiceId
	Delegator       ServiceId
	Assigner        ServiceId
	AlwaysAccumulate []ServiceId
}

// Clone deep-copies the privileges block.
func (p *Privileges) Clone() *Privileges {
	return &Privileges{
		Manager:          p.Manager,
		Delegator:        p.Delegator,
		Assigner:         p.Assigner,
		AlwaysAccumulate: append([]ServiceId(nil), p.AlwaysAccumulate...),
	}
}
