package hostcall

// Context identifies which PVM invocation site is calling into the host,
// which bounds the set of permitted host-call codes (§4.5).
type Context int

const (
	Accumulate Context = iota
	Refine
	Transfer
	IsAuthorized
)

func (c Context) String() string {
	switch c {
	case Accumulate:
		return "accumulate"
	case Refine:
		return "refine"
	case Transfer:
		return "transfer"
	case IsAuthorized:
		return "is-authorized"
	default:
		return "unknown"
	}
}

// Named host-call codes (§4.5). Only `log` has a spec-fixed numeric value
// (100); the others are assigned in the order the spec lists them.
const (
	CallGas uint64 = iota
	CallFetch
	CallLookup
	CallRead
	CallWrite
	CallInfo
	CallHistoricalLookup
	CallExport
	CallMachine
	CallPeek
	CallPoke
	CallPages
	CallInvoke
	CallExpunge
	CallBless
	CallAssign
	CallDesignate
	CallCheckpoint
	CallNew
	CallUpgrade
	CallTransfer
	CallEject
	CallQuery
	CallSolicit
	CallForget
	CallYield
	CallProvide
)

// CallLog is fixed at 100 by the spec.
const CallLog uint64 = 100

// whitelists encode which calls each context may invoke. Accumulate gets
// the full surface; refine drops state-mutating/account-lifecycle calls
// (bless/assign/designate/checkpoint/new/upgrade/transfer/eject/solicit/
// forget/yield/provide) since it runs off-chain and cannot touch service
// state directly; transfer and is-authorized are narrower still, matching
// their single-purpose invocation contracts (§2, §4.11).
var whitelists = map[Context]map[uint64]bool{
	Accumulate: setOf(
		CallGas, CallFetch, CallLookup, CallRead, CallWrite, CallInfo,
		CallHistoricalLookup, CallExport, CallMachine, CallPeek, CallPoke,
		CallPages, CallInvoke, CallExpunge, CallBless, CallAssign,
		CallDesignate, CallCheckpoint, CallNew, CallUpgrade, CallTransfer,
		CallEject, CallQuery, CallSolicit, CallForget, CallYield,
		CallProvide, CallLog,
	),
	Refine: setOf(
		CallGas, CallFetch, CallLookup, CallRead, CallWrite, CallInfo,
		CallHistoricalLookup, CallExport, CallMachine, CallPeek, CallPoke,
		CallPages, CallInvoke, CallExpunge, CallLog,
	),
	Transfer: setOf(
		CallGas, CallFetch, CallRead, CallWrite, CallInfo, CallLog,
	),
	IsAuthorized: setOf(
		CallGas, CallFetch, CallLog,
	),
}

func setOf(codes ...uint64) map[uint64]bool {
	m := make(map[uint64]bool, len(codes))
	for _, c := range codes {
		m[c] = true
	}
	return m
}

// Permitted reports whether ctx may invoke the given call code.
func Permitted(ctx Context, call uint64) bool {
	return whitelists[ctx][call]
}
