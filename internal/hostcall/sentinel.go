// Package hostcall implements the PVM's ECALLI dispatch: the named general
// host calls shared by the accumulate, refine, transfer, and is-authorized
// contexts (§4.5), their per-context whitelists, and the r7 sentinel ABI.
//
// Grounded on the teacher's EVM precompile dispatch
// (pkg/core/vm/contracts.go-style "numeric id -> handler" table) generalized
// from EVM precompiles to PVM host calls, and on the jump-table dispatch
// idiom shared with internal/pvm.
package hostcall

// Sentinel values placed in r7 on return from a host call (§4.5).
const (
	OK   uint64 = 0
	NONE uint64 = ^uint64(0)
	WHAT uint64 = ^uint64(0) - 1
	OOB  uint64 = ^uint64(0) - 2
	WHO  uint64 = ^uint64(0) - 3
	FULL uint64 = ^uint64(0) - 4
	CORE uint64 = ^uint64(0) - 5
	CASH uint64 = ^uint64(0) - 6
	LOW  uint64 = ^uint64(0) - 7
	HUH  uint64 = ^uint64(0) - 8
)

// MinCallGas is the minimum gas every host call debits, even no-ops and
// whitelist rejections (§4.5: "non-permitted codes ... debit 10 gas").
const MinCallGas = 10
