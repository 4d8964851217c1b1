package report

import (
	"errors"

	"github.com/jamnode/jamcore/internal/chain/auth"
	"github.com/jamnode/jamcore/internal/codec"
	"github.com/jamnode/jamcore/internal/config"
	"github.com/jamnode/jamcore/internal/oracle"
	"github.com/jamnode/jamcore/internal/state"
)

func reportSize(r *state.WorkReport) int {
	w := codec.NewWriter(1024)
	r.Encode(w)
	return len(w.Bytes())
}

// Errors (§4.8, §7).
var (
	ErrBadCoreIndex            = errors.New("report: core index out of range")
	ErrFutureReportSlot        = errors.New("report: guarantee slot is in the future")
	ErrOutOfOrderGuarantee     = errors.New("report: guarantees not ordered by strictly increasing core index")
	ErrWrongAssignment         = errors.New("report: guarantor is not assigned to this core")
	ErrCoreEngaged             = errors.New("report: core already holds a fresh pending report")
	ErrAnchorNotRecent         = errors.New("report: anchor is not within recent history")
	ErrBadServiceId            = errors.New("report: unknown service id")
	ErrBadCodeHash             = errors.New("report: result code hash does not match service code hash")
	ErrDependencyMissing       = errors.New("report: work-package dependency unresolved")
	ErrDuplicatePackage        = errors.New("report: work-package already reported")
	ErrCoreUnauthorized        = errors.New("report: authorizer hash not in core's pool")
	ErrWorkReportGasTooHigh    = errors.New("report: total gas exceeds the work-report limit")
	ErrServiceItemGasTooLow    = errors.New("report: result gas below service's accumulate minimum")
	ErrTooManyDependencies     = errors.New("report: too many prerequisite dependencies")
	ErrSegmentRootLookupInvalid = errors.New("report: segment-root lookup invalid")
	ErrBadGuaranteeSignature   = errors.New("report: guarantor signature verification failed")
	ErrWorkReportTooBig        = errors.New("report: work-report exceeds the maximum size")
)

// MaxDependencies bounds a report's prerequisite list; chosen generously
// since the spec names the error without a numeric constant.
const MaxDependencies = 8

// MaxReportBytes bounds a guaranteed report's encoded size.
const MaxReportBytes = 1 << 20

// GuaranteeOutput is the Ok/Err union for guarantee processing (§7).
type GuaranteeOutput struct {
	Placed []oracle.Hash // package hashes newly placed into availability
	Err    error
}

// ProcessGuarantees validates and places the block's guaranteed reports
// into their cores' availability slots (§4.8).
func ProcessGuarantees(
	cfg *config.Config,
	availability state.Availability,
	authPools [][]oracle.Hash,
	services map[state.ServiceId]*state.Account,
	recentHistory *state.RecentHistory,
	prevValidators, currValidators state.Validators,
	entropy2 oracle.Hash,
	guarantees []state.Guarantee,
	currentSlot uint32,
	guarantorMsg func(report *state.WorkReport) []byte,
) GuaranteeOutput {
	for i := 1; i < len(guarantees); i++ {
		if guarantees[i-1].Report.Core >= guarantees[i].Report.Core {
			return GuaranteeOutput{Err: ErrOutOfOrderGuarantee}
		}
	}

	reported := recentHistory.ReportedWorkPackages()
	var placed []oracle.Hash

	for _, g := range guarantees {
		report := g.Report
		core := report.Core
		if uint32(core) >= cfg.Cores {
			return GuaranteeOutput{Err: ErrBadCoreIndex}
		}
		if g.Slot > currentSlot {
			return GuaranteeOutput{Err: ErrFutureReportSlot}
		}
		if len(report.Context.Prerequisites) > MaxDependencies {
			return GuaranteeOutput{Err: ErrTooManyDependencies}
		}
		if reportSize(&report) > MaxReportBytes {
			return GuaranteeOutput{Err: ErrWorkReportTooBig}
		}
		if reported[report.PackageHash] {
			return GuaranteeOutput{Err: ErrDuplicatePackage}
		}
		if !recentHistory.HasAnchor(report.Context.StateRoot) {
			return GuaranteeOutput{Err: ErrAnchorNotRecent}
		}

		idx := auth.IndexOf(authPools, core, report.AuthorizerHash)
		if idx < 0 {
			return GuaranteeOutput{Err: ErrCoreUnauthorized}
		}

		var totalGas uint64
		for _, res := range report.Results {
			svc, ok := services[res.ServiceId]
			if !ok {
				return GuaranteeOutput{Err: ErrBadServiceId}
			}
			if svc.CodeHash != res.CodeHash {
				return GuaranteeOutput{Err: ErrBadCodeHash}
			}
			if res.Gas < svc.AccMinGas {
				return GuaranteeOutput{Err: ErrServiceItemGasTooLow}
			}
			totalGas += res.Gas
		}
		if totalGas > cfg.WorkReportGasLimit {
			return GuaranteeOutput{Err: ErrWorkReportGasTooHigh}
		}

		window := RotationWindow(cfg, g.Slot)
		validatorSet := currValidators
		expected := ExpectedGuarantors(cfg, entropy2, len(currValidators), core, g.Slot)
		if cfg.SlotInEpoch(currentSlot)/cfg.RotationPeriod != window && len(prevValidators) > 0 {
			validatorSet = prevValidators
			expected = ExpectedGuarantors(cfg, entropy2, len(prevValidators), core, g.Slot)
		}
		for _, sig := range g.Signatures {
			if !containsValidatorIndex(expected, sig.ValidatorIndex) {
				return GuaranteeOutput{Err: ErrWrongAssignment}
			}
			if int(sig.ValidatorIndex) >= len(validatorSet) {
				return GuaranteeOutput{Err: ErrWrongAssignment}
			}
			if !oracle.Ed25519Verify(validatorSet[sig.ValidatorIndex].Ed25519, guarantorMsg(&report), sig.Signature) {
				return GuaranteeOutput{Err: ErrBadGuaranteeSignature}
			}
		}

		existing := availability[core]
		if existing.Report != nil && currentSlot-existing.TimeoutSlot < cfg.ReportedWorkReplacePeriod {
			return GuaranteeOutput{Err: ErrCoreEngaged}
		}

		auth.Consume(authPools, core, idx)
		rep := report
		availability[core] = state.CoreAssignment{Report: &rep, TimeoutSlot: currentSlot}
		placed = append(placed, report.PackageHash)
	}

	return GuaranteeOutput{Placed: placed}
}
