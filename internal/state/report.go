package state

import (
	"github.com/jamnode/jamcore/internal/codec"
	"github.com/jamnode/jamcore/internal/oracle"
)

// RefineContext anchors a work-report to a recent block: the state/beefy
// roots it was refined against, plus an optional lookup anchor used for
// historical preimage lookups during refinement (§4.8, SPEC_FULL supplement
// from original_source's refine_context.rs).
type RefineContext struct {
	Anchor           oracle.Hash
	StateRoot        oracle.Hash
	BeefyRoot        oracle.Hash
	LookupAnchor     oracle.Hash
	LookupAnchorSlot uint32
	Prerequisites    []oracle.Hash
}

func (c RefineContext) encode(w *codec.Writer) {
	w.PutRaw(c.Anchor[:])
	w.PutRaw(c.StateRoot[:])
	w.PutRaw(c.BeefyRoot[:])
	w.PutRaw(c.LookupAnchor[:])
	w.PutU32(c.LookupAnchorSlot)
	codec.EncodeSeq(w, c.Prerequisites, func(w *codec.Writer, h oracle.Hash) { w.PutRaw(h[:]) })
}

func decodeRefineContext(r *codec.Reader) (RefineContext, error) {
	var c RefineContext
	for _, dst := range []*oracle.Hash{&c.Anchor, &c.StateRoot, &c.BeefyRoot, &c.LookupAnchor} {
		b, err := r.RawBytes(32)
		if err != nil {
			return c, err
		}
		copy(dst[:], b)
	}
	slot, err := r.U32()
	if err != nil {
		return c, err
	}
	c.LookupAnchorSlot = slot
	deps, err := codec.DecodeSeq(r, func(r *codec.Reader) (oracle.Hash, error) {
		b, err := r.RawBytes(32)
		if err != nil {
			return oracle.Hash{}, err
		}
		var h oracle.Hash
		copy(h[:], b)
		return h, nil
	})
	if err != nil {
		return c, err
	}
	c.Prerequisites = deps
	return c, nil
}

// WorkResultOutput is the tagged union of a work-result's outcome: either
// the service-produced output blob, or one of a fixed set of PVM-level
// failure codes recorded for accumulation but never fatal to the STF (§7).
type WorkResultOutput struct {
	Ok    []byte
	Error WorkResultError
	IsErr bool
}

// WorkResultError enumerates the non-fatal per-result outcomes (§7).
type WorkResultError uint8

const (
	WorkResultOK WorkResultError = iota
	WorkResultOutOfGas
	WorkResultPanic
	WorkResultBadCode
	WorkResultCodeOversize
)

func (o WorkResultOutput) encode(w *codec.Writer) {
	if o.IsErr {
		w.PutU8(1)
		w.PutU8(uint8(o.Error))
		return
	}
	w.PutU8(0)
	w.PutBlob(o.Ok)
}

func decodeWorkResultOutput(r *codec.Reader) (WorkResultOutput, error) {
	var o WorkResultOutput
	tag, err := r.U8()
	if err != nil {
		return o, err
	}
	switch tag {
	case 0:
		b, err := r.Blob()
		if err != nil {
			return o, err
		}
		o.Ok = b
		return o, nil
	case 1:
		e, err := r.U8()
		if err != nil {
			return o, err
		}
		o.IsErr = true
		o.Error = WorkResultError(e)
		return o, nil
	default:
		return o, codec.ErrInvalidData
	}
}

// WorkResult is one unit's output within a work-report (§3, §4.11).
type WorkResult struct {
	ServiceId   ServiceId
	CodeHash    oracle.Hash
	PayloadHash oracle.Hash
	Gas         uint64
	Output      WorkResultOutput
}

func (r WorkResult) encode(w *codec.Writer) {
	w.PutU32(uint32(r.ServiceId))
	w.PutRaw(r.CodeHash[:])
	w.PutRaw(r.PayloadHash[:])
	w.PutU64(r.Gas)
	r.Output.encode(w)
}

func decodeWorkResult(r *codec.Reader) (WorkResult, error) {
	var res WorkResult
	svc, err := r.U32()
	if err != nil {
		return res, err
	}
	res.ServiceId = ServiceId(svc)
	b, err := r.RawBytes(32)
	if err != nil {
		return res, err
	}
	copy(res.CodeHash[:], b)
	b, err = r.RawBytes(32)
	if err != nil {
		return res, err
	}
	copy(res.PayloadHash[:], b)
	gas, err := r.U64()
	if err != nil {
		return res, err
	}
	res.Gas = gas
	out, err := decodeWorkResultOutput(r)
	if err != nil {
		return res, err
	}
	res.Output = out
	return res, nil
}

// WorkReport is the post-refine summary of a work-package guaranteed onto a
// core (§3, §4.8).
type WorkReport struct {
	PackageHash     oracle.Hash
	Context         RefineContext
	Core            uint16
	AuthorizerHash  oracle.Hash
	SegmentRootHash oracle.Hash
	Results         []WorkResult
}

// Encode writes the report's canonical encoding.
func (wr *WorkReport) Encode(w *codec.Writer) {
	w.PutRaw(wr.PackageHash[:])
	wr.Context.encode(w)
	w.PutU16(wr.Core)
	w.PutRaw(wr.AuthorizerHash[:])
	w.PutRaw(wr.SegmentRootHash[:])
	codec.EncodeSeq(w, wr.Results, func(w *codec.Writer, r WorkResult) { r.encode(w) })
}

// DecodeWorkReport reads a report written by Encode.
func DecodeWorkReport(r *codec.Reader) (*WorkReport, error) {
	wr := &WorkReport{}
	b, err := r.RawBytes(32)
	if err != nil {
		return nil, err
	}
	copy(wr.PackageHash[:], b)
	ctx, err := decodeRefineContext(r)
	if err != nil {
		return nil, err
	}
	wr.Context = ctx
	core, err := r.U16()
	if err != nil {
		return nil, err
	}
	wr.Core = core
	b, err = r.RawBytes(32)
	if err != nil {
		return nil, err
	}
	copy(wr.AuthorizerHash[:], b)
	b, err = r.RawBytes(32)
	if err != nil {
		return nil, err
	}
	copy(wr.SegmentRootHash[:], b)
	results, err := codec.DecodeSeq(r, decodeWorkResult)
	if err != nil {
		return nil, err
	}
	wr.Results = results
	return wr, nil
}

// Hash returns the Blake2-256 hash of the report's canonical encoding, used
// as its identity in recent_history, disputes and ready_queue.
func (wr *WorkReport) Hash() oracle.Hash {
	w := codec.NewWriter(512)
	wr.Encode(w)
	return oracle.Blake2b256(w.Bytes())
}

// TotalGas returns the sum of every result's declared gas, checked against
// WORK_REPORT_GAS_LIMIT by the report processor (§4.8).
func (wr *WorkReport) TotalGas() uint64 {
	var total uint64
	for _, res := range wr.Results {
		total += res.Gas
	}
	return total
}
