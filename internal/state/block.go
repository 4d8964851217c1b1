// Package state holds the JAM global state product type (§3), the wire
// entities decoded from a block (§3 Block/Header/Extrinsic, §6 wire
// format), the 31-byte state-key construction (§4.10), and a per-service
// Store adapter consumed by internal/hostcall.
//
// Grounded on pkg/consensus/beacon_state.go (aggregate state-as-product-type
// shape) and pkg/core/state/state_object.go (account representation).
package state

import (
	"github.com/jamnode/jamcore/internal/codec"
	"github.com/jamnode/jamcore/internal/oracle"
)

// ServiceId identifies a service account.
type ServiceId uint32

// ValidatorIndex identifies a validator within the current set.
type ValidatorIndex uint16

// Header is a block header (§3), split into its unsigned fields and its
// seal. Encode/Decode cover the unsigned portion plus seal, in field
// declaration order (the spec's extrinsic reorder note applies only to the
// extrinsic, not the header).
type Header struct {
	Parent          oracle.Hash
	ParentStateRoot oracle.Hash
	ExtrinsicHash   oracle.Hash
	Slot            uint32
	EpochMark       *EpochMark
	TicketsMark     *TicketsMark
	OffendersMark   []oracle.Ed25519PublicKey
	AuthorIndex     ValidatorIndex
	EntropySource   oracle.RingVRFSignature
	Seal            oracle.RingVRFSignature
}

// EpochMark carries the entropy and Bandersnatch keys revealed at an epoch
// boundary, present on the first block of a new epoch.
type EpochMark struct {
	Entropy    oracle.Hash
	NextEntropy oracle.Hash
	Validators []oracle.BandersnatchPublicKey
}

// TicketsMark carries the finalized epoch ticket sequence, present on the
// first block of a new epoch when the accumulator filled (tickets mode).
type TicketsMark struct {
	Tickets []TicketBody
}

// TicketBody is one slot of the finalized seal sequence: a ticket id and
// the attempt number that produced it.
type TicketBody struct {
	ID      oracle.Hash
	Attempt uint8
}

// Encode writes the header in declaration order.
func (h *Header) Encode(w *codec.Writer) {
	w.PutRaw(h.Parent[:])
	w.PutRaw(h.ParentStateRoot[:])
	w.PutRaw(h.ExtrinsicHash[:])
	w.PutU32(h.Slot)
	codec.EncodeOption(w, h.EpochMark, func(w *codec.Writer, m EpochMark) { m.encode(w) })
	codec.EncodeOption(w, h.TicketsMark, func(w *codec.Writer, m TicketsMark) { m.encode(w) })
	codec.EncodeSeq(w, h.OffendersMark, func(w *codec.Writer, k oracle.Ed25519PublicKey) { w.PutRaw(k[:]) })
	w.PutU16(uint16(h.AuthorIndex))
	w.PutRaw(h.EntropySource[:])
	w.PutRaw(h.Seal[:])
}

func (m EpochMark) encode(w *codec.Writer) {
	w.PutRaw(m.Entropy[:])
	w.PutRaw(m.NextEntropy[:])
	codec.EncodeSeq(w, m.Validators, func(w *codec.Writer, k oracle.BandersnatchPublicKey) { w.PutRaw(k[:]) })
}

func (m TicketsMark) encode(w *codec.Writer) {
	codec.EncodeSeq(w, m.Tickets, func(w *codec.Writer, t TicketBody) {
		w.PutRaw(t.ID[:])
		w.PutU8(t.Attempt)
	})
}

// DecodeHeader reads a header written by Encode.
func DecodeHeader(r *codec.Reader) (*Header, error) {
	h := &Header{}
	if b, err := r.RawBytes(32); err != nil {
		return nil, err
	} else {
		copy(h.Parent[:], b)
	}
	if b, err := r.RawBytes(32); err != nil {
		return nil, err
	} else {
		copy(h.ParentStateRoot[:], b)
	}
	if b, err := r.RawBytes(32); err != nil {
		return nil, err
	} else {
		copy(h.ExtrinsicHash[:], b)
	}
	slot, err := r.U32()
	if err != nil {
		return nil, err
	}
	h.Slot = slot

	em, err := codec.DecodeOption(r, decodeEpochMark)
	if err != nil {
		return nil, err
	}
	h.EpochMark = em

	tm, err := codec.DecodeOption(r, decodeTicketsMark)
	if err != nil {
		return nil, err
	}
	h.TicketsMark = tm

	offenders, err := codec.DecodeSeq(r, func(r *codec.Reader) (oracle.Ed25519PublicKey, error) {
		b, err := r.RawBytes(32)
		if err != nil {
			return oracle.Ed25519PublicKey{}, err
		}
		var k oracle.Ed25519PublicKey
		copy(k[:], b)
		return k, nil
	})
	if err != nil {
		return nil, err
	}
	h.OffendersMark = offenders

	authorIdx, err := r.U16()
	if err != nil {
		return nil, err
	}
	h.AuthorIndex = ValidatorIndex(authorIdx)

	if b, err := r.RawBytes(96); err != nil {
		return nil, err
	} else {
		copy(h.EntropySource[:], b)
	}
	if b, err := r.RawBytes(96); err != nil {
		return nil, err
	} else {
		copy(h.Seal[:], b)
	}
	return h, nil
}

func decodeEpochMark(r *codec.Reader) (EpochMark, error) {
	var m EpochMark
	b, err := r.RawBytes(32)
	if err != nil {
		return m, err
	}
	copy(m.Entropy[:], b)
	b, err = r.RawBytes(32)
	if err != nil {
		return m, err
	}
	copy(m.NextEntropy[:], b)
	vs, err := codec.DecodeSeq(r, func(r *codec.Reader) (oracle.BandersnatchPublicKey, error) {
		b, err := r.RawBytes(32)
		if err != nil {
			return oracle.BandersnatchPublicKey{}, err
		}
		var k oracle.BandersnatchPublicKey
		copy(k[:], b)
		return k, nil
	})
	if err != nil {
		return m, err
	}
	m.Validators = vs
	return m, nil
}

func decodeTicketsMark(r *codec.Reader) (TicketsMark, error) {
	var m TicketsMark
	tickets, err := codec.DecodeSeq(r, func(r *codec.Reader) (TicketBody, error) {
		var t TicketBody
		b, err := r.RawBytes(32)
		if err != nil {
			return t, err
		}
		copy(t.ID[:], b)
		attempt, err := r.U8()
		if err != nil {
			return t, err
		}
		t.Attempt = attempt
		return t, nil
	})
	if err != nil {
		return m, err
	}
	m.Tickets = tickets
	return m, nil
}

// Hash returns the Blake2-256 hash of the header's canonical encoding, used
// as the block hash threaded through recent_history and as the `parent`
// field of the next block.
func (h *Header) Hash() oracle.Hash {
	w := codec.NewWriter(512)
	h.Encode(w)
	return oracle.Blake2b256(w.Bytes())
}

// Ticket is one entry of the tickets extrinsic (§4.6): a ring-VRF proof
// over (epoch_entropy, attempt).
type Ticket struct {
	Attempt uint8
	Proof   oracle.RingVRFSignature
}

func (t Ticket) encode(w *codec.Writer) {
	w.PutU8(t.Attempt)
	w.PutRaw(t.Proof[:])
}

func decodeTicket(r *codec.Reader) (Ticket, error) {
	var t Ticket
	attempt, err := r.U8()
	if err != nil {
		return t, err
	}
	t.Attempt = attempt
	b, err := r.RawBytes(96)
	if err != nil {
		return t, err
	}
	copy(t.Proof[:], b)
	return t, nil
}

// PreimageItem is one entry of the preimages extrinsic (§4.9).
type PreimageItem struct {
	Service ServiceId
	Blob    []byte
}

func (p PreimageItem) encode(w *codec.Writer) {
	w.PutU32(uint32(p.Service))
	w.PutBlob(p.Blob)
}

func decodePreimageItem(r *codec.Reader) (PreimageItem, error) {
	var p PreimageItem
	svc, err := r.U32()
	if err != nil {
		return p, err
	}
	p.Service = ServiceId(svc)
	blob, err := r.Blob()
	if err != nil {
		return p, err
	}
	p.Blob = blob
	return p, nil
}

// GuarantorSignature is one validator's signature over a guaranteed report.
type GuarantorSignature struct {
	ValidatorIndex ValidatorIndex
	Signature      oracle.Ed25519Signature
}

func (g GuarantorSignature) encode(w *codec.Writer) {
	w.PutU16(uint16(g.ValidatorIndex))
	w.PutRaw(g.Signature[:])
}

func decodeGuarantorSignature(r *codec.Reader) (GuarantorSignature, error) {
	var g GuarantorSignature
	idx, err := r.U16()
	if err != nil {
		return g, err
	}
	g.ValidatorIndex = ValidatorIndex(idx)
	b, err := r.RawBytes(64)
	if err != nil {
		return g, err
	}
	copy(g.Signature[:], b)
	return g, nil
}

// Guarantee is one entry of the guarantees extrinsic (§4.8).
type Guarantee struct {
	Report     WorkReport
	Slot       uint32
	Signatures []GuarantorSignature
}

func (g Guarantee) encode(w *codec.Writer) {
	g.Report.Encode(w)
	w.PutU32(g.Slot)
	codec.EncodeSeq(w, g.Signatures, func(w *codec.Writer, s GuarantorSignature) { s.encode(w) })
}

func decodeGuarantee(r *codec.Reader) (Guarantee, error) {
	var g Guarantee
	rep, err := DecodeWorkReport(r)
	if err != nil {
		return g, err
	}
	g.Report = *rep
	slot, err := r.U32()
	if err != nil {
		return g, err
	}
	g.Slot = slot
	sigs, err := codec.DecodeSeq(r, decodeGuarantorSignature)
	if err != nil {
		return g, err
	}
	g.Signatures = sigs
	return g, nil
}

// Assurance is one entry of the assurances extrinsic (§4.8).
type Assurance struct {
	Anchor         oracle.Hash
	Bitfield       []byte
	ValidatorIndex ValidatorIndex
	Signature      oracle.Ed25519Signature
}

func (a Assurance) encode(w *codec.Writer) {
	w.PutRaw(a.Anchor[:])
	w.PutBlob(a.Bitfield)
	w.PutU16(uint16(a.ValidatorIndex))
	w.PutRaw(a.Signature[:])
}

func decodeAssurance(r *codec.Reader) (Assurance, error) {
	var a Assurance
	b, err := r.RawBytes(32)
	if err != nil {
		return a, err
	}
	copy(a.Anchor[:], b)
	bf, err := r.Blob()
	if err != nil {
		return a, err
	}
	a.Bitfield = bf
	idx, err := r.U16()
	if err != nil {
		return a, err
	}
	a.ValidatorIndex = ValidatorIndex(idx)
	sig, err := r.RawBytes(64)
	if err != nil {
		return a, err
	}
	copy(a.Signature[:], sig)
	return a, nil
}

// Judgement is one validator's vote within a Verdict.
type Judgement struct {
	ValidatorIndex ValidatorIndex
	Vote           bool
	Signature      oracle.Ed25519Signature
}

func (j Judgement) encode(w *codec.Writer) {
	w.PutU16(uint16(j.ValidatorIndex))
	w.PutBool(j.Vote)
	w.PutRaw(j.Signature[:])
}

func decodeJudgement(r *codec.Reader) (Judgement, error) {
	var j Judgement
	idx, err := r.U16()
	if err != nil {
		return j, err
	}
	j.ValidatorIndex = ValidatorIndex(idx)
	vote, err := r.Bool()
	if err != nil {
		return j, err
	}
	j.Vote = vote
	sig, err := r.RawBytes(64)
	if err != nil {
		return j, err
	}
	copy(j.Signature[:], sig)
	return j, nil
}

// Verdict bundles a supermajority judgement over a work-report hash (§4.7).
type Verdict struct {
	Target     oracle.Hash
	Age        uint32
	Judgements []Judgement
}

func (v Verdict) encode(w *codec.Writer) {
	w.PutRaw(v.Target[:])
	w.PutU32(v.Age)
	codec.EncodeSeq(w, v.Judgements, func(w *codec.Writer, j Judgement) { j.encode(w) })
}

func decodeVerdict(r *codec.Reader) (Verdict, error) {
	var v Verdict
	b, err := r.RawBytes(32)
	if err != nil {
		return v, err
	}
	copy(v.Target[:], b)
	age, err := r.U32()
	if err != nil {
		return v, err
	}
	v.Age = age
	js, err := codec.DecodeSeq(r, decodeJudgement)
	if err != nil {
		return v, err
	}
	v.Judgements = js
	return v, nil
}

// Culprit accuses a guarantor of signing a now-bad report.
type Culprit struct {
	Target    oracle.Hash
	Key       oracle.Ed25519PublicKey
	Signature oracle.Ed25519Signature
}

func (c Culprit) encode(w *codec.Writer) {
	w.PutRaw(c.Target[:])
	w.PutRaw(c.Key[:])
	w.PutRaw(c.Signature[:])
}

func decodeCulprit(r *codec.Reader) (Culprit, error) {
	var c Culprit
	b, err := r.RawBytes(32)
	if err != nil {
		return c, err
	}
	copy(c.Target[:], b)
	k, err := r.RawBytes(32)
	if err != nil {
		return c, err
	}
	copy(c.Key[:], k)
	s, err := r.RawBytes(64)
	if err != nil {
		return c, err
	}
	copy(c.Signature[:], s)
	return c, nil
}

// Fault attests a prior negative judgement on target was wrong.
type Fault struct {
	Target    oracle.Hash
	Vote      bool
	Key       oracle.Ed25519PublicKey
	Signature oracle.Ed25519Signature
}

func (f Fault) encode(w *codec.Writer) {
	w.PutRaw(f.Target[:])
	w.PutBool(f.Vote)
	w.PutRaw(f.Key[:])
	w.PutRaw(f.Signature[:])
}

func decodeFault(r *codec.Reader) (Fault, error) {
	var f Fault
	b, err := r.RawBytes(32)
	if err != nil {
		return f, err
	}
	copy(f.Target[:], b)
	vote, err := r.Bool()
	if err != nil {
		return f, err
	}
	f.Vote = vote
	k, err := r.RawBytes(32)
	if err != nil {
		return f, err
	}
	copy(f.Key[:], k)
	s, err := r.RawBytes(64)
	if err != nil {
		return f, err
	}
	copy(f.Signature[:], s)
	return f, nil
}

// DisputesExtrinsic is the disputes section of a block (§4.7).
type DisputesExtrinsic struct {
	Verdicts []Verdict
	Culprits []Culprit
	Faults   []Fault
}

func (d DisputesExtrinsic) encode(w *codec.Writer) {
	codec.EncodeSeq(w, d.Verdicts, func(w *codec.Writer, v Verdict) { v.encode(w) })
	codec.EncodeSeq(w, d.Culprits, func(w *codec.Writer, c Culprit) { c.encode(w) })
	codec.EncodeSeq(w, d.Faults, func(w *codec.Writer, f Fault) { f.encode(w) })
}

func decodeDisputesExtrinsic(r *codec.Reader) (DisputesExtrinsic, error) {
	var d DisputesExtrinsic
	vs, err := codec.DecodeSeq(r, decodeVerdict)
	if err != nil {
		return d, err
	}
	d.Verdicts = vs
	cs, err := codec.DecodeSeq(r, decodeCulprit)
	if err != nil {
		return d, err
	}
	d.Culprits = cs
	fs, err := codec.DecodeSeq(r, decodeFault)
	if err != nil {
		return d, err
	}
	d.Faults = fs
	return d, nil
}

// Extrinsic is the five-section block body, encoded in the wire order
// tickets/preimages/guarantees/assurances/disputes (§3, §6) — which differs
// from the struct's natural field order; Encode/Decode follow the wire
// order, not Go field order.
type Extrinsic struct {
	Tickets    []Ticket
	Preimages  []PreimageItem
	Guarantees []Guarantee
	Assurances []Assurance
	Disputes   DisputesExtrinsic
}

// Encode writes the extrinsic in wire order (§6): tickets, preimages,
// guarantees, assurances, disputes.
func (e *Extrinsic) Encode(w *codec.Writer) {
	codec.EncodeSeq(w, e.Tickets, func(w *codec.Writer, t Ticket) { t.encode(w) })
	codec.EncodeSeq(w, e.Preimages, func(w *codec.Writer, p PreimageItem) { p.encode(w) })
	codec.EncodeSeq(w, e.Guarantees, func(w *codec.Writer, g Guarantee) { g.encode(w) })
	codec.EncodeSeq(w, e.Assurances, func(w *codec.Writer, a Assurance) { a.encode(w) })
	e.Disputes.encode(w)
}

// DecodeExtrinsic reads an extrinsic written by Encode.
func DecodeExtrinsic(r *codec.Reader) (*Extrinsic, error) {
	e := &Extrinsic{}
	tickets, err := codec.DecodeSeq(r, decodeTicket)
	if err != nil {
		return nil, err
	}
	e.Tickets = tickets
	preimages, err := codec.DecodeSeq(r, decodePreimageItem)
	if err != nil {
		return nil, err
	}
	e.Preimages = preimages
	guarantees, err := codec.DecodeSeq(r, decodeGuarantee)
	if err != nil {
		return nil, err
	}
	e.Guarantees = guarantees
	assurances, err := codec.DecodeSeq(r, decodeAssurance)
	if err != nil {
		return nil, err
	}
	e.Assurances = assurances
	disputes, err := decodeDisputesExtrinsic(r)
	if err != nil {
		return nil, err
	}
	e.Disputes = disputes
	return e, nil
}

// Block is a full block: header plus extrinsic (§3, §6).
type Block struct {
	Header    Header
	Extrinsic Extrinsic
}

// Encode writes the block as header || extrinsic.
func (b *Block) Encode(w *codec.Writer) {
	b.Header.Encode(w)
	b.Extrinsic.Encode(w)
}

// DecodeBlock reads a block written by Encode.
func DecodeBlock(r *codec.Reader) (*Block, error) {
	h, err := DecodeHeader(r)
	if err != nil {
		return nil, err
	}
	e, err := DecodeExtrinsic(r)
	if err != nil {
		return nil, err
	}
	return &Block{Header: *h, Extrinsic: *e}, nil
}

// DecodeBlockBytes decodes a full block from a byte slice, requiring the
// entire input to be consumed (§8 property 1).
func DecodeBlockBytes(b []byte) (*Block, error) {
	return codec.DecodeExact(b, DecodeBlock)
}

// EncodeBlock returns the canonical encoding of a block.
func EncodeBlock(b *Block) []byte {
	w := codec.NewWriter(4096)
	b.Encode(w)
	return w.Bytes()
}
