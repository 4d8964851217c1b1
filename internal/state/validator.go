package state

import (
	"github.com/jamnode/jamcore/internal/codec"
	"github.com/jamnode/jamcore/internal/oracle"
)

// MetadataSize is the fixed size of a validator descriptor's opaque
// metadata blob (JAM validator metadata, 128 bytes).
const MetadataSize = 128

// Validator is one validator descriptor (§3: Bandersnatch + Ed25519 + BLS +
// metadata).
type Validator struct {
	Bandersnatch oracle.BandersnatchPublicKey
	Ed25519      oracle.Ed25519PublicKey
	BLS          oracle.BLSPublicKey
	Metadata     [MetadataSize]byte
}

func (v Validator) Encode(w *codec.Writer) {
	w.PutRaw(v.Bandersnatch[:])
	w.PutRaw(v.Ed25519[:])
	w.PutRaw(v.BLS[:])
	w.PutRaw(v.Metadata[:])
}

func DecodeValidator(r *codec.Reader) (Validator, error) {
	var v Validator
	b, err := r.RawBytes(32)
	if err != nil {
		return v, err
	}
	copy(v.Bandersnatch[:], b)
	b, err = r.RawBytes(32)
	if err != nil {
		return v, err
	}
	copy(v.Ed25519[:], b)
	b, err = r.RawBytes(144)
	if err != nil {
		return v, err
	}
	copy(v.BLS[:], b)
	b, err = r.RawBytes(MetadataSize)
	if err != nil {
		return v, err
	}
	copy(v.Metadata[:], b)
	return v, nil
}

// IsOffender reports whether v's Ed25519 key appears in offenders, the test
// used at epoch rollover to zero out a pending validator's keys (§4.6).
func (v Validator) IsOffender(offenders []oracle.Ed25519PublicKey) bool {
	for _, o := range offenders {
		if o == v.Ed25519 {
			return true
		}
	}
	return false
}

// Validators is a fixed-length (V) array of validator descriptors, encoded
// as a plain concatenation (array, not Vec — §4.1 "arrays encode as
// concatenation, no length prefix").
type Validators []Validator

func (vs Validators) Encode(w *codec.Writer) {
	for _, v := range vs {
		v.Encode(w)
	}
}

func DecodeValidators(r *codec.Reader, n uint32) (Validators, error) {
	out := make(Validators, n)
	for i := range out {
		v, err := DecodeValidator(r)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// Clone returns a copy of the validator set.
func (vs Validators) Clone() Validators {
	out := make(Validators, len(vs))
	copy(out, vs)
	return out
}
