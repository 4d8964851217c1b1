package trie

import (
	"github.com/jamnode/jamcore/internal/codec"
	"github.com/jamnode/jamcore/internal/oracle"
)

// Encode appends the MMR's option-tagged peak sequence (§9).
func (m *MMR) Encode(w *codec.Writer) {
	codec.EncodeSeq(w, m.Peaks, func(w *codec.Writer, p *oracle.Hash) {
		codec.EncodeOption(w, p, func(w *codec.Writer, h oracle.Hash) { w.PutRaw(h[:]) })
	})
}

// DecodeMMR reads an MMR written by Encode.
func DecodeMMR(r *codec.Reader) (*MMR, error) {
	peaks, err := codec.DecodeSeq(r, func(r *codec.Reader) (*oracle.Hash, error) {
		return codec.DecodeOption(r, func(r *codec.Reader) (oracle.Hash, error) {
			b, err := r.RawBytes(32)
			if err != nil {
				return oracle.Hash{}, err
			}
			var h oracle.Hash
			copy(h[:], b)
			return h, nil
		})
	})
	if err != nil {
		return nil, err
	}
	return &MMR{Peaks: peaks}, nil
}
