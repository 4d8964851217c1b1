package trie

import "github.com/jamnode/jamcore/internal/oracle"

// MMR is a Merkle mountain range of accumulation-result roots (§4.2),
// represented as a slice of peaks. A nil entry is an absent peak at that
// height (spec §9: "MMR peaks are Option<Hash>, encoded as option-tagged
// entries").
type MMR struct {
	Peaks []*oracle.Hash
}

// NewMMR returns an empty mountain range.
func NewMMR() *MMR { return &MMR{} }

// Append folds leaf into the lowest empty peak, carrying by hashing
// peak || carry upward through any occupied peaks below it, using
// Keccak-256 (§4.2).
func (m *MMR) Append(leaf oracle.Hash) {
	carry := leaf
	i := 0
	for i < len(m.Peaks) {
		if m.Peaks[i] == nil {
			break
		}
		carry = oracle.Keccak256((*m.Peaks[i])[:], carry[:])
		m.Peaks[i] = nil
		i++
	}
	if i == len(m.Peaks) {
		m.Peaks = append(m.Peaks, &carry)
	} else {
		m.Peaks[i] = &carry
	}
}

// Clone returns a deep copy of the mountain range.
func (m *MMR) Clone() *MMR {
	out := &MMR{Peaks: make([]*oracle.Hash, len(m.Peaks))}
	for i, p := range m.Peaks {
		if p == nil {
			continue
		}
		h := *p
		out.Peaks[i] = &h
	}
	return out
}
