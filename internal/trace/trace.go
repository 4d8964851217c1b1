// Package trace decodes the fuzzer/conformance trace-file format (§6):
// `RawState(pre) ‖ Block ‖ RawState(post)`, where a RawState is a state
// root followed by the flat (31-byte key, value) pairs a posterior state
// serializes to (§4.10).
//
// Grounded on pkg/rlp's stream-based decode style, reused here as the
// cursor-based Reader already underlying every other entity's decoder.
package trace

import (
	"errors"

	"github.com/jamnode/jamcore/internal/codec"
	"github.com/jamnode/jamcore/internal/oracle"
	"github.com/jamnode/jamcore/internal/state"
	"github.com/jamnode/jamcore/internal/trie"
)

// ErrRootMismatch is returned by Verify when a RawState's declared root
// does not match the Merkle root of its own key/value pairs.
var ErrRootMismatch = errors.New("trace: declared state root does not match merklized entries")

// RawState is `state_root ‖ Vec<(StorageKey, blob)>` (§6).
type RawState struct {
	StateRoot oracle.Hash
	Entries   []trie.KV
}

// Encode writes a RawState in the §6 wire order.
func (rs *RawState) Encode(w *codec.Writer) {
	w.PutRaw(rs.StateRoot[:])
	codec.EncodeSeq(w, rs.Entries, func(w *codec.Writer, kv trie.KV) {
		w.PutRaw(kv.Key[:])
		w.PutBlob(kv.Value)
	})
}

// DecodeRawState reads a RawState written by Encode.
func DecodeRawState(r *codec.Reader) (*RawState, error) {
	rs := &RawState{}
	b, err := r.RawBytes(32)
	if err != nil {
		return nil, err
	}
	copy(rs.StateRoot[:], b)
	entries, err := codec.DecodeSeq(r, func(r *codec.Reader) (trie.KV, error) {
		var kv trie.KV
		kb, err := r.RawBytes(31)
		if err != nil {
			return kv, err
		}
		copy(kv.Key[:], kb)
		v, err := r.Blob()
		if err != nil {
			return kv, err
		}
		kv.Value = v
		return kv, nil
	})
	if err != nil {
		return nil, err
	}
	rs.Entries = entries
	return rs, nil
}

// Verify checks that rs.StateRoot equals the Merkle root of rs.Entries
// (§8 property 3: state-root consistency), a structural sanity check
// independent of the full typed State the STF orchestrator operates on.
func (rs *RawState) Verify() error {
	root := trie.BuildFrom(rs.Entries).Root()
	if root != rs.StateRoot {
		return ErrRootMismatch
	}
	return nil
}

// File is one fuzzer-protocol trace record: the state immediately before
// a block, the block itself, and the state immediately after (§6).
type File struct {
	Pre   RawState
	Block state.Block
	Post  RawState
}

// Decode reads a trace file written by Encode.
func Decode(b []byte) (*File, error) {
	r := codec.NewReader(b)
	pre, err := DecodeRawState(r)
	if err != nil {
		return nil, err
	}
	blk, err := state.DecodeBlock(r)
	if err != nil {
		return nil, err
	}
	post, err := DecodeRawState(r)
	if err != nil {
		return nil, err
	}
	if !r.Done() {
		return nil, codec.ErrTrailingData
	}
	return &File{Pre: *pre, Block: *blk, Post: *post}, nil
}

// Encode writes a trace file in the §6 wire order.
func Encode(f *File) []byte {
	w := codec.NewWriter(4096)
	f.Pre.Encode(w)
	f.Block.Encode(w)
	f.Post.Encode(w)
	return w.Bytes()
}
