package state

import (
	"github.com/jamnode/jamcore/internal/codec"
	"github.com/jamnode/jamcore/internal/oracle"
)

// lookupKey identifies one (hash, length) preimage-solicitation entry
// within an account's lookup dictionary (§3 Account).
type lookupKey struct {
	Hash oracle.Hash
	Len  uint32
}

// Account is a service account (§3 Account): code identity, balance and gas
// thresholds, and three service-scoped maps: storage keyed by 31-byte state
// key, preimages keyed by hash, and lookup history keyed by (hash, length).
//
// Grounded on pkg/core/state/state_object.go's account representation
// (balance/code/storage trie fields), generalized with JAM's preimage and
// lookup-history maps the teacher's EVM account does not have.
type Account struct {
	CodeHash      oracle.Hash
	Balance       uint64
	AccMinGas     uint64
	XferMinGas    uint64
	ParentService ServiceId
	CreatedAt     uint32
	LastAcc       uint32

	Storage   map[[31]byte][]byte
	Preimages map[oracle.Hash][]byte
	Lookup    map[lookupKey][]uint32
}

// NewAccount returns an empty account ready for storage/preimage/lookup
// mutation.
func NewAccount() *Account {
	return &Account{
		Storage:   make(map[[31]byte][]byte),
		Preimages: make(map[oracle.Hash][]byte),
		Lookup:    make(map[lookupKey][]uint32),
	}
}

// Clone returns a deep copy, used by the accumulation processor to stage
// mutations against a scratch map before committing (§4.11 step 5).
func (a *Account) Clone() *Account {
	out := &Account{
		CodeHash:      a.CodeHash,
		Balance:       a.Balance,
		AccMinGas:     a.AccMinGas,
		XferMinGas:    a.XferMinGas,
		ParentService: a.ParentService,
		CreatedAt:     a.CreatedAt,
		LastAcc:       a.LastAcc,
		Storage:       make(map[[31]byte][]byte, len(a.Storage)),
		Preimages:     make(map[oracle.Hash][]byte, len(a.Preimages)),
		Lookup:        make(map[lookupKey][]uint32, len(a.Lookup)),
	}
	for k, v := range a.Storage {
		out.Storage[k] = append([]byte(nil), v...)
	}
	for k, v := range a.Preimages {
		out.Preimages[k] = append([]byte(nil), v...)
	}
	for k, v := range a.Lookup {
		out.Lookup[k] = append([]uint32(nil), v...)
	}
	return out
}

// ThresholdBalance returns the minimum balance required for the account's
// current storage footprint (§4.5 write(): "balance threshold must remain
// satisfied"). Modeled as a base deposit plus a per-item and per-byte cost,
// the shape every JAM implementation's deposit formula takes even though
// the exact constants are implementation-defined.
func (a *Account) ThresholdBalance() uint64 {
	const base = 100
	const perItem = 10
	const perByte = 1
	total := uint64(base)
	items := uint64(len(a.Storage) + len(a.Preimages) + len(a.Lookup))
	total += items * perItem
	for _, v := range a.Storage {
		total += uint64(len(v)) * perByte
	}
	for _, v := range a.Preimages {
		total += uint64(len(v)) * perByte
	}
	return total
}

// HasSolicited reports whether the account solicited (hash, length) via a
// prior `solicit` host call and has not yet been provided it (i.e. holds a
// lookup entry for it with no slots recorded), the precondition
// preimages(§4.9) checks before accepting a blob.
func (a *Account) HasSolicited(hash oracle.Hash, length uint32) bool {
	entry, ok := a.Lookup[lookupKey{Hash: hash, Len: length}]
	return ok && len(entry) == 0
}

// HasPreimage reports whether hash is already stored.
func (a *Account) HasPreimage(hash oracle.Hash) bool {
	_, ok := a.Preimages[hash]
	return ok
}

// Solicit marks (hash, length) as wanted by creating an empty lookup entry
// if one is not already present, the precondition `solicit` establishes for
// a later preimage submission to satisfy (§4.5 `solicit`, §4.9).
func (a *Account) Solicit(hash oracle.Hash, length uint32) {
	k := lookupKey{Hash: hash, Len: length}
	if _, ok := a.Lookup[k]; !ok {
		a.Lookup[k] = []uint32{}
	}
}

// RecordProvision appends slot to the (hash, length) lookup history,
// called once a solicited preimage blob has been accepted (§4.9).
func (a *Account) RecordProvision(hash oracle.Hash, length uint32, slot uint32) {
	k := lookupKey{Hash: hash, Len: length}
	a.Lookup[k] = append(a.Lookup[k], slot)
}

// StorageKey returns the 31-byte state key for a value stored at key within
// this account's storage map (§4.10: service-scoped storage key).
func StorageKey(service ServiceId, key [31]byte) [31]byte {
	return interleaveServiceKey(service, 0xFFFFFFFF, key[:27])
}

// PreimageStateKey returns the 31-byte state key for a preimage blob keyed
// by its hash (§4.10).
func PreimageStateKey(service ServiceId, hash oracle.Hash) [31]byte {
	return interleaveServiceKey(service, 0xFFFFFFFE, hash[1:28])
}

// LookupStateKey returns the 31-byte state key for a (hash, length)
// lookup-history entry (§4.10).
func LookupStateKey(service ServiceId, hash oracle.Hash, length uint32) [31]byte {
	blakeHash := oracle.Blake2b256(hash[:])
	return interleaveServiceKey(service, length, blakeHash[2:29])
}

// ServiceInfoKey returns the 31-byte state key for a service's info entry
// (§4.10: byte 0 = 255, service id spread into odd positions).
func ServiceInfoKey(service ServiceId) [31]byte {
	var out [31]byte
	out[0] = 255
	s := uint32(service)
	out[1] = byte(s)
	out[3] = byte(s >> 8)
	out[5] = byte(s >> 16)
	out[7] = byte(s >> 24)
	return out
}

// interleaveServiceKey implements the §4.10 "service-scoped" key shape:
// 4 bytes of service id in even positions (0,2,4,6), 4 bytes of subKey in
// odd positions (1,3,5,7), the remainder of key26 filling positions 8..30.
func interleaveServiceKey(service ServiceId, subKey uint32, rest []byte) [31]byte {
	var out [31]byte
	s := uint32(service)
	out[0] = byte(s)
	out[2] = byte(s >> 8)
	out[4] = byte(s >> 16)
	out[6] = byte(s >> 24)
	out[1] = byte(subKey)
	out[3] = byte(subKey >> 8)
	out[5] = byte(subKey >> 16)
	out[7] = byte(subKey >> 24)
	n := copy(out[8:], rest)
	_ = n
	return out
}

// EncodeValue serializes the account's non-map fields as the value stored
// at its whole-account key (the per-map entries are each separate trie
// leaves keyed per §4.10).
func (a *Account) EncodeValue() []byte {
	w := codec.NewWriter(64)
	w.PutRaw(a.CodeHash[:])
	w.PutU64(a.Balance)
	w.PutU64(a.AccMinGas)
	w.PutU64(a.XferMinGas)
	w.PutU32(uint32(a.ParentService))
	w.PutU32(a.CreatedAt)
	w.PutU32(a.LastAcc)
	return w.Bytes()
}

// DecodeAccountValue reads the fixed portion written by EncodeValue.
func DecodeAccountValue(b []byte) (*Account, error) {
	r := codec.NewReader(b)
	a := NewAccount()
	codeHash, err := r.RawBytes(32)
	if err != nil {
		return nil, err
	}
	copy(a.CodeHash[:], codeHash)
	if a.Balance, err = r.U64(); err != nil {
		return nil, err
	}
	if a.AccMinGas, err = r.U64(); err != nil {
		return nil, err
	}
	if a.XferMinGas, err = r.U64(); err != nil {
		return nil, err
	}
	parent, err := r.U32()
	if err != nil {
		return nil, err
	}
	a.ParentService = ServiceId(parent)
	if a.CreatedAt, err = r.U32(); err != nil {
		return nil, err
	}
	if a.LastAcc, err = r.U32(); err != nil {
		return nil, err
	}
	return a, nil
}

// ServiceInfo is the struct `info(service, dst)` serializes into guest
// memory (§4.5): a summary of a service's identity and gas thresholds.
type ServiceInfo struct {
	CodeHash   oracle.Hash
	Balance    uint64
	AccMinGas  uint64
	XferMinGas uint64
	CreatedAt  uint32
	LastAcc    uint32
}

// Encode writes the fixed 64-byte ServiceInfo layout.
func (si ServiceInfo) Encode() []byte {
	w := codec.NewWriter(64)
	w.PutRaw(si.CodeHash[:])
	w.PutU64(si.Balance)
	w.PutU64(si.AccMinGas)
	w.PutU64(si.XferMinGas)
	w.PutU32(si.CreatedAt)
	w.PutU32(si.LastAcc)
	return w.Bytes()
}

// Info returns the ServiceInfo view of this account.
func (a *Account) Info() ServiceInfo {
	return ServiceInfo{
		CodeHash:   a.CodeHash,
		Balance:    a.Balance,
		AccMinGas:  a.AccMinGas,
		XferMinGas: a.XferMinGas,
		CreatedAt:  a.CreatedAt,
		LastAcc:    a.LastAcc,
	}
}
